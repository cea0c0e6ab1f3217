package orders

// Attribute names an auxiliary business field carried by a record.
type Attribute string

const (
	AttrOrderSituation   Attribute = "order_situation"
	AttrOrderBlocked     Attribute = "order_blocked"
	AttrBlockUser        Attribute = "block_user"
	AttrBlockDate        Attribute = "block_date"
	AttrObservation      Attribute = "observation"
	AttrInvoiceNumber    Attribute = "invoice_number"
	AttrBillingStart     Attribute = "billing_start"
	AttrBillingEnd       Attribute = "billing_end"
	AttrProductCode      Attribute = "product_code"
	AttrPFASituation     Attribute = "pfa_situation"
	AttrPFABlock         Attribute = "pfa_block"
	AttrBillingSituation Attribute = "billing_situation"
	AttrLoadSituation    Attribute = "load_situation"
	AttrNFVSituation     Attribute = "nfv_situation"
	AttrNFVBlock         Attribute = "nfv_block"
	AttrTitleNumber      Attribute = "title_number"
	AttrTitleDueDate     Attribute = "title_due_date"
	AttrTitleSituation   Attribute = "title_situation"
)

// CollectionAttributes are multi-valued per order and are merged by set-union.
var CollectionAttributes = []Attribute{AttrProductCode, AttrInvoiceNumber, AttrTitleNumber}

// IsCollection reports whether a is merged across records instead of first-wins.
func (a Attribute) IsCollection() bool {
	for _, c := range CollectionAttributes {
		if a == c {
			return true
		}
	}
	return false
}

// RawDateTime is the untouched (date, time) pair of one milestone.
// Fallback is consulted only when the primary pair does not reconcile.
type RawDateTime struct {
	Date     string       `json:"date,omitempty"`
	Time     string       `json:"time,omitempty"`
	Fallback *RawDateTime `json:"fallback,omitempty"`
}

// Key identifies an order.
type Key struct {
	Branch      string `json:"branch"`
	OrderNumber string `json:"order_number"`
}

func (k Key) String() string {
	return k.Branch + "/" + k.OrderNumber
}

// RawRecord is one normalized source row. Many records may share a Key.
type RawRecord struct {
	Key
	Milestones [NumMilestones]RawDateTime `json:"milestones"`
	Attributes map[Attribute]string       `json:"attributes,omitempty"`
}
