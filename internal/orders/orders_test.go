package orders

import (
	"reflect"
	"testing"
	"time"

	"otc-analytics/internal/reconcile"
)

func record(branch, order string, attrs map[Attribute]string) RawRecord {
	return RawRecord{Key: Key{Branch: branch, OrderNumber: order}, Attributes: attrs}
}

func TestDeduplicate(t *testing.T) {
	records := []RawRecord{
		record("1", "100", map[Attribute]string{AttrOrderSituation: "1", AttrProductCode: "P1", AttrInvoiceNumber: "NF1"}),
		record("2", "100", map[Attribute]string{AttrOrderSituation: "4", AttrProductCode: "P9"}),
		record("1", "100", map[Attribute]string{AttrOrderSituation: "5", AttrProductCode: "P2", AttrInvoiceNumber: "NF1"}),
		record("1", "101", nil),
		record("1", "100", map[Attribute]string{AttrProductCode: "P1", AttrTitleNumber: "T7"}),
	}

	got := Deduplicate(records)

	if len(got) != 3 {
		t.Fatalf("Deduplicate() returned %d orders, want 3", len(got))
	}
	wantKeys := []Key{{"1", "100"}, {"2", "100"}, {"1", "101"}}
	for i, k := range wantKeys {
		if got[i].Key != k {
			t.Errorf("order[%d].Key = %v, want %v", i, got[i].Key, k)
		}
	}

	first := got[0]
	if first.Attribute(AttrOrderSituation) != "1" {
		t.Errorf("situation = %q, want first-seen %q", first.Attribute(AttrOrderSituation), "1")
	}
	if want := []string{"P1", "P2"}; !reflect.DeepEqual(first.Collection(AttrProductCode), want) {
		t.Errorf("products = %v, want %v", first.Collection(AttrProductCode), want)
	}
	if want := []string{"NF1"}; !reflect.DeepEqual(first.Collection(AttrInvoiceNumber), want) {
		t.Errorf("invoices = %v, want %v", first.Collection(AttrInvoiceNumber), want)
	}
	if want := []string{"T7"}; !reflect.DeepEqual(first.Collection(AttrTitleNumber), want) {
		t.Errorf("titles = %v, want %v", first.Collection(AttrTitleNumber), want)
	}
	if first.Records != 3 {
		t.Errorf("Records = %d, want 3", first.Records)
	}
	if _, ok := first.Attributes[AttrProductCode]; ok {
		t.Error("collection attribute leaked into scalar attributes")
	}

	empty := got[2]
	if empty.Records != 1 || len(empty.Attributes) != 0 {
		t.Errorf("empty order = %+v, want kept with no attributes", empty)
	}
	for _, m := range Milestones {
		if empty.Statuses[m] != Pending {
			t.Errorf("empty order status[%v] = %v, want pending", m, empty.Statuses[m])
		}
	}
}

func TestDeduplicateKeepsEveryKey(t *testing.T) {
	var records []RawRecord
	keys := make(map[Key]bool)
	for i := 0; i < 50; i++ {
		r := record(string(rune('A'+i%3)), string(rune('a'+i%7)), nil)
		records = append(records, r)
		keys[r.Key] = true
	}

	got := Deduplicate(records)
	if len(got) != len(keys) {
		t.Fatalf("Deduplicate() = %d orders, want %d", len(got), len(keys))
	}
	seen := make(map[Key]bool)
	for _, o := range got {
		if seen[o.Key] {
			t.Errorf("duplicate order %v", o.Key)
		}
		seen[o.Key] = true
	}
}

func TestDeduplicateEmpty(t *testing.T) {
	if got := Deduplicate(nil); len(got) != 0 {
		t.Errorf("Deduplicate(nil) = %v, want empty", got)
	}
}

// Two rows for the same order: the first row wins for scalar fields and raw pairs,
// and the gated policy holds back item preparation while shipment is pending.
func TestDuplicateOrderUnderGatedPolicy(t *testing.T) {
	first := record("1", "100", map[Attribute]string{AttrObservation: "first", AttrOrderSituation: "1"})
	first.Milestones[OrderCreated] = RawDateTime{Date: "19/06/2025", Time: "09:43"}
	first.Milestones[ShipmentAssociated] = RawDateTime{Date: "31/12/1900", Time: "00:00"}
	first.Milestones[ItemPrepared] = RawDateTime{Date: "19/06/2025", Time: "10:42"}

	second := record("1", "100", map[Attribute]string{AttrObservation: "second", AttrOrderSituation: "9"})
	second.Milestones[ShipmentAssociated] = RawDateTime{Date: "19/06/2025", Time: "10:00"}

	list := Deduplicate([]RawRecord{first, second})
	if len(list) != 1 {
		t.Fatalf("Deduplicate() = %d orders, want 1", len(list))
	}
	o := list[0]
	if o.Attribute(AttrObservation) != "first" || o.Attribute(AttrOrderSituation) != "1" {
		t.Errorf("attributes = %v, want first-seen values", o.Attributes)
	}

	o.Reconcile(reconcile.Default())
	if o.Timestamp(ItemPrepared) == nil {
		t.Fatal("ItemPrepared timestamp should be present")
	}
	if o.Timestamp(ShipmentAssociated) != nil {
		t.Fatal("ShipmentAssociated timestamp should be absent")
	}

	o.DeriveStatuses(SequentialGated)
	if o.Statuses[ItemPrepared] != Pending {
		t.Errorf("gated ItemPrepared = %v, want pending", o.Statuses[ItemPrepared])
	}
	if o.Statuses[OrderCreated] != Completed {
		t.Errorf("gated OrderCreated = %v, want completed", o.Statuses[OrderCreated])
	}

	o.DeriveStatuses(Independent)
	if o.Statuses[ItemPrepared] != Completed {
		t.Errorf("independent ItemPrepared = %v, want completed", o.Statuses[ItemPrepared])
	}
}

func TestDeriveStatusesIndependentMatchesTimestamps(t *testing.T) {
	now := time.Date(2025, 6, 19, 12, 0, 0, 0, time.UTC)
	patterns := [][NumMilestones]bool{
		{true, true, true, true, true},
		{false, true, false, true, false},
		{true, false, false, false, true},
		{false, false, false, false, false},
	}

	for _, p := range patterns {
		o := &Order{}
		for _, m := range Milestones {
			if p[m] {
				ts := now.Add(time.Duration(m) * time.Hour)
				o.Timestamps[m] = &ts
			}
		}
		o.DeriveStatuses(Independent)
		for _, m := range Milestones {
			want := Pending
			if p[m] {
				want = Completed
			}
			if o.Statuses[m] != want {
				t.Errorf("pattern %v: status[%v] = %v, want %v", p, m, o.Statuses[m], want)
			}
		}
	}
}

func TestDeriveStatusesGatedChain(t *testing.T) {
	now := time.Date(2025, 6, 19, 12, 0, 0, 0, time.UTC)
	o := &Order{}
	for _, m := range []Milestone{OrderCreated, ShipmentAssociated, InvoiceIssued, TitleRegistered} {
		ts := now
		o.Timestamps[m] = &ts
	}

	o.DeriveStatuses(SequentialGated)

	want := [NumMilestones]MilestoneStatus{Completed, Completed, Pending, Pending, Pending}
	if o.Statuses != want {
		t.Errorf("gated statuses = %v, want %v", o.Statuses, want)
	}
}

func TestReconcileUsesFallbackPair(t *testing.T) {
	o := &Order{}
	o.Raw[InvoiceIssued] = RawDateTime{
		Date:     "31/12/1900",
		Time:     "00:00",
		Fallback: &RawDateTime{Date: "20/06/2025", Time: "08:00"},
	}
	o.Raw[TitleRegistered] = RawDateTime{Fallback: &RawDateTime{Date: "nan", Time: "08:00"}}

	o.Reconcile(reconcile.Default())

	want := time.Date(2025, 6, 20, 8, 0, 0, 0, time.UTC)
	if got := o.Timestamp(InvoiceIssued); got == nil || !got.Equal(want) {
		t.Errorf("InvoiceIssued = %v, want %v", got, want)
	}
	if o.Outcomes[InvoiceIssued] != reconcile.Parsed {
		t.Errorf("InvoiceIssued outcome = %v, want parsed", o.Outcomes[InvoiceIssued])
	}
	if o.Timestamp(TitleRegistered) != nil {
		t.Errorf("TitleRegistered = %v, want absent", o.Timestamp(TitleRegistered))
	}
	if o.Outcomes[TitleRegistered] != reconcile.Empty {
		t.Errorf("TitleRegistered outcome = %v, want primary outcome empty", o.Outcomes[TitleRegistered])
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    StatusPolicy
		wantErr bool
	}{
		{"", Independent, false},
		{"independent", Independent, false},
		{"sequential", SequentialGated, false},
		{"gated", SequentialGated, false},
		{"strict", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParsePolicy(%q) = %v, %v; want %v, err=%v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestMilestoneAndStageNames(t *testing.T) {
	for _, m := range Milestones {
		got, err := ParseMilestone(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMilestone(%q) = %v, %v", m.String(), got, err)
		}
	}
	for _, s := range Stages {
		got, err := ParseStage(s.String())
		if err != nil || got != s {
			t.Errorf("ParseStage(%q) = %v, %v", s.String(), got, err)
		}
		if s.To() != s.From()+1 {
			t.Errorf("stage %v is not adjacent", s)
		}
	}
	if _, ok := OrderCreated.Previous(); ok {
		t.Error("OrderCreated should have no predecessor")
	}
}
