package orders

import "fmt"

// Milestone is one lifecycle event of an order, ordered by expected real-world sequence.
type Milestone int

const (
	OrderCreated Milestone = iota
	ShipmentAssociated
	ItemPrepared
	InvoiceIssued
	TitleRegistered

	NumMilestones = 5
)

// Milestones lists every milestone in sequence.
var Milestones = []Milestone{OrderCreated, ShipmentAssociated, ItemPrepared, InvoiceIssued, TitleRegistered}

var milestoneNames = [NumMilestones]string{
	"order_created",
	"shipment_associated",
	"item_prepared",
	"invoice_issued",
	"title_registered",
}

var milestoneLabels = [NumMilestones]string{
	"Pedido Criado",
	"Remessa Associada",
	"Item Preparado",
	"NF Gerada",
	"Título Registrado",
}

func (m Milestone) String() string {
	if m < 0 || int(m) >= NumMilestones {
		return fmt.Sprintf("milestone(%d)", int(m))
	}
	return milestoneNames[m]
}

// Label is the display name used by reports.
func (m Milestone) Label() string {
	if m < 0 || int(m) >= NumMilestones {
		return m.String()
	}
	return milestoneLabels[m]
}

// Previous returns the preceding milestone; ok is false for OrderCreated.
func (m Milestone) Previous() (Milestone, bool) {
	if m <= OrderCreated {
		return 0, false
	}
	return m - 1, true
}

func (m Milestone) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Milestone) UnmarshalText(b []byte) error {
	parsed, err := ParseMilestone(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMilestone resolves a milestone by its snake_case name.
func ParseMilestone(name string) (Milestone, error) {
	for i, n := range milestoneNames {
		if n == name {
			return Milestone(i), nil
		}
	}
	return 0, fmt.Errorf("unknown milestone %q", name)
}

// Stage is the span between two adjacent milestones.
type Stage int

const (
	CreatedToShipment Stage = iota
	ShipmentToItemPrep
	ItemPrepToInvoice
	InvoiceToTitle

	NumStages = NumMilestones - 1
)

// Stages lists every stage in sequence.
var Stages = []Stage{CreatedToShipment, ShipmentToItemPrep, ItemPrepToInvoice, InvoiceToTitle}

var stageNames = [NumStages]string{
	"created_to_shipment",
	"shipment_to_item_prep",
	"item_prep_to_invoice",
	"invoice_to_title",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= NumStages {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Label joins the display names of both endpoints.
func (s Stage) Label() string {
	return s.From().Label() + " → " + s.To().Label()
}

func (s Stage) From() Milestone { return Milestone(s) }
func (s Stage) To() Milestone   { return Milestone(s) + 1 }

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(b []byte) error {
	parsed, err := ParseStage(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStage resolves a stage by its snake_case name.
func ParseStage(name string) (Stage, error) {
	for i, n := range stageNames {
		if n == name {
			return Stage(i), nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", name)
}
