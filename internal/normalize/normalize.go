package normalize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"otc-analytics/internal/orders"
)

// ErrUnknownSchema is returned when a row is normalized against a schema nobody defined.
var ErrUnknownSchema = errors.New("unknown source schema")

// Row is one source row keyed by source field name. A nil value is an explicit
// null marker (for example xsi:nil); a missing key means the source has no such field.
type Row map[string]*string

// Value wraps a literal for use in a Row.
func Value(s string) *string { return &s }

// Set stores a value under a trimmed field name.
func (r Row) Set(field, value string) {
	r[strings.TrimSpace(field)] = Value(value)
}

// SetNull stores an explicit null under a trimmed field name.
func (r Row) SetNull(field string) {
	r[strings.TrimSpace(field)] = nil
}

// ParseSchema resolves a schema by name.
func ParseSchema(name string) (Schema, error) {
	for _, s := range Schemas {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSchema, name)
}

// Normalize maps a source row onto the canonical record. Missing or null
// fields become absent values; only an unknown schema is an error.
func Normalize(schema Schema, row Row) (orders.RawRecord, error) {
	fm, ok := fieldMaps[schema]
	if !ok {
		return orders.RawRecord{}, fmt.Errorf("%w: %q", ErrUnknownSchema, schema)
	}

	fields := trimKeys(row)

	rec := orders.RawRecord{
		Key: orders.Key{
			Branch:      identifier(fields, fm.branch),
			OrderNumber: identifier(fields, fm.order),
		},
		Attributes: make(map[orders.Attribute]string),
	}

	for _, m := range orders.Milestones {
		rec.Milestones[m] = milestone(fields, fm.milestones[m])
	}

	for attr, field := range fm.attributes {
		if v, ok := lookup(fields, field); ok {
			if v = strings.TrimSpace(v); v != "" {
				rec.Attributes[attr] = v
			}
		}
	}

	return rec, nil
}

// NormalizeAll normalizes a batch, stopping at the first contract violation.
func NormalizeAll(schema Schema, rows []Row) ([]orders.RawRecord, error) {
	if _, ok := fieldMaps[schema]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchema, schema)
	}
	out := make([]orders.RawRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := Normalize(schema, row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Headers lists the source field names a schema reads, in a stable order.
func Headers(schema Schema) ([]string, error) {
	fm, ok := fieldMaps[schema]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchema, schema)
	}
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	add(fm.branch)
	add(fm.order)
	for _, candidates := range fm.milestones {
		for _, p := range candidates {
			add(p.date)
			add(p.time)
		}
	}
	for _, attr := range attributeOrder {
		if field, ok := fm.attributes[attr]; ok {
			add(field)
		}
	}
	return out, nil
}

var attributeOrder = []orders.Attribute{
	orders.AttrOrderSituation, orders.AttrOrderBlocked, orders.AttrBlockUser, orders.AttrBlockDate,
	orders.AttrObservation, orders.AttrInvoiceNumber, orders.AttrBillingStart, orders.AttrBillingEnd,
	orders.AttrProductCode, orders.AttrPFASituation, orders.AttrPFABlock, orders.AttrBillingSituation,
	orders.AttrLoadSituation, orders.AttrNFVSituation, orders.AttrNFVBlock, orders.AttrTitleNumber,
	orders.AttrTitleDueDate, orders.AttrTitleSituation,
}

func trimKeys(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		out[strings.TrimSpace(k)] = v
	}
	return out
}

func lookup(fields Row, name string) (string, bool) {
	v, ok := fields[name]
	if !ok || v == nil {
		return "", false
	}
	return *v, true
}

// milestone chains the candidate pairs of a schema: the first becomes the
// primary pair and each following one the fallback of the previous.
func milestone(fields Row, candidates []pair) orders.RawDateTime {
	var head orders.RawDateTime
	tail := &head
	for i, p := range candidates {
		if i > 0 {
			tail.Fallback = &orders.RawDateTime{}
			tail = tail.Fallback
		}
		tail.Date, _ = lookup(fields, p.date)
		tail.Time, _ = lookup(fields, p.time)
	}
	return head
}

// identifier trims an id and drops the ".0" spreadsheets add to integer cells.
func identifier(fields Row, name string) string {
	v, ok := lookup(fields, name)
	if !ok {
		return ""
	}
	v = strings.TrimSpace(v)
	if strings.HasSuffix(v, ".0") {
		if _, err := strconv.ParseInt(strings.TrimSuffix(v, ".0"), 10, 64); err == nil {
			return strings.TrimSuffix(v, ".0")
		}
	}
	return v
}
