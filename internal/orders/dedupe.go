package orders

import "strings"

// Deduplicate reduces records to one Order per Key, in first-occurrence order.
// Scalar attributes and raw milestone pairs come from the first record of each key;
// collection attributes are unioned in first-seen order.
func Deduplicate(records []RawRecord) []*Order {
	index := make(map[Key]int, len(records))
	result := make([]*Order, 0, len(records))

	for _, rec := range records {
		if i, ok := index[rec.Key]; ok {
			result[i].merge(rec)
			continue
		}
		index[rec.Key] = len(result)
		result = append(result, newOrder(rec))
	}

	return result
}

func newOrder(rec RawRecord) *Order {
	o := &Order{
		Key:         rec.Key,
		Raw:         rec.Milestones,
		Attributes:  make(map[Attribute]string),
		Collections: make(map[Attribute][]string),
	}
	for _, m := range Milestones {
		o.Statuses[m] = Pending
	}
	for attr, value := range rec.Attributes {
		if !attr.IsCollection() {
			o.Attributes[attr] = value
		}
	}
	o.merge(rec)
	return o
}

func (o *Order) merge(rec RawRecord) {
	o.Records++
	for _, attr := range CollectionAttributes {
		value := strings.TrimSpace(rec.Attributes[attr])
		if value == "" {
			continue
		}
		if !containsString(o.Collections[attr], value) {
			o.Collections[attr] = append(o.Collections[attr], value)
		}
	}
}

func containsString(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}
