// Package document defines the medical document schema, the in-memory
// document store and collection statistics.
package document

import (
	"maps"
	"strings"
)

// Field names a searchable document field.
type Field string

const (
	FieldTitle             Field = "title"
	FieldGenericName       Field = "generic_name"
	FieldCategory          Field = "category"
	FieldSymptom           Field = "symptom"
	FieldUsage             Field = "usage"
	FieldSideEffects       Field = "side_effects"
	FieldContraindications Field = "contraindications"
	FieldDosage            Field = "dosage"
	FieldManufacturer      Field = "manufacturer"
	FieldAvailability      Field = "availability"
)

// SearchableFields lists every indexed field in schema order. Content is
// built in this order.
var SearchableFields = []Field{
	FieldTitle,
	FieldGenericName,
	FieldCategory,
	FieldSymptom,
	FieldUsage,
	FieldSideEffects,
	FieldContraindications,
	FieldDosage,
	FieldManufacturer,
	FieldAvailability,
}

// ParseField maps a field name to its Field.
func ParseField(name string) (Field, bool) {
	f := Field(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range SearchableFields {
		if f == known {
			return f, true
		}
	}
	return "", false
}

// Document is one medicine record. Content is derived by Finalize and is
// never taken from the caller.
type Document struct {
	ID                string            `json:"id"`
	Title             string            `json:"title"`
	GenericName       string            `json:"generic_name"`
	Category          string            `json:"category"`
	Symptom           string            `json:"symptom"`
	Usage             string            `json:"usage"`
	SideEffects       string            `json:"side_effects"`
	Contraindications string            `json:"contraindications"`
	Dosage            string            `json:"dosage"`
	Manufacturer      string            `json:"manufacturer"`
	Availability      string            `json:"availability"`
	Price             float64           `json:"price"`
	Extra             map[string]string `json:"extra,omitempty"`
	Content           string            `json:"content"`
}

// Value returns the text of a searchable field.
func (d *Document) Value(f Field) string {
	switch f {
	case FieldTitle:
		return d.Title
	case FieldGenericName:
		return d.GenericName
	case FieldCategory:
		return d.Category
	case FieldSymptom:
		return d.Symptom
	case FieldUsage:
		return d.Usage
	case FieldSideEffects:
		return d.SideEffects
	case FieldContraindications:
		return d.Contraindications
	case FieldDosage:
		return d.Dosage
	case FieldManufacturer:
		return d.Manufacturer
	case FieldAvailability:
		return d.Availability
	}
	return ""
}

func (d *Document) set(f Field, v string) {
	switch f {
	case FieldTitle:
		d.Title = v
	case FieldGenericName:
		d.GenericName = v
	case FieldCategory:
		d.Category = v
	case FieldSymptom:
		d.Symptom = v
	case FieldUsage:
		d.Usage = v
	case FieldSideEffects:
		d.SideEffects = v
	case FieldContraindications:
		d.Contraindications = v
	case FieldDosage:
		d.Dosage = v
	case FieldManufacturer:
		d.Manufacturer = v
	case FieldAvailability:
		d.Availability = v
	}
}

// Set assigns a searchable field by name. It reports false for names that
// are not part of the schema.
func (d *Document) Set(name, value string) bool {
	f, ok := ParseField(name)
	if !ok {
		return false
	}
	d.set(f, value)
	return true
}

// Finalize trims every text field, drops empty Extra entries and rebuilds
// Content from the searchable fields.
func (d *Document) Finalize() {
	d.ID = strings.TrimSpace(d.ID)
	parts := make([]string, 0, len(SearchableFields))
	for _, f := range SearchableFields {
		v := strings.TrimSpace(d.Value(f))
		d.set(f, v)
		if v != "" {
			parts = append(parts, v)
		}
	}
	d.Content = strings.Join(parts, " ")

	if len(d.Extra) == 0 {
		d.Extra = nil
		return
	}
	extra := make(map[string]string, len(d.Extra))
	for k, v := range d.Extra {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k != "" && v != "" {
			extra[k] = v
		}
	}
	if len(extra) == 0 {
		extra = nil
	}
	d.Extra = extra
}

// Equal reports whether two documents carry the same data.
func (d *Document) Equal(o *Document) bool {
	if d.ID != o.ID || d.Price != o.Price || d.Content != o.Content {
		return false
	}
	for _, f := range SearchableFields {
		if d.Value(f) != o.Value(f) {
			return false
		}
	}
	return maps.Equal(d.Extra, o.Extra)
}

// Clone returns a copy that shares no mutable state with d.
func (d *Document) Clone() Document {
	c := *d
	c.Extra = maps.Clone(d.Extra)
	return c
}
