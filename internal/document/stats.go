package document

import "strings"

// AvailableLabel is the availability value of an in-stock medicine
// ("found"); the negative form is አልተገኘም.
const AvailableLabel = "ተገኝቷል"

const unknownLabel = "Unknown"

// Stats summarises a document collection for display.
type Stats struct {
	TotalDocuments       int            `json:"total_documents"`
	CountPerCategory     map[string]int `json:"count_per_category"`
	CountPerManufacturer map[string]int `json:"count_per_manufacturer"`
	CountPerAvailability map[string]int `json:"count_per_availability"`
	AveragePrice         float64        `json:"average_price"`
	MinPrice             float64        `json:"min_price"`
	MaxPrice             float64        `json:"max_price"`
	AvailableCount       int            `json:"available_count"`
}

// Statistics aggregates docs. Empty values are counted under "Unknown";
// price figures are zero for an empty collection.
func Statistics(docs []Document) Stats {
	st := Stats{
		TotalDocuments:       len(docs),
		CountPerCategory:     make(map[string]int),
		CountPerManufacturer: make(map[string]int),
		CountPerAvailability: make(map[string]int),
	}
	if len(docs) == 0 {
		return st
	}

	var total float64
	st.MinPrice, st.MaxPrice = docs[0].Price, docs[0].Price
	for i := range docs {
		d := &docs[i]
		st.CountPerCategory[labelOrUnknown(d.Category)]++
		st.CountPerManufacturer[labelOrUnknown(d.Manufacturer)]++
		st.CountPerAvailability[labelOrUnknown(d.Availability)]++
		if strings.TrimSpace(d.Availability) == AvailableLabel {
			st.AvailableCount++
		}
		total += d.Price
		st.MinPrice = min(st.MinPrice, d.Price)
		st.MaxPrice = max(st.MaxPrice, d.Price)
	}
	st.AveragePrice = total / float64(len(docs))
	return st
}

// CategoryDistribution counts documents per category.
func CategoryDistribution(docs []Document) map[string]int {
	out := make(map[string]int)
	for i := range docs {
		out[labelOrUnknown(docs[i].Category)]++
	}
	return out
}

func labelOrUnknown(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return unknownLabel
	}
	return v
}
