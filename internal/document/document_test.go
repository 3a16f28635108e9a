package document

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/medir/amharic-medsearch/pkg/errors"
)

func paracetamol() Document {
	return Document{
		ID:                "doc-2",
		Title:             " ፓራሲታሞል ",
		GenericName:       "Paracetamol",
		Category:          "አናልጀዝክ",
		Symptom:           "ህመም",
		Usage:             "ከመብላት በኋላ",
		SideEffects:       "ራስ ምታት",
		Contraindications: "የደም ግፊት ችግር",
		Dosage:            "5ml",
		Manufacturer:      "Julphar",
		Availability:      "ተገኝቷል",
		Price:             160.85,
	}
}

func TestFinalizeBuildsContent(t *testing.T) {
	doc := paracetamol()
	doc.Usage = ""
	doc.Content = "caller supplied"
	doc.Extra = map[string]string{"note": " otc ", "": "x", "empty": " "}
	doc.Finalize()

	assert.Equal(t, "ፓራሲታሞል", doc.Title)
	assert.Equal(t,
		"ፓራሲታሞል Paracetamol አናልጀዝክ ህመም ራስ ምታት የደም ግፊት ችግር 5ml Julphar ተገኝቷል",
		doc.Content)
	assert.Equal(t, map[string]string{"note": "otc"}, doc.Extra)

	again := doc
	again.Finalize()
	assert.True(t, doc.Equal(&again))
}

func TestSetAndParseField(t *testing.T) {
	var doc Document
	assert.True(t, doc.Set("Side_Effects", "ተኩስ"))
	assert.Equal(t, "ተኩስ", doc.SideEffects)
	assert.False(t, doc.Set("price", "1"))

	f, ok := ParseField("generic_name")
	assert.True(t, ok)
	assert.Equal(t, FieldGenericName, f)
}

func TestStoreAddAssignsID(t *testing.T) {
	s := NewStore()
	doc := paracetamol()
	doc.ID = ""

	id, added, err := s.Add(doc)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Len(t, id, 36)

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "ፓራሲታሞል", got.Title)
	assert.NotEmpty(t, got.Content)
}

func TestStoreDuplicatePolicy(t *testing.T) {
	s := NewStore()
	_, _, err := s.Add(paracetamol())
	require.NoError(t, err)

	id, added, err := s.Add(paracetamol())
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, "doc-2", id)
	assert.Equal(t, 1, s.Len())

	changed := paracetamol()
	changed.Price = 1
	_, _, err = s.Add(changed)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrDuplicateID))
	var dupErr *apperrors.DuplicateIDError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "doc-2", dupErr.ID)
}

func TestStoreGetNotFound(t *testing.T) {
	_, err := NewStore().Get("missing")
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
}

func TestStoreAllKeepsInsertionOrderAndCopies(t *testing.T) {
	s := NewStore()
	for _, id := range []string{"c", "a", "b"} {
		doc := paracetamol()
		doc.ID = id
		doc.Extra = map[string]string{"k": "v"}
		_, _, err := s.Add(doc)
		require.NoError(t, err)
	}
	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)
	assert.Equal(t, "a", all[1].ID)
	assert.Equal(t, "b", all[2].ID)

	all[0].Extra["k"] = "mutated"
	got, err := s.Get("c")
	require.NoError(t, err)
	assert.Equal(t, "v", got.Extra["k"])

	s.Reset()
	assert.Zero(t, s.Len())
}

func TestStoreConcurrentAdd(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Go(func() {
			doc := paracetamol()
			doc.ID = fmt.Sprintf("doc-%d", i)
			_, _, err := s.Add(doc)
			assert.NoError(t, err)
		})
	}
	wg.Wait()
	assert.Equal(t, 50, s.Len())
}

func TestStatistics(t *testing.T) {
	a := paracetamol()
	b := paracetamol()
	b.ID = "doc-3"
	b.Category = "አንቲባዮቲክ"
	b.Availability = "አልተገኘም"
	b.Manufacturer = ""
	b.Price = 94.31

	st := Statistics([]Document{a, b})
	assert.Equal(t, 2, st.TotalDocuments)
	assert.Equal(t, map[string]int{"አናልጀዝክ": 1, "አንቲባዮቲክ": 1}, st.CountPerCategory)
	assert.Equal(t, map[string]int{"Julphar": 1, "Unknown": 1}, st.CountPerManufacturer)
	assert.Equal(t, 1, st.AvailableCount)
	assert.InDelta(t, 127.58, st.AveragePrice, 1e-9)
	assert.Equal(t, 94.31, st.MinPrice)
	assert.Equal(t, 160.85, st.MaxPrice)

	empty := Statistics(nil)
	assert.Zero(t, empty.TotalDocuments)
	assert.Zero(t, empty.AveragePrice)
	assert.NotNil(t, empty.CountPerCategory)
}

func TestValidate(t *testing.T) {
	doc := paracetamol()
	doc.Finalize()
	require.NoError(t, Validate(&doc))

	var empty Document
	empty.Finalize()
	err := Validate(&empty)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	doc.Price = -1
	err = Validate(&doc)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "price")
	assert.Contains(t, err.Error(), `document "doc-2"`)
}
