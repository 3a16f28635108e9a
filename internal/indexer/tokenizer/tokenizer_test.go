package tokenizer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeEmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\t\n", "።፣፤"} {
		toks := Tokenize(in)
		require.NotNil(t, toks, "input %q", in)
		assert.Empty(t, toks, "input %q", in)
	}
}

func TestTermsAmharic(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"plain words", "ራስ ምታት", []string{"ራስ", "ምታት"}},
		{"ethiopic punctuation", "ፓራሲታሞል።ህመም፣ትኩሳት፤ቁርጠት፡ተኩስ", []string{"ፓራሲታሞል", "ህመም", "ትኩሳት", "ቁርጠት", "ተኩስ"}},
		{"genitive prefix", "የደም ግፊት", []string{"ደም", "ግፊት"}},
		{"plural o-order", "ሴቶች", []string{"ሴት"}},
		{"plural glide", "ታካሚዎች", []string{"ታካሚ"}},
		{"prefix and plural", "የሀኪሞች", []string{"ሀኪም"}},
		{"homophone series", "ሐኪም", []string{"ሀኪም"}},
		{"stop words only", "እና ነው ወይም", []string{}},
		{"stop words dropped", "ህመም እና ትኩሳት", []string{"ህመም", "ትኩሳት"}},
		{"single syllable dropped", "ያ ሰ ደም", []string{"ደም"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Terms(tt.in))
		})
	}
}

func TestSpellingVariantsShareTerm(t *testing.T) {
	variants := []string{"መድሃኒት", "መድኃኒት", "መድሐኒት", "መድሓኒት", "መድሃኒቶች"}
	want := Terms(variants[0])
	require.Len(t, want, 1)
	for _, v := range variants[1:] {
		assert.Equal(t, want, Terms(v), "variant %q", v)
	}
}

func TestTermsLatin(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"case folded", "Paracetamol", []string{"paracetamol"}},
		{"single letter dropped", "Vit C", []string{"vit"}},
		{"stop words", "the tablets and the syrup", []string{"tablet", "syrup"}},
		{"dosage kept", "250mg", []string{"250mg"}},
		{"punctuation", "Addis-Pharma, Julphar.", []string{"addi", "pharma", "julphar"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Terms(tt.in))
		})
	}
}

func TestTokenizeMixedScripts(t *testing.T) {
	toks := Tokenize("ቪታሚን C Aspirin አስፒሪን")
	require.Len(t, toks, 3)

	assert.Equal(t, ScriptEthiopic, toks[0].Script)
	assert.Equal(t, ScriptLatin, toks[1].Script)
	assert.Equal(t, "aspirin", toks[1].Term)
	assert.Equal(t, ScriptEthiopic, toks[2].Script)
	for i, tok := range toks {
		assert.Equal(t, i, tok.Position)
	}
}

func TestTokenizeInvalidUTF8(t *testing.T) {
	assert.Equal(t, []string{"ህመም", "ትኩሳት"}, Terms("ህመም\xff\xfeትኩሳት"))
}

func TestDetectScript(t *testing.T) {
	assert.Equal(t, ScriptEthiopic, DetectScript("ህመም"))
	assert.Equal(t, ScriptLatin, DetectScript("aspirin"))
	assert.Equal(t, ScriptLatin, DetectScript("250"))
	assert.Equal(t, ScriptEthiopic, DetectScript("2ኛ"))
	assert.Equal(t, "ethiopic", ScriptEthiopic.String())
}

type upperStrategy struct{}

func (upperStrategy) Script() Script { return ScriptLatin }
func (upperStrategy) Normalize(word string) (string, bool) {
	return "x-" + word, true
}

func TestRegisterOverridesStrategy(t *testing.T) {
	tok := New(upperStrategy{})
	assert.Equal(t, []string{"x-the", "ህመም"}, tok.Terms("the ህመም"))
}

func TestTokenizeDeterministicAndConcurrent(t *testing.T) {
	text := "ፓራሲታሞል አናልጀዝክ ህመም ከመብላት በኋላ ራስ ምታት የደም ግፊት ችግር Paracetamol Julphar"
	want := Terms(text)

	var wg sync.WaitGroup
	results := make([][]string, 16)
	for i := range results {
		wg.Go(func() {
			results[i] = Terms(text)
		})
	}
	wg.Wait()
	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func BenchmarkTokenize(b *testing.B) {
	text := "ፓራሲታሞል Paracetamol አናልጀዝክ ህመም ከመብላት በኋላ ራስ ምታት የደም ግፊት ችግር 5ml Julphar ተገኝቷል"
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		_ = Tokenize(text)
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := "አሞክሲሲሊን Amoxicillin አንቲባዮቲክ ኢንፌክሽን በቀን 3 ጊዜ የልብ ችግኝ 250mg Addis Pharma"
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = Tokenize(text)
		}
	})
}
