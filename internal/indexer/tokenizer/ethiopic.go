package tokenizer

// Ethiopic syllables are laid out in blocks of eight: consonant base plus
// vowel order 0..7 (ä u i a e ə o, then the labialised wa form).
const (
	ethiopicStart rune = 0x1200
	ethiopicEnd   rune = 0x135A

	orderA     = 3
	orderSixth = 5
	orderO     = 6

	genitivePrefix = 'የ'
	pluralSuffix   = 'ች'
	pluralGlide    = 'ዎ'
)

// Consonant series that are pronounced identically in Amharic and spelled
// interchangeably (ሀ/ሐ/ኀ, ሰ/ሠ, አ/ዐ, ጸ/ፀ).
var homophoneSeries = map[rune]rune{
	0x1210: 0x1200, // ሐ -> ሀ
	0x1280: 0x1200, // ኀ -> ሀ
	0x1220: 0x1230, // ሠ -> ሰ
	0x12D0: 0x12A0, // ዐ -> አ
	0x1340: 0x1338, // ፀ -> ጸ
}

// For the laryngeals the first and fourth orders are also interchangeable
// (ሀ/ሃ, አ/ኣ).
var laryngealBases = map[rune]bool{
	0x1200: true,
	0x12A0: true,
}

// Blocks holding labialised variants (ቈ ቊ ...) do not follow the eight
// vowel-order layout.
var labialisedBlocks = map[rune]bool{
	0x1248: true, 0x1258: true, 0x1288: true,
	0x12B0: true, 0x12C0: true, 0x1310: true,
}

var amharicStopWords = []string{
	"እና", "ነው", "ናቸው", "ነበር", "ነበሩ", "ላይ", "ውስጥ", "ግን", "ወይም",
	"እንደ", "ይህ", "ያ", "ይህን", "እሱ", "እሷ", "እነሱ", "ስለ", "ወደ",
	"ከዚያ", "በጣም", "ሁሉ", "ሁሉም", "እንዲሁም", "ደግሞ", "ብቻ", "ነገር",
	"እዚህ", "እዚያ", "ሆኖ", "ሲሆን", "ጋር",
}

// EthiopicStrategy folds spelling variants, drops Amharic stop-words and
// strips the genitive prefix and plural suffix.
type EthiopicStrategy struct {
	stopWords map[string]struct{}
}

func NewEthiopicStrategy() *EthiopicStrategy {
	stop := make(map[string]struct{}, len(amharicStopWords))
	for _, w := range amharicStopWords {
		stop[string(foldRunes([]rune(w)))] = struct{}{}
	}
	return &EthiopicStrategy{stopWords: stop}
}

func (s *EthiopicStrategy) Script() Script { return ScriptEthiopic }

func (s *EthiopicStrategy) Normalize(word string) (string, bool) {
	runes := foldRunes([]rune(word))
	if s.isStop(runes) {
		return "", false
	}
	runes = stripAffixes(runes)
	if len(runes) < minWordRunes || s.isStop(runes) {
		return "", false
	}
	return string(runes), true
}

func (s *EthiopicStrategy) isStop(runes []rune) bool {
	_, ok := s.stopWords[string(runes)]
	return ok
}

func foldRunes(runes []rune) []rune {
	for i, r := range runes {
		runes[i] = foldSyllable(r)
	}
	return runes
}

func foldSyllable(r rune) rune {
	base, order, ok := splitSyllable(r)
	if !ok {
		return r
	}
	if canonical, ok := homophoneSeries[base]; ok {
		base = canonical
	}
	if laryngealBases[base] && order == orderA {
		order = 0
	}
	return base + order
}

// splitSyllable returns the block base and vowel order of a regular
// Ethiopic syllable.
func splitSyllable(r rune) (base rune, order rune, ok bool) {
	if r < ethiopicStart || r > ethiopicEnd {
		return 0, 0, false
	}
	offset := r - ethiopicStart
	base = r - offset%8
	if labialisedBlocks[base] {
		return 0, 0, false
	}
	return base, offset % 8, true
}

// stripAffixes removes የ- and the plural -ች (rewriting a fused -o syllable
// to its sixth order, ቶች -> ት, and dropping a -ዎች glide). Each step only
// applies when at least two syllables remain.
func stripAffixes(runes []rune) []rune {
	if len(runes) > minWordRunes && runes[0] == genitivePrefix {
		runes = runes[1:]
	}
	n := len(runes)
	if n <= minWordRunes || runes[n-1] != pluralSuffix {
		return runes
	}
	stem := runes[:n-1]
	last := stem[len(stem)-1]
	if last == pluralGlide {
		if len(stem)-1 >= minWordRunes {
			return stem[:len(stem)-1]
		}
		return stem
	}
	if base, order, ok := splitSyllable(last); ok && order == orderO {
		stem[len(stem)-1] = base + orderSixth
	}
	return stem
}
