// Package tokenizer turns Amharic (Ge'ez script) and Latin-script text into
// index terms. Text is NFC-normalised and case-folded, split on anything that
// is not a letter, number or combining mark, and each word is handed to the
// Strategy registered for its script. The same Tokenizer must be used for
// documents and queries so that both sides produce comparable terms.
package tokenizer

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// minWordRunes drops single-character words ("C", "2", stray syllables).
const minWordRunes = 2

// Script identifies the writing system a word is written in.
type Script int

const (
	// ScriptLatin also covers words with no letters at all (plain numbers).
	ScriptLatin Script = iota
	ScriptEthiopic
)

func (s Script) String() string {
	switch s {
	case ScriptEthiopic:
		return "ethiopic"
	default:
		return "latin"
	}
}

// Token represents a single normalised term and its position among the
// terms kept from the original text.
type Token struct {
	Term     string
	Position int
	Script   Script
}

// Strategy normalises one already case-folded word of a given script. It
// reports false when the word should be dropped (stop-word, too short).
type Strategy interface {
	Script() Script
	Normalize(word string) (string, bool)
}

// Tokenizer holds the per-script strategies. It is safe for concurrent use.
type Tokenizer struct {
	mu         sync.RWMutex
	strategies map[Script]Strategy
}

// New returns a Tokenizer with the built-in Latin and Ethiopic strategies,
// overridden by any strategies passed in.
func New(strategies ...Strategy) *Tokenizer {
	t := &Tokenizer{strategies: make(map[Script]Strategy)}
	t.Register(NewLatinStrategy())
	t.Register(NewEthiopicStrategy())
	for _, s := range strategies {
		t.Register(s)
	}
	return t
}

// Register adds or replaces the strategy for s.Script().
func (t *Tokenizer) Register(s Strategy) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.strategies[s.Script()] = s
}

func (t *Tokenizer) strategy(script Script) Strategy {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s, ok := t.strategies[script]; ok {
		return s
	}
	return t.strategies[ScriptLatin]
}

// Tokenize breaks text into normalised Tokens. Empty or separator-only input
// yields an empty slice.
func (t *Tokenizer) Tokenize(text string) []Token {
	if strings.TrimSpace(text) == "" {
		return []Token{}
	}
	text = strings.ToValidUTF8(text, string(utf8.RuneError))
	text = norm.NFC.String(text)
	// Casers carry state and must not be shared between goroutines.
	text = cases.Fold().String(text)

	words := strings.FieldsFunc(text, isSeparator)
	tokens := make([]Token, 0, len(words))
	pos := 0
	for _, word := range words {
		if utf8.RuneCountInString(word) < minWordRunes {
			continue
		}
		script := DetectScript(word)
		term, ok := t.strategy(script).Normalize(word)
		if !ok || term == "" {
			continue
		}
		tokens = append(tokens, Token{
			Term:     term,
			Position: pos,
			Script:   script,
		})
		pos++
	}
	return tokens
}

// Terms returns just the term strings of Tokenize(text), in order.
func (t *Tokenizer) Terms(text string) []string {
	tokens := t.Tokenize(text)
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
	}
	return terms
}

// DetectScript classifies a word by its first letter.
func DetectScript(word string) Script {
	for _, r := range word {
		if !unicode.IsLetter(r) {
			continue
		}
		if unicode.Is(unicode.Ethiopic, r) {
			return ScriptEthiopic
		}
		return ScriptLatin
	}
	return ScriptLatin
}

// isSeparator treats Ethiopic wordspace and punctuation (፡ ። ፣ ፤ ...) like
// any other punctuation; U+FFFD from invalid input is a separator too.
func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsNumber(r) && !unicode.IsMark(r)
}

var defaultTokenizer = New()

// Default returns the process-wide Tokenizer.
func Default() *Tokenizer {
	return defaultTokenizer
}

// Tokenize uses the default Tokenizer.
func Tokenize(text string) []Token {
	return defaultTokenizer.Tokenize(text)
}

// Terms uses the default Tokenizer.
func Terms(text string) []string {
	return defaultTokenizer.Terms(text)
}
