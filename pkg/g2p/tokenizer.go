package g2p

import (
	"sort"
	"strings"
	"unicode"
)

// Token is a maximal run of word or non-word text. Concatenating the
// tokens of a tokenization reproduces the input exactly.
type Token struct {
	Text   string
	IsWord bool
}

// Tokenizer splits text into word and non-word runs. What counts as a
// word character is driven by the rule inputs of one or more mappings,
// so orthography-specific punctuation stays inside words.
type Tokenizer struct {
	// inventory units sorted longest first so multi-rune rule inputs win
	// over their prefixes
	inventory     []string
	inventorySet  map[string]struct{}
	caseSensitive bool
	wordChars     map[rune]struct{}
	lex           *lexicon
}

// NewTokenizer builds a tokenizer from the input inventories of the
// given mappings. With no mappings it falls back to Unicode letters,
// numbers and marks. A single lexicon mapping tokenizes by headword
// lookup instead.
func NewTokenizer(mappings ...*Mapping) *Tokenizer {
	t := &Tokenizer{
		inventorySet:  make(map[string]struct{}),
		caseSensitive: false,
		wordChars:     make(map[rune]struct{}),
	}
	if len(mappings) > 0 {
		t.caseSensitive = mappings[0].Config().IsCaseSensitive()
	}
	if len(mappings) == 1 && mappings[0].Type() == TypeLexicon {
		t.lex = mappings[0].lex
	}
	for _, m := range mappings {
		for _, unit := range m.inputInventory() {
			if _, ok := t.inventorySet[unit]; ok {
				continue
			}
			t.inventorySet[unit] = struct{}{}
			t.inventory = append(t.inventory, unit)
		}
		for _, r := range m.Config().TokenizerWordChars {
			t.wordChars[r] = struct{}{}
		}
	}
	sort.SliceStable(t.inventory, func(i, j int) bool {
		return len([]rune(t.inventory[i])) > len([]rune(t.inventory[j]))
	})
	return t
}

// isWordRune reports whether a single rune belongs to a word: part of
// some rule input, a configured word character, or a Unicode letter,
// number or mark.
func (t *Tokenizer) isWordRune(r rune) bool {
	c := r
	if !t.caseSensitive {
		c = unicode.ToLower(r)
	}
	if _, ok := t.inventorySet[string(c)]; ok {
		return true
	}
	if _, ok := t.wordChars[c]; ok {
		return true
	}
	return unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r)
}

// unit is one matched piece of text before same-type merging.
type unit struct {
	text   string
	isWord bool
}

// scan cuts text into units: the longest inventory entry at each
// position, or a single rune.
func (t *Tokenizer) scan(text string) []unit {
	runes := []rune(text)
	var units []unit
	for pos := 0; pos < len(runes); {
		matched := false
		for _, entry := range t.inventory {
			er := []rune(entry)
			if len(er) <= 1 || pos+len(er) > len(runes) {
				continue
			}
			candidate := string(runes[pos : pos+len(er)])
			if !t.caseSensitive {
				candidate = lowerString(candidate)
			}
			if candidate == entry {
				units = append(units, unit{text: string(runes[pos : pos+len(er)]), isWord: true})
				pos += len(er)
				matched = true
				break
			}
		}
		if !matched {
			r := runes[pos]
			units = append(units, unit{text: string(r), isWord: t.isWordRune(r)})
			pos++
		}
	}
	return units
}

// mergeUnits folds adjacent units of the same type into single tokens.
func mergeUnits(units []unit) []Token {
	var tokens []Token
	for _, u := range units {
		if n := len(tokens); n > 0 && tokens[n-1].IsWord == u.isWord {
			tokens[n-1].Text += u.text
			continue
		}
		tokens = append(tokens, Token{Text: u.text, IsWord: u.isWord})
	}
	return tokens
}

// Tokenize splits text into word and non-word tokens.
func (t *Tokenizer) Tokenize(text string) []Token {
	if t.lex != nil {
		return t.tokenizeLexicon(text)
	}
	return mergeUnits(t.scan(text))
}

// tokenizeLexicon treats any lexicon headword as one token, even across
// characters the default tokenizer would split on. Remaining text falls
// back to the default behaviour.
func (t *Tokenizer) tokenizeLexicon(text string) []Token {
	var tokens []Token
	for _, blockText := range splitKeepingSeparators(text) {
		if blockText.isSpace {
			tokens = append(tokens, Token{Text: blockText.text, IsWord: false})
			continue
		}
		units := t.splitForLookup(mergeUnits(t.scan(blockText.text)))
		tokens = append(tokens, t.joinByHeadword(units)...)
	}
	// merge adjacent non-word tokens reintroduced by the block split
	var merged []Token
	for _, tok := range tokens {
		if n := len(merged); n > 0 && !merged[n-1].IsWord && !tok.IsWord {
			merged[n-1].Text += tok.Text
			continue
		}
		merged = append(merged, tok)
	}
	return merged
}

// splitForLookup breaks non-word tokens into single runes so headword
// matching can consume punctuation rune by rune.
func (t *Tokenizer) splitForLookup(tokens []Token) []Token {
	var out []Token
	for _, tok := range tokens {
		if tok.IsWord {
			out = append(out, tok)
			continue
		}
		for _, r := range tok.Text {
			out = append(out, Token{Text: string(r), IsWord: false})
		}
	}
	return out
}

// joinByHeadword greedily joins the longest run of leading units whose
// concatenation is a lexicon headword; units that start no headword pass
// through unchanged.
func (t *Tokenizer) joinByHeadword(units []Token) []Token {
	var out []Token
	for len(units) > 0 {
		if len(units) == 1 {
			out = append(out, units[0])
			break
		}
		joined := false
		for i := len(units); i > 0; i-- {
			var b strings.Builder
			for _, u := range units[:i] {
				b.WriteString(u.Text)
			}
			candidate := b.String()
			if t.lex.lookup(lowerString(candidate)) != nil {
				out = append(out, Token{Text: candidate, IsWord: true})
				units = units[i:]
				joined = true
				break
			}
		}
		if !joined {
			out = append(out, units[0])
			units = units[1:]
		}
	}
	return out
}

type textBlock struct {
	text    string
	isSpace bool
}

// splitKeepingSeparators cuts text into alternating non-space and space
// blocks, preserving every rune.
func splitKeepingSeparators(text string) []textBlock {
	var blocks []textBlock
	var cur []rune
	curSpace := false
	for _, r := range text {
		isSpace := unicode.IsSpace(r)
		if len(cur) > 0 && isSpace != curSpace {
			blocks = append(blocks, textBlock{text: string(cur), isSpace: curSpace})
			cur = cur[:0]
		}
		cur = append(cur, r)
		curSpace = isSpace
	}
	if len(cur) > 0 {
		blocks = append(blocks, textBlock{text: string(cur), isSpace: curSpace})
	}
	return blocks
}
