package g2p

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/unicode/norm"
)

// unidecodeSpecials are the non-letter runes a unidecode mapping keeps,
// since several orthographies treat them as part of words.
const unidecodeSpecials = "@?',:"

// applyUnidecode transliterates rune by rune to ASCII, keeping letters,
// a few specials and whitespace-derived output.
func (t *Transducer) applyUnidecode(input string) *Transduction {
	cfg := t.mapping.Config()
	saved := unicodeEscape(input)
	working := saved

	var normIdx Alignment
	if cfg.NormForm != NormNone {
		working, normIdx = normalizeWithIndices(working, cfg.NormForm)
	}

	runes := []rune(working)
	converted := make([]string, len(runes))
	for i, r := range runes {
		decoded := unidecode.Unidecode(norm.NFKC.String(string(r)))
		var keep []rune
		for _, c := range decoded {
			if unicode.IsLetter(c) || strings.ContainsRune(unidecodeSpecials, c) || unicode.IsSpace(r) {
				keep = append(keep, c)
			}
		}
		converted[i] = string(keep)
	}

	output := strings.Join(converted, "")
	var edges Alignment
	if output != "" {
		outPos := 0
		for i, chunk := range converted {
			if chunk == "" {
				// deleted runes attach to the previous surviving output
				edges = append(edges, Arc{i, max(0, outPos-1)})
				continue
			}
			for range chunk {
				edges = append(edges, Arc{i, outPos})
				outPos++
			}
		}
	}

	if normIdx != nil {
		edges = normIdx.Compose(edges).Normalize()
	}
	return &Transduction{Input: saved, Output: output, Edges: edges}
}
