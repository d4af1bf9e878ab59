package g2p

import (
	"strings"
	"unicode"
)

// Transducer applies one Mapping to input strings. It is a cheap view
// over the mapping and may be created per call.
type Transducer struct {
	mapping *Mapping
}

// NewTransducer returns a transducer over the given mapping.
func NewTransducer(m *Mapping) *Transducer {
	return &Transducer{mapping: m}
}

// Mapping returns the mapping this transducer applies.
func (t *Transducer) Mapping() *Mapping { return t.mapping }

func (t *Transducer) InLang() string  { return t.mapping.InLang() }
func (t *Transducer) OutLang() string { return t.mapping.OutLang() }

// RuleTrace records one rule match for the debug view.
type RuleTrace struct {
	Rule   *Rule
	Start  int
	End    int
	Before string
	After  string
}

// Transduction is the result of applying a transducer: the output string
// and the alignment from input rune positions to output rune positions.
type Transduction struct {
	Input  string
	Output string
	Edges  Alignment
	Traces []RuleTrace
}

// Apply converts input through the transducer's mapping. Conversion
// itself never fails; text no rule matches passes through unchanged.
func (t *Transducer) Apply(input string) *Transduction {
	switch t.mapping.Type() {
	case TypeUnidecode:
		return t.applyUnidecode(input)
	case TypeLexicon:
		return t.applyLexicon(input)
	}
	return t.applyRules(input)
}

// applyRules is the rule-engine hot loop.
func (t *Transducer) applyRules(input string) *Transduction {
	cfg := t.mapping.Config()
	saved := unicodeEscape(input)
	working := saved
	if !cfg.IsCaseSensitive() {
		working = lowerString(working)
	}

	var normIdx Alignment
	if cfg.NormForm != NormNone {
		working, normIdx = normalizeWithIndices(working, cfg.NormForm)
	}

	w := []rune(working)
	edges := []Arc(Identity(len(w)))
	var traces []RuleTrace
	usedIntermediate := false

	for _, rule := range t.mapping.Rules() {
		pos := 0
		for pos <= len(w) {
			m, err := rule.matcher.FindRunesMatchStartingAt(w, pos)
			if err != nil || m == nil {
				break
			}
			s := m.Index
			e := s + m.Length
			repl := rule.replacement()
			if rule.intermediate != nil {
				usedIntermediate = true
			}

			before := string(w)
			edges = spliceEdges(edges, s, e, len(repl))
			next := make([]rune, 0, len(w)+len(repl)-(e-s))
			next = append(next, w[:s]...)
			next = append(next, repl...)
			next = append(next, w[e:]...)
			w = next

			if rule.changesText() {
				traces = append(traces, RuleTrace{Rule: rule, Start: s, End: e, Before: before, After: string(w)})
			}
			pos = s + len(repl)
			if e == s && len(repl) == 0 {
				// zero-width match replaced by nothing; step over it
				pos = s + 1
			}
		}
	}

	if usedIntermediate {
		w = t.resolveIntermediates(w)
	}

	if cfg.OutDelimiter != "" {
		delim := []rune(cfg.OutDelimiter)[0]
		if len(w) > 0 && w[len(w)-1] == delim {
			w = w[:len(w)-1]
			for i, arc := range edges {
				if arc.Out >= len(w) {
					if len(w) == 0 {
						edges[i].Out = Deleted
					} else {
						edges[i].Out = len(w) - 1
					}
				}
			}
		}
	}

	result := Alignment(edges).Normalize()
	if normIdx != nil {
		result = normIdx.Compose(result).Normalize()
	}
	tr := &Transduction{Input: saved, Output: string(w), Edges: result, Traces: traces}
	if cfg.PreserveCase {
		tr.Output = t.preserveCase(tr)
	}
	return tr
}

// spliceEdges rewrites the alignment for the replacement of output span
// [s, e) by a string of length l: arcs into the span fan out over the
// whole replacement, arcs past it shift, and a deletion leaves a Deleted
// marker to be resolved later.
func spliceEdges(edges []Arc, s, e, l int) []Arc {
	delta := l - (e - s)
	var inputs []int
	seen := make(map[int]struct{})
	next := edges[:0:0]
	for _, arc := range edges {
		switch {
		case arc.Out == Deleted:
			next = append(next, arc)
		case arc.Out >= s && arc.Out < e:
			if _, ok := seen[arc.In]; !ok {
				seen[arc.In] = struct{}{}
				inputs = append(inputs, arc.In)
			}
		case arc.Out >= e:
			next = append(next, Arc{arc.In, arc.Out + delta})
		default:
			next = append(next, arc)
		}
	}
	for _, in := range inputs {
		if l == 0 {
			next = append(next, Arc{in, Deleted})
			continue
		}
		for k := 0; k < l; k++ {
			next = append(next, Arc{in, s + k})
		}
	}
	return next
}

// resolveIntermediates maps private-use stand-in runes back to the rule
// emissions they protect. Each stand-in rune advances a per-rule cursor
// through the emission, wrapping between adjacent matches.
func (t *Transducer) resolveIntermediates(w []rune) []rune {
	rules := t.mapping.Rules()
	cursors := make(map[int]int)
	out := make([]rune, len(w))
	for i, r := range w {
		if r < puaBase || int(r-puaBase) >= len(rules) {
			out[i] = r
			continue
		}
		idx := int(r - puaBase)
		resolved := rules[idx].resolved
		if len(resolved) == 0 {
			out[i] = r
			continue
		}
		out[i] = resolved[cursors[idx]%len(resolved)]
		cursors[idx]++
	}
	return out
}

// preserveCase reapplies the input's case pattern to the output, block by
// block over the substring alignments. Within a block each output rune
// takes the case of the input rune at the same position, and extra output
// runes take the case of the block's last input rune. Case equivalencies
// map substrings that Unicode casing cannot relate.
func (t *Transducer) preserveCase(tr *Transduction) string {
	equiv := t.mapping.caseEquiv
	revEquiv := t.mapping.revCaseEquiv

	var b strings.Builder
	for _, sub := range SubstringAlignments(tr.Input, tr.Output, tr.Edges) {
		anyInUpper := containsCase(sub.In, unicode.IsUpper)
		anyInLower := containsCase(sub.In, unicode.IsLower)
		anyOutUpper := containsCase(sub.Out, unicode.IsUpper)
		anyOutLower := containsCase(sub.Out, unicode.IsLower)

		_, outIsLowerEquiv := equiv[sub.Out]
		if !outIsLowerEquiv && !anyOutUpper && !anyOutLower {
			b.WriteString(sub.Out)
			continue
		}
		_, inIsLowerEquiv := equiv[sub.In]
		_, inIsUpperEquiv := revEquiv[sub.In]
		if lower, ok := revEquiv[sub.Out]; ok && (anyInLower || inIsLowerEquiv) {
			b.WriteString(lower)
			continue
		}
		if upper, ok := equiv[sub.Out]; ok && (anyInUpper || inIsUpperEquiv) {
			b.WriteString(upper)
			continue
		}
		inRunes := []rune(sub.In)
		for k, r := range []rune(sub.Out) {
			c := inRunes[min(k, len(inRunes)-1)]
			switch {
			case unicode.IsUpper(c):
				r = unicode.ToUpper(r)
			case unicode.IsLower(c):
				r = unicode.ToLower(r)
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

func containsCase(s string, is func(rune) bool) bool {
	for _, r := range s {
		if is(r) {
			return true
		}
	}
	return false
}
