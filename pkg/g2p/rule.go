package g2p

import (
	"regexp"
	"strconv"
	"unicode"

	"github.com/dlclark/regexp2"
)

// puaBase is the first code point of the Supplementary Private Use
// Area-A. Rule outputs protected against feeding are spliced in as runes
// from this block, one code point per rule, and resolved back after the
// rule loop.
const puaBase = 0xF0000

// Rule is one compiled context-sensitive rewrite.
type Rule struct {
	In             string
	Out            string
	ContextBefore  string
	ContextAfter   string
	PreventFeeding bool
	Comment        string

	matcher *regexp2.Regexp
	// emission is the output with index notation stripped, lowercased for
	// case-insensitive mappings, followed by the mapping's out_delimiter.
	emission []rune
	// resolved is the emission each intermediate rune stands for; nil when
	// feeding is not prevented for this rule.
	resolved []rune
	// intermediate is the private-use stand-in spliced in instead of the
	// emission while later rules run.
	intermediate []rune

	sourceIndex int
	matchLen    int
}

// MatchLen is the effective match length used by apply-longest-first
// ordering: the rune length of the input with abbreviations expanded to
// their longest alternative and index notation stripped.
func (r *Rule) MatchLen() int { return r.matchLen }

var (
	unicodeEscapePattern = regexp.MustCompile(`\\(u[0-9A-Fa-f]{4}|U[0-9A-Fa-f]{6})`)
	indexNotation        = regexp.MustCompile(`\{\d+\}`)
)

// unicodeEscape decodes \uXXXX and \UXXXXXX escapes into their code
// points.
func unicodeEscape(s string) string {
	return unicodeEscapePattern.ReplaceAllStringFunc(s, func(esc string) string {
		cp, err := strconv.ParseInt(esc[2:], 16, 32)
		if err != nil {
			return esc
		}
		return string(rune(cp))
	})
}

// stripIndexNotation removes explicit output indices such as {1} from a
// rule field. The notation marks correspondences in hand-written
// mappings; it is never part of the matched text.
func stripIndexNotation(s string) string {
	return indexNotation.ReplaceAllString(s, "")
}

// lowerRunes lowercases rune by rune, which never changes the rune count
// and so keeps alignment positions stable.
func lowerRunes(rs []rune) []rune {
	lowered := make([]rune, len(rs))
	for i, r := range rs {
		lowered[i] = unicode.ToLower(r)
	}
	return lowered
}

func lowerString(s string) string {
	return string(lowerRunes([]rune(s)))
}

// compileRule turns one RuleSpec into a Rule under the given mapping
// configuration. index is the rule's position in the final application
// order and doubles as its private-use offset.
func compileRule(spec RuleSpec, cfg *MappingConfig, abbs Abbreviations, index int) (*Rule, error) {
	fail := func(msg string, err error) error {
		return &CompileError{InLang: cfg.InLang, OutLang: cfg.OutLang, RuleIndex: index, Message: msg, Err: err}
	}

	in := unicodeEscape(spec.In)
	out := unicodeEscape(spec.Out)
	before := unicodeEscape(spec.ContextBefore)
	after := unicodeEscape(spec.ContextAfter)

	if cfg.EscapeSpecial {
		in = regexp.QuoteMeta(in)
		before = regexp.QuoteMeta(before)
		after = regexp.QuoteMeta(after)
	}

	var err error
	if in, err = abbs.Expand(in); err != nil {
		return nil, fail("expanding abbreviations in rule input", err)
	}
	if before, err = abbs.Expand(before); err != nil {
		return nil, fail("expanding abbreviations in context_before", err)
	}
	if after, err = abbs.Expand(after); err != nil {
		return nil, fail("expanding abbreviations in context_after", err)
	}
	if out, err = abbs.Expand(out); err != nil {
		return nil, fail("expanding abbreviations in rule output", err)
	}

	matchSource := stripIndexNotation(in)
	if matchSource == "" {
		return nil, fail("rule input is empty", nil)
	}

	pattern := matchSource
	if before != "" {
		pattern = "(?<=" + before + ")" + pattern
	}
	if after != "" {
		pattern += "(?=" + after + ")"
	}
	opts := regexp2.None
	if !cfg.IsCaseSensitive() {
		opts |= regexp2.IgnoreCase
	}
	matcher, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return nil, fail("malformed rule pattern "+strconv.Quote(pattern), err)
	}

	emission := []rune(stripIndexNotation(out))
	if !cfg.IsCaseSensitive() {
		emission = lowerRunes(emission)
	}
	emission = append(emission, []rune(cfg.OutDelimiter)...)

	longest, err := abbs.ExpandLongest(stripIndexNotation(spec.In))
	if err != nil {
		return nil, fail("expanding abbreviations in rule input", err)
	}

	rule := &Rule{
		In:             spec.In,
		Out:            spec.Out,
		ContextBefore:  spec.ContextBefore,
		ContextAfter:   spec.ContextAfter,
		PreventFeeding: spec.PreventFeeding || cfg.PreventFeeding,
		Comment:        spec.Comment,
		matcher:        matcher,
		emission:       emission,
		sourceIndex:    index,
		matchLen:       len([]rune(longest)),
	}
	if rule.PreventFeeding {
		rule.resolved = emission
		rule.intermediate = make([]rune, len(emission))
		for i := range rule.intermediate {
			rule.intermediate[i] = rune(puaBase + index)
		}
	}
	return rule, nil
}

// replacement returns the runes spliced into the working string for a
// match of this rule: the private-use stand-in when feeding is
// prevented, the emission otherwise.
func (r *Rule) replacement() []rune {
	if r.intermediate != nil {
		return r.intermediate
	}
	return r.emission
}

// changesText reports whether a match of this rule is worth recording in
// a debug trace. Pure identity rules with no context are noise.
func (r *Rule) changesText() bool {
	return r.In != r.Out || r.ContextBefore != "" || r.ContextAfter != ""
}

// sortLongestFirst stably orders rules by descending effective match
// length. Rules of equal length keep their source order.
func sortLongestFirst(rules []RuleSpec, lengths []int) {
	type keyed struct {
		spec RuleSpec
		len  int
	}
	ks := make([]keyed, len(rules))
	for i, r := range rules {
		ks[i] = keyed{r, lengths[i]}
	}
	// insertion sort keeps the tie-break stable without an extra index
	for i := 1; i < len(ks); i++ {
		for j := i; j > 0 && ks[j].len > ks[j-1].len; j-- {
			ks[j], ks[j-1] = ks[j-1], ks[j]
		}
	}
	for i, k := range ks {
		rules[i] = k.spec
	}
}
