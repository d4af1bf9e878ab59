package g2p

import (
	"fmt"
)

// Mapping is an ordered collection of compiled rules (or a lexicon, or
// the unidecode transliterator) forming one edge of the network.
// Mappings are immutable once built.
type Mapping struct {
	cfg *MappingConfig

	specs []RuleSpec // rules as loaded, after reversal, before sorting
	rules []*Rule
	abbs  Abbreviations

	lex        *lexicon // set for lexicon mappings
	alignLines []string // the lexicon's source lines, kept for serialization

	caseEquiv    map[string]string // lower -> upper
	revCaseEquiv map[string]string // upper -> lower
}

// NewMapping loads and compiles a mapping from its configuration. Rules,
// abbreviations and alignments are read from their configured paths
// unless supplied inline.
func NewMapping(cfg *MappingConfig) (*Mapping, error) {
	cfg.applyDefaults()
	if err := cfg.validate(""); err != nil {
		return nil, err
	}

	m := &Mapping{cfg: cfg, abbs: cfg.Abbreviations}
	if m.abbs == nil {
		m.abbs = make(Abbreviations)
	}
	if cfg.AbbreviationsPath != "" {
		loaded, err := LoadAbbreviations(cfg.AbbreviationsPath)
		if err != nil {
			return nil, err
		}
		for name, alts := range loaded {
			m.abbs[name] = alts
		}
	}

	switch cfg.Type {
	case TypeLexicon:
		lines := cfg.Alignments
		if cfg.AlignmentsPath != "" {
			var err error
			lines, err = loadAlignmentLines(cfg.AlignmentsPath)
			if err != nil {
				return nil, err
			}
		}
		lex, err := newLexicon(lines, cfg.AlignmentsPath)
		if err != nil {
			return nil, err
		}
		m.lex = lex
		m.alignLines = lines
		return m, nil
	case TypeUnidecode:
		return m, nil
	}

	specs := cfg.Rules
	if cfg.RulesPath != "" {
		loaded, err := LoadRules(cfg.RulesPath)
		if err != nil {
			return nil, err
		}
		specs = append(append([]RuleSpec{}, specs...), loaded...)
	}
	if err := m.compileRules(specs); err != nil {
		return nil, err
	}
	return m, nil
}

// compileRules normalizes, reverses, orders and compiles the rule specs
// for a rule-type mapping.
func (m *Mapping) compileRules(specs []RuleSpec) error {
	cfg := m.cfg
	prepared := make([]RuleSpec, 0, len(specs))
	for _, spec := range specs {
		if cfg.NormForm != NormNone {
			spec.In = normalizeString(spec.In, cfg.NormForm)
			spec.Out = normalizeString(spec.Out, cfg.NormForm)
			spec.ContextBefore = normalizeString(spec.ContextBefore, cfg.NormForm)
			spec.ContextAfter = normalizeString(spec.ContextAfter, cfg.NormForm)
		}
		if cfg.Reverse {
			spec.In, spec.Out = spec.Out, spec.In
			spec.ContextBefore = ""
			spec.ContextAfter = ""
			if spec.In == "" {
				// a deletion rule has nothing to match once reversed
				continue
			}
		}
		prepared = append(prepared, spec)
	}
	m.specs = prepared

	ordered := append([]RuleSpec{}, prepared...)
	if cfg.RuleOrdering == ApplyLongestFirst {
		lengths := make([]int, len(ordered))
		for i, spec := range ordered {
			longest, err := m.abbs.ExpandLongest(stripIndexNotation(spec.In))
			if err != nil {
				return &CompileError{InLang: cfg.InLang, OutLang: cfg.OutLang, RuleIndex: i, Message: "expanding abbreviations in rule input", Err: err}
			}
			lengths[i] = len([]rune(longest))
		}
		sortLongestFirst(ordered, lengths)
	}

	m.rules = make([]*Rule, 0, len(ordered))
	for i, spec := range ordered {
		rule, err := compileRule(spec, cfg, m.abbs, i)
		if err != nil {
			return err
		}
		m.rules = append(m.rules, rule)
	}

	m.caseEquiv = cfg.CaseEquivalencies
	if len(m.caseEquiv) > 0 {
		m.revCaseEquiv = make(map[string]string, len(m.caseEquiv))
		for lower, upper := range m.caseEquiv {
			m.revCaseEquiv[upper] = lower
		}
	}
	return nil
}

// Config returns the mapping's configuration. Callers must not modify it.
func (m *Mapping) Config() *MappingConfig { return m.cfg }

func (m *Mapping) InLang() string  { return m.cfg.InLang }
func (m *Mapping) OutLang() string { return m.cfg.OutLang }

// DisplayName returns the configured display name, or a generated
// "in to out" label.
func (m *Mapping) DisplayName() string {
	if m.cfg.DisplayName != "" {
		return m.cfg.DisplayName
	}
	return fmt.Sprintf("%s to %s", m.cfg.InLang, m.cfg.OutLang)
}

// Type returns the mapping type.
func (m *Mapping) Type() MappingType { return m.cfg.Type }

// Rules returns the compiled rules in application order.
func (m *Mapping) Rules() []*Rule { return m.rules }

// RuleSpecs returns the rules as loaded, after any reversal. Used when
// serializing a mapping into the compiled index.
func (m *Mapping) RuleSpecs() []RuleSpec { return m.specs }

// AlignmentLines returns the source lines of a lexicon mapping, or nil
// for other types.
func (m *Mapping) AlignmentLines() []string { return m.alignLines }

// Abbreviations returns the mapping's abbreviation table.
func (m *Mapping) Abbreviations() Abbreviations { return m.abbs }

// inputInventory returns the distinct literal inputs the mapping can
// consume, for tokenizer construction. Index notation is stripped, each
// abbreviation is replaced by its longest alternative only, and top-level
// alternations are split.
func (m *Mapping) inputInventory() []string {
	var inventory []string
	seen := make(map[string]struct{})
	add := func(s string) {
		if s == "" {
			return
		}
		if !m.cfg.IsCaseSensitive() {
			s = lowerString(s)
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		inventory = append(inventory, s)
	}
	if m.lex != nil {
		for _, entry := range m.lex.entries {
			add(entry.headword)
		}
		return inventory
	}
	for _, spec := range m.specs {
		in := stripIndexNotation(unicodeEscape(spec.In))
		if expanded, err := m.abbs.ExpandLongest(in); err == nil {
			in = expanded
		}
		for _, part := range splitAlternation(in) {
			add(part)
		}
	}
	return inventory
}

// splitAlternation splits a rule input on unescaped | so that each
// alternative counts as its own inventory entry.
func splitAlternation(s string) []string {
	var parts []string
	var cur []rune
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			cur = append(cur, r)
			escaped = false
		case r == '\\':
			cur = append(cur, r)
			escaped = true
		case r == '|':
			parts = append(parts, string(cur))
			cur = cur[:0]
		default:
			cur = append(cur, r)
		}
	}
	return append(parts, string(cur))
}

// Apply converts input through this mapping and returns the output with
// its alignment. Conversion never fails: text no rule matches passes
// through unchanged.
func (m *Mapping) Apply(input string) (string, Alignment) {
	t := NewTransducer(m).Apply(input)
	return t.Output, t.Edges
}
