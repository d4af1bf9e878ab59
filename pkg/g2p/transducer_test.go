package g2p

import (
	"reflect"
	"testing"
)

func mustMapping(t *testing.T, cfg *MappingConfig) *Mapping {
	t.Helper()
	m, err := NewMapping(cfg)
	if err != nil {
		t.Fatalf("NewMapping returned error: %v", err)
	}
	return m
}

func ruleMapping(t *testing.T, rules []RuleSpec) *Mapping {
	t.Helper()
	return mustMapping(t, &MappingConfig{InLang: "in", OutLang: "out", Rules: rules})
}

func TestApplySingleRule(t *testing.T) {
	m := ruleMapping(t, []RuleSpec{{In: "a", Out: "b"}})
	tr := NewTransducer(m).Apply("a")
	if tr.Output != "b" {
		t.Errorf("output = %q, want %q", tr.Output, "b")
	}
	if want := (Alignment{{0, 0}}); !reflect.DeepEqual(tr.Edges, want) {
		t.Errorf("edges = %v, want %v", tr.Edges, want)
	}
}

func TestApplyContext(t *testing.T) {
	m := ruleMapping(t, []RuleSpec{{In: "a", Out: "b", ContextBefore: "c", ContextAfter: "d"}})
	tests := []struct {
		input string
		want  string
	}{
		{"cad", "cbd"},
		{"xad", "xad"},
		{"cax", "cax"},
		{"cadcad", "cbdcbd"},
	}
	for _, tt := range tests {
		if got := NewTransducer(m).Apply(tt.input).Output; got != tt.want {
			t.Errorf("Apply(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestApplyOrderedFeeding(t *testing.T) {
	m := ruleMapping(t, []RuleSpec{
		{In: "a", Out: "b"},
		{In: "b", Out: "c"},
	})
	if got := NewTransducer(m).Apply("ab").Output; got != "cc" {
		t.Errorf("fed output = %q, want %q", got, "cc")
	}
}

func TestApplyPreventFeeding(t *testing.T) {
	m := ruleMapping(t, []RuleSpec{
		{In: "a", Out: "b", PreventFeeding: true},
		{In: "b", Out: "c"},
	})
	if got := NewTransducer(m).Apply("ab").Output; got != "bc" {
		t.Errorf("protected output = %q, want %q", got, "bc")
	}
}

func TestApplyPreventFeedingMappingLevel(t *testing.T) {
	m := mustMapping(t, &MappingConfig{
		InLang: "in", OutLang: "out",
		PreventFeeding: true,
		Rules: []RuleSpec{
			{In: "a", Out: "b"},
			{In: "b", Out: "c"},
		},
	})
	if got := NewTransducer(m).Apply("ab").Output; got != "bc" {
		t.Errorf("protected output = %q, want %q", got, "bc")
	}
}

func TestApplyDeletion(t *testing.T) {
	m := ruleMapping(t, []RuleSpec{{In: "a", Out: ""}})
	tr := NewTransducer(m).Apply("ab")
	if tr.Output != "b" {
		t.Fatalf("output = %q, want %q", tr.Output, "b")
	}
	want := Alignment{{0, 0}, {1, 0}}
	if !reflect.DeepEqual(tr.Edges, want) {
		t.Errorf("edges = %v, want %v", tr.Edges, want)
	}
}

func TestApplyDeletionOfEverything(t *testing.T) {
	m := ruleMapping(t, []RuleSpec{{In: "a", Out: ""}})
	tr := NewTransducer(m).Apply("aa")
	if tr.Output != "" {
		t.Fatalf("output = %q, want empty", tr.Output)
	}
	want := Alignment{{0, Deleted}, {1, Deleted}}
	if !reflect.DeepEqual(tr.Edges, want) {
		t.Errorf("edges = %v, want %v", tr.Edges, want)
	}
}

func TestApplyExpansion(t *testing.T) {
	m := ruleMapping(t, []RuleSpec{{In: "a", Out: "xy"}})
	tr := NewTransducer(m).Apply("a")
	if tr.Output != "xy" {
		t.Fatalf("output = %q, want %q", tr.Output, "xy")
	}
	want := Alignment{{0, 0}, {0, 1}}
	if !reflect.DeepEqual(tr.Edges, want) {
		t.Errorf("edges = %v, want %v", tr.Edges, want)
	}
}

func TestApplyEmptyRules(t *testing.T) {
	m := ruleMapping(t, nil)
	tr := NewTransducer(m).Apply("anything")
	if tr.Output != "anything" {
		t.Errorf("output = %q, want input unchanged", tr.Output)
	}
	if !reflect.DeepEqual(tr.Edges, Identity(8)) {
		t.Errorf("edges = %v, want identity", tr.Edges)
	}
}

func TestApplyTotality(t *testing.T) {
	m := ruleMapping(t, []RuleSpec{
		{In: "th", Out: "T"},
		{In: "e", Out: ""},
		{In: "o", Out: "ou"},
	})
	inputs := []string{"the", "theory", "zzz", "ooo", "", "eee"}
	for _, input := range inputs {
		tr := NewTransducer(m).Apply(input)
		covered := make(map[int]bool)
		for _, arc := range tr.Edges {
			covered[arc.In] = true
		}
		for i := range []rune(input) {
			if !covered[i] {
				t.Errorf("Apply(%q): input rune %d has no arc", input, i)
			}
		}
	}
}

func TestApplyOutDelimiter(t *testing.T) {
	m := mustMapping(t, &MappingConfig{
		InLang: "in", OutLang: "out",
		OutDelimiter: " ",
		Rules: []RuleSpec{
			{In: "h", Out: "HH"},
			{In: "e", Out: "EH"},
		},
	})
	tr := NewTransducer(m).Apply("he")
	if tr.Output != "HH EH" {
		t.Errorf("output = %q, want %q", tr.Output, "HH EH")
	}
}

func TestApplyCaseInsensitive(t *testing.T) {
	no := false
	m := mustMapping(t, &MappingConfig{
		InLang: "in", OutLang: "out",
		CaseSensitive: &no,
		Rules:         []RuleSpec{{In: "A", Out: "B"}},
	})
	for _, input := range []string{"a", "A"} {
		if got := NewTransducer(m).Apply(input).Output; got != "b" {
			t.Errorf("Apply(%q) = %q, want %q", input, got, "b")
		}
	}
}

func TestApplyPreserveCase(t *testing.T) {
	no := false
	m := mustMapping(t, &MappingConfig{
		InLang: "in", OutLang: "out",
		CaseSensitive: &no,
		PreserveCase:  true,
		Rules:         []RuleSpec{{In: "a", Out: "b"}},
	})
	tests := []struct {
		input string
		want  string
	}{
		{"a", "b"},
		{"A", "B"},
		{"ax", "bx"},
		{"Ax", "Bx"},
	}
	for _, tt := range tests {
		if got := NewTransducer(m).Apply(tt.input).Output; got != tt.want {
			t.Errorf("Apply(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestApplyCaseEquivalencies(t *testing.T) {
	no := false
	m := mustMapping(t, &MappingConfig{
		InLang: "in", OutLang: "out",
		CaseSensitive:     &no,
		PreserveCase:      true,
		CaseEquivalencies: map[string]string{"ʔ": "Ɂ"},
		Rules:             []RuleSpec{{In: "q", Out: "ʔ"}},
	})
	if got := NewTransducer(m).Apply("Q").Output; got != "Ɂ" {
		t.Errorf("Apply(%q) = %q, want %q", "Q", got, "Ɂ")
	}
	if got := NewTransducer(m).Apply("q").Output; got != "ʔ" {
		t.Errorf("Apply(%q) = %q, want %q", "q", got, "ʔ")
	}
}

func TestApplyLongestFirstOrdering(t *testing.T) {
	m := mustMapping(t, &MappingConfig{
		InLang: "in", OutLang: "out",
		RuleOrdering: ApplyLongestFirst,
		Rules: []RuleSpec{
			{In: "a", Out: "1"},
			{In: "ab", Out: "2"},
		},
	})
	if got := NewTransducer(m).Apply("ab").Output; got != "2" {
		t.Errorf("output = %q, want the longer rule to win", got)
	}
}

func TestApplyAsWrittenOrdering(t *testing.T) {
	m := ruleMapping(t, []RuleSpec{
		{In: "a", Out: "1"},
		{In: "ab", Out: "2"},
	})
	if got := NewTransducer(m).Apply("ab").Output; got != "1b" {
		t.Errorf("output = %q, want the first rule to win", got)
	}
}

func TestApplyAbbreviations(t *testing.T) {
	m := mustMapping(t, &MappingConfig{
		InLang: "in", OutLang: "out",
		Abbreviations: Abbreviations{"VOWEL": {"a", "e", "i", "o", "u"}},
		Rules:         []RuleSpec{{In: "c", Out: "s", ContextAfter: "{VOWEL}"}},
	})
	tests := []struct {
		input string
		want  string
	}{
		{"ci", "si"},
		{"ca", "sa"},
		{"ct", "ct"},
	}
	for _, tt := range tests {
		if got := NewTransducer(m).Apply(tt.input).Output; got != tt.want {
			t.Errorf("Apply(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestApplyTraces(t *testing.T) {
	m := ruleMapping(t, []RuleSpec{{In: "a", Out: "b"}})
	tr := NewTransducer(m).Apply("xax")
	if len(tr.Traces) != 1 {
		t.Fatalf("got %d traces, want 1", len(tr.Traces))
	}
	trace := tr.Traces[0]
	if trace.Start != 1 || trace.End != 2 {
		t.Errorf("trace span = [%d, %d), want [1, 2)", trace.Start, trace.End)
	}
	if trace.Before != "xax" || trace.After != "xbx" {
		t.Errorf("trace = %q -> %q, want xax -> xbx", trace.Before, trace.After)
	}
}

func TestApplyReverse(t *testing.T) {
	m := mustMapping(t, &MappingConfig{
		InLang: "in", OutLang: "out",
		Reverse: true,
		Rules:   []RuleSpec{{In: "a", Out: "b", ContextBefore: "c"}},
	})
	if got := NewTransducer(m).Apply("b").Output; got != "a" {
		t.Errorf("reversed Apply(%q) = %q, want %q", "b", got, "a")
	}
}

func TestApplyEscapeSpecial(t *testing.T) {
	m := mustMapping(t, &MappingConfig{
		InLang: "in", OutLang: "out",
		EscapeSpecial: true,
		Rules:         []RuleSpec{{In: ".", Out: "dot"}},
	})
	if got := NewTransducer(m).Apply("a.b").Output; got != "adotb" {
		t.Errorf("output = %q, want only the literal dot rewritten", got)
	}
}

func TestApplyUnicodeEscapes(t *testing.T) {
	m := ruleMapping(t, []RuleSpec{{In: `\u0061`, Out: "b"}})
	if got := NewTransducer(m).Apply("a").Output; got != "b" {
		t.Errorf("output = %q, want the escaped rule input to match", got)
	}
}

func TestMappingApply(t *testing.T) {
	m := ruleMapping(t, []RuleSpec{{In: "a", Out: "b"}})
	out, edges := m.Apply("a")
	if out != "b" {
		t.Errorf("output = %q, want %q", out, "b")
	}
	if !reflect.DeepEqual(edges, Alignment{{0, 0}}) {
		t.Errorf("edges = %v, want [(0,0)]", edges)
	}
}
