package g2p

import (
	"errors"
	"reflect"
	"testing"
)

func testNetwork(t *testing.T) *Network {
	t.Helper()
	dan := mustMapping(t, &MappingConfig{
		InLang: "dan", OutLang: "dan-ipa",
		Rules: []RuleSpec{
			{In: "h", Out: "h"},
			{In: "e", Out: "ɛ"},
			{In: "j", Out: "j"},
		},
	})
	danEng := mustMapping(t, &MappingConfig{
		InLang: "dan-ipa", OutLang: "eng-ipa",
		Rules: []RuleSpec{{In: "ɛ", Out: "ɛ"}},
	})
	engArpa := mustMapping(t, &MappingConfig{
		InLang: "eng-ipa", OutLang: "eng-arpabet",
		OutDelimiter: " ",
		Rules: []RuleSpec{
			{In: "h", Out: "HH"},
			{In: "ɛ", Out: "EH"},
			{In: "j", Out: "Y"},
		},
	})
	n, err := NewNetwork(dan, danEng, engArpa)
	if err != nil {
		t.Fatalf("NewNetwork returned error: %v", err)
	}
	return n
}

func TestFindPath(t *testing.T) {
	n := testNetwork(t)
	path, err := n.FindPath("dan", "eng-arpabet")
	if err != nil {
		t.Fatalf("FindPath returned error: %v", err)
	}
	want := []string{"dan", "dan-ipa", "eng-ipa", "eng-arpabet"}
	if !reflect.DeepEqual(path, want) {
		t.Errorf("path = %v, want %v", path, want)
	}
}

func TestFindPathSameNode(t *testing.T) {
	n := testNetwork(t)
	path, err := n.FindPath("dan", "dan")
	if err != nil {
		t.Fatalf("FindPath returned error: %v", err)
	}
	if !reflect.DeepEqual(path, []string{"dan"}) {
		t.Errorf("path = %v, want [dan]", path)
	}
}

func TestFindPathErrors(t *testing.T) {
	n := testNetwork(t)

	_, err := n.FindPath("nope", "dan")
	var lookup *LookupError
	if !errors.As(err, &lookup) {
		t.Errorf("unknown source error is %T, want *LookupError", err)
	}

	_, err = n.FindPath("eng-arpabet", "dan")
	var noPath *NoPathError
	if !errors.As(err, &noPath) {
		t.Errorf("disconnected error is %T, want *NoPathError", err)
	}
}

func TestFindPathDeterministic(t *testing.T) {
	a1 := mustMapping(t, &MappingConfig{InLang: "a", OutLang: "b", Rules: []RuleSpec{{In: "x", Out: "x"}}})
	a2 := mustMapping(t, &MappingConfig{InLang: "a", OutLang: "c", Rules: []RuleSpec{{In: "x", Out: "x"}}})
	b := mustMapping(t, &MappingConfig{InLang: "b", OutLang: "z", Rules: []RuleSpec{{In: "x", Out: "x"}}})
	c := mustMapping(t, &MappingConfig{InLang: "c", OutLang: "z", Rules: []RuleSpec{{In: "x", Out: "x"}}})
	n, err := NewNetwork(a1, a2, b, c)
	if err != nil {
		t.Fatal(err)
	}
	// two shortest paths exist; the lexicographically first successor wins
	want := []string{"a", "b", "z"}
	for i := 0; i < 5; i++ {
		path, err := n.FindPath("a", "z")
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(path, want) {
			t.Fatalf("path = %v, want %v", path, want)
		}
	}
}

func TestDescendants(t *testing.T) {
	n := testNetwork(t)
	got, err := n.Descendants("dan")
	if err != nil {
		t.Fatalf("Descendants returned error: %v", err)
	}
	want := []string{"dan-ipa", "eng-arpabet", "eng-ipa"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Descendants = %v, want %v", got, want)
	}

	got, err = n.Descendants("eng-arpabet")
	if err != nil {
		t.Fatalf("Descendants returned error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Descendants of a sink = %v, want none", got)
	}
}

func TestAddMappingDuplicate(t *testing.T) {
	n := testNetwork(t)
	dup := mustMapping(t, &MappingConfig{
		InLang: "dan", OutLang: "dan-ipa",
		Rules: []RuleSpec{{In: "a", Out: "a"}},
	})
	if err := n.AddMapping(dup); err == nil {
		t.Error("duplicate edge did not fail")
	}
}

func TestTransducerCached(t *testing.T) {
	n := testNetwork(t)
	first, err := n.Transducer("dan", "eng-arpabet")
	if err != nil {
		t.Fatalf("Transducer returned error: %v", err)
	}
	second, err := n.Transducer("dan", "eng-arpabet")
	if err != nil {
		t.Fatalf("Transducer returned error: %v", err)
	}
	if first != second {
		t.Error("repeated Transducer calls built distinct composites")
	}

	// adding an edge invalidates the cache
	extra := mustMapping(t, &MappingConfig{InLang: "q", OutLang: "r", Rules: []RuleSpec{{In: "x", Out: "x"}}})
	if err := n.AddMapping(extra); err != nil {
		t.Fatal(err)
	}
	third, err := n.Transducer("dan", "eng-arpabet")
	if err != nil {
		t.Fatalf("Transducer returned error: %v", err)
	}
	if third == first {
		t.Error("cache survived AddMapping")
	}
}

func TestConvert(t *testing.T) {
	n := testNetwork(t)
	result, err := n.Convert("hej", "dan", "eng-arpabet")
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	if result.Output != "HH EH Y" {
		t.Errorf("output = %q, want %q", result.Output, "HH EH Y")
	}
	if len(result.Stages) != 3 {
		t.Errorf("got %d stages, want 3", len(result.Stages))
	}
}

func TestConvertPassesNonWordsThrough(t *testing.T) {
	n := testNetwork(t)
	result, err := n.Convert("hej, hej!", "dan", "eng-arpabet")
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	if result.Output != "HH EH Y, HH EH Y!" {
		t.Errorf("output = %q, want %q", result.Output, "HH EH Y, HH EH Y!")
	}
	var inCat string
	for _, sub := range SubstringAlignments(result.Input, result.Output, result.Edges) {
		inCat += sub.In
	}
	if inCat != "hej, hej!" {
		t.Errorf("substring inputs concatenate to %q", inCat)
	}
}

func TestConvertSameLanguage(t *testing.T) {
	n := testNetwork(t)
	result, err := n.Convert("hej", "dan", "dan")
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	if result.Output != "hej" {
		t.Errorf("output = %q, want input unchanged", result.Output)
	}
}

func TestGenerateMapping(t *testing.T) {
	n := testNetwork(t)
	m, err := n.GenerateMapping("dan", "eng-arpabet")
	if err != nil {
		t.Fatalf("GenerateMapping returned error: %v", err)
	}
	if m.InLang() != "dan" || m.OutLang() != "eng-arpabet" {
		t.Errorf("generated languages = %s -> %s", m.InLang(), m.OutLang())
	}
	byIn := make(map[string]string)
	for _, spec := range m.RuleSpecs() {
		byIn[spec.In] = spec.Out
	}
	if byIn["e"] != "EH" {
		t.Errorf("generated e -> %q, want %q", byIn["e"], "EH")
	}
	if byIn["h"] != "HH" {
		t.Errorf("generated h -> %q, want %q", byIn["h"], "HH")
	}
}

func TestGenerateMappingRequiresRuleFirstHop(t *testing.T) {
	lex := mustMapping(t, &MappingConfig{
		InLang: "lex", OutLang: "lex-ipa",
		Type:       TypeLexicon,
		Alignments: []string{"a}A"},
	})
	ipa := mustMapping(t, &MappingConfig{
		InLang: "lex-ipa", OutLang: "other",
		Rules: []RuleSpec{{In: "A", Out: "B"}},
	})
	n, err := NewNetwork(lex, ipa)
	if err != nil {
		t.Fatal(err)
	}
	_, err = n.GenerateMapping("lex", "other")
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Errorf("error is %T, want *ConfigError", err)
	}
}

func TestNetworkTokenizer(t *testing.T) {
	n := testNetwork(t)
	tok, err := n.Tokenizer("dan")
	if err != nil {
		t.Fatalf("Tokenizer returned error: %v", err)
	}
	got := tokens(tok.Tokenize("hej!"))
	if !reflect.DeepEqual(got, []string{"hej", "!"}) {
		t.Errorf("tokens = %v, want [hej !]", got)
	}

	if _, err := n.Tokenizer("nope"); err == nil {
		t.Error("unknown language did not fail")
	}
}

func TestIsIPA(t *testing.T) {
	tests := []struct {
		lang string
		want bool
	}{
		{"dan-ipa", true},
		{"eng_ipa", true},
		{"ipa", true},
		{"dan", false},
		{"ipanema", false},
	}
	for _, tt := range tests {
		if got := isIPA(tt.lang); got != tt.want {
			t.Errorf("isIPA(%q) = %v, want %v", tt.lang, got, tt.want)
		}
	}
}
