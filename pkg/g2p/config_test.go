package g2p

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &MappingConfig{InLang: "x", OutLang: "y"}
	cfg.applyDefaults()
	if cfg.Type != TypeRule {
		t.Errorf("default type = %s, want %s", cfg.Type, TypeRule)
	}
	if cfg.RuleOrdering != AsWritten {
		t.Errorf("default rule_ordering = %s, want %s", cfg.RuleOrdering, AsWritten)
	}
	if cfg.NormForm != NormNFD {
		t.Errorf("default norm_form = %s, want %s", cfg.NormForm, NormNFD)
	}
	if !cfg.IsCaseSensitive() {
		t.Error("case_sensitive should default to true")
	}
}

func TestValidate(t *testing.T) {
	no := false
	tests := []struct {
		name    string
		cfg     MappingConfig
		errPart string
	}{
		{
			name:    "missing languages",
			cfg:     MappingConfig{},
			errPart: "in_lang and out_lang",
		},
		{
			name:    "preserve_case needs case folding",
			cfg:     MappingConfig{InLang: "x", OutLang: "y", PreserveCase: true},
			errPart: "preserve_case",
		},
		{
			name:    "multi-character delimiter",
			cfg:     MappingConfig{InLang: "x", OutLang: "y", OutDelimiter: "--"},
			errPart: "out_delimiter",
		},
		{
			name: "uneven case equivalency",
			cfg: MappingConfig{
				InLang: "x", OutLang: "y",
				CaseSensitive:     &no,
				CaseEquivalencies: map[string]string{"ab": "A"},
			},
			errPart: "case_equivalencies",
		},
		{
			name:    "lexicon without alignments",
			cfg:     MappingConfig{InLang: "x", OutLang: "y", Type: TypeLexicon},
			errPart: "alignments",
		},
	}
	for _, tt := range tests {
		err := tt.cfg.validate("test.yaml")
		if err == nil {
			t.Errorf("%s: validate did not fail", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.errPart) {
			t.Errorf("%s: error %q does not mention %q", tt.name, err, tt.errPart)
		}
	}
}

func TestValidateAsIsRejected(t *testing.T) {
	yes := true
	cfg := MappingConfig{InLang: "x", OutLang: "y", AsIs: &yes}
	err := cfg.validate("old.yaml")
	if err == nil {
		t.Fatal("as_is did not fail validation")
	}
	if !strings.Contains(err.Error(), "rule_ordering: as-written") {
		t.Errorf("error %q does not name the as-written replacement", err)
	}

	no := false
	cfg.AsIs = &no
	err = cfg.validate("old.yaml")
	if err == nil || !strings.Contains(err.Error(), "rule_ordering: apply-longest-first") {
		t.Errorf("error %v does not name the apply-longest-first replacement", err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	rules := filepath.Join(dir, "rules.csv")
	if err := os.WriteFile(rules, []byte("a,b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	content := `mappings:
  - in_lang: dan
    out_lang: dan-ipa
    display_name: Danish to IPA
    rules_path: rules.csv
`
	path := filepath.Join(dir, "config-g2p.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfgs, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if len(cfgs) != 1 {
		t.Fatalf("LoadConfig returned %d configs, want 1", len(cfgs))
	}
	cfg := cfgs[0]
	if cfg.InLang != "dan" || cfg.OutLang != "dan-ipa" {
		t.Errorf("languages = %s -> %s, want dan -> dan-ipa", cfg.InLang, cfg.OutLang)
	}
	if cfg.RulesPath != rules {
		t.Errorf("rules_path = %q, want resolved %q", cfg.RulesPath, rules)
	}
	if cfg.Type != TypeRule {
		t.Errorf("type = %s, want default %s", cfg.Type, TypeRule)
	}
}

func TestLoadConfigUnknownField(t *testing.T) {
	path := writeFile(t, "config-g2p.yaml", "mappings:\n  - in_lang: a\n    out_lang: b\n    bogus: true\n")
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("unknown field did not fail")
	}
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("error is %T, want *ConfigError", err)
	}
}

func TestLoadConfigEmpty(t *testing.T) {
	path := writeFile(t, "config-g2p.yaml", "mappings: []\n")
	if _, err := LoadConfig(path); err == nil {
		t.Error("empty mappings did not fail")
	}
}

func TestEnumUnmarshal(t *testing.T) {
	path := writeFile(t, "config-g2p.yaml", "mappings:\n  - in_lang: a\n    out_lang: b\n    type: banana\n")
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("invalid type did not fail")
	}
	if !strings.Contains(err.Error(), "banana") {
		t.Errorf("error %q does not show the bad value", err)
	}
}
