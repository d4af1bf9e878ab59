package g2p

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// MappingType selects how a mapping converts its input.
type MappingType string

const (
	TypeRule      MappingType = "rule"
	TypeUnidecode MappingType = "unidecode"
	TypeLexicon   MappingType = "lexicon"
)

func (t *MappingType) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch MappingType(s) {
	case TypeRule, TypeUnidecode, TypeLexicon:
		*t = MappingType(s)
		return nil
	}
	return &ConfigError{Field: "type", Message: fmt.Sprintf("invalid mapping type %q (must be rule, unidecode or lexicon)", s)}
}

// RuleOrdering selects the order in which rules are applied.
type RuleOrdering string

const (
	AsWritten         RuleOrdering = "as-written"
	ApplyLongestFirst RuleOrdering = "apply-longest-first"
)

func (r *RuleOrdering) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch RuleOrdering(s) {
	case AsWritten, ApplyLongestFirst:
		*r = RuleOrdering(s)
		return nil
	}
	return &ConfigError{Field: "rule_ordering", Message: fmt.Sprintf("invalid rule ordering %q (must be as-written or apply-longest-first)", s)}
}

// NormForm names a Unicode normalization form, or none.
type NormForm string

const (
	NormNFC  NormForm = "NFC"
	NormNFD  NormForm = "NFD"
	NormNFKC NormForm = "NFKC"
	NormNFKD NormForm = "NFKD"
	NormNone NormForm = "none"
)

func (n *NormForm) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch NormForm(s) {
	case NormNFC, NormNFD, NormNFKC, NormNFKD, NormNone:
		*n = NormForm(s)
		return nil
	}
	return &ConfigError{Field: "norm_form", Message: fmt.Sprintf("invalid norm_form %q (must be NFC, NFD, NFKC, NFKD or none)", s)}
}

// MappingConfig describes one mapping edge: where its rules come from and
// how they are compiled and applied.
type MappingConfig struct {
	InLang       string `yaml:"in_lang" json:"in_lang"`
	OutLang      string `yaml:"out_lang" json:"out_lang"`
	DisplayName  string `yaml:"display_name,omitempty" json:"display_name,omitempty"`
	LanguageName string `yaml:"language_name,omitempty" json:"language_name,omitempty"`

	Type         MappingType  `yaml:"type,omitempty" json:"type,omitempty"`
	RuleOrdering RuleOrdering `yaml:"rule_ordering,omitempty" json:"rule_ordering,omitempty"`
	NormForm     NormForm     `yaml:"norm_form,omitempty" json:"norm_form,omitempty"`

	// CaseSensitive defaults to true when absent, so it is kept as a
	// pointer; use IsCaseSensitive.
	CaseSensitive *bool `yaml:"case_sensitive,omitempty" json:"case_sensitive,omitempty"`


	PreserveCase   bool   `yaml:"preserve_case,omitempty" json:"preserve_case,omitempty"`
	EscapeSpecial  bool   `yaml:"escape_special,omitempty" json:"escape_special,omitempty"`
	Reverse        bool   `yaml:"reverse,omitempty" json:"reverse,omitempty"`
	PreventFeeding bool   `yaml:"prevent_feeding,omitempty" json:"prevent_feeding,omitempty"`
	OutDelimiter   string `yaml:"out_delimiter,omitempty" json:"out_delimiter,omitempty"`

	CaseEquivalencies  map[string]string `yaml:"case_equivalencies,omitempty" json:"case_equivalencies,omitempty"`
	TokenizerWordChars string            `yaml:"tokenizer_word_chars,omitempty" json:"tokenizer_word_chars,omitempty"`

	RulesPath         string `yaml:"rules_path,omitempty" json:"rules_path,omitempty"`
	AbbreviationsPath string `yaml:"abbreviations_path,omitempty" json:"abbreviations_path,omitempty"`
	AlignmentsPath    string `yaml:"alignments_path,omitempty" json:"alignments_path,omitempty"`

	Rules         []RuleSpec    `yaml:"rules,omitempty" json:"rules,omitempty"`
	Abbreviations Abbreviations `yaml:"abbreviations,omitempty" json:"abbreviations,omitempty"`
	Alignments    []string      `yaml:"alignments,omitempty" json:"alignments,omitempty"`

	Authors []string `yaml:"authors,omitempty" json:"authors,omitempty"`

	// AsIs is the retired boolean form of rule_ordering. It is recognized
	// only so that validation can name its replacement.
	AsIs *bool `yaml:"as_is,omitempty" json:"-"`
}

// configDocument is the top-level shape of a mapping configuration file.
type configDocument struct {
	Mappings []*MappingConfig `yaml:"mappings"`
}

// IsCaseSensitive reports the effective case_sensitive setting; the
// option defaults to true.
func (c *MappingConfig) IsCaseSensitive() bool {
	return c.CaseSensitive == nil || *c.CaseSensitive
}

// applyDefaults fills in the defaults for unset enum fields.
func (c *MappingConfig) applyDefaults() {
	if c.Type == "" {
		c.Type = TypeRule
	}
	if c.RuleOrdering == "" {
		c.RuleOrdering = AsWritten
	}
	if c.NormForm == "" {
		c.NormForm = NormNFD
	}
}

// validate rejects inconsistent option combinations. path is used in
// diagnostics only.
func (c *MappingConfig) validate(path string) error {
	if c.AsIs != nil {
		replacement := string(ApplyLongestFirst)
		if *c.AsIs {
			replacement = string(AsWritten)
		}
		return &ConfigError{
			Path:    path,
			Field:   "as_is",
			Message: fmt.Sprintf("as_is is no longer supported; replace `as_is: %v` with `rule_ordering: %s`", *c.AsIs, replacement),
		}
	}
	if c.InLang == "" || c.OutLang == "" {
		return &ConfigError{Path: path, Message: "in_lang and out_lang are required"}
	}
	if c.PreserveCase && c.IsCaseSensitive() {
		return &ConfigError{Path: path, Field: "preserve_case", Message: "preserve_case requires case_sensitive: false"}
	}
	if len([]rune(c.OutDelimiter)) > 1 {
		return &ConfigError{Path: path, Field: "out_delimiter", Message: fmt.Sprintf("out_delimiter %q is longer than one character", c.OutDelimiter)}
	}
	for lower, upper := range c.CaseEquivalencies {
		if len([]rune(lower)) != len([]rune(upper)) {
			return &ConfigError{
				Path:    path,
				Field:   "case_equivalencies",
				Message: fmt.Sprintf("equivalency %q/%q pairs strings of different lengths", lower, upper),
			}
		}
	}
	if c.Type == TypeLexicon && len(c.Alignments) == 0 && c.AlignmentsPath == "" {
		return &ConfigError{Path: path, Field: "alignments_path", Message: "lexicon mappings must provide alignments"}
	}
	return nil
}

// LoadConfig reads a mapping configuration file and returns one config per
// entry, with relative rules/abbreviations/alignments paths resolved
// against the file's directory. Unknown fields are rejected.
func LoadConfig(path string) ([]*MappingConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening mapping config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var doc configDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, &ConfigError{Path: path, Message: err.Error()}
	}
	if len(doc.Mappings) == 0 {
		return nil, &ConfigError{Path: path, Field: "mappings", Message: "no mappings defined"}
	}

	dir := filepath.Dir(path)
	for _, cfg := range doc.Mappings {
		cfg.applyDefaults()
		if err := cfg.validate(path); err != nil {
			return nil, err
		}
		cfg.RulesPath = resolvePath(dir, cfg.RulesPath)
		cfg.AbbreviationsPath = resolvePath(dir, cfg.AbbreviationsPath)
		cfg.AlignmentsPath = resolvePath(dir, cfg.AlignmentsPath)
	}
	return doc.Mappings, nil
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
