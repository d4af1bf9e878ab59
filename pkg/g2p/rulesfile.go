package g2p

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// RuleSpec is one rewrite rule as written in a rules file, before
// compilation.
type RuleSpec struct {
	In             string `yaml:"in" json:"in"`
	Out            string `yaml:"out" json:"out"`
	ContextBefore  string `yaml:"context_before,omitempty" json:"context_before,omitempty"`
	ContextAfter   string `yaml:"context_after,omitempty" json:"context_after,omitempty"`
	PreventFeeding bool   `yaml:"prevent_feeding,omitempty" json:"prevent_feeding,omitempty"`
	Comment        string `yaml:"comment,omitempty" json:"comment,omitempty"`
}

// delimiterFor maps a rules or abbreviations file extension to its column
// delimiter.
func delimiterFor(path string) (rune, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ',', nil
	case ".tsv":
		return '\t', nil
	case ".psv":
		return '|', nil
	}
	return 0, &ConfigError{Path: path, Message: "delimited files must be csv, tsv or psv"}
}

// parseDelimited splits file content into rows and columns. Blank lines
// are skipped and a leading byte order mark is dropped. Unlike a strict
// CSV reader it performs no quoting, matching how mapping rule files are
// written.
func parseDelimited(content string, delim rune) [][]string {
	content = strings.TrimPrefix(content, "\ufeff")
	var rows [][]string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, strings.Split(line, string(delim)))
	}
	return rows
}

// LoadRules reads a rules file. Delimited files carry the columns
// in, out, context_before, context_after, prevent_feeding; YAML and JSON
// files carry a list of objects with the same field names.
func LoadRules(path string) ([]RuleSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		var specs []RuleSpec
		dec := yaml.NewDecoder(strings.NewReader(string(data)))
		dec.KnownFields(true)
		if err := dec.Decode(&specs); err != nil {
			return nil, &ConfigError{Path: path, Message: err.Error()}
		}
		return specs, nil
	}
	delim, err := delimiterFor(path)
	if err != nil {
		return nil, err
	}
	var specs []RuleSpec
	for i, row := range parseDelimited(string(data), delim) {
		if len(row) < 2 {
			return nil, &ConfigError{
				Path:    path,
				Message: fmt.Sprintf("row %d has no out value: %q", i+1, strings.Join(row, string(delim))),
			}
		}
		spec := RuleSpec{In: row[0], Out: row[1]}
		if len(row) > 2 {
			spec.ContextBefore = row[2]
		}
		if len(row) > 3 {
			spec.ContextAfter = row[3]
		}
		if len(row) > 4 {
			spec.PreventFeeding = strings.EqualFold(strings.TrimSpace(row[4]), "true")
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
