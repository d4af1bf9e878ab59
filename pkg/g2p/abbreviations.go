package g2p

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Abbreviations maps a short name to the ordered list of literals it
// stands for. Names are referenced in rule fields as {NAME}.
type Abbreviations map[string][]string

var abbreviationRef = regexp.MustCompile(`\{([A-Za-z][A-Za-z0-9_]*)\}`)

// maxAbbreviationDepth bounds recursive expansion so circular definitions
// are reported instead of looping.
const maxAbbreviationDepth = 10

// Expand replaces every {NAME} reference in data with a non-capturing
// alternation of the name's expansions. Expansions may themselves contain
// references; circular definitions and unknown names are errors.
func (a Abbreviations) Expand(data string) (string, error) {
	return a.expand(data, 0)
}

func (a Abbreviations) expand(data string, depth int) (string, error) {
	if depth > maxAbbreviationDepth {
		return "", fmt.Errorf("too many levels of abbreviation expansion, check for circular references")
	}
	var expandErr error
	expanded := abbreviationRef.ReplaceAllStringFunc(data, func(ref string) string {
		name := ref[1 : len(ref)-1]
		alts, ok := a[name]
		if !ok {
			if expandErr == nil {
				expandErr = fmt.Errorf("unknown abbreviation %q", name)
			}
			return ref
		}
		return "(?:" + strings.Join(alts, "|") + ")"
	})
	if expandErr != nil {
		return "", expandErr
	}
	if expanded != data {
		return a.expand(expanded, depth+1)
	}
	return expanded, nil
}

// ExpandLongest replaces every {NAME} reference with the name's longest
// alternative, recursively. Used to compute effective match lengths for
// apply-longest-first ordering.
func (a Abbreviations) ExpandLongest(data string) (string, error) {
	return a.expandLongest(data, 0)
}

func (a Abbreviations) expandLongest(data string, depth int) (string, error) {
	if depth > maxAbbreviationDepth {
		return "", fmt.Errorf("too many levels of abbreviation expansion, check for circular references")
	}
	var expandErr error
	expanded := abbreviationRef.ReplaceAllStringFunc(data, func(ref string) string {
		name := ref[1 : len(ref)-1]
		alts, ok := a[name]
		if !ok {
			if expandErr == nil {
				expandErr = fmt.Errorf("unknown abbreviation %q", name)
			}
			return ref
		}
		longest := ""
		for _, alt := range alts {
			if len([]rune(alt)) > len([]rune(longest)) {
				longest = alt
			}
		}
		return longest
	})
	if expandErr != nil {
		return "", expandErr
	}
	if expanded != data {
		return a.expandLongest(expanded, depth+1)
	}
	return expanded, nil
}

// LoadAbbreviations reads an abbreviations file: delimited rows whose
// first column is the name and whose remaining columns list expansions.
// The delimiter follows the file extension (csv, tsv or psv).
func LoadAbbreviations(path string) (Abbreviations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading abbreviations: %w", err)
	}
	delim, err := delimiterFor(path)
	if err != nil {
		return nil, err
	}
	abbs := make(Abbreviations)
	for _, row := range parseDelimited(string(data), delim) {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		name := row[0]
		for _, alt := range row[1:] {
			if alt != "" {
				abbs[name] = append(abbs[name], alt)
			}
		}
	}
	return abbs, nil
}
