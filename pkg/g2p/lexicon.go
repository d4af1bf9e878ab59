package g2p

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/blevesearch/vellum"
)

// alignStep is one unit of a lexicon alignment: how many input runes are
// consumed and the phones they produce.
type alignStep struct {
	consumed int
	out      []string
}

// lexEntry is one headword with its parsed alignment.
type lexEntry struct {
	headword string
	steps    []alignStep
}

// lexicon holds the aligned entries of a lexicon mapping. Headwords live
// in an FST whose values are ordinals into the entry table.
type lexicon struct {
	entries []lexEntry
	fst     *vellum.FST
}

// parseAlignment parses one line of a Phonetisaurus-style aligned file,
// e.g. "a}ʌ b}b a}æ s|h}ʃ e|d}t" for "abashed". Graphemes and phones are
// joined by |, with _ marking an empty side.
func parseAlignment(line string) (lexEntry, error) {
	var entry lexEntry
	var word strings.Builder
	for _, tok := range strings.Fields(line) {
		idx := strings.LastIndex(tok, "}")
		if idx < 0 {
			return entry, fmt.Errorf("alignment token %q has no } separator", tok)
		}
		consumed := 0
		for _, g := range strings.Split(tok[:idx], "|") {
			if g == "_" {
				continue
			}
			word.WriteString(g)
			consumed += len([]rune(g))
		}
		var phones []string
		for _, p := range strings.Split(tok[idx+1:], "|") {
			if p == "_" || p == "" {
				continue
			}
			phones = append(phones, p)
		}
		entry.steps = append(entry.steps, alignStep{consumed: consumed, out: phones})
	}
	entry.headword = word.String()
	return entry, nil
}

// loadAlignmentLines reads an aligned lexicon file, one entry per line.
func loadAlignmentLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading alignments: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("loading alignments: %w", err)
	}
	return lines, nil
}

// newLexicon parses alignment lines and indexes headwords in an FST. When
// sourcePath is set and a prebuilt FST sits beside it, that file is
// opened instead of rebuilding; otherwise the FST is built and, if
// possible, persisted beside the source.
func newLexicon(lines []string, sourcePath string) (*lexicon, error) {
	entries := make([]lexEntry, 0, len(lines))
	for _, line := range lines {
		entry, err := parseAlignment(line)
		if err != nil {
			return nil, &ConfigError{Path: sourcePath, Message: err.Error()}
		}
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].headword < entries[j].headword })
	// drop duplicate headwords, keeping the first occurrence
	deduped := entries[:0]
	for i, entry := range entries {
		if i > 0 && entry.headword == deduped[len(deduped)-1].headword {
			continue
		}
		deduped = append(deduped, entry)
	}
	entries = deduped

	lex := &lexicon{entries: entries}

	fstPath := ""
	if sourcePath != "" {
		fstPath = strings.TrimSuffix(sourcePath, ".txt") + ".fst"
		if fst, err := vellum.Open(fstPath); err == nil {
			lex.fst = fst
			return lex, nil
		}
	}

	var buf bytes.Buffer
	builder, err := vellum.New(&buf, nil)
	if err != nil {
		return nil, fmt.Errorf("building lexicon fst: %w", err)
	}
	for i, entry := range entries {
		if err := builder.Insert([]byte(entry.headword), uint64(i)); err != nil {
			return nil, fmt.Errorf("building lexicon fst: %w", err)
		}
	}
	if err := builder.Close(); err != nil {
		return nil, fmt.Errorf("building lexicon fst: %w", err)
	}
	if fstPath != "" {
		// persisting beside the source is best-effort; the in-memory FST
		// is authoritative for this process
		_ = os.WriteFile(fstPath, buf.Bytes(), 0o644)
	}
	fst, err := vellum.Load(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("loading lexicon fst: %w", err)
	}
	lex.fst = fst
	return lex, nil
}

// lookup returns the alignment for a headword, or nil when absent.
func (l *lexicon) lookup(word string) []alignStep {
	ord, ok, err := l.fst.Get([]byte(word))
	if err != nil || !ok || int(ord) >= len(l.entries) {
		return nil
	}
	return l.entries[ord].steps
}

// longestPrefix returns the longest headword that prefixes word, or ""
// when none does.
func (l *lexicon) longestPrefix(word string) string {
	best := ""
	for i := 1; i <= len(word); i++ {
		if !isRuneBoundary(word, i) {
			continue
		}
		prefix := word[:i]
		if _, ok, err := l.fst.Get([]byte(prefix)); err == nil && ok {
			best = prefix
		}
	}
	return best
}

func isRuneBoundary(s string, i int) bool {
	return i == len(s) || (s[i]&0xC0) != 0x80
}

// applyLexicon converts one token by aligned-lexicon lookup. A miss
// returns the input unchanged with identity alignment.
func (t *Transducer) applyLexicon(input string) *Transduction {
	cfg := t.mapping.Config()
	key := input
	if !cfg.IsCaseSensitive() {
		key = lowerString(key)
	}
	steps := t.mapping.lex.lookup(key)
	if steps == nil {
		return &Transduction{
			Input:  input,
			Output: input,
			Edges:  Identity(len([]rune(input))),
		}
	}

	var out []rune
	var edges Alignment
	delim := []rune(cfg.OutDelimiter)
	inPos := 0
	for _, step := range steps {
		phones := []rune(strings.Join(step.out, cfg.OutDelimiter))
		if len(phones) > 0 {
			// the delimiter after a step's phones aligns with that step
			phones = append(phones, delim...)
		}
		outPos := len(out)
		for i := 0; i < step.consumed; i++ {
			if len(phones) == 0 {
				// deletion attaches to the previous output when possible
				edges = append(edges, Arc{inPos + i, max(0, outPos-1)})
				continue
			}
			for j := range phones {
				edges = append(edges, Arc{inPos + i, outPos + j})
			}
		}
		if step.consumed == 0 {
			// insertion attaches to the previous input
			for j := range phones {
				edges = append(edges, Arc{max(0, inPos-1), outPos + j})
			}
		}
		inPos += step.consumed
		out = append(out, phones...)
	}
	// trim the delimiter trailing the final phone
	if len(delim) > 0 && len(out) >= len(delim) {
		out = out[:len(out)-len(delim)]
	}
	for i, arc := range edges {
		if arc.Out >= len(out) {
			if len(out) == 0 {
				edges[i].Out = Deleted
			} else {
				edges[i].Out = len(out) - 1
			}
		}
	}
	return &Transduction{
		Input:  input,
		Output: string(out),
		Edges:  edges.Normalize(),
	}
}
