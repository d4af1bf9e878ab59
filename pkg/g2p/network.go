package g2p

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// transducerCacheSize bounds the number of composed transducers kept
// alive per network.
const transducerCacheSize = 64

// Network is the directed graph of languages: nodes are language codes
// and each edge carries the mapping that converts between its endpoints.
type Network struct {
	nodes map[string]struct{}
	edges map[string]map[string]*Mapping
	cache *lru.Cache[string, *CompositeTransducer]
}

// NewNetwork builds a network over the given mappings.
func NewNetwork(mappings ...*Mapping) (*Network, error) {
	cache, err := lru.New[string, *CompositeTransducer](transducerCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating transducer cache: %w", err)
	}
	n := &Network{
		nodes: make(map[string]struct{}),
		edges: make(map[string]map[string]*Mapping),
		cache: cache,
	}
	for _, m := range mappings {
		if err := n.AddMapping(m); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// AddMapping inserts a mapping as the edge from its input language to
// its output language. A second mapping between the same pair is an
// error.
func (n *Network) AddMapping(m *Mapping) error {
	in, out := m.InLang(), m.OutLang()
	if _, ok := n.edges[in][out]; ok {
		return fmt.Errorf("duplicate mapping %s -> %s", in, out)
	}
	n.nodes[in] = struct{}{}
	n.nodes[out] = struct{}{}
	if n.edges[in] == nil {
		n.edges[in] = make(map[string]*Mapping)
	}
	n.edges[in][out] = m
	n.cache.Purge()
	return nil
}

// HasNode reports whether lang appears in the network.
func (n *Network) HasNode(lang string) bool {
	_, ok := n.nodes[lang]
	return ok
}

// Nodes returns every language code, sorted.
func (n *Network) Nodes() []string {
	nodes := make([]string, 0, len(n.nodes))
	for lang := range n.nodes {
		nodes = append(nodes, lang)
	}
	sort.Strings(nodes)
	return nodes
}

// Mappings returns every edge mapping, ordered by (in, out).
func (n *Network) Mappings() []*Mapping {
	var mappings []*Mapping
	for _, in := range n.Nodes() {
		for _, out := range n.successors(in) {
			mappings = append(mappings, n.edges[in][out])
		}
	}
	return mappings
}

// Mapping returns the edge between two languages, or nil when absent.
func (n *Network) Mapping(in, out string) *Mapping {
	return n.edges[in][out]
}

// successors returns the sorted out-neighbours of a node so traversal
// order is deterministic.
func (n *Network) successors(lang string) []string {
	adj := n.edges[lang]
	succs := make([]string, 0, len(adj))
	for out := range adj {
		succs = append(succs, out)
	}
	sort.Strings(succs)
	return succs
}

// FindPath returns the shortest conversion path from in to out as a
// list of language codes, endpoints included. Missing endpoints yield a
// LookupError; disconnected ones a NoPathError.
func (n *Network) FindPath(in, out string) ([]string, error) {
	if !n.HasNode(in) {
		return nil, &LookupError{Lang: in}
	}
	if !n.HasNode(out) {
		return nil, &LookupError{Lang: out}
	}
	if in == out {
		return []string{in}, nil
	}

	prev := map[string]string{in: ""}
	queue := []string{in}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range n.successors(cur) {
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			if next == out {
				var path []string
				for at := out; at != ""; at = prev[at] {
					path = append(path, at)
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path, nil
			}
			queue = append(queue, next)
		}
	}
	return nil, &NoPathError{InLang: in, OutLang: out}
}

// Descendants returns every language reachable from lang, sorted. The
// language itself is not included.
func (n *Network) Descendants(lang string) ([]string, error) {
	if !n.HasNode(lang) {
		return nil, &LookupError{Lang: lang}
	}
	seen := map[string]struct{}{lang: {}}
	queue := []string{lang}
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range n.successors(cur) {
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = struct{}{}
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	sort.Strings(out)
	return out, nil
}

// pathMappings resolves a path to the mappings along its edges.
func (n *Network) pathMappings(path []string) []*Mapping {
	mappings := make([]*Mapping, 0, len(path))
	for i := 0; i+1 < len(path); i++ {
		mappings = append(mappings, n.edges[path[i]][path[i+1]])
	}
	return mappings
}

// Transducer returns the composed transducer for the shortest path from
// in to out. Composed transducers are memoized, so repeated conversions
// between the same pair skip path search.
func (n *Network) Transducer(in, out string) (*CompositeTransducer, error) {
	key := in + "\x00" + out
	if ct, ok := n.cache.Get(key); ok {
		return ct, nil
	}
	path, err := n.FindPath(in, out)
	if err != nil {
		return nil, err
	}
	ct := NewCompositeTransducer(n.pathMappings(path))
	n.cache.Add(key, ct)
	return ct, nil
}

var ipaNode = regexp.MustCompile(`[-_]ipa$`)

func isIPA(lang string) bool {
	return lang == "ipa" || ipaNode.MatchString(lang)
}

// Tokenizer returns a tokenizer for text in the given language, built
// from the union of the mappings leaving it.
func (n *Network) Tokenizer(lang string) (*Tokenizer, error) {
	if !n.HasNode(lang) {
		return nil, &LookupError{Lang: lang}
	}
	var mappings []*Mapping
	for _, out := range n.successors(lang) {
		mappings = append(mappings, n.edges[lang][out])
	}
	return NewTokenizer(mappings...), nil
}

// pathTokenizer builds a tokenizer from the mappings along a path, up
// to and including the first hop that lands on an IPA node. Hops past
// that point describe phone inventories rather than orthography, so
// their inputs must not widen what counts as a word.
func (n *Network) pathTokenizer(path []string) *Tokenizer {
	var mappings []*Mapping
	for i := 0; i+1 < len(path); i++ {
		mappings = append(mappings, n.edges[path[i]][path[i+1]])
		if isIPA(path[i+1]) {
			break
		}
	}
	return NewTokenizer(mappings...)
}

// Convert tokenizes text in the input language and converts each word
// token along the shortest path to the output language. Non-word tokens
// pass through unchanged. The result carries the end-to-end alignment
// and the concatenated per-stage transductions.
func (n *Network) Convert(text, in, out string) (*CompositeTransduction, error) {
	path, err := n.FindPath(in, out)
	if err != nil {
		return nil, err
	}
	ct, err := n.Transducer(in, out)
	if err != nil {
		return nil, err
	}
	tok := n.pathTokenizer(path)

	stageCount := len(ct.Transducers())
	stages := make([]*Transduction, stageCount)
	for i := range stages {
		stages[i] = &Transduction{}
	}
	stageIn := make([]int, stageCount)
	stageOut := make([]int, stageCount)

	result := &CompositeTransduction{Input: text, Stages: stages}
	var outText strings.Builder
	inOff, outOff := 0, 0

	for _, token := range tok.Tokenize(text) {
		tokenLen := len([]rune(token.Text))
		if !token.IsWord {
			result.Edges = append(result.Edges, Identity(tokenLen).shift(inOff, outOff)...)
			for i := range stages {
				stages[i].Input += token.Text
				stages[i].Output += token.Text
				stages[i].Edges = append(stages[i].Edges, Identity(tokenLen).shift(stageIn[i], stageOut[i])...)
				stageIn[i] += tokenLen
				stageOut[i] += tokenLen
			}
			outText.WriteString(token.Text)
			inOff += tokenLen
			outOff += tokenLen
			continue
		}

		r := ct.Apply(token.Text)
		result.Edges = append(result.Edges, r.Edges.shift(inOff, outOff)...)
		for i, stage := range r.Stages {
			stages[i].Input += stage.Input
			stages[i].Output += stage.Output
			stages[i].Edges = append(stages[i].Edges, stage.Edges.shift(stageIn[i], stageOut[i])...)
			stages[i].Traces = append(stages[i].Traces, stage.Traces...)
			stageIn[i] += len([]rune(stage.Input))
			stageOut[i] += len([]rune(stage.Output))
		}
		outText.WriteString(r.Output)
		inOff += tokenLen
		outOff += len([]rune(r.Output))
	}

	result.Output = outText.String()
	return result, nil
}

// GenerateMapping composes the mappings along the shortest path from in
// to out into a single new mapping: every rule input of the first hop
// paired with its fully converted output. Only rule-type first hops can
// be composed this way.
func (n *Network) GenerateMapping(in, out string) (*Mapping, error) {
	path, err := n.FindPath(in, out)
	if err != nil {
		return nil, err
	}
	if len(path) < 2 {
		return nil, &NoPathError{InLang: in, OutLang: out}
	}
	mappings := n.pathMappings(path)
	first := mappings[0]
	if first.Type() != TypeRule {
		return nil, &ConfigError{
			Message: fmt.Sprintf("cannot generate a mapping from %s: first hop %s -> %s is type %s, not rule",
				in, path[0], path[1], first.Type()),
		}
	}
	rest := NewCompositeTransducer(mappings[1:])

	seen := make(map[string]struct{})
	var specs []RuleSpec
	for _, spec := range first.RuleSpecs() {
		input := stripIndexNotation(unicodeEscape(spec.In))
		if input == "" {
			continue
		}
		if _, ok := seen[input]; ok {
			continue
		}
		seen[input] = struct{}{}
		converted := rest.Apply(stripIndexNotation(unicodeEscape(spec.Out))).Output
		specs = append(specs, RuleSpec{In: input, Out: converted})
	}

	caseSensitive := first.Config().IsCaseSensitive()
	cfg := &MappingConfig{
		InLang:        in,
		OutLang:       out,
		Type:          TypeRule,
		DisplayName:   fmt.Sprintf("%s to %s (generated)", in, out),
		Rules:         specs,
		CaseSensitive: &caseSensitive,
		OutDelimiter:  mappings[len(mappings)-1].Config().OutDelimiter,
	}
	return NewMapping(cfg)
}
