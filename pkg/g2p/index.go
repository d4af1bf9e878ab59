package g2p

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SchemaVersion identifies the compiled index format this package reads
// and writes.
const SchemaVersion = "2.0"

// ConfigFileName is the per-language mapping configuration file looked
// up when building a network from a directory tree.
const ConfigFileName = "config-g2p.yaml"

// indexMapping is one serialized mapping: its configuration with every
// external file materialized inline.
type indexMapping struct {
	Config        *MappingConfig `json:"config"`
	Rules         []RuleSpec     `json:"rules,omitempty"`
	Abbreviations Abbreviations  `json:"abbreviations,omitempty"`
	Alignments    []string       `json:"alignments,omitempty"`
}

type indexNode struct {
	ID string `json:"id"`
}

type indexLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// indexDocument is the on-disk shape of the compiled index: the network
// adjacency in node-link form plus the full mapping catalog.
type indexDocument struct {
	SchemaVersion string         `json:"schema_version"`
	Directed      bool           `json:"directed"`
	Multigraph    bool           `json:"multigraph"`
	Nodes         []indexNode    `json:"nodes"`
	Links         []indexLink    `json:"links"`
	Mappings      []indexMapping `json:"mappings"`
}

// indexDoc flattens a network into its serialized form. Rules are stored
// post-reversal and post-normalization, so reverse and the file paths are
// cleared in the stored config; norm_form is kept, since it also governs
// how input is normalized.
func indexDoc(n *Network) *indexDocument {
	doc := &indexDocument{
		SchemaVersion: SchemaVersion,
		Directed:      true,
		Multigraph:    false,
	}
	for _, lang := range n.Nodes() {
		doc.Nodes = append(doc.Nodes, indexNode{ID: lang})
	}
	for _, m := range n.Mappings() {
		doc.Links = append(doc.Links, indexLink{Source: m.InLang(), Target: m.OutLang()})

		cfg := *m.Config()
		cfg.Reverse = false
		cfg.RulesPath = ""
		cfg.AbbreviationsPath = ""
		cfg.AlignmentsPath = ""
		cfg.Rules = nil
		cfg.Abbreviations = nil
		cfg.Alignments = nil

		im := indexMapping{Config: &cfg}
		switch m.Type() {
		case TypeLexicon:
			im.Alignments = m.AlignmentLines()
		case TypeRule:
			im.Rules = m.RuleSpecs()
			if len(m.Abbreviations()) > 0 {
				im.Abbreviations = m.Abbreviations()
			}
		}
		doc.Mappings = append(doc.Mappings, im)
	}
	return doc
}

// SaveIndex writes the compiled index for a network as gzip-compressed
// JSON.
func SaveIndex(n *Network, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	enc := json.NewEncoder(zw)
	if err := enc.Encode(indexDoc(n)); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return f.Close()
}

// LoadIndex reads a compiled index and reconstructs its network. An
// index written by a different schema version is rejected.
func LoadIndex(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, &ConfigError{Path: path, Message: fmt.Sprintf("not a gzip index: %v", err)}
	}
	defer zr.Close()

	var doc indexDocument
	if err := json.NewDecoder(zr).Decode(&doc); err != nil {
		return nil, &ConfigError{Path: path, Message: fmt.Sprintf("decoding index: %v", err)}
	}
	if doc.SchemaVersion != SchemaVersion {
		return nil, &ConfigError{
			Path:    path,
			Field:   "schema_version",
			Message: fmt.Sprintf("index has schema version %q but this build reads %q; run update to regenerate", doc.SchemaVersion, SchemaVersion),
		}
	}

	network, err := NewNetwork()
	if err != nil {
		return nil, err
	}
	for _, im := range doc.Mappings {
		cfg := im.Config
		cfg.Rules = im.Rules
		cfg.Abbreviations = im.Abbreviations
		cfg.Alignments = im.Alignments
		m, err := NewMapping(cfg)
		if err != nil {
			return nil, err
		}
		if err := network.AddMapping(m); err != nil {
			return nil, err
		}
	}
	return network, nil
}

// BuildNetworkFromDir walks a directory of language folders, loading
// <dir>/<lang>/config-g2p.yaml from each, and assembles the network.
// Folders without a config file are skipped.
func BuildNetworkFromDir(dir string) (*Network, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning mappings directory: %w", err)
	}

	network, err := NewNetwork()
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		cfgPath := filepath.Join(dir, entry.Name(), ConfigFileName)
		if _, err := os.Stat(cfgPath); err != nil {
			continue
		}
		cfgs, err := LoadConfig(cfgPath)
		if err != nil {
			return nil, err
		}
		for _, cfg := range cfgs {
			m, err := NewMapping(cfg)
			if err != nil {
				return nil, err
			}
			if err := network.AddMapping(m); err != nil {
				return nil, err
			}
		}
	}
	return network, nil
}
