package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lcoste/g2p/pkg/g2p"
)

const (
	defaultIndexPath   = "index.json.gz"
	defaultMappingsDir = "mappings"
)

// Exit codes: 0 success, 1 any other failure (such as an unreadable
// file), 2 bad arguments, 3 no conversion path or unknown language,
// 4 broken mapping configuration.
const (
	exitOK     = 0
	exitError  = 1
	exitUsage  = 2
	exitNoPath = 3
	exitConfig = 4
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return exitUsage
	}

	cmd := args[0]
	pos, flags, err := parseArgs(args[1:])
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		printUsage(stderr)
		return exitUsage
	}

	switch cmd {
	case "convert":
		return cmdConvert(pos, flags, stdout, stderr)
	case "update":
		return cmdUpdate(pos, flags, stdout, stderr)
	case "tokenize":
		return cmdTokenize(pos, flags, stdout, stderr)
	case "generate-mapping":
		return cmdGenerateMapping(pos, flags, stdout, stderr)
	case "show-mappings":
		return cmdShowMappings(pos, flags, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", cmd)
		printUsage(stderr)
		return exitUsage
	}
}

// boolFlags are the flags that take no value.
var boolFlags = map[string]bool{
	"--tok":      true,
	"--debugger": true,
	"--verbose":  true,
	"--ipa":      true,
}

// parseArgs splits raw arguments into positionals and flags. Value
// flags consume the following argument.
func parseArgs(args []string) ([]string, map[string]string, error) {
	var pos []string
	flags := make(map[string]string)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			pos = append(pos, arg)
			continue
		}
		if boolFlags[arg] {
			flags[arg] = "true"
			continue
		}
		switch arg {
		case "--index", "--out", "--in-dir":
			if i+1 >= len(args) {
				return nil, nil, fmt.Errorf("%s requires a value", arg)
			}
			i++
			flags[arg] = args[i]
		default:
			return nil, nil, fmt.Errorf("unknown flag %s", arg)
		}
	}
	return pos, flags, nil
}

// exitCode maps an error to the documented exit codes.
func exitCode(err error) int {
	var noPath *g2p.NoPathError
	var lookup *g2p.LookupError
	var config *g2p.ConfigError
	var compile *g2p.CompileError
	switch {
	case errors.As(err, &noPath), errors.As(err, &lookup):
		return exitNoPath
	case errors.As(err, &config), errors.As(err, &compile):
		return exitConfig
	}
	return exitError
}

func fail(stderr io.Writer, err error) int {
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitCode(err)
}

func loadNetwork(flags map[string]string, stderr io.Writer) (*g2p.Network, int) {
	path := flags["--index"]
	if path == "" {
		path = defaultIndexPath
	}
	network, err := g2p.LoadIndex(path)
	if err != nil {
		return nil, fail(stderr, err)
	}
	return network, exitOK
}

// edgePairs renders an alignment as [in, out] pairs for JSON output.
// Deleted arcs appear with a null output.
func edgePairs(a g2p.Alignment) [][2]*int {
	pairs := make([][2]*int, len(a))
	for i, arc := range a {
		in := arc.In
		pairs[i][0] = &in
		if arc.Out != g2p.Deleted {
			out := arc.Out
			pairs[i][1] = &out
		}
	}
	return pairs
}

type traceOutput struct {
	Rule   ruleOutput `json:"rule"`
	Start  int        `json:"start"`
	End    int        `json:"end"`
	Before string     `json:"before"`
	After  string     `json:"after"`
}

type ruleOutput struct {
	In            string `json:"in"`
	Out           string `json:"out"`
	ContextBefore string `json:"context_before,omitempty"`
	ContextAfter  string `json:"context_after,omitempty"`
}

type stageOutput struct {
	InLang  string        `json:"in_lang"`
	OutLang string        `json:"out_lang"`
	Input   string        `json:"input"`
	Output  string        `json:"output"`
	Edges   [][2]*int     `json:"edges"`
	Traces  []traceOutput `json:"traces,omitempty"`
}

type convertOutput struct {
	InLang  string        `json:"in_lang"`
	OutLang string        `json:"out_lang"`
	Input   string        `json:"input"`
	Output  string        `json:"output"`
	Edges   [][2]*int     `json:"edges"`
	Stages  []stageOutput `json:"stages,omitempty"`
}

func traceOutputs(traces []g2p.RuleTrace) []traceOutput {
	var out []traceOutput
	for _, tr := range traces {
		out = append(out, traceOutput{
			Rule: ruleOutput{
				In:            tr.Rule.In,
				Out:           tr.Rule.Out,
				ContextBefore: tr.Rule.ContextBefore,
				ContextAfter:  tr.Rule.ContextAfter,
			},
			Start:  tr.Start,
			End:    tr.End,
			Before: tr.Before,
			After:  tr.After,
		})
	}
	return out
}

func cmdConvert(pos []string, flags map[string]string, stdout, stderr io.Writer) int {
	if len(pos) != 3 {
		fmt.Fprintln(stderr, "Usage: g2p convert IN_LANG OUT_LANG TEXT [--tok] [--debugger] [--index PATH]")
		return exitUsage
	}
	in, out, text := pos[0], pos[1], pos[2]

	network, code := loadNetwork(flags, stderr)
	if code != exitOK {
		return code
	}
	ct, err := network.Transducer(in, out)
	if err != nil {
		return fail(stderr, err)
	}

	var result *g2p.CompositeTransduction
	if flags["--tok"] != "" {
		result, err = network.Convert(text, in, out)
		if err != nil {
			return fail(stderr, err)
		}
	} else {
		result = ct.Apply(text)
	}

	payload := convertOutput{
		InLang:  in,
		OutLang: out,
		Input:   result.Input,
		Output:  result.Output,
		Edges:   edgePairs(result.Edges),
	}
	if flags["--debugger"] != "" {
		transducers := ct.Transducers()
		for i, stage := range result.Stages {
			payload.Stages = append(payload.Stages, stageOutput{
				InLang:  transducers[i].InLang(),
				OutLang: transducers[i].OutLang(),
				Input:   stage.Input,
				Output:  stage.Output,
				Edges:   edgePairs(stage.Edges),
				Traces:  traceOutputs(stage.Traces),
			})
		}
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fail(stderr, err)
	}
	fmt.Fprintln(stdout, string(encoded))
	return exitOK
}

func cmdUpdate(pos []string, flags map[string]string, stdout, stderr io.Writer) int {
	if len(pos) != 0 {
		fmt.Fprintln(stderr, "Usage: g2p update [--in-dir DIR] [--out PATH]")
		return exitUsage
	}
	inDir := flags["--in-dir"]
	if inDir == "" {
		inDir = defaultMappingsDir
	}
	outPath := flags["--out"]
	if outPath == "" {
		outPath = defaultIndexPath
	}

	network, err := g2p.BuildNetworkFromDir(inDir)
	if err != nil {
		return fail(stderr, err)
	}
	if err := g2p.SaveIndex(network, outPath); err != nil {
		return fail(stderr, err)
	}
	fmt.Fprintf(stdout, "Wrote %s: %d languages, %d mappings\n", outPath, len(network.Nodes()), len(network.Mappings()))
	return exitOK
}

type tokenOutput struct {
	Text   string `json:"text"`
	IsWord bool   `json:"is_word"`
}

func cmdTokenize(pos []string, flags map[string]string, stdout, stderr io.Writer) int {
	if len(pos) != 2 {
		fmt.Fprintln(stderr, "Usage: g2p tokenize LANG TEXT [--index PATH]")
		return exitUsage
	}
	lang, text := pos[0], pos[1]

	network, code := loadNetwork(flags, stderr)
	if code != exitOK {
		return code
	}
	tok, err := network.Tokenizer(lang)
	if err != nil {
		return fail(stderr, err)
	}

	tokens := []tokenOutput{}
	for _, t := range tok.Tokenize(text) {
		tokens = append(tokens, tokenOutput{Text: t.Text, IsWord: t.IsWord})
	}
	encoded, err := json.Marshal(tokens)
	if err != nil {
		return fail(stderr, err)
	}
	fmt.Fprintln(stdout, string(encoded))
	return exitOK
}

func cmdGenerateMapping(pos []string, flags map[string]string, stdout, stderr io.Writer) int {
	var in, out string
	switch {
	case len(pos) == 2:
		in, out = pos[0], pos[1]
	case len(pos) == 1 && flags["--ipa"] != "":
		in, out = pos[0], pos[0]+"-ipa"
	default:
		fmt.Fprintln(stderr, "Usage: g2p generate-mapping IN_LANG OUT_LANG [--out PATH] [--index PATH]")
		fmt.Fprintln(stderr, "       g2p generate-mapping IN_LANG --ipa [--out PATH] [--index PATH]")
		return exitUsage
	}

	network, code := loadNetwork(flags, stderr)
	if code != exitOK {
		return code
	}
	m, err := network.GenerateMapping(in, out)
	if err != nil {
		return fail(stderr, err)
	}

	doc := struct {
		Mappings []*g2p.MappingConfig `yaml:"mappings"`
	}{Mappings: []*g2p.MappingConfig{m.Config()}}
	encoded, err := yaml.Marshal(doc)
	if err != nil {
		return fail(stderr, err)
	}

	if path := flags["--out"]; path != "" {
		if err := os.WriteFile(path, encoded, 0o644); err != nil {
			return fail(stderr, err)
		}
		fmt.Fprintf(stdout, "Wrote %s\n", path)
		return exitOK
	}
	fmt.Fprint(stdout, string(encoded))
	return exitOK
}

func cmdShowMappings(pos []string, flags map[string]string, stdout, stderr io.Writer) int {
	if len(pos) != 0 {
		fmt.Fprintln(stderr, "Usage: g2p show-mappings [--verbose] [--index PATH]")
		return exitUsage
	}

	network, code := loadNetwork(flags, stderr)
	if code != exitOK {
		return code
	}
	for _, m := range network.Mappings() {
		fmt.Fprintf(stdout, "%s -> %s: %s\n", m.InLang(), m.OutLang(), m.DisplayName())
		if flags["--verbose"] != "" {
			fmt.Fprintf(stdout, "  type: %s\n", m.Type())
			switch m.Type() {
			case g2p.TypeRule:
				fmt.Fprintf(stdout, "  rules: %d\n", len(m.Rules()))
			case g2p.TypeLexicon:
				fmt.Fprintf(stdout, "  entries: %d\n", len(m.AlignmentLines()))
			}
		}
	}
	return exitOK
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: g2p <command> [args...]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  convert IN_LANG OUT_LANG TEXT [--tok] [--debugger] [--index PATH]")
	fmt.Fprintln(w, "  update [--in-dir DIR] [--out PATH]")
	fmt.Fprintln(w, "  tokenize LANG TEXT [--index PATH]")
	fmt.Fprintln(w, "  generate-mapping IN_LANG OUT_LANG [--ipa] [--out PATH] [--index PATH]")
	fmt.Fprintln(w, "  show-mappings [--verbose] [--index PATH]")
}
