// Package script implements the script loader (C5): splitting a rash
// script file into its doc block (fed to the docopt compiler) and its YAML
// task body, and parsing that body into a TaskProgram.
//
// Grounded on the teacher's dslyaml.go: YAML is decoded generically through
// yaml.Node rather than fixed Go structs wherever the shape is polymorphic
// (here, task mappings — one of several structural/module keys — rather
// than dslyaml's command/uses/with scalar-or-sequence fields).
package script

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"rash/internal/docopt"
	"rash/internal/rasherr"
)

// Script is the loader's output (spec §3's Script).
type Script struct {
	Tasks TaskProgram
	Usage *docopt.UsageSpec
	Path  string
	Dir   string
}

// Load reads, decodes, and parses the script file at path (spec §4.1).
func Load(path string) (*Script, error) {
	raw, err := readFileFunc(path)
	if err != nil {
		return nil, rasherr.Wrap(rasherr.KindScriptSyntax, "load", path, "read: %v", err)
	}
	return parse(raw, path)
}

// LoadInline parses source as a script body, using virtualPath only for
// `rash.path`/`rash.dir` and diagnostics (the `-s`/`--script` CLI form,
// spec §6).
func LoadInline(source, virtualPath string) (*Script, error) {
	return parse([]byte(source), virtualPath)
}

// readFileFunc is a package variable so tests can substitute a fake
// filesystem without touching the real one.
var readFileFunc = defaultReadFile

func parse(raw []byte, path string) (*Script, error) {
	if !utf8.Valid(raw) {
		return nil, rasherr.New(rasherr.KindScriptSyntax, "load", path, fmt.Errorf("invalid UTF-8"))
	}
	text := string(raw)

	// Step 2: drop a shebang line from parsing, but it does not affect
	// doc-block/YAML partitioning beyond being skipped entirely.
	if strings.HasPrefix(text, "#!") {
		if idx := strings.IndexByte(text, '\n'); idx >= 0 {
			text = text[idx+1:]
		} else {
			text = ""
		}
	}

	docBlock, yamlBody := partitionDocBlock(text)

	var usage *docopt.UsageSpec
	if strings.TrimSpace(docBlock) != "" {
		u, err := docopt.Compile(docBlock)
		if err != nil {
			return nil, err
		}
		usage = u
	}

	tasks, err := parseTaskBody(yamlBody, path)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &Script{
		Tasks: tasks,
		Usage: usage,
		Path:  abs,
		Dir:   filepath.Dir(abs),
	}, nil
}

// partitionDocBlock splits off the contiguous leading block of `#`-prefixed
// lines (spec §4.1 step 3: "Partition the head of the file into a *doc
// block*: contiguous comment lines starting from the first non-empty
// line"). The first line that is not a comment, a blank line included,
// ends the doc block.
func partitionDocBlock(text string) (docBlock, rest string) {
	lines := strings.Split(text, "\n")
	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	start := i
	for i < len(lines) && strings.HasPrefix(strings.TrimLeft(lines[i], " \t"), "#") {
		i++
	}
	docBlock = strings.Join(lines[start:i], "\n")
	rest = strings.Join(lines[i:], "\n")
	return docBlock, rest
}

// parseTaskBody decodes the YAML body into a TaskProgram (spec §4.1 step
// 4: "the top-level node must be a sequence").
func parseTaskBody(yamlBody string, path string) (TaskProgram, error) {
	if strings.TrimSpace(yamlBody) == "" {
		return nil, nil
	}
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(yamlBody), &doc); err != nil {
		return nil, rasherr.Wrap(rasherr.KindScriptSyntax, "load", path, "yaml: %v", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.SequenceNode {
		return nil, rasherr.New(rasherr.KindScriptSyntax, "load", path,
			fmt.Errorf("top-level YAML node must be a sequence of tasks"))
	}
	return parseTaskSequence(root, path)
}

func parseTaskSequence(seq *yaml.Node, path string) (TaskProgram, error) {
	tasks := make(TaskProgram, 0, len(seq.Content))
	for _, item := range seq.Content {
		t, err := parseTaskNode(item, path)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func parseTaskNode(n *yaml.Node, path string) (Task, error) {
	if n.Kind != yaml.MappingNode {
		return Task{}, rasherr.New(rasherr.KindScriptSyntax, "load", path,
			fmt.Errorf("each task must be a YAML mapping"))
	}

	var t Task
	var moduleKeys []string

	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode := n.Content[i]
		valNode := n.Content[i+1]
		key := keyNode.Value

		switch {
		case key == "name":
			t.Name = valNode.Value
		case key == "when":
			v, err := decodeValue(valNode)
			if err != nil {
				return Task{}, rasherr.Wrap(rasherr.KindScriptSyntax, "load", path, "when: %v", err)
			}
			t.When, t.HasWhen = v, true
		case key == "loop":
			v, err := decodeValue(valNode)
			if err != nil {
				return Task{}, rasherr.Wrap(rasherr.KindScriptSyntax, "load", path, "loop: %v", err)
			}
			t.Loop, t.HasLoop = v, true
		case key == "register":
			t.Register = valNode.Value
		case key == "vars":
			v, err := decodeValue(valNode)
			if err != nil {
				return Task{}, rasherr.Wrap(rasherr.KindScriptSyntax, "load", path, "vars: %v", err)
			}
			t.Vars = v
		case key == "ignore_errors":
			v, err := decodeValue(valNode)
			if err != nil {
				return Task{}, rasherr.Wrap(rasherr.KindScriptSyntax, "load", path, "ignore_errors: %v", err)
			}
			t.IgnoreErrors, t.HasIgnoreErrors = v, true
		case key == "changed_when":
			v, err := decodeValue(valNode)
			if err != nil {
				return Task{}, rasherr.Wrap(rasherr.KindScriptSyntax, "load", path, "changed_when: %v", err)
			}
			t.ChangedWhen, t.HasChangedWhen = v, true
		case key == "check_mode":
			v, err := decodeValue(valNode)
			if err != nil {
				return Task{}, rasherr.Wrap(rasherr.KindScriptSyntax, "load", path, "check_mode: %v", err)
			}
			t.CheckMode, t.HasCheckMode = v, true
		case key == "become":
			v, err := decodeValue(valNode)
			if err != nil {
				return Task{}, rasherr.Wrap(rasherr.KindScriptSyntax, "load", path, "become: %v", err)
			}
			t.Become, t.HasBecome = v, true
		case key == "become_user":
			t.BecomeUser = valNode.Value
		case key == keyBlock:
			sub, err := parseTaskSequence(valNode, path)
			if err != nil {
				return Task{}, err
			}
			t.Block = sub
			moduleKeys = append(moduleKeys, key)
		case key == keyInclude:
			t.IncludeFile = valNode.Value
			moduleKeys = append(moduleKeys, key)
		case key == "rescue":
			sub, err := parseTaskSequence(valNode, path)
			if err != nil {
				return Task{}, err
			}
			t.Rescue = sub
		case key == "always":
			sub, err := parseTaskSequence(valNode, path)
			if err != nil {
				return Task{}, err
			}
			t.Always = sub
		default:
			v, err := decodeValue(valNode)
			if err != nil {
				return Task{}, rasherr.Wrap(rasherr.KindScriptSyntax, "load", path, "%s: %v", key, err)
			}
			t.Module = key
			t.ModuleParams = v
			moduleKeys = append(moduleKeys, key)
		}
	}

	if len(moduleKeys) != 1 {
		return Task{}, rasherr.New(rasherr.KindScriptSyntax, "load", path,
			fmt.Errorf("%w: task %q declares %d module/structural keys (%v)", rasherr.ErrDuplicateModuleKey, t.Name, len(moduleKeys), moduleKeys))
	}
	if moduleKeys[0] != keyBlock && t.Rescue != nil {
		return Task{}, rasherr.New(rasherr.KindScriptSyntax, "load", path,
			fmt.Errorf("rescue is only valid on a block task"))
	}
	if moduleKeys[0] != keyBlock && t.Always != nil {
		return Task{}, rasherr.New(rasherr.KindScriptSyntax, "load", path,
			fmt.Errorf("always is only valid on a block task"))
	}
	return t, nil
}
