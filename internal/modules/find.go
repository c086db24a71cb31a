package modules

import (
	"io/fs"
	"path/filepath"
	"strings"

	"rash/internal/module"
	"rash/internal/value"
)

// Find implements the `find` module (spec §4.5 table, supplemented by
// original_source/'s broader option set): enumerate filesystem entries
// under one or more paths, filtered by glob patterns, file type, recursion,
// and hidden-file visibility. Read-only: `changed` is always false.
type Find struct{}

func (Find) Execute(params value.Value, global module.GlobalParams) (module.ModuleResult, error) {
	paths := stringsField(params, "paths")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	patterns := stringsField(params, "patterns")
	recurse := boolField(params, "recurse", false)
	fileType := stringField(params, "file_type", "file")
	hidden := boolField(params, "hidden", false)

	var matches []value.Value
	for _, root := range paths {
		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != root && !recurse && d.IsDir() {
				return fs.SkipDir
			}
			if !hidden && strings.HasPrefix(d.Name(), ".") && path != root {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if !matchesFileType(d, fileType) {
				return nil
			}
			if len(patterns) > 0 && !matchesAnyPattern(d.Name(), patterns) {
				return nil
			}
			if path == root {
				return nil
			}
			matches = append(matches, value.String(path))
			return nil
		})
		if walkErr != nil {
			return module.ModuleResult{}, module.WrapFailure("find", params, walkErr)
		}
	}

	extra := value.Map(value.KV{Key: "files", Val: value.Seq(matches...)})
	return module.ModuleResult{Changed: false, Extra: extra}, nil
}

// FindLookup adapts Find to the template engine's `lookup('find', path,
// patterns=..., recurse=..., file_type=..., hidden=...)` form (spec §4.3
// names `find` among the built-in lookups; internal/rashtemplate cannot
// import internal/modules directly, so New takes this as a caller-supplied
// LookupFunc — see rashtemplate.New's doc comment).
func FindLookup(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	params := value.NewMap()
	if len(args) > 0 {
		params = params.MapSet("paths", args[0])
	}
	for k, v := range kwargs {
		params = params.MapSet(k, v)
	}
	result, err := (Find{}).Execute(params, module.GlobalParams{})
	if err != nil {
		return value.Null(), err
	}
	files, _ := result.Extra.MapGet("files")
	return files, nil
}

func matchesFileType(d fs.DirEntry, fileType string) bool {
	switch fileType {
	case "directory":
		return d.IsDir()
	case "any":
		return true
	default:
		return !d.IsDir()
	}
}

func matchesAnyPattern(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}

func stringsField(params value.Value, key string) []string {
	v, ok := params.MapGet(key)
	if !ok {
		return nil
	}
	if v.IsString() {
		return []string{v.Str()}
	}
	if v.IsSeq() {
		out := make([]string, 0, len(v.SeqVal()))
		for _, e := range v.SeqVal() {
			out = append(out, e.String())
		}
		return out
	}
	return nil
}

func boolField(params value.Value, key string, fallback bool) bool {
	if v, ok := params.MapGet(key); ok {
		return v.Truthy()
	}
	return fallback
}
