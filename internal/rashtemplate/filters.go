package rashtemplate

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/flosch/pongo2/v6"
)

// registerFilters installs the filter additions named in spec §4.3:
// split, join, replace, default (omit-aware), last, first, tojson, lines,
// string. Filters pongo2 already ships under the same name (split, join,
// default, last, first) are replaced rather than registered. Called once
// via registerOnce since pongo2's filter table is package-global.
func registerFilters() {
	must := func(name string, fn pongo2.FilterFunction) {
		register := pongo2.RegisterFilter
		if pongo2.FilterExists(name) {
			register = pongo2.ReplaceFilter
		}
		if err := register(name, fn); err != nil {
			panic("rashtemplate: register filter " + name + ": " + err.Error())
		}
	}

	must("split", filterSplit)
	must("join", filterJoin)
	must("replace", filterReplace)
	must("default", filterDefault)
	must("last", filterLast)
	must("first", filterFirst)
	must("tojson", filterToJSON)
	must("lines", filterLines)
	must("string", filterString)
}

func filterSplit(in, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	sep := param.String()
	if param.IsNil() {
		sep = " "
	}
	parts := strings.Split(in.String(), sep)
	out := make([]any, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return pongo2.AsValue(out), nil
}

func filterJoin(in, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	sep := param.String()
	var parts []string
	if in.CanSlice() {
		for i := 0; i < in.Len(); i++ {
			parts = append(parts, in.Index(i).String())
		}
	}
	return pongo2.AsValue(strings.Join(parts, sep)), nil
}

func filterReplace(in, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	// param is expected to be a two-element sequence: [old, new].
	if !param.CanSlice() || param.Len() != 2 {
		return nil, &pongo2.Error{Sender: "filter:replace", OrigError: errors.New("replace expects a [old, new] pair")}
	}
	oldS := param.Index(0).String()
	newS := param.Index(1).String()
	return pongo2.AsValue(strings.ReplaceAll(in.String(), oldS, newS)), nil
}

// filterDefault implements the omit-aware `default` filter: when the input
// is undefined/nil/the omit sentinel, the fallback (param) is used instead.
// Critically, `default(omit)` must propagate the Omit sentinel itself
// rather than stringifying it (spec §3, §9 scenario S5).
func filterDefault(in, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if isUndefinedOrOmit(in) {
		return param, nil
	}
	return in, nil
}

func isUndefinedOrOmit(v *pongo2.Value) bool {
	if v == nil || v.IsNil() {
		return true
	}
	if _, ok := v.Interface().(omitSentinel); ok {
		return true
	}
	return false
}

func filterLast(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if !in.CanSlice() || in.Len() == 0 {
		return pongo2.AsValue(nil), nil
	}
	return in.Index(in.Len() - 1), nil
}

func filterFirst(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if !in.CanSlice() || in.Len() == 0 {
		return pongo2.AsValue(nil), nil
	}
	return in.Index(0), nil
}

func filterToJSON(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	b, err := json.Marshal(in.Interface())
	if err != nil {
		return nil, &pongo2.Error{Sender: "filter:tojson", OrigError: err}
	}
	return pongo2.AsValue(string(b)), nil
}

func filterLines(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	lines := strings.Split(in.String(), "\n")
	out := make([]any, len(lines))
	for i, l := range lines {
		out[i] = l
	}
	return pongo2.AsValue(out), nil
}

func filterString(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(in.String()), nil
}
