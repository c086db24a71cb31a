// Package rashtemplate adapts github.com/flosch/pongo2/v6 into the engine's
// Jinja-dialect template contract (spec §4.3): an `omit` identifier, a set of
// custom filters, a `lookup` dispatcher, and force_string-aware rendering.
//
// The adapter shape — a thin wrapper translating the host's own dynamic
// value type to and from the templating engine's native representation,
// with a single escape/restore-style seam for values the engine must treat
// specially — follows the teacher's own `dsl/template.go` adapter, whose
// `applyTemplates`/`escapeStepRefs`/`restoreStepRefs` trio does the same job
// for Go's text/template. Here the "value the engine must treat specially"
// is the Omit sentinel rather than a step-output reference.
package rashtemplate

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"rash/internal/rasherr"
	"rash/internal/value"
)

// reRenderBound caps the when/changed_when convergence loop (spec §9 Design
// Notes: "bounded by a small constant, e.g., 3").
const reRenderBound = 3

var registerOnce sync.Once

// Engine renders Jinja-dialect templates against a variable frame, with the
// filter/lookup contract of spec §4.3.
type Engine struct {
	lookups map[string]LookupFunc
}

// LookupFunc implements one named lookup: (name, *args, **kwargs) -> Value.
// args are already-rendered positional Values; kwargs are already-rendered
// keyword Values.
type LookupFunc func(args []value.Value, kwargs map[string]value.Value) (value.Value, error)

// New constructs an Engine with the core lookups registered (spec §4.3):
// env, file, pipe, password, vault, passwordstore, find. The find lookup
// delegates to a caller-supplied implementation since internal/modules
// owns the find module and rashtemplate must not import it (it would be a
// cycle: modules depend on templates, not the reverse).
func New(findLookup LookupFunc) *Engine {
	registerOnce.Do(registerFilters)
	e := &Engine{lookups: map[string]LookupFunc{
		"env":           lookupEnv,
		"file":          lookupFile,
		"pipe":          lookupPipe,
		"password":      lookupPassword,
		"vault":         lookupVault,
		"passwordstore": lookupPasswordstore,
	}}
	if findLookup != nil {
		e.lookups["find"] = findLookup
	}
	return e
}

// omitSentinel is the Go-native stand-in for value.Omit() inside a pongo2
// execution context. pongo2 evaluates context values through reflection; a
// distinguishable named type lets the `default` filter detect it without
// pongo2 itself knowing anything about rash's Value union.
type omitSentinel struct{}

func (omitSentinel) String() string { return "" }

// omitValue is the single shared instance bound to the `omit` identifier.
var omitValue = omitSentinel{}

// Render renders tpl against frame. When forceString is true the result is
// always a value.String of the rendered text (used for ordinary string
// substitution inside parameter mappings). When forceString is false the
// *evaluated expression value* is preserved where tpl is a single bare
// `{{ expr }}` expression spanning the whole template, which is the shape
// `when`, `loop`, and `vars` templates take (spec §4.3).
func (e *Engine) Render(tpl string, frame map[string]value.Value, forceString bool) (value.Value, error) {
	ctx := e.buildContext(frame)

	if !forceString {
		if expr, ok := bareExpression(tpl); ok {
			v, err := e.evalExpression(expr, ctx, frame)
			if err != nil {
				return value.Null(), err
			}
			return v, nil
		}
	}

	if err := checkUndefined(tpl, frame); err != nil {
		return value.Null(), err
	}

	t, err := pongo2.FromString(tpl)
	if err != nil {
		return value.Null(), rasherr.Wrap(rasherr.KindTemplateError, "template", "", "parse: %v", err)
	}
	out, err := t.Execute(pongo2.Context(ctx))
	if err != nil {
		return value.Null(), rasherr.Wrap(rasherr.KindTemplateError, "template", "", "render: %v", err)
	}
	return value.String(out), nil
}

// EvalExpr evaluates expr as a bare Jinja expression — with or without the
// `{{ }}` delimiters, so both `when: "env.MODE == 'x'"` and
// `when: "{{ env.MODE == 'x' }}"` are accepted (spec §4.3's own example,
// `when: "env | get('X')"`, has no delimiters). The un-stringified Value
// is returned, force_string=false per the when/loop/vars contract.
func (e *Engine) EvalExpr(expr string, frame map[string]value.Value) (value.Value, error) {
	ctx := e.buildContext(frame)
	inner, ok := bareExpression(expr)
	if !ok {
		inner = strings.TrimSpace(expr)
	}
	return e.evalExpression(inner, ctx, frame)
}

// RenderWhen renders a when/changed_when expression, re-rendering the
// result up to reRenderBound times while it is itself a Jinja expression
// string, then coerces via value.Value.Truthy (spec §4.3: "A string that
// reads as a Jinja expression is re-rendered until it stabilises").
func (e *Engine) RenderWhen(tpl string, frame map[string]value.Value) (bool, error) {
	cur := tpl
	var last value.Value
	for i := 0; i < reRenderBound; i++ {
		v, err := e.EvalExpr(cur, frame)
		if err != nil {
			return false, err
		}
		last = v
		if !v.IsString() {
			return v.Truthy(), nil
		}
		s := v.Str()
		if !looksLikeExpression(s) || s == cur {
			return v.Truthy(), nil
		}
		cur = s
	}
	return false, rasherr.New(rasherr.KindTemplateError, "template", "",
		fmt.Errorf("%w: %q did not converge after %d renders (last=%q)", rasherr.ErrRenderLoopBound, tpl, reRenderBound, last.String()))
}

// RenderDeep walks a parameter Value tree, rendering every string leaf as a
// template (force_string=false) and removing any mapping key whose rendered
// value is Omit (spec §4.3/§9 "strip_omit(render_deep(...))").
func (e *Engine) RenderDeep(v value.Value, frame map[string]value.Value) (value.Value, error) {
	switch v.Kind() {
	case value.KindString:
		return e.Render(v.Str(), frame, false)
	case value.KindSeq:
		elems := v.SeqVal()
		out := make([]value.Value, 0, len(elems))
		for _, el := range elems {
			rv, err := e.RenderDeep(el, frame)
			if err != nil {
				return value.Null(), err
			}
			if rv.IsOmit() {
				continue
			}
			out = append(out, rv)
		}
		return value.Seq(out...), nil
	case value.KindMap:
		out := value.NewMap()
		for _, k := range v.MapKeys() {
			ev, _ := v.MapGet(k)
			rv, err := e.RenderDeep(ev, frame)
			if err != nil {
				return value.Null(), err
			}
			if rv.IsOmit() {
				continue
			}
			out = out.MapSet(k, rv)
		}
		return out, nil
	default:
		return v, nil
	}
}

func (e *Engine) buildContext(frame map[string]value.Value) pongo2.Context {
	ctx := pongo2.Context{"omit": omitValue}
	for k, v := range frame {
		ctx[k] = toGo(v)
	}
	ctx["lookup"] = func(name string, args ...any) (any, error) {
		return e.callLookup(name, args)
	}
	return ctx
}

func (e *Engine) callLookup(name string, rawArgs []any) (any, error) {
	fn, ok := e.lookups[name]
	if !ok {
		return nil, fmt.Errorf("unknown lookup %q", name)
	}
	var args []value.Value
	kwargs := map[string]value.Value{}
	for _, a := range rawArgs {
		if kv, ok := a.(map[string]any); ok {
			for k, v := range kv {
				kwargs[k] = fromGo(v)
			}
			continue
		}
		args = append(args, fromGo(a))
	}
	v, err := fn(args, kwargs)
	if err != nil {
		return nil, err
	}
	return toGo(v), nil
}

// evalExpression evaluates a bare `expr` (the contents of a `{{ expr }}`
// that spans the whole template) and returns the un-stringified Value,
// detecting the omit sentinel and Go-native bool/number/nil results.
//
// pongo2.Template.Execute always renders to a string, so the raw evaluated
// value is captured through a context-local function invoked as the
// expression's outermost call rather than read back from the rendered text.
func (e *Engine) evalExpression(expr string, ctx pongo2.Context, frame map[string]value.Value) (value.Value, error) {
	if err := scanIdentifiers(expr, frame); err != nil {
		return value.Null(), err
	}

	var captured any
	capturedSet := false
	local := pongo2.Context{}
	for k, v := range ctx {
		local[k] = v
	}
	local["__rash_capture"] = func(v any) any {
		captured = v
		capturedSet = true
		return v
	}
	wrapped := "{{ __rash_capture(" + expr + ") }}"
	t, err := pongo2.FromString(wrapped)
	if err != nil {
		return value.Null(), rasherr.Wrap(rasherr.KindTemplateError, "template", "", "parse expression: %v", err)
	}
	if _, err := t.Execute(local); err != nil {
		return value.Null(), rasherr.Wrap(rasherr.KindTemplateError, "template", "", "eval expression: %v", err)
	}
	if !capturedSet {
		return value.Null(), nil
	}
	if _, ok := captured.(omitSentinel); ok {
		return value.Omit(), nil
	}
	return fromGo(captured), nil
}

// bareExpression reports whether tpl, trimmed, is exactly one `{{ ... }}`
// expression with no surrounding literal text or statement tags.
func bareExpression(tpl string) (expr string, ok bool) {
	s := strings.TrimSpace(tpl)
	if len(s) < 4 || !strings.HasPrefix(s, "{{") || !strings.HasSuffix(s, "}}") {
		return "", false
	}
	inner := s[2 : len(s)-2]
	if strings.ContainsAny(inner, "{") && (strings.Contains(inner, "{{") || strings.Contains(inner, "{%")) {
		return "", false
	}
	return strings.TrimSpace(inner), true
}

func looksLikeExpression(s string) bool {
	t := strings.TrimSpace(s)
	return len(t) >= 4 && (strings.Contains(t, "{{") || strings.Contains(t, "{%"))
}

var (
	blockRe     = regexp.MustCompile(`\{\{.*?\}\}|\{%.*?%\}`)
	identRe     = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	stringLitRe = regexp.MustCompile(`'[^']*'|"[^"]*"`)
)

// jinjaReserved holds the bare words evalExpression/checkUndefined must
// never treat as a frame lookup: language keywords, literals, and the two
// identifiers buildContext always provides itself.
var jinjaReserved = map[string]bool{
	"and": true, "or": true, "not": true, "in": true, "is": true,
	"if": true, "else": true, "elif": true, "endif": true,
	"for": true, "endfor": true, "set": true, "with": true, "without": true,
	"true": true, "false": true, "none": true,
	"True": true, "False": true, "None": true,
	"defined": true, "undefined": true,
	"omit": true, "lookup": true,
}

// checkUndefined scans every `{{ }}`/`{% %}` block in tpl for a top-level
// identifier absent from frame (spec §4.3: "Undefined-variable access fails
// the render with TemplateUndefined").
func checkUndefined(tpl string, frame map[string]value.Value) error {
	for _, block := range blockRe.FindAllString(tpl, -1) {
		if err := scanIdentifiers(block, frame); err != nil {
			return err
		}
	}
	return nil
}

// scanIdentifiers looks for a bare variable reference in body — a single
// expression (no surrounding `{{ }}` required) or a block matched by
// checkUndefined — that isn't bound in frame. A reference guarded by the
// `default` filter anywhere in body is exempt, matching the documented
// guard against this error.
func scanIdentifiers(body string, frame map[string]value.Value) error {
	if strings.Contains(body, "default(") {
		return nil
	}
	clean := stringLitRe.ReplaceAllString(body, `""`)
	for _, loc := range identRe.FindAllStringIndex(clean, -1) {
		start, end := loc[0], loc[1]
		name := clean[start:end]
		if jinjaReserved[name] {
			continue
		}
		if prev := prevNonSpace(clean, start); prev == '.' || prev == '|' {
			continue
		}
		next, nextAt := nextNonSpace(clean, end)
		if next == '(' {
			continue // function/lookup call name
		}
		if next == '=' && (nextAt+1 >= len(clean) || clean[nextAt+1] != '=') {
			continue // keyword-argument name, e.g. lookup('find', paths=x)
		}
		if _, ok := frame[name]; !ok {
			return rasherr.New(rasherr.KindTemplateUndefined, "template", name,
				fmt.Errorf("%w: %q", rasherr.ErrUndefinedVariable, name))
		}
	}
	return nil
}

func prevNonSpace(s string, idx int) byte {
	for i := idx - 1; i >= 0; i-- {
		if s[i] == ' ' || s[i] == '\t' {
			continue
		}
		return s[i]
	}
	return 0
}

// nextNonSpace returns the next non-space byte at or after idx, and its
// index, or (0, len(s)) if only whitespace remains.
func nextNonSpace(s string, idx int) (byte, int) {
	for i := idx; i < len(s); i++ {
		if s[i] == ' ' || s[i] == '\t' {
			continue
		}
		return s[i], i
	}
	return 0, len(s)
}
