package docopt

import (
	"strings"

	"rash/internal/rasherr"
	"rash/internal/value"
)

// UsageSpec is the compiled form of a doc block's Usage/Options section
// (spec §3's UsageSpec).
type UsageSpec struct {
	raw        string
	candidates []candidateWithSource
	options    *OptionTable
}

type candidateWithSource struct {
	cand  candidate
	order int
}

// HasUsage reports whether a doc block produced a usable Usage section. An
// absent or Usage-less doc block yields UsageSpec = nil upstream (spec
// §4.1 step 3); callers should not construct a zero UsageSpec directly.
func (u *UsageSpec) HasUsage() bool { return u != nil && len(u.candidates) > 0 }

// RawDoc returns the original doc block text, emitted verbatim for --help.
func (u *UsageSpec) RawDoc() string { return u.raw }

// Compile parses a doc block (the comment lines preceding a script's YAML
// body) into a UsageSpec, per spec §4.2 steps 1–3. An empty or Usage-less
// doc block is not an error: it yields a nil UsageSpec, meaning the script
// takes no declared CLI.
func Compile(docBlock string) (*UsageSpec, error) {
	usageLines := splitUsageSection(docBlock)
	if len(usageLines) == 0 {
		return nil, nil
	}
	optionLines := splitOptionsSection(docBlock)
	opts, err := parseOptionsSection(optionLines)
	if err != nil {
		return nil, rasherr.Wrap(rasherr.KindDocoptMalformed, "docopt", "", "options section: %v", err)
	}

	var allCands []candidateWithSource
	order := 0
	for _, line := range usageLines {
		tree, err := parseUsageLine(line, opts)
		if err != nil {
			return nil, rasherr.Wrap(rasherr.KindDocoptMalformed, "docopt", "", "usage line %q: %v", line, err)
		}
		for _, c := range flatten(tree) {
			allCands = append(allCands, candidateWithSource{cand: c, order: order})
			order++
		}
	}
	return &UsageSpec{raw: docBlock, candidates: allCands, options: opts}, nil
}

// Match parses argv against the compiled usage patterns, implementing the
// full contract of spec §4.2: `--help`/`-h` short-circuits, `--` anchors
// positional processing, and the winning candidate populates the result
// mapping of positionals, command flags, and grouped options.
//
// HelpRequested is returned as a distinguished error the caller checks for
// with errors.Is before treating the call as a normal failure; the CLI
// layer prints UsageSpec.RawDoc() and exits 0 in that case (spec §4.2:
// "emits the original doc block to standard output and exits with status 0
// before the interpreter runs").
func (u *UsageSpec) Match(argv []string) (value.Value, error) {
	if helpRequested(argv) {
		return value.Null(), ErrHelpRequested
	}

	bare, optOccurrences, err := u.splitOptions(argv)
	if err != nil {
		return value.Null(), rasherr.Wrap(rasherr.KindDocoptMalformed, "docopt", "", "%v", err)
	}

	type scored struct {
		result matchResult
		order  int
	}
	var matches []scored
	for _, cs := range u.candidates {
		res, ok := matchCandidate(cs.cand, bare)
		if ok {
			matches = append(matches, scored{result: res, order: cs.order})
		}
	}
	if len(matches) == 0 {
		return value.Null(), rasherr.New(rasherr.KindDocoptNoMatch, "docopt", "",
			rasherr.ErrDocoptNoMatch)
	}

	best := matches[0]
	ambiguous := false
	for _, m := range matches[1:] {
		if better(m.result, best.result) {
			best = m
			ambiguous = false
		} else if !better(best.result, m.result) && m.result.loose == best.result.loose && m.result.wildcards == best.result.wildcards {
			ambiguous = true
		}
	}
	if ambiguous {
		return value.Null(), rasherr.New(rasherr.KindDocoptAmbiguous, "docopt", "",
			rasherr.ErrDocoptAmbiguous)
	}

	return buildResultValue(best.result, optOccurrences, u.options), nil
}

// splitOptions walks argv, resolving every `-x`/`--long` occurrence against
// the option table (handling `=`-joined long values, space-separated short
// values, and stacked short flags), honoring `--` as the anchor that ends
// option processing, and returns the remaining bare (positional/command)
// tokens plus the resolved option occurrences.
func (u *UsageSpec) splitOptions(argv []string) (bare []string, occ map[string]string, err error) {
	occ = make(map[string]string)
	seenAnchor := false
	for i := 0; i < len(argv); i++ {
		tok := argv[i]
		if seenAnchor {
			bare = append(bare, tok)
			continue
		}
		if tok == "--" {
			seenAnchor = true
			continue
		}
		if !strings.HasPrefix(tok, "-") || tok == "-" {
			bare = append(bare, tok)
			continue
		}
		if strings.HasPrefix(tok, "--") {
			name, val, hasVal := strings.Cut(tok, "=")
			opt, known := u.options.lookup(name)
			if known && opt.TakesValue {
				if !hasVal {
					if i+1 >= len(argv) {
						return nil, nil, errMissingOptionValue(name)
					}
					i++
					val = argv[i]
				}
				occ[opt.Canonical] = val
			} else {
				occ[canonicalOrFallback(u.options, name)] = "true"
			}
			continue
		}
		// Short option(s): "-v", "-vv" (bundled flags), or "-u VALUE".
		letters := tok[1:]
		for li := 0; li < len(letters); li++ {
			alias := "-" + string(letters[li])
			opt, known := u.options.lookup(alias)
			if known && opt.TakesValue {
				var val string
				if li+1 < len(letters) {
					val = letters[li+1:]
				} else {
					if i+1 >= len(argv) {
						return nil, nil, errMissingOptionValue(alias)
					}
					i++
					val = argv[i]
				}
				occ[opt.Canonical] = val
				break
			}
			occ[canonicalOrFallback(u.options, alias)] = "true"
		}
	}
	return bare, occ, nil
}

func canonicalOrFallback(t *OptionTable, alias string) string {
	if o, ok := t.lookup(alias); ok {
		return o.Canonical
	}
	trimmed := strings.TrimLeft(alias, "-")
	return strings.ReplaceAll(trimmed, "-", "_")
}

func errMissingOptionValue(name string) error {
	return rasherr.Wrap(rasherr.KindDocoptMalformed, "docopt", "", "option %q requires a value", name)
}

func helpRequested(argv []string) bool {
	for _, a := range argv {
		if a == "--" {
			return false
		}
		if a == "--help" || a == "-h" {
			return true
		}
	}
	return false
}

// ErrHelpRequested is returned by Match when argv contains --help/-h.
var ErrHelpRequested = rasherr.New(rasherr.KindCliInvalid, "docopt", "", errHelpSentinel)

type helpSentinelErr struct{}

func (helpSentinelErr) Error() string { return "help requested" }

var errHelpSentinel = helpSentinelErr{}

// buildResultValue assembles the contract mapping of spec §4.2: positional
// names at top level (sequences for repeated atoms, strings for single
// ones), command words as top-level booleans, and options grouped under
// "options" (value or boolean, short alias duplicated).
func buildResultValue(m matchResult, optOccurrences map[string]string, table *OptionTable) value.Value {
	out := value.NewMap()
	for name, vals := range m.binds {
		if len(vals) == 1 {
			out = out.MapSet(name, value.String(vals[0]))
		} else {
			seq := make([]value.Value, len(vals))
			for i, v := range vals {
				seq[i] = value.String(v)
			}
			out = out.MapSet(name, value.Seq(seq...))
		}
	}
	for name := range m.cmds {
		out = out.MapSet(name, value.Bool(true))
	}

	options := value.NewMap()
	for _, opt := range table.all {
		v, given := optOccurrences[opt.Canonical]
		switch {
		case given && opt.TakesValue:
			options = options.MapSet(opt.Canonical, value.String(v))
		case given:
			options = options.MapSet(opt.Canonical, value.Bool(true))
		case opt.TakesValue && opt.HasDefault:
			options = options.MapSet(opt.Canonical, value.String(opt.Default))
		case opt.TakesValue:
			options = options.MapSet(opt.Canonical, value.Null())
		default:
			options = options.MapSet(opt.Canonical, value.Bool(false))
		}
		if opt.Short != "" {
			shortKey := strings.TrimPrefix(opt.Short, "-")
			if v, given := optOccurrences[opt.Canonical]; given {
				if opt.TakesValue {
					options = options.MapSet(shortKey, value.String(v))
				} else {
					options = options.MapSet(shortKey, value.Bool(true))
				}
			}
		}
	}
	out = out.MapSet("options", options)
	return out
}
