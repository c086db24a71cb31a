package docopt

import (
	"errors"
	"testing"

	"rash/internal/rasherr"
)

const sampleDoc = `# Usage:
#   script.rash [-v] <name> [--count=<n>]
#
# Options:
#   -v, --verbose       increase verbosity
#   --count=<n>         repetition count [default: 1]
`

func TestCompileAndMatchPositional(t *testing.T) {
	spec, err := Compile(sampleDoc)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !spec.HasUsage() {
		t.Fatal("HasUsage() must be true for a doc block with a Usage section")
	}

	result, err := spec.Match([]string{"alice", "--count=3"})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if v, ok := result.MapGet("name"); !ok || v.Str() != "alice" {
		t.Fatalf("expected name=alice, got %v", result)
	}
	opts, ok := result.MapGet("options")
	if !ok {
		t.Fatal("missing options map")
	}
	if v, ok := opts.MapGet("count"); !ok || v.Str() != "3" {
		t.Fatalf("expected options.count=3, got %v", opts)
	}
}

func TestCompileAndMatchDefaultOption(t *testing.T) {
	spec, err := Compile(sampleDoc)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	result, err := spec.Match([]string{"bob"})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	opts, _ := result.MapGet("options")
	if v, ok := opts.MapGet("count"); !ok || v.Str() != "1" {
		t.Fatalf("expected default options.count=1, got %v", opts)
	}
}

func TestMatchNoMatch(t *testing.T) {
	spec, err := Compile(sampleDoc)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	_, err = spec.Match([]string{})
	if err == nil {
		t.Fatal("expected DocoptNoMatch for argv missing the required positional")
	}
	if rasherr.KindOf(err) != rasherr.KindDocoptNoMatch {
		t.Fatalf("expected KindDocoptNoMatch, got %v", rasherr.KindOf(err))
	}
}

func TestHelpRequested(t *testing.T) {
	spec, err := Compile(sampleDoc)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	_, err = spec.Match([]string{"--help"})
	if !errors.Is(err, ErrHelpRequested) {
		t.Fatalf("expected ErrHelpRequested, got %v", err)
	}
}
