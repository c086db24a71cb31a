package main

import "testing"

func TestSplitKVSplitsOnFirstEquals(t *testing.T) {
	key, val, ok := splitKV("FOO=bar=baz")
	if !ok || key != "FOO" || val != "bar=baz" {
		t.Fatalf("splitKV = %q, %q, %v", key, val, ok)
	}
}

func TestSplitKVRejectsMissingEquals(t *testing.T) {
	if _, _, ok := splitKV("FOO"); ok {
		t.Fatal("expected ok=false for a pair with no '='")
	}
}

func TestParseEnvOverridesBuildsMap(t *testing.T) {
	env, err := parseEnvOverrides([]string{"A=1", "B=2"})
	if err != nil {
		t.Fatalf("parseEnvOverrides: %v", err)
	}
	if env["A"] != "1" || env["B"] != "2" {
		t.Fatalf("env = %v", env)
	}
}

func TestParseEnvOverridesRejectsMalformedPair(t *testing.T) {
	if _, err := parseEnvOverrides([]string{"nokey"}); err == nil {
		t.Fatal("expected an error for a malformed -e pair")
	}
}

func TestBuildOptionsSplitsScriptPathFromArgs(t *testing.T) {
	resetFlags()
	opts, err := buildOptions([]string{"deploy.rash", "prod", "--force"})
	if err != nil {
		t.Fatalf("buildOptions: %v", err)
	}
	if opts.ScriptPath != "deploy.rash" {
		t.Fatalf("ScriptPath = %q", opts.ScriptPath)
	}
	if len(opts.ScriptArgs) != 2 || opts.ScriptArgs[0] != "prod" {
		t.Fatalf("ScriptArgs = %v", opts.ScriptArgs)
	}
}

func TestBuildOptionsRequiresScriptPathOrInline(t *testing.T) {
	resetFlags()
	if _, err := buildOptions(nil); err == nil {
		t.Fatal("expected an error when no script path and no inline script are given")
	}
}

func TestBuildOptionsInlineScriptUsesFirstArgAsVirtualPath(t *testing.T) {
	resetFlags()
	flagInlineScript = "- name: noop\n  debug: {msg: hi}\n"
	opts, err := buildOptions([]string{"virtual.rash", "x"})
	if err != nil {
		t.Fatalf("buildOptions: %v", err)
	}
	if opts.ScriptPath != "virtual.rash" {
		t.Fatalf("ScriptPath = %q, want virtual.rash", opts.ScriptPath)
	}
	if len(opts.ScriptArgs) != 1 || opts.ScriptArgs[0] != "x" {
		t.Fatalf("ScriptArgs = %v", opts.ScriptArgs)
	}
}

// resetFlags clears package-level flag state between tests, since the
// cobra flags are bound to package vars rather than re-created per test.
func resetFlags() {
	flagInlineScript = ""
}
