package procrun

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestRunCapturesOutputAndExitCode(t *testing.T) {
	res, err := Run(Spec{Argv: []string{"/bin/sh", "-c", "echo out; echo err 1>&2; exit 3"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != 3 {
		t.Fatalf("ExitCode = %d, want 3", res.ExitCode)
	}
	if res.Stdout != "out\n" {
		t.Fatalf("Stdout = %q", res.Stdout)
	}
	if res.Stderr != "err\n" {
		t.Fatalf("Stderr = %q", res.Stderr)
	}
}

func TestRunEmptyArgvFails(t *testing.T) {
	_, err := Run(Spec{})
	if err == nil {
		t.Fatal("expected error for empty argv")
	}
}

func TestRunSpawnFailureIsError(t *testing.T) {
	_, err := Run(Spec{Argv: []string{"/no/such/binary-rash-test"}})
	if err == nil {
		t.Fatal("expected spawn error")
	}
}

func TestRunBecomeWorkerWritesResponse(t *testing.T) {
	dir := t.TempDir()
	reqPath := filepath.Join(dir, "req.json")
	respPath := filepath.Join(dir, "resp.json")

	req := BecomeRequest{Module: "debug", Params: json.RawMessage(`{"msg":"hi"}`)}
	b, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(reqPath, b, 0o600); err != nil {
		t.Fatalf("write req: %v", err)
	}

	t.Setenv(EnvBecomeRequest, reqPath)
	t.Setenv(EnvBecomeResponse, respPath)
	t.Setenv(EnvBecomeTargetUID, "0")
	t.Setenv(EnvBecomeTargetGID, "0")

	code := RunBecomeWorker(func(moduleName string, paramsJSON []byte, checkMode bool) (bool, []byte, string, error) {
		if moduleName != "debug" {
			t.Fatalf("moduleName = %q", moduleName)
		}
		return true, nil, "hi", nil
	})
	if code != 0 {
		t.Fatalf("RunBecomeWorker exit = %d", code)
	}

	respBytes, err := os.ReadFile(respPath)
	if err != nil {
		t.Fatalf("read resp: %v", err)
	}
	var resp BecomeResponse
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		t.Fatalf("unmarshal resp: %v", err)
	}
	if !resp.Changed || resp.Output != "hi" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestRunBecomeWorkerHandlerErrorIsSerialized(t *testing.T) {
	dir := t.TempDir()
	reqPath := filepath.Join(dir, "req.json")
	respPath := filepath.Join(dir, "resp.json")
	b, _ := json.Marshal(BecomeRequest{Module: "command"})
	if err := os.WriteFile(reqPath, b, 0o600); err != nil {
		t.Fatalf("write req: %v", err)
	}

	t.Setenv(EnvBecomeRequest, reqPath)
	t.Setenv(EnvBecomeResponse, respPath)
	t.Setenv(EnvBecomeTargetUID, "0")
	t.Setenv(EnvBecomeTargetGID, "0")

	code := RunBecomeWorker(func(moduleName string, paramsJSON []byte, checkMode bool) (bool, []byte, string, error) {
		return false, nil, "", errBoom
	})
	if code != 1 {
		t.Fatalf("RunBecomeWorker exit = %d, want 1", code)
	}

	respBytes, err := os.ReadFile(respPath)
	if err != nil {
		t.Fatalf("read resp: %v", err)
	}
	var resp BecomeResponse
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		t.Fatalf("unmarshal resp: %v", err)
	}
	if resp.Error == "" {
		t.Fatal("expected Error to be populated")
	}
}

func TestTransferPidRejectsEmptyArgv(t *testing.T) {
	if err := TransferPid(nil, nil); err == nil {
		t.Fatal("expected error for empty argv")
	}
}

type boomErr struct{}

func (boomErr) Error() string { return "boom" }

var errBoom = boomErr{}
