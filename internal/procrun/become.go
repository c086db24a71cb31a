package procrun

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"rash/internal/rasherr"
)

// Environment variables the become worker reads to learn its job. Set by
// the parent when launching the worker subprocess; see RunBecomeWorker for
// the worker-side half of this protocol.
const (
	EnvBecomeRequest   = "RASH_BECOME_REQUEST"
	EnvBecomeResponse  = "RASH_BECOME_RESPONSE"
	EnvBecomeTargetUID = "RASH_BECOME_UID"
	EnvBecomeTargetGID = "RASH_BECOME_GID"
)

// BecomeRequest is the JSON payload written to the request temp file: the
// module name and its already-rendered parameters, plus check-mode.
type BecomeRequest struct {
	Module    string          `json:"module"`
	Params    json.RawMessage `json:"params"`
	CheckMode bool            `json:"check_mode"`
}

// BecomeResponse is the JSON payload the worker writes back (spec §4.7
// step 4: "Serialises the ModuleResult (or error) over an IPC channel to
// the parent").
type BecomeResponse struct {
	Changed bool            `json:"changed"`
	Extra   json.RawMessage `json:"extra,omitempty"`
	Output  string          `json:"output,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Become launches workerBinary as a child process that will, per the
// protocol above, drop privileges to targetUser and execute the named
// module (spec §4.7's become steps 1–5). The parent never calls
// setresuid/setresgid itself — only the worker does, immediately after it
// starts (see become_unix.go) — so the parent process's own privileges are
// never altered, only the child's.
func Become(workerBinary, targetUser, moduleName string, paramsJSON []byte, checkMode bool) (BecomeResponse, error) {
	uid, gid, err := lookupUser(targetUser)
	if err != nil {
		return BecomeResponse{}, rasherr.New(rasherr.KindBecomeFailed, "become", targetUser, err)
	}

	dir := os.TempDir()
	id := uuid.New().String()
	reqPath := filepath.Join(dir, "rash-become-"+id+"-req.json")
	respPath := filepath.Join(dir, "rash-become-"+id+"-resp.json")
	defer os.Remove(reqPath)
	defer os.Remove(respPath)

	req := BecomeRequest{Module: moduleName, Params: paramsJSON, CheckMode: checkMode}
	reqBytes, err := json.Marshal(req)
	if err != nil {
		return BecomeResponse{}, rasherr.New(rasherr.KindBecomeFailed, "become", targetUser, err)
	}
	if err := os.WriteFile(reqPath, reqBytes, 0o600); err != nil {
		return BecomeResponse{}, rasherr.New(rasherr.KindBecomeFailed, "become", targetUser, err)
	}
	if err := os.WriteFile(respPath, []byte("{}"), 0o600); err != nil {
		return BecomeResponse{}, rasherr.New(rasherr.KindBecomeFailed, "become", targetUser, err)
	}

	cmd := exec.Command(workerBinary, "--rash-become-worker")
	cmd.Env = append(os.Environ(),
		EnvBecomeRequest+"="+reqPath,
		EnvBecomeResponse+"="+respPath,
		EnvBecomeTargetUID+"="+strconv.Itoa(uid),
		EnvBecomeTargetGID+"="+strconv.Itoa(gid),
	)
	cmd.Stdout = os.Stderr // worker's own logs, not the IPC channel
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return BecomeResponse{}, rasherr.New(rasherr.KindBecomeFailed, "become", targetUser,
			fmt.Errorf("become worker: %w", err))
	}

	respBytes, err := os.ReadFile(respPath)
	if err != nil {
		return BecomeResponse{}, rasherr.New(rasherr.KindBecomeFailed, "become", targetUser, err)
	}
	var resp BecomeResponse
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return BecomeResponse{}, rasherr.New(rasherr.KindBecomeFailed, "become", targetUser, err)
	}
	if resp.Error != "" {
		return BecomeResponse{}, rasherr.New(rasherr.KindBecomeFailed, "become", moduleName, fmt.Errorf("%s", resp.Error))
	}
	return resp, nil
}

func lookupUser(name string) (uid, gid int, err error) {
	if name == "" {
		name = "root"
	}
	u, err := user.Lookup(name)
	if err != nil {
		return 0, 0, fmt.Errorf("lookup user %q: %w", name, err)
	}
	uid, err = strconv.Atoi(u.Uid)
	if err != nil {
		return 0, 0, fmt.Errorf("parse uid: %w", err)
	}
	gid, err = strconv.Atoi(u.Gid)
	if err != nil {
		return 0, 0, fmt.Errorf("parse gid: %w", err)
	}
	return uid, gid, nil
}

// WorkerHandler executes one module by name inside the become worker
// process, after privileges have already been dropped. Supplied by the
// caller (cmd/rash) since procrun does not know about the module registry.
type WorkerHandler func(moduleName string, paramsJSON []byte, checkMode bool) (changed bool, extraJSON []byte, output string, err error)

// RunBecomeWorker implements the worker half of the become protocol: drop
// privileges (platform-specific, see become_unix.go), read the request,
// dispatch to handler, write the response. Returns the process exit code
// the caller's main() should use.
func RunBecomeWorker(handler WorkerHandler) int {
	reqPath := os.Getenv(EnvBecomeRequest)
	respPath := os.Getenv(EnvBecomeResponse)
	uid, _ := strconv.Atoi(os.Getenv(EnvBecomeTargetUID))
	gid, _ := strconv.Atoi(os.Getenv(EnvBecomeTargetGID))

	writeErr := func(e error) int {
		resp := BecomeResponse{Error: e.Error()}
		b, _ := json.Marshal(resp)
		_ = os.WriteFile(respPath, b, 0o600)
		return 1
	}

	if err := dropPrivileges(uid, gid); err != nil {
		return writeErr(fmt.Errorf("drop privileges: %w", err))
	}

	reqBytes, err := os.ReadFile(reqPath)
	if err != nil {
		return writeErr(err)
	}
	var req BecomeRequest
	if err := json.Unmarshal(reqBytes, &req); err != nil {
		return writeErr(err)
	}

	changed, extraJSON, output, err := handler(req.Module, req.Params, req.CheckMode)
	if err != nil {
		return writeErr(err)
	}
	resp := BecomeResponse{Changed: changed, Extra: extraJSON, Output: output}
	b, err := json.Marshal(resp)
	if err != nil {
		return writeErr(err)
	}
	if err := os.WriteFile(respPath, b, 0o600); err != nil {
		return 1
	}
	return 0
}
