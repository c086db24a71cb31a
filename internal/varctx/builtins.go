package varctx

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"

	"rash/internal/value"
)

// Builtins computes the read-only `rash.*` facts frame (spec §4.4's lowest
// frame, pushed before env/args/set_vars). uid/gid come from the running
// process's os.Getuid/Getgid rather than gopsutil, which has no per-process
// credential accessor; gopsutil/v4/host supplies the platform/hostname
// facts the teacher's cmd/tcpo already depends on this library for.
//
// Lookup failures (a container without a readable /etc/hostname, a
// sandboxed platform without host info) degrade to omitted fields rather
// than failing script load — host facts are convenience, not a
// precondition for running a script.
func Builtins() map[string]value.Value {
	user := value.Map(
		value.KV{Key: "uid", Val: value.Int(int64(os.Getuid()))},
		value.KV{Key: "gid", Val: value.Int(int64(os.Getgid()))},
	)

	hostFields := []value.KV{
		{Key: "os", Val: value.String(runtime.GOOS)},
		{Key: "arch", Val: value.String(runtime.GOARCH)},
	}
	if info, err := host.Info(); err == nil {
		hostFields = append(hostFields,
			value.KV{Key: "hostname", Val: value.String(info.Hostname)},
			value.KV{Key: "platform", Val: value.String(info.Platform)},
			value.KV{Key: "platform_version", Val: value.String(info.PlatformVersion)},
			value.KV{Key: "kernel_version", Val: value.String(info.KernelVersion)},
		)
	}

	return map[string]value.Value{
		"rash": value.Map(
			value.KV{Key: "user", Val: user},
			value.KV{Key: "host", Val: value.Map(hostFields...)},
		),
	}
}
