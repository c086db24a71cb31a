package cliapp

import (
	"rash/internal/module"
	"rash/internal/modules"
	"rash/internal/rashtemplate"
	"rash/internal/value"
)

// BecomeWorkerHandler implements procrun.WorkerHandler: it builds a fresh
// module registry (the worker is a re-exec of this same binary with no
// memory shared with the parent, see internal/procrun/become.go) and
// dispatches one module call by name, after privileges have already been
// dropped by RunBecomeWorker.
func BecomeWorkerHandler(moduleName string, paramsJSON []byte, checkMode bool) (bool, []byte, string, error) {
	engine := rashtemplate.New(modules.FindLookup)
	reg := module.NewRegistry()
	modules.RegisterCore(reg, engine)

	mod, err := reg.Lookup(moduleName)
	if err != nil {
		return false, nil, "", err
	}
	params, err := value.UnmarshalJSON(paramsJSON)
	if err != nil {
		return false, nil, "", err
	}
	result, err := mod.Execute(params, module.GlobalParams{CheckMode: checkMode})
	if err != nil {
		return false, nil, "", err
	}
	extraJSON, err := value.MarshalJSON(result.Extra)
	if err != nil {
		return false, nil, "", err
	}
	return result.Changed, extraJSON, result.Output, nil
}
