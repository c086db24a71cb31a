package modules

import (
	"rash/internal/module"
	"rash/internal/rashtemplate"
)

// RegisterCore registers the core module set of spec §4.5 into reg.
// block/include are not registered anywhere: internal/interp dispatches
// them directly through its program-execution loop.
func RegisterCore(reg *module.Registry, engine *rashtemplate.Engine) {
	reg.Register("command", NewCommand())
	reg.Register("assert", Assert{})
	reg.Register("set_vars", &SetVars{})
	reg.Register("debug", &Debug{})
	reg.Register("find", Find{})
	reg.Register("copy", NewCopy())
	reg.Register("file", NewFile())
	reg.Register("template", NewTemplate(engine))
}
