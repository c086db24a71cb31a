package modules

import (
	"rash/internal/module"
	"rash/internal/value"
)

// SetVars implements the `set_vars` module: it returns its mapping of
// already-rendered name→Value bindings as Extra, and the interpreter merges
// that mapping into the persistent variable frame.
// `changed` is true iff any binding's value differs from what it was bound
// to before (spec §4.5 table), so SetVars needs read access to the
// persistent frame. Since modules otherwise never see the variable context
// directly (spec §5: "modules... do not mutate the context directly"),
// internal/cliapp binds Lookup once, at startup, to the context's
// GetPersistent; set_vars is the one module that needs it, the same way
// block/include need program-execution access the Module interface does
// not expose.
type SetVars struct {
	Lookup func(name string) (value.Value, bool)
}

func (s *SetVars) Execute(params value.Value, global module.GlobalParams) (module.ModuleResult, error) {
	changed := false
	for _, key := range params.MapKeys() {
		newVal, _ := params.MapGet(key)
		if s.Lookup != nil {
			if old, ok := s.Lookup(key); ok && old.Equal(newVal) {
				continue
			}
		}
		changed = true
	}
	return module.ModuleResult{Changed: changed, Extra: params}, nil
}
