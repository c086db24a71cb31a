// Package varctx implements the variable context of spec §4.4 (C7): a
// stack of named frames searched top-down for a variable, with the
// persistent "set_vars" frame and scoped push/pop for loop items and
// task-local vars.
//
// Grounded loosely on the teacher's dsl.Container.Find (`dsl/model.go`):
// "search a slice of named things for the first match" generalized from a
// single flat slice of child nodes into a stack of frames where a frame
// found *higher* in the stack wins, giving the shadowing precedence spec
// §4.4 requires.
package varctx

import "rash/internal/value"

// frame is one named layer of the stack. name exists only for diagnostics.
type frame struct {
	name string
	vars map[string]value.Value
}

// Context is the variable lookup chain. The zero Context is not usable;
// construct with New.
type Context struct {
	frames []*frame
}

// New returns an empty Context. The caller pushes the builtins, env, and
// script-args frames via WithFrame, in that order, and task-local and
// loop-item frames go on top of them. The set_vars persistent frame and
// the register frame are not pushed: SetPersistent and BindRegister insert
// them at the bottom of the stack (see persistentFrame and registerFrame),
// so every other frame, the builtins, env and script-args frames included,
// shadows a set_vars or register binding of the same name.
func New() *Context {
	return &Context{}
}

// Get searches frames top-down (most recently pushed first) for name.
func (c *Context) Get(name string) (value.Value, bool) {
	for i := len(c.frames) - 1; i >= 0; i-- {
		if v, ok := c.frames[i].vars[name]; ok {
			return v, true
		}
	}
	return value.Value{}, false
}

// Snapshot flattens the frame stack into a single map, later frames
// overwriting earlier ones on key collision — the same shadowing rule Get
// applies, just materialized for callers (the template engine) that need
// a flat map rather than a chain to search.
func (c *Context) Snapshot() map[string]value.Value {
	out := make(map[string]value.Value)
	for _, f := range c.frames {
		for k, v := range f.vars {
			out[k] = v
		}
	}
	return out
}

// Guard releases the frame it was returned for. Calling Drop more than
// once is a no-op; the guard is idempotent so a deferred Drop alongside an
// explicit one in the success path never double-pops.
type Guard struct {
	ctx     *Context
	f       *frame
	dropped bool
}

// Drop removes this Guard's frame from the stack by identity rather than
// by truncating to a recorded depth: the persistent set_vars frame can be
// inserted below frames that were pushed after it (see persistentFrame),
// so a plain "truncate to length N" would delete frames a later
// SetPersistent call spliced in underneath an unrelated guard's frame.
// Removing by identity is correct regardless of insertion order, as long
// as pushes and drops of ordinary (non-persistent) frames still nest
// LIFO, which every caller in this engine does. Safe to call from any
// exit path — success, error, rescue, or panic recovery (spec §4.4:
// "drops the top frame regardless of whether the task succeeded, failed,
// or panicked").
func (g *Guard) Drop() {
	if g == nil || g.dropped {
		return
	}
	g.dropped = true
	frames := g.ctx.frames
	for i, f := range frames {
		if f == g.f {
			g.ctx.frames = append(frames[:i], frames[i+1:]...)
			return
		}
	}
}

// WithFrame pushes a new named frame holding vars and returns a Guard that
// pops it back off. Higher frames shadow lower ones on identical names; no
// silent merge (spec §4.4).
func (c *Context) WithFrame(name string, vars map[string]value.Value) *Guard {
	f := &frame{name: name, vars: vars}
	c.frames = append(c.frames, f)
	return &Guard{ctx: c, f: f}
}

// persistentFrame locates the set_vars persistent frame, creating it at
// the bottom of the stack (below every frame currently pushed,
// so it never shadows, and never gets shadowed by order alone — only by
// an actual name collision) the first time it's needed.
func (c *Context) persistentFrame() *frame {
	for _, f := range c.frames {
		if f.name == persistentFrameName {
			return f
		}
	}
	f := &frame{name: persistentFrameName, vars: make(map[string]value.Value)}
	c.frames = append([]*frame{f}, c.frames...)
	return f
}

const persistentFrameName = "set_vars"

// SetPersistent merges bindings into the persistent set_vars frame. Only
// the set_vars module calls this (spec §4.4: "set_persistent(map) (only
// by the set_vars module)").
func (c *Context) SetPersistent(bindings map[string]value.Value) {
	f := c.persistentFrame()
	for k, v := range bindings {
		f.vars[k] = v
	}
}

// GetPersistent reads the current value of name from the persistent
// set_vars frame only, used by the set_vars module's changed-detection
// (it must compare against its own prior writes, not a shadowing
// task-local binding).
func (c *Context) GetPersistent(name string) (value.Value, bool) {
	for _, f := range c.frames {
		if f.name == persistentFrameName {
			v, ok := f.vars[name]
			return v, ok
		}
	}
	return value.Value{}, false
}

const registerFrameName = "register"

// registerFrame locates the register frame, creating it just above the
// set_vars persistent frame (or at the bottom of the stack, if no
// set_vars frame exists yet) the first time it's needed. register gets
// its own frame rather than sharing persistentFrame's: GetPersistent
// reads that frame to compare set_vars's own prior writes, and a register
// binding of the same name would otherwise be mistaken for one.
func (c *Context) registerFrame() *frame {
	for _, f := range c.frames {
		if f.name == registerFrameName {
			return f
		}
	}
	f := &frame{name: registerFrameName, vars: make(map[string]value.Value)}
	idx := 0
	for i, fr := range c.frames {
		if fr.name == persistentFrameName {
			idx = i + 1
			break
		}
	}
	out := make([]*frame, 0, len(c.frames)+1)
	out = append(out, c.frames[:idx]...)
	out = append(out, f)
	out = append(out, c.frames[idx:]...)
	c.frames = out
	return f
}

// BindRegister binds name to val in a dedicated "register" frame, visible
// to every subsequent task (spec §4.6: "A register binding is visible to
// every subsequent task, including tasks inside later include'd files").
// Unlike WithFrame bindings this is never popped by a Guard — it persists
// for the remainder of program execution, the same durability as the
// set_vars frame, just keyed by name instead of value equality.
func (c *Context) BindRegister(name string, val value.Value) {
	c.registerFrame().vars[name] = val
}
