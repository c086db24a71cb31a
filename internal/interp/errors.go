package interp

import "errors"

var (
	errLoopNotSequence   = errors.New("loop must render to a sequence")
	errBecomeUnsupported = errors.New("become requested but no BecomeRunner is configured")
)
