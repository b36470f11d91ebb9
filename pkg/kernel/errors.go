package kernel

import "errors"

// User-input violations (spec §7): surfaced synchronously to the caller,
// simulation state is left untouched.
var (
	ErrDuplicateName    = errors.New("kernel: component name already registered")
	ErrUnknownComponent = errors.New("kernel: no component reserved under that name")
	ErrHandlerAttached  = errors.New("kernel: component already has a handler attached")
	ErrInvalidDelay     = errors.New("kernel: delay must be >= 0")
	ErrDuplicateAwait   = errors.New("kernel: a promise is already registered for this fully-qualified await key")
	ErrMissingKeyGetter = errors.New("kernel: no key-getter registered for this payload type")
)
