package tensor

import "errors"

// ErrShapeOverflow is returned whenever a shape computation would overflow
// a 32-bit product. It is wrapped with context by the call site, so
// callers should match it with errors.Is.
var ErrShapeOverflow = errors.New("shape overflow")
