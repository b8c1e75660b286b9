package connector

import "errors"

// ErrUnsupported is returned by optional contract methods (such as
// CancelByOrderID) a particular venue implementation doesn't provide.
var ErrUnsupported = errors.New("connector: operation not supported")
