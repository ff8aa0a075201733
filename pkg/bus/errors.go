package bus

import "errors"

// ErrEmpty signals that no reply was available under the requested wait policy.
// It is a normal condition: callers decide whether to retry, wait again or stop.
var ErrEmpty = errors.New("bus: reply buffer empty")
