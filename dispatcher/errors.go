package dispatcher

import "errors"

// ErrDispatcherClosed is returned by Dispatch after Close has been called.
var ErrDispatcherClosed = errors.New("dispatcher: closed")
