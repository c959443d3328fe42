package flow

import "errors"

// errStop is the internal signal an operator's emit returns to abort
// collection early without that abort propagating as a pipeline failure
// (Take, TakeWhile, First). It never escapes this package.
var errStop = errors.New("flow: stop collection")
