// Package vtime implements a virtual-time test harness: a deterministic
// clock, a goroutine-backed test dispatcher that reports how much work is
// outstanding, and a Scope wrapper that advances both together for
// reproducible tests of delay-based and timer-based behavior elsewhere in
// the module.
package vtime
