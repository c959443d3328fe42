// Package scope implements the Scope abstraction: a Job plus a Dispatcher,
// exposing launch/async/withContext/joinAll/cancel. A Scope is a proper
// node of the job tree in package job, so scopes nest the same way Jobs do.
package scope
