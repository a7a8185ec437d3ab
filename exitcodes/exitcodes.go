// Package exitcodes defines the exit codes used by op-dirtest.
package exitcodes

// Exit code constants used by op-dirtest.
//
// Exit codes of the spawned test programs are reported but never turned into
// a verdict, so a run that completes exits with Success unless
// --fail-on-nonzero is set.
const (
	Success     = 0 // The run completed
	TestFailure = 1 // An entry exited non-zero or failed to spawn, with --fail-on-nonzero
	RuntimeErr  = 2 // Invalid tree, unreadable config, panics
)
