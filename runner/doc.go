// Package runner executes the test cases of a discovered test tree.
//
// The main components are:
//   - TestExecutor: runs the declared entries of one test case as external
//     processes, capturing their output into the case's output directory
//   - TestRunner: walks the tree in discovery order, substitutes variables,
//     drives the executor and aggregates results per suite
//   - ProgressSink: receives events as the run progresses, used for console
//     reporting
//
// Execution is strictly sequential: one process at a time, one test case at a
// time, in directory-listing order.
package runner
