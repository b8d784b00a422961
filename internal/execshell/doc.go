// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with lifecycle logging via ShellExecutor, exposes
// OSCommandRunner for default process execution, and defines the abstractions
// refcast uses to run the read-only git subcommands (for-each-ref, ls-tree,
// archive, rev-parse, cat-file) in a testable manner.
package execshell
