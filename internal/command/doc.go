// Package command isolates subprocess invocation behind a narrow Runner
// interface so pipeline logic stays unit-testable with a fake runner.
//
// Every external tool call is synchronous: a fixed working directory and
// argument list in, exit status and captured output out.
package command
