// Package vos provides the virtual OS capability programs run against: an
// environment, standard streams, a working directory and a filesystem.
package vos

import "context"

// VOS is the view of the system a running program gets.
type VOS interface {
	VEnv
	VIO
	VFS

	// Args holds the command line arguments, including the program as Args[0].
	Args() []string
	// Getwd returns the program's working directory.
	Getwd() (dir string, err error)
	// Chdir changes the program's working directory.
	Chdir(dir string) error
	// Context is cancelled when the job running the program is killed.
	Context() context.Context
}

// ProcessFunc is the entrypoint of a program, the return value is the exit
// status.
type ProcessFunc func(VOS) int

// ProcessResolver maps an absolute executable path to a program. A nil
// result means the file isn't a known program.
type ProcessResolver func(path string) ProcessFunc
