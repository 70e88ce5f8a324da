// Command purec compiles Pure model documents (.json) into a linked graph
// and reports compilation errors and warnings.
//
// Usage:
//
//	purec compile [flags] model.json ['models/**/*.json' ...]
//	purec version
//
// Exit codes:
//
//	0  All files compiled (warnings may be present unless --strict)
//	1  One or more files failed to compile (or had warnings with --strict)
//	2  Input or usage error (missing file, invalid JSON, bad flags or config)
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := newRootCmd(a)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	return a.code
}

// app carries the streams and the exit code through the commands.
type app struct {
	stdout, stderr io.Writer
	configPath     string
	code           int
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "purec",
		Short:         "Compile Pure model documents into a linked graph",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file, applied over user and project config")

	root.AddCommand(newCompileCmd(a), newVersionCmd(a))
	return root
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(a.stdout, "purec %s\n", version)
		},
	}
}
