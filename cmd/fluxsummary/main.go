// Command fluxsummary prints the flux summary of a metabolite and manages the
// model catalog it can read from.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"fluxcore/internal/blob"
	"fluxcore/pkg/domain"
)

// Exit codes.
const (
	exitOK = iota
	exitFailure
	exitInvalidInput
	exitNotFound
	exitComputation
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, os.LookupEnv))
}

func run(args []string, stdout, stderr io.Writer, lookupEnv func(string) (string, bool)) int {
	cmd, cleanup := newRootCommand(stdout, stderr, lookupEnv)
	cmd.SetArgs(args)
	err := cmd.Execute()
	err = errors.Join(err, cleanup())
	if err != nil {
		printError(stderr, err)
		return exitCode(err)
	}
	return exitOK
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, domain.ErrInvalidInput):
		return exitInvalidInput
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, blob.ErrNotExist):
		return exitNotFound
	case errors.Is(err, domain.ErrComputation):
		return exitComputation
	default:
		return exitFailure
	}
}

func printError(w io.Writer, err error) {
	label := color.New(color.FgRed, color.Bold)
	if f, ok := w.(*os.File); !ok || f != os.Stderr {
		label.DisableColor()
	}
	label.Fprint(w, "error:")
	fmt.Fprintf(w, " %v\n", err)
}
