// Package cli holds the flag handling shared by the Sparkify commands.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	flags "github.com/jessevdk/go-flags"

	"github.com/justestif/sparkify-etl/internal/config"
)

// ExitFailure is the status commands exit with when they fail.
const ExitFailure = -1

// Options are the flags every command accepts.
type Options struct {
	Config string `long:"config" default:"./config.json" description:"Path to the JSON or YAML config file"`
	Env    string `long:"env" description:"Config environment to select; unknown names fall back to DEFAULT"`
}

// Parse parses args into opts, which embeds or is Options. It reports
// done when the command should exit with status 0 without running, as after
// --help.
func Parse(opts any, args []string) (done bool, err error) {
	parser := flags.NewParser(opts, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

// Announce writes the one-line banner telling the user where the log goes.
// A nil cfg, when the config could not be read, names fallback instead.
func Announce(w io.Writer, what string, cfg *config.Manager, fallback string) {
	dest := fallback
	if cfg != nil {
		dest = cfg.LogFile
		if dest == "" {
			dest = "stderr"
		}
	}
	fmt.Fprintf(w, "Running %s - check %s\n", what, dest)
}

// Fail prints err to standard error and exits with ExitFailure.
func Fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitFailure)
}
