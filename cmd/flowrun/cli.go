package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"
)

// ExitError carries a process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

// options are the parsed command-line arguments.
type options struct {
	command    string
	configFile string

	// run
	file    string
	server  string
	follow  bool
	timeout time.Duration
}

const usage = `flowrun - workflow execution engine.

Usage:
  flowrun [serve] [-config FILE]
  flowrun run -f WORKFLOW [-config FILE] [-server URL [-follow]] [-timeout D]

Commands:
  serve   Start the HTTP API (default).
  run     Execute one workflow file and print the run snapshot as JSON.

Options:
`

// parseArgs parses args. It reports done when help was printed.
func parseArgs(args []string, out io.Writer) (*options, bool, error) {
	opts := &options{command: "serve"}
	if len(args) > 0 && (args[0] == "serve" || args[0] == "run") {
		opts.command, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet(serviceName+" "+opts.command, flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprint(out, usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.configFile, "config", "", "Path to the config file. Defaults to the standard search paths.")
	if opts.command == "run" {
		fs.StringVar(&opts.file, "f", "", "Workflow definition file (.yaml, .yml or .json).")
		fs.StringVar(&opts.server, "server", "", "Submit to a running flowrun server at this base URL instead of executing locally.")
		fs.BoolVar(&opts.follow, "follow", false, "With -server, submit asynchronously and stream run events to stderr.")
		fs.DurationVar(&opts.timeout, "timeout", 5*time.Minute, "Give up waiting for the run after this long.")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if opts.command == "run" {
		if opts.file == "" && fs.NArg() > 0 {
			opts.file = fs.Arg(0)
		}
		if opts.file == "" {
			fs.Usage()
			return nil, false, &ExitError{Code: 2, Message: "run: a workflow file is required (-f)"}
		}
		if opts.follow && opts.server == "" {
			return nil, false, &ExitError{Code: 2, Message: "run: -follow requires -server"}
		}
	}
	return opts, false, nil
}
