// Package sandbox runs user-supplied Python in a separate interpreter
// process.
//
// The script must define process_data(input_data). The input is written
// to input.json in a private scratch directory, a small harness calls the
// function and writes {ok, value, error, type} to output.json. Standard
// output is left to the user's code and never parsed. Executions are
// bounded by a timeout, run in their own process group and get a minimal
// environment unless inherit_env is set.
package sandbox
