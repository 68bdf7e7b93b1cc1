package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

const ansiBrightRed = "1;31"

// isTerminal reports whether f is attached to a terminal. Other character
// devices such as /dev/null do not count.
func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// FprintfError writes an error message to stderr. If stderr is a TTY,
// it prints the message in bright red.
func FprintfError(format string, args ...interface{}) {
	if !isTerminal(os.Stderr) {
		fmt.Fprintf(os.Stderr, format, args...)
		return
	}
	fmt.Fprintf(os.Stderr, "\033[%sm", ansiBrightRed)
	fmt.Fprintf(os.Stderr, format, args...)
	fmt.Fprint(os.Stderr, "\033[0m")
}
