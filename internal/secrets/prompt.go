package secrets

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

const (
	promptTemplateConstant               = "%s: "
	promptLineTerminatorConstant         = "\n"
	terminalRequiredErrorMessageConstant = "interactive prompt requires a terminal on standard input"
)

// ErrTerminalRequired indicates a prompt was requested without an interactive terminal.
var ErrTerminalRequired = errors.New(terminalRequiredErrorMessageConstant)

// TerminalInput is the subset of *os.File used to read a secret without echo.
type TerminalInput interface {
	Fd() uintptr
}

// NewTerminalPrompter reads secrets from input with echo disabled, writing the label to output.
// Nil arguments default to standard input and standard error.
func NewTerminalPrompter(input TerminalInput, output io.Writer) Prompter {
	if input == nil {
		input = os.Stdin
	}
	if output == nil {
		output = os.Stderr
	}

	return func(label string) (string, error) {
		fileDescriptor := int(input.Fd())
		if !term.IsTerminal(fileDescriptor) {
			return "", ErrTerminalRequired
		}

		fmt.Fprintf(output, promptTemplateConstant, label)
		secret, readError := term.ReadPassword(fileDescriptor)
		fmt.Fprint(output, promptLineTerminatorConstant)
		if readError != nil {
			return "", readError
		}
		return string(secret), nil
	}
}
