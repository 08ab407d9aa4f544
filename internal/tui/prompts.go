package tui

import (
	"errors"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/mattn/go-isatty"
)

// ErrInteractiveDisabled is returned when prompts are disabled or there is no terminal
var ErrInteractiveDisabled = errors.New("interactive prompts are disabled")

// IsTTY reports whether both stdin and stdout are terminals
func IsTTY() bool {
	return (isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())) &&
		(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))
}

// InteractiveAllowed reports whether prompting the user is possible.
// CASCADE_NO_INTERACTIVE turns prompts off for scripts and tests.
func InteractiveAllowed() bool {
	return os.Getenv("CASCADE_NO_INTERACTIVE") == "" && IsTTY()
}

// PromptConfirm asks a yes/no question
func PromptConfirm(message string, defaultValue bool) (bool, error) {
	if !InteractiveAllowed() {
		return false, ErrInteractiveDisabled
	}
	answer := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &answer); err != nil {
		return false, err
	}
	return answer, nil
}
