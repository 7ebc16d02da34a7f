package cli

import (
	"errors"
	"os"

	"github.com/manifoldco/promptui"
)

var ErrEmptyInput = errors.New("you must enter something")

func PromptConfirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
	}

	_, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// PromptLine reads one non-empty line. validate, when set, runs on every
// keystroke and blocks submission until it passes.
func PromptLine(label string, validate func(string) error) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			if len(s) == 0 {
				return ErrEmptyInput
			}

			if validate != nil {
				return validate(s)
			}

			return nil
		},
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
	}

	return prompt.Run()
}
