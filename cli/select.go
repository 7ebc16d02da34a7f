package cli

import (
	"strings"

	"github.com/manifoldco/promptui"
)

const selectSize = 10

// Select asks for one of choices and returns its index. Typing filters the
// list by prefix.
func Select(label string, choices ...string) (int, string, error) {
	sel := &promptui.Select{
		Label: label,
		Items: choices,
		Size:  selectSize,
		Searcher: func(input string, index int) bool {
			return strings.HasPrefix(strings.ToLower(choices[index]), strings.ToLower(input))
		},
	}

	return sel.Run()
}
