// Package machines holds what the concrete machine catalogs share: parsing
// of the one-line text commands typed into machinectl.
package machines

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

var (
	ErrEmptyCommand   = errors.New("empty command")
	ErrUnknownCommand = errors.New("unknown command")
	ErrArgument       = errors.New("bad argument")
)

// Command is a parsed command line: a normalised verb and its arguments.
type Command struct {
	Verb string
	Args []string
}

// ParseCommand splits text into a verb and arguments. The verb is folded to
// snake case, so "StartSpinning", "start-spinning" and "start_spinning" are
// the same command.
func ParseCommand(text string) (Command, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Command{}, ErrEmptyCommand
	}

	return Command{Verb: snake(fields[0]), Args: fields[1:]}, nil
}

// Want fails unless the command has exactly n arguments.
func (c Command) Want(n int) error {
	if len(c.Args) != n {
		return fmt.Errorf("%w: %s takes %d argument(s), got %d", ErrArgument, c.Verb, n, len(c.Args))
	}

	return nil
}

// Uint32 parses argument i.
func (c Command) Uint32(i int) (uint32, error) {
	v, err := strconv.ParseUint(c.Args[i], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %s argument %d: %w", ErrArgument, c.Verb, i+1, err)
	}

	return uint32(v), nil
}

// Int32 parses argument i.
func (c Command) Int32(i int) (int32, error) {
	v, err := strconv.ParseInt(c.Args[i], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %s argument %d: %w", ErrArgument, c.Verb, i+1, err)
	}

	return int32(v), nil
}

// Unknown builds the error for a verb the machine does not understand.
func (c Command) Unknown(kind string) error {
	return fmt.Errorf("%w: %s has no command %q", ErrUnknownCommand, kind, c.Verb)
}

func snake(s string) string {
	var sb strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == '-' || r == ' ':
			sb.WriteRune('_')
		case unicode.IsUpper(r):
			if i > 0 && runes[i-1] != '_' && runes[i-1] != '-' {
				sb.WriteRune('_')
			}

			sb.WriteRune(unicode.ToLower(r))
		default:
			sb.WriteRune(r)
		}
	}

	return sb.String()
}
