package machines_test

import (
	"testing"

	"github.com/amp-labs/amp-fsm/machines"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"start_spinning 800", "StartSpinning 800", "  start-spinning\t800 "} {
		cmd, err := machines.ParseCommand(text)
		require.NoError(t, err, text)
		assert.Equal(t, "start_spinning", cmd.Verb, text)
		assert.Equal(t, []string{"800"}, cmd.Args, text)
	}

	_, err := machines.ParseCommand("   ")
	require.ErrorIs(t, err, machines.ErrEmptyCommand)
}

func TestCommandArguments(t *testing.T) {
	t.Parallel()

	cmd, err := machines.ParseCommand("move 10 -20 30 150")
	require.NoError(t, err)
	require.NoError(t, cmd.Want(4))
	require.ErrorIs(t, cmd.Want(1), machines.ErrArgument)

	x, err := cmd.Int32(1)
	require.NoError(t, err)
	assert.Equal(t, int32(-20), x)

	_, err = cmd.Uint32(1)
	require.ErrorIs(t, err, machines.ErrArgument)

	feed, err := cmd.Uint32(3)
	require.NoError(t, err)
	assert.Equal(t, uint32(150), feed)

	require.ErrorIs(t, cmd.Unknown("mill"), machines.ErrUnknownCommand)
}
