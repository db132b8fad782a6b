package main

import (
	"image/color"
	"testing"

	"github.com/Zelak312/tweenarr/frame"
	"github.com/Zelak312/tweenarr/imageio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLoadFrames(t *testing.T) {
	env := newTestEnv(t)

	assert.ErrorIs(t, env.session.LoadFrames(nil), imageio.ErrNoFrames)

	input := frame.Sequence{
		solidFrame(2, 2, color.NRGBA{R: 255, A: 255}),
		solidFrame(2, 2, color.NRGBA{B: 255, A: 255}),
	}
	require.NoError(t, env.session.LoadFrames(input))
	assert.Equal(t, input, env.session.Input())

	env.waitForOutput(t, 4)

	f, err := env.session.OutputFrame(3)
	require.NoError(t, err)
	assert.True(t, f.Equal(input[1]))

	_, err = env.session.OutputFrame(4)
	assert.Error(t, err)
	_, err = env.session.OutputFrame(-1)
	assert.Error(t, err)

	// A new input drops the previous output
	require.NoError(t, env.session.LoadFrames(input[:1]))
	assert.Empty(t, env.session.Output())
}

func TestSessionSetParams(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, testParams(), env.session.Params())

	invalid := testParams()
	invalid.Inbetweens = -1
	assert.Error(t, env.session.SetParams(invalid))
	assert.Equal(t, testParams(), env.session.Params())

	updated := testParams()
	updated.Inbetweens = 3
	require.NoError(t, env.session.SetParams(updated))
	assert.Equal(t, updated, env.session.Params())
}
