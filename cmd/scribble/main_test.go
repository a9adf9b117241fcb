package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"drawing-board/protocol"
	"drawing-board/raster"
	"drawing-board/session"
)

func newSession(t *testing.T) *session.Session {
	t.Helper()
	canvas, err := raster.New(80, 60, raster.DefaultBackground)
	require.NoError(t, err)
	return session.New(canvas, nil)
}

func TestPaletteIsValid(t *testing.T) {
	for _, col := range palette {
		_, err := protocol.ParseColor(col)
		assert.NoError(t, err, col)
	}
}

func TestScribble(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	sess := newSession(t)

	n := scribble(context.Background(), zap.New(core), sess, 3, 4, 1000, 80, 60)

	assert.Equal(t, 3, n)
	assert.True(t, sess.CanUndo())
	assert.Zero(t, logs.Len())
}

func TestScribble_BadPaletteEntry(t *testing.T) {
	saved := palette
	palette = []string{"chartreuse-ish"}
	t.Cleanup(func() { palette = saved })

	core, logs := observer.New(zapcore.WarnLevel)
	sess := newSession(t)

	n := scribble(context.Background(), zap.New(core), sess, 2, 4, 1000, 80, 60)

	assert.Zero(t, n)
	assert.False(t, sess.CanUndo())
	require.NotZero(t, logs.Len())
	assert.Equal(t, "skipping stroke", logs.All()[0].Message)
}
