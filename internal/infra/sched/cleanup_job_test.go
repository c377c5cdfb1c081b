//go:build !integration

package sched

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSweeper struct {
	calls int
	n     int
	err   error
}

func (m *mockSweeper) CleanupExpiredCodes(ctx context.Context) (int, error) {
	m.calls++
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("sweep ran without a deadline")
	}
	return m.n, m.err
}

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func TestNewCleanupJob_RejectsBadSpec(t *testing.T) {
	_, err := NewCleanupJob("every tuesday", &mockSweeper{}, newTestLogger())
	assert.Error(t, err)
}

func TestCleanupJob_RunOnce(t *testing.T) {
	sw := &mockSweeper{n: 3}
	j, err := NewCleanupJob("@hourly", sw, newTestLogger())
	require.NoError(t, err)

	assert.Equal(t, 3, j.RunOnce(context.Background()))
	assert.Equal(t, 1, sw.calls)
}

func TestCleanupJob_RunOnceSwallowsError(t *testing.T) {
	sw := &mockSweeper{n: 2, err: errors.New("db down")}
	j, err := NewCleanupJob("*/5 * * * *", sw, newTestLogger())
	require.NoError(t, err)

	assert.Equal(t, 0, j.RunOnce(context.Background()))
}

func TestCleanupJob_StartStop(t *testing.T) {
	j, err := NewCleanupJob("@every 1h", &mockSweeper{}, newTestLogger())
	require.NoError(t, err)
	j.Start()
	j.Stop(context.Background())
}
