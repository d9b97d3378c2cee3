package vigia

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRequiresFiles(t *testing.T) {
	_, err := New(nil, 0, nil)
	assert.Error(t, err)
}

func TestRunReportsWatchedFilesOnly(t *testing.T) {
	dir := t.TempDir()
	norma := filepath.Join(dir, "pl.yaml")
	outro := filepath.Join(dir, "notas.txt")
	require.NoError(t, os.WriteFile(norma, []byte("sigla: PL\n"), 0o600))

	vigia, err := New([]string{norma}, 20*time.Millisecond, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	changes := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- vigia.Run(ctx, func(paths []string) { changes <- paths })
	}()

	require.NoError(t, os.WriteFile(outro, []byte("ignored"), 0o600))
	require.NoError(t, os.WriteFile(norma, []byte("sigla: PLS\n"), 0o600))
	require.NoError(t, os.WriteFile(norma, []byte("sigla: PLC\n"), 0o600))

	select {
	case paths := <-changes:
		assert.Equal(t, []string{norma}, paths)
	case <-ctx.Done():
		t.Fatal("no change reported")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRunWaitsForCallbackInFlight(t *testing.T) {
	dir := t.TempDir()
	norma := filepath.Join(dir, "pl.yaml")
	require.NoError(t, os.WriteFile(norma, []byte("sigla: PL\n"), 0o600))

	vigia, err := New([]string{norma}, 10*time.Millisecond, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	var finished atomic.Bool
	done := make(chan error, 1)
	go func() {
		done <- vigia.Run(ctx, func([]string) {
			select {
			case started <- struct{}{}:
			default:
			}
			<-release
			finished.Store(true)
		})
	}()

	require.NoError(t, os.WriteFile(norma, []byte("sigla: PLS\n"), 0o600))
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	select {
	case <-done:
		t.Fatal("Run returned while a callback was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.True(t, finished.Load())
}
