package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dpshade/spark-prompt/internal/models"
)

type changeRecorder struct {
	mu    sync.Mutex
	names []string
}

func (r *changeRecorder) record(name string) {
	r.mu.Lock()
	r.names = append(r.names, name)
	r.mu.Unlock()
}

func (r *changeRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

func TestWatcherDebouncesWrites(t *testing.T) {
	s := newTestStorage(t)
	w, err := NewWatcher(s, 50*time.Millisecond, zap.NewNop())
	require.NoError(t, err)

	rec := &changeRecorder{}
	require.NoError(t, w.Start(context.Background(), rec.record))
	defer w.Stop()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.SaveBanks(models.BankMap{"k": {Category: "c"}}))
	}
	require.NoError(t, os.WriteFile(filepath.Join(s.JSONDir(), "notes.txt"), []byte("x"), 0644))

	assert.Eventually(t, func() bool {
		return len(rec.snapshot()) > 0
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, []string{BanksFile}, rec.snapshot())
}

func TestWatcherStopsOnContextCancel(t *testing.T) {
	s := newTestStorage(t)
	w, err := NewWatcher(s, 0, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx, func(string) {}))
	cancel()
	w.Stop()
}

func TestWatcherMissingDir(t *testing.T) {
	s, err := NewStorage(filepath.Join(t.TempDir(), "absent"), nil)
	require.NoError(t, err)

	w, err := NewWatcher(s, 0, nil)
	require.NoError(t, err)
	assert.Error(t, w.Start(context.Background(), func(string) {}))
	w.Stop()
}
