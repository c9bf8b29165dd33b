package watcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectingIngest 收集摄入回调收到的文件
type collectingIngest struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newCollectingIngest() *collectingIngest {
	return &collectingIngest{files: make(map[string][]byte)}
}

func (c *collectingIngest) ingest(_ context.Context, filename string, reader io.Reader, _ int64) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.files[filename] = data
	c.mu.Unlock()
	return nil
}

func (c *collectingIngest) snapshot() map[string][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]byte, len(c.files))
	for k, v := range c.files {
		out[k] = v
	}
	return out
}

func waitForFiles(t *testing.T, c *collectingIngest, want int) map[string][]byte {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		got := c.snapshot()
		if len(got) >= want {
			return got
		}
		time.Sleep(50 * time.Millisecond)
	}
	got := c.snapshot()
	require.Len(t, got, want, "等待摄入文件超时")
	return got
}

func TestWatcher_SweepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "resume.pdf"), []byte("pdf-bytes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	collector := newCollectingIngest()
	w, err := New(dir, collector.ingest, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	got := waitForFiles(t, collector, 1)
	assert.Equal(t, []byte("pdf-bytes"), got["resume.pdf"])
	assert.NotContains(t, got, "notes.txt", "不支持的扩展名应被忽略")

	cancel()
	<-done
}

func TestWatcher_PicksUpNewFile(t *testing.T) {
	dir := t.TempDir()

	collector := newCollectingIngest()
	w, err := New(dir, collector.ingest, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	// 给监视器一点时间完成注册
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "candidate.docx"), []byte("docx-bytes"), 0o644))

	got := waitForFiles(t, collector, 1)
	assert.Equal(t, []byte("docx-bytes"), got["candidate.docx"])

	cancel()
	<-done
}

func TestWatcher_CreatesMissingFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "drop")
	collector := newCollectingIngest()

	_, err := New(dir, collector.ingest, nil)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir(), "监视目录应被自动创建")
}

func TestWatcher_RejectsInvalidArguments(t *testing.T) {
	collector := newCollectingIngest()

	_, err := New("", collector.ingest, nil)
	assert.Error(t, err, "空目录应返回错误")

	_, err = New(t.TempDir(), nil, nil)
	assert.Error(t, err, "空摄入回调应返回错误")
}
