// Package watcher 监视本地落地目录，把新出现的候选人文件送入摄入管线
package watcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"candidate-parser-go/internal/constants"
)

// IngestFunc 新文件的摄入回调
type IngestFunc func(ctx context.Context, filename string, reader io.Reader, size int64) error

// Watcher 监视单个落地目录
// 启动时先扫描目录中已有的文件，之后通过fsnotify接收新文件事件
type Watcher struct {
	folder string
	ingest IngestFunc
	logger *zerolog.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

// New 创建目录监视器，目录不存在时自动创建
func New(folder string, ingest IngestFunc, logger *zerolog.Logger) (*Watcher, error) {
	if folder == "" {
		return nil, fmt.Errorf("监视目录不能为空")
	}
	if ingest == nil {
		return nil, fmt.Errorf("摄入回调不能为空")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, fmt.Errorf("创建监视目录失败: %w", err)
	}
	return &Watcher{
		folder:   folder,
		ingest:   ingest,
		logger:   logger,
		inFlight: make(map[string]bool),
	}, nil
}

// Run 启动监视循环，直到ctx取消
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建fsnotify监视器失败: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.folder); err != nil {
		return fmt.Errorf("添加监视目录失败: %w", err)
	}

	w.logger.Info().Str("folder", w.folder).Msg("目录监视器已启动")

	// 启动扫描：处理监视器启动前已落地的文件
	w.sweepExisting(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("目录监视器已停止")
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !supportedFile(event.Name) {
				continue
			}
			w.dispatch(ctx, event.Name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("fsnotify监视错误")
		}
	}
}

// sweepExisting 扫描目录中已有的文件并摄入
func (w *Watcher) sweepExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.folder)
	if err != nil {
		w.logger.Error().Err(err).Msg("扫描已有文件失败")
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.folder, entry.Name())
		if !supportedFile(path) {
			continue
		}
		w.dispatch(ctx, path)
	}
}

// dispatch 异步处理单个文件，同一路径同时只允许一个处理协程
// 文件写入往往伴随多个Write事件，inFlight标记避免重复摄入
func (w *Watcher) dispatch(ctx context.Context, path string) {
	w.mu.Lock()
	if w.inFlight[path] {
		w.mu.Unlock()
		return
	}
	w.inFlight[path] = true
	w.mu.Unlock()

	go func() {
		defer func() {
			w.mu.Lock()
			delete(w.inFlight, path)
			w.mu.Unlock()
		}()

		if err := w.waitForStableSize(ctx, path); err != nil {
			w.logger.Warn().Err(err).Str("path", path).Msg("等待文件写入完成失败")
			return
		}
		if err := w.ingestFile(ctx, path); err != nil {
			w.logger.Error().Err(err).Str("path", path).Msg("摄入文件失败")
		}
	}()
}

// waitForStableSize 等待文件大小在一个观察窗口内不再变化
// 避免摄入仍在写入中的文件
func (w *Watcher) waitForStableSize(ctx context.Context, path string) error {
	var lastSize int64 = -1
	for {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("读取文件信息失败: %w", err)
		}
		if info.Size() == lastSize {
			return nil
		}
		lastSize = info.Size()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(constants.FileStabilityWait):
		}
	}
}

// ingestFile 打开文件并调用摄入回调
func (w *Watcher) ingestFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("打开文件失败: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("读取文件信息失败: %w", err)
	}

	w.logger.Info().Str("path", path).Int64("size", info.Size()).Msg("发现新文件")
	return w.ingest(ctx, filepath.Base(path), f, info.Size())
}

// supportedFile 判断文件扩展名是否在支持的范围内
func supportedFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return constants.SupportedExtensions[ext]
}
