package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kart-io/logger"
)

const defaultDebounce = 500 * time.Millisecond

// ChangeHandler 在文件变化后接收重新切分的分段。
type ChangeHandler func(ctx context.Context, path string, sections []Section) error

// Watcher 监听知识库目录，.txt 文件创建或写入后重新切分并回调。
// 同一文件的连续事件在 debounce 窗口内合并为一次。
type Watcher struct {
	dir      string
	handler  ChangeHandler
	debounce time.Duration
}

// NewWatcher 创建目录监听器。debounce <= 0 时使用默认值。
func NewWatcher(dir string, debounce time.Duration, handler ChangeHandler) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{dir: dir, handler: handler, debounce: debounce}
}

// Run 阻塞直到 ctx 取消，回调错误只记录日志。
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	logger.Infow("watching knowledge base", "dir", w.dir)

	var (
		mu      sync.Mutex
		pending = make(map[string]*time.Timer)
		ready   = make(chan string, 16)
	)
	defer func() {
		mu.Lock()
		for _, t := range pending {
			t.Stop()
		}
		mu.Unlock()
	}()

	schedule := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := pending[path]; ok {
			t.Reset(w.debounce)
			return
		}
		pending[path] = time.AfterFunc(w.debounce, func() {
			mu.Lock()
			delete(pending, path)
			mu.Unlock()
			select {
			case ready <- path:
			case <-ctx.Done():
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			logger.Infow("knowledge base watcher stopped", "dir", w.dir)
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !IsKnowledgeFile(filepath.Base(event.Name)) {
				continue
			}
			schedule(event.Name)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warnw("watcher error", "dir", w.dir, "error", err)

		case path := <-ready:
			w.reload(ctx, path)
		}
	}
}

func (w *Watcher) reload(ctx context.Context, path string) {
	sections, err := LoadFile(path)
	if err != nil {
		logger.Warnw("failed to read changed file", "path", path, "error", err)
		return
	}
	if len(sections) == 0 {
		logger.Infow("changed file has no sections", "path", path)
		return
	}

	if err := w.handler(ctx, path, sections); err != nil {
		logger.Errorw("failed to re-ingest file", "path", path, "error", err)
		return
	}
	logger.Infow("file re-ingested", "path", path, "sections", len(sections))
}
