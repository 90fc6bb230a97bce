// Package watcher 监听知识投放目录，将新增或修改的文本文件导入知识库。
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kart-io/logger"

	"github.com/kart-io/voicedesk/internal/model"
)

const (
	// SourceFile 标记来自投放目录的知识。
	SourceFile = "file"
	// DefaultDebounce 合并同一文件的连续写事件。
	DefaultDebounce = 300 * time.Millisecond
)

// DefaultExtensions 是默认导入的文件类型。
var DefaultExtensions = []string{".txt", ".md"}

// Ingester 是导入依赖。
type Ingester interface {
	Ingest(ctx context.Context, tenant string, inputs []model.IngestInput) (int, error)
}

// Options 是目录监听配置。
type Options struct {
	Dir        string
	Tenant     string
	Extensions []string
	Debounce   time.Duration
}

// Watcher 实现 server.Runnable。
type Watcher struct {
	opts     Options
	ingester Ingester

	fsw    *fsnotify.Watcher
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New 创建监听器，Start 之前不访问文件系统。
func New(opts Options, ingester Ingester) *Watcher {
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Tenant == "" {
		opts.Tenant = model.DefaultTenantID
	}
	return &Watcher{opts: opts, ingester: ingester, pending: make(map[string]*time.Timer)}
}

// Name implements Runnable.
func (w *Watcher) Name() string {
	return "watcher[" + w.opts.Dir + "]"
}

// Start 开始监听目录，不阻塞。
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(w.opts.Dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", w.opts.Dir, err)
	}
	w.fsw = fsw

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w.cancel = cancel

	w.wg.Add(1)
	go w.loop(ctx)

	logger.Infow("knowledge drop folder watched", "dir", w.opts.Dir, "tenant", w.opts.Tenant)
	return nil
}

// Stop 停止监听并丢弃尚未触发的导入。
func (w *Watcher) Stop(context.Context) error {
	if w.fsw == nil {
		return nil
	}
	w.cancel()
	err := w.fsw.Close()
	w.wg.Wait()

	w.mu.Lock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !w.watched(ev.Name) {
				continue
			}
			w.schedule(ctx, ev.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warnw("watcher error", "dir", w.opts.Dir, "error", err)
		}
	}
}

// schedule 在静默 Debounce 之后导入 path，期间的新事件会重置计时。
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(w.opts.Debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.opts.Debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.ingestFile(ctx, path)
	})
}

func (w *Watcher) ingestFile(ctx context.Context, path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Warnw("read dropped file failed", "path", path, "error", err)
		return
	}
	input := model.IngestInput{
		Title:  strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Text:   string(raw),
		Source: SourceFile,
	}
	if !input.Usable() {
		return
	}
	n, err := w.ingester.Ingest(ctx, w.opts.Tenant, []model.IngestInput{input})
	if err != nil {
		logger.Errorw("ingest dropped file failed", "path", path, "tenant", w.opts.Tenant, "error", err)
		return
	}
	logger.Infow("dropped file ingested", "path", path, "tenant", w.opts.Tenant, "processed", n)
}

func (w *Watcher) watched(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.opts.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
