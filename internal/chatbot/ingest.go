package chatbot

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/kart-io/logger"
	"golang.org/x/sync/errgroup"

	"github.com/kart-io/kb-chatbot/internal/chatbot/loader"
	"github.com/kart-io/kb-chatbot/internal/chatbot/metrics"
	"github.com/kart-io/kb-chatbot/pkg/infra/app"
	logopts "github.com/kart-io/kb-chatbot/pkg/options/logger"
	"github.com/kart-io/kb-chatbot/pkg/utils/json"
)

// LoaderName is the name of the knowledge base loader.
const LoaderName = "kb-loader"

// LoaderConfig 知识库导入配置。
type LoaderConfig struct {
	StoreConfig

	LogOptions *logopts.Options

	// Dir 知识库目录。
	Dir string
	// DryRun 只切分并报告分段，不访问 Embedding 与索引。
	DryRun bool
	// Watch 导入完成后持续监听目录，文件创建或写入时重新导入该文件。
	Watch bool
	// Debounce 同一文件连续事件的合并窗口。
	Debounce time.Duration

	// Out 接收面向用户的进度输出，默认 os.Stdout。
	Out io.Writer
}

// Run 加载目录、写入向量索引并打印索引统计。
// 目录不存在返回 loader.ErrDirectoryNotFound，没有分段返回 loader.ErrNoDocuments，
// 两种情况都不会写入索引。
func (cfg *LoaderConfig) Run(ctx context.Context) error {
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}

	if cfg.LogOptions != nil {
		cfg.LogOptions.AddInitialField("service.name", LoaderName)
		cfg.LogOptions.AddInitialField("service.version", app.GetVersion())
		if err := cfg.LogOptions.Init(); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer func() { _ = logger.Flush() }()
	}

	fmt.Fprintln(out, "Loading knowledge base into vector database...")

	// 1. 切分
	sections, err := loader.LoadDirectory(cfg.Dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Found %d document sections to process\n", len(sections))

	if cfg.DryRun {
		printSections(out, sections)
		return nil
	}

	// 2. 打开存储
	res, err := cfg.StoreConfig.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Close(context.Background()); err != nil {
			logger.Errorw("failed to release resources", "error", err.Error())
		}
	}()

	m := metrics.New()

	// 3. 写入
	n, err := res.Store.AddDocuments(ctx, loader.Documents(sections))
	m.RecordIndexing(n, err)
	if err != nil {
		logger.Errorw("failed to load knowledge base", "dir", cfg.Dir, "sections", len(sections), "error", err.Error())
		return fmt.Errorf("failed to load knowledge base: %w", err)
	}
	fmt.Fprintf(out, "Knowledge base loaded successfully: %d sections upserted\n", n)

	// 4. 统计
	if err := printStats(ctx, out, res); err != nil {
		return err
	}

	if !cfg.Watch {
		return nil
	}

	// 5. 监听
	g, gctx := errgroup.WithContext(ctx)
	watcher := loader.NewWatcher(cfg.Dir, cfg.Debounce, func(ctx context.Context, path string, sections []loader.Section) error {
		n, err := res.Store.AddDocuments(ctx, loader.Documents(sections))
		m.RecordIndexing(n, err)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Re-ingested %s: %d sections upserted\n", filepath.Base(path), n)
		return nil
	})
	g.Go(func() error { return watcher.Run(gctx) })

	err = g.Wait()
	logger.Infow("Loader stopped", "stats", m.Stats())
	return err
}

func printSections(out io.Writer, sections []loader.Section) {
	perFile := make(map[string]int)
	for _, s := range sections {
		perFile[s.Source()]++
	}

	files := make([]string, 0, len(perFile))
	for f := range perFile {
		files = append(files, f)
	}
	sort.Strings(files)

	for _, f := range files {
		fmt.Fprintf(out, "  %s: %d sections\n", f, perFile[f])
	}
}

func printStats(ctx context.Context, out io.Writer, res *Resources) error {
	stats, err := res.Store.GetIndexStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get index stats: %w", err)
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Vector database stats: %s\n", data)
	return nil
}
