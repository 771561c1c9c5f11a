package chatbot

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/kb-chatbot/internal/chatbot/store"
	"github.com/kart-io/kb-chatbot/pkg/component/milvus"
	"github.com/kart-io/kb-chatbot/pkg/component/redis"
	"github.com/kart-io/kb-chatbot/pkg/infra/pool"
	"github.com/kart-io/kb-chatbot/pkg/llm"
	// 注册 LLM 供应商
	_ "github.com/kart-io/kb-chatbot/pkg/llm/ollama"
	_ "github.com/kart-io/kb-chatbot/pkg/llm/openai"
	cacheopts "github.com/kart-io/kb-chatbot/pkg/options/cache"
	indexopts "github.com/kart-io/kb-chatbot/pkg/options/index"
	llmopts "github.com/kart-io/kb-chatbot/pkg/options/llm"
)

// StoreConfig 打开知识库向量存储所需的配置，服务端与 kb-loader 共用。
type StoreConfig struct {
	IndexOptions     *indexopts.Options
	EmbeddingOptions *llmopts.ProviderOptions
	CacheOptions     *cacheopts.Options
}

// Resources 持有已打开的向量存储及其依赖，Close 按打开的逆序释放。
type Resources struct {
	Store   *store.VectorStore
	closers []func(ctx context.Context) error
}

func (r *Resources) onClose(fn func(ctx context.Context) error) {
	r.closers = append(r.closers, fn)
}

// Close 释放所有资源。
func (r *Resources) Close(ctx context.Context) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return utilerrors.NewAggregate(errs)
}

// IndexSpec 由索引配置得到索引规格。
func (cfg *StoreConfig) IndexSpec() store.IndexSpec {
	o := cfg.IndexOptions
	return store.IndexSpec{
		Name:      o.Name,
		Dimension: o.Dimension,
		Metric:    store.Metric(o.Metric),
		Cloud:     o.Cloud,
		Region:    o.Region,
	}
}

// Open 创建 Embedding 供应商与索引后端，并确保索引存在。
// 失败时已打开的资源会被释放。
func (cfg *StoreConfig) Open(ctx context.Context) (_ *Resources, err error) {
	res := &Resources{}
	defer func() {
		if err != nil {
			_ = res.Close(context.Background())
		}
	}()

	// 1. Embedding 供应商
	embedder, err := cfg.newEmbedder(ctx, res)
	if err != nil {
		return nil, err
	}

	// 2. 索引后端
	spec := cfg.IndexSpec()
	index, err := cfg.newIndex(ctx, spec)
	if err != nil {
		return nil, err
	}
	res.onClose(index.Close)

	// 3. 批量 Embedding 协程池
	embedPool, err := pool.NewPool("embedding", pool.DefaultConfig())
	if err != nil {
		return nil, err
	}
	res.onClose(func(context.Context) error {
		embedPool.Release()
		return nil
	})

	// 4. 向量存储
	vs, err := store.Open(ctx, index, embedder,
		store.WithIndexSpec(spec),
		store.WithEmbedPool(embedPool),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}
	res.Store = vs

	logger.Infow("Vector store initialized",
		"backend", cfg.IndexOptions.Backend,
		"index", spec.Name,
		"dimension", spec.Dimension,
		"metric", string(spec.Metric),
	)
	return res, nil
}

func (cfg *StoreConfig) newEmbedder(ctx context.Context, res *Resources) (llm.EmbeddingProvider, error) {
	opts := cfg.EmbeddingOptions
	embedder, err := llm.NewEmbeddingProvider(opts.Provider, opts.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	logger.Infow("Embedding provider initialized", "provider", opts.Provider, "model", opts.Model)

	cacheOpts := cfg.CacheOptions
	if cacheOpts == nil || !cacheOpts.Enabled {
		logger.Info("Embedding cache is disabled")
		return embedder, nil
	}

	client, err := redis.NewWithContext(ctx, cacheOpts.Redis)
	if err != nil {
		logger.Warnw("failed to connect to redis, embedding cache will be disabled", "error", err.Error())
		return embedder, nil
	}
	res.onClose(func(context.Context) error { return client.Close() })

	logger.Infow("Embedding cache initialized",
		"addr", cacheOpts.Redis.Addr(),
		"ttl", cacheOpts.TTL.String(),
	)
	return llm.NewCachedEmbeddingProvider(embedder, client.Client(), &llm.EmbeddingCacheConfig{
		TTL:       cacheOpts.TTL,
		KeyPrefix: cacheOpts.KeyPrefix + opts.Model + ":",
	}), nil
}

func (cfg *StoreConfig) newIndex(ctx context.Context, spec store.IndexSpec) (store.VectorIndex, error) {
	o := cfg.IndexOptions
	switch o.Backend {
	case indexopts.BackendPinecone:
		return store.NewPineconeIndex(spec, store.PineconeConfig{
			APIKey:        o.Pinecone.APIKey,
			ControllerURL: o.Pinecone.ControllerURL,
			APIVersion:    o.Pinecone.APIVersion,
			Namespace:     o.Pinecone.Namespace,
			Timeout:       o.Pinecone.Timeout,
			MaxRetries:    o.Pinecone.MaxRetries,
			PollInterval:  o.Pinecone.PollInterval,
		})
	case indexopts.BackendMilvus:
		client, err := milvus.New(ctx, o.Milvus)
		if err != nil {
			return nil, err
		}
		return store.NewMilvusIndex(spec, client, o.Milvus.Collection), nil
	case indexopts.BackendChromem:
		return store.NewChromemIndex(spec, o.Chromem.Path, o.Chromem.Compress)
	case indexopts.BackendMemory:
		return store.NewMemoryIndex(spec), nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", o.Backend)
	}
}
