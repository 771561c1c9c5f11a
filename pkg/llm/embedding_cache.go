package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/kb-chatbot/pkg/utils/json"
)

// EmbeddingCacheConfig Embedding 缓存配置。
type EmbeddingCacheConfig struct {
	// TTL 缓存过期时间，0 表示不过期。
	TTL time.Duration
	// KeyPrefix 缓存键前缀，通常包含模型名以避免不同模型的向量混用。
	KeyPrefix string
}

// DefaultEmbeddingCacheConfig 返回默认缓存配置。
func DefaultEmbeddingCacheConfig() *EmbeddingCacheConfig {
	return &EmbeddingCacheConfig{
		TTL:       24 * time.Hour,
		KeyPrefix: "emb:",
	}
}

// CachedEmbeddingProvider 在 Redis 中缓存文本向量。
// Redis 故障只记录日志并回退到底层供应商，不影响调用结果。
type CachedEmbeddingProvider struct {
	provider EmbeddingProvider
	redis    goredis.UniversalClient
	config   *EmbeddingCacheConfig
}

var _ EmbeddingProvider = (*CachedEmbeddingProvider)(nil)

// NewCachedEmbeddingProvider 创建带缓存的 Embedding 供应商。
func NewCachedEmbeddingProvider(provider EmbeddingProvider, redis goredis.UniversalClient, config *EmbeddingCacheConfig) *CachedEmbeddingProvider {
	if config == nil {
		config = DefaultEmbeddingCacheConfig()
	}
	return &CachedEmbeddingProvider{
		provider: provider,
		redis:    redis,
		config:   config,
	}
}

// Name 返回底层供应商名称。
func (c *CachedEmbeddingProvider) Name() string {
	return c.provider.Name() + "-cached"
}

func (c *CachedEmbeddingProvider) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.config.KeyPrefix + hex.EncodeToString(sum[:])
}

// EmbedSingle 生成单个文本的向量（带缓存）。
func (c *CachedEmbeddingProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// Embed 批量生成向量：先用 MGET 取缓存，只把未命中的文本交给底层供应商。
func (c *CachedEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if c.redis == nil {
		return c.provider.Embed(ctx, texts)
	}

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = c.cacheKey(text)
	}

	embeddings := make([][]float32, len(texts))
	values, err := c.redis.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		logger.Warnw("embedding cache read failed, falling back to provider", "error", err.Error())
		values = nil
	}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var vec []float32
		if err := json.Unmarshal([]byte(s), &vec); err != nil || len(vec) == 0 {
			logger.Warnw("dropping corrupt embedding cache entry", "key", keys[i])
			_ = c.redis.Del(ctx, keys[i]).Err()
			continue
		}
		embeddings[i] = vec
	}

	var missIdx []int
	var missTexts []string
	for i, vec := range embeddings {
		if vec == nil {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, texts[i])
		}
	}
	if len(missTexts) == 0 {
		logger.Debugw("embedding cache hit", "count", len(texts))
		return embeddings, nil
	}

	fresh, err := c.provider.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, ErrEmptyResponse
	}

	pipe := c.redis.Pipeline()
	for j, idx := range missIdx {
		embeddings[idx] = fresh[j]
		data, err := json.Marshal(fresh[j])
		if err != nil {
			continue
		}
		pipe.Set(ctx, keys[idx], data, c.config.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warnw("failed to write embedding cache", "error", err.Error())
	}

	logger.Debugw("embedding cache miss", "total", len(texts), "missed", len(missTexts))
	return embeddings, nil
}

// ClearCache 删除当前前缀下的全部缓存项。
func (c *CachedEmbeddingProvider) ClearCache(ctx context.Context) (int, error) {
	if c.redis == nil {
		return 0, nil
	}

	deleted := 0
	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err == nil {
			deleted++
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	return deleted, nil
}
