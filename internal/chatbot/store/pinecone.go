package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/kb-chatbot/pkg/utils/httpclient"
)

const (
	defaultPineconeControllerURL = "https://api.pinecone.io"
	defaultPineconeAPIVersion    = "2024-07"
	pineconeUpsertBatch          = 100
)

// PineconeConfig Pinecone 连接配置。
type PineconeConfig struct {
	APIKey        string
	ControllerURL string
	APIVersion    string
	Namespace     string
	Timeout       time.Duration
	MaxRetries    int
	PollInterval  time.Duration
}

// PineconeIndex 通过 REST 接口访问 Pinecone serverless 索引。
type PineconeIndex struct {
	spec   IndexSpec
	cfg    PineconeConfig
	client *httpclient.Client

	mu   sync.Mutex
	host string
}

var _ VectorIndex = (*PineconeIndex)(nil)

// NewPineconeIndex 创建 Pinecone 索引客户端，不访问网络。
func NewPineconeIndex(spec IndexSpec, cfg PineconeConfig) (*PineconeIndex, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("pinecone: api key is required")
	}
	if cfg.ControllerURL == "" {
		cfg.ControllerURL = defaultPineconeControllerURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultPineconeAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	cfg.ControllerURL = strings.TrimRight(cfg.ControllerURL, "/")

	return &PineconeIndex{
		spec:   spec,
		cfg:    cfg,
		client: httpclient.NewClient(cfg.Timeout, cfg.MaxRetries),
	}, nil
}

type pineconeIndexModel struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Host      string `json:"host"`
	Status    struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

type pineconeIndexList struct {
	Indexes []pineconeIndexModel `json:"indexes"`
}

func (p *PineconeIndex) Exists(ctx context.Context) (bool, error) {
	var list pineconeIndexList
	if err := p.control(ctx, http.MethodGet, "/indexes", nil, &list); err != nil {
		return false, err
	}
	for _, idx := range list.Indexes {
		if idx.Name == p.spec.Name {
			return true, nil
		}
	}
	return false, nil
}

func (p *PineconeIndex) Create(ctx context.Context) error {
	body := map[string]any{
		"name":      p.spec.Name,
		"dimension": p.spec.Dimension,
		"metric":    string(p.spec.Metric),
		"spec": map[string]any{
			"serverless": map[string]string{
				"cloud":  p.spec.Cloud,
				"region": p.spec.Region,
			},
		},
	}

	err := p.control(ctx, http.MethodPost, "/indexes", body, nil)
	if err != nil && !httpclient.IsStatus(err, http.StatusConflict) {
		return err
	}

	_, err = p.waitReady(ctx)
	return err
}

// waitReady 轮询索引状态直到就绪，受 ctx 约束。
func (p *PineconeIndex) waitReady(ctx context.Context) (string, error) {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		model, err := p.describe(ctx)
		if err != nil {
			return "", err
		}
		if model.Status.Ready && model.Host != "" {
			p.setHost(model.Host)
			return model.Host, nil
		}

		logger.Debugw("waiting for pinecone index", "index", p.spec.Name, "state", model.Status.State)
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("wait for index %s: %w", p.spec.Name, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (p *PineconeIndex) describe(ctx context.Context) (*pineconeIndexModel, error) {
	var model pineconeIndexModel
	err := p.control(ctx, http.MethodGet, "/indexes/"+url.PathEscape(p.spec.Name), nil, &model)
	if httpclient.IsStatus(err, http.StatusNotFound) {
		return nil, ErrIndexNotFound
	}
	if err != nil {
		return nil, err
	}
	return &model, nil
}

func (p *PineconeIndex) setHost(host string) {
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	p.mu.Lock()
	p.host = strings.TrimRight(host, "/")
	p.mu.Unlock()
}

// dataHost 返回数据面地址，首次使用时向控制面查询。
func (p *PineconeIndex) dataHost(ctx context.Context) (string, error) {
	p.mu.Lock()
	host := p.host
	p.mu.Unlock()
	if host != "" {
		return host, nil
	}

	model, err := p.describe(ctx)
	if err != nil {
		return "", err
	}
	if model.Host == "" {
		return "", fmt.Errorf("pinecone: index %s has no host yet", p.spec.Name)
	}
	p.setHost(model.Host)

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.host, nil
}

type pineconeVector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (p *PineconeIndex) Upsert(ctx context.Context, records []Record) error {
	for start := 0; start < len(records); start += pineconeUpsertBatch {
		end := min(start+pineconeUpsertBatch, len(records))

		vectors := make([]pineconeVector, 0, end-start)
		for _, r := range records[start:end] {
			if len(r.Vector) != p.spec.Dimension {
				return fmt.Errorf("record %s: %w", r.ID, ErrDimensionMismatch)
			}
			vectors = append(vectors, pineconeVector{ID: r.ID, Values: r.Vector, Metadata: r.Metadata})
		}

		body := map[string]any{"vectors": vectors}
		if p.cfg.Namespace != "" {
			body["namespace"] = p.cfg.Namespace
		}
		if err := p.data(ctx, "/vectors/upsert", body, nil); err != nil {
			return err
		}
	}
	return nil
}

type pineconeQueryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float32        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

func (p *PineconeIndex) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	body := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"includeMetadata": true,
		"includeValues":   false,
	}
	if p.cfg.Namespace != "" {
		body["namespace"] = p.cfg.Namespace
	}

	var resp pineconeQueryResponse
	if err := p.data(ctx, "/query", body, &resp); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, Match{ID: m.ID, Score: m.Score, Metadata: m.Metadata})
	}
	return matches, nil
}

type pineconeStatsResponse struct {
	Namespaces map[string]struct {
		VectorCount int64 `json:"vectorCount"`
	} `json:"namespaces"`
	Dimension        int     `json:"dimension"`
	IndexFullness    float64 `json:"indexFullness"`
	TotalVectorCount int64   `json:"totalVectorCount"`
}

func (p *PineconeIndex) Stats(ctx context.Context) (*IndexStats, error) {
	var resp pineconeStatsResponse
	if err := p.data(ctx, "/describe_index_stats", map[string]any{}, &resp); err != nil {
		return nil, err
	}

	stats := &IndexStats{
		TotalVectorCount: resp.TotalVectorCount,
		Dimension:        resp.Dimension,
		IndexFullness:    resp.IndexFullness,
		Namespaces:       make(map[string]int64, len(resp.Namespaces)),
	}
	for name, ns := range resp.Namespaces {
		stats.Namespaces[name] = ns.VectorCount
	}
	return stats, nil
}

func (p *PineconeIndex) Close(_ context.Context) error {
	return nil
}

func (p *PineconeIndex) control(ctx context.Context, method, path string, body, out any) error {
	return p.do(ctx, method, p.cfg.ControllerURL+path, body, out)
}

func (p *PineconeIndex) data(ctx context.Context, path string, body, out any) error {
	host, err := p.dataHost(ctx)
	if err != nil {
		return err
	}
	return p.do(ctx, http.MethodPost, host+path, body, out)
}

func (p *PineconeIndex) do(ctx context.Context, method, endpoint string, body, out any) error {
	req, err := httpclient.NewJSONRequest(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Api-Key", p.cfg.APIKey)
	req.Header.Set("X-Pinecone-API-Version", p.cfg.APIVersion)

	if err := p.client.DoJSON(req, out); err != nil {
		return fmt.Errorf("pinecone %s %s: %w", method, req.URL.Path, err)
	}
	return nil
}
