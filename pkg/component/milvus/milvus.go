// Package milvus wraps the Milvus v2 SDK client for a single-vector collection.
package milvus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	milvusopts "github.com/kart-io/kb-chatbot/pkg/options/milvus"
)

// Field names shared by every collection created through this package.
const (
	FieldID     = "id"
	FieldVector = "embedding"
)

// Client wraps the Milvus SDK client.
type Client struct {
	client *milvusclient.Client
	opts   *milvusopts.Options
}

// New connects to Milvus.
func New(ctx context.Context, opts *milvusopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("milvus options is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:       opts.Address,
		Username:      opts.Username,
		Password:      opts.Password,
		DBName:        opts.Database,
		APIKey:        opts.APIKey,
		EnableTLSAuth: opts.TLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	return &Client{client: c, opts: opts}, nil
}

// Close closes the connection.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// CollectionSchema describes a collection keyed by a VarChar id with one float vector field.
type CollectionSchema struct {
	Name        string
	Description string
	Dimension   int
	Metric      entity.MetricType
	IDMaxLen    int
	Fields      []MetaField
}

// MetaField defines a scalar field stored next to the vector.
type MetaField struct {
	Name     string
	DataType entity.FieldType
	MaxLen   int // VarChar only
}

// HasCollection reports whether the collection exists.
func (c *Client) HasCollection(ctx context.Context, name string) (bool, error) {
	exists, err := c.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(name))
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return exists, nil
}

// CreateCollection creates the collection with an AUTOINDEX on the vector
// field and loads it. It does nothing when the collection already exists.
func (c *Client) CreateCollection(ctx context.Context, schema *CollectionSchema) error {
	exists, err := c.HasCollection(ctx, schema.Name)
	if err != nil {
		return err
	}
	if exists {
		return c.load(ctx, schema.Name)
	}

	idLen := schema.IDMaxLen
	if idLen <= 0 {
		idLen = 64
	}

	collSchema := entity.NewSchema().
		WithName(schema.Name).
		WithDescription(schema.Description).
		WithAutoID(false).
		WithField(entity.NewField().
			WithName(FieldID).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(int64(idLen)).
			WithIsPrimaryKey(true)).
		WithField(entity.NewField().
			WithName(FieldVector).
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(schema.Dimension)))

	for _, f := range schema.Fields {
		field := entity.NewField().WithName(f.Name).WithDataType(f.DataType)
		if f.DataType == entity.FieldTypeVarChar && f.MaxLen > 0 {
			field.WithMaxLength(int64(f.MaxLen))
		}
		collSchema.WithField(field)
	}

	if err := c.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(schema.Name, collSchema)); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	task, err := c.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(schema.Name, FieldVector, index.NewAutoIndex(schema.Metric)))
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := task.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for index creation: %w", err)
	}

	return c.load(ctx, schema.Name)
}

func (c *Client) load(ctx context.Context, name string) error {
	task, err := c.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(name))
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	if err := task.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for collection loading: %w", err)
	}
	return nil
}

// Upsert writes the columns and flushes so the rows are searchable immediately.
func (c *Client) Upsert(ctx context.Context, collection string, columns ...column.Column) (int64, error) {
	result, err := c.client.Upsert(ctx, milvusclient.NewColumnBasedInsertOption(collection, columns...))
	if err != nil {
		return 0, fmt.Errorf("failed to upsert: %w", err)
	}

	flush, err := c.client.Flush(ctx, milvusclient.NewFlushOption(collection))
	if err != nil {
		return 0, fmt.Errorf("failed to flush collection: %w", err)
	}
	if err := flush.Await(ctx); err != nil {
		return 0, fmt.Errorf("failed to wait for flush: %w", err)
	}
	return result.UpsertCount, nil
}

// SearchResult is one hit with its output fields.
type SearchResult struct {
	ID     string
	Score  float32
	Fields map[string]any
}

// Search runs a single-vector ANN query and returns hits in score order.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, topK int, outputFields []string) ([]SearchResult, error) {
	results, err := c.client.Search(ctx, milvusclient.NewSearchOption(
		collection,
		topK,
		[]entity.Vector{entity.FloatVector(vector)},
	).WithANNSField(FieldVector).
		WithOutputFields(outputFields...))
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	if len(results) == 0 {
		return []SearchResult{}, nil
	}

	rs := results[0]
	hits := make([]SearchResult, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		hit := SearchResult{
			Score:  rs.Scores[i],
			Fields: make(map[string]any, len(rs.Fields)),
		}
		if ids, ok := rs.IDs.(*column.ColumnVarChar); ok {
			hit.ID = ids.Data()[i]
		}
		for _, field := range rs.Fields {
			switch col := field.(type) {
			case *column.ColumnVarChar:
				hit.Fields[col.Name()] = col.Data()[i]
			case *column.ColumnInt64:
				hit.Fields[col.Name()] = col.Data()[i]
			case *column.ColumnJSONBytes:
				hit.Fields[col.Name()] = col.Data()[i]
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// RowCount returns the number of entities in the collection.
func (c *Client) RowCount(ctx context.Context, collection string) (int64, error) {
	stats, err := c.client.GetCollectionStats(ctx, milvusclient.NewGetCollectionStatsOption(collection))
	if err != nil {
		return 0, fmt.Errorf("failed to get collection stats: %w", err)
	}
	if val, ok := stats["row_count"]; ok {
		return strconv.ParseInt(val, 10, 64)
	}
	return 0, nil
}
