package redis

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	options "github.com/kart-io/kb-chatbot/pkg/options/redis"
)

func miniredisOptions(t *testing.T) (*miniredis.Miniredis, *options.Options) {
	t.Helper()
	mr := miniredis.RunT(t)

	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	opts := options.NewOptions()
	opts.Host = mr.Host()
	opts.Port = port
	return mr, opts
}

func TestNewWithContext(t *testing.T) {
	mr, opts := miniredisOptions(t)

	c, err := NewWithContext(context.Background(), opts)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Client().Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
	assert.NoError(t, c.Ping(context.Background()))
}

func TestNewWithContextUnreachable(t *testing.T) {
	mr, opts := miniredisOptions(t)
	mr.Close()
	opts.DialTimeout = 200 * time.Millisecond
	opts.MaxRetries = -1

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewWithContext(ctx, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping redis")
}

func TestNewWithContextInvalidOptions(t *testing.T) {
	opts := options.NewOptions()
	opts.Host = ""

	_, err := NewWithContext(context.Background(), opts)
	assert.ErrorContains(t, err, "redis host is required")
}
