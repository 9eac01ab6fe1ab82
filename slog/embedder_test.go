package slog_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/fwojciec/docindex/mock"
	dislog "github.com/fwojciec/docindex/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingEmbedder(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	inner := &mock.Embedder{
		EmbedFn: func(ctx context.Context, texts []string) ([][]float32, error) {
			return [][]float32{{1}, {2}}, nil
		},
		DimensionsFn: func() int { return 1 },
		ModelNameFn:  func() string { return "tiny" },
	}

	e := dislog.NewLoggingEmbedder(inner, logger)
	vecs, err := e.Embed(context.Background(), []string{"a", "b"})

	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Equal(t, 1, e.Dimensions())
	assert.Equal(t, "tiny", e.ModelName())
	output := buf.String()
	assert.Contains(t, output, "msg=embed")
	assert.Contains(t, output, "model=tiny")
	assert.Contains(t, output, "texts=2")
	assert.Contains(t, output, "vectors=2")
}
