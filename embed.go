package docindex

import "context"

// DefaultEmbedBatchSize is the number of texts sent per embedding request.
const DefaultEmbedBatchSize = 50

// EmbedBatches calls embed for consecutive batches of at most size texts
// and concatenates the vectors in input order.
func EmbedBatches(ctx context.Context, texts []string, size int, embed func(ctx context.Context, batch []string) ([][]float32, error)) ([][]float32, error) {
	if size <= 0 {
		size = DefaultEmbedBatchSize
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+size, len(texts))
		vecs, err := embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vecs) != end-start {
			return nil, Errorf(EFETCH, "embedding service returned %d vectors for %d texts", len(vecs), end-start)
		}
		out = append(out, vecs...)
	}
	return out, nil
}
