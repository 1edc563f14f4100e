package embedding

import "context"

// MockClient returns deterministic vectors for testing. By default it
// hashes each text into a small fixed-dimension vector so distinct texts
// get distinct embeddings.
type MockClient struct {
	EmbedResponse [][]float32
	EmbedError    error

	EmbedCalls []string
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (c *MockClient) Model() string {
	return "mock-embedding"
}

func (c *MockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *MockClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.EmbedCalls = append(c.EmbedCalls, texts...)
	if c.EmbedError != nil {
		return nil, c.EmbedError
	}
	if c.EmbedResponse != nil {
		return c.EmbedResponse, nil
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = hashVector(text)
	}
	return vectors, nil
}

// hashVector spreads the text's bytes over an 8-dim vector. Not
// meaningful semantically, but stable and non-zero for non-empty input.
func hashVector(text string) []float32 {
	v := make([]float32, 8)
	for i, b := range []byte(text) {
		v[i%8] += float32(b) / 255
	}
	return v
}
