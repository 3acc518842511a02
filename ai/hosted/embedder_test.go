package hosted

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/citare/ai"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	resp    openai.EmbeddingResponse
	err     error
	lastReq openai.EmbeddingRequest
}

func (f *fakeClient) CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	f.lastReq = conv.Convert()
	return f.resp, f.err
}

func TestEmbedTexts_OrdersByIndex(t *testing.T) {
	client := &fakeClient{resp: openai.EmbeddingResponse{
		Data: []openai.Embedding{
			{Index: 1, Embedding: []float32{0, 1}},
			{Index: 0, Embedding: []float32{1, 0}},
		},
	}}
	e := newEmbedderWithClient(client, ai.NewConfig(ai.WithModel("text-embedding-3-small"), ai.WithDimensions(2)))

	vectors, err := e.EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
	assert.Equal(t, 2, client.lastReq.Dimensions)
	assert.Equal(t, "text-embedding-3-small", e.ModelName())
}

func TestEmbedTexts_NoDimensionsForLegacyModel(t *testing.T) {
	client := &fakeClient{resp: openai.EmbeddingResponse{
		Data: []openai.Embedding{{Index: 0, Embedding: []float32{1}}},
	}}
	e := newEmbedderWithClient(client, ai.NewConfig(ai.WithModel(string(openai.AdaEmbeddingV2))))

	_, err := e.EmbedText(context.Background(), "a")
	require.NoError(t, err)
	assert.Zero(t, client.lastReq.Dimensions)
}

func TestEmbedText_Errors(t *testing.T) {
	t.Run("client error", func(t *testing.T) {
		boom := errors.New("unauthorized")
		e := newEmbedderWithClient(&fakeClient{err: boom}, ai.NewConfig())
		_, err := e.EmbedText(context.Background(), "a")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("empty response", func(t *testing.T) {
		e := newEmbedderWithClient(&fakeClient{}, ai.NewConfig())
		_, err := e.EmbedText(context.Background(), "a")
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})
}

func TestNewProvider_RequiresKey(t *testing.T) {
	_, err := NewProvider(ai.NewConfig(ai.WithProvider(ai.ProviderOpenAI)))
	assert.Error(t, err)

	p, err := NewProvider(ai.NewConfig(ai.WithProvider(ai.ProviderOpenAI), ai.WithAPIKey("sk-test")))
	require.NoError(t, err)
	assert.NotNil(t, p.Embedder())
	assert.NoError(t, p.Close())
}
