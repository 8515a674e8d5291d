package source

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/finresearch/internal/model"
	"github.com/sells-group/finresearch/pkg/perplexity"
)

// --- Perplexity Mock ---

type mockChatClient struct {
	mock.Mock
}

func (m *mockChatClient) ChatCompletion(ctx context.Context, req perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*perplexity.ChatCompletionResponse), args.Error(1)
}

// --- Adapter Mock ---

type mockAdapter struct {
	mock.Mock
	name model.Source
}

func (m *mockAdapter) Name() model.Source { return m.name }

func (m *mockAdapter) Fetch(ctx context.Context, p model.Period) (*model.ExtractionResult, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ExtractionResult), args.Error(1)
}

func chatResponse(content string) *perplexity.ChatCompletionResponse {
	return &perplexity.ChatCompletionResponse{
		ID:      "cmpl-1",
		Choices: []perplexity.Choice{{Message: perplexity.Message{Role: "assistant", Content: content}}},
	}
}
