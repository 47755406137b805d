package testutil

import (
	"context"
	"sync"

	"carousel/model"
)

// MockProvider implements model.Provider for testing.
type MockProvider struct {
	// Configurable responses
	GenerateTextFunc func(ctx context.Context, req *model.GenerateTextRequest) (*model.GenerateTextResult, error)
	ListModelsFunc   func(ctx context.Context) []model.ModelInfo
	IsAvailableFunc  func(ctx context.Context) bool

	name         string
	capabilities []model.Capability

	mu        sync.Mutex
	textCalls []*model.GenerateTextRequest
}

// NewMockProvider creates a text-only mock provider with default implementations.
func NewMockProvider(name string) *MockProvider {
	mock := &MockProvider{
		name:         name,
		capabilities: []model.Capability{model.CapabilityText},
	}
	mock.GenerateTextFunc = mock.defaultGenerateText
	mock.ListModelsFunc = mock.defaultListModels
	mock.IsAvailableFunc = func(context.Context) bool { return true }
	return mock
}

func (m *MockProvider) defaultGenerateText(ctx context.Context, req *model.GenerateTextRequest) (*model.GenerateTextResult, error) {
	return &model.GenerateTextResult{
		Content:  "Mock response",
		Model:    req.Model,
		Provider: m.name,
		Usage:    model.NewUsage(10, 5),
	}, nil
}

func (m *MockProvider) defaultListModels(ctx context.Context) []model.ModelInfo {
	return []model.ModelInfo{
		{ID: "mock-model-1", Name: "mock-model-1", Provider: m.name},
		{ID: "mock-model-2", Name: "mock-model-2", Provider: m.name},
	}
}

func (m *MockProvider) Name() string { return m.name }

func (m *MockProvider) Capabilities() []model.Capability { return m.capabilities }

func (m *MockProvider) IsAvailable(ctx context.Context) bool { return m.IsAvailableFunc(ctx) }

func (m *MockProvider) ListModels(ctx context.Context) []model.ModelInfo {
	return m.ListModelsFunc(ctx)
}

func (m *MockProvider) GenerateText(ctx context.Context, req *model.GenerateTextRequest) (*model.GenerateTextResult, error) {
	m.mu.Lock()
	m.textCalls = append(m.textCalls, req)
	m.mu.Unlock()
	return m.GenerateTextFunc(ctx, req)
}

// TextCalls returns the requests received by GenerateText, in call order.
func (m *MockProvider) TextCalls() []*model.GenerateTextRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.GenerateTextRequest, len(m.textCalls))
	copy(out, m.textCalls)
	return out
}

// MockImageProvider is a MockProvider that also implements model.ImageGenerator.
type MockImageProvider struct {
	*MockProvider

	GenerateImageFunc func(ctx context.Context, req *model.GenerateImageRequest) (*model.GenerateImageResult, error)

	imageMu    sync.Mutex
	imageCalls []*model.GenerateImageRequest
}

// NewMockImageProvider creates a mock provider with text and image capability.
// The default GenerateImage returns one image URL derived from the prompt.
func NewMockImageProvider(name string) *MockImageProvider {
	mock := &MockImageProvider{MockProvider: NewMockProvider(name)}
	mock.capabilities = []model.Capability{model.CapabilityText, model.CapabilityImage}
	mock.GenerateImageFunc = func(ctx context.Context, req *model.GenerateImageRequest) (*model.GenerateImageResult, error) {
		return &model.GenerateImageResult{
			Images:   []model.GeneratedImage{{URL: "https://img.test/" + name + ".png"}},
			Model:    req.Model,
			Provider: name,
		}, nil
	}
	return mock
}

func (m *MockImageProvider) GenerateImage(ctx context.Context, req *model.GenerateImageRequest) (*model.GenerateImageResult, error) {
	m.imageMu.Lock()
	m.imageCalls = append(m.imageCalls, req)
	m.imageMu.Unlock()
	return m.GenerateImageFunc(ctx, req)
}

// ImageCalls returns the requests received by GenerateImage.
func (m *MockImageProvider) ImageCalls() []*model.GenerateImageRequest {
	m.imageMu.Lock()
	defer m.imageMu.Unlock()
	out := make([]*model.GenerateImageRequest, len(m.imageCalls))
	copy(out, m.imageCalls)
	return out
}
