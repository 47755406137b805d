package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"carousel/config"
	"carousel/model"
	"carousel/provider"
	"carousel/provider/testutil"
)

type fakeProviders map[string]model.Provider

func (f fakeProviders) Provider(id string) (model.Provider, error) {
	p, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, provider.ErrProviderDisabled)
	}
	return p, nil
}

type fakeMedia struct {
	mu    sync.Mutex
	saved []string
}

func (m *fakeMedia) SaveFromURL(ctx context.Context, url, filename, userID, tag string) (string, error) {
	return m.save(filename)
}

func (m *fakeMedia) SaveFromBase64(ctx context.Context, b64, filename, userID, tag string) (string, error) {
	return m.save(filename)
}

func (m *fakeMedia) save(filename string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, filename)
	return "/media/" + filename, nil
}

func textReturning(p *testutil.MockProvider, content string) *testutil.MockProvider {
	p.GenerateTextFunc = func(ctx context.Context, req *model.GenerateTextRequest) (*model.GenerateTextResult, error) {
		return &model.GenerateTextResult{Content: content, Model: req.Model, Provider: p.Name(), Usage: model.NewUsage(100, 50)}, nil
	}
	return p
}

func testDeps(providers fakeProviders) Deps {
	return Deps{
		Providers: providers,
		Settings:  config.AISettings{DefaultProvider: "openai", ImageModel: "gpt-image-1"},
		Media:     &fakeMedia{},
	}
}

func testContext() model.AgentContext {
	return model.NewAgentContext(*testutil.TestBrand(), "instagram", "Launch our autumn blend", "user-1", nil)
}

const validBriefingJSON = `{
  "concept": "Autumn in a cup",
  "narrative": "From harvest to first sip",
  "visualStyle": "warm editorial photography",
  "colorPalette": ["#4B2E2B", "#E07A1F"],
  "moodKeywords": ["cozy", "crisp"],
  "slides": [
    {"purpose": "hook", "direction": "steam over a mug", "keyMessage": "Autumn is back"},
    {"purpose": "features", "direction": "beans close-up", "keyMessage": "Single origin", "overlayStyle": {"fontFamily": "Playfair Display"}},
    {"purpose": "summary", "direction": "cafe table", "keyMessage": "Made to share"},
    {"purpose": "cta", "direction": "shop front", "keyMessage": "Order today"}
  ]
}`

func testBriefing() *model.CreativeBriefing {
	b, err := Decode(validBriefingJSON, DecodeStrict, model.CreativeBriefing{})
	if err != nil {
		panic(err)
	}
	return &b
}

func testSlides(texts ...string) []model.CarouselSlide {
	slides := make([]model.CarouselSlide, model.SlideCount)
	for i := range slides {
		slides[i] = model.CarouselSlide{Index: i, Purpose: model.SlidePurposes[i]}
		if i < len(texts) {
			slides[i].Text = texts[i]
		}
	}
	return slides
}

func failingOn(slideMarker string, p *testutil.MockImageProvider) *testutil.MockImageProvider {
	p.GenerateImageFunc = func(ctx context.Context, req *model.GenerateImageRequest) (*model.GenerateImageResult, error) {
		if strings.Contains(req.Prompt, slideMarker) {
			return nil, &provider.ProviderError{Provider: p.Name(), StatusCode: 500, Message: "service unavailable, retry later"}
		}
		return &model.GenerateImageResult{
			Images:   []model.GeneratedImage{{B64JSON: "aGVsbG8=", MIMEType: "image/png"}},
			Model:    req.Model,
			Provider: p.Name(),
		}, nil
	}
	return p
}
