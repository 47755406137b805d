package agent

import (
	"context"
	"strings"
	"sync"
	"testing"

	"carousel/model"
	"carousel/provider"
	"carousel/provider/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageGeneration_FanOutIsolation(t *testing.T) {
	// slide index 2 is the "summary" slide
	p := failingOn("(summary slide)", testutil.NewMockImageProvider("openai"))
	media := &fakeMedia{}
	deps := testDeps(fakeProviders{"openai": p})
	deps.Media = media
	a := NewImageGenerationAgent(deps)

	var (
		mu       sync.Mutex
		progress []int
	)
	onProgress := func(completed, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 4, total)
		progress = append(progress, completed)
	}

	slides, execs, err := a.Run(context.Background(), testContext(), testBriefing(), testSlides("a", "b", "c", "d"), "1:1", onProgress)
	require.NoError(t, err)

	require.Len(t, slides, 4)
	for i, s := range slides {
		assert.Equal(t, i, s.Index, "slide order must match input order")
		assert.NotEmpty(t, s.ImagePrompt)
		if i == 2 {
			assert.Empty(t, s.MasterImageURL)
			assert.Empty(t, s.ImageURL)
			continue
		}
		assert.NotEmpty(t, s.MasterImageURL)
		assert.Equal(t, s.MasterImageURL, s.ImageURL)
		require.NotNil(t, s.Metadata)
		assert.Equal(t, "openai", s.Metadata.Provider)
	}

	require.Len(t, execs, 4)
	failed := 0
	for _, e := range execs {
		require.NotNil(t, e.SlideIndex)
		if e.Status == model.ExecutionFailed {
			failed++
			assert.Equal(t, 2, *e.SlideIndex)
			assert.Contains(t, e.Error, "retry later")
			continue
		}
		assert.Equal(t, 1, e.ImagesGenerated)
	}
	assert.Equal(t, 1, failed)

	assert.Equal(t, []int{1, 2, 3, 4}, progress)
	assert.Len(t, media.saved, 3)
}

func TestImageGeneration_PanicIsIsolated(t *testing.T) {
	p := failingOn("never", testutil.NewMockImageProvider("openai"))
	succeed := p.GenerateImageFunc
	p.GenerateImageFunc = func(ctx context.Context, req *model.GenerateImageRequest) (*model.GenerateImageResult, error) {
		if strings.Contains(req.Prompt, "(summary slide)") {
			panic("sdk exploded")
		}
		return succeed(ctx, req)
	}
	a := NewImageGenerationAgent(testDeps(fakeProviders{"openai": p}))

	slides, execs, err := a.Run(context.Background(), testContext(), testBriefing(), testSlides("a", "b", "c", "d"), "1:1", nil)
	require.NoError(t, err)
	require.Len(t, slides, 4)
	require.Len(t, execs, 4)

	for i, s := range slides {
		assert.Equal(t, i, s.Index)
		if i == 2 {
			assert.Empty(t, s.ImageURL)
			continue
		}
		assert.NotEmpty(t, s.ImageURL)
	}

	e := execs[2]
	assert.Equal(t, model.ExecutionFailed, e.Status)
	require.NotNil(t, e.SlideIndex)
	assert.Equal(t, 2, *e.SlideIndex)
	assert.Contains(t, e.Error, "sdk exploded")
	assert.Equal(t, model.AgentImageGeneration, e.AgentType)
}

func TestImageGeneration_Requests(t *testing.T) {
	p := failingOn("never", testutil.NewMockImageProvider("openai"))
	a := NewImageGenerationAgent(testDeps(fakeProviders{"openai": p}))

	_, _, err := a.Run(context.Background(), testContext(), testBriefing(), testSlides(), "4:5", nil)
	require.NoError(t, err)

	calls := p.ImageCalls()
	require.Len(t, calls, 4)
	for _, c := range calls {
		assert.Equal(t, "gpt-image-1", c.Model)
		assert.Equal(t, "1024x1536", c.Size)
		assert.Equal(t, "4:5", c.AspectRatio)
		assert.Contains(t, c.Prompt, "#4B2E2B")
		assert.Contains(t, c.Prompt, "Do not render any text")
	}
}

func TestImageGeneration_TextOnlyProvider(t *testing.T) {
	p := testutil.NewMockProvider("anthropic")
	actx := testContext()
	actx.AIConfig = model.AIConfig{model.AgentImageGeneration: {Provider: "anthropic"}}
	a := NewImageGenerationAgent(testDeps(fakeProviders{"anthropic": p}))

	slides, execs, err := a.Run(context.Background(), actx, testBriefing(), testSlides(), "1:1", nil)
	require.ErrorIs(t, err, provider.ErrCapabilityNotSupported)
	assert.Nil(t, slides)
	require.Len(t, execs, 1)
	assert.Equal(t, model.ExecutionFailed, execs[0].Status)
}

func TestImageGeneration_WithoutMediaStoreKeepsDataURL(t *testing.T) {
	p := failingOn("never", testutil.NewMockImageProvider("openai"))
	deps := testDeps(fakeProviders{"openai": p})
	deps.Media = nil
	a := NewImageGenerationAgent(deps)

	slides, _, err := a.Run(context.Background(), testContext(), testBriefing(), testSlides(), "1:1", nil)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", slides[0].MasterImageURL)
}

func TestSizeFor(t *testing.T) {
	tests := []struct {
		model, ratio, size string
	}{
		{"gpt-image-1", "1:1", "1024x1024"},
		{"gpt-image-1", "9:16", "1024x1536"},
		{"gpt-image-1", "16:9", "1536x1024"},
		{"dall-e-3", "4:5", "1024x1792"},
		{"dall-e-2", "16:9", "1024x1024"},
		{"imagen-3.0", "16:9", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.size, SizeFor(tt.model, tt.ratio), "%s %s", tt.model, tt.ratio)
	}
}

func TestValidateAspectRatio(t *testing.T) {
	r, err := ValidateAspectRatio("")
	require.NoError(t, err)
	assert.Equal(t, "1:1", r)

	_, err = ValidateAspectRatio("3:2")
	assert.Error(t, err)
}
