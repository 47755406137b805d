package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"carousel/model"
)

// TextOverlayAgent renders each slide's text onto its source image.
type TextOverlayAgent struct {
	Base
}

func NewTextOverlayAgent(deps Deps) *TextOverlayAgent {
	return &TextOverlayAgent{Base: newBase(model.AgentTextOverlay, "", deps)}
}

// NeedsOverlay reports whether a slide has both a source image and text.
func NeedsOverlay(s model.CarouselSlide) bool {
	return s.SourceImage() != "" && s.HasText()
}

// Run overlays text concurrently on every slide that has an image and text.
// Other slides are returned unchanged without an execution. Each rendered
// image becomes the slide's primary image and the version for aspectRatio;
// versions for other ratios are kept.
func (a *TextOverlayAgent) Run(ctx context.Context, actx model.AgentContext, briefing *model.CreativeBriefing, slides []model.CarouselSlide, aspectRatio string, onProgress ProgressFunc) ([]model.CarouselSlide, []model.AgentExecution, error) {
	ratio, err := ValidateAspectRatio(aspectRatio)
	if err != nil {
		return nil, nil, err
	}

	hasWork := false
	for _, s := range slides {
		if NeedsOverlay(s) {
			hasWork = true
			break
		}
	}
	if !hasWork {
		out := make([]model.CarouselSlide, len(slides))
		for i, s := range slides {
			out[i] = s.Clone()
		}
		return out, nil, nil
	}

	res, gen, err := a.imageProvider(actx)
	if err != nil {
		ae := a.fail(a.startExecution(res, "", "", nil), err)
		return nil, []model.AgentExecution{ae.Execution}, ae
	}

	work := func(ctx context.Context, slide model.CarouselSlide) (model.CarouselSlide, model.AgentExecution) {
		idx := slide.Index
		typo := ResolveTypography(briefing, slide)
		prompt := BuildOverlayPrompt(slide.Text, typo, ratio)
		exec := a.startExecution(res, "", prompt, &idx)

		ref, err := a.sourceRef(ctx, slide.SourceImage())
		if err != nil {
			return slide, a.fail(exec, fmt.Errorf("failed to load source image: %w", err)).Execution
		}

		out, err := gen.GenerateImage(ctx, &model.GenerateImageRequest{
			Model:           res.Model,
			Prompt:          prompt,
			Size:            SizeFor(res.Model, ratio),
			AspectRatio:     ratio,
			N:               1,
			ReferenceImages: []model.ImageRef{ref},
		})
		if err != nil {
			return slide, a.fail(exec, err).Execution
		}
		exec.ImagesGenerated = len(out.Images)

		img, err := firstImage(out)
		if err != nil {
			return slide, a.fail(exec, err).Execution
		}
		tag := "overlay-" + strings.ReplaceAll(ratio, ":", "x")
		url, err := persistImage(ctx, a.deps.Media, img, idx, actx.UserID, tag)
		if err != nil {
			return slide, a.fail(exec, fmt.Errorf("failed to store image: %w", err)).Execution
		}

		now := time.Now()
		slide.ImageURL = url
		slide.Typography = &typo
		if slide.Versions == nil {
			slide.Versions = map[string]model.ImageVersion{}
		}
		slide.Versions[ratio] = model.ImageVersion{URL: url, AspectRatio: ratio, CreatedAt: now}
		slide.Metadata = &model.GenerationMetadata{Provider: res.Provider, Model: res.Model, GeneratedAt: now}
		exec.Result = url
		a.finish(ctx, &exec, out.Usage)
		return slide, exec
	}

	outSlides, execs := a.fanOut(ctx, res, slides, NeedsOverlay, work, onProgress)
	return outSlides, execs, nil
}

// sourceRef prefers inline bytes from the media store so providers never
// need to reach a local media URL.
func (a *TextOverlayAgent) sourceRef(ctx context.Context, url string) (model.ImageRef, error) {
	loader, ok := a.deps.Media.(MediaLoader)
	if !ok {
		return model.ImageRef{URL: url}, nil
	}
	data, mime, err := loader.Load(ctx, url)
	if err != nil {
		return model.ImageRef{}, err
	}
	if data == nil {
		// not one of ours
		return model.ImageRef{URL: url}, nil
	}
	return model.ImageRef{Data: data, MIMEType: mime}, nil
}

// BuildOverlayPrompt describes how to render text onto the reference image.
func BuildOverlayPrompt(text string, t model.TypographyConfig, aspectRatio string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Add this text to the reference image exactly as written, with correct spelling: %q.\n", text)
	fmt.Fprintf(&sb, "Font: %s, weight %s, size %s, color %s.\n", t.FontFamily, t.FontWeight, t.FontSize, t.Color)
	fmt.Fprintf(&sb, "Position: %s.\n", t.Position)
	if t.Background != "" {
		fmt.Fprintf(&sb, "Text background: %s.\n", t.Background)
	}
	if t.Effects != "" {
		fmt.Fprintf(&sb, "Effects: %s.\n", t.Effects)
	}
	fmt.Fprintf(&sb, "Keep the rest of the image unchanged. Output aspect ratio %s. Add no other text.", aspectRatio)
	return sb.String()
}
