package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"carousel/model"
	"carousel/provider"
)

// ImageGenerationAgent renders the text-free master image of every slide.
type ImageGenerationAgent struct {
	Base
}

func NewImageGenerationAgent(deps Deps) *ImageGenerationAgent {
	return &ImageGenerationAgent{Base: newBase(model.AgentImageGeneration, "", deps)}
}

// Run generates all master images concurrently. A failing slide keeps only
// its prompt and a failed execution; it never aborts the other slides. The
// error return is reserved for failures that affect every slide, such as an
// unknown image model or a provider without image support.
func (a *ImageGenerationAgent) Run(ctx context.Context, actx model.AgentContext, briefing *model.CreativeBriefing, slides []model.CarouselSlide, aspectRatio string, onProgress ProgressFunc) ([]model.CarouselSlide, []model.AgentExecution, error) {
	res, gen, err := a.imageProvider(actx)
	if err != nil {
		ae := a.fail(a.startExecution(res, "", "", nil), err)
		return nil, []model.AgentExecution{ae.Execution}, ae
	}

	work := func(ctx context.Context, slide model.CarouselSlide) (model.CarouselSlide, model.AgentExecution) {
		idx := slide.Index
		prompt := BuildImagePrompt(actx, briefing, slide)
		slide.ImagePrompt = prompt
		exec := a.startExecution(res, "", prompt, &idx)

		out, err := gen.GenerateImage(ctx, &model.GenerateImageRequest{
			Model:       res.Model,
			Prompt:      prompt,
			Size:        SizeFor(res.Model, aspectRatio),
			AspectRatio: aspectRatio,
			N:           1,
		})
		if err != nil {
			return slide, a.fail(exec, err).Execution
		}
		exec.ImagesGenerated = len(out.Images)

		img, err := firstImage(out)
		if err != nil {
			return slide, a.fail(exec, err).Execution
		}
		url, err := persistImage(ctx, a.deps.Media, img, idx, actx.UserID, "master")
		if err != nil {
			return slide, a.fail(exec, fmt.Errorf("failed to store image: %w", err)).Execution
		}

		slide.MasterImageURL = url
		slide.ImageURL = url
		slide.Metadata = &model.GenerationMetadata{Provider: res.Provider, Model: res.Model, GeneratedAt: time.Now()}
		exec.Result = url
		a.finish(ctx, &exec, out.Usage)
		return slide, exec
	}

	all := func(model.CarouselSlide) bool { return true }
	outSlides, execs := a.fanOut(ctx, res, slides, all, work, onProgress)
	return outSlides, execs, nil
}

// imageProvider resolves the image model and returns an image-capable provider.
func (b *Base) imageProvider(actx model.AgentContext) (Resolution, model.ImageGenerator, error) {
	res, err := b.ResolveImage(actx)
	if err != nil {
		return res, nil, err
	}
	p, err := b.deps.Providers.Provider(res.Provider)
	if err != nil {
		return res, nil, err
	}
	gen, err := provider.AsImageGenerator(p)
	if err != nil {
		return res, nil, err
	}
	return res, gen, nil
}

// BuildImagePrompt describes the master image of one slide.
func BuildImagePrompt(actx model.AgentContext, briefing *model.CreativeBriefing, slide model.CarouselSlide) string {
	var sb strings.Builder
	intent := model.SlideIntent{Purpose: slide.Purpose}
	if briefing != nil && slide.Index >= 0 && slide.Index < len(briefing.Slides) {
		intent = briefing.Slides[slide.Index]
	}

	fmt.Fprintf(&sb, "Slide %d of %d of a social media carousel for %s (%s slide).\n",
		slide.Index+1, model.SlideCount, actx.Brand.Name, slide.Purpose)
	if briefing != nil {
		fmt.Fprintf(&sb, "Visual style: %s.\n", briefing.VisualStyle)
		fmt.Fprintf(&sb, "Campaign concept: %s.\n", briefing.Concept)
		writeList(&sb, "Mood", briefing.MoodKeywords)
	}
	if intent.Direction != "" {
		fmt.Fprintf(&sb, "Scene: %s.\n", intent.Direction)
	}
	if intent.KeyMessage != "" {
		fmt.Fprintf(&sb, "The image should convey: %s.\n", intent.KeyMessage)
	}
	if palette := colorPalette(actx, briefing); len(palette) > 0 {
		fmt.Fprintf(&sb, "Color palette: %s.\n", strings.Join(palette, ", "))
	}
	position := FallbackTypography(slide.Purpose).Position
	fmt.Fprintf(&sb, "Do not render any text, letters, logos or watermarks. Leave clean space at the %s for a text overlay.", position)
	return sb.String()
}

// colorPalette merges the briefing palette with the brand colors, briefing first.
func colorPalette(actx model.AgentContext, briefing *model.CreativeBriefing) []string {
	var out []string
	seen := map[string]bool{}
	add := func(colors []string) {
		for _, c := range colors {
			key := strings.ToLower(strings.TrimSpace(c))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, c)
		}
	}
	if briefing != nil {
		add(briefing.ColorPalette)
	}
	add(actx.Brand.Colors)
	return out
}
