package agent

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"

	"carousel/config"
	"carousel/model"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ProgressFunc reports fan-out progress. It is called once per settled slide
// (success or failure) with a strictly increasing completed count.
type ProgressFunc func(completed, total int)

type slideWork func(ctx context.Context, slide model.CarouselSlide) (model.CarouselSlide, model.AgentExecution)

// fanOut runs work concurrently for every eligible slide and waits for all of
// them. Ineligible slides are passed through unchanged and produce no
// execution. The returned slides keep input order; executions are ordered by
// slide index. res attributes the execution of a slide whose work panics.
func (b *Base) fanOut(ctx context.Context, res Resolution, slides []model.CarouselSlide, eligible func(model.CarouselSlide) bool, work slideWork, onProgress ProgressFunc) ([]model.CarouselSlide, []model.AgentExecution) {
	results := make([]model.CarouselSlide, len(slides))
	execs := make([]*model.AgentExecution, len(slides))

	total := 0
	for _, s := range slides {
		if eligible(s) {
			total++
		}
	}

	var (
		g         errgroup.Group
		mu        sync.Mutex
		completed int
	)
	for i, s := range slides {
		if !eligible(s) {
			results[i] = s.Clone()
			continue
		}
		g.Go(func() error {
			out, exec := b.runSlide(ctx, res, s.Clone(), work)
			results[i] = out
			execs[i] = &exec

			mu.Lock()
			completed++
			if onProgress != nil {
				onProgress(completed, total)
			}
			mu.Unlock()
			// slide failures are recorded in the execution, never returned
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.AgentExecution, 0, total)
	for _, e := range execs {
		if e != nil {
			out = append(out, *e)
		}
	}
	return results, out
}

// runSlide calls work for one slide. A panic becomes a failed execution of
// that slide and the slide is returned as it was passed in.
func (b *Base) runSlide(ctx context.Context, res Resolution, slide model.CarouselSlide, work slideWork) (out model.CarouselSlide, exec model.AgentExecution) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if config.Debug {
			config.DebugLog.Printf("[Agent] %s slide %d panicked: %v, stack: %s", b.agentType, slide.Index, r, debug.Stack())
		}
		idx := slide.Index
		out = slide
		exec = b.fail(b.startExecution(res, "", "", &idx), fmt.Errorf("slide %d: panic: %v", idx, r)).Execution
	}()
	return work(ctx, slide.Clone())
}

// persistImage stores a generated image and returns its stable URL. Without
// a media store the provider URL (or a data: URL) is used as is.
func persistImage(ctx context.Context, media MediaStore, img model.GeneratedImage, slideIndex int, userID, tag string) (string, error) {
	filename := fmt.Sprintf("slide-%d-%s-%s.%s", slideIndex+1, tag, uuid.NewString()[:8], imageExt(img.MIMEType))

	switch {
	case img.B64JSON != "":
		if media == nil {
			return "data:" + mimeOrPNG(img.MIMEType) + ";base64," + img.B64JSON, nil
		}
		if _, err := base64.StdEncoding.DecodeString(img.B64JSON); err != nil {
			return "", fmt.Errorf("provider returned invalid base64 image: %w", err)
		}
		return media.SaveFromBase64(ctx, img.B64JSON, filename, userID, tag)
	case img.URL != "":
		if media == nil {
			return img.URL, nil
		}
		return media.SaveFromURL(ctx, img.URL, filename, userID, tag)
	default:
		return "", errors.New("provider returned an empty image")
	}
}

func mimeOrPNG(mime string) string {
	if strings.HasPrefix(mime, "image/") {
		return mime
	}
	return "image/png"
}

func imageExt(mime string) string {
	switch mimeOrPNG(mime) {
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}

func firstImage(res *model.GenerateImageResult) (model.GeneratedImage, error) {
	if res == nil || len(res.Images) == 0 {
		return model.GeneratedImage{}, errors.New("provider returned no image")
	}
	return res.Images[0], nil
}
