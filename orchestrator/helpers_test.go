package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"carousel/config"
	"carousel/cost"
	"carousel/model"
	"carousel/provider"
	"carousel/provider/testutil"
)

const briefingJSON = `{
  "concept": "Autumn in a cup",
  "narrative": "From harvest to first sip",
  "visualStyle": "warm editorial photography",
  "colorPalette": ["#4B2E2B", "#E07A1F"],
  "moodKeywords": ["cozy"],
  "slides": [
    {"purpose": "hook", "direction": "steam over a mug", "keyMessage": "Autumn is back"},
    {"purpose": "features", "direction": "beans close-up", "keyMessage": "Single origin"},
    {"purpose": "summary", "direction": "cafe table", "keyMessage": "Made to share"},
    {"purpose": "cta", "direction": "shop front", "keyMessage": "Order today"}
  ]
}`

const copyJSON = `{
  "caption": "Autumn is brewing. #coffee",
  "slides": [
    {"index": 0, "text": "Autumn is back"},
    {"index": 1, "text": "Single origin beans"},
    {"index": 2, "text": "Made to share"},
    {"index": 3, "text": "Order today"}
  ]
}`

const approvedAnalysis = `{"approved": true, "score": 85, "feedback": "on brand", "suggestions": []}`

const approvedCompliance = `{"approved": true, "violations": [], "suggestions": []}`

const rejectedCompliance = `{
  "approved": false,
  "violations": [{"type": "avoided_word", "severity": "high", "description": "uses the word cheap", "slideIndex": 1}],
  "suggestions": ["say affordable instead"]
}`

// script answers each agent's text call with canned JSON, chosen by the
// agent's system prompt.
type script struct {
	mu         sync.Mutex
	creative   []string
	analysis   []string
	text       []string
	compliance []string
	calls      map[model.AgentType]int
}

func newScript() *script {
	return &script{
		creative:   []string{briefingJSON},
		analysis:   []string{approvedAnalysis},
		text:       []string{copyJSON},
		compliance: []string{approvedCompliance},
		calls:      make(map[model.AgentType]int),
	}
}

func classify(req *model.GenerateTextRequest) model.AgentType {
	system := req.Messages[0].Text()
	switch {
	case strings.Contains(system, "compliance reviewer"):
		return model.AgentCompliance
	case strings.Contains(system, "review creative briefings"):
		return model.AgentAnalysis
	case strings.Contains(system, "copywriter"):
		return model.AgentTextCreation
	case strings.Contains(system, "creative director"):
		return model.AgentCreativeDirection
	default:
		panic("unrecognized agent prompt: " + system)
	}
}

// next returns the n-th response, repeating the last one.
func next(responses []string, n int) string {
	if n >= len(responses) {
		return responses[len(responses)-1]
	}
	return responses[n]
}

func (s *script) respond(req *model.GenerateTextRequest) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := classify(req)
	n := s.calls[t]
	s.calls[t]++
	switch t {
	case model.AgentCreativeDirection:
		return next(s.creative, n)
	case model.AgentAnalysis:
		return next(s.analysis, n)
	case model.AgentTextCreation:
		return next(s.text, n)
	default:
		return next(s.compliance, n)
	}
}

func (s *script) count(t model.AgentType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[t]
}

func (s *script) provider() *testutil.MockImageProvider {
	p := testutil.NewMockImageProvider("openai")
	p.GenerateTextFunc = func(ctx context.Context, req *model.GenerateTextRequest) (*model.GenerateTextResult, error) {
		return &model.GenerateTextResult{
			Content:  s.respond(req),
			Model:    req.Model,
			Provider: "openai",
			Usage:    model.NewUsage(100, 50),
		}, nil
	}
	return p
}

type fakeProviders map[string]model.Provider

func (f fakeProviders) Provider(id string) (model.Provider, error) {
	p, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, provider.ErrProviderDisabled)
	}
	return p, nil
}

type fakeBrands map[string]*model.BrandRecord

func (f fakeBrands) Get(ctx context.Context, id string) (*model.BrandRecord, error) {
	b, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("brand %s not found", id)
	}
	return b, nil
}

type recordingSink struct {
	mu        sync.Mutex
	saved     []model.GenerationProgress
	published int
	err       error
}

func (s *recordingSink) SaveProgress(ctx context.Context, p model.GenerationProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, p)
	return s.err
}

func (s *recordingSink) Publish(ctx context.Context, p model.GenerationProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published++
	return s.err
}

func (s *recordingSink) steps() []model.GenerationStep {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.GenerationStep
	for _, p := range s.saved {
		if len(out) == 0 || out[len(out)-1] != p.Step {
			out = append(out, p.Step)
		}
	}
	return out
}

func (s *recordingSink) last() model.GenerationProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved[len(s.saved)-1]
}

type fakeLock struct {
	mu         sync.Mutex
	busy       bool
	acquired   int
	released   []string
	releaseErr error
	marked     []string
}

func (l *fakeLock) AcquireGeneration(ctx context.Context, postID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.busy {
		return false, nil
	}
	l.busy = true
	l.acquired++
	return true, nil
}

func (l *fakeLock) ReleaseGeneration(ctx context.Context, postID string, runErr string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.released = append(l.released, runErr)
	if l.releaseErr != nil {
		return l.releaseErr
	}
	l.busy = false
	return nil
}

func (l *fakeLock) MarkError(ctx context.Context, postID, msg string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.busy = false
	l.marked = append(l.marked, msg)
	return nil
}

type usageRow struct {
	execID string
	cost   float64
}

type fakeUsage struct {
	mu   sync.Mutex
	rows []usageRow
}

func (u *fakeUsage) RecordUsage(ctx context.Context, runID, brandID string, exec model.AgentExecution, costUSD float64) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.rows = append(u.rows, usageRow{exec.ID, costUSD})
	return nil
}

// flatCalc charges a tenth of a cent per token and four cents per image.
type flatCalc struct{}

func (flatCalc) CalculateCost(u cost.Usage) cost.Result {
	return cost.Result{CostUSD: float64(u.PromptTokens+u.CompletionTokens)*0.001 + float64(u.ImagesGenerated)*0.04}
}

func (c flatCalc) CalculateAggregateCost(usages []cost.Usage) cost.Result {
	var total float64
	for _, u := range usages {
		total += c.CalculateCost(u).CostUSD
	}
	return cost.Result{CostUSD: total}
}

type fixture struct {
	script *script
	prov   *testutil.MockImageProvider
	brand  *model.BrandRecord
	sink   *recordingSink
	lock   *fakeLock
	usage  *fakeUsage
	deps   Deps
}

func newFixture() *fixture {
	s := newScript()
	p := s.provider()
	brand := testutil.TestBrand()
	brand.ID = "brand-1"

	f := &fixture{
		script: s,
		prov:   p,
		brand:  brand,
		sink:   &recordingSink{},
		lock:   &fakeLock{},
		usage:  &fakeUsage{},
	}
	f.deps = Deps{
		Brands:       fakeBrands{"brand-1": brand},
		Providers:    fakeProviders{"openai": p},
		Settings:     config.AISettings{DefaultProvider: "openai", ImageModel: "gpt-image-1"},
		Progress:     f.sink,
		Cost:         flatCalc{},
		Usage:        f.usage,
		LockResource: f.lock,
	}
	return f
}

func (f *fixture) orchestrator() *Orchestrator {
	return New(f.deps)
}

func testRequest() Request {
	return Request{
		BrandID:    "brand-1",
		PostID:     "post-1",
		Platform:   "instagram",
		UserPrompt: "Launch our autumn blend",
		UserID:     "user-1",
	}
}

func countAgent(execs []model.AgentExecution, t model.AgentType) int {
	n := 0
	for _, e := range execs {
		if e.AgentType == t {
			n++
		}
	}
	return n
}

func statusesOf(execs []model.AgentExecution, t model.AgentType) []model.ExecutionStatus {
	var out []model.ExecutionStatus
	for _, e := range execs {
		if e.AgentType == t {
			out = append(out, e.Status)
		}
	}
	return out
}
