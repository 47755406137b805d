// Package orchestrator runs the carousel pipeline: it sequences the agents,
// applies the analysis and compliance retry rules, aggregates executions and
// cost, and reports progress after every transition.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"carousel/agent"
	"carousel/config"
	"carousel/model"

	"github.com/google/uuid"
)

// Retry thresholds.
const (
	// analysisRetryScore: a rejected briefing scoring below this is redone once.
	analysisRetryScore = 50
)

// Deps are the collaborators of an Orchestrator. Only Brands and Providers
// are required.
type Deps struct {
	Brands    BrandStore
	Providers agent.ProviderSource
	Checker   ProviderChecker
	Settings  config.AISettings
	Media     agent.MediaStore

	Progress ProgressSink
	Cost     CostCalculator
	Usage    UsageRecorder
	Results  ResultStore

	LockResource RunLockResource
	Locks        *RunLocks
}

// Request is one generation request.
type Request struct {
	// RunID identifies the run in progress snapshots; generated when empty.
	RunID            string
	BrandID          string
	PostID           string
	Platform         string
	UserPrompt       string
	ReferenceImages  []string
	UserID           string
	AspectRatio      string
	ProviderOverride string
}

func (r Request) validate() error {
	var missing []string
	if strings.TrimSpace(r.BrandID) == "" {
		missing = append(missing, "brand")
	}
	if strings.TrimSpace(r.PostID) == "" {
		missing = append(missing, "post")
	}
	if strings.TrimSpace(r.UserPrompt) == "" {
		missing = append(missing, "prompt")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	return nil
}

// Orchestrator runs generation requests. It is safe for concurrent use;
// runs for the same post are rejected while one is in flight.
type Orchestrator struct {
	deps         Deps
	locks        *RunLocks
	lockResource RunLockResource
	validator    Validator

	creative   *agent.CreativeDirectionAgent
	analysis   *agent.AnalysisAgent
	text       *agent.TextCreationAgent
	compliance *agent.ComplianceAgent
	images     *agent.ImageGenerationAgent
	overlay    *agent.TextOverlayAgent
}

func New(deps Deps) *Orchestrator {
	locks := deps.Locks
	if locks == nil {
		locks = NewRunLocks()
	}
	agentDeps := agent.Deps{Providers: deps.Providers, Settings: deps.Settings, Media: deps.Media}
	return &Orchestrator{
		deps:         deps,
		locks:        locks,
		lockResource: deps.LockResource,
		validator:    Validator{Settings: deps.Settings, Checker: deps.Checker},
		creative:     agent.NewCreativeDirectionAgent(agentDeps),
		analysis:     agent.NewAnalysisAgent(agentDeps),
		text:         agent.NewTextCreationAgent(agentDeps),
		compliance:   agent.NewComplianceAgent(agentDeps),
		images:       agent.NewImageGenerationAgent(agentDeps),
		overlay:      agent.NewTextOverlayAgent(agentDeps),
	}
}

// Validate runs the pre-flight configuration check for a brand.
func (o *Orchestrator) Validate(brand *model.BrandRecord, providerOverride string) error {
	return o.validator.Validate(brand.AIConfig, providerOverride)
}

// Run executes the pipeline for req. The error is non-nil only when the
// request is invalid or another run holds the post; every other failure is
// reported through a result with Success=false.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*model.OrchestrationResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.RunID == "" {
		req.RunID = uuid.New().String()
	}
	if req.AspectRatio == "" {
		req.AspectRatio = agent.DefaultAspectRatio
	}

	unlock, err := o.lock(ctx, req.PostID)
	if err != nil {
		return nil, err
	}

	r := &run{
		o:       o,
		req:     req,
		started: time.Now(),
		emitter: NewProgressEmitter(o.deps.Progress, progressBuffer),
	}

	var result *model.OrchestrationResult
	defer func() {
		runErr := ""
		if result != nil {
			runErr = result.Error
		} else {
			runErr = "run aborted"
		}
		unlock(runErr)
	}()

	result = r.execute(ctx)
	r.emitter.Close()
	o.saveResult(ctx, req, result)
	return result, nil
}

func (o *Orchestrator) saveResult(ctx context.Context, req Request, result *model.OrchestrationResult) {
	if o.deps.Results == nil {
		return
	}
	if err := o.deps.Results.SaveResult(context.WithoutCancel(ctx), req.PostID, req.BrandID, result); err != nil && config.Debug {
		config.DebugLog.Printf("[Orchestrator] failed to save result of run %s: %v", req.RunID, err)
	}
}

// run is the state of one pipeline execution.
type run struct {
	o       *Orchestrator
	req     Request
	started time.Time
	emitter *ProgressEmitter

	step     model.GenerationStep
	execs    []model.AgentExecution
	briefing *model.CreativeBriefing
	slides   []model.CarouselSlide
	caption  string
	cost     *model.CostSummary
}

// failure carries the step a run failed in.
type failure struct {
	step model.GenerationStep
	err  error
}

func (r *run) execute(ctx context.Context) *model.OrchestrationResult {
	if f := r.pipeline(ctx); f != nil {
		return r.fail(ctx, f)
	}
	return r.complete(ctx)
}

func (r *run) pipeline(ctx context.Context) *failure {
	o := r.o

	// loading_brand
	r.emit(model.StepLoadingBrand, "Loading brand", "", nil)
	var brand *model.BrandRecord
	err := r.stage(ctx, func(ctx context.Context) error {
		var err error
		brand, err = o.deps.Brands.Get(ctx, r.req.BrandID)
		return err
	})
	if err != nil {
		return &failure{model.StepLoadingBrand, fmt.Errorf("failed to load brand %s: %w", r.req.BrandID, err)}
	}
	if err := o.Validate(brand, r.req.ProviderOverride); err != nil {
		return &failure{model.StepLoadingBrand, err}
	}
	ratio, err := agent.ValidateAspectRatio(r.req.AspectRatio)
	if err != nil {
		return &failure{model.StepLoadingBrand, err}
	}

	actx := model.NewAgentContext(*brand, r.req.Platform, r.req.UserPrompt, r.req.UserID, r.req.ReferenceImages)
	actx.ProviderOverride = r.req.ProviderOverride

	// creative_direction
	if f := r.creativeDirection(ctx, actx, false); f != nil {
		return f
	}

	// analysis
	r.emit(model.StepAnalysis, "Reviewing the creative direction", model.AgentAnalysis, nil)
	var analysis *model.AnalysisResult
	err = r.stage(ctx, func(ctx context.Context) error {
		res, exec, err := o.analysis.Run(ctx, actx, r.briefing)
		if err != nil {
			return err
		}
		r.record(exec)
		analysis = res
		return nil
	})
	if err != nil {
		return &failure{model.StepAnalysis, err}
	}
	if !analysis.Approved && analysis.Score < analysisRetryScore {
		r.logf("analysis rejected the briefing (score %d), redoing creative direction", analysis.Score)
		if f := r.creativeDirection(ctx, actx, true); f != nil {
			return f
		}
	}

	// text_creation
	if f := r.textCreation(ctx, actx, false); f != nil {
		return f
	}

	// compliance
	verdict, f := r.checkCompliance(ctx, actx, false)
	if f != nil {
		return f
	}
	if !verdict.Approved {
		feedback := agent.FeedbackString(verdict)
		corrected := actx.WithUserPrompt(strings.TrimSpace(actx.UserPrompt + "\n\n" + feedback))
		r.logf("compliance rejected the copy (%d violations), rewriting once", len(verdict.Violations))

		if f := r.textCreation(ctx, corrected, true); f != nil {
			return f
		}
		recheck, f := r.checkCompliance(ctx, corrected, true)
		if f != nil {
			return f
		}
		if !recheck.Approved {
			r.logf("compliance still rejects the rewritten copy, continuing")
		}
	}

	// image_generation
	r.emit(model.StepImageGeneration, "Generating slide images", model.AgentImageGeneration, &model.SubProgress{Total: len(r.slides)})
	err = r.stage(ctx, func(ctx context.Context) error {
		slides, execs, err := o.images.Run(ctx, actx, r.briefing, r.slides, ratio, r.fanOutProgress(model.StepImageGeneration, model.AgentImageGeneration, "image"))
		if err != nil {
			return err
		}
		r.record(execs...)
		r.slides = slides
		return nil
	})
	if err != nil {
		return &failure{model.StepImageGeneration, err}
	}
	r.updateCost()

	// text_overlay
	r.emit(model.StepTextOverlay, "Rendering slide text", model.AgentTextOverlay, nil)
	err = r.stage(ctx, func(ctx context.Context) error {
		slides, execs, err := o.overlay.Run(ctx, actx, r.briefing, r.slides, ratio, r.fanOutProgress(model.StepTextOverlay, model.AgentTextOverlay, "overlay"))
		if err != nil {
			return err
		}
		r.record(execs...)
		r.slides = slides
		return nil
	})
	if err != nil {
		return &failure{model.StepTextOverlay, err}
	}
	r.updateCost()
	return nil
}

func (r *run) creativeDirection(ctx context.Context, actx model.AgentContext, retry bool) *failure {
	msg := "Planning the creative direction"
	if retry {
		msg = "Redoing the creative direction"
	}
	r.emit(model.StepCreativeDirection, msg, model.AgentCreativeDirection, nil)

	err := r.stage(ctx, func(ctx context.Context) error {
		if retry {
			ctx = agent.WithRetry(ctx)
		}
		briefing, exec, err := r.o.creative.Run(ctx, actx)
		if err != nil {
			return err
		}
		r.record(exec)
		r.briefing = briefing
		return nil
	})
	if err != nil {
		return &failure{model.StepCreativeDirection, err}
	}
	return nil
}

func (r *run) textCreation(ctx context.Context, actx model.AgentContext, retry bool) *failure {
	msg := "Writing slide copy"
	if retry {
		msg = "Rewriting slide copy with compliance feedback"
	}
	r.emit(model.StepTextCreation, msg, model.AgentTextCreation, nil)

	err := r.stage(ctx, func(ctx context.Context) error {
		if retry {
			ctx = agent.WithRetry(ctx)
		}
		written, exec, err := r.o.text.Run(ctx, actx, r.briefing)
		if err != nil {
			return err
		}
		r.record(exec)
		r.slides = agent.BuildSlides(r.briefing, written)
		r.caption = written.Caption
		return nil
	})
	if err != nil {
		return &failure{model.StepTextCreation, err}
	}
	return nil
}

func (r *run) checkCompliance(ctx context.Context, actx model.AgentContext, recheck bool) (*model.ComplianceResult, *failure) {
	msg := "Checking brand compliance"
	if recheck {
		msg = "Re-checking brand compliance"
	}
	r.emit(model.StepCompliance, msg, model.AgentCompliance, nil)

	var verdict *model.ComplianceResult
	err := r.stage(ctx, func(ctx context.Context) error {
		if recheck {
			ctx = agent.WithRetry(ctx)
		}
		res, exec, err := r.o.compliance.Run(ctx, actx, r.slides, r.caption)
		if err != nil {
			return err
		}
		if exec != nil {
			r.record(*exec)
		}
		verdict = res
		return nil
	})
	if err != nil {
		return nil, &failure{model.StepCompliance, err}
	}
	return verdict, nil
}

// stage runs fn under the per-stage deadline.
func (r *run) stage(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.o.deps.Settings.Timeout())
	defer cancel()
	return fn(ctx)
}

func (r *run) record(execs ...model.AgentExecution) {
	r.execs = append(r.execs, execs...)
}

// recordFailed appends the execution carried by err unless it is already
// in the list.
func (r *run) recordFailed(err error) {
	exec, ok := agent.ExecutionOf(err)
	if !ok {
		return
	}
	for _, e := range r.execs {
		if e.ID == exec.ID {
			return
		}
	}
	r.record(exec)
}

func (r *run) fanOutProgress(step model.GenerationStep, agentType model.AgentType, item string) agent.ProgressFunc {
	return func(completed, total int) {
		r.emit(step, fmt.Sprintf("Finished %s %d of %d", item, completed, total), agentType, &model.SubProgress{
			Current:  completed,
			Total:    total,
			ItemName: fmt.Sprintf("%s %d/%d", item, completed, total),
		})
	}
}

func (r *run) updateCost() {
	if r.o.deps.Cost == nil {
		return
	}
	r.cost = Summarize(r.o.deps.Cost, r.execs)
}

func (r *run) emit(step model.GenerationStep, msg string, agentType model.AgentType, sub *model.SubProgress) {
	r.step = step
	p := model.GenerationProgress{
		RunID:      r.req.RunID,
		PostID:     r.req.PostID,
		Step:       step,
		StepIndex:  step.StepIndex(),
		TotalSteps: model.TotalSteps,
		Message:    msg,
		AgentType:  agentType,
		Sub:        sub,
		Timestamp:  time.Now(),
	}
	if r.cost != nil {
		p.CostUSD = r.cost.TotalUSD
	}
	r.emitter.Emit(p)
}

func (r *run) complete(ctx context.Context) *model.OrchestrationResult {
	r.updateCost()
	r.recordUsage(ctx)
	r.emit(model.StepCompleted, "Carousel ready", "", nil)
	r.logf("completed in %s with %d executions", time.Since(r.started).Round(time.Millisecond), len(r.execs))
	return r.result(true, "", "")
}

func (r *run) fail(ctx context.Context, f *failure) *model.OrchestrationResult {
	r.recordFailed(f.err)
	r.updateCost()
	r.recordUsage(ctx)

	msg := f.err.Error()
	p := model.GenerationProgress{
		RunID:      r.req.RunID,
		PostID:     r.req.PostID,
		Step:       model.StepFailed,
		StepIndex:  f.step.StepIndex(),
		TotalSteps: model.TotalSteps,
		Message:    fmt.Sprintf("Generation failed during %s", f.step),
		Error:      msg,
		Timestamp:  time.Now(),
	}
	if r.cost != nil {
		p.CostUSD = r.cost.TotalUSD
	}
	r.step = model.StepFailed
	r.emitter.Emit(p)

	r.logf("failed during %s: %v", f.step, f.err)
	return r.result(false, f.step, msg)
}

func (r *run) recordUsage(ctx context.Context) {
	if r.o.deps.Usage == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	costs := make(map[string]float64)
	if r.cost != nil {
		for _, l := range r.cost.Lines {
			costs[l.ExecutionID] = l.CostUSD
		}
	}
	for _, e := range r.execs {
		if err := r.o.deps.Usage.RecordUsage(ctx, r.req.RunID, r.req.BrandID, e, costs[e.ID]); err != nil {
			r.logf("failed to record usage of execution %s: %v", e.ID, err)
		}
	}
}

func (r *run) result(success bool, failedStep model.GenerationStep, errMsg string) *model.OrchestrationResult {
	execs := make([]model.AgentExecution, len(r.execs))
	copy(execs, r.execs)
	return &model.OrchestrationResult{
		RunID:       r.req.RunID,
		Success:     success,
		Slides:      r.slides,
		Caption:     r.caption,
		Briefing:    r.briefing,
		Executions:  execs,
		TotalTokens: model.SumTokens(execs),
		Cost:        r.cost,
		Duration:    time.Since(r.started),
		FailedStep:  failedStep,
		Error:       errMsg,
	}
}

func (r *run) logf(format string, args ...any) {
	if config.Debug {
		config.DebugLog.Printf("[Orchestrator] run %s: "+format, append([]any{r.req.RunID}, args...)...)
	}
}
