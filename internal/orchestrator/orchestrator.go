// Package orchestrator drives meal-plan jobs through their five phases, one
// phase per invocation, persisting the accumulated recipes in between.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/mealplan/internal/domain"
	"github.com/timmy/mealplan/internal/logger"
	"github.com/timmy/mealplan/internal/preference"
	"github.com/timmy/mealplan/internal/render"
	"github.com/timmy/mealplan/internal/repository"
	"github.com/timmy/mealplan/internal/selection"
	"github.com/timmy/mealplan/internal/service"
)

// ErrUnknownPhase is returned for a job whose current phase is outside 1..5.
var ErrUnknownPhase = errors.New("unknown job phase")

// errNotClaimed means another invocation owns the job right now.
var errNotClaimed = errors.New("job claimed by another invocation")

// JobStore is the persistence the orchestrator needs.
type JobStore interface {
	FetchActionable(ctx context.Context, limit int) ([]domain.MealPlanJob, error)
	Claim(ctx context.Context, id string, expected, next domain.JobStatus, lease time.Duration) (bool, error)
	AdvancePhase(ctx context.Context, id string, fromPhase, nextPhase domain.Phase, message string, accumulated []domain.Recipe) error
	SetStatus(ctx context.Context, id string, status domain.JobStatus, fields repository.StatusFields) error
}

// Selector picks candidate recipes for a phase.
type Selector interface {
	Select(ctx context.Context, req selection.Request) ([]domain.Recipe, error)
}

// Renderer turns the final recipe list into a document URL.
type Renderer interface {
	Render(ctx context.Context, req render.RenderRequest) (string, error)
}

// Mailer sends the delivery email.
type Mailer interface {
	Send(ctx context.Context, msg service.Email) error
}

// Tracker records which recipes a customer received.
type Tracker interface {
	RecordDelivered(ctx context.Context, customerEmail string, recipeIDs []string, yearMonth string) error
}

// Config tunes phase sizes and batch behaviour.
type Config struct {
	BatchSize            int
	NewRecipesPercentage int
	Lease                time.Duration
	BonusBreakfasts      int
	BonusDesserts        int
	// Oversample multiplies each phase's target before filtering.
	Oversample int
}

// Deps are the orchestrator's collaborators.
type Deps struct {
	Jobs       JobStore
	Selector   Selector
	Classifier preference.Classifier
	Annotator  *Annotator
	Renderer   Renderer
	Mailer     Mailer
	Tracker    Tracker
}

// Orchestrator runs one phase per actionable job per invocation.
type Orchestrator struct {
	jobs       JobStore
	selector   Selector
	classifier preference.Classifier
	annotator  *Annotator
	renderer   Renderer
	mailer     Mailer
	tracker    Tracker
	cfg        Config
	now        func() time.Time
}

// New creates an Orchestrator. Zero config values fall back to defaults.
func New(deps Deps, cfg Config) *Orchestrator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	if cfg.Lease <= 0 {
		cfg.Lease = 10 * time.Minute
	}
	if cfg.Oversample <= 0 {
		cfg.Oversample = 2
	}
	if cfg.BonusBreakfasts <= 0 {
		cfg.BonusBreakfasts = 7
	}
	if cfg.BonusDesserts <= 0 {
		cfg.BonusDesserts = 5
	}
	if deps.Classifier == nil {
		deps.Classifier = preference.NewLexiconClassifier()
	}
	if deps.Annotator == nil {
		deps.Annotator = NewAnnotator(nil, 1)
	}
	return &Orchestrator{
		jobs:       deps.Jobs,
		selector:   deps.Selector,
		classifier: deps.Classifier,
		annotator:  deps.Annotator,
		renderer:   deps.Renderer,
		mailer:     deps.Mailer,
		tracker:    deps.Tracker,
		cfg:        cfg,
		now:        time.Now,
	}
}

// BatchResult summarizes one ProcessBatch call.
type BatchResult struct {
	Processed int      `json:"processed"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors"`
}

// ProcessBatch fetches up to BatchSize actionable jobs and runs one phase of
// each. Per-job failures are recorded in the result; only a failure to fetch
// jobs is returned as an error.
func (o *Orchestrator) ProcessBatch(ctx context.Context) (*BatchResult, error) {
	jobs, err := o.jobs.FetchActionable(ctx, o.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("fetch actionable jobs: %w", err)
	}

	result := &BatchResult{Errors: []string{}}
	for i := range jobs {
		job := &jobs[i]
		jobCtx := logger.SetPhase(logger.SetJobID(ctx, job.ID), int(job.CurrentPhase))

		err := o.processJob(jobCtx, job)
		if errors.Is(err, errNotClaimed) {
			logger.FromContext(jobCtx).Info("Job already claimed, skipping")
			continue
		}
		result.Processed++
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("job %s: %v", job.ID, err))
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

func (o *Orchestrator) processJob(ctx context.Context, job *domain.MealPlanJob) (err error) {
	start := time.Now()

	ok, err := o.jobs.Claim(ctx, job.ID, job.Status, domain.JobStatusProcessing, o.cfg.Lease)
	if err != nil {
		return fmt.Errorf("claim job: %w", err)
	}
	if !ok {
		return errNotClaimed
	}
	// A claimed job must not be left in processing if a phase panics.
	defer func() {
		if p := recover(); p != nil {
			err = o.fail(ctx, job, fmt.Errorf("phase %d panicked: %v", job.CurrentPhase, p))
		}
	}()

	in := o.buildInput(job)
	out, err := o.RunPhase(ctx, in)
	if err != nil {
		return o.fail(ctx, job, err)
	}

	if out.Completion != nil {
		count := out.Completion.RecipeCount
		err = o.jobs.SetStatus(ctx, job.ID, domain.JobStatusCompleted, repository.StatusFields{
			ProgressMessage: out.Message,
			DocumentURL:     out.Completion.DocumentURL,
			RecipeCount:     &count,
			Accumulated:     out.Completion.Recipes,
		})
		if err != nil {
			return o.fail(ctx, job, fmt.Errorf("mark completed: %w", err))
		}
	} else {
		accumulated := make([]domain.Recipe, 0, len(job.Accumulated)+len(out.Recipes))
		accumulated = append(accumulated, job.Accumulated...)
		accumulated = append(accumulated, out.Recipes...)

		err = o.jobs.AdvancePhase(ctx, job.ID, in.Phase, out.NextPhase, out.Message, accumulated)
		if errors.Is(err, repository.ErrPhaseConflict) {
			// Someone else moved the job on; their write stands.
			return fmt.Errorf("advance phase: %w", err)
		}
		if err != nil {
			return o.fail(ctx, job, fmt.Errorf("advance phase: %w", err))
		}
	}

	logger.With(logger.Fields{
		logger.FieldCount: len(out.Recipes),
	}).WithDuration(time.Since(start).Milliseconds()).Info(ctx, "Phase %d done: %s", in.Phase, out.Message)
	return nil
}

// fail marks the job failed with err's message and returns err.
func (o *Orchestrator) fail(ctx context.Context, job *domain.MealPlanJob, err error) error {
	logger.FromContext(ctx).WithError(err).Error("Job phase failed")
	if setErr := o.jobs.SetStatus(ctx, job.ID, domain.JobStatusFailed, repository.StatusFields{
		ErrorMessage: err.Error(),
	}); setErr != nil {
		logger.FromContext(ctx).WithError(setErr).Error("Failed to mark job as failed")
	}
	return err
}

func (o *Orchestrator) buildInput(job *domain.MealPlanJob) domain.PhaseInput {
	now := o.now()
	return domain.PhaseInput{
		JobID:         job.ID,
		Phase:         job.CurrentPhase,
		CustomerEmail: job.CustomerEmail,
		FamilySize:    job.FamilySize,
		DietType:      job.DietType,
		DietaryNeeds:  job.DietaryNeeds,
		ProductType:   job.ProductType,
		PaymentRef:    job.PaymentRef,
		DietPlanID:    job.DietPlanID,
		Preferences:   o.classifier.Classify(job.Allergies, job.Preferences),
		DaysInMonth:   DaysInMonth(now),
		Now:           now,
		Accumulated:   job.Accumulated,
	}
}
