// Package pipeline implements the project production pipeline: the state
// machine that models a project's lifecycle, the stage executors that
// advance it, the resume/retry policy, and the credit-based admission gate.
//
// Every triggering event is acknowledged synchronously; the stage itself
// runs as a detached background task that writes incremental progress to
// the project store. Clients observe progress purely by re-reading the
// project. Errors inside a background task never reach the caller; they
// surface as the project's status and status message on the next poll.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/quillhq/quill/internal/generator"
	"github.com/quillhq/quill/internal/ledger"
	"github.com/quillhq/quill/internal/metrics"
	"github.com/quillhq/quill/internal/notify"
	"github.com/quillhq/quill/internal/project"
	"github.com/quillhq/quill/internal/render"
	"github.com/quillhq/quill/internal/store"
)

// Defaults for the production pipeline.
const (
	DefaultChapterCount   = 12
	DefaultChapterRetries = 3
	DefaultRetryDelay     = 2 * time.Second
	DefaultNarrativeDelay = 3 * time.Second
	DefaultTitleCount     = 10
)

// Sentinel errors for the pipeline package.
var (
	// ErrInvalidTransition is returned when an event does not apply to
	// the project's current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnknownEvent is returned by Advance for an unrecognized event.
	ErrUnknownEvent = errors.New("unknown pipeline event")
)

// Config assembles an Orchestrator.
type Config struct {
	Store     store.Store
	Generator generator.Generator
	Ledger    ledger.Ledger
	Renderer  render.Renderer
	Notifier  notify.Notifier
	Metrics   *metrics.Metrics
	Logger    *slog.Logger

	ChapterCount   int
	ChapterRetries int
	// RetryDelay is the backoff between chapter attempts. Zero selects
	// the default; a negative value disables the delay.
	RetryDelay time.Duration
	// NarrativeDelay paces the two fixed review/diagramming steps at the
	// end of the writing stage. They exist purely for owner-visible
	// progress messaging, not backoff. Zero selects the default; a
	// negative value disables the pacing.
	NarrativeDelay time.Duration
}

// Orchestrator sequences stages according to the state machine and runs
// each as a detached background task.
type Orchestrator struct {
	store    store.Store
	gen      generator.Generator
	ledger   ledger.Ledger
	renderer render.Renderer
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tasks    *taskRegistry

	chapterCount   int
	chapterRetries int
	retryDelay     time.Duration
	narrativeDelay time.Duration
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("pipeline requires a store")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("pipeline requires a generator")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("pipeline requires a ledger")
	}
	if cfg.Renderer == nil {
		cfg.Renderer = render.Noop{}
	}
	if cfg.Notifier == nil {
		cfg.Notifier = &notify.Log{Logger: cfg.Logger}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ChapterCount <= 0 {
		cfg.ChapterCount = DefaultChapterCount
	}
	if cfg.ChapterRetries <= 0 {
		cfg.ChapterRetries = DefaultChapterRetries
	}
	// Zero means unset; a negative delay explicitly disables pacing.
	switch {
	case cfg.RetryDelay == 0:
		cfg.RetryDelay = DefaultRetryDelay
	case cfg.RetryDelay < 0:
		cfg.RetryDelay = 0
	}
	switch {
	case cfg.NarrativeDelay == 0:
		cfg.NarrativeDelay = DefaultNarrativeDelay
	case cfg.NarrativeDelay < 0:
		cfg.NarrativeDelay = 0
	}

	return &Orchestrator{
		store:          cfg.Store,
		gen:            cfg.Generator,
		ledger:         cfg.Ledger,
		renderer:       cfg.Renderer,
		notifier:       cfg.Notifier,
		metrics:        cfg.Metrics,
		logger:         cfg.Logger.With("component", "pipeline"),
		tasks:          newTaskRegistry(),
		chapterCount:   cfg.ChapterCount,
		chapterRetries: cfg.ChapterRetries,
		retryDelay:     cfg.RetryDelay,
		narrativeDelay: cfg.NarrativeDelay,
	}, nil
}

// transitions is the forward path of the state machine. FAILED entries
// exist only for the owner-triggered retry path.
var transitions = map[project.Status][]project.Status{
	project.StatusIdle:                {project.StatusResearching},
	project.StatusResearching:         {project.StatusWaitingTitle, project.StatusFailed},
	project.StatusWaitingTitle:        {project.StatusGeneratingStructure},
	project.StatusGeneratingStructure: {project.StatusReviewStructure, project.StatusFailed},
	project.StatusReviewStructure:     {project.StatusWritingChapters},
	project.StatusWritingChapters:     {project.StatusGeneratingMarketing, project.StatusFailed},
	project.StatusGeneratingMarketing: {project.StatusWaitingDetails},
	project.StatusWaitingDetails:      {project.StatusCompleted, project.StatusFailed},
	project.StatusFailed:              {project.StatusResearching, project.StatusGeneratingStructure},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to project.Status) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Event is an external trigger for a forward transition.
type Event string

const (
	EventTitleChosen       Event = "title_chosen"
	EventStructureApproved Event = "structure_approved"
	EventFinalize          Event = "finalize"
	EventRetry             Event = "retry"
)

// TitleChoice is the payload for EventTitleChosen. Either the index into
// TitleOptions, or an explicit title/subtitle pair.
type TitleChoice struct {
	Index    *int   `json:"index,omitempty"`
	Title    string `json:"title,omitempty"`
	Subtitle string `json:"subtitle,omitempty"`
}

// FinalDetails is the payload for EventFinalize.
type FinalDetails struct {
	Dedication      string `json:"dedication,omitempty"`
	Acknowledgments string `json:"acknowledgments,omitempty"`
	AboutAuthor     string `json:"about_author,omitempty"`
}

// Advance dispatches an external event against a project. The returned
// project reflects the state after the synchronous part of the event; any
// spawned background work is observable by polling.
func (o *Orchestrator) Advance(ctx context.Context, id string, event Event, payload json.RawMessage) (*project.Project, error) {
	switch event {
	case EventTitleChosen:
		var choice TitleChoice
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &choice); err != nil {
				return nil, fmt.Errorf("invalid title payload: %w", err)
			}
		}
		return o.ChooseTitle(ctx, id, choice)
	case EventStructureApproved:
		return o.ApproveStructure(ctx, id)
	case EventFinalize:
		var details FinalDetails
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &details); err != nil {
				return nil, fmt.Errorf("invalid finalize payload: %w", err)
			}
		}
		return o.Finalize(ctx, id, details)
	case EventRetry:
		return o.Retry(ctx, id)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
}

// Get returns the current project state.
func (o *Orchestrator) Get(ctx context.Context, id string) (*project.Project, error) {
	return o.store.Get(ctx, id)
}

// Wait blocks until the project's current background task (if any)
// finishes. Primarily for tests and graceful shutdown.
func (o *Orchestrator) Wait(id string) {
	o.tasks.Wait(id)
}

// Cancel stops the project's running background task, if any.
func (o *Orchestrator) Cancel(id string) bool {
	return o.tasks.Cancel(id)
}

// Shutdown cancels all running background tasks and waits for them.
func (o *Orchestrator) Shutdown() {
	o.tasks.Shutdown()
}

// spawn runs fn as a detached background task for the project. The task
// gets a fresh context decoupled from the triggering request; it is
// cancellable only through the registry.
func (o *Orchestrator) spawn(id, stage string, fn func(ctx context.Context, p *project.Project) error) {
	ctx, ok := o.tasks.Register(id)
	if !ok {
		o.logger.Warn("task already running, not spawning", "project_id", id, "stage", stage)
		return
	}

	logger := o.logger.With("project_id", id, "stage", stage)
	go func() {
		defer o.tasks.Done(id)

		p, err := o.store.Get(ctx, id)
		if err != nil {
			logger.Error("failed to load project for stage", "error", err)
			return
		}

		logger.Info("stage started", "status", p.Metadata.Status)
		if err := fn(ctx, p); err != nil {
			switch {
			case errors.Is(err, store.ErrVersionConflict):
				// A concurrent task owns the project now. Abort without
				// overwriting its progress.
				logger.Warn("stage lost version race, aborting")
				o.metrics.RecordStage(stage, "conflict")
			case errors.Is(err, context.Canceled):
				logger.Info("stage cancelled")
				o.metrics.RecordStage(stage, "cancelled")
			default:
				logger.Error("stage failed", "error", err)
				o.metrics.RecordStage(stage, "failed")
				o.failProject(id, stage, err)
			}
			return
		}
		o.metrics.RecordStage(stage, "ok")
		logger.Info("stage finished")
	}()
}

// failProject marks the project FAILED with the cause. Best effort: a
// conflict that survives the retry means someone else owns the project.
func (o *Orchestrator) failProject(id, stage string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := store.UpdateProject(ctx, o.store, id, func(p *project.Project) {
		p.Metadata.Status = project.StatusFailed
		p.Metadata.StatusMessage = fmt.Sprintf("%s stage failed: %v", stage, cause)
		p.Detail = project.FailedDetail(stage)
	})
	if err != nil {
		o.logger.Error("failed to record project failure", "project_id", id, "error", err)
	}
}

// setStatus transitions the project and persists it under CAS.
func (o *Orchestrator) setStatus(ctx context.Context, p *project.Project, to project.Status, progress int, msg string) error {
	if !CanTransition(p.Metadata.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Metadata.Status, to)
	}
	p.Metadata.Status = to
	p.SetProgress(progress, msg)
	if to != project.StatusFailed {
		p.Detail = nil
	}
	return o.store.Update(ctx, p)
}

// checkpoint persists intermediate progress within a stage.
func (o *Orchestrator) checkpoint(ctx context.Context, p *project.Project, progress int, msg string) error {
	p.SetProgress(progress, msg)
	return o.store.Update(ctx, p)
}
