package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/jurisdata/internal/model"
)

// Step is one post-discovery stage. Steps run in sequence and share the
// session produced by the discovery.
type Step interface {
	// Do runs the step. Non-fatal problems should be recorded with
	// session.AddWarning and nil returned.
	Do(ctx context.Context, session *model.Session) error

	// Name returns the step's name for logging.
	Name() string
}

// Pipeline executes steps in the order they were added.
type Pipeline struct {
	steps []Step

	logger *slog.Logger

	// continueOnError keeps executing after a failed step.
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps the pipeline running after a step fails.
// The failure is recorded as a session warning.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends several steps.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs every step against session. Cancellation is checked between
// steps. Without WithContinueOnError the first failing step's error is
// returned and the remaining steps are skipped.
func (p *Pipeline) Execute(ctx context.Context, session *model.Session) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled", "step", step.Name(), "reason", err)
			return err
		}

		p.logger.Debug("executing step", "step", step.Name(), "url", session.URL)

		if err := step.Do(ctx, session); err != nil {
			p.logger.Error("step failed", "step", step.Name(), "url", session.URL, "error", err)
			session.AddWarning(fmt.Sprintf("%s: %v", step.Name(), err))
			if !p.continueOnError {
				return fmt.Errorf("%s: %w", step.Name(), err)
			}
		}
		session.Steps = append(session.Steps, step.Name())
	}
	return nil
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
