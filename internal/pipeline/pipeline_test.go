package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nao1215/jurisdata/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, session *model.Session) error
	callCount int
}

func (m *mockStep) Do(ctx context.Context, session *model.Session) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, session)
	}
	return nil
}

func (m *mockStep) Name() string {
	return m.name
}

func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if p.continueOnError {
			t.Error("continueOnError should default to false")
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		p := New(WithContinueOnError(true))
		if !p.continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})
}

func TestPipelineStepNames(t *testing.T) {
	t.Parallel()

	p := New()
	if got := p.StepNames(); len(got) != 0 {
		t.Errorf("expected empty slice, got %v", got)
	}

	p.AddStep(&mockStep{name: "alpha"})
	p.AddSteps(&mockStep{name: "beta"}, &mockStep{name: "gamma"})

	if diff := cmp.Diff([]string{"alpha", "beta", "gamma"}, p.StepNames()); diff != "" {
		t.Errorf("StepNames() mismatch (-want +got):\n%s", diff)
	}
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		record := func(name string) *mockStep {
			return &mockStep{name: name, doFunc: func(context.Context, *model.Session) error {
				order = append(order, name)
				return nil
			}}
		}

		p := New()
		p.AddSteps(record("step-1"), record("step-2"))

		session := model.NewSession("id", "https://example.com")
		if err := p.Execute(context.Background(), session); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"step-1", "step-2"}, order); diff != "" {
			t.Errorf("execution order mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"step-1", "step-2"}, session.Steps); diff != "" {
			t.Errorf("session.Steps mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		wantErr := errors.New("step failed")
		last := &mockStep{name: "should-not-run"}

		p := New()
		p.AddStep(&mockStep{name: "failing", doFunc: func(context.Context, *model.Session) error {
			return wantErr
		}})
		p.AddStep(last)

		session := model.NewSession("id", "https://example.com")
		err := p.Execute(context.Background(), session)
		if !errors.Is(err, wantErr) {
			t.Errorf("expected %v, got %v", wantErr, err)
		}
		if last.callCount != 0 {
			t.Error("second step should not have been called")
		}
		if diff := cmp.Diff([]string{"failing: step failed"}, session.Warnings); diff != "" {
			t.Errorf("warnings mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("continues on error when configured", func(t *testing.T) {
		t.Parallel()

		last := &mockStep{name: "should-run"}

		p := New(WithContinueOnError(true))
		p.AddStep(&mockStep{name: "failing", doFunc: func(context.Context, *model.Session) error {
			return errors.New("boom")
		}})
		p.AddStep(last)

		session := model.NewSession("id", "https://example.com")
		if err := p.Execute(context.Background(), session); err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
		if last.callCount != 1 {
			t.Errorf("expected second step to run once, ran %d times", last.callCount)
		}
		if len(session.Warnings) != 1 {
			t.Errorf("expected 1 warning, got %v", session.Warnings)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		step := &mockStep{name: "should-not-run"}
		p := New()
		p.AddStep(step)

		err := p.Execute(ctx, model.NewSession("id", "https://example.com"))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if step.callCount != 0 {
			t.Error("step should not have been called")
		}
	})
}
