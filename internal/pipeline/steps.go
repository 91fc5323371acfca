package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/jurisdata/internal/model"
	"go.uber.org/multierr"
)

// ConfigResolver looks up link configurations. *linkconfig.Store
// satisfies it.
type ConfigResolver interface {
	ResolveStrict(url string) (model.LinkConfig, string, error)
	FindSimilar(url string) (string, bool)
}

// ResolveConfigStep attaches the link configuration for the session URL.
type ResolveConfigStep struct {
	resolver ConfigResolver
	logger   *slog.Logger
}

// NewResolveConfigStep creates a ResolveConfigStep.
func NewResolveConfigStep(resolver ConfigResolver, logger *slog.Logger) *ResolveConfigStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResolveConfigStep{resolver: resolver, logger: logger}
}

// Name returns the step name.
func (s *ResolveConfigStep) Name() string {
	return "resolve_config"
}

// Do resolves the configuration. A broken alias is recorded as a warning;
// the configuration it yields is still attached. When the URL has no entry
// of its own a similar entry is suggested.
func (s *ResolveConfigStep) Do(_ context.Context, session *model.Session) error {
	cfg, name, err := s.resolver.ResolveStrict(session.URL)
	if err != nil {
		s.logger.Warn("link configuration alias problem", "url", session.URL, "error", err)
		session.AddWarning(err.Error())
	}
	session.Config = cfg
	session.ConfigName = name

	if name == "" {
		if similar, ok := s.resolver.FindSimilar(session.URL); ok {
			session.SimilarConfig = similar
		}
	}
	return nil
}

// HistoryRecorder persists sessions. *database.HistoryDB satisfies it.
type HistoryRecorder interface {
	RecordSession(ctx context.Context, s *model.Session) error
}

// RecordHistoryStep stores the session in the history database.
type RecordHistoryStep struct {
	recorder HistoryRecorder
}

// NewRecordHistoryStep creates a RecordHistoryStep.
func NewRecordHistoryStep(recorder HistoryRecorder) *RecordHistoryStep {
	return &RecordHistoryStep{recorder: recorder}
}

// Name returns the step name.
func (s *RecordHistoryStep) Name() string {
	return "record_history"
}

// Do records the session. Cancelled sessions are not recorded.
func (s *RecordHistoryStep) Do(ctx context.Context, session *model.Session) error {
	if session.Outcome == model.OutcomeCancelled || session.Outcome == model.OutcomeNone {
		return nil
	}
	if err := s.recorder.RecordSession(ctx, session); err != nil {
		return fmt.Errorf("record discovery %s: %w", session.ID, err)
	}
	return nil
}

// SessionWriter renders a session. The report writers satisfy it.
type SessionWriter interface {
	Write(session *model.Session) (int, error)
}

// ErrNoWriters is returned by NewReportStep when no writer is given.
var ErrNoWriters = errors.New("report step requires at least one writer")

// ReportStep renders the session with every configured writer.
type ReportStep struct {
	writers []SessionWriter
}

// NewReportStep creates a ReportStep.
func NewReportStep(writers ...SessionWriter) (*ReportStep, error) {
	if len(writers) == 0 {
		return nil, ErrNoWriters
	}
	return &ReportStep{writers: writers}, nil
}

// Name returns the step name.
func (s *ReportStep) Name() string {
	return "report"
}

// Do writes the session with each writer and joins their errors.
func (s *ReportStep) Do(_ context.Context, session *model.Session) error {
	var err error
	for _, w := range s.writers {
		_, werr := w.Write(session)
		err = multierr.Append(err, werr)
	}
	return err
}
