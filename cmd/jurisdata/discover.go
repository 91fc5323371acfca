package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/nao1215/jurisdata/internal/config"
	"github.com/nao1215/jurisdata/internal/database"
	"github.com/nao1215/jurisdata/internal/discovery"
	"github.com/nao1215/jurisdata/internal/linkconfig"
	"github.com/nao1215/jurisdata/internal/model"
	"github.com/nao1215/jurisdata/internal/pipeline"
	"github.com/nao1215/jurisdata/internal/report"
	"github.com/nao1215/jurisdata/internal/transport"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

// NewDiscoverCmd creates the discover command.
func NewDiscoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover <url> [url...]",
		Short: "Ask the discovery service which elements of a page can be extracted",
		Long: `Discover sends a scrape request for each URL to the discovery service
and prints the classes and other elements it finds, together with the link
configuration that applies to the URL.

URLs are discovered one at a time over a single connection. Press Ctrl+C to
cancel the discovery in progress; the previous result is left untouched.

Examples:
  # Discover one page
  jurisdata discover https://courts.example/decisions

  # Use a service on another port and print JSON
  jurisdata discover --port 9000 --json https://courts.example/decisions

  # Write a Markdown report to a file without recording history
  jurisdata discover -m -o report.md --no-history https://courts.example/decisions`,
		Args: cobra.MinimumNArgs(1),
		RunE: runDiscoverCmd,
	}

	cmd.Flags().String("host", config.DefaultHost, "Discovery service host")
	cmd.Flags().IntP("port", "p", config.DefaultPort, "Discovery service port")
	cmd.Flags().String("proxy", "", "SOCKS5 proxy address (e.g., 127.0.0.1:1080)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultReadTimeout,
		"Time to wait for a response (0 waits forever)")
	cmd.Flags().Duration("dial-timeout", config.DefaultDialTimeout, "Connection timeout")
	cmd.Flags().Int("block-size", config.DefaultBlockSize, "Initial receive buffer size in bytes")
	cmd.Flags().Bool("no-history", false, "Do not record the discovery in the history database")
	cmd.Flags().Duration("skip-recent", 0, "Skip URLs with a completed discovery within this duration")

	cmd.Flags().BoolP("json", "j", false, "Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false, "Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "", "Write report to specified file path (creates directories if needed)")

	return cmd
}

func runDiscoverCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildDiscoverConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runDiscover(ctx, cmd, cfg, args, logger)
}

// buildDiscoverConfig layers the discover flags that were set explicitly
// over the loaded configuration.
func buildDiscoverConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		if cfg.Host, err = flags.GetString("host"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("port") {
		if cfg.Port, err = flags.GetInt("port"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.ReadTimeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("dial-timeout") {
		if cfg.DialTimeout, err = flags.GetDuration("dial-timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("block-size") {
		if cfg.BlockSize, err = flags.GetInt("block-size"); err != nil {
			return nil, err
		}
	}

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	if noHistory {
		cfg.SaveHistory = false
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// transportOptions returns the connection options for cfg.
func transportOptions(cfg *config.Config, logger *slog.Logger) []transport.Option {
	opts := []transport.Option{
		transport.WithDialTimeout(cfg.DialTimeout),
		transport.WithReadTimeout(cfg.ReadTimeout),
		transport.WithLogger(logger),
	}
	if cfg.ProxyAddress != "" {
		opts = append(opts, transport.WithSOCKS5Proxy(cfg.ProxyAddress))
	}
	return opts
}

// runDiscover connects once, discovers every URL in turn and runs the
// post-discovery pipeline for each.
func runDiscover(ctx context.Context, cmd *cobra.Command, cfg *config.Config, urls []string, logger *slog.Logger) (err error) {
	opts := transportOptions(cfg, logger)
	conn, err := transport.Dial(ctx, cfg.Host, cfg.Port, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to discovery service at %s: %w", cfg.Address(), err)
	}
	logger.Debug("connected to discovery service", "address", conn.RemoteAddr())

	orch := discovery.New(conn,
		discovery.WithLogger(logger),
		discovery.WithBlockSize(cfg.BlockSize),
		discovery.WithRedial(func(ctx context.Context) (discovery.Transport, error) {
			return transport.Dial(ctx, cfg.Host, cfg.Port, opts...)
		}),
	)
	defer func() {
		err = multierr.Append(err, orch.Close())
	}()

	store := linkconfig.New(cfg.ResolvedLinkConfigPath(), linkconfig.WithLogger(logger))
	if err := store.Load(); err != nil {
		warnf(cmd, "link configurations could not be saved: %v", err)
	}

	var history *database.HistoryDB
	if cfg.SaveHistory {
		history, err = database.Open(cfg.ResolvedHistoryDir(), database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer func() {
			err = multierr.Append(err, history.Close())
		}()
	}

	output, closeOutput, err := openReportOutput(cmd, cfg.ReportFile)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, closeOutput())
	}()

	p, err := buildPipeline(cfg, store, history, newSessionWriter(cfg, output), logger)
	if err != nil {
		return err
	}
	skipRecent, err := cmd.Flags().GetDuration("skip-recent")
	if err != nil {
		return err
	}

	var failures error
	for _, url := range urls {
		if ctx.Err() != nil {
			break
		}
		if history != nil && skipRecent > 0 {
			recent, err := history.HasRecentDiscovery(ctx, url, skipRecent)
			if err != nil {
				logger.Warn("failed to check history", "url", url, "error", err)
			} else if recent {
				fmt.Fprintf(cmd.ErrOrStderr(), "Skipping %s (discovered within %s)\n", url, skipRecent)
				continue
			}
		}
		session := discoverOne(ctx, cmd, orch, url, cfg.PollInterval)
		if err := p.Execute(context.WithoutCancel(ctx), session); err != nil {
			logger.Error("post-discovery pipeline failed", "url", url, "error", err)
		}
		if session.Outcome == model.OutcomeFailed {
			failures = multierr.Append(failures, fmt.Errorf("%s: %s", url, session.Error))
		}
	}
	if ctx.Err() != nil {
		return multierr.Append(failures, discovery.ErrCancelled)
	}
	return failures
}

// buildPipeline assembles the post-discovery steps.
func buildPipeline(cfg *config.Config, store *linkconfig.Store, history *database.HistoryDB, w pipeline.SessionWriter, logger *slog.Logger) (*pipeline.Pipeline, error) {
	p := pipeline.New(
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	)
	p.AddStep(pipeline.NewResolveConfigStep(store, logger))
	if cfg.SaveHistory && history != nil {
		p.AddStep(pipeline.NewRecordHistoryStep(history))
	}
	reportStep, err := pipeline.NewReportStep(w)
	if err != nil {
		return nil, err
	}
	p.AddStep(reportStep)
	return p, nil
}

// discoverOne starts a discovery and polls for its completion on the
// calling goroutine. Cancelling ctx cancels the discovery and waits for it
// to unwind.
func discoverOne(ctx context.Context, cmd *cobra.Command, orch *discovery.Orchestrator, url string, interval time.Duration) *model.Session {
	status := color.New(color.FgCyan)
	status.Fprintf(cmd.ErrOrStderr(), "Discovering %s...\n", url)

	if !orch.StartDiscovery(ctx, url) {
		s := model.NewSession("", url)
		s.Outcome = model.OutcomeFailed
		s.Error = "a discovery is already in flight"
		return s
	}
	awaitDiscovery(ctx, orch, interval)

	run := orch.LastRun()
	s := model.NewSession(run.ID, url)
	s.StartedAt = run.StartedAt
	s.Duration = run.Duration
	s.Outcome = run.Outcome
	s.BytesReceived = run.BytesReceived
	if run.Err != nil {
		s.Error = run.Err.Error()
	}
	if run.Outcome == model.OutcomeCompleted {
		s.Result = orch.ObserveResult()
	}

	switch s.Outcome {
	case model.OutcomeCompleted:
		color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(), "Discovery completed in %s (%d elements)\n\n",
			s.Duration.Round(time.Millisecond), s.Result.Len())
	case model.OutcomeCancelled:
		color.New(color.FgYellow).Fprintln(cmd.ErrOrStderr(), "Discovery cancelled")
	default:
		color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "Discovery failed: %s\n", s.Error)
	}
	return s
}

// awaitDiscovery ticks until the in-flight discovery reports completion.
func awaitDiscovery(ctx context.Context, orch *discovery.Orchestrator, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			orch.Cancel()
			orch.Wait()
			orch.ConsumeComplete()
			return
		case <-ticker.C:
			if orch.ConsumeComplete() {
				return
			}
		}
	}
}

// newSessionWriter picks the report format requested by cfg.
func newSessionWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}

// openReportOutput returns the report destination: the command's stdout or
// a freshly truncated file.
func openReportOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}
