package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/buildgridgo/internal/app"
	"github.com/specialistvlad/buildgridgo/internal/executor"
	"github.com/specialistvlad/buildgridgo/internal/gate"
	"github.com/specialistvlad/buildgridgo/internal/target"
	"github.com/spf13/cobra"
)

// Process exit codes.
const (
	ExitJobFailed     = 1
	ExitUsage         = 2
	ExitPublishFailed = 3
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Message: err.Error()}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	logLevel        string
	logFormat       string
	workers         int
	ref             string
	tag             string
	healthcheckPort int
	historyDSN      string
}

func (f *globalFlags) config(args []string) (*app.Config, error) {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	cfg, err := app.NewConfig(app.Config{
		PipelinePath:    path,
		Ref:             f.ref,
		Tag:             f.tag,
		LogFormat:       f.logFormat,
		LogLevel:        f.logLevel,
		HealthcheckPort: f.healthcheckPort,
		WorkerCount:     f.workers,
		HistoryDSN:      f.historyDSN,
	})
	if err != nil {
		return nil, usageError(err)
	}
	slog.Debug("CLI parameter validation complete.", "config", cfg)
	return cfg, nil
}

// NewRootCommand builds the command tree. Options are passed to every App
// the commands create.
func NewRootCommand(outW io.Writer, opts ...app.Option) *cobra.Command {
	flags := &globalFlags{}
	newApp := func(args []string) (*app.App, error) {
		cfg, err := flags.config(args)
		if err != nil {
			return nil, err
		}
		return app.NewApp(outW, cfg, opts...), nil
	}

	root := &cobra.Command{
		Use:   "buildgridgo",
		Short: "Run a crate's build matrix and gate its releases.",
		Long: `BuildGridGo runs a declarative build matrix: one job per declared target,
three lifecycle scripts per job, and a release upload for stable tagged builds.

PIPELINE is a .hcl file, a directory of .hcl files, or a travis-style .yml file.
It defaults to the current directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(outW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&flags.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.StringVar(&flags.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	pf.IntVar(&flags.workers, "workers", 0, "Number of jobs run concurrently. 0 uses the CPU count.")
	pf.StringVar(&flags.ref, "ref", "", "Branch or tag being built. Overrides TRAVIS_BRANCH.")
	pf.StringVar(&flags.tag, "tag", "", "Tag of the current ref. Overrides TRAVIS_TAG.")
	pf.IntVar(&flags.healthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	pf.StringVar(&flags.historyDSN, "history-dsn", "", "Run history database: a sqlite path or a postgres:// URL.")

	root.AddCommand(
		runCommand(newApp),
		planCommand(newApp),
		gateCommand(newApp),
		watchCommand(newApp),
		historyCommand(newApp),
	)
	return root
}

type appFactory func(args []string) (*app.App, error)

func pipelineArg(cmd *cobra.Command, args []string) error {
	if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
		return usageError(err)
	}
	return nil
}

func runCommand(newApp appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "run [PIPELINE]",
		Short: "Run every job of the pipeline for the current ref.",
		Args:  pipelineArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(args)
			if err != nil {
				return err
			}
			summary, err := a.Run(cmd.Context())
			if err != nil {
				return err
			}
			return summaryError(summary)
		},
	}
}

func planCommand(newApp appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "plan [PIPELINE]",
		Short: "Print the jobs the current ref would run.",
		Args:  pipelineArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(args)
			if err != nil {
				return err
			}
			return a.Plan(cmd.Context())
		},
	}
}

func gateCommand(newApp appFactory) *cobra.Command {
	var (
		pipeline string
		failed   bool
	)
	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Apply the release gate to the current CI job.",
		Long: `Gate reads the current job from CRATE_NAME, TARGET, TRAVIS_RUST_VERSION,
TRAVIS_OS_NAME and TRAVIS_TAG, and publishes its artifacts from ARTIFACT_DIR
(or the pipeline's artifact_dir) when the build succeeded on a stable tagged
release.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var args []string
			if pipeline != "" {
				args = []string{pipeline}
			}
			a, err := newApp(args)
			if err != nil {
				return err
			}
			out, err := a.EvaluateGate(cmd.Context(), !failed)
			if err != nil {
				return err
			}
			switch {
			case out.Published && out.Result != nil:
				fmt.Fprintf(cmd.OutOrStdout(), "Published %d file(s) to %s\n", len(out.Result.Uploaded), out.Result.Location)
			case out.Published:
				fmt.Fprintln(cmd.OutOrStdout(), "Published.")
			default:
				fmt.Fprintln(cmd.OutOrStdout(), "Release gate closed, nothing published.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pipeline, "pipeline", "", "Pipeline with the deploy settings. Defaults to the current directory.")
	cmd.Flags().BoolVar(&failed, "failed", false, "The build of the current job failed.")
	return cmd
}

func watchCommand(newApp appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [PIPELINE]",
		Short: "Revalidate the pipeline whenever it changes.",
		Args:  pipelineArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(args)
			if err != nil {
				return err
			}
			err = a.Watch(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func historyCommand(newApp appFactory) *cobra.Command {
	var (
		limit int
		runID string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(nil)
			if err != nil {
				return err
			}
			return a.History(cmd.Context(), limit, runID)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to list.")
	cmd.Flags().StringVar(&runID, "run", "", "List the jobs of one run instead.")
	return cmd
}

// summaryError turns a finished run into its exit status. A failed build
// outranks a failed upload.
func summaryError(s *executor.Summary) error {
	switch {
	case s.Failed() > 0:
		return &ExitError{Code: ExitJobFailed, Message: fmt.Sprintf("%d of %d jobs failed", s.Failed(), len(s.Results))}
	case s.PublishFailures() > 0:
		return &ExitError{Code: ExitPublishFailed, Message: fmt.Sprintf("%d release uploads failed", s.PublishFailures())}
	}
	return nil
}

// Execute runs the command tree with args and maps the outcome to an
// ExitError where the exit code is not 1.
func Execute(ctx context.Context, outW io.Writer, args []string, opts ...app.Option) error {
	root := NewRootCommand(outW, opts...)
	root.SetArgs(args)
	return exitError(root.ExecuteContext(ctx))
}

func exitError(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	var appErr *app.ValidationError
	var targetErr *target.ValidationError
	if errors.As(err, &appErr) || errors.As(err, &targetErr) {
		return usageError(err)
	}
	var gateErr *gate.PublishError
	if errors.As(err, &gateErr) {
		return &ExitError{Code: ExitPublishFailed, Message: err.Error()}
	}
	return err
}
