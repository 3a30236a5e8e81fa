// Package cli provides the command-line interface of the notary page splitter.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"notary-splitter/internal/batch"
	"notary-splitter/internal/config"
	failures "notary-splitter/internal/errors"
	"notary-splitter/internal/logger"
	"notary-splitter/internal/password"
	"notary-splitter/internal/pdf"
	"notary-splitter/internal/results"
	"notary-splitter/internal/types"
)

// Version information set at build time.
var Version = "dev"

// Files written next to the config when save_failures is on.
const (
	failedInputsFile = "failed_inputs.txt"
	manifestFile     = "last_run_artifacts.json"
)

type options struct {
	split      int
	merge      bool
	encrypt    bool
	decrypt    bool
	debug      bool
	configPath string
	outputDir  string
	password   string
}

// App represents the CLI application.
type App struct {
	root     *cobra.Command
	stdout   io.Writer
	stderr   io.Writer
	prompter password.Prompter
	opts     options
}

// New creates a new CLI application.
func New() *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "notary-splitter [flags] files...",
		Short: "Split notary packets by page size",
		Long: `notary-splitter sorts the pages of PDF documents into one file per page
size (letter, legal, tabloid, unknown), turning landscape pages upright, and
writes a report describing how to put the packet back together.

It can also split documents into equal parts, merge documents in order, and
add or remove password protection. File arguments are glob patterns; "**"
matches any number of directories.`,
		Example: `  notary-splitter packet.pdf
  notary-splitter -s 3 'scans/*.pdf'
  notary-splitter -m cover.pdf deed.pdf exhibits.pdf
  notary-splitter -d --password secret sealed.pdf`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          app.run,
	}

	f := app.root.Flags()
	f.IntVarP(&app.opts.split, "split", "s", 0, "split each file into `N` parts of equal page count")
	f.BoolVarP(&app.opts.merge, "merge", "m", false, "merge all files, in the order given, into one")
	f.BoolVarP(&app.opts.encrypt, "encrypt", "e", false, "write a password-protected copy of each file")
	f.BoolVarP(&app.opts.decrypt, "decrypt", "d", false, "write an unprotected copy of each protected file")
	f.BoolVarP(&app.opts.debug, "debug", "G", false, "log page geometry and other diagnostics to stderr")
	f.StringVar(&app.opts.configPath, "config", "", "configuration file (default ~/.config/notary-splitter/notary-splitter-config.json)")
	f.StringVar(&app.opts.outputDir, "output-dir", "", "write outputs here instead of next to each input")
	f.StringVar(&app.opts.password, "password", "", "password to try before prompting")

	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// WithPrompter replaces the terminal password prompt.
func (a *App) WithPrompter(p password.Prompter) *App {
	a.prompter = p
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments (useful for testing).
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// ExitCode maps the result of Execute to a process exit code. Running out of
// password attempts is an operator abort and exits 0.
func ExitCode(err error) int {
	if err == nil || types.CodeOf(err) == types.ErrPasswordExhausted {
		return 0
	}
	return 1
}

func (a *App) run(cmd *cobra.Command, args []string) error {
	cm, err := config.NewConfigManager(a.opts.configPath)
	if err != nil {
		return err
	}
	if err := cm.Load(); err != nil {
		return err
	}
	if a.opts.outputDir != "" {
		cm.SetOutputDir(a.opts.outputDir)
	}
	cfg := cm.GetConfig()
	configDir := filepath.Dir(cm.GetConfigPath())

	lc := cm.LoggerConfig()
	if lc.LogFilePath != "" && !filepath.IsAbs(lc.LogFilePath) {
		lc.LogFilePath = filepath.Join(configDir, lc.LogFilePath)
	}
	if a.opts.debug {
		lc.Level = logger.LevelDebug
		lc.Console = a.stderr
	}
	if err := logger.Init(lc); err != nil {
		return types.NewAppError(types.ErrConfig, "failed to initialize logger", err)
	}
	defer logger.Close()

	inputs, err := ExpandInputs(args)
	if err != nil {
		return types.NewAppError(types.ErrInvalidInput, "invalid file arguments", err)
	}

	rm, err := results.NewResultManager(cfg.OutputDir)
	if err != nil {
		return types.NewAppError(types.ErrConfig, "invalid output directory", err)
	}

	ledgerDir := ""
	if cfg.SaveFailures {
		ledgerDir = configDir
	}
	ledger, err := failures.NewLedger(ledgerDir)
	if err != nil {
		return types.NewAppError(types.ErrConfig, "failed to open failure ledger", err)
	}

	prompter := a.prompter
	if prompter == nil {
		prompter = &password.Terminal{In: os.Stdin, Out: a.stderr}
	}

	proc := batch.NewProcessor(pdf.NewCodec(), rm, ledger, prompter, batch.Options{
		Tolerance:        cfg.Tolerance,
		PasswordAttempts: cfg.PasswordAttempts,
		Password:         a.opts.password,
		EncryptAES:       cfg.EncryptAES,
		KeyLength:        cfg.EncryptKeyLength,
	}, a.stdout)

	ctx := cmd.Context()
	var sum *batch.Summary
	switch {
	case cmd.Flags().Changed("split"):
		sum, err = proc.Split(ctx, inputs, a.opts.split)
	case a.opts.merge:
		sum, err = proc.Merge(ctx, inputs)
	case a.opts.encrypt:
		sum, err = proc.Encrypt(ctx, inputs)
	case a.opts.decrypt:
		sum, err = proc.Decrypt(ctx, inputs)
	default:
		sum, err = proc.Classify(ctx, inputs)
	}

	if s := ledger.Summary(); s != "" {
		fmt.Fprint(a.stderr, s)
		if path := ledger.Path(); path != "" {
			fmt.Fprintf(a.stderr, "failures saved to %s\n", path)
			retry := filepath.Join(configDir, failedInputsFile)
			if xerr := ledger.ExportInputs(retry); xerr != nil {
				logger.Warn("failed to export failed inputs", logger.Err(xerr))
			} else {
				fmt.Fprintf(a.stderr, "failed inputs listed in %s\n", retry)
			}
		}
	}
	if cfg.SaveFailures {
		if xerr := rm.SaveManifest(filepath.Join(configDir, manifestFile)); xerr != nil {
			logger.Warn("failed to save artifact manifest", logger.Err(xerr))
		}
	}
	if sum != nil {
		logger.Info("batch finished",
			logger.String("operation", string(sum.Operation)),
			logger.Int("processed", sum.Processed),
			logger.Int("skipped", sum.Skipped),
			logger.Int("failed", sum.Failed),
			logger.Int("artifacts", len(sum.Artifacts)))
	}
	return err
}
