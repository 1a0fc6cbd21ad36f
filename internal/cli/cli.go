package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"bga/internal/bridge"
	"bga/internal/config"
	"bga/internal/decompile"
	"bga/internal/engine"
	"bga/internal/model"
	"bga/internal/project"
)

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bga",
		Short: "Extract and write back translatable game text",
		Long: `Extracts displayable text from RPG Maker MV/MZ data files, Ren'Py scripts and
Unity serialized assets, and writes translated text back into the same files.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(saveCmd())
	rootCmd.AddCommand(enginesCmd())
	rootCmd.AddCommand(scriptTargetCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(filterCmd())
	rootCmd.AddCommand(memoryCmd())
	rootCmd.AddCommand(relationsCmd())

	return rootCmd
}

func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <engine> <path>",
		Short: "Extract translatable strings and print the result envelope",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.OutOrStdout(), args[0], args[1])
		},
	}
}

func saveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <engine> <texts.json>",
		Short: "Write translated strings back into the game files",
		Long:  "Reads a JSON array of {source, path, key, text} records (\"-\" for stdin) and saves the translated ones.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(cmd.InOrStdin(), cmd.OutOrStdout(), args[0], args[1])
		},
	}
}

func enginesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List the supported engines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd.OutOrStdout(), engine.Names())
		},
	}
}

func scriptTargetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "script-target <engine> <project>",
		Short: "Show the script file and function a runtime text hook patches",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScriptTarget(cmd.OutOrStdout(), args[0], args[1])
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), bridge.Version)
		},
	}
}

// runAnalyze handles the `analyze` command.
func runAnalyze(out io.Writer, engineName, path string) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	d, err := newDriver(cfg, engineName)
	if err != nil {
		return err
	}

	result := d.Analyze(ctx, path)
	if err := printJSON(out, result); err != nil {
		return err
	}
	return result.Err()
}

// runSave handles the `save` command.
func runSave(in io.Reader, out io.Writer, engineName, textsPath string) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var data []byte
	if textsPath == "-" {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(textsPath)
	}
	if err != nil {
		return fmt.Errorf("read texts: %w", err)
	}

	entries, err := engine.ParseTexts(data)
	if err != nil {
		return err
	}

	d, err := newDriver(cfg, engineName)
	if err != nil {
		return err
	}
	report, err := saveEntries(ctx, d, entries)
	if report != nil {
		if perr := printJSON(out, report); perr != nil {
			return perr
		}
	}
	return err
}

func saveEntries(ctx context.Context, d engine.Driver, entries []model.TextEntry) (*model.SaveReport, error) {
	report, err := d.Save(ctx, entries)
	if report != nil {
		for _, w := range report.Warnings {
			log.Warn().Str("file", w.File).Str("path", w.Path).Str("reason", w.Reason).Msg("Translation not applied")
		}
		log.Info().
			Str("engine", d.Name()).
			Int("files", len(report.FilesWritten)).
			Int("applied", report.Applied).
			Int("warnings", len(report.Warnings)).
			Msg("Save complete")
	}
	if err != nil {
		return report, fmt.Errorf("save %s: %w", d.Name(), err)
	}
	return report, nil
}

// runScriptTarget handles the `script-target` command.
func runScriptTarget(out io.Writer, engineName, projectPath string) error {
	d, err := engine.New(engineName, engine.Options{})
	if err != nil {
		return err
	}
	patcher, ok := d.(engine.ScriptPatcher)
	if !ok || !d.SupportsScriptPatch() {
		return fmt.Errorf("%w: %s has no script patch target", engine.ErrUnsupported, d.Name())
	}
	target, ok := patcher.ScriptTarget(projectPath)
	if !ok {
		return fmt.Errorf("no script file found under %s", projectPath)
	}
	return printJSON(out, target)
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			log.Warn().Msg("Received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// loadConfig reads and validates the configuration and applies the log level.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)
	return cfg, nil
}

func engineOptions(cfg *config.Config) engine.Options {
	return engine.Options{
		Workers:      cfg.WorkerCount,
		BackupSuffix: cfg.BackupSuffix,
		RenpyOutput:  cfg.RenpyOutput,
		Decompiler:   decompile.New(cfg.UnrpycCommand, cfg.DecompileTimeout),
	}
}

// newDriver builds a driver with the engine's learned ignore patterns, when a store
// exists.
func newDriver(cfg *config.Config, engineName string) (engine.Driver, error) {
	opts := engineOptions(cfg)

	if _, err := os.Stat(cfg.StorePath); err == nil {
		store, err := project.Open(cfg.StorePath)
		if err != nil {
			return nil, err
		}
		defer store.Close()

		filter, err := store.Filter(engineName)
		if err != nil {
			return nil, fmt.Errorf("load filter: %w", err)
		}
		opts.Filter = filter
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat store: %w", err)
	}

	return engine.New(engineName, opts)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
