package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"bga/internal/interpolation"
	"bga/internal/model"
	"bga/internal/project"
)

func projectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage saved analyses and in-progress translations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "open <engine> <path>",
		Short: "Analyze a game and save the result as a new project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectOpen(cmd.OutOrStdout(), args[0], args[1])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved projects, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *project.Store) error {
				summaries, err := s.List()
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), summaries)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "files <id>",
		Short: "List the files of a project with their progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(args[0], func(_ *project.Store, p *project.Project) error {
				return printJSON(cmd.OutOrStdout(), p.Files())
			})
		},
	})

	stringsCmd := &cobra.Command{
		Use:   "strings <id> <file>",
		Short: "List the strings of one project file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hide, _ := cmd.Flags().GetBool("hide-completed")
			return withProject(args[0], func(_ *project.Store, p *project.Project) error {
				entries := p.StringsIn(args[1], hide)
				if entries == nil {
					entries = []model.TextEntry{}
				}
				return printJSON(cmd.OutOrStdout(), entries)
			})
		},
	}
	stringsCmd.Flags().Bool("hide-completed", false, "Hide strings that already have a translation")
	cmd.AddCommand(stringsCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "translate <id> <file> <source> <text>",
		Short: "Set the translation of every occurrence of a source string in a file",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectTranslate(cmd.OutOrStdout(), args[0], args[1], args[2], args[3])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "apply <id>",
		Short: "Write a project's translations back into the game files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectApply(cmd.OutOrStdout(), args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *project.Store) error {
				return s.Delete(args[0])
			})
		},
	})

	return cmd
}

// runProjectOpen handles the `project open` command.
func runProjectOpen(out io.Writer, engineName, path string) error {
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

	payload, err := model.DecodePayload(d.Analyze(ctx, path))
	if err != nil {
		return fmt.Errorf("analyze %s: %w", path, err)
	}

	return withStore(func(s *project.Store) error {
		p, err := s.Create(d.Name(), payload.Source, payload.Strings)
		if err != nil {
			return err
		}
		log.Info().
			Str("id", p.ID).
			Int("strings", len(p.Strings)).
			Int("files_failed", payload.FilesFailed).
			Msg("Project created")
		return printJSON(out, p.Summary())
	})
}

// runProjectTranslate handles the `project translate` command.
func runProjectTranslate(out io.Writer, id, file, source, text string) error {
	return withProject(id, func(s *project.Store, p *project.Project) error {
		if missing := interpolation.Missing(source, text); len(missing) > 0 {
			log.Warn().Strs("codes", missing).Msg("Translation drops control codes")
		}
		n := p.SetTranslation(file, source, text)
		if n == 0 {
			log.Warn().Str("file", file).Msg("No matching string to update")
			return nil
		}
		if err := s.Update(p); err != nil {
			return err
		}
		_, err := fmt.Fprintf(out, "%d updated\n", n)
		return err
	})
}

// runProjectApply handles the `project apply` command.
func runProjectApply(out io.Writer, id string) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return withProject(id, func(_ *project.Store, p *project.Project) error {
		d, err := newDriver(cfg, p.Engine)
		if err != nil {
			return err
		}
		report, err := saveEntries(ctx, d, p.Strings)
		if report != nil {
			if perr := printJSON(out, report); perr != nil {
				return perr
			}
		}
		return err
	})
}

// withStore opens the project store for the duration of fn.
func withStore(fn func(*project.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := project.Open(cfg.StorePath)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func withProject(id string, fn func(*project.Store, *project.Project) error) error {
	return withStore(func(s *project.Store) error {
		p, err := s.Get(id)
		if err != nil {
			return err
		}
		return fn(s, p)
	})
}

func filterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Manage learned ignore patterns",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "learn <engine> <text>",
		Short: "Ignore strings shaped like text from now on",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilterLearn(cmd.OutOrStdout(), args[0], args[1], true)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "unlearn <engine> <text>",
		Short: "Stop ignoring strings shaped like text",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilterLearn(cmd.OutOrStdout(), args[0], args[1], false)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "export [file]",
		Short: "Export every engine's patterns as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *project.Store) error {
				data, err := s.ExportFilters()
				if err != nil {
					return err
				}
				if len(args) == 0 {
					_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
					return err
				}
				return os.WriteFile(args[0], data, 0o644)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Merge exported patterns into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read filters: %w", err)
			}
			return withStore(func(s *project.Store) error {
				n, err := s.ImportFilters(data)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d imported\n", n)
				return err
			})
		},
	})

	return cmd
}

// runFilterLearn handles `filter learn` and `filter unlearn`.
func runFilterLearn(out io.Writer, engineName, text string, learn bool) error {
	return withStore(func(s *project.Store) error {
		f, err := s.Filter(engineName)
		if err != nil {
			return err
		}

		var changed bool
		if learn {
			var pattern string
			pattern, changed = f.Learn(text)
			log.Info().Str("engine", engineName).Str("pattern", pattern).Bool("added", changed).Msg("Learned pattern")
		} else {
			changed = f.Unlearn(text)
			log.Info().Str("engine", engineName).Bool("removed", changed).Msg("Unlearned pattern")
		}
		if !changed {
			return nil
		}
		if err := s.SetPatterns(engineName, f.Patterns()); err != nil {
			return err
		}
		return printJSON(out, f.Patterns())
	})
}
