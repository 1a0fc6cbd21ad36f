package cli

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"bga/internal/graph"
	"bga/internal/relation"
)

func relationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relations <project>",
		Short: "Show which common events call each other and touch switches and variables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			push, _ := cmd.Flags().GetBool("push")
			return runRelations(cmd.OutOrStdout(), args[0], push)
		},
	}
	cmd.Flags().Bool("push", false, "Also store the graph in Neo4j")

	cmd.AddCommand(&cobra.Command{
		Use:   "dependents <node-id>",
		Short: "List stored edges pointing at a node, e.g. sw_12",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDependents(cmd.OutOrStdout(), args[0])
		},
	})

	return cmd
}

// runRelations handles the `relations` command.
func runRelations(out io.Writer, projectPath string, push bool) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	analyzer, err := relation.NewAnalyzer(projectPath)
	if err != nil {
		return err
	}
	deps, err := analyzer.Analyze()
	if err != nil {
		return err
	}

	if push {
		driver, err := graph.Connect(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
		if err != nil {
			return err
		}
		defer driver.Close(ctx)
		log.Info().Msg("Connected to Neo4j")

		builder := graph.NewGraphBuilder(driver)
		if err := builder.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure graph schema: %w", err)
		}
		if err := builder.Push(ctx, deps); err != nil {
			return err
		}
	}

	if deps == nil {
		deps = []relation.Dependency{}
	}
	return printJSON(out, deps)
}

// runDependents handles the `relations dependents` command.
func runDependents(out io.Writer, id string) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	driver, err := graph.Connect(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
	if err != nil {
		return err
	}
	defer driver.Close(ctx)

	edges, err := graph.NewGraphQuerier(driver).Dependents(ctx, id)
	if err != nil {
		return err
	}
	if edges == nil {
		edges = []graph.Edge{}
	}
	return printJSON(out, edges)
}
