package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"bga/internal/cache"
	"bga/internal/config"
	"bga/internal/project"
	"bga/internal/rag"
)

func memoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Reuse translations across projects",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "ingest <project-id>",
		Short: "Remember every translated string of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMemory(cmd.OutOrStdout(), args[0], false)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "fill <project-id>",
		Short: "Fill untranslated strings from remembered translations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMemory(cmd.OutOrStdout(), args[0], true)
		},
	})

	return cmd
}

// runMemory handles `memory ingest` and `memory fill`.
func runMemory(out io.Writer, id string, fill bool) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pgPool, err := connectPostgres(ctx, cfg)
	if err != nil {
		return err
	}
	defer pgPool.Close()

	memory, err := newMemory(ctx, cfg, pgPool, fill)
	if err != nil {
		return err
	}

	return withProject(id, func(s *project.Store, p *project.Project) error {
		if !fill {
			n, err := memory.Ingest(ctx, p.Engine, p.Strings)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "%d remembered\n", n)
			return err
		}

		n := p.Fill(func(source string) (string, bool) {
			return memory.Lookup(ctx, source)
		})
		if err := ctx.Err(); err != nil {
			return err
		}
		if n > 0 {
			if err := s.Update(p); err != nil {
				return err
			}
		}
		log.Info().Str("id", p.ID).Int("filled", n).Msg("Filled from memory")
		_, err := fmt.Fprintf(out, "%d filled\n", n)
		return err
	})
}

// newMemory wires the exact cache and, when embeddings are configured, the vector index.
func newMemory(ctx context.Context, cfg *config.Config, pgPool *pgxpool.Pool, preload bool) (*rag.Memory, error) {
	exact := cache.NewTranslationCache(pgPool)
	if err := exact.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	if preload {
		if err := exact.Preload(ctx); err != nil {
			return nil, err
		}
	}

	if !cfg.EmbeddingsEnabled() {
		log.Info().Msg("No embedding endpoint configured, using exact matches only")
		return rag.NewMemory(exact, nil, nil, cfg.FuzzyThreshold), nil
	}

	embedder := rag.NewEmbeddingClient(cfg.EmbeddingAPIKey, cfg.EmbeddingModel, cfg.EmbeddingBaseURL, cfg.EmbeddingDimensions)
	vectors := rag.NewVectorStore(pgPool, embedder.Dimensions())
	if err := vectors.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return rag.NewMemory(exact, embedder, vectors, cfg.FuzzyThreshold), nil
}

func connectPostgres(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect PostgreSQL: %w", err)
	}

	if err := pgPool.Ping(ctx); err != nil {
		pgPool.Close()
		return nil, fmt.Errorf("ping PostgreSQL: %w", err)
	}
	log.Info().Msg("Connected to PostgreSQL")
	return pgPool, nil
}
