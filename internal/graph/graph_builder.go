// Package graph stores relation analysis results in Neo4j.
package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"

	"bga/internal/relation"
)

const batchSize = 500

// GraphBuilder pushes dependency graphs into Neo4j.
type GraphBuilder struct {
	driver neo4j.DriverWithContext
}

// NewGraphBuilder creates a new graph builder.
func NewGraphBuilder(driver neo4j.DriverWithContext) *GraphBuilder {
	return &GraphBuilder{driver: driver}
}

// Connect opens and verifies a driver with basic auth.
func Connect(ctx context.Context, uri, user, password string) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("connect neo4j: %w", err)
	}
	return driver, nil
}

// EnsureSchema creates constraints and indexes on the Neo4j database.
func (gb *GraphBuilder) EnsureSchema(ctx context.Context) error {
	session := gb.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	constraints := []string{
		"CREATE CONSTRAINT IF NOT EXISTS FOR (n:RpgNode) REQUIRE n.id IS UNIQUE",
	}

	for _, c := range constraints {
		if _, err := session.Run(ctx, c, nil); err != nil {
			return fmt.Errorf("create constraint: %w", err)
		}
	}

	log.Info().Msg("Graph schema ensured")
	return nil
}

// Push upserts every node and DEPENDS_ON edge of deps.
func (gb *GraphBuilder) Push(ctx context.Context, deps []relation.Dependency) error {
	session := gb.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	nodes := nodeRows(relation.Nodes(deps))
	for start := 0; start < len(nodes); start += batchSize {
		end := min(start+batchSize, len(nodes))
		_, err := session.Run(ctx, `
			UNWIND $rows AS row
			MERGE (n:RpgNode {id: row.id})
			SET n.type = row.type, n.label = row.label
		`, map[string]any{"rows": nodes[start:end]})
		if err != nil {
			return fmt.Errorf("upsert nodes: %w", err)
		}
	}

	log.Info().Int("nodes", len(nodes)).Msg("Pushed relation nodes")

	edges := edgeRows(deps)
	for start := 0; start < len(edges); start += batchSize {
		end := min(start+batchSize, len(edges))
		_, err := session.Run(ctx, `
			UNWIND $rows AS row
			MATCH (a:RpgNode {id: row.from})
			MATCH (b:RpgNode {id: row.to})
			MERGE (a)-[:DEPENDS_ON {relation: row.relation}]->(b)
		`, map[string]any{"rows": edges[start:end]})
		if err != nil {
			return fmt.Errorf("create relationships: %w", err)
		}
	}

	log.Info().Int("relationships", len(edges)).Msg("Pushed relation edges")
	return nil
}

func nodeRows(nodes []relation.Node) []any {
	rows := make([]any, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, map[string]any{"id": n.ID, "type": n.Type, "label": n.Label})
	}
	return rows
}

// edgeRows collapses duplicate edges, keeping first-seen order.
func edgeRows(deps []relation.Dependency) []any {
	type key struct{ from, to, rel string }
	seen := make(map[key]struct{}, len(deps))
	rows := make([]any, 0, len(deps))
	for _, d := range deps {
		k := key{d.Source.ID, d.Target.ID, d.Relation}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		rows = append(rows, map[string]any{"from": k.from, "to": k.to, "relation": k.rel})
	}
	return rows
}
