package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Edge is one stored DEPENDS_ON relationship.
type Edge struct {
	From     string
	Relation string
	To       string
}

// GraphQuerier reads stored dependency graphs.
type GraphQuerier struct {
	driver neo4j.DriverWithContext
}

// NewGraphQuerier creates a new graph querier.
func NewGraphQuerier(driver neo4j.DriverWithContext) *GraphQuerier {
	return &GraphQuerier{driver: driver}
}

// Dependents returns the edges pointing at the node with the given id, e.g. every
// common event that turns switch "sw_12" on or off.
func (gq *GraphQuerier) Dependents(ctx context.Context, id string) ([]Edge, error) {
	session := gq.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (a:RpgNode)-[r:DEPENDS_ON]->(b:RpgNode {id: $id})
		RETURN a.id AS from, r.relation AS relation, b.id AS to
		ORDER BY from, relation
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("query dependents: %w", err)
	}

	var edges []Edge
	for result.Next(ctx) {
		record := result.Record()
		from, _ := record.Get("from")
		rel, _ := record.Get("relation")
		to, _ := record.Get("to")
		edges = append(edges, Edge{
			From:     fmt.Sprintf("%v", from),
			Relation: fmt.Sprintf("%v", rel),
			To:       fmt.Sprintf("%v", to),
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("read dependents: %w", err)
	}
	return edges, nil
}
