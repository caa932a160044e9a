package ontology

import (
	"context"
)

// SchemaSource supplies the live schema of a graph. Satisfied by the graph
// client.
type SchemaSource interface {
	Labels(ctx context.Context) ([]string, error)
	RelationshipTypes(ctx context.Context) ([]string, error)
	PropertyKeys(ctx context.Context) ([]string, error)
}

// FromGraph builds a skeletal ontology from a live graph: every discovered
// label becomes an entity and every relationship type becomes a relation with
// unconstrained endpoints. Attribute and direction information is not
// recoverable from introspection alone, so the result is suitable for drift
// reporting and bootstrapping, not for validation of a curated schema.
func FromGraph(ctx context.Context, src SchemaSource) (*Ontology, error) {
	labels, err := src.Labels(ctx)
	if err != nil {
		return nil, err
	}
	relTypes, err := src.RelationshipTypes(ctx)
	if err != nil {
		return nil, err
	}

	ont := &Ontology{
		Entities:  make([]Entity, 0, len(labels)),
		Relations: make([]Relation, 0, len(relTypes)),
	}
	for _, label := range labels {
		ont.Entities = append(ont.Entities, Entity{Label: label})
	}
	for _, relType := range relTypes {
		ont.Relations = append(ont.Relations, Relation{Label: relType})
	}
	return ont, nil
}
