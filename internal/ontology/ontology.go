// Package ontology describes the schema of the knowledge graph: the entity
// labels, relationship types, and attributes the generated Cypher is allowed
// to reference.
package ontology

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/askgraph/askgraph/internal/errors"
)

// Attribute is a single typed property on an entity or relation.
type Attribute struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required,omitempty"`
	Unique   bool   `json:"unique,omitempty"`
}

// Entity is a node label and its declared attributes.
type Entity struct {
	Label      string      `json:"label"`
	Attributes []Attribute `json:"attributes,omitempty"`
}

// Relation is a directed relationship type between two entity labels.
type Relation struct {
	Label      string      `json:"label"`
	Source     string      `json:"source"`
	Target     string      `json:"target"`
	Attributes []Attribute `json:"attributes,omitempty"`
}

// Ontology is the full graph schema.
type Ontology struct {
	Entities  []Entity   `json:"entities"`
	Relations []Relation `json:"relations"`
}

// FromJSON parses an ontology document.
func FromJSON(data []byte) (*Ontology, error) {
	var ont Ontology
	if err := json.Unmarshal(data, &ont); err != nil {
		return nil, errors.New(errors.ErrCodeOntologyInvalid, "failed to parse ontology JSON").
			WithDetails(err.Error()).
			WithSuggestion("Check the ontology file for JSON syntax errors")
	}
	return &ont, nil
}

// Load reads and parses an ontology file.
func Load(path string) (*Ontology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewOntologyLoadError(err, path)
	}
	return FromJSON(data)
}

// Save writes the ontology to a file as indented JSON.
func (o *Ontology) Save(path string) error {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeOntologyInvalid, "failed to encode ontology")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.NewOntologyLoadError(err, path)
	}
	return nil
}

// Prompt renders the ontology as compact JSON for inclusion in a model
// system instruction.
func (o *Ontology) Prompt() string {
	data, err := json.Marshal(o)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Entity returns the entity with the given label, or nil.
func (o *Ontology) Entity(label string) *Entity {
	for i := range o.Entities {
		if o.Entities[i].Label == label {
			return &o.Entities[i]
		}
	}
	return nil
}

// Relation returns the relation with the given label, or nil.
func (o *Ontology) Relation(label string) *Relation {
	for i := range o.Relations {
		if o.Relations[i].Label == label {
			return &o.Relations[i]
		}
	}
	return nil
}

// Labels returns all entity labels in sorted order.
func (o *Ontology) Labels() []string {
	labels := make([]string, 0, len(o.Entities))
	for _, e := range o.Entities {
		labels = append(labels, e.Label)
	}
	sort.Strings(labels)
	return labels
}

// RelationLabels returns all relationship type names in sorted order.
func (o *Ontology) RelationLabels() []string {
	labels := make([]string, 0, len(o.Relations))
	for _, r := range o.Relations {
		labels = append(labels, r.Label)
	}
	sort.Strings(labels)
	return labels
}

// Validate checks the ontology for structural problems: entities without
// labels, duplicate labels, and relations referencing undeclared entities.
func (o *Ontology) Validate() error {
	var problems []string

	seen := make(map[string]bool)
	for _, e := range o.Entities {
		if e.Label == "" {
			problems = append(problems, "entity with empty label")
			continue
		}
		if seen[e.Label] {
			problems = append(problems, "duplicate entity label: "+e.Label)
		}
		seen[e.Label] = true
	}

	for _, r := range o.Relations {
		if r.Label == "" {
			problems = append(problems, "relation with empty label")
			continue
		}
		if r.Source != "" && !seen[r.Source] {
			problems = append(problems, "relation "+r.Label+" references unknown source entity: "+r.Source)
		}
		if r.Target != "" && !seen[r.Target] {
			problems = append(problems, "relation "+r.Label+" references unknown target entity: "+r.Target)
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New(errors.ErrCodeOntologyInvalid, "ontology failed structural validation").
		WithDetails(strings.Join(problems, "; ")).
		WithSuggestion("Fix the ontology definition before starting the service")
}
