package ontology

import (
	"fmt"
	"regexp"
)

// Pattern scanning is intentionally regex-based rather than a full Cypher
// parse: the validator only needs to catch references to labels and
// relationship types the schema does not declare, so the generated query can
// be repaired before execution.
var (
	nodeLabelRe = regexp.MustCompile(`\(\s*\w*\s*:\s*(\w+)`)
	relTypeRe   = regexp.MustCompile(`\[\s*\w*\s*:\s*(\w+)`)

	// (a:X)-[r:REL]->(b:Y) and its reversed/undirected forms. Group order:
	// left label, left arrow, relation type, right arrow, right label.
	patternRe = regexp.MustCompile(`\(\s*\w*\s*:\s*(\w+)[^)]*\)\s*(<-|-)\s*\[\s*\w*\s*:\s*(\w+)[^\]]*\]\s*(->|-)\s*\(\s*\w*\s*:\s*(\w+)[^)]*\)`)
)

// ValidateQuery checks a Cypher statement against the ontology and returns a
// list of violations. A nil result means the query only references declared
// labels and relationship types with compatible directions.
func (o *Ontology) ValidateQuery(cypher string) []string {
	var violations []string

	entities := make(map[string]bool, len(o.Entities))
	for _, e := range o.Entities {
		entities[e.Label] = true
	}
	relations := make(map[string]*Relation, len(o.Relations))
	for i := range o.Relations {
		relations[o.Relations[i].Label] = &o.Relations[i]
	}

	for _, m := range nodeLabelRe.FindAllStringSubmatch(cypher, -1) {
		if !entities[m[1]] {
			violations = append(violations, fmt.Sprintf("node label %q is not defined in the ontology", m[1]))
		}
	}

	for _, m := range relTypeRe.FindAllStringSubmatch(cypher, -1) {
		if _, ok := relations[m[1]]; !ok {
			violations = append(violations, fmt.Sprintf("relationship type %q is not defined in the ontology", m[1]))
		}
	}

	for _, m := range patternRe.FindAllStringSubmatch(cypher, -1) {
		left, leftArrow, relType, rightArrow, right := m[1], m[2], m[3], m[4], m[5]
		rel, ok := relations[relType]
		if !ok {
			continue // already reported above
		}

		switch {
		case leftArrow == "-" && rightArrow == "->":
			// (left)-[:REL]->(right)
			if !rel.connects(left, right) {
				violations = append(violations, directionViolation(rel, left, right))
			}
		case leftArrow == "<-" && rightArrow == "-":
			// (left)<-[:REL]-(right)
			if !rel.connects(right, left) {
				violations = append(violations, directionViolation(rel, right, left))
			}
		default:
			// Undirected: either orientation must fit.
			if !rel.connects(left, right) && !rel.connects(right, left) {
				violations = append(violations, fmt.Sprintf(
					"relationship %q does not connect %q and %q in either direction; the ontology defines (:%s)-[:%s]->(:%s)",
					rel.Label, left, right, rel.Source, rel.Label, rel.Target))
			}
		}
	}

	return violations
}

// connects reports whether the relation allows source -> target. Relations
// with an undeclared endpoint accept any label on that side.
func (r *Relation) connects(source, target string) bool {
	if r.Source != "" && r.Source != source {
		return false
	}
	if r.Target != "" && r.Target != target {
		return false
	}
	return true
}

func directionViolation(rel *Relation, source, target string) string {
	return fmt.Sprintf("relationship %q cannot connect (:%s) to (:%s); the ontology defines (:%s)-[:%s]->(:%s)",
		rel.Label, source, target, rel.Source, rel.Label, rel.Target)
}
