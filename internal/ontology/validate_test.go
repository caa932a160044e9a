package ontology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestValidateQuery tests Cypher validation against the ontology
func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		violations []string
	}{
		{
			name:  "valid match query",
			query: `MATCH (p:Person)-[:ACTED_IN]->(m:Movie) RETURN p.name, m.title`,
		},
		{
			name:  "valid reversed arrow",
			query: `MATCH (m:Movie)<-[:ACTED_IN]-(p:Person) RETURN p.name`,
		},
		{
			name:  "valid undirected pattern",
			query: `MATCH (p:Person)-[:ACTED_IN]-(m:Movie) RETURN p`,
		},
		{
			name:  "valid with bound relation variable",
			query: `MATCH (p:Person)-[r:ACTED_IN]->(m:Movie) RETURN r.role`,
		},
		{
			name:  "valid with property map",
			query: `MATCH (p:Person {name: "Tom Hanks"})-[:ACTED_IN]->(m:Movie) RETURN m.title`,
		},
		{
			name:  "valid with variable length",
			query: `MATCH (p:Person)-[:ACTED_IN*1..2]->(m:Movie) RETURN m`,
		},
		{
			name:  "valid aggregation",
			query: `MATCH (p:Person) RETURN count(p)`,
		},
		{
			name:  "anonymous nodes are not checked",
			query: `MATCH (a)-[:ACTED_IN]->(b) RETURN a, b`,
		},
		{
			name:  "empty query",
			query: "",
		},
		{
			name:  "unknown node label",
			query: `MATCH (c:Company) RETURN c`,
			violations: []string{
				`node label "Company" is not defined in the ontology`,
			},
		},
		{
			name:  "unknown relationship type",
			query: `MATCH (p:Person)-[:WORKS_AT]->(m:Movie) RETURN p`,
			violations: []string{
				`relationship type "WORKS_AT" is not defined in the ontology`,
			},
		},
		{
			name:  "wrong direction",
			query: `MATCH (m:Movie)-[:ACTED_IN]->(p:Person) RETURN p`,
			violations: []string{
				`relationship "ACTED_IN" cannot connect (:Movie) to (:Person); the ontology defines (:Person)-[:ACTED_IN]->(:Movie)`,
			},
		},
		{
			name:  "wrong direction with reversed arrow",
			query: `MATCH (p:Person)<-[:ACTED_IN]-(m:Movie) RETURN p`,
			violations: []string{
				`relationship "ACTED_IN" cannot connect (:Movie) to (:Person); the ontology defines (:Person)-[:ACTED_IN]->(:Movie)`,
			},
		},
		{
			name:  "undirected with incompatible endpoints",
			query: `MATCH (g:Genre)-[:ACTED_IN]-(p:Person) RETURN p`,
			violations: []string{
				`relationship "ACTED_IN" does not connect "Genre" and "Person" in either direction; the ontology defines (:Person)-[:ACTED_IN]->(:Movie)`,
			},
		},
	}

	ont := testOntology()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := ont.ValidateQuery(tt.query)

			if len(tt.violations) == 0 {
				assert.Empty(t, violations)
				return
			}
			require.Len(t, violations, len(tt.violations))
			for i, want := range tt.violations {
				assert.Equal(t, want, violations[i])
			}
		})
	}
}

// TestValidateQueryMultipleViolations tests that all problems are collected
func TestValidateQueryMultipleViolations(t *testing.T) {
	ont := testOntology()

	violations := ont.ValidateQuery(`MATCH (c:Company)-[:WORKS_AT]->(s:School) RETURN c`)
	require.Len(t, violations, 3)
	assert.Contains(t, violations[0], "Company")
	assert.Contains(t, violations[1], "School")
	assert.Contains(t, violations[2], "WORKS_AT")
}

// TestValidateQueryLayeredChecks tests that label and type scans run even
// when a chained pattern is only partially analyzable
func TestValidateQueryLayeredChecks(t *testing.T) {
	ont := testOntology()

	violations := ont.ValidateQuery(`MATCH (p:Person)-[:ACTED_IN]->(m:Movie)<-[:FILMED_BY]-(x:Studio) RETURN x`)
	require.NotEmpty(t, violations)

	joined := ""
	for _, v := range violations {
		joined += v + "\n"
	}
	assert.Contains(t, joined, "Studio")
	assert.Contains(t, joined, "FILMED_BY")
}

func BenchmarkValidateQuery(b *testing.B) {
	ont := testOntology()
	query := `MATCH (p:Person {name: "Tom Hanks"})-[:ACTED_IN]->(m:Movie)-[:IN_GENRE]->(g:Genre) RETURN m.title, g.name`

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ont.ValidateQuery(query)
	}
}
