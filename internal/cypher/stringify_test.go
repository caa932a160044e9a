package cypher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/askgraph/askgraph/internal/graph"
)

func TestStringifyResultSet_ScalarRows(t *testing.T) {
	rows := [][]graph.Value{
		{"Keanu Reeves", int64(1964)},
		{"Carrie-Anne Moss", int64(1967)},
	}

	out := StringifyResultSet(rows)

	assert.Equal(t, "Keanu Reeves, 1964\nCarrie-Anne Moss, 1967", out)
}

func TestStringifyResultSet_NoRows(t *testing.T) {
	assert.Equal(t, "", StringifyResultSet(nil))
	assert.Equal(t, "", StringifyResultSet([][]graph.Value{}))
}

func TestStringifyResultSet_NilCell(t *testing.T) {
	out := StringifyResultSet([][]graph.Value{{"Bob", nil}})
	assert.Equal(t, "Bob, null", out)
}

func TestStringifyResultSet_Node(t *testing.T) {
	node := graph.Node{
		ID:     7,
		Labels: []string{"Person"},
		Properties: map[string]graph.Value{
			"name": "Keanu Reeves",
			"born": int64(1964),
		},
	}

	out := StringifyResultSet([][]graph.Value{{node}})

	// Property keys render in sorted order regardless of map iteration.
	assert.Equal(t, "(:Person {born: 1964, name: Keanu Reeves})", out)
}

func TestStringifyResultSet_Edge(t *testing.T) {
	edge := graph.Edge{
		ID:   3,
		Type: "ACTED_IN",
		Properties: map[string]graph.Value{
			"role": "Neo",
		},
	}

	out := StringifyResultSet([][]graph.Value{{edge}})

	assert.Equal(t, "[:ACTED_IN {role: Neo}]", out)
}

func TestStringifyResultSet_NodeWithoutProperties(t *testing.T) {
	node := graph.Node{ID: 1, Labels: []string{"Person", "Actor"}}

	out := StringifyResultSet([][]graph.Value{{node}})

	assert.Equal(t, "(:Person:Actor)", out)
}

func TestStringifyResultSet_Array(t *testing.T) {
	row := []graph.Value{[]graph.Value{"a", "b", int64(3)}}

	out := StringifyResultSet([][]graph.Value{row})

	assert.Equal(t, "[a, b, 3]", out)
}
