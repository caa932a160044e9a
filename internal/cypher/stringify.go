package cypher

import (
	"fmt"
	"sort"
	"strings"

	"github.com/askgraph/askgraph/internal/graph"
)

// StringifyResultSet renders a result set as prompt context: one line per
// row, cells comma-separated. Nodes render as (:Label {k: v}), edges as
// [:TYPE {k: v}], with property keys in sorted order so the output is
// stable. A result with no rows renders as the empty string.
func StringifyResultSet(rows [][]graph.Value) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			cells = append(cells, stringifyValue(cell))
		}
		lines = append(lines, strings.Join(cells, ", "))
	}
	return strings.Join(lines, "\n")
}

func stringifyValue(v graph.Value) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case graph.Node:
		return stringifyNode(val)
	case graph.Edge:
		return stringifyEdge(val)
	case []graph.Value:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, stringifyValue(item))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

func stringifyNode(n graph.Node) string {
	var sb strings.Builder
	sb.WriteString("(")
	for _, label := range n.Labels {
		sb.WriteString(":")
		sb.WriteString(label)
	}
	writeProperties(&sb, n.Properties)
	sb.WriteString(")")
	return sb.String()
}

func stringifyEdge(e graph.Edge) string {
	var sb strings.Builder
	sb.WriteString("[")
	if e.Type != "" {
		sb.WriteString(":")
		sb.WriteString(e.Type)
	}
	writeProperties(&sb, e.Properties)
	sb.WriteString("]")
	return sb.String()
}

func writeProperties(sb *strings.Builder, props map[string]graph.Value) {
	if len(props) == 0 {
		return
	}
	keys := make([]string, 0, len(props))
	for key := range props {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	sb.WriteString(" {")
	for i, key := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(key)
		sb.WriteString(": ")
		sb.WriteString(stringifyValue(props[key]))
	}
	sb.WriteString("}")
}
