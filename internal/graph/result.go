package graph

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a single cell of a query result: nil, int64, string, Node, Edge,
// or []Value for arrays.
type Value interface{}

// Node is a graph node returned by a query.
type Node struct {
	ID         int64
	Labels     []string
	Properties map[string]Value
}

// Edge is a graph relationship returned by a query.
type Edge struct {
	ID         int64
	Type       string
	Src        int64
	Dst        int64
	Properties map[string]Value
}

// QueryResult is a decoded GRAPH.QUERY reply.
type QueryResult struct {
	Columns []string
	Rows    [][]Value
	Stats   []string
	// Elapsed is the engine-reported internal execution time, rounded to
	// whole milliseconds.
	Elapsed int64
}

// Empty reports whether the result carries no usable data: either no rows at
// all, or rows whose every cell is nil, an empty string, or an empty array.
func (r *QueryResult) Empty() bool {
	if len(r.Rows) == 0 {
		return true
	}
	for _, row := range r.Rows {
		for _, cell := range row {
			if !emptyCell(cell) {
				return false
			}
		}
	}
	return true
}

func emptyCell(v Value) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []Value:
		return len(val) == 0
	default:
		return false
	}
}

// ParseReply decodes a verbose-protocol GRAPH.QUERY reply. The engine returns
// either a single stats array (write queries without a RETURN clause) or
// [header, rows, stats].
func ParseReply(raw interface{}) (*QueryResult, error) {
	reply, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected reply type %T", raw)
	}

	result := &QueryResult{}
	switch len(reply) {
	case 0:
		return result, nil
	case 1:
		result.Stats = parseStrings(reply[0])
	case 2:
		result.Columns = parseStrings(reply[0])
		result.Stats = parseStrings(reply[1])
	default:
		result.Columns = parseStrings(reply[0])
		rows, err := parseRows(reply[1])
		if err != nil {
			return nil, err
		}
		result.Rows = rows
		result.Stats = parseStrings(reply[len(reply)-1])
	}

	result.Elapsed = parseExecutionTime(result.Stats)
	return result, nil
}

const execTimeStat = "Query internal execution time"

// parseExecutionTime extracts the engine execution time stat. FalkorDB
// reports fractional milliseconds ("0.834400 milliseconds"); callers get a
// whole number.
func parseExecutionTime(stats []string) int64 {
	for _, stat := range stats {
		if !strings.HasPrefix(stat, execTimeStat) {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(stat, execTimeStat), ":"))
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		ms, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			continue
		}
		return int64(math.Round(ms))
	}
	return 0
}

func parseStrings(raw interface{}) []string {
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func parseRows(raw interface{}) ([][]Value, error) {
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected row set type %T", raw)
	}
	rows := make([][]Value, 0, len(items))
	for _, item := range items {
		cells, ok := item.([]interface{})
		if !ok {
			return nil, fmt.Errorf("unexpected row type %T", item)
		}
		row := make([]Value, len(cells))
		for i, cell := range cells {
			row[i] = parseValue(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseValue(raw interface{}) Value {
	switch val := raw.(type) {
	case nil:
		return nil
	case int64:
		return val
	case string:
		return val
	case []interface{}:
		if entity, ok := parseEntity(val); ok {
			return entity
		}
		arr := make([]Value, len(val))
		for i, item := range val {
			arr[i] = parseValue(item)
		}
		return arr
	default:
		return val
	}
}

// parseEntity recognizes the verbose-protocol encoding of nodes and edges: an
// array of [key, value] pairs carrying "id" plus "labels" (node) or "type"
// (edge).
func parseEntity(raw []interface{}) (Value, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	pairs := make(map[string]interface{}, len(raw))
	for _, item := range raw {
		pair, ok := item.([]interface{})
		if !ok || len(pair) != 2 {
			return nil, false
		}
		key, ok := pair[0].(string)
		if !ok {
			return nil, false
		}
		pairs[key] = pair[1]
	}

	id, hasID := pairs["id"].(int64)
	if !hasID {
		return nil, false
	}

	if relType, ok := pairs["type"].(string); ok {
		edge := Edge{ID: id, Type: relType}
		if src, ok := pairs["src_node"].(int64); ok {
			edge.Src = src
		}
		if dst, ok := pairs["dest_node"].(int64); ok {
			edge.Dst = dst
		}
		edge.Properties = parseProperties(pairs["properties"])
		return edge, true
	}

	if rawLabels, ok := pairs["labels"].([]interface{}); ok {
		node := Node{ID: id}
		for _, label := range rawLabels {
			if s, ok := label.(string); ok {
				node.Labels = append(node.Labels, s)
			}
		}
		node.Properties = parseProperties(pairs["properties"])
		return node, true
	}

	return nil, false
}

func parseProperties(raw interface{}) map[string]Value {
	items, ok := raw.([]interface{})
	if !ok || len(items) == 0 {
		return nil
	}
	props := make(map[string]Value, len(items))
	for _, item := range items {
		pair, ok := item.([]interface{})
		if !ok || len(pair) != 2 {
			continue
		}
		key, ok := pair[0].(string)
		if !ok {
			continue
		}
		props[key] = parseValue(pair[1])
	}
	return props
}
