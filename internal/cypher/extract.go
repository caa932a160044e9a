// Package cypher turns raw model replies into executable Cypher and renders
// result sets back into prompt context.
package cypher

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Extracted is the usable content of a model reply.
type Extracted struct {
	// Query is the Cypher statement to validate and execute.
	Query string
	// Display is an optional human-facing variant of the query, when the
	// model supplies one alongside the executable statement.
	Display string
	// Refused is set when the model explicitly declined to produce a query.
	Refused bool
}

var (
	cypherFenceRe = regexp.MustCompile("(?s)```cypher\\s*(.*?)```")
	jsonFenceRe   = regexp.MustCompile("(?s)```json\\s*(.*?)```")
	bareFenceRe   = regexp.MustCompile("(?s)```\\s*(.*?)```")

	cypherKeywordRe = regexp.MustCompile(`(?i)^(MATCH|OPTIONAL\s+MATCH|CREATE|MERGE|RETURN|WITH|UNWIND|CALL)\b`)
)

// ExtractResponse pulls a Cypher statement out of a model reply. Models answer
// in several shapes: a fenced cypher block, a JSON envelope (optionally inside
// a json fence) carrying the statement under "query" or "context" plus an
// optional "display", a bare fenced block, or just the raw statement. An
// explicit refusal (an "error" key in the envelope, or a reply starting with
// ERROR) comes back with Refused set. Anything else is noise and returns nil.
func ExtractResponse(reply string) *Extracted {
	trimmed := strings.TrimSpace(reply)
	if trimmed == "" {
		return nil
	}

	if m := cypherFenceRe.FindStringSubmatch(trimmed); m != nil {
		return fromStatement(m[1])
	}

	if m := jsonFenceRe.FindStringSubmatch(trimmed); m != nil {
		return fromEnvelope(m[1])
	}

	if m := bareFenceRe.FindStringSubmatch(trimmed); m != nil {
		content := strings.TrimSpace(m[1])
		if strings.HasPrefix(content, "{") {
			return fromEnvelope(content)
		}
		return fromStatement(content)
	}

	if strings.HasPrefix(trimmed, "{") {
		return fromEnvelope(trimmed)
	}

	if strings.HasPrefix(trimmed, "ERROR") {
		return &Extracted{Refused: true}
	}

	if cypherKeywordRe.MatchString(trimmed) {
		return &Extracted{Query: trimmed}
	}

	return nil
}

func fromStatement(raw string) *Extracted {
	statement := strings.TrimSpace(raw)
	if statement == "" {
		return nil
	}
	return &Extracted{Query: statement}
}

func fromEnvelope(raw string) *Extracted {
	var env map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &env); err != nil {
		return nil
	}

	if _, refused := env["error"]; refused {
		return &Extracted{Refused: true}
	}

	query := stringField(env, "query")
	if query == "" {
		query = stringField(env, "context")
	}
	if query == "" {
		return nil
	}

	return &Extracted{
		Query:   query,
		Display: stringField(env, "display"),
	}
}

func stringField(env map[string]interface{}, key string) string {
	if v, ok := env[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
