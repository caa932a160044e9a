package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/askgraph/askgraph/internal/generation"
	"github.com/askgraph/askgraph/internal/llm"
)

const answerSystem = `You answer questions about a knowledge graph. You are given the question, the Cypher query that was executed, and the query results. Answer using only the results. If the results are empty, say that the graph contains no matching data. Be concise.`

// answerQuestion runs the QA step: a fresh chat session summarizes the query
// results into a natural language answer.
func (s *Service) answerQuestion(ctx context.Context, question string, result *generation.Result) (string, error) {
	prompt := buildAnswerPrompt(question, result.Query, result.Context)

	qaSession := llm.NewChatSession(s.llmClient, answerSystem,
		llm.WithRetry(llm.DefaultRetryConfig))

	answer, err := qaSession.Send(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

func buildAnswerPrompt(question, cypherQuery, context string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Question: %s\n\n", question))
	sb.WriteString(fmt.Sprintf("Executed Cypher:\n%s\n\n", cypherQuery))
	if context == "" {
		sb.WriteString("Query results: (empty)\n")
	} else {
		sb.WriteString(fmt.Sprintf("Query results:\n%s\n", context))
	}
	sb.WriteString("\nAnswer the question from the results above.")
	return sb.String()
}
