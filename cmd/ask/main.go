// Command ask answers a single question from the command line, end to end
// against the configured graph and model provider.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/askgraph/askgraph/internal/config"
	"github.com/askgraph/askgraph/internal/graph"
	"github.com/askgraph/askgraph/internal/llm"
	"github.com/askgraph/askgraph/internal/ontology"
	"github.com/askgraph/askgraph/internal/pipeline"
)

func main() {
	_ = godotenv.Load()

	ontologyPath := flag.String("ontology", "", "ontology file (overrides ONTOLOGY_PATH)")
	showCypher := flag.Bool("cypher", false, "print the generated Cypher query")
	flag.Parse()

	question := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if question == "" {
		log.Fatal("usage: ask [-ontology file] [-cypher] <question>")
	}

	ctx := context.Background()
	cfg := config.NewDefaultLoader().MustLoad(ctx)
	if *ontologyPath != "" {
		cfg.Pipeline.OntologyPath = *ontologyPath
	}

	llmClient, err := llm.New(llm.Config{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		log.Fatalf("model client: %v", err)
	}

	graphClient := graph.NewClient(graph.Config{
		Addr:         cfg.Graph.Addr,
		Password:     cfg.Graph.Password,
		GraphName:    cfg.Graph.GraphName,
		QueryTimeout: cfg.Graph.QueryTimeout,
	})
	defer graphClient.Close()

	ont, err := ontology.Load(cfg.Pipeline.OntologyPath)
	if err != nil {
		log.Fatalf("ontology: %v", err)
	}

	svc := pipeline.NewService(llmClient, graphClient, ont, nil, nil, nil, nil, pipeline.Config{
		FallbackAnswer:  cfg.Pipeline.FallbackAnswer,
		MaxAttempts:     cfg.Generation.MaxAttempts,
		FreshTemplate:   cfg.Generation.FreshTemplate,
		HistoryTemplate: cfg.Generation.HistoryTemplate,
	})

	start := time.Now()
	resp, err := svc.Ask(ctx, &pipeline.AskRequest{Question: question})
	if err != nil {
		log.Fatalf("ask: %v", err)
	}

	fmt.Println(resp.Answer)
	if *showCypher && resp.Cypher != "" {
		fmt.Printf("\nCypher: %s\n", resp.Cypher)
	}
	fmt.Printf("\n(graph %dms, total %dms)\n",
		resp.ExecutionTimeMS, time.Since(start).Milliseconds())
}
