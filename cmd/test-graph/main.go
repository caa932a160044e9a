// Command test-graph smoke tests the FalkorDB connection: ping, graph
// listing, schema introspection, and a read-only query.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"

	"github.com/askgraph/askgraph/internal/config"
	"github.com/askgraph/askgraph/internal/cypher"
	"github.com/askgraph/askgraph/internal/graph"
)

func main() {
	_ = godotenv.Load()

	query := flag.String("query", "MATCH (n) RETURN count(n)", "read-only Cypher to run")
	flag.Parse()

	ctx := context.Background()
	cfg := config.NewDefaultLoader().MustLoad(ctx)

	fmt.Printf("=== Graph Store Test (%s, graph %q) ===\n", cfg.Graph.Addr, cfg.Graph.GraphName)

	client := graph.NewClient(graph.Config{
		Addr:         cfg.Graph.Addr,
		Password:     cfg.Graph.Password,
		GraphName:    cfg.Graph.GraphName,
		QueryTimeout: cfg.Graph.QueryTimeout,
	})
	defer client.Close()

	if err := client.Ping(ctx); err != nil {
		log.Fatalf("ping failed: %v", err)
	}
	fmt.Println("ping ok")

	graphs, err := client.GraphList(ctx)
	if err != nil {
		log.Fatalf("graph list failed: %v", err)
	}
	fmt.Printf("graphs: %s\n", strings.Join(graphs, ", "))

	exists, err := client.Exists(ctx)
	if err != nil {
		log.Fatalf("exists check failed: %v", err)
	}
	if !exists {
		fmt.Printf("graph %q does not exist yet, skipping schema and query\n", cfg.Graph.GraphName)
		return
	}

	labels, err := client.Labels(ctx)
	if err != nil {
		log.Fatalf("labels failed: %v", err)
	}
	relations, err := client.RelationshipTypes(ctx)
	if err != nil {
		log.Fatalf("relationship types failed: %v", err)
	}
	properties, err := client.PropertyKeys(ctx)
	if err != nil {
		log.Fatalf("property keys failed: %v", err)
	}
	fmt.Printf("labels:     %s\n", strings.Join(labels, ", "))
	fmt.Printf("relations:  %s\n", strings.Join(relations, ", "))
	fmt.Printf("properties: %s\n", strings.Join(properties, ", "))

	result, err := client.ROQuery(ctx, *query)
	if err != nil {
		log.Fatalf("query failed: %v", err)
	}
	fmt.Printf("\n%s (%dms)\n", *query, result.Elapsed)
	fmt.Printf("columns: %s\n", strings.Join(result.Columns, ", "))
	if result.Empty() {
		fmt.Println("(empty result)")
		return
	}
	fmt.Println(cypher.StringifyResultSet(result.Rows))
}
