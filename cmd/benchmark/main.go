package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"askdocs/config"
	"askdocs/internal/adapter/embedding"
	"askdocs/internal/adapter/retriever"
	"askdocs/internal/adapter/store"
)

func main() {
	dir := flag.String("dir", ".", "Directory holding askdocs.yaml and the store")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 10, "Number of results")
	relevant := flag.String("relevant", "", "Comma-separated source labels expected in the results")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -dir . -q \"query\" [-relevant a.pdf,b.txt]")
		fmt.Println("\nReports:")
		fmt.Println("  1. Store and embedding model in use")
		fmt.Println("  2. Similarity of each match against the configured threshold")
		fmt.Println("  3. Precision, recall, MRR and nDCG when -relevant is given")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedder not available: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	count, _ := st.Count(ctx)
	if count == 0 {
		fmt.Fprintln(os.Stderr, "Store is empty - run 'askdocs ingest' first")
		os.Exit(1)
	}

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Chunks stored: %d\n", count)
	fmt.Printf("Model: %s (%s)\n", cfg.Embedding.Model, cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d\n", st.Dimension())
	fmt.Printf("Threshold: %.2f (%s)\n", cfg.Retrieve.SimilarityThreshold, cfg.Store.Metric)
	fmt.Println()

	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	r := retriever.NewSemanticRetriever(st, embedder, store.Metric(cfg.Store.Metric))
	results, err := r.Search(ctx, *query, *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
		os.Exit(1)
	}
	if len(results) == 0 {
		fmt.Println("No results.")
		return
	}

	fmt.Printf("Top %d matches:\n\n", len(results))

	totalScore := 0.0
	passed := 0
	sources := make([]string, 0, len(results))
	for i, item := range results {
		totalScore += item.Similarity
		sources = append(sources, item.Source)

		mark := " "
		if item.Similarity >= cfg.Retrieve.SimilarityThreshold {
			mark = "*"
			passed++
		}
		preview := strings.ReplaceAll(item.Snippet(150), "\n", " ")
		fmt.Printf("%d.%s [%.3f] %s #%d\n", i+1, mark, item.Similarity, item.Source, item.Index)
		fmt.Printf("   %s\n\n", preview)
	}

	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Average similarity: %.3f\n", totalScore/float64(len(results)))
	fmt.Printf("  Top-1 similarity:   %.3f\n", results[0].Similarity)
	fmt.Printf("  Above threshold:    %d/%d (marked *)\n", passed, len(results))

	if *relevant == "" {
		return
	}
	expected := strings.Split(*relevant, ",")
	for i := range expected {
		expected[i] = strings.TrimSpace(expected[i])
	}

	gains := make([]float64, len(sources))
	ideal := make([]float64, len(sources))
	want := make(map[string]bool, len(expected))
	for _, e := range expected {
		want[e] = true
	}
	for i, s := range sources {
		if want[s] {
			gains[i] = 1
		}
		if i < len(expected) {
			ideal[i] = 1
		}
	}

	fmt.Printf("  Precision@%d:       %.3f\n", len(sources), retriever.PrecisionAtK(sources, expected))
	fmt.Printf("  Recall@%d:          %.3f\n", len(sources), retriever.RecallAtK(sources, expected))
	fmt.Printf("  MRR:                %.3f\n", retriever.ReciprocalRank(sources, expected[0]))
	fmt.Printf("  nDCG:               %.3f\n", retriever.NDCG(gains, ideal))
}
