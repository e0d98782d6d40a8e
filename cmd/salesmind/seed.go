package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/salesmind/salesmind/pkg/config"
	"github.com/salesmind/salesmind/pkg/knowledge"
)

// SeedCmd bulk-loads knowledge nuggets from a JSON file into the vector
// store. The file holds an array of nuggets in the same shape as the
// /knowledge/bulk endpoint.
type SeedCmd struct {
	File string `short:"f" required:"" help:"Path to a JSON file with an array of nuggets." type:"path"`
}

func (c *SeedCmd) Run(cli *CLI) error {
	ctx := context.Background()

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var nuggets []knowledge.Nugget
	if err := json.Unmarshal(data, &nuggets); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}
	if len(nuggets) == 0 {
		return fmt.Errorf("seed file contains no nuggets")
	}
	for i := range nuggets {
		if nuggets[i].Type == "" {
			nuggets[i].Type = knowledge.TypeGeneral
		}
		if nuggets[i].Source == "" {
			nuggets[i].Source = "seed"
		}
	}

	retriever := buildRetriever(ctx, cfg)
	if retriever == nil {
		return fmt.Errorf("knowledge base is unavailable")
	}

	var succeeded, failed int
	for start := 0; start < len(nuggets); start += knowledge.MaxBulkSize {
		end := start + knowledge.MaxBulkSize
		if end > len(nuggets) {
			end = len(nuggets)
		}
		result, err := retriever.BulkUpsert(ctx, nuggets[start:end])
		if err != nil {
			return fmt.Errorf("bulk upsert failed at item %d: %w", start, err)
		}
		succeeded += result.SuccessCount
		failed += result.ErrorCount
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "  %s\n", e)
		}
	}

	fmt.Printf("Seeded %d nuggets (%d failed)\n", succeeded, failed)
	if failed > 0 {
		return fmt.Errorf("%d nuggets failed to index", failed)
	}
	return nil
}
