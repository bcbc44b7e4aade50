package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tkarvo/medguide-bot/config"
	"github.com/tkarvo/medguide-bot/internal/medinfo"
)

// Runs concurrent medicine lookups from the command line, bypassing the
// model entirely. Useful for poking at the search backend.
func main() {
	workers := flag.Int("workers", medinfo.DefaultMaxConcurrent, "Maximum concurrent lookups")
	rawJSON := flag.Bool("json", false, "Output raw JSON only")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <medicine-name>...\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Environment variables:\n")
		fmt.Fprintf(os.Stderr, "  FIRECRAWL_API_KEY - Required\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	config.LoadEnvFile()

	firecrawl := medinfo.NewFirecrawlClient(medinfo.FirecrawlClientOpts{
		APIKey: os.Getenv("FIRECRAWL_API_KEY"),
	})
	pool := medinfo.NewPool(firecrawl)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	start := time.Now()
	results := pool.LookupBatch(ctx, flag.Args(), *workers)
	elapsed := time.Since(start)

	if *rawJSON {
		jsonBytes, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(jsonBytes))
		return
	}

	for _, r := range results {
		fmt.Printf("=== %s [%s] ===\n", r.Name, r.Status)
		switch {
		case r.Info != "":
			fmt.Println(r.Info)
		case r.Description != "":
			fmt.Println(r.Description)
		}
		if r.URL != "" {
			fmt.Printf("URL: %s\n", r.URL)
		}
		fmt.Println()
	}
	fmt.Printf("%d lookups in %.1fs\n", len(results), elapsed.Seconds())
}
