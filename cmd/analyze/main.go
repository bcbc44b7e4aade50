package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tkarvo/medguide-bot/config"
	"github.com/tkarvo/medguide-bot/internal/llm"
	"github.com/tkarvo/medguide-bot/internal/medinfo"
)

// Analyzes a prescription photo from the command line, without Telegram.
// Progress goes to stderr, the markdown report to stdout.
func main() {
	provider := flag.String("provider", "grok", "LLM provider (grok or gemini)")
	workers := flag.Int("workers", medinfo.DefaultMaxConcurrent, "Maximum concurrent lookups")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <image-path>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Environment variables:\n")
		fmt.Fprintf(os.Stderr, "  FIRECRAWL_API_KEY - Required\n")
		fmt.Fprintf(os.Stderr, "  XAI_API_KEY       - Required for grok\n")
		fmt.Fprintf(os.Stderr, "  GEMINI_API_KEY    - Required for gemini\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	config.LoadEnvFile()

	imagePath := flag.Arg(0)
	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read image: %v\n", err)
		os.Exit(1)
	}

	mimeType, err := mimeTypeForPath(imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	firecrawl := medinfo.NewFirecrawlClient(medinfo.FirecrawlClientOpts{
		APIKey: os.Getenv("FIRECRAWL_API_KEY"),
	})

	ctx := context.Background()
	engine, err := newEngine(ctx, *provider, firecrawl, *workers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	report, err := engine.Analyze(ctx, imageData, mimeType, func(e llm.ProgressEvent) {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", e.Kind, e.Text)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Analysis failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(report.Markdown)
	fmt.Fprintf(os.Stderr, "\nMedicines: %s\n", strings.Join(report.Medicines, ", "))
	fmt.Fprintf(os.Stderr, "Tokens: %d in / %d out, cost $%.4f\n",
		report.Usage.InputTokens, report.Usage.OutputTokens, report.Usage.CostUSD)
}

func newEngine(ctx context.Context, provider string, lookuper medinfo.Lookuper, workers int) (llm.Engine, error) {
	switch provider {
	case "grok":
		return llm.NewGrokEngine(llm.GrokEngineOpts{
			APIKey:        os.Getenv("XAI_API_KEY"),
			MaxConcurrent: workers,
		}, lookuper), nil
	case "gemini":
		return llm.NewGeminiEngine(ctx, os.Getenv("GEMINI_API_KEY"), lookuper, workers)
	default:
		return nil, fmt.Errorf("unknown provider: %s (use grok or gemini)", provider)
	}
}

func mimeTypeForPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg", nil
	case ".png":
		return "image/png", nil
	default:
		return "", fmt.Errorf("unsupported image type: %s (use jpeg or png)", path)
	}
}
