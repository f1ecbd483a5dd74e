package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"ragchat/internal/chunker"
	"ragchat/internal/config"
	"ragchat/internal/domain"
	"ragchat/internal/embedding/hashing"
	embopenai "ragchat/internal/embedding/openai"
	"ragchat/internal/index"
	"ragchat/internal/llm"
	"ragchat/internal/portfolio"
	"ragchat/internal/service"
	"ragchat/internal/session"
	"ragchat/internal/summarizer"
	"ragchat/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, csvPath, skills, ask string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/ragchat/config.yaml if not provided)")
	flag.StringVar(&csvPath, "portfolio", "", "Portfolio CSV path (overrides config)")
	flag.StringVar(&skills, "skills", "", "Comma-separated skills to match against the portfolio")
	flag.StringVar(&ask, "ask", "", "Ask a single question and exit instead of starting the chat UI")
	flag.Parse()
	inputs := flag.Args()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	// Assemble components
	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case "hashing", "":
		emb = hashing.New(cfg.Embedder.Hashing.Dimension)
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			log.Fatalf("openai embedder config missing")
		}
		client, err := embopenai.NewClient(embopenai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			BatchSize: cfg.Embedder.OpenAI.BatchSize,
		})
		if err != nil {
			log.Fatalf("openai embedder init failed: %v", err)
		}
		emb = client
	default:
		log.Fatalf("unknown embedder: %s", cfg.Embedder.Type)
	}

	split, err := chunker.NewSplitter(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap)
	if err != nil {
		log.Fatalf("invalid chunker config: %v", err)
	}

	svc := service.New(split, emb, summarizer.NewFrequencySummarizer(),
		cfg.Index.Dir, index.Metric(cfg.Index.Metric), logger)
	ctx := context.Background()

	if skills != "" || csvPath != "" {
		runPortfolio(ctx, svc, cfg, csvPath, skills)
		return
	}

	report, err := svc.LoadOrBuild(ctx, func(ctx context.Context) (*service.IngestReport, error) {
		if len(inputs) == 0 {
			return nil, fmt.Errorf("no persisted index and no documents given; usage: ragchat file1.txt [file2.txt ...]")
		}
		docs, err := service.LoadTextFiles(inputs)
		if err != nil {
			return nil, err
		}
		return svc.IngestDocuments(ctx, docs)
	})
	if err != nil {
		log.Fatalf("index not available: %v", err)
	}

	gen, err := llm.NewClient(llm.Config{
		BaseURL:     cfg.Generator.BaseURL,
		APIKeyEnv:   cfg.Generator.APIKeyEnv,
		Model:       cfg.Generator.Model,
		Temperature: cfg.Generator.Temperature,
	})
	if err != nil {
		log.Fatalf("generator init failed: %v", err)
	}
	ret, err := svc.Retriever()
	if err != nil {
		log.Fatalf("retriever init failed: %v", err)
	}

	if ask != "" {
		sess := session.New(ret, gen, cfg.Retrieval.TopK, logger)
		answer, citations, err := sess.Ask(ctx, ask)
		if err != nil {
			log.Fatalf("ask failed: %v", err)
		}
		fmt.Println(answer)
		for i, c := range citations {
			if c.Page > 0 {
				fmt.Printf("[%d] %s p.%d (%.3f)\n", i+1, c.Source, c.Page, c.Score)
			} else {
				fmt.Printf("[%d] %s (%.3f)\n", i+1, c.Source, c.Score)
			}
		}
		return
	}

	// The TUI owns the terminal; keep the session quiet while it runs.
	sess := session.New(ret, gen, cfg.Retrieval.TopK, zap.NewNop())
	summary := fmt.Sprintf("%d items indexed (dim %d).", report.Items, report.Dimension)
	if report.Summary != "" {
		summary += " " + report.Summary
	}
	if _, err := tea.NewProgram(tui.New(sess, summary)).Run(); err != nil {
		log.Fatal(err)
	}
}

func runPortfolio(ctx context.Context, svc *service.Service, cfg *config.AppConfig, csvPath, skills string) {
	if csvPath == "" {
		csvPath = cfg.Portfolio.CSVPath
	}
	if csvPath == "" {
		log.Fatalf("portfolio csv path missing: pass --portfolio or set portfolio.csv_path")
	}
	_, err := svc.LoadOrBuild(ctx, func(ctx context.Context) (*service.IngestReport, error) {
		entries, err := portfolio.LoadCSV(csvPath)
		if err != nil {
			return nil, err
		}
		return svc.IngestPortfolio(ctx, entries)
	})
	if err != nil {
		log.Fatalf("portfolio index not available: %v", err)
	}
	if skills == "" {
		fmt.Println("Portfolio indexed. Pass --skills to query links.")
		return
	}
	var list []string
	for _, s := range strings.Split(skills, ",") {
		if s = strings.TrimSpace(s); s != "" {
			list = append(list, s)
		}
	}
	links, err := svc.QueryLinks(ctx, list, cfg.Portfolio.TopN)
	if err != nil {
		log.Fatalf("portfolio query failed: %v", err)
	}
	for _, link := range links {
		fmt.Println(link)
	}
}
