package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/locale"
	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/aluiziolira/go-scrape-catalog/pipeline"
	"github.com/aluiziolira/go-scrape-catalog/scraper"
)

func main() {
	os.Exit(run())
}

func run() int {
	defaultCfg := config.DefaultConfig()
	queryDefault := defaultCfg.Query
	if value, ok := config.EnvString("SCRAPER_QUERY"); ok {
		queryDefault = value
	}
	parallelDefault := defaultCfg.Parallelism
	if value, ok, err := config.EnvInt("SCRAPER_PARALLEL"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_PARALLEL: %v\n", err)
		return 1
	} else if ok {
		parallelDefault = value
	}
	delayDefault := defaultCfg.Delay
	if value, ok, err := config.EnvDuration("SCRAPER_DELAY"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_DELAY: %v\n", err)
		return 1
	} else if ok {
		delayDefault = value
	}
	outputDefault := defaultCfg.OutputFile
	if value, ok := config.EnvString("SCRAPER_OUTPUT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		metricsDefault = value
	}
	localeDefault := defaultCfg.Locale
	if value, ok := config.EnvString("SCRAPER_LOCALE"); ok {
		localeDefault = value
	}

	query := flag.String("query", queryDefault, "Search query; prompted for on stdin when empty")
	parallelism := flag.Int("parallel", parallelDefault, "Number of concurrent product fetches")
	delay := flag.Duration("delay", delayDefault, "Minimum spacing between product page requests")
	timeout := flag.Duration("timeout", defaultCfg.Timeout, "Per-request timeout")
	respectRobots := flag.Bool("respect-robots", false, "Respect robots.txt directives")
	outputFile := flag.String("output", outputDefault, "Report file path")
	outputFormat := flag.String("format", defaultCfg.OutputFormat, "Output format: text, csv, json, or dual")
	lang := flag.String("locale", localeDefault, "Report label language ("+strings.Join(locale.Available(), ", ")+")")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	baseURL := flag.String("base-url", defaultCfg.BaseURL, "Shop origin, without a trailing slash")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := buildConfigFromFlags(*baseURL, *query, *parallelism, *delay, *timeout, *respectRobots, *outputFile, *outputFormat, *lang, *verbose, *metricsAddr)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return 1
	}

	labels, err := locale.Lookup(cfg.Locale)
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return 1
	}

	if cfg.Query == "" {
		cfg.Query, err = readQuery(os.Stdin, os.Stdout, labels.EnterQuery)
		if err != nil {
			slog.Error("reading search query", slog.Any("error", err))
			return 1
		}
	}

	s, err := scraper.NewScraper(cfg, labels.Missing)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		return 1
	}
	slog.SetDefault(logger.With(slog.String("run_id", s.RunID())))

	pacer := pipeline.NewIntervalPacer(cfg.Delay)
	slog.Info("starting scrape",
		slog.String("base_url", cfg.BaseURL),
		slog.String("query", cfg.Query),
		slog.Int("workers", cfg.Parallelism),
		slog.Duration("delay", pacer.Interval()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, waiting for in-flight work to finish")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && s.Metrics != nil {
		metricsServer = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
	}

	p, err := pipeline.NewPipeline(ctx, s, pacer, cfg)
	if err != nil {
		slog.Error("initialising pipeline", slog.Any("error", err))
		return 1
	}
	p.Start(cfg.Parallelism)
	if cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	startTime := time.Now()
	result, err := s.Run(ctx, cfg.Query, p)
	if err != nil {
		slog.Error("scraping failed", slog.Any("error", err))
		return 1
	}

	products := p.Products()
	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile, labels)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		return 1
	}
	if err := pipeline.WriteReport(writer, products); err != nil {
		slog.Error("writing report", slog.Any("error", err))
		return 1
	}

	path, err := filepath.Abs(cfg.OutputFile)
	if err != nil {
		path = cfg.OutputFile
	}
	fmt.Printf("%s: %s\n", labels.OutputFile, path)

	printSummary(os.Stdout, result, time.Since(startTime), p.GetMetrics(), p.RecentDiscards())
	return 0
}

func buildConfigFromFlags(baseURL, query string, parallelism int, delay, timeout time.Duration, respectRobots bool, outputFile, outputFormat, lang string, verbose bool, metricsAddr string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaseURL = strings.TrimSpace(baseURL)
	cfg.Query = query
	cfg.Parallelism = parallelism
	cfg.Delay = delay
	cfg.Timeout = timeout
	cfg.RespectRobotsTxt = respectRobots
	cfg.OutputFile = outputFile
	cfg.OutputFormat = strings.ToLower(outputFormat)
	cfg.Locale = strings.ToLower(strings.TrimSpace(lang))
	cfg.Verbose = verbose
	cfg.MetricsAddr = metricsAddr
	return cfg
}

// readQuery prompts on w and reads one line from r. The line is used as
// typed, without its line terminator.
func readQuery(r io.Reader, w io.Writer, prompt string) (string, error) {
	fmt.Fprintf(w, "%s: ", prompt)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func createWriter(format, filename string, labels locale.Labels) (pipeline.OutputWriter, error) {
	switch format {
	case "text":
		return pipeline.NewTextWriter(filename, labels)
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "dual":
		return pipeline.NewDualWriter(filename, jsonSibling(filename), labels)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func jsonSibling(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + ".jsonl"
}

func printSummary(w io.Writer, result *models.ScraperResult, duration time.Duration, metrics map[string]interface{}, discards []pipeline.Discard) {
	separator := "--------------------------------------------------"
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "Scrape complete")

	totalItems := int64(0)
	if processed, ok := metrics["processed_products"].(int64); ok {
		totalItems = processed
	}

	fmt.Fprintf(w, "  Run ID:        %s\n", result.RunID)
	fmt.Fprintf(w, "  Query:         %s\n", result.Query)
	fmt.Fprintf(w, "  Last page:     %d\n", result.LastPage)
	fmt.Fprintf(w, "  Search pages:  %d\n", result.PageCount)
	fmt.Fprintf(w, "  Product URLs:  %d\n", result.URLCount)
	fmt.Fprintf(w, "  Products:      %d\n", totalItems)
	if discarded, ok := metrics["discarded"].(map[string]int); ok && len(discarded) > 0 {
		fmt.Fprintf(w, "  Discarded:     %v\n", discarded)
	}
	if result.SkippedLinks > 0 {
		fmt.Fprintf(w, "  Skipped links: %d\n", result.SkippedLinks)
	}
	fmt.Fprintf(w, "  Requests:      %d\n", result.RequestCount)
	fmt.Fprintf(w, "  Errors:        %d\n", result.ErrorCount)
	if len(result.ErrorsByType) > 0 {
		fmt.Fprintf(w, "  Error types:   %v\n", result.ErrorsByType)
	}
	fmt.Fprintf(w, "  Duration:      %v\n", duration.Round(time.Millisecond))
	if len(discards) > 0 {
		fmt.Fprintln(w, "  Recent discards:")
		for _, d := range discards {
			fmt.Fprintf(w, "    %s  %s\n", d.Reason, d.URL)
		}
	}
	fmt.Fprintln(w, separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	// Logs go to stderr so the prompt and summary stay readable on stdout.
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
