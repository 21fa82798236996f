package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/google/uuid"

	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/aluiziolira/go-scrape-catalog/parser"
	"github.com/aluiziolira/go-scrape-catalog/pipeline"
)

const (
	phaseSearch  = "search"
	phaseProduct = "product"

	ctxPhase = "phase"
	ctxStart = "start"
	ctxSink  = "sink"
)

// Scraper wraps the colly collector used for search and product pages.
type Scraper struct {
	cfg       *config.Config
	collector *colly.Collector
	template  parser.Template
	sentinel  string
	runID     string
	Metrics   *Metrics

	requestCount int64
	errorCount   int64
	skippedLinks int64

	mu           sync.Mutex
	errorsByType map[string]int
}

// fetchSink receives the outcome of one synchronous colly request.
type fetchSink struct {
	status int
	body   []byte
	done   bool
}

// NewScraper builds a scraper instance configured from cfg. sentinel
// replaces optional product fields whose block is absent.
func NewScraper(cfg *config.Config, sentinel string) (*Scraper, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	// Product pacing happens in the pipeline; this only bounds open connections.
	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism + 1,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	s := &Scraper{
		cfg:          cfg,
		collector:    collector,
		template:     parser.DefaultTemplate(),
		sentinel:     sentinel,
		runID:        uuid.NewString(),
		errorsByType: make(map[string]int),
		Metrics:      NewMetrics(),
	}
	s.configureHandlers()
	return s, nil
}

// RunID identifies this scraper's run in logs and the result.
func (s *Scraper) RunID() string {
	return s.runID
}

// SearchURL builds the search URL for page. Page 0 is the unparameterized first page.
func (s *Scraper) SearchURL(query string, page int) string {
	return SearchURL(s.cfg.BaseURL, s.cfg.SearchPath, query, page)
}

// LastPage issues one search request and reads the last-page marker.
func (s *Scraper) LastPage(ctx context.Context, query string) (int, error) {
	doc, err := s.fetch(ctx, phaseSearch, s.SearchURL(query, 0))
	if err != nil {
		return 0, fmt.Errorf("resolve last page: %w", err)
	}
	lastPage, err := s.template.LastPage(doc)
	if err != nil {
		s.recordError(err)
		return 0, fmt.Errorf("resolve last page: %w", err)
	}
	slog.Debug("pagination resolved", slog.String("query", query), slog.Int("last_page", lastPage))
	return lastPage, nil
}

// ProductURLs returns a lazy iterator over every product link of the
// search result set. Nothing is fetched until the first call to Next.
func (s *Scraper) ProductURLs(query string) *URLIterator {
	return &URLIterator{s: s, query: query}
}

// ExtractProduct fetches one product detail page and extracts its record.
// Errors matching parser.IsDiscard void only this product.
func (s *Scraper) ExtractProduct(ctx context.Context, productURL string) (*models.Product, error) {
	doc, err := s.fetch(ctx, phaseProduct, productURL)
	if err != nil {
		return nil, err
	}

	product, err := s.template.ExtractProduct(doc, s.sentinel)
	if err != nil {
		if parser.IsDiscard(err) {
			s.Metrics.IncDiscarded(parser.DiscardReason(err))
		} else {
			s.recordError(err)
		}
		return nil, fmt.Errorf("extract %s: %w", productURL, err)
	}

	product.URL = productURL
	s.Metrics.IncItems()
	return product, nil
}

// Run enumerates the search result set, feeds every product URL to p and
// closes p. The result is built once every product request has finished.
func (s *Scraper) Run(ctx context.Context, query string, p *pipeline.Pipeline) (*models.ScraperResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	it := s.ProductURLs(query)
	urlCount := 0
	for it.Next(ctx) {
		if err := p.Process(it.URL()); err != nil {
			if perr := p.Close(); perr != nil {
				return nil, perr
			}
			return nil, fmt.Errorf("queue product: %w", err)
		}
		urlCount++
	}
	if err := it.Err(); err != nil {
		p.Close()
		return nil, err
	}
	if err := p.Close(); err != nil {
		return nil, err
	}

	return &models.ScraperResult{
		RunID:        s.runID,
		Query:        query,
		StartTime:    start,
		EndTime:      time.Now(),
		LastPage:     it.LastPage(),
		PageCount:    it.Pages(),
		URLCount:     urlCount,
		RequestCount: int(atomic.LoadInt64(&s.requestCount)),
		ErrorCount:   int(atomic.LoadInt64(&s.errorCount)),
		SkippedLinks: int(atomic.LoadInt64(&s.skippedLinks)),
		ErrorsByType: s.snapshotErrors(),
	}, nil
}

func (s *Scraper) configureHandlers() {
	s.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put(ctxStart, time.Now())
		current := atomic.AddInt64(&s.requestCount, 1)
		s.Metrics.IncRequest(r.Ctx.Get(ctxPhase))
		slog.Debug("request",
			slog.Int64("requests", current),
			slog.String("phase", r.Ctx.Get(ctxPhase)),
			slog.String("url", r.URL.String()),
		)
	})

	s.collector.OnResponse(func(r *colly.Response) {
		if start, ok := r.Ctx.GetAny(ctxStart).(time.Time); ok {
			s.Metrics.ObserveDuration(r.Ctx.Get(ctxPhase), time.Since(start))
		}
		if sink, ok := r.Ctx.GetAny(ctxSink).(*fetchSink); ok {
			sink.status = r.StatusCode
			sink.body = r.Body
			sink.done = true
		}
	})

	s.collector.OnError(func(r *colly.Response, err error) {
		if r == nil || r.Ctx == nil {
			return
		}
		if sink, ok := r.Ctx.GetAny(ctxSink).(*fetchSink); ok {
			sink.status = r.StatusCode
		}
	})
}

// fetch performs one blocking GET through the collector and parses the body.
func (s *Scraper) fetch(ctx context.Context, phase, target string) (*goquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sink := &fetchSink{}
	cctx := colly.NewContext()
	cctx.Put(ctxPhase, phase)
	cctx.Put(ctxSink, sink)

	if err := s.collector.Request(http.MethodGet, target, nil, cctx, nil); err != nil {
		classified := classifyError(err, sink.status)
		s.recordError(classified)
		slog.Error("request error",
			slog.String("url", target),
			slog.String("category", ErrorTypeLabel(classified)),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("get %s: %w", target, classified)
	}
	if !sink.done {
		err := fmt.Errorf("get %s: no response received", target)
		s.recordError(err)
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(sink.body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", target, err)
	}
	return doc, nil
}

// searchPage fetches one search result page and returns its product links.
func (s *Scraper) searchPage(ctx context.Context, query string, page int) ([]string, error) {
	target := s.SearchURL(query, page)
	doc, err := s.fetch(ctx, phaseSearch, target)
	if err != nil {
		return nil, fmt.Errorf("search page %d: %w", page, err)
	}

	links, skipped := s.template.ProductLinks(doc, s.cfg.BaseURL)
	if skipped > 0 {
		atomic.AddInt64(&s.skippedLinks, int64(skipped))
		s.Metrics.AddSkippedLinks(skipped)
		slog.Warn("search items without product link",
			slog.Int("page", page),
			slog.Int("skipped", skipped),
			slog.String("url", target),
		)
	}
	slog.Debug("search page parsed",
		slog.Int("page", page),
		slog.Int("links", len(links)),
	)
	return links, nil
}

func (s *Scraper) recordError(err error) {
	atomic.AddInt64(&s.errorCount, 1)
	category := ErrorTypeLabel(err)
	s.mu.Lock()
	s.errorsByType[category]++
	s.mu.Unlock()
	s.Metrics.IncError(category)
}

func (s *Scraper) snapshotErrors() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch {
		case statusCode == http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case statusCode == http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case statusCode == http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		case statusCode >= http.StatusNonAuthoritativeInfo:
			return ErrHTTPStatus{StatusCode: statusCode, Err: wrapped}
		}
	}

	if err == nil {
		return nil
	}
	return err
}
