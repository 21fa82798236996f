package pipeline

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/aluiziolira/go-scrape-catalog/parser"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// Extractor turns a product URL into a product record.
type Extractor interface {
	ExtractProduct(ctx context.Context, productURL string) (*models.Product, error)
}

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(products []*models.Product) error
	Close() error
	Validate() error
}

type job struct {
	seq int
	url string
}

type ranked struct {
	seq     int
	product *models.Product
}

// Pipeline fetches product pages on a pool of workers sharing one pacer
// and collects the valid records.
type Pipeline struct {
	ctx       context.Context
	extractor Extractor
	pacer     Pacer
	jobCh     chan job

	wg sync.WaitGroup

	resultsMu sync.Mutex
	results   []ranked
	discards  *lru.Cache[string, string]

	metrics metrics

	mu      sync.Mutex // guards closed/err/nextSeq
	closed  bool
	err     error
	nextSeq int

	closeOnce    sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewPipeline builds a pipeline that extracts products with extractor,
// waiting on pacer before every product request.
func NewPipeline(ctx context.Context, extractor Extractor, pacer Pacer, cfg *config.Config) (*Pipeline, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	discards, err := lru.New[string, string](cfg.DiscardLogSize)
	if err != nil {
		return nil, fmt.Errorf("create discard log: %w", err)
	}
	return &Pipeline{
		ctx:       ctx,
		extractor: extractor,
		pacer:     pacer,
		jobCh:     make(chan job, cfg.PipelineBufferSize),
		discards:  discards,
		metrics:   newMetrics(),
		shutdown:  make(chan struct{}),
	}, nil
}

// Start launches worker goroutines.
func (p *Pipeline) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Process enqueues product URLs in discovery order.
func (p *Pipeline) Process(urls ...string) error {
	for _, u := range urls {
		if u == "" {
			continue
		}

		p.mu.Lock()
		if p.err != nil {
			err := p.err
			p.mu.Unlock()
			return err
		}
		if p.closed {
			p.mu.Unlock()
			return ErrPipelineClosed
		}
		seq := p.nextSeq
		p.nextSeq++
		p.mu.Unlock()

		if err := p.enqueue(job{seq: seq, url: u}); err != nil {
			return err
		}
	}
	return nil
}

// Close waits for queued products to be processed and prevents more submissions.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.closeOnce.Do(func() {
		close(p.jobCh)
	})

	p.wg.Wait()
	p.signalShutdown()
	return p.Err()
}

// Err returns the first fatal error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Products returns the collected records sorted by price ascending. Equal
// prices keep discovery order regardless of which worker finished first.
func (p *Pipeline) Products() []*models.Product {
	p.resultsMu.Lock()
	ordered := make([]ranked, len(p.results))
	copy(ordered, p.results)
	p.resultsMu.Unlock()

	slices.SortFunc(ordered, func(a, b ranked) int {
		return cmp.Compare(a.seq, b.seq)
	})

	out := make([]*models.Product, len(ordered))
	for i, r := range ordered {
		out[i] = r.product
	}
	SortByPrice(out)
	return out
}

// Discard records why a product URL produced no record.
type Discard struct {
	URL    string
	Reason string
}

// RecentDiscards returns the bounded discard log, oldest entry first.
func (p *Pipeline) RecentDiscards() []Discard {
	keys := p.discards.Keys()
	out := make([]Discard, 0, len(keys))
	for _, key := range keys {
		if reason, ok := p.discards.Peek(key); ok {
			out = append(out, Discard{URL: key, Reason: reason})
		}
	}
	return out
}

// Discarded returns the most recent discarded URLs with their reason.
func (p *Pipeline) Discarded() map[string]string {
	recent := p.RecentDiscards()
	out := make(map[string]string, len(recent))
	for _, d := range recent {
		out[d.URL] = d.Reason
	}
	return out
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

// StartMetricsReporting emits periodic progress logs.
func (p *Pipeline) StartMetricsReporting(interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				metrics := p.GetMetrics()
				slog.Info("pipeline progress",
					slog.Int64("processed", metrics["processed_products"].(int64)),
					slog.Any("discarded", metrics["discarded"]),
				)
			case <-p.shutdown:
				return
			}
		}
	}()
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	for j := range p.jobCh {
		if p.Err() != nil {
			continue
		}
		if err := p.pacer.Wait(p.ctx); err != nil {
			p.setErr(fmt.Errorf("pace %s: %w", j.url, err))
			continue
		}
		p.handle(j)
	}
}

func (p *Pipeline) handle(j job) {
	product, err := p.extractor.ExtractProduct(p.ctx, j.url)
	switch {
	case err == nil:
	case parser.IsDiscard(err):
		reason := parser.DiscardReason(err)
		p.discard(j.url, reason)
		slog.Debug("product discarded",
			slog.String("url", j.url),
			slog.String("reason", reason),
			slog.Any("error", err),
		)
		return
	default:
		p.setErr(err)
		return
	}

	if err := parser.ValidateProduct(product); err != nil {
		p.discard(j.url, "invalid_record")
		return
	}

	p.resultsMu.Lock()
	p.results = append(p.results, ranked{seq: j.seq, product: product})
	p.resultsMu.Unlock()
	p.metrics.incrementProcessed()
}

func (p *Pipeline) discard(url, reason string) {
	p.discards.Add(url, reason)
	p.metrics.addDiscard(reason)
}

func (p *Pipeline) enqueue(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrPipelineClosed
		}
	}()

	select {
	case <-p.shutdown:
		return ErrPipelineClosed
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.jobCh <- j:
		return nil
	}
}

func (p *Pipeline) setErr(err error) {
	if err == nil {
		return
	}

	p.mu.Lock()
	if p.err != nil {
		p.mu.Unlock()
		return
	}
	p.err = err
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
}

func (p *Pipeline) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}

type metrics struct {
	mu        sync.Mutex
	processed int64
	discarded map[string]int
}

func newMetrics() metrics {
	return metrics{
		discarded: make(map[string]int),
	}
}

func (m *metrics) incrementProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *metrics) addDiscard(reason string) {
	m.mu.Lock()
	m.discarded[reason]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyDiscarded := make(map[string]int, len(m.discarded))
	for k, v := range m.discarded {
		copyDiscarded[k] = v
	}

	return map[string]interface{}{
		"processed_products": m.processed,
		"discarded":          copyDiscarded,
	}
}

// SortByPrice sorts products by price ascending, keeping the input order of equal prices.
func SortByPrice(products []*models.Product) {
	slices.SortStableFunc(products, func(a, b *models.Product) int {
		return cmp.Compare(a.Price, b.Price)
	})
}
