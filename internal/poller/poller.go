// Package poller implements spec.md §4.8's Poller half: a cron-scheduled
// fan-out across every configured ContentSource, each fetched and handed
// to the Ingester independently so one source's failure never aborts the
// cycle. Grounded on the teacher's internal/worker/cron.go (robfig/cron/v3
// "@every Ns" scheduling, defer c.Stop() shutdown contract), generalized
// from a single fixed job to N source jobs run concurrently within one
// cycle via golang.org/x/sync/errgroup.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"contentpulse/internal/contentsource"
	"contentpulse/internal/metrics"
	"contentpulse/internal/models"
)

// Ingester is the narrow interface Poller depends on, satisfied by
// internal/ingest.Ingester.
type Ingester interface {
	Ingest(ctx context.Context, article models.RawArticle) error
}

// Poller runs one fetch-and-ingest cycle per configured source on a fixed
// interval. The last-poll cursor lives only in process memory (spec.md
// §4.8: "no persisted cursor; a restart re-polls from each source's own
// notion of latest").
type Poller struct {
	sources    []contentsource.Source
	ingester   Ingester
	interval   time.Duration
	log        *slog.Logger
	mu         sync.Mutex
	lastPollAt map[string]time.Time
}

// New builds a Poller over the given sources.
func New(sources []contentsource.Source, ingester Ingester, interval time.Duration, log *slog.Logger) *Poller {
	return &Poller{
		sources:    sources,
		ingester:   ingester,
		interval:   interval,
		log:        log,
		lastPollAt: make(map[string]time.Time),
	}
}

// Start registers the poll cycle on a cron schedule and starts the
// scheduler. The returned *cron.Cron must be stopped on shutdown.
func (p *Poller) Start() (*cron.Cron, error) {
	c := cron.New()

	schedule := fmt.Sprintf("@every %ds", int(p.interval.Seconds()))
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.interval)
		defer cancel()
		p.runCycle(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("poller: invalid schedule %q: %w", schedule, err)
	}

	c.Start()
	p.log.Info("poller scheduler started", "component", "poller", "schedule", schedule, "sources", len(p.sources))
	return c, nil
}

// runCycle fetches every source concurrently and ingests the results. A
// plain (non-WithContext) errgroup.Group is used deliberately: WithContext
// cancels every sibling goroutine the moment one returns an error, which
// would violate spec.md §4.8's per-source exception isolation. pollOne
// never returns an error itself (failures are logged and swallowed), so
// the group purely provides the wait barrier.
func (p *Poller) runCycle(ctx context.Context) {
	var g errgroup.Group
	for _, src := range p.sources {
		src := src
		g.Go(func() error {
			p.pollOne(ctx, src)
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Poller) pollOne(ctx context.Context, src contentsource.Source) {
	since := p.cursor(src.Name())

	articles, err := src.Fetch(ctx, since)
	if err != nil {
		p.log.Error("poll source failed", "component", "poller", "source", src.Name(), "error", err)
		return
	}

	metrics.PollCycleArticlesFound.WithLabelValues(src.Name()).Add(float64(len(articles)))

	ingested := 0
	for _, a := range articles {
		if err := p.ingester.Ingest(ctx, a); err != nil {
			p.log.Error("ingest failed", "component", "poller", "source", src.Name(), "source_id", a.SourceID, "error", err)
			continue
		}
		ingested++
	}
	metrics.PollCycleArticlesIngested.WithLabelValues(src.Name()).Add(float64(ingested))

	p.advanceCursor(src.Name())
	p.log.Info("poll cycle complete", "component", "poller", "source", src.Name(), "found", len(articles), "ingested", ingested)
}

func (p *Poller) cursor(source string) time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastPollAt[source]
}

func (p *Poller) advanceCursor(source string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastPollAt[source] = time.Now().UTC()
}
