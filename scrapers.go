package main

import (
	"context"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/underlx/servicealerts/parser"
	"github.com/underlx/servicealerts/reconcile"
	"github.com/underlx/servicealerts/scraper"
	"github.com/underlx/servicealerts/scraper/mlxscraper"
)

var (
	rssmlxscr    *mlxscraper.RSSScraper
	alertsmlxscr *mlxscraper.AlertsScraper

	scrapers  []scraper.DisruptionScraper
	scheduler *cycleScheduler
)

// mlLines are the lines of the Metro de Lisboa network and how news items refer to them
var mlLines = []parser.Line{
	{ID: "pt-ml-azul", Names: []string{"Linha Azul", "azul", "gaivota"}},
	{ID: "pt-ml-amarela", Names: []string{"Linha Amarela", "amarela", "girassol"}},
	{ID: "pt-ml-verde", Names: []string{"Linha Verde", "verde", "caravela"}},
	{ID: "pt-ml-vermelha", Names: []string{"Linha Vermelha", "vermelha", "oriente"}},
}

func mlLineIDs() []string {
	ids := make([]string, len(mlLines))
	for i, line := range mlLines {
		ids[i] = line.ID
	}
	return ids
}

// mlLineNames maps the line names used by the service alerts endpoint to line IDs
func mlLineNames() map[string]string {
	names := make(map[string]string)
	for _, line := range mlLines {
		for _, name := range line.Names {
			names[strings.ToLower(name)] = line.ID
		}
		names[line.ID[len(MLnetworkID)+1:]] = line.ID
	}
	return names
}

// SetUpParsers returns the parsers used to interpret notices, in the order they should be tried
func SetUpParsers() []reconcile.Parser {
	return []reconcile.Parser{
		&parser.AlertParser{KnownLines: mlLineIDs()},
		parser.NewFeedParser(mlLines),
	}
}

// SetUpScrapers initializes the scrapers used to obtain notices and starts the reconciliation cycles
func SetUpScrapers(engine *reconcile.Engine, newsURL, mlAccessToken string) {
	rssmlxscr = &mlxscraper.RSSScraper{
		URL:      newsURL,
		CacheTTL: RSSCacheTTL,
	}
	rssmlxscr.Init(log.New(os.Stdout, "rssscraper", log.Ldate|log.Ltime))
	scrapers = append(scrapers, rssmlxscr)

	if mlAccessToken != "" {
		alertsmlxscr = &mlxscraper.AlertsScraper{
			EndpointURL: "https://api.metrolisboa.pt:8243/estadoServicoML/1.0.0",
			BearerToken: mlAccessToken,
			LineIDs:     mlLineNames(),
		}
		alertsmlxscr.Init(log.New(os.Stdout, "alertsscraper", log.Ldate|log.Ltime))
		scrapers = append(scrapers, alertsmlxscr)
	} else {
		mainLog.Println("Not scraping pt-ml service alerts, as access token is not present")
	}

	scheduler = &cycleScheduler{
		engine:   engine,
		scrapers: scrapers,
		log:      log.New(os.Stdout, "reconcile", log.Ldate|log.Ltime),
		Period:   CyclePeriod,
	}
	scheduler.Begin()
}

// TearDownScrapers stops the reconciliation cycles
func TearDownScrapers() {
	if scheduler != nil && scheduler.Running() {
		scheduler.End()
	}
}

// runCycle runs a reconciliation cycle outside of the regular schedule
func runCycle(ctx context.Context) (*reconcile.CycleSummary, error) {
	return scheduler.runCycle(ctx)
}

// cycleScheduler periodically runs reconciliation cycles over the notices of all scrapers
type cycleScheduler struct {
	mu       sync.Mutex
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}
	log      *log.Logger
	engine   *reconcile.Engine
	scrapers []scraper.DisruptionScraper

	Period time.Duration
}

// Begin starts the scheduler
func (s *cycleScheduler) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopChan = make(chan struct{})
	s.ticker = time.NewTicker(s.Period)
	s.running = true
	go s.loop(s.ticker, s.stopChan)
}

// End stops the scheduler
func (s *cycleScheduler) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticker.Stop()
	close(s.stopChan)
	s.running = false
}

// Running returns whether the scheduler is running
func (s *cycleScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *cycleScheduler) loop(ticker *time.Ticker, stopChan chan struct{}) {
	s.runScheduledCycle()
	for {
		select {
		case <-ticker.C:
			s.runScheduledCycle()
		case <-stopChan:
			return
		}
	}
}

func (s *cycleScheduler) runScheduledCycle() {
	ctx, cancel := context.WithTimeout(context.Background(), s.Period)
	defer cancel()
	_, err := s.runCycle(ctx)
	if err != nil {
		s.log.Println(err)
	}
}

func (s *cycleScheduler) runCycle(ctx context.Context) (*reconcile.CycleSummary, error) {
	start := time.Now()
	summary, err := s.engine.RunCycle(ctx, s.scrapers...)
	select {
	case cycleTelemetry <- cycleOutcome{summary: summary, err: err, took: time.Since(start)}:
	default:
	}
	if err != nil {
		return nil, err
	}
	s.log.Printf("Cycle complete: %d notices, disruptions +%d ~%d -%d, inbox +%d ~%d -%d, rejected +%d ~%d -%d",
		summary.Incoming,
		summary.Disruptions.Added, summary.Disruptions.Updated, summary.Disruptions.Deleted,
		summary.Inbox.Added, summary.Inbox.Updated, summary.Inbox.Deleted,
		summary.Rejected.Added, summary.Rejected.Updated, summary.Rejected.Deleted)
	return summary, nil
}
