package reconcile

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/hako/durafmt"
	uuid "github.com/satori/go.uuid"
	"github.com/underlx/servicealerts/scraper"
	"github.com/underlx/servicealerts/types"
)

// Engine runs reconciliation cycles and operator actions against a Store,
// making sure only one of them changes the collections at a time
type Engine struct {
	mu    sync.Mutex
	store Store
	log   *log.Logger

	Parsers             []Parser
	RejectedDeleteAfter time.Duration
	AssignID            func(data types.DisruptionData) string
	Now                 func() time.Time
	// OnCommit is called with the complete disruptions collection after every successful commit
	OnCommit func(disruptions []types.Disruption)
}

// ActionCount counts the actions performed on a collection
type ActionCount struct {
	Added   int
	Updated int
	Deleted int
}

// CycleSummary describes the outcome of a reconciliation cycle
type CycleSummary struct {
	Incoming    int
	Disruptions ActionCount
	Inbox       ActionCount
	Rejected    ActionCount
}

// NewEngine returns a new Engine using the given store
func NewEngine(store Store, log *log.Logger, parsers ...Parser) *Engine {
	return &Engine{
		store:               store,
		log:                 log,
		Parsers:             parsers,
		RejectedDeleteAfter: 7 * 24 * time.Hour,
		AssignID:            RandomID,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// RandomID returns a new random disruption ID
func RandomID(data types.DisruptionData) string {
	return uuid.Must(uuid.NewV4()).String()
}

// RunCycle fetches the notices from every scraper and reconciles them with the store.
// If any fetch fails, the cycle is aborted before the collections are touched
func (e *Engine) RunCycle(ctx context.Context, scrapers ...scraper.DisruptionScraper) (*CycleSummary, error) {
	incoming := []types.ExternalDisruption{}
	for _, s := range scrapers {
		data, err := s.Fetch(ctx)
		if err != nil {
			return nil, fmt.Errorf("RunCycle: %s: %w", s.ID(), err)
		}
		for _, d := range data {
			incoming = append(incoming, types.NewExternalDisruption(d))
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := LoadCollections(e.store)
	if err != nil {
		return nil, fmt.Errorf("RunCycle: %w", err)
	}

	params := CycleParams{
		Parsers:             e.Parsers,
		Now:                 e.Now(),
		RejectedDeleteAfter: e.RejectedDeleteAfter,
		AssignID:            e.AssignID,
	}
	err = ProcessIncomingDisruptions(incoming, params, c)
	if err != nil {
		return nil, fmt.Errorf("RunCycle: %w", err)
	}

	summary := summarize(c)
	summary.Incoming = len(incoming)
	e.logScheduledDeletions(c, params.Now)

	err = e.commit(c)
	if err != nil {
		return nil, fmt.Errorf("RunCycle: %w", err)
	}
	return summary, nil
}

func (e *Engine) commit(c Collections) error {
	if !c.Empty() {
		err := e.store.Commit(c)
		if err != nil {
			return err
		}
	}
	if e.OnCommit != nil {
		e.OnCommit(c.Disruptions.Value())
	}
	return nil
}

func (e *Engine) logScheduledDeletions(c Collections, now time.Time) {
	for _, r := range c.Rejected.Actions().Update {
		if r.ScheduledDeletion != nil {
			e.log.Println("Rejected notice", r.Disruption.ID(), "no longer published, will be forgotten in",
				durafmt.Parse(r.ScheduledDeletion.Sub(now).Truncate(time.Minute)).String())
		}
	}
	for _, id := range c.Rejected.Actions().Delete {
		e.log.Println("Forgot rejected notice", id)
	}
}

func summarize(c Collections) *CycleSummary {
	d := c.Disruptions.Actions()
	i := c.Inbox.Actions()
	r := c.Rejected.Actions()
	return &CycleSummary{
		Disruptions: ActionCount{len(d.Add), len(d.Update), len(d.Delete)},
		Inbox:       ActionCount{len(i.Add), len(i.Update), len(i.Delete)},
		Rejected:    ActionCount{len(r.Add), len(r.Update), len(r.Delete)},
	}
}

func (e *Engine) mutate(action func(c Collections) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := LoadCollections(e.store)
	if err != nil {
		return err
	}
	err = action(c)
	if err != nil {
		return err
	}
	return e.commit(c)
}

// Reject rejects the notice with the given ID, which must be in the inbox
func (e *Engine) Reject(id types.ExternalDisruptionID, resurfaceIfUpdated bool) error {
	return e.mutate(func(c Collections) error {
		entry, ok := c.Inbox.Get(id)
		if !ok {
			return fmt.Errorf("Reject: %w: %s", ErrNotInInbox, id)
		}
		return RejectDisruption(entry.Disruption, resurfaceIfUpdated, c)
	})
}

// Restore forgets the rejection of the notice with the given ID
func (e *Engine) Restore(id types.ExternalDisruptionID) error {
	return e.mutate(func(c Collections) error {
		return RestoreDisruption(id, c.Rejected)
	})
}

// Accept approves the disruptions generated from the notice with the given ID
func (e *Engine) Accept(id types.ExternalDisruptionID, autoDelete bool) error {
	return e.mutate(func(c Collections) error {
		return AcceptDisruption(id, autoDelete, c)
	})
}

// Inbox returns the notices currently in the inbox
func (e *Engine) Inbox() ([]types.ExternalDisruptionInInbox, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.GetInbox()
}

// Rejected returns the currently rejected notices
func (e *Engine) Rejected() ([]types.RejectedExternalDisruption, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.GetRejected()
}

// Disruptions returns the stored disruptions
func (e *Engine) Disruptions() ([]types.Disruption, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.GetDisruptions()
}
