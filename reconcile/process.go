package reconcile

import (
	"time"

	"github.com/underlx/servicealerts/transaction"
	"github.com/underlx/servicealerts/types"
)

// DisruptionsTx tracks changes to the disruptions collection
type DisruptionsTx = transaction.Transaction[types.Disruption, string]

// InboxTx tracks changes to the inbox
type InboxTx = transaction.Transaction[types.ExternalDisruptionInInbox, types.ExternalDisruptionID]

// RejectedTx tracks changes to the rejected notices
type RejectedTx = transaction.Transaction[types.RejectedExternalDisruption, types.ExternalDisruptionID]

// Collections groups the three collections changed by a reconciliation cycle
type Collections struct {
	Disruptions *DisruptionsTx
	Inbox       *InboxTx
	Rejected    *RejectedTx
}

// NewCollections wraps the given snapshots in Transactions
func NewCollections(disruptions []types.Disruption, inbox []types.ExternalDisruptionInInbox, rejected []types.RejectedExternalDisruption) (Collections, error) {
	var c Collections
	var err error
	c.Disruptions, err = transaction.New(disruptions, types.IdentifyDisruption)
	if err != nil {
		return c, err
	}
	c.Inbox, err = transaction.New(inbox, types.IdentifyInboxEntry)
	if err != nil {
		return c, err
	}
	c.Rejected, err = transaction.New(rejected, types.IdentifyRejected)
	return c, err
}

// Empty returns whether none of the collections has pending actions
func (c Collections) Empty() bool {
	return c.Disruptions.Actions().Empty() && c.Inbox.Actions().Empty() && c.Rejected.Actions().Empty()
}

// CycleParams contains everything a reconciliation cycle needs besides the collections
type CycleParams struct {
	// Parsers are consulted in order; the first non-nil result is used
	Parsers             []Parser
	Now                 time.Time
	RejectedDeleteAfter time.Duration
	AssignID            func(data types.DisruptionData) string
}

type processor struct {
	CycleParams
	c Collections
}

// ProcessIncomingDisruptions reconciles the complete set of notices currently
// published by the external sources with the stored collections.
// Notices missing from incoming are considered to be no longer published
func ProcessIncomingDisruptions(incoming []types.ExternalDisruption, params CycleParams, c Collections) error {
	p := processor{
		CycleParams: params,
		c:           c,
	}

	incomingByID := make(map[types.ExternalDisruptionID]types.ExternalDisruption, len(incoming))
	for _, notice := range incoming {
		id := notice.ID()
		if _, seen := incomingByID[id]; seen {
			continue
		}
		incomingByID[id] = notice
		if err := p.processNotice(notice); err != nil {
			return err
		}
	}

	steps := []func(map[types.ExternalDisruptionID]types.ExternalDisruption) error{
		p.removeVanishedAutomatic,
		p.trackDrift,
		p.cleanInbox,
		p.expireRejected,
	}
	for _, step := range steps {
		if err := step(incomingByID); err != nil {
			return err
		}
	}
	return nil
}

func (p *processor) processNotice(notice types.ExternalDisruption) error {
	id := notice.ID()
	if rejected, ok := p.c.Rejected.Get(id); ok {
		if !rejected.ResurfaceIfUpdated || rejected.Disruption.MatchesContent(notice) {
			return nil
		}
		if err := p.c.Rejected.Delete(id); err != nil {
			return err
		}
	}

	used := false
	regenerate := false
	for _, d := range p.c.Disruptions.Value() {
		stored, ok := d.Source(id)
		if !ok {
			continue
		}
		used = true
		if stored.MatchesContent(notice) {
			continue
		}
		// curated disruptions are left for drift tracking
		if d.State.IsAutomatic() {
			if err := p.c.Disruptions.Delete(d.ID); err != nil {
				return err
			}
			regenerate = true
		}
	}

	switch {
	case regenerate:
		return p.parse(notice)
	case used:
		return p.refreshInbox(notice)
	}

	if entry, ok := p.c.Inbox.Get(id); ok && entry.Disruption.MatchesContent(notice) {
		return nil
	}
	return p.parse(notice)
}

func (p *processor) parse(notice types.ExternalDisruption) error {
	result := runParsers(p.Parsers, notice.Data)
	if result == nil {
		return p.putInInbox(notice)
	}

	state := types.StateProvisional
	if result.HighConfidence {
		state = types.StateGenerated
	}
	for _, data := range result.Disruptions {
		err := p.c.Disruptions.Add(types.Disruption{
			ID:      p.AssignID(data),
			Data:    data,
			State:   state,
			Sources: []types.ExternalDisruption{notice},
		})
		if err != nil {
			return err
		}
	}

	if !result.HighConfidence {
		return p.putInInbox(notice)
	}
	return p.refreshInbox(notice)
}

func (p *processor) putInInbox(notice types.ExternalDisruption) error {
	entry := types.ExternalDisruptionInInbox{Disruption: notice}
	if p.c.Inbox.Has(notice.ID()) {
		return p.refreshInbox(notice)
	}
	return p.c.Inbox.Add(entry)
}

// refreshInbox updates the inbox entry for the notice, if there is one and it is outdated
func (p *processor) refreshInbox(notice types.ExternalDisruption) error {
	entry, ok := p.c.Inbox.Get(notice.ID())
	if !ok || entry.Disruption.MatchesContent(notice) {
		return nil
	}
	return p.c.Inbox.Update(types.ExternalDisruptionInInbox{Disruption: notice})
}

func (p *processor) removeVanishedAutomatic(incoming map[types.ExternalDisruptionID]types.ExternalDisruption) error {
	for _, d := range p.c.Disruptions.Value() {
		if !d.State.IsAutomatic() {
			continue
		}
		for _, source := range d.Sources {
			if _, ok := incoming[source.ID()]; !ok {
				if err := p.c.Disruptions.Delete(d.ID); err != nil {
					return err
				}
				break
			}
		}
	}
	return nil
}

func (p *processor) trackDrift(incoming map[types.ExternalDisruptionID]types.ExternalDisruption) error {
	for _, d := range p.c.Disruptions.Value() {
		if !d.State.IsCurated() {
			continue
		}

		present := []types.ExternalDisruption{}
		drifted := false
		for _, source := range d.Sources {
			current, ok := incoming[source.ID()]
			if !ok {
				drifted = true
				continue
			}
			present = append(present, current)
			if !current.MatchesContent(source) {
				drifted = true
			}
		}

		if !drifted {
			continue
		}

		if d.State.IsAutoDelete() && len(present) == 0 {
			if err := p.c.Disruptions.Delete(d.ID); err != nil {
				return err
			}
			continue
		}

		if sameSources(d.UpdatedSources, present) {
			continue
		}
		d.UpdatedSources = present
		if err := p.c.Disruptions.Update(d); err != nil {
			return err
		}
	}
	return nil
}

func sameSources(stored, current []types.ExternalDisruption) bool {
	if stored == nil || len(stored) != len(current) {
		return false
	}
	for i := range stored {
		if !stored[i].MatchesContent(current[i]) {
			return false
		}
	}
	return true
}

func (p *processor) cleanInbox(incoming map[types.ExternalDisruptionID]types.ExternalDisruption) error {
	for _, entry := range p.c.Inbox.Value() {
		id := entry.Disruption.ID()
		if _, ok := incoming[id]; !ok {
			if err := p.c.Inbox.Delete(id); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *processor) expireRejected(incoming map[types.ExternalDisruptionID]types.ExternalDisruption) error {
	for _, r := range p.c.Rejected.Value() {
		id := r.Disruption.ID()
		if _, ok := incoming[id]; ok {
			if r.ScheduledDeletion != nil {
				r.ScheduledDeletion = nil
				if err := p.c.Rejected.Update(r); err != nil {
					return err
				}
			}
			continue
		}

		switch {
		case r.ScheduledDeletion == nil:
			deletion := p.Now.Add(p.RejectedDeleteAfter)
			r.ScheduledDeletion = &deletion
			if err := p.c.Rejected.Update(r); err != nil {
				return err
			}
		case !p.Now.Before(*r.ScheduledDeletion):
			if err := p.c.Rejected.Delete(id); err != nil {
				return err
			}
		}
	}
	return nil
}
