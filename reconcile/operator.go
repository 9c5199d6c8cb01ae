package reconcile

import (
	"errors"
	"fmt"

	"github.com/underlx/servicealerts/types"
)

// ErrNotInInbox is returned when an operator acts upon a notice that is not in the inbox
var ErrNotInInbox = errors.New("notice is not in the inbox")

// ErrNothingToAccept is returned when accepting a notice no disruption was generated from
var ErrNothingToAccept = errors.New("no disruptions were generated from the notice")

// RejectDisruption removes a notice from the inbox, together with the
// disruptions automatically generated from it, and prevents it from being processed again.
// Curated disruptions using the notice as a source are kept
func RejectDisruption(toReject types.ExternalDisruption, resurfaceIfUpdated bool, c Collections) error {
	id := toReject.ID()
	if !c.Inbox.Has(id) {
		return fmt.Errorf("RejectDisruption: %w: %s", ErrNotInInbox, id)
	}

	err := c.Rejected.Add(types.RejectedExternalDisruption{
		Disruption:         toReject,
		ResurfaceIfUpdated: resurfaceIfUpdated,
	})
	if err != nil {
		return fmt.Errorf("RejectDisruption: %w", err)
	}

	err = c.Inbox.Delete(id)
	if err != nil {
		return fmt.Errorf("RejectDisruption: %w", err)
	}

	for _, d := range c.Disruptions.Value() {
		if d.State.IsAutomatic() && d.UsesSource(id) {
			err = c.Disruptions.Delete(d.ID)
			if err != nil {
				return fmt.Errorf("RejectDisruption: %w", err)
			}
		}
	}
	return nil
}

// RestoreDisruption forgets the rejection of a notice. Disruptions are only
// generated for it again in the next reconciliation cycle
func RestoreDisruption(id types.ExternalDisruptionID, rejected *RejectedTx) error {
	err := rejected.Delete(id)
	if err != nil {
		return fmt.Errorf("RestoreDisruption: %w", err)
	}
	return nil
}

// AcceptDisruption removes a notice from the inbox and marks the disruptions
// automatically generated from it as approved
func AcceptDisruption(id types.ExternalDisruptionID, autoDelete bool, c Collections) error {
	if !c.Inbox.Has(id) {
		return fmt.Errorf("AcceptDisruption: %w: %s", ErrNotInInbox, id)
	}

	state := types.StateApproved
	if autoDelete {
		state = types.StateApprovedAutoDelete
	}

	accepted := 0
	for _, d := range c.Disruptions.Value() {
		if !d.State.IsAutomatic() || !d.UsesSource(id) {
			continue
		}
		d.State = state
		err := c.Disruptions.Update(d)
		if err != nil {
			return fmt.Errorf("AcceptDisruption: %w", err)
		}
		accepted++
	}
	if accepted == 0 {
		return fmt.Errorf("AcceptDisruption: %w: %s", ErrNothingToAccept, id)
	}

	err := c.Inbox.Delete(id)
	if err != nil {
		return fmt.Errorf("AcceptDisruption: %w", err)
	}
	return nil
}
