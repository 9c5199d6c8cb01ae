package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DisruptionState indicates how a Disruption was created and whether it may be changed automatically
type DisruptionState string

const (
	// StateProvisional is for disruptions generated with low confidence, pending review
	StateProvisional DisruptionState = "provisional"
	// StateGenerated is for disruptions generated with high confidence
	StateGenerated DisruptionState = "generated"
	// StateApproved is for generated disruptions that were approved by an operator
	StateApproved DisruptionState = "approved"
	// StateCurated is for disruptions whose content was written by an operator
	StateCurated DisruptionState = "curated"
	// StateApprovedAutoDelete is like StateApproved, but the disruption is
	// deleted once every source disappears
	StateApprovedAutoDelete DisruptionState = "approved-auto-delete"
	// StateCuratedAutoDelete is like StateCurated, but the disruption is
	// deleted once every source disappears
	StateCuratedAutoDelete DisruptionState = "curated-auto-delete"
)

// Valid returns whether s is a known state
func (s DisruptionState) Valid() bool {
	return s.IsAutomatic() || s.IsCurated()
}

// IsAutomatic returns whether disruptions in this state are fully managed by the parsers
func (s DisruptionState) IsAutomatic() bool {
	return s == StateProvisional || s == StateGenerated
}

// IsCurated returns whether disruptions in this state were touched by an operator
func (s DisruptionState) IsCurated() bool {
	return s == StateApproved || s == StateCurated || s.IsAutoDelete()
}

// IsAutoDelete returns whether disruptions in this state are removed when all their sources vanish
func (s DisruptionState) IsAutoDelete() bool {
	return s == StateApprovedAutoDelete || s == StateCuratedAutoDelete
}

// Disruption is a disruption that can be attached to departures
type Disruption struct {
	ID      string
	Data    DisruptionData
	State   DisruptionState
	Sources []ExternalDisruption
	// UpdatedSources is nil when the sources have not drifted since curation.
	// Otherwise it holds the current version of the sources that are still published
	UpdatedSources []ExternalDisruption
}

// IdentifyDisruption returns the ID of a Disruption
func IdentifyDisruption(d Disruption) string {
	return d.ID
}

// UsesSource returns whether id is one of the sources of the disruption
func (d Disruption) UsesSource(id ExternalDisruptionID) bool {
	_, ok := d.Source(id)
	return ok
}

// Source returns the stored version of the source with the given ID
func (d Disruption) Source(id ExternalDisruptionID) (ExternalDisruption, bool) {
	for _, source := range d.Sources {
		if source.ID() == id {
			return source, true
		}
	}
	return ExternalDisruption{}, false
}

// Validate checks the invariants of a Disruption
func (d Disruption) Validate() error {
	if d.ID == "" {
		return errors.New("Disruption.Validate: empty ID")
	}
	if d.Data == nil {
		return fmt.Errorf("Disruption.Validate: %s has no data", d.ID)
	}
	if !d.State.Valid() {
		return fmt.Errorf("Disruption.Validate: %s has invalid state %q", d.ID, d.State)
	}
	if len(d.Sources) == 0 {
		return fmt.Errorf("Disruption.Validate: %s has no sources", d.ID)
	}
	return nil
}

type disruptionJSON struct {
	ID             string               `json:"id"`
	Kind           string               `json:"kind"`
	Data           json.RawMessage      `json:"data"`
	State          DisruptionState      `json:"state"`
	Sources        []ExternalDisruption `json:"sources"`
	UpdatedSources []ExternalDisruption `json:"updatedSources"`
}

// MarshalJSON implements json.Marshaler
func (d Disruption) MarshalJSON() ([]byte, error) {
	if d.Data == nil {
		return nil, fmt.Errorf("Disruption.MarshalJSON: %s has no data", d.ID)
	}
	raw, err := json.Marshal(d.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(disruptionJSON{
		ID:             d.ID,
		Kind:           d.Data.Kind(),
		Data:           raw,
		State:          d.State,
		Sources:        d.Sources,
		UpdatedSources: d.UpdatedSources,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Disruption) UnmarshalJSON(b []byte) error {
	var j disruptionJSON
	err := json.Unmarshal(b, &j)
	if err != nil {
		return err
	}
	data, err := decodeDisruptionData(j.Kind, j.Data)
	if err != nil {
		return err
	}
	*d = Disruption{
		ID:             j.ID,
		Data:           data,
		State:          j.State,
		Sources:        j.Sources,
		UpdatedSources: j.UpdatedSources,
	}
	return nil
}

// ExternalDisruptionInInbox is a notice awaiting review by an operator
type ExternalDisruptionInInbox struct {
	Disruption ExternalDisruption `json:"disruption"`
}

// IdentifyInboxEntry returns the ID of a ExternalDisruptionInInbox
func IdentifyInboxEntry(e ExternalDisruptionInInbox) ExternalDisruptionID {
	return e.Disruption.ID()
}

// RejectedExternalDisruption is a notice an operator decided to ignore
type RejectedExternalDisruption struct {
	Disruption         ExternalDisruption `json:"disruption"`
	ResurfaceIfUpdated bool               `json:"resurfaceIfUpdated"`
	// ScheduledDeletion is set once the notice is no longer published
	ScheduledDeletion *time.Time `json:"scheduledDeletion"`
}

// IdentifyRejected returns the ID of a RejectedExternalDisruption
func IdentifyRejected(r RejectedExternalDisruption) ExternalDisruptionID {
	return r.Disruption.ID()
}
