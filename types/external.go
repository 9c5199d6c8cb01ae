package types

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	msgpack "gopkg.in/vmihailenco/msgpack.v2"
)

// ExternalDisruptionData is the payload of a notice, as published by an external source.
// Each implementation is identified by the value returned by Type
type ExternalDisruptionData interface {
	Type() string
	ID() ExternalDisruptionID
	Headline() string
	InfoURL() string
	Starts() time.Time
	Ends() time.Time
	// ContentHash returns a digest of every field except volatile ones
	ContentHash() string
	MatchesContent(other ExternalDisruptionData) bool
}

type externalDataDecoder func(raw json.RawMessage) (ExternalDisruptionData, error)

var externalDataDecoders = make(map[string]externalDataDecoder)

// RegisterExternalDisruptionType makes a ExternalDisruptionData implementation decodable
func RegisterExternalDisruptionType[T ExternalDisruptionData](tag string) {
	externalDataDecoders[tag] = func(raw json.RawMessage) (ExternalDisruptionData, error) {
		var data T
		err := json.Unmarshal(raw, &data)
		if err != nil {
			return nil, err
		}
		return data, nil
	}
}

func init() {
	RegisterExternalDisruptionType[FeedItem](FeedItemType)
	RegisterExternalDisruptionType[ServiceAlert](ServiceAlertType)
}

func contentHash(fields ...interface{}) string {
	b, err := msgpack.Marshal(fields)
	if err != nil {
		// all fields are primitive types or slices of them
		panic(err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func hashTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func hashStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func matchesContent(a, b ExternalDisruptionData) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Type() == b.Type() && a.ContentHash() == b.ContentHash()
}

// ExternalDisruption is a notice reported by an external source
type ExternalDisruption struct {
	Data ExternalDisruptionData
}

var _ msgpack.CustomEncoder = (*ExternalDisruption)(nil)

// NewExternalDisruption wraps data in a ExternalDisruption
func NewExternalDisruption(data ExternalDisruptionData) ExternalDisruption {
	return ExternalDisruption{Data: data}
}

// ID returns the ID of the notice
func (d ExternalDisruption) ID() ExternalDisruptionID {
	return d.Data.ID()
}

// Type returns the source type of the notice
func (d ExternalDisruption) Type() string {
	return d.Data.Type()
}

// MatchesContent returns whether other is the same notice with the same content
func (d ExternalDisruption) MatchesContent(other ExternalDisruption) bool {
	return d.ID() == other.ID() && d.Data.MatchesContent(other.Data)
}

type externalDisruptionEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarshalJSON implements json.Marshaler
func (d ExternalDisruption) MarshalJSON() ([]byte, error) {
	if d.Data == nil {
		return nil, fmt.Errorf("ExternalDisruption.MarshalJSON: missing data")
	}
	raw, err := json.Marshal(d.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(externalDisruptionEnvelope{
		Type: d.Data.Type(),
		Data: raw,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (d *ExternalDisruption) UnmarshalJSON(b []byte) error {
	var envelope externalDisruptionEnvelope
	err := json.Unmarshal(b, &envelope)
	if err != nil {
		return err
	}
	decoder, ok := externalDataDecoders[envelope.Type]
	if !ok {
		return fmt.Errorf("ExternalDisruption.UnmarshalJSON: unknown type %q", envelope.Type)
	}
	d.Data, err = decoder(envelope.Data)
	return err
}

// EncodeMsgpack implements the msgpack.CustomEncoder interface
func (d ExternalDisruption) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(map[string]interface{}{
		"type": d.Data.Type(),
		"data": d.Data,
	})
}

// FeedItemType is the type of notices obtained from the Metro de Lisboa news feed
const FeedItemType = "pt-ml-rss"

// FeedItem is a news feed entry
type FeedItem struct {
	GUID        string    `json:"guid" msgpack:"guid"`
	Title       string    `json:"title" msgpack:"title"`
	Description string    `json:"description" msgpack:"description"`
	URL         string    `json:"url" msgpack:"url"`
	Categories  []string  `json:"categories" msgpack:"categories"`
	Published   time.Time `json:"published" msgpack:"published"`
	// Updated changes whenever the feed is regenerated and is not considered content
	Updated time.Time `json:"updated" msgpack:"updated"`
}

// Type implements ExternalDisruptionData
func (i FeedItem) Type() string { return FeedItemType }

// ID implements ExternalDisruptionData
func (i FeedItem) ID() ExternalDisruptionID {
	return ExternalDisruptionID{Type: FeedItemType, ExternalID: i.GUID}
}

// Headline implements ExternalDisruptionData
func (i FeedItem) Headline() string { return i.Title }

// InfoURL implements ExternalDisruptionData
func (i FeedItem) InfoURL() string { return i.URL }

// Starts implements ExternalDisruptionData
func (i FeedItem) Starts() time.Time { return i.Published }

// Ends implements ExternalDisruptionData
func (i FeedItem) Ends() time.Time { return time.Time{} }

// ContentHash implements ExternalDisruptionData
func (i FeedItem) ContentHash() string {
	return contentHash(i.GUID, i.Title, i.Description, i.URL, hashStrings(i.Categories), hashTime(i.Published))
}

// MatchesContent implements ExternalDisruptionData
func (i FeedItem) MatchesContent(other ExternalDisruptionData) bool {
	return matchesContent(i, other)
}

// ServiceAlertType is the type of notices obtained from the Metro de Lisboa service alerts endpoint
const ServiceAlertType = "pt-ml-alert"

// ServiceAlert is a structured service alert
type ServiceAlert struct {
	AlertID     string    `json:"id" msgpack:"id"`
	Summary     string    `json:"summary" msgpack:"summary"`
	Description string    `json:"description" msgpack:"description"`
	URL         string    `json:"url" msgpack:"url"`
	Severity    string    `json:"severity" msgpack:"severity"`
	Lines       []string  `json:"lines" msgpack:"lines"`
	Stops       []string  `json:"stops" msgpack:"stops"`
	ActiveFrom  time.Time `json:"activeFrom" msgpack:"activeFrom"`
	ActiveUntil time.Time `json:"activeUntil" msgpack:"activeUntil"`
	// RetrievedAt is set by the scraper on every fetch and is not considered content
	RetrievedAt time.Time `json:"retrievedAt" msgpack:"retrievedAt"`
}

// Type implements ExternalDisruptionData
func (a ServiceAlert) Type() string { return ServiceAlertType }

// ID implements ExternalDisruptionData
func (a ServiceAlert) ID() ExternalDisruptionID {
	return ExternalDisruptionID{Type: ServiceAlertType, ExternalID: a.AlertID}
}

// Headline implements ExternalDisruptionData
func (a ServiceAlert) Headline() string { return a.Summary }

// InfoURL implements ExternalDisruptionData
func (a ServiceAlert) InfoURL() string { return a.URL }

// Starts implements ExternalDisruptionData
func (a ServiceAlert) Starts() time.Time { return a.ActiveFrom }

// Ends implements ExternalDisruptionData
func (a ServiceAlert) Ends() time.Time { return a.ActiveUntil }

// ContentHash implements ExternalDisruptionData
func (a ServiceAlert) ContentHash() string {
	return contentHash(a.AlertID, a.Summary, a.Description, a.URL, a.Severity,
		hashStrings(a.Lines), hashStrings(a.Stops), hashTime(a.ActiveFrom), hashTime(a.ActiveUntil))
}

// MatchesContent implements ExternalDisruptionData
func (a ServiceAlert) MatchesContent(other ExternalDisruptionData) bool {
	return matchesContent(a, other)
}
