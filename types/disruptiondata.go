package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/thoas/go-funk"
)

// DisruptionData is the curated content of a Disruption.
// Each implementation is identified by the value returned by Kind
type DisruptionData interface {
	Kind() string
	Summary() string
	// Window returns the period during which the disruption applies.
	// Zero values mean the corresponding end is open
	Window() (start time.Time, end time.Time)
	// Affects returns whether the disruption applies to departures of line from stop
	Affects(line, stop string) bool
}

type disruptionDataDecoder func(raw json.RawMessage) (DisruptionData, error)

var disruptionDataDecoders = make(map[string]disruptionDataDecoder)

// RegisterDisruptionDataKind makes a DisruptionData implementation decodable
func RegisterDisruptionDataKind[T DisruptionData](kind string) {
	disruptionDataDecoders[kind] = func(raw json.RawMessage) (DisruptionData, error) {
		var data T
		err := json.Unmarshal(raw, &data)
		if err != nil {
			return nil, err
		}
		return data, nil
	}
}

func init() {
	RegisterDisruptionDataKind[LineDisruption](LineDisruptionKind)
	RegisterDisruptionDataKind[StopDisruption](StopDisruptionKind)
}

func decodeDisruptionData(kind string, raw json.RawMessage) (DisruptionData, error) {
	decoder, ok := disruptionDataDecoders[kind]
	if !ok {
		return nil, fmt.Errorf("decodeDisruptionData: unknown kind %q", kind)
	}
	return decoder(raw)
}

// LineDisruptionKind is the kind of LineDisruption
const LineDisruptionKind = "line"

// LineDisruption affects every departure of the given lines
type LineDisruption struct {
	Lines []string  `json:"lines" msgpack:"lines"`
	Text  string    `json:"text" msgpack:"text"`
	Start time.Time `json:"start" msgpack:"start"`
	End   time.Time `json:"end" msgpack:"end"`
}

// Kind implements DisruptionData
func (d LineDisruption) Kind() string { return LineDisruptionKind }

// Summary implements DisruptionData
func (d LineDisruption) Summary() string { return d.Text }

// Window implements DisruptionData
func (d LineDisruption) Window() (time.Time, time.Time) { return d.Start, d.End }

// Affects implements DisruptionData
func (d LineDisruption) Affects(line, stop string) bool {
	return funk.ContainsString(d.Lines, line)
}

// StopDisruptionKind is the kind of StopDisruption
const StopDisruptionKind = "stop"

// StopDisruption affects departures from the given stops.
// If Lines is not empty, only departures of those lines are affected
type StopDisruption struct {
	Stops []string  `json:"stops" msgpack:"stops"`
	Lines []string  `json:"lines" msgpack:"lines"`
	Text  string    `json:"text" msgpack:"text"`
	Start time.Time `json:"start" msgpack:"start"`
	End   time.Time `json:"end" msgpack:"end"`
}

// Kind implements DisruptionData
func (d StopDisruption) Kind() string { return StopDisruptionKind }

// Summary implements DisruptionData
func (d StopDisruption) Summary() string { return d.Text }

// Window implements DisruptionData
func (d StopDisruption) Window() (time.Time, time.Time) { return d.Start, d.End }

// Affects implements DisruptionData
func (d StopDisruption) Affects(line, stop string) bool {
	if !funk.ContainsString(d.Stops, stop) {
		return false
	}
	return len(d.Lines) == 0 || funk.ContainsString(d.Lines, line)
}
