package compute

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/underlx/servicealerts/types"
)

var morning = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func testDisruptions() []types.Disruption {
	return []types.Disruption{
		{
			ID:    "z-open",
			State: types.StateCurated,
			Data:  types.LineDisruption{Lines: []string{"azul"}, Text: "always"},
		},
		{
			ID:    "a-window",
			State: types.StateGenerated,
			Data: types.LineDisruption{
				Lines: []string{"azul", "verde"},
				Text:  "morning",
				Start: morning,
				End:   morning.Add(2 * time.Hour),
			},
		},
		{
			ID:    "m-stop",
			State: types.StateApproved,
			Data: types.StopDisruption{
				Stops: []string{"alameda"},
				Lines: []string{"verde"},
				Text:  "stop closed",
				Start: morning,
			},
		},
	}
}

func ids(disruptions []types.Disruption) []string {
	result := []string{}
	for _, d := range disruptions {
		result = append(result, d.ID)
	}
	return result
}

func TestDisruptionsForDeparture(t *testing.T) {
	disruptions := testDisruptions()

	result := DisruptionsForDeparture(disruptions, Departure{Line: "azul", Stop: "baixa-chiado", Time: morning.Add(time.Hour)})
	assert.Equal(t, []string{"a-window", "z-open"}, ids(result))

	result = DisruptionsForDeparture(disruptions, Departure{Line: "azul", Stop: "baixa-chiado", Time: morning.Add(3 * time.Hour)})
	assert.Equal(t, []string{"z-open"}, ids(result))

	result = DisruptionsForDeparture(disruptions, Departure{Line: "verde", Stop: "alameda", Time: morning.Add(30 * time.Minute)})
	assert.Equal(t, []string{"a-window", "m-stop"}, ids(result))

	result = DisruptionsForDeparture(disruptions, Departure{Line: "verde", Stop: "alameda", Time: morning.Add(-time.Hour)})
	assert.Empty(t, result)

	result = DisruptionsForDeparture(disruptions, Departure{Line: "vermelha", Stop: "alameda", Time: morning.Add(time.Hour)})
	assert.Empty(t, result)
}

func TestDisruptionIndex(t *testing.T) {
	idx := NewDisruptionIndex()
	dep := Departure{Line: "azul", Stop: "baixa-chiado", Time: morning.Add(time.Hour + 20*time.Second)}

	assert.Empty(t, idx.For(dep))

	idx.Refresh(testDisruptions())
	require.Equal(t, 3, idx.Len())
	assert.Equal(t, []string{"a-window", "z-open"}, ids(idx.For(dep)))
	// served from cache
	assert.Equal(t, []string{"a-window", "z-open"}, ids(idx.For(dep)))

	idx.Refresh(testDisruptions()[:1])
	assert.Equal(t, []string{"z-open"}, ids(idx.For(dep)))
}
