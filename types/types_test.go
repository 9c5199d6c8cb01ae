package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)

func testAlert() ServiceAlert {
	return ServiceAlert{
		AlertID:     "a1",
		Summary:     "Linha Azul interrompida",
		Description: "Circulação interrompida entre Marquês de Pombal e Baixa-Chiado",
		Lines:       []string{"azul"},
		Stops:       []string{"mp", "bc"},
		ActiveFrom:  testTime,
		RetrievedAt: testTime,
	}
}

// TestExternalDisruptionID_Token verifies tokens are URL-safe and reversible.
func TestExternalDisruptionID_Token(t *testing.T) {
	ids := []ExternalDisruptionID{
		{Type: FeedItemType, ExternalID: "https://www.metrolisboa.pt/?p=123&x=/y"},
		{Type: ServiceAlertType, ExternalID: ""},
		{Type: ServiceAlertType, ExternalID: "ação 7"},
	}
	for _, id := range ids {
		token := id.Token()
		assert.NotContains(t, token, "/")
		assert.NotContains(t, token, "+")
		assert.NotContains(t, token, "=")

		decoded, err := ParseExternalDisruptionIDToken(token)
		require.NoError(t, err)
		assert.Equal(t, id, decoded)
	}

	_, err := ParseExternalDisruptionIDToken("!!!")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = ParseExternalDisruptionIDToken(ExternalDisruptionID{}.Token())
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// TestMatchesContent_IgnoresVolatileFields verifies fetch timestamps don't count as content.
func TestMatchesContent_IgnoresVolatileFields(t *testing.T) {
	a := testAlert()
	b := testAlert()
	b.RetrievedAt = testTime.Add(time.Hour)
	assert.True(t, a.MatchesContent(b))
	assert.True(t, NewExternalDisruption(a).MatchesContent(NewExternalDisruption(b)))

	b.Summary = "Linha Azul com perturbações"
	assert.False(t, a.MatchesContent(b))

	item := FeedItem{GUID: "g", Title: "t", Updated: testTime}
	other := item
	other.Updated = testTime.Add(time.Minute)
	assert.True(t, item.MatchesContent(other))
	assert.False(t, item.MatchesContent(a))
}

// TestMatchesContent_NilAndEmptySlices verifies nil and empty lists hash the same.
func TestMatchesContent_NilAndEmptySlices(t *testing.T) {
	a := FeedItem{GUID: "g", Categories: nil}
	b := FeedItem{GUID: "g", Categories: []string{}}
	assert.Equal(t, a.ContentHash(), b.ContentHash())
}

// TestExternalDisruption_JSON verifies the type tag selects the decoded variant.
func TestExternalDisruption_JSON(t *testing.T) {
	original := NewExternalDisruption(testAlert())
	b, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"type":"pt-ml-alert"`)

	var decoded ExternalDisruption
	require.NoError(t, json.Unmarshal(b, &decoded))
	alert, ok := decoded.Data.(ServiceAlert)
	require.True(t, ok)
	assert.Equal(t, original.ID(), decoded.ID())
	assert.True(t, original.MatchesContent(decoded))
	assert.Equal(t, []string{"mp", "bc"}, alert.Stops)

	err = json.Unmarshal([]byte(`{"type":"nope","data":{}}`), &decoded)
	assert.Error(t, err)
}

// TestDisruption_JSONKeepsUpdatedSourcesDistinction verifies nil and empty updatedSources survive storage.
func TestDisruption_JSONKeepsUpdatedSourcesDistinction(t *testing.T) {
	source := NewExternalDisruption(testAlert())
	d := Disruption{
		ID:      "d1",
		Data:    LineDisruption{Lines: []string{"azul"}, Text: "Linha Azul interrompida", Start: testTime},
		State:   StateCurated,
		Sources: []ExternalDisruption{source},
	}

	for _, updated := range [][]ExternalDisruption{nil, {}, {source}} {
		d.UpdatedSources = updated
		b, err := json.Marshal(d)
		require.NoError(t, err)

		var decoded Disruption
		require.NoError(t, json.Unmarshal(b, &decoded))
		assert.Equal(t, updated == nil, decoded.UpdatedSources == nil)
		assert.Len(t, decoded.UpdatedSources, len(updated))
		assert.Equal(t, d.Data, decoded.Data)
		assert.Equal(t, StateCurated, decoded.State)
		assert.True(t, decoded.UsesSource(source.ID()))
	}
}

// TestDisruption_Validate verifies the Disruption invariants.
func TestDisruption_Validate(t *testing.T) {
	d := Disruption{
		ID:      "d1",
		Data:    StopDisruption{Stops: []string{"mp"}},
		State:   StateGenerated,
		Sources: []ExternalDisruption{NewExternalDisruption(testAlert())},
	}
	assert.NoError(t, d.Validate())

	noSources := d
	noSources.Sources = nil
	assert.Error(t, noSources.Validate())

	badState := d
	badState.State = "bogus"
	assert.Error(t, badState.Validate())
}

// TestDisruptionState_Classes verifies the state classification helpers.
func TestDisruptionState_Classes(t *testing.T) {
	assert.True(t, StateProvisional.IsAutomatic())
	assert.True(t, StateGenerated.IsAutomatic())
	assert.False(t, StateApproved.IsAutomatic())

	for _, s := range []DisruptionState{StateApproved, StateCurated, StateApprovedAutoDelete, StateCuratedAutoDelete} {
		assert.True(t, s.IsCurated(), s)
		assert.True(t, s.Valid(), s)
	}
	assert.True(t, StateCuratedAutoDelete.IsAutoDelete())
	assert.False(t, StateCurated.IsAutoDelete())
}

// TestDisruptionData_Affects verifies line and stop matching.
func TestDisruptionData_Affects(t *testing.T) {
	line := LineDisruption{Lines: []string{"azul", "verde"}}
	assert.True(t, line.Affects("verde", "anything"))
	assert.False(t, line.Affects("vermelha", "anything"))

	stop := StopDisruption{Stops: []string{"mp"}}
	assert.True(t, stop.Affects("azul", "mp"))
	assert.False(t, stop.Affects("azul", "bc"))

	stop.Lines = []string{"amarela"}
	assert.False(t, stop.Affects("azul", "mp"))
	assert.True(t, stop.Affects("amarela", "mp"))
}
