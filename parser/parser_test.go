package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/underlx/servicealerts/types"
)

var testLines = []Line{
	{ID: "pt-ml-azul", Names: []string{"Linha Azul", "azul"}},
	{ID: "pt-ml-amarela", Names: []string{"Linha Amarela", "amarela"}},
	{ID: "pt-ml-verde", Names: []string{"Linha Verde", "verde"}},
	{ID: "pt-ml-vermelha", Names: []string{"Linha Vermelha", "vermelha"}},
}

func TestFeedParser(t *testing.T) {
	p := NewFeedParser(testLines)
	published := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)

	item := types.FeedItem{
		GUID:        "https://example.com/n/1",
		Title:       "Perturbação na Linha Verde",
		Description: "Circulação condicionada entre Alameda e Cais do Sodré. A Linha Azul circula normalmente.",
		Published:   published,
	}
	result := p.Process(item)
	require.NotNil(t, result)
	assert.False(t, result.HighConfidence)
	require.Len(t, result.Disruptions, 1)
	d, ok := result.Disruptions[0].(types.LineDisruption)
	require.True(t, ok)
	assert.Equal(t, []string{"pt-ml-azul", "pt-ml-verde"}, d.Lines)
	assert.Equal(t, item.Title, d.Text)
	assert.Equal(t, published, d.Start)
	assert.True(t, d.End.IsZero())
}

func TestFeedParser_WordBoundaries(t *testing.T) {
	p := NewFeedParser(testLines)

	result := p.Process(types.FeedItem{
		GUID:  "1",
		Title: "Greve afeta espaços verdejantes",
	})
	require.NotNil(t, result)
	assert.Empty(t, result.Disruptions)

	result = p.Process(types.FeedItem{
		GUID:  "2",
		Title: "Greve: verdejantes e linha verde",
	})
	require.NotNil(t, result)
	require.Len(t, result.Disruptions, 1)
	assert.Equal(t, []string{"pt-ml-verde"}, result.Disruptions[0].(types.LineDisruption).Lines)
}

func TestFeedParser_RepeatedMentions(t *testing.T) {
	p := NewFeedParser(testLines)
	item := types.FeedItem{
		GUID:        "1",
		Title:       "Avaria na Linha Vermelha",
		Description: "Linha Vermelha e linha amarela com perturbações. Linha Vermelha retoma às 10h.",
	}

	// the matcher is reused across calls
	for i := 0; i < 3; i++ {
		result := p.Process(item)
		require.NotNil(t, result)
		require.Len(t, result.Disruptions, 1)
		assert.Equal(t, []string{"pt-ml-amarela", "pt-ml-vermelha"}, result.Disruptions[0].(types.LineDisruption).Lines)
	}
}

func TestFeedParser_NotApplicable(t *testing.T) {
	p := NewFeedParser(testLines)

	assert.Nil(t, p.Process(types.FeedItem{
		GUID:  "1",
		Title: "Novo horário da Linha Amarela aos domingos",
	}))
	assert.Nil(t, p.Process(types.ServiceAlert{
		AlertID: "a1",
		Summary: "Perturbação na Linha Amarela",
		Lines:   []string{"pt-ml-amarela"},
	}))
}

func TestAlertParser(t *testing.T) {
	p := &AlertParser{KnownLines: []string{"pt-ml-azul", "pt-ml-verde"}}
	from := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	until := from.Add(2 * time.Hour)

	result := p.Process(types.ServiceAlert{
		AlertID:     "a1",
		Summary:     "Circulação interrompida",
		Lines:       []string{"pt-ml-azul"},
		ActiveFrom:  from,
		ActiveUntil: until,
	})
	require.NotNil(t, result)
	assert.True(t, result.HighConfidence)
	require.Len(t, result.Disruptions, 1)
	assert.Equal(t, types.LineDisruption{
		Lines: []string{"pt-ml-azul"},
		Text:  "Circulação interrompida",
		Start: from,
		End:   until,
	}, result.Disruptions[0])

	result = p.Process(types.ServiceAlert{
		AlertID:     "a2",
		Description: "Estação encerrada",
		Lines:       []string{"pt-ml-verde"},
		Stops:       []string{"pt-ml-alameda"},
	})
	require.NotNil(t, result)
	assert.True(t, result.HighConfidence)
	require.Len(t, result.Disruptions, 1)
	stop, ok := result.Disruptions[0].(types.StopDisruption)
	require.True(t, ok)
	assert.Equal(t, []string{"pt-ml-alameda"}, stop.Stops)
	assert.Equal(t, "Estação encerrada", stop.Text)
}

func TestAlertParser_LowConfidence(t *testing.T) {
	p := &AlertParser{KnownLines: []string{"pt-ml-azul"}}

	result := p.Process(types.ServiceAlert{
		AlertID: "a1",
		Summary: "Obras",
		Lines:   []string{"pt-ml-azul", "pt-ml-laranja"},
	})
	require.NotNil(t, result)
	assert.False(t, result.HighConfidence)
	assert.Len(t, result.Disruptions, 1)

	result = p.Process(types.ServiceAlert{AlertID: "a2", Summary: "Aviso geral"})
	require.NotNil(t, result)
	assert.False(t, result.HighConfidence)
	assert.Empty(t, result.Disruptions)

	assert.Nil(t, p.Process(types.FeedItem{GUID: "1"}))
}
