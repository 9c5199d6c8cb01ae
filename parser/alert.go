package parser

import (
	"github.com/thoas/go-funk"
	"github.com/underlx/servicealerts/reconcile"
	"github.com/underlx/servicealerts/types"
)

// AlertParser interprets structured service alerts.
// Results are high confidence when every affected line is known
type AlertParser struct {
	KnownLines []string
}

var _ reconcile.Parser = (*AlertParser)(nil)

// Process implements reconcile.Parser
func (p *AlertParser) Process(input types.ExternalDisruptionData) *reconcile.ParseResult {
	alert, ok := input.(types.ServiceAlert)
	if !ok {
		return nil
	}

	if len(alert.Lines) == 0 && len(alert.Stops) == 0 {
		return &reconcile.ParseResult{}
	}

	text := alert.Summary
	if text == "" {
		text = alert.Description
	}

	unknownLines := funk.FilterString(alert.Lines, func(line string) bool {
		return !funk.ContainsString(p.KnownLines, line)
	})

	var data types.DisruptionData
	if len(alert.Stops) > 0 {
		data = types.StopDisruption{
			Stops: alert.Stops,
			Lines: alert.Lines,
			Text:  text,
			Start: alert.ActiveFrom,
			End:   alert.ActiveUntil,
		}
	} else {
		data = types.LineDisruption{
			Lines: alert.Lines,
			Text:  text,
			Start: alert.ActiveFrom,
			End:   alert.ActiveUntil,
		}
	}

	return &reconcile.ParseResult{
		Disruptions:    []types.DisruptionData{data},
		HighConfidence: len(unknownLines) == 0 && text != "",
	}
}
