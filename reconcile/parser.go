package reconcile

import "github.com/underlx/servicealerts/types"

// Parser converts external notices into disruptions
type Parser interface {
	// Process returns nil if the parser does not apply to input
	Process(input types.ExternalDisruptionData) *ParseResult
}

// ParseResult is the interpretation a Parser made of a notice.
// Disruptions may be empty, meaning the notice was recognized but produces nothing
type ParseResult struct {
	Disruptions    []types.DisruptionData
	HighConfidence bool
}

// ParserFunc adapts a function to the Parser interface
type ParserFunc func(input types.ExternalDisruptionData) *ParseResult

// Process implements Parser
func (f ParserFunc) Process(input types.ExternalDisruptionData) *ParseResult {
	return f(input)
}

func runParsers(parsers []Parser, input types.ExternalDisruptionData) *ParseResult {
	for _, parser := range parsers {
		if result := parser.Process(input); result != nil {
			return result
		}
	}
	return nil
}
