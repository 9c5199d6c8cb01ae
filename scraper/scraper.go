package scraper

import (
	"context"

	"github.com/underlx/servicealerts/types"
)

// DisruptionScraper retrieves the notices currently published by an external source.
// Each call to Fetch must return the complete set of published notices
type DisruptionScraper interface {
	ID() string
	Fetch(ctx context.Context) ([]types.ExternalDisruptionData, error)
}
