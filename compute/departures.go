package compute

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SaidinWoT/timespan"
	cache "github.com/patrickmn/go-cache"
	"github.com/underlx/servicealerts/types"
)

// Departure is a scheduled departure of a line from a stop
type Departure struct {
	Line string
	Stop string
	Time time.Time
}

var (
	// bounds used for open-ended disruption windows
	distantPast   = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	distantFuture = time.Date(2200, 1, 1, 0, 0, 0, 0, time.UTC)
)

func disruptionSpan(data types.DisruptionData) timespan.Span {
	start, end := data.Window()
	if start.IsZero() {
		start = distantPast
	}
	if end.IsZero() {
		end = distantFuture
	}
	return timespan.New(start, end.Sub(start))
}

func departureSpan(dep Departure) timespan.Span {
	return timespan.New(dep.Time, 1*time.Minute)
}

// DisruptionsForDeparture returns the disruptions that apply to dep, ordered by ID
func DisruptionsForDeparture(disruptions []types.Disruption, dep Departure) []types.Disruption {
	depSpan := departureSpan(dep)
	result := []types.Disruption{}
	for _, disruption := range disruptions {
		if disruption.Data == nil || !disruption.Data.Affects(dep.Line, dep.Stop) {
			continue
		}
		if _, hasIntersection := disruptionSpan(disruption.Data).Intersection(depSpan); !hasIntersection {
			continue
		}
		result = append(result, disruption)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// DisruptionIndex answers which disruptions apply to a departure, based on the last committed disruptions
type DisruptionIndex struct {
	sync.RWMutex
	disruptions []types.Disruption
	cache       *cache.Cache
}

// NewDisruptionIndex returns a new, empty DisruptionIndex
func NewDisruptionIndex() *DisruptionIndex {
	return &DisruptionIndex{
		cache: cache.New(10*time.Minute, 30*time.Minute),
	}
}

// Refresh replaces the disruptions the index is based on
func (idx *DisruptionIndex) Refresh(disruptions []types.Disruption) {
	idx.Lock()
	defer idx.Unlock()
	idx.disruptions = make([]types.Disruption, len(disruptions))
	copy(idx.disruptions, disruptions)
	idx.cache.Flush()
}

// Len returns the number of disruptions in the index
func (idx *DisruptionIndex) Len() int {
	idx.RLock()
	defer idx.RUnlock()
	return len(idx.disruptions)
}

// For returns the disruptions that apply to dep
func (idx *DisruptionIndex) For(dep Departure) []types.Disruption {
	idx.RLock()
	defer idx.RUnlock()

	key := fmt.Sprintf("%s#%s#%d", dep.Line, dep.Stop, dep.Time.Truncate(time.Minute).Unix())
	if cached, present := idx.cache.Get(key); present {
		return cached.([]types.Disruption)
	}

	result := DisruptionsForDeparture(idx.disruptions, Departure{
		Line: dep.Line,
		Stop: dep.Stop,
		Time: dep.Time.Truncate(time.Minute),
	})
	idx.cache.SetDefault(key, result)
	return result
}
