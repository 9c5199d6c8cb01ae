package resource

import (
	"net/http"
	"time"

	"github.com/goodsign/monday"
	"github.com/gorilla/feeds"
	"github.com/underlx/servicealerts/compute"
	"github.com/underlx/servicealerts/reconcile"
	"github.com/underlx/servicealerts/types"
	"github.com/yarf-framework/yarf"
)

// Disruption composites resource
type Disruption struct {
	resource
}

type apiDisruption struct {
	ID             string                `msgpack:"id" json:"id"`
	State          types.DisruptionState `msgpack:"state" json:"state"`
	Kind           string                `msgpack:"kind" json:"kind"`
	Summary        string                `msgpack:"summary" json:"summary"`
	Start          time.Time             `msgpack:"start" json:"start"`
	End            time.Time             `msgpack:"end" json:"end"`
	Data           types.DisruptionData  `msgpack:"data" json:"data"`
	Sources        []apiNotice           `msgpack:"sources" json:"sources"`
	Drifted        bool                  `msgpack:"drifted" json:"drifted"`
	UpdatedSources []apiNotice           `msgpack:"updatedSources" json:"updatedSources"`
}

func newAPINotices(notices []types.ExternalDisruption) []apiNotice {
	if notices == nil {
		return nil
	}
	result := make([]apiNotice, len(notices))
	for i := range notices {
		result[i] = newAPINotice(notices[i])
	}
	return result
}

func newAPIDisruption(d types.Disruption) apiDisruption {
	start, end := d.Data.Window()
	return apiDisruption{
		ID:             d.ID,
		State:          d.State,
		Kind:           d.Data.Kind(),
		Summary:        d.Data.Summary(),
		Start:          start,
		End:            end,
		Data:           d.Data,
		Sources:        newAPINotices(d.Sources),
		Drifted:        d.UpdatedSources != nil,
		UpdatedSources: newAPINotices(d.UpdatedSources),
	}
}

func newAPIDisruptions(disruptions []types.Disruption) []apiDisruption {
	result := make([]apiDisruption, len(disruptions))
	for i := range disruptions {
		result[i] = newAPIDisruption(disruptions[i])
	}
	return result
}

// WithEngine associates a reconciliation Engine with this resource
func (r *Disruption) WithEngine(engine *reconcile.Engine) *Disruption {
	r.engine = engine
	return r
}

// Get serves HTTP GET requests on this resource
func (r *Disruption) Get(c *yarf.Context) error {
	disruptions, err := r.engine.Disruptions()
	if err != nil {
		return err
	}

	if c.Param("id") != "" {
		for _, d := range disruptions {
			if d.ID == c.Param("id") {
				RenderData(c, newAPIDisruption(d))
				return nil
			}
		}
		return &yarf.CustomError{
			HTTPCode:  http.StatusNotFound,
			ErrorMsg:  "Not found",
			ErrorBody: "Disruption not found",
		}
	}

	if state := c.Request.URL.Query().Get("state"); state != "" {
		filtered := []types.Disruption{}
		for _, d := range disruptions {
			if string(d.State) == state {
				filtered = append(filtered, d)
			}
		}
		disruptions = filtered
	}

	RenderData(c, newAPIDisruptions(disruptions))
	return nil
}

// Departure composites resource
type Departure struct {
	resource
	index *compute.DisruptionIndex
}

// WithIndex associates a DisruptionIndex with this resource
func (r *Departure) WithIndex(index *compute.DisruptionIndex) *Departure {
	r.index = index
	return r
}

// Get serves HTTP GET requests on this resource
func (r *Departure) Get(c *yarf.Context) error {
	dep := compute.Departure{
		Line: c.Param("line"),
		Stop: c.Param("stop"),
		Time: time.Now().UTC(),
	}
	if t := c.Request.URL.Query().Get("time"); t != "" {
		var err error
		dep.Time, err = time.Parse(time.RFC3339, t)
		if err != nil {
			return &yarf.CustomError{
				HTTPCode:  http.StatusBadRequest,
				ErrorMsg:  "Failed to parse time",
				ErrorBody: err.Error(),
			}
		}
	}

	RenderData(c, newAPIDisruptions(r.index.For(dep)))
	return nil
}

// DisruptionFeed composites resource
type DisruptionFeed struct {
	resource
	title string
	link  string
}

// WithEngine associates a reconciliation Engine with this resource
func (r *DisruptionFeed) WithEngine(engine *reconcile.Engine) *DisruptionFeed {
	r.engine = engine
	return r
}

// WithFeedInfo sets the title and link of the feed
func (r *DisruptionFeed) WithFeedInfo(title, link string) *DisruptionFeed {
	r.title = title
	r.link = link
	return r
}

// Get serves HTTP GET requests on this resource
func (r *DisruptionFeed) Get(c *yarf.Context) error {
	disruptions, err := r.engine.Disruptions()
	if err != nil {
		return err
	}

	feed := &feeds.Feed{
		Title:   r.title,
		Link:    &feeds.Link{Href: r.link},
		Updated: time.Now(),
	}
	feed.Items = []*feeds.Item{}

	for _, d := range disruptions {
		if d.State == types.StateProvisional {
			// not reviewed yet
			continue
		}
		start, end := d.Data.Window()
		item := &feeds.Item{
			Id:          d.ID,
			Title:       d.Data.Summary(),
			Link:        &feeds.Link{Href: r.link + "/v1/disruptions/" + d.ID},
			Description: describeWindow(start, end),
			Created:     start,
		}
		for _, source := range d.Sources {
			if url := source.Data.InfoURL(); url != "" {
				item.Link = &feeds.Link{Href: url}
				break
			}
		}
		feed.Items = append(feed.Items, item)
	}

	atom, err := feed.ToAtom()
	if err != nil {
		return err
	}
	c.Response.Header().Set("Content-Type", "application/atom+xml; charset=utf-8")
	c.Response.Write([]byte(atom))
	return nil
}

func describeWindow(start, end time.Time) string {
	loc, err := time.LoadLocation("Europe/Lisbon")
	if err != nil {
		loc = time.UTC
	}
	const layout = "2 de January de 2006, 15:04"
	switch {
	case start.IsZero() && end.IsZero():
		return "Em vigor"
	case end.IsZero():
		return "Desde " + monday.Format(start.In(loc), layout, monday.LocalePtPT)
	case start.IsZero():
		return "Até " + monday.Format(end.In(loc), layout, monday.LocalePtPT)
	default:
		return "De " + monday.Format(start.In(loc), layout, monday.LocalePtPT) +
			" até " + monday.Format(end.In(loc), layout, monday.LocalePtPT)
	}
}
