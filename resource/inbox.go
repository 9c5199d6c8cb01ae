package resource

import (
	"log"
	"net/http"
	"time"

	"github.com/underlx/servicealerts/reconcile"
	"github.com/underlx/servicealerts/types"
	"github.com/yarf-framework/yarf"
)

// Inbox composites resource
type Inbox struct {
	resource
}

type apiNotice struct {
	Token    string                   `msgpack:"token" json:"token"`
	Type     string                   `msgpack:"type" json:"type"`
	ID       string                   `msgpack:"id" json:"id"`
	Headline string                   `msgpack:"headline" json:"headline"`
	URL      string                   `msgpack:"url" json:"url"`
	Starts   time.Time                `msgpack:"starts" json:"starts"`
	Ends     time.Time                `msgpack:"ends" json:"ends"`
	Notice   types.ExternalDisruption `msgpack:"notice" json:"notice"`
}

func newAPINotice(notice types.ExternalDisruption) apiNotice {
	id := notice.ID()
	return apiNotice{
		Token:    id.Token(),
		Type:     id.Type,
		ID:       id.ExternalID,
		Headline: notice.Data.Headline(),
		URL:      notice.Data.InfoURL(),
		Starts:   notice.Data.Starts(),
		Ends:     notice.Data.Ends(),
		Notice:   notice,
	}
}

type apiRejectRequest struct {
	ResurfaceIfUpdated bool `msgpack:"resurfaceIfUpdated" json:"resurfaceIfUpdated"`
}

type apiAcceptRequest struct {
	AutoDelete bool `msgpack:"autoDelete" json:"autoDelete"`
}

// WithEngine associates a reconciliation Engine with this resource
func (r *Inbox) WithEngine(engine *reconcile.Engine) *Inbox {
	r.engine = engine
	return r
}

// WithAdminKey sets the key operators must present to act on the inbox
func (r *Inbox) WithAdminKey(key string) *Inbox {
	r.adminKey = key
	return r
}

// WithLogger sets the logger where operator actions are recorded
func (r *Inbox) WithLogger(log *log.Logger) *Inbox {
	r.log = log
	return r
}

// Get serves HTTP GET requests on this resource
func (r *Inbox) Get(c *yarf.Context) error {
	err := r.authenticate(c)
	if err != nil {
		return err
	}

	entries, err := r.engine.Inbox()
	if err != nil {
		return err
	}

	if c.Param("token") != "" {
		id, err := tokenParam(c)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if entry.Disruption.ID() == id {
				RenderData(c, newAPINotice(entry.Disruption))
				return nil
			}
		}
		return translateError(reconcile.ErrNotInInbox)
	}

	apiEntries := make([]apiNotice, len(entries))
	for i := range entries {
		apiEntries[i] = newAPINotice(entries[i].Disruption)
	}
	RenderData(c, apiEntries)
	return nil
}

// Post serves HTTP POST requests on this resource
func (r *Inbox) Post(c *yarf.Context) error {
	err := r.authenticate(c)
	if err != nil {
		return err
	}

	id, err := tokenParam(c)
	if err != nil {
		return err
	}

	switch c.Param("action") {
	case "reject":
		var request apiRejectRequest
		err = r.DecodeRequest(c, &request)
		if err != nil {
			return err
		}
		err = r.engine.Reject(id, request.ResurfaceIfUpdated)
		if err != nil {
			return translateError(err)
		}
		r.logAction(c, "rejected", id, "resurfaceIfUpdated:", request.ResurfaceIfUpdated)
	case "accept":
		var request apiAcceptRequest
		err = r.DecodeRequest(c, &request)
		if err != nil {
			return err
		}
		err = r.engine.Accept(id, request.AutoDelete)
		if err != nil {
			return translateError(err)
		}
		r.logAction(c, "accepted", id, "autoDelete:", request.AutoDelete)
	default:
		return &yarf.CustomError{
			HTTPCode:  http.StatusNotFound,
			ErrorMsg:  "Unknown action",
			ErrorBody: "Unknown action",
		}
	}

	c.Response.WriteHeader(http.StatusNoContent)
	return nil
}
