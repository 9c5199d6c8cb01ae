package resource

import (
	"log"
	"net/http"
	"time"

	"github.com/underlx/servicealerts/reconcile"
	"github.com/underlx/servicealerts/types"
	"github.com/yarf-framework/yarf"
)

// Rejected composites resource
type Rejected struct {
	resource
}

type apiRejected struct {
	apiNotice          `msgpack:",inline"`
	ResurfaceIfUpdated bool       `msgpack:"resurfaceIfUpdated" json:"resurfaceIfUpdated"`
	ScheduledDeletion  *time.Time `msgpack:"scheduledDeletion" json:"scheduledDeletion"`
}

func newAPIRejected(r types.RejectedExternalDisruption) apiRejected {
	return apiRejected{
		apiNotice:          newAPINotice(r.Disruption),
		ResurfaceIfUpdated: r.ResurfaceIfUpdated,
		ScheduledDeletion:  r.ScheduledDeletion,
	}
}

// WithEngine associates a reconciliation Engine with this resource
func (r *Rejected) WithEngine(engine *reconcile.Engine) *Rejected {
	r.engine = engine
	return r
}

// WithAdminKey sets the key operators must present to manage rejections
func (r *Rejected) WithAdminKey(key string) *Rejected {
	r.adminKey = key
	return r
}

// WithLogger sets the logger where operator actions are recorded
func (r *Rejected) WithLogger(log *log.Logger) *Rejected {
	r.log = log
	return r
}

// Get serves HTTP GET requests on this resource
func (r *Rejected) Get(c *yarf.Context) error {
	err := r.authenticate(c)
	if err != nil {
		return err
	}

	rejected, err := r.engine.Rejected()
	if err != nil {
		return err
	}

	if c.Param("token") != "" {
		id, err := tokenParam(c)
		if err != nil {
			return err
		}
		for _, entry := range rejected {
			if entry.Disruption.ID() == id {
				RenderData(c, newAPIRejected(entry))
				return nil
			}
		}
		return &yarf.CustomError{
			HTTPCode:  http.StatusNotFound,
			ErrorMsg:  "Not found",
			ErrorBody: "Notice is not rejected",
		}
	}

	apiRejections := make([]apiRejected, len(rejected))
	for i := range rejected {
		apiRejections[i] = newAPIRejected(rejected[i])
	}
	RenderData(c, apiRejections)
	return nil
}

// Delete serves HTTP DELETE requests on this resource, restoring the rejected notice
func (r *Rejected) Delete(c *yarf.Context) error {
	err := r.authenticate(c)
	if err != nil {
		return err
	}

	id, err := tokenParam(c)
	if err != nil {
		return err
	}

	err = r.engine.Restore(id)
	if err != nil {
		return translateError(err)
	}
	r.logAction(c, "restored", id)

	c.Response.WriteHeader(http.StatusNoContent)
	return nil
}
