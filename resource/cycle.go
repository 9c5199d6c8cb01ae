package resource

import (
	"context"
	"log"

	"github.com/underlx/servicealerts/reconcile"
	"github.com/yarf-framework/yarf"
)

// Cycle composites resource
type Cycle struct {
	resource
	run func(ctx context.Context) (*reconcile.CycleSummary, error)
}

// WithRunner sets the function that runs a reconciliation cycle
func (r *Cycle) WithRunner(run func(ctx context.Context) (*reconcile.CycleSummary, error)) *Cycle {
	r.run = run
	return r
}

// WithAdminKey sets the key operators must present to trigger a cycle
func (r *Cycle) WithAdminKey(key string) *Cycle {
	r.adminKey = key
	return r
}

// WithLogger sets the logger where operator actions are recorded
func (r *Cycle) WithLogger(log *log.Logger) *Cycle {
	r.log = log
	return r
}

// Post serves HTTP POST requests on this resource
func (r *Cycle) Post(c *yarf.Context) error {
	err := r.authenticate(c)
	if err != nil {
		return err
	}

	summary, err := r.run(c.Request.Context())
	if err != nil {
		return err
	}
	r.logAction(c, "triggered a reconciliation cycle")

	RenderData(c, summary)
	return nil
}
