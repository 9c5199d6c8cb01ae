package main

import (
	"github.com/underlx/servicealerts/compute"
	"github.com/underlx/servicealerts/reconcile"
	"github.com/underlx/servicealerts/resource"
	"github.com/yarf-framework/yarf"
)

// APIserver serves the disruption and review API
func APIserver(engine *reconcile.Engine, index *compute.DisruptionIndex, adminKey string) {
	y := yarf.New()

	v1 := yarf.RouteGroup("/v1")

	v1.Add("/disruptions", new(resource.Disruption).WithEngine(engine))
	v1.Add("/disruptions/:id", new(resource.Disruption).WithEngine(engine))

	v1.Add("/departures/:line/:stop", new(resource.Departure).WithIndex(index))

	v1.Add("/feeds/disruptions", new(resource.DisruptionFeed).
		WithEngine(engine).
		WithFeedInfo("Perturbações do Metro de Lisboa", websiteURL))

	v1.Add("/inbox", new(resource.Inbox).WithEngine(engine).WithAdminKey(adminKey).WithLogger(webLog))
	v1.Add("/inbox/:token", new(resource.Inbox).WithEngine(engine).WithAdminKey(adminKey).WithLogger(webLog))
	v1.Add("/inbox/:token/:action", new(resource.Inbox).WithEngine(engine).WithAdminKey(adminKey).WithLogger(webLog))

	v1.Add("/rejected", new(resource.Rejected).WithEngine(engine).WithAdminKey(adminKey).WithLogger(webLog))
	v1.Add("/rejected/:token", new(resource.Rejected).WithEngine(engine).WithAdminKey(adminKey).WithLogger(webLog))

	v1.Add("/cycle", new(resource.Cycle).WithRunner(runCycle).WithAdminKey(adminKey).WithLogger(webLog))

	y.AddGroup(v1)

	y.Logger = webLog
	y.Start(ListenAddress)
}
