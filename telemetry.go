package main

import (
	"time"

	movingaverage "github.com/RobinUS2/golang-moving-average"
	"github.com/underlx/servicealerts/reconcile"
	"github.com/underlx/servicealerts/types"
	statsd "gopkg.in/alexcesaro/statsd.v2"
)

type cycleOutcome struct {
	summary *reconcile.CycleSummary
	err     error
	took    time.Duration
}

// cycleTelemetry receives the outcome of every reconciliation cycle
var cycleTelemetry = make(chan cycleOutcome, 10)

// StatsSender is meant to be called as a goroutine that handles sending telemetry
// to a statsd (or compatible) server
func StatsSender(engine *reconcile.Engine) {
	statsdAddress, present := secrets.Get("statsdAddress")
	statsdPrefix, present2 := secrets.Get("statsdPrefix")
	if !present || !present2 {
		return
	}

	c, err := statsd.New(statsd.Address(statsdAddress), statsd.Prefix(statsdPrefix))
	if err != nil {
		// If nothing is listening on the target port, an error is returned and
		// the returned client does nothing but is still usable. So we can
		// just log the error and go on.
		mainLog.Println(err)
	}
	defer c.Close()

	ticker := time.NewTicker(1 * time.Minute)
	durationMovingAvg := movingaverage.New(30)

	for {
		select {
		case <-ticker.C:
			sendCollectionGauges(c, engine)
		case outcome := <-cycleTelemetry:
			c.Timing("cycle_duration", int(outcome.took/time.Millisecond))
			durationMovingAvg.Add(float64(outcome.took / time.Millisecond))
			c.Gauge("cycle_duration_avg", durationMovingAvg.Avg())
			if outcome.err != nil {
				c.Increment("cycle_failed")
				continue
			}
			c.Increment("cycle_ok")
			c.Gauge("cycle_incoming", outcome.summary.Incoming)
			sendActionCounts(c, "disruptions", outcome.summary.Disruptions)
			sendActionCounts(c, "inbox", outcome.summary.Inbox)
			sendActionCounts(c, "rejected", outcome.summary.Rejected)
		}
	}
}

func sendActionCounts(c *statsd.Client, collection string, count reconcile.ActionCount) {
	c.Count(collection+"_added", count.Added)
	c.Count(collection+"_updated", count.Updated)
	c.Count(collection+"_deleted", count.Deleted)
}

func sendCollectionGauges(c *statsd.Client, engine *reconcile.Engine) {
	disruptions, err := engine.Disruptions()
	if err != nil {
		mainLog.Println(err)
		return
	}
	byState := make(map[types.DisruptionState]int)
	drifted := 0
	for _, d := range disruptions {
		byState[d.State]++
		if d.UpdatedSources != nil {
			drifted++
		}
	}
	for _, state := range []types.DisruptionState{
		types.StateProvisional, types.StateGenerated, types.StateApproved,
		types.StateCurated, types.StateApprovedAutoDelete, types.StateCuratedAutoDelete} {
		c.Gauge("disruptions_"+string(state), byState[state])
	}
	c.Gauge("disruptions_drifted", drifted)

	inbox, err := engine.Inbox()
	if err != nil {
		mainLog.Println(err)
		return
	}
	c.Gauge("inbox_size", len(inbox))

	rejected, err := engine.Rejected()
	if err != nil {
		mainLog.Println(err)
		return
	}
	c.Gauge("rejected_size", len(rejected))
}
