// Package hub provides a Hub that wires the messaging core together from
// a loaded config.
//
// The Hub creates and manages the delivery pipeline:
//
//	Registry → Channels → Subscribers
//
// Plus the shared-state components:
//
//   - Global Coordinator (event phase tracking and contribution aggregation)
//   - Conflict Engine (regional divergence detection and resolution)
//
// Two system channels are created automatically: "system.sync" carries the
// coordinator's synchronization broadcasts and "system.conflicts" carries
// conflict notices. Channels in the "events" category feed the coordinator
// through an ordinary subscription.
//
// Usage:
//
//	h, err := hub.New(cfg, hub.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if err := h.Start(ctx); err != nil {
//	    return err
//	}
//	defer h.Stop()
//
//	// Publish through the hub
//	err = h.Raise("events.competition", msg)
package hub
