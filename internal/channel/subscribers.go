package channel

import "github.com/bloomworks/livebus/internal/message"

// Subscriber is a registered consumer of a channel's messages.
// Implementations must tolerate concurrent OnMessage calls from different
// channels; within one channel, deliveries are sequential.
type Subscriber interface {
	// ID uniquely identifies the subscriber within a channel.
	ID() string

	// OnMessage receives one delivered message. Panics are recovered by
	// the delivering channel and recorded as delivery errors.
	OnMessage(msg *message.Message)
}

// SubscriberFunc adapts a plain function into a Subscriber.
type SubscriberFunc struct {
	id string
	fn func(*message.Message)
}

// NewSubscriberFunc wraps fn as a Subscriber with the given id.
func NewSubscriberFunc(id string, fn func(*message.Message)) *SubscriberFunc {
	return &SubscriberFunc{id: id, fn: fn}
}

// ID returns the subscriber id.
func (s *SubscriberFunc) ID() string { return s.id }

// OnMessage invokes the wrapped function.
func (s *SubscriberFunc) OnMessage(msg *message.Message) {
	if s.fn != nil {
		s.fn(msg)
	}
}

// subscriberRegistry keeps the per-tier and registration-order bookkeeping
// for one channel. It is not safe for concurrent use on its own; the owning
// Channel serializes access.
type subscriberRegistry struct {
	tiers map[message.Priority][]Subscriber
	order []Subscriber
}

func newSubscriberRegistry() *subscriberRegistry {
	return &subscriberRegistry{
		tiers: make(map[message.Priority][]Subscriber),
	}
}

// add registers the subscriber in the given tier and the flat registration
// list. It returns false if the id already exists in that tier.
func (r *subscriberRegistry) add(sub Subscriber, tier message.Priority) bool {
	for _, existing := range r.tiers[tier] {
		if existing.ID() == sub.ID() {
			return false
		}
	}
	r.tiers[tier] = append(r.tiers[tier], sub)
	r.order = append(r.order, sub)
	return true
}

// remove deletes the id from every tier and the flat list. It returns false
// if the id was not registered.
func (r *subscriberRegistry) remove(id string) bool {
	removed := false
	for tier, subs := range r.tiers {
		for i, sub := range subs {
			if sub.ID() == id {
				r.tiers[tier] = append(subs[:i], subs[i+1:]...)
				removed = true
				break
			}
		}
	}
	if !removed {
		return false
	}
	for i := 0; i < len(r.order); {
		if r.order[i].ID() == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			continue
		}
		i++
	}
	return true
}

// countAll returns the total subscriber count across all tiers.
func (r *subscriberRegistry) countAll() int {
	return len(r.order)
}

// tierSnapshot copies one tier's subscribers in registration order.
func (r *subscriberRegistry) tierSnapshot(tier message.Priority) []Subscriber {
	subs := r.tiers[tier]
	if len(subs) == 0 {
		return nil
	}
	out := make([]Subscriber, len(subs))
	copy(out, subs)
	return out
}

// orderSnapshot copies the flat registration-order list.
func (r *subscriberRegistry) orderSnapshot() []Subscriber {
	if len(r.order) == 0 {
		return nil
	}
	out := make([]Subscriber, len(r.order))
	copy(out, r.order)
	return out
}
