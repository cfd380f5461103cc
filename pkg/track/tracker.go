package track

import (
	"context"
	"errors"
)

// Provider is one analytics destination. Implementations must handle
// their own failures (log, count, drop); there is no error channel back
// through the Tracker, and a provider must not panic out of a call.
type Provider interface {
	LogView(v View)
	LogEvent(e Event)
	LogPurchase(p Purchase)
	// SetUserProperty sets or clears a user-scoped property. A nil value
	// means "clear"; whether that differs from an empty string is up to
	// the destination.
	SetUserProperty(value *string, key string)
	Name() string // for logging and metrics
}

// Lifecycle is implemented by providers that hold external connections
// (Kafka producers, DB pools). The Tracker starts and closes them in
// registration order.
type Lifecycle interface {
	Start(ctx context.Context) error
	Close() error
}

// Tracker fans every tracking call out to all registered providers, in
// registration order, synchronously on the calling goroutine.
//
// The Tracker is not internally synchronized: register and dispatch from
// one designated goroutine, or guard it yourself.
type Tracker struct {
	providers []Provider
}

func NewTracker() *Tracker { return &Tracker{} }

// Register appends providers to the end of the dispatch list. Duplicates
// are kept: a provider registered twice receives every call twice.
func (t *Tracker) Register(providers ...Provider) {
	t.providers = append(t.providers, providers...)
}

// Providers returns the current registration list, in dispatch order.
func (t *Tracker) Providers() []Provider { return t.providers }

// Start starts every registered provider that implements Lifecycle and
// returns the first error. Providers started before the failing one stay
// started; the caller decides whether to Close.
func (t *Tracker) Start(ctx context.Context) error {
	for _, p := range t.providers {
		if l, ok := p.(Lifecycle); ok {
			if err := l.Start(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every registered provider that implements Lifecycle,
// continuing past failures, and returns the joined errors.
func (t *Tracker) Close() error {
	var errs []error
	for _, p := range t.providers {
		if l, ok := p.(Lifecycle); ok {
			if err := l.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// LogView forwards the view to every registered provider.
func (t *Tracker) LogView(v View) {
	for _, p := range t.providers {
		p.LogView(v)
	}
}

// LogEvent forwards the event to every registered provider.
func (t *Tracker) LogEvent(e Event) {
	for _, p := range t.providers {
		p.LogEvent(e)
	}
}

// LogPurchase forwards the purchase to every registered provider.
func (t *Tracker) LogPurchase(pu Purchase) {
	for _, p := range t.providers {
		p.LogPurchase(pu)
	}
}

// SetUserProperty forwards the property to every registered provider.
// value passes through verbatim, nil included.
func (t *Tracker) SetUserProperty(value *string, key string) {
	for _, p := range t.providers {
		p.SetUserProperty(value, key)
	}
}
