// Package echo is a sample receiving application: it records every delivery
// and schedules a compose follow-up echoing the message back through the
// local queue. It doubles as its own compose target.
package echo

import (
	"bytes"
	"context"
	"sync"

	channelmodels "lanegate/internal/channel/models"
	id "lanegate/pkg/domain"
)

// Composer is the slice of the compose queue the app schedules through.
type Composer interface {
	Enqueue(ctx context.Context, from, to id.AppID, guid id.GUID, index uint16, message []byte) error
}

type laneKey struct {
	srcDomain id.DomainID
	sender    id.AppID
}

// Delivery is one recorded message arrival.
type Delivery struct {
	Origin   channelmodels.Origin
	GUID     id.GUID
	Message  []byte
	Executor id.AppID
}

// ComposeDelivery is one recorded compose arrival.
type ComposeDelivery struct {
	From     id.AppID
	GUID     id.GUID
	Message  []byte
	Executor id.AppID
}

// App echoes received messages into the compose queue.
type App struct {
	appID     id.AppID
	composer  Composer
	composeTo id.AppID

	mu         sync.Mutex
	allowed    map[laneKey]bool
	deliveries []Delivery
	composed   []ComposeDelivery
}

// Option configures the app.
type Option func(*App)

// WithComposeFollowUp makes every delivery schedule a compose message for to.
func WithComposeFollowUp(composer Composer, to id.AppID) Option {
	return func(a *App) {
		a.composer = composer
		a.composeTo = to
	}
}

// New creates an echo app addressed as appID.
func New(appID id.AppID, opts ...Option) *App {
	a := &App{
		appID:   appID,
		allowed: make(map[laneKey]bool),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *App) ID() id.AppID { return a.appID }

// AllowFrom authorizes first-time path initialization from one remote sender.
func (a *App) AllowFrom(srcDomain id.DomainID, sender id.AppID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.allowed[laneKey{srcDomain: srcDomain, sender: sender}] = true
}

func (a *App) AllowInitializePath(origin channelmodels.Origin) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allowed[laneKey{srcDomain: origin.SrcDomain, sender: origin.Sender}]
}

// Receive records the delivery and, when configured, schedules the echo
// follow-up under the primary message's id.
func (a *App) Receive(ctx context.Context, origin channelmodels.Origin, guid id.GUID, message, _ []byte, executor id.AppID) error {
	a.mu.Lock()
	a.deliveries = append(a.deliveries, Delivery{
		Origin:   origin,
		GUID:     guid,
		Message:  bytes.Clone(message),
		Executor: executor,
	})
	a.mu.Unlock()

	if a.composer == nil {
		return nil
	}
	return a.composer.Enqueue(ctx, a.appID, a.composeTo, guid, 0, append([]byte("echo:"), message...))
}

// DeliverCompose records a compose arrival.
func (a *App) DeliverCompose(_ context.Context, from id.AppID, guid id.GUID, message []byte, executor id.AppID, _ []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.composed = append(a.composed, ComposeDelivery{
		From:     from,
		GUID:     guid,
		Message:  bytes.Clone(message),
		Executor: executor,
	})
	return nil
}

// Deliveries returns recorded message arrivals in order.
func (a *App) Deliveries() []Delivery {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Delivery, len(a.deliveries))
	copy(out, a.deliveries)
	return out
}

// ComposeDeliveries returns recorded compose arrivals in order.
func (a *App) ComposeDeliveries() []ComposeDelivery {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]ComposeDelivery, len(a.composed))
	copy(out, a.composed)
	return out
}
