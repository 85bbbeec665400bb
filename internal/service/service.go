// Package service implements the locker's core operations: identity,
// session and pickup-code tokens, the cell inventory and the lease state
// machine.  Every mutating operation runs inside exactly one
// repository.Store transaction.
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/equipment-locker/internal/queue"
)

// Publisher delivers lease events after their transaction commits.
type Publisher interface {
	Publish(ctx context.Context, ev queue.LeaseEvent) error
}

// Metrics receives lease lifecycle observations.
type Metrics interface {
	LeaseCreated(d time.Duration)
	AllocationFailed(reason string)
	CellOpened()
	LeaseReturned()
	CodeCollision()
}

// Options holds the optional collaborators shared by the services.  Zero
// values are replaced by no-op implementations.
type Options struct {
	Events  Publisher
	Metrics Metrics
	Logger  zerolog.Logger
	Now     func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Events == nil {
		o.Events = nopPublisher{}
	}
	if o.Metrics == nil {
		o.Metrics = nopMetrics{}
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	return o
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, queue.LeaseEvent) error { return nil }

type nopMetrics struct{}

func (nopMetrics) LeaseCreated(time.Duration) {}
func (nopMetrics) AllocationFailed(string)    {}
func (nopMetrics) CellOpened()                {}
func (nopMetrics) LeaseReturned()             {}
func (nopMetrics) CodeCollision()             {}
