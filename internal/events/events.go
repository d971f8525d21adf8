// Package events carries run lifecycle notifications from the suite runner
// to the log and to any subscribers (progress output, tests).
package events

import "context"

const (
	// SuiteProvisioning is emitted before the provisioning gateway is invoked.
	SuiteProvisioning = "suite.provisioning"
	// SuiteProvisioned is emitted once provisioning succeeded.
	SuiteProvisioned = "suite.provisioned"
	// SuiteProvisionFailed is emitted when provisioning aborts the suite.
	SuiteProvisionFailed = "suite.provision_failed"
	// ExpectationCompleted is emitted after every expectation verdict, pass or fail.
	ExpectationCompleted = "expectation.completed"
	// SuiteReported is emitted when the run report is final.
	SuiteReported = "suite.reported"
)

// Event is one lifecycle notification. Payload keys are written as log fields.
type Event struct {
	Type    string
	Payload map[string]any
}

// Publisher distributes events. Dispatch is synchronous: Publish returns after
// every handler ran. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event)
	Subscribe(eventType string, handler Handler) Subscription
}

// Handler processes one event. Errors are logged and do not stop delivery.
type Handler func(context.Context, Event) error

// Subscription is released with Unsubscribe.
type Subscription interface {
	Unsubscribe()
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

func (Nop) Subscribe(string, Handler) Subscription { return noopSubscription{} }
