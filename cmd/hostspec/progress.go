package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/alexisbeaulieu97/hostspec/internal/events"
	"github.com/alexisbeaulieu97/hostspec/internal/report"
)

// progressWriter prints one line per finished expectation while suites run.
// Suites on different hosts publish concurrently.
type progressWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func subscribeProgress(pub events.Publisher, w io.Writer) []events.Subscription {
	p := &progressWriter{w: w}
	return []events.Subscription{
		pub.Subscribe(events.SuiteProvisioning, p.handle),
		pub.Subscribe(events.SuiteProvisionFailed, p.handle),
		pub.Subscribe(events.ExpectationCompleted, p.handle),
	}
}

func (p *progressWriter) handle(_ context.Context, event events.Event) error {
	suiteName, _ := event.Payload["suite"].(string)

	var line string
	switch event.Type {
	case events.SuiteProvisioning:
		playbook, _ := event.Payload["playbook"].(string)
		if playbook == "" {
			return nil
		}
		line = fmt.Sprintf("[%s] provisioning with %s", suiteName, playbook)
	case events.SuiteProvisionFailed:
		line = fmt.Sprintf("[%s] ✖ provisioning failed: %v", suiteName, event.Payload["error"])
	case events.ExpectationCompleted:
		mark := "✔"
		if verdict, _ := event.Payload["verdict"].(string); verdict == string(report.Fail) {
			mark = "✖"
		}
		line = fmt.Sprintf("[%s] %s %v", suiteName, mark, event.Payload["description"])
	default:
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintln(p.w, line)
	return err
}
