package publishers

import (
	"context"
	"errors"
	"fmt"
)

// Delivery summarizes how one run event fared across the configured
// sinks. Failed maps publisher id to the error that sink returned.
type Delivery struct {
	RunID     string
	Attempted int
	Delivered int
	Failed    map[string]error
}

// Err joins the per-sink failures into one error, nil when all delivered.
func (d Delivery) Err() error {
	if len(d.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(d.Failed))
	for id, err := range d.Failed {
		errs = append(errs, fmt.Errorf("publisher %s: %w", id, err))
	}
	return errors.Join(errs...)
}

// Fanout hands each run event to every configured sink. A failing sink
// never prevents delivery to the others.
type Fanout struct {
	sinks []Publisher
}

// NewFanout builds a fanout over the given sinks, dropping nil entries.
func NewFanout(sinks []Publisher) *Fanout {
	active := make([]Publisher, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			active = append(active, sink)
		}
	}
	return &Fanout{sinks: active}
}

// Publish delivers evt to every sink and reports the per-publisher outcome.
func (f *Fanout) Publish(ctx context.Context, evt Event) Delivery {
	delivery := Delivery{RunID: evt.RunID}
	if f == nil {
		return delivery
	}

	for _, sink := range f.sinks {
		delivery.Attempted++
		if err := sink.Publish(ctx, evt); err != nil {
			if delivery.Failed == nil {
				delivery.Failed = make(map[string]error)
			}
			delivery.Failed[sink.ID()] = err
			continue
		}
		delivery.Delivered++
	}
	return delivery
}

// Size returns the number of active sinks.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.sinks)
}
