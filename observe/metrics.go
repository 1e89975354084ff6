// Package observe provides the metric instruments for holoroom and the
// provider setup that exposes them to Prometheus.
//
// Metrics are recorded through the OpenTelemetry Metrics API. Tests should
// use [NewMetrics] with their own [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all holoroom metrics.
const meterName = "github.com/nathoo/holoroom"

// Metrics holds all metric instruments. All methods are safe for concurrent
// use and safe to call on a nil *Metrics.
type Metrics struct {
	// Commands counts command invocations. Attributes: room, outcome.
	Commands metric.Int64Counter

	// RoomSwitches counts group teleports. Attributes: group, room.
	RoomSwitches metric.Int64Counter

	// Sessions tracks open WebSocket sessions.
	Sessions metric.Int64UpDownCounter
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Commands, err = m.Int64Counter("holoroom.commands",
		metric.WithDescription("Room commands handled, by outcome."),
	); err != nil {
		return nil, err
	}
	if met.RoomSwitches, err = m.Int64Counter("holoroom.room_switches",
		metric.WithDescription("Group room switches."),
	); err != nil {
		return nil, err
	}
	if met.Sessions, err = m.Int64UpDownCounter("holoroom.sessions",
		metric.WithDescription("Open player sessions."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// Default returns metrics bound to the global meter provider. Call it after
// InitProvider.
func Default() (*Metrics, error) {
	return NewMetrics(otel.GetMeterProvider())
}

// ObserveCommand records one command outcome.
func (m *Metrics) ObserveCommand(room, outcome string) {
	if m == nil {
		return
	}
	m.Commands.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("room", room),
		attribute.String("outcome", outcome),
	))
}

// ObserveRoomSwitch records a group moving to room.
func (m *Metrics) ObserveRoomSwitch(group, room string) {
	if m == nil {
		return
	}
	m.RoomSwitches.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("group", group),
		attribute.String("room", room),
	))
}

// SessionOpened increments the open session count.
func (m *Metrics) SessionOpened(ctx context.Context) {
	if m != nil {
		m.Sessions.Add(ctx, 1)
	}
}

// SessionClosed decrements the open session count.
func (m *Metrics) SessionClosed(ctx context.Context) {
	if m != nil {
		m.Sessions.Add(ctx, -1)
	}
}
