package camera

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ThirdPersonSW2/extension/pkg/core"
)

const instrumentationName = "github.com/ThirdPersonSW2/extension/internal/camera"

type metrics struct {
	activations   metric.Int64Counter
	endings       metric.Int64Counter
	spawnFailures metric.Int64Counter
	active        metric.Int64ObservableGauge
	registration  metric.Registration
}

// newMetrics registers the camera instruments on the global meter
// (no-op if not configured).
func newMetrics(s *Service) (*metrics, error) {
	m := otel.Meter(instrumentationName)
	out := &metrics{}

	var err error
	out.activations, err = m.Int64Counter(
		"camera.activations",
		metric.WithDescription("Camera sessions started"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating activations counter: %w", err)
	}

	out.endings, err = m.Int64Counter(
		"camera.endings",
		metric.WithDescription("Camera sessions ended, by reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating endings counter: %w", err)
	}

	out.spawnFailures, err = m.Int64Counter(
		"camera.spawn.failures",
		metric.WithDescription("Camera entities the host failed to create"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating spawn failure counter: %w", err)
	}

	out.active, err = m.Int64ObservableGauge(
		"camera.sessions.active",
		metric.WithDescription("Current number of camera sessions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating active sessions gauge: %w", err)
	}

	out.registration, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			snapped, smoothed := s.Counts()
			o.ObserveInt64(out.active, int64(snapped), metric.WithAttributes(modeAttr(core.Snapped)))
			o.ObserveInt64(out.active, int64(smoothed), metric.WithAttributes(modeAttr(core.Smoothed)))
			return nil
		},
		out.active,
	)
	if err != nil {
		return nil, fmt.Errorf("registering sessions callback: %w", err)
	}

	return out, nil
}

// unregister detaches the gauge callback so the meter no longer holds the
// service. Safe to call more than once.
func (m *metrics) unregister() error {
	if m.registration == nil {
		return nil
	}
	err := m.registration.Unregister()
	m.registration = nil
	return err
}

func (m *metrics) activated(mode core.Mode) {
	m.activations.Add(context.Background(), 1, metric.WithAttributes(modeAttr(mode)))
}

func (m *metrics) ended(mode core.Mode, reason core.EndReason) {
	m.endings.Add(context.Background(), 1, metric.WithAttributes(
		modeAttr(mode),
		attribute.String("reason", string(reason)),
	))
}

func (m *metrics) spawnFailed(mode core.Mode) {
	m.spawnFailures.Add(context.Background(), 1, metric.WithAttributes(modeAttr(mode)))
}

func modeAttr(mode core.Mode) attribute.KeyValue {
	return attribute.String("mode", mode.String())
}
