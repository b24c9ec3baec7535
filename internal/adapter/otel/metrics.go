package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "boardroom"

// Metrics holds all Boardroom metric instruments.
type Metrics struct {
	SessionsStarted   metric.Int64Counter
	SessionsCompleted metric.Int64Counter
	SessionsFailed    metric.Int64Counter
	Rounds            metric.Int64Counter
	Classifications   metric.Int64Counter
	TokensUsed        metric.Int64Counter
	SessionDuration   metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.SessionsStarted, err = meter.Int64Counter("boardroom.sessions.started",
		metric.WithDescription("Number of discussion sessions started"))
	if err != nil {
		return nil, err
	}

	m.SessionsCompleted, err = meter.Int64Counter("boardroom.sessions.completed",
		metric.WithDescription("Number of discussion sessions completed"))
	if err != nil {
		return nil, err
	}

	m.SessionsFailed, err = meter.Int64Counter("boardroom.sessions.failed",
		metric.WithDescription("Number of discussion sessions failed"))
	if err != nil {
		return nil, err
	}

	m.Rounds, err = meter.Int64Counter("boardroom.rounds",
		metric.WithDescription("Number of orchestration rounds run"))
	if err != nil {
		return nil, err
	}

	m.Classifications, err = meter.Int64Counter("boardroom.classifications",
		metric.WithDescription("Number of decision classifications, by level"))
	if err != nil {
		return nil, err
	}

	m.TokensUsed, err = meter.Int64Counter("boardroom.tokens.used",
		metric.WithDescription("Total provider tokens consumed"))
	if err != nil {
		return nil, err
	}

	m.SessionDuration, err = meter.Float64Histogram("boardroom.session.duration_seconds",
		metric.WithDescription("Discussion session duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
