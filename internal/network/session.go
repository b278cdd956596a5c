package network

import (
	"context"
	"log/slog"

	"cloudpico-station/internal/retry"
)

// Broker is the connection half of the MQTT client.
type Broker interface {
	IsConnected() bool
	Connect(ctx context.Context) error
}

// Session keeps the broker connected under an explicit retry policy.
type Session struct {
	broker Broker
	policy retry.Policy
	logger *slog.Logger
}

func NewSession(broker Broker, policy retry.Policy, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{broker: broker, policy: policy, logger: logger}
}

// Ensure returns once the broker reports connected. With an unbounded
// policy it only gives up when ctx is done.
func (s *Session) Ensure(ctx context.Context) error {
	if s.broker.IsConnected() {
		return nil
	}
	return retry.Do(ctx, s.logger, "mqtt connect", s.policy, func(ctx context.Context) error {
		s.logger.Info("attempting mqtt connection", "unbounded", s.policy.Unbounded())
		return s.broker.Connect(ctx)
	})
}
