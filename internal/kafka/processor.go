// Package kafka consumes sync requests from Kafka and hands them to the sync service.
package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"go.uber.org/zap"

	"github.com/ortelius/pdvd-cvesync/events/modules/cvesync"
	"github.com/ortelius/pdvd-cvesync/internal/ingest"
)

// Options configures the broker connection
type Options struct {
	Brokers  []string
	Username string
	Password string
	Topic    string
	GroupID  string
}

// NewDialer returns a dialer using SASL/PLAIN over TLS when credentials are set,
// and a plain dialer for local brokers otherwise
func NewDialer(username, password string) *kafka.Dialer {
	if username != "" && password != "" {
		return &kafka.Dialer{
			Timeout:   10 * time.Second,
			DualStack: true,
			SASLMechanism: plain.Mechanism{
				Username: username,
				Password: password,
			},
			TLS: &tls.Config{MinVersion: tls.VersionTLS12},
		}
	}
	return &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
}

// NewTransport is the producer-side counterpart of NewDialer
func NewTransport(username, password string) *kafka.Transport {
	if username != "" && password != "" {
		return &kafka.Transport{
			SASL: plain.Mechanism{
				Username: username,
				Password: password,
			},
			TLS: &tls.Config{MinVersion: tls.VersionTLS12},
		}
	}
	return &kafka.Transport{}
}

// RunSyncRequestProcessor checks that the first broker is reachable, then starts a
// goroutine that reads sync requests until ctx is cancelled
func RunSyncRequestProcessor(ctx context.Context, opts Options, trigger cvesync.SyncTrigger, logger *zap.Logger) error {
	if len(opts.Brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}

	dialer := NewDialer(opts.Username, opts.Password)

	var err error
	for i := 1; i <= 3; i++ {
		logger.Info("Kafka connection attempt", zap.Int("attempt", i), zap.Int("max_attempts", 3))
		var conn *kafka.Conn
		conn, err = dialer.DialContext(ctx, "tcp", opts.Brokers[0])
		if err == nil {
			conn.Close()
			break
		}
		if i < 3 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		return err
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  opts.Brokers,
		GroupID:  opts.GroupID,
		Topic:    opts.Topic,
		MaxBytes: 10e6,
		Dialer:   dialer,
	})

	go func() {
		defer reader.Close()

		logger.Info("Kafka sync request processor started", zap.String("topic", opts.Topic))

		for {
			msg, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("Failed to read sync request", zap.Error(err))
				continue
			}
			process(ctx, msg.Value, trigger, logger)
		}
	}()

	return nil
}

func process(ctx context.Context, value []byte, trigger cvesync.SyncTrigger, logger *zap.Logger) {
	summary, err := cvesync.HandleSyncRequested(ctx, value, trigger)
	switch {
	case err == nil:
		logger.Info("Sync request processed",
			zap.String("mode", string(summary.Mode)),
			zap.Int("processed", summary.Processed))
	case errors.Is(err, ingest.ErrSyncInProgress):
		// already logged by the service
	case errors.Is(err, cvesync.ErrInvalidEvent):
		logger.Warn("Dropping malformed sync request", zap.Error(err))
	default:
		logger.Error("Sync request failed", zap.Error(err))
	}
}
