package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/carousell/ct-go/pkg/logger"
	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"github.com/carousell/ct-go/pkg/workerpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nguyentranbao-ct/chat-console/internal/config"
	"github.com/nguyentranbao-ct/chat-console/internal/models"
	"github.com/nguyentranbao-ct/chat-console/internal/usecase"
	"github.com/nguyentranbao-ct/chat-console/pkg/util"
)

// Consumer feeds gateway firehose events into the timeline through the same
// apply path as the socket channel. Deployments without a firehose leave it
// disabled.
type Consumer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type eventConsumer struct {
	reader         *kafka.Reader
	metrics        *prometheus.HistogramVec
	consumeTimeout time.Duration
	timeline       *usecase.TimelineUsecase
	done           chan struct{}
	workerPool     workerpool.Pool
}

func NewConsumer(
	cfg *config.Config,
	timeline *usecase.TimelineUsecase,
) (Consumer, error) {
	if !cfg.Kafka.Enabled {
		return &noopConsumer{}, nil
	}

	metrics, err := util.GetHistogramVec("firehose_events_consumed", "status", "topic", "group")
	if err != nil {
		return nil, fmt.Errorf("get histogram vec: %w", err)
	}

	readerConfig := kafka.ReaderConfig{
		Brokers:     cfg.Kafka.Brokers,
		Topic:       cfg.Kafka.Topic,
		GroupID:     cfg.Kafka.GroupID,
		StartOffset: kafka.LastOffset,
	}

	return &eventConsumer{
		reader:         kafka.NewReader(readerConfig),
		metrics:        metrics,
		consumeTimeout: 30 * time.Second,
		timeline:       timeline,
		done:           make(chan struct{}),
		workerPool:     workerpool.New(4),
	}, nil
}

func (c *eventConsumer) Start(ctx context.Context) error {
	log.Infof(ctx, "Starting firehose consumer for topic: %s", c.reader.Config().Topic)
	defer c.reader.Close()

	groupID := c.reader.Config().GroupID
	for ctx.Err() == nil {
		select {
		case <-c.done:
			return nil
		default:
		}

		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			log.Errorw(ctx, "Error reading message", "error", err)
			continue
		}

		c.workerPool.Run(func() {
			c.processMessage(ctx, msg, groupID)
		})
	}
	return nil
}

func (c *eventConsumer) Stop(ctx context.Context) error {
	log.Infof(ctx, "Stopping firehose consumer")
	close(c.done)
	c.workerPool.Close()
	c.workerPool.Wait()
	return c.reader.Close()
}

func (c *eventConsumer) processMessage(ctx context.Context, msg kafka.Message, groupID string) {
	start := time.Now()
	lagMs := start.Sub(msg.Time).Milliseconds()

	err := c.handle(ctx, msg)
	duration := time.Since(start)

	code := getCode(err)
	content := "success"
	if err != nil {
		content = err.Error()
	}

	log.Logw(ctx, getLogLevel(code), content,
		"code", code,
		"duration_ms", duration.Milliseconds(),
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"lag_ms", lagMs,
		"key", string(msg.Key),
	)

	c.metrics.
		WithLabelValues(code.String(), msg.Topic, groupID).
		Observe(duration.Seconds())
}

func (c *eventConsumer) handle(msgCtx context.Context, msg kafka.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PANIC RECOVER: %+v", r)
		}
	}()

	var event firehoseEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal firehose event: %w", err)
	}

	ctx, cancel := context.WithTimeout(msgCtx, c.consumeTimeout)
	defer cancel()

	switch event.Pattern {
	case patternMessageSent:
		var message models.Message
		if err := json.Unmarshal(event.Data.Message, &message); err != nil {
			return fmt.Errorf("failed to unmarshal firehose message: %w", err)
		}
		c.timeline.ApplyLiveMessage(ctx, event.Data.ChatID, message)
		return nil
	case patternDocumentProcessed:
		c.timeline.ApplyDocumentProcessed(ctx, event.Data.ChatID, event.Data.MessageID)
		return nil
	default:
		log.Infow(ctx, "Ignoring unhandled firehose pattern", "pattern", event.Pattern)
		return nil
	}
}

func getCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return codes.DeadlineExceeded
	}
	if errors.Is(err, context.Canceled) {
		return codes.Canceled
	}
	st, ok := status.FromError(err)
	if !ok {
		return status.Code(errors.Unwrap(err))
	}
	return st.Code()
}

func getLogLevel(code codes.Code) logger.Level {
	switch code {
	case codes.OK:
		return logger.InfoLevel
	case codes.Canceled,
		codes.InvalidArgument,
		codes.NotFound,
		codes.FailedPrecondition:
		return logger.WarnLevel
	default:
		return logger.ErrorLevel
	}
}

// noopConsumer is used when the firehose is disabled.
type noopConsumer struct{}

func (n *noopConsumer) Start(ctx context.Context) error {
	log.Infof(ctx, "Firehose consumer is disabled")
	return nil
}

func (n *noopConsumer) Stop(ctx context.Context) error {
	return nil
}
