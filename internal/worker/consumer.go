package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/whisper-go/internal/worker/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// setupConsumer sets up RabbitMQ consumer with QoS and returns delivery channel
func (w *Worker) setupConsumer(ctx context.Context) (<-chan amqp.Delivery, error) {
	// Get the RabbitMQ channel
	channel := w.rabbitClient.GetChannel()
	if channel == nil {
		return nil, fmt.Errorf("rabbitmq channel is nil")
	}

	// Set QoS to control message prefetching
	// prefetch_size: 0 means no specific byte limit
	// global: false means per-consumer, not per-channel
	err := channel.Qos(
		w.prefetchCount, // prefetch count from config
		0,               // prefetch size
		false,           // global
	)

	if err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	w.logger.Info("RabbitMQ QoS configured",
		slog.Int("prefetch_count", w.prefetchCount),
	)

	// Create unique consumer tag using worker ID
	consumerTag := w.workerID

	// Start consuming messages from the queue
	// auto-ack: false (manual acknowledgment for reliability)
	// exclusive: false (allow multiple consumers)
	deliveries, err := w.rabbitClient.Consume(consumerTag)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("RabbitMQ consumer started",
		slog.String("consumer_tag", consumerTag),
		slog.String("worker_id", w.workerID),
		slog.String("queue", w.queueName),
	)

	return deliveries, nil
}

// startMessageDispatcher listens to RabbitMQ deliveries and dispatches extractions to the worker pool
func (w *Worker) startMessageDispatcher(ctx context.Context, deliveries <-chan amqp.Delivery) {
	w.logger.Info("Message dispatcher started",
		slog.String("worker_id", w.workerID),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopped - context canceled")
			return

		case <-w.stopChan:
			w.logger.Info("Message dispatcher stopped - worker stopping")
			return

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("Delivery channel closed, dispatcher stopping")
				return
			}

			var msg domain.ExtractionMessage
			if err := json.Unmarshal(delivery.Body, &msg); err != nil {
				w.logger.Error("Failed to decode extraction message - discarding",
					slog.String("error", err.Error()),
					slog.Uint64("delivery_tag", delivery.DeliveryTag),
				)
				// Malformed messages can never succeed; drop without requeue.
				if nackErr := delivery.Nack(false, false); nackErr != nil {
					w.logger.Error("Failed to NACK malformed message",
						slog.String("error", nackErr.Error()),
					)
				}
				continue
			}

			msg.DeliveryTag = delivery.DeliveryTag

			select {
			case w.jobsChan <- &msg:
				w.logger.Debug("Extraction dispatched to worker pool",
					slog.String("extraction_id", msg.ExtractionID),
					slog.Uint64("delivery_tag", msg.DeliveryTag),
				)
			case <-ctx.Done():
				w.logger.Info("Message dispatcher stopped while dispatching - context canceled")
				return
			case <-w.stopChan:
				w.logger.Info("Message dispatcher stopped while dispatching - worker stopping")
				return
			}
		}
	}
}
