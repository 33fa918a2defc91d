package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/mini-maxit/judge-engine/internal/logger"
	"github.com/mini-maxit/judge-engine/internal/queue"
	"github.com/mini-maxit/judge-engine/internal/rabbitmq/channel"
	"github.com/mini-maxit/judge-engine/internal/rabbitmq/responder"
	"github.com/mini-maxit/judge-engine/internal/scheduler"
	"github.com/mini-maxit/judge-engine/pkg/constants"
	"github.com/mini-maxit/judge-engine/pkg/errors"
	"github.com/mini-maxit/judge-engine/pkg/languages"
	"github.com/mini-maxit/judge-engine/pkg/messages"
)

type Consumer interface {
	Listen(ctx context.Context) error
}

type consumer struct {
	channel         channel.Channel
	workerQueueName string
	queue           queue.Queue
	scheduler       scheduler.Scheduler
	responder       responder.Responder
	validator       *validator.Validate
	logger          *zap.SugaredLogger
}

func NewConsumer(
	mainChannel channel.Channel,
	workerQueueName string,
	queue queue.Queue,
	scheduler scheduler.Scheduler,
	responder responder.Responder,
) Consumer {
	logger := logger.NewNamedLogger("consumer")

	return &consumer{
		channel:         mainChannel,
		workerQueueName: workerQueueName,
		queue:           queue,
		scheduler:       scheduler,
		responder:       responder,
		validator:       validator.New(),
		logger:          logger,
	}
}

// Listen declares the worker queue and handles deliveries until ctx is done
// or the delivery channel is closed by the broker.
func (c *consumer) Listen(ctx context.Context) error {
	c.logger.Infof("Declaring queue %s", c.workerQueueName)
	if err := channel.DeclareDurableQueue(c.channel, c.workerQueueName, constants.RabbitMQMaxPriority); err != nil {
		return fmt.Errorf("declare queue %s: %w", c.workerQueueName, err)
	}

	msgs, err := c.channel.Consume(c.workerQueueName, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume from %s: %w", c.workerQueueName, err)
	}
	c.logger.Infof("Listening for messages on queue %s", c.workerQueueName)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel of %s closed", c.workerQueueName)
			}
			c.processMessage(msg)
		}
	}
}

func (c *consumer) processMessage(msg amqp.Delivery) {
	var queueMessage messages.QueueMessage
	if err := json.Unmarshal(msg.Body, &queueMessage); err != nil {
		c.logger.Errorf("Failed to unmarshal message: %s", err)
		c.responder.PublishErrorToResponseQueue(queueMessage.Type, queueMessage.MessageID, msg.ReplyTo, err)
		return
	}

	if err := c.validator.Struct(queueMessage); err != nil {
		c.logger.Errorf("Invalid message %s: %s", queueMessage.MessageID, err)
		if queueMessage.Type != "" && !isKnownType(queueMessage.Type) {
			err = fmt.Errorf("%w: %s", errors.ErrUnknownMessageType, queueMessage.Type)
		}
		c.responder.PublishErrorToResponseQueue(queueMessage.Type, queueMessage.MessageID, msg.ReplyTo, err)
		return
	}

	switch queueMessage.Type {
	case constants.QueueMessageTypeTask:
		c.logger.Infof("Received task message: %s", queueMessage.MessageID)
		c.handleTaskMessage(queueMessage, msg.ReplyTo)
	case constants.QueueMessageTypeStatus:
		c.logger.Infof("Received status message: %s", queueMessage.MessageID)
		c.handleStatusMessage(queueMessage, msg.ReplyTo)
	case constants.QueueMessageTypeHandshake:
		c.logger.Infof("Received handshake message: %s", queueMessage.MessageID)
		c.handleHandshakeMessage(queueMessage, msg.ReplyTo)
	}
}

func isKnownType(messageType string) bool {
	switch messageType {
	case constants.QueueMessageTypeTask, constants.QueueMessageTypeStatus, constants.QueueMessageTypeHandshake:
		return true
	default:
		return false
	}
}

// handleTaskMessage only enqueues the submission; its outcome is reported
// through the stored record and the result event.
func (c *consumer) handleTaskMessage(queueMessage messages.QueueMessage, replyTo string) {
	var task messages.TaskQueueMessage
	if err := json.Unmarshal(queueMessage.Payload, &task); err != nil {
		c.logger.Errorf("Failed to unmarshal task message: %s", err)
		c.responder.PublishErrorToResponseQueue(queueMessage.Type, queueMessage.MessageID, replyTo, err)
		return
	}
	if err := c.validator.Struct(task); err != nil {
		c.logger.Errorf("Invalid task message %s: %s", queueMessage.MessageID, err)
		c.responder.PublishErrorToResponseQueue(queueMessage.Type, queueMessage.MessageID, replyTo, err)
		return
	}

	if err := c.queue.Enqueue(task.SubmissionID); err != nil {
		c.logger.Errorf("Failed to enqueue submission: %s [SubmissionID: %s]", err, task.SubmissionID)
		c.responder.PublishErrorToResponseQueue(queueMessage.Type, queueMessage.MessageID, replyTo, err)
		return
	}
	c.logger.Infof("Enqueued submission [SubmissionID: %s]", task.SubmissionID)
}

func (c *consumer) handleStatusMessage(queueMessage messages.QueueMessage, replyTo string) {
	status := c.scheduler.GetWorkersStatus()

	err := c.responder.PublishSuccessStatusRespond(queueMessage.Type, queueMessage.MessageID, replyTo, status)
	if err != nil {
		c.logger.Errorf("Failed to publish status message: %s", err)
		c.responder.PublishErrorToResponseQueue(queueMessage.Type, queueMessage.MessageID, replyTo, err)
	}
}

func (c *consumer) handleHandshakeMessage(queueMessage messages.QueueMessage, replyTo string) {
	specs := languages.GetSupportedLanguageSpecs()

	err := c.responder.PublishSuccessHandshakeRespond(queueMessage.Type, queueMessage.MessageID, replyTo, specs)
	if err != nil {
		c.logger.Errorf("Failed to publish supported languages: %s", err)
		c.responder.PublishErrorToResponseQueue(queueMessage.Type, queueMessage.MessageID, replyTo, err)
	}
}
