package responder

import (
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/mini-maxit/judge-engine/internal/logger"
	"github.com/mini-maxit/judge-engine/internal/rabbitmq/channel"
	"github.com/mini-maxit/judge-engine/pkg/constants"
	"github.com/mini-maxit/judge-engine/pkg/errors"
	"github.com/mini-maxit/judge-engine/pkg/languages"
	"github.com/mini-maxit/judge-engine/pkg/messages"
)

type Responder interface {
	Publish(queueName string, msg amqp.Publishing) error
	PublishErrorToResponseQueue(
		messageType, messageID, responseQueue string,
		err error,
	)
	PublishSuccessHandshakeRespond(
		messageType, messageID, responseQueue string,
		languageSpecs []languages.LanguageSpec,
	) error
	PublishSuccessStatusRespond(
		messageType, messageID, responseQueue string,
		status messages.ResponseWorkerStatusPayload,
	) error
	PublishResult(event messages.ResultEvent) error
	Close() error
}

type publishRequest struct {
	queueName string
	msg       amqp.Publishing
	result    chan error
}

// responder funnels every publish through a single goroutine since an AMQP
// channel must not be used for publishing concurrently.
type responder struct {
	logger          *zap.SugaredLogger
	channel         channel.Channel
	resultQueueName string

	mu          sync.RWMutex
	closed      bool
	publishChan chan publishRequest
	done        chan struct{}
}

func NewResponder(ch channel.Channel, publishChanSize int, resultQueueName string) Responder {
	if publishChanSize <= 0 {
		publishChanSize = constants.DefaultRabbitmqPublishChanSize
	}
	r := &responder{
		logger:          logger.NewNamedLogger("responder"),
		channel:         ch,
		resultQueueName: resultQueueName,
		publishChan:     make(chan publishRequest, publishChanSize),
		done:            make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *responder) run() {
	defer close(r.done)
	for req := range r.publishChan {
		req.result <- r.channel.Publish("", req.queueName, false, false, req.msg)
	}
}

func (r *responder) Publish(queueName string, msg amqp.Publishing) error {
	result := make(chan error, 1)

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return errors.ErrResponderClosed
	}
	r.publishChan <- publishRequest{queueName: queueName, msg: msg, result: result}
	r.mu.RUnlock()

	return <-result
}

// Close stops accepting messages and waits until queued ones are published.
func (r *responder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.publishChan)
	r.mu.Unlock()

	<-r.done
	return nil
}

func (r *responder) PublishErrorToResponseQueue(messageType, messageID, responseQueue string, err error) {
	if responseQueue == "" {
		r.logger.Warnf("Dropping error reply without reply queue [MsgID: %s]: %s", messageID, err)
		return
	}

	errorPayload := map[string]string{"error": err.Error()}
	payload, jsonErr := json.Marshal(errorPayload)
	if jsonErr != nil {
		r.logger.Errorf("Failed to marshal error payload: %s", jsonErr)
		return
	}

	queueMessage := messages.ResponseQueueMessage{
		Type:      messageType,
		MessageID: messageID,
		Ok:        false,
		Payload:   payload,
	}

	responseJSON, jsonErr := json.Marshal(queueMessage)
	if jsonErr != nil {
		r.logger.Errorf("Failed to marshal response message: %s", jsonErr)
		return
	}

	err = r.Publish(responseQueue, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: messageID,
		Body:          responseJSON,
	})
	if err != nil {
		r.logger.Errorf("Failed to publish error message: %s", err)
		return
	}

	r.logger.Infof("Published error message to response queue: %s", messageID)
}

func (r *responder) PublishSuccessHandshakeRespond(
	messageType, messageID, responseQueue string,
	languageSpecs []languages.LanguageSpec,
) error {
	payload, err := json.Marshal(messages.ResponseHandshakePayload{Languages: languageSpecs})
	if err != nil {
		return err
	}
	return r.publishRespondMessage(messageType, messageID, responseQueue, payload)
}

func (r *responder) PublishSuccessStatusRespond(
	messageType, messageID, responseQueue string,
	status messages.ResponseWorkerStatusPayload,
) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return r.publishRespondMessage(messageType, messageID, responseQueue, payload)
}

// PublishResult emits a persistent result event for downstream consumers.
func (r *responder) PublishResult(event messages.ResultEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	body, err := json.Marshal(messages.ResponseQueueMessage{
		Type:      constants.QueueMessageTypeResult,
		MessageID: event.SubmissionID,
		Ok:        true,
		Payload:   payload,
	})
	if err != nil {
		return err
	}

	return r.Publish(r.resultQueueName, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		CorrelationId: event.SubmissionID,
		Timestamp:     time.Now(),
		Body:          body,
	})
}

func (r *responder) publishRespondMessage(messageType, messageID, responseQueue string, payload []byte) error {
	if responseQueue == "" {
		return errors.ErrNoReplyQueue
	}

	queueMessage := messages.ResponseQueueMessage{
		Type:      messageType,
		MessageID: messageID,
		Ok:        true,
		Payload:   payload,
	}

	responseJSON, err := json.Marshal(queueMessage)
	if err != nil {
		return err
	}

	r.logger.Infof("Publishing response message to response queue: %s", responseQueue)
	return r.Publish(responseQueue, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: messageID,
		Body:          responseJSON,
	})
}
