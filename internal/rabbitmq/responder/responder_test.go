package responder_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/mock/gomock"

	"github.com/mini-maxit/judge-engine/tests/mocks"

	. "github.com/mini-maxit/judge-engine/internal/rabbitmq/responder"
	"github.com/mini-maxit/judge-engine/pkg/constants"
	pkgerrors "github.com/mini-maxit/judge-engine/pkg/errors"
	"github.com/mini-maxit/judge-engine/pkg/languages"
	"github.com/mini-maxit/judge-engine/pkg/messages"
	"github.com/mini-maxit/judge-engine/pkg/submission"
)

const resultQueue = "results-test"

func newResponder(t *testing.T, mockCh *mocks.MockChannel, size int) Responder {
	t.Helper()
	r := NewResponder(mockCh, size, resultQueue)
	t.Cleanup(func() {
		if err := r.Close(); err != nil {
			t.Fatalf("failed to close responder: %v", err)
		}
	})
	return r
}

func decode(t *testing.T, pub amqp.Publishing) messages.ResponseQueueMessage {
	t.Helper()
	var resp messages.ResponseQueueMessage
	if err := json.Unmarshal(pub.Body, &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return resp
}

func TestPublishErrorToResponseQueue(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCh := mocks.NewMockChannel(ctrl)
	r := newResponder(t, mockCh, 10)

	testErr := errors.New("some error")
	mockCh.EXPECT().Publish("", "resp-queue", false, false, gomock.AssignableToTypeOf(amqp.Publishing{})).Do(
		func(_ string, _ string, _ bool, _ bool, pub amqp.Publishing) {
			resp := decode(t, pub)
			if resp.Type != "task" || resp.MessageID != "mid-1" {
				t.Fatalf("unexpected envelope %+v", resp)
			}
			if resp.Ok {
				t.Fatalf("expected Ok=false for error response")
			}
			if pub.CorrelationId != "mid-1" {
				t.Fatalf("expected correlation id mid-1 got %s", pub.CorrelationId)
			}
			var payload map[string]string
			if err := json.Unmarshal(resp.Payload, &payload); err != nil {
				t.Fatalf("failed to unmarshal payload: %v", err)
			}
			if payload["error"] != testErr.Error() {
				t.Fatalf("expected payload error %s got %s", testErr.Error(), payload["error"])
			}
		}).Return(nil).Times(1)

	r.PublishErrorToResponseQueue("task", "mid-1", "resp-queue", testErr)
}

func TestPublishErrorWithoutReplyQueueIsDropped(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCh := mocks.NewMockChannel(ctrl)
	r := newResponder(t, mockCh, 10)

	mockCh.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	r.PublishErrorToResponseQueue("task", "mid-1", "", errors.New("x"))
}

func TestPublishRespondHelpers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCh := mocks.NewMockChannel(ctrl)
	r := newResponder(t, mockCh, 10)

	statusPayload := messages.ResponseWorkerStatusPayload{
		BusyWorkers:  1,
		TotalWorkers: 3,
		QueueLength:  5,
		WorkerStatus: []messages.WorkerStatus{{WorkerID: 1, Status: constants.WorkerStatusBusy, SubmissionID: "s1"}},
	}
	mockCh.EXPECT().Publish("", "status-queue", false, false, gomock.AssignableToTypeOf(amqp.Publishing{})).Do(
		func(_ string, _ string, _ bool, _ bool, pub amqp.Publishing) {
			resp := decode(t, pub)
			if !resp.Ok {
				t.Fatalf("expected Ok=true for status response")
			}
			var got struct {
				QueueLength  int `json:"queue_length"`
				WorkerStatus []struct {
					Status       string `json:"status"`
					SubmissionID string `json:"submission_id"`
				} `json:"worker_status"`
			}
			if err := json.Unmarshal(resp.Payload, &got); err != nil {
				t.Fatalf("failed to unmarshal payload: %v", err)
			}
			if got.QueueLength != 5 || got.WorkerStatus[0].Status != "busy" || got.WorkerStatus[0].SubmissionID != "s1" {
				t.Fatalf("unexpected status payload %+v", got)
			}
		}).Return(nil).Times(1)

	if err := r.PublishSuccessStatusRespond("status", "sid", "status-queue", statusPayload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mockCh.EXPECT().Publish("", "hs-queue", false, false, gomock.AssignableToTypeOf(amqp.Publishing{})).Do(
		func(_ string, _ string, _ bool, _ bool, pub amqp.Publishing) {
			resp := decode(t, pub)
			var wrapper messages.ResponseHandshakePayload
			if err := json.Unmarshal(resp.Payload, &wrapper); err != nil {
				t.Fatalf("failed to unmarshal handshake payload: %v", err)
			}
			if len(wrapper.Languages) == 0 {
				t.Fatalf("expected at least one language in handshake payload")
			}
		}).Return(nil).Times(1)

	if err := r.PublishSuccessHandshakeRespond("handshake", "hid", "hs-queue", languages.GetSupportedLanguageSpecs()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := r.PublishSuccessStatusRespond("status", "sid", "", statusPayload)
	if !errors.Is(err, pkgerrors.ErrNoReplyQueue) {
		t.Fatalf("expected ErrNoReplyQueue got %v", err)
	}
}

func TestPublishResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCh := mocks.NewMockChannel(ctrl)
	r := newResponder(t, mockCh, 10)

	finished := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	event := messages.ResultEvent{
		SubmissionID:    "sub-9",
		ProblemID:       "two-sum",
		UserID:          "u1",
		Status:          submission.PartiallyAccepted,
		Score:           33,
		TestCasesPassed: 1,
		TotalTestCases:  3,
		FinishedAt:      finished,
	}

	mockCh.EXPECT().Publish("", resultQueue, false, false, gomock.AssignableToTypeOf(amqp.Publishing{})).Do(
		func(_ string, _ string, _ bool, _ bool, pub amqp.Publishing) {
			if pub.DeliveryMode != amqp.Persistent {
				t.Fatalf("expected persistent delivery")
			}
			resp := decode(t, pub)
			if resp.Type != constants.QueueMessageTypeResult || resp.MessageID != "sub-9" {
				t.Fatalf("unexpected envelope %+v", resp)
			}
			var got messages.ResultEvent
			if err := json.Unmarshal(resp.Payload, &got); err != nil {
				t.Fatalf("failed to unmarshal event: %v", err)
			}
			if got.Status != submission.PartiallyAccepted || got.Score != 33 || !got.FinishedAt.Equal(finished) {
				t.Fatalf("unexpected event %+v", got)
			}
		}).Return(nil).Times(1)

	if err := r.PublishResult(event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPublish_ConcurrentHighLoad(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCh := mocks.NewMockChannel(ctrl)
	r := newResponder(t, mockCh, 1000)

	const n = 200

	var mu sync.Mutex
	inFlight := 0
	received := make(map[string]struct{})
	mockCh.EXPECT().Publish("", "q-heavy", false, false, gomock.AssignableToTypeOf(amqp.Publishing{})).Do(
		func(_ string, _ string, _ bool, _ bool, pub amqp.Publishing) {
			mu.Lock()
			inFlight++
			if inFlight > 1 {
				t.Errorf("channel used concurrently")
			}
			received[string(pub.Body)] = struct{}{}
			mu.Unlock()
			time.Sleep(100 * time.Microsecond)
			mu.Lock()
			inFlight--
			mu.Unlock()
		}).Return(nil).Times(n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := range n {
		go func(i int) {
			defer wg.Done()
			body := []byte(fmt.Sprintf("msg-%d", i))
			if err := r.Publish("q-heavy", amqp.Publishing{ContentType: "text/plain", Body: body}); err != nil {
				t.Errorf("Publish returned error: %v", err)
			}
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatalf("timed out waiting for concurrent publishes to finish")
	}

	if len(received) != n {
		t.Fatalf("expected %d published messages, got %d", n, len(received))
	}
}

func TestPublish_ReturnsChannelError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCh := mocks.NewMockChannel(ctrl)
	r := newResponder(t, mockCh, 10)

	expectedErr := errors.New("publish failed")
	mockCh.EXPECT().Publish(
		"", "err-q", false, false, gomock.AssignableToTypeOf(amqp.Publishing{}),
	).Return(expectedErr).Times(1)

	err := r.Publish("err-q", amqp.Publishing{Body: []byte("x")})
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected error %v got %v", expectedErr, err)
	}
}

func TestClose_PreventsPublish(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCh := mocks.NewMockChannel(ctrl)
	r := NewResponder(mockCh, 10, resultQueue)

	if err := r.Close(); err != nil {
		t.Fatalf("unexpected error on close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}

	err := r.Publish("any", amqp.Publishing{Body: []byte("x")})
	if !errors.Is(err, pkgerrors.ErrResponderClosed) {
		t.Fatalf("expected ErrResponderClosed got %v", err)
	}
	err = r.PublishResult(messages.ResultEvent{SubmissionID: "s"})
	if !errors.Is(err, pkgerrors.ErrResponderClosed) {
		t.Fatalf("expected ErrResponderClosed got %v", err)
	}
}
