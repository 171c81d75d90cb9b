package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"collab-chat-service/internal/mocks"
)

func TestAuditEmitterPublishesEnvelope(t *testing.T) {
	pub := new(mocks.PublisherMock)
	emitter := NewAuditEmitter(pub, "audit.chat", "collab-chat-service", "test")

	userID := int64(42)
	pub.On("Publish", mock.Anything, "audit.chat", mock.MatchedBy(func(event any) bool {
		env, ok := event.(AuditEnvelope)
		return ok &&
			env.EventType == "audit_log" &&
			env.Service == "collab-chat-service" &&
			env.RequestID == "req-1" &&
			env.UserID != nil && *env.UserID == 42 &&
			env.Payload.Level == "INFO" &&
			env.Payload.Text == "Message sent"
	})).Return(nil).Once()

	emitter.Emit(context.Background(), "INFO", "Message sent", "req-1", &userID)
	pub.AssertExpectations(t)
}

func TestAuditEmitterNilReceiverIsSafe(t *testing.T) {
	var emitter *AuditEmitter
	emitter.Emit(context.Background(), "INFO", "ignored", "req-1", nil)
}

func TestAuditEmitterPublishErrorIsSwallowed(t *testing.T) {
	pub := new(mocks.PublisherMock)
	emitter := NewAuditEmitter(pub, "audit.chat", "collab-chat-service", "test")

	pub.On("Publish", mock.Anything, "audit.chat", mock.Anything).Return(context.DeadlineExceeded).Once()
	emitter.Emit(context.Background(), "ERROR", "internal error", "req-2", nil)
	pub.AssertExpectations(t)
}
