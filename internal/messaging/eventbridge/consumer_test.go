package eventbridge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"dreamlog-backend/internal/domain/dream"
	"dreamlog-backend/internal/service/patterns"
	appErrors "dreamlog-backend/pkg/errors"
)

type mockAnalyzer struct{ mock.Mock }

func (m *mockAnalyzer) AnalyzeDreamForPatterns(ctx context.Context, req patterns.AnalyzeRequest) (patterns.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(patterns.Result), args.Error(1)
}

func dreamEvent(t *testing.T, detailType string, detail interface{}) lambdaevents.CloudWatchEvent {
	t.Helper()
	raw, err := json.Marshal(detail)
	assert.NoError(t, err)
	return lambdaevents.CloudWatchEvent{
		ID:         "evt-1",
		DetailType: detailType,
		Source:     "dreamlog.journal",
		Time:       at,
		Detail:     raw,
	}
}

func TestConsumer_AnalyzesDream(t *testing.T) {
	occurred := time.Date(2026, 6, 30, 4, 0, 0, 0, time.UTC)
	an := new(mockAnalyzer)
	an.On("AnalyzeDreamForPatterns", mock.Anything, patterns.AnalyzeRequest{
		UserID: "u1", DreamID: "d1", Text: "falling", Tier: dream.TierPremium, OccurredAt: occurred,
	}).Return(patterns.Result{Pattern: dream.NeutralPattern()}, nil).Once()

	c := NewConsumer(an, zap.NewNop())
	err := c.Handle(context.Background(), dreamEvent(t, DreamRecordedType, DreamRecorded{
		UserID: "u1", DreamID: "d1", Text: "falling", Tier: "premium", OccurredAt: occurred,
	}))
	assert.NoError(t, err)
	an.AssertExpectations(t)
}

func TestConsumer_DefaultsTimestampToEventTime(t *testing.T) {
	an := new(mockAnalyzer)
	an.On("AnalyzeDreamForPatterns", mock.Anything, mock.MatchedBy(func(req patterns.AnalyzeRequest) bool {
		return req.OccurredAt.Equal(at) && req.Tier == dream.TierFree
	})).Return(patterns.Result{}, nil).Once()

	err := NewConsumer(an, zap.NewNop()).Handle(context.Background(),
		dreamEvent(t, DreamRecordedType, map[string]string{"userId": "u1", "dreamId": "d1", "text": "x"}))
	assert.NoError(t, err)
	an.AssertExpectations(t)
}

func TestConsumer_AcknowledgesPoisonEvents(t *testing.T) {
	an := new(mockAnalyzer)
	an.On("AnalyzeDreamForPatterns", mock.Anything, mock.Anything).
		Return(patterns.Result{}, appErrors.NewValidation("user id and dream id are required"))
	c := NewConsumer(an, zap.NewNop())

	tests := []struct {
		name  string
		event lambdaevents.CloudWatchEvent
	}{
		{"other detail type", dreamEvent(t, "dream.deleted", DreamRecorded{UserID: "u1"})},
		{"undecodable detail", lambdaevents.CloudWatchEvent{DetailType: DreamRecordedType, Detail: json.RawMessage(`"nope"`)}},
		{"no text", dreamEvent(t, DreamRecordedType, DreamRecorded{UserID: "u1", DreamID: "d1"})},
		{"missing ids", dreamEvent(t, DreamRecordedType, DreamRecorded{Text: "x"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, c.Handle(context.Background(), tt.event))
		})
	}
	an.AssertNumberOfCalls(t, "AnalyzeDreamForPatterns", 1)
}

func TestConsumer_ReturnsUnexpectedErrors(t *testing.T) {
	an := new(mockAnalyzer)
	an.On("AnalyzeDreamForPatterns", mock.Anything, mock.Anything).Return(patterns.Result{}, assert.AnError)

	err := NewConsumer(an, zap.NewNop()).Handle(context.Background(),
		dreamEvent(t, DreamRecordedType, DreamRecorded{UserID: "u1", DreamID: "d1", Text: "x"}))
	assert.ErrorIs(t, err, assert.AnError)
}
