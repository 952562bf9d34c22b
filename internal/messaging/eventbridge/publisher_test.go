package eventbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dreamlog-backend/internal/domain/events"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*eventbridge.PutEventsOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

var at = time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

func someEvents(n int) []events.Event {
	out := make([]events.Event, n)
	for i := range out {
		out[i] = events.NightmareRecorded("u1", fmt.Sprintf("d%d", i), at)
	}
	return out
}

func TestPublish_Batches(t *testing.T) {
	api := new(mockAPI)
	api.On("PutEvents", mock.Anything, mock.MatchedBy(func(in *eventbridge.PutEventsInput) bool {
		return len(in.Entries) == 10
	})).Return(&eventbridge.PutEventsOutput{}, nil).Twice()
	api.On("PutEvents", mock.Anything, mock.MatchedBy(func(in *eventbridge.PutEventsInput) bool {
		return len(in.Entries) == 3
	})).Return(&eventbridge.PutEventsOutput{}, nil).Once()

	require.NoError(t, NewPublisher(api, "", "", zap.NewNop()).Publish(context.Background(), someEvents(23)))
	api.AssertExpectations(t)
}

func TestPublish_EntryShape(t *testing.T) {
	api := new(mockAPI)
	var captured *eventbridge.PutEventsInput
	api.On("PutEvents", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*eventbridge.PutEventsInput) }).
		Return(&eventbridge.PutEventsOutput{}, nil)

	ev := events.CycleMatched("u1", "c1", "d9", 0.5, at)
	require.NoError(t, NewPublisher(api, "dreams", "", zap.NewNop()).Publish(context.Background(), []events.Event{ev}))

	require.Len(t, captured.Entries, 1)
	entry := captured.Entries[0]
	assert.Equal(t, "dreams", aws.ToString(entry.EventBusName))
	assert.Equal(t, DefaultSource, aws.ToString(entry.Source))
	assert.Equal(t, events.TypeCycleMatched, aws.ToString(entry.DetailType))

	var detail map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(entry.Detail)), &detail))
	assert.Equal(t, "c1", detail["aggregate_id"])
	assert.Equal(t, "u1", detail["user_id"])
}

func TestPublish_FailedEntries(t *testing.T) {
	api := new(mockAPI)
	api.On("PutEvents", mock.Anything, mock.Anything).Return(&eventbridge.PutEventsOutput{
		FailedEntryCount: 1,
		Entries: []types.PutEventsResultEntry{
			{EventId: aws.String("ok")},
			{ErrorCode: aws.String("ThrottlingException"), ErrorMessage: aws.String("slow down")},
		},
	}, nil)

	err := NewPublisher(api, "", "", zap.NewNop()).Publish(context.Background(), someEvents(2))
	assert.ErrorContains(t, err, "1 events failed")
}

func TestPublish_ClientError(t *testing.T) {
	api := new(mockAPI)
	api.On("PutEvents", mock.Anything, mock.Anything).Return(nil, errors.New("no route")).Once()

	err := NewPublisher(api, "", "", zap.NewNop()).Publish(context.Background(), someEvents(15))
	assert.Error(t, err)
	api.AssertNumberOfCalls(t, "PutEvents", 1)
}

func TestPublish_NothingToSend(t *testing.T) {
	api := new(mockAPI)
	require.NoError(t, NewPublisher(api, "", "", zap.NewNop()).Publish(context.Background(), nil))
	api.AssertNotCalled(t, "PutEvents", mock.Anything, mock.Anything)
}
