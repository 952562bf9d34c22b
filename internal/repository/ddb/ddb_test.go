package ddb

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dreamlog-backend/internal/domain/cycle"
	"dreamlog-backend/internal/domain/dream"
	"dreamlog-backend/internal/domain/nightmare"
	"dreamlog-backend/internal/domain/stats"
	"dreamlog-backend/internal/repository"
	appErrors "dreamlog-backend/pkg/errors"
)

type mockDB struct {
	mock.Mock
}

func (m *mockDB) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}

func (m *mockDB) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.PutItemOutput)
	return out, args.Error(1)
}

func (m *mockDB) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.UpdateItemOutput)
	return out, args.Error(1)
}

func (m *mockDB) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.QueryOutput)
	return out, args.Error(1)
}

func (m *mockDB) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.TransactWriteItemsOutput)
	return out, args.Error(1)
}

const table = "dreams"

var ts0 = time.Date(2026, 5, 1, 4, 0, 0, 0, time.UTC)

func marshal(t *testing.T, v interface{}) map[string]types.AttributeValue {
	t.Helper()
	item, err := attributevalue.MarshalMap(v)
	require.NoError(t, err)
	return item
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
}

func TestSortableKeysOrderChronologically(t *testing.T) {
	a := eventSK(ts0, "x")
	b := eventSK(ts0.Add(500*time.Millisecond), "x")
	c := eventSK(ts0.Add(time.Second), "x")
	assert.Less(t, a, b)
	assert.Less(t, b, c)
	assert.True(t, strings.HasPrefix(defSK(ts0, "c1"), defSKPrefix))
}

func TestThemeStore_CreateConflict(t *testing.T) {
	db := new(mockDB)
	s := NewThemeStore(db, table, 100, zap.NewNop())

	db.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		return aws.ToString(in.TableName) == table &&
			strings.Contains(aws.ToString(in.ConditionExpression), "attribute_not_exists")
	})).Return(nil, conditionFailed()).Once()

	err := s.CreateTheme(context.Background(), dream.ThemeCounter{UserID: "u1", Theme: "falling", Count: 1, LastOccurred: ts0})
	assert.True(t, appErrors.IsConflict(err))
	db.AssertExpectations(t)
}

func TestThemeStore_Increment(t *testing.T) {
	db := new(mockDB)
	s := NewThemeStore(db, table, 100, zap.NewNop())

	db.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		pk := in.Key["PK"].(*types.AttributeValueMemberS).Value
		sk := in.Key["SK"].(*types.AttributeValueMemberS).Value
		return pk == "USER#u1" && sk == "THEME#falling" &&
			strings.Contains(aws.ToString(in.UpdateExpression), "ADD") &&
			strings.Contains(aws.ToString(in.ConditionExpression), "attribute_exists")
	})).Return(&dynamodb.UpdateItemOutput{}, nil).Once()

	require.NoError(t, s.IncrementTheme(context.Background(), "u1", "falling", ts0))
	db.AssertExpectations(t)
}

func TestThemeStore_GetMissingAndList(t *testing.T) {
	db := new(mockDB)
	s := NewThemeStore(db, table, 100, zap.NewNop())
	ctx := context.Background()

	db.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil).Once()
	_, ok, err := s.GetTheme(ctx, "u1", "falling")
	require.NoError(t, err)
	assert.False(t, ok)

	page1 := &dynamodb.QueryOutput{
		Items:            []map[string]types.AttributeValue{marshal(t, ddbTheme{PK: "USER#u1", SK: "THEME#a", UserID: "u1", Theme: "a", Count: 2, LastOccurred: ts0})},
		LastEvaluatedKey: key("USER#u1", "THEME#a"),
	}
	page2 := &dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{marshal(t, ddbTheme{PK: "USER#u1", SK: "THEME#b", UserID: "u1", Theme: "b", Count: 1, LastOccurred: ts0})},
	}
	db.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool { return in.ExclusiveStartKey == nil })).Return(page1, nil).Once()
	db.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool { return in.ExclusiveStartKey != nil })).Return(page2, nil).Once()

	list, err := s.ListThemes(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Theme)
	assert.Equal(t, 2, list[0].Count)
	db.AssertExpectations(t)
}

func TestNightmareStore_RecordIsIdempotent(t *testing.T) {
	db := new(mockDB)
	s := NewNightmareStore(db, table, 100, zap.NewNop())
	o := nightmare.Occurrence{DreamID: "d1", Timestamp: ts0, Themes: []string{"falling"}, Emotions: []string{"fear"}}

	db.On("TransactWriteItems", mock.Anything, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
		return len(in.TransactItems) == 3
	})).Return(&dynamodb.TransactWriteItemsOutput{}, nil).Once()
	db.On("TransactWriteItems", mock.Anything, mock.Anything).Return(nil, &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{{Code: aws.String("ConditionalCheckFailed")}, {Code: aws.String("None")}, {Code: aws.String("None")}},
	}).Once()

	recorded, err := s.RecordOccurrence(context.Background(), "u1", o)
	require.NoError(t, err)
	assert.True(t, recorded)

	recorded, err = s.RecordOccurrence(context.Background(), "u1", o)
	require.NoError(t, err)
	assert.False(t, recorded)
}

func TestNightmareStore_RecordAddsTalliesInSameTransaction(t *testing.T) {
	db := new(mockDB)
	s := NewNightmareStore(db, table, 100, zap.NewNop())

	db.On("TransactWriteItems", mock.Anything, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
		if len(in.TransactItems) != 3 || in.TransactItems[0].Put == nil || in.TransactItems[1].Put == nil {
			return false
		}
		up := in.TransactItems[2].Update
		if up == nil {
			return false
		}
		names := map[string]bool{}
		for _, n := range up.ExpressionAttributeNames {
			names[n] = true
		}
		sk, ok := up.Key["SK"].(*types.AttributeValueMemberS)
		return ok && sk.Value == summarySK &&
			strings.Contains(aws.ToString(up.UpdateExpression), "ADD") &&
			names["THEME#falling"] && names["EMOTION#fear"]
	})).Return(&dynamodb.TransactWriteItemsOutput{}, nil).Once()

	recorded, err := s.RecordOccurrence(context.Background(), "u1", nightmare.Occurrence{
		DreamID: "d1", Timestamp: ts0, Themes: []string{"falling"}, Emotions: []string{"fear"},
	})
	require.NoError(t, err)
	assert.True(t, recorded)
	db.AssertExpectations(t)
	db.AssertNotCalled(t, "UpdateItem", mock.Anything, mock.Anything)
}

func TestNightmareStore_RecordFailureWritesNothing(t *testing.T) {
	db := new(mockDB)
	s := NewNightmareStore(db, table, 100, zap.NewNop())
	db.On("TransactWriteItems", mock.Anything, mock.Anything).
		Return(nil, &types.ProvisionedThroughputExceededException{Message: aws.String("slow down")}).Once()

	recorded, err := s.RecordOccurrence(context.Background(), "u1", nightmare.Occurrence{DreamID: "d1", Timestamp: ts0})
	require.Error(t, err)
	assert.False(t, recorded)
	assert.True(t, appErrors.IsPersistenceFailure(err))
	db.AssertNumberOfCalls(t, "TransactWriteItems", 1)
}

func TestNightmareStore_LoadHistory(t *testing.T) {
	db := new(mockDB)
	s := NewNightmareStore(db, table, 100, zap.NewNop())

	events := []map[string]types.AttributeValue{
		marshal(t, ddbNightmareEvent{PK: "NIGHTMARE#u1", SK: eventSK(ts0, "d1"), DreamID: "d1", Timestamp: ts0, Themes: []string{"falling"}}),
		marshal(t, ddbNightmareEvent{PK: "NIGHTMARE#u1", SK: eventSK(ts0.AddDate(0, 0, 7), "d2"), DreamID: "d2", Timestamp: ts0.AddDate(0, 0, 7), Themes: []string{"falling"}}),
	}
	db.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{Items: events}, nil).Once()

	ca := stats.CycleStatistics{Status: stats.StatusInsufficient}
	caAV, err := attributevalue.Marshal(ca)
	require.NoError(t, err)
	summary := map[string]types.AttributeValue{
		"PK":            &types.AttributeValueMemberS{Value: "NIGHTMARE#u1"},
		"SK":            &types.AttributeValueMemberS{Value: summarySK},
		"THEME#falling": &types.AttributeValueMemberN{Value: "2"},
		"EMOTION#fear":  &types.AttributeValueMemberN{Value: "1"},
		"CycleAnalysis": caAV,
		"UpdatedAt":     &types.AttributeValueMemberS{Value: ts0.Format(time.RFC3339Nano)},
	}
	db.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{Item: summary}, nil).Once()

	h, err := s.LoadHistory(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, h.Occurrences, 2)
	assert.Equal(t, "d1", h.Occurrences[0].DreamID)
	assert.Equal(t, 2, h.Summary.ThemeCounts["falling"])
	assert.Equal(t, 1, h.Summary.EmotionCounts["fear"])
	require.NotNil(t, h.Summary.CycleAnalysis)
	assert.Equal(t, stats.StatusInsufficient, h.Summary.CycleAnalysis.Status)
}

func TestNightmareStore_QueryFailure(t *testing.T) {
	db := new(mockDB)
	s := NewNightmareStore(db, table, 100, zap.NewNop())
	db.On("Query", mock.Anything, mock.Anything).Return(nil, assert.AnError).Once()

	_, err := s.ListTimestamps(context.Background(), "u1")
	assert.True(t, appErrors.IsPersistenceFailure(err))
}

func TestCycleStore_ListCyclesAssemblesInStoredOrder(t *testing.T) {
	db := new(mockDB)
	s := NewCycleStore(db, table, 100, zap.NewNop())

	stable := &cycle.Evolution{Stability: cycle.StabilityStable, NewElements: []string{}, DroppedElements: []string{}}
	items := []map[string]types.AttributeValue{
		marshal(t, ddbCycleDef{PK: "CYCLE#u1", SK: defSK(ts0, "c1"), CycleID: "c1", CreatedAt: ts0, FirstOccurrence: ts0, CommonElements: []string{"water", "boat"}, Evolution: stable}),
		marshal(t, ddbCycleDef{PK: "CYCLE#u1", SK: defSK(ts0.Add(time.Hour), "c2"), CycleID: "c2", CreatedAt: ts0.Add(time.Hour), FirstOccurrence: ts0, CommonElements: []string{"fire"}}),
		marshal(t, ddbDreamMarker{PK: "CYCLE#u1", SK: dreamSK("d1"), CycleID: "c1"}),
		marshal(t, ddbCycleOcc{PK: "CYCLE#u1", SK: occSK("c1", ts0, "d1"), CycleID: "c1", DreamID: "d1", Timestamp: ts0, Themes: []string{"water"}}),
		marshal(t, ddbCycleOcc{PK: "CYCLE#u1", SK: occSK("c1", ts0.AddDate(0, 0, 2), "d3"), CycleID: "c1", DreamID: "d3", Timestamp: ts0.AddDate(0, 0, 2), Themes: []string{"water"}}),
		marshal(t, ddbCycleOcc{PK: "CYCLE#u1", SK: occSK("c2", ts0, "d2"), CycleID: "c2", DreamID: "d2", Timestamp: ts0}),
		marshal(t, ddbCycleOcc{PK: "CYCLE#u1", SK: occSK("gone", ts0, "d9"), CycleID: "gone", DreamID: "d9", Timestamp: ts0}),
	}
	db.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{Items: items}, nil).Once()

	cycles, err := s.ListCycles(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, cycles, 2)
	assert.Equal(t, "c1", cycles[0].ID)
	assert.Equal(t, []string{"water", "boat"}, cycles[0].CommonElements)
	assert.Len(t, cycles[0].Occurrences, 2)
	require.NotNil(t, cycles[0].Evolution)
	assert.Equal(t, cycle.StabilityStable, cycles[0].Evolution.Stability)
	assert.Equal(t, "c2", cycles[1].ID)
	assert.Len(t, cycles[1].Occurrences, 1)
}

func TestCycleStore_CreateWritesDefinitionMarkerAndOccurrence(t *testing.T) {
	db := new(mockDB)
	s := NewCycleStore(db, table, 100, zap.NewNop())
	c := cycle.New("c1", "u1", []string{"water"}, cycle.Occurrence{DreamID: "d1", Timestamp: ts0}, ts0)

	db.On("TransactWriteItems", mock.Anything, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
		if len(in.TransactItems) != 3 {
			return false
		}
		def := in.TransactItems[0].Put.Item["SK"].(*types.AttributeValueMemberS).Value
		return strings.HasPrefix(def, defSKPrefix)
	})).Return(&dynamodb.TransactWriteItemsOutput{}, nil).Once()

	require.NoError(t, s.CreateCycle(context.Background(), c))
	db.AssertExpectations(t)

	err := s.CreateCycle(context.Background(), cycle.Cycle{ID: "empty", UserID: "u1"})
	assert.True(t, appErrors.IsValidation(err))
}

func TestSettingsStore(t *testing.T) {
	db := new(mockDB)
	s := NewSettingsStore(db, table)
	ctx := context.Background()

	db.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil).Once()
	got, err := s.GetSettings(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, dream.Settings{}, got)

	stored := marshal(t, ddbSettings{PK: "USER#u1", SK: settingsSK, Settings: dream.Settings{TrackNightmares: true}})
	assert.Contains(t, stored, "TrackNightmares")
	db.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{Item: stored}, nil).Once()
	got, err = s.GetSettings(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.TrackNightmares)
	assert.False(t, got.TrackRecurringDreams)
}

func TestNewStores_ValidatesConfig(t *testing.T) {
	_, err := NewStores(new(mockDB), repository.Config{}, zap.NewNop())
	assert.Error(t, err)

	stores, err := NewStores(new(mockDB), repository.NewConfig(table), zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, stores.Cycles)
}
