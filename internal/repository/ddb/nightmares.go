package ddb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"dreamlog-backend/internal/domain/nightmare"
	"dreamlog-backend/internal/domain/stats"
	"dreamlog-backend/internal/repository"
	appErrors "dreamlog-backend/pkg/errors"
)

// ddbNightmareEvent is one entry of the append-only nightmare log.
type ddbNightmareEvent struct {
	PK        string    `dynamodbav:"PK"`
	SK        string    `dynamodbav:"SK"`
	DreamID   string    `dynamodbav:"DreamID"`
	Timestamp time.Time `dynamodbav:"Timestamp"`
	Themes    []string  `dynamodbav:"Themes"`
	Emotions  []string  `dynamodbav:"Emotions"`
}

// ddbDreamMarker claims a dream id inside a partition so an occurrence is recorded once.
type ddbDreamMarker struct {
	PK      string `dynamodbav:"PK"`
	SK      string `dynamodbav:"SK"`
	EventSK string `dynamodbav:"EventSK,omitempty"`
	CycleID string `dynamodbav:"CycleID,omitempty"`
}

// NightmareStore implements the nightmare ledger as an event log plus a SUMMARY item whose
// tallies are updated with atomic ADD. No write ever rewrites the whole ledger.
type NightmareStore struct {
	client    DynamoDBAPI
	tableName string
	pageSize  int32
	logger    *zap.Logger
}

var _ repository.NightmareStore = (*NightmareStore)(nil)

// NewNightmareStore creates a NightmareStore on tableName.
func NewNightmareStore(client DynamoDBAPI, tableName string, pageSize int32, logger *zap.Logger) *NightmareStore {
	return &NightmareStore{client: client, tableName: tableName, pageSize: pageSize, logger: logger}
}

// RecordOccurrence implements repository.NightmareStore. The per-dream marker, the event and the
// SUMMARY tally increments go into one transaction, so a failed write leaves nothing behind and a
// replay of the same dream starts clean. The marker and event are conditioned on not existing.
func (s *NightmareStore) RecordOccurrence(ctx context.Context, userID string, o nightmare.Occurrence) (bool, error) {
	pk := nightmarePK(userID)
	sk := eventSK(o.Timestamp, o.DreamID)

	eventItem, err := attributevalue.MarshalMap(ddbNightmareEvent{
		PK: pk, SK: sk, DreamID: o.DreamID, Timestamp: o.Timestamp.UTC(),
		Themes: o.Themes, Emotions: o.Emotions,
	})
	if err != nil {
		return false, appErrors.NewInternal("failed to marshal nightmare event", err)
	}
	markerItem, err := attributevalue.MarshalMap(ddbDreamMarker{PK: pk, SK: dreamSK(o.DreamID), EventSK: sk})
	if err != nil {
		return false, appErrors.NewInternal("failed to marshal dream marker", err)
	}

	cond, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name("SK"))).
		Build()
	if err != nil {
		return false, appErrors.NewInternal("failed to build condition", err)
	}
	tallies, err := expression.NewBuilder().WithUpdate(tallyUpdate(o)).Build()
	if err != nil {
		return false, appErrors.NewInternal("failed to build tally update", err)
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:                aws.String(s.tableName),
				Item:                     markerItem,
				ConditionExpression:      cond.Condition(),
				ExpressionAttributeNames: cond.Names(),
			}},
			{Put: &types.Put{
				TableName:                aws.String(s.tableName),
				Item:                     eventItem,
				ConditionExpression:      cond.Condition(),
				ExpressionAttributeNames: cond.Names(),
			}},
			{Update: &types.Update{
				TableName:                 aws.String(s.tableName),
				Key:                       key(pk, summarySK),
				UpdateExpression:          tallies.Update(),
				ExpressionAttributeNames:  tallies.Names(),
				ExpressionAttributeValues: tallies.Values(),
			}},
		},
	})
	if err != nil {
		if repository.ConditionFailed(err) {
			return false, nil
		}
		return false, repository.FromDynamoDB("record nightmare occurrence", err)
	}
	return true, nil
}

// tallyUpdate increments one top-level numeric attribute per theme and emotion on the SUMMARY item.
func tallyUpdate(o nightmare.Occurrence) expression.UpdateBuilder {
	update := expression.Set(expression.Name("UpdatedAt"), expression.Value(time.Now().UTC().Format(time.RFC3339Nano)))
	for _, t := range o.Themes {
		update = update.Add(expression.NameNoDotSplit(tallyTheme+t), expression.Value(1))
	}
	for _, e := range o.Emotions {
		update = update.Add(expression.NameNoDotSplit(tallyEmotion+e), expression.Value(1))
	}
	return update
}

// SetCycleAnalysis implements repository.NightmareStore.
func (s *NightmareStore) SetCycleAnalysis(ctx context.Context, userID string, st stats.CycleStatistics) error {
	update := expression.Set(expression.Name("CycleAnalysis"), expression.Value(st))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return appErrors.NewInternal("failed to build cycle analysis update", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       key(nightmarePK(userID), summarySK),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	return repository.FromDynamoDB("set cycle analysis", err)
}

// ListTimestamps implements repository.NightmareStore. Event sort keys embed the timestamp, so
// the query already returns them ascending.
func (s *NightmareStore) ListTimestamps(ctx context.Context, userID string) ([]time.Time, error) {
	events, err := s.events(ctx, userID)
	if err != nil {
		return nil, err
	}
	ts := make([]time.Time, len(events))
	for i, e := range events {
		ts[i] = e.Timestamp
	}
	return ts, nil
}

func (s *NightmareStore) events(ctx context.Context, userID string) ([]nightmare.Occurrence, error) {
	input, err := queryInput(s.tableName, nightmarePK(userID), eventSKPrefix, s.pageSize)
	if err != nil {
		return nil, appErrors.NewInternal("failed to build nightmare query", err)
	}
	items, err := queryAll(ctx, s.client, input)
	if err != nil {
		return nil, repository.FromDynamoDB("query nightmare events", err)
	}
	out := make([]nightmare.Occurrence, 0, len(items))
	for _, raw := range items {
		var e ddbNightmareEvent
		if err := attributevalue.UnmarshalMap(raw, &e); err != nil {
			s.logger.Warn("skipping unreadable nightmare event",
				zap.String("userID", userID), zap.String("sk", skOf(raw)), zap.Error(err))
			continue
		}
		out = append(out, nightmare.Occurrence{
			DreamID: e.DreamID, Timestamp: e.Timestamp, Themes: e.Themes, Emotions: e.Emotions,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// LoadHistory implements repository.NightmareStore.
func (s *NightmareStore) LoadHistory(ctx context.Context, userID string) (nightmare.History, error) {
	h := nightmare.History{UserID: userID, Summary: nightmare.NewSummary()}

	events, err := s.events(ctx, userID)
	if err != nil {
		return h, err
	}
	h.Occurrences = events

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       key(nightmarePK(userID), summarySK),
	})
	if err != nil {
		return h, repository.FromDynamoDB("get nightmare summary", err)
	}
	s.decodeSummary(userID, out.Item, &h.Summary)
	return h, nil
}

func (s *NightmareStore) decodeSummary(userID string, item map[string]types.AttributeValue, summary *nightmare.Summary) {
	for name, av := range item {
		switch {
		case strings.HasPrefix(name, tallyTheme):
			if n, err := unmarshalTally(av); err == nil {
				summary.ThemeCounts[strings.TrimPrefix(name, tallyTheme)] = n
			}
		case strings.HasPrefix(name, tallyEmotion):
			if n, err := unmarshalTally(av); err == nil {
				summary.EmotionCounts[strings.TrimPrefix(name, tallyEmotion)] = n
			}
		case name == "CycleAnalysis":
			var ca stats.CycleStatistics
			if err := attributevalue.Unmarshal(av, &ca); err != nil {
				s.logger.Warn("ignoring unreadable cycle analysis", zap.String("userID", userID), zap.Error(err))
				continue
			}
			summary.CycleAnalysis = &ca
		}
	}
}
