package ddb

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"dreamlog-backend/internal/domain/cycle"
	"dreamlog-backend/internal/repository"
	appErrors "dreamlog-backend/pkg/errors"
)

// ddbCycleDef holds a cycle's immutable founding set and its latest evolution summary.
type ddbCycleDef struct {
	PK              string           `dynamodbav:"PK"`
	SK              string           `dynamodbav:"SK"`
	CycleID         string           `dynamodbav:"CycleID"`
	CreatedAt       time.Time        `dynamodbav:"CreatedAt"`
	FirstOccurrence time.Time        `dynamodbav:"FirstOccurrence"`
	CommonElements  []string         `dynamodbav:"CommonElements"`
	Evolution       *cycle.Evolution `dynamodbav:"Evolution,omitempty"`
}

// ddbCycleOcc is one occurrence; its sort key groups it under the cycle in time order.
type ddbCycleOcc struct {
	PK        string    `dynamodbav:"PK"`
	SK        string    `dynamodbav:"SK"`
	CycleID   string    `dynamodbav:"CycleID"`
	DreamID   string    `dynamodbav:"DreamID"`
	Timestamp time.Time `dynamodbav:"Timestamp"`
	Themes    []string  `dynamodbav:"Themes"`
	Symbols   []string  `dynamodbav:"Symbols"`
}

// CycleStore keeps cycle definitions and occurrences in one partition per user. Definitions
// sort by creation time, which is the order the matcher scans them in.
type CycleStore struct {
	client    DynamoDBAPI
	tableName string
	pageSize  int32
	logger    *zap.Logger
}

var _ repository.CycleStore = (*CycleStore)(nil)

// NewCycleStore creates a CycleStore on tableName.
func NewCycleStore(client DynamoDBAPI, tableName string, pageSize int32, logger *zap.Logger) *CycleStore {
	return &CycleStore{client: client, tableName: tableName, pageSize: pageSize, logger: logger}
}

func notExists() (expression.Expression, error) {
	return expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name("SK"))).
		Build()
}

func (s *CycleStore) occurrencePuts(c cycle.Cycle, o cycle.Occurrence, cond expression.Expression) ([]types.TransactWriteItem, error) {
	pk := cyclePK(c.UserID)
	sk := occSK(c.ID, o.Timestamp, o.DreamID)
	occItem, err := attributevalue.MarshalMap(ddbCycleOcc{
		PK: pk, SK: sk, CycleID: c.ID, DreamID: o.DreamID,
		Timestamp: o.Timestamp.UTC(), Themes: o.Themes, Symbols: o.Symbols,
	})
	if err != nil {
		return nil, appErrors.NewInternal("failed to marshal cycle occurrence", err)
	}
	markerItem, err := attributevalue.MarshalMap(ddbDreamMarker{PK: pk, SK: dreamSK(o.DreamID), EventSK: sk, CycleID: c.ID})
	if err != nil {
		return nil, appErrors.NewInternal("failed to marshal dream marker", err)
	}
	return []types.TransactWriteItem{
		{Put: &types.Put{
			TableName:                aws.String(s.tableName),
			Item:                     markerItem,
			ConditionExpression:      cond.Condition(),
			ExpressionAttributeNames: cond.Names(),
		}},
		{Put: &types.Put{
			TableName:                aws.String(s.tableName),
			Item:                     occItem,
			ConditionExpression:      cond.Condition(),
			ExpressionAttributeNames: cond.Names(),
		}},
	}, nil
}

// CreateCycle implements repository.CycleStore. The definition, the founding occurrence and the
// dream marker are written atomically. A dream already assigned to a cycle yields a conflict.
func (s *CycleStore) CreateCycle(ctx context.Context, c cycle.Cycle) error {
	if len(c.Occurrences) == 0 {
		return appErrors.NewValidation("cycle has no founding occurrence")
	}
	cond, err := notExists()
	if err != nil {
		return appErrors.NewInternal("failed to build condition", err)
	}

	defItem, err := attributevalue.MarshalMap(ddbCycleDef{
		PK:              cyclePK(c.UserID),
		SK:              defSK(c.CreatedAt, c.ID),
		CycleID:         c.ID,
		CreatedAt:       c.CreatedAt.UTC(),
		FirstOccurrence: c.FirstOccurrence.UTC(),
		CommonElements:  c.CommonElements,
		Evolution:       c.Evolution,
	})
	if err != nil {
		return appErrors.NewInternal("failed to marshal cycle definition", err)
	}
	puts, err := s.occurrencePuts(c, c.Occurrences[0], cond)
	if err != nil {
		return err
	}

	items := append([]types.TransactWriteItem{{Put: &types.Put{
		TableName:                aws.String(s.tableName),
		Item:                     defItem,
		ConditionExpression:      cond.Condition(),
		ExpressionAttributeNames: cond.Names(),
	}}}, puts...)

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	return repository.FromDynamoDB("create cycle", err)
}

// AppendOccurrence implements repository.CycleStore.
func (s *CycleStore) AppendOccurrence(ctx context.Context, c cycle.Cycle, o cycle.Occurrence) (bool, error) {
	cond, err := notExists()
	if err != nil {
		return false, appErrors.NewInternal("failed to build condition", err)
	}
	puts, err := s.occurrencePuts(c, o, cond)
	if err != nil {
		return false, err
	}
	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: puts})
	if err != nil {
		if repository.ConditionFailed(err) {
			return false, nil
		}
		return false, repository.FromDynamoDB("append cycle occurrence", err)
	}
	return true, nil
}

// SetEvolution implements repository.CycleStore.
func (s *CycleStore) SetEvolution(ctx context.Context, c cycle.Cycle) error {
	var update expression.UpdateBuilder
	if c.Evolution == nil {
		update = expression.Remove(expression.Name("Evolution"))
	} else {
		update = expression.Set(expression.Name("Evolution"), expression.Value(c.Evolution))
	}
	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.AttributeExists(expression.Name("PK"))).
		Build()
	if err != nil {
		return appErrors.NewInternal("failed to build evolution update", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       key(cyclePK(c.UserID), defSK(c.CreatedAt, c.ID)),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	return repository.FromDynamoDB("set cycle evolution", err)
}

// ListCycles implements repository.CycleStore. One query returns definitions (DEF#), markers
// (DREAM#) and occurrences (OCC#) in that lexical order.
func (s *CycleStore) ListCycles(ctx context.Context, userID string) ([]cycle.Cycle, error) {
	input, err := queryInput(s.tableName, cyclePK(userID), "", s.pageSize)
	if err != nil {
		return nil, appErrors.NewInternal("failed to build cycle query", err)
	}
	items, err := queryAll(ctx, s.client, input)
	if err != nil {
		return nil, repository.FromDynamoDB("query cycles", err)
	}

	var cycles []*cycle.Cycle
	byID := make(map[string]*cycle.Cycle)
	var occs []ddbCycleOcc

	for _, raw := range items {
		sk := skOf(raw)
		switch {
		case strings.HasPrefix(sk, defSKPrefix):
			var def ddbCycleDef
			if err := attributevalue.UnmarshalMap(raw, &def); err != nil {
				s.logger.Warn("skipping unreadable cycle definition",
					zap.String("userID", userID), zap.String("sk", sk), zap.Error(err))
				continue
			}
			c := &cycle.Cycle{
				ID:              def.CycleID,
				UserID:          userID,
				CreatedAt:       def.CreatedAt,
				FirstOccurrence: def.FirstOccurrence,
				CommonElements:  def.CommonElements,
				Evolution:       def.Evolution,
			}
			cycles = append(cycles, c)
			byID[c.ID] = c
		case strings.HasPrefix(sk, occSKPrefix):
			var occ ddbCycleOcc
			if err := attributevalue.UnmarshalMap(raw, &occ); err != nil {
				s.logger.Warn("skipping unreadable cycle occurrence",
					zap.String("userID", userID), zap.String("sk", sk), zap.Error(err))
				continue
			}
			occs = append(occs, occ)
		}
	}

	for _, occ := range occs {
		c, ok := byID[occ.CycleID]
		if !ok {
			s.logger.Warn("orphan cycle occurrence", zap.String("userID", userID), zap.String("cycleID", occ.CycleID))
			continue
		}
		c.Append(cycle.Occurrence{DreamID: occ.DreamID, Timestamp: occ.Timestamp, Themes: occ.Themes, Symbols: occ.Symbols})
	}

	out := make([]cycle.Cycle, 0, len(cycles))
	for _, c := range cycles {
		out = append(out, *c)
	}
	return out, nil
}
