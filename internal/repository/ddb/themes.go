package ddb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"dreamlog-backend/internal/domain/dream"
	"dreamlog-backend/internal/repository"
	appErrors "dreamlog-backend/pkg/errors"
)

// ddbTheme is the item layout of a theme counter.
type ddbTheme struct {
	PK           string    `dynamodbav:"PK"`
	SK           string    `dynamodbav:"SK"`
	UserID       string    `dynamodbav:"UserID"`
	Theme        string    `dynamodbav:"Theme"`
	Count        int       `dynamodbav:"Count"`
	LastOccurred time.Time `dynamodbav:"LastOccurred"`
}

func (t ddbTheme) toDomain() dream.ThemeCounter {
	return dream.ThemeCounter{UserID: t.UserID, Theme: t.Theme, Count: t.Count, LastOccurred: t.LastOccurred}
}

// ThemeStore keeps one item per (user, theme).
type ThemeStore struct {
	client    DynamoDBAPI
	tableName string
	pageSize  int32
	logger    *zap.Logger
}

var _ repository.ThemeStore = (*ThemeStore)(nil)

// NewThemeStore creates a ThemeStore on tableName.
func NewThemeStore(client DynamoDBAPI, tableName string, pageSize int32, logger *zap.Logger) *ThemeStore {
	return &ThemeStore{client: client, tableName: tableName, pageSize: pageSize, logger: logger}
}

// GetTheme implements repository.ThemeStore.
func (s *ThemeStore) GetTheme(ctx context.Context, userID, theme string) (dream.ThemeCounter, bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            key(userPK(userID), themeSK(theme)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return dream.ThemeCounter{}, false, repository.FromDynamoDB("get theme counter", err)
	}
	if len(out.Item) == 0 {
		return dream.ThemeCounter{}, false, nil
	}
	var item ddbTheme
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return dream.ThemeCounter{}, false, appErrors.NewInternal("failed to unmarshal theme counter", err)
	}
	return item.toDomain(), true, nil
}

// CreateTheme implements repository.ThemeStore. The put is conditioned on the item not existing.
func (s *ThemeStore) CreateTheme(ctx context.Context, counter dream.ThemeCounter) error {
	item, err := attributevalue.MarshalMap(ddbTheme{
		PK:           userPK(counter.UserID),
		SK:           themeSK(counter.Theme),
		UserID:       counter.UserID,
		Theme:        counter.Theme,
		Count:        counter.Count,
		LastOccurred: counter.LastOccurred.UTC(),
	})
	if err != nil {
		return appErrors.NewInternal("failed to marshal theme counter", err)
	}

	cond := expression.AttributeNotExists(expression.Name("PK"))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return appErrors.NewInternal("failed to build condition", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	return repository.FromDynamoDB("create theme counter", err)
}

// IncrementTheme implements repository.ThemeStore with an atomic ADD conditioned on existence.
func (s *ThemeStore) IncrementTheme(ctx context.Context, userID, theme string, at time.Time) error {
	update := expression.Add(expression.Name("Count"), expression.Value(1)).
		Set(expression.Name("LastOccurred"), expression.Value(at.UTC().Format(time.RFC3339Nano)))
	cond := expression.AttributeExists(expression.Name("PK"))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return appErrors.NewInternal("failed to build update", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       key(userPK(userID), themeSK(theme)),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	return repository.FromDynamoDB("increment theme counter", err)
}

// ListThemes implements repository.ThemeStore.
func (s *ThemeStore) ListThemes(ctx context.Context, userID string) ([]dream.ThemeCounter, error) {
	input, err := queryInput(s.tableName, userPK(userID), themeSKPrefix, s.pageSize)
	if err != nil {
		return nil, appErrors.NewInternal("failed to build theme query", err)
	}
	items, err := queryAll(ctx, s.client, input)
	if err != nil {
		return nil, repository.FromDynamoDB("list theme counters", err)
	}

	out := make([]dream.ThemeCounter, 0, len(items))
	for _, raw := range items {
		var item ddbTheme
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			s.logger.Warn("skipping unreadable theme counter",
				zap.String("userID", userID), zap.String("sk", skOf(raw)), zap.Error(err))
			continue
		}
		out = append(out, item.toDomain())
	}
	return out, nil
}
