package ddb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"dreamlog-backend/internal/domain/dream"
	"dreamlog-backend/internal/repository"
	appErrors "dreamlog-backend/pkg/errors"
)

type ddbSettings struct {
	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
	dream.Settings
}

// SettingsStore keeps one SETTINGS item per user.
type SettingsStore struct {
	client    DynamoDBAPI
	tableName string
}

var _ repository.SettingsStore = (*SettingsStore)(nil)

// NewSettingsStore creates a SettingsStore on tableName.
func NewSettingsStore(client DynamoDBAPI, tableName string) *SettingsStore {
	return &SettingsStore{client: client, tableName: tableName}
}

// GetSettings implements repository.SettingsStore.
func (s *SettingsStore) GetSettings(ctx context.Context, userID string) (dream.Settings, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       key(userPK(userID), settingsSK),
	})
	if err != nil {
		return dream.Settings{}, repository.FromDynamoDB("get settings", err)
	}
	if len(out.Item) == 0 {
		return dream.Settings{}, nil
	}
	var item ddbSettings
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return dream.Settings{}, appErrors.NewInternal("failed to unmarshal settings", err)
	}
	return item.Settings, nil
}

// PutSettings implements repository.SettingsStore.
func (s *SettingsStore) PutSettings(ctx context.Context, userID string, st dream.Settings) error {
	item, err := attributevalue.MarshalMap(ddbSettings{PK: userPK(userID), SK: settingsSK, Settings: st})
	if err != nil {
		return appErrors.NewInternal("failed to marshal settings", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	return repository.FromDynamoDB("put settings", err)
}
