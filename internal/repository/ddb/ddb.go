// Package ddb implements the pattern ledger stores on AWS DynamoDB.
// This is the only layer that should have knowledge of DynamoDB specifics.
package ddb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"dreamlog-backend/internal/repository"
)

// DynamoDBAPI lists the client operations the stores use, so tests can substitute a fake.
// *dynamodb.Client satisfies it.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Key prefixes. Every store has its own partition prefix so the stores may share a table.
const (
	userPrefix      = "USER#"
	nightmarePrefix = "NIGHTMARE#"
	cyclePrefix     = "CYCLE#"

	themeSKPrefix  = "THEME#"
	eventSKPrefix  = "EVENT#"
	dreamSKPrefix  = "DREAM#"
	defSKPrefix    = "DEF#"
	occSKPrefix    = "OCC#"
	summarySK      = "SUMMARY"
	settingsSK     = "SETTINGS"
	tallyTheme     = "THEME#"
	tallyEmotion   = "EMOTION#"
	sortableLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

func userPK(userID string) string      { return userPrefix + userID }
func nightmarePK(userID string) string { return nightmarePrefix + userID }
func cyclePK(userID string) string     { return cyclePrefix + userID }
func themeSK(theme string) string      { return themeSKPrefix + theme }
func dreamSK(dreamID string) string    { return dreamSKPrefix + dreamID }

// sortable formats t so that lexical order equals chronological order. RFC3339Nano trims
// trailing zeros, which breaks that property.
func sortable(t time.Time) string {
	return t.UTC().Format(sortableLayout)
}

func eventSK(at time.Time, dreamID string) string {
	return fmt.Sprintf("%s%s#%s", eventSKPrefix, sortable(at), dreamID)
}

func defSK(createdAt time.Time, cycleID string) string {
	return fmt.Sprintf("%s%s#%s", defSKPrefix, sortable(createdAt), cycleID)
}

func occSK(cycleID string, at time.Time, dreamID string) string {
	return fmt.Sprintf("%s%s#%s#%s", occSKPrefix, cycleID, sortable(at), dreamID)
}

func key(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

// skOf reads the string sort key of an item.
func skOf(item map[string]types.AttributeValue) string {
	if v, ok := item["SK"].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

// queryAll follows LastEvaluatedKey until the partition range is exhausted.
func queryAll(ctx context.Context, client DynamoDBAPI, input *dynamodb.QueryInput) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	var lastEvaluatedKey map[string]types.AttributeValue
	for {
		input.ExclusiveStartKey = lastEvaluatedKey
		result, err := client.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		items = append(items, result.Items...)
		lastEvaluatedKey = result.LastEvaluatedKey
		if len(lastEvaluatedKey) == 0 {
			return items, nil
		}
	}
}

// Stores bundles the four DynamoDB-backed stores.
type Stores struct {
	Themes     *ThemeStore
	Nightmares *NightmareStore
	Cycles     *CycleStore
	Settings   *SettingsStore
}

// NewStores builds every store against the tables named in cfg.
func NewStores(client DynamoDBAPI, cfg repository.Config, logger *zap.Logger) (*Stores, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid repository config: %w", err)
	}
	return &Stores{
		Themes:     NewThemeStore(client, cfg.ThemeTable, cfg.PageSize, logger),
		Nightmares: NewNightmareStore(client, cfg.NightmareTable, cfg.PageSize, logger),
		Cycles:     NewCycleStore(client, cfg.CycleTable, cfg.PageSize, logger),
		Settings:   NewSettingsStore(client, cfg.SettingsTable),
	}, nil
}

// unmarshalTally reads a numeric summary attribute.
func unmarshalTally(av types.AttributeValue) (int, error) {
	var n int
	if err := attributevalue.Unmarshal(av, &n); err != nil {
		return 0, err
	}
	return n, nil
}

func queryInput(table, pk, skPrefix string, pageSize int32) (*dynamodb.QueryInput, error) {
	keyEx := expression.Key("PK").Equal(expression.Value(pk))
	if skPrefix != "" {
		keyEx = keyEx.And(expression.Key("SK").BeginsWith(skPrefix))
	}
	expr, err := expression.NewBuilder().WithKeyCondition(keyEx).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build key condition: %w", err)
	}
	return &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(true),
		Limit:                     aws.Int32(pageSize),
	}, nil
}
