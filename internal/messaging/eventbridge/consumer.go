package eventbridge

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"dreamlog-backend/internal/domain/dream"
	"dreamlog-backend/internal/service/patterns"
	appErrors "dreamlog-backend/pkg/errors"
)

// DreamRecordedType is the detail-type the dream journal emits when a dream is saved.
const DreamRecordedType = "dream.recorded"

// DreamRecorded is the detail of a dream.recorded event.
type DreamRecorded struct {
	UserID     string    `json:"userId"`
	DreamID    string    `json:"dreamId"`
	Text       string    `json:"text"`
	Tier       string    `json:"tier"`
	OccurredAt time.Time `json:"occurredAt"`
}

// DreamAnalyzer runs pattern analysis for one dream.
type DreamAnalyzer interface {
	AnalyzeDreamForPatterns(ctx context.Context, req patterns.AnalyzeRequest) (patterns.Result, error)
}

// Consumer analyzes dreams delivered by an EventBridge rule.
type Consumer struct {
	analyzer DreamAnalyzer
	logger   *zap.Logger
}

// NewConsumer creates a consumer.
func NewConsumer(analyzer DreamAnalyzer, logger *zap.Logger) *Consumer {
	return &Consumer{analyzer: analyzer, logger: logger}
}

// Handle processes one event. Events that can never succeed are logged and acknowledged so
// EventBridge does not retry them; analysis itself does not fail once the ids are present.
func (c *Consumer) Handle(ctx context.Context, event lambdaevents.CloudWatchEvent) error {
	logger := c.logger.With(zap.String("eventID", event.ID), zap.String("detailType", event.DetailType))

	if event.DetailType != DreamRecordedType {
		logger.Warn("ignoring unexpected event type")
		return nil
	}

	var detail DreamRecorded
	if err := json.Unmarshal(event.Detail, &detail); err != nil {
		logger.Error("dropping undecodable dream event", zap.Error(err))
		return nil
	}
	if strings.TrimSpace(detail.Text) == "" {
		logger.Warn("dropping dream event without text", zap.String("dreamID", detail.DreamID))
		return nil
	}

	at := detail.OccurredAt
	if at.IsZero() {
		at = event.Time
	}
	result, err := c.analyzer.AnalyzeDreamForPatterns(ctx, patterns.AnalyzeRequest{
		UserID:     detail.UserID,
		DreamID:    detail.DreamID,
		Text:       detail.Text,
		Tier:       dream.ParseTier(detail.Tier),
		OccurredAt: at,
	})
	if err != nil {
		if appErrors.IsValidation(err) {
			logger.Warn("dropping invalid dream event", zap.Error(err))
			return nil
		}
		return err
	}

	logger.Info("dream analyzed",
		zap.String("userID", detail.UserID),
		zap.String("dreamID", detail.DreamID),
		zap.String("type", string(result.Pattern.Type)),
		zap.Strings("failed", result.Failed))
	return nil
}
