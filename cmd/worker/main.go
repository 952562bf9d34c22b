package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"dreamlog-backend/internal/config"
	"dreamlog-backend/internal/di"
	"dreamlog-backend/internal/messaging/eventbridge"
)

var (
	container *di.Container
	consumer  *eventbridge.Consumer
)

// init runs during cold start
func init() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err = di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	consumer = eventbridge.NewConsumer(container.Analyzer, container.Logger.Named("worker"))
	container.Logger.Info("Worker initialized",
		zap.String("environment", string(cfg.Environment)),
		zap.String("detailType", eventbridge.DreamRecordedType),
	)
}

// Handler analyzes one dream.recorded event delivered by EventBridge.
func Handler(ctx context.Context, event events.CloudWatchEvent) error {
	err := consumer.Handle(ctx, event)

	if container.Tracer != nil {
		if ferr := container.Tracer.ForceFlush(ctx); ferr != nil {
			container.Logger.Warn("failed to flush spans", zap.Error(ferr))
		}
	}
	return err
}

func main() {
	lambda.Start(Handler)
}
