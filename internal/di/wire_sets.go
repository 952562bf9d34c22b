package di

import (
	"github.com/google/wire"
)

// SuperSet combines all provider sets for the complete application.
var SuperSet = wire.NewSet(
	ObservabilityProviders,
	InfrastructureProviders,
	CollaboratorProviders,
	ServiceProviders,
	InterfaceProviders,
	provideContainer,
)

// ObservabilityProviders provides logging, metrics and tracing.
var ObservabilityProviders = wire.NewSet(
	provideLogging,
	provideLogger,
	provideMetrics,
	provideTracer,
)

// InfrastructureProviders provides the AWS clients, the stores and the event publisher.
var InfrastructureProviders = wire.NewSet(
	provideAWSConfig,
	provideDynamoDBClient,
	provideEventBridgeClient,
	provideStores,
	providePublisher,
)

// CollaboratorProviders provides the classification and narrative collaborators.
var CollaboratorProviders = wire.NewSet(
	provideLLMProvider,
	provideClassifier,
	provideNarrative,
)

// ServiceProviders provides the pattern components.
var ServiceProviders = wire.NewSet(
	provideThemeTracker,
	provideAggregator,
	provideMatcher,
	provideAnalyzer,
	provideInsights,
)

// InterfaceProviders provides the HTTP layer.
var InterfaceProviders = wire.NewSet(
	providePatternHandler,
	provideRouter,
)
