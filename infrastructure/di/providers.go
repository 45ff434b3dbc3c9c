package di

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"milestones-backend/application/ports"
	"milestones-backend/infrastructure/config"
	"milestones-backend/infrastructure/persistence"
	"milestones-backend/infrastructure/persistence/abstractions"
	"milestones-backend/infrastructure/persistence/dynamodb"
	"milestones-backend/pkg/auth"
)

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *zap.Logger
	GoalRepo       ports.GoalRepository
	MilestoneRepo  ports.MilestoneRepository
	TokenValidator *auth.TokenValidator
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideStore creates the single-table item store
func ProvideStore(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) abstractions.Store {
	return dynamodb.NewStore(client, cfg.DynamoDBTable, logger)
}

// ProvideGoalRepository creates a goal repository
func ProvideGoalRepository(store abstractions.Store, logger *zap.Logger) ports.GoalRepository {
	return persistence.NewGoalRepository(store, logger)
}

// ProvideMilestoneRepository creates a milestone repository
func ProvideMilestoneRepository(store abstractions.Store, logger *zap.Logger) ports.MilestoneRepository {
	return persistence.NewMilestoneRepository(store, logger)
}

// ProvideTokenValidator creates a token validator from configuration.
// Development mode without any auth configuration yields nil, which the
// auth middleware treats as the local dev identity.
func ProvideTokenValidator(cfg *config.Config, logger *zap.Logger) *auth.TokenValidator {
	if cfg.AuthJWKSEndpoint != "" {
		keySet := auth.NewKeySet(cfg.AuthJWKSEndpoint, cfg.KeySetTTL, logger)
		return auth.NewRS256Validator(keySet, cfg.AuthIssuer, cfg.AuthAudience)
	}
	if cfg.JWTSecret != "" {
		return auth.NewHS256Validator(cfg.JWTSecret, cfg.AuthIssuer, cfg.AuthAudience)
	}
	return nil
}
