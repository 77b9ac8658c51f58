/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

// ClientConfig configures NewDynamoDBClient. Without an access key the default
// AWS credential chain is used. Endpoint overrides the service endpoint, e.g.
// for DynamoDB Local.
type ClientConfig struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string
}

// NewDynamoDBClient initializes a DynamoDB client.
func NewDynamoDBClient(ctx context.Context, cfg ClientConfig, logger *zap.Logger) (*sdk.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := sdk.NewFromConfig(awsCfg, func(o *sdk.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	logger.Info("dynamodb client initialized",
		zap.String("region", awsCfg.Region),
		zap.String("endpoint", cfg.Endpoint),
		zap.Bool("staticCredentials", cfg.AccessKey != ""))
	return client, nil
}
