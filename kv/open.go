package kv

import (
	"context"
	"fmt"

	"github.com/ernestjumbe/zimzimba-mobile/config"
)

// Open builds the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.Storage) (Backend, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemory(), nil
	case "", "file":
		return NewFile(cfg.Path)
	case "sqlite":
		return NewSQLite(ctx, cfg.Path)
	case "redis":
		return DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisPrefix)
	case "dynamodb":
		return NewDynamo(ctx, DynamoOptions{
			Region:    cfg.AWSRegion,
			Endpoint:  cfg.DynamoEndpoint,
			TableName: cfg.DynamoTableName,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
