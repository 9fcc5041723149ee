package kv

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const dynamoKeyPrefix = "KV#"

// DynamoOptions configures the DynamoDB backend.
type DynamoOptions struct {
	Region    string
	Endpoint  string // optional, e.g. DynamoDB Local
	TableName string
}

// Dynamo implements Backend using DynamoDB. Each key is one item whose
// partition key is "KV#<key>" and whose value lives in the "value" attribute.
type Dynamo struct {
	client    *dynamodb.Client
	tableName string
}

// NewDynamo creates a DynamoDB client and returns a Dynamo backend.
func NewDynamo(ctx context.Context, opts DynamoOptions) (*Dynamo, error) {
	var loadOpts []func(*config.LoadOptions) error
	loadOpts = append(loadOpts, config.WithRegion(opts.Region))

	if opts.Endpoint != "" {
		loadOpts = append(loadOpts, config.WithBaseEndpoint(opts.Endpoint))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &Dynamo{
		client:    dynamodb.NewFromConfig(awsCfg),
		tableName: opts.TableName,
	}, nil
}

func (d *Dynamo) pk(key string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: dynamoKeyPrefix + key}
}

func (d *Dynamo) Get(ctx context.Context, key string) (string, bool, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &d.tableName,
		Key:            map[string]types.AttributeValue{"PK": d.pk(key)},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", false, fmt.Errorf("GetItem: %w", err)
	}

	if out.Item == nil {
		return "", false, nil
	}

	attr, ok := out.Item["value"].(*types.AttributeValueMemberS)
	if !ok {
		return "", false, fmt.Errorf("item %q: value attribute is not a string", key)
	}
	return attr.Value, true, nil
}

func (d *Dynamo) Set(ctx context.Context, key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &d.tableName,
		Item: map[string]types.AttributeValue{
			"PK":        d.pk(key),
			"value":     &types.AttributeValueMemberS{Value: value},
			"updatedAt": &types.AttributeValueMemberS{Value: now},
		},
	})
	if err != nil {
		return fmt.Errorf("PutItem: %w", err)
	}

	return nil
}

func (d *Dynamo) Delete(ctx context.Context, key string) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &d.tableName,
		Key:       map[string]types.AttributeValue{"PK": d.pk(key)},
	})
	if err != nil {
		return fmt.Errorf("DeleteItem: %w", err)
	}

	return nil
}

func (d *Dynamo) Contains(ctx context.Context, key string) (bool, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            &d.tableName,
		Key:                  map[string]types.AttributeValue{"PK": d.pk(key)},
		ProjectionExpression: aws.String("PK"),
		ConsistentRead:       aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("GetItem: %w", err)
	}
	return out.Item != nil, nil
}

func (d *Dynamo) Keys(ctx context.Context) ([]string, error) {
	keys := []string{}

	// Scan only this backend's items: PK begins with the KV# prefix.
	paginator := dynamodb.NewScanPaginator(d.client, &dynamodb.ScanInput{
		TableName:            &d.tableName,
		ProjectionExpression: aws.String("PK"),
		FilterExpression:     aws.String("begins_with(PK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":prefix": &types.AttributeValueMemberS{Value: dynamoKeyPrefix},
		},
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("Scan: %w", err)
		}
		for _, item := range page.Items {
			pk, ok := item["PK"].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			keys = append(keys, strings.TrimPrefix(pk.Value, dynamoKeyPrefix))
		}
	}

	return keys, nil
}

func (d *Dynamo) Clear(ctx context.Context) error {
	keys, err := d.Keys(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := d.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}
