// Package dynamodb implements the key-value store contract on a single
// DynamoDB table. This is the only package that knows DynamoDB specifics.
package dynamodb

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"milestones-backend/infrastructure/persistence/abstractions"
	appErrors "milestones-backend/pkg/errors"
)

// DynamoDB caps BatchWriteItem at 25 requests per call.
const batchWriteLimit = 25

// Store implements abstractions.Store on a DynamoDB table keyed by PK/SK.
type Store struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewStore creates a Store for the given table.
func NewStore(client *dynamodb.Client, tableName string, logger *zap.Logger) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

var _ abstractions.Store = (*Store)(nil)

// Put writes an item, overwriting any existing row with the same key.
func (s *Store) Put(ctx context.Context, item any) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return appErrors.NewInternal("failed to marshal item", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return appErrors.NewInternal("put item failed", err)
	}
	return nil
}

// PutNew writes an item only if no row with the same key exists yet.
func (s *Store) PutNew(ctx context.Context, item any) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return appErrors.NewInternal("failed to marshal item", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return appErrors.NewInternal("item already exists", err)
		}
		return appErrors.NewInternal("conditional put failed", err)
	}
	return nil
}

// Get reads one row into out. The bool reports whether the row existed.
func (s *Store) Get(ctx context.Context, pk, sk string, out any) (bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       itemKey(pk, sk),
	})
	if err != nil {
		return false, appErrors.NewInternal("get item failed", err)
	}
	if len(result.Item) == 0 {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return false, appErrors.NewInternal("failed to unmarshal item", err)
	}
	return true, nil
}

// Query reads every row in the partition whose sort key begins with skPrefix.
// Results follow the table's native sort-key order; callers sort themselves.
func (s *Store) Query(ctx context.Context, pk, skPrefix string, out any) error {
	keyCond := expression.Key("PK").Equal(expression.Value(pk)).
		And(expression.Key("SK").BeginsWith(skPrefix))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return appErrors.NewInternal("failed to build query expression", err)
	}

	var items []map[string]types.AttributeValue
	var lastKey map[string]types.AttributeValue
	for {
		result, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(s.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         lastKey,
		})
		if err != nil {
			return appErrors.NewInternal("query failed", err)
		}
		items = append(items, result.Items...)
		if result.LastEvaluatedKey == nil {
			break
		}
		lastKey = result.LastEvaluatedKey
	}

	if err := attributevalue.UnmarshalListOfMaps(items, out); err != nil {
		return appErrors.NewInternal("failed to unmarshal query results", err)
	}
	return nil
}

// Update merges fields into an existing row in a single UpdateItem call and
// unmarshals the resulting row into out. The attribute_exists condition turns
// an update against a missing row into a not-found error instead of an
// upsert.
func (s *Store) Update(ctx context.Context, pk, sk string, fields map[string]any, out any) error {
	if len(fields) == 0 {
		return appErrors.NewInternal("update requires at least one field", nil)
	}

	var update expression.UpdateBuilder
	for name, value := range fields {
		update = update.Set(expression.Name(name), expression.Value(value))
	}
	cond := expression.AttributeExists(expression.Name("PK"))
	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return appErrors.NewInternal("failed to build update expression", err)
	}

	result, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       itemKey(pk, sk),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return appErrors.NewNotFound("item does not exist")
		}
		return appErrors.NewInternal("update item failed", err)
	}

	if out != nil {
		if err := attributevalue.UnmarshalMap(result.Attributes, out); err != nil {
			return appErrors.NewInternal("failed to unmarshal updated item", err)
		}
	}
	return nil
}

// Delete removes a row. Absence is not an error.
func (s *Store) Delete(ctx context.Context, pk, sk string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       itemKey(pk, sk),
	})
	if err != nil {
		return appErrors.NewInternal("delete item failed", err)
	}
	return nil
}

// BatchDelete removes rows in chunks of 25, retrying unprocessed keys.
func (s *Store) BatchDelete(ctx context.Context, keys []abstractions.Key) error {
	for start := 0; start < len(keys); start += batchWriteLimit {
		end := start + batchWriteLimit
		if end > len(keys) {
			end = len(keys)
		}

		requests := make([]types.WriteRequest, 0, end-start)
		for _, key := range keys[start:end] {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: itemKey(key.PK, key.SK)},
			})
		}

		pending := map[string][]types.WriteRequest{s.tableName: requests}
		for len(pending[s.tableName]) > 0 {
			result, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: pending,
			})
			if err != nil {
				return appErrors.NewInternal("batch delete failed", err)
			}
			if len(result.UnprocessedItems[s.tableName]) == 0 {
				break
			}
			s.logger.Warn("retrying unprocessed batch delete items",
				zap.Int("count", len(result.UnprocessedItems[s.tableName])),
			)
			pending = result.UnprocessedItems
		}
	}
	return nil
}

func itemKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}
