package resources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/glowdesk/glowdesk-api/pkg/logging"
)

// ErrNotFound indicates the referenced resource does not exist.
var ErrNotFound = errors.New("resources: not found")

type dynamoAPI interface {
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Store persists resources to DynamoDB, keyed companyId + resourceId.
type Store struct {
	client    dynamoAPI
	tableName string
	logger    *logging.Logger
}

// NewStore builds a store backed by the provided DynamoDB client.
func NewStore(client dynamoAPI, tableName string, logger *logging.Logger) *Store {
	if client == nil {
		panic("resources: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("resources: table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{client: client, tableName: tableName, logger: logger}
}

// Get fetches a resource. Returns ErrNotFound when no record exists.
func (s *Store) Get(ctx context.Context, companyID, resourceID string) (*Resource, error) {
	if companyID == "" || resourceID == "" {
		return nil, errors.New("resources: companyID and resourceID required")
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"companyId":  &types.AttributeValueMemberS{Value: companyID},
			"resourceId": &types.AttributeValueMemberS{Value: resourceID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("resources: failed to fetch resource: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var res Resource
	if err := attributevalue.UnmarshalMap(out.Item, &res); err != nil {
		return nil, fmt.Errorf("resources: failed to decode resource: %w", err)
	}
	return &res, nil
}

// Put upserts a resource.
func (s *Store) Put(ctx context.Context, res *Resource) error {
	if res == nil {
		return errors.New("resources: resource cannot be nil")
	}
	if res.CompanyID == "" || res.ResourceID == "" {
		return errors.New("resources: companyID and resourceID required")
	}
	res.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)

	item, err := attributevalue.MarshalMap(res)
	if err != nil {
		return fmt.Errorf("resources: failed to marshal resource: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("resources: failed to persist resource: %w", err)
	}
	return nil
}

// List returns all of a company's resources.
func (s *Store) List(ctx context.Context, companyID string) ([]Resource, error) {
	if companyID == "" {
		return nil, errors.New("resources: companyID required")
	}
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("companyId = :c"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberS{Value: companyID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("resources: failed to list resources: %w", err)
	}

	items := make([]Resource, 0, len(out.Items))
	for _, raw := range out.Items {
		var res Resource
		if err := attributevalue.UnmarshalMap(raw, &res); err != nil {
			return nil, fmt.Errorf("resources: failed to decode resource: %w", err)
		}
		items = append(items, res)
	}
	return items, nil
}
