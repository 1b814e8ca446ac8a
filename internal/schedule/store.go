package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/glowdesk/glowdesk-api/internal/timeutil"
	"github.com/glowdesk/glowdesk-api/pkg/logging"
)

// ErrNotFound indicates no schedule record exists for the staff member.
var ErrNotFound = errors.New("schedule: not found")

type dynamoAPI interface {
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Store persists weekly schedules to DynamoDB, keyed companyId + staffId.
type Store struct {
	client    dynamoAPI
	tableName string
	logger    *logging.Logger
}

// NewStore builds a store backed by the provided DynamoDB client.
func NewStore(client dynamoAPI, tableName string, logger *logging.Logger) *Store {
	if client == nil {
		panic("schedule: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("schedule: table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{client: client, tableName: tableName, logger: logger}
}

// Get fetches a staff member's weekly schedule. Returns ErrNotFound when no
// record exists; callers decide whether that means "default hours".
func (s *Store) Get(ctx context.Context, companyID, staffID string) (*Weekly, error) {
	if companyID == "" || staffID == "" {
		return nil, errors.New("schedule: companyID and staffID required")
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"companyId": &types.AttributeValueMemberS{Value: companyID},
			"staffId":   &types.AttributeValueMemberS{Value: staffID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("schedule: failed to fetch schedule: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var sched Weekly
	if err := attributevalue.UnmarshalMap(out.Item, &sched); err != nil {
		return nil, fmt.Errorf("schedule: failed to decode schedule: %w", err)
	}
	return &sched, nil
}

// Put upserts a staff member's weekly schedule.
func (s *Store) Put(ctx context.Context, sched *Weekly) error {
	if sched == nil {
		return errors.New("schedule: schedule cannot be nil")
	}
	if sched.CompanyID == "" || sched.StaffID == "" {
		return errors.New("schedule: companyID and staffID required")
	}
	sched.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)

	item, err := attributevalue.MarshalMap(sched)
	if err != nil {
		return fmt.Errorf("schedule: failed to marshal schedule: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("schedule: failed to persist schedule: %w", err)
	}
	return nil
}

// Service couples the store and resolver behind the lookup the availability
// orchestrator consumes.
type Service struct {
	store    *Store
	resolver *Resolver
	logger   *logging.Logger
}

// NewService creates a schedule Service.
func NewService(store *Store, resolver *Resolver, logger *logging.Logger) *Service {
	if store == nil {
		panic("schedule: store cannot be nil")
	}
	if resolver == nil {
		resolver = NewResolver(logger)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, resolver: resolver, logger: logger}
}

// WorkingIntervals resolves a staff member's working sub-intervals for a date.
// A missing schedule record resolves to the default working day.
func (s *Service) WorkingIntervals(ctx context.Context, companyID, staffID string, date time.Time) ([]timeutil.Interval, error) {
	sched, err := s.store.Get(ctx, companyID, staffID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return s.resolver.WorkingIntervals(sched, date), nil
}
