package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/glowdesk/glowdesk-api/internal/timeutil"
	"github.com/glowdesk/glowdesk-api/pkg/logging"
)

const (
	staffDayIndex = "staffDay-index"
	dateIndex     = "date-index"

	// DynamoDB rejects transactions above 100 items.
	maxTransactItems = 100
)

type dynamoAPI interface {
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(context.Context, *dynamodb.TransactWriteItemsInput, ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// SlotLockKey derives the lock item key guarding one staff member's start
// time. The conditional put on this key is what closes the check-then-act
// window between the availability read and the booking write.
func SlotLockKey(companyID, staffID, date, startTime string) string {
	return strings.Join([]string{companyID, staffID, date, startTime}, "#")
}

// Repository persists appointment documents to DynamoDB.
//
// Main table: PK companyId, SK appointmentId. Two GSIs serve the engine's
// queries: staffDay-index on staffDayKey (companyId#staffId#date) and
// date-index on dateKey (companyId#date). A separate slot_locks table holds
// one item per booked staff start time.
type Repository struct {
	client     dynamoAPI
	tableName  string
	locksTable string
	logger     *logging.Logger
}

// NewRepository builds a repository backed by the provided DynamoDB client.
func NewRepository(client dynamoAPI, tableName, locksTable string, logger *logging.Logger) *Repository {
	if client == nil {
		panic("appointments: dynamodb client cannot be nil")
	}
	if tableName == "" || locksTable == "" {
		panic("appointments: table names cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Repository{client: client, tableName: tableName, locksTable: locksTable, logger: logger}
}

func (r *Repository) stampKeys(appt *Appointment) {
	appt.StaffDayKey = strings.Join([]string{appt.CompanyID, appt.StaffID, appt.Date}, "#")
	appt.DateKey = appt.CompanyID + "#" + appt.Date
}

func (r *Repository) lockPut(appt *Appointment) types.TransactWriteItem {
	return types.TransactWriteItem{
		Put: &types.Put{
			TableName: aws.String(r.locksTable),
			Item: map[string]types.AttributeValue{
				"lockKey":       &types.AttributeValueMemberS{Value: SlotLockKey(appt.CompanyID, appt.StaffID, appt.Date, appt.StartTime)},
				"appointmentId": &types.AttributeValueMemberS{Value: appt.AppointmentID},
			},
			ConditionExpression: aws.String("attribute_not_exists(lockKey)"),
		},
	}
}

// Create writes a new appointment and its slot lock in one transaction.
// Returns ErrSlotTaken when another booking already holds the lock.
func (r *Repository) Create(ctx context.Context, appt *Appointment) error {
	if appt == nil {
		return errors.New("appointments: appointment cannot be nil")
	}
	r.stampKeys(appt)

	item, err := attributevalue.MarshalMap(appt)
	if err != nil {
		return fmt.Errorf("appointments: failed to marshal appointment: %w", err)
	}

	items := []types.TransactWriteItem{
		{
			Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(appointmentId)"),
			},
		},
	}
	// Unassigned bookings have no staff slot to guard.
	if appt.StaffID != "" {
		items = append(items, r.lockPut(appt))
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		if isConditionalCancellation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("appointments: failed to persist appointment: %w", err)
	}
	return nil
}

// Get fetches an appointment by ID.
func (r *Repository) Get(ctx context.Context, companyID, appointmentID string) (*Appointment, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"companyId":     &types.AttributeValueMemberS{Value: companyID},
			"appointmentId": &types.AttributeValueMemberS{Value: appointmentID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("appointments: failed to fetch appointment: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var appt Appointment
	if err := attributevalue.UnmarshalMap(out.Item, &appt); err != nil {
		return nil, fmt.Errorf("appointments: failed to decode appointment: %w", err)
	}
	return &appt, nil
}

// Put saves an appointment without touching slot locks. Used for mutations
// that do not move the appointment in time.
func (r *Repository) Put(ctx context.Context, appt *Appointment) error {
	if appt == nil {
		return errors.New("appointments: appointment cannot be nil")
	}
	r.stampKeys(appt)

	item, err := attributevalue.MarshalMap(appt)
	if err != nil {
		return fmt.Errorf("appointments: failed to marshal appointment: %w", err)
	}
	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("appointments: failed to save appointment: %w", err)
	}
	return nil
}

// Reschedule saves an appointment that moved in time, atomically releasing
// the previous slot lock and claiming the new one.
func (r *Repository) Reschedule(ctx context.Context, appt *Appointment, previousLockKey string) error {
	if appt == nil {
		return errors.New("appointments: appointment cannot be nil")
	}
	r.stampKeys(appt)

	item, err := attributevalue.MarshalMap(appt)
	if err != nil {
		return fmt.Errorf("appointments: failed to marshal appointment: %w", err)
	}

	items := []types.TransactWriteItem{
		{
			Put: &types.Put{
				TableName: aws.String(r.tableName),
				Item:      item,
			},
		},
	}
	newLockKey := ""
	if appt.StaffID != "" {
		newLockKey = SlotLockKey(appt.CompanyID, appt.StaffID, appt.Date, appt.StartTime)
	}
	if previousLockKey != "" && previousLockKey != newLockKey {
		items = append(items, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: aws.String(r.locksTable),
				Key: map[string]types.AttributeValue{
					"lockKey": &types.AttributeValueMemberS{Value: previousLockKey},
				},
			},
		})
	}
	if newLockKey != "" && previousLockKey != newLockKey {
		items = append(items, r.lockPut(appt))
	}

	if _, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	}); err != nil {
		if isConditionalCancellation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("appointments: failed to reschedule appointment: %w", err)
	}
	return nil
}

// ReleaseLock removes a slot lock, e.g. when an appointment is cancelled.
func (r *Repository) ReleaseLock(ctx context.Context, lockKey string) error {
	if lockKey == "" {
		return nil
	}
	if _, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.locksTable),
		Key: map[string]types.AttributeValue{
			"lockKey": &types.AttributeValueMemberS{Value: lockKey},
		},
	}); err != nil {
		return fmt.Errorf("appointments: failed to release slot lock: %w", err)
	}
	return nil
}

// Delete hard-removes an appointment and its slot lock. Normal flows cancel
// instead; this exists for corrections.
func (r *Repository) Delete(ctx context.Context, companyID, appointmentID, lockKey string) error {
	items := []types.TransactWriteItem{
		{
			Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key: map[string]types.AttributeValue{
					"companyId":     &types.AttributeValueMemberS{Value: companyID},
					"appointmentId": &types.AttributeValueMemberS{Value: appointmentID},
				},
			},
		},
	}
	if lockKey != "" {
		items = append(items, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: aws.String(r.locksTable),
				Key: map[string]types.AttributeValue{
					"lockKey": &types.AttributeValueMemberS{Value: lockKey},
				},
			},
		})
	}
	if _, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	}); err != nil {
		return fmt.Errorf("appointments: failed to delete appointment: %w", err)
	}
	return nil
}

// ListForStaffDay returns all appointments for one staff member on one
// calendar day, via the staffDay GSI.
func (r *Repository) ListForStaffDay(ctx context.Context, companyID, staffID, date string) ([]Appointment, error) {
	key := strings.Join([]string{companyID, staffID, date}, "#")
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(staffDayIndex),
		KeyConditionExpression: aws.String("staffDayKey = :k"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":k": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("appointments: failed to query staff day: %w", err)
	}
	return unmarshalItems(out.Items)
}

// ListForDay returns all appointments for a company on one calendar day.
func (r *Repository) ListForDay(ctx context.Context, companyID, date string) ([]Appointment, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(dateIndex),
		KeyConditionExpression: aws.String("dateKey = :k"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":k": &types.AttributeValueMemberS{Value: companyID + "#" + date},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("appointments: failed to query day: %w", err)
	}
	return unmarshalItems(out.Items)
}

// CountResourceOverlaps counts non-cancelled appointments referencing the
// resource whose stored interval overlaps iv. The excluded appointment (edit
// flows) is skipped. Records with unparseable times are logged and skipped
// rather than counted.
func (r *Repository) CountResourceOverlaps(ctx context.Context, companyID, resourceID string, iv timeutil.Interval, excludeAppointmentID string) (int, error) {
	date := iv.Start.Format(timeutil.DateLayout)
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(dateIndex),
		KeyConditionExpression: aws.String("dateKey = :k"),
		FilterExpression:       aws.String("contains(resourceIds, :resource) AND #status <> :cancelled"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":k":         &types.AttributeValueMemberS{Value: companyID + "#" + date},
			":resource":  &types.AttributeValueMemberS{Value: resourceID},
			":cancelled": &types.AttributeValueMemberS{Value: string(StatusCancelled)},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("appointments: failed to query resource day: %w", err)
	}

	appts, err := unmarshalItems(out.Items)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range appts {
		appt := &appts[i]
		if appt.AppointmentID == excludeAppointmentID {
			continue
		}
		stored, perr := appt.Interval(iv.Start.Location())
		if perr != nil {
			r.logger.Warn("skipping appointment with unparseable times in resource count",
				"appointment_id", appt.AppointmentID, "error", perr)
			continue
		}
		if stored.Overlaps(iv) {
			count++
		}
	}
	return count, nil
}

// CreateSeries persists a recurring series atomically: the tagged original,
// every generated occurrence, and a slot lock per staffed start time land in
// a single TransactWriteItems call. A partial series can never be observed,
// and a concurrent booking for any of the series' slots loses on the lock
// condition. Returns ErrSlotTaken when any slot in the series is held.
func (r *Repository) CreateSeries(ctx context.Context, original *Appointment, occurrences []Appointment) error {
	if original == nil {
		return errors.New("appointments: original cannot be nil")
	}
	r.stampKeys(original)

	originalItem, err := attributevalue.MarshalMap(original)
	if err != nil {
		return fmt.Errorf("appointments: failed to marshal original: %w", err)
	}

	items := make([]types.TransactWriteItem, 0, 2*(len(occurrences)+1))
	items = append(items, types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(r.tableName),
			Item:                originalItem,
			ConditionExpression: aws.String("attribute_not_exists(appointmentId)"),
		},
	})
	if original.StaffID != "" {
		items = append(items, r.lockPut(original))
	}
	for i := range occurrences {
		occ := &occurrences[i]
		r.stampKeys(occ)
		item, merr := attributevalue.MarshalMap(occ)
		if merr != nil {
			return fmt.Errorf("appointments: failed to marshal occurrence: %w", merr)
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(appointmentId)"),
			},
		})
		if occ.StaffID != "" {
			items = append(items, r.lockPut(occ))
		}
	}
	if len(items) > maxTransactItems {
		return fmt.Errorf("appointments: series needs %d writes, transaction limit is %d", len(items), maxTransactItems)
	}

	if _, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	}); err != nil {
		if isConditionalCancellation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("appointments: failed to persist series: %w", err)
	}
	return nil
}

func unmarshalItems(items []map[string]types.AttributeValue) ([]Appointment, error) {
	appts := make([]Appointment, 0, len(items))
	for _, item := range items {
		var appt Appointment
		if err := attributevalue.UnmarshalMap(item, &appt); err != nil {
			return nil, fmt.Errorf("appointments: failed to decode appointment: %w", err)
		}
		appts = append(appts, appt)
	}
	return appts, nil
}

// isConditionalCancellation reports whether a transaction failed because a
// condition check lost (slot already locked), as opposed to a service error.
func isConditionalCancellation(err error) bool {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) {
		return false
	}
	for _, reason := range canceled.CancellationReasons {
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}
