// Package schedule reads the operating-hours configuration document and
// answers whether the store is currently open.
package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acaidoheitor/orders-api/internal/aws"
)

// Store statuses on the wire.
const (
	StatusOpen   = "aberta"
	StatusClosed = "fechada"
)

// documentID is the fixed key of the operating-hours document in the
// config table. Its lifecycle is owned by the content-management process;
// this service only reads it.
const documentID = "horarios"

// DaySchedule is one weekday's entry of the operating-hours document.
type DaySchedule struct {
	IsClosed bool   `dynamodbav:"isClosed" json:"isClosed"`
	Open     string `dynamodbav:"open" json:"open"`   // "HH:MM"
	Close    string `dynamodbav:"close" json:"close"` // "HH:MM"
}

// OperatingHours maps weekday keys (domingo..sabado) to their schedule.
type OperatingHours struct {
	ID   string                 `dynamodbav:"id"`
	Days map[string]DaySchedule `dynamodbav:"days"`
}

var weekdayKeys = [...]string{"domingo", "segunda", "terca", "quarta", "quinta", "sexta", "sabado"}

// WeekdayKey maps a time.Weekday to the document's weekday key.
func WeekdayKey(d time.Weekday) string {
	return weekdayKeys[int(d)]
}

// Service resolves the current store status in the business timezone.
type Service struct {
	store   *Store
	loc     *time.Location
	nowFunc func() time.Time
}

// NewService builds a Service anchored to the business timezone.
func NewService(store *Store, loc *time.Location) *Service {
	return &Service{store: store, loc: loc, nowFunc: time.Now}
}

// Status reports "aberta" or "fechada". A missing document, a missing
// weekday entry, an isClosed flag or an unparseable time all mean closed;
// only store errors propagate.
func (s *Service) Status(ctx context.Context) (string, error) {
	hours, err := s.store.Get(ctx)
	if err != nil {
		return "", err
	}
	if hours == nil {
		return StatusClosed, nil
	}
	if s.openAt(hours, s.nowFunc().In(s.loc)) {
		return StatusOpen, nil
	}
	return StatusClosed, nil
}

// openAt applies the half-open interval open <= now < close, all three as
// minutes since midnight. Exactly at closing time counts as closed.
func (s *Service) openAt(hours *OperatingHours, now time.Time) bool {
	day, ok := hours.Days[WeekdayKey(now.Weekday())]
	if !ok || day.IsClosed {
		return false
	}
	open, err := minutesOfDay(day.Open)
	if err != nil {
		return false
	}
	closeAt, err := minutesOfDay(day.Close)
	if err != nil {
		return false
	}
	current := now.Hour()*60 + now.Minute()
	return open <= current && current < closeAt
}

// minutesOfDay parses "HH:MM" into minutes since midnight.
func minutesOfDay(hhmm string) (int, error) {
	h, m, ok := strings.Cut(hhmm, ":")
	if !ok {
		return 0, fmt.Errorf("malformed time %q", hhmm)
	}
	hours, err := strconv.Atoi(h)
	if err != nil {
		return 0, fmt.Errorf("malformed hours in %q: %w", hhmm, err)
	}
	minutes, err := strconv.Atoi(m)
	if err != nil {
		return 0, fmt.Errorf("malformed minutes in %q: %w", hhmm, err)
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("time %q out of range", hhmm)
	}
	return hours*60 + minutes, nil
}

// Store reads the operating-hours document from the config table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
}

// NewStore creates a config-table Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName}
}

// Get fetches the operating-hours document. Returns (nil, nil) if absent.
func (s *Store) Get(ctx context.Context) (*OperatingHours, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: documentID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var hours OperatingHours
	if err := attributevalue.UnmarshalMap(out.Item, &hours); err != nil {
		return nil, fmt.Errorf("unmarshal operating hours: %w", err)
	}
	return &hours, nil
}
