package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/acaidoheitor/orders-api/internal/aws"
)

// ErrNotFound indicates the identifier has no matching document.
var ErrNotFound = errors.New("order not found")

// Store encapsulates operations on the orders table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
	idFunc    func() string
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
		idFunc:    uuid.NewString,
	}
}

// orderCode derives the short human-facing code from a creation instant:
// the last six digits of the unix-millisecond timestamp.
func orderCode(t time.Time) string {
	ms := strconv.FormatInt(t.UnixMilli(), 10)
	return ms[len(ms)-6:]
}

// Create persists a new order. The id, orderId, status and timestamp fields
// are always server-assigned here; whatever the caller put in them is
// discarded. Timestamps are stored at second precision in UTC so the
// marshaled RFC3339 strings compare in chronological order.
func (s *Store) Create(ctx context.Context, o Order) (Order, error) {
	now := s.nowFunc()
	o.ID = s.idFunc()
	o.OrderID = orderCode(now)
	o.Status = StatusNew
	o.Timestamp = now.UTC().Truncate(time.Second)
	if o.CustomerName == "" {
		o.CustomerName = o.Customer.Name
	}

	item, err := attributevalue.MarshalMap(o)
	if err != nil {
		return Order{}, fmt.Errorf("marshal order: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return Order{}, fmt.Errorf("put item: %w", err)
	}
	return o, nil
}

// Get fetches an order by its document id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, id string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// UpdateStatus updates only the status attribute of an existing document.
// Returns ErrNotFound when no document has the id; the existence condition
// makes the not-found check and the write a single round trip.
func (s *Store) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:         awsString("SET #s = :new"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new": &types.AttributeValueMemberS{Value: status},
		},
		ConditionExpression: awsString("attribute_exists(id)"),
	})
	if err != nil {
		var ae smithy.APIError
		if errors.As(err, &ae) && ae.ErrorCode() == "ConditionalCheckFailedException" {
			return ErrNotFound
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// List returns every order, newest first.
func (s *Store) List(ctx context.Context) ([]Document, error) {
	docs, err := s.scan(ctx, &dyn.ScanInput{TableName: &s.tableName})
	if err != nil {
		return nil, err
	}
	sortByTimestamp(docs, false)
	return docs, nil
}

// ListActive returns orders still requiring attention, oldest first so the
// panel works the queue in FIFO order.
func (s *Store) ListActive(ctx context.Context) ([]Document, error) {
	names := map[string]string{"#s": "status"}
	values := map[string]types.AttributeValue{}
	expr := "#s IN ("
	for i, st := range ActiveStatuses {
		ph := fmt.Sprintf(":s%d", i)
		if i > 0 {
			expr += ", "
		}
		expr += ph
		values[ph] = &types.AttributeValueMemberS{Value: st}
	}
	expr += ")"

	docs, err := s.scan(ctx, &dyn.ScanInput{
		TableName:                 &s.tableName,
		FilterExpression:          &expr,
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return nil, err
	}
	sortByTimestamp(docs, true)
	return docs, nil
}

// ListSince returns all orders created at or after the given instant.
func (s *Store) ListSince(ctx context.Context, since time.Time) ([]Document, error) {
	start, err := attributevalue.Marshal(since.UTC())
	if err != nil {
		return nil, fmt.Errorf("marshal boundary: %w", err)
	}
	return s.scan(ctx, &dyn.ScanInput{
		TableName:                &s.tableName,
		FilterExpression:         awsString("#ts >= :start"),
		ExpressionAttributeNames: map[string]string{"#ts": "timestamp"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":start": start,
		},
	})
}

// Search runs the two lookups concurrently: exact match on the short order
// code and a starts-with match on the customer name. Both must succeed;
// results are unioned by document id in arrival order.
func (s *Store) Search(ctx context.Context, term string) ([]Document, error) {
	type result struct {
		docs []Document
		err  error
	}
	byCode := make(chan result, 1)
	byName := make(chan result, 1)

	go func() {
		docs, err := s.searchByCode(ctx, term)
		byCode <- result{docs, err}
	}()
	go func() {
		docs, err := s.searchByNamePrefix(ctx, term)
		byName <- result{docs, err}
	}()

	rc, rn := <-byCode, <-byName
	if rc.err != nil {
		return nil, rc.err
	}
	if rn.err != nil {
		return nil, rn.err
	}

	seen := map[string]bool{}
	out := make([]Document, 0, len(rc.docs)+len(rn.docs))
	for _, d := range append(rc.docs, rn.docs...) {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		out = append(out, d)
	}
	return out, nil
}

func (s *Store) searchByCode(ctx context.Context, term string) ([]Document, error) {
	return s.scan(ctx, &dyn.ScanInput{
		TableName:        &s.tableName,
		FilterExpression: awsString("orderId = :term"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":term": &types.AttributeValueMemberS{Value: term},
		},
	})
}

func (s *Store) searchByNamePrefix(ctx context.Context, term string) ([]Document, error) {
	docs, err := s.scan(ctx, &dyn.ScanInput{
		TableName:        &s.tableName,
		FilterExpression: awsString("begins_with(customerName, :term)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":term": &types.AttributeValueMemberS{Value: term},
		},
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Data.CustomerName < docs[j].Data.CustomerName
	})
	return docs, nil
}

// scan pages through the table applying the given input, unmarshaling every
// item into a Document.
func (s *Store) scan(ctx context.Context, input *dyn.ScanInput) ([]Document, error) {
	var docs []Document
	for {
		out, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		for _, item := range out.Items {
			var o Order
			if err := attributevalue.UnmarshalMap(item, &o); err != nil {
				return nil, fmt.Errorf("unmarshal order: %w", err)
			}
			docs = append(docs, Document{ID: o.ID, Data: o})
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	return docs, nil
}

func sortByTimestamp(docs []Document, ascending bool) {
	sort.SliceStable(docs, func(i, j int) bool {
		if ascending {
			return docs[i].Data.Timestamp.Before(docs[j].Data.Timestamp)
		}
		return docs[i].Data.Timestamp.After(docs[j].Data.Timestamp)
	})
}

func awsString(s string) *string { return &s }
