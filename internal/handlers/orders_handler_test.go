package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/gin-gonic/gin"

	"github.com/acaidoheitor/orders-api/internal/notify"
	"github.com/acaidoheitor/orders-api/internal/orders"
	"github.com/acaidoheitor/orders-api/internal/schedule"
)

const (
	ordersTable = "pedidos"
	configTable = "configuracao"
)

var brt = time.FixedZone("BRT", -3*3600)

// mockDynamo backs both tables for the round-trip tests. Scan evaluates
// only the filter expressions the stores actually issue.
type mockDynamo struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]types.AttributeValue
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{
		tables: map[string]map[string]map[string]types.AttributeValue{
			ordersTable: {},
			configTable: {},
		},
	}
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := params.Item["id"].(*types.AttributeValueMemberS).Value
	m.tables[*params.TableName][id] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := params.Key["id"].(*types.AttributeValueMemberS).Value
	item, ok := m.tables[*params.TableName][id]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := params.Key["id"].(*types.AttributeValueMemberS).Value
	item, exists := m.tables[*params.TableName][id]
	if !exists {
		return nil, &types.ConditionalCheckFailedException{}
	}
	if v, ok := params.ExpressionAttributeValues[":new"]; ok {
		item["status"] = v
	}
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

func (m *mockDynamo) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []map[string]types.AttributeValue
	for _, item := range m.tables[*params.TableName] {
		if matchesFilter(params, item) {
			items = append(items, item)
		}
	}
	return &dyn.ScanOutput{Items: items}, nil
}

func matchesFilter(params *dyn.ScanInput, item map[string]types.AttributeValue) bool {
	if params.FilterExpression == nil {
		return true
	}
	str := func(av types.AttributeValue) string {
		if s, ok := av.(*types.AttributeValueMemberS); ok {
			return s.Value
		}
		return ""
	}
	expr := *params.FilterExpression
	switch {
	case strings.HasPrefix(expr, "#s IN"):
		for _, v := range params.ExpressionAttributeValues {
			if str(v) == str(item["status"]) {
				return true
			}
		}
		return false
	case expr == "#ts >= :start":
		return str(item["timestamp"]) >= str(params.ExpressionAttributeValues[":start"])
	case expr == "orderId = :term":
		return str(item["orderId"]) == str(params.ExpressionAttributeValues[":term"])
	case expr == "begins_with(customerName, :term)":
		return strings.HasPrefix(str(item["customerName"]), str(params.ExpressionAttributeValues[":term"]))
	}
	return false
}

// sentCall records one dispatched notification.
type sentCall struct {
	to, template string
	params       []string
}

type chanSender struct {
	ch chan sentCall
}

func (s *chanSender) SendTemplate(ctx context.Context, to, templateName string, params []string) error {
	s.ch <- sentCall{to, templateName, params}
	return nil
}

func newTestRouter(mock *mockDynamo, dispatcher *notify.Dispatcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, HandlerConfig{
		Orders:   orders.NewStore(mock, ordersTable),
		Schedule: schedule.NewService(schedule.NewStore(mock, configTable), brt),
		Notifier: dispatcher,
		Location: brt,
	})
	return r
}

func doRequest(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func insertOrder(t *testing.T, mock *mockDynamo, o orders.Order) {
	t.Helper()
	item, err := attributevalue.MarshalMap(o)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	mock.mu.Lock()
	mock.tables[ordersTable][o.ID] = item
	mock.mu.Unlock()
}

func TestLiveness(t *testing.T) {
	w := doRequest(newTestRouter(newMockDynamo(), nil), http.MethodGet, "/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "funcionando") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestCreateOrder_EmptyItemsRejected(t *testing.T) {
	mock := newMockDynamo()
	r := newTestRouter(mock, nil)

	for _, body := range []any{
		gin.H{"items": []any{}, "customer": gin.H{"name": "Maria"}},
		gin.H{"customer": gin.H{"name": "Maria"}},
	} {
		w := doRequest(r, http.MethodPost, "/orders", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	}
	if len(mock.tables[ordersTable]) != 0 {
		t.Fatalf("document persisted despite rejection")
	}
}

func TestCreateOrder_ServerValuesWin(t *testing.T) {
	mock := newMockDynamo()
	r := newTestRouter(mock, nil)

	w := doRequest(r, http.MethodPost, "/orders", gin.H{
		"items":        []gin.H{{"name": "Açaí 500ml", "quantity": 2, "price": 18}},
		"customer":     gin.H{"name": "Maria", "phone": "11987654321"},
		"deliveryMode": "entrega",
		"totals":       gin.H{"subtotal": 36, "deliveryFee": 5, "total": 41},
		"status":       "concluido",
		"orderId":      "999999",
		"timestamp":    "1999-01-01T00:00:00Z",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Message string       `json:"message"`
		ID      string       `json:"id"`
		Data    orders.Order `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID == "" {
		t.Fatalf("missing id in response")
	}
	if resp.Data.Status != orders.StatusNew {
		t.Fatalf("status = %s, want %s", resp.Data.Status, orders.StatusNew)
	}
	if len(resp.Data.OrderID) != 6 || resp.Data.OrderID == "999999" {
		t.Fatalf("orderId = %s, want server-derived 6-digit code", resp.Data.OrderID)
	}
	if resp.Data.Timestamp.Year() == 1999 {
		t.Fatalf("client timestamp accepted")
	}
	if len(mock.tables[ordersTable]) != 1 {
		t.Fatalf("expected 1 persisted document")
	}
}

func TestGetOrder_ReducedProjection(t *testing.T) {
	mock := newMockDynamo()
	r := newTestRouter(mock, nil)
	insertOrder(t, mock, orders.Order{
		ID:           "doc-1",
		OrderID:      "123456",
		Status:       orders.StatusPreparing,
		DeliveryMode: orders.ModePickup,
		Customer:     orders.Customer{Name: "Maria", Phone: "11987654321"},
		CustomerName: "Maria",
		Totals:       orders.Totals{Total: 41},
		Timestamp:    time.Now().UTC().Truncate(time.Second),
	})

	w := doRequest(r, http.MethodGet, "/orders/doc-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var got map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("projection leaked fields: %v", got)
	}
	for _, k := range []string{"status", "orderId", "deliveryMode"} {
		if _, ok := got[k]; !ok {
			t.Fatalf("missing %s in projection", k)
		}
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	w := doRequest(newTestRouter(newMockDynamo(), nil), http.MethodGet, "/orders/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestUpdateStatus_MissingStatusRejected(t *testing.T) {
	mock := newMockDynamo()
	r := newTestRouter(mock, nil)
	insertOrder(t, mock, orders.Order{ID: "doc-1", Status: orders.StatusNew, Timestamp: time.Now().UTC()})

	for _, body := range []any{nil, gin.H{}, gin.H{"status": ""}} {
		w := doRequest(r, http.MethodPatch, "/orders/doc-1", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	w := doRequest(newTestRouter(newMockDynamo(), nil), http.MethodPatch, "/orders/missing", gin.H{"status": orders.StatusPreparing})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestUpdateStatus_UpdatesAndNotifies(t *testing.T) {
	mock := newMockDynamo()
	sender := &chanSender{ch: make(chan sentCall, 1)}
	dispatcher := notify.NewDispatcher(sender, notify.DefaultPolicy(), nil)
	r := newTestRouter(mock, dispatcher)

	insertOrder(t, mock, orders.Order{
		ID:        "doc-1",
		OrderID:   "123456",
		Status:    orders.StatusPreparing,
		Customer:  orders.Customer{Name: "Maria", Phone: "11987654321"},
		Timestamp: time.Now().UTC().Truncate(time.Second),
	})

	w := doRequest(r, http.MethodPatch, "/orders/doc-1", gin.H{"status": orders.StatusOutForDelivery})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	item := mock.tables[ordersTable]["doc-1"]
	if got := item["status"].(*types.AttributeValueMemberS).Value; got != orders.StatusOutForDelivery {
		t.Fatalf("stored status = %s", got)
	}

	select {
	case sent := <-sender.ch:
		if sent.template != "pedido_saiu_entrega" {
			t.Fatalf("template = %s", sent.template)
		}
		if len(sent.params) != 1 || sent.params[0] != "Maria" {
			t.Fatalf("params = %v", sent.params)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("notification never dispatched")
	}
}

func TestActiveOrders_FilterAndOrder(t *testing.T) {
	mock := newMockDynamo()
	r := newTestRouter(mock, nil)
	base := time.Date(2025, 8, 10, 12, 0, 0, 0, time.UTC)

	insertOrder(t, mock, orders.Order{ID: "late", Status: orders.StatusReadyForPickup, Timestamp: base.Add(time.Hour)})
	insertOrder(t, mock, orders.Order{ID: "early", Status: orders.StatusNew, Timestamp: base})
	insertOrder(t, mock, orders.Order{ID: "done", Status: orders.StatusCompleted, Timestamp: base.Add(30 * time.Minute)})

	w := doRequest(r, http.MethodGet, "/active-orders", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var docs []orders.Document
	if err := json.Unmarshal(w.Body.Bytes(), &docs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 active orders, got %d", len(docs))
	}
	if docs[0].ID != "early" || docs[1].ID != "late" {
		t.Fatalf("wrong order: %s, %s", docs[0].ID, docs[1].ID)
	}
}

func TestDashboardStats_ZeroCompleted(t *testing.T) {
	mock := newMockDynamo()
	r := newTestRouter(mock, nil)
	insertOrder(t, mock, orders.Order{ID: "doc-1", Status: orders.StatusNew, Timestamp: time.Now().UTC().Truncate(time.Second)})

	w := doRequest(r, http.MethodGet, "/dashboard-stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var stats orders.DashboardStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.AverageTicket != 0 || stats.TotalRevenue != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.TodaysOrdersCount != 1 {
		t.Fatalf("todaysOrdersCount = %d, want 1", stats.TodaysOrdersCount)
	}
}

func TestSearch_BlankTermRejected(t *testing.T) {
	r := newTestRouter(newMockDynamo(), nil)
	for _, path := range []string{"/search", "/search?term=", "/search?term=%20%20"} {
		w := doRequest(r, http.MethodGet, path, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", path, w.Code)
		}
	}
}

func TestSearch_MatchesCodeAndNamePrefix(t *testing.T) {
	mock := newMockDynamo()
	r := newTestRouter(mock, nil)
	now := time.Now().UTC().Truncate(time.Second)

	insertOrder(t, mock, orders.Order{ID: "by-code", OrderID: "424242", CustomerName: "Pedro", Status: orders.StatusNew, Timestamp: now})
	insertOrder(t, mock, orders.Order{ID: "by-name", OrderID: "111111", CustomerName: "424242 Pizzaria", Status: orders.StatusNew, Timestamp: now})
	insertOrder(t, mock, orders.Order{ID: "unrelated", OrderID: "222222", CustomerName: "Ana", Status: orders.StatusNew, Timestamp: now})

	w := doRequest(r, http.MethodGet, "/search?term=424242", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var docs []orders.Document
	if err := json.Unmarshal(w.Body.Bytes(), &docs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 results, got %d", len(docs))
	}
	found := map[string]bool{}
	for _, d := range docs {
		found[d.ID] = true
	}
	if !found["by-code"] || !found["by-name"] {
		t.Fatalf("missing expected results: %v", found)
	}
}

func TestStoreStatus_NoDocumentMeansClosed(t *testing.T) {
	w := doRequest(newTestRouter(newMockDynamo(), nil), http.MethodGet, "/store-status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != schedule.StatusClosed {
		t.Fatalf("status = %s, want %s", resp["status"], schedule.StatusClosed)
	}
}

func TestStoreStatus_ClosedFlag(t *testing.T) {
	mock := newMockDynamo()
	days := map[string]schedule.DaySchedule{}
	for _, k := range []string{"domingo", "segunda", "terca", "quarta", "quinta", "sexta", "sabado"} {
		days[k] = schedule.DaySchedule{IsClosed: true, Open: "09:00", Close: "22:00"}
	}
	item, err := attributevalue.MarshalMap(schedule.OperatingHours{ID: "horarios", Days: days})
	if err != nil {
		t.Fatalf("marshal hours: %v", err)
	}
	mock.tables[configTable]["horarios"] = item

	w := doRequest(newTestRouter(mock, nil), http.MethodGet, "/store-status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), schedule.StatusClosed) {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestListOrders_EmptyIsArray(t *testing.T) {
	w := doRequest(newTestRouter(newMockDynamo(), nil), http.MethodGet, "/orders", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Fatalf("body = %s, want []", got)
	}
}
