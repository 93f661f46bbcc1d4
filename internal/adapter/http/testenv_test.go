package http

import (
	"bytes"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"purchase-order-backend/internal/adapter/sharelink"
	"purchase-order-backend/internal/testutil/memstore"
	ucApproval "purchase-order-backend/internal/usecase/approval"
	ucOrder "purchase-order-backend/internal/usecase/order"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// testEnv wires the real usecases over an in-memory store behind the router.
type testEnv struct {
	e         *echo.Echo
	store     *memstore.Store
	orders    *ucOrder.Usecase
	approvals *ucApproval.Usecase
	now       time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithRedis(t, nil)
}

func newTestEnvWithRedis(t *testing.T, rdb *redis.Client) *testEnv {
	t.Helper()
	env := &testEnv{store: memstore.New(), now: time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return env.now }
	repos := env.store.Repos()

	env.orders = ucOrder.NewUsecase(repos.Orders, env.store, ucOrder.WithClock(clock))
	env.approvals = ucApproval.NewUsecase(repos.Orders, repos.Tokens, env.store,
		sharelink.New("https://po.example.com", ""), ucApproval.WithClock(clock))

	env.e = NewRouter(RouterConfig{
		Health:         NewHandler(),
		Orders:         NewOrderHandler(env.orders, nil),
		Approvals:      NewApprovalHandler(env.approvals, nil),
		Redis:          rdb,
		IdempotencyTTL: time.Minute,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	})
	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("bad json: %v; raw=%s", err, rec.Body.String())
	}
	return v
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) ErrorResponse {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d; body=%s", rec.Code, status, rec.Body.String())
	}
	er := decode[ErrorResponse](t, rec)
	if er.Code != code {
		t.Fatalf("code = %q, want %q (error=%q)", er.Code, code, er.Error)
	}
	return er
}

func sampleOrderBody() map[string]any {
	return map[string]any{
		"supplier_name": "Ferreteria Central",
		"requested_by":  "Ana Rojas",
		"items": []map[string]any{
			{"description": "Cemento 25kg", "quantity": 3, "unit_price": "4990.50"},
			{"description": "Clavos 2in", "quantity": "0.5", "unit_price": 3000},
		},
	}
}

// createOrder posts a valid order and returns its id and number.
func (env *testEnv) createOrder(t *testing.T) (string, string) {
	t.Helper()
	rec := env.do(t, stdhttp.MethodPost, "/orders", sampleOrderBody(), nil)
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("create order: %d %s", rec.Code, rec.Body.String())
	}
	dto := decode[ucOrder.OrderDTO](t, rec)
	return dto.ID, dto.Number
}

// issueToken asks for an approval link and returns the token.
func (env *testEnv) issueToken(t *testing.T, orderID string) ucApproval.IssueResult {
	t.Helper()
	rec := env.do(t, stdhttp.MethodPost, "/orders/"+orderID+"/approval-token", nil, nil)
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("issue token: %d %s", rec.Code, rec.Body.String())
	}
	return decode[ucApproval.IssueResult](t, rec)
}

func containsFieldMsg(list []FieldError, field, substr string) bool {
	for _, e := range list {
		if e.Field == field && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
