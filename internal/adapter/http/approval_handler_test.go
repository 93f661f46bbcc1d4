package http

import (
	"context"
	"errors"
	stdhttp "net/http"
	"strings"
	"testing"
	"time"

	"purchase-order-backend/internal/adapter/middleware"
	"purchase-order-backend/internal/adapter/sharelink"
	domainApproval "purchase-order-backend/internal/domain/approval"
	"purchase-order-backend/internal/testutil/approvalmock"
	"purchase-order-backend/internal/testutil/ordermock"
	"purchase-order-backend/internal/testutil/uowmock"
	ucApproval "purchase-order-backend/internal/usecase/approval"
	ucOrder "purchase-order-backend/internal/usecase/order"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func resolveBody(token, action string, extra map[string]any) map[string]any {
	b := map[string]any{"token": token, "action": action, "actor_name": "Jane"}
	for k, v := range extra {
		b[k] = v
	}
	return b
}

func TestApprovalFlow_ApproveOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	orderID, number := env.createOrder(t)

	issued := env.issueToken(t, orderID)
	if len(issued.Token) != 64 || !strings.HasSuffix(issued.URL, "token="+issued.Token) {
		t.Fatalf("unexpected issue result: %+v", issued)
	}
	if issued.Order.Status != "in_review" {
		t.Fatalf("order status = %s, want in_review", issued.Order.Status)
	}

	rec := env.do(t, stdhttp.MethodGet, "/approval-order?token="+issued.Token, nil, nil)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("review: %d %s", rec.Code, rec.Body.String())
	}
	review := decode[ucApproval.ReviewDTO](t, rec)
	if review.Order.Number != number || len(review.Order.Items) != 2 {
		t.Fatalf("unexpected review: %+v", review)
	}

	rec = env.do(t, stdhttp.MethodPost, "/approval-order/resolve", resolveBody(issued.Token, "approve", map[string]any{"note": "ok"}), nil)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("resolve: %d %s", rec.Code, rec.Body.String())
	}
	resolved := decode[ucApproval.ResolvedDTO](t, rec)
	if resolved.Order.Status != "approved" || resolved.Order.ApprovedBy == nil || *resolved.Order.ApprovedBy != "Jane" {
		t.Fatalf("unexpected resolved order: %+v", resolved.Order)
	}

	rec = env.do(t, stdhttp.MethodPost, "/approval-order/resolve", resolveBody(issued.Token, "reject", map[string]any{"reason": "late"}), nil)
	expectError(t, rec, stdhttp.StatusConflict, "token_used")

	rec = env.do(t, stdhttp.MethodGet, "/approval-order?token="+issued.Token, nil, nil)
	expectError(t, rec, stdhttp.StatusConflict, "token_used")
}

func TestReviewOrder_TypedFailures(t *testing.T) {
	env := newTestEnv(t)
	orderID, _ := env.createOrder(t)
	old := env.issueToken(t, orderID)
	env.now = env.now.Add(time.Hour)
	current := env.issueToken(t, orderID)

	rec := env.do(t, stdhttp.MethodGet, "/approval-order", nil, nil)
	er := expectError(t, rec, stdhttp.StatusUnprocessableEntity, "validation_failed")
	if !containsFieldMsg(er.Details, "token", "required") {
		t.Fatalf("expected token detail, got %+v", er.Details)
	}

	expectError(t, env.do(t, stdhttp.MethodGet, "/approval-order?token=abc", nil, nil), stdhttp.StatusNotFound, "token_not_found")
	expectError(t, env.do(t, stdhttp.MethodGet, "/approval-order?token="+strings.Repeat("f", 64), nil, nil), stdhttp.StatusNotFound, "token_not_found")
	expectError(t, env.do(t, stdhttp.MethodGet, "/approval-order?token="+old.Token, nil, nil), stdhttp.StatusGone, "token_superseded")

	env.now = current.ExpiresAt.Add(time.Second)
	er = expectError(t, env.do(t, stdhttp.MethodGet, "/approval-order?token="+current.Token, nil, nil), stdhttp.StatusGone, "token_expired")
	if !strings.Contains(er.Error, "expired") {
		t.Fatalf("expired message should say so: %q", er.Error)
	}
}

func TestReviewOrder_CancelledOrderLink(t *testing.T) {
	env := newTestEnv(t)
	orderID, _ := env.createOrder(t)
	issued := env.issueToken(t, orderID)

	if rec := env.do(t, stdhttp.MethodPost, "/orders/"+orderID+"/cancel", nil, nil); rec.Code != stdhttp.StatusOK {
		t.Fatalf("cancel: %d %s", rec.Code, rec.Body.String())
	}
	expectError(t, env.do(t, stdhttp.MethodGet, "/approval-order?token="+issued.Token, nil, nil), stdhttp.StatusConflict, "order_already_resolved")
}

func TestResolve_Validation(t *testing.T) {
	env := newTestEnv(t)
	orderID, _ := env.createOrder(t)
	issued := env.issueToken(t, orderID)

	t.Run("reject without reason", func(t *testing.T) {
		rec := env.do(t, stdhttp.MethodPost, "/approval-order/resolve", resolveBody(issued.Token, "reject", nil), nil)
		expectError(t, rec, stdhttp.StatusUnprocessableEntity, "missing_reason")
	})
	t.Run("approve with reason", func(t *testing.T) {
		rec := env.do(t, stdhttp.MethodPost, "/approval-order/resolve", resolveBody(issued.Token, "approve", map[string]any{"reason": "x"}), nil)
		er := expectError(t, rec, stdhttp.StatusUnprocessableEntity, "validation_failed")
		if !containsFieldMsg(er.Details, "reason", "only allowed when action is reject") {
			t.Fatalf("details: %+v", er.Details)
		}
	})
	t.Run("reject with note", func(t *testing.T) {
		rec := env.do(t, stdhttp.MethodPost, "/approval-order/resolve", resolveBody(issued.Token, "reject", map[string]any{"reason": "x", "note": "y"}), nil)
		expectError(t, rec, stdhttp.StatusUnprocessableEntity, "validation_failed")
	})
	t.Run("unknown action", func(t *testing.T) {
		rec := env.do(t, stdhttp.MethodPost, "/approval-order/resolve", resolveBody(issued.Token, "maybe", nil), nil)
		er := expectError(t, rec, stdhttp.StatusUnprocessableEntity, "validation_failed")
		if !containsFieldMsg(er.Details, "action", "one of") {
			t.Fatalf("details: %+v", er.Details)
		}
	})
	t.Run("missing actor", func(t *testing.T) {
		body := resolveBody(issued.Token, "approve", nil)
		delete(body, "actor_name")
		er := expectError(t, env.do(t, stdhttp.MethodPost, "/approval-order/resolve", body, nil), stdhttp.StatusUnprocessableEntity, "validation_failed")
		if !containsFieldMsg(er.Details, "actor_name", "is required") {
			t.Fatalf("details: %+v", er.Details)
		}
	})
	t.Run("malformed token", func(t *testing.T) {
		rec := env.do(t, stdhttp.MethodPost, "/approval-order/resolve", resolveBody("not-a-token", "approve", nil), nil)
		expectError(t, rec, stdhttp.StatusNotFound, "token_not_found")
	})
	t.Run("malformed token among other failures", func(t *testing.T) {
		body := resolveBody("not-a-token", "approve", nil)
		delete(body, "actor_name")
		er := expectError(t, env.do(t, stdhttp.MethodPost, "/approval-order/resolve", body, nil), stdhttp.StatusUnprocessableEntity, "validation_failed")
		if !containsFieldMsg(er.Details, "token", "64-char lowercase hex") || !containsFieldMsg(er.Details, "actor_name", "is required") {
			t.Fatalf("details: %+v", er.Details)
		}
	})
	t.Run("broken json", func(t *testing.T) {
		rec := env.do(t, stdhttp.MethodPost, "/approval-order/resolve", `{"token":`, nil)
		expectError(t, rec, stdhttp.StatusBadRequest, "invalid_body")
	})

	// none of the above consumed the token
	rec := env.do(t, stdhttp.MethodGet, "/approval-order?token="+issued.Token, nil, nil)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("token should still be valid: %d %s", rec.Code, rec.Body.String())
	}
}

func TestResolve_RejectOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	orderID, _ := env.createOrder(t)
	issued := env.issueToken(t, orderID)

	rec := env.do(t, stdhttp.MethodPost, "/approval-order/resolve", resolveBody(issued.Token, "reject", map[string]any{"reason": "price too high"}), nil)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("resolve: %d %s", rec.Code, rec.Body.String())
	}
	out := decode[ucApproval.ResolvedDTO](t, rec)
	if out.Action != domainApproval.ActionReject || out.Order.Status != "rejected" ||
		out.Order.RejectionReason == nil || *out.Order.RejectionReason != "price too high" {
		t.Fatalf("unexpected: %+v", out)
	}
}

func TestResolve_ExpiredOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	orderID, _ := env.createOrder(t)
	issued := env.issueToken(t, orderID)

	env.now = issued.ExpiresAt.Add(time.Minute)
	rec := env.do(t, stdhttp.MethodPost, "/approval-order/resolve", resolveBody(issued.Token, "approve", nil), nil)
	expectError(t, rec, stdhttp.StatusGone, "token_expired")
}

func TestIssueToken_Failures(t *testing.T) {
	env := newTestEnv(t)
	orderID, _ := env.createOrder(t)
	issued := env.issueToken(t, orderID)
	if rec := env.do(t, stdhttp.MethodPost, "/approval-order/resolve", resolveBody(issued.Token, "approve", nil), nil); rec.Code != stdhttp.StatusOK {
		t.Fatalf("resolve: %d", rec.Code)
	}

	rec := env.do(t, stdhttp.MethodPost, "/orders/"+orderID+"/approval-token", nil, nil)
	expectError(t, rec, stdhttp.StatusConflict, "invalid_state")

	rec = env.do(t, stdhttp.MethodPost, "/orders/00000000-0000-4000-8000-000000000000/approval-token", nil, nil)
	expectError(t, rec, stdhttp.StatusNotFound, "order_not_found")

	rec = env.do(t, stdhttp.MethodPost, "/orders/"+orderID+"/approval-token", map[string]string{"phone": "call me"}, nil)
	er := expectError(t, rec, stdhttp.StatusUnprocessableEntity, "validation_failed")
	if !containsFieldMsg(er.Details, "phone", "phone number") {
		t.Fatalf("details: %+v", er.Details)
	}
}

func TestIssueToken_WithPhone(t *testing.T) {
	env := newTestEnv(t)
	orderID, _ := env.createOrder(t)

	rec := env.do(t, stdhttp.MethodPost, "/orders/"+orderID+"/approval-token", map[string]string{"phone": "+56 9 8765 4321"}, nil)
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("issue: %d %s", rec.Code, rec.Body.String())
	}
	res := decode[ucApproval.IssueResult](t, rec)
	if !strings.HasPrefix(res.WhatsAppURL, "https://wa.me/56987654321?text=") {
		t.Fatalf("whatsapp url = %q", res.WhatsAppURL)
	}
}

func TestResolve_InfrastructureFailureIs500(t *testing.T) {
	tokens := &approvalmock.Repo{
		GetByTokenFn: func(ctx context.Context, token string) (*domainApproval.Token, error) {
			return nil, errors.New("connection refused")
		},
	}
	orders := &ordermock.Repo{}
	approvals := ucApproval.NewUsecase(orders, tokens, &uowmock.UoW{}, sharelink.New("https://x", ""))
	e := NewRouter(RouterConfig{
		Health:         NewHandler(),
		Orders:         NewOrderHandler(ucOrder.NewUsecase(orders, &uowmock.UoW{}), nil),
		Approvals:      NewApprovalHandler(approvals, nil),
		RateLimitRPS:   10,
		RateLimitBurst: 10,
	})
	env := &testEnv{e: e}

	rec := env.do(t, stdhttp.MethodPost, "/approval-order/resolve", resolveBody(strings.Repeat("a", 64), "approve", nil), nil)
	er := expectError(t, rec, stdhttp.StatusInternalServerError, "internal")
	if strings.Contains(er.Error, "connection refused") {
		t.Fatalf("internal details must not leak: %q", er.Error)
	}
}

func TestResolve_RetryWithSameRequestIDIsReplayed(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	env := newTestEnvWithRedis(t, redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	hdr := map[string]string{
		middleware.HeaderRequestID: strings.Repeat("c", 32),
		middleware.HeaderRequestAt: time.Now().UTC().Format(time.RFC3339),
	}
	rec := env.do(t, stdhttp.MethodPost, "/orders", sampleOrderBody(), hdr)
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	orderID := decode[ucOrder.OrderDTO](t, rec).ID

	hdr[middleware.HeaderRequestID] = strings.Repeat("d", 32)
	rec = env.do(t, stdhttp.MethodPost, "/orders/"+orderID+"/approval-token", nil, hdr)
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("issue: %d %s", rec.Code, rec.Body.String())
	}
	token := decode[ucApproval.IssueResult](t, rec).Token

	hdr[middleware.HeaderRequestID] = strings.Repeat("e", 32)
	body := resolveBody(token, "approve", nil)
	first := env.do(t, stdhttp.MethodPost, "/approval-order/resolve", body, hdr)
	second := env.do(t, stdhttp.MethodPost, "/approval-order/resolve", body, hdr)
	if first.Code != stdhttp.StatusOK || second.Code != stdhttp.StatusOK {
		t.Fatalf("want 200/200, got %d/%d: %s", first.Code, second.Code, second.Body.String())
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("retry must replay the first response")
	}

	// a new request id is a new submission and loses
	hdr[middleware.HeaderRequestID] = strings.Repeat("f", 32)
	expectError(t, env.do(t, stdhttp.MethodPost, "/approval-order/resolve", body, hdr), stdhttp.StatusConflict, "token_used")
}

func TestResolve_BodyOnlyWithRedisConfigured(t *testing.T) {
	mr := miniredis.RunT(t)
	env := newTestEnvWithRedis(t, redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	hdr := map[string]string{
		middleware.HeaderRequestID: strings.Repeat("a", 32),
		middleware.HeaderRequestAt: time.Now().UTC().Format(time.RFC3339),
	}
	rec := env.do(t, stdhttp.MethodPost, "/orders", sampleOrderBody(), hdr)
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	orderID := decode[ucOrder.OrderDTO](t, rec).ID

	hdr[middleware.HeaderRequestID] = strings.Repeat("b", 32)
	rec = env.do(t, stdhttp.MethodPost, "/orders/"+orderID+"/approval-token", nil, hdr)
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("issue: %d %s", rec.Code, rec.Body.String())
	}
	token := decode[ucApproval.IssueResult](t, rec).Token

	// the approver page posts only the body
	rec = env.do(t, stdhttp.MethodPost, "/approval-order/resolve", resolveBody(token, "approve", nil), nil)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("body-only resolve: %d %s", rec.Code, rec.Body.String())
	}

	expectError(t, env.do(t, stdhttp.MethodPost, "/approval-order/resolve", resolveBody(token, "approve", nil), nil), stdhttp.StatusConflict, "token_used")
}
