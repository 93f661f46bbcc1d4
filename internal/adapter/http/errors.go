package http

import (
	"errors"
	"net/http"

	domainApproval "purchase-order-backend/internal/domain/approval"
	domainOrder "purchase-order-backend/internal/domain/order"
	ucApproval "purchase-order-backend/internal/usecase/approval"
	ucOrder "purchase-order-backend/internal/usecase/order"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type errorMapping struct {
	err    error
	status int
	code   string
	msg    string
}

// Messages are shown to an approver on a phone; each failure needs its own remedy.
var errorTable = []errorMapping{
	{domainApproval.ErrTokenNotFound, http.StatusNotFound, "token_not_found", "This approval link is not valid."},
	{domainApproval.ErrTokenUsed, http.StatusConflict, "token_used", "This order was already processed with this link."},
	{domainApproval.ErrTokenExpired, http.StatusGone, "token_expired", "This approval link has expired. Ask the order owner to send a new one."},
	{domainApproval.ErrTokenSuperseded, http.StatusGone, "token_superseded", "A newer approval link was sent for this order. Please use the latest one."},
	{domainApproval.ErrOrderAlreadyResolved, http.StatusConflict, "order_already_resolved", "This order is no longer waiting for approval."},
	{domainApproval.ErrMissingReason, http.StatusUnprocessableEntity, "missing_reason", "Please tell us why the order is rejected."},
	{domainApproval.ErrInvalidState, http.StatusConflict, "invalid_state", "An approval link can only be sent while the order is pending."},
	{domainApproval.ErrUnknownAction, http.StatusUnprocessableEntity, "validation_failed", "action must be approve or reject"},
	{ucApproval.ErrMissingActor, http.StatusUnprocessableEntity, "validation_failed", "actor_name is required"},
	{domainOrder.ErrNotFound, http.StatusNotFound, "order_not_found", "order not found"},
	{domainOrder.ErrInvalidTransition, http.StatusConflict, "invalid_transition", "the order cannot move to that status"},
	{domainOrder.ErrItemsLocked, http.StatusConflict, "items_locked", "items can only change before the order is sent for approval"},
	{domainOrder.ErrNoItems, http.StatusUnprocessableEntity, "validation_failed", "the order needs at least one item"},
	{ucOrder.ErrInvalidInput, http.StatusUnprocessableEntity, "validation_failed", "invalid input"},
}

// writeError maps known failures to their status and code. Anything else is an
// infrastructure failure: logged, and reported as a retryable 500.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return c.JSON(m.status, ErrorResponse{Error: m.msg, Code: m.code})
		}
	}
	log.Error("request failed",
		zap.String("route", c.Path()),
		zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		zap.Error(err),
	)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error, please retry", Code: "internal"})
}

func badBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body", Code: "invalid_body"})
}

func validationFailed(c echo.Context, err error) error {
	return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:   "validation failed",
		Code:    "validation_failed",
		Details: ToFieldErrors(err),
	})
}
