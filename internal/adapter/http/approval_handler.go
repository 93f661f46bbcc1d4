package http

import (
	"net/http"

	domainApproval "purchase-order-backend/internal/domain/approval"
	domainOrder "purchase-order-backend/internal/domain/order"
	ucApproval "purchase-order-backend/internal/usecase/approval"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ApprovalHandler struct {
	uc  *ucApproval.Usecase
	log *zap.Logger
}

func NewApprovalHandler(uc *ucApproval.Usecase, log *zap.Logger) *ApprovalHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ApprovalHandler{uc: uc, log: log}
}

type issueTokenReq struct {
	Phone string `json:"phone" validate:"omitempty,phone"`
}

type reviewQuery struct {
	Token string `json:"token" validate:"required,hex64"`
}

type resolveReq struct {
	Token     string `json:"token"      validate:"required,hex64"`
	Action    string `json:"action"     validate:"required,oneof=approve reject"`
	ActorName string `json:"actor_name" validate:"required,max=120"`
	ActorID   string `json:"actor_id"   validate:"omitempty,max=64"`
	// Reason belongs to reject, Note to approve.
	Reason string `json:"reason" validate:"max=2000"`
	Note   string `json:"note"   validate:"max=2000"`
}

// decision turns the flat body into the Approve/Reject union, refusing fields
// that do not belong to the chosen action.
func (r resolveReq) decision() (domainApproval.Decision, []FieldError) {
	switch domainApproval.Action(r.Action) {
	case domainApproval.ActionApprove:
		if r.Reason != "" {
			return nil, []FieldError{{Field: "reason", Message: "only allowed when action is reject"}}
		}
		return domainApproval.Approve{Note: r.Note}, nil
	case domainApproval.ActionReject:
		if r.Note != "" {
			return nil, []FieldError{{Field: "note", Message: "only allowed when action is approve"}}
		}
		return domainApproval.Reject{Reason: r.Reason}, nil
	}
	return nil, []FieldError{{Field: "action", Message: "must be one of: approve reject"}}
}

// IssueToken handles POST /orders/:id/approval-token.
func (h *ApprovalHandler) IssueToken(c echo.Context) error {
	id, err := pathOrderID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req issueTokenReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}
	res, err := h.uc.Issue(c.Request().Context(), id, ucApproval.IssueOptions{Phone: req.Phone})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// ReviewOrder handles GET /approval-order?token=.
func (h *ApprovalHandler) ReviewOrder(c echo.Context) error {
	q := reviewQuery{Token: c.QueryParam("token")}
	if err := c.Validate(&q); err != nil {
		if onlyMalformedToken(err) {
			return writeError(c, h.log, domainApproval.ErrTokenNotFound)
		}
		return validationFailed(c, err)
	}
	dto, err := h.uc.Validate(c.Request().Context(), q.Token)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// Resolve handles POST /approval-order/resolve.
func (h *ApprovalHandler) Resolve(c echo.Context) error {
	var req resolveReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if err := c.Validate(&req); err != nil {
		if onlyMalformedToken(err) {
			return writeError(c, h.log, domainApproval.ErrTokenNotFound)
		}
		return validationFailed(c, err)
	}
	d, details := req.decision()
	if details != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Code: "validation_failed", Details: details})
	}

	dto, err := h.uc.Resolve(c.Request().Context(), ucApproval.ResolveInput{
		Token:    req.Token,
		Actor:    domainOrder.Actor{ID: req.ActorID, Name: req.ActorName},
		Decision: d,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}
