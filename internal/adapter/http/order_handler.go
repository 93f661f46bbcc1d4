package http

import (
	"net/http"

	domainOrder "purchase-order-backend/internal/domain/order"
	ucOrder "purchase-order-backend/internal/usecase/order"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OrderHandler struct {
	uc  *ucOrder.Usecase
	log *zap.Logger
}

func NewOrderHandler(uc *ucOrder.Usecase, log *zap.Logger) *OrderHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderHandler{uc: uc, log: log}
}

type lineItemReq struct {
	Description string          `json:"description" validate:"required,max=300"`
	Quantity    decimal.Decimal `json:"quantity"    validate:"gt=0,dec3"`
	UnitPrice   decimal.Decimal `json:"unit_price"  validate:"gte=0,dec2"`
}

type createOrderReq struct {
	SupplierName  string        `json:"supplier_name"   validate:"required,max=200"`
	SupplierTaxID string        `json:"supplier_tax_id" validate:"omitempty,max=32"`
	RequestedBy   string        `json:"requested_by"    validate:"required,max=120"`
	Description   string        `json:"description"     validate:"max=4000"`
	Currency      string        `json:"currency"        validate:"omitempty,len=3,alpha"`
	Items         []lineItemReq `json:"items"           validate:"required,min=1,max=200,dive"`
}

type replaceItemsReq struct {
	Items []lineItemReq `json:"items" validate:"required,min=1,max=200,dive"`
}

func toItemInputs(items []lineItemReq) []ucOrder.LineItemInput {
	out := make([]ucOrder.LineItemInput, len(items))
	for i, it := range items {
		out[i] = ucOrder.LineItemInput(it)
	}
	return out
}

// pathOrderID returns the :id param; a malformed id cannot match any order.
func pathOrderID(c echo.Context) (string, error) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", domainOrder.ErrNotFound
	}
	return id, nil
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	var req createOrderReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}
	dto, err := h.uc.Create(c.Request().Context(), ucOrder.CreateOrderInput{
		SupplierName:  req.SupplierName,
		SupplierTaxID: req.SupplierTaxID,
		RequestedBy:   req.RequestedBy,
		Description:   req.Description,
		Currency:      req.Currency,
		Items:         toItemInputs(req.Items),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *OrderHandler) ListOrders(c echo.Context) error {
	var in ucOrder.ListInput
	err := echo.QueryParamsBinder(c).
		String("status", &in.Status).
		Int("page", &in.Page).
		Int("limit", &in.Limit).
		BindError()
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "page and limit must be integers", Code: "invalid_query"})
	}
	out, err := h.uc.List(c.Request().Context(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	id, err := pathOrderID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	dto, err := h.uc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *OrderHandler) GetOrderByNumber(c echo.Context) error {
	dto, err := h.uc.GetByNumber(c.Request().Context(), c.Param("number"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *OrderHandler) ReplaceItems(c echo.Context) error {
	id, err := pathOrderID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req replaceItemsReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}
	dto, err := h.uc.ReplaceItems(c.Request().Context(), id, toItemInputs(req.Items))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *OrderHandler) CompleteOrder(c echo.Context) error {
	id, err := pathOrderID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	dto, err := h.uc.Complete(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *OrderHandler) CancelOrder(c echo.Context) error {
	id, err := pathOrderID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	dto, err := h.uc.Cancel(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}
