package order

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/labdesk/labdesk/internal/platform/apperr"
	"github.com/labdesk/labdesk/internal/platform/auth"
	"github.com/labdesk/labdesk/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	orders := api.Group("/orders", auth.RequireActor())
	orders.POST("", h.Create)
	orders.GET("", h.List)
	orders.GET("/:id", h.Get)
	orders.PUT("/:id", h.Update)
	orders.DELETE("/:id", h.Delete)
	orders.GET("/:id/status-history", h.StatusHistory)
}

func (h *Handler) Create(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o, err := h.svc.Create(c.Request().Context(), in, actor)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, o)
}

// updatePayload is the single PUT body. Exactly one concern is applied per
// request: a status transition, a payment, or plain field updates, in that
// order of precedence.
type updatePayload struct {
	OrderStatus   *OrderStatus `json:"order_status"`
	PaidAmount    *int64       `json:"paid_amount"`
	PaymentMethod *string      `json:"payment_method"`
	Priority      *Priority    `json:"priority"`
	SampleDate    *time.Time   `json:"sample_collection_date"`
	ReportDate    *time.Time   `json:"expected_report_date"`
	Notes         *string      `json:"notes"`
}

func (h *Handler) Update(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	var in updatePayload
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var o *Order
	switch {
	case in.OrderStatus != nil:
		o, err = h.svc.Transition(c.Request().Context(), id, *in.OrderStatus, actor)
	case in.PaidAmount != nil:
		o, err = h.svc.RecordPayment(c.Request().Context(), id, *in.PaidAmount, in.PaymentMethod, actor)
	default:
		o, err = h.svc.UpdateFields(c.Request().Context(), id, UpdateInput{
			Priority:             in.Priority,
			SampleCollectionDate: in.SampleDate,
			ExpectedReportDate:   in.ReportDate,
			Notes:                in.Notes,
			PaymentMethod:        in.PaymentMethod,
		}, actor)
	}
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) Get(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	o, err := h.svc.Get(c.Request().Context(), id, actor)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) List(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	pg := pagination.FromContext(c)

	var f ListFilter
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id filter")
		}
		f.PatientID = &id
	}
	if v := c.QueryParam("order_status"); v != "" {
		s := OrderStatus(v)
		if !ValidOrderStatus(s) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid order_status filter")
		}
		f.OrderStatus = &s
	}
	if v := c.QueryParam("payment_status"); v != "" {
		s := PaymentStatus(v)
		f.PaymentStatus = &s
	}
	if v := c.QueryParam("priority"); v != "" {
		p := Priority(v)
		if !ValidPriority(p) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid priority filter")
		}
		f.Priority = &p
	}

	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset, actor)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Delete(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	if err := h.svc.Delete(c.Request().Context(), id, actor); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) StatusHistory(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	history, err := h.svc.StatusHistory(c.Request().Context(), id, actor)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, history)
}
