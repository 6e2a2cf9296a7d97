package report

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/labdesk/labdesk/internal/platform/apperr"
	"github.com/labdesk/labdesk/internal/platform/auth"
)

type Handler struct {
	assembler *Assembler
}

func NewHandler(assembler *Assembler) *Handler {
	return &Handler{assembler: assembler}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/orders/:id/report", h.Get, auth.RequireActor())
}

func (h *Handler) Get(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	rep, err := h.assembler.Assemble(c.Request().Context(), id, actor)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, rep)
}
