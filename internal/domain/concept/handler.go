package concept

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicq/clinicq/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	readGroup.GET("/concepts/:id", h.GetConcept)
	readGroup.GET("/concept-sets/:id", h.GetSet)
	readGroup.GET("/concept-sets/:id/members", h.GetSetMembers)

	writeGroup := api.Group("", auth.RequireRole("admin"))
	writeGroup.POST("/concepts", h.CreateConcept)
	writeGroup.POST("/concept-sets", h.CreateSet)
	writeGroup.POST("/concept-sets/:id/members", h.AddMember)
}

func (h *Handler) CreateConcept(c echo.Context) error {
	var con Concept
	if err := c.Bind(&con); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateConcept(c.Request().Context(), &con); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, con)
}

func (h *Handler) GetConcept(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	con, err := h.svc.GetConcept(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "concept not found")
	}
	return c.JSON(http.StatusOK, con)
}

func (h *Handler) CreateSet(c echo.Context) error {
	var set Set
	if err := c.Bind(&set); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateSet(c.Request().Context(), &set); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, set)
}

func (h *Handler) GetSet(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	set, err := h.svc.GetSet(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "concept set not found")
	}
	return c.JSON(http.StatusOK, set)
}

func (h *Handler) GetSetMembers(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	members, err := h.svc.SetMembers(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, members)
}

func (h *Handler) AddMember(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var m SetMember
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m.SetID = id
	if m.SortOrder == 0 && c.QueryParam("append") == "true" {
		m.SortOrder = -1
	}
	if err := h.svc.AddMember(c.Request().Context(), &m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, m)
}
