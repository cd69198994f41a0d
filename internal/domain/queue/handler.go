package queue

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicq/clinicq/internal/platform/auth"
	"github.com/clinicq/clinicq/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	readGroup.GET("/queues", h.ListQueues)
	readGroup.GET("/queues/:id", h.GetQueue)
	readGroup.GET("/queues/:id/rooms", h.ListRooms)
	readGroup.GET("/rooms/:id/providers", h.ListRoomProviders)

	writeGroup := api.Group("", auth.RequireRole("admin"))
	writeGroup.POST("/queues", h.CreateQueue)
	writeGroup.PUT("/queues/:id", h.UpdateQueue)
	writeGroup.POST("/queues/:id/retire", h.RetireQueue)
	writeGroup.POST("/queues/:id/unretire", h.UnretireQueue)
	writeGroup.POST("/queues/:id/rooms", h.CreateRoom)
	writeGroup.POST("/rooms/:id/providers", h.AssignProvider)
}

func (h *Handler) CreateQueue(c echo.Context) error {
	var q Queue
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateQueue(c.Request().Context(), &q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, q)
}

func (h *Handler) GetQueue(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	q, err := h.svc.GetQueue(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "queue not found")
	}
	return c.JSON(http.StatusOK, q)
}

func (h *Handler) ListQueues(c echo.Context) error {
	pg := pagination.FromContext(c)
	includeRetired := c.QueryParam("include_retired") == "true"

	if locationID := c.QueryParam("location_id"); locationID != "" {
		lid, err := uuid.Parse(locationID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid location_id")
		}
		queues, total, err := h.svc.ListQueuesByLocation(c.Request().Context(), lid, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(queues, total, pg.Limit, pg.Offset))
	}

	queues, total, err := h.svc.ListQueues(c.Request().Context(), includeRetired, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(queues, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateQueue(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var q Queue
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	q.ID = id
	if err := h.svc.UpdateQueue(c.Request().Context(), &q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, q)
}

func (h *Handler) RetireQueue(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	q, err := h.svc.RetireQueue(c.Request().Context(), id, body.Reason)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, q)
}

func (h *Handler) UnretireQueue(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	q, err := h.svc.UnretireQueue(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, q)
}

func (h *Handler) CreateRoom(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var rm Room
	if err := c.Bind(&rm); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rm.QueueID = id
	if err := h.svc.CreateRoom(c.Request().Context(), &rm); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, rm)
}

func (h *Handler) ListRooms(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rooms, err := h.svc.ListRooms(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rooms)
}

func (h *Handler) AssignProvider(c echo.Context) error {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		ProviderID uuid.UUID `json:"provider_id"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m, err := h.svc.AssignProvider(c.Request().Context(), roomID, body.ProviderID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) ListRoomProviders(c echo.Context) error {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	maps, err := h.svc.ListRoomProviders(c.Request().Context(), roomID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, maps)
}
