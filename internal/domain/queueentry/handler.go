package queueentry

import (
	"errors"
	"net/http"
	"strings"
	"time"

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
	g := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	g.GET("/queue-entries", h.Search)
	g.GET("/queue-entries/count", h.Count)
	g.GET("/queue-entries/:id", h.Get)
	g.POST("/queue-entries", h.Admit)
	g.POST("/queue-entries/:id/transition", h.Transition)
	g.POST("/queue-entries/:id/undo-transition", h.UndoTransition)
	g.POST("/queue-entries/:id/end", h.End)
	g.POST("/queue-entries/:id/void", h.Void)
	g.GET("/visits/:id/queue-entry-links", h.VisitLinks)
	g.POST("/visit-queue-entries/:id/void", h.VoidVisitLink)
	g.POST("/queues/:id/close-active", h.CloseActive, auth.RequireRole("admin"))
	g.POST("/queue-entries/close-active", h.CloseAllActive, auth.RequireRole("admin"))
}

// httpError maps the engine's error kinds onto statuses. Anything untyped is
// a 500 and keeps its message out of the response.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicate):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrConcurrencyConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrStateViolation):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) Admit(c echo.Context) error {
	var e QueueEntry
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	out, err := h.svc.Admit(c.Request().Context(), &e)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) Search(c echo.Context) error {
	crit, err := criteriaFromQuery(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	pg := pagination.FromContext(c)
	entries, err := h.svc.Search(c.Request().Context(), crit, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	total, err := h.svc.Count(c.Request().Context(), crit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, int(total), pg.Limit, pg.Offset))
}

func (h *Handler) Count(c echo.Context) error {
	crit, err := criteriaFromQuery(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	total, err := h.svc.Count(c.Request().Context(), crit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"count": total})
}

func (h *Handler) Transition(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req TransitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.EntryID = id
	succ, err := h.svc.Transition(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, succ)
}

func (h *Handler) UndoTransition(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pred, err := h.svc.UndoTransition(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pred)
}

func (h *Handler) End(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		EndedAt *time.Time `json:"ended_at"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	at := time.Time{}
	if body.EndedAt != nil {
		at = *body.EndedAt
	}
	e, err := h.svc.End(c.Request().Context(), id, at)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) Void(c echo.Context) error {
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
	e, err := h.svc.Void(c.Request().Context(), id, body.Reason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) CloseActive(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		ClosedAt *time.Time `json:"closed_at"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	at := time.Time{}
	if body.ClosedAt != nil {
		at = *body.ClosedAt
	}
	closed, err := h.svc.CloseActive(c.Request().Context(), id, at)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"closed": closed})
}

func (h *Handler) VisitLinks(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	links, err := h.svc.VisitLinks(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, links)
}

func (h *Handler) VoidVisitLink(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.VoidVisitLink(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CloseAllActive(c echo.Context) error {
	var body struct {
		ClosedAt *time.Time `json:"closed_at"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	at := time.Time{}
	if body.ClosedAt != nil {
		at = *body.ClosedAt
	}
	closed, err := h.svc.CloseAllActive(c.Request().Context(), at)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"closed": closed})
}

// criteriaFromQuery translates query parameters into search criteria. List
// parameters accept comma-separated UUIDs; the literal value "null" asks for
// rows where the column is absent.
func criteriaFromQuery(c echo.Context) (SearchCriteria, error) {
	var crit SearchCriteria

	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return crit, errors.New("invalid patient_id")
		}
		crit.PatientID = &id
	}
	if v := c.QueryParam("visit_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return crit, errors.New("invalid visit_id")
		}
		crit.VisitID = &id
	}
	if v := c.QueryParam("has_visit"); v != "" {
		b := v == "true"
		crit.HasVisit = &b
	}

	var err error
	if crit.QueueIDs, err = parseIDList(c.QueryParam("queue")); err != nil {
		return crit, errors.New("invalid queue filter")
	}
	if crit.LocationIDs, err = parseIDList(c.QueryParam("location")); err != nil {
		return crit, errors.New("invalid location filter")
	}
	if crit.ServiceConceptIDs, err = parseIDList(c.QueryParam("service")); err != nil {
		return crit, errors.New("invalid service filter")
	}
	if crit.StatusConceptIDs, err = parseIDList(c.QueryParam("status")); err != nil {
		return crit, errors.New("invalid status filter")
	}
	if crit.PriorityConceptIDs, err = parseIDList(c.QueryParam("priority")); err != nil {
		return crit, errors.New("invalid priority filter")
	}
	if crit.ComingFromQueueIDs, err = parseIDList(c.QueryParam("coming_from")); err != nil {
		return crit, errors.New("invalid coming_from filter")
	}
	if crit.WaitingForLocation, err = parseIDList(c.QueryParam("location_waiting_for")); err != nil {
		return crit, errors.New("invalid location_waiting_for filter")
	}
	if crit.WaitingForProvider, err = parseIDList(c.QueryParam("provider_waiting_for")); err != nil {
		return crit, errors.New("invalid provider_waiting_for filter")
	}

	if crit.StartedOnOrAfter, err = parseTimeParam(c, "started_on_or_after"); err != nil {
		return crit, err
	}
	if crit.StartedOnOrBefore, err = parseTimeParam(c, "started_on_or_before"); err != nil {
		return crit, err
	}
	if crit.StartedAt, err = parseTimeParam(c, "started_at"); err != nil {
		return crit, err
	}
	if crit.EndedOnOrAfter, err = parseTimeParam(c, "ended_on_or_after"); err != nil {
		return crit, err
	}
	if crit.EndedOnOrBefore, err = parseTimeParam(c, "ended_on_or_before"); err != nil {
		return crit, err
	}
	if crit.EndedAt, err = parseTimeParam(c, "ended_at"); err != nil {
		return crit, err
	}

	if v := c.QueryParam("is_ended"); v != "" {
		b := v == "true"
		crit.IsEnded = &b
	}
	crit.IncludeVoided = c.QueryParam("include_voided") == "true"
	return crit, nil
}

// parseIDList returns nil for an absent parameter, an empty non-nil slice for
// the literal "null", and the parsed UUIDs otherwise.
func parseIDList(raw string) ([]uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	if raw == "null" {
		return []uuid.UUID{}, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]uuid.UUID, 0, len(parts))
	for _, p := range parts {
		id, err := uuid.Parse(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseTimeParam(c echo.Context, name string) (*time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, errors.New("invalid " + name + ", expected RFC 3339")
	}
	return &t, nil
}
