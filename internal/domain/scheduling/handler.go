package scheduling

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/praxis/praxis/internal/platform/auth"
	"github.com/praxis/praxis/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("practitioner", "assistant"))
	g.GET("/appointments", h.List)
	g.GET("/appointments/today", h.TodayActive)
	g.GET("/appointments/today/all", h.TodayAll)
	g.GET("/appointments/upcoming", h.Upcoming)
	g.GET("/appointments/overdue", h.Overdue)
	g.GET("/appointments/conflicts", h.Conflicts)
	g.GET("/appointments/stats", h.Stats)
	g.GET("/appointments/:id", h.Get)
	g.POST("/appointments", h.Create)
	g.PUT("/appointments/:id", h.Update)
	g.DELETE("/appointments/:id", h.Delete)
	g.POST("/appointments/:id/confirm", h.Confirm)
	g.POST("/appointments/:id/start", h.Start)
	g.POST("/appointments/:id/complete", h.Complete)
	g.POST("/appointments/:id/cancel", h.Cancel)
	g.POST("/appointments/:id/postpone", h.Postpone)
	g.POST("/appointments/:id/session", h.RecordSession)
}

func httpError(err error) error {
	var ve *ValidationError
	var ce *ConflictError
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.As(err, &ce):
		return echo.NewHTTPError(http.StatusConflict, map[string]interface{}{
			"message":   ce.Error(),
			"conflicts": ce.Conflicts,
		})
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// createRequest is the JSON shape for creating and updating appointments.
type createRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
	Date      string    `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Kind      string    `json:"kind"`
	Status    string    `json:"status"`
	Notes     *string   `json:"notes"`
	Recurring bool      `json:"recurring"`
}

func (r *createRequest) toAppointment() (*Appointment, error) {
	date, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}
	return &Appointment{
		PatientID: r.PatientID,
		Date:      date,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Kind:      r.Kind,
		Status:    r.Status,
		Notes:     r.Notes,
		Recurring: r.Recurring,
	}, nil
}

func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := req.toAppointment()
	if err != nil {
		return err
	}
	if err := h.svc.Create(c.Request().Context(), a); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	for _, key := range []string{"patient", "status", "kind", "from", "to"} {
		if v := c.QueryParam(key); v != "" {
			params[key] = v
		}
	}
	items, total, err := h.svc.Search(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := req.toAppointment()
	if err != nil {
		return err
	}
	a.ID = id
	if err := h.svc.Update(c.Request().Context(), a); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Status transitions --

func (h *Handler) Confirm(c echo.Context) error {
	return h.transition(c, h.svc.Confirm)
}

func (h *Handler) Start(c echo.Context) error {
	return h.transition(c, h.svc.Start)
}

func (h *Handler) Complete(c echo.Context) error {
	return h.transition(c, h.svc.Complete)
}

func (h *Handler) Cancel(c echo.Context) error {
	return h.transition(c, h.svc.Cancel)
}

func (h *Handler) transition(c echo.Context, fn func(ctx context.Context, id uuid.UUID) (*Appointment, error)) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, err := fn(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

type postponeRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
}

func (h *Handler) Postpone(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req postponeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}
	a, err := h.svc.Postpone(c.Request().Context(), id, date, req.StartTime)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

type recordSessionRequest struct {
	Observations *string `json:"observations"`
}

func (h *Handler) RecordSession(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req recordSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var createdBy *string
	if uid := auth.UserIDFromContext(c.Request().Context()); uid != "" {
		createdBy = &uid
	}
	sess, err := h.svc.RecordSession(c.Request().Context(), id, req.Observations, createdBy)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, sess)
}

// -- Queries --

func (h *Handler) TodayActive(c echo.Context) error {
	items, err := h.svc.TodayActive(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) TodayAll(c echo.Context) error {
	items, err := h.svc.TodayAll(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Upcoming(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Upcoming(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Overdue(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Overdue(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Conflicts(c echo.Context) error {
	date, err := time.Parse("2006-01-02", c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}
	exclude := uuid.Nil
	if ex := c.QueryParam("exclude"); ex != "" {
		exclude, err = uuid.Parse(ex)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid exclude id")
		}
	}
	items, err := h.svc.FindConflicts(c.Request().Context(), date,
		c.QueryParam("start"), c.QueryParam("end"), exclude)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, stats)
}
