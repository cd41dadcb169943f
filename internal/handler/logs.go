package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/optifit/backend/internal/model"
	"github.com/optifit/backend/internal/service"
)

const dateLayout = "2006-01-02"

type LogsHandler struct {
	svc *service.LoggingService
}

func NewLogsHandler(svc *service.LoggingService) *LogsHandler {
	return &LogsHandler{svc: svc}
}

// --- food ---

// CreateFood godoc
// @Summary Log a meal
// @Tags food
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.FoodLogRequest true "Food entry"
// @Success 201 {object} model.FoodLog
// @Failure 400 {object} model.ErrorResponse
// @Router /api/v1/food [post]
func (h *LogsHandler) CreateFood(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req model.FoodLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	log, err := h.svc.CreateFood(c.Request.Context(), claims.UserID, req)
	respond(c, http.StatusCreated, log, err)
}

// ListFood godoc
// @Summary List meals, newest first
// @Tags food
// @Produce json
// @Security BearerAuth
// @Param startDate query string false "RFC3339 or YYYY-MM-DD"
// @Param endDate query string false "RFC3339 or YYYY-MM-DD"
// @Success 200 {array} model.FoodLog
// @Failure 400 {object} model.ErrorResponse
// @Router /api/v1/food [get]
func (h *LogsHandler) ListFood(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	r, ok := timeRange(c)
	if !ok {
		return
	}
	logs, err := h.svc.ListFood(c.Request.Context(), claims.UserID, r)
	respond(c, http.StatusOK, logs, err)
}

// GetFood godoc
// @Summary Get a meal
// @Tags food
// @Produce json
// @Security BearerAuth
// @Param id path string true "Entry id"
// @Success 200 {object} model.FoodLog
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/food/{id} [get]
func (h *LogsHandler) GetFood(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	log, err := h.svc.GetFood(c.Request.Context(), claims.UserID, c.Param("id"))
	respond(c, http.StatusOK, log, err)
}

// UpdateFood godoc
// @Summary Update a meal
// @Tags food
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Entry id"
// @Param request body model.FoodLogRequest true "Fields to change"
// @Success 200 {object} model.FoodLog
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/food/{id} [put]
func (h *LogsHandler) UpdateFood(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req model.FoodLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	log, err := h.svc.UpdateFood(c.Request.Context(), claims.UserID, c.Param("id"), req)
	respond(c, http.StatusOK, log, err)
}

// DeleteFood godoc
// @Summary Delete a meal
// @Tags food
// @Security BearerAuth
// @Param id path string true "Entry id"
// @Success 204
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/food/{id} [delete]
func (h *LogsHandler) DeleteFood(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.svc.DeleteFood(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SearchFood godoc
// @Summary Look up nutrition facts
// @Description Served from the cache when the query was seen before.
// @Tags food
// @Produce json
// @Security BearerAuth
// @Param query path string true "Food name"
// @Success 200 {object} model.FoodSearchResult
// @Failure 503 {object} model.ErrorResponse
// @Router /api/v1/food/search/{query} [get]
func (h *LogsHandler) SearchFood(c *gin.Context) {
	if requireClaims(c) == nil {
		return
	}
	result, err := h.svc.SearchFood(c.Request.Context(), c.Param("query"))
	respond(c, http.StatusOK, result, err)
}

// --- exercise ---

// ExerciseTypes godoc
// @Summary List exercise types
// @Tags exercise
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.ExerciseType
// @Router /api/v1/exercise/types [get]
func (h *LogsHandler) ExerciseTypes(c *gin.Context) {
	if requireClaims(c) == nil {
		return
	}
	types, err := h.svc.ExerciseTypes(c.Request.Context())
	respond(c, http.StatusOK, types, err)
}

// CreateExercise godoc
// @Summary Log a workout
// @Tags exercise
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.ExerciseLogRequest true "Exercise entry"
// @Success 201 {object} model.ExerciseLog
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/exercise [post]
func (h *LogsHandler) CreateExercise(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req model.ExerciseLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	log, err := h.svc.CreateExercise(c.Request.Context(), claims.UserID, req)
	respond(c, http.StatusCreated, log, err)
}

// ListExercise godoc
// @Summary List workouts, newest first
// @Tags exercise
// @Produce json
// @Security BearerAuth
// @Param startDate query string false "RFC3339 or YYYY-MM-DD"
// @Param endDate query string false "RFC3339 or YYYY-MM-DD"
// @Success 200 {array} model.ExerciseLog
// @Failure 400 {object} model.ErrorResponse
// @Router /api/v1/exercise [get]
func (h *LogsHandler) ListExercise(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	r, ok := timeRange(c)
	if !ok {
		return
	}
	logs, err := h.svc.ListExercise(c.Request.Context(), claims.UserID, r)
	respond(c, http.StatusOK, logs, err)
}

// GetExercise godoc
// @Summary Get a workout
// @Tags exercise
// @Produce json
// @Security BearerAuth
// @Param id path string true "Entry id"
// @Success 200 {object} model.ExerciseLog
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/exercise/{id} [get]
func (h *LogsHandler) GetExercise(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	log, err := h.svc.GetExercise(c.Request.Context(), claims.UserID, c.Param("id"))
	respond(c, http.StatusOK, log, err)
}

// UpdateExercise godoc
// @Summary Update a workout
// @Tags exercise
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Entry id"
// @Param request body model.ExerciseLogRequest true "Fields to change"
// @Success 200 {object} model.ExerciseLog
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/exercise/{id} [put]
func (h *LogsHandler) UpdateExercise(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req model.ExerciseLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	log, err := h.svc.UpdateExercise(c.Request.Context(), claims.UserID, c.Param("id"), req)
	respond(c, http.StatusOK, log, err)
}

// DeleteExercise godoc
// @Summary Delete a workout
// @Tags exercise
// @Security BearerAuth
// @Param id path string true "Entry id"
// @Success 204
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/exercise/{id} [delete]
func (h *LogsHandler) DeleteExercise(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.svc.DeleteExercise(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- sleep ---

// CreateSleep godoc
// @Summary Log a sleep interval
// @Tags sleep
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.SleepLogRequest true "Sleep entry"
// @Success 201 {object} model.SleepLog
// @Failure 400 {object} model.ErrorResponse
// @Router /api/v1/sleep [post]
func (h *LogsHandler) CreateSleep(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req model.SleepLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	log, err := h.svc.CreateSleep(c.Request.Context(), claims.UserID, req)
	respond(c, http.StatusCreated, log, err)
}

// ListSleep godoc
// @Summary List sleep intervals, newest first
// @Tags sleep
// @Produce json
// @Security BearerAuth
// @Param startDate query string false "RFC3339 or YYYY-MM-DD"
// @Param endDate query string false "RFC3339 or YYYY-MM-DD"
// @Success 200 {array} model.SleepLog
// @Failure 400 {object} model.ErrorResponse
// @Router /api/v1/sleep [get]
func (h *LogsHandler) ListSleep(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	r, ok := timeRange(c)
	if !ok {
		return
	}
	logs, err := h.svc.ListSleep(c.Request.Context(), claims.UserID, r)
	respond(c, http.StatusOK, logs, err)
}

// GetSleep godoc
// @Summary Get a sleep interval
// @Tags sleep
// @Produce json
// @Security BearerAuth
// @Param id path string true "Entry id"
// @Success 200 {object} model.SleepLog
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/sleep/{id} [get]
func (h *LogsHandler) GetSleep(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	log, err := h.svc.GetSleep(c.Request.Context(), claims.UserID, c.Param("id"))
	respond(c, http.StatusOK, log, err)
}

// UpdateSleep godoc
// @Summary Update a sleep interval
// @Tags sleep
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Entry id"
// @Param request body model.SleepLogRequest true "Fields to change"
// @Success 200 {object} model.SleepLog
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/sleep/{id} [put]
func (h *LogsHandler) UpdateSleep(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req model.SleepLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	log, err := h.svc.UpdateSleep(c.Request.Context(), claims.UserID, c.Param("id"), req)
	respond(c, http.StatusOK, log, err)
}

// DeleteSleep godoc
// @Summary Delete a sleep interval
// @Tags sleep
// @Security BearerAuth
// @Param id path string true "Entry id"
// @Success 204
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/sleep/{id} [delete]
func (h *LogsHandler) DeleteSleep(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.svc.DeleteSleep(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func respond(c *gin.Context, status int, body any, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(status, body)
}

// timeRange reads startDate and endDate. A date-only endDate covers the
// whole day.
func timeRange(c *gin.Context) (model.TimeRange, bool) {
	var r model.TimeRange
	if raw := c.Query("startDate"); raw != "" {
		t, _, err := parseDate(raw)
		if err != nil {
			badRequest(c)
			return r, false
		}
		r.Start = &t
	}
	if raw := c.Query("endDate"); raw != "" {
		t, dateOnly, err := parseDate(raw)
		if err != nil {
			badRequest(c)
			return r, false
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		r.End = &t
	}
	return r, true
}

func parseDate(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(dateLayout, raw)
	return t, true, err
}
