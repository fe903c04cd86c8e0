package planner

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/careplan/careplan/internal/domain/question"
	"github.com/careplan/careplan/internal/platform/auth"
)

// Caller-facing messages for the planning endpoints.
const (
	MsgSessionNotFound = "Session not found. Please call /api/plan/start first."
	MsgPlanNotFound    = "Plan not found for this session."
	MsgPlanCompleted   = "Treatment plan generated successfully."
)

// Handler exposes the planning pipeline over HTTP: start a run, submit
// answers (possibly repeatedly), fetch the finished plan.
type Handler struct {
	planner  *Planner
	registry *Registry
	log      zerolog.Logger
}

func NewHandler(planner *Planner, registry *Registry, log zerolog.Logger) *Handler {
	return &Handler{planner: planner, registry: registry, log: log}
}

// RegisterRoutes mounts the planning endpoints on the API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/plan/start", h.StartPlan)
	api.POST("/plan/respond", h.Respond)
	api.GET("/plan/:session_id", h.GetPlan)
}

type startPlanRequest struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Goal      string `json:"goal"`
}

type startPlanResponse struct {
	SessionID     string              `json:"session_id"`
	Status        Status              `json:"status"`
	Questions     []question.Question `json:"questions"`
	Subtasks      []string            `json:"subtasks"`
	ExecutionPlan *Manifest           `json:"execution_plan"`
}

type respondRequest struct {
	SessionID string            `json:"session_id"`
	UserID    string            `json:"user_id"`
	Answers   map[string]string `json:"answers"`
}

type respondResponse struct {
	SessionID         string              `json:"session_id"`
	Status            Status              `json:"status"`
	Result            *Result             `json:"result,omitempty"`
	MissingFields     []string            `json:"missing_fields,omitempty"`
	Warnings          []string            `json:"warnings,omitempty"`
	Errors            []string            `json:"errors,omitempty"`
	FollowUpQuestions []question.Question `json:"follow_up_questions,omitempty"`
	Message           string              `json:"message,omitempty"`
}

type authFailureResponse struct {
	Status Status `json:"status"`
	Error  string `json:"error"`
	Retry  bool   `json:"retry,omitempty"`
}

type planResponse struct {
	SessionID string  `json:"session_id"`
	Status    Status  `json:"status"`
	Result    *Result `json:"result"`
}

// StartPlan opens a planning run for a session: the goal is decomposed and
// the personalized question set returned for the caller to answer.
func (h *Handler) StartPlan(c echo.Context) error {
	var req startPlanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" || strings.TrimSpace(req.Goal) == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "session_id and goal are required.")
	}

	state := h.planner.Start(c.Request().Context(), StartInput{
		SessionID: req.SessionID,
		UserID:    strings.TrimSpace(req.UserID),
		Goal:      req.Goal,
	})
	h.registry.Put(req.SessionID, state)

	h.log.Info().Str("session_id", req.SessionID).Msg("planning run started")
	return c.JSON(http.StatusOK, startPlanResponse{
		SessionID:     req.SessionID,
		Status:        state.Status,
		Questions:     state.Questions,
		Subtasks:      state.Subtasks,
		ExecutionPlan: state.Manifest,
	})
}

// Respond submits a round of answers. Incomplete data returns the missing
// fields with just their questions so the caller can resubmit; complete data
// runs the pipeline through to the stored plan.
func (h *Handler) Respond(c echo.Context) error {
	var req respondRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.SessionID = strings.TrimSpace(req.SessionID)

	run, ok := h.registry.Get(req.SessionID)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, MsgSessionNotFound)
	}
	run.Lock()
	defer run.Unlock()

	token := auth.BearerToken(c)
	in := RespondInput{
		Answers:     req.Answers,
		AccessToken: token,
		UserID:      strings.TrimSpace(req.UserID),
		SessionID:   req.SessionID,
	}
	in.Trusted = token == "" && in.UserID != ""

	outcome, err := h.planner.Respond(c.Request().Context(), run.State, in)
	if err != nil {
		h.log.Error().Err(err).Str("session_id", req.SessionID).Msg("plan execution failed")
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	switch outcome.Status {
	case StatusAuthFailed, StatusIdentityFailed:
		return c.JSON(http.StatusUnauthorized, authFailureResponse{
			Status: outcome.Status,
			Error:  outcome.Error,
			Retry:  outcome.Retry,
		})
	case StatusNeedsMoreData:
		return c.JSON(http.StatusOK, respondResponse{
			SessionID:         req.SessionID,
			Status:            StatusNeedsMoreData,
			MissingFields:     outcome.MissingFields,
			Warnings:          outcome.Warnings,
			Errors:            outcome.Errors,
			FollowUpQuestions: question.Filter(run.State.Questions, outcome.MissingFields),
			Message:           outcome.Message,
		})
	default:
		h.registry.SaveResult(req.SessionID, outcome.Result)
		return c.JSON(http.StatusOK, respondResponse{
			SessionID: req.SessionID,
			Status:    StatusCompleted,
			Result:    outcome.Result,
			Message:   MsgPlanCompleted,
		})
	}
}

// GetPlan returns the finished plan for a session.
func (h *Handler) GetPlan(c echo.Context) error {
	sessionID := c.Param("session_id")
	res, ok := h.registry.Result(sessionID)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, MsgPlanNotFound)
	}
	return c.JSON(http.StatusOK, planResponse{
		SessionID: sessionID,
		Status:    StatusCompleted,
		Result:    res,
	})
}
