package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/stafflinehq/staffline/internal/extract"
	"github.com/stafflinehq/staffline/internal/jsonfix"
	"github.com/stafflinehq/staffline/internal/pipeline"
	"github.com/stafflinehq/staffline/internal/plan"
	"github.com/stafflinehq/staffline/internal/revise"
	"github.com/stafflinehq/staffline/internal/store"
)

// ErrorResponse is the JSON body for error replies.
type ErrorResponse struct {
	Error string `json:"error"`
}

// GeneratePlanRequest is the request body for POST /generate-plan.
type GeneratePlanRequest struct {
	RFPText  string  `json:"rfpText"`
	Approach string  `json:"approach"`
	TotalFTE float64 `json:"totalFTE"`
	OwnerID  string  `json:"ownerId"`
}

// handleGeneratePlan runs the pipeline and persists the resulting plan.
func (s *Server) handleGeneratePlan(c echo.Context) error {
	var req GeneratePlanRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	if req.RFPText == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "rfpText is required"})
	}
	approach, err := pipeline.ParseApproach(req.Approach)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "approach must be top_down or bottom_up"})
	}
	if approach == pipeline.TopDown && req.TotalFTE <= 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "totalFTE is required for the top_down approach"})
	}

	result, err := s.generator.Generate(c.Request().Context(), req.RFPText, approach, req.TotalFTE)
	if err != nil {
		s.logGenerationFailure(err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "plan generation failed"})
	}

	now := time.Now().UTC()
	p := &plan.StaffingPlan{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		UpdatedAt:  now,
		OwnerID:    req.OwnerID,
		RFPText:    req.RFPText,
		Step1Tasks: result.Step1,
		Step2Tasks: result.Step2,
		Final:      result.Final,
	}

	if err := s.store.UpsertPlan(c.Request().Context(), p); err != nil {
		s.logger.Error("persisting plan failed", zap.String("plan_id", p.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to persist plan"})
	}

	return c.JSON(http.StatusOK, p)
}

// logGenerationFailure attaches recovery diagnostics when the pipeline died
// on unrecoverable JSON.
func (s *Server) logGenerationFailure(err error) {
	var exhausted *jsonfix.ExhaustedError
	if errors.As(err, &exhausted) {
		s.logger.Error("plan generation failed: json recovery exhausted",
			zap.Int("attempts", exhausted.Attempts),
			zap.String("last_raw", exhausted.LastRaw),
			zap.NamedError("parse_error", exhausted.LastErr),
		)
		return
	}
	s.logger.Error("plan generation failed", zap.Error(err))
}

// ChatRequest is the request body for POST /chat. When planId is set, the
// plan and its history are loaded from the store and both turns are appended;
// otherwise the call is stateless and the caller supplies planData, rfpText,
// and history directly.
type ChatRequest struct {
	PlanID   string             `json:"planId"`
	Message  string             `json:"message"`
	PlanData *plan.StaffingPlan `json:"planData"`
	RFPText  string             `json:"rfpText"`
	History  []plan.ChatMessage `json:"history"`
}

func (s *Server) handleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "message is required"})
	}

	ctx := c.Request().Context()

	var current *plan.StaffingPlan
	history := req.History
	rfpText := req.RFPText

	if req.PlanID != "" {
		stored, err := s.store.GetPlan(ctx, req.PlanID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusNotFound, ErrorResponse{Error: "plan not found"})
			}
			s.logger.Error("loading plan failed", zap.String("plan_id", req.PlanID), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load plan"})
		}
		current = stored
		rfpText = stored.RFPText
		history, err = s.store.ListMessages(ctx, req.PlanID)
		if err != nil {
			s.logger.Error("loading history failed", zap.String("plan_id", req.PlanID), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load history"})
		}
	} else {
		if req.PlanData == nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "planId or planData is required"})
		}
		current = req.PlanData
	}

	resp, err := s.reviser.Revise(ctx, revise.Request{
		Message: req.Message,
		Plan:    *current,
		RFPText: rfpText,
		History: history,
	})
	if err != nil {
		s.logger.Error("revision failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "chat revision failed"})
	}

	if req.PlanID != "" {
		s.appendChatTurn(ctx, req.PlanID, req.Message, resp.Message)
		if resp.UpdatedPlan != nil {
			if err := s.store.UpsertPlan(ctx, resp.UpdatedPlan); err != nil {
				s.logger.Error("persisting updated plan failed", zap.String("plan_id", req.PlanID), zap.Error(err))
				return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to persist updated plan"})
			}
		}
	}

	return c.JSON(http.StatusOK, resp)
}

// appendChatTurn records both sides of a turn. History write failures are
// logged but do not fail the revision the user already paid for.
func (s *Server) appendChatTurn(ctx context.Context, planID, userMsg, assistantMsg string) {
	now := time.Now().UTC()
	turns := []plan.ChatMessage{
		{ID: uuid.NewString(), CreatedAt: now, PlanID: planID, Role: plan.RoleUser, Content: userMsg},
		{ID: uuid.NewString(), CreatedAt: now.Add(time.Millisecond), PlanID: planID, Role: plan.RoleAssistant, Content: assistantMsg},
	}
	for _, msg := range turns {
		if err := s.store.AppendMessage(ctx, msg); err != nil {
			s.logger.Warn("appending chat message failed",
				zap.String("plan_id", planID),
				zap.String("role", string(msg.Role)),
				zap.Error(err),
			)
		}
	}
}

// UploadResponse is the response body for POST /upload.
type UploadResponse struct {
	Text string `json:"text"`
}

func (s *Server) handleUpload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "file is required"})
	}

	f, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "could not open uploaded file"})
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "could not read uploaded file"})
	}

	text, err := s.extractor.ExtractText(data, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrEmptyFile):
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "uploaded file is empty"})
		case errors.Is(err, extract.ErrUnsupportedType):
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			s.logger.Warn("text extraction failed", zap.String("filename", fileHeader.Filename), zap.Error(err))
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		}
	}

	return c.JSON(http.StatusOK, UploadResponse{Text: text})
}

func (s *Server) handleGetPlan(c echo.Context) error {
	p, err := s.store.GetPlan(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "plan not found"})
		}
		s.logger.Error("loading plan failed", zap.String("plan_id", c.Param("id")), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load plan"})
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleDeletePlan(c echo.Context) error {
	err := s.store.DeletePlan(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "plan not found"})
		}
		s.logger.Error("deleting plan failed", zap.String("plan_id", c.Param("id")), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to delete plan"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListMessages(c echo.Context) error {
	planID := c.Param("id")
	if _, err := s.store.GetPlan(c.Request().Context(), planID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "plan not found"})
		}
		s.logger.Error("loading plan failed", zap.String("plan_id", planID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load plan"})
	}

	messages, err := s.store.ListMessages(c.Request().Context(), planID)
	if err != nil {
		s.logger.Error("loading history failed", zap.String("plan_id", planID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load history"})
	}
	if messages == nil {
		messages = []plan.ChatMessage{}
	}
	return c.JSON(http.StatusOK, messages)
}
