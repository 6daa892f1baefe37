package api

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/roach88/finflow/internal/checkpoint"
	"github.com/roach88/finflow/internal/engine"
	"github.com/roach88/finflow/internal/fin"
)

// ReviewRequest carries reviewer corrections for a suspended run.
type ReviewRequest struct {
	RunID       string              `json:"run_id" validate:"required"`
	Corrections []engine.Correction `json:"corrections" validate:"dive"`
}

// Health reports liveness.
func (s *Server) Health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ingest stores a multipart upload and starts a run on it. The period and
// currency form values are hints for when extraction finds none.
func (s *Server) Ingest(c fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "multipart field \"file\" is required")
	}

	opts := fin.RunOptions{
		Period:   strings.TrimSpace(c.FormValue("period")),
		Currency: strings.TrimSpace(c.FormValue("currency")),
	}
	if v := c.FormValue("use_remote"); v != "" {
		remote, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest(c, "use_remote must be a boolean")
		}
		opts.UseRemote = remote
	}

	src, err := fh.Open()
	if err != nil {
		return badRequest(c, "unreadable upload: "+err.Error())
	}
	defer src.Close()

	docID := s.ids.Generate()
	path, err := s.docs.Save(docID, fh.Filename, src)
	if err != nil {
		return badRequest(c, "cannot store upload: "+err.Error())
	}
	s.logger.InfoContext(c.Context(), "document stored", "doc_id", docID, "path", path, "size", fh.Size)

	req := engine.StartRequest{DocID: docID, DocPath: path, Options: opts}
	if err := s.validate.Struct(req); err != nil {
		return invalidBody(c, err)
	}

	res, err := s.svc.Start(c.Context(), req)
	if err != nil {
		return s.handleEngineError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// Review resumes a suspended run.
func (s *Server) Review(c fiber.Ctx) error {
	var req ReviewRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}
	if err := s.validate.Struct(req); err != nil {
		return invalidBody(c, err)
	}

	res, err := s.svc.Resume(c.Context(), req.RunID, req.Corrections)
	if err != nil {
		return s.handleEngineError(c, err)
	}
	return c.JSON(res)
}

// ContinueRun re-drives a run left stalled by a failed call.
func (s *Server) ContinueRun(c fiber.Ctx) error {
	res, err := s.svc.Continue(c.Context(), c.Params("id"))
	if err != nil {
		return s.handleEngineError(c, err)
	}
	return c.JSON(res)
}

// WhatIf recomputes ratios for a completed run under a named scenario.
func (s *Server) WhatIf(c fiber.Ctx) error {
	var req engine.WhatIfRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}
	if err := s.validate.Struct(req); err != nil {
		return invalidBody(c, err)
	}

	res, err := s.svc.WhatIf(c.Context(), req)
	if err != nil {
		return s.handleEngineError(c, err)
	}
	return c.JSON(res)
}

// GetRun returns the status view of one run.
func (s *Server) GetRun(c fiber.Ctx) error {
	view, err := s.svc.Status(c.Context(), c.Params("id"))
	if err != nil {
		return s.handleEngineError(c, err)
	}
	return c.JSON(view)
}

// ListRuns returns run summaries, newest first, optionally filtered by
// status. It backs the reviewer queue.
func (s *Server) ListRuns(c fiber.Ctx) error {
	filter := checkpoint.ListFilter{}
	if v := c.Query("status"); v != "" {
		status := fin.Status(strings.ToUpper(v))
		switch status {
		case fin.StatusRunning, fin.StatusAwaitingReview, fin.StatusCompleted:
			filter.Status = status
		default:
			return badRequest(c, "unknown status "+strconv.Quote(v))
		}
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return badRequest(c, "limit must be a non-negative integer")
		}
		filter.Limit = n
	}

	runs, err := s.svc.List(c.Context(), filter)
	if err != nil {
		return s.handleEngineError(c, err)
	}
	if runs == nil {
		runs = []fin.RunSummary{}
	}
	return c.JSON(fiber.Map{"runs": runs, "count": len(runs)})
}

// GetHistory returns the checkpoint trail of one run.
func (s *Server) GetHistory(c fiber.Ctx) error {
	history, err := s.svc.History(c.Context(), c.Params("id"))
	if err != nil {
		return s.handleEngineError(c, err)
	}
	return c.JSON(fiber.Map{"run_id": c.Params("id"), "checkpoints": history})
}
