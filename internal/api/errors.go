package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/roach88/finflow/internal/checkpoint"
	"github.com/roach88/finflow/internal/engine"
)

func problem(c fiber.Ctx, status int, typ, detail string) error {
	p := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(typ).
		WithDetail(detail)

	return c.Status(status).JSON(p, problems.ProblemMediaType)
}

func badRequest(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusBadRequest, "validation_error", detail)
}

func invalidBody(c fiber.Ctx, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
		return badRequest(c, strings.Join(msgs, "; "))
	}
	return badRequest(c, "invalid request body: "+err.Error())
}

// handleEngineError maps engine error codes onto problem responses.
func (s *Server) handleEngineError(c fiber.Ctx, err error) error {
	switch engine.CodeOf(err) {
	case engine.CodeNoSuchRun:
		return problem(c, fiber.StatusNotFound, "no_such_run", err.Error())
	case engine.CodeNotAwaitingReview:
		return problem(c, fiber.StatusConflict, "not_awaiting_review", err.Error())
	case engine.CodeNotCompleted:
		return problem(c, fiber.StatusConflict, "not_completed", err.Error())
	case engine.CodeNotStalled:
		return problem(c, fiber.StatusConflict, "not_stalled", err.Error())
	case engine.CodeInvalidFieldPath:
		return problem(c, fiber.StatusBadRequest, "invalid_field_path", err.Error())
	case engine.CodeInvalidValue:
		return problem(c, fiber.StatusBadRequest, "invalid_value", err.Error())
	}

	if checkpoint.IsConflict(err) {
		return problem(c, fiber.StatusConflict, "conflict", err.Error())
	}

	s.logger.ErrorContext(c.Context(), "request failed", "path", c.Path(), "error", err)
	p := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)
	return c.Status(fiber.StatusInternalServerError).JSON(p, problems.ProblemMediaType)
}

// errorHandler renders errors that escape handlers, such as unknown routes
// and oversized bodies.
func (s *Server) errorHandler(c fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return problem(c, fe.Code, "http_error", fe.Message)
	}
	return s.handleEngineError(c, err)
}
