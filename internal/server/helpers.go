package server

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"tandem/internal/middleware"
	"tandem/internal/models"
	"tandem/internal/repository"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// respondError writes err with the status its code maps to. Internal
// failures are logged with their cause; the client only sees a generic
// message. Client errors are logged at info.
func respondError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	log := middleware.L(c.UserContext())
	if status >= fiber.StatusInternalServerError {
		log.Error("request failed",
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return models.RespondWithError(c, status, err)
	}

	var appErr *models.AppError
	if errors.As(err, &appErr) {
		log.Info("request rejected",
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.String("code", appErr.Code),
			zap.String("reason", appErr.Message),
		)
	}
	return models.RespondWithError(c, status, err)
}

// callerID returns the authenticated user set by AuthRequired.
func callerID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}

// parseBody decodes the JSON request body into dest.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func parseBody(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// parsePageQuery reads the limit and before query parameters. before must
// be an RFC 3339 timestamp; limit is normalized by the repository.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func parsePageQuery(c *fiber.Ctx) (repository.PageQuery, error) {
	q := repository.PageQuery{Limit: c.QueryInt("limit", repository.DefaultPageSize)}

	if raw := strings.TrimSpace(c.Query("before")); raw != "" {
		before, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			_ = models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("before must be an RFC 3339 timestamp"))
			return q, errResponseWritten
		}
		before = before.UTC()
		q.Before = &before
	}
	return q.Normalize(), nil
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
// The error message is derived from the parameter name (e.g. "id" -> "Invalid ID",
// "userId" -> "Invalid user ID", "planId" -> "Invalid plan ID").
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID", "taskId" -> "task ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}
