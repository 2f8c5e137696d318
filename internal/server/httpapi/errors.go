package httpapi

import (
	"errors"

	"github.com/everkeep/everkeep/internal/common"
	"github.com/everkeep/everkeep/internal/cryptox"
	"github.com/gofiber/fiber/v2"
)

// writeError maps the service error taxonomy onto HTTP statuses.
//
// Authorization failures answer 404, same as absent resources: a caller
// probing ids cannot tell a vault that does not exist from one they may not
// touch. Integrity failures deliberately answer 500 without detail.
func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return respondError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return respondError(c, fiber.StatusUnauthorized, "unauthorized")
	case errors.Is(err, common.ErrorNotFound),
		errors.Is(err, common.ErrorForbidden):
		return respondError(c, fiber.StatusNotFound, "not found")
	case errors.Is(err, common.ErrorConflict):
		return respondError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, cryptox.ErrIntegrity):
		return respondError(c, fiber.StatusInternalServerError, "internal error")
	default:
		return respondError(c, fiber.StatusInternalServerError, "internal error")
	}
}

func respondError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(ErrorResponse{Error: true, Message: msg})
}
