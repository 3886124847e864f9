package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/jobsync/internal/services"
)

// StatusFor maps service errors to HTTP status codes.
func StatusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}

	switch {
	case errors.Is(err, services.ErrExtractionFailed):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, services.ErrUnsupportedFile),
		errors.Is(err, services.ErrInvalidJob),
		errors.Is(err, services.ErrInvalidMatchRequest):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrJobNotFound),
		errors.Is(err, services.ErrResumeNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrMatchServiceUnavailable):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

func respondError(c *fiber.Ctx, err error) error {
	return c.Status(StatusFor(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}
