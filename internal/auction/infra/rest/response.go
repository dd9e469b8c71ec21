// Package rest is the HTTP boundary of the auction module.
package rest

import (
	"github.com/gofiber/fiber/v2"
)

// JSONResponse sends a structured JSON response
func JSONResponse(c *fiber.Ctx, status int, data any, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

// JSONError sends a structured error response. Server side failures only
// expose the mapped message, driver errors stay in the logs.
func JSONError(c *fiber.Ctx, status int, err error, message string) error {
	detail := message
	if err != nil && status < fiber.StatusInternalServerError {
		detail = err.Error()
	}
	return c.Status(status).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"error":   detail,
	})
}
