package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fuckdb/fuckdb-backend/internal/apierr"
)

// Envelope shapes mirror the frontend contract: successes carry
// {status, message, data}, errors carry {status, message, code}.

func RespondOK(c *gin.Context, message string, data any) {
	body := gin.H{"status": "success"}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(http.StatusOK, body)
}

func RespondCreated(c *gin.Context, message string, data any) {
	body := gin.H{"status": "success"}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(http.StatusCreated, body)
}

// RespondError maps the error taxonomy onto the HTTP status line and the
// error envelope. Unknown errors become a plain 500 without leaking detail.
func RespondError(c *gin.Context, err error) {
	status := apierr.Status(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	c.JSON(status, gin.H{
		"status":  "error",
		"message": message,
		"code":    status,
	})
}
