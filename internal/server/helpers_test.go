package server

import (
	"errors"
	"testing"

	"feedline/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestHumanizeParam(t *testing.T) {
	tests := []struct {
		param string
		want  string
	}{
		{"userId", "user ID"},
		{"postId", "post ID"},
		{"commentId", "comment ID"},
		{"targetUserId", "target user ID"},
		{"slug", "slug"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, humanizeParam(tt.param), tt.param)
	}
}

func TestSafeRedirectTarget(t *testing.T) {
	tests := map[string]string{
		"":                     "/",
		"/":                    "/",
		"/posts/3":             "/posts/3",
		"/feed?page=2":         "/feed?page=2",
		"//evil.example.com":   "/",
		"/\\evil.example.com":  "/",
		"https://evil.example": "/",
		"relative/path":        "/",
	}
	for next, want := range tests {
		assert.Equal(t, want, safeRedirectTarget(next), next)
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.NewValidationError("bad"), fiber.StatusBadRequest},
		{models.NewSelfSubscriptionError(), fiber.StatusBadRequest},
		{models.NewUnauthorizedError("who"), fiber.StatusUnauthorized},
		{models.NewForbiddenError("no"), fiber.StatusForbidden},
		{models.NewNotFoundError("Post", 1), fiber.StatusNotFound},
		{models.NewInternalError(errors.New("boom")), fiber.StatusInternalServerError},
		{errors.New("plain"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusForError(tt.err), tt.err.Error())
	}
}

func TestCodeForStatus(t *testing.T) {
	assert.Equal(t, models.CodeValidation, codeForStatus(fiber.StatusRequestEntityTooLarge))
	assert.Equal(t, models.CodeNotFound, codeForStatus(fiber.StatusNotFound))
	assert.Equal(t, models.CodeInternal, codeForStatus(fiber.StatusBadGateway))
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Authorization required", capitalize("authorization required"))
	assert.Equal(t, "", capitalize(""))
}
