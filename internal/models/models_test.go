package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionOutcome(t *testing.T) {
	assert.True(t, OutcomeSubscribed.Changed())
	assert.True(t, OutcomeUnsubscribed.Changed())
	assert.False(t, OutcomeAlreadySubscribed.Changed())
	assert.False(t, OutcomeNotSubscribed.Changed())

	assert.Equal(t, "You are already subscribed to bob", OutcomeAlreadySubscribed.Message("bob"))
	assert.Equal(t, "You are not subscribed to bob", OutcomeNotSubscribed.Message("bob"))
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewForbiddenError("nope"))
	assert.True(t, HasCode(err, CodeForbidden))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeForbidden))
}

func TestRespondWithError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		status      int
		wantCode    string
		wantMessage string
		wantDetails string
	}{
		{
			name:        "not found",
			err:         NewNotFoundError("Post", 7),
			status:      fiber.StatusNotFound,
			wantCode:    CodeNotFound,
			wantMessage: "Post with ID 7 not found",
		},
		{
			name:        "internal hides cause",
			err:         NewInternalError(errors.New("pq: connection refused")),
			status:      fiber.StatusInternalServerError,
			wantCode:    CodeInternal,
			wantMessage: "Internal server error",
		},
		{
			name:        "plain error",
			err:         errors.New("something"),
			status:      fiber.StatusBadRequest,
			wantMessage: "something",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				return RespondWithError(c, tt.status, tt.err)
			})

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.status, resp.StatusCode)

			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(raw, &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantMessage, body.Error)
			assert.Equal(t, tt.wantDetails, body.Details)
			assert.NotContains(t, string(raw), "connection refused")
		})
	}
}

func TestExploreUser_OmitsSubscriptionForAnonymous(t *testing.T) {
	anon, err := json.Marshal(ExploreUser{User: User{ID: 1, Username: "alice"}})
	require.NoError(t, err)
	assert.NotContains(t, string(anon), "is_subscribed")

	yes := true
	authed, err := json.Marshal(ExploreUser{User: User{ID: 1, Username: "alice"}, IsSubscribed: &yes})
	require.NoError(t, err)
	assert.Contains(t, string(authed), `"is_subscribed":true`)
}
