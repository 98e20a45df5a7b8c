package server

import (
	"feedline/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SubscriptionResponse is returned by the subscribe and unsubscribe endpoints.
type SubscriptionResponse struct {
	Outcome models.SubscriptionOutcome `json:"outcome"`
	Message string                     `json:"message"`
	Target  *models.User               `json:"target"`
}

// Subscribe handles POST /api/users/:userId/subscribe
// @Summary Subscribe to a user
// @Description Repeating the call is not an error; the outcome reports already_subscribed.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Success 201 {object} SubscriptionResponse
// @Success 200 {object} SubscriptionResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{userId}/subscribe [post]
func (s *Server) Subscribe(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	result, err := s.subscriptionService.Subscribe(c.UserContext(), actorID(c), targetID)
	if err != nil {
		return respondServiceError(c, err)
	}

	status := fiber.StatusOK
	if result.Outcome.Changed() {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(toSubscriptionResponse(result.Outcome, result.Target))
}

// Unsubscribe handles POST /api/users/:userId/unsubscribe
// @Summary Unsubscribe from a user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Success 200 {object} SubscriptionResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{userId}/unsubscribe [post]
func (s *Server) Unsubscribe(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	result, err := s.subscriptionService.Unsubscribe(c.UserContext(), actorID(c), targetID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(toSubscriptionResponse(result.Outcome, result.Target))
}

// GetUserProfile handles GET /api/users/:userId
// @Summary User profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Success 200 {object} models.Profile
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{userId} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	profile, err := s.feedService.Profile(c.UserContext(), actorID(c), targetID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profile)
}

// Explore handles GET /api/explore
// @Summary Explore users
// @Description Every user except the viewer, ordered by username. is_subscribed is omitted for anonymous viewers.
// @Tags users
// @Produce json
// @Success 200 {array} models.ExploreUser
// @Router /explore [get]
func (s *Server) Explore(c *fiber.Ctx) error {
	users, err := s.feedService.Explore(c.UserContext(), s.optionalUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(users)
}

// GetSubscriptions handles GET /api/subscriptions
// @Summary Users the caller subscribes to
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.UserEdge
// @Router /subscriptions [get]
func (s *Server) GetSubscriptions(c *fiber.Ctx) error {
	edges, err := s.feedService.Subscriptions(c.UserContext(), actorID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(edges)
}

// GetSubscribers handles GET /api/subscribers
// @Summary Users subscribed to the caller
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.UserEdge
// @Router /subscribers [get]
func (s *Server) GetSubscribers(c *fiber.Ctx) error {
	edges, err := s.feedService.Subscribers(c.UserContext(), actorID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(edges)
}

func toSubscriptionResponse(outcome models.SubscriptionOutcome, target *models.User) SubscriptionResponse {
	username := ""
	if target != nil {
		username = target.Username
	}
	return SubscriptionResponse{
		Outcome: outcome,
		Message: outcome.Message(username),
		Target:  target,
	}
}
