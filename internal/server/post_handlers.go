package server

import (
	"io"
	"mime/multipart"
	"strings"

	"feedline/internal/models"
	"feedline/internal/service"

	"github.com/gofiber/fiber/v2"
)

// postRequest is the JSON body for creating or editing a post.
type postRequest struct {
	Text *string `json:"text"`
}

// GetFeed handles GET /api/feed
// @Summary Home feed
// @Description Posts by the viewer and everyone they subscribe to, newest first. Anonymous viewers see every post.
// @Tags feed
// @Produce json
// @Param limit query int false "Maximum number of posts (max 100)"
// @Param offset query int false "Number of posts to skip"
// @Success 200 {array} models.Post
// @Router /feed [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	viewerID := s.optionalUserID(c)
	posts, err := s.feedService.HomeFeed(c.UserContext(), viewerID, parsePagination(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// CreatePost handles POST /api/posts
// @Summary Create post
// @Description Accepts JSON {"text": "..."} or multipart form data with a text field and an optional image file.
// @Tags posts
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param text formData string true "Post text (max 1000 characters)"
// @Param image formData file false "JPEG, PNG, GIF or WebP image"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	text, image, err := s.parsePostBody(c)
	if err != nil {
		return nil
	}

	in := service.CreatePostInput{AuthorID: actorID(c), Image: image}
	if text != nil {
		in.Text = *text
	}

	post, err := s.postService.CreatePost(c.UserContext(), in)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost handles GET /api/posts/:postId
// @Summary Post detail
// @Tags posts
// @Produce json
// @Param postId path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{postId} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), postID, s.optionalUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// UpdatePost handles PUT /api/posts/:postId
// @Summary Edit post
// @Description Only the author may edit. Omitted fields are left unchanged.
// @Tags posts
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Param text formData string false "New text"
// @Param image formData file false "Replacement image"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{postId} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	text, image, err := s.parsePostBody(c)
	if err != nil {
		return nil
	}

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		ActorID: actorID(c),
		PostID:  postID,
		Text:    text,
		Image:   image,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:postId
// @Summary Delete post
// @Description Only the author may delete. Comments and likes are removed with the post.
// @Tags posts
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{postId} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), actorID(c), postID); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ToggleLike handles POST /api/posts/:postId/like
// @Summary Toggle like
// @Description XHR callers receive JSON; other callers are redirected to the local path in next.
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Param next query string false "Local path to redirect to"
// @Success 200 {object} models.LikeResult
// @Success 303
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{postId}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}

	result, err := s.likeService.ToggleLike(c.UserContext(), actorID(c), postID)
	if err != nil {
		return respondServiceError(c, err)
	}

	if isXHR(c) {
		return c.JSON(result)
	}
	return c.Redirect(safeRedirectTarget(c.Query("next")), fiber.StatusSeeOther)
}

// parsePostBody reads the text and optional image from a JSON or multipart
// body. A nil text means the field was absent. On failure it writes a 400
// response and returns errResponseWritten.
func (s *Server) parsePostBody(c *fiber.Ctx) (*string, *service.ImageUpload, error) {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			_ = models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid form data"))
			return nil, nil, errResponseWritten
		}

		var text *string
		if values, ok := form.Value["text"]; ok && len(values) > 0 {
			text = &values[0]
		}

		var image *service.ImageUpload
		if files := form.File["image"]; len(files) > 0 {
			image, err = readImageUpload(files[0])
			if err != nil {
				_ = models.RespondWithError(c, fiber.StatusBadRequest,
					models.NewValidationError("Unable to read uploaded file"))
				return nil, nil, errResponseWritten
			}
		}
		return text, image, nil
	}

	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return nil, nil, errResponseWritten
	}
	return req.Text, nil, nil
}

func readImageUpload(file *multipart.FileHeader) (*service.ImageUpload, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	return &service.ImageUpload{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}
