package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postflow/internal/service"
	"github.com/maheshrc27/postflow/internal/transfer"
)

type PostHandler struct {
	s service.PostService
}

func NewPostHandler(service service.PostService) *PostHandler {
	return &PostHandler{s: service}
}

// CreatePost stores a draft, or a scheduled post when scheduled_time is set.
func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	var req transfer.PostCreation
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	post, err := h.s.CreatePost(c.Context(), GetUserID(c), &req)
	if err != nil {
		return sendError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	userId := GetUserID(c)
	postId := c.QueryInt("id", 0)

	if postId != 0 {
		post, err := h.s.PostInfo(c.Context(), int64(postId), userId)
		if err != nil {
			return sendError(c, err)
		}

		return c.Status(fiber.StatusOK).JSON(post)
	}

	posts, err := h.s.List(c.Context(), userId)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postId := c.QueryInt("id", 0)

	if err := h.s.Remove(c.Context(), userID, int64(postId)); err != nil {
		return sendError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

// PublishPost publishes right away and returns one outcome per platform.
func (h *PostHandler) PublishPost(c *fiber.Ctx) error {
	id, err := postID(c)
	if err != nil {
		return sendError(c, err)
	}

	outcomes, err := h.s.PublishNow(c.Context(), GetUserID(c), id)
	if err != nil {
		return sendError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(outcomes)
}

func (h *PostHandler) UnpublishPost(c *fiber.Ctx) error {
	id, err := postID(c)
	if err != nil {
		return sendError(c, err)
	}

	deleted, err := h.s.Unpublish(c.Context(), GetUserID(c), id)
	if err != nil {
		return sendError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(deleted)
}

func (h *PostHandler) SyncAnalytics(c *fiber.Ctx) error {
	id, err := postID(c)
	if err != nil {
		return sendError(c, err)
	}

	snapshots, err := h.s.SyncAnalytics(c.Context(), GetUserID(c), id)
	if err != nil {
		return sendError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(snapshots)
}

func (h *PostHandler) GetAnalytics(c *fiber.Ctx) error {
	id, err := postID(c)
	if err != nil {
		return sendError(c, err)
	}

	analytics, err := h.s.Analytics(c.Context(), GetUserID(c), id)
	if err != nil {
		return sendError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(analytics)
}
