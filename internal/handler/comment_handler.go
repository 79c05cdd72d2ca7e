package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/softiel/backend/internal/domain"
	"github.com/softiel/backend/internal/dto"
	"github.com/softiel/backend/internal/export"
	"github.com/softiel/backend/internal/middleware"
	"github.com/softiel/backend/internal/service"
	"github.com/softiel/backend/internal/thread"
	"go.uber.org/zap"
)

type CommentHandler struct {
	service   *service.CommentService
	validate  *validator.Validate
	log       *zap.Logger
	urlExpiry int64
}

func NewCommentHandler(svc *service.CommentService, validate *validator.Validate, exportURLExpirySeconds int64, log *zap.Logger) *CommentHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CommentHandler{service: svc, validate: validate, log: log, urlExpiry: exportURLExpirySeconds}
}

// List - GET /blogs/:blog_id/comments
func (h *CommentHandler) List(c *fiber.Ctx) error {
	blogID, ok := parseID(c, "blog_id")
	if !ok {
		return invalidID(c, "blog")
	}

	rendered, tree, err := h.service.Render(c.UserContext(), blogID, thread.ViewPublic)
	if err != nil {
		return writeError(c, h.log, err)
	}

	liked, err := h.service.LikedIDs(c.UserContext(), middleware.ViewerKey(c), tree)
	if err != nil {
		h.log.Warn("liked set unavailable", zap.Error(err))
		liked = []uuid.UUID{}
	}

	return c.JSON(dto.SuccessResponse(dto.ThreadResponse{
		BlogID:   blogID,
		Total:    thread.Count(tree),
		Comments: rendered,
		LikedIDs: liked,
	}, ""))
}

// Create - POST /blogs/:blog_id/comments
func (h *CommentHandler) Create(c *fiber.Ctx) error {
	blogID, ok := parseID(c, "blog_id")
	if !ok {
		return invalidID(c, "blog")
	}

	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse("INVALID_BODY", "Invalid request body"))
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(c, err)
	}

	comment, replyingTo, err := h.service.Create(c.UserContext(), service.CreateCommentInput{
		BlogID:      blogID,
		ParentID:    req.ParentID,
		AuthorName:  req.AuthorName,
		AuthorEmail: req.AuthorEmail,
		Content:     req.Content,
	}, middleware.GetUserRole(c) == "admin")
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse(dto.CreateCommentResponse{
		Comment:    dto.ToCommentResponse(comment, h.service.Classifier()),
		ReplyingTo: replyingTo,
	}, "Comment submitted and awaiting moderation"))
}

// Like - POST /comments/:id/like
func (h *CommentHandler) Like(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "comment")
	}

	count, err := h.service.Like(c.UserContext(), id, middleware.ViewerKey(c))
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse(dto.LikeResponse{IsLiked: true, LikeCount: count}, "Comment liked"))
}

// Unlike - DELETE /comments/:id/like
func (h *CommentHandler) Unlike(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "comment")
	}

	count, err := h.service.Unlike(c.UserContext(), id, middleware.ViewerKey(c))
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse(dto.LikeResponse{IsLiked: false, LikeCount: count}, "Comment unliked"))
}

// ============================================================================
// ADMIN
// ============================================================================

// AdminList - GET /admin/blogs/:blog_id/comments
func (h *CommentHandler) AdminList(c *fiber.Ctx) error {
	blogID, ok := parseID(c, "blog_id")
	if !ok {
		return invalidID(c, "blog")
	}

	rendered, tree, err := h.service.Render(c.UserContext(), blogID, thread.ViewModerator)
	if err != nil {
		return writeError(c, h.log, err)
	}

	if c.Query("view") == "raw" {
		return c.JSON(dto.SuccessResponse(dto.RawThreadResponse{
			BlogID: blogID,
			Total:  thread.Count(tree),
			Nodes:  tree,
		}, ""))
	}

	return c.JSON(dto.SuccessResponse(dto.ThreadResponse{
		BlogID:   blogID,
		Total:    thread.Count(tree),
		Comments: rendered,
		LikedIDs: []uuid.UUID{},
	}, ""))
}

// Pending - GET /admin/comments/pending
func (h *CommentHandler) Pending(c *fiber.Ctx) error {
	page, limit := pagination(c)

	comments, total, err := h.service.Pending(c.UserContext(), page, limit)
	if err != nil {
		return writeError(c, h.log, err)
	}

	responses := make([]dto.AdminCommentResponse, 0, len(comments))
	for i := range comments {
		responses = append(responses, dto.ToAdminCommentResponse(&comments[i], h.service.Classifier()))
	}

	return c.JSON(dto.SuccessWithMeta(responses, dto.NewMeta(page, limit, total)))
}

// Approve - POST /admin/comments/:id/approve
func (h *CommentHandler) Approve(c *fiber.Ctx) error {
	return h.moderate(c, h.service.Approve, "Comment approved")
}

// Reject - POST /admin/comments/:id/reject
func (h *CommentHandler) Reject(c *fiber.Ctx) error {
	return h.moderate(c, h.service.Reject, "Comment rejected")
}

type moderateFunc func(ctx context.Context, id uuid.UUID, expectedVersion *int) (*domain.Comment, error)

func (h *CommentHandler) moderate(c *fiber.Ctx, fn moderateFunc, message string) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "comment")
	}

	var req dto.ModerateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse("INVALID_BODY", "Invalid request body"))
		}
		if err := h.validate.Struct(req); err != nil {
			return validationError(c, err)
		}
	}

	comment, err := fn(c.UserContext(), id, req.ExpectedVersion)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse(dto.ToAdminCommentResponse(comment, h.service.Classifier()), message))
}

// Delete - DELETE /admin/comments/:id
func (h *CommentHandler) Delete(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "comment")
	}

	removed, err := h.service.Delete(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse(dto.DeleteCommentResponse{Removed: removed}, "Comment deleted"))
}

// AdminReply - POST /admin/blogs/:blog_id/comments/reply
func (h *CommentHandler) AdminReply(c *fiber.Ctx) error {
	blogID, ok := parseID(c, "blog_id")
	if !ok {
		return invalidID(c, "blog")
	}

	var req dto.AdminReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse("INVALID_BODY", "Invalid request body"))
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(c, err)
	}

	comment, replyingTo, err := h.service.AdminReply(c.UserContext(), blogID, req.ParentID, req.Content)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse(dto.CreateCommentResponse{
		Comment:    dto.ToCommentResponse(comment, h.service.Classifier()),
		ReplyingTo: replyingTo,
	}, "Reply submitted"))
}

// Export - GET /admin/blogs/:blog_id/comments/export
func (h *CommentHandler) Export(c *fiber.Ctx) error {
	blogID, ok := parseID(c, "blog_id")
	if !ok {
		return invalidID(c, "blog")
	}

	result, err := h.service.Export(c.UserContext(), blogID)
	if err != nil {
		return writeError(c, h.log, err)
	}

	if result.URL != "" {
		return c.JSON(dto.SuccessResponse(dto.ExportResponse{
			Filename:  result.Filename,
			URL:       result.URL,
			ExpiresIn: h.urlExpiry,
		}, "Export ready"))
	}

	c.Attachment(result.Filename)
	c.Set(fiber.HeaderContentType, export.ContentType)
	return c.Send(result.Data)
}
