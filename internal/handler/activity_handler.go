package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/softiel/backend/internal/dto"
	"github.com/softiel/backend/internal/service"
	"github.com/softiel/backend/internal/thread"
	"go.uber.org/zap"
)

type ActivityHandler struct {
	service *service.ActivityService
	log     *zap.Logger
}

func NewActivityHandler(svc *service.ActivityService, log *zap.Logger) *ActivityHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ActivityHandler{service: svc, log: log}
}

// List - GET /admin/activities
func (h *ActivityHandler) List(c *fiber.Ctx) error {
	page, limit := pagination(c)
	unreadOnly := c.QueryBool("unread_only", false)

	activities, total, err := h.service.List(c.UserContext(), unreadOnly, page, limit)
	if err != nil {
		return writeError(c, h.log, err)
	}

	unreadCount, _ := h.service.CountUnread(c.UserContext())

	responses := make([]dto.ActivityResponse, 0, len(activities))
	for _, a := range activities {
		responses = append(responses, dto.ToActivityResponse(a))
	}

	totalPages := (int(total) + limit - 1) / limit

	return c.JSON(fiber.Map{
		"success": true,
		"data":    responses,
		"meta": dto.ActivityListMeta{
			Page:        page,
			Limit:       limit,
			Total:       total,
			TotalPages:  totalPages,
			UnreadCount: unreadCount,
		},
	})
}

// Count - GET /admin/activities/count
func (h *ActivityHandler) Count(c *fiber.Ctx) error {
	count, err := h.service.CountUnread(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse(fiber.Map{"unread_count": count}, ""))
}

// MarkAsRead - PATCH /admin/activities/:id/read
func (h *ActivityHandler) MarkAsRead(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "activity")
	}

	if err := h.service.MarkAsRead(c.UserContext(), id); err != nil {
		if errors.Is(err, thread.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse("ACTIVITY_NOT_FOUND", "Activity not found"))
		}
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse(nil, "Activity marked as read"))
}

// MarkAllAsRead - PATCH /admin/activities/read-all
func (h *ActivityHandler) MarkAllAsRead(c *fiber.Ctx) error {
	if err := h.service.MarkAllAsRead(c.UserContext()); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse(nil, "All activities marked as read"))
}
