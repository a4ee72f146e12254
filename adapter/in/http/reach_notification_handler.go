package http

import (
	"errors"

	"reach_server/core/domain"
	"reach_server/core/port/in"
	"reach_server/core/service/notification"
	"reach_server/infra/middleware"
	"reach_server/pkg/apperr"
	"reach_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// maxMarkRead bounds one batch mark-read request.
const maxMarkRead = 500

type NotificationHandler struct {
	notificationService in.NotificationService
}

func NewNotificationHandler(notificationService in.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func (h *NotificationHandler) Register(router fiber.Router) {
	notifications := router.Group("/notifications")
	notifications.Get("/", h.List)
	notifications.Get("/unread-count", h.GetUnreadCount)
	notifications.Get("/:id/route", h.GetRoute)
	notifications.Post("/mark-read", h.MarkAsRead)
	notifications.Post("/mark-all-read", h.MarkAllAsRead)
	notifications.Delete("/:id", h.Delete)
	notifications.Delete("/", h.DeleteAll)

	router.Post("/push-tokens", h.RegisterPushToken)
	router.Delete("/push-tokens", h.UnregisterPushToken)
}

// List returns the caller's notifications, each with the route resolved for
// the caller's role.
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	page := response.GetPagination(c, 20, 100)
	filter := &domain.NotificationFilter{
		UserID: userID,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	if c.QueryBool("unread_only", false) {
		unread := false
		filter.IsRead = &unread
	}
	if t := c.Query("type"); t != "" {
		filter.Type = &t
	}

	items, total, err := h.notificationService.List(c.Context(), filter, middleware.GetRole(c))
	if err != nil {
		return err
	}
	return response.OKWithMeta(c, items, response.NewMeta(total, page))
}

func (h *NotificationHandler) GetUnreadCount(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	count, err := h.notificationService.GetUnreadCount(c.Context(), userID)
	if err != nil {
		return err
	}
	return response.OK(c, fiber.Map{"count": count})
}

// GetRoute tells the client where tapping the notification should go. A null
// route means mark as read and stay put.
func (h *NotificationHandler) GetRoute(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	decision, err := h.notificationService.Route(c.Context(), userID, id, middleware.GetRole(c))
	if err != nil {
		return err
	}
	return response.OK(c, decision)
}

func (h *NotificationHandler) MarkAsRead(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	var req in.MarkReadRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if len(req.IDs) > maxMarkRead {
		return apperr.InvalidInput("ids", "too many ids")
	}

	updated, err := h.notificationService.MarkAsRead(c.Context(), userID, req.IDs)
	if err != nil {
		return err
	}
	return response.OK(c, fiber.Map{"updated": updated})
}

func (h *NotificationHandler) MarkAllAsRead(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	if err := h.notificationService.MarkAllAsRead(c.Context(), userID); err != nil {
		return err
	}
	return response.NoContent(c)
}

func (h *NotificationHandler) Delete(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.notificationService.Delete(c.Context(), userID, id); err != nil {
		return err
	}
	return response.NoContent(c)
}

func (h *NotificationHandler) DeleteAll(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	if err := h.notificationService.DeleteAll(c.Context(), userID); err != nil {
		return err
	}
	return response.NoContent(c)
}

func (h *NotificationHandler) RegisterPushToken(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	var req in.RegisterPushTokenRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	token := &domain.PushToken{UserID: userID, Token: req.Token, Platform: req.Platform}
	if err := h.notificationService.RegisterPushToken(c.Context(), token); err != nil {
		return pushTokenError(err)
	}
	return response.Created(c, token)
}

func (h *NotificationHandler) UnregisterPushToken(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	var req in.RegisterPushTokenRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.notificationService.UnregisterPushToken(c.Context(), userID, req.Token); err != nil {
		return pushTokenError(err)
	}
	return response.NoContent(c)
}

func pushTokenError(err error) error {
	if errors.Is(err, notification.ErrEmptyPushToken) {
		return apperr.MissingField("token")
	}
	return err
}
