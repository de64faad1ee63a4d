package httpapi

import (
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"doclink/domain"
	"doclink/errors"
	"doclink/repositories"
	"doclink/search"
	"doclink/services"
)

var validate = validator.New()

type Handlers struct {
	log           *slog.Logger
	auth          services.IAuthService
	chat          services.IChatService
	conversations services.IConversationService
	connections   repositories.ConnectionRepository
	index         *search.Index
}

func NewHandlers(log *slog.Logger, auth services.IAuthService,
	chat services.IChatService, conversations services.IConversationService,
	connections repositories.ConnectionRepository, index *search.Index) *Handlers {
	return &Handlers{
		log:           log,
		auth:          auth,
		chat:          chat,
		conversations: conversations,
		connections:   connections,
		index:         index,
	}
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register creates an account and returns its first session token.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, errors.ErrInvalidCredentials)
	}
	if err := validate.Struct(req); err != nil {
		return errorResponse(c, errors.ErrInvalidCredentials)
	}

	token, err := h.auth.Register(req.Email, req.Password)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"token": token})
}

func (h *Handlers) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, errors.ErrInvalidCredentials)
	}

	token, err := h.auth.Login(req.Email, req.Password)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"token": token})
}

// ListConversations returns the caller's partners with last message and
// unread count, most recent activity first.
func (h *Handlers) ListConversations(c *fiber.Ctx) error {
	conversations, err := h.conversations.ListConversations(Identity(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"conversations": conversations,
		"total":         len(conversations),
	})
}

// GetHistory returns one page of messages with a partner, oldest first.
// Fetching history marks the partner's unread messages as read.
func (h *Handlers) GetHistory(c *fiber.Ctx) error {
	var cursor *string
	if q := c.Query("cursor"); q != "" {
		cursor = lo.ToPtr(q)
	}

	messages, next, err := h.conversations.History(c.UserContext(), domain.HistoryCommand{
		UserID:    Identity(c),
		PartnerID: c.Params("partnerId"),
		Cursor:    cursor,
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"messages": messages,
		"cursor":   next,
		"total":    len(messages),
	})
}

func (h *Handlers) UnreadCount(c *fiber.Ctx) error {
	count, err := h.conversations.UnreadCount(Identity(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"unreadCount": count})
}

type sendMessageRequest struct {
	Recipient string `json:"recipient" validate:"required"`
	Content   string `json:"content" validate:"required"`
}

// SendMessage is the non-live fallback: same validation, authorization and
// persistence as the live path. Fan-out still happens opportunistically
// for whoever is in the room right now.
func (h *Handlers) SendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, errors.ErrEmptyContent)
	}
	if err := validate.Struct(req); err != nil {
		return errorResponse(c, errors.ErrEmptyContent)
	}

	msg, err := h.chat.Send(c.UserContext(), domain.SendMessageCommand{
		SenderID:    Identity(c),
		RecipientID: req.Recipient,
		Content:     req.Content,
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// SearchMessages runs a full-text query over the caller's conversations.
func (h *Handlers) SearchMessages(c *fiber.Ctx) error {
	terms := c.Query("q")
	if terms == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   errors.CodeValidation,
			"message": "query parameter q is required",
		})
	}
	limit := c.QueryInt("limit", 20)
	if limit > 100 {
		limit = 100
	}

	var room domain.RoomID
	if partner := c.Query("partner"); partner != "" {
		var err error
		if room, err = domain.NewRoomID(Identity(c), partner); err != nil {
			return errorResponse(c, err)
		}
	}

	hits, err := h.index.Search(c.UserContext(), Identity(c), terms, room, limit)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"hits":  hits,
		"total": len(hits),
	})
}

// Connect records a platform connection between the caller and a partner,
// unlocking message exchange between the pair.
func (h *Handlers) Connect(c *fiber.Ctx) error {
	if err := h.connections.Connect(Identity(c), c.Params("partnerId")); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handlers) Disconnect(c *fiber.Ctx) error {
	if err := h.connections.Disconnect(Identity(c), c.Params("partnerId")); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handlers) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy", "service": "doclink-messaging"})
}
