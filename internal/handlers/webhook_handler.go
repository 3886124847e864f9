package handlers

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/jobsync/internal/whatsapp"
)

// MessageHandler answers a single WhatsApp message.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg whatsapp.Message) error
}

type WebhookHandler struct {
	bot         MessageHandler
	verifyToken string
	log         *zap.Logger
}

func NewWebhookHandler(bot MessageHandler, verifyToken string, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		bot:         bot,
		verifyToken: verifyToken,
		log:         log,
	}
}

// HandleVerify answers Meta's subscription handshake.
func (h *WebhookHandler) HandleVerify(c *fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")

	if mode != "subscribe" || h.verifyToken == "" || token != h.verifyToken {
		h.log.Warn("⚠️ webhook verification rejected", zap.String("mode", mode))
		return c.SendStatus(fiber.StatusForbidden)
	}

	h.log.Info("✅ webhook verified")
	return c.SendString(c.Query("hub.challenge"))
}

// HandleEvent processes every message in the payload. Meta retries anything
// but a 200, so failures are only logged.
func (h *WebhookHandler) HandleEvent(c *fiber.Ctx) error {
	var payload whatsapp.WebhookPayload
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		h.log.Warn("⚠️ malformed webhook payload", zap.Error(err))
		return c.SendStatus(fiber.StatusOK)
	}

	for _, msg := range payload.Messages() {
		if err := h.bot.HandleMessage(c.UserContext(), msg); err != nil {
			h.log.Error("❌ failed to handle whatsapp message", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}

	return c.SendStatus(fiber.StatusOK)
}
