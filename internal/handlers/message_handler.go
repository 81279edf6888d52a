package handlers

import (
	"strconv"

	"artisan-marketplace/internal/models"

	"github.com/gin-gonic/gin"
)

// MessageHandler handles admin and artisan chat
type MessageHandler struct {
	messages MessagingAPI
	sockets  SocketServer
	pager    Pager
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messages MessagingAPI, sockets SocketServer, pager Pager) *MessageHandler {
	return &MessageHandler{messages: messages, sockets: sockets, pager: pagerOrDefault(pager)}
}

// SendMessage sends a message to the counterpart
// @Summary Send message
// @Tags Messages
// @Accept json
// @Produce json
// @Param request body models.SendMessageRequest true "Message"
// @Success 201 {object} models.AdminMessage
// @Router /api/v1/messages [post]
func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID, role, ok := caller(c)
	if !ok {
		return
	}
	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "VALIDATION_ERROR", err.Error())
		return
	}

	msg, err := h.messages.Send(c.Request.Context(), userID, role, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, msg, "")
}

// ListConversations returns the caller's inbox
// @Summary List conversations
// @Tags Messages
// @Produce json
// @Success 200 {array} models.ConversationSummary
// @Router /api/v1/messages/conversations [get]
func (h *MessageHandler) ListConversations(c *gin.Context) {
	userID, role, ok := caller(c)
	if !ok {
		return
	}
	conversations, err := h.messages.Conversations(c.Request.Context(), userID, role)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, conversations)
}

// GetConversation returns the thread with one counterpart
// @Summary Get conversation
// @Tags Messages
// @Produce json
// @Param userId path string true "Counterpart user ID"
// @Param markRead query bool false "Mark incoming messages read"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {array} models.AdminMessage
// @Router /api/v1/messages/conversations/{userId} [get]
func (h *MessageHandler) GetConversation(c *gin.Context) {
	userID, role, ok := caller(c)
	if !ok {
		return
	}
	counterpartID, ok := uuidParam(c, "userId")
	if !ok {
		return
	}
	markRead, _ := strconv.ParseBool(c.DefaultQuery("markRead", "false"))
	page, limit := h.pager.parse(c)

	msgs, total, err := h.messages.Conversation(c.Request.Context(), userID, role, counterpartID, page, limit, markRead)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, msgs, page, limit, total)
}

// MarkRead marks the counterpart's messages to the caller as read
// @Summary Mark conversation read
// @Tags Messages
// @Produce json
// @Param userId path string true "Counterpart user ID"
// @Success 200 {object} models.SuccessResponse
// @Router /api/v1/messages/conversations/{userId}/read [put]
func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	counterpartID, ok := uuidParam(c, "userId")
	if !ok {
		return
	}
	count, err := h.messages.MarkRead(c.Request.Context(), userID, counterpartID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"marked": count})
}

// UnreadCount returns the caller's total unread messages
// @Summary Unread count
// @Tags Messages
// @Produce json
// @Success 200 {object} models.SuccessResponse
// @Router /api/v1/messages/unread-count [get]
func (h *MessageHandler) UnreadCount(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	count, err := h.messages.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"unread": count})
}

// ListContacts lists users the caller can message
// @Summary List contacts
// @Tags Messages
// @Produce json
// @Param search query string false "Name, email or shop name"
// @Success 200 {array} models.User
// @Router /api/v1/messages/contacts [get]
func (h *MessageHandler) ListContacts(c *gin.Context) {
	_, role, ok := caller(c)
	if !ok {
		return
	}
	page, limit := h.pager.parse(c)
	users, total, err := h.messages.Contacts(c.Request.Context(), role, c.Query("search"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, users, page, limit, total)
}

// Connect upgrades to a WebSocket that receives message events
// @Summary Realtime message stream
// @Tags Messages
// @Param token query string false "JWT when the client cannot set headers"
// @Router /api/v1/messages/ws [get]
func (h *MessageHandler) Connect(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	h.sockets.ServeWs(c.Writer, c.Request, userID)
}
