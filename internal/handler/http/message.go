package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"collaborative-whiteboard/internal/service"
)

// MessageHandler 封装房间聊天消息相关的 HTTP 处理逻辑。
type MessageHandler struct {
	messageService *service.MessageService
}

// NewMessageHandler 创建 MessageHandler 实例。
func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// PostMessageRequest 定义发消息请求体。
type PostMessageRequest struct {
	Text string `json:"text" binding:"required,max=2000"`
}

// PostMessage 在房间内发布一条消息。
func (h *MessageHandler) PostMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomID")
	if !ok {
		return
	}
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: text is required")
		return
	}

	message, err := h.messageService.PostMessage(c.Request.Context(), roomID, userID, req.Text)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, message)
}

// ListMessages 分页返回房间消息 (最新在前)。
func (h *MessageHandler) ListMessages(c *gin.Context) {
	roomID, ok := pathID(c, "roomID")
	if !ok {
		return
	}
	page, size := pagingQuery(c)
	result, err := h.messageService.ListMessages(c.Request.Context(), roomID, page, size)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, result)
}
