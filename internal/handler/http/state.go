package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"collaborative-whiteboard/internal/service"
)

// StateHandler 封装画板状态历史相关的 HTTP 处理逻辑。
type StateHandler struct {
	boardService *service.BoardService
}

// NewStateHandler 创建 StateHandler 实例。
func NewStateHandler(boardService *service.BoardService) *StateHandler {
	return &StateHandler{boardService: boardService}
}

// CreateStateRequest 定义保存新状态的请求体。
type CreateStateRequest struct {
	Version uint   `json:"version" binding:"required,min=1"`
	Payload string `json:"payload"`
}

// CreateState 为画板追加一个不可变状态并激活它。
// 同画板重复版本号返回 409。
func (h *StateHandler) CreateState(c *gin.Context) {
	boardID, ok := pathID(c, "boardID")
	if !ok {
		return
	}
	var req CreateStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: version is required and must be positive")
		return
	}

	state, err := h.boardService.CreateBoardState(c.Request.Context(), boardID, req.Version, req.Payload)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	logrus.WithFields(logrus.Fields{"board_id": boardID, "state_id": state.ID, "version": state.Version}).
		Info("Handler.CreateState: Board state created successfully")
	SuccessResponse(c, http.StatusCreated, state)
}

// ListStates 分页返回画板状态历史 (版本号倒序)。
func (h *StateHandler) ListStates(c *gin.Context) {
	boardID, ok := pathID(c, "boardID")
	if !ok {
		return
	}
	page, size := pagingQuery(c)
	result, err := h.boardService.ListBoardStates(c.Request.Context(), boardID, page, size)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, result)
}

// DeleteState 撤销到目标状态之前：删除该状态及所有更高版本，
// 返回修复后的当前状态。
func (h *StateHandler) DeleteState(c *gin.Context) {
	stateID, ok := pathID(c, "stateID")
	if !ok {
		return
	}
	current, err := h.boardService.DeleteBoardState(c.Request.Context(), stateID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{
		"message":       "Board state deleted successfully",
		"current_state": current,
	})
}
