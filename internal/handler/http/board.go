package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"collaborative-whiteboard/internal/service"
)

// BoardHandler 封装画板生命周期相关的 HTTP 处理逻辑。
type BoardHandler struct {
	boardService *service.BoardService
}

// NewBoardHandler 创建 BoardHandler 实例。
func NewBoardHandler(boardService *service.BoardService) *BoardHandler {
	return &BoardHandler{boardService: boardService}
}

// CreateBoard 在房间内创建一块新画板 (自带空白 v1 状态并立即激活)。
func (h *BoardHandler) CreateBoard(c *gin.Context) {
	roomID, ok := pathID(c, "roomID")
	if !ok {
		return
	}
	board, err := h.boardService.CreateBoard(c.Request.Context(), roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	logrus.WithFields(logrus.Fields{"room_id": roomID, "board_id": board.ID}).
		Info("Handler.CreateBoard: Board created successfully")
	SuccessResponse(c, http.StatusCreated, board)
}

// ListBoards 分页返回房间内的画板。
func (h *BoardHandler) ListBoards(c *gin.Context) {
	roomID, ok := pathID(c, "roomID")
	if !ok {
		return
	}
	page, size := pagingQuery(c)
	result, err := h.boardService.ListBoards(c.Request.Context(), roomID, page, size)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, result)
}

// GetBoard 返回单块画板。
func (h *BoardHandler) GetBoard(c *gin.Context) {
	boardID, ok := pathID(c, "boardID")
	if !ok {
		return
	}
	board, err := h.boardService.GetBoard(c.Request.Context(), boardID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, board)
}

// DeleteBoard 删除画板及其状态历史，并修复房间激活指针。
func (h *BoardHandler) DeleteBoard(c *gin.Context) {
	boardID, ok := pathID(c, "boardID")
	if !ok {
		return
	}
	if err := h.boardService.DeleteBoard(c.Request.Context(), boardID); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Board deleted successfully"})
}

// TransferBoardRequest 定义移动/复制画板的请求体。
type TransferBoardRequest struct {
	TargetRoomID uint `json:"target_room_id" binding:"required"`
}

// MoveBoard 把画板移动到另一个房间。
func (h *BoardHandler) MoveBoard(c *gin.Context) {
	boardID, ok := pathID(c, "boardID")
	if !ok {
		return
	}
	var req TransferBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: target_room_id is required")
		return
	}
	board, err := h.boardService.MoveBoard(c.Request.Context(), boardID, req.TargetRoomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, board)
}

// CopyBoard 把画板连同完整状态历史复制到另一个房间。
func (h *BoardHandler) CopyBoard(c *gin.Context) {
	boardID, ok := pathID(c, "boardID")
	if !ok {
		return
	}
	var req TransferBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: target_room_id is required")
		return
	}
	clone, err := h.boardService.CopyBoard(c.Request.Context(), boardID, req.TargetRoomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, clone)
}

// ActivatePreviousRequest 定义激活上一块画板的请求体。
type ActivatePreviousRequest struct {
	ExcludeBoardID uint `json:"exclude_board_id" binding:"required"`
}

// ActivatePrevious 把房间激活指针切到最近更新的其他画板。
func (h *BoardHandler) ActivatePrevious(c *gin.Context) {
	roomID, ok := pathID(c, "roomID")
	if !ok {
		return
	}
	var req ActivatePreviousRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: exclude_board_id is required")
		return
	}
	room, err := h.boardService.ActivatePreviousBoardState(c.Request.Context(), roomID, req.ExcludeBoardID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, room)
}

// ActivatedRoomRequest 定义惰性修复读取的请求体。
type ActivatedRoomRequest struct {
	BoardID           uint `json:"board_id" binding:"required"`
	PreviousLastState uint `json:"previous_last_state"`
}

// GetActivatedRoom 读取房间并在激活指针过期时就地修复。
func (h *BoardHandler) GetActivatedRoom(c *gin.Context) {
	roomID, ok := pathID(c, "roomID")
	if !ok {
		return
	}
	var req ActivatedRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: board_id is required")
		return
	}
	room, err := h.boardService.GetActivatedRoom(c.Request.Context(), roomID, req.BoardID, req.PreviousLastState)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, room)
}
