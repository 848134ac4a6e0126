package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"collaborative-whiteboard/internal/service"
)

// RoomHandler 封装与房间管理相关的 HTTP 处理逻辑。
type RoomHandler struct {
	roomService  *service.RoomService
	boardService *service.BoardService
}

// NewRoomHandler 创建 RoomHandler 实例。
func NewRoomHandler(roomService *service.RoomService, boardService *service.BoardService) *RoomHandler {
	return &RoomHandler{roomService: roomService, boardService: boardService}
}

// CreateRoomRequest 定义创建房间请求体。
type CreateRoomRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// CreateRoom 处理创建新房间的请求。
// 新房间自带一块画板和激活的空白状态。
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logCtx.WithError(err).Warn("Handler.CreateRoom: Invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: name is required")
		return
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), req.Name, userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	logCtx.WithField("room_id", room.ID).Info("Handler.CreateRoom: Room created successfully")
	SuccessResponse(c, http.StatusCreated, room)
}

// ListRooms 分页返回房间列表。
func (h *RoomHandler) ListRooms(c *gin.Context) {
	page, size := pagingQuery(c)
	result, err := h.roomService.ListRooms(c.Request.Context(), page, size)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, result)
}

// GetRoom 返回单个房间。
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID, ok := pathID(c, "roomID")
	if !ok {
		return
	}
	room, err := h.roomService.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, room)
}

// RenameRoomRequest 定义改名请求体。
type RenameRoomRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// RenameRoom 修改房间名称。
func (h *RoomHandler) RenameRoom(c *gin.Context) {
	roomID, ok := pathID(c, "roomID")
	if !ok {
		return
	}
	var req RenameRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: name is required")
		return
	}
	room, err := h.roomService.RenameRoom(c.Request.Context(), roomID, req.Name)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, room)
}

// DeleteRoom 删除房间及其全部子资源。
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	roomID, ok := pathID(c, "roomID")
	if !ok {
		return
	}
	if err := h.roomService.DeleteRoom(c.Request.Context(), roomID); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Room deleted successfully"})
}

// GetActiveState 返回房间当前激活的画板状态 (缓存优先)。
func (h *RoomHandler) GetActiveState(c *gin.Context) {
	roomID, ok := pathID(c, "roomID")
	if !ok {
		return
	}
	state, err := h.boardService.GetActiveState(c.Request.Context(), roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, state)
}
