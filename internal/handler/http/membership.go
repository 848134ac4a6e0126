package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"collaborative-whiteboard/internal/domain"
	"collaborative-whiteboard/internal/service"
)

// MembershipHandler 封装房间成员管理相关的 HTTP 处理逻辑。
type MembershipHandler struct {
	membershipService *service.MembershipService
}

// NewMembershipHandler 创建 MembershipHandler 实例。
func NewMembershipHandler(membershipService *service.MembershipService) *MembershipHandler {
	return &MembershipHandler{membershipService: membershipService}
}

// JoinRoom 处理当前用户加入房间的请求。
func (h *MembershipHandler) JoinRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomID")
	if !ok {
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "room_id": roomID})

	membership, err := h.membershipService.JoinRoom(c.Request.Context(), userID, roomID, domain.RoleMember)
	if err != nil {
		logCtx.WithError(err).Warn("Handler.JoinRoom: Failed to join room")
		HandleServiceError(c, err)
		return
	}

	logCtx.Info("Handler.JoinRoom: User joined room successfully")
	SuccessResponse(c, http.StatusCreated, membership)
}

// LeaveRoom 处理当前用户退出房间的请求。
func (h *MembershipHandler) LeaveRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomID")
	if !ok {
		return
	}
	if err := h.membershipService.LeaveRoom(c.Request.Context(), userID, roomID); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Left room successfully"})
}

// UpdateRoleRequest 定义修改成员角色的请求体。
type UpdateRoleRequest struct {
	UserID uint        `json:"user_id" binding:"required"`
	Role   domain.Role `json:"role" binding:"required"`
}

// UpdateRole 修改房间内某成员的角色。
func (h *MembershipHandler) UpdateRole(c *gin.Context) {
	roomID, ok := pathID(c, "roomID")
	if !ok {
		return
	}
	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: user_id and role are required")
		return
	}
	membership, err := h.membershipService.UpdateRole(c.Request.Context(), req.UserID, roomID, req.Role)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, membership)
}

// ListMembers 分页返回房间成员。
func (h *MembershipHandler) ListMembers(c *gin.Context) {
	roomID, ok := pathID(c, "roomID")
	if !ok {
		return
	}
	page, size := pagingQuery(c)
	result, err := h.membershipService.ListMembers(c.Request.Context(), roomID, page, size)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, result)
}
