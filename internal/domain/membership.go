package domain

import (
	"fmt"
	"time"
)

// Role 表示成员在房间内的角色。
type Role string

// MembershipStatus 表示成员资格的当前状态。
type MembershipStatus string

const (
	RoleOwner     Role = "owner"
	RoleModerator Role = "moderator"
	RoleEditor    Role = "editor"
	RoleMember    Role = "member"
	RoleViewer    Role = "viewer"
)

const (
	StatusActive  MembershipStatus = "active"
	StatusPending MembershipStatus = "pending" // 邀请已发出，尚未接受
	StatusBanned  MembershipStatus = "banned"
)

// Membership 表示用户与房间之间的成员关系，(user_id, room_id) 唯一。
type Membership struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"uniqueIndex:idx_user_room;not null" json:"user_id"`
	RoomID    uint             `gorm:"uniqueIndex:idx_user_room;not null" json:"room_id"`
	Role      Role             `gorm:"type:varchar(20);not null" json:"role"`
	Status    MembershipStatus `gorm:"type:varchar(20);not null" json:"status"`
	JoinedAt  time.Time        `gorm:"autoCreateTime" json:"joined_at"`
	UpdatedAt time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// ValidRole 检查角色是否为已知值。
func ValidRole(r Role) bool {
	switch r {
	case RoleOwner, RoleModerator, RoleEditor, RoleMember, RoleViewer:
		return true
	}
	return false
}

// Validate 检查行的最低输出要求。
func (m *Membership) Validate() error {
	if m.ID == 0 {
		return fmt.Errorf("membership: missing id")
	}
	if m.UserID == 0 || m.RoomID == 0 {
		return fmt.Errorf("membership %d: missing user or room id", m.ID)
	}
	if !ValidRole(m.Role) {
		return fmt.Errorf("membership %d: unknown role %q", m.ID, m.Role)
	}
	return nil
}
