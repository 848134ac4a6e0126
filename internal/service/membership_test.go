package service_test // 测试包

import (
	"context"
	"testing"

	"collaborative-whiteboard/internal/domain"
	"collaborative-whiteboard/internal/service"
	"github.com/stretchr/testify/assert"  // 导入断言库
	"github.com/stretchr/testify/require" // 导入 Require 断言库
)

// membershipFixture 准备一个带房间和用户的环境。
func membershipFixture(t *testing.T) (*service.MembershipService, *fakeStore, *domain.Room, *domain.User) {
	t.Helper()
	store := newFakeStore()
	svc := service.NewMembershipService(store.tx(), store.uow())
	room := seedRoom(t, store, "atelier")
	user := &domain.User{Username: "painter", Password: "hash"}
	require.NoError(t, store.uow().Users().Save(context.Background(), user))
	return svc, store, room, user
}

func TestMembershipService_JoinRoom_DefaultsToMember(t *testing.T) {
	svc, _, room, user := membershipFixture(t)

	// 不指定角色时默认为 member
	membership, err := svc.JoinRoom(context.Background(), user.ID, room.ID, "")

	require.NoError(t, err)
	require.NotNil(t, membership)
	assert.Equal(t, domain.RoleMember, membership.Role)
	assert.Equal(t, domain.StatusActive, membership.Status)
}

func TestMembershipService_JoinRoom_Rejections(t *testing.T) {
	svc, _, room, user := membershipFixture(t)
	ctx := context.Background()

	// 未知角色
	_, err := svc.JoinRoom(ctx, user.ID, room.ID, "overlord")
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	// 房间不存在
	_, err = svc.JoinRoom(ctx, user.ID, 999, domain.RoleMember)
	assert.ErrorIs(t, err, service.ErrRoomNotFound)

	// 用户不存在
	_, err = svc.JoinRoom(ctx, 999, room.ID, domain.RoleMember)
	assert.ErrorIs(t, err, service.ErrUserNotFound)

	// 重复加入
	_, err = svc.JoinRoom(ctx, user.ID, room.ID, domain.RoleMember)
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, user.ID, room.ID, domain.RoleEditor)
	assert.ErrorIs(t, err, service.ErrAlreadyMember)
}

func TestMembershipService_UpdateRole(t *testing.T) {
	svc, _, room, user := membershipFixture(t)
	ctx := context.Background()
	_, err := svc.JoinRoom(ctx, user.ID, room.ID, domain.RoleMember)
	require.NoError(t, err)

	updated, err := svc.UpdateRole(ctx, user.ID, room.ID, domain.RoleModerator)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleModerator, updated.Role)

	// 非法角色
	_, err = svc.UpdateRole(ctx, user.ID, room.ID, "overlord")
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	// 不是成员
	_, err = svc.UpdateRole(ctx, 999, room.ID, domain.RoleViewer)
	assert.ErrorIs(t, err, service.ErrMembershipNotFound)
}

func TestMembershipService_LeaveRoom(t *testing.T) {
	svc, _, room, user := membershipFixture(t)
	ctx := context.Background()
	_, err := svc.JoinRoom(ctx, user.ID, room.ID, domain.RoleMember)
	require.NoError(t, err)

	require.NoError(t, svc.LeaveRoom(ctx, user.ID, room.ID))

	// 离开后成员关系不复存在
	_, err = svc.GetMembership(ctx, user.ID, room.ID)
	assert.ErrorIs(t, err, service.ErrMembershipNotFound)

	// 再次离开报错
	err = svc.LeaveRoom(ctx, user.ID, room.ID)
	assert.ErrorIs(t, err, service.ErrMembershipNotFound)
}

func TestMembershipService_ListMembers(t *testing.T) {
	svc, store, room, user := membershipFixture(t)
	ctx := context.Background()
	other := &domain.User{Username: "sketcher", Password: "hash"}
	require.NoError(t, store.uow().Users().Save(ctx, other))

	_, err := svc.JoinRoom(ctx, user.ID, room.ID, domain.RoleMember)
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, other.ID, room.ID, domain.RoleViewer)
	require.NoError(t, err)

	page, err := svc.ListMembers(ctx, room.ID, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.TotalItems)
	assert.Len(t, page.Items.([]domain.Membership), 2)
}
