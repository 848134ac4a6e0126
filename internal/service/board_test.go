package service_test // 测试包

import (
	"context"
	"testing"

	"collaborative-whiteboard/internal/domain"
	"collaborative-whiteboard/internal/service"
	"github.com/stretchr/testify/assert"  // 导入断言库
	"github.com/stretchr/testify/require" // 导入 Require 断言库
)

// --- 测试辅助 ---

// newBoardServiceForTest 组装一个跑在内存仓库上的 BoardService。
func newBoardServiceForTest(t *testing.T) (*service.BoardService, *fakeStore, *fakeLive) {
	t.Helper()
	store := newFakeStore()
	live := newFakeLive()
	svc := service.NewBoardService(store.tx(), store.uow(), live)
	return svc, store, live
}

// seedRoom 直接在存储中建一个房间 (绕过 RoomService，只测画板编排)。
func seedRoom(t *testing.T, store *fakeStore, name string) *domain.Room {
	t.Helper()
	room := &domain.Room{Name: name}
	require.NoError(t, store.uow().Rooms().Create(context.Background(), room))
	return room
}

func mustRoom(t *testing.T, store *fakeStore, id uint) *domain.Room {
	t.Helper()
	room, err := store.uow().Rooms().FindByID(context.Background(), id)
	require.NoError(t, err)
	return room
}

func mustBoard(t *testing.T, store *fakeStore, id uint) *domain.Board {
	t.Helper()
	board, err := store.uow().Boards().FindByID(context.Background(), id)
	require.NoError(t, err)
	return board
}

func mustStates(t *testing.T, store *fakeStore, boardID uint) []domain.BoardState {
	t.Helper()
	states, err := store.uow().BoardStates().ListByBoard(context.Background(), boardID)
	require.NoError(t, err)
	return states
}

// --- 测试 CreateBoard ---

func TestBoardService_CreateBoard_Success(t *testing.T) {
	// Arrange
	svc, store, _ := newBoardServiceForTest(t)
	room := seedRoom(t, store, "atelier")
	ctx := context.Background()

	// Act
	board, err := svc.CreateBoard(ctx, room.ID)

	// Assert: 画板带着空白 v1 状态出生，房间指针和 lastState 都指向它
	require.NoError(t, err)
	require.NotNil(t, board)
	require.NotNil(t, board.LastStateID)

	states := mustStates(t, store, board.ID)
	require.Len(t, states, 1)
	assert.Equal(t, uint(1), states[0].Version)
	assert.Equal(t, domain.DefaultBoardPayload, states[0].Data)
	assert.Equal(t, states[0].ID, *board.LastStateID)

	freshRoom := mustRoom(t, store, room.ID)
	require.NotNil(t, freshRoom.ActiveBoardStateID)
	assert.Equal(t, states[0].ID, *freshRoom.ActiveBoardStateID)
}

func TestBoardService_CreateBoard_RoomNotFound(t *testing.T) {
	svc, _, _ := newBoardServiceForTest(t)

	board, err := svc.CreateBoard(context.Background(), 999)

	require.ErrorIs(t, err, service.ErrRoomNotFound)
	assert.Nil(t, board)
}

// --- 测试 CreateBoardState ---

func TestBoardService_CreateBoardState_ActivatesWithoutTouchingLastState(t *testing.T) {
	// Arrange
	svc, store, _ := newBoardServiceForTest(t)
	room := seedRoom(t, store, "atelier")
	board, err := svc.CreateBoard(context.Background(), room.ID)
	require.NoError(t, err)
	v1ID := *board.LastStateID

	// Act
	state, err := svc.CreateBoardState(context.Background(), board.ID, 2, `{"3:4":"#FF0000"}`)

	// Assert: 房间激活指针指向新状态
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, uint(2), state.Version)

	freshRoom := mustRoom(t, store, room.ID)
	require.NotNil(t, freshRoom.ActiveBoardStateID)
	assert.Equal(t, state.ID, *freshRoom.ActiveBoardStateID)

	// lastState 刻意滞后：仍然指向 v1
	freshBoard := mustBoard(t, store, board.ID)
	require.NotNil(t, freshBoard.LastStateID)
	assert.Equal(t, v1ID, *freshBoard.LastStateID)
}

func TestBoardService_CreateBoardState_DuplicateVersionConflict(t *testing.T) {
	svc, store, _ := newBoardServiceForTest(t)
	room := seedRoom(t, store, "atelier")
	board, err := svc.CreateBoard(context.Background(), room.ID)
	require.NoError(t, err)

	// 画板出生时已有 version 1，重复写 version 1 必须被拒绝
	state, err := svc.CreateBoardState(context.Background(), board.ID, 1, `{"0:0":"#000000"}`)

	require.ErrorIs(t, err, service.ErrVersionConflict)
	assert.Nil(t, state)
}

func TestBoardService_CreateBoardState_InvalidInput(t *testing.T) {
	svc, store, _ := newBoardServiceForTest(t)
	room := seedRoom(t, store, "atelier")
	board, err := svc.CreateBoard(context.Background(), room.ID)
	require.NoError(t, err)

	// version 0 非法
	_, err = svc.CreateBoardState(context.Background(), board.ID, 0, `{}`)
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	// 非法 JSON 载荷
	_, err = svc.CreateBoardState(context.Background(), board.ID, 2, `{not-json`)
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	// 不存在的画板
	_, err = svc.CreateBoardState(context.Background(), 999, 2, `{}`)
	assert.ErrorIs(t, err, service.ErrBoardNotFound)
}

// --- 测试 DeleteBoardState (撤销语义) ---

func TestBoardService_DeleteBoardState_TruncatesFromVersion(t *testing.T) {
	// Arrange: 历史 v1..v3，激活指针在 v3
	svc, store, _ := newBoardServiceForTest(t)
	room := seedRoom(t, store, "atelier")
	board, err := svc.CreateBoard(context.Background(), room.ID)
	require.NoError(t, err)
	v1ID := *board.LastStateID

	v2, err := svc.CreateBoardState(context.Background(), board.ID, 2, `{"1:1":"#111111"}`)
	require.NoError(t, err)
	_, err = svc.CreateBoardState(context.Background(), board.ID, 3, `{"2:2":"#222222"}`)
	require.NoError(t, err)

	// Act: 删除 v2 —— v2 和 v3 一起消失
	current, err := svc.DeleteBoardState(context.Background(), v2.ID)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, uint(1), current.Version)
	assert.Equal(t, v1ID, current.ID)

	states := mustStates(t, store, board.ID)
	require.Len(t, states, 1)
	assert.Equal(t, uint(1), states[0].Version)

	// lastState 与房间指针都被重指向剩余的最高版本
	freshBoard := mustBoard(t, store, board.ID)
	require.NotNil(t, freshBoard.LastStateID)
	assert.Equal(t, v1ID, *freshBoard.LastStateID)

	freshRoom := mustRoom(t, store, room.ID)
	require.NotNil(t, freshRoom.ActiveBoardStateID)
	assert.Equal(t, v1ID, *freshRoom.ActiveBoardStateID)
}

func TestBoardService_DeleteBoardState_HistoryExhaustedFabricatesV1(t *testing.T) {
	// Arrange: 只有出生时的 v1
	svc, store, _ := newBoardServiceForTest(t)
	room := seedRoom(t, store, "atelier")
	board, err := svc.CreateBoard(context.Background(), room.ID)
	require.NoError(t, err)
	originalV1 := *board.LastStateID

	// Act: 把 v1 也删掉
	current, err := svc.DeleteBoardState(context.Background(), originalV1)

	// Assert: 画板不可能没有状态，生成了一个全新的空白 v1
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, uint(1), current.Version)
	assert.Equal(t, domain.DefaultBoardPayload, current.Data)
	assert.NotEqual(t, originalV1, current.ID)

	freshBoard := mustBoard(t, store, board.ID)
	require.NotNil(t, freshBoard.LastStateID)
	assert.Equal(t, current.ID, *freshBoard.LastStateID)

	freshRoom := mustRoom(t, store, room.ID)
	require.NotNil(t, freshRoom.ActiveBoardStateID)
	assert.Equal(t, current.ID, *freshRoom.ActiveBoardStateID)
}

func TestBoardService_DeleteBoardState_PointerOnOtherBoardUntouched(t *testing.T) {
	// Arrange: 房间里两块画板，指针由后创建的 B 供给
	svc, store, _ := newBoardServiceForTest(t)
	room := seedRoom(t, store, "atelier")
	boardA, err := svc.CreateBoard(context.Background(), room.ID)
	require.NoError(t, err)
	v2, err := svc.CreateBoardState(context.Background(), boardA.ID, 2, `{"1:1":"#abcdef"}`)
	require.NoError(t, err)

	boardB, err := svc.CreateBoard(context.Background(), room.ID)
	require.NoError(t, err)
	pointerBefore := *mustRoom(t, store, room.ID).ActiveBoardStateID
	require.Equal(t, *boardB.LastStateID, pointerBefore)

	// Act: 删除 A 的 v2，不影响 B 供给的指针
	current, err := svc.DeleteBoardState(context.Background(), v2.ID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, uint(1), current.Version)

	freshRoom := mustRoom(t, store, room.ID)
	require.NotNil(t, freshRoom.ActiveBoardStateID)
	assert.Equal(t, pointerBefore, *freshRoom.ActiveBoardStateID)

	// 但 A 自己的 lastState 已修复
	freshA := mustBoard(t, store, boardA.ID)
	require.NotNil(t, freshA.LastStateID)
	assert.Equal(t, current.ID, *freshA.LastStateID)
}

func TestBoardService_DeleteBoardState_NotFound(t *testing.T) {
	svc, _, _ := newBoardServiceForTest(t)

	current, err := svc.DeleteBoardState(context.Background(), 999)

	require.ErrorIs(t, err, service.ErrBoardStateNotFound)
	assert.Nil(t, current)
}

// --- 测试 ActivatePreviousBoardState ---

func TestBoardService_ActivatePreviousBoardState_PicksMostRecent(t *testing.T) {
	// Arrange: A 先建，B 后建 (更新时间更晚)，指针在 B
	svc, store, _ := newBoardServiceForTest(t)
	room := seedRoom(t, store, "atelier")
	boardA, err := svc.CreateBoard(context.Background(), room.ID)
	require.NoError(t, err)
	boardB, err := svc.CreateBoard(context.Background(), room.ID)
	require.NoError(t, err)

	// Act: 排除 B，激活 "上一块" 画板 A 的 lastState
	updated, err := svc.ActivatePreviousBoardState(context.Background(), room.ID, boardB.ID)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, updated.ActiveBoardStateID)
	assert.Equal(t, *boardA.LastStateID, *updated.ActiveBoardStateID)
}

func TestBoardService_ActivatePreviousBoardState_NoOtherBoard(t *testing.T) {
	svc, store, _ := newBoardServiceForTest(t)
	room := seedRoom(t, store, "atelier")
	board, err := svc.CreateBoard(context.Background(), room.ID)
	require.NoError(t, err)

	// 房间里只有被排除的这一块画板
	updated, err := svc.ActivatePreviousBoardState(context.Background(), room.ID, board.ID)

	require.ErrorIs(t, err, service.ErrBoardNotFound)
	assert.Nil(t, updated)
}

// --- 测试 GetActivatedRoom (repoint-on-read) ---

func TestBoardService_GetActivatedRoom_FabricatesBoardWhenRoomEmptied(t *testing.T) {
	// Arrange: 唯一的画板供给着指针
	svc, store, _ := newBoardServiceForTest(t)
	room := seedRoom(t, store, "atelier")
	board, err := svc.CreateBoard(context.Background(), room.ID)
	require.NoError(t, err)
	stalePointer := *mustRoom(t, store, room.ID).ActiveBoardStateID

	// Act: 以该画板为 "被移除者" 读取 —— 没有其他画板可接管，必须造一块新的
	repaired, err := svc.GetActivatedRoom(context.Background(), room.ID, board.ID, stalePointer)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, repaired.ActiveBoardStateID)
	assert.NotEqual(t, stalePointer, *repaired.ActiveBoardStateID)

	boards, err := store.uow().Boards().ListByRoom(context.Background(), room.ID)
	require.NoError(t, err)
	require.Len(t, boards, 2)

	// 幂等：指针已被新状态接管，重复调用不再做任何事
	again, err := svc.GetActivatedRoom(context.Background(), room.ID, board.ID, stalePointer)
	require.NoError(t, err)
	assert.Equal(t, *repaired.ActiveBoardStateID, *again.ActiveBoardStateID)

	boards, err = store.uow().Boards().ListByRoom(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Len(t, boards, 2)
}

func TestBoardService_GetActivatedRoom_ActivatesSurvivor(t *testing.T) {
	// Arrange: A 和 B 两块画板，指针在后创建的 B
	svc, store, _ := newBoardServiceForTest(t)
	room := seedRoom(t, store, "atelier")
	boardA, err := svc.CreateBoard(context.Background(), room.ID)
	require.NoError(t, err)
	boardB, err := svc.CreateBoard(context.Background(), room.ID)
	require.NoError(t, err)
	pointer := *mustRoom(t, store, room.ID).ActiveBoardStateID
	require.Equal(t, *boardB.LastStateID, pointer)

	// Act: B 被当作移除对象，幸存者 A 接管
	repaired, err := svc.GetActivatedRoom(context.Background(), room.ID, boardB.ID, pointer)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, repaired.ActiveBoardStateID)
	assert.Equal(t, *boardA.LastStateID, *repaired.ActiveBoardStateID)
}

func TestBoardService_GetActivatedRoom_NoOpWhenPointerTakenOver(t *testing.T) {
	// Arrange: 指针已经不等于调用方记忆中的旧值
	svc, store, _ := newBoardServiceForTest(t)
	room := seedRoom(t, store, "atelier")
	board, err := svc.CreateBoard(context.Background(), room.ID)
	require.NoError(t, err)
	current := *mustRoom(t, store, room.ID).ActiveBoardStateID

	// Act: previousLastState 传一个过期的值
	result, err := svc.GetActivatedRoom(context.Background(), room.ID, board.ID, current+1000)

	// Assert: 原样返回，什么都没动
	require.NoError(t, err)
	require.NotNil(t, result.ActiveBoardStateID)
	assert.Equal(t, current, *result.ActiveBoardStateID)

	boards, err := store.uow().Boards().ListByRoom(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Len(t, boards, 1)
}

// --- 测试 MoveBoard ---

func TestBoardService_MoveBoard_RepairsSenderAndPointsReceiver(t *testing.T) {
	// Arrange: r1 只有一块画板且供给指针，r2 是接收方
	svc, store, _ := newBoardServiceForTest(t)
	sender := seedRoom(t, store, "sender")
	receiver := seedRoom(t, store, "receiver")
	board, err := svc.CreateBoard(context.Background(), sender.ID)
	require.NoError(t, err)
	_, err = svc.CreateBoard(context.Background(), receiver.ID)
	require.NoError(t, err)

	// Act
	moved, err := svc.MoveBoard(context.Background(), board.ID, receiver.ID)

	// Assert: 画板归属变了
	require.NoError(t, err)
	assert.Equal(t, receiver.ID, moved.RoomID)

	// 接收方指针 = 移入画板的 lastState
	freshReceiver := mustRoom(t, store, receiver.ID)
	require.NotNil(t, freshReceiver.ActiveBoardStateID)
	assert.Equal(t, *moved.LastStateID, *freshReceiver.ActiveBoardStateID)

	// 发送方失去了唯一的画板，修复流程造了一块替代画板
	senderBoards, err := store.uow().Boards().ListByRoom(context.Background(), sender.ID)
	require.NoError(t, err)
	require.Len(t, senderBoards, 1)
	assert.NotEqual(t, board.ID, senderBoards[0].ID)

	freshSender := mustRoom(t, store, sender.ID)
	require.NotNil(t, freshSender.ActiveBoardStateID)
	assert.Equal(t, *senderBoards[0].LastStateID, *freshSender.ActiveBoardStateID)
}

func TestBoardService_MoveBoard_SurvivorTakesOverSenderPointer(t *testing.T) {
	// Arrange: 发送方有 B1 和 B2，B1 通过追加状态成为指针供给方；
	// 接收方已有自己的画板 B3
	svc, store, _ := newBoardServiceForTest(t)
	sender := seedRoom(t, store, "sender")
	receiver := seedRoom(t, store, "receiver")
	boardB1, err := svc.CreateBoard(context.Background(), sender.ID)
	require.NoError(t, err)
	boardB2, err := svc.CreateBoard(context.Background(), sender.ID)
	require.NoError(t, err)
	_, err = svc.CreateBoard(context.Background(), receiver.ID)
	require.NoError(t, err)

	state, err := svc.CreateBoardState(context.Background(), boardB1.ID, 2, `{"1:1":"#111111"}`)
	require.NoError(t, err)
	require.Equal(t, state.ID, *mustRoom(t, store, sender.ID).ActiveBoardStateID)

	// Act
	moved, err := svc.MoveBoard(context.Background(), boardB1.ID, receiver.ID)

	// Assert: 幸存者 B2 接管发送方指针，不另造画板
	require.NoError(t, err)
	freshSender := mustRoom(t, store, sender.ID)
	require.NotNil(t, freshSender.ActiveBoardStateID)
	assert.Equal(t, *boardB2.LastStateID, *freshSender.ActiveBoardStateID)

	senderBoards, err := store.uow().Boards().ListByRoom(context.Background(), sender.ID)
	require.NoError(t, err)
	require.Len(t, senderBoards, 1)
	assert.Equal(t, boardB2.ID, senderBoards[0].ID)

	// 接收方指针 = 移入画板的 lastState (滞后于激活状态，指向 v1)
	freshReceiver := mustRoom(t, store, receiver.ID)
	require.NotNil(t, freshReceiver.ActiveBoardStateID)
	assert.Equal(t, *moved.LastStateID, *freshReceiver.ActiveBoardStateID)

	// 两个房间合计仍是三块画板，移动不产生也不销毁画板
	receiverBoards, err := store.uow().Boards().ListByRoom(context.Background(), receiver.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, len(senderBoards)+len(receiverBoards))
}

func TestBoardService_MoveBoard_SameRoomIsNoOp(t *testing.T) {
	svc, store, _ := newBoardServiceForTest(t)
	room := seedRoom(t, store, "atelier")
	board, err := svc.CreateBoard(context.Background(), room.ID)
	require.NoError(t, err)
	pointer := *mustRoom(t, store, room.ID).ActiveBoardStateID

	moved, err := svc.MoveBoard(context.Background(), board.ID, room.ID)

	require.NoError(t, err)
	assert.Equal(t, room.ID, moved.RoomID)
	assert.Equal(t, pointer, *mustRoom(t, store, room.ID).ActiveBoardStateID)
}

func TestBoardService_MoveBoard_TargetRoomNotFound(t *testing.T) {
	svc, store, _ := newBoardServiceForTest(t)
	room := seedRoom(t, store, "atelier")
	board, err := svc.CreateBoard(context.Background(), room.ID)
	require.NoError(t, err)

	moved, err := svc.MoveBoard(context.Background(), board.ID, 999)

	require.ErrorIs(t, err, service.ErrRoomNotFound)
	assert.Nil(t, moved)
	// 画板没有被动过
	assert.Equal(t, room.ID, mustBoard(t, store, board.ID).RoomID)
}

// --- 测试 CopyBoard ---

func TestBoardService_CopyBoard_ClonesFullHistory(t *testing.T) {
	// Arrange: 源画板带三个版本的历史
	svc, store, _ := newBoardServiceForTest(t)
	source := seedRoom(t, store, "source")
	target := seedRoom(t, store, "target")
	board, err := svc.CreateBoard(context.Background(), source.ID)
	require.NoError(t, err)
	_, err = svc.CreateBoardState(context.Background(), board.ID, 2, `{"1:1":"#111111"}`)
	require.NoError(t, err)
	_, err = svc.CreateBoardState(context.Background(), board.ID, 3, `{"2:2":"#222222"}`)
	require.NoError(t, err)
	sourcePointer := *mustRoom(t, store, source.ID).ActiveBoardStateID

	// Act
	clone, err := svc.CopyBoard(context.Background(), board.ID, target.ID)

	// Assert: 克隆在目标房间，历史逐版本复制但行完全独立
	require.NoError(t, err)
	require.NotNil(t, clone)
	assert.Equal(t, target.ID, clone.RoomID)
	assert.NotEqual(t, board.ID, clone.ID)

	sourceStates := mustStates(t, store, board.ID)
	cloneStates := mustStates(t, store, clone.ID)
	require.Len(t, cloneStates, len(sourceStates))
	for i := range cloneStates {
		assert.Equal(t, sourceStates[i].Version, cloneStates[i].Version)
		assert.Equal(t, sourceStates[i].Data, cloneStates[i].Data)
		assert.NotEqual(t, sourceStates[i].ID, cloneStates[i].ID)
	}

	// 克隆的 lastState 和目标房间指针都指向克隆出的最高版本
	newest := cloneStates[len(cloneStates)-1]
	require.NotNil(t, clone.LastStateID)
	assert.Equal(t, newest.ID, *clone.LastStateID)

	freshTarget := mustRoom(t, store, target.ID)
	require.NotNil(t, freshTarget.ActiveBoardStateID)
	assert.Equal(t, newest.ID, *freshTarget.ActiveBoardStateID)

	// 源房间完全不受影响
	assert.Equal(t, sourcePointer, *mustRoom(t, store, source.ID).ActiveBoardStateID)
	assert.Equal(t, source.ID, mustBoard(t, store, board.ID).RoomID)
}

// --- 测试 DeleteBoard ---

func TestBoardService_DeleteBoard_LastBoardGetsReplacement(t *testing.T) {
	// Arrange: 房间里唯一的画板
	svc, store, _ := newBoardServiceForTest(t)
	room := seedRoom(t, store, "atelier")
	board, err := svc.CreateBoard(context.Background(), room.ID)
	require.NoError(t, err)

	// Act
	err = svc.DeleteBoard(context.Background(), board.ID)

	// Assert: 原画板和历史都没了，但房间得到了一块替代画板
	require.NoError(t, err)
	_, findErr := store.uow().Boards().FindByID(context.Background(), board.ID)
	assert.Error(t, findErr)
	assert.Empty(t, mustStates(t, store, board.ID))

	boards, err := store.uow().Boards().ListByRoom(context.Background(), room.ID)
	require.NoError(t, err)
	require.Len(t, boards, 1)

	freshRoom := mustRoom(t, store, room.ID)
	require.NotNil(t, freshRoom.ActiveBoardStateID)
	assert.Equal(t, *boards[0].LastStateID, *freshRoom.ActiveBoardStateID)
}

func TestBoardService_DeleteBoard_NonSupplyingLeavesPointerAlone(t *testing.T) {
	// Arrange: 指针由后创建的 B 供给，删除 A
	svc, store, _ := newBoardServiceForTest(t)
	room := seedRoom(t, store, "atelier")
	boardA, err := svc.CreateBoard(context.Background(), room.ID)
	require.NoError(t, err)
	boardB, err := svc.CreateBoard(context.Background(), room.ID)
	require.NoError(t, err)
	pointer := *mustRoom(t, store, room.ID).ActiveBoardStateID
	require.Equal(t, *boardB.LastStateID, pointer)

	// Act
	err = svc.DeleteBoard(context.Background(), boardA.ID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, pointer, *mustRoom(t, store, room.ID).ActiveBoardStateID)

	boards, listErr := store.uow().Boards().ListByRoom(context.Background(), room.ID)
	require.NoError(t, listErr)
	assert.Len(t, boards, 1)
}

// --- 测试 ListBoards 分页 ---

func TestBoardService_ListBoards_PageWalk(t *testing.T) {
	// Arrange: 五块画板，创建顺序即更新时间顺序
	svc, store, _ := newBoardServiceForTest(t)
	room := seedRoom(t, store, "atelier")
	created := make([]uint, 0, 5)
	for i := 0; i < 5; i++ {
		board, err := svc.CreateBoard(context.Background(), room.ID)
		require.NoError(t, err)
		created = append(created, board.ID)
	}

	// Act: 以 size=2 走完三页
	var walked []uint
	for page := 0; page < 3; page++ {
		result, err := svc.ListBoards(context.Background(), room.ID, page, 2)
		require.NoError(t, err)
		assert.EqualValues(t, 5, result.TotalItems)
		assert.Equal(t, 3, result.TotalPages)
		assert.Equal(t, page+1 < 3, result.HasNext, "page %d", page)
		assert.Equal(t, page > 0, result.HasPrev, "page %d", page)

		boards := result.Items.([]domain.Board)
		for _, board := range boards {
			walked = append(walked, board.ID)
		}
	}

	// Assert: 每块画板恰好出现一次，顺序为最近更新在前 (并列取 id 大者)
	require.Len(t, walked, 5)
	seen := make(map[uint]int, 5)
	for _, id := range walked {
		seen[id]++
	}
	for _, id := range created {
		assert.Equal(t, 1, seen[id], "board %d 应恰好出现一次", id)
	}
	for i := 0; i < len(walked); i++ {
		assert.Equal(t, created[len(created)-1-i], walked[i], "位置 %d 的顺序错误", i)
	}

	// 走过末页后再翻一页是空的
	tail, err := svc.ListBoards(context.Background(), room.ID, 3, 2)
	require.NoError(t, err)
	assert.Empty(t, tail.Items.([]domain.Board))
	assert.False(t, tail.HasNext)
}

// --- 测试 GetActiveState (缓存优先) ---

func TestBoardService_GetActiveState_CacheMissFallsBackToDB(t *testing.T) {
	svc, store, _ := newBoardServiceForTest(t)
	room := seedRoom(t, store, "atelier")
	board, err := svc.CreateBoard(context.Background(), room.ID)
	require.NoError(t, err)

	state, err := svc.GetActiveState(context.Background(), room.ID)

	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, board.ID, state.BoardID)
	assert.Equal(t, uint(1), state.Version)
}

func TestBoardService_GetActiveState_CacheHitSkipsDB(t *testing.T) {
	svc, store, live := newBoardServiceForTest(t)
	room := seedRoom(t, store, "atelier")

	// 缓存里预置一个状态；数据库中房间指针为空也不影响命中
	cached := &domain.BoardState{ID: 42, BoardID: 7, Version: 3, Data: `{"5:5":"#555555"}`}
	require.NoError(t, live.SetStateCache(context.Background(), room.ID, cached, 0))

	state, err := svc.GetActiveState(context.Background(), room.ID)

	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, cached.ID, state.ID)
	assert.Equal(t, cached.Version, state.Version)
}
