package service_test

// 本文件提供 Service 层测试用的内存版仓库实现。
// fakeStore 模拟数据库的表和自增主键；时间戳用逻辑时钟递增，
// 保证 "最近更新" 排序在测试中是确定的。

import (
	"context"
	"sort"
	"sync"
	"time"

	"collaborative-whiteboard/internal/domain"
	"collaborative-whiteboard/internal/repository"
)

type fakeStore struct {
	mu sync.Mutex

	rooms       map[uint]domain.Room
	boards      map[uint]domain.Board
	states      map[uint]domain.BoardState
	memberships map[uint]domain.Membership
	messages    map[uint]domain.Message
	users       map[uint]domain.User

	nextID uint
	clock  time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms:       make(map[uint]domain.Room),
		boards:      make(map[uint]domain.Board),
		states:      make(map[uint]domain.BoardState),
		memberships: make(map[uint]domain.Membership),
		messages:    make(map[uint]domain.Message),
		users:       make(map[uint]domain.User),
		clock:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *fakeStore) allocID() uint {
	s.nextID++
	return s.nextID
}

func (s *fakeStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *fakeStore) uow() repository.UnitOfWork {
	return &fakeUow{store: s}
}

func (s *fakeStore) tx() repository.TxManager {
	return &fakeTx{store: s}
}

// fakeTx 直接在同一 store 上执行 fn，不模拟回滚；
// 失败路径的测试只断言错误类型，不断言部分写入。
type fakeTx struct {
	store *fakeStore
}

func (t *fakeTx) RunInTransaction(_ context.Context, fn func(uow repository.UnitOfWork) error) error {
	return fn(&fakeUow{store: t.store})
}

type fakeUow struct {
	store *fakeStore
}

func (u *fakeUow) Rooms() repository.RoomRepository             { return &fakeRoomRepo{u.store} }
func (u *fakeUow) Boards() repository.BoardRepository           { return &fakeBoardRepo{u.store} }
func (u *fakeUow) BoardStates() repository.BoardStateRepository { return &fakeStateRepo{u.store} }
func (u *fakeUow) Memberships() repository.MembershipRepository { return &fakeMembershipRepo{u.store} }
func (u *fakeUow) Messages() repository.MessageRepository       { return &fakeMessageRepo{u.store} }
func (u *fakeUow) Users() repository.UserRepository             { return &fakeUserRepo{u.store} }

// --- RoomRepository ---

type fakeRoomRepo struct{ store *fakeStore }

func (r *fakeRoomRepo) FindByID(_ context.Context, id uint) (*domain.Room, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	room, ok := r.store.rooms[id]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	copied := room
	return &copied, nil
}

func (r *fakeRoomRepo) FindByName(_ context.Context, name string) (*domain.Room, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, room := range r.store.rooms {
		if room.Name == name {
			copied := room
			return &copied, nil
		}
	}
	return nil, repository.ErrRoomNotFound
}

func (r *fakeRoomRepo) GetPage(_ context.Context, page, size int) ([]domain.Room, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	all := make([]domain.Room, 0, len(r.store.rooms))
	for _, room := range r.store.rooms {
		all = append(all, room)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].UpdatedAt.Equal(all[j].UpdatedAt) {
			return all[i].UpdatedAt.After(all[j].UpdatedAt)
		}
		return all[i].ID > all[j].ID
	})
	return pageSlice(all, page, size), int64(len(all)), nil
}

func (r *fakeRoomRepo) Create(_ context.Context, room *domain.Room) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.rooms {
		if existing.Name == room.Name {
			return repository.ErrDuplicateEntry
		}
	}
	room.ID = r.store.allocID()
	room.CreatedAt = r.store.tick()
	room.UpdatedAt = room.CreatedAt
	r.store.rooms[room.ID] = *room
	return nil
}

func (r *fakeRoomRepo) Save(_ context.Context, room *domain.Room) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.rooms[room.ID]; !ok {
		return repository.ErrRoomNotFound
	}
	for id, existing := range r.store.rooms {
		if id != room.ID && existing.Name == room.Name {
			return repository.ErrDuplicateEntry
		}
	}
	room.UpdatedAt = r.store.tick()
	r.store.rooms[room.ID] = *room
	return nil
}

func (r *fakeRoomRepo) Delete(_ context.Context, id uint) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.rooms[id]; !ok {
		return repository.ErrRoomNotFound
	}
	delete(r.store.rooms, id)
	return nil
}

// --- BoardRepository ---

type fakeBoardRepo struct{ store *fakeStore }

func (r *fakeBoardRepo) FindByID(_ context.Context, id uint) (*domain.Board, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	board, ok := r.store.boards[id]
	if !ok {
		return nil, repository.ErrBoardNotFound
	}
	copied := board
	return &copied, nil
}

func (r *fakeBoardRepo) listByRoomLocked(roomID uint) []domain.Board {
	boards := make([]domain.Board, 0)
	for _, board := range r.store.boards {
		if board.RoomID == roomID {
			boards = append(boards, board)
		}
	}
	return boards
}

func (r *fakeBoardRepo) GetPageByRoom(_ context.Context, roomID uint, page, size int) ([]domain.Board, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	boards := r.listByRoomLocked(roomID)
	sort.Slice(boards, func(i, j int) bool {
		if !boards[i].UpdatedAt.Equal(boards[j].UpdatedAt) {
			return boards[i].UpdatedAt.After(boards[j].UpdatedAt)
		}
		return boards[i].ID > boards[j].ID
	})
	return pageSlice(boards, page, size), int64(len(boards)), nil
}

func (r *fakeBoardRepo) ListByRoom(_ context.Context, roomID uint) ([]domain.Board, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	boards := r.listByRoomLocked(roomID)
	sort.Slice(boards, func(i, j int) bool { return boards[i].ID < boards[j].ID })
	return boards, nil
}

func (r *fakeBoardRepo) CountByRoom(_ context.Context, roomID uint) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.listByRoomLocked(roomID))), nil
}

func (r *fakeBoardRepo) FindLatestInRoom(_ context.Context, roomID uint, excludeID uint) (*domain.Board, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var latest *domain.Board
	for _, board := range r.store.boards {
		if board.RoomID != roomID || board.ID == excludeID {
			continue
		}
		copied := board
		if latest == nil ||
			copied.UpdatedAt.After(latest.UpdatedAt) ||
			(copied.UpdatedAt.Equal(latest.UpdatedAt) && copied.ID > latest.ID) {
			latest = &copied
		}
	}
	if latest == nil {
		return nil, repository.ErrBoardNotFound
	}
	return latest, nil
}

func (r *fakeBoardRepo) Create(_ context.Context, board *domain.Board) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.rooms[board.RoomID]; !ok {
		return repository.ErrForeignKey
	}
	board.ID = r.store.allocID()
	board.CreatedAt = r.store.tick()
	board.UpdatedAt = board.CreatedAt
	r.store.boards[board.ID] = *board
	return nil
}

func (r *fakeBoardRepo) Save(_ context.Context, board *domain.Board) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.boards[board.ID]; !ok {
		return repository.ErrBoardNotFound
	}
	board.UpdatedAt = r.store.tick()
	r.store.boards[board.ID] = *board
	return nil
}

func (r *fakeBoardRepo) Delete(_ context.Context, id uint) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.boards[id]; !ok {
		return repository.ErrBoardNotFound
	}
	delete(r.store.boards, id)
	return nil
}

// --- BoardStateRepository ---

type fakeStateRepo struct{ store *fakeStore }

func (r *fakeStateRepo) FindByID(_ context.Context, id uint) (*domain.BoardState, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	state, ok := r.store.states[id]
	if !ok {
		return nil, repository.ErrBoardStateNotFound
	}
	copied := state
	return &copied, nil
}

func (r *fakeStateRepo) FindCurrent(_ context.Context, boardID uint) (*domain.BoardState, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var current *domain.BoardState
	for _, state := range r.store.states {
		if state.BoardID != boardID {
			continue
		}
		copied := state
		if current == nil || copied.Version > current.Version {
			current = &copied
		}
	}
	if current == nil {
		return nil, repository.ErrBoardStateNotFound
	}
	return current, nil
}

func (r *fakeStateRepo) listByBoardLocked(boardID uint) []domain.BoardState {
	states := make([]domain.BoardState, 0)
	for _, state := range r.store.states {
		if state.BoardID == boardID {
			states = append(states, state)
		}
	}
	return states
}

func (r *fakeStateRepo) ListByBoard(_ context.Context, boardID uint) ([]domain.BoardState, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	states := r.listByBoardLocked(boardID)
	sort.Slice(states, func(i, j int) bool { return states[i].Version < states[j].Version })
	return states, nil
}

func (r *fakeStateRepo) ListVersionsFrom(_ context.Context, boardID uint, version uint) ([]domain.BoardState, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	states := make([]domain.BoardState, 0)
	for _, state := range r.store.states {
		if state.BoardID == boardID && state.Version >= version {
			states = append(states, state)
		}
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Version < states[j].Version })
	return states, nil
}

func (r *fakeStateRepo) GetPageByBoard(_ context.Context, boardID uint, page, size int) ([]domain.BoardState, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	states := r.listByBoardLocked(boardID)
	sort.Slice(states, func(i, j int) bool {
		if states[i].Version != states[j].Version {
			return states[i].Version > states[j].Version
		}
		return states[i].ID > states[j].ID
	})
	return pageSlice(states, page, size), int64(len(states)), nil
}

func (r *fakeStateRepo) Create(_ context.Context, state *domain.BoardState) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.boards[state.BoardID]; !ok {
		return repository.ErrForeignKey
	}
	for _, existing := range r.store.states {
		if existing.BoardID == state.BoardID && existing.Version == state.Version {
			return repository.ErrDuplicateEntry
		}
	}
	state.ID = r.store.allocID()
	state.CreatedAt = r.store.tick()
	r.store.states[state.ID] = *state
	return nil
}

func (r *fakeStateRepo) DeleteVersionsFrom(_ context.Context, boardID uint, version uint) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var deleted int64
	for id, state := range r.store.states {
		if state.BoardID == boardID && state.Version >= version {
			delete(r.store.states, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *fakeStateRepo) DeleteByBoard(_ context.Context, boardID uint) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, state := range r.store.states {
		if state.BoardID == boardID {
			delete(r.store.states, id)
		}
	}
	return nil
}

// --- MembershipRepository ---

type fakeMembershipRepo struct{ store *fakeStore }

func (r *fakeMembershipRepo) FindByUserAndRoom(_ context.Context, userID, roomID uint) (*domain.Membership, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, m := range r.store.memberships {
		if m.UserID == userID && m.RoomID == roomID {
			copied := m
			return &copied, nil
		}
	}
	return nil, repository.ErrMembershipNotFound
}

func (r *fakeMembershipRepo) GetPageByRoom(_ context.Context, roomID uint, page, size int) ([]domain.Membership, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	members := make([]domain.Membership, 0)
	for _, m := range r.store.memberships {
		if m.RoomID == roomID {
			members = append(members, m)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		if !members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].JoinedAt.After(members[j].JoinedAt)
		}
		return members[i].ID > members[j].ID
	})
	return pageSlice(members, page, size), int64(len(members)), nil
}

func (r *fakeMembershipRepo) Create(_ context.Context, membership *domain.Membership) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.memberships {
		if existing.UserID == membership.UserID && existing.RoomID == membership.RoomID {
			return repository.ErrDuplicateEntry
		}
	}
	membership.ID = r.store.allocID()
	membership.JoinedAt = r.store.tick()
	membership.UpdatedAt = membership.JoinedAt
	r.store.memberships[membership.ID] = *membership
	return nil
}

func (r *fakeMembershipRepo) Save(_ context.Context, membership *domain.Membership) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.memberships[membership.ID]; !ok {
		return repository.ErrMembershipNotFound
	}
	membership.UpdatedAt = r.store.tick()
	r.store.memberships[membership.ID] = *membership
	return nil
}

func (r *fakeMembershipRepo) Delete(_ context.Context, id uint) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.memberships[id]; !ok {
		return repository.ErrMembershipNotFound
	}
	delete(r.store.memberships, id)
	return nil
}

func (r *fakeMembershipRepo) DeleteByRoom(_ context.Context, roomID uint) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, m := range r.store.memberships {
		if m.RoomID == roomID {
			delete(r.store.memberships, id)
		}
	}
	return nil
}

// --- MessageRepository ---

type fakeMessageRepo struct{ store *fakeStore }

func (r *fakeMessageRepo) Create(_ context.Context, message *domain.Message) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.rooms[message.RoomID]; !ok {
		return repository.ErrForeignKey
	}
	message.ID = r.store.allocID()
	message.CreatedAt = r.store.tick()
	r.store.messages[message.ID] = *message
	return nil
}

func (r *fakeMessageRepo) GetPageByRoom(_ context.Context, roomID uint, page, size int) ([]domain.Message, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	messages := make([]domain.Message, 0)
	for _, m := range r.store.messages {
		if m.RoomID == roomID {
			messages = append(messages, m)
		}
	}
	sort.Slice(messages, func(i, j int) bool {
		if !messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].CreatedAt.After(messages[j].CreatedAt)
		}
		return messages[i].ID > messages[j].ID
	})
	return pageSlice(messages, page, size), int64(len(messages)), nil
}

func (r *fakeMessageRepo) NullifyUser(_ context.Context, userID uint) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, m := range r.store.messages {
		if m.UserID != nil && *m.UserID == userID {
			m.UserID = nil
			r.store.messages[id] = m
		}
	}
	return nil
}

func (r *fakeMessageRepo) DeleteByRoom(_ context.Context, roomID uint) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, m := range r.store.messages {
		if m.RoomID == roomID {
			delete(r.store.messages, id)
		}
	}
	return nil
}

// --- UserRepository ---

type fakeUserRepo struct{ store *fakeStore }

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, user := range r.store.users {
		if user.Username == username {
			copied := user
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uint) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	user, ok := r.store.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := user
	return &copied, nil
}

func (r *fakeUserRepo) Save(_ context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, existing := range r.store.users {
		if id != user.ID && (existing.Username == user.Username || (user.Email != "" && existing.Email == user.Email)) {
			return repository.ErrDuplicateEntry
		}
	}
	if user.ID == 0 {
		user.ID = r.store.allocID()
		user.CreatedAt = r.store.tick()
	}
	user.UpdatedAt = r.store.tick()
	r.store.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id uint) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(r.store.users, id)
	return nil
}

// --- LiveStateRepository ---

// fakeLive 记录发布的事件并在内存中维护暂存区和缓存。
type fakeLive struct {
	mu        sync.Mutex
	staged    map[uint]domain.BoardPayload
	dirty     map[uint]bool
	opCounts  map[uint]int64
	caches    map[uint]*domain.BoardState
	published []domain.RoomEvent
}

func newFakeLive() *fakeLive {
	return &fakeLive{
		staged:   make(map[uint]domain.BoardPayload),
		dirty:    make(map[uint]bool),
		opCounts: make(map[uint]int64),
		caches:   make(map[uint]*domain.BoardState),
	}
}

func (f *fakeLive) StagePatch(_ context.Context, patch domain.Patch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cells, ok := f.staged[patch.BoardID]
	if !ok {
		cells = make(domain.BoardPayload)
		f.staged[patch.BoardID] = cells
	}
	if patch.Kind == "draw" {
		cells[patch.Cell] = patch.Color
	} else {
		cells[patch.Cell] = ""
	}
	f.dirty[patch.BoardID] = true
	return nil
}

func (f *fakeLive) GetStagedCells(_ context.Context, boardID uint) (domain.BoardPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cells := make(domain.BoardPayload)
	for k, v := range f.staged[boardID] {
		cells[k] = v
	}
	return cells, nil
}

func (f *fakeLive) ClearStaged(_ context.Context, boardID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.staged, boardID)
	delete(f.dirty, boardID)
	return nil
}

func (f *fakeLive) ListDirtyBoards(_ context.Context) ([]uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]uint, 0, len(f.dirty))
	for id := range f.dirty {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *fakeLive) IncrementOpCount(_ context.Context, boardID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opCounts[boardID]++
	return nil
}

func (f *fakeLive) GetOpCount(_ context.Context, boardID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opCounts[boardID], nil
}

func (f *fakeLive) ResetOpCount(_ context.Context, boardID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opCounts[boardID] = 0
	return nil
}

func (f *fakeLive) GetStateCache(_ context.Context, roomID uint) (*domain.BoardState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.caches[roomID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *state
	return &copied, nil
}

func (f *fakeLive) SetStateCache(_ context.Context, roomID uint, state *domain.BoardState, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *state
	f.caches[roomID] = &copied
	return nil
}

func (f *fakeLive) InvalidateStateCache(_ context.Context, roomID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.caches, roomID)
	return nil
}

func (f *fakeLive) PublishEvent(_ context.Context, event domain.RoomEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, event)
	return nil
}

func (f *fakeLive) CheckRateLimit(_ context.Context, _ string, _ int, _ time.Duration) (bool, error) {
	return false, nil
}

// --- 辅助 ---

func pageSlice[T any](all []T, page, size int) []T {
	start := page * size
	if start >= len(all) {
		return []T{}
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}
