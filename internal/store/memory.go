package store

import (
	"context"
	"sort"
	"sync"

	"chatrelay/internal/models"
)

// MemoryStore 是 Store 的内存实现，供测试使用。
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]models.User
	rooms map[string][]string

	// SaveCalls 按房间名统计 SaveRoom 次数，用于验证幂等性。
	SaveCalls map[string]int
	// FailSaves 为 true 时所有写操作返回 ErrStoreDown，模拟持久层故障。
	FailSaves bool
	// FindRoomHook 在 FindRoomByName 返回前调用，用于在查询窗口里
	// 插入并发事件（如关闭连接）。
	FindRoomHook func()
}

// ErrStoreDown 模拟持久层不可用。
var ErrStoreDown = errStoreDown{}

type errStoreDown struct{}

func (errStoreDown) Error() string { return "store unavailable" }

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]models.User),
		rooms:     make(map[string][]string),
		SaveCalls: make(map[string]int),
	}
}

// PutUser 预置一个用户。
func (s *MemoryStore) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// PutRoom 预置一个房间及成员。
func (s *MemoryStore) PutRoom(name string, memberIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[name] = append([]string(nil), memberIDs...)
}

// HasRoom 判断房间是否仍然存在。
func (s *MemoryStore) HasRoom(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rooms[name]
	return ok
}

// Members 返回房间当前成员快照，房间不存在时返回 nil。
func (s *MemoryStore) Members(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, ok := s.rooms[name]
	if !ok {
		return nil
	}
	return append([]string(nil), ids...)
}

func (s *MemoryStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (s *MemoryStore) FindRoomByName(ctx context.Context, name string) (*Room, error) {
	if s.FindRoomHook != nil {
		s.FindRoomHook()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, ok := s.rooms[name]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return &Room{Name: name, MemberIDs: append([]string(nil), ids...)}, nil
}

func (s *MemoryStore) CreateRoom(ctx context.Context, name string, memberIDs []string) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSaves {
		return nil, ErrStoreDown
	}
	if _, ok := s.rooms[name]; ok {
		return nil, ErrRoomExists
	}
	s.rooms[name] = append([]string(nil), memberIDs...)
	return &Room{Name: name, MemberIDs: append([]string(nil), memberIDs...)}, nil
}

func (s *MemoryStore) SaveRoom(ctx context.Context, room *Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSaves {
		return ErrStoreDown
	}
	if _, ok := s.rooms[room.Name]; !ok {
		return ErrRoomNotFound
	}
	s.SaveCalls[room.Name]++
	s.rooms[room.Name] = append([]string(nil), room.MemberIDs...)
	return nil
}

func (s *MemoryStore) DeleteRoom(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSaves {
		return ErrStoreDown
	}
	if _, ok := s.rooms[name]; !ok {
		return ErrRoomNotFound
	}
	delete(s.rooms, name)
	return nil
}

func (s *MemoryStore) ListRooms(ctx context.Context) ([]Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.rooms))
	for name := range s.rooms {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Room, 0, len(names))
	for _, name := range names {
		out = append(out, Room{Name: name, MemberIDs: append([]string(nil), s.rooms[name]...)})
	}
	return out, nil
}

func (s *MemoryStore) RoomsForUser(ctx context.Context, userID string) ([]Room, error) {
	rooms, err := s.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Room, 0, len(rooms))
	for _, r := range rooms {
		if r.HasMember(userID) {
			out = append(out, r)
		}
	}
	return out, nil
}
