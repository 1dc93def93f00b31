package relay

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// subman 维护两张订阅表：按房间查订阅连接，按连接查订阅过的房间。
// 订阅独立于成员关系：非成员可以订阅，成员也可以不订阅。
type subman struct {
	mu     sync.RWMutex
	byRoom map[string]map[string]Conn
	byConn map[string]map[string]struct{}
}

func newSubman() *subman {
	return &subman{
		byRoom: make(map[string]map[string]Conn),
		byConn: make(map[string]map[string]struct{}),
	}
}

func (s *subman) add(roomName string, c Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byRoom[roomName] == nil {
		s.byRoom[roomName] = make(map[string]Conn)
	}
	s.byRoom[roomName][c.ID()] = c
	if s.byConn[c.ID()] == nil {
		s.byConn[c.ID()] = make(map[string]struct{})
	}
	s.byConn[c.ID()][roomName] = struct{}{}
}

func (s *subman) remove(connID, roomName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(connID, roomName)
}

func (s *subman) removeLocked(connID, roomName string) {
	if conns, ok := s.byRoom[roomName]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(s.byRoom, roomName)
		}
	}
	if rooms, ok := s.byConn[connID]; ok {
		delete(rooms, roomName)
		if len(rooms) == 0 {
			delete(s.byConn, connID)
		}
	}
}

func (s *subman) dropAll(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for roomName := range s.byConn[connID] {
		s.removeLocked(connID, roomName)
	}
}

// snapshot 拷贝一份当前订阅者列表，分发时不持有订阅表锁。
func (s *subman) snapshot(roomName string) []Conn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conns := s.byRoom[roomName]
	out := make([]Conn, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}

func (s *subman) count(roomName string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byRoom[roomName])
}

// Subscribe 为连接开启某房间的实时投递。只要求房间存在，不要求是成员。
func (r *Relay) Subscribe(ctx context.Context, connID, roomName string) error {
	conn, userID, err := r.authedConn(connID)
	if err != nil {
		return err
	}
	if _, err := r.store.FindRoomByName(ctx, roomName); err != nil {
		log.Warn().Err(err).Str("room", roomName).Str("user_id", userID).Msg("subscribe room lookup")
		return err
	}
	// 查询期间连接可能已关闭，关闭后写入会留下永久的僵尸订阅。
	// 持会话锁确认连接仍然注册，再写订阅表。
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[connID]; !ok {
		return ErrUnknownConnection
	}
	r.subs.add(roomName, conn)
	log.Info().Str("room", roomName).Str("user_id", userID).Msg("started listening")
	return nil
}

// Unsubscribe 停止投递，未订阅时为 no-op。
func (r *Relay) Unsubscribe(connID, roomName string) error {
	_, userID, err := r.authedConn(connID)
	if err != nil {
		return err
	}
	r.subs.remove(connID, roomName)
	log.Info().Str("room", roomName).Str("user_id", userID).Msg("stopped listening")
	return nil
}
