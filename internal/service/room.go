package service

import (
	"context"

	"chatrelay/internal/relay"
	"chatrelay/internal/store"
)

// RoomService 封装房间查询与显式创建。
// 创建是唯一产生房间的入口，join 不会隐式建房。
type RoomService struct {
	st    store.Store
	relay *relay.Relay
}

func NewRoomService(st store.Store, r *relay.Relay) *RoomService {
	return &RoomService{st: st, relay: r}
}

// RoomDTO 是对外输出的房间数据。
type RoomDTO struct {
	Name      string   `json:"name"`
	Members   []string `json:"members"`
	Listening int      `json:"listening"`
}

func (s *RoomService) toDTO(r store.Room) RoomDTO {
	members := r.MemberIDs
	if members == nil {
		members = []string{}
	}
	return RoomDTO{Name: r.Name, Members: members, Listening: s.relay.Subscribers(r.Name)}
}

// DTOs 把一组持久层房间转成对外形态，附带各自的订阅连接数。
func (s *RoomService) DTOs(rooms []store.Room) []RoomDTO {
	out := make([]RoomDTO, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, s.toDTO(r))
	}
	return out
}

// Create 创建新房间，创建者是第一个成员。
func (s *RoomService) Create(ctx context.Context, name, creatorID string) (*RoomDTO, error) {
	room, err := s.st.CreateRoom(ctx, name, []string{creatorID})
	if err != nil {
		return nil, err
	}
	dto := s.toDTO(*room)
	return &dto, nil
}

// List 返回全部房间，附带各房间当前订阅连接数。
func (s *RoomService) List(ctx context.Context) ([]RoomDTO, error) {
	rooms, err := s.st.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	return s.DTOs(rooms), nil
}

// Get 按名字查房间。
func (s *RoomService) Get(ctx context.Context, name string) (*RoomDTO, error) {
	room, err := s.st.FindRoomByName(ctx, name)
	if err != nil {
		return nil, err
	}
	dto := s.toDTO(*room)
	return &dto, nil
}

// ForUser 返回用户加入过的全部房间。
func (s *RoomService) ForUser(ctx context.Context, userID string) ([]RoomDTO, error) {
	rooms, err := s.st.RoomsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.DTOs(rooms), nil
}
