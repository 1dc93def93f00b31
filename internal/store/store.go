package store

import (
	"context"
	"errors"

	"chatrelay/internal/models"
)

// 预期中的缺失用哨兵错误表示，调用方用 errors.Is 判断，不当异常处理。
var (
	ErrUserNotFound = errors.New("user not found")
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomExists   = errors.New("room already exists")
)

// Room 是持久层对外的房间视图：名字加成员 id 列表。
// 中继核心只通过它操作成员关系，不接触 gorm 模型。
type Room struct {
	Name      string
	MemberIDs []string
}

// HasMember 判断用户是否已在成员列表中。
func (r *Room) HasMember(userID string) bool {
	for _, id := range r.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// AddMember 追加成员，已存在则不变。
func (r *Room) AddMember(userID string) {
	if r.HasMember(userID) {
		return
	}
	r.MemberIDs = append(r.MemberIDs, userID)
}

// RemoveMember 移除成员，不存在则不变。
func (r *Room) RemoveMember(userID string) {
	out := r.MemberIDs[:0]
	for _, id := range r.MemberIDs {
		if id != userID {
			out = append(out, id)
		}
	}
	r.MemberIDs = out
}

// Store 是中继核心与 REST 层依赖的持久化契约。
// 生产实现基于 gorm/Postgres，测试用内存实现。
type Store interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindRoomByName(ctx context.Context, name string) (*Room, error)
	// CreateRoom 新建房间并写入初始成员，名字冲突返回 ErrRoomExists。
	CreateRoom(ctx context.Context, name string, memberIDs []string) (*Room, error)
	// SaveRoom 以 room.MemberIDs 为准覆盖写成员列表。
	SaveRoom(ctx context.Context, room *Room) error
	DeleteRoom(ctx context.Context, name string) error
	ListRooms(ctx context.Context) ([]Room, error)
	RoomsForUser(ctx context.Context, userID string) ([]Room, error)
}
