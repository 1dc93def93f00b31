package store

import (
	"context"
	"errors"

	"chatrelay/internal/models"

	"gorm.io/gorm"
)

// GormStore 是 Store 的 Postgres 实现。
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) FindRoomByName(ctx context.Context, name string) (*Room, error) {
	var room models.Room
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	memberIDs, err := s.memberIDs(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	return &Room{Name: room.Name, MemberIDs: memberIDs}, nil
}

func (s *GormStore) CreateRoom(ctx context.Context, name string, memberIDs []string) (*Room, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Room{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrRoomExists
		}
		room := models.Room{Name: name}
		if err := tx.Create(&room).Error; err != nil {
			return err
		}
		for _, id := range memberIDs {
			if err := tx.Create(&models.RoomMember{RoomID: room.ID, UserID: id}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Room{Name: name, MemberIDs: append([]string(nil), memberIDs...)}, nil
}

// SaveRoom 在一个事务里对齐成员行：删掉不在列表里的，补上缺失的。
func (s *GormStore) SaveRoom(ctx context.Context, room *Room) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.Room
		if err := tx.Where("name = ?", room.Name).First(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return err
		}
		if len(room.MemberIDs) == 0 {
			if err := tx.Where("room_id = ?", rec.ID).Delete(&models.RoomMember{}).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Where("room_id = ? AND user_id NOT IN ?", rec.ID, room.MemberIDs).Delete(&models.RoomMember{}).Error; err != nil {
				return err
			}
		}
		var existing []models.RoomMember
		if err := tx.Where("room_id = ?", rec.ID).Find(&existing).Error; err != nil {
			return err
		}
		present := make(map[string]struct{}, len(existing))
		for _, m := range existing {
			present[m.UserID] = struct{}{}
		}
		for _, id := range room.MemberIDs {
			if _, ok := present[id]; ok {
				continue
			}
			if err := tx.Create(&models.RoomMember{RoomID: rec.ID, UserID: id}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GormStore) DeleteRoom(ctx context.Context, name string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.Room
		if err := tx.Where("name = ?", name).First(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return err
		}
		if err := tx.Where("room_id = ?", rec.ID).Delete(&models.RoomMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&rec).Error
	})
}

func (s *GormStore) ListRooms(ctx context.Context) ([]Room, error) {
	var rooms []models.Room
	if err := s.db.WithContext(ctx).Order("id").Find(&rooms).Error; err != nil {
		return nil, err
	}
	out := make([]Room, 0, len(rooms))
	for _, r := range rooms {
		memberIDs, err := s.memberIDs(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, Room{Name: r.Name, MemberIDs: memberIDs})
	}
	return out, nil
}

func (s *GormStore) RoomsForUser(ctx context.Context, userID string) ([]Room, error) {
	var memberships []models.RoomMember
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		return nil, err
	}
	out := make([]Room, 0, len(memberships))
	for _, m := range memberships {
		var rec models.Room
		if err := s.db.WithContext(ctx).First(&rec, m.RoomID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		memberIDs, err := s.memberIDs(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, Room{Name: rec.Name, MemberIDs: memberIDs})
	}
	return out, nil
}

func (s *GormStore) memberIDs(ctx context.Context, roomID uint) ([]string, error) {
	var members []models.RoomMember
	if err := s.db.WithContext(ctx).Where("room_id = ?", roomID).Order("created_at").Find(&members).Error; err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	return ids, nil
}
