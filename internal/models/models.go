package models

import "time"

// User 由账号接口写入；中继核心只读，language 供客户端选择翻译目标。
type User struct {
	ID           string `gorm:"primaryKey;size:36"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"not null"`
	Language     string `gorm:"size:8;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Room 以名字为业务主键，成员关系放在 RoomMember。
// 不变式：成员为空的房间不允许留存，由 registry 在退出时级联删除。
type Room struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex;size:128;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoomMember 是用户与房间的持久成员关系，与连接是否在线无关。
type RoomMember struct {
	RoomID    uint   `gorm:"primaryKey;autoIncrement:false"`
	UserID    string `gorm:"primaryKey;size:36"`
	CreatedAt time.Time
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    string    `gorm:"index;size:36;not null"`
	Token     string    `gorm:"uniqueIndex;size:128;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	RevokedAt *time.Time
	CreatedAt time.Time
}
