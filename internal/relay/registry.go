package relay

import (
	"context"
	"sync"

	"chatrelay/internal/metrics"

	"github.com/rs/zerolog/log"
)

// keyedMutex 按房间名串行化成员变更，关掉并发 join 的读改写竞态。
// 不同房间互不阻塞。条目带引用计数，最后一个持有者释放时回收，
// 表的大小只随当前活跃的房间名走，不随历史累积。
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*roomLock)}
}

func (k *keyedMutex) lock(name string) func() {
	k.mu.Lock()
	l, ok := k.locks[name]
	if !ok {
		l = &roomLock{}
		k.locks[name] = l
	}
	l.refs++
	k.mu.Unlock()
	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, name)
		}
		k.mu.Unlock()
	}
}

// Join 把用户加入房间并向其他订阅者广播入场通知。
// 房间不存在时放弃操作；已是成员时不产生写入也不产生通知。
func (r *Relay) Join(ctx context.Context, connID, roomName, username, language string) error {
	_, userID, err := r.authedConn(connID)
	if err != nil {
		return err
	}

	unlock := r.rooms.lock(roomName)
	defer unlock()

	room, err := r.store.FindRoomByName(ctx, roomName)
	if err != nil {
		log.Warn().Err(err).Str("room", roomName).Str("user_id", userID).Msg("join room lookup")
		return err
	}
	if room.HasMember(userID) {
		log.Debug().Str("room", roomName).Str("user_id", userID).Msg("already a member")
		return nil
	}

	room.AddMember(userID)
	if err := r.store.SaveRoom(ctx, room); err != nil {
		log.Error().Err(err).Str("room", roomName).Str("user_id", userID).Msg("join save room")
		return err
	}
	log.Info().Str("room", roomName).Str("user_id", userID).Msg("joined room")

	// 入场者本人即便已订阅也不收自己的入场通知。
	r.broadcastLocked(roomName, Message{
		UserID:   SystemUserID,
		Message:  joinedNotice,
		Username: username,
		Language: language,
	}, connID)
	metrics.PresenceTotal.WithLabelValues("joined").Inc()
	return nil
}

// Leave 把用户移出房间；成员清空时删除房间。
// 先取消本连接的订阅再广播，离开者因此收不到自己的离场通知。
func (r *Relay) Leave(ctx context.Context, connID, roomName, username, language string) error {
	_, userID, err := r.authedConn(connID)
	if err != nil {
		return err
	}

	unlock := r.rooms.lock(roomName)
	defer unlock()

	room, err := r.store.FindRoomByName(ctx, roomName)
	if err != nil {
		log.Warn().Err(err).Str("room", roomName).Str("user_id", userID).Msg("leave room lookup")
		return err
	}
	if !room.HasMember(userID) {
		log.Debug().Str("room", roomName).Str("user_id", userID).Msg("not a member")
		return nil
	}

	room.RemoveMember(userID)
	if len(room.MemberIDs) == 0 {
		if err := r.store.DeleteRoom(ctx, roomName); err != nil {
			log.Error().Err(err).Str("room", roomName).Msg("delete empty room")
			return err
		}
		log.Info().Str("room", roomName).Msg("room deleted, last member left")
	} else {
		if err := r.store.SaveRoom(ctx, room); err != nil {
			log.Error().Err(err).Str("room", roomName).Str("user_id", userID).Msg("leave save room")
			return err
		}
	}
	log.Info().Str("room", roomName).Str("user_id", userID).Msg("left room")

	r.subs.remove(connID, roomName)
	r.broadcastLocked(roomName, Message{
		UserID:   SystemUserID,
		Message:  leftNotice,
		Username: username,
		Language: language,
	}, "")
	metrics.PresenceTotal.WithLabelValues("left").Inc()
	return nil
}
