package relay

import (
	"context"

	"chatrelay/internal/metrics"

	"github.com/rs/zerolog/log"
)

// SendChat 把聊天消息分发给房间当前全部订阅者，发送者若订阅了也会收到。
// 不校验房间存在性：没有订阅者的房间等价于空集，发送照常成功。
func (r *Relay) SendChat(ctx context.Context, connID, roomName, text, username, language string) error {
	_, userID, err := r.authedConn(connID)
	if err != nil {
		return err
	}

	unlock := r.rooms.lock(roomName)
	defer unlock()

	log.Info().Str("room", roomName).Str("user_id", userID).Msg("chat message")
	r.broadcastLocked(roomName, Message{
		UserID:   userID,
		Message:  text,
		Username: username,
		Language: language,
	}, "")
	metrics.MessagesTotal.Inc()
	return nil
}

// broadcastLocked 向房间全部订阅者投递一条消息，exceptConnID 非空时跳过该连接。
// 调用方必须持有该房间的 keyedMutex：同一房间的全部分发由此串行，
// 保证每个订阅者看到相同的相对顺序。单个连接投递失败不影响其余连接。
func (r *Relay) broadcastLocked(roomName string, msg Message, exceptConnID string) {
	for _, c := range r.subs.snapshot(roomName) {
		if c.ID() == exceptConnID {
			continue
		}
		if err := c.Deliver(msg); err != nil {
			metrics.DroppedDeliveries.Inc()
			log.Warn().Err(err).Str("room", roomName).Str("conn_id", c.ID()).Msg("delivery dropped")
			continue
		}
		metrics.DeliveriesTotal.Inc()
	}
}
