package relay

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Authenticate 将连接绑定到一个已存在的用户。
// 用户不存在时保持未认证，只记日志；重复调用以最后一次为准。
func (r *Relay) Authenticate(ctx context.Context, connID, userID string) error {
	r.mu.Lock()
	sess, ok := r.sessions[connID]
	r.mu.Unlock()
	if !ok {
		return ErrUnknownConnection
	}

	user, err := r.store.FindUserByID(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("conn_id", connID).Str("user_id", userID).Msg("authenticate lookup")
		return err
	}

	r.mu.Lock()
	// 连接可能在查库期间关闭，重查一次会话。
	sess, ok = r.sessions[connID]
	if ok {
		sess.userID = user.ID
	}
	r.mu.Unlock()
	if !ok {
		return ErrUnknownConnection
	}
	log.Info().Str("conn_id", connID).Str("user_id", user.ID).Msg("connection authenticated")
	return nil
}

// Authenticated 返回连接是否已绑定用户。
func (r *Relay) Authenticated(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[connID]
	return ok && sess.userID != ""
}
