// Package relay 实现房间级消息中继的核心：会话绑定、成员登记、
// 订阅管理与广播分发。持久化通过 store.Store 完成，传输层只需实现 Conn。
package relay

import (
	"errors"
	"sync"

	"chatrelay/internal/store"
)

// SystemUserID 是系统出入场通知使用的哨兵 userId。
const SystemUserID = "system"

// 出入场通知的正文，客户端按 userId == SystemUserID 识别。
const (
	joinedNotice = "joined the room"
	leftNotice   = "left the room"
)

var (
	// ErrUnauthenticated 表示连接尚未绑定用户，操作被丢弃。
	ErrUnauthenticated = errors.New("connection not authenticated")
	// ErrUnknownConnection 表示连接未注册或已关闭。
	ErrUnknownConnection = errors.New("unknown connection")
)

// Message 是广播给订阅者的消息，出入场通知与聊天消息共用同一条路径。
type Message struct {
	UserID   string `json:"userId"`
	Message  string `json:"message"`
	Username string `json:"username"`
	Language string `json:"language"`
}

// Conn 是中继对一条传输连接的全部要求。
// Deliver 必须是非阻塞的：缓冲满时立即返回错误，由中继按“尽力而为”丢弃。
type Conn interface {
	ID() string
	Deliver(msg Message) error
}

type session struct {
	conn   Conn
	userID string
}

// Relay 聚合四个子模块：会话表、房间登记、订阅表与广播路由。
// 同一房间的成员变更和分发由 per-room 锁串行化，跨房间互不影响。
type Relay struct {
	store store.Store

	mu       sync.Mutex
	sessions map[string]*session

	subs  *subman
	rooms *keyedMutex
}

func New(st store.Store) *Relay {
	return &Relay{
		store:    st,
		sessions: make(map[string]*session),
		subs:     newSubman(),
		rooms:    newKeyedMutex(),
	}
}

// Register 在连接建立时登记会话，此时尚未绑定用户。
func (r *Relay) Register(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[conn.ID()] = &session{conn: conn}
}

// Close 销毁会话并移除该连接的全部订阅。
// 成员关系是持久的，断线不会自动退出房间。
func (r *Relay) Close(connID string) {
	r.mu.Lock()
	delete(r.sessions, connID)
	r.mu.Unlock()
	r.subs.dropAll(connID)
}

// Subscribers 返回房间当前订阅连接数，供 REST 层展示在线人数。
func (r *Relay) Subscribers(roomName string) int {
	return r.subs.count(roomName)
}

// authedConn 取出已认证会话；未注册或未认证分别返回对应错误。
func (r *Relay) authedConn(connID string) (Conn, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[connID]
	if !ok {
		return nil, "", ErrUnknownConnection
	}
	if sess.userID == "" {
		return nil, "", ErrUnauthenticated
	}
	return sess.conn, sess.userID, nil
}
