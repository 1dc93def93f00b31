package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"chatrelay/internal/metrics"
	"chatrelay/internal/relay"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

var errSendBufferFull = errors.New("send buffer full")

// Client 是一条 websocket 连接，向中继实现 relay.Conn。
type Client struct {
	id    string
	conn  *websocket.Conn
	send  chan []byte
	done  chan struct{}
	relay *relay.Relay
}

func newClient(conn *websocket.Conn, r *relay.Relay) *Client {
	return &Client{
		id:    uuid.NewString(),
		conn:  conn,
		send:  make(chan []byte, 256),
		done:  make(chan struct{}),
		relay: r,
	}
}

func (c *Client) ID() string { return c.id }

// Deliver 非阻塞投递：缓冲满视为该接收方投递失败，由中继丢弃这一条。
func (c *Client) Deliver(msg relay.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	b, err := json.Marshal(Envelope{Event: evtMessage, Data: data})
	if err != nil {
		return err
	}
	select {
	case c.send <- b:
		return nil
	default:
		return errSendBufferFull
	}
}

// Serve 处理 /ws 升级，注册会话并启动读写泵。
// 升级时不做鉴权，身份由 authenticate 事件绑定。
func Serve(r *relay.Relay) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		client := newClient(conn, r)
		r.Register(client)
		metrics.WsConnections.Inc()
		log.Info().Str("conn_id", client.id).Msg("connection opened")

		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.relay.Close(c.id)
		close(c.done)
		_ = c.conn.Close()
		metrics.WsConnections.Dec()
		log.Info().Str("conn_id", c.id).Msg("connection closed")
	}()
	c.conn.SetReadLimit(1 << 20) // 1MB
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			log.Debug().Str("conn_id", c.id).Msg("malformed envelope dropped")
			continue
		}
		c.dispatch(env)
	}
}

// dispatch 把入站事件交给中继。除 chatMessage 外全部 fail-open：
// 出错只记日志，连接保持可用，不向对端回报协议错误。
func (c *Client) dispatch(env Envelope) {
	ctx := context.Background()
	switch env.Event {
	case evtAuthenticate:
		userID, err := decodeString(env.Data)
		if err != nil {
			log.Debug().Str("conn_id", c.id).Msg("authenticate: bad payload")
			return
		}
		if err := c.relay.Authenticate(ctx, c.id, userID); err != nil {
			log.Debug().Err(err).Str("conn_id", c.id).Msg("authenticate dropped")
		}
	case evtJoinRoom:
		evt, err := decodeRoomEvent(env.Data)
		if err != nil {
			log.Debug().Str("conn_id", c.id).Msg("joinRoom: bad payload")
			return
		}
		if err := c.relay.Join(ctx, c.id, evt.RoomName, evt.Username, evt.Language); err != nil {
			log.Debug().Err(err).Str("conn_id", c.id).Str("room", evt.RoomName).Msg("join dropped")
		}
	case evtLeaveRoom:
		evt, err := decodeRoomEvent(env.Data)
		if err != nil {
			log.Debug().Str("conn_id", c.id).Msg("leaveRoom: bad payload")
			return
		}
		if err := c.relay.Leave(ctx, c.id, evt.RoomName, evt.Username, evt.Language); err != nil {
			log.Debug().Err(err).Str("conn_id", c.id).Str("room", evt.RoomName).Msg("leave dropped")
		}
	case evtStartListen:
		roomName, err := decodeString(env.Data)
		if err != nil {
			log.Debug().Str("conn_id", c.id).Msg("startListen: bad payload")
			return
		}
		if err := c.relay.Subscribe(ctx, c.id, roomName); err != nil {
			log.Debug().Err(err).Str("conn_id", c.id).Str("room", roomName).Msg("subscribe dropped")
		}
	case evtStopListen:
		roomName, err := decodeString(env.Data)
		if err != nil {
			log.Debug().Str("conn_id", c.id).Msg("stopListen: bad payload")
			return
		}
		if err := c.relay.Unsubscribe(c.id, roomName); err != nil {
			log.Debug().Err(err).Str("conn_id", c.id).Str("room", roomName).Msg("unsubscribe dropped")
		}
	case evtChatMessage:
		var evt ChatEvent
		if err := json.Unmarshal(env.Data, &evt); err != nil || evt.RoomName == "" {
			log.Debug().Str("conn_id", c.id).Msg("chatMessage: bad payload")
			return
		}
		if err := c.relay.SendChat(ctx, c.id, evt.RoomName, evt.Message, evt.Username, evt.Language); err != nil {
			// 聊天发送是唯一向对端暴露 error 事件的路径；
			// 未认证的发送与其他操作一样静默丢弃。
			if errors.Is(err, relay.ErrUnauthenticated) || errors.Is(err, relay.ErrUnknownConnection) {
				log.Debug().Err(err).Str("conn_id", c.id).Msg("chat dropped")
				return
			}
			log.Error().Err(err).Str("conn_id", c.id).Str("room", evt.RoomName).Msg("chat send failed")
			c.sendError("failed to send message")
		}
	default:
		log.Debug().Str("conn_id", c.id).Str("event", env.Event).Msg("unknown event dropped")
	}
}

func (c *Client) sendError(msg string) {
	data, _ := json.Marshal(msg)
	b, _ := json.Marshal(Envelope{Event: evtError, Data: data})
	select {
	case c.send <- b:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)
			_ = w.Close()
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
