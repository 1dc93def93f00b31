package server

import (
	"net/http"
	"time"

	"chatrelay/internal/auth"
	"chatrelay/internal/config"
	"chatrelay/internal/metrics"
	"chatrelay/internal/mw"
	"chatrelay/internal/relay"
	"chatrelay/internal/service"
	"chatrelay/internal/store"
	"chatrelay/internal/translate"
	"chatrelay/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// SetupRouter 统一初始化中间件、REST API 与 WebSocket 端点。
func SetupRouter(cfg config.Config, db *gorm.DB, st store.Store, r *relay.Relay) *gin.Engine {
	userSvc := service.NewUserService(db, st, cfg)
	roomSvc := service.NewRoomService(st, r)
	translator := translate.NewClient(cfg.TranslateAPIURL, cfg.TranslateAPIKey)
	h := NewHandler(userSvc, roomSvc, translator)

	e := gin.New()
	e.Use(gin.Recovery())
	e.Use(metrics.GinMiddleware())
	e.Use(mw.CORS(cfg.AllowedOrigin))
	e.Use(mw.RateLimit(rate.Every(time.Second/20), 40))

	e.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := e.Group("/api/v1")
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/refresh", h.RefreshToken)

	// 房间查询与翻译沿用原服务的公开访问。
	api.GET("/rooms", h.ListRooms)
	api.GET("/rooms/:name", h.GetRoom)
	api.GET("/users/:id/rooms", h.UserRooms)
	api.POST("/translate", h.Translate)

	// 建房需要 Bearer Token，创建者从 token 取。
	authed := api.Group("")
	authed.Use(auth.AuthMiddleware(cfg, db))
	authed.POST("/rooms", h.CreateRoom)

	e.GET("/ws", ws.Serve(r))
	return e
}
