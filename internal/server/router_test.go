package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chatrelay/internal/config"
	"chatrelay/internal/relay"
	"chatrelay/internal/store"

	"github.com/gin-gonic/gin"
)

func testRouter(st *store.MemoryStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := config.Config{Port: "0", DatabaseDSN: "unused", JWTSecret: "secret", Env: "dev", AccessTokenTTLMinutes: 15, RefreshTokenTTLDays: 7}
	// 路由层测试不触达 Postgres；带 db 的账号路径由 gorm 实现承接。
	return SetupRouter(cfg, nil, st, relay.New(st))
}

func TestHealthz(t *testing.T) {
	engine := testRouter(store.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestListRooms(t *testing.T) {
	st := store.NewMemoryStore()
	st.PutRoom("general", "u1")
	engine := testRouter(st)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Rooms []struct {
			Name    string   `json:"name"`
			Members []string `json:"members"`
		} `json:"rooms"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Rooms) != 1 || body.Rooms[0].Name != "general" {
		t.Errorf("rooms = %+v, want [general]", body.Rooms)
	}
}

func TestGetRoom_NotFound(t *testing.T) {
	engine := testRouter(store.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/missing", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestCreateRoom_RequiresAuth(t *testing.T) {
	engine := testRouter(store.NewMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rooms", strings.NewReader(`{"roomName":"general"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestTranslate_BadPayload(t *testing.T) {
	engine := testRouter(store.NewMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/translate", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestTranslate_NoKeyConfigured(t *testing.T) {
	engine := testRouter(store.NewMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/translate", strings.NewReader(`{"msg":"hello","lang2":"pt"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
