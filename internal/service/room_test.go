package service

import (
	"context"
	"errors"
	"testing"

	"chatrelay/internal/relay"
	"chatrelay/internal/store"
)

func newRoomService() (*RoomService, *store.MemoryStore) {
	st := store.NewMemoryStore()
	return NewRoomService(st, relay.New(st)), st
}

func TestRoomService_Create(t *testing.T) {
	svc, st := newRoomService()

	dto, err := svc.Create(context.Background(), "general", "u1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if dto.Name != "general" {
		t.Errorf("Name = %q, want general", dto.Name)
	}
	if len(dto.Members) != 1 || dto.Members[0] != "u1" {
		t.Errorf("Members = %v, want creator as first member", dto.Members)
	}
	if !st.HasRoom("general") {
		t.Error("room not persisted")
	}
}

func TestRoomService_Create_Duplicate(t *testing.T) {
	svc, _ := newRoomService()
	if _, err := svc.Create(context.Background(), "general", "u1"); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Create(context.Background(), "general", "u2")
	if !errors.Is(err, store.ErrRoomExists) {
		t.Fatalf("Create() duplicate error = %v, want ErrRoomExists", err)
	}
}

func TestRoomService_Get_NotFound(t *testing.T) {
	svc, _ := newRoomService()
	_, err := svc.Get(context.Background(), "missing")
	if !errors.Is(err, store.ErrRoomNotFound) {
		t.Fatalf("Get() error = %v, want ErrRoomNotFound", err)
	}
}

func TestRoomService_ForUser(t *testing.T) {
	svc, st := newRoomService()
	st.PutRoom("general", "u1", "u2")
	st.PutRoom("random", "u2")
	st.PutRoom("quiet", "u3")

	rooms, err := svc.ForUser(context.Background(), "u2")
	if err != nil {
		t.Fatalf("ForUser() error = %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("ForUser() returned %d rooms, want 2", len(rooms))
	}
}

func TestRoomService_List(t *testing.T) {
	svc, st := newRoomService()
	st.PutRoom("general", "u1")
	st.PutRoom("random", "u2")

	rooms, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("List() returned %d rooms, want 2", len(rooms))
	}
	for _, r := range rooms {
		if r.Listening != 0 {
			t.Errorf("room %s Listening = %d, want 0 with no subscribers", r.Name, r.Listening)
		}
	}
}

func TestRoomService_DTOs(t *testing.T) {
	svc, _ := newRoomService()

	dtos := svc.DTOs([]store.Room{
		{Name: "general", MemberIDs: []string{"u1", "u2"}},
		{Name: "quiet"},
	})
	if len(dtos) != 2 {
		t.Fatalf("DTOs() returned %d, want 2", len(dtos))
	}
	if dtos[0].Name != "general" || len(dtos[0].Members) != 2 {
		t.Errorf("dtos[0] = %+v, want general with 2 members", dtos[0])
	}
	// 成员为空的房间也要输出 []，不能输出 null。
	if dtos[1].Members == nil {
		t.Error("Members must be non-nil for an empty room")
	}
}
