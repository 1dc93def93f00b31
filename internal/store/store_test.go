package store

import (
	"context"
	"errors"
	"testing"
)

func TestRoom_MemberSet(t *testing.T) {
	r := &Room{Name: "general"}

	r.AddMember("u1")
	r.AddMember("u2")
	r.AddMember("u1") // duplicate

	if len(r.MemberIDs) != 2 {
		t.Fatalf("MemberIDs = %v, want 2 unique members", r.MemberIDs)
	}
	if !r.HasMember("u1") || !r.HasMember("u2") {
		t.Error("HasMember() missing expected members")
	}

	r.RemoveMember("u1")
	if r.HasMember("u1") {
		t.Error("RemoveMember() did not remove u1")
	}
	r.RemoveMember("u1") // already gone
	if len(r.MemberIDs) != 1 {
		t.Errorf("MemberIDs = %v, want {u2}", r.MemberIDs)
	}
}

func TestMemoryStore_RoomLifecycle(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	if _, err := st.FindRoomByName(ctx, "general"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("FindRoomByName() error = %v, want ErrRoomNotFound", err)
	}

	if _, err := st.CreateRoom(ctx, "general", []string{"u1"}); err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	if _, err := st.CreateRoom(ctx, "general", nil); !errors.Is(err, ErrRoomExists) {
		t.Fatalf("duplicate CreateRoom() error = %v, want ErrRoomExists", err)
	}

	room, err := st.FindRoomByName(ctx, "general")
	if err != nil {
		t.Fatalf("FindRoomByName() error = %v", err)
	}
	room.AddMember("u2")
	if err := st.SaveRoom(ctx, room); err != nil {
		t.Fatalf("SaveRoom() error = %v", err)
	}
	if got := st.Members("general"); len(got) != 2 {
		t.Errorf("Members = %v, want {u1,u2}", got)
	}

	if err := st.DeleteRoom(ctx, "general"); err != nil {
		t.Fatalf("DeleteRoom() error = %v", err)
	}
	if st.HasRoom("general") {
		t.Error("room should be gone after DeleteRoom")
	}
	if err := st.DeleteRoom(ctx, "general"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("second DeleteRoom() error = %v, want ErrRoomNotFound", err)
	}
}

func TestMemoryStore_RoomSnapshotIsolated(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	st.PutRoom("general", "u1")

	room, err := st.FindRoomByName(ctx, "general")
	if err != nil {
		t.Fatal(err)
	}
	room.AddMember("u2")

	// 未 SaveRoom 前，修改不应泄漏进 store。
	if got := st.Members("general"); len(got) != 1 {
		t.Errorf("Members = %v, want {u1} before save", got)
	}
}
