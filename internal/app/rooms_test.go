package app

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/domain"
)

func newTestDirectory(t *testing.T) *RedisRoomDirectory {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRoomDirectory(rdb)
}

func TestCreateRoomIdempotent(t *testing.T) {
	dir := newTestDirectory(t)
	ctx := context.Background()

	first, err := dir.CreateRoom(ctx, domain.RoomTypeEvent, "event-room_concert", map[string]string{"name": "Concert"})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	second, err := dir.CreateRoom(ctx, domain.RoomTypeEvent, "event-room_concert", map[string]string{"name": "Overwrite"})
	if err != nil {
		t.Fatalf("second CreateRoom failed: %v", err)
	}

	if second.Metadata["name"] != "Concert" {
		t.Errorf("recreation overwrote metadata: %+v", second.Metadata)
	}
	if first.ID != second.ID || first.Type != second.Type {
		t.Errorf("recreation changed room record: %+v vs %+v", first, second)
	}
}

func TestCreatePrivateRoom(t *testing.T) {
	dir := newTestDirectory(t)
	ctx := context.Background()

	room, err := dir.CreatePrivateRoom(ctx, "bob", "alice", nil)
	if err != nil {
		t.Fatalf("CreatePrivateRoom failed: %v", err)
	}
	if room.ID != "private-room_alice_bob" {
		t.Errorf("room id = %s, want private-room_alice_bob", room.ID)
	}
	if room.Type != domain.RoomTypePrivate {
		t.Errorf("room type = %s, want PRIVATE", room.Type)
	}

	exists, err := dir.RoomExists(ctx, room.ID)
	if err != nil {
		t.Fatalf("RoomExists failed: %v", err)
	}
	if !exists {
		t.Error("RoomExists = false after creation")
	}
}

func TestRoomExistsUnknown(t *testing.T) {
	dir := newTestDirectory(t)

	exists, err := dir.RoomExists(context.Background(), "jam-room_nope")
	if err != nil {
		t.Fatalf("RoomExists failed: %v", err)
	}
	if exists {
		t.Error("RoomExists = true for unknown room")
	}
}

func TestMembershipBothDirections(t *testing.T) {
	dir := newTestDirectory(t)
	ctx := context.Background()

	if _, err := dir.CreateRoom(ctx, domain.RoomTypeJam, "jam-room_sunday", nil); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	for _, u := range []domain.UserID{"alice", "bob"} {
		if err := dir.AddMember(ctx, "jam-room_sunday", u); err != nil {
			t.Fatalf("AddMember(%s) failed: %v", u, err)
		}
	}

	members, err := dir.MembersOf(ctx, "jam-room_sunday")
	if err != nil {
		t.Fatalf("MembersOf failed: %v", err)
	}
	if len(members) != 2 {
		t.Errorf("MembersOf returned %d members, want 2", len(members))
	}

	rooms, err := dir.RoomsOf(ctx, "alice")
	if err != nil {
		t.Fatalf("RoomsOf failed: %v", err)
	}
	if len(rooms) != 1 || rooms[0] != "jam-room_sunday" {
		t.Errorf("RoomsOf(alice) = %v, want [jam-room_sunday]", rooms)
	}

	if err := dir.RemoveMember(ctx, "jam-room_sunday", "alice"); err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}
	rooms, err = dir.RoomsOf(ctx, "alice")
	if err != nil {
		t.Fatalf("RoomsOf failed: %v", err)
	}
	if len(rooms) != 0 {
		t.Errorf("RoomsOf(alice) = %v after removal, want empty", rooms)
	}
	members, err = dir.MembersOf(ctx, "jam-room_sunday")
	if err != nil {
		t.Fatalf("MembersOf failed: %v", err)
	}
	if len(members) != 1 || members[0] != "bob" {
		t.Errorf("MembersOf = %v after removal, want [bob]", members)
	}
}

func TestMembershipIndependentOfLiveness(t *testing.T) {
	// Membership writes never consult the connection registry: a user
	// can belong to a room while fully disconnected.
	dir := newTestDirectory(t)
	ctx := context.Background()

	if _, err := dir.CreateRoom(ctx, domain.RoomTypeEvent, "event-room_x", nil); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if err := dir.AddMember(ctx, "event-room_x", "offline-user"); err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	members, err := dir.MembersOf(ctx, "event-room_x")
	if err != nil {
		t.Fatalf("MembersOf failed: %v", err)
	}
	if len(members) != 1 {
		t.Errorf("MembersOf = %v, want the offline user", members)
	}
}

func TestGetRoomRoundTrip(t *testing.T) {
	dir := newTestDirectory(t)
	ctx := context.Background()

	if _, err := dir.CreateRoom(ctx, domain.RoomTypeJam, "jam-room_z", map[string]string{"genre": "funk"}); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	room, found, err := dir.GetRoom(ctx, "jam-room_z")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if !found {
		t.Fatal("GetRoom did not find the room")
	}
	if room.Metadata["genre"] != "funk" {
		t.Errorf("metadata lost in round trip: %+v", room.Metadata)
	}

	if _, found, err = dir.GetRoom(ctx, "jam-room_missing"); err != nil || found {
		t.Errorf("GetRoom(missing) = (found=%v, err=%v), want (false, nil)", found, err)
	}
}

func TestDirectoryStoreErrorPropagates(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	dir := NewRoomDirectory(rdb)
	mr.Close()

	if _, err := dir.RoomExists(context.Background(), "jam-room_x"); err == nil {
		t.Error("RoomExists returned nil error with store down")
	}
}
