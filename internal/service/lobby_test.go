package service

import (
	"context"
	"testing"

	"identidraw-be/internal/service/dto"
	"identidraw-be/internal/store"
)

func newTestLobbyService(t *testing.T) *LobbyService {
	t.Helper()

	ms := store.NewMemoryStore()
	t.Cleanup(func() { ms.Close() })

	return NewLobbyService(ms, 7200)
}

func testPlayer(id string) dto.Player {
	return dto.Player{
		ID:       id,
		Username: "user-" + id,
		SocketID: "sock-" + id,
	}
}

func TestLobbyCreate(t *testing.T) {
	ls := newTestLobbyService(t)
	ctx := context.Background()

	lobby, err := ls.Create(ctx, testPlayer("p1"), dto.MODE_PRIVATE)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if !dto.IsValidLobbyCode(lobby.Code) {
		t.Fatalf("lobby code should be 6 digits, got %q", lobby.Code)
	}
	if lobby.Status != dto.STATUS_WAITING {
		t.Fatalf("new lobby should be waiting, got %q", lobby.Status)
	}
	if lobby.HostID != "p1" || len(lobby.Players) != 1 {
		t.Fatalf("host should be the sole player, got host=%q players=%d", lobby.HostID, len(lobby.Players))
	}

	fetched, err := ls.Get(ctx, lobby.Code)
	if err != nil || fetched == nil {
		t.Fatalf("get after create failed: %v", err)
	}
	if fetched.Code != lobby.Code {
		t.Fatalf("fetched wrong lobby: %q vs %q", fetched.Code, lobby.Code)
	}
}

func TestLobbyGetMissing(t *testing.T) {
	ls := newTestLobbyService(t)

	lobby, err := ls.Get(context.Background(), "000000")
	if err != nil {
		t.Fatalf("get missing should not error: %v", err)
	}
	if lobby != nil {
		t.Fatalf("get missing should return nil, got %+v", lobby)
	}
}

func TestLobbyAddPlayer(t *testing.T) {
	ls := newTestLobbyService(t)
	ctx := context.Background()

	lobby, _ := ls.Create(ctx, testPlayer("p1"), dto.MODE_PRIVATE)

	updated, err := ls.AddPlayer(ctx, lobby.Code, testPlayer("p2"))
	if err != nil || updated == nil {
		t.Fatalf("add player failed: %v", err)
	}
	if len(updated.Players) != 2 {
		t.Fatalf("want 2 players, got %d", len(updated.Players))
	}

	// adding the same player again is idempotent, not an error
	again, err := ls.AddPlayer(ctx, lobby.Code, testPlayer("p2"))
	if err != nil || again == nil {
		t.Fatalf("idempotent add failed: %v", err)
	}
	if len(again.Players) != 2 {
		t.Fatalf("duplicate add should not grow roster, got %d", len(again.Players))
	}

	// joining an absent lobby fails softly
	if got, err := ls.AddPlayer(ctx, "000000", testPlayer("p3")); err != nil || got != nil {
		t.Fatalf("add to missing lobby: want nil, got %+v err=%v", got, err)
	}

	// joining a non-waiting lobby fails softly
	if err := ls.SetStatus(ctx, lobby.Code, dto.STATUS_PLAYING); err != nil {
		t.Fatalf("set status failed: %v", err)
	}
	if got, err := ls.AddPlayer(ctx, lobby.Code, testPlayer("p3")); err != nil || got != nil {
		t.Fatalf("add to playing lobby: want nil, got %+v err=%v", got, err)
	}
}

func TestLobbyRemovePlayerHostTransfer(t *testing.T) {
	ls := newTestLobbyService(t)
	ctx := context.Background()

	lobby, _ := ls.Create(ctx, testPlayer("p1"), dto.MODE_PRIVATE)
	ls.AddPlayer(ctx, lobby.Code, testPlayer("p2"))
	ls.AddPlayer(ctx, lobby.Code, testPlayer("p3"))

	// removing the host promotes the next player in roster order
	updated, err := ls.RemovePlayer(ctx, lobby.Code, "p1")
	if err != nil || updated == nil {
		t.Fatalf("remove host failed: %v", err)
	}
	if updated.HostID != "p2" {
		t.Fatalf("host should transfer to p2, got %q", updated.HostID)
	}
	if len(updated.Players) != 2 {
		t.Fatalf("want 2 players after removal, got %d", len(updated.Players))
	}

	// removing a non-host does not change the host
	updated, err = ls.RemovePlayer(ctx, lobby.Code, "p3")
	if err != nil || updated == nil {
		t.Fatalf("remove p3 failed: %v", err)
	}
	if updated.HostID != "p2" {
		t.Fatalf("host should remain p2, got %q", updated.HostID)
	}

	// removing the last player deletes the lobby
	updated, err = ls.RemovePlayer(ctx, lobby.Code, "p2")
	if err != nil {
		t.Fatalf("remove last failed: %v", err)
	}
	if updated != nil {
		t.Fatalf("removing last player should return nil, got %+v", updated)
	}

	if got, _ := ls.Get(ctx, lobby.Code); got != nil {
		t.Fatalf("lobby should be deleted, got %+v", got)
	}
}

func TestLobbyUpdateSocketID(t *testing.T) {
	ls := newTestLobbyService(t)
	ctx := context.Background()

	lobby, _ := ls.Create(ctx, testPlayer("p1"), dto.MODE_PRIVATE)

	if err := ls.UpdateSocketID(ctx, lobby.Code, "p1", "sock-new"); err != nil {
		t.Fatalf("update socket id failed: %v", err)
	}

	fetched, _ := ls.Get(ctx, lobby.Code)
	if fetched.Players[0].SocketID != "sock-new" {
		t.Fatalf("socket id not updated, got %q", fetched.Players[0].SocketID)
	}

	// absent lobby and absent player are both no-ops
	if err := ls.UpdateSocketID(ctx, "000000", "p1", "x"); err != nil {
		t.Fatalf("update on missing lobby should no-op: %v", err)
	}
	if err := ls.UpdateSocketID(ctx, lobby.Code, "ghost", "x"); err != nil {
		t.Fatalf("update on missing player should no-op: %v", err)
	}
}
