package service

import (
	"context"
	"fmt"
	"testing"

	"identidraw-be/internal/service/dto"
	"identidraw-be/internal/store"
)

func newTestMatchmaking(t *testing.T, matchSize int) (*MatchmakingService, *LobbyService) {
	t.Helper()

	ms := store.NewMemoryStore()
	t.Cleanup(func() { ms.Close() })

	lobbies := NewLobbyService(ms, 7200)

	return NewMatchmakingService(ms, lobbies, matchSize), lobbies
}

func TestMatchmakingBelowThreshold(t *testing.T) {
	queue, _ := newTestMatchmaking(t, 5)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := queue.Add(ctx, testPlayer(fmt.Sprintf("p%d", i))); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}

	match, err := queue.TryMatch(ctx)
	if err != nil {
		t.Fatalf("try match failed: %v", err)
	}
	if match != nil {
		t.Fatalf("4 players must never form a match, got %+v", match)
	}

	if size, _ := queue.QueueSize(ctx); size != 4 {
		t.Fatalf("queue should be untouched, got size %d", size)
	}
}

func TestMatchmakingBatchExtraction(t *testing.T) {
	queue, lobbies := newTestMatchmaking(t, 5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := queue.Add(ctx, testPlayer(fmt.Sprintf("p%d", i))); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}

	match, err := queue.TryMatch(ctx)
	if err != nil {
		t.Fatalf("try match failed: %v", err)
	}
	if match == nil {
		t.Fatalf("5 players should form exactly one match")
	}

	// FIFO: matched players come out in join order, first one is host
	if len(match.Players) != 5 {
		t.Fatalf("want 5 matched players, got %d", len(match.Players))
	}
	for i, p := range match.Players {
		if want := fmt.Sprintf("p%d", i); p.ID != want {
			t.Fatalf("match order broken at %d: want %s, got %s", i, want, p.ID)
		}
	}

	if size, _ := queue.QueueSize(ctx); size != 0 {
		t.Fatalf("queue should be empty after match, got %d", size)
	}

	lobby, err := lobbies.Get(ctx, match.LobbyCode)
	if err != nil || lobby == nil {
		t.Fatalf("match lobby should exist: %v", err)
	}
	if lobby.Mode != dto.MODE_MATCHMAKING {
		t.Fatalf("match lobby mode: want matchmaking, got %q", lobby.Mode)
	}
	if lobby.HostID != "p0" {
		t.Fatalf("first matched player should host, got %q", lobby.HostID)
	}
	if len(lobby.Players) != 5 {
		t.Fatalf("match lobby should hold all 5 players, got %d", len(lobby.Players))
	}
}

func TestMatchmakingRemainderStaysQueued(t *testing.T) {
	queue, _ := newTestMatchmaking(t, 5)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		queue.Add(ctx, testPlayer(fmt.Sprintf("p%d", i)))
	}

	match, err := queue.TryMatch(ctx)
	if err != nil || match == nil {
		t.Fatalf("try match failed: %v", err)
	}

	if size, _ := queue.QueueSize(ctx); size != 2 {
		t.Fatalf("remainder should stay queued, got size %d", size)
	}

	entries, err := queue.getAll(ctx)
	if err != nil {
		t.Fatalf("get all failed: %v", err)
	}
	if entries[0].Player.ID != "p5" || entries[1].Player.ID != "p6" {
		t.Fatalf("remainder order broken: %s, %s", entries[0].Player.ID, entries[1].Player.ID)
	}
}

func TestMatchmakingRemove(t *testing.T) {
	queue, _ := newTestMatchmaking(t, 5)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		queue.Add(ctx, testPlayer(fmt.Sprintf("p%d", i)))
	}

	if err := queue.Remove(ctx, "p1"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	entries, err := queue.getAll(ctx)
	if err != nil {
		t.Fatalf("get all failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("want 2 entries after remove, got %d", len(entries))
	}
	if entries[0].Player.ID != "p0" || entries[1].Player.ID != "p2" {
		t.Fatalf("remove broke ordering: %s, %s", entries[0].Player.ID, entries[1].Player.ID)
	}

	// removing an absent player is a no-op
	if err := queue.Remove(ctx, "ghost"); err != nil {
		t.Fatalf("remove absent should no-op: %v", err)
	}
	if size, _ := queue.QueueSize(ctx); size != 2 {
		t.Fatalf("no-op remove changed queue size: %d", size)
	}
}
