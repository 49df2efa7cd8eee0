package game

import (
	"testing"
)

func TestAddPlayerOnlyInLobby(t *testing.T) {
	s := newTestSession(testConfig(), nil, nil)
	addPlayers(t, s, "ada")
	startInProgress(s)
	if _, err := s.AddPlayer("late", &recorder{}); err != ErrWrongPhase {
		t.Errorf("mid-game join: err = %v, want ErrWrongPhase", err)
	}
}

func TestFirstPlayerBecomesHost(t *testing.T) {
	s := newTestSession(testConfig(), nil, nil)
	players, _ := addPlayers(t, s, "ada", "bob")
	if got := s.Snapshot().HostID; got != players[0].ID {
		t.Errorf("hostId = %s, want first joiner %s", got, players[0].ID)
	}
}

func TestAddPlayerSeedsEmptyInventory(t *testing.T) {
	s := newTestSession(testConfig(), nil, nil)
	players, _ := addPlayers(t, s, "ada")
	p := s.Snapshot().Players[players[0].ID]
	if p.Coins != testConfig().StartingCoins {
		t.Errorf("coins = %d, want %d", p.Coins, testConfig().StartingCoins)
	}
	for _, item := range append(append([]string(nil), BaseIngredients...), testConfig().ComponentNames()...) {
		qty, ok := p.Inventory[item]
		if !ok {
			t.Errorf("inventory missing key %s", item)
		}
		if qty != 0 {
			t.Errorf("inventory[%s] = %d, want 0", item, qty)
		}
	}
}

func TestRemovePlayerBelowMinimumCancelsGame(t *testing.T) {
	s := newTestSession(testConfig(), nil, nil)
	players, recs := addPlayers(t, s, "ada", "bob")
	startInProgress(s)

	if empty := s.RemovePlayer(players[1].ID); empty {
		t.Fatal("session reported empty with one player left")
	}
	if s.Phase() != PhaseFinished {
		t.Fatalf("phase = %s, want FINISHED", s.Phase())
	}
	snap := s.Snapshot()
	if snap.CurrentEvent.Title != "Game Canceled" {
		t.Errorf("currentEvent = %+v", snap.CurrentEvent)
	}
	if snap.CurrentEvent.Description != "Not enough players to continue." {
		t.Errorf("cancellation notice = %q", snap.CurrentEvent.Description)
	}
	if len(recs[0].byType("stateUpdate")) == 0 {
		t.Error("remaining player never saw the cancellation")
	}

	// The finished session accepts no further actions.
	s.Buy(players[0].ID, "Carbon", 1)
	if got := recs[0].lastResult(t); got.Success {
		t.Errorf("post-cancel action succeeded: %+v", got)
	}
}

func TestRemoveLastPlayerReportsEmpty(t *testing.T) {
	s := newTestSession(testConfig(), nil, nil)
	players, _ := addPlayers(t, s, "ada")
	if empty := s.RemovePlayer(players[0].ID); !empty {
		t.Error("removing the only player should report empty")
	}
	if empty := s.RemovePlayer("ghost"); !empty {
		t.Error("removing from an empty session should report empty")
	}
}

func TestRemovePlayerInLobbyKeepsSessionOpen(t *testing.T) {
	s := newTestSession(testConfig(), nil, nil)
	players, _ := addPlayers(t, s, "ada", "bob")
	if empty := s.RemovePlayer(players[1].ID); empty {
		t.Fatal("lobby with one player left reported empty")
	}
	if s.Phase() != PhaseLobby {
		t.Errorf("phase = %s, want LOBBY", s.Phase())
	}
	addPlayers(t, s, "carol")
	if got := s.PlayerCount(); got != 2 {
		t.Errorf("player count = %d, want 2", got)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := newTestSession(testConfig(), nil, nil)
	players, _ := addPlayers(t, s, "ada", "bob")
	startInProgress(s)

	snap := s.Snapshot()
	snap.Players[players[0].ID].Coins = 9999
	snap.Players[players[0].ID].Inventory["Carbon"] = 42
	snap.MarketPrices["Carbon"] = 1
	snap.Constants.ComplexComponents["Microchip"]["Silicon"] = 99

	fresh := s.Snapshot()
	if fresh.Players[players[0].ID].Coins == 9999 {
		t.Error("snapshot shares player structs with the session")
	}
	if fresh.Players[players[0].ID].Inventory["Carbon"] == 42 {
		t.Error("snapshot shares inventory maps with the session")
	}
	if fresh.MarketPrices["Carbon"] == 1 {
		t.Error("snapshot shares the price map with the session")
	}
	if fresh.Constants.ComplexComponents["Microchip"]["Silicon"] == 99 {
		t.Error("snapshot shares recipe maps with the session")
	}
}

func TestSnapshotFoldsOverlayWithoutExposingIt(t *testing.T) {
	s := newTestSession(testConfig(), nil, nil)
	addPlayers(t, s, "ada", "bob")
	startInProgress(s)

	s.mu.Lock()
	s.applyCraftingChangeLocked(CraftingChange{Component: "Casing", Ingredient: "Polymer", NewAmount: 1})
	s.mu.Unlock()

	snap := s.Snapshot()
	if got := snap.Constants.ComplexComponents["Casing"]["Polymer"]; got != 1 {
		t.Errorf("folded recipe Casing/Polymer = %d, want 1", got)
	}
	// The untouched part of the recipe keeps its baseline amount.
	if got := snap.Constants.ComplexComponents["Casing"]["Carbon"]; got != 2 {
		t.Errorf("folded recipe Casing/Carbon = %d, want 2", got)
	}
}
