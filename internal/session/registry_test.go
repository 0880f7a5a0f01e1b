package session

import (
	"sync"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Lobby", "lobby"},
		{"  lobby  ", "lobby"},
		{"  LOBBY-North ", "lobby-north"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := Normalize(tt.input); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestGetOrCreateNormalisesKeys(t *testing.T) {
	r := NewRegistry()

	first, err := r.GetOrCreate("Lobby ")
	if err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}
	second, err := r.GetOrCreate("  lobby")
	if err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}

	if first.Key != "lobby" || second.Key != "lobby" {
		t.Errorf("keys = %q, %q; want both lobby", first.Key, second.Key)
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestGetOrCreateEmptyKey(t *testing.T) {
	r := NewRegistry()
	if _, err := r.GetOrCreate("   "); err != ErrEmptyKey {
		t.Errorf("GetOrCreate(blank) error = %v, want ErrEmptyKey", err)
	}
}

// Concurrent creates for the same normalised key must yield a single record.
func TestGetOrCreateConcurrent(t *testing.T) {
	r := NewRegistry()

	const goroutines = 50
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			if _, err := r.GetOrCreate("kiosk-7"); err != nil {
				t.Errorf("GetOrCreate() error: %v", err)
			}
		}()
	}
	wg.Wait()

	if r.Count() != 1 {
		t.Errorf("Count() after concurrent creates = %d, want 1", r.Count())
	}
}

func TestGetDoesNotCreate(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Get("ghost"); ok {
		t.Error("Get() on unknown key should report not found")
	}
	if r.Count() != 0 {
		t.Errorf("Get() created a session: Count() = %d", r.Count())
	}
}

func TestBindControllerRequiresSession(t *testing.T) {
	r := NewRegistry()

	if err := r.BindController("ghost", "ch-1"); err != ErrNotFound {
		t.Errorf("BindController(unknown) error = %v, want ErrNotFound", err)
	}

	if err := r.BindDisplay("kiosk", "ch-display"); err != nil {
		t.Fatalf("BindDisplay() error: %v", err)
	}
	if err := r.BindController("kiosk", "ch-controller"); err != nil {
		t.Errorf("BindController(existing) error: %v", err)
	}

	snap, _ := r.Get("kiosk")
	if !snap.ControllerConnected || !snap.DisplayConnected {
		t.Errorf("snapshot = %+v; want both roles connected", snap)
	}
}

func TestBindDisplayAutoCreates(t *testing.T) {
	r := NewRegistry()

	if err := r.BindDisplay("New-Kiosk", "ch-1"); err != nil {
		t.Fatalf("BindDisplay() error: %v", err)
	}

	snap, ok := r.Get("new-kiosk")
	if !ok {
		t.Fatal("session not created by display bind")
	}
	if !snap.DisplayConnected {
		t.Error("display should be connected after bind")
	}
}

func TestBindReplacesPrevious(t *testing.T) {
	r := NewRegistry()
	mustBindDisplay(t, r, "kiosk", "ch-old")
	mustBindDisplay(t, r, "kiosk", "ch-new")

	ch, ok := r.DisplayChannel("kiosk")
	if !ok || ch != "ch-new" {
		t.Errorf("DisplayChannel() = %q, %v; want ch-new", ch, ok)
	}
}

func TestUnbindRemovesMatchingPointers(t *testing.T) {
	r := NewRegistry()
	mustBindDisplay(t, r, "kiosk", "ch-display")
	if err := r.BindController("kiosk", "ch-controller"); err != nil {
		t.Fatalf("BindController() error: %v", err)
	}

	removed := r.Unbind("ch-display")
	if len(removed) != 1 || removed[0].Role != RoleDisplay || removed[0].Key != "kiosk" {
		t.Errorf("Unbind() = %+v, want single display unbind for kiosk", removed)
	}

	snap, _ := r.Get("kiosk")
	if snap.DisplayConnected {
		t.Error("display still connected after unbind")
	}
	if !snap.ControllerConnected {
		t.Error("controller should remain bound")
	}
}

// A channel superseded by a newer bind must not unbind anything; this is
// the guard against false disconnect notifications after reconnects.
func TestUnbindSupersededChannelIsNoop(t *testing.T) {
	r := NewRegistry()
	mustBindDisplay(t, r, "kiosk", "ch-old")
	mustBindDisplay(t, r, "kiosk", "ch-new")

	if removed := r.Unbind("ch-old"); len(removed) != 0 {
		t.Errorf("Unbind(superseded) = %+v, want empty", removed)
	}

	ch, _ := r.DisplayChannel("kiosk")
	if ch != "ch-new" {
		t.Errorf("DisplayChannel() = %q, want ch-new preserved", ch)
	}
}

func TestUnbindUnknownChannelIsNoop(t *testing.T) {
	r := NewRegistry()
	if removed := r.Unbind("never-bound"); len(removed) != 0 {
		t.Errorf("Unbind(unknown) = %+v, want empty", removed)
	}
}

func TestFindByChannel(t *testing.T) {
	r := NewRegistry()
	mustBindDisplay(t, r, "kiosk", "ch-display")
	if err := r.BindController("kiosk", "ch-controller"); err != nil {
		t.Fatalf("BindController() error: %v", err)
	}

	snap, role, ok := r.FindByChannel("ch-controller")
	if !ok || role != RoleController || snap.Key != "kiosk" {
		t.Errorf("FindByChannel(controller) = %+v, %v, %v", snap, role, ok)
	}

	snap, role, ok = r.FindByChannel("ch-display")
	if !ok || role != RoleDisplay || snap.Key != "kiosk" {
		t.Errorf("FindByChannel(display) = %+v, %v, %v", snap, role, ok)
	}

	if _, _, ok := r.FindByChannel("unknown"); ok {
		t.Error("FindByChannel(unknown) should report not found")
	}
}

func TestListAllOrdersByActivity(t *testing.T) {
	r := NewRegistry()
	mustBindDisplay(t, r, "first", "ch-1")
	mustBindDisplay(t, r, "second", "ch-2")
	r.Touch("first") // first becomes most recent

	list := r.ListAll()
	if len(list) != 2 {
		t.Fatalf("ListAll() returned %d sessions, want 2", len(list))
	}
	if list[0].Key != "first" {
		t.Errorf("most recently active = %q, want first", list[0].Key)
	}
}

func TestClearAll(t *testing.T) {
	r := NewRegistry()
	mustBindDisplay(t, r, "a", "ch-1")
	mustBindDisplay(t, r, "b", "ch-2")

	r.ClearAll()
	if r.Count() != 0 {
		t.Errorf("Count() after ClearAll = %d, want 0", r.Count())
	}
}

func mustBindDisplay(t *testing.T, r *Registry, key string, ch ChannelID) {
	t.Helper()
	if err := r.BindDisplay(key, ch); err != nil {
		t.Fatalf("BindDisplay(%q) error: %v", key, err)
	}
}
