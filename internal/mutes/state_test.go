package mutes

import (
	"sync"
	"testing"
	"time"
)

func TestGlobalMute(t *testing.T) {
	s := New()

	if s.IsGloballyMuted() {
		t.Error("new state should not be globally muted")
	}
	s.SetGlobalMute(true)
	if !s.IsGloballyMuted() {
		t.Error("expected globally muted after SetGlobalMute(true)")
	}
	s.SetGlobalMute(false)
	if s.IsGloballyMuted() {
		t.Error("expected unmuted after SetGlobalMute(false)")
	}
}

func TestMuteLifecycle_Temporary(t *testing.T) {
	s := New()

	s.Mute("u1", 50*time.Millisecond)
	if !s.IsUserMuted("u1") {
		t.Fatal("user should be muted immediately after Mute")
	}

	time.Sleep(60 * time.Millisecond)

	// Lazy expiry: the check itself removes the expired record.
	if s.IsUserMuted("u1") {
		t.Fatal("mute should have expired")
	}
	if s.Len() != 0 {
		t.Errorf("expired record should be removed, Len = %d", s.Len())
	}
}

func TestMuteLifecycle_Permanent(t *testing.T) {
	s := New()

	s.Mute("u1", 0)
	if !s.IsUserMuted("u1") {
		t.Fatal("user should be permanently muted")
	}

	// Permanent records never expire on their own.
	if got := s.Sweep(); len(got) != 0 {
		t.Errorf("Sweep removed permanent record: %v", got)
	}
	if !s.IsUserMuted("u1") {
		t.Fatal("permanent mute must survive a sweep")
	}

	s.Unmute("u1")
	if s.IsUserMuted("u1") {
		t.Error("user should be unmuted after explicit Unmute")
	}
}

func TestMute_LastWriteWins(t *testing.T) {
	s := New()

	// Permanent, then overwritten by a short temporary mute.
	s.Mute("u1", 0)
	s.Mute("u1", 30*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	if s.IsUserMuted("u1") {
		t.Error("re-mute must overwrite, not stack: temporary record should have expired")
	}

	// Temporary, then escalated to permanent.
	s.Mute("u2", 30*time.Millisecond)
	s.Mute("u2", 0)
	time.Sleep(40 * time.Millisecond)
	if !s.IsUserMuted("u2") {
		t.Error("permanent overwrite should still be in effect")
	}
}

func TestUnmute_AbsentIsNoop(t *testing.T) {
	s := New()
	s.Unmute("nobody") // must not panic
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestSweep(t *testing.T) {
	s := New()

	s.Mute("expired1", 10*time.Millisecond)
	s.Mute("expired2", 10*time.Millisecond)
	s.Mute("active", time.Hour)
	s.Mute("forever", 0)

	time.Sleep(20 * time.Millisecond)

	removed := s.Sweep()
	if len(removed) != 2 {
		t.Fatalf("Sweep removed %d records, want 2: %v", len(removed), removed)
	}
	for _, id := range removed {
		if id != "expired1" && id != "expired2" {
			t.Errorf("unexpected swept id %q", id)
		}
	}
	if !s.IsUserMuted("active") || !s.IsUserMuted("forever") {
		t.Error("sweep must not touch unexpired or permanent records")
	}
}

func TestSnapshotRestore(t *testing.T) {
	s := New()
	s.Mute("temp", time.Hour)
	s.Mute("perm", 0)
	s.SetGlobalMute(true)

	snap := s.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot has %d records, want 2", len(snap))
	}
	if !snap["perm"].IsZero() {
		t.Error("permanent record should snapshot as zero time")
	}
	if snap["temp"].IsZero() {
		t.Error("temporary record should snapshot its expiry")
	}

	// Restore into a fresh state, including an already-expired record that
	// must be dropped on the way in.
	snap["stale"] = time.Now().Add(-time.Minute)
	restored := New()
	restored.Restore(snap, true)

	if !restored.IsGloballyMuted() {
		t.Error("global flag should be restored")
	}
	if !restored.IsUserMuted("temp") || !restored.IsUserMuted("perm") {
		t.Error("live records should be restored")
	}
	if restored.IsUserMuted("stale") {
		t.Error("expired record must not be restored")
	}
	if restored.Len() != 2 {
		t.Errorf("Len = %d, want 2", restored.Len())
	}
}

// TestConcurrentAccess exercises the mute table from many goroutines at once;
// run with -race.
func TestConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n))
			for j := 0; j < 200; j++ {
				s.Mute(id, time.Millisecond)
				s.IsUserMuted(id)
				s.Sweep()
				s.Unmute(id)
				s.SetGlobalMute(j%2 == 0)
				s.IsGloballyMuted()
			}
		}(i)
	}
	wg.Wait()
}
