package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func paths(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

func TestLoadAddsToPlaylist(t *testing.T) {
	s := newSession(t, nil)
	ctx := context.Background()

	for _, p := range []string{"a.wav", "b.wav", "a.wav"} {
		if err := s.Load(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	got := s.Playlist()
	if len(got) != 2 || got[0].Path != "a.wav" || got[1].Path != "b.wav" {
		t.Fatalf("playlist = %v", paths(got))
	}
	if s.Current() != 0 {
		t.Errorf("current = %d, want 0 after reopening a.wav", s.Current())
	}

	if err := s.Load(ctx, "missing.wav"); err == nil {
		t.Fatal("loading a missing file succeeded")
	}
	if n := len(s.Playlist()); n != 2 {
		t.Errorf("failed load added an entry: %d entries", n)
	}

	got[0].Path = "changed"
	if s.Playlist()[0].Path != "a.wav" {
		t.Error("Playlist returned shared storage")
	}
}

func TestPlaylistTitleFromMetadata(t *testing.T) {
	s := newSession(t, nil)
	if err := s.Load(context.Background(), "long.wav"); err != nil {
		t.Fatal(err)
	}
	if got := s.Playlist()[0].Title; got != "long" && got != "tagged long.wav" {
		t.Fatalf("title = %q", got)
	}
	eventually(t, "tagged title", func() bool {
		return s.Playlist()[0].Title == "tagged long.wav"
	})
}

func TestNextAndPrevious(t *testing.T) {
	s := newSession(t, nil)
	ctx := context.Background()
	for _, p := range []string{"a.wav", "b.wav", "long.wav"} {
		if err := s.Load(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.Next(ctx); !errors.Is(err, ErrNoEntry) {
		t.Errorf("Next at end err = %v", err)
	}
	if err := s.Previous(ctx); err != nil {
		t.Fatal(err)
	}
	if s.Path() != "b.wav" || s.Current() != 1 {
		t.Errorf("after Previous: %s at %d", s.Path(), s.Current())
	}
	if err := s.LoadEntry(ctx, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.Previous(ctx); !errors.Is(err, ErrNoEntry) {
		t.Errorf("Previous at start err = %v", err)
	}
	if err := s.Next(ctx); err != nil || s.Path() != "b.wav" {
		t.Errorf("Next -> %s, %v", s.Path(), err)
	}
	if err := s.LoadEntry(ctx, 9); !errors.Is(err, ErrNoEntry) {
		t.Errorf("LoadEntry(9) err = %v", err)
	}
}

func TestRemoveEntry(t *testing.T) {
	s := newSession(t, nil)
	ctx := context.Background()
	for _, p := range []string{"a.wav", "b.wav", "long.wav"} {
		if err := s.Load(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.LoadEntry(ctx, 1); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		remove  int
		want    []string
		current int
	}{
		{0, []string{"b.wav", "long.wav"}, 0},
		{1, []string{"b.wav"}, 0},
		{0, []string{}, -1},
	}
	for _, tt := range tests {
		if err := s.RemoveEntry(tt.remove); err != nil {
			t.Fatal(err)
		}
		got := paths(s.Playlist())
		if len(got) != len(tt.want) || (len(got) > 0 && got[0] != tt.want[0]) {
			t.Errorf("after remove %d: %v, want %v", tt.remove, got, tt.want)
		}
		if s.Current() != tt.current {
			t.Errorf("after remove %d: current = %d, want %d", tt.remove, s.Current(), tt.current)
		}
	}

	if err := s.RemoveEntry(0); !errors.Is(err, ErrNoEntry) {
		t.Errorf("remove from empty err = %v", err)
	}
	if s.Path() != "b.wav" || !s.State().Loaded() {
		t.Error("removing the current entry unloaded the track")
	}

	if err := s.Load(ctx, "a.wav"); err != nil {
		t.Fatal(err)
	}
	s.ClearPlaylist()
	if len(s.Playlist()) != 0 || s.Current() != -1 {
		t.Errorf("after clear: %v at %d", paths(s.Playlist()), s.Current())
	}
}

func TestOnEnded(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := newSessionWithClock(t, nil, clock)

	ended := make(chan struct{}, 1)
	s.OnEnded(func() { ended <- struct{}{} })

	if err := s.Load(context.Background(), "short.wav"); err != nil {
		t.Fatal(err)
	}
	if err := s.Seek(4.99); err != nil {
		t.Fatal(err)
	}
	if err := s.Play(); err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Second)

	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("end of track not reported")
	}
}
