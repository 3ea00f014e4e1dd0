package session

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
)

// Entry is a track opened during the session. The playlist lives only as
// long as the session.
type Entry struct {
	Path  string
	Title string
}

func baseTitle(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// enqueueLocked returns the index of path in the playlist, appending it
// first if it is new.
func (s *Session) enqueueLocked(path string) int {
	if i := slices.IndexFunc(s.playlist, func(e Entry) bool { return e.Path == path }); i >= 0 {
		return i
	}
	s.playlist = append(s.playlist, Entry{Path: path, Title: baseTitle(path)})
	return len(s.playlist) - 1
}

// Playlist returns a copy of the tracks opened so far.
func (s *Session) Playlist() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.playlist)
}

// Current returns the playlist index of the loaded track, or -1.
func (s *Session) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// LoadEntry loads playlist entry i.
func (s *Session) LoadEntry(ctx context.Context, i int) error {
	s.mu.Lock()
	if i < 0 || i >= len(s.playlist) {
		s.mu.Unlock()
		return ErrNoEntry
	}
	path := s.playlist[i].Path
	s.mu.Unlock()

	return s.Load(ctx, path)
}

// Next loads the entry after the current one.
func (s *Session) Next(ctx context.Context) error {
	return s.LoadEntry(ctx, s.Current()+1)
}

// Previous loads the entry before the current one.
func (s *Session) Previous(ctx context.Context) error {
	cur := s.Current()
	if cur <= 0 {
		return ErrNoEntry
	}
	return s.LoadEntry(ctx, cur-1)
}

// RemoveEntry drops entry i. Removing the current entry keeps the track
// loaded but leaves no current entry.
func (s *Session) RemoveEntry(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.playlist) {
		return ErrNoEntry
	}
	s.playlist = slices.Delete(s.playlist, i, i+1)
	switch {
	case i == s.current:
		s.current = -1
	case i < s.current:
		s.current--
	}
	return nil
}

// ClearPlaylist empties the playlist. The loaded track keeps playing.
func (s *Session) ClearPlaylist() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.playlist = nil
	s.current = -1
}
