// Package library indexes playable audio files and reads their tags.
package library

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dewi-tim/looptui/internal/audio"
)

// Track represents a track in the library with its metadata.
type Track struct {
	Path string
	Metadata
}

// Album groups tracks that share an album name.
type Album struct {
	Name   string
	Artist string
	Tracks []Track
}

// Artist groups albums.
type Artist struct {
	Name   string
	Albums map[string]*Album
}

// Library represents an indexed directory of audio files.
type Library struct {
	mu      sync.RWMutex
	root    string
	artists map[string]*Artist
	tracks  []Track // Flat list for quick access
}

// New creates a new library rooted at the given directory.
func New(root string) *Library {
	return &Library{
		root:    root,
		artists: make(map[string]*Artist),
		tracks:  make([]Track, 0),
	}
}

// Root returns the library root directory.
func (l *Library) Root() string {
	return l.root
}

// Scan walks the root directory and indexes every playable file.
// Returns the number of tracks found.
func (l *Library) Scan() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.artists = make(map[string]*Artist)
	l.tracks = make([]Track, 0)

	err := filepath.Walk(l.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}

		if info.IsDir() {
			if path != l.root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(info.Name(), ".") || !audio.Supported(info.Name()) {
			return nil
		}

		// Untagged files still play; they fall back to names from the path.
		md, _ := ReadMetadata(path)
		if md.Album == "" {
			md.Album = filepath.Base(filepath.Dir(path))
		}
		if md.Artist == "" {
			md.Artist = "Unknown"
		}

		track := Track{Path: path, Metadata: md}
		l.tracks = append(l.tracks, track)
		l.addTrack(track)

		return nil
	})

	if err != nil {
		return 0, err
	}

	for _, artist := range l.artists {
		for _, album := range artist.Albums {
			sort.Slice(album.Tracks, func(i, j int) bool {
				return album.Tracks[i].Title < album.Tracks[j].Title
			})
		}
	}

	return len(l.tracks), nil
}

// addTrack adds a track to the library hierarchy.
func (l *Library) addTrack(track Track) {
	artist, ok := l.artists[track.Artist]
	if !ok {
		artist = &Artist{
			Name:   track.Artist,
			Albums: make(map[string]*Album),
		}
		l.artists[track.Artist] = artist
	}

	album, ok := artist.Albums[track.Album]
	if !ok {
		album = &Album{
			Name:   track.Album,
			Artist: track.Artist,
		}
		artist.Albums[track.Album] = album
	}

	album.Tracks = append(album.Tracks, track)
}

// Artists returns a sorted list of artist names.
func (l *Library) Artists() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.artists))
	for name := range l.artists {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Albums returns a sorted list of album names for an artist.
func (l *Library) Albums(artistName string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	artist, ok := l.artists[artistName]
	if !ok {
		return nil
	}

	names := make([]string, 0, len(artist.Albums))
	for name := range artist.Albums {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tracks returns the sorted tracks of an album.
func (l *Library) Tracks(artistName, albumName string) []Track {
	l.mu.RLock()
	defer l.mu.RUnlock()

	artist, ok := l.artists[artistName]
	if !ok {
		return nil
	}
	album, ok := artist.Albums[albumName]
	if !ok {
		return nil
	}
	out := make([]Track, len(album.Tracks))
	copy(out, album.Tracks)
	return out
}

// AllTracks returns all tracks in the library.
func (l *Library) AllTracks() []Track {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]Track, len(l.tracks))
	copy(result, l.tracks)
	return result
}

// TrackCount returns the total number of tracks.
func (l *Library) TrackCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.tracks)
}
