package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// Metadata is what the player shows to identify a track.
type Metadata struct {
	Title    string
	Artist   string
	Album    string
	Genre    string
	Format   string
	HasCover bool
}

// ReadMetadata reads the tags of the file at path. The title falls back to
// the file name, so the returned Metadata is usable even with an error.
func ReadMetadata(path string) (Metadata, error) {
	md := Metadata{Title: baseName(path)}

	f, err := os.Open(path)
	if err != nil {
		return md, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return md, fmt.Errorf("read tags %s: %w", path, err)
	}

	if t := strings.TrimSpace(m.Title()); t != "" {
		md.Title = t
	}
	md.Artist = strings.TrimSpace(m.Artist())
	if md.Artist == "" {
		md.Artist = strings.TrimSpace(m.AlbumArtist())
	}
	md.Album = strings.TrimSpace(m.Album())
	md.Genre = strings.TrimSpace(m.Genre())
	md.Format = string(m.Format())
	md.HasCover = m.Picture() != nil

	return md, nil
}

// ReadMetadataAsync reads metadata on its own goroutine and delivers the
// result on the returned channel, unless ctx is done first.
func ReadMetadataAsync(ctx context.Context, path string) <-chan Metadata {
	ch := make(chan Metadata, 1)
	go func() {
		defer close(ch)
		md, _ := ReadMetadata(path)
		if ctx.Err() == nil {
			ch <- md
		}
	}()
	return ch
}

// DisplayName returns "Artist - Title", or just the title without an
// artist.
func (m Metadata) DisplayName() string {
	if m.Artist == "" || m.Artist == "Unknown" {
		return m.Title
	}
	return m.Artist + " - " + m.Title
}

func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
