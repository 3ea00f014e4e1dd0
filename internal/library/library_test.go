package library

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// id3Frame encodes an ID3v2.3 text frame.
func id3Frame(id, text string) []byte {
	var b bytes.Buffer
	b.WriteString(id)
	binary.Write(&b, binary.BigEndian, uint32(len(text)+1))
	b.Write([]byte{0, 0}) // flags
	b.WriteByte(0)        // ISO-8859-1
	b.WriteString(text)
	return b.Bytes()
}

// id3File returns an ID3v2.3 tag followed by junk audio bytes.
func id3File(title, artist, album string) []byte {
	var frames bytes.Buffer
	frames.Write(id3Frame("TIT2", title))
	frames.Write(id3Frame("TPE1", artist))
	frames.Write(id3Frame("TALB", album))

	size := frames.Len()
	var b bytes.Buffer
	b.WriteString("ID3")
	b.Write([]byte{3, 0, 0})
	// Syncsafe size.
	b.Write([]byte{
		byte(size >> 21 & 0x7f),
		byte(size >> 14 & 0x7f),
		byte(size >> 7 & 0x7f),
		byte(size & 0x7f),
	})
	b.Write(frames.Bytes())
	b.Write(make([]byte, 256))
	return b.Bytes()
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReadMetadata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.mp3")
	writeFile(t, path, id3File("Loop Song", "Tester", "Practice"))

	md, err := ReadMetadata(path)
	if err != nil {
		t.Fatal(err)
	}
	if md.Title != "Loop Song" || md.Artist != "Tester" || md.Album != "Practice" {
		t.Errorf("metadata = %+v", md)
	}
	if md.HasCover {
		t.Error("HasCover = true without a picture frame")
	}
	if got := md.DisplayName(); got != "Tester - Loop Song" {
		t.Errorf("DisplayName = %q", got)
	}
}

func TestReadMetadataFallsBackToFileName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "untagged take.wav")
	writeFile(t, path, []byte("not really audio"))

	md, err := ReadMetadata(path)
	if err == nil {
		t.Error("expected an error for a file without tags")
	}
	if md.Title != "untagged take" {
		t.Errorf("Title = %q", md.Title)
	}
	if got := md.DisplayName(); got != "untagged take" {
		t.Errorf("DisplayName = %q", got)
	}

	if _, err := ReadMetadata(filepath.Join(dir, "missing.mp3")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestReadMetadataAsync(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.mp3")
	writeFile(t, path, id3File("Async", "Tester", "Practice"))

	md, ok := <-ReadMetadataAsync(context.Background(), path)
	if !ok || md.Title != "Async" {
		t.Errorf("async metadata = %+v, %v", md, ok)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := <-ReadMetadataAsync(ctx, path); ok {
		t.Error("canceled read delivered a result")
	}
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.mp3"), id3File("Beta", "Band", "First"))
	writeFile(t, filepath.Join(root, "a.mp3"), id3File("Alpha", "Band", "First"))
	writeFile(t, filepath.Join(root, "demos", "idea.wav"), []byte("untagged"))
	writeFile(t, filepath.Join(root, "notes.txt"), []byte("setlist"))
	writeFile(t, filepath.Join(root, ".cache", "hidden.mp3"), id3File("Hidden", "Band", "First"))
	writeFile(t, filepath.Join(root, ".dotfile.mp3"), []byte("x"))

	lib := New(root)
	n, err := lib.Scan()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 || lib.TrackCount() != 3 {
		t.Fatalf("found %d tracks, want 3", n)
	}

	if got := lib.Artists(); len(got) != 2 || got[0] != "Band" || got[1] != "Unknown" {
		t.Errorf("Artists = %v", got)
	}
	if got := lib.Albums("Unknown"); len(got) != 1 || got[0] != "demos" {
		t.Errorf("Albums(Unknown) = %v", got)
	}

	tracks := lib.Tracks("Band", "First")
	if len(tracks) != 2 || tracks[0].Title != "Alpha" || tracks[1].Title != "Beta" {
		t.Errorf("Tracks(Band, First) = %+v", tracks)
	}
	if lib.Tracks("Nobody", "First") != nil {
		t.Error("Tracks for a missing artist is not nil")
	}

	all := lib.AllTracks()
	all[0].Title = "changed"
	if lib.AllTracks()[0].Title == "changed" {
		t.Error("AllTracks returned shared slice")
	}
}
