package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBasename(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{"audio", AudioKey("12345", "abc123"), "parent12345_itemabc123.mp3"},
		{"transcript", TranscriptKey("12345", "abc123"), "parent12345_itemabc123.txt"},
		{"second recording audio", AudioKey("12345", "def456"), "parent12345_itemdef456.mp3"},
		{"second recording transcript", TranscriptKey("12345", "def456"), "parent12345_itemdef456.txt"},
		{"summary", SummaryKey("12345"), "parent12345_combined_summary.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.Basename(); got != tt.want {
				t.Errorf("Basename() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSummaryKeyCannotCollideWithRecording(t *testing.T) {
	// A recording whose id is literally "combined_summary" still gets the
	// "item" prefix, so it maps to a different basename than the summary.
	rec := TranscriptKey("7", "combined_summary")
	sum := SummaryKey("7")
	if rec.Basename() == sum.Basename() {
		t.Errorf("recording basename %q collides with summary basename", rec.Basename())
	}
}

func TestWriteReadExists(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	key := TranscriptKey("100", "r1")
	if s.Exists(key) {
		t.Error("Exists() = true before write")
	}

	if err := s.Write(key, []byte("hello transcript")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !s.Exists(key) {
		t.Error("Exists() = false after write")
	}

	data, err := s.Read(key)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(data) != "hello transcript" {
		t.Errorf("Read() = %q, want %q", data, "hello transcript")
	}
}

func TestWriteOverwrites(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	key := SummaryKey("5")
	if err := s.Write(key, []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(key, []byte("second")); err != nil {
		t.Fatal(err)
	}

	data, err := s.Read(key)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("Read() after overwrite = %q, want %q", data, "second")
	}
}

func TestReadNotFound(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.Read(AudioKey("1", "missing"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Read() error = %v, want ErrNotFound", err)
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Write(AudioKey("9", "x"), []byte("audio-bytes")); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 file, got %d", len(entries))
	}
}

func TestNewCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "artifacts")
	if _, err := New(dir); err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("directory not created: %v", err)
	}
}
