// Package store persists pipeline artifacts as flat files. The basename of
// each artifact is derived deterministically from the ticket and call ids, and
// the presence of a file is the sole record of completed work — there is no
// manifest. Concurrent runs against the same directory are unsupported.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotFound is returned by Read when the artifact does not exist.
var ErrNotFound = errors.New("artifact not found")

// Kind identifies the type of artifact stored for a ticket.
type Kind string

const (
	KindAudio      Kind = "audio"
	KindTranscript Kind = "transcript"
	KindSummary    Kind = "summary"
)

// Key identifies one artifact. RecordingID is empty for the combined summary,
// which is keyed by ticket alone.
type Key struct {
	TicketID    string
	RecordingID string
	Kind        Kind
}

// AudioKey returns the key for a recording's downloaded audio.
func AudioKey(ticketID, recordingID string) Key {
	return Key{TicketID: ticketID, RecordingID: recordingID, Kind: KindAudio}
}

// TranscriptKey returns the key for a recording's transcript.
func TranscriptKey(ticketID, recordingID string) Key {
	return Key{TicketID: ticketID, RecordingID: recordingID, Kind: KindTranscript}
}

// SummaryKey returns the key for a ticket's combined summary.
func SummaryKey(ticketID string) Key {
	return Key{TicketID: ticketID, Kind: KindSummary}
}

// Basename returns the artifact file name. Recording ids are prefixed with
// "item" so the unprefixed "combined_summary" literal can never collide with
// a recording id.
func (k Key) Basename() string {
	switch k.Kind {
	case KindAudio:
		return fmt.Sprintf("parent%s_item%s.mp3", k.TicketID, k.RecordingID)
	case KindTranscript:
		return fmt.Sprintf("parent%s_item%s.txt", k.TicketID, k.RecordingID)
	case KindSummary:
		return fmt.Sprintf("parent%s_combined_summary.txt", k.TicketID)
	}
	return ""
}

// Store reads and writes artifacts under a single directory.
type Store struct {
	dir string
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifacts directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the artifacts directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the full path for a key.
func (s *Store) Path(k Key) string {
	return filepath.Join(s.dir, k.Basename())
}

// Exists reports whether the artifact is present on disk.
func (s *Store) Exists(k Key) bool {
	_, err := os.Stat(s.Path(k))
	return err == nil
}

// Read returns the artifact contents, or ErrNotFound if absent.
func (s *Store) Read(k Key) ([]byte, error) {
	data, err := os.ReadFile(s.Path(k))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Write persists an artifact atomically: content goes to a temp file in the
// same directory first, then is renamed into place. A reader never observes
// a truncated artifact.
func (s *Store) Write(k Key, content []byte) error {
	tmp, err := os.CreateTemp(s.dir, k.Basename()+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp artifact: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp artifact: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting artifact permissions: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path(k)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming artifact into place: %w", err)
	}
	return nil
}
