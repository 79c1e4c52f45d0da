package pipeline

import "time"

// Ticket is the parent item recordings and the final summary attach to.
// Fetched once at the start of processing; only the Sink mutates it, by
// appending the summary note.
type Ticket struct {
	ID          string
	Subject     string
	Description string
	Status      string
	Requester   string
	Assignee    string
}

// Closed reports whether the ticket no longer accepts comments.
func (t *Ticket) Closed() bool {
	return t.Status == "closed"
}

// Recording is one voice call attached to a ticket. Immutable once listed.
type Recording struct {
	CallID    string
	URL       string
	From      string
	To        string
	Duration  int // seconds
	StartedAt time.Time
}

// TranscriptRecord pairs a recording with its transcript text. Built fresh
// each run; only the flat transcript artifact is persisted.
type TranscriptRecord struct {
	Recording  Recording
	Transcript string
}

// TicketStatus is the terminal outcome of processing one ticket.
type TicketStatus string

const (
	StatusCompleted     TicketStatus = "completed"
	StatusNoRecordings  TicketStatus = "no_recordings"
	StatusSkippedClosed TicketStatus = "skipped_closed"
	StatusFailed        TicketStatus = "failed"
)

// TicketResult records the outcome of one ticket.
type TicketResult struct {
	TicketID            string
	Status              TicketStatus
	RecordingsProcessed int
	RecordingErrors     int
	Err                 error
	Elapsed             time.Duration
}

// Reason returns the human-readable failure reason, or "" if the ticket did
// not fail.
func (r TicketResult) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// BatchResult aggregates outcomes across a run. Built incrementally by the
// orchestrator; read-only once the run completes.
type BatchResult struct {
	Results []TicketResult
	Elapsed time.Duration
}

// Attempted returns the number of tickets processed.
func (b *BatchResult) Attempted() int {
	return len(b.Results)
}

// Succeeded returns the number of tickets that completed fully.
func (b *BatchResult) Succeeded() int {
	n := 0
	for _, r := range b.Results {
		if r.Status == StatusCompleted {
			n++
		}
	}
	return n
}

// RecordingsProcessed returns the total recordings transcribed or served
// from cache across all tickets.
func (b *BatchResult) RecordingsProcessed() int {
	n := 0
	for _, r := range b.Results {
		n += r.RecordingsProcessed
	}
	return n
}

// TotalErrors returns per-recording errors plus failed tickets.
func (b *BatchResult) TotalErrors() int {
	n := 0
	for _, r := range b.Results {
		n += r.RecordingErrors
		if r.Status == StatusFailed {
			n++
		}
	}
	return n
}

// Failed returns the results for tickets that ended in failure.
func (b *BatchResult) Failed() []TicketResult {
	var failed []TicketResult
	for _, r := range b.Results {
		if r.Status == StatusFailed {
			failed = append(failed, r)
		}
	}
	return failed
}

// HasFailures reports whether any ticket failed; drives the process exit
// status.
func (b *BatchResult) HasFailures() bool {
	return len(b.Failed()) > 0
}
