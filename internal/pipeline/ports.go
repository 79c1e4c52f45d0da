package pipeline

import "context"

// Source lists and fetches ticket data and downloads call audio.
type Source interface {
	FetchTicket(ctx context.Context, ticketID string) (*Ticket, error)
	ListRecordings(ctx context.Context, ticketID string) ([]Recording, error)
	Download(ctx context.Context, rec Recording) ([]byte, error)
}

// Transcriber converts call audio to text. The filename hints at the audio
// format for the remote model.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Summarizer produces summary bodies for one or more transcripts. For
// multiple calls it returns one body per record, in the same order; the
// orchestrator composes the final document around them.
type Summarizer interface {
	Summarize(ctx context.Context, ticket *Ticket, transcript string) (string, error)
	SummarizeMany(ctx context.Context, ticket *Ticket, records []TranscriptRecord) ([]string, error)
}

// Sink appends a private note to a ticket. Must report NotMutable for closed
// tickets distinctly from transient failures.
type Sink interface {
	AppendPrivateNote(ctx context.Context, ticketID, body string) error
}

// ConfirmClosedFunc is asked whether to proceed when a closed ticket is
// encountered while posting was requested. The orchestrator performs no
// console I/O itself; the CLI (or any scripted driver) supplies this.
type ConfirmClosedFunc func(t *Ticket) bool

// Progress receives user-facing events as a ticket moves through the
// pipeline. All methods are optional courtesies; the orchestrator's behavior
// does not depend on them.
type Progress interface {
	TicketStarted(ticketID string)
	TicketFetched(t *Ticket)
	NoRecordings(ticketID string)
	RecordingsFound(n int)
	RecordingStarted(idx, total int, rec Recording)
	AudioReady(rec Recording, cached bool)
	TranscriptReady(rec Recording, cached bool)
	RecordingFailed(rec Recording, err error)
	Summarizing(n int, cached bool)
	SummarySaved(path, preview string)
	ConsoleSummary(body string)
	Posting(ticketID string)
	Posted(ticketID string)
	PostSkipped(reason string)
	TicketDone(res TicketResult)
}

// noProgress is used when no Progress is wired.
type noProgress struct{}

func (noProgress) TicketStarted(string)                  {}
func (noProgress) TicketFetched(*Ticket)                 {}
func (noProgress) NoRecordings(string)                   {}
func (noProgress) RecordingsFound(int)                   {}
func (noProgress) RecordingStarted(int, int, Recording)  {}
func (noProgress) AudioReady(Recording, bool)            {}
func (noProgress) TranscriptReady(Recording, bool)       {}
func (noProgress) RecordingFailed(Recording, error)      {}
func (noProgress) Summarizing(int, bool)                 {}
func (noProgress) SummarySaved(string, string)           {}
func (noProgress) ConsoleSummary(string)                 {}
func (noProgress) Posting(string)                        {}
func (noProgress) Posted(string)                         {}
func (noProgress) PostSkipped(string)                    {}
func (noProgress) TicketDone(TicketResult)               {}
