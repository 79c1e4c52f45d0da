// Package pipeline drives a ticket's voice recordings through three phases:
// download and transcribe each recording, merge the transcripts into one
// summary, and post the summary back to the ticket. Artifact presence on
// disk is the only record of completed work, so re-running a ticket is cheap
// and side-effect-free for anything already done.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/robbybarnes/zendesk-voice-summary/internal/retry"
	"github.com/robbybarnes/zendesk-voice-summary/internal/store"
)

// Options selects per-run behavior.
type Options struct {
	// Post controls whether summaries are appended to tickets.
	Post bool
	// SkipExisting reuses transcript artifacts already on disk instead of
	// re-transcribing.
	SkipExisting bool
}

// Orchestrator owns the cross-phase state for the ticket being processed and
// the batch aggregation across tickets. Tickets and recordings are processed
// one at a time; the remote APIs are rate-limited and the tool is run
// manually, so parallelism is an explicit non-goal.
type Orchestrator struct {
	source      Source
	transcriber Transcriber
	summarizer  Summarizer
	sink        Sink
	store       *store.Store

	confirmClosed ConfirmClosedFunc
	progress      Progress
	retryCfg      retry.Config
	loc           *time.Location
	log           zerolog.Logger
}

// Deps carries the orchestrator's collaborators.
type Deps struct {
	Source      Source
	Transcriber Transcriber
	Summarizer  Summarizer
	Sink        Sink
	Store       *store.Store

	// ConfirmClosed decides whether to proceed with a closed ticket. When
	// nil, closed tickets are skipped.
	ConfirmClosed ConfirmClosedFunc
	// Progress receives user-facing events; may be nil.
	Progress Progress
	// Retry applies to every remote call (download, transcribe, summarize,
	// post).
	Retry retry.Config
	// Location is the zone for human-readable timestamps in summaries.
	Location *time.Location
	Log      zerolog.Logger
}

// New creates an Orchestrator.
func New(d Deps) *Orchestrator {
	o := &Orchestrator{
		source:        d.Source,
		transcriber:   d.Transcriber,
		summarizer:    d.Summarizer,
		sink:          d.Sink,
		store:         d.Store,
		confirmClosed: d.ConfirmClosed,
		progress:      d.Progress,
		retryCfg:      d.Retry,
		loc:           d.Location,
		log:           d.Log,
	}
	if o.progress == nil {
		o.progress = noProgress{}
	}
	if o.loc == nil {
		o.loc = time.UTC
	}
	return o
}

// Run processes each ticket independently and aggregates a BatchResult. One
// ticket's failure never prevents the next from being attempted; the only
// early exit is context cancellation, which stops before the next ticket.
func (o *Orchestrator) Run(ctx context.Context, ticketIDs []string, opts Options) *BatchResult {
	start := time.Now()
	batch := &BatchResult{}

	for _, id := range ticketIDs {
		if ctx.Err() != nil {
			break
		}
		res := o.ProcessTicket(ctx, id, opts)
		batch.Results = append(batch.Results, res)
	}

	batch.Elapsed = time.Since(start)
	return batch
}

// ProcessTicket drives one ticket through all three phases. All failures are
// caught here and recorded in the result; nothing escapes to the batch loop.
func (o *Orchestrator) ProcessTicket(ctx context.Context, ticketID string, opts Options) TicketResult {
	start := time.Now()
	res := TicketResult{TicketID: ticketID}
	o.progress.TicketStarted(ticketID)

	fail := func(err error) TicketResult {
		res.Status = StatusFailed
		res.Err = err
		res.Elapsed = time.Since(start)
		o.log.Error().Str("ticket", ticketID).Err(err).Msg("ticket failed")
		o.progress.TicketDone(res)
		return res
	}

	// Fetching
	ticket, err := o.fetchTicket(ctx, ticketID)
	if err != nil {
		return fail(err)
	}
	o.progress.TicketFetched(ticket)

	// Listing
	recordings, err := o.listRecordings(ctx, ticketID)
	if err != nil {
		return fail(err)
	}
	if len(recordings) == 0 {
		res.Status = StatusNoRecordings
		res.Elapsed = time.Since(start)
		o.progress.NoRecordings(ticketID)
		o.progress.TicketDone(res)
		return res
	}
	o.progress.RecordingsFound(len(recordings))

	// Closed-ticket check. The sink is known to reject closed tickets, so
	// never attempt a silent post: ask the caller, and on proceed route the
	// summary to console output instead of the sink.
	post := opts.Post
	closedOverride := false
	if ticket.Closed() && post {
		if o.confirmClosed == nil || !o.confirmClosed(ticket) {
			res.Status = StatusSkippedClosed
			res.Elapsed = time.Since(start)
			o.progress.TicketDone(res)
			return res
		}
		post = false
		closedOverride = true
	}

	// Phase 1: download and transcribe, one recording at a time in listing
	// order. A failed recording is recorded and skipped; its siblings still
	// flow into phase 2.
	var transcripts []TranscriptRecord
	fresh := 0
	for i, rec := range recordings {
		o.progress.RecordingStarted(i+1, len(recordings), rec)

		text, cached, err := o.processRecording(ctx, ticketID, rec, opts.SkipExisting)
		if err != nil {
			if IsCode(err, CodePersistence) {
				return fail(err)
			}
			res.RecordingErrors++
			o.log.Warn().Str("ticket", ticketID).Str("call", rec.CallID).Err(err).Msg("recording failed")
			o.progress.RecordingFailed(rec, err)
			continue
		}
		if !cached {
			fresh++
		}
		res.RecordingsProcessed++
		transcripts = append(transcripts, TranscriptRecord{Recording: rec, Transcript: text})
	}

	// Phase 2: summarize. Durability precedes side effects: the summary is
	// persisted whether or not posting succeeds.
	summary, err := o.summarize(ctx, ticket, transcripts, fresh, opts.SkipExisting)
	if err != nil {
		return fail(err)
	}

	// Phase 3: post.
	switch {
	case closedOverride:
		o.progress.ConsoleSummary(summary)
		o.progress.PostSkipped("ticket is closed; summary shown above")
	case !post:
		o.progress.PostSkipped("posting disabled")
	default:
		o.progress.Posting(ticketID)
		err := retry.DoFunc(ctx, o.retryWarn("append note"), func() error {
			return o.sink.AppendPrivateNote(ctx, ticketID, summary)
		})
		if err != nil {
			// The transcripts and summary are already on disk; only the
			// post itself failed.
			o.progress.ConsoleSummary(summary)
			return fail(fmt.Errorf("posting summary: %w", err))
		}
		o.progress.Posted(ticketID)
	}

	res.Status = StatusCompleted
	res.Elapsed = time.Since(start)
	o.progress.TicketDone(res)
	return res
}

func (o *Orchestrator) fetchTicket(ctx context.Context, ticketID string) (*Ticket, error) {
	return retry.Do(ctx, o.retryWarn("fetch ticket"), func() (*Ticket, error) {
		return o.source.FetchTicket(ctx, ticketID)
	})
}

func (o *Orchestrator) listRecordings(ctx context.Context, ticketID string) ([]Recording, error) {
	return retry.Do(ctx, o.retryWarn("list recordings"), func() ([]Recording, error) {
		return o.source.ListRecordings(ctx, ticketID)
	})
}

// processRecording ensures the audio and transcript artifacts exist for one
// recording, downloading and transcribing as needed. Returns the transcript
// text and whether it came from the artifact cache.
func (o *Orchestrator) processRecording(ctx context.Context, ticketID string, rec Recording, skipExisting bool) (string, bool, error) {
	audioKey := store.AudioKey(ticketID, rec.CallID)
	transcriptKey := store.TranscriptKey(ticketID, rec.CallID)

	// The audio artifact is restored first, even when the transcript is
	// cached: a deleted mp3 must come back on the next run.
	var audio []byte
	if o.store.Exists(audioKey) {
		o.progress.AudioReady(rec, true)
	} else {
		data, err := retry.Do(ctx, o.retryWarn("download"), func() ([]byte, error) {
			return o.source.Download(ctx, rec)
		})
		if err != nil {
			return "", false, fmt.Errorf("downloading call %s: %w", rec.CallID, err)
		}
		if err := o.store.Write(audioKey, data); err != nil {
			return "", false, NewError(CodePersistence, "writing audio %s", audioKey.Basename()).WithCause(err)
		}
		audio = data
		o.progress.AudioReady(rec, false)
	}

	if skipExisting && o.store.Exists(transcriptKey) {
		data, err := o.store.Read(transcriptKey)
		if err != nil {
			return "", false, NewError(CodePersistence, "reading cached transcript %s", transcriptKey.Basename()).WithCause(err)
		}
		o.progress.TranscriptReady(rec, true)
		return string(data), true, nil
	}

	if audio == nil {
		data, err := o.store.Read(audioKey)
		if err != nil {
			return "", false, NewError(CodePersistence, "reading cached audio %s", audioKey.Basename()).WithCause(err)
		}
		audio = data
	}

	text, err := retry.Do(ctx, o.retryWarn("transcribe"), func() (string, error) {
		return o.transcriber.Transcribe(ctx, audio, audioKey.Basename())
	})
	if err != nil {
		return "", false, fmt.Errorf("transcribing call %s: %w", rec.CallID, err)
	}
	if err := o.store.Write(transcriptKey, []byte(text)); err != nil {
		return "", false, NewError(CodePersistence, "writing transcript %s", transcriptKey.Basename()).WithCause(err)
	}
	o.progress.TranscriptReady(rec, false)
	return text, false, nil
}

// summarize merges the transcripts into one document and persists it. When
// every transcript came from cache and the summary artifact already exists,
// the persisted summary is reused without another model call.
func (o *Orchestrator) summarize(ctx context.Context, ticket *Ticket, transcripts []TranscriptRecord, fresh int, skipExisting bool) (string, error) {
	if len(transcripts) == 0 {
		return "", NewError(CodeNoTranscripts, "no transcripts were successfully processed")
	}

	summaryKey := store.SummaryKey(ticket.ID)

	if skipExisting && fresh == 0 && o.store.Exists(summaryKey) {
		data, err := o.store.Read(summaryKey)
		if err != nil {
			return "", NewError(CodePersistence, "reading cached summary %s", summaryKey.Basename()).WithCause(err)
		}
		o.progress.Summarizing(len(transcripts), true)
		o.progress.SummarySaved(o.store.Path(summaryKey), preview(string(data)))
		return string(data), nil
	}

	// Ascending start time; listing order breaks ties (stable sort, no
	// secondary key).
	sort.SliceStable(transcripts, func(i, j int) bool {
		return transcripts[i].Recording.StartedAt.Before(transcripts[j].Recording.StartedAt)
	})

	o.progress.Summarizing(len(transcripts), false)
	copts := composeOpts{loc: o.loc}

	var summary string
	if len(transcripts) == 1 {
		body, err := retry.Do(ctx, o.retryWarn("summarize"), func() (string, error) {
			return o.summarizer.Summarize(ctx, ticket, transcripts[0].Transcript)
		})
		if err != nil {
			return "", fmt.Errorf("summarizing call %s: %w", transcripts[0].Recording.CallID, err)
		}
		summary = composeSingle(transcripts[0].Recording, body, copts)
	} else {
		bodies, err := retry.Do(ctx, o.retryWarn("summarize"), func() ([]string, error) {
			return o.summarizer.SummarizeMany(ctx, ticket, transcripts)
		})
		if err != nil {
			return "", fmt.Errorf("summarizing %d calls: %w", len(transcripts), err)
		}
		summary = composeCombined(transcripts, bodies, copts)
	}

	if err := o.store.Write(summaryKey, []byte(summary)); err != nil {
		return "", NewError(CodePersistence, "writing summary %s", summaryKey.Basename()).WithCause(err)
	}
	o.progress.SummarySaved(o.store.Path(summaryKey), preview(summary))
	return summary, nil
}

func (o *Orchestrator) retryWarn(op string) retry.Config {
	cfg := o.retryCfg
	cfg.OnRetry = func(attempt int, err error) {
		o.log.Warn().Str("op", op).Int("attempt", attempt).Err(err).
			Dur("delay", cfg.Delay).Msg("attempt failed, retrying")
	}
	return cfg
}

const previewLines = 15

func preview(summary string) string {
	lines := strings.Split(summary, "\n")
	if len(lines) <= previewLines {
		return summary
	}
	return strings.Join(lines[:previewLines], "\n") + "\n..."
}
