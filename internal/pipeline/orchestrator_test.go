package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/robbybarnes/zendesk-voice-summary/internal/retry"
	"github.com/robbybarnes/zendesk-voice-summary/internal/store"
)

// --- fakes ---

type fakeSource struct {
	tickets    map[string]*Ticket
	recordings map[string][]Recording
	audio      map[string][]byte
	downloads  int

	fetchErr    map[string]error
	listErr     map[string]error
	downloadErr map[string]error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		tickets:     map[string]*Ticket{},
		recordings:  map[string][]Recording{},
		audio:       map[string][]byte{},
		fetchErr:    map[string]error{},
		listErr:     map[string]error{},
		downloadErr: map[string]error{},
	}
}

func (s *fakeSource) FetchTicket(_ context.Context, id string) (*Ticket, error) {
	if err := s.fetchErr[id]; err != nil {
		return nil, err
	}
	t, ok := s.tickets[id]
	if !ok {
		return nil, NewError(CodeNotFound, "ticket %s not found", id)
	}
	return t, nil
}

func (s *fakeSource) ListRecordings(_ context.Context, id string) ([]Recording, error) {
	if err := s.listErr[id]; err != nil {
		return nil, err
	}
	return s.recordings[id], nil
}

func (s *fakeSource) Download(_ context.Context, rec Recording) ([]byte, error) {
	s.downloads++
	if err := s.downloadErr[rec.CallID]; err != nil {
		return nil, err
	}
	return s.audio[rec.CallID], nil
}

type fakeTranscriber struct {
	calls int
	fail  map[string]error // keyed by audio content
}

func (t *fakeTranscriber) Transcribe(_ context.Context, audio []byte, _ string) (string, error) {
	t.calls++
	if err := t.fail[string(audio)]; err != nil {
		return "", err
	}
	return "transcript of " + string(audio), nil
}

type fakeSummarizer struct {
	singleCalls int
	manyCalls   int
	err         error
}

func (s *fakeSummarizer) Summarize(_ context.Context, _ *Ticket, transcript string) (string, error) {
	s.singleCalls++
	if s.err != nil {
		return "", s.err
	}
	return "summary of: " + transcript, nil
}

func (s *fakeSummarizer) SummarizeMany(_ context.Context, _ *Ticket, records []TranscriptRecord) ([]string, error) {
	s.manyCalls++
	if s.err != nil {
		return nil, s.err
	}
	bodies := make([]string, len(records))
	for i, r := range records {
		bodies[i] = "summary of: " + r.Transcript
	}
	return bodies, nil
}

type fakeSink struct {
	calls int
	notes map[string]string
	err   error
}

func (s *fakeSink) AppendPrivateNote(_ context.Context, id, body string) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	if s.notes == nil {
		s.notes = map[string]string{}
	}
	s.notes[id] = body
	return nil
}

// --- harness ---

type harness struct {
	source      *fakeSource
	transcriber *fakeTranscriber
	summarizer  *fakeSummarizer
	sink        *fakeSink
	store       *store.Store
	orch        *Orchestrator
}

func newHarness(t *testing.T, confirm ConfirmClosedFunc) *harness {
	t.Helper()
	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	h := &harness{
		source:      newFakeSource(),
		transcriber: &fakeTranscriber{fail: map[string]error{}},
		summarizer:  &fakeSummarizer{},
		sink:        &fakeSink{},
		store:       st,
	}
	h.orch = New(Deps{
		Source:        h.source,
		Transcriber:   h.transcriber,
		Summarizer:    h.summarizer,
		Sink:          h.sink,
		Store:         st,
		ConfirmClosed: confirm,
		Retry:         retry.Config{MaxAttempts: 2, Delay: time.Millisecond},
		Location:      time.UTC,
		Log:           zerolog.Nop(),
	})
	return h
}

func (h *harness) addTicket(id, status string, recs ...Recording) {
	h.source.tickets[id] = &Ticket{ID: id, Subject: "printer on fire", Status: status, Requester: "Pat", Assignee: "Sam"}
	h.source.recordings[id] = recs
	for _, r := range recs {
		h.source.audio[r.CallID] = []byte("audio-" + r.CallID)
	}
}

func rec(callID string, startedAt time.Time, duration int) Recording {
	return Recording{
		CallID:    callID,
		URL:       "https://example.test/recordings/" + callID,
		From:      "+15550001111",
		To:        "+15550002222",
		Duration:  duration,
		StartedAt: startedAt,
	}
}

var (
	t1030 = time.Date(2024, 5, 20, 10, 30, 0, 0, time.UTC)
	t1445 = time.Date(2024, 5, 20, 14, 45, 0, 0, time.UTC)
)

// --- tests ---

func TestProcessTicket_SingleRecording(t *testing.T) {
	h := newHarness(t, nil)
	h.addTicket("12345", "open", rec("abc123", t1030, 923))

	res := h.orch.ProcessTicket(context.Background(), "12345", Options{Post: true})

	if res.Status != StatusCompleted {
		t.Fatalf("Status = %v (err: %v), want completed", res.Status, res.Err)
	}
	if res.RecordingsProcessed != 1 || res.RecordingErrors != 0 {
		t.Errorf("processed/errors = %d/%d, want 1/0", res.RecordingsProcessed, res.RecordingErrors)
	}

	summary := h.sink.notes["12345"]
	if !strings.HasPrefix(summary, "**Call on May 20, 2024 at 10:30 AM UTC**\n\n") {
		t.Errorf("summary missing timestamp header:\n%s", summary)
	}
	if strings.Contains(summary, "---") {
		t.Errorf("single-call summary contains section divider:\n%s", summary)
	}
	if !strings.Contains(summary, "summary of: transcript of audio-abc123") {
		t.Errorf("summary missing body:\n%s", summary)
	}
}

func TestProcessTicket_ArtifactNaming(t *testing.T) {
	h := newHarness(t, nil)
	h.addTicket("12345", "open", rec("abc123", t1030, 923), rec("def456", t1445, 492))

	res := h.orch.ProcessTicket(context.Background(), "12345", Options{Post: true})
	if res.Status != StatusCompleted {
		t.Fatalf("Status = %v (err: %v)", res.Status, res.Err)
	}

	for _, key := range []store.Key{
		store.AudioKey("12345", "abc123"),
		store.TranscriptKey("12345", "abc123"),
		store.AudioKey("12345", "def456"),
		store.TranscriptKey("12345", "def456"),
		store.SummaryKey("12345"),
	} {
		if !h.store.Exists(key) {
			t.Errorf("missing artifact %s", key.Basename())
		}
	}
}

func TestProcessTicket_CombinedSummarySections(t *testing.T) {
	h := newHarness(t, nil)
	// Listed out of chronological order; sections must come out ascending.
	h.addTicket("12345", "open", rec("def456", t1445, 492), rec("abc123", t1030, 923))

	res := h.orch.ProcessTicket(context.Background(), "12345", Options{Post: true})
	if res.Status != StatusCompleted {
		t.Fatalf("Status = %v (err: %v)", res.Status, res.Err)
	}

	summary := h.sink.notes["12345"]

	if n := strings.Count(summary, "## Call "); n != 2 {
		t.Errorf("expected 2 section headers, got %d:\n%s", n, summary)
	}

	first := strings.Index(summary, "## Call 1 - May 20, 2024 at 10:30 AM UTC")
	second := strings.Index(summary, "## Call 2 - May 20, 2024 at 02:45 PM UTC")
	if first == -1 || second == -1 || first > second {
		t.Errorf("sections missing or out of order (first=%d second=%d):\n%s", first, second, summary)
	}

	if !strings.Contains(summary, "*Duration: 15m 23s | From: +15550001111 -> To: +15550002222*") {
		t.Errorf("first section missing duration/parties annotation:\n%s", summary)
	}
	if !strings.Contains(summary, "*Duration: 8m 12s | From: +15550001111 -> To: +15550002222*") {
		t.Errorf("second section missing duration/parties annotation:\n%s", summary)
	}
	if h.summarizer.manyCalls != 1 || h.summarizer.singleCalls != 0 {
		t.Errorf("summarizer calls many/single = %d/%d, want 1/0", h.summarizer.manyCalls, h.summarizer.singleCalls)
	}
}

func TestProcessTicket_TimestampTieKeepsListingOrder(t *testing.T) {
	h := newHarness(t, nil)
	h.addTicket("77", "open", rec("zzz", t1030, 10), rec("aaa", t1030, 20))

	res := h.orch.ProcessTicket(context.Background(), "77", Options{Post: true})
	if res.Status != StatusCompleted {
		t.Fatalf("Status = %v (err: %v)", res.Status, res.Err)
	}

	summary := h.sink.notes["77"]
	zzz := strings.Index(summary, "summary of: transcript of audio-zzz")
	aaa := strings.Index(summary, "summary of: transcript of audio-aaa")
	if zzz == -1 || aaa == -1 || zzz > aaa {
		t.Errorf("tied timestamps must preserve listing order (zzz=%d aaa=%d):\n%s", zzz, aaa, summary)
	}
}

func TestProcessTicket_Idempotence(t *testing.T) {
	h := newHarness(t, nil)
	h.addTicket("12345", "open", rec("abc123", t1030, 923), rec("def456", t1445, 492))

	opts := Options{Post: true, SkipExisting: true}

	res := h.orch.ProcessTicket(context.Background(), "12345", opts)
	if res.Status != StatusCompleted {
		t.Fatalf("first run: %v (err: %v)", res.Status, res.Err)
	}
	firstSummary, err := h.store.Read(store.SummaryKey("12345"))
	if err != nil {
		t.Fatal(err)
	}
	transcriberCalls := h.transcriber.calls
	summarizerCalls := h.summarizer.manyCalls

	res = h.orch.ProcessTicket(context.Background(), "12345", opts)
	if res.Status != StatusCompleted {
		t.Fatalf("second run: %v (err: %v)", res.Status, res.Err)
	}

	if h.transcriber.calls != transcriberCalls {
		t.Errorf("second run made %d extra transcriber calls", h.transcriber.calls-transcriberCalls)
	}
	if h.summarizer.manyCalls != summarizerCalls || h.summarizer.singleCalls != 0 {
		t.Errorf("second run made extra summarizer calls (many=%d single=%d)", h.summarizer.manyCalls, h.summarizer.singleCalls)
	}

	secondSummary, err := h.store.Read(store.SummaryKey("12345"))
	if err != nil {
		t.Fatal(err)
	}
	if string(firstSummary) != string(secondSummary) {
		t.Error("summary artifact changed across idempotent runs")
	}
}

func TestProcessTicket_SkipExistingRestoresDeletedAudio(t *testing.T) {
	h := newHarness(t, nil)
	h.addTicket("12345", "open", rec("abc123", t1030, 923))
	opts := Options{Post: true, SkipExisting: true}

	if res := h.orch.ProcessTicket(context.Background(), "12345", opts); res.Status != StatusCompleted {
		t.Fatalf("first run: %v (err: %v)", res.Status, res.Err)
	}

	audioKey := store.AudioKey("12345", "abc123")
	if err := os.Remove(h.store.Path(audioKey)); err != nil {
		t.Fatal(err)
	}
	transcriberCalls := h.transcriber.calls

	res := h.orch.ProcessTicket(context.Background(), "12345", opts)
	if res.Status != StatusCompleted {
		t.Fatalf("second run: %v (err: %v)", res.Status, res.Err)
	}
	if !h.store.Exists(audioKey) {
		t.Error("deleted audio artifact was not re-downloaded")
	}
	if h.source.downloads != 2 {
		t.Errorf("downloads = %d, want 2 (one per run)", h.source.downloads)
	}
	if h.transcriber.calls != transcriberCalls {
		t.Errorf("second run made %d extra transcriber calls; cached transcript should be reused",
			h.transcriber.calls-transcriberCalls)
	}
}

func TestProcessTicket_RecordingFailureDoesNotAbortSiblings(t *testing.T) {
	h := newHarness(t, nil)
	h.addTicket("12345", "open", rec("bad", t1030, 100), rec("good", t1445, 200))
	h.source.downloadErr["bad"] = errors.New("connection reset")

	res := h.orch.ProcessTicket(context.Background(), "12345", Options{Post: true})

	if res.Status != StatusCompleted {
		t.Fatalf("Status = %v (err: %v), want completed", res.Status, res.Err)
	}
	if res.RecordingsProcessed != 1 || res.RecordingErrors != 1 {
		t.Errorf("processed/errors = %d/%d, want 1/1", res.RecordingsProcessed, res.RecordingErrors)
	}
	if h.sink.calls != 1 {
		t.Errorf("sink calls = %d, want 1", h.sink.calls)
	}
	// Summarization proceeded over the surviving transcript only.
	if !strings.Contains(h.sink.notes["12345"], "audio-good") {
		t.Errorf("summary missing surviving call:\n%s", h.sink.notes["12345"])
	}
}

func TestProcessTicket_TranscriptionFailureIsolated(t *testing.T) {
	h := newHarness(t, nil)
	h.addTicket("9", "open", rec("r1", t1030, 100), rec("r2", t1445, 200))
	h.transcriber.fail["audio-r2"] = errors.New("model overloaded")

	res := h.orch.ProcessTicket(context.Background(), "9", Options{Post: true})

	if res.Status != StatusCompleted {
		t.Fatalf("Status = %v (err: %v)", res.Status, res.Err)
	}
	if res.RecordingsProcessed != 1 || res.RecordingErrors != 1 {
		t.Errorf("processed/errors = %d/%d, want 1/1", res.RecordingsProcessed, res.RecordingErrors)
	}
	// The failed call's audio is still persisted for the next run.
	if !h.store.Exists(store.AudioKey("9", "r2")) {
		t.Error("audio artifact for failed transcription should be persisted")
	}
	if h.store.Exists(store.TranscriptKey("9", "r2")) {
		t.Error("transcript artifact should not exist for failed transcription")
	}
}

func TestProcessTicket_AllRecordingsFail(t *testing.T) {
	h := newHarness(t, nil)
	h.addTicket("9", "open", rec("r1", t1030, 100))
	h.source.downloadErr["r1"] = errors.New("connection reset")

	res := h.orch.ProcessTicket(context.Background(), "9", Options{Post: true})

	if res.Status != StatusFailed {
		t.Fatalf("Status = %v, want failed", res.Status)
	}
	if !IsCode(res.Err, CodeNoTranscripts) {
		t.Errorf("err = %v, want NO_TRANSCRIPTS", res.Err)
	}
	if h.sink.calls != 0 {
		t.Errorf("sink calls = %d, want 0", h.sink.calls)
	}
}

func TestProcessTicket_NoRecordingsIsNotAFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.addTicket("55", "open")

	res := h.orch.ProcessTicket(context.Background(), "55", Options{Post: true})

	if res.Status != StatusNoRecordings {
		t.Errorf("Status = %v, want no_recordings", res.Status)
	}
	if res.Err != nil {
		t.Errorf("err = %v, want nil", res.Err)
	}
}

func TestProcessTicket_ClosedDeclinedIsSkipped(t *testing.T) {
	declined := func(*Ticket) bool { return false }
	h := newHarness(t, declined)
	h.addTicket("33", "closed", rec("r1", t1030, 60))

	res := h.orch.ProcessTicket(context.Background(), "33", Options{Post: true})

	if res.Status != StatusSkippedClosed {
		t.Errorf("Status = %v, want skipped_closed", res.Status)
	}
	if h.sink.calls != 0 {
		t.Errorf("sink calls = %d, want 0", h.sink.calls)
	}
	if h.transcriber.calls != 0 {
		t.Errorf("transcriber calls = %d, want 0", h.transcriber.calls)
	}
}

func TestProcessTicket_ClosedAcceptedRoutesToConsole(t *testing.T) {
	accepted := func(*Ticket) bool { return true }
	h := newHarness(t, accepted)
	h.addTicket("33", "closed", rec("r1", t1030, 60))

	res := h.orch.ProcessTicket(context.Background(), "33", Options{Post: true})

	if res.Status != StatusCompleted {
		t.Fatalf("Status = %v (err: %v), want completed", res.Status, res.Err)
	}
	if h.sink.calls != 0 {
		t.Errorf("sink calls = %d, want 0 for closed ticket", h.sink.calls)
	}
	if !h.store.Exists(store.SummaryKey("33")) {
		t.Error("summary artifact must be persisted even when posting is impossible")
	}
}

func TestProcessTicket_ClosedWithoutPostingSkipsPrompt(t *testing.T) {
	prompted := false
	confirm := func(*Ticket) bool { prompted = true; return false }
	h := newHarness(t, confirm)
	h.addTicket("33", "closed", rec("r1", t1030, 60))

	res := h.orch.ProcessTicket(context.Background(), "33", Options{Post: false})

	if prompted {
		t.Error("closed-ticket prompt fired although posting was not requested")
	}
	if res.Status != StatusCompleted {
		t.Errorf("Status = %v (err: %v), want completed", res.Status, res.Err)
	}
}

func TestProcessTicket_PostFailureKeepsArtifacts(t *testing.T) {
	h := newHarness(t, nil)
	h.addTicket("44", "open", rec("r1", t1030, 60))
	h.sink.err = errors.New("503 service unavailable")

	res := h.orch.ProcessTicket(context.Background(), "44", Options{Post: true})

	if res.Status != StatusFailed {
		t.Fatalf("Status = %v, want failed", res.Status)
	}
	if !h.store.Exists(store.SummaryKey("44")) || !h.store.Exists(store.TranscriptKey("44", "r1")) {
		t.Error("artifacts must survive a posting failure")
	}
}

func TestProcessTicket_FetchNotFound(t *testing.T) {
	h := newHarness(t, nil)

	res := h.orch.ProcessTicket(context.Background(), "999", Options{Post: true})

	if res.Status != StatusFailed {
		t.Fatalf("Status = %v, want failed", res.Status)
	}
	if !IsCode(res.Err, CodeNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", res.Err)
	}
}

func TestRun_BatchIsolation(t *testing.T) {
	h := newHarness(t, nil)
	h.addTicket("A", "open", rec("a1", t1030, 60))
	h.addTicket("C", "open", rec("c1", t1445, 60))
	h.source.tickets["B"] = &Ticket{ID: "B", Status: "open"}
	h.source.listErr["B"] = errors.New("rate limited")

	batch := h.orch.Run(context.Background(), []string{"A", "B", "C"}, Options{Post: true})

	if batch.Attempted() != 3 {
		t.Errorf("Attempted() = %d, want 3", batch.Attempted())
	}
	if batch.Succeeded() != 2 {
		t.Errorf("Succeeded() = %d, want 2", batch.Succeeded())
	}

	failed := batch.Failed()
	if len(failed) != 1 {
		t.Fatalf("Failed() = %d results, want 1", len(failed))
	}
	if failed[0].TicketID != "B" {
		t.Errorf("failed ticket = %s, want B", failed[0].TicketID)
	}
	if !strings.Contains(failed[0].Reason(), "rate limited") {
		t.Errorf("reason %q does not capture the underlying error", failed[0].Reason())
	}
	if !batch.HasFailures() {
		t.Error("HasFailures() = false, want true")
	}
}

func TestRun_ContextCancelStopsBeforeNextTicket(t *testing.T) {
	h := newHarness(t, nil)
	h.addTicket("A", "open", rec("a1", t1030, 60))
	h.addTicket("B", "open", rec("b1", t1445, 60))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := h.orch.Run(ctx, []string{"A", "B"}, Options{Post: true})
	if batch.Attempted() != 0 {
		t.Errorf("Attempted() = %d, want 0 after cancellation", batch.Attempted())
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"typed error", NewError(CodeNotFound, "nope"), CodeNotFound},
		{"wrapped typed error", fmt.Errorf("outer: %w", NewError(CodeNotMutable, "closed")), CodeNotMutable},
		{"untyped error assumed transient", errors.New("boom"), CodeTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %v, want %v", got, tt.want)
			}
		})
	}
}
