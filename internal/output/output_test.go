package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/robbybarnes/zendesk-voice-summary/internal/pipeline"
)

func TestFormatterProgressLines(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf)

	f.TicketStarted("12345")
	f.TicketFetched(&pipeline.Ticket{Subject: "VPN drops", Status: "closed"})
	f.RecordingsFound(2)
	f.RecordingStarted(1, 2, pipeline.Recording{CallID: "abc123", Duration: 923})
	f.AudioReady(pipeline.Recording{}, false)
	f.TranscriptReady(pipeline.Recording{}, true)
	f.Summarizing(2, false)
	f.SummarySaved("/tmp/parent12345_combined_summary.txt", "preview line")
	f.Posted("12345")

	out := buf.String()
	for _, want := range []string{
		"Processing ticket 12345",
		"Subject: VPN drops",
		"Ticket is closed",
		"Found 2 recordings",
		"Call 1/2 (abc123, 15m 23s)",
		"Audio downloaded",
		"Transcript already exists",
		"combined summary for 2 calls",
		"Summary saved: /tmp/parent12345_combined_summary.txt",
		"preview line",
		"posted as private note",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestConsoleSummaryBanner(t *testing.T) {
	var buf bytes.Buffer
	NewFormatter(&buf).ConsoleSummary("the full summary")

	out := buf.String()
	if strings.Count(out, strings.Repeat("=", 60)) != 2 {
		t.Errorf("want two banners:\n%s", out)
	}
	if !strings.Contains(out, "the full summary") {
		t.Errorf("summary body missing:\n%s", out)
	}
}

func TestBatchReportSingleTicket(t *testing.T) {
	var buf bytes.Buffer
	batch := &pipeline.BatchResult{
		Results: []pipeline.TicketResult{
			{TicketID: "12345", Status: pipeline.StatusCompleted, RecordingsProcessed: 1},
		},
		Elapsed: time.Second,
	}

	NewFormatter(&buf).BatchReport(batch)

	out := buf.String()
	for _, want := range []string{
		"FINAL SUMMARY",
		"Tickets processed:    1",
		"Tickets succeeded:    1",
		"Recordings processed: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "Failed tickets:") {
		t.Errorf("clean run must not list failed tickets:\n%s", out)
	}
}

func TestBatchReport(t *testing.T) {
	var buf bytes.Buffer
	batch := &pipeline.BatchResult{
		Results: []pipeline.TicketResult{
			{TicketID: "1", Status: pipeline.StatusCompleted, RecordingsProcessed: 2},
			{TicketID: "2", Status: pipeline.StatusFailed, Err: errors.New("rate limited")},
			{TicketID: "3", Status: pipeline.StatusNoRecordings},
		},
		Elapsed: 3 * time.Second,
	}

	NewFormatter(&buf).BatchReport(batch)

	out := buf.String()
	for _, want := range []string{
		"FINAL SUMMARY",
		"Tickets processed:    3",
		"Tickets succeeded:    1",
		"Recordings processed: 2",
		"Errors:               1",
		"Failed tickets:",
		"2: rate limited",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
}
