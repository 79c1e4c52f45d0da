// Package output renders pipeline progress and results for the terminal.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/robbybarnes/zendesk-voice-summary/internal/pipeline"
)

const durationPrecision = 100 * time.Millisecond

// Formatter writes user-facing progress lines. It implements
// pipeline.Progress; all output goes through the single writer so tests can
// capture it.
type Formatter struct {
	w io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) TicketStarted(ticketID string) {
	fmt.Fprintf(f.w, "\n🎫 Processing ticket %s\n", ticketID)
}

func (f *Formatter) TicketFetched(t *pipeline.Ticket) {
	fmt.Fprintf(f.w, "   Subject: %s\n", t.Subject)
	if t.Closed() {
		fmt.Fprintf(f.w, "   ⚠️  Ticket is closed\n")
	}
}

func (f *Formatter) NoRecordings(ticketID string) {
	fmt.Fprintf(f.w, "ℹ️  No voice recordings found on ticket %s\n", ticketID)
}

func (f *Formatter) RecordingsFound(n int) {
	if n == 1 {
		fmt.Fprintf(f.w, "🎙️  Found 1 recording\n")
		return
	}
	fmt.Fprintf(f.w, "🎙️  Found %d recordings\n", n)
}

func (f *Formatter) RecordingStarted(idx, total int, rec pipeline.Recording) {
	fmt.Fprintf(f.w, "\n📞 Call %d/%d (%s, %s)\n",
		idx, total, rec.CallID, pipeline.FormatDuration(rec.Duration))
}

func (f *Formatter) AudioReady(rec pipeline.Recording, cached bool) {
	if cached {
		fmt.Fprintf(f.w, "   ⏭️  Audio already downloaded\n")
		return
	}
	fmt.Fprintf(f.w, "   ⬇️  Audio downloaded\n")
}

func (f *Formatter) TranscriptReady(rec pipeline.Recording, cached bool) {
	if cached {
		fmt.Fprintf(f.w, "   ⏭️  Transcript already exists\n")
		return
	}
	fmt.Fprintf(f.w, "   📝 Transcribed\n")
}

func (f *Formatter) RecordingFailed(rec pipeline.Recording, err error) {
	fmt.Fprintf(f.w, "   ❌ Call %s failed: %v\n", rec.CallID, err)
}

func (f *Formatter) Summarizing(n int, cached bool) {
	if cached {
		fmt.Fprintf(f.w, "\n⏭️  Summary already exists, reusing it\n")
		return
	}
	if n == 1 {
		fmt.Fprintf(f.w, "\n🤖 Generating summary...\n")
		return
	}
	fmt.Fprintf(f.w, "\n🤖 Generating combined summary for %d calls...\n", n)
}

func (f *Formatter) SummarySaved(path, preview string) {
	fmt.Fprintf(f.w, "✅ Summary saved: %s\n", path)
	if preview != "" {
		fmt.Fprintf(f.w, "\n%s\n", indent(preview, "   "))
	}
}

// ConsoleSummary dumps the full summary between banners. Used when the
// summary cannot be posted (closed ticket, post failure) so the text is not
// lost.
func (f *Formatter) ConsoleSummary(body string) {
	banner := strings.Repeat("=", 60)
	fmt.Fprintf(f.w, "\n%s\n%s\n%s\n", banner, body, banner)
}

func (f *Formatter) Posting(ticketID string) {
	fmt.Fprintf(f.w, "📤 Posting summary to ticket %s...\n", ticketID)
}

func (f *Formatter) Posted(ticketID string) {
	fmt.Fprintf(f.w, "✅ Summary posted as private note\n")
}

func (f *Formatter) PostSkipped(reason string) {
	fmt.Fprintf(f.w, "⏭️  Not posting: %s\n", reason)
}

func (f *Formatter) TicketDone(res pipeline.TicketResult) {
	switch res.Status {
	case pipeline.StatusCompleted:
		fmt.Fprintf(f.w, "✅ Ticket %s done (%s)\n", res.TicketID, res.Elapsed.Round(durationPrecision))
	case pipeline.StatusFailed:
		fmt.Fprintf(f.w, "❌ Ticket %s failed: %s\n", res.TicketID, res.Reason())
	}
}

// BatchReport prints the final summary of a multi-ticket run.
func (f *Formatter) BatchReport(batch *pipeline.BatchResult) {
	banner := strings.Repeat("=", 60)
	fmt.Fprintf(f.w, "\n%s\nFINAL SUMMARY\n%s\n", banner, banner)
	fmt.Fprintf(f.w, "Tickets processed:    %d\n", batch.Attempted())
	fmt.Fprintf(f.w, "Tickets succeeded:    %d\n", batch.Succeeded())
	fmt.Fprintf(f.w, "Recordings processed: %d\n", batch.RecordingsProcessed())
	fmt.Fprintf(f.w, "Errors:               %d\n", batch.TotalErrors())
	fmt.Fprintf(f.w, "Elapsed:              %s\n", batch.Elapsed.Round(durationPrecision))

	if failed := batch.Failed(); len(failed) > 0 {
		fmt.Fprintf(f.w, "\nFailed tickets:\n")
		for _, r := range failed {
			fmt.Fprintf(f.w, "  ❌ %s: %s\n", r.TicketID, r.Reason())
		}
	}
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "❌ %s\n", msg)
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "ℹ️  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "✅ %s\n", msg)
}

func (f *Formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "⚠️  %s\n", msg)
}

func (f *Formatter) SetupCheck(name string, ok bool, detail string) {
	if ok {
		fmt.Fprintf(f.w, "  ✅ %s: %s\n", name, detail)
	} else {
		fmt.Fprintf(f.w, "  ❌ %s: %s\n", name, detail)
	}
}

// ArtifactListHeader and ArtifactListItem render the `list` command.
func (f *Formatter) ArtifactListHeader(dir string) {
	fmt.Fprintf(f.w, "📁 Artifacts in %s:\n\n", dir)
}

func (f *Formatter) ArtifactListItem(ticketID string, audio, transcripts int, hasSummary bool) {
	status := ""
	if hasSummary {
		status = " ✅"
	}
	fmt.Fprintf(f.w, "  ticket %s: %d audio, %d transcripts%s\n", ticketID, audio, transcripts, status)
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
