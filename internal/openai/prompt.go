package openai

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/robbybarnes/zendesk-voice-summary/internal/pipeline"
)

const singleCallSystem = "You summarize support desk call transcripts for other support agents."

const multiCallSystem = "You summarize support desk call transcripts for other support agents. " +
	"Format your response clearly with sections for each call."

func singleCallPrompt(ticket *pipeline.Ticket, transcript string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a professional support desk call summarizer. ")
	fmt.Fprintf(&b, "The customer is '%s', and the support agent is '%s'. ", ticket.Requester, ticket.Assignee)
	fmt.Fprintf(&b, "The overall ticket subject is: '%s'. ", ticket.Subject)
	b.WriteString("Write a summary for the following support call transcript. ")
	b.WriteString("Do NOT use any emojis.\n\n")
	b.WriteString("Create three clear sections, each with a markdown heading: 'Description of the Call', 'Troubleshooting', and 'Next Steps'. ")
	b.WriteString("- Description: Clearly state what specific issue(s) the customer called about\n")
	b.WriteString("- Troubleshooting: List ALL technical steps discussed or attempted as bullet points\n")
	b.WriteString("- Next Steps: List ALL follow-up actions or pending items as bullet points\n\n")
	b.WriteString("Be concise but ensure NO important technical details, troubleshooting steps, or follow-up items are omitted.\n")
	b.WriteString("--- BEGIN CALL TRANSCRIPT ---\n")
	b.WriteString(transcript)
	b.WriteString("\n--- END CALL TRANSCRIPT ---")
	return b.String()
}

func multiCallPrompt(ticket *pipeline.Ticket, records []pipeline.TranscriptRecord, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a professional support desk call summarizer. ")
	fmt.Fprintf(&b, "The customer is '%s', and the support agent is '%s'. ", ticket.Requester, ticket.Assignee)
	fmt.Fprintf(&b, "The overall ticket subject is: '%s'. ", ticket.Subject)
	fmt.Fprintf(&b, "You are summarizing %d separate calls about the same issue. ", len(records))
	b.WriteString("Do NOT use any emojis. Do NOT use ### or any other separators between calls.\n\n")
	b.WriteString("For EACH call, you MUST capture ALL of the following:\n")
	b.WriteString("   - The specific issues or problems being addressed in that call\n")
	b.WriteString("   - All troubleshooting steps discussed or attempted during that call\n")
	b.WriteString("   - Any follow-up items, next steps, or pending actions from that call\n\n")
	b.WriteString("Create a summary for EACH call separately, with each call having its own three sections: ")
	b.WriteString("'Description of the Call', 'Troubleshooting', and 'Next Steps'. ")
	b.WriteString("- Description: Clearly state what specific issue(s) were discussed in this call\n")
	b.WriteString("- Troubleshooting: List ALL technical steps discussed or attempted as bullet points\n")
	b.WriteString("- Next Steps: List ALL follow-up actions or pending items as bullet points\n\n")
	b.WriteString("Format each call as 'CALL X' where X is the call number.\n")
	b.WriteString("Be concise but ensure NO important technical details, troubleshooting steps, or follow-up items are omitted from any call.\n\n")

	for i, tr := range records {
		rec := tr.Recording
		fmt.Fprintf(&b, "--- CALL %d of %d ---\n", i+1, len(records))
		fmt.Fprintf(&b, "Date/Time: %s\n", pipeline.FormatTimestamp(rec.StartedAt, loc))
		fmt.Fprintf(&b, "Duration: %s\n", pipeline.FormatDuration(rec.Duration))
		fmt.Fprintf(&b, "From: %s -> To: %s\n", rec.From, rec.To)
		fmt.Fprintf(&b, "Call ID: %s\n", rec.CallID)
		b.WriteString("--- BEGIN TRANSCRIPT ---\n")
		b.WriteString(tr.Transcript)
		b.WriteString("\n--- END TRANSCRIPT ---\n\n")
	}

	return b.String()
}

var leadingNumbering = regexp.MustCompile(`^\d+.*?\n`)

// splitCallSummaries carves the model's combined response into one body per
// call, assuming the requested "CALL X" markers. Missing sections come back
// empty rather than failing the whole summary.
func splitCallSummaries(raw string, n int) []string {
	parts := strings.Split(raw, "CALL")
	bodies := make([]string, n)
	for i := 0; i < n; i++ {
		if i+1 >= len(parts) {
			continue
		}
		body := strings.TrimSpace(parts[i+1])
		body = leadingNumbering.ReplaceAllString(body, "")
		body = strings.ReplaceAll(body, "###", "")
		bodies[i] = strings.TrimSpace(body)
	}
	return bodies
}
