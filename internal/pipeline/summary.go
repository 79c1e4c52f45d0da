package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// composeSingle builds the summary document for a ticket with exactly one
// transcribed call: a timestamp header followed by the summary body, no
// section dividers.
func composeSingle(rec Recording, body string, opts composeOpts) string {
	return fmt.Sprintf("**Call on %s**\n\n%s", FormatTimestamp(rec.StartedAt, opts.loc), strings.TrimSpace(body))
}

// composeCombined builds one merged document for N >= 2 calls: one section
// per call in the given (start-time) order, each annotated with the call's
// timestamp, duration, and origin/destination. Sections are separated by a
// horizontal rule so the ticket gets a single coherent note instead of
// fragmented ones.
func composeCombined(records []TranscriptRecord, bodies []string, opts composeOpts) string {
	var parts []string
	for i, tr := range records {
		rec := tr.Recording
		header := fmt.Sprintf("## Call %d - %s", i+1, FormatTimestamp(rec.StartedAt, opts.loc))
		meta := fmt.Sprintf("*Duration: %s | From: %s -> To: %s*",
			durationOrUnknown(rec.Duration), partyOrUnknown(rec.From), partyOrUnknown(rec.To))

		body := ""
		if i < len(bodies) {
			body = strings.TrimSpace(bodies[i])
		}

		parts = append(parts, header+"\n"+meta+"\n\n"+body)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

type composeOpts struct {
	loc *time.Location
}
