package zendesk

import (
	"regexp"
	"strings"
)

var ticketURLPattern = regexp.MustCompile(`/tickets/(\d+)`)

// ExtractTicketID pulls a ticket id out of user input: either an agent URL
// like https://yourcompany.zendesk.com/agent/tickets/29333 or a raw ticket
// number (stray non-digit characters such as "#" are dropped). Returns false
// when no id can be found.
func ExtractTicketID(input string) (string, bool) {
	input = strings.TrimSpace(input)

	if strings.HasPrefix(input, "http") {
		if m := ticketURLPattern.FindStringSubmatch(input); m != nil {
			return m[1], true
		}
		return "", false
	}

	var digits strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return "", false
	}
	return digits.String(), true
}
