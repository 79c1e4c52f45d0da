// Package zendesk implements the recording source and note sink against the
// Zendesk REST API.
package zendesk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/robbybarnes/zendesk-voice-summary/internal/pipeline"
)

// Client talks to one Zendesk instance with basic auth.
type Client struct {
	// BaseURL is "https://<domain>" without a trailing slash.
	BaseURL    string
	Email      string
	Password   string
	HTTPClient *http.Client
	Log        zerolog.Logger
}

// New creates a Client for the given Zendesk domain
// (e.g. "yourcompany.zendesk.com").
func New(domain, email, password string, log zerolog.Logger) *Client {
	return &Client{
		BaseURL:    "https://" + domain,
		Email:      email,
		Password:   password,
		HTTPClient: &http.Client{Timeout: 2 * time.Minute},
		Log:        log,
	}
}

type ticketResponse struct {
	Ticket struct {
		Subject     string `json:"subject"`
		Description string `json:"description"`
		Status      string `json:"status"`
		RequesterID int64  `json:"requester_id"`
		AssigneeID  int64  `json:"assignee_id"`
	} `json:"ticket"`
	Users []apiUser `json:"users"`
}

type apiUser struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type userResponse struct {
	User apiUser `json:"user"`
}

// FetchTicket retrieves ticket metadata plus requester and assignee names.
// Sideloaded users are preferred; missing ones are fetched individually.
func (c *Client) FetchTicket(ctx context.Context, ticketID string) (*pipeline.Ticket, error) {
	url := fmt.Sprintf("%s/api/v2/tickets/%s.json?include=users", c.BaseURL, ticketID)

	var tr ticketResponse
	if err := c.getJSON(ctx, url, &tr); err != nil {
		return nil, err
	}

	users := tr.Users
	if len(users) == 0 {
		for _, uid := range []int64{tr.Ticket.RequesterID, tr.Ticket.AssigneeID} {
			if uid == 0 {
				continue
			}
			var ur userResponse
			userURL := fmt.Sprintf("%s/api/v2/users/%d.json", c.BaseURL, uid)
			if err := c.getJSON(ctx, userURL, &ur); err != nil {
				return nil, err
			}
			users = append(users, ur.User)
		}
	}

	names := make(map[int64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	requester := names[tr.Ticket.RequesterID]
	if requester == "" {
		requester = "Customer"
	}
	assignee := names[tr.Ticket.AssigneeID]
	if assignee == "" {
		assignee = "Agent"
	}

	return &pipeline.Ticket{
		ID:          ticketID,
		Subject:     tr.Ticket.Subject,
		Description: tr.Ticket.Description,
		Status:      tr.Ticket.Status,
		Requester:   requester,
		Assignee:    assignee,
	}, nil
}

type commentsResponse struct {
	Comments []struct {
		ID   int64  `json:"id"`
		Type string `json:"type"`
		Data struct {
			Recorded     bool       `json:"recorded"`
			RecordingURL string     `json:"recording_url"`
			CallID       flexibleID `json:"call_id"`
			From         string     `json:"from"`
			To           string     `json:"to"`
			CallDuration int        `json:"call_duration"`
			StartedAt    string     `json:"started_at"`
		} `json:"data"`
	} `json:"comments"`
}

// ListRecordings returns the ticket's voice recordings in comment order.
// Voice comments without a finished recording are ignored.
func (c *Client) ListRecordings(ctx context.Context, ticketID string) ([]pipeline.Recording, error) {
	url := fmt.Sprintf("%s/api/v2/tickets/%s/comments.json", c.BaseURL, ticketID)

	var cr commentsResponse
	if err := c.getJSON(ctx, url, &cr); err != nil {
		return nil, err
	}

	var recordings []pipeline.Recording
	for _, comment := range cr.Comments {
		if comment.Type != "VoiceComment" {
			continue
		}
		d := comment.Data
		if !d.Recorded || d.RecordingURL == "" {
			continue
		}

		var startedAt time.Time
		if d.StartedAt != "" {
			t, err := time.Parse(time.RFC3339, d.StartedAt)
			if err != nil {
				c.Log.Warn().Str("call", d.CallID.String()).Str("started_at", d.StartedAt).
					Msg("unparseable call start time")
			} else {
				startedAt = t.UTC()
			}
		}

		recordings = append(recordings, pipeline.Recording{
			CallID:    d.CallID.String(),
			URL:       d.RecordingURL,
			From:      d.From,
			To:        d.To,
			Duration:  d.CallDuration,
			StartedAt: startedAt,
		})
	}

	return recordings, nil
}

// Download fetches the recording audio with the client's credentials.
func (c *Client) Download(ctx context.Context, rec pipeline.Recording) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rec.URL, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.Email, c.Password)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading recording: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, statusError(resp.StatusCode, "recording download", body)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading recording body: %w", err)
	}
	c.Log.Debug().Str("call", rec.CallID).Int("bytes", len(data)).Msg("recording downloaded")
	return data, nil
}

type commentRequest struct {
	Ticket struct {
		Comment struct {
			Body   string `json:"body"`
			Public bool   `json:"public"`
		} `json:"comment"`
	} `json:"ticket"`
}

// AppendPrivateNote adds a private Markdown comment to the ticket.
func (c *Client) AppendPrivateNote(ctx context.Context, ticketID, body string) error {
	var payload commentRequest
	payload.Ticket.Comment.Body = body
	payload.Ticket.Comment.Public = false

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/v2/tickets/%s.json", c.BaseURL, ticketID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.Email, c.Password)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling Zendesk API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return statusError(resp.StatusCode, "ticket update", respBody)
	}

	c.Log.Debug().Str("ticket", ticketID).Msg("private note added")
	return nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.Email, c.Password)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling Zendesk API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode, "request", body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing Zendesk response: %w", err)
	}
	return nil
}

// statusError maps HTTP status codes onto the pipeline's error kinds so the
// orchestrator can tell a bad id or credential from a transient outage.
// Zendesk answers 422 when a closed ticket is updated.
func statusError(status int, operation string, body []byte) error {
	msg := fmt.Sprintf("zendesk %s failed (HTTP %d)", operation, status)
	switch status {
	case http.StatusNotFound:
		return pipeline.NewError(pipeline.CodeNotFound, "%s", msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return pipeline.NewError(pipeline.CodeUnauthorized, "%s", msg)
	case http.StatusUnprocessableEntity:
		return pipeline.NewError(pipeline.CodeNotMutable, "%s: %s", msg, strings.TrimSpace(string(body)))
	default:
		return pipeline.NewError(pipeline.CodeTransient, "%s: %s", msg, strings.TrimSpace(string(body)))
	}
}

// flexibleID decodes a JSON string or number; Zendesk emits call ids both
// ways depending on the telephony backend.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

func (f flexibleID) String() string { return string(f) }
