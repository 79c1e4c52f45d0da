// Package openai implements transcription (Whisper) and summarization
// (Chat Completions) against the OpenAI API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/robbybarnes/zendesk-voice-summary/internal/pipeline"
)

const (
	defaultBaseURL            = "https://api.openai.com"
	defaultTranscriptionModel = "whisper-1"
	defaultChatModel          = "gpt-5"
)

// Client calls the OpenAI audio and chat endpoints.
type Client struct {
	APIKey             string
	BaseURL            string
	TranscriptionModel string
	ChatModel          string
	HTTPClient         *http.Client
	// Location is the zone used for call timestamps inside prompts.
	Location *time.Location
	Log      zerolog.Logger
}

// New creates a Client with default models.
func New(apiKey string, loc *time.Location, log zerolog.Logger) *Client {
	return &Client{
		APIKey:             apiKey,
		BaseURL:            defaultBaseURL,
		TranscriptionModel: defaultTranscriptionModel,
		ChatModel:          defaultChatModel,
		HTTPClient:         &http.Client{Timeout: 5 * time.Minute},
		Location:           loc,
		Log:                log,
	}
}

// Transcribe sends audio to Whisper and returns the plain-text transcript.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("model", c.TranscriptionModel); err != nil {
		return "", err
	}
	if err := writer.WriteField("response_format", "text"); err != nil {
		return "", err
	}

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/audio/transcriptions", body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling OpenAI API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai transcription error (HTTP %d): %s", resp.StatusCode, respBody)
	}

	c.Log.Debug().Str("file", filename).Int("chars", len(respBody)).Msg("transcription complete")
	return string(respBody), nil
}

// Summarize produces the summary body for a single call transcript.
func (c *Client) Summarize(ctx context.Context, ticket *pipeline.Ticket, transcript string) (string, error) {
	prompt := singleCallPrompt(ticket, transcript)
	return c.chat(ctx, singleCallSystem, prompt)
}

// SummarizeMany sends all transcripts in one request so the model sees the
// full history, then splits the response into one body per call. A single
// combined request avoids posting fragmented notes and keeps cross-call
// references coherent.
func (c *Client) SummarizeMany(ctx context.Context, ticket *pipeline.Ticket, records []pipeline.TranscriptRecord) ([]string, error) {
	prompt := multiCallPrompt(ticket, records, c.Location)
	raw, err := c.chat(ctx, multiCallSystem, prompt)
	if err != nil {
		return nil, err
	}
	return splitCallSummaries(raw, len(records)), nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) chat(ctx context.Context, system, user string) (string, error) {
	reqBody := chatRequest{
		Model: c.ChatModel,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.2,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling OpenAI API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai chat error (HTTP %d): %s", resp.StatusCode, respBody)
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("parsing OpenAI response: %w", err)
	}
	if len(apiResp.Choices) == 0 || apiResp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty response from OpenAI API")
	}

	return apiResp.Choices[0].Message.Content, nil
}
