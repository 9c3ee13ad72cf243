// Package email sends transactional mail for the conference platform.
package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Sender sends transactional emails.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message represents an email to send.
type Message struct {
	From        string
	To          string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

// Attachment is a file carried inline with a message.
type Attachment struct {
	Filename string
	Content  []byte
}

const resendEndpoint = "https://api.resend.com/emails"

// ResendSender sends emails via the Resend HTTP API.
type ResendSender struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewResendSender creates a Resend email sender.
func NewResendSender(apiKey string) *ResendSender {
	return &ResendSender{
		apiKey:   apiKey,
		endpoint: resendEndpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type resendRequest struct {
	From        string             `json:"from"`
	To          []string           `json:"to"`
	Subject     string             `json:"subject"`
	HTML        string             `json:"html,omitempty"`
	Text        string             `json:"text,omitempty"`
	Attachments []resendAttachment `json:"attachments,omitempty"`
}

// resendAttachment carries a base64-encoded file, per the Resend API.
type resendAttachment struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type resendError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Send sends an email via the Resend API.
func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	payload := resendRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	}
	for _, att := range msg.Attachments {
		payload.Attachments = append(payload.Attachments, resendAttachment{
			Filename: att.Filename,
			Content:  base64.StdEncoding.EncodeToString(att.Content),
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal resend request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create resend request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("resend request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var rErr resendError
		_ = json.Unmarshal(respBody, &rErr)
		return fmt.Errorf("resend error (HTTP %d): name=%s message=%s", resp.StatusCode, rErr.Name, rErr.Message)
	}

	return nil
}

// LogSender logs emails instead of sending them. Used as fallback when no
// email provider is configured.
type LogSender struct {
	logFn func(to, subject, body string)
}

// NewLogSender creates a sender that logs emails.
func NewLogSender(logFn func(to, subject, body string)) *LogSender {
	return &LogSender{logFn: logFn}
}

// Send logs the email instead of sending it.
func (l *LogSender) Send(_ context.Context, msg Message) error {
	if l.logFn != nil {
		l.logFn(msg.To, msg.Subject, msg.Text)
	}
	return nil
}
