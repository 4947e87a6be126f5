package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"beleg/internal/config"
)

// GmailClient pulls emails with attachments from the Gmail REST API. The
// per-organisation OAuth token is resolved by the credential lookup the
// client is constructed with, same as the payment client.
type GmailClient struct {
	baseURL     string
	tokenLookup func(ctx context.Context, organisationID string) (string, error)
	httpClient  *http.Client
}

var _ MailProvider = (*GmailClient)(nil)

func NewGmailClient(cfg config.MailProviderConfig, tokenLookup func(ctx context.Context, organisationID string) (string, error)) *GmailClient {
	return &GmailClient{
		baseURL:     cfg.BaseURL,
		tokenLookup: tokenLookup,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// GetAccessToken resolves the organisation's OAuth token. ErrNoCredentials
// means the organisation has not connected a mailbox.
func (c *GmailClient) GetAccessToken(ctx context.Context, organisationID string) (string, error) {
	if c.tokenLookup == nil {
		return "", ErrNoCredentials
	}
	token, err := c.tokenLookup(ctx, organisationID)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrNoCredentials
	}
	return token, nil
}

// ListEmailsWithAttachments returns one page of message ids matching the
// has:attachment search.
func (c *GmailClient) ListEmailsWithAttachments(ctx context.Context, token string, maxResults int, pageToken string) (*MailPage, error) {
	params := url.Values{
		"q":          {"has:attachment"},
		"maxResults": {strconv.Itoa(maxResults)},
	}
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var out struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
		NextPageToken string `json:"nextPageToken"`
	}
	if err := c.get(ctx, token, "/gmail/v1/users/me/messages?"+params.Encode(), &out); err != nil {
		return nil, err
	}

	page := &MailPage{NextPageToken: out.NextPageToken}
	for _, m := range out.Messages {
		page.MessageIDs = append(page.MessageIDs, m.ID)
	}
	return page, nil
}

// ProcessEmail fetches one message and decodes its attachments.
func (c *GmailClient) ProcessEmail(ctx context.Context, token, emailID string) (*MailMessage, error) {
	var out struct {
		ID           string `json:"id"`
		InternalDate string `json:"internalDate"`
		Payload      struct {
			Headers []struct {
				Name  string `json:"name"`
				Value string `json:"value"`
			} `json:"headers"`
			Parts []gmailPart `json:"parts"`
		} `json:"payload"`
	}
	if err := c.get(ctx, token, "/gmail/v1/users/me/messages/"+emailID, &out); err != nil {
		return nil, err
	}

	msg := &MailMessage{ID: out.ID}
	for _, h := range out.Payload.Headers {
		switch h.Name {
		case "Subject":
			msg.Subject = h.Value
		case "From":
			msg.From = h.Value
		}
	}
	if ms, err := strconv.ParseInt(out.InternalDate, 10, 64); err == nil {
		msg.Date = time.UnixMilli(ms)
	}

	for _, part := range flattenParts(out.Payload.Parts) {
		if part.Filename == "" {
			continue
		}
		data, err := c.attachmentData(ctx, token, emailID, part)
		if err != nil {
			return nil, fmt.Errorf("attachment %s: %w", part.Filename, err)
		}
		msg.Attachments = append(msg.Attachments, MailAttachment{
			Filename:    part.Filename,
			ContentType: part.MimeType,
			Data:        data,
		})
	}
	return msg, nil
}

type gmailPart struct {
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Body     struct {
		AttachmentID string `json:"attachmentId"`
		Data         string `json:"data"`
	} `json:"body"`
	Parts []gmailPart `json:"parts"`
}

// flattenParts walks the nested MIME tree; multipart messages nest their
// attachments one or more levels deep.
func flattenParts(parts []gmailPart) []gmailPart {
	var flat []gmailPart
	for _, p := range parts {
		flat = append(flat, p)
		flat = append(flat, flattenParts(p.Parts)...)
	}
	return flat
}

func (c *GmailClient) attachmentData(ctx context.Context, token, emailID string, part gmailPart) ([]byte, error) {
	encoded := part.Body.Data
	if encoded == "" && part.Body.AttachmentID != "" {
		var out struct {
			Data string `json:"data"`
		}
		path := fmt.Sprintf("/gmail/v1/users/me/messages/%s/attachments/%s", emailID, part.Body.AttachmentID)
		if err := c.get(ctx, token, path, &out); err != nil {
			return nil, err
		}
		encoded = out.Data
	}
	return base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(encoded)
}

func (c *GmailClient) get(ctx context.Context, token, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mail provider GET %s: status %d: %s", path, resp.StatusCode, msg)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
