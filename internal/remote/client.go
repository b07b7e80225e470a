// Package remote implements the client for the hosted note store.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fleetingnotes/fleeting-sync/internal/apperr"
	"github.com/fleetingnotes/fleeting-sync/internal/models"
)

// Credentials is the opaque auth material for the note store.
type Credentials struct {
	Email    string
	Password string
}

// CredentialsProvider supplies auth material to the client. The
// reconciliation engine never sees raw credentials.
type CredentialsProvider interface {
	Credentials() (Credentials, error)
}

// StaticCredentials is a CredentialsProvider for a fixed email/password
// pair, typically sourced from configuration.
type StaticCredentials Credentials

func (s StaticCredentials) Credentials() (Credentials, error) {
	return Credentials(s), nil
}

// Client is the remote note store contract.
type Client interface {
	// FetchNotes downloads the full remote note set, tombstones included.
	FetchNotes(ctx context.Context) ([]models.Note, error)
	// PushNotes uploads local edits as a bulk update.
	PushNotes(ctx context.Context, updates []models.NoteUpdate) error
}

// unauthorizedSentinel is the literal body the store returns on credential
// rejection, distinguishable from other failure responses.
const unauthorizedSentinel = "Unauthorized"

// HTTPClient talks to the note store over HTTP with basic auth.
type HTTPClient struct {
	baseURL string
	creds   CredentialsProvider
	http    *http.Client
}

// NewHTTPClient creates a client for the store at baseURL.
func NewHTTPClient(baseURL string, creds CredentialsProvider) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchNotes implements Client.
func (c *HTTPClient) FetchNotes(ctx context.Context) ([]models.Note, error) {
	body, err := c.do(ctx, http.MethodGet, "/notes", nil)
	if err != nil {
		return nil, fmt.Errorf("remote: fetch notes: %w", err)
	}
	var notes []models.Note
	if err := json.Unmarshal(body, &notes); err != nil {
		return nil, fmt.Errorf("remote: fetch notes: decode: %w", err)
	}
	return notes, nil
}

// PushNotes implements Client.
func (c *HTTPClient) PushNotes(ctx context.Context, updates []models.NoteUpdate) error {
	payload, err := json.Marshal(updates)
	if err != nil {
		return fmt.Errorf("remote: push notes: encode: %w", err)
	}
	if _, err := c.do(ctx, http.MethodPost, "/notes", payload); err != nil {
		return fmt.Errorf("remote: push notes: %w", err)
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	creds, err := c.creds.Credentials()
	if err != nil {
		return nil, fmt.Errorf("credentials: %w", err)
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(creds.Email, creds.Password)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	// The store signals credential rejection either by status or by the
	// literal sentinel body.
	if resp.StatusCode == http.StatusUnauthorized ||
		strings.TrimSpace(string(body)) == unauthorizedSentinel {
		return nil, apperr.ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, nil
}
