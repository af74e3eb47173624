// Package client speaks the assistant backend's HTTP surface: chat exchanges,
// liveness probes and document retrieval. It returns wire-level results; the
// controller builds Message objects out of them.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/lexavo/conseil/internal/model/chat"
	"github.com/lexavo/conseil/pkg/textutil"
)

// MaxMessageRunes is the hard input limit enforced before any network call.
const MaxMessageRunes = 5000

const (
	chatPath      = "/api/v1/chat"
	chatTestPath  = "/api/v1/chat/test"
	healthPath    = "/api/v1/health"
	documentsPath = "/api/v1/documents"
)

// Config holds the client's connection settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is the remote assistant API client.
type Client struct {
	http    *resty.Client
	baseURL string
	log     zerolog.Logger
}

// New builds a client for the assistant API at cfg.BaseURL.
func New(cfg Config, log zerolog.Logger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:    httpClient,
		baseURL: baseURL,
		log:     log.With().Str("component", "client").Logger(),
	}
}

// BaseURL reports the configured API root, used for derived document links.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
}

type chatResponse struct {
	Message        string           `json:"message"`
	ConversationID string           `json:"conversation_id"`
	Timestamp      time.Time        `json:"timestamp"`
	Sources        []map[string]any `json:"sources"`
}

// errorBody matches the backend's error payloads; FastAPI puts the human
// detail under "detail".
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// ChatReply is the parsed result of one exchange.
type ChatReply struct {
	Message        string
	ConversationID string
	Timestamp      time.Time
	Sources        []chat.Source
}

// Send submits one user message and returns the assistant's reply. Blank or
// oversized input fails locally with a validation error.
func (c *Client) Send(ctx context.Context, message, conversationID, userID string) (ChatReply, error) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return ChatReply{}, newAPIError(KindValidation, msgEmpty, nil)
	}
	if textutil.RuneLen(message) > MaxMessageRunes {
		return ChatReply{}, newAPIError(KindValidation, msgTooLong, nil)
	}

	var (
		result  chatResponse
		apiErr  errorBody
		request = chatRequest{
			Message:        trimmed,
			ConversationID: conversationID,
			UserID:         userID,
		}
	)

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&result).
		SetError(&apiErr).
		Post(chatPath)
	if err != nil {
		return ChatReply{}, c.classifyTransport(err)
	}

	if resp.IsError() {
		return ChatReply{}, c.classifyStatus(resp.StatusCode(), apiErr)
	}

	c.log.Debug().
		Str("conversation", result.ConversationID).
		Int("sources", len(result.Sources)).
		Msg("chat reply received")

	return ChatReply{
		Message:        result.Message,
		ConversationID: result.ConversationID,
		Timestamp:      result.Timestamp,
		Sources:        c.decodeSources(result.Sources),
	}, nil
}

// classifyTransport maps transport failures: timeouts count as server-side
// (the retry suggestion applies), everything else as unreachable.
func (c *Client) classifyTransport(err error) *APIError {
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return newAPIError(KindServer, msgServerError, err)
	}
	return newAPIError(KindNetwork, msgUnreachable, err)
}

func (c *Client) classifyStatus(status int, body errorBody) *APIError {
	cause := fmt.Errorf("assistant API status %d", status)
	if status >= 500 {
		return newAPIError(KindServer, msgServerError, cause)
	}
	detail := body.Detail
	if detail == "" {
		detail = body.Error
	}
	if detail == "" {
		detail = msgBadRequest
	}
	return newAPIError(KindClient, detail, cause)
}

// decodeSources folds raw source records through the alias table and applies
// the canonical normalization.
func (c *Client) decodeSources(raw []map[string]any) []chat.Source {
	sources := make([]chat.Source, 0, len(raw))
	for _, record := range raw {
		sources = append(sources, decodeSourceRecord(record))
	}
	return NormalizeSources(c.baseURL, sources)
}

// HealthStatus is the backend's liveness report.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// Healthy reports whether the backend declared itself operational.
func (h HealthStatus) Healthy() bool {
	return h.Status == "healthy"
}

// CheckHealth probes the backend without touching the LLM path.
func (c *Client) CheckHealth(ctx context.Context) (HealthStatus, error) {
	var status HealthStatus
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&status).
		Get(healthPath)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("health check: %w", err)
	}
	if resp.IsError() {
		return HealthStatus{}, fmt.Errorf("health check: status %d", resp.StatusCode())
	}
	return status, nil
}

// TestConnection exercises the full agent path via the test endpoint. Used by
// `conseil ping`, never by the periodic probe.
func (c *Client) TestConnection(ctx context.Context, userID string) (bool, error) {
	var result struct {
		TestStatus string `json:"test_status"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"message": "Bonjour, pouvez-vous me confirmer que vous fonctionnez ?",
			"user_id": userID,
		}).
		SetResult(&result).
		Post(chatTestPath)
	if err != nil {
		return false, fmt.Errorf("test connection: %w", err)
	}
	if resp.IsError() {
		return false, nil
	}
	return result.TestStatus == "success", nil
}

// DocumentList is the catalog of PDFs the assistant can cite.
type DocumentList struct {
	AvailableDocuments []string `json:"available_documents"`
	TotalCount         int      `json:"total_count"`
}

// ListDocuments fetches the citable document catalog.
func (c *Client) ListDocuments(ctx context.Context) (DocumentList, error) {
	var list DocumentList
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&list).
		Get(documentsPath)
	if err != nil {
		return DocumentList{}, fmt.Errorf("list documents: %w", err)
	}
	if resp.IsError() {
		return DocumentList{}, fmt.Errorf("list documents: status %d", resp.StatusCode())
	}
	return list, nil
}

// FetchDocument downloads a document's raw bytes by name.
func (c *Client) FetchDocument(ctx context.Context, name string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(documentsPath + "/" + url.PathEscape(normalizeDocumentName(name)))
	if err != nil {
		return nil, fmt.Errorf("fetch document %s: %w", name, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch document %s: status %d", name, resp.StatusCode())
	}
	return resp.Body(), nil
}
