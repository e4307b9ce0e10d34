package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/AhmadKaify/Sanasend/config"
	"github.com/AhmadKaify/Sanasend/internal/domain/session/entities"
	sessionerrors "github.com/AhmadKaify/Sanasend/internal/domain/session/errors"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/metrics"
)

const maxResponseBytes = 1 << 20

// Client talks to the WhatsApp backend service over HTTP.
// One instance is shared by the whole process.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	cfg        *config.BackendConfig
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// envelope is the common part of every backend response
type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e envelope) reason() string {
	if e.Error != "" {
		return e.Error
	}
	if e.Message != "" {
		return e.Message
	}
	return "unknown error"
}

type initRequest struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}

type initResponse struct {
	envelope
	Status      string `json:"status"`
	QRCode      string `json:"qrCode"`
	PhoneNumber string `json:"phoneNumber"`
}

type statusResponse struct {
	envelope
	Exists      bool    `json:"exists"`
	Status      string  `json:"status"`
	QRCode      *string `json:"qrCode"`
	PhoneNumber *string `json:"phoneNumber"`
	IsReady     bool    `json:"isReady"`
}

type disconnectRequest struct {
	SessionID string `json:"sessionId"`
}

type sendTextRequest struct {
	SessionID string `json:"sessionId"`
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

type sendMediaRequest struct {
	SessionID string `json:"sessionId"`
	Recipient string `json:"recipient"`
	MediaURL  string `json:"mediaUrl"`
	Caption   string `json:"caption"`
	MediaType string `json:"mediaType"`
}

type sendResponse struct {
	envelope
	MessageID string `json:"messageId"`
	Timestamp int64  `json:"timestamp"`
}

// NewClient creates the backend client with a bounded connection pool
func NewClient(cfg *config.BackendConfig, m *metrics.Metrics, logger zerolog.Logger) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	client := &Client{
		baseURL:    cfg.URL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Transport: transport},
		limiter:    rate.NewLimiter(limit, cfg.Burst),
		cfg:        cfg,
		metrics:    m,
		logger:     logger.With().Str("component", "whatsapp_client").Logger(),
	}

	client.logger.Info().
		Str("base_url", cfg.URL).
		Int("max_idle_conns_per_host", cfg.MaxIdleConnsPerHost).
		Msg("WhatsApp backend client initialized")

	return client
}

// InitSession asks the backend to start pairing a session
func (c *Client) InitSession(ctx context.Context, userID uint, sessionID string) (*entities.InitResult, error) {
	var resp initResponse
	req := initRequest{SessionID: sessionID, UserID: fmt.Sprintf("%d", userID)}

	if err := c.call(ctx, "init", http.MethodPost, "/api/session/init", req, c.cfg.InitTimeout, false, &resp); err != nil {
		return nil, err
	}

	return &entities.InitResult{
		Status:      entities.Status(resp.Status),
		QRCode:      resp.QRCode,
		PhoneNumber: resp.PhoneNumber,
	}, nil
}

// GetStatus returns the backend view of a session
func (c *Client) GetStatus(ctx context.Context, sessionID string) (*entities.BackendStatus, error) {
	var resp statusResponse
	path := "/api/session/status/" + url.PathEscape(sessionID)

	if err := c.call(ctx, "status", http.MethodGet, path, nil, c.cfg.StatusTimeout, true, &resp); err != nil {
		return nil, err
	}

	status := &entities.BackendStatus{
		Exists:  resp.Exists,
		Status:  resp.Status,
		IsReady: resp.IsReady,
	}
	if resp.QRCode != nil {
		status.QRCode = *resp.QRCode
	}
	if resp.PhoneNumber != nil {
		status.PhoneNumber = *resp.PhoneNumber
	}
	return status, nil
}

// Disconnect destroys the backend session
func (c *Client) Disconnect(ctx context.Context, sessionID string) error {
	var resp envelope
	return c.call(ctx, "disconnect", http.MethodPost, "/api/session/disconnect",
		disconnectRequest{SessionID: sessionID}, c.cfg.DisconnectTimeout, false, &resp)
}

// SendText sends a text message through the session
func (c *Client) SendText(ctx context.Context, sessionID, recipient, message string) (*entities.DeliveryReceipt, error) {
	var resp sendResponse
	req := sendTextRequest{SessionID: sessionID, Recipient: recipient, Message: message}

	if err := c.call(ctx, "send_text", http.MethodPost, "/api/message/send-text", req, c.cfg.SendTextTimeout, false, &resp); err != nil {
		return nil, err
	}

	return &entities.DeliveryReceipt{MessageID: resp.MessageID, Timestamp: resp.Timestamp}, nil
}

// SendMedia sends a media message by URL through the session
func (c *Client) SendMedia(
	ctx context.Context,
	sessionID, recipient, mediaURL, caption string,
	mediaType entities.MessageType,
) (*entities.DeliveryReceipt, error) {
	var resp sendResponse
	req := sendMediaRequest{
		SessionID: sessionID,
		Recipient: recipient,
		MediaURL:  mediaURL,
		Caption:   caption,
		MediaType: string(mediaType),
	}

	if err := c.call(ctx, "send_media", http.MethodPost, "/api/message/send-media", req, c.cfg.SendMediaTimeout, false, &resp); err != nil {
		return nil, err
	}

	return &entities.DeliveryReceipt{MessageID: resp.MessageID, Timestamp: resp.Timestamp}, nil
}

// HealthCheck reports whether the backend answers its health endpoint
func (c *Client) HealthCheck(ctx context.Context) error {
	var resp envelope
	return c.call(ctx, "health", http.MethodGet, "/health", nil, c.cfg.HealthTimeout, true, &resp)
}

// responder is implemented by every response type through the embedded envelope
type responder interface {
	ok() (bool, string)
}

func (e *envelope) ok() (bool, string) {
	return e.Success, e.reason()
}

// call performs one logical backend operation; idempotent operations are
// retried with exponential backoff on transport errors, 429 and 5xx
func (c *Client) call(
	ctx context.Context,
	op, method, path string,
	body interface{},
	timeout time.Duration,
	idempotent bool,
	out responder,
) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
	}

	attempts := 1
	if idempotent && c.cfg.MaxRetries > 1 {
		attempts = c.cfg.MaxRetries
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := c.cfg.RetryBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return mapError(op, ctx.Err())
			case <-time.After(backoff):
			}
		}

		start := time.Now()
		var status int
		status, err = c.do(ctx, method, path, payload, timeout, out)
		c.metrics.ObserveBackendRequest(op, resultLabel(err), time.Since(start).Seconds())

		if err == nil || !retryable(status, err) {
			break
		}

		c.logger.Debug().Err(err).Str("op", op).Int("attempt", attempt+1).Msg("retrying backend request")
	}

	return err
}

func (c *Client) do(
	ctx context.Context,
	method, path string,
	payload []byte,
	timeout time.Duration,
	out responder,
) (int, error) {
	op := method + " " + path

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		return 0, fmt.Errorf("%s: %w: %v", op, sessionerrors.ErrBackendThrottled, err)
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, mapError(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, mapError(op, err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return resp.StatusCode, &sessionerrors.BackendError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return resp.StatusCode, fmt.Errorf("failed to decode %s response: %w", op, err)
	}

	success, reason := out.ok()
	if resp.StatusCode >= http.StatusBadRequest || !success {
		return resp.StatusCode, &sessionerrors.BackendError{StatusCode: resp.StatusCode, Message: reason}
	}

	return resp.StatusCode, nil
}

// mapError turns transport failures into the session error vocabulary
func mapError(op string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%s: %w: %v", op, sessionerrors.ErrBackendTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %v", op, sessionerrors.ErrBackendUnavailable, err)
	}
}

func retryable(status int, err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if status == 0 {
		return errors.Is(err, sessionerrors.ErrBackendUnavailable) || errors.Is(err, sessionerrors.ErrBackendTimeout)
	}
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func resultLabel(err error) string {
	var backendErr *sessionerrors.BackendError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, sessionerrors.ErrBackendThrottled):
		return "throttled"
	case errors.Is(err, sessionerrors.ErrBackendTimeout):
		return "timeout"
	case errors.Is(err, sessionerrors.ErrBackendUnavailable):
		return "unavailable"
	case errors.As(err, &backendErr):
		return "rejected"
	default:
		return "error"
	}
}
