// Package meetingapi is the HTTP client for the remote meeting API that owns
// consultation meetings. It implements booking.Submitter.
package meetingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/consult-booking/internal/booking"
	"github.com/wolfman30/consult-booking/pkg/logging"
)

const (
	defaultBaseURL = "https://crm.pizeonfly.com/"
	createPath     = "api/client-create-meeting"
	meetingsPath   = "api/meetings/"
)

var tracer = otel.Tracer("consult.internal.meetingapi")

// Observer receives submission outcomes. The metrics package implements it.
type Observer interface {
	ObserveSubmission(mode, outcome string, seconds float64)
}

// Client talks to the remote meeting API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
	observer   Observer
	dryRun     bool
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets a client-side timeout. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithDryRun makes Submit log the request and return a synthetic success
// without calling the remote API.
func WithDryRun(dryRun bool) Option {
	return func(c *Client) {
		c.dryRun = dryRun
	}
}

// WithObserver reports every submission outcome to o.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// NewClient constructs a meeting API client.
func NewClient(baseURL string, logger *logging.Logger, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit sends req as a create (POST) or reschedule (PUT) request and
// interprets the response. Every failure is a *booking.TransportError.
func (c *Client) Submit(ctx context.Context, req booking.SubmitRequest) (*booking.SubmittedMeeting, error) {
	ctx, span := tracer.Start(ctx, "meetingapi.submit")
	defer span.End()
	span.SetAttributes(attribute.String("consult.mode", string(req.Mode)))

	start := c.now()
	meeting, err := c.submit(ctx, req)
	outcome := "success"
	if err != nil {
		outcome = "failure"
		span.RecordError(err)
		span.SetStatus(codes.Error, booking.UserMessage(err))
	} else {
		span.SetAttributes(attribute.String("consult.meeting_id", meeting.ID))
	}
	if c.observer != nil {
		c.observer.ObserveSubmission(string(req.Mode), outcome, c.now().Sub(start).Seconds())
	}
	return meeting, err
}

func (c *Client) submit(ctx context.Context, req booking.SubmitRequest) (*booking.SubmittedMeeting, error) {
	payload := BuildPayload(req)

	method, endpoint, err := c.route(req.Mode, payload.ID)
	if err != nil {
		return nil, &booking.TransportError{Message: booking.MsgGenericFailure, Err: err}
	}

	if c.dryRun {
		id := fmt.Sprintf("dry-run-%d", c.now().UnixMilli())
		c.logger.Info("DRY RUN: would submit meeting",
			"method", method,
			"endpoint", endpoint,
			"mode", string(req.Mode),
			"guest_email", payload.GuestEmail,
			"start_time", payload.StartTime,
			"meeting_id", id,
		)
		return accepted(payload, id), nil
	}

	var resp Response
	status, err := c.doJSON(ctx, method, endpoint, payload, &resp)
	if err != nil {
		return nil, &booking.TransportError{Message: failureMessage(resp), Status: status, Err: err}
	}
	if !resp.Success {
		return nil, &booking.TransportError{Message: failureMessage(resp), Status: status}
	}

	id := booking.UnknownMeetingID
	if resp.Meeting != nil && resp.Meeting.ID != "" {
		id = resp.Meeting.ID
	}
	c.logger.Info("meeting accepted by remote API", "mode", string(req.Mode), "meeting_id", id)
	return accepted(payload, id), nil
}

func (c *Client) route(mode booking.Mode, id string) (string, string, error) {
	if mode == booking.ModeReschedule {
		if strings.TrimSpace(id) == "" {
			return "", "", booking.ErrMissingMeetingID
		}
		return http.MethodPut, c.baseURL + meetingsPath + url.PathEscape(id), nil
	}
	return http.MethodPost, c.baseURL + createPath, nil
}

func accepted(payload booking.MeetingDraft, id string) *booking.SubmittedMeeting {
	out := booking.SubmittedMeeting{MeetingDraft: payload.Clone()}
	out.ID = id
	return &out
}

func failureMessage(resp Response) string {
	if msg := strings.TrimSpace(resp.Error); msg != "" {
		return msg
	}
	return booking.MsgGenericFailure
}

// doJSON sends body and decodes the response into out even for non-2xx
// statuses, since the API reports its error text in the body.
func (c *Client) doJSON(ctx context.Context, method, endpoint string, body interface{}, out interface{}) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	decodeErr := error(nil)
	if len(respBody) > 0 {
		decodeErr = json.Unmarshal(respBody, out)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(respBody)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		c.logger.Warn("meeting API non-2xx response", "status", resp.StatusCode, "method", method, "body", msg)
		return resp.StatusCode, fmt.Errorf("meeting API returned %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", decodeErr)
	}
	return resp.StatusCode, nil
}
