package market

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/carlmn/rentsync/internal/domain"
	"github.com/carlmn/rentsync/internal/ports"
)

const maxResponseBytes = 1 << 20

// Client talks to the marketplace API. It authenticates every call with
// a basic-auth token derived from the configured username/password
// pair; there is no session to bootstrap.
type Client struct {
	BaseURL        string
	Username       string
	Password       string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

var _ ports.Marketplace = (*Client)(nil)

func NewClient(baseURL, username, password string, httpClient *http.Client) *Client {
	return &Client{
		BaseURL:    baseURL,
		Username:   username,
		Password:   password,
		HTTPClient: httpClient,
	}
}

type notificationSchema struct {
	ID      string `json:"notificationId"`
	Type    string `json:"type"`
	Read    bool   `json:"read"`
	OrderID string `json:"orderId"`
	Slug    string `json:"slug"`
}

type notificationsResponse struct {
	Notifications []notificationSchema `json:"notifications"`
	Total         int                  `json:"total"`
}

type orderResponse struct {
	OrderID string `json:"orderId"`
	Payment struct {
		Amount        int64  `json:"amount"`
		RefundAddress string `json:"refundAddress"`
	} `json:"payment"`
}

type listingSchema struct {
	Slug string `json:"slug"`
}

type listingsResponse struct {
	Listings []listingSchema `json:"listings"`
}

type errorSchema struct {
	Reason string `json:"reason"`
}

func (c *Client) UnreadNotifications(ctx context.Context) ([]domain.Notification, error) {
	const op = "get notifications"

	var payload notificationsResponse
	if err := c.do(ctx, op, http.MethodGet, "/ob/notifications", nil, &payload); err != nil {
		return nil, err
	}

	unread := make([]domain.Notification, 0, len(payload.Notifications))
	for _, n := range payload.Notifications {
		if n.Read {
			continue
		}
		unread = append(unread, domain.Notification{
			ID:      n.ID,
			Type:    n.Type,
			Read:    n.Read,
			OrderID: n.OrderID,
			Slug:    n.Slug,
		})
	}

	return unread, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	const op = "mark notification read"

	path := "/ob/marknotificationasread/" + url.PathEscape(id)
	return c.do(ctx, op, http.MethodPost, path, nil, nil)
}

func (c *Client) Order(ctx context.Context, orderID string) (domain.Order, error) {
	const op = "get order"

	var payload orderResponse
	if err := c.do(ctx, op, http.MethodGet, "/ob/order/"+url.PathEscape(orderID), nil, &payload); err != nil {
		return domain.Order{}, err
	}

	return domain.Order{
		ID:            payload.OrderID,
		Amount:        payload.Payment.Amount,
		RefundAddress: payload.Payment.RefundAddress,
	}, nil
}

func (c *Client) FulfillOrder(ctx context.Context, orderID, note string) error {
	const op = "fulfill order"

	payload := map[string]string{"orderId": orderID, "note": note}
	return c.do(ctx, op, http.MethodPost, "/ob/orderfulfillment", payload, nil)
}

func (c *Client) Listings(ctx context.Context) ([]domain.Listing, error) {
	const op = "get listings"

	var payload listingsResponse
	if err := c.do(ctx, op, http.MethodGet, "/ob/listings", nil, &payload); err != nil {
		return nil, err
	}

	listings := make([]domain.Listing, 0, len(payload.Listings))
	for _, l := range payload.Listings {
		listings = append(listings, domain.Listing{Slug: l.Slug})
	}

	return listings, nil
}

func (c *Client) RemoveListing(ctx context.Context, slug string) error {
	const op = "remove listing"

	return c.do(ctx, op, http.MethodDelete, "/ob/listing/"+url.PathEscape(slug), nil, nil)
}

func (c *Client) SendMoney(ctx context.Context, address string, amount int64, memo string) error {
	const op = "send money"

	payload := map[string]any{"address": address, "amount": amount, "memo": memo}
	return c.do(ctx, op, http.MethodPost, "/wallet/spend", payload, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, payload, result any) error {
	endpoint, err := c.buildURL(path)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(encoded)
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(requestCtx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Basic "+c.authToken())

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return domain.NewAPIError(domain.KindServerError, op, 0, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return classify(op, resp)
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(result); err != nil {
		return domain.NewAPIError(domain.KindUnexpected, op, resp.StatusCode, "decode response: "+err.Error())
	}

	return nil
}

func classify(op string, resp *http.Response) error {
	var body errorSchema
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if readErr == nil {
		_ = json.Unmarshal(raw, &body)
	}

	message := strings.TrimSpace(body.Reason)
	lowered := strings.ToLower(message)

	switch {
	case resp.StatusCode == http.StatusNotFound || strings.Contains(lowered, "not found"):
		return domain.NewAPIError(domain.KindNotFound, op, resp.StatusCode, message)
	case resp.StatusCode >= http.StatusInternalServerError:
		return domain.NewAPIError(domain.KindServerError, op, resp.StatusCode, message)
	default:
		return domain.NewAPIError(domain.KindUnexpected, op, resp.StatusCode, message)
	}
}

// authToken is the marketplace's basic-auth-style credential: the
// username/password pair, base64-encoded per request.
func (c *Client) authToken() string {
	return base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.Password))
}

func (c *Client) buildURL(path string) (string, error) {
	if c.BaseURL == "" {
		return "", errors.New("marketplace base url is required")
	}

	parsed, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse marketplace base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("marketplace base url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("marketplace base url host is required")
	}

	endpoint, err := parsed.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse marketplace path: %w", err)
	}
	return endpoint.String(), nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	requestTimeout := c.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	return context.WithTimeout(ctx, requestTimeout)
}
