package rental

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/carlmn/rentsync/internal/domain"
	"github.com/carlmn/rentsync/internal/ports"
)

const maxResponseBytes = 1 << 20

// Client talks to the rental API. Authenticated calls carry the bearer
// token obtained by Authenticate; the token field is the only mutable
// state and is guarded because the bootstrapper writes it while the
// loops read it.
type Client struct {
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration

	mu    sync.RWMutex
	token string
}

var _ ports.RentalAPI = (*Client)(nil)

func NewClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{BaseURL: baseURL, HTTPClient: httpClient}
}

type deviceSchema struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner"`
	Host        string    `json:"host"`
	Port        int       `json:"port"`
	WebUIPort   int       `json:"webuiPort"`
	LastCheckin time.Time `json:"lastCheckin"`
	Expiration  time.Time `json:"expiration"`
	PrivateData string    `json:"privateData"`
	OBContract  string    `json:"obContract"`
}

type privateDataSchema struct {
	ID         string          `json:"id"`
	Login      string          `json:"login"`
	Password   string          `json:"password"`
	Payments   []paymentSchema `json:"payments"`
	AmountOwed int64           `json:"amountOwed"`
}

type paymentSchema struct {
	Expiration    time.Time `json:"expiration"`
	Amount        int64     `json:"amount"`
	RefundAddress string    `json:"refundAddress"`
}

type contractSchema struct {
	ID         string    `json:"id"`
	Slug       string    `json:"slug"`
	Expiration time.Time `json:"expiration"`
}

type errorSchema struct {
	Error string `json:"error"`
}

func (c *Client) Authenticate(ctx context.Context, username, password string) error {
	const op = "rental auth"

	payload := map[string]string{"username": username, "password": password}

	var result struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, op, http.MethodPost, "/api/auth", payload, &result, nil); err != nil {
		return err
	}
	if result.Token == "" {
		return domain.NewAPIError(domain.KindUnexpected, op, http.StatusOK, "auth response missing token")
	}

	c.mu.Lock()
	c.token = result.Token
	c.mu.Unlock()

	return nil
}

func (c *Client) Device(ctx context.Context, id domain.DeviceID) (domain.Device, error) {
	const op = "get device"

	var schema deviceSchema
	err := c.do(ctx, op, http.MethodGet, "/api/devices/"+url.PathEscape(string(id)), nil, &schema, nil)
	if err != nil {
		return domain.Device{}, err
	}

	return deviceFromSchema(schema), nil
}

func (c *Client) UpdateDevice(ctx context.Context, device domain.Device) (domain.Device, error) {
	const op = "update device"

	var schema deviceSchema
	path := "/api/devices/" + url.PathEscape(string(device.ID))
	if err := c.do(ctx, op, http.MethodPut, path, deviceToSchema(device), &schema, nil); err != nil {
		return domain.Device{}, err
	}

	return deviceFromSchema(schema), nil
}

func (c *Client) PrivateData(ctx context.Context, id string) (domain.PrivateData, error) {
	const op = "get device private data"

	var schema privateDataSchema
	err := c.do(ctx, op, http.MethodGet, "/api/deviceprivatedata/"+url.PathEscape(id), nil, &schema, nil)
	if err != nil {
		// The private-data endpoint reports every failure the same way;
		// callers cannot distinguish absent from broken.
		if domain.KindOf(err) == domain.KindNotFound {
			return domain.PrivateData{}, domain.NewAPIError(domain.KindServerError, op, http.StatusNotFound, "private data unavailable")
		}
		return domain.PrivateData{}, err
	}

	return privateDataFromSchema(schema), nil
}

func (c *Client) UpdatePrivateData(ctx context.Context, data domain.PrivateData) error {
	const op = "update device private data"

	path := "/api/deviceprivatedata/" + url.PathEscape(data.ID)
	return c.do(ctx, op, http.MethodPut, path, privateDataToSchema(data), nil, nil)
}

func (c *Client) AddRented(ctx context.Context, id domain.DeviceID) error {
	const op = "add rented device"

	payload := map[string]string{"deviceId": string(id)}
	tolerate := func(status int, body errorSchema) bool {
		// The rental API answers 422 when the device is already on the
		// rented list; re-adding is a safe no-op.
		return status == http.StatusUnprocessableEntity &&
			strings.Contains(strings.ToLower(body.Error), "already")
	}
	return c.do(ctx, op, http.MethodPost, "/api/renteddevices", payload, nil, tolerate)
}

func (c *Client) RemoveRented(ctx context.Context, id domain.DeviceID) error {
	const op = "remove rented device"

	return c.do(ctx, op, http.MethodDelete, "/api/renteddevices/"+url.PathEscape(string(id)), nil, nil, nil)
}

func (c *Client) ListRented(ctx context.Context) ([]domain.DeviceID, error) {
	const op = "list rented devices"

	var result struct {
		RentedDevices *[]string `json:"rentedDevices"`
	}
	if err := c.do(ctx, op, http.MethodGet, "/api/renteddevices", nil, &result, nil); err != nil {
		return nil, err
	}
	if result.RentedDevices == nil {
		return nil, domain.NewAPIError(domain.KindUnexpected, op, http.StatusOK, "response missing rented device list")
	}

	ids := make([]domain.DeviceID, 0, len(*result.RentedDevices))
	for _, raw := range *result.RentedDevices {
		ids = append(ids, domain.DeviceID(raw))
	}

	return ids, nil
}

func (c *Client) Contract(ctx context.Context, id string) (domain.Contract, error) {
	const op = "get contract"

	var schema contractSchema
	err := c.do(ctx, op, http.MethodGet, "/api/obcontract/"+url.PathEscape(id), nil, &schema, nil)
	if err != nil {
		return domain.Contract{}, err
	}

	return domain.Contract{ID: schema.ID, Slug: schema.Slug, Expiration: schema.Expiration}, nil
}

func (c *Client) DeleteContract(ctx context.Context, id string) error {
	const op = "delete contract"

	return c.do(ctx, op, http.MethodDelete, "/api/obcontract/"+url.PathEscape(id), nil, nil, nil)
}

// do performs one request/response exchange and classifies any failure
// at this boundary. tolerate may whitelist an error response as
// success.
func (c *Client) do(ctx context.Context, op, method, path string, payload, result any, tolerate func(int, errorSchema) bool) error {
	endpoint, err := buildAPIURL(c.BaseURL, path)
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
	if token := c.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return domain.NewAPIError(domain.KindServerError, op, 0, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return c.classify(op, resp, tolerate)
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(result); err != nil {
		return domain.NewAPIError(domain.KindUnexpected, op, resp.StatusCode, "decode response: "+err.Error())
	}

	return nil
}

func (c *Client) classify(op string, resp *http.Response, tolerate func(int, errorSchema) bool) error {
	var body errorSchema
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if readErr == nil {
		_ = json.Unmarshal(raw, &body)
	}

	if tolerate != nil && tolerate(resp.StatusCode, body) {
		return nil
	}

	message := strings.TrimSpace(body.Error)
	lowered := strings.ToLower(message)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.NewAPIError(domain.KindNotFound, op, resp.StatusCode, message)
	case strings.Contains(lowered, "not found"):
		// Some endpoints report absence through a 5xx body tag rather
		// than a 404 status.
		return domain.NewAPIError(domain.KindNotFound, op, resp.StatusCode, message)
	case resp.StatusCode >= http.StatusInternalServerError:
		if message == "" {
			message = "server error"
		}
		return domain.NewAPIError(domain.KindServerError, op, resp.StatusCode, message)
	default:
		return domain.NewAPIError(domain.KindUnexpected, op, resp.StatusCode, message)
	}
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
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

func deviceFromSchema(schema deviceSchema) domain.Device {
	return domain.Device{
		ID:            domain.DeviceID(schema.ID),
		Owner:         schema.Owner,
		Host:          schema.Host,
		Port:          schema.Port,
		WebUIPort:     schema.WebUIPort,
		LastCheckin:   schema.LastCheckin,
		Expiration:    schema.Expiration,
		PrivateDataID: schema.PrivateData,
		ContractID:    schema.OBContract,
	}
}

func deviceToSchema(device domain.Device) deviceSchema {
	return deviceSchema{
		ID:          string(device.ID),
		Owner:       device.Owner,
		Host:        device.Host,
		Port:        device.Port,
		WebUIPort:   device.WebUIPort,
		LastCheckin: device.LastCheckin,
		Expiration:  device.Expiration,
		PrivateData: device.PrivateDataID,
		OBContract:  device.ContractID,
	}
}

func privateDataFromSchema(schema privateDataSchema) domain.PrivateData {
	payments := make([]domain.Payment, 0, len(schema.Payments))
	for _, p := range schema.Payments {
		payments = append(payments, domain.Payment{
			Expiration:    p.Expiration,
			Amount:        p.Amount,
			RefundAddress: p.RefundAddress,
		})
	}

	return domain.PrivateData{
		ID:         schema.ID,
		Login:      schema.Login,
		Password:   schema.Password,
		Payments:   payments,
		AmountOwed: schema.AmountOwed,
	}
}

func privateDataToSchema(data domain.PrivateData) privateDataSchema {
	payments := make([]paymentSchema, 0, len(data.Payments))
	for _, p := range data.Payments {
		payments = append(payments, paymentSchema{
			Expiration:    p.Expiration,
			Amount:        p.Amount,
			RefundAddress: p.RefundAddress,
		})
	}

	return privateDataSchema{
		ID:         data.ID,
		Login:      data.Login,
		Password:   data.Password,
		Payments:   payments,
		AmountOwed: data.AmountOwed,
	}
}

func buildAPIURL(baseURL string, path string) (string, error) {
	if baseURL == "" {
		return "", errors.New("api base url is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("api base url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("api base url host is required")
	}

	endpoint, err := parsed.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse api path: %w", err)
	}
	return endpoint.String(), nil
}
