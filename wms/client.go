// Package wms is a small client for the warehouse API endpoints suites use to
// prepare and inspect test data.
package wms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/logineko/wms-e2e-auth/bootstrap"
	autherrors "github.com/logineko/wms-e2e-auth/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	receivingOrdersPath = "/api/v2/wms/receiving-orders"
	receivingOrderPath  = "/api/v2/warehouse/receiving-orders/"
	locationsPath       = "/api/v2/wms/locations/hierarchy"

	maxErrorBody = 4 << 10
)

// APIError is returned for any non-2xx answer.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Client calls the warehouse API on behalf of one logged in user.
type Client struct {
	baseURL string
	hc      *http.Client
	logger  zerolog.Logger
}

type options struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*options)

// WithHTTPClient sets the client whose transport carries the bearer token.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// NewClient returns a Client for baseURL that authenticates every request
// with the access token of tokens.
func NewClient(baseURL string, tokens *bootstrap.TokenSet, opts ...Option) (*Client, error) {
	if tokens == nil || tokens.AccessToken == "" {
		return nil, errors.Wrap(autherrors.ErrNotAuthenticated, "[wms.NewClient] access token is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || !u.IsAbs() {
		return nil, errors.Wrapf(autherrors.ErrInvalidConfig, "[wms.NewClient] base URL %q is not absolute", baseURL)
	}

	o := options{logger: log.Logger}
	for _, opt := range opts {
		opt(&o)
	}

	ctx := context.Background()
	if o.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
	}
	tokenType := tokens.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: tokens.AccessToken,
		TokenType:   tokenType,
	}))

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		hc:      hc,
		logger:  o.logger,
	}, nil
}

// CreateReceiveOrder submits a new receiving order.
func (c *Client) CreateReceiveOrder(ctx context.Context, order ReceiveOrder) (*ReceivingOrder, error) {
	var created ReceivingOrder
	if err := c.do(ctx, http.MethodPost, receivingOrdersPath, order, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListReceivingOrders returns the receiving orders visible to the user. Both a
// bare array and a paged {"content": [...]} answer are accepted.
func (c *Client) ListReceivingOrders(ctx context.Context) ([]ReceivingOrder, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, receivingOrdersPath, nil, &raw); err != nil {
		return nil, err
	}

	var orders []ReceivingOrder
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &orders); err != nil {
			return nil, errors.Wrap(err, "[Client.ListReceivingOrders] decoding list")
		}
		return orders, nil
	}
	var page struct {
		Content []ReceivingOrder `json:"content"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, errors.Wrap(err, "[Client.ListReceivingOrders] decoding page")
	}
	return page.Content, nil
}

// GetReceivingOrder fetches one order by id.
func (c *Client) GetReceivingOrder(ctx context.Context, id string) (*ReceivingOrder, error) {
	if id == "" {
		return nil, errors.New("[Client.GetReceivingOrder] id is required")
	}
	var order ReceivingOrder
	if err := c.do(ctx, http.MethodGet, receivingOrderPath+url.PathEscape(id), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Locations lists the live location groups of the warehouse hierarchy.
func (c *Client) Locations(ctx context.Context) ([]Location, error) {
	var root struct {
		SubGroups []locationGroupNode `json:"subGroups"`
	}
	if err := c.do(ctx, http.MethodGet, locationsPath, nil, &root); err != nil {
		return nil, err
	}
	return flattenLocations(root.SubGroups), nil
}

// RandomLocation picks a location group at random, falling back to
// DefaultLocation when the hierarchy cannot be read or is empty.
func (c *Client) RandomLocation(ctx context.Context) Location {
	locations, err := c.Locations(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("location hierarchy unavailable, using default location")
		return DefaultLocation
	}
	if len(locations) == 0 {
		return DefaultLocation
	}
	return locations[rand.IntN(len(locations))]
}

// CreateReceiveOrderFromHarvest creates a single-position harvest order
// expected next Monday at a random location.
func (c *Client) CreateReceiveOrderFromHarvest(ctx context.Context, sku, quantity, unit string) (*ReceivingOrder, error) {
	location := c.RandomLocation(ctx)
	order := NewReceiveOrderFromHarvest(sku, quantity, unit, NextMonday(time.Now()), DefaultPartnerID, location.LocationGroupName)
	return c.CreateReceiveOrder(ctx, order)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "[Client.do] encoding %s %s", method, path)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrapf(err, "[Client.do] building %s %s", method, path)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return errors.Wrapf(err, "[Client.do] %s %s", method, path)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("wms request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "[Client.do] decoding %s %s", method, path)
	}
	return nil
}
