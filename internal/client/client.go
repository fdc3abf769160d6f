// Package client is the Go SDK for the FarmLink HTTP API. A Client serves as
// both the identity provider and the role store of a session.Store.
package client

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

	"farmlink/internal/auth"
	"farmlink/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	serviceName = "farmlink"
	localKey    = "client"

	DefaultTimeout = 15 * time.Second
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// Client talks to one FarmLink server on behalf of one user.
type Client struct {
	baseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer
	logger     *zap.Logger
	local      *auth.Broadcaster

	mu         sync.Mutex
	current    *models.Identity
	stopStream context.CancelFunc
	wg         sync.WaitGroup
}

// New creates a client for the server at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		dialer:     &websocket.Dialer{HandshakeTimeout: DefaultTimeout},
		logger:     zap.NewNop(),
		local:      auth.NewBroadcaster(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the access token of the signed-in user, or "".
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return ""
	}
	return c.current.Token
}

// SignIn authenticates with email and password.
func (c *Client) SignIn(ctx context.Context, creds models.Credentials) (*models.Identity, error) {
	var identity models.Identity
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/signin", "", creds, &identity); err != nil {
		return nil, err
	}
	c.signedIn(&identity)
	return &identity, nil
}

// SignUp creates an account and signs it in.
func (c *Client) SignUp(ctx context.Context, req models.SignUpRequest) (*models.Identity, error) {
	var identity models.Identity
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/signup", "", req, &identity); err != nil {
		return nil, err
	}
	c.signedIn(&identity)
	return &identity, nil
}

func (c *Client) signedIn(identity *models.Identity) {
	c.setCurrent(identity)
	c.local.Publish(localKey, models.AuthEvent{Type: models.AuthSignedIn, Identity: identity})
}

// SignOut forgets the local identity first, then tells the server. The server
// error, if any, is returned after the local state is already cleared.
func (c *Client) SignOut(ctx context.Context) error {
	token := c.Token()
	c.setCurrent(nil)
	c.local.Publish(localKey, models.AuthEvent{Type: models.AuthSignedOut})
	if token == "" {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/api/v1/auth/signout", token, nil, nil)
}

// Subscribe streams auth changes, starting with the current session.
func (c *Client) Subscribe() (<-chan models.AuthEvent, func()) {
	c.mu.Lock()
	initial := models.AuthEvent{Type: models.AuthInitial, Identity: c.current}
	c.mu.Unlock()
	return c.local.SubscribeWith(localKey, initial)
}

// LookupRole returns the stored role of userID.
func (c *Client) LookupRole(ctx context.Context, userID string) (models.Role, error) {
	var body struct {
		Role string `json:"role"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/profiles/"+url.PathEscape(userID)+"/role", c.Token(), nil, &body); err != nil {
		return models.RoleNone, err
	}
	return models.ParseRole(body.Role), nil
}

// LookupProfile returns the stored profile of userID.
func (c *Client) LookupProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	if err := c.do(ctx, http.MethodGet, "/api/v1/profiles/"+url.PathEscape(userID), c.Token(), nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Trace looks up a lot. It needs no sign-in.
func (c *Client) Trace(ctx context.Context, lotID string) (models.Lot, error) {
	var lot models.Lot
	err := c.do(ctx, http.MethodGet, "/api/v1/trace/"+url.PathEscape(lotID), "", nil, &lot)
	return lot, err
}

// FarmerOrders lists the signed-in farmer's orders, optionally by status.
func (c *Client) FarmerOrders(ctx context.Context, status string) ([]models.Order, error) {
	path := "/api/v1/farmer/orders"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var list []models.Order
	err := c.do(ctx, http.MethodGet, path, c.Token(), nil, &list)
	return list, err
}

// Close stops the event relay and waits for it to exit.
func (c *Client) Close() {
	c.setCurrent(nil)
	c.wg.Wait()
}

// setCurrent swaps the identity and restarts the server event relay.
func (c *Client) setCurrent(identity *models.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopStream != nil {
		c.stopStream()
		c.stopStream = nil
	}
	c.current = identity
	if identity == nil || identity.Token == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.stopStream = cancel
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.relay(ctx, identity.Token)
	}()
}

// relay reads the server's auth events and republishes role changes. Sign-in
// and sign-out are already published locally.
func (c *Client) relay(ctx context.Context, token string) {
	conn, resp, err := c.dialer.DialContext(ctx, c.eventsURL(), http.Header{"Authorization": {"Bearer " + token}})
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Warn("auth event stream unavailable", zap.Error(err))
		}
		return
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	for {
		var ev models.AuthEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("auth event stream closed", zap.Error(err))
			}
			return
		}
		if ev.Type == models.AuthUserUpdated {
			c.local.Publish(localKey, auth.WithToken(ev, token))
		}
	}
}

func (c *Client) eventsURL() string {
	u := c.baseURL + "/api/v1/auth/events"
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

type apiError struct {
	Error string `json:"error"`
}

// do sends a JSON request and decodes a JSON answer into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &models.NetworkError{Service: serviceName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &models.ParseError{Service: serviceName, Err: err}
	}
	return nil
}

// responseError turns an error answer back into the error taxonomy.
func responseError(resp *http.Response) error {
	var body apiError
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&body)
	msg := body.Error
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	var sentinel error
	switch resp.StatusCode {
	case http.StatusBadRequest:
		sentinel = models.ErrInvalidInput
	case http.StatusUnauthorized:
		sentinel = models.ErrAuth
	case http.StatusForbidden:
		sentinel = models.ErrForbidden
	case http.StatusNotFound:
		sentinel = models.ErrNotFound
	case http.StatusConflict:
		sentinel = models.ErrConflict
	default:
		return &models.NetworkError{Service: serviceName, StatusCode: resp.StatusCode, Err: errors.New(msg)}
	}
	return fmt.Errorf("%w: %s", sentinel, msg)
}
