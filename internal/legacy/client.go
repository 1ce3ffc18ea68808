// Package legacy talks to the remote API the importer pulls collections from.
package legacy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"finanzas/internal/config"
	"finanzas/internal/core"
	applog "finanzas/internal/log"
)

// Collection paths served by the remote API.
const (
	CollectionAccounts      = "accounts"
	CollectionCategories    = "categories"
	CollectionEvents        = "events"
	CollectionInvestments   = "investments"
	CollectionMovements     = "movements"
	CollectionHeritages     = "heritages"
	CollectionPayments      = "payments"
	CollectionAppreciations = "appreciations"
)

const maxErrorBody = 4 << 10

type Client struct {
	baseURL  string
	email    string
	password string
	http     *http.Client
}

func NewClient(settings config.Legacy) *Client {
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(settings.URL, "/"),
		email:    settings.Email,
		password: settings.Password,
		http:     &http.Client{Timeout: timeout},
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"accessToken"`
}

// Login exchanges the service credentials for a bearer token.
func (c *Client) Login(ctx context.Context) (string, error) {
	body, err := json.Marshal(loginRequest{Email: c.email, Password: c.password})
	if err != nil {
		return "", fmt.Errorf("marshal login: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out loginResponse
	if err := c.do(req, applog.ErrorTypeAuth, &out); err != nil {
		return "", err
	}
	token := out.Token
	if token == "" {
		token = out.AccessToken
	}
	if token == "" {
		return "", &core.UpstreamError{
			Status:   http.StatusBadGateway,
			Category: applog.ErrorTypeAuth,
			Message:  "login response carried no token",
		}
	}
	return token, nil
}

// Fetch downloads one collection. The remote API answers either with a bare
// array or with {"data": [...]}.
func Fetch[T any](ctx context.Context, c *Client, token, collection string) ([]T, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+collection, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", collection, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	var raw json.RawMessage
	if err := c.do(req, applog.ErrorTypeNetwork, &raw); err != nil {
		return nil, err
	}

	items := make([]T, 0)
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var envelope struct {
			Data []T `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, decodeError(collection, err)
		}
		if envelope.Data != nil {
			items = envelope.Data
		}
		return items, nil
	}
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, decodeError(collection, err)
	}
	return items, nil
}

func decodeError(collection string, err error) error {
	return &core.UpstreamError{
		Status:   http.StatusBadGateway,
		Category: applog.ErrorTypeUpstream,
		Message:  "malformed " + collection + " payload",
		Err:      err,
	}
}

// do sends req and decodes a 2xx JSON body into out. Transport failures and
// non-2xx answers become UpstreamErrors; 401/403 are always auth errors.
func (c *Client) do(req *http.Request, category string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		return &core.UpstreamError{
			Status:   status,
			Category: applog.ErrorTypeNetwork,
			Message:  fmt.Sprintf("%s %s failed", req.Method, req.URL.Path),
			Err:      err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			category = applog.ErrorTypeAuth
		}
		return &core.UpstreamError{
			Status:   resp.StatusCode,
			Category: category,
			Message:  remoteMessage(resp),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &core.UpstreamError{
			Status:   http.StatusBadGateway,
			Category: applog.ErrorTypeUpstream,
			Message:  fmt.Sprintf("decode %s response", req.URL.Path),
			Err:      err,
		}
	}
	return nil
}

// remoteMessage prefers the remote's own {"message": ...} over the status text.
func remoteMessage(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return http.StatusText(resp.StatusCode)
}
