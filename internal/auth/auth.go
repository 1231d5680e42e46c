// Package auth verifies the identity assertion a client presents when it
// connects and maps it to a user id and display name.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"
)

var (
	// ErrInvalidToken indicates the assertion is definitively invalid.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrExpired indicates a correctly signed assertion that is too old.
	ErrExpired = errors.New("auth: token expired")

	// ErrUnavailable indicates the auth service is unreachable or unavailable.
	ErrUnavailable = errors.New("auth: unavailable")
)

// MaxNameLength caps display names in runes.
const MaxNameLength = 30

// Identity is a verified user.
type Identity struct {
	UserID   int64  `json:"user_id"`
	UserName string `json:"user_name"`
}

// Validator verifies an opaque client-supplied assertion.
type Validator interface {
	// Validate returns the identity behind initData, or ErrInvalidToken,
	// ErrExpired or ErrUnavailable.
	Validate(ctx context.Context, initData string) (*Identity, error)
}

// DisplayName picks the first non-empty candidate, falls back to
// "Player" and truncates to MaxNameLength runes.
func DisplayName(candidates ...string) string {
	name := "Player"
	for _, c := range candidates {
		if c != "" {
			name = c
			break
		}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = string([]rune(name)[:MaxNameLength])
	}
	return name
}

// HTTPValidator validates assertions via HTTP callback to an external service.
type HTTPValidator struct {
	url         string
	client      *http.Client
	adminSecret string
}

// NewHTTPValidator creates a validator that calls an external HTTP endpoint.
func NewHTTPValidator(url string, adminSecret string) *HTTPValidator {
	return &HTTPValidator{
		url:         url,
		adminSecret: adminSecret,
		client: &http.Client{
			Timeout: 500 * time.Millisecond,
		},
	}
}

type validateRequest struct {
	InitData string `json:"init_data"`
}

type validateResponse struct {
	Valid     bool   `json:"valid"`
	Expired   bool   `json:"expired,omitempty"`
	UserID    int64  `json:"user_id,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	Username  string `json:"username,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (v *HTTPValidator) Validate(ctx context.Context, initData string) (*Identity, error) {
	if initData == "" {
		return nil, ErrInvalidToken
	}

	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	reqBody, err := json.Marshal(validateRequest{InitData: initData})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if v.adminSecret != "" {
		req.Header.Set("X-Admin-Secret", v.adminSecret)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		return nil, err
	}

	var authResp validateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&authResp); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrUnavailable, err)
	}

	switch {
	case authResp.Expired:
		return nil, ErrExpired
	case !authResp.Valid || authResp.UserID == 0:
		return nil, ErrInvalidToken
	}
	return &Identity{
		UserID:   authResp.UserID,
		UserName: DisplayName(authResp.Username, authResp.FirstName),
	}, nil
}

// statusError maps the callback's HTTP status onto the validator errors.
func statusError(code int) error {
	switch code {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrInvalidToken
	case http.StatusGone:
		return ErrExpired
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable:
		return fmt.Errorf("%w: status %d", ErrUnavailable, code)
	default:
		return fmt.Errorf("%w: unexpected status %d", ErrUnavailable, code)
	}
}
