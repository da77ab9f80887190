// Package captcha verifies hCaptcha tokens submitted at registration.
package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// HCaptchaVerifyURL is the hCaptcha siteverify endpoint.
	HCaptchaVerifyURL = "https://hcaptcha.com/siteverify"
	defaultTimeout    = 5 * time.Second
)

// Verifier checks a captcha token. It returns (false, nil) for a rejected
// token and an error only when verification could not be performed.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// HCaptcha verifies tokens against the hCaptcha API.
type HCaptcha struct {
	Secret     string
	VerifyURL  string
	HTTPClient *http.Client
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// NewHCaptcha creates a verifier for the given site secret.
func NewHCaptcha(secret string) *HCaptcha {
	return &HCaptcha{
		Secret:     secret,
		VerifyURL:  HCaptchaVerifyURL,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Verify implements Verifier.
func (h *HCaptcha) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, nil
	}

	form := url.Values{}
	form.Set("response", token)
	form.Set("secret", h.Secret)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := h.HTTPClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return false, fmt.Errorf("siteverify failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var out siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("failed to decode siteverify response: %w", err)
	}
	return out.Success, nil
}

// AcceptAny accepts every non-empty token. Used when no secret is configured.
type AcceptAny struct{}

// Verify implements Verifier.
func (AcceptAny) Verify(_ context.Context, token, _ string) (bool, error) {
	return strings.TrimSpace(token) != "", nil
}

// New returns an hCaptcha verifier when secret is set, AcceptAny otherwise.
func New(secret string) Verifier {
	if secret == "" {
		return AcceptAny{}
	}
	return NewHCaptcha(secret)
}
