package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultVerifyURL is Google's reCAPTCHA siteverify endpoint
	DefaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

	verifyTimeout        = 10 * time.Second
	verifyMaxRetries     = 2
	verifyInitialBackoff = 500 * time.Millisecond
)

// Verifier checks bot-verification tokens. Verified is true only when the
// external provider was actually consulted and accepted the token.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) (verified bool, err error)
}

// RecaptchaClient handles communication with the reCAPTCHA verification API
type RecaptchaClient struct {
	client    *http.Client
	secret    string
	verifyURL string
	enforce   bool
	logger    *zap.Logger
}

// NewRecaptchaClient creates a verifier. Verification is skipped (accepting every
// token) unless enforce is set and a secret is configured.
func NewRecaptchaClient(secret, verifyURL string, enforce bool, logger *zap.Logger) *RecaptchaClient {
	if verifyURL == "" {
		verifyURL = DefaultVerifyURL
	}
	return &RecaptchaClient{
		client: &http.Client{
			Timeout: verifyTimeout,
		},
		secret:    secret,
		verifyURL: verifyURL,
		enforce:   enforce,
		logger:    logger.Named("recaptcha"),
	}
}

// siteverifyResponse represents the API response for siteverify
type siteverifyResponse struct {
	Success    bool     `json:"success"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify reports whether token is accepted. A skipped check returns (false, nil);
// a rejected or unverifiable token returns ErrVerificationFailed.
func (c *RecaptchaClient) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	if !c.enforce || c.secret == "" {
		c.logger.Debug("skipping reCAPTCHA verification", zap.Bool("secret_configured", c.secret != ""))
		return false, nil
	}

	form := url.Values{}
	form.Set("secret", c.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	body, err := c.postWithRetry(ctx, form)
	if err != nil {
		c.logger.Error("reCAPTCHA verification error", zap.Error(err))
		return false, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	var resp siteverifyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("%w: failed to parse siteverify response: %v", ErrVerificationFailed, err)
	}
	if !resp.Success {
		c.logger.Info("reCAPTCHA token rejected", zap.Strings("error_codes", resp.ErrorCodes))
		return false, ErrVerificationFailed
	}

	return true, nil
}

// postWithRetry performs a form POST with exponential backoff on transport errors and 5xx
func (c *RecaptchaClient) postWithRetry(ctx context.Context, form url.Values) ([]byte, error) {
	var lastErr error
	backoff := verifyInitialBackoff

	for attempt := 0; attempt < verifyMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()

		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		return body, nil
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", verifyMaxRetries, lastErr)
}
