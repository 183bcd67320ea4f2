package validators

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const SiteverifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

var (
	ErrTokenRequired = errors.New("token is required")
	ErrTokenNotValid = errors.New("token_not_valid")
)

// TurnstileVerifier checks Cloudflare Turnstile tokens. A verifier without a
// secret is disabled and accepts everything.
type TurnstileVerifier struct {
	secret    string
	testToken string
	release   bool
	endpoint  string
	client    *http.Client
	logger    log.Logger
}

func NewTurnstileVerifier(secret, testToken string, release bool, client *http.Client, logger log.Logger) *TurnstileVerifier {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &TurnstileVerifier{
		secret:    secret,
		testToken: testToken,
		release:   release,
		endpoint:  SiteverifyURL,
		client:    client,
		logger:    log.With(logger, "component", "turnstile"),
	}
}

func (v *TurnstileVerifier) Enabled() bool {
	return v != nil && v.secret != ""
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (v *TurnstileVerifier) Verify(ctx context.Context, token, ip string) error {
	if !v.Enabled() {
		return nil
	}
	if token == "" {
		level.Info(v.logger).Log("msg", "token is required")
		return ErrTokenRequired
	}
	if !v.release && v.testToken != "" && token == v.testToken {
		level.Info(v.logger).Log("msg", "test token used")
		return nil
	}

	form := url.Values{"secret": {v.secret}, "response": {token}}
	if ip != "" {
		form.Set("remoteip", ip)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		level.Error(v.logger).Log("msg", "verification error", "err", err)
		return err
	}
	defer resp.Body.Close()

	var out siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		level.Error(v.logger).Log("msg", "verification error", "status", resp.StatusCode, "err", err)
		return err
	}
	if !out.Success {
		level.Info(v.logger).Log("msg", "token not valid", "codes", strings.Join(out.ErrorCodes, ","))
		return ErrTokenNotValid
	}
	return nil
}
