package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/openclaw/gcalbridge/internal/instrumentation"
	"github.com/openclaw/gcalbridge/internal/logging"
)

// Token is the token endpoint's success payload. RefreshToken is only set
// when the provider issues or rotates one; persisting it is the caller's
// responsibility.
type Token struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
}

// tokenPayload is the raw wire shape: success fields plus the provider's
// error fields, which can appear under any HTTP status.
type tokenPayload struct {
	Token

	ErrorCode        string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// ExchangeAuthorizationCode exchanges a single-use authorization code for an
// access token. One attempt, no retry.
func (e *Exchanger) ExchangeAuthorizationCode(ctx context.Context, code string) (Token, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", e.config.ClientID)
	form.Set("client_secret", e.config.ClientSecret)
	form.Set("redirect_uri", e.config.RedirectURI)

	return e.requestToken(ctx, instrumentation.GrantAuthorizationCode, form)
}

// RefreshAccessToken exchanges a refresh token for a fresh access token. A
// rotated refresh token in the response is surfaced, not persisted. One
// attempt, no retry.
func (e *Exchanger) RefreshAccessToken(ctx context.Context, refreshToken string) (Token, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", e.config.ClientID)
	form.Set("client_secret", e.config.ClientSecret)

	return e.requestToken(ctx, instrumentation.GrantRefreshToken, form)
}

// requestToken is the shared form-POST primitive for both grant types.
func (e *Exchanger) requestToken(ctx context.Context, grantType string, form url.Values) (Token, error) {
	operation := instrumentation.OperationExchangeCode
	if grantType == instrumentation.GrantRefreshToken {
		operation = instrumentation.OperationRefreshToken
	}

	ctx, span := instrumentation.StartProviderSpan(ctx, instrumentation.ServiceOAuth, operation)
	defer span.End()

	token, err := e.postForm(ctx, form)
	if err != nil {
		e.record(ctx, grantType, instrumentation.StatusError)
		instrumentation.SetSpanError(span, err)
		e.logger.WarnContext(ctx, "token exchange failed",
			logging.Operation(operation),
			logging.Err(err),
		)
		return Token{}, err
	}

	e.record(ctx, grantType, instrumentation.StatusSuccess)
	instrumentation.SetSpanSuccess(span)

	e.logger.DebugContext(ctx, "token exchange succeeded",
		logging.Operation(operation),
		logging.Status(logging.StatusSuccess),
	)

	return token, nil
}

func (e *Exchanger) postForm(ctx context.Context, form url.Values) (Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("executing token request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Token{}, fmt.Errorf("reading token response: %w", err)
	}

	var payload tokenPayload
	decodeErr := json.Unmarshal(body, &payload)

	// The provider's error fields take precedence over the HTTP status:
	// they can arrive embedded in a success body.
	if decodeErr == nil && payload.ErrorCode != "" {
		return Token{}, &ExchangeError{
			StatusCode:  resp.StatusCode,
			Code:        payload.ErrorCode,
			Description: payload.ErrorDescription,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Token{}, &ExchangeError{
			StatusCode:  resp.StatusCode,
			Description: snippet(body),
		}
	}

	if decodeErr != nil {
		return Token{}, &ExchangeError{
			StatusCode:  resp.StatusCode,
			Description: fmt.Sprintf("decoding token response: %v", decodeErr),
		}
	}

	if payload.AccessToken == "" {
		return Token{}, &ExchangeError{
			StatusCode:  resp.StatusCode,
			Description: "response missing access_token",
		}
	}

	return payload.Token, nil
}

func (e *Exchanger) record(ctx context.Context, grantType, result string) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordTokenExchange(ctx, grantType, result)
}

// snippet bounds error messages sourced from raw response bodies.
func snippet(body []byte) string {
	const max = 256
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	if s == "" {
		return "empty response body"
	}
	return s
}
