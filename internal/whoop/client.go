package whoop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	cyclesResource = "cycle"
	sleepResource  = "sleep"

	maxResponseBytes = 4 << 20
)

// TokenGrant is the provider's answer to a code or refresh-token exchange.
// ExpiresIn is zero when the provider omitted expires_in.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// TokenExchanger performs the OAuth2 grant exchanges.
type TokenExchanger interface {
	ExchangeAuthorizationCode(ctx context.Context, code string) (TokenGrant, error)
	ExchangeRefreshToken(ctx context.Context, refreshToken string) (TokenGrant, error)
}

// Authorizer builds the provider authorization URL.
type Authorizer interface {
	AuthorizationURL(state string) string
}

// DataFetcher retrieves raw, range-filtered collections. Bodies are decoded JSON of unknown shape.
type DataFetcher interface {
	FetchCycles(ctx context.Context, accessToken string, start time.Time, end time.Time, limit int) (any, error)
	FetchSleep(ctx context.Context, accessToken string, start time.Time, end time.Time, limit int) (any, error)
}

// Client talks to the Whoop OAuth and developer APIs.
type Client struct {
	config     Config
	oauth      *oauth2.Config
	httpClient *http.Client
}

// NewClient constructs a Client. A nil httpClient gets one bounded by the request timeout.
func NewClient(config Config, httpClient *http.Client) *Client {
	config = config.withDefaults()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.RequestTimeout}
	}
	return &Client{
		config:     config,
		httpClient: httpClient,
		oauth: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   config.AuthURL,
				TokenURL:  config.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

// AuthorizationURL returns the consent URL carrying the given state nonce.
func (client *Client) AuthorizationURL(state string) string {
	return client.oauth.AuthCodeURL(state)
}

// ExchangeAuthorizationCode trades an authorization code for the initial token pair.
func (client *Client) ExchangeAuthorizationCode(ctx context.Context, code string) (TokenGrant, error) {
	callCtx, cancel := client.withTimeout(ctx)
	defer cancel()
	token, err := client.oauth.Exchange(client.oauthContext(callCtx), code)
	if err != nil {
		return TokenGrant{}, fmt.Errorf("whoop.exchange_code: %w", err)
	}
	return grantFromToken(token), nil
}

// ExchangeRefreshToken trades a refresh token for a new token pair.
func (client *Client) ExchangeRefreshToken(ctx context.Context, refreshToken string) (TokenGrant, error) {
	callCtx, cancel := client.withTimeout(ctx)
	defer cancel()
	source := client.oauth.TokenSource(client.oauthContext(callCtx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return TokenGrant{}, fmt.Errorf("whoop.exchange_refresh: %w", err)
	}
	return grantFromToken(token), nil
}

// FetchCycles returns the decoded body of GET /cycle for the range.
func (client *Client) FetchCycles(ctx context.Context, accessToken string, start time.Time, end time.Time, limit int) (any, error) {
	return client.fetchCollection(ctx, cyclesResource, accessToken, start, end, limit)
}

// FetchSleep returns the decoded body of GET /sleep for the range.
func (client *Client) FetchSleep(ctx context.Context, accessToken string, start time.Time, end time.Time, limit int) (any, error) {
	return client.fetchCollection(ctx, sleepResource, accessToken, start, end, limit)
}

func (client *Client) fetchCollection(ctx context.Context, resource string, accessToken string, start time.Time, end time.Time, limit int) (any, error) {
	endpoint, parseErr := url.Parse(strings.TrimRight(client.config.APIBaseURL, "/") + "/" + resource)
	if parseErr != nil {
		return nil, &FetchError{Resource: resource, Err: parseErr}
	}
	query := endpoint.Query()
	query.Set("start", FormatInstant(start))
	query.Set("end", FormatInstant(end))
	query.Set("limit", strconv.Itoa(limit))
	endpoint.RawQuery = query.Encode()

	callCtx, cancel := client.withTimeout(ctx)
	defer cancel()
	request, requestErr := http.NewRequestWithContext(callCtx, http.MethodGet, endpoint.String(), nil)
	if requestErr != nil {
		return nil, &FetchError{Resource: resource, Err: requestErr}
	}
	request.Header.Set("Authorization", "Bearer "+accessToken)
	request.Header.Set("Accept", "application/json")

	response, doErr := client.httpClient.Do(request)
	if doErr != nil {
		return nil, &FetchError{Resource: resource, Err: doErr}
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if readErr != nil {
		return nil, &FetchError{Resource: resource, StatusCode: response.StatusCode, Err: readErr}
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, &FetchError{Resource: resource, StatusCode: response.StatusCode, Body: decodeDiagnostic(body), Err: errUpstreamStatus}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &FetchError{Resource: resource, StatusCode: response.StatusCode, Body: string(body), Err: fmt.Errorf("decode: %w", err)}
	}
	return decoded, nil
}

func (client *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, client.config.RequestTimeout)
}

func (client *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, client.httpClient)
}

// FormatInstant renders t in UTC with millisecond precision, e.g. 2024-03-01T23:00:00.000Z.
func FormatInstant(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func decodeDiagnostic(body []byte) any {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err == nil {
		return decoded
	}
	return string(trimmed)
}

func grantFromToken(token *oauth2.Token) TokenGrant {
	grant := TokenGrant{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if seconds, ok := expiresInSeconds(token.Extra("expires_in")); ok && seconds > 0 {
		grant.ExpiresIn = time.Duration(seconds) * time.Second
	} else if !token.Expiry.IsZero() {
		grant.ExpiresIn = time.Until(token.Expiry).Round(time.Second)
	}
	return grant
}

func expiresInSeconds(raw any) (int64, bool) {
	switch value := raw.(type) {
	case float64:
		return int64(math.Round(value)), true
	case json.Number:
		parsed, err := value.Int64()
		return parsed, err == nil
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}
