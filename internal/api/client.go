// Package api talks to the print backend: the password-grant login, the
// printer listing and the job submission endpoint.
package api

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

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"impressa/internal/constants"
	"impressa/internal/metrics"
	"impressa/internal/types"
)

// Endpoint labels used in logs and metrics.
const (
	endpointLogin    = "login"
	endpointPrinters = "printers"
	endpointPrintJob = "print_job"
)

// Options configures a Client.
type Options struct {
	// BaseURL is the backend root, e.g. http://localhost:8000.
	BaseURL            string
	InsecureSkipVerify bool
	// Timeout bounds each HTTP exchange; zero leaves requests unbounded.
	Timeout time.Duration
	// HTTPClient replaces the default transport stack when set.
	HTTPClient *http.Client
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// Client is a backend API client. It holds no credentials: tokens are owned
// by the caller's session and passed per call.
type Client struct {
	baseURL string
	http    *http.Client
	oauth   *oauth2.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New validates opts and builds a Client.
func New(opts Options) (*Client, error) {
	baseURL := strings.TrimSuffix(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("api: base URL is required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		tr, err := newTransport(opts.InsecureSkipVerify)
		if err != nil {
			return nil, err
		}
		httpClient = &http.Client{Timeout: opts.Timeout, Transport: &requestIDTransport{base: tr}}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		oauth: &oauth2.Config{
			Endpoint: oauth2.Endpoint{
				TokenURL:  baseURL + constants.EndpointLogin,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// BaseURL returns the normalized backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login performs the password grant against POST /login. Any failure,
// including a response without access_token, wraps ErrLoginFailed.
func (c *Client) Login(ctx context.Context, clientID, password string) (*oauth2.Token, error) {
	start := time.Now()
	tok, err := c.oauth.PasswordCredentialsToken(c.withHTTPClient(ctx), clientID, password)
	if err != nil {
		outcome := metrics.OutcomeRejected
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil {
			err = &StatusError{
				Endpoint:   endpointLogin,
				StatusCode: rerr.Response.StatusCode,
				Body:       excerpt(rerr.Body),
			}
			outcome = metrics.OutcomeHTTPError
		}
		c.metrics.ObserveRequest(endpointLogin, outcome, time.Since(start))
		c.logger.Warn("login failed", zap.String("client_id", clientID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	c.metrics.ObserveRequest(endpointLogin, metrics.OutcomeOK, time.Since(start))
	c.logger.Info("login succeeded", zap.String("client_id", clientID), zap.String("token_type", tok.Type()))
	return tok, nil
}

// ListPrinters fetches GET /printers/ in response order.
func (c *Client) ListPrinters(ctx context.Context, tok *oauth2.Token) ([]types.Printer, error) {
	var out types.PrinterList
	if err := c.do(ctx, tok, endpointPrinters, http.MethodGet, constants.EndpointPrinters, nil, &out); err != nil {
		return nil, err
	}
	if out.Printers == nil {
		return nil, fmt.Errorf("%s: %w: missing printers", endpointPrinters, ErrMalformedResponse)
	}
	return out.Printers, nil
}

// SubmitPrintJob posts one job to POST /print-job/. It is never retried.
func (c *Client) SubmitPrintJob(ctx context.Context, tok *oauth2.Token, req types.PrintJobRequest) (*types.PrintJob, error) {
	var out types.PrintJobResponse
	if err := c.do(ctx, tok, endpointPrintJob, http.MethodPost, constants.EndpointPrintJob, req, &out); err != nil {
		return nil, err
	}
	if out.PrintJob == nil {
		return nil, fmt.Errorf("%s: %w: missing print_job", endpointPrintJob, ErrMalformedResponse)
	}
	return out.PrintJob, nil
}

func (c *Client) do(ctx context.Context, tok *oauth2.Token, endpoint, method, path string, body, out any) error {
	if tok == nil || tok.AccessToken == "" {
		return fmt.Errorf("%s: %w", endpoint, ErrNotAuthenticated)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", endpoint, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", endpoint, err)
	}
	req.Header.Set("Accept", constants.ContentTypeJSON)
	if body != nil {
		req.Header.Set("Content-Type", constants.ContentTypeJSON)
	}

	start := time.Now()
	resp, err := c.authorized(ctx, tok).Do(req)
	if err != nil {
		c.metrics.ObserveRequest(endpoint, metrics.OutcomeTransport, time.Since(start))
		c.logger.Warn("request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, constants.MaxErrorBodyExcerpt))
		c.metrics.ObserveRequest(endpoint, metrics.OutcomeHTTPError, time.Since(start))
		serr := &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: excerpt(raw)}
		c.logger.Warn("request rejected", zap.String("endpoint", endpoint), zap.Int("status", resp.StatusCode))
		return serr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.metrics.ObserveRequest(endpoint, metrics.OutcomeDecode, time.Since(start))
		return fmt.Errorf("%s: %w: %w", endpoint, ErrMalformedResponse, err)
	}

	c.metrics.ObserveRequest(endpoint, metrics.OutcomeOK, time.Since(start))
	c.logger.Debug("request completed",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// authorized wraps the base client so every request carries the bearer
// token. The token source is static: the backend issues no refresh tokens.
func (c *Client) authorized(ctx context.Context, tok *oauth2.Token) *http.Client {
	return oauth2.NewClient(c.withHTTPClient(ctx), oauth2.StaticTokenSource(tok))
}

func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > constants.MaxErrorBodyExcerpt {
		s = s[:constants.MaxErrorBodyExcerpt]
	}
	return s
}
