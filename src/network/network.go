package network

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"dashboard-observer/src/helpers"
	"dashboard-observer/src/logger"
	"dashboard-observer/src/models"

	"github.com/golang-jwt/jwt/v5"
)

// AsyncNetworkManager performs authenticated GET requests against the shop
// backend with retries.
type AsyncNetworkManager struct {
	Config  *models.MConfig
	Client  *http.Client
	Logger  *logger.Logger
	BaseURL *url.URL

	tokenMu     sync.Mutex
	cachedToken string
	tokenExpiry time.Time
	now         func() time.Time
	backoff     time.Duration
}

// -----------------------------------------------------------------------------

func NewAsyncNetworkManager(cfg *models.MConfig, log *logger.Logger) (*AsyncNetworkManager, error) {
	base, err := url.Parse(strings.TrimRight(cfg.Backend.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend base url: %w", err)
	}

	nm := &AsyncNetworkManager{
		Config:  cfg,
		Logger:  log,
		BaseURL: base,
		now:     time.Now,
		backoff: time.Second,
	}
	nm.Client = nm.createClient()
	return nm, nil
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) createClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if nm.Config.Backend.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   time.Duration(nm.Config.Network.RequestTimeout) * time.Second,
	}
}

// -----------------------------------------------------------------------------

// bearerToken returns the static API token, or a short-lived HS256 service
// token when a JWT secret is configured.
func (nm *AsyncNetworkManager) bearerToken() (string, error) {
	secret := nm.Config.Backend.JWTSecret
	if secret == "" {
		return nm.Config.Backend.APIToken, nil
	}

	nm.tokenMu.Lock()
	defer nm.tokenMu.Unlock()

	now := nm.now()
	if nm.cachedToken != "" && now.Add(30*time.Second).Before(nm.tokenExpiry) {
		return nm.cachedToken, nil
	}

	ttl := time.Duration(nm.Config.Backend.JWTTTLSeconds) * time.Second
	expiry := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   nm.Config.Backend.JWTSubject,
		Issuer:    nm.Config.Name,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiry),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign service token: %w", err)
	}

	nm.cachedToken = signed
	nm.tokenExpiry = expiry
	return signed, nil
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) buildURL(path string, params map[string]string) string {
	u := *nm.BaseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")

	q := u.Query()
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// -----------------------------------------------------------------------------

// Get performs a GET request with retries. Non-2xx responses and transport
// failures come back as *helpers.NetworkError.
func (nm *AsyncNetworkManager) Get(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	finalURL := nm.buildURL(path, params)

	token, err := nm.bearerToken()
	if err != nil {
		return nil, err
	}

	maxRetries := nm.Config.Network.MaxRetries
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			select {
			case <-time.After(time.Duration(i*i) * nm.backoff):
			case <-ctx.Done():
				return nil, helpers.NewNetworkError(path, 0, ctx.Err())
			}
		}

		body, status, err := nm.do(ctx, finalURL, token)
		if err == nil {
			return body, nil
		}
		lastErr = helpers.NewNetworkError(path, status, err)

		// Cancellation and client errors are not worth retrying.
		if ctx.Err() != nil || (status >= 400 && status < 500 && status != http.StatusTooManyRequests) {
			break
		}
		nm.Logger.Info("Request to %s failed (attempt %d/%d): %v", path, i+1, maxRetries+1, err)
	}

	return nil, lastErr
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) do(ctx context.Context, finalURL, token string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", nm.Config.Network.UserAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := nm.Client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, fmt.Errorf("bad status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
