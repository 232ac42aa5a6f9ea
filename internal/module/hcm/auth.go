package hcm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/project-tktt/ms-job-crawler/internal/metrics"
)

// State is the authentication state of a Client
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
	Expired
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Expired:
		return "expired"
	default:
		return "unauthenticated"
	}
}

// tokenMargin is subtracted from the token expiry
const tokenMargin = 60 * time.Second

var (
	clientIDMetaSelectors = []string{
		"meta[name='client-id']",
		"meta[name='client_id']",
		"meta[name='clientId']",
		"meta[property='client-id']",
	}
	clientIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)["']?client[_-]?id["']?\s*[:=]\s*["']([\w.\-]{4,})["']`),
		regexp.MustCompile(`(?i)[?&]client_id=([\w.\-]{4,})`),
		regexp.MustCompile(`(?i)data-client-id=["']([\w.\-]{4,})["']`),
	}
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// ensureAuthenticated is called before every API call. A token issued
// already expired gets one re-authentication, after which ErrTokenExpired
// is returned.
func (c *Client) ensureAuthenticated(ctx context.Context) error {
	if c.tokenValid() {
		return nil
	}
	if c.token != "" {
		c.state = Expired
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		err := c.authenticate(ctx)
		if err == nil && c.tokenValid() {
			c.state = Authenticated
			return nil
		}
		if err != nil {
			c.state = Unauthenticated
			return err
		}
		lastErr = ErrTokenExpired
		c.state = Expired
		c.log.Debug().Err(lastErr).Int("attempt", attempt+1).Msg("token issued expired")
	}
	return lastErr
}

func (c *Client) tokenValid() bool {
	return c.token != "" && c.now().Before(c.expiry.Add(-tokenMargin))
}

func (c *Client) invalidate() {
	c.token = ""
	c.state = Expired
}

func isAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrTokenExpired)
}

// authenticate exchanges a client identifier for a token, trying each token
// path with the discovered identifier or, failing that, the known defaults.
// Once a path has issued a token only that path and identifier are used.
func (c *Client) authenticate(ctx context.Context) error {
	c.state = Authenticating
	if c.clientID == "" {
		c.clientID = c.discoverClientID(ctx)
	}
	ids := c.cfg.DefaultClientIDs
	if c.clientID != "" {
		ids = []string{c.clientID}
	}
	paths := c.cfg.TokenPaths
	if c.tokenPath != "" {
		paths = []string{c.tokenPath}
	}

	var errs []error
	for _, path := range paths {
		for _, id := range ids {
			tok, err := c.requestToken(ctx, c.base+path, id)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			c.clientID = id
			c.tokenPath = path
			c.token = tok.AccessToken
			expiresIn := tok.ExpiresIn
			if expiresIn <= 0 {
				expiresIn = int(defaultTokenTTL.Seconds())
			}
			c.expiry = c.now().Add(time.Duration(expiresIn) * time.Second)
			c.log.Debug().Str("client_id", id).Str("path", path).Int("expires_in", expiresIn).Msg("token issued")
			return nil
		}
	}
	return fmt.Errorf("%w: %w", ErrAuthFailed, errors.Join(errs...))
}

func (c *Client) requestToken(ctx context.Context, tokenURL, clientID string) (*tokenResponse, error) {
	metrics.AuthAttempts.Inc()

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", clientID)

	resp, err := c.send(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token %s: unexpected status: %d", tokenURL, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token body: %w", err)
	}
	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("token %s: empty access_token", tokenURL)
	}
	return &tok, nil
}

// discoverClientID reads the landing page and applies the meta-tag and
// script heuristics in order. It returns "" when nothing matches.
func (c *Client) discoverClientID(ctx context.Context) string {
	resp, err := c.send(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.portal, nil)
	})
	if err != nil {
		c.log.Debug().Err(err).Msg("landing page unavailable")
		return ""
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		return ""
	}
	return ClientIDFromMarkup(string(body))
}

// ClientIDFromMarkup applies the client identifier heuristics to a page
func ClientIDFromMarkup(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err == nil {
		for _, sel := range clientIDMetaSelectors {
			if v, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		if v, ok := doc.Find("[data-client-id]").First().Attr("data-client-id"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	for _, re := range clientIDPatterns {
		if m := re.FindStringSubmatch(markup); len(m) == 2 {
			return m[1]
		}
	}
	return ""
}
