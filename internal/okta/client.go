// Package okta reads applications and groups from the Okta management API.
package okta

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"app-groups-sync/internal/circuitbreaker"
	"app-groups-sync/internal/common/errors"
	commonhttp "app-groups-sync/internal/common/http"
	"app-groups-sync/internal/common/logging"
	"app-groups-sync/internal/common/ratelimit"
	"app-groups-sync/internal/models"
)

// maxLoggedBody bounds how much of an error response body is written to the log.
const maxLoggedBody = 2048

// Config holds the connection settings for an Okta org
type Config struct {
	BaseURL      string
	APIToken     string
	Timeout      time.Duration
	RateLimitRPS int
	MaxPages     int
	// MaxIdleConns is the number of idle connections kept to the org. Set it to
	// the group fan-out so concurrent lookups reuse connections.
	MaxIdleConns int
}

// Client is safe for concurrent use. It never retries and never caches.
//
// The token bucket and the circuit breaker are shared by every caller, so neither
// may decide an outcome: the breaker only observes, and the per-call timeout starts
// after the limiter has granted the call.
type Client struct {
	baseURL  *url.URL
	token    string
	maxPages int
	http     *commonhttp.HTTPClientWrapper
	logger   logging.Logger
}

// NewClient builds a client with an outbound token bucket and a circuit breaker
// that reports the health of the org.
func NewClient(config Config, logger logging.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.ConfigError(fmt.Sprintf("invalid okta base url %q", config.BaseURL))
	}
	if config.APIToken == "" {
		return nil, errors.ConfigError("okta api token is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.MaxPages <= 0 {
		config.MaxPages = 50
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	logger = logger.WithFields(logging.Field{Key: "component", Value: "okta"})

	opts := []commonhttp.ClientOption{
		commonhttp.WithTimeout(config.Timeout),
		commonhttp.WithTracing(),
	}
	if config.MaxIdleConns > 0 {
		opts = append(opts, commonhttp.WithMaxIdleConnsPerHost(config.MaxIdleConns))
	}

	breaker := circuitbreaker.NewGoBreaker("okta", circuitbreaker.HTTPConfig, logger)
	wrapper := commonhttp.NewHTTPClientWrapper(opts...).WithCircuitBreaker(breaker)

	if config.RateLimitRPS > 0 {
		limiter, err := ratelimit.NewLocal(config.RateLimitRPS, config.RateLimitRPS)
		if err != nil {
			return nil, errors.ConfigError(fmt.Sprintf("invalid okta rate limit: %v", err))
		}
		wrapper = wrapper.WithRateLimiter(limiter)
	}

	return &Client{
		baseURL:  base,
		token:    config.APIToken,
		maxPages: config.MaxPages,
		http:     wrapper,
		logger:   logger,
	}, nil
}

// FetchApplication reads GET /api/v1/apps/{appID}
func (c *Client) FetchApplication(ctx context.Context, appID string) Result[models.Application] {
	logger := c.logger.WithContext(ctx).WithFields(logging.Field{Key: "app_id", Value: appID})

	resp, err := c.get(ctx, c.endpoint("apps", appID))
	if err != nil {
		logger.Error("Failed to fetch application", err)
		return failed[models.Application](OutcomeTransport, err)
	}
	if !resp.IsSuccess() {
		logger.Warn("Application lookup returned non-success status",
			logging.Field{Key: "status", Value: resp.StatusCode},
			logging.Field{Key: "body", Value: truncate(resp.RawBody)},
		)
		return failed[models.Application](OutcomeNotFound, errors.NotFoundError(fmt.Sprintf("application %s", appID)).
			WithContext("status", resp.StatusCode))
	}

	app, err := decodeApplication(resp.RawBody, appID)
	if err != nil {
		logger.Error("Application response has unexpected shape", err)
		return failed[models.Application](OutcomeShape, err)
	}
	return ok(app)
}

// FetchGroupMemberships reads the ids of the groups assigned to appID, following
// rel="next" links. Any failing page fails the whole list, and the Value of a
// failed result is always an empty, non-nil slice.
func (c *Client) FetchGroupMemberships(ctx context.Context, appID string) Result[[]string] {
	logger := c.logger.WithContext(ctx).WithFields(logging.Field{Key: "app_id", Value: appID})

	fail := func(outcome Outcome, err error) Result[[]string] {
		return Result[[]string]{Outcome: outcome, Value: []string{}, Err: err}
	}

	ids := []string{}
	next := c.endpoint("apps", appID, "groups")

	for page := 1; next != ""; page++ {
		if page > c.maxPages {
			err := errors.ShapeError(fmt.Sprintf("memberships exceed %d pages", c.maxPages), nil)
			logger.Warn("Membership pagination did not terminate", logging.Field{Key: "max_pages", Value: c.maxPages})
			return fail(OutcomeShape, err)
		}

		resp, err := c.get(ctx, next)
		if err != nil {
			logger.Error("Failed to fetch group memberships", err, logging.Field{Key: "page", Value: page})
			return fail(OutcomeTransport, err)
		}
		if !resp.IsSuccess() {
			logger.Warn("Membership lookup returned non-success status",
				logging.Field{Key: "status", Value: resp.StatusCode},
				logging.Field{Key: "page", Value: page},
				logging.Field{Key: "body", Value: truncate(resp.RawBody)},
			)
			return fail(OutcomeNotFound, errors.NotFoundError(fmt.Sprintf("group memberships of application %s", appID)).
				WithContext("status", resp.StatusCode))
		}

		pageIDs, err := decodeMembershipPage(resp.RawBody)
		if err != nil {
			logger.Warn("Membership response has unexpected shape",
				logging.Field{Key: "error", Value: err.Error()},
				logging.Field{Key: "page", Value: page},
				logging.Field{Key: "body", Value: truncate(resp.RawBody)},
			)
			return fail(OutcomeShape, err)
		}
		ids = append(ids, pageIDs...)

		next, err = c.sameOrigin(nextLink(resp.Header))
		if err != nil {
			logger.Warn("Membership pagination link rejected", logging.Field{Key: "error", Value: err.Error()})
			return fail(OutcomeShape, err)
		}
	}

	return ok(ids)
}

// FetchGroupDetails reads GET /api/v1/groups/{groupID}
func (c *Client) FetchGroupDetails(ctx context.Context, groupID string) Result[models.Group] {
	logger := c.logger.WithContext(ctx).WithFields(logging.Field{Key: "group_id", Value: groupID})

	resp, err := c.get(ctx, c.endpoint("groups", groupID))
	if err != nil {
		logger.Error("Failed to fetch group", err)
		return failed[models.Group](OutcomeTransport, err)
	}
	if !resp.IsSuccess() {
		logger.Warn("Group lookup returned non-success status",
			logging.Field{Key: "status", Value: resp.StatusCode},
			logging.Field{Key: "body", Value: truncate(resp.RawBody)},
		)
		return failed[models.Group](OutcomeNotFound, errors.NotFoundError(fmt.Sprintf("group %s", groupID)).
			WithContext("status", resp.StatusCode))
	}

	group, err := decodeGroup(resp.RawBody, groupID)
	if err != nil {
		logger.Error("Group response has unexpected shape", err)
		return failed[models.Group](OutcomeShape, err)
	}
	return ok(group)
}

// GetCircuitBreaker exposes the breaker for health reporting
func (c *Client) GetCircuitBreaker() *circuitbreaker.GoBreakerAdapter {
	return c.http.GetCircuitBreaker()
}

// get issues one authenticated GET. The http.Client timeout bounds the call itself.
func (c *Client) get(ctx context.Context, target string) (*commonhttp.Response, error) {
	return c.http.Get(ctx, target, map[string]string{
		"Accept":        "application/json",
		"Content-Type":  "application/json",
		"Authorization": "SSWS " + c.token,
	})
}

// endpoint builds {base}/api/v1/{segments...} with every segment path-escaped.
func (c *Client) endpoint(segments ...string) string {
	escaped := make([]string, 0, len(segments)+2)
	escaped = append(escaped, "api", "v1")
	for _, segment := range segments {
		escaped = append(escaped, url.PathEscape(segment))
	}
	return c.baseURL.String() + "/" + strings.Join(escaped, "/")
}

// sameOrigin resolves a pagination link and refuses to send the token to another host.
func (c *Client) sameOrigin(link string) (string, error) {
	if link == "" {
		return "", nil
	}
	target, err := c.baseURL.Parse(link)
	if err != nil {
		return "", errors.ShapeError("pagination link is not a valid URL", err)
	}
	if target.Scheme != c.baseURL.Scheme || target.Host != c.baseURL.Host {
		return "", errors.ShapeError(fmt.Sprintf("pagination link points to another host: %s", target.Host), nil)
	}
	return target.String(), nil
}

func truncate(body []byte) string {
	if len(body) <= maxLoggedBody {
		return string(body)
	}
	return string(body[:maxLoggedBody]) + "...(truncated)"
}
