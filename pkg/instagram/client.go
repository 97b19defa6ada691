package instagram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"osintgram/pkg/config"
	errs "osintgram/pkg/errors"
	"osintgram/pkg/logger"
	"osintgram/pkg/ratelimit"
	"osintgram/pkg/record"
	"osintgram/pkg/retry"
)

// Client talks to Instagram's private and web APIs
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	webURL     string
	apiURL     string
	logger     logger.Logger
	retry      *retry.Config
	limiter    ratelimit.Limiter
	session    *Session
	rankToken  string
}

// Option customises a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry sets the retry policy for transport faults
func WithRetry(cfg *retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithLimiter paces every outgoing call through l
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// NewClient creates a client from the instagram configuration section
func NewClient(cfg config.InstagramConfig, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		headers: map[string]string{
			"User-Agent":       cfg.UserAgent,
			"X-IG-App-ID":      cfg.AppID,
			"X-Requested-With": "XMLHttpRequest",
			"Accept":           "*/*",
			"Accept-Language":  "en-US,en;q=0.9",
		},
		webURL:    strings.TrimRight(orDefault(cfg.BaseURL, BaseURL), "/"),
		apiURL:    strings.TrimRight(orDefault(cfg.APIURL, APIURL), "/"),
		logger:    log,
		retry:     retry.DefaultConfig(),
		rankToken: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.SessionID != "" {
		c.session = &Session{
			SessionID: cfg.SessionID,
			CSRFToken: cfg.CSRFToken,
			Username:  cfg.Username,
		}
	}
	return c
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Session returns the active login session, or nil
func (c *Client) Session() *Session {
	return c.session
}

// UseSession restores a previously saved session
func (c *Client) UseSession(s *Session) {
	c.session = s
}

// Login authenticates with username and password. A checkpoint answer is
// returned as a challenge error carrying the verification link.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	c.session = &Session{Username: username, DeviceID: uuid.NewString()}

	form := url.Values{}
	form.Set("username", username)
	form.Set("enc_password", fmt.Sprintf("#PWD_INSTAGRAM_BROWSER:0:%d:%s", time.Now().Unix(), password))
	form.Set("queryParams", "{}")
	form.Set("optIntoOneTap", "false")

	rec, err := c.call(ctx, http.MethodPost, c.webURL+LoginEndpoint, form)
	if err != nil {
		c.session = nil
		var apiErr *errs.Error
		if errors.As(err, &apiErr) && strings.HasPrefix(apiErr.ChallengeURL, "/") {
			apiErr.ChallengeURL = c.webURL + apiErr.ChallengeURL
		}
		return nil, err
	}

	var resp loginResponse
	resp.fill(rec)
	if !resp.Authenticated {
		c.session = nil
		if !resp.UserExists {
			return nil, errs.New(errs.ErrorTypeAuth, http.StatusUnauthorized, "unknown username %q", username)
		}
		return nil, errs.New(errs.ErrorTypeAuth, http.StatusUnauthorized, "wrong password for %q", username)
	}

	if resp.UserID != "" {
		c.session.UserID = resp.UserID
	}
	c.logger.InfoWithFields("logged in", map[string]interface{}{"username": username, "user_id": c.session.UserID})
	return c.session, nil
}

// ResolveUser looks a username up and returns its profile record
func (c *Client) ResolveUser(ctx context.Context, username string) (record.Record, error) {
	rec, err := c.get(ctx, GetProfileURL(c.webURL, username))
	if err != nil {
		return nil, err
	}
	user, ok := rec.Map("data.user")
	if !ok || !user.Has("id") {
		return nil, errs.New(errs.ErrorTypeNotFound, http.StatusNotFound, "user %q not found", username)
	}
	return user, nil
}

// UserInfo returns the private-API user record for a user id
func (c *Client) UserInfo(ctx context.Context, userID string) (record.Record, error) {
	rec, err := c.get(ctx, c.apiURL+fmt.Sprintf(UserInfoEndpoint, userID))
	if err != nil {
		return nil, err
	}
	user, ok := rec.Map("user")
	if !ok {
		return nil, record.MissingField("user")
	}
	return user, nil
}

// Followers returns one page of the accounts following userID
func (c *Client) Followers(ctx context.Context, userID, cursor string) ([]record.Record, string, error) {
	return c.friendships(ctx, FollowersEndpoint, userID, cursor)
}

// Following returns one page of the accounts userID follows
func (c *Client) Following(ctx context.Context, userID, cursor string) ([]record.Record, string, error) {
	return c.friendships(ctx, FollowingEndpoint, userID, cursor)
}

func (c *Client) friendships(ctx context.Context, endpoint, userID, cursor string) ([]record.Record, string, error) {
	params := url.Values{}
	params.Set("count", "100")
	params.Set("rank_token", c.rankToken)
	if cursor != "" {
		params.Set("max_id", cursor)
	}
	rec, err := c.get(ctx, c.apiURL+fmt.Sprintf(endpoint, userID)+"?"+params.Encode())
	if err != nil {
		return nil, "", err
	}
	users, _ := rec.Slice("users")
	next, _ := rec.String("next_max_id")
	return users, next, nil
}

// UserFeed returns one page of the posts published by userID
func (c *Client) UserFeed(ctx context.Context, userID, cursor string) ([]record.Record, string, error) {
	return c.feed(ctx, fmt.Sprintf(UserFeedEndpoint, userID), cursor)
}

// UserTags returns one page of the posts userID is tagged in
func (c *Client) UserTags(ctx context.Context, userID, cursor string) ([]record.Record, string, error) {
	return c.feed(ctx, fmt.Sprintf(UserTagsEndpoint, userID), cursor)
}

func (c *Client) feed(ctx context.Context, path, cursor string) ([]record.Record, string, error) {
	params := url.Values{}
	params.Set("count", "33")
	if cursor != "" {
		params.Set("max_id", cursor)
	}
	rec, err := c.get(ctx, c.apiURL+path+"?"+params.Encode())
	if err != nil {
		return nil, "", err
	}
	items, _ := rec.Slice("items")
	if more, ok := rec.Bool("more_available"); ok && !more {
		return items, "", nil
	}
	next, _ := rec.String("next_max_id")
	return items, next, nil
}

// MediaComments returns one page of comments on a post
func (c *Client) MediaComments(ctx context.Context, mediaID, cursor string) ([]record.Record, string, error) {
	params := url.Values{}
	params.Set("can_support_threading", "true")
	if cursor != "" {
		params.Set("min_id", cursor)
	}
	rec, err := c.get(ctx, c.apiURL+fmt.Sprintf(CommentsEndpoint, mediaID)+"?"+params.Encode())
	if err != nil {
		return nil, "", err
	}
	comments, _ := rec.Slice("comments")
	next, _ := rec.String("next_min_id")
	return comments, next, nil
}

// Stories returns the current story items of userID
func (c *Client) Stories(ctx context.Context, userID string) ([]record.Record, error) {
	rec, err := c.get(ctx, c.apiURL+fmt.Sprintf(ReelMediaEndpoint, userID))
	if err != nil {
		return nil, err
	}
	items, _ := rec.Slice("items")
	return items, nil
}

// Friendship reports the relation between the logged-in account and userID
func (c *Client) Friendship(ctx context.Context, userID string) (record.Record, error) {
	return c.get(ctx, c.apiURL+fmt.Sprintf(FriendshipEndpoint, userID))
}

// Follow sends a follow request to userID
func (c *Client) Follow(ctx context.Context, userID string) error {
	form := url.Values{}
	form.Set("user_id", userID)
	_, err := c.call(ctx, http.MethodPost, c.apiURL+fmt.Sprintf(FollowEndpoint, userID), form)
	return err
}

// DownloadMedia fetches a photo or video from the CDN
func (c *Client) DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	var data []byte
	err := retry.Do(ctx, func(ctx context.Context) error {
		resp, err := c.send(ctx, http.MethodGet, mediaURL, nil)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return errs.New(errs.ErrorTypeNetwork, 0, "failed to read media: %v", err)
		}
		if err := checkResponse(resp.StatusCode, body); err != nil {
			return err
		}
		data = body
		return nil
	}, c.retry)
	return data, err
}

func (c *Client) get(ctx context.Context, rawURL string) (record.Record, error) {
	return c.call(ctx, http.MethodGet, rawURL, nil)
}

// call performs an API request with retries and decodes the JSON answer
func (c *Client) call(ctx context.Context, method, rawURL string, form url.Values) (record.Record, error) {
	var out record.Record
	err := retry.Do(ctx, func(ctx context.Context) error {
		resp, err := c.send(ctx, method, rawURL, form)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return errs.New(errs.ErrorTypeNetwork, 0, "failed to read response body: %v", err)
		}
		c.captureCookies(resp)

		if err := checkResponse(resp.StatusCode, body); err != nil {
			c.logger.WarnWithFields("api error", map[string]interface{}{
				"url":    rawURL,
				"status": resp.StatusCode,
				"type":   string(errs.TypeOf(err)),
			})
			return err
		}

		rec, err := record.DecodeBytes(body)
		if err != nil {
			return errs.New(errs.ErrorTypeParsing, resp.StatusCode, "failed to parse JSON: %v", err)
		}
		out = rec
		return nil
	}, c.retry)
	return out, err
}

// send performs a single HTTP round trip
func (c *Client) send(ctx context.Context, method, rawURL string, form url.Values) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}
	for key, value := range c.headers {
		if value != "" {
			req.Header.Set(key, value)
		}
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	c.applySession(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.LogRequest(c.logger, method, req.URL.Path, 0, elapsed)
		return nil, errs.New(errs.ErrorTypeNetwork, 0, "network error: %v", err)
	}
	logger.LogRequest(c.logger, method, req.URL.Path, resp.StatusCode, elapsed)
	return resp, nil
}

func (c *Client) applySession(req *http.Request) {
	if c.session == nil {
		return
	}
	if c.session.CSRFToken != "" {
		req.Header.Set("X-CSRFToken", c.session.CSRFToken)
		req.AddCookie(&http.Cookie{Name: "csrftoken", Value: c.session.CSRFToken})
	}
	if c.session.SessionID != "" {
		req.AddCookie(&http.Cookie{Name: "sessionid", Value: c.session.SessionID})
	}
	if c.session.UserID != "" {
		req.AddCookie(&http.Cookie{Name: "ds_user_id", Value: c.session.UserID})
	}
}

func (c *Client) captureCookies(resp *http.Response) {
	if c.session == nil {
		return
	}
	for _, ck := range resp.Cookies() {
		if ck.Value == "" {
			continue
		}
		switch ck.Name {
		case "sessionid":
			c.session.SessionID = ck.Value
		case "csrftoken":
			c.session.CSRFToken = ck.Value
		case "ds_user_id":
			c.session.UserID = ck.Value
		}
	}
}

// checkResponse maps an HTTP status and the platform's JSON error envelope
// onto the typed error taxonomy.
func checkResponse(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	var env apiStatus
	if rec, err := record.DecodeBytes(body); err == nil {
		env.fill(rec)
	}
	msg := env.Message
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch {
	case env.Message == "checkpoint_required" || env.Message == "challenge_required" || env.CheckpointURL != "":
		e := errs.New(errs.ErrorTypeChallenge, status, "%s", msg)
		e.ChallengeURL = env.CheckpointURL
		return e
	case status == http.StatusTooManyRequests || env.isThrottle():
		return errs.New(errs.ErrorTypeRateLimit, status, "%s", msg)
	case status == http.StatusNotFound:
		return errs.New(errs.ErrorTypeNotFound, status, "%s", msg)
	case status == http.StatusUnauthorized || status == http.StatusForbidden || env.Message == "login_required":
		return errs.New(errs.ErrorTypeAuth, status, "%s", msg)
	case status >= 500:
		return errs.New(errs.ErrorTypeServerError, status, "%s", msg)
	default:
		return errs.New(errs.ErrorTypeUnknown, status, "%s", msg)
	}
}
