package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/time/rate"
)

const maxDetailLength = 300

type response struct {
	Status int
	Header http.Header
	Body   []byte
}

func (r *response) decode(v any) *Failure {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return failuref(KindTransient, "decode response: %v", err)
	}
	return nil
}

// classifier turns a non 2xx response into a Failure.
type classifier func(status int, body []byte) *Failure

type apiClient struct {
	http     *http.Client
	base     *url.URL
	headers  http.Header
	classify classifier
	// limiter is shared by every adapter of one platform. May be nil.
	limiter *rate.Limiter
}

func newAPIClient(hc *http.Client, baseURL string, classify classifier) (*apiClient, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if classify == nil {
		classify = classifyStatus
	}
	return &apiClient{http: hc, base: base, headers: http.Header{}, classify: classify}, nil
}

// escapeSegment escapes one path segment. Colons are escaped as well so
// URNs such as urn:li:share:1 reach the platform as one opaque segment.
func escapeSegment(s string) string {
	return strings.ReplaceAll(url.PathEscape(s), ":", "%3A")
}

// endpoint joins raw path segments onto the base URL, escaping each segment.
func (c *apiClient) endpoint(query url.Values, segments ...string) string {
	u := *c.base
	path := strings.TrimRight(c.base.Path, "/")
	raw := strings.TrimRight(c.base.EscapedPath(), "/")
	for _, s := range segments {
		path += "/" + s
		raw += "/" + escapeSegment(s)
	}
	u.Path, u.RawPath = path, raw
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *apiClient) doJSON(ctx context.Context, method, target string, payload any) (*response, *Failure) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, failuref(KindRejected, "marshal request: %v", err)
	}
	return c.do(ctx, method, target, bytes.NewReader(body), "application/json")
}

func (c *apiClient) doForm(ctx context.Context, method, target string, form url.Values) (*response, *Failure) {
	return c.do(ctx, method, target, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func (c *apiClient) do(ctx context.Context, method, target string, body io.Reader, contentType string) (*response, *Failure) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, failuref(KindRateLimited, "local rate limit: %v", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, failuref(KindRejected, "create request: %v", err)
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, networkFailure(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkFailure(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f := c.classify(resp.StatusCode, data)
		slog.Debug("platform request failed", "method", method, "host", req.URL.Host, "status", resp.StatusCode, "kind", f.Kind)
		return nil, f
	}

	return &response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func networkFailure(ctx context.Context, err error) *Failure {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return failuref(KindTransient, "timed out")
	}
	if errors.Is(err, context.Canceled) {
		return failuref(KindTransient, "canceled")
	}
	return failuref(KindTransient, "send request: %v", err)
}

// classifyStatus is the HTTP status mapping shared by every platform.
func classifyStatus(status int, body []byte) *Failure {
	detail := errorDetail(status, body)
	switch {
	case status == http.StatusUnauthorized:
		return &Failure{Kind: KindAuthExpired, Detail: detail}
	case status == http.StatusTooManyRequests:
		return &Failure{Kind: KindRateLimited, Detail: detail}
	case status == http.StatusNotFound:
		return &Failure{Kind: KindNotFound, Detail: detail}
	case status >= 500:
		return &Failure{Kind: KindTransient, Detail: detail}
	default:
		return &Failure{Kind: KindRejected, Detail: detail}
	}
}

// errorDetail pulls a human readable message out of the common error shapes.
func errorDetail(status int, body []byte) string {
	var shape struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
		Title   string `json:"title"`
		Error   any    `json:"error"`
		Errors  []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &shape) == nil {
		switch {
		case shape.Detail != "":
			return shape.Detail
		case shape.Message != "":
			return shape.Message
		case len(shape.Errors) > 0 && shape.Errors[0].Message != "":
			return shape.Errors[0].Message
		case shape.Title != "":
			return shape.Title
		}
		switch e := shape.Error.(type) {
		case string:
			return e
		case map[string]any:
			if m, ok := e["message"].(string); ok {
				return m
			}
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return fmt.Sprintf("status %d", status)
	}
	return truncate(text, maxDetailLength)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// checkContent applies the basic length rules before any network call.
func checkContent(content string, hasMedia bool, maxLength int) *Failure {
	if strings.TrimSpace(content) == "" && !hasMedia {
		return failuref(KindRejected, "post has no content")
	}
	if maxLength > 0 {
		if n := utf8.RuneCountInString(content); n > maxLength {
			return failuref(KindRejected, "content is %d characters, limit is %d", n, maxLength)
		}
	}
	return nil
}

func checkCredential(cred Credential, deps Deps) *Failure {
	if cred.AccessToken == "" {
		return failuref(KindAuthExpired, "no access token")
	}
	if cred.expired(deps.now()) {
		return failuref(KindAuthExpired, "token expired at %s", cred.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"))
	}
	return nil
}
