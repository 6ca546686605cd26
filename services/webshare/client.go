// Package webshare implements the client for the Webshare.cz XML API:
// the md5crypt login handshake, full-text file search, and per-file link
// resolution. Of the protocol variants Webshare has exposed over time, this
// client speaks the XML + hashed-password one.
package webshare

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"sharestream/internal/md5crypt"
	"sharestream/models"
)

const (
	defaultBaseURL = "https://webshare.cz/api"

	// DefaultSalt is the fixed salt Webshare applies before hashing
	// passwords client-side.
	DefaultSalt = "webshare"

	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	requestTimeout = 20 * time.Second
	loginAttempts  = 3

	stickyCookieName = "PHPSESSID"
)

// AuthError reports a failed login exchange. Message carries the upstream
// error text when the response included one.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("webshare authentication failed: %s", e.Message)
	}
	return "webshare authentication failed"
}

// Client talks to the Webshare API.
type Client struct {
	baseURL    string
	salt       string
	httpClient *http.Client
}

// NewClient constructs a client. A nil http.Client and empty baseURL/salt
// fall back to sane defaults.
func NewClient(client *http.Client, baseURL, salt string) *Client {
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	if salt == "" {
		salt = DefaultSalt
	}
	return &Client{
		baseURL:    baseURL,
		salt:       salt,
		httpClient: client,
	}
}

type loginResponse struct {
	XMLName xml.Name `xml:"response"`
	Status  string   `xml:"status"`
	Token   string   `xml:"token"`
	Message string   `xml:"message"`
}

// Login performs the login exchange and returns the access token plus the
// sticky session cookie when the upstream handed one out. A non-OK status or
// a missing token is an *AuthError; transport failures are retried a few
// times before giving up.
func (c *Client) Login(ctx context.Context, username, password string) (models.Credential, error) {
	form := url.Values{
		"username_or_email": {username},
		"password":          {md5crypt.LoginDigest(password, c.salt)},
		"keep_logged_in":    {"1"},
	}

	var cred models.Credential
	err := retry.Do(
		func() error {
			resp, err := c.postForm(ctx, "/login/", form, "")
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			if err != nil {
				return fmt.Errorf("read login response: %w", err)
			}
			// A bare <error> document is a definitive rejection, not a
			// transport failure to retry.
			if isErrorDocument(body) {
				return &AuthError{Message: errorDocumentText(body)}
			}

			var parsed loginResponse
			if err := xml.Unmarshal(body, &parsed); err != nil {
				return fmt.Errorf("decode login response: %w", err)
			}

			if parsed.Status != "OK" {
				return &AuthError{Message: strings.TrimSpace(parsed.Message)}
			}
			if parsed.Token == "" {
				return &AuthError{Message: "login returned no token"}
			}

			cred = models.Credential{AccessToken: parsed.Token}
			for _, cookie := range resp.Cookies() {
				if cookie.Name == stickyCookieName {
					cred.StickyCookie = cookie.Value
					break
				}
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(loginAttempts),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			// Bad credentials stay bad; only transport failures are retried.
			_, isAuth := err.(*AuthError)
			return !isAuth
		}),
	)
	if err != nil {
		return models.Credential{}, err
	}

	log.Printf("[webshare] login ok for %q (sticky cookie: %t)", username, cred.StickyCookie != "")
	return cred, nil
}

type searchResponse struct {
	XMLName xml.Name      `xml:"files"`
	Files   []searchEntry `xml:"file"`
}

type searchEntry struct {
	Ident        string `xml:"ident"`
	Name         string `xml:"name"`
	Type         string `xml:"type"`
	Size         int64  `xml:"size"`
	VideoQuality string `xml:"video_quality"`
	ThumbnailURL string `xml:"thumbnail_url"`
	IsTV         string `xml:"is_tv"`
}

// Search runs one full-text query against the search endpoint and returns
// the parsed file entries. An upstream error document yields an empty slice,
// matching how the endpoint signals "nothing for this query".
func (c *Client) Search(ctx context.Context, cred models.Credential, query string, limit, offset int) ([]models.FileRecord, error) {
	form := url.Values{
		"string": {query},
		"wst":    {cred.AccessToken},
		"limit":  {fmt.Sprint(limit)},
		"offset": {fmt.Sprint(offset)},
	}

	resp, err := c.postForm(ctx, "/file_search/", form, cred.StickyCookie)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if isErrorDocument(body) {
		return nil, nil
	}

	var parsed searchResponse
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	records := make([]models.FileRecord, 0, len(parsed.Files))
	for _, entry := range parsed.Files {
		if entry.Ident == "" {
			continue
		}
		records = append(records, models.FileRecord{
			Ident:        entry.Ident,
			Name:         entry.Name,
			Size:         entry.Size,
			IsSeries:     entry.IsTV == "1",
			Quality:      entry.VideoQuality,
			ThumbnailURL: entry.ThumbnailURL,
		})
	}
	return records, nil
}

type linkResponse struct {
	XMLName xml.Name `xml:"file_link"`
	Link    string   `xml:"link"`
}

// FileLink resolves a direct playback URL for the given file ident. The
// caller treats any error or empty URL as "no link for this candidate".
func (c *Client) FileLink(ctx context.Context, cred models.Credential, ident string) (string, error) {
	form := url.Values{
		"ident": {ident},
		"wst":   {cred.AccessToken},
	}

	resp, err := c.postForm(ctx, "/file_link/", form, cred.StickyCookie)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read link response: %w", err)
	}
	if isErrorDocument(body) {
		return "", nil
	}

	var parsed linkResponse
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode link response: %w", err)
	}
	return strings.TrimSpace(parsed.Link), nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, stickyCookie string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Accept", "text/xml; charset=UTF-8")
	req.Header.Set("User-Agent", userAgent)
	if stickyCookie != "" {
		req.AddCookie(&http.Cookie{Name: stickyCookieName, Value: stickyCookie})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("webshare %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

// isErrorDocument recognizes the two shapes the upstream uses for failures:
// a bare <error> document or a full HTML error page.
func isErrorDocument(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	return strings.HasPrefix(trimmed, "<error") || strings.HasPrefix(trimmed, "<!DOCTYPE")
}

// errorDocumentText extracts the message carried by an <error> document.
// Empty for HTML error pages.
func errorDocumentText(body []byte) string {
	var doc struct {
		XMLName xml.Name `xml:"error"`
		Text    string   `xml:",chardata"`
	}
	if err := xml.Unmarshal(body, &doc); err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Text)
}
