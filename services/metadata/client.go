// Package metadata resolves external show identifiers to candidate display
// names via the TMDB find API. Webshare uploads are named after either the
// localized or the original title, so both are collected across locales.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.themoviedb.org/3"
	lookupTimeout  = 10 * time.Second
)

// DefaultLocales are the lookup locales used when none are configured.
// Webshare's catalogue is predominantly Czech, so cs-CZ comes first.
var DefaultLocales = []string{"cs-CZ", "en-US"}

// Client queries TMDB for display names.
type Client struct {
	baseURL    string
	apiKey     string
	locales    []string
	httpClient *http.Client
}

// NewClient constructs a TMDB client. A nil http.Client and empty
// baseURL/locales fall back to defaults.
func NewClient(client *http.Client, baseURL, apiKey string, locales []string) *Client {
	if client == nil {
		client = &http.Client{Timeout: lookupTimeout}
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if len(locales) == 0 {
		locales = DefaultLocales
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		locales:    locales,
		httpClient: client,
	}
}

type findResponse struct {
	TVResults []struct {
		Name         string `json:"name"`
		OriginalName string `json:"original_name"`
	} `json:"tv_results"`
	MovieResults []struct {
		Title         string `json:"title"`
		OriginalTitle string `json:"original_title"`
	} `json:"movie_results"`
}

// ResolveTitles returns the union of distinct non-empty display names for an
// IMDb id across all configured locales. It never fails: lookup or parse
// errors are logged and degrade to fewer (possibly zero) titles, leaving the
// caller to fall back to pattern-only search.
func (c *Client) ResolveTitles(ctx context.Context, imdbID string) []string {
	imdbID = strings.TrimSpace(imdbID)
	if imdbID == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var titles []string
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		titles = append(titles, name)
	}

	for _, locale := range c.locales {
		parsed, err := c.find(ctx, imdbID, locale)
		if err != nil {
			log.Printf("[metadata] lookup %s (%s) failed: %v", imdbID, locale, err)
			continue
		}
		for _, tv := range parsed.TVResults {
			add(tv.Name)
			add(tv.OriginalName)
		}
		for _, movie := range parsed.MovieResults {
			add(movie.Title)
			add(movie.OriginalTitle)
		}
	}

	log.Printf("[metadata] %s resolved to %d title(s)", imdbID, len(titles))
	return titles
}

func (c *Client) find(ctx context.Context, imdbID, locale string) (*findResponse, error) {
	endpoint := fmt.Sprintf("%s/find/%s?api_key=%s&external_source=imdb_id&language=%s",
		c.baseURL, url.PathEscape(imdbID), url.QueryEscape(c.apiKey), url.QueryEscape(locale))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tmdb returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed findResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode tmdb response: %w", err)
	}
	return &parsed, nil
}
