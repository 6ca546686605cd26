// Package handlers exposes the resolution pipeline over the addon HTTP
// protocol a media-player runtime consumes: a manifest, a search catalog,
// and a stream endpoint. Routes carry the session token as a path segment so
// players can use plain GET URLs.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"

	"sharestream/models"
	"sharestream/services/resolver"
	"sharestream/services/sessions"
	"sharestream/services/webshare"
)

const (
	manifestID      = "cz.webshare.stream"
	manifestVersion = "2.0.0"
	catalogID       = "webshare-search"

	// searchLimit is the upstream paging limit for catalog searches.
	searchLimit = 100

	// filePrefix marks stream ids minted by the catalog handler.
	filePrefix = "ws_"
)

// AddonHandler serves the manifest, catalog, and stream endpoints.
type AddonHandler struct {
	sessions *sessions.Service
	webshare *webshare.Client
	resolver *resolver.Service
}

// NewAddonHandler creates the addon handler.
func NewAddonHandler(sessionsSvc *sessions.Service, webshareClient *webshare.Client, resolverSvc *resolver.Service) *AddonHandler {
	return &AddonHandler{
		sessions: sessionsSvc,
		webshare: webshareClient,
		resolver: resolverSvc,
	}
}

// Manifest describes the addon to the player runtime.
func (h *AddonHandler) Manifest(w http.ResponseWriter, r *http.Request) {
	manifest := map[string]any{
		"id":          manifestID,
		"version":     manifestVersion,
		"name":        "Webshare Stream",
		"description": "Resolves movies and episodes to Webshare premium links",
		"resources":   []string{"catalog", "stream"},
		"types":       []string{"movie", "series"},
		"catalogs": []map[string]any{{
			"type": "movie",
			"id":   catalogID,
			"name": "Search Webshare",
			"extra": []map[string]any{{
				"name":       "search",
				"isRequired": true,
			}},
		}},
	}
	writeJSON(w, http.StatusOK, manifest)
}

// meta is one catalog entry.
type meta struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Poster      string `json:"poster,omitempty"`
	Description string `json:"description,omitempty"`
}

// Catalog serves free-text search results as metas. A missing or expired
// session yields an empty catalog, not an error.
func (h *AddonHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.credential(r)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"metas": []meta{}})
		return
	}

	query := searchExtra(mux.Vars(r)["extra"])
	if query == "" {
		writeJSON(w, http.StatusOK, map[string]any{"metas": []meta{}})
		return
	}

	files, err := h.webshare.Search(r.Context(), cred, query, searchLimit, 0)
	if err != nil {
		log.Printf("[addon] catalog search %q failed: %v", query, err)
		files = nil
	}

	metas := make([]meta, 0, len(files))
	for _, file := range files {
		metas = append(metas, fileMeta(file))
	}
	writeJSON(w, http.StatusOK, map[string]any{"metas": metas})
}

func fileMeta(file models.FileRecord) meta {
	kind := "movie"
	if file.IsSeries {
		kind = "series"
	}
	description := ""
	if file.Quality != "" || file.Size > 0 {
		description = strings.TrimSpace(fmt.Sprintf("%s %.1f MB", file.Quality, float64(file.Size)/(1024*1024)))
	}
	return meta{
		ID:          filePrefix + file.Ident,
		Type:        kind,
		Name:        file.Name,
		Poster:      file.ThumbnailURL,
		Description: description,
	}
}

// streamItem is one playable link in a stream response.
type streamItem struct {
	Title         string         `json:"title"`
	URL           string         `json:"url"`
	BehaviorHints map[string]any `json:"behaviorHints,omitempty"`
}

// Stream resolves an addon stream request. Accepted ids: a composite series
// identifier ("tt0944947:1:1"), a catalog file id ("ws_<ident>"), or a bare
// movie title. Anything unresolvable yields an empty stream list.
func (h *AddonHandler) Stream(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.credential(r)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"streams": []streamItem{}})
		return
	}

	id := strings.TrimSuffix(mux.Vars(r)["id"], ".json")
	if unescaped, err := url.PathUnescape(id); err == nil {
		id = unescaped
	}

	streams := h.resolveStreams(r.Context(), cred, id)
	items := make([]streamItem, 0, len(streams))
	for _, s := range streams {
		items = append(items, streamItem{
			Title:         s.Title,
			URL:           s.URL,
			BehaviorHints: map[string]any{"notWebReady": true},
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"streams": items})
}

func (h *AddonHandler) resolveStreams(ctx context.Context, cred models.Credential, id string) []models.Stream {
	switch {
	case strings.HasPrefix(id, filePrefix):
		ident := strings.TrimPrefix(id, filePrefix)
		link, err := h.webshare.FileLink(ctx, cred, ident)
		if err != nil || link == "" {
			if err != nil {
				log.Printf("[addon] link for %s failed: %v", ident, err)
			}
			return nil
		}
		return []models.Stream{{Title: "Webshare Premium", URL: link}}

	default:
		if imdbID, season, episode, ok := resolver.ParseSeriesID(id); ok {
			return h.resolver.ResolveSeries(ctx, cred, imdbID, season, episode)
		}
		if strings.HasPrefix(id, "tt") {
			// A bare IMDb movie id carries no searchable text.
			return nil
		}
		return h.resolver.ResolveMovie(ctx, cred, id)
	}
}

// credential loads the Webshare credential for the session token in the
// route. A store miss is terminal for the request.
func (h *AddonHandler) credential(r *http.Request) (models.Credential, bool) {
	token := mux.Vars(r)["token"]
	if token == "" {
		return models.Credential{}, false
	}
	return h.sessions.Get(token)
}

// searchExtra pulls the search term out of the catalog extra segment
// ("search=game of thrones").
func searchExtra(extra string) string {
	extra = strings.TrimSuffix(extra, ".json")
	if unescaped, err := url.PathUnescape(extra); err == nil {
		extra = unescaped
	}
	for _, part := range strings.Split(extra, "&") {
		if value, found := strings.CutPrefix(part, "search="); found {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[addon] write response: %v", err)
	}
}
