// Package resolver turns a loosely-specified media request (a movie title
// or an IMDb id plus season/episode) into playable Webshare links. The
// upstream only offers coarse full-text search, so the series path fans one
// query out per (title, pattern) candidate pair, classifies the hits into a
// strict and a fallback tier, deduplicates, ranks by size, and resolves a
// direct link per surviving candidate.
package resolver

import (
	"context"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"sharestream/models"
	"sharestream/utils/match"
)

const (
	// fallbackCap bounds the fallback tier before ranking; the loose
	// patterns at the tail of the catalog would otherwise flood it.
	fallbackCap = 15

	// movieCap bounds the movie working set, mirroring the fallback cap.
	movieCap = 15

	defaultSearchLimit = 100
	defaultConcurrency = 4
	defaultTimeout     = 45 * time.Second
)

// videoExtensions is the fixed allow-list used to keep only playable files.
var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".mkv":  {},
	".avi":  {},
	".mov":  {},
	".webm": {},
	".ts":   {},
}

// IsVideoFile reports whether the filename carries a known video extension.
func IsVideoFile(name string) bool {
	_, ok := videoExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// SearchClient is the upstream surface the orchestrator needs: one search
// call per query and one link-resolution call per candidate.
type SearchClient interface {
	Search(ctx context.Context, cred models.Credential, query string, limit, offset int) ([]models.FileRecord, error)
	FileLink(ctx context.Context, cred models.Credential, ident string) (string, error)
}

// TitleResolver supplies candidate display names for an external show id.
type TitleResolver interface {
	ResolveTitles(ctx context.Context, imdbID string) []string
}

// Service orchestrates one resolution request end to end. It holds no
// per-request state; every call is independent.
type Service struct {
	search      SearchClient
	titles      TitleResolver
	concurrency int
	searchLimit int
	timeout     time.Duration
}

// NewService constructs an orchestrator. Non-positive concurrency or timeout
// fall back to defaults.
func NewService(search SearchClient, titles TitleResolver, concurrency int, timeout time.Duration) *Service {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{
		search:      search,
		titles:      titles,
		concurrency: concurrency,
		searchLimit: defaultSearchLimit,
		timeout:     timeout,
	}
}

// Request describes one resolution request. Either MovieTitle is set, or
// ShowID plus positive Season/Episode are.
type Request struct {
	MovieTitle string
	ShowID     string
	Season     int
	Episode    int
}

// Resolve dispatches by request shape. A request missing its required
// identifiers yields an empty result without any network call. Failures
// inside the pipeline degrade to fewer (possibly zero) streams; an empty
// result is a normal outcome, not an error.
func (s *Service) Resolve(ctx context.Context, cred models.Credential, req Request) []models.Stream {
	switch {
	case strings.TrimSpace(req.MovieTitle) != "":
		return s.ResolveMovie(ctx, cred, req.MovieTitle)
	case strings.TrimSpace(req.ShowID) != "" && req.Season >= 1 && req.Episode >= 1:
		return s.ResolveSeries(ctx, cred, req.ShowID, req.Season, req.Episode)
	default:
		return nil
	}
}

// ResolveMovie runs the movie path: a single search for the requested title,
// filtered to video files whose name contains the title. Movies have no
// episode pattern, so there is no fallback tier.
func (s *Service) ResolveMovie(ctx context.Context, cred models.Credential, title string) []models.Stream {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reqID := shortID()
	candidates := titleVariants([]string{title})

	batch, err := s.search.Search(ctx, cred, title, s.searchLimit, 0)
	if err != nil {
		log.Printf("[resolver] %s movie query %q failed: %v", reqID, title, err)
		return nil
	}
	log.Printf("[resolver] %s movie query %q hits=%d", reqID, title, len(batch))

	var working []models.FileRecord
	for _, rec := range batch {
		if !IsVideoFile(rec.Name) {
			continue
		}
		if !match.MatchesTitle(rec.Name, candidates) {
			continue
		}
		working = append(working, rec)
		if len(working) == movieCap {
			break
		}
	}

	working = dedupe(working)
	rank(working)
	return s.resolveLinks(ctx, cred, working, reqID)
}

// searchPair is one (title, pattern) candidate combination. An empty title
// marks a pattern-only query, used when title resolution came back empty.
type searchPair struct {
	title   string
	pattern string
}

func (p searchPair) query() string {
	return strings.TrimSpace(p.title + " " + p.pattern)
}

// ResolveSeries runs the series path: title×pattern fan-out, two-tier
// matching, dedup, ranking, link resolution.
func (s *Service) ResolveSeries(ctx context.Context, cred models.Credential, imdbID string, season, episode int) []models.Stream {
	imdbID = strings.TrimSpace(imdbID)
	patterns := EpisodePatterns(season, episode)
	if imdbID == "" || len(patterns) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reqID := shortID()
	titles := titleVariants(s.titles.ResolveTitles(ctx, imdbID))

	var pairs []searchPair
	if len(titles) == 0 {
		log.Printf("[resolver] %s no titles for %s, using pattern-only search", reqID, imdbID)
		for _, p := range patterns {
			pairs = append(pairs, searchPair{pattern: p})
		}
	} else {
		for _, t := range titles {
			for _, p := range patterns {
				pairs = append(pairs, searchPair{title: t, pattern: p})
			}
		}
	}

	// Fan out one search per pair with a bounded pool. Batches are indexed
	// by pair so the merge below walks them in enumeration order: tier
	// membership stays independent of completion order, and encounter order
	// (which breaks ranking ties) is deterministic.
	batches := make([][]models.FileRecord, len(pairs))
	workers := pool.New().WithMaxGoroutines(s.concurrency)
	for i, pr := range pairs {
		workers.Go(func() {
			query := pr.query()
			batch, err := s.search.Search(ctx, cred, query, s.searchLimit, 0)
			if err != nil {
				// One query failing must never abort the rest of the fan-out.
				log.Printf("[resolver] %s query %q failed: %v", reqID, query, err)
				return
			}
			log.Printf("[resolver] %s query %q hits=%d", reqID, query, len(batch))
			batches[i] = batch
		})
	}
	workers.Wait()

	var strict, fallback []models.FileRecord
	for i, batch := range batches {
		pr := pairs[i]
		for _, rec := range batch {
			if !IsVideoFile(rec.Name) {
				continue
			}
			if strictMatch(rec.Name, pr) {
				strict = append(strict, rec)
			}
			if len(fallback) < fallbackCap && fallbackMatch(rec.Name, titles, patterns) {
				fallback = append(fallback, rec)
			}
		}
	}

	working := strict
	if len(working) == 0 {
		log.Printf("[resolver] %s strict tier empty, using fallback tier (%d)", reqID, len(fallback))
		working = fallback
	}

	working = dedupe(working)
	if len(working) == 0 {
		log.Printf("[resolver] %s no matching files for %s S%02dE%02d", reqID, imdbID, season, episode)
		return nil
	}

	rank(working)
	return s.resolveLinks(ctx, cred, working, reqID)
}

// strictMatch requires the filename to contain both halves of the exact
// candidate pair that produced the query.
func strictMatch(name string, pr searchPair) bool {
	if pr.title == "" {
		return match.MatchesPattern(name, []string{pr.pattern})
	}
	return match.Matches(name, []string{pr.title}, []string{pr.pattern})
}

// fallbackMatch checks pattern and title containment independently across
// the full candidate sets, trading precision for recall.
func fallbackMatch(name string, titles, patterns []string) bool {
	if !match.MatchesPattern(name, patterns) {
		return false
	}
	if len(titles) == 0 {
		return true
	}
	return match.MatchesTitle(name, titles)
}

// resolveLinks resolves a direct URL per ranked candidate with the same
// bounded-concurrency discipline as the search fan-out. Results are indexed
// back into rank order; candidates that fail to resolve are dropped.
func (s *Service) resolveLinks(ctx context.Context, cred models.Credential, ranked []models.FileRecord, reqID string) []models.Stream {
	if len(ranked) == 0 {
		return nil
	}

	links := make([]string, len(ranked))
	workers := pool.New().WithMaxGoroutines(s.concurrency)
	for i, rec := range ranked {
		workers.Go(func() {
			link, err := s.search.FileLink(ctx, cred, rec.Ident)
			if err != nil {
				log.Printf("[resolver] %s link for %s failed: %v", reqID, rec.Ident, err)
				return
			}
			links[i] = link
		})
	}
	workers.Wait()

	streams := make([]models.Stream, 0, len(ranked))
	for i, rec := range ranked {
		if links[i] == "" {
			continue
		}
		streams = append(streams, models.Stream{
			Title: rec.Name,
			URL:   links[i],
			Size:  rec.Size,
		})
	}
	log.Printf("[resolver] %s resolved %d of %d ranked candidates", reqID, len(streams), len(ranked))
	return streams
}

// dedupe collapses records by ident. The last-seen instance wins (field
// presence varies across query batches) while the first-seen position is
// kept so ranking ties stay stable.
func dedupe(records []models.FileRecord) []models.FileRecord {
	index := make(map[string]int, len(records))
	out := make([]models.FileRecord, 0, len(records))
	for _, rec := range records {
		if at, seen := index[rec.Ident]; seen {
			out[at] = rec
			continue
		}
		index[rec.Ident] = len(out)
		out = append(out, rec)
	}
	return out
}

// rank orders candidates by descending size. Records without a size sort
// as zero; equal sizes keep encounter order.
func rank(records []models.FileRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Size > records[j].Size
	})
}

// titleVariants expands titles with their ASCII transliterations, since
// uploads are named both with and without Czech diacritics. Deduplicated,
// first-seen order preserved.
func titleVariants(titles []string) []string {
	seen := make(map[string]struct{}, len(titles)*2)
	out := make([]string, 0, len(titles)*2)
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	for _, t := range titles {
		add(t)
		add(match.Transliterate(t))
	}
	return out
}

func shortID() string {
	return uuid.NewString()[:8]
}
