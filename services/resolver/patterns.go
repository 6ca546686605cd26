package resolver

import (
	"fmt"
	"regexp"
	"strconv"
)

var seriesIDRegex = regexp.MustCompile(`^(tt\d+):(\d+):(\d+)$`)

// ParseSeriesID splits a composite series identifier of the form
// "tt0944947:1:1" into its IMDb id, season, and episode. ok is false for
// anything else, including non-positive season/episode numbers.
func ParseSeriesID(id string) (imdbID string, season, episode int, ok bool) {
	m := seriesIDRegex.FindStringSubmatch(id)
	if m == nil {
		return "", 0, 0, false
	}
	season, err := strconv.Atoi(m[2])
	if err != nil || season < 1 {
		return "", 0, 0, false
	}
	episode, err = strconv.Atoi(m[3])
	if err != nil || episode < 1 {
		return "", 0, 0, false
	}
	return m[1], season, episode, true
}

// EpisodePatterns enumerates the filename conventions used to mark an
// episode, from the most specific marker down to the bare episode number.
// The order matters: queries are issued in this order and the loosest
// patterns only pull weight in the fallback tier. Returns nil when either
// number is missing, which callers treat as "no series narrowing possible".
func EpisodePatterns(season, episode int) []string {
	if season < 1 || episode < 1 {
		return nil
	}

	raw := []string{
		fmt.Sprintf("S%02dE%02d", season, episode),
		fmt.Sprintf("S%dE%d", season, episode),
		fmt.Sprintf("%dx%02d", season, episode),
		fmt.Sprintf("%dx%d", season, episode),
		fmt.Sprintf("%02dx%02d", season, episode),
		fmt.Sprintf("S%02d E%02d", season, episode),
		fmt.Sprintf("%d.%02d", season, episode),
		// Webshare's catalogue is mostly Czech: "epizoda"/"díl" show up as
		// often as the English words.
		fmt.Sprintf("epizoda %d", episode),
		fmt.Sprintf("episode %d", episode),
		fmt.Sprintf("díl %d", episode),
		fmt.Sprintf("part %d", episode),
		fmt.Sprintf("E%02d", episode),
		strconv.Itoa(episode),
	}

	// Padded and unpadded forms coincide for two-digit numbers.
	seen := make(map[string]struct{}, len(raw))
	patterns := make([]string, 0, len(raw))
	for _, p := range raw {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		patterns = append(patterns, p)
	}
	return patterns
}
