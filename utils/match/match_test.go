package match

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase", "The Office", "theoffice"},
		{"dots", "The.Office", "theoffice"},
		{"mixed separators", "game.of_thrones - S01E01", "gameofthroness01e01"},
		{"diacritics", "Příliš žluťoučký kůň", "priliszlutouckykun"},
		{"already normalized", "inception", "inception"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"The.Office", "Příliš žluťoučký kůň", "Game of Thrones S01E01", "x"}
	for _, s := range inputs {
		once := Normalize(s)
		if twice := Normalize(once); twice != once {
			t.Fatalf("Normalize not idempotent for %q: %q vs %q", s, once, twice)
		}
	}
}

func TestNormalizeSeparatorInsensitive(t *testing.T) {
	if Normalize("The.Office") != Normalize("the office") {
		t.Fatalf("expected %q == %q", Normalize("The.Office"), Normalize("the office"))
	}
	if Normalize("the-office") != Normalize("the_office") {
		t.Fatal("dash and underscore should normalize identically")
	}
}

func TestMatches(t *testing.T) {
	titles := []string{"Game of Thrones"}
	patterns := []string{"S01E01", "1x1"}

	tests := []struct {
		name     string
		filename string
		want     bool
	}{
		{"dotted release name", "game.of.thrones.s01e01.mkv", true},
		{"alternate pattern", "Game of Thrones 1x1 CZ.avi", true},
		{"pattern without title", "got.s01e01.mkv", false},
		{"title without pattern", "game.of.thrones.trailer.mkv", false},
		{"unrelated file", "readme.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.filename, titles, patterns); got != tt.want {
				t.Fatalf("Matches(%q) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestMatchesVariants(t *testing.T) {
	if !MatchesPattern("got.s01e01.mkv", []string{"S01E01"}) {
		t.Fatal("expected pattern-only match")
	}
	if MatchesTitle("got.s01e01.mkv", []string{"Game of Thrones"}) {
		t.Fatal("unexpected title match")
	}
	if !MatchesTitle("hra.o.truny.s01e01.mkv", []string{"Hra o trůny"}) {
		t.Fatal("expected diacritics-insensitive title match")
	}
	if MatchesPattern("anything.mkv", nil) {
		t.Fatal("empty pattern set must never match")
	}
}

func TestTransliterate(t *testing.T) {
	if got := Transliterate("Hra o trůny"); got != "Hra o truny" {
		t.Fatalf("Transliterate = %q, want %q", got, "Hra o truny")
	}
}
