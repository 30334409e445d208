package arr_test

import (
	"testing"

	json "github.com/goccy/go-json"

	"langarr/internal/arr"
)

func TestOriginalLanguageShapes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		value   string
		known   bool
	}{
		{"object with name", `{"originalLanguage":{"id":2,"name":"German"}}`, "German", true},
		{"bare code string", `{"originalLanguage":"de"}`, "de", true},
		{"null", `{"originalLanguage":null}`, "", false},
		{"absent", `{}`, "", false},
		{"object id only", `{"originalLanguage":{"id":2}}`, "", false},
		{"empty name trimmed", `{"originalLanguage":{"id":2,"name":"  "}}`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var movie arr.Movie
			if err := json.Unmarshal([]byte(tt.payload), &movie); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got := movie.OriginalLanguage.Value(); got != tt.value {
				t.Errorf("Value() = %q, want %q", got, tt.value)
			}
			if got := movie.OriginalLanguage.Known(); got != tt.known {
				t.Errorf("Known() = %v, want %v", got, tt.known)
			}
		})
	}
}

func TestOriginalLanguageMarshalRoundTrip(t *testing.T) {
	for _, payload := range []string{
		`{"id":2,"name":"German"}`,
		`"de"`,
	} {
		var lang arr.OriginalLanguage
		if err := json.Unmarshal([]byte(payload), &lang); err != nil {
			t.Fatalf("unmarshal %q: %v", payload, err)
		}
		out, err := json.Marshal(lang)
		if err != nil {
			t.Fatalf("marshal %q: %v", payload, err)
		}
		if string(out) != payload {
			t.Errorf("round trip of %q produced %q", payload, string(out))
		}
	}
}

func TestLanguageNames(t *testing.T) {
	names := arr.LanguageNames([]arr.Language{
		{ID: 1, Name: "English"},
		{ID: 2, Name: "  "},
		{ID: 4, Name: "German"},
	})
	if len(names) != 2 || names[0] != "English" || names[1] != "German" {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestSeriesHasFiles(t *testing.T) {
	var s arr.Series
	if s.HasFiles() {
		t.Fatal("series without statistics must report no files")
	}
	s.Statistics = &arr.SeriesStatistics{EpisodeFileCount: 0}
	if s.HasFiles() {
		t.Fatal("zero episode files must report no files")
	}
	s.Statistics.EpisodeFileCount = 3
	if !s.HasFiles() {
		t.Fatal("expected files")
	}
}

func TestPosterURLFallsBackToLocalURL(t *testing.T) {
	images := []arr.Image{
		{CoverType: "fanart", RemoteURL: "https://img/fanart.jpg"},
		{CoverType: "poster", URL: "/MediaCover/12/poster.jpg"},
	}
	if got := arr.PosterURL(images); got != "/MediaCover/12/poster.jpg" {
		t.Fatalf("PosterURL = %q", got)
	}
	if got := arr.PosterURL(nil); got != "" {
		t.Fatalf("PosterURL(nil) = %q", got)
	}
}
