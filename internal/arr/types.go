package arr

import (
	"bytes"
	"strings"

	json "github.com/goccy/go-json"
)

// SystemStatus is the identity block returned by GET /system/status.
type SystemStatus struct {
	AppName      string `json:"appName"`
	InstanceName string `json:"instanceName"`
	Version      string `json:"version"`
}

// QualityProfile is one entry from GET /qualityprofile.
type QualityProfile struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Tag is one entry from GET /tag.
type Tag struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

// Language is the {id,name} pair arr servers attach to language metadata.
type Language struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// OriginalLanguage absorbs the shapes servers emit for original-language
// metadata: an {id,name} object, a bare code string, or null.
type OriginalLanguage struct {
	ID   int
	Name string
	Code string
}

func (o *OriginalLanguage) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*o = OriginalLanguage{}
		return nil
	}
	if trimmed[0] == '"' {
		var code string
		if err := json.Unmarshal(trimmed, &code); err != nil {
			return err
		}
		*o = OriginalLanguage{Code: strings.TrimSpace(code)}
		return nil
	}
	var obj struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}
	*o = OriginalLanguage{ID: obj.ID, Name: strings.TrimSpace(obj.Name)}
	return nil
}

// MarshalJSON writes the value back in the shape it arrived in.
func (o OriginalLanguage) MarshalJSON() ([]byte, error) {
	if o.Code != "" && o.ID == 0 && o.Name == "" {
		return json.Marshal(o.Code)
	}
	return json.Marshal(struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}{ID: o.ID, Name: o.Name})
}

// Value returns the identifier used for classification: the bare code when
// the server sent one, otherwise the name. Empty when the server sent
// nothing usable.
func (o OriginalLanguage) Value() string {
	if o.Code != "" {
		return o.Code
	}
	return o.Name
}

// Known reports whether the server provided classifiable language identity.
// A numeric ID alone does not count; classification works on names and codes.
func (o OriginalLanguage) Known() bool {
	return o.Code != "" || o.Name != ""
}

// MediaInfo is the media-analysis block on movie and episode files.
// AudioLanguages is a slash-separated list such as "English / German".
type MediaInfo struct {
	AudioLanguages string `json:"audioLanguages"`
}

// MovieFile is the file block attached to a downloaded movie.
type MovieFile struct {
	ID        int64      `json:"id"`
	MediaInfo *MediaInfo `json:"mediaInfo,omitempty"`
	Languages []Language `json:"languages,omitempty"`
}

// AudioMediaInfo returns the slash-separated audio language string, empty
// when the file has no analysis block.
func (f MovieFile) AudioMediaInfo() string {
	if f.MediaInfo == nil {
		return ""
	}
	return f.MediaInfo.AudioLanguages
}

// Image is a remote artwork reference.
type Image struct {
	CoverType string `json:"coverType"`
	URL       string `json:"url,omitempty"`
	RemoteURL string `json:"remoteUrl,omitempty"`
}

// Movie is the subset of Radarr's movie payload the engine reads. Mutations
// go through Radarr.UpdateMovie, which round-trips the raw document so
// fields this struct does not model survive the PUT.
type Movie struct {
	ID               int64            `json:"id"`
	Title            string           `json:"title"`
	Monitored        bool             `json:"monitored"`
	OriginalLanguage OriginalLanguage `json:"originalLanguage"`
	QualityProfileID int              `json:"qualityProfileId"`
	Tags             []int            `json:"tags"`
	HasFile          bool             `json:"hasFile"`
	MovieFile        *MovieFile       `json:"movieFile,omitempty"`
	TmdbID           int64            `json:"tmdbId"`
	Images           []Image          `json:"images,omitempty"`
}

// SeriesStatistics carries the aggregate counts Sonarr attaches to a series.
type SeriesStatistics struct {
	EpisodeFileCount int `json:"episodeFileCount"`
}

// Series is the subset of Sonarr's series payload the engine reads.
type Series struct {
	ID               int64             `json:"id"`
	Title            string            `json:"title"`
	Monitored        bool              `json:"monitored"`
	OriginalLanguage OriginalLanguage  `json:"originalLanguage"`
	QualityProfileID int               `json:"qualityProfileId"`
	Tags             []int             `json:"tags"`
	TvdbID           int64             `json:"tvdbId"`
	TmdbID           int64             `json:"tmdbId"`
	Images           []Image           `json:"images,omitempty"`
	Statistics       *SeriesStatistics `json:"statistics,omitempty"`
}

// HasFiles reports whether Sonarr knows of any downloaded episode files.
func (s Series) HasFiles() bool {
	return s.Statistics != nil && s.Statistics.EpisodeFileCount > 0
}

// EpisodeFile is one entry from GET /episodefile?seriesId=.
type EpisodeFile struct {
	ID        int64      `json:"id"`
	SeriesID  int64      `json:"seriesId"`
	MediaInfo *MediaInfo `json:"mediaInfo,omitempty"`
	Languages []Language `json:"languages,omitempty"`
}

// AudioMediaInfo returns the slash-separated audio language string, empty
// when the file has no analysis block.
func (f EpisodeFile) AudioMediaInfo() string {
	if f.MediaInfo == nil {
		return ""
	}
	return f.MediaInfo.AudioLanguages
}

// LanguageNames flattens a {id,name} list into its non-empty names.
func LanguageNames(langs []Language) []string {
	names := make([]string, 0, len(langs))
	for _, l := range langs {
		if name := strings.TrimSpace(l.Name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// PosterURL picks the poster artwork from an image list, preferring the
// remote URL over the proxied one.
func PosterURL(images []Image) string {
	for _, img := range images {
		if strings.EqualFold(img.CoverType, "poster") {
			if img.RemoteURL != "" {
				return img.RemoteURL
			}
			return img.URL
		}
	}
	return ""
}

type searchCommand struct {
	Name     string  `json:"name"`
	MovieIDs []int64 `json:"movieIds,omitempty"`
	SeriesID int64   `json:"seriesId,omitempty"`
}
