package overseerr

import (
	"strconv"
	"strings"
)

// Media types as Overseerr reports them on webhooks and expects them back
// in request updates.
const (
	MediaTypeMovie = "movie"
	MediaTypeTV    = "tv"
)

// Webhook notification types that warrant a reconciliation pass. Everything
// else is acknowledged and dropped.
const (
	NotificationMediaPending      = "MEDIA_PENDING"
	NotificationMediaAutoApproved = "MEDIA_AUTO_APPROVED"
)

// Status identifies the remote Overseerr build, returned by GET /status.
type Status struct {
	Version string `json:"version"`
}

// RequestType is Overseerr's request discriminator. The API has carried
// both the numeric enum and its string form across versions, so both
// shapes decode.
type RequestType int

// Known request types. Anything unrecognized is treated as a series
// request downstream.
const (
	RequestTypeMovie RequestType = 1
	RequestTypeTV    RequestType = 2
)

func (t *RequestType) UnmarshalJSON(data []byte) error {
	text := strings.Trim(strings.TrimSpace(string(data)), `"`)
	switch text {
	case "", "null":
		*t = 0
	case MediaTypeMovie:
		*t = RequestTypeMovie
	case MediaTypeTV:
		*t = RequestTypeTV
	default:
		n, err := strconv.Atoi(text)
		if err != nil {
			*t = 0
			return nil
		}
		*t = RequestType(n)
	}
	return nil
}

// Request is one entry from the pending-request list.
type Request struct {
	ID        int64       `json:"id"`
	Type      RequestType `json:"type"`
	ProfileID int         `json:"profileId"`
	ServerID  int         `json:"serverId"`
	Seasons   []Season    `json:"seasons"`
	Media     Media       `json:"media"`
}

// MediaType maps the request discriminator to the media type string the
// rest of the API speaks. Type 1 is a movie request, everything else a
// series request.
func (r Request) MediaType() string {
	if r.Type == RequestTypeMovie {
		return MediaTypeMovie
	}
	return MediaTypeTV
}

// Season is one requested season on a series request.
type Season struct {
	ID           int64 `json:"id"`
	SeasonNumber int   `json:"seasonNumber"`
	Status       int   `json:"status"`
}

// SeasonNumbers extracts the season numbers from a request's season list,
// the shape PUT /request/{id} expects back.
func SeasonNumbers(seasons []Season) []int {
	if len(seasons) == 0 {
		return nil
	}
	numbers := make([]int, 0, len(seasons))
	for _, season := range seasons {
		numbers = append(numbers, season.SeasonNumber)
	}
	return numbers
}

// Media is the library record attached to a request.
type Media struct {
	ID     int64  `json:"id"`
	TmdbID int64  `json:"tmdbId"`
	TvdbID int64  `json:"tvdbId"`
	Status int    `json:"status"`
	Title  string `json:"title"`
}

// MediaDetails is the slice of Overseerr's cached TMDB metadata the engine
// needs: the original language plus something printable.
type MediaDetails struct {
	ID               int64  `json:"id"`
	Title            string `json:"title"`
	Name             string `json:"name"`
	OriginalLanguage string `json:"originalLanguage"`
}

// DisplayTitle returns the movie title or, for series metadata, the name.
func (d MediaDetails) DisplayTitle() string {
	if d.Title != "" {
		return d.Title
	}
	return d.Name
}

// Profile is a quality profile as mirrored by Overseerr for one of its
// configured servers.
type Profile struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ExternalID tolerates Overseerr's webhook templating, which renders ids
// as JSON strings while the REST API sends plain numbers. Unparseable
// values decode to zero and are treated as absent.
type ExternalID int64

func (id *ExternalID) UnmarshalJSON(data []byte) error {
	text := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if text == "" || text == "null" {
		*id = 0
		return nil
	}
	parsed, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		*id = 0
		return nil
	}
	*id = ExternalID(parsed)
	return nil
}

// WebhookPayload is the body Overseerr posts to notification webhooks.
type WebhookPayload struct {
	NotificationType string          `json:"notification_type"`
	Media            *WebhookMedia   `json:"media"`
	Request          *WebhookRequest `json:"request"`
}

// WebhookMedia identifies the media a webhook notification is about.
type WebhookMedia struct {
	MediaType string     `json:"media_type"`
	TmdbID    ExternalID `json:"tmdbId"`
	TvdbID    ExternalID `json:"tvdbId"`
	Status    string     `json:"status"`
}

// WebhookRequest carries the request reference on request-driven webhooks.
type WebhookRequest struct {
	RequestID ExternalID `json:"request_id"`
}
