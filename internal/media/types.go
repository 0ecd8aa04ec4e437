// Package media defines shared types for the grebe extraction pipeline.
package media

// Protocol identifies how a format's URL is fetched.
type Protocol string

const (
	ProtocolHTTP Protocol = "https"       // progressive download
	ProtocolHLS  Protocol = "m3u8_native" // HTTP Live Streaming
	ProtocolDASH Protocol = "dash"        // MPEG-DASH
	ProtocolISM  Protocol = "ism"         // Microsoft Smooth Streaming
	ProtocolHDS  Protocol = "f4m"         // Adobe HTTP Dynamic Streaming
)

// Format is one concrete encoded rendition of a media item.
type Format struct {
	ID       string   // e.g. "HLS-720", "MPEG_DASH"
	URL      string   // resolvable stream or manifest URL, never empty
	Ext      string   // container extension, e.g. "mp4"
	Protocol Protocol // delivery protocol tag
	Language string   // language tag when the source declared one
	Height   int      // vertical resolution, 0 when unknown
	Bitrate  int      // bits per second, 0 when unknown
}

// SubtitleTrack is one subtitle file reference.
type SubtitleTrack struct {
	URL   string
	Label string // display label, may be empty
}

// Descriptor is the provider-agnostic result of resolving one item.
// It is immutable after construction; the caller owns it.
type Descriptor struct {
	ID          string
	Title       string
	Description string
	Thumbnail   string
	Duration    float64 // seconds
	Formats     []Format
	Subtitles   map[string][]SubtitleTrack // language -> tracks

	// Episodic metadata, empty for standalone items.
	Series  string
	Season  string
	Episode int
}

// ItemRef points at one item discovered in a listing, before resolution.
type ItemRef struct {
	ID  string
	URL string
	// Source names the provider the item natively belongs to. Empty
	// means the host provider resolves it itself.
	Source string
}

// ListingPage is one page of a paginated listing response. It is
// transient: the walker discards it after yielding its items.
type ListingPage struct {
	Items []ItemRef
	// IsLastPage is nil when the endpoint did not report the flag at all.
	IsLastPage *bool
	// TotalPages is 0 when the endpoint paginates by IsLastPage instead.
	TotalPages int
}
