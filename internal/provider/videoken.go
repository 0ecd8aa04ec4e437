package provider

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"grebe/internal/httputil"
	"grebe/internal/jsonutil"
	"grebe/internal/media"
	"grebe/internal/walker"
)

var (
	videokenVideoRe    = regexp.MustCompile(`^/(?:(?:topic|category)/[^/]+/)?video/([\w-]+)`)
	videokenCategoryRe = regexp.MustCompile(`^/category/(\d+)/?$`)
	videokenPlaylistRe = regexp.MustCompile(`^/(?:category/\d+/)?playlist/(\d+)`)
	videokenTopicRe    = regexp.MustCompile(`^/topic/([^/]+)/?$`)
	videokenEmbedRe    = regexp.MustCompile(`^/embed/slideslive-(\d+)$`)
)

// videokenOrgs maps a hosted conference site to its organization key on
// the aggregation backend.
var videokenOrgs = map[string]string{
	"videos.icts.res.in": "icts",
	"videos.cncf.io":     "cncf",
	"videos.neurips.cc":  "neurips",
}

type videokenOrg struct {
	ID     string
	APIKey string
}

// VideoKen extracts from sites hosted on the VideoKen aggregation
// platform. The platform itself hosts nothing: every item embeds a
// YouTube or SlidesLive video, so single items always delegate to the
// native provider. Listing pages (category, topic, playlist) are walked
// lazily and yield one delegation per item.
type VideoKen struct {
	client *httputil.Client

	analyticsBase string
	searchBase    string

	// org credentials are fetched once per organization and reused by
	// every listing page.
	orgs map[string]videokenOrg
}

func NewVideoKen(client *httputil.Client) *VideoKen {
	return &VideoKen{
		client:        client,
		analyticsBase: "https://analytics.videoken.com",
		searchBase:    "https://es.videoken.com",
		orgs:          make(map[string]videokenOrg),
	}
}

func (v *VideoKen) Name() string { return "videoken" }

func (v *VideoKen) Match(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	_, ok := videokenOrgs[u.Hostname()]
	return ok || u.Hostname() == "player.videoken.com"
}

func (v *VideoKen) Extract(rawURL string) (Sequence, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing URL: %w", err)
	}

	if u.Hostname() == "player.videoken.com" {
		m := videokenEmbedRe.FindStringSubmatch(u.Path)
		if m == nil {
			return nil, media.ErrIDNotFound
		}
		id := m[1]
		return Single(media.NewDelegated("slideslive", id, slidesLiveURL("", id, rawURL))), nil
	}

	org := videokenOrgs[u.Hostname()]
	switch {
	case videokenVideoRe.MatchString(u.Path):
		id := videokenVideoRe.FindStringSubmatch(u.Path)[1]
		return v.extractVideo(org, id, rawURL)
	case videokenCategoryRe.MatchString(u.Path):
		id := videokenCategoryRe.FindStringSubmatch(u.Path)[1]
		return v.walkCategory(org, id, rawURL)
	case videokenPlaylistRe.MatchString(u.Path):
		id := videokenPlaylistRe.FindStringSubmatch(u.Path)[1]
		return v.walkPlaylist(org, id, rawURL)
	case videokenTopicRe.MatchString(u.Path):
		topic, err := url.PathUnescape(videokenTopicRe.FindStringSubmatch(u.Path)[1])
		if err != nil {
			return nil, fmt.Errorf("decoding topic: %w", err)
		}
		return v.walkTopic(org, topic, rawURL)
	}
	return nil, media.ErrIDNotFound
}

// orgDetails fetches the backend id and API key for an organization,
// caching the answer for the instance lifetime.
func (v *VideoKen) orgDetails(org string) (videokenOrg, error) {
	if details, ok := v.orgs[org]; ok {
		return details, nil
	}

	body, err := v.client.GetJSON(
		fmt.Sprintf("%s/api/videolake/%s/details", v.analyticsBase, org), nil)
	if err != nil {
		return videokenOrg{}, fmt.Errorf("downloading organization details: %w", err)
	}
	decoded, err := jsonutil.Decode(body)
	if err != nil {
		return videokenOrg{}, fmt.Errorf("%w: %v", media.ErrMalformedResponse, err)
	}

	details := videokenOrg{
		ID:     jsonutil.String(decoded, "", "id"),
		APIKey: jsonutil.String(decoded, "", "apikey"),
	}
	if details.ID == "" {
		return videokenOrg{}, fmt.Errorf("%w: no organization id", media.ErrMalformedResponse)
	}
	v.orgs[org] = details
	return details, nil
}

func (v *VideoKen) extractVideo(org, id, pageURL string) (Sequence, error) {
	details, err := v.orgDetails(org)
	if err != nil {
		return nil, err
	}

	query := url.Values{"video": {id}, "org_id": {details.ID}}
	body, err := v.client.GetJSON(
		v.analyticsBase+"/api/embedded/videodetails/?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("downloading video details: %w", err)
	}
	decoded, err := jsonutil.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", media.ErrMalformedResponse, err)
	}

	ref := delegationRef(id,
		jsonutil.String(decoded, "", "type"),
		jsonutil.String(decoded, "", "embed_url"), pageURL)
	if ref.URL == "" {
		return nil, fmt.Errorf("%w: no embed URL", media.ErrMalformedResponse)
	}
	return Single(media.NewDelegated(ref.Source, ref.ID, ref.URL)), nil
}

// walkCategory pages through a category listing. The endpoint reports
// is_last_page on every valid page; its absence means the category does
// not exist.
func (v *VideoKen) walkCategory(org, categoryID, pageURL string) (Sequence, error) {
	details, err := v.orgDetails(org)
	if err != nil {
		return nil, err
	}

	fetch := func(page int) (*media.ListingPage, error) {
		query := url.Values{
			"category_id": {categoryID},
			"page_number": {fmt.Sprint(page)},
			"length":      {"12"},
		}
		body, err := v.client.GetJSON(
			fmt.Sprintf("%s/api/videolake/%s/category_videos?%s",
				v.analyticsBase, details.ID, query.Encode()), nil)
		if err != nil {
			return nil, err
		}
		decoded, err := jsonutil.Decode(body)
		if err != nil {
			return nil, err
		}

		listing := &media.ListingPage{Items: embeddedItems(decoded, pageURL)}
		if last, ok := jsonutil.Get(decoded, "is_last_page"); ok {
			if flag, ok := last.(bool); ok {
				listing.IsLastPage = &flag
			}
		}
		return listing, nil
	}
	return walker.New(fetch, delegate), nil
}

// walkPlaylist yields a playlist's items. The endpoint is not
// paginated; the whole playlist arrives in one response.
func (v *VideoKen) walkPlaylist(org, playlistID, pageURL string) (Sequence, error) {
	details, err := v.orgDetails(org)
	if err != nil {
		return nil, err
	}

	fetch := func(page int) (*media.ListingPage, error) {
		body, err := v.client.GetJSON(
			fmt.Sprintf("%s/api/videolake/%s/playlistitems/%s/",
				v.analyticsBase, details.ID, playlistID), nil)
		if err != nil {
			return nil, err
		}
		decoded, err := jsonutil.Decode(body)
		if err != nil {
			return nil, err
		}
		last := true
		return &media.ListingPage{
			Items:      embeddedItems(decoded, pageURL),
			IsLastPage: &last,
		}, nil
	}
	return walker.New(fetch, delegate), nil
}

// walkTopic pages through full-text search results for a topic. This
// endpoint paginates by a total page count instead of a last-page flag.
func (v *VideoKen) walkTopic(org, topic, pageURL string) (Sequence, error) {
	details, err := v.orgDetails(org)
	if err != nil {
		return nil, err
	}

	searchID := base64.StdEncoding.EncodeToString(
		fmt.Appendf(nil, ":%s:%d:transient", topic, time.Now().Unix()))

	fetch := func(page int) (*media.ListingPage, error) {
		query := url.Values{
			"orgid":    {details.ID},
			"size":     {"12"},
			"query":    {topic},
			"page":     {fmt.Sprint(page)},
			"sort":     {"upload_desc"},
			"filter":   {"all"},
			"token":    {details.APIKey},
			"is_topic": {"true"},
			"category": {""},
			"searchid": {searchID},
		}
		body, err := v.client.GetJSON(
			v.searchBase+"/api/v1.0/get_results?"+query.Encode(), nil)
		if err != nil {
			return nil, err
		}
		decoded, err := jsonutil.Decode(body)
		if err != nil {
			return nil, err
		}

		var items []media.ItemRef
		for _, r := range jsonutil.Slice(decoded, "results") {
			id := jsonutil.String(r, "", "videoid")
			if id == "" {
				continue
			}
			ref := delegationRef(id,
				jsonutil.String(r, "", "source"),
				jsonutil.String(r, "", "embeddableurl"), pageURL)
			if ref.URL != "" {
				items = append(items, ref)
			}
		}
		return &media.ListingPage{
			Items:      items,
			TotalPages: jsonutil.Int(decoded, 0, "total_no_of_pages"),
		}, nil
	}
	return walker.New(fetch, delegate), nil
}

// delegate hands an already-targeted item reference straight through:
// everything on this platform resolves on a foreign provider, and a
// delegated item is never re-walked here.
func delegate(ref media.ItemRef) (media.Result, error) {
	return media.NewDelegated(ref.Source, ref.ID, ref.URL), nil
}

// embeddedItems extracts delegation references from a listing
// response's videos array. Items without a usable id or embed URL are
// dropped.
func embeddedItems(decoded any, pageURL string) []media.ItemRef {
	var items []media.ItemRef
	for _, video := range jsonutil.Slice(decoded, "videos") {
		id := jsonutil.String(video, "", "youtube_id")
		if id == "" {
			continue
		}
		ref := delegationRef(id,
			jsonutil.String(video, "", "type"),
			jsonutil.String(video, "", "embed_url"), pageURL)
		if ref.URL != "" {
			items = append(items, ref)
		}
	}
	return items
}

// delegationRef decides which foreign provider owns an embedded item.
func delegationRef(id, embedType, embedURL, pageURL string) media.ItemRef {
	if embedType == "youtube" {
		return media.ItemRef{
			ID:     id,
			URL:    "https://www.youtube.com/watch?v=" + id,
			Source: "youtube",
		}
	}
	if u, err := url.Parse(embedURL); err == nil && u.Hostname() == "slideslive.com" {
		return media.ItemRef{
			ID:     id,
			URL:    slidesLiveURL(embedURL, id, pageURL),
			Source: "slideslive",
		}
	}
	return media.ItemRef{ID: id, URL: embedURL, Source: "generic"}
}

// slidesLiveURL builds an embeddable SlidesLive URL. Sign-in walls are
// bypassed by reconstructing the public embed path; the referring page
// is carried in query parameters the embed player expects.
func slidesLiveURL(videoURL, id, referer string) string {
	if videoURL == "" || strings.Contains(videoURL, "embed/sign-in") {
		videoURL = "https://slideslive.com/embed/" + strings.TrimPrefix(id, "slideslive-")
	}
	ref, err := url.Parse(referer)
	if err != nil || ref.Host == "" {
		return videoURL
	}
	u, err := url.Parse(videoURL)
	if err != nil {
		return videoURL
	}
	q := u.Query()
	q.Set("embed_parent_url", referer)
	q.Set("embed_container_origin", "https://"+ref.Host)
	u.RawQuery = q.Encode()
	return u.String()
}
