package extractor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/nijaru/yt-mp3/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const DefaultOEmbedEndpoint = "https://www.youtube.com/oembed"

// OEmbed looks metadata up through the public oEmbed endpoint. oEmbed has no
// duration, so Metadata.Duration is always zero.
type OEmbed struct {
	endpoint string
	client   *http.Client
	warnOnce sync.Once
}

func NewOEmbed(endpoint string, client *http.Client) *OEmbed {
	if endpoint == "" {
		endpoint = DefaultOEmbedEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &OEmbed{endpoint: endpoint, client: client}
}

type oembedJSON struct {
	Title      *string `json:"title"`
	AuthorName *string `json:"author_name"`
}

func (o *OEmbed) Metadata(ctx context.Context, videoID string) (*models.Metadata, error) {
	o.warnOnce.Do(func() {
		logrus.Warn("oEmbed metadata has no duration; durations will be reported as 0:00")
	})

	q := url.Values{}
	q.Set("url", WatchURL(videoID))
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "building oEmbed request")
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "oEmbed request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, errors.Errorf("oEmbed returned status %d", resp.StatusCode)
	}

	var data oembedJSON
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&data); err != nil {
		return nil, errors.Wrap(err, "decoding oEmbed response")
	}
	if data.Title == nil || *data.Title == "" {
		return nil, errors.New("oEmbed response has no title")
	}

	meta := &models.Metadata{
		VideoID:   videoID,
		Title:     *data.Title,
		Thumbnail: ThumbnailURL(videoID),
	}
	if data.AuthorName != nil {
		meta.Channel = *data.AuthorName
	}
	return meta, nil
}

var _ MetadataProvider = (*OEmbed)(nil)
