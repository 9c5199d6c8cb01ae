package mlxscraper

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	cache "github.com/patrickmn/go-cache"
	"github.com/underlx/servicealerts/scraper"
	"github.com/underlx/servicealerts/types"
)

// RSSScraper is a notice scraper for the Metro de Lisboa website
// It reads the RSS feed from the official website
type RSSScraper struct {
	log        *log.Logger
	fp         *gofeed.Parser
	fetchCache *cache.Cache

	URL string
	// CacheTTL is how long a successful fetch is reused for. Zero disables caching
	CacheTTL time.Duration
}

var _ scraper.DisruptionScraper = (*RSSScraper)(nil)

// ID returns the ID of this scraper
func (sc *RSSScraper) ID() string {
	return "sc-pt-ml-rss"
}

// Init initializes the scraper
func (sc *RSSScraper) Init(log *log.Logger) {
	sc.log = log
	sc.fp = gofeed.NewParser()
	sc.fetchCache = cache.New(sc.CacheTTL, 10*time.Minute)
}

// Fetch returns the items currently in the feed
func (sc *RSSScraper) Fetch(ctx context.Context) ([]types.ExternalDisruptionData, error) {
	if sc.CacheTTL > 0 {
		if items, present := sc.fetchCache.Get(sc.URL); present {
			return items.([]types.ExternalDisruptionData), nil
		}
	}

	feed, err := sc.fp.ParseURLWithContext(sc.URL, ctx)
	if err != nil {
		return nil, err
	}

	items, err := sc.itemsFromFeed(feed)
	if err != nil {
		return nil, err
	}
	if sc.CacheTTL > 0 {
		sc.fetchCache.SetDefault(sc.URL, items)
	}
	return items, nil
}

func (sc *RSSScraper) itemsFromFeed(feed *gofeed.Feed) ([]types.ExternalDisruptionData, error) {
	if feed == nil {
		return nil, errors.New("itemsFromFeed: nil feed")
	}

	feedItems := []types.FeedItem{}
	for _, item := range feed.Items {
		guid := item.GUID
		if guid == "" {
			guid = item.Link
		}
		if guid == "" {
			sc.log.Println("Skipping feed item without GUID or link:", item.Title)
			continue
		}

		fi := types.FeedItem{
			GUID:        guid,
			Title:       strings.TrimSpace(item.Title),
			Description: sc.adaptPostBody(item.Description),
			URL:         item.Link,
			Categories:  item.Categories,
		}
		if fi.Description == "" {
			fi.Description = sc.adaptPostBody(item.Content)
		}
		if item.PublishedParsed != nil {
			fi.Published = item.PublishedParsed.UTC()
		}
		if item.UpdatedParsed != nil {
			fi.Updated = item.UpdatedParsed.UTC()
		} else if feed.UpdatedParsed != nil {
			fi.Updated = feed.UpdatedParsed.UTC()
		}
		feedItems = append(feedItems, fi)
	}

	sort.SliceStable(feedItems, func(i, j int) bool {
		return feedItems[i].Published.Before(feedItems[j].Published)
	})

	result := make([]types.ExternalDisruptionData, len(feedItems))
	for i := range feedItems {
		result[i] = feedItems[i]
	}
	return result, nil
}

func (sc *RSSScraper) adaptPostBody(original string) string {
	if original == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(original))
	if err != nil {
		sc.log.Println(err)
		return ""
	}
	paragraphs := []string{}
	doc.Find("p").Each(func(i int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) == 0 {
		return strings.Join(strings.Fields(doc.Text()), " ")
	}
	return strings.Join(paragraphs, "\n")
}
