package dataset

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kiranshivaraju/reviewlabel/internal/analysis"
)

const maxLineBytes = 16 << 20

// Review is one line of a Google Local review-<state>.json file.
type Review struct {
	UserID string   `json:"user_id"`
	Name   string   `json:"name"`
	Time   int64    `json:"time"`
	Rating *float64 `json:"rating"`
	Text   string   `json:"text"`
	GmapID string   `json:"gmap_id"`
}

// Place is one line of a Google Local meta-<state>.json file.
type Place struct {
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	GmapID       string   `json:"gmap_id"`
	Description  string   `json:"description"`
	Category     []string `json:"category"`
	AvgRating    *float64 `json:"avg_rating"`
	NumOfReviews *int     `json:"num_of_reviews"`
	Price        string   `json:"price"`
	URL          string   `json:"url"`
}

// ReadReviewsJSONL reads line-delimited reviews. Malformed lines are skipped,
// logged and counted in the second return value.
func ReadReviewsJSONL(r io.Reader) ([]Review, int, error) {
	return readJSONL[Review](r, "reviews")
}

// ReadPlacesJSONL reads line-delimited place metadata with the same skipping
// rules as ReadReviewsJSONL.
func ReadPlacesJSONL(r io.Reader) ([]Place, int, error) {
	return readJSONL[Place](r, "places")
}

func readJSONL[T any](r io.Reader, kind string) ([]T, int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	out := make([]T, 0)
	skipped := 0
	for line := 1; sc.Scan(); line++ {
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			skipped++
			slog.Warn("skipping malformed line", "kind", kind, "line", line, "error", err)
			continue
		}
		out = append(out, v)
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, fmt.Errorf("scanning %s: %w", kind, err)
	}
	return out, skipped, nil
}

// Sources holds the raw Google Local inputs for one state.
type Sources struct {
	Reviews        []Review
	Places         []Place
	SkippedReviews int
	SkippedPlaces  int
}

// LoadSources reads the review and metadata files concurrently.
func LoadSources(ctx context.Context, reviewsPath, placesPath string) (*Sources, error) {
	var src Sources
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		reviews, skipped, err := readJSONLFile(ctx, reviewsPath, ReadReviewsJSONL)
		src.Reviews, src.SkippedReviews = reviews, skipped
		return err
	})
	g.Go(func() error {
		places, skipped, err := readJSONLFile(ctx, placesPath, ReadPlacesJSONL)
		src.Places, src.SkippedPlaces = places, skipped
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &src, nil
}

// ReadPlacesFile reads a meta-<state>.json file on its own, for merging
// labelled output with place metadata.
func ReadPlacesFile(ctx context.Context, path string) ([]Place, int, error) {
	return readJSONLFile(ctx, path, ReadPlacesJSONL)
}

func readJSONLFile[T any](ctx context.Context, path string, read func(io.Reader) ([]T, int, error)) ([]T, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	out, skipped, err := read(f)
	if err != nil {
		return nil, skipped, fmt.Errorf("reading %s: %w", path, err)
	}
	return out, skipped, nil
}

// Sample drops reviews with blank text and returns a seeded random sample of
// min(n, remaining) reviews. The same seed and input give the same sample.
func Sample(reviews []Review, n int, seed int64) []Review {
	pool := make([]Review, 0, len(reviews))
	for _, r := range reviews {
		if !analysis.IsBlank(r.Text) {
			pool = append(pool, r)
		}
	}
	if n < 0 {
		n = 0
	}
	if n > len(pool) {
		n = len(pool)
	}

	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}

// ReviewLength is the word count stored in the review_length column.
func ReviewLength(text string) int {
	return analysis.WordCount(text)
}

// ReviewsTable converts reviews to a table with a review_length column.
func ReviewsTable(reviews []Review) *Table {
	t := NewTable("user_id", "name", "time", "rating", "text", "gmap_id", "review_length")
	for _, r := range reviews {
		t.Append(map[string]string{
			"user_id":       r.UserID,
			"name":          r.Name,
			"time":          strconv.FormatInt(r.Time, 10),
			"rating":        formatFloat(r.Rating),
			"text":          r.Text,
			"gmap_id":       r.GmapID,
			"review_length": strconv.Itoa(ReviewLength(r.Text)),
		})
	}
	return t
}

// PlacesTable converts place metadata to a table. Category lists are joined with ", ".
func PlacesTable(places []Place) *Table {
	t := NewTable("name", "address", "gmap_id", "description", "category", "avg_rating", "num_of_reviews", "price", "url")
	for _, p := range places {
		reviews := ""
		if p.NumOfReviews != nil {
			reviews = strconv.Itoa(*p.NumOfReviews)
		}
		t.Append(map[string]string{
			"name":           p.Name,
			"address":        p.Address,
			"gmap_id":        p.GmapID,
			"description":    p.Description,
			"category":       strings.Join(p.Category, ", "),
			"avg_rating":     formatFloat(p.AvgRating),
			"num_of_reviews": reviews,
			"price":          p.Price,
			"url":            p.URL,
		})
	}
	return t
}

// JoinOnPlaceID joins reviews with their place metadata on gmap_id. Shared
// column names get _x (review) and _y (place) suffixes, so the business name
// lands in name_y.
func JoinOnPlaceID(reviews []Review, places []Place, mode JoinMode) *Table {
	return Join(ReviewsTable(reviews), PlacesTable(places), "gmap_id", "gmap_id", mode)
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
