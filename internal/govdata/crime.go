package govdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vbonduro/propertypassport/internal/domain"
)

const (
	ProviderCrime = "crime"
	crimeTTL      = 24 * time.Hour
)

type CrimeRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Date      string   `json:"date,omitempty"`
}

type crimeCategory struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type crimeData struct {
	Latitude   float64         `json:"latitude"`
	Longitude  float64         `json:"longitude"`
	Month      string          `json:"month"`
	Total      int             `json:"total"`
	ByCategory []crimeCategory `json:"by_category"`
}

// Crime summarises street-level crime within a mile of a point. Without a
// date the police API answers with its latest published month.
func (s *Service) Crime(ctx context.Context, req CrimeRequest) (*Result, error) {
	if err := validateCoordinates(req.Latitude, req.Longitude); err != nil {
		return nil, err
	}
	month, err := validateMonth(req.Date, domain.Now())
	if err != nil {
		return nil, err
	}
	lat, lng := *req.Latitude, *req.Longitude

	keyMonth := month
	if keyMonth == "" {
		keyMonth = "latest"
	}
	key := fmt.Sprintf("crime:%s:%s", coordKey(lat, lng), keyMonth)
	return s.lookup(ctx, ProviderCrime, key, crimeTTL, func(ctx context.Context) (json.RawMessage, error) {
		return s.fetchCrime(ctx, lat, lng, month)
	})
}

func (s *Service) fetchCrime(ctx context.Context, lat, lng float64, month string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.6f", lat))
	q.Set("lng", fmt.Sprintf("%.6f", lng))
	if month != "" {
		q.Set("date", month)
	}

	body, err := s.getJSON(ctx, ProviderCrime, s.cfg.PoliceBaseURL+"/crimes-street/all-crime?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return normaliseCrime(lat, lng, month, body)
}

func normaliseCrime(lat, lng float64, month string, body []byte) (json.RawMessage, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: crime returned invalid JSON", domain.ErrUpstream)
	}
	counts := map[string]int{}
	out := crimeData{Latitude: lat, Longitude: lng, Month: month, ByCategory: []crimeCategory{}}
	gjson.ParseBytes(body).ForEach(func(_, c gjson.Result) bool {
		counts[c.Get("category").String()]++
		if out.Month == "" {
			out.Month = c.Get("month").String()
		}
		out.Total++
		return true
	})
	for category, n := range counts {
		out.ByCategory = append(out.ByCategory, crimeCategory{Category: category, Count: n})
	}
	sort.Slice(out.ByCategory, func(i, j int) bool {
		if out.ByCategory[i].Count != out.ByCategory[j].Count {
			return out.ByCategory[i].Count > out.ByCategory[j].Count
		}
		return out.ByCategory[i].Category < out.ByCategory[j].Category
	})
	return marshal(ProviderCrime, out)
}
