package govdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/vbonduro/propertypassport/internal/domain"
)

const (
	ProviderFlood = "flood-risk"
	floodTTL      = time.Hour

	defaultRadiusKM = 1
	maxRadiusKM     = 20
)

type FloodRiskRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	RadiusKM  int      `json:"radius_km,omitempty"`
}

type floodWarning struct {
	Area          string `json:"area"`
	Description   string `json:"description"`
	Severity      string `json:"severity"`
	SeverityLevel int64  `json:"severity_level"`
	Message       string `json:"message,omitempty"`
	TimeRaised    string `json:"time_raised,omitempty"`
}

type floodArea struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	RiverOrSea string `json:"river_or_sea,omitempty"`
	County     string `json:"county,omitempty"`
}

type floodData struct {
	Latitude        float64        `json:"latitude"`
	Longitude       float64        `json:"longitude"`
	RadiusKM        int            `json:"radius_km"`
	WarningCount    int            `json:"warning_count"`
	HighestSeverity *floodWarning  `json:"highest_severity"`
	ActiveWarnings  []floodWarning `json:"active_warnings"`
	FloodAreas      []floodArea    `json:"flood_areas"`
}

// FloodRisk reports active flood warnings and flood areas around a point.
func (s *Service) FloodRisk(ctx context.Context, req FloodRiskRequest) (*Result, error) {
	if err := validateCoordinates(req.Latitude, req.Longitude); err != nil {
		return nil, err
	}
	radius := req.RadiusKM
	if radius == 0 {
		radius = defaultRadiusKM
	}
	if radius < 1 || radius > maxRadiusKM {
		return nil, domain.Invalid("radius_km must be between 1 and %d", maxRadiusKM)
	}
	lat, lng := *req.Latitude, *req.Longitude

	key := fmt.Sprintf("flood-risk:%s:%d", coordKey(lat, lng), radius)
	return s.lookup(ctx, ProviderFlood, key, floodTTL, func(ctx context.Context) (json.RawMessage, error) {
		return s.fetchFlood(ctx, lat, lng, radius)
	})
}

func (s *Service) fetchFlood(ctx context.Context, lat, lng float64, radius int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.6f", lat))
	q.Set("long", fmt.Sprintf("%.6f", lng))
	q.Set("dist", fmt.Sprint(radius))

	var floods, areas []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		floods, err = s.getJSON(gctx, ProviderFlood, s.cfg.FloodBaseURL+"/id/floods?"+q.Encode(), nil)
		return err
	})
	g.Go(func() error {
		var err error
		areas, err = s.getJSON(gctx, ProviderFlood, s.cfg.FloodBaseURL+"/id/floodAreas?"+q.Encode(), nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(floods) || !gjson.ValidBytes(areas) {
		return nil, fmt.Errorf("%w: flood-risk returned invalid JSON", domain.ErrUpstream)
	}

	out := floodData{
		Latitude:       lat,
		Longitude:      lng,
		RadiusKM:       radius,
		ActiveWarnings: []floodWarning{},
		FloodAreas:     []floodArea{},
	}
	gjson.GetBytes(floods, "items").ForEach(func(_, item gjson.Result) bool {
		out.ActiveWarnings = append(out.ActiveWarnings, floodWarning{
			Area:          item.Get("eaAreaName").String(),
			Description:   item.Get("description").String(),
			Severity:      item.Get("severity").String(),
			SeverityLevel: item.Get("severityLevel").Int(),
			Message:       item.Get("message").String(),
			TimeRaised:    item.Get("timeRaised").String(),
		})
		return true
	})
	gjson.GetBytes(areas, "items").ForEach(func(_, item gjson.Result) bool {
		out.FloodAreas = append(out.FloodAreas, floodArea{
			ID:         item.Get("notation").String(),
			Label:      item.Get("label").String(),
			RiverOrSea: item.Get("riverOrSea").String(),
			County:     item.Get("county").String(),
		})
		return true
	})

	out.WarningCount = len(out.ActiveWarnings)
	// Severity level 1 is the most severe.
	for i := range out.ActiveWarnings {
		w := &out.ActiveWarnings[i]
		if w.SeverityLevel < 1 {
			continue
		}
		if out.HighestSeverity == nil || w.SeverityLevel < out.HighestSeverity.SeverityLevel {
			out.HighestSeverity = w
		}
	}
	return marshal(ProviderFlood, out)
}
