package govdata

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vbonduro/propertypassport/internal/domain"
)

const (
	ProviderEPC = "epc"
	epcTTL      = 7 * 24 * time.Hour
)

type EPCRequest struct {
	Postcode string `json:"postcode"`
	Address  string `json:"address,omitempty"`
	UPRN     string `json:"uprn,omitempty"`
}

type epcCertificate struct {
	LMKKey              string  `json:"lmk_key"`
	Address             string  `json:"address"`
	Postcode            string  `json:"postcode"`
	UPRN                string  `json:"uprn,omitempty"`
	CurrentRating       string  `json:"current_energy_rating"`
	PotentialRating     string  `json:"potential_energy_rating"`
	CurrentEfficiency   int64   `json:"current_energy_efficiency"`
	PotentialEfficiency int64   `json:"potential_energy_efficiency"`
	PropertyType        string  `json:"property_type"`
	BuiltForm           string  `json:"built_form"`
	TotalFloorArea      float64 `json:"total_floor_area"`
	ConstructionAgeBand string  `json:"construction_age_band,omitempty"`
	MainFuel            string  `json:"main_fuel,omitempty"`
	InspectionDate      string  `json:"inspection_date"`
	LodgementDate       string  `json:"lodgement_date"`
}

type epcData struct {
	Postcode     string           `json:"postcode"`
	Count        int              `json:"count"`
	Certificates []epcCertificate `json:"certificates"`
}

// EPC searches the domestic energy performance certificate register.
func (s *Service) EPC(ctx context.Context, req EPCRequest) (*Result, error) {
	postcode, err := NormalisePostcode(req.Postcode)
	if err != nil {
		return nil, err
	}
	address, err := limitText("address", req.Address, 200)
	if err != nil {
		return nil, err
	}
	uprn := strings.TrimSpace(req.UPRN)
	if uprn != "" && !uprnRe.MatchString(uprn) {
		return nil, domain.Invalid("uprn must be up to 12 digits")
	}

	key := fmt.Sprintf("epc:%s:%s:%s", postcode, strings.ToLower(address), uprn)
	return s.lookup(ctx, ProviderEPC, key, epcTTL, func(ctx context.Context) (json.RawMessage, error) {
		return s.fetchEPC(ctx, postcode, address, uprn)
	})
}

func (s *Service) fetchEPC(ctx context.Context, postcode, address, uprn string) (json.RawMessage, error) {
	if s.cfg.EPCEmail == "" || s.cfg.EPCKey == "" {
		return nil, fmt.Errorf("%w: epc: API credentials are not configured", domain.ErrUpstream)
	}

	q := url.Values{}
	q.Set("postcode", postcode)
	q.Set("size", "100")
	if address != "" {
		q.Set("address", address)
	}
	if uprn != "" {
		q.Set("uprn", uprn)
	}

	header := http.Header{}
	header.Set("Authorization", "Basic "+basicAuth(s.cfg.EPCEmail, s.cfg.EPCKey))
	body, err := s.getJSON(ctx, ProviderEPC, s.cfg.EPCBaseURL+"/domestic/search?"+q.Encode(), header)
	if err != nil {
		return nil, err
	}
	return normaliseEPC(postcode, body)
}

// normaliseEPC keeps the fields the passport shows. The register answers a
// search with no matches with an empty body.
func normaliseEPC(postcode string, body []byte) (json.RawMessage, error) {
	out := epcData{Postcode: postcode, Certificates: []epcCertificate{}}
	if len(bytes.TrimSpace(body)) > 0 {
		if !gjson.ValidBytes(body) {
			return nil, fmt.Errorf("%w: epc returned invalid JSON", domain.ErrUpstream)
		}
		gjson.GetBytes(body, "rows").ForEach(func(_, row gjson.Result) bool {
			out.Certificates = append(out.Certificates, epcCertificate{
				LMKKey:              row.Get("lmk-key").String(),
				Address:             row.Get("address").String(),
				Postcode:            row.Get("postcode").String(),
				UPRN:                row.Get("uprn").String(),
				CurrentRating:       row.Get("current-energy-rating").String(),
				PotentialRating:     row.Get("potential-energy-rating").String(),
				CurrentEfficiency:   row.Get("current-energy-efficiency").Int(),
				PotentialEfficiency: row.Get("potential-energy-efficiency").Int(),
				PropertyType:        row.Get("property-type").String(),
				BuiltForm:           row.Get("built-form").String(),
				TotalFloorArea:      row.Get("total-floor-area").Float(),
				ConstructionAgeBand: row.Get("construction-age-band").String(),
				MainFuel:            row.Get("main-fuel").String(),
				InspectionDate:      row.Get("inspection-date").String(),
				LodgementDate:       row.Get("lodgement-date").String(),
			})
			return true
		})
	}
	out.Count = len(out.Certificates)
	return marshal(ProviderEPC, out)
}

func basicAuth(user, pass string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
}
