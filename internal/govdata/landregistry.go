package govdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vbonduro/propertypassport/internal/domain"
)

const (
	ProviderLandRegistry = "land-registry"
	landRegistryTTL      = 7 * 24 * time.Hour
	landRegistryPageSize = 50
)

type LandRegistryRequest struct {
	Postcode string `json:"postcode"`
	PAON     string `json:"paon,omitempty"`
}

type transaction struct {
	Price        int64  `json:"price"`
	Date         string `json:"date"`
	PAON         string `json:"paon,omitempty"`
	SAON         string `json:"saon,omitempty"`
	Street       string `json:"street,omitempty"`
	Town         string `json:"town,omitempty"`
	Postcode     string `json:"postcode"`
	PropertyType string `json:"property_type,omitempty"`
	EstateType   string `json:"estate_type,omitempty"`
	NewBuild     bool   `json:"new_build"`
}

type landRegistryData struct {
	Postcode     string        `json:"postcode"`
	Count        int           `json:"count"`
	Transactions []transaction `json:"transactions"`
}

// LandRegistry returns recorded price paid transactions, newest first.
func (s *Service) LandRegistry(ctx context.Context, req LandRegistryRequest) (*Result, error) {
	postcode, err := NormalisePostcode(req.Postcode)
	if err != nil {
		return nil, err
	}
	paon, err := limitText("paon", req.PAON, 100)
	if err != nil {
		return nil, err
	}
	paon = strings.ToUpper(paon)

	key := fmt.Sprintf("land-registry:%s:%s", postcode, paon)
	return s.lookup(ctx, ProviderLandRegistry, key, landRegistryTTL, func(ctx context.Context) (json.RawMessage, error) {
		return s.fetchLandRegistry(ctx, postcode, paon)
	})
}

func (s *Service) fetchLandRegistry(ctx context.Context, postcode, paon string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("propertyAddress.postcode", postcode)
	if paon != "" {
		q.Set("propertyAddress.paon", paon)
	}
	q.Set("_pageSize", fmt.Sprint(landRegistryPageSize))
	q.Set("_sort", "-transactionDate")

	body, err := s.getJSON(ctx, ProviderLandRegistry, s.cfg.LandRegistryBaseURL+"/data/ppi/transaction-record.json?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return normaliseLandRegistry(postcode, body)
}

func normaliseLandRegistry(postcode string, body []byte) (json.RawMessage, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: land registry returned invalid JSON", domain.ErrUpstream)
	}
	out := landRegistryData{Postcode: postcode, Transactions: []transaction{}}
	gjson.GetBytes(body, "result.items").ForEach(func(_, item gjson.Result) bool {
		out.Transactions = append(out.Transactions, transaction{
			Price:        item.Get("pricePaid").Int(),
			Date:         item.Get("transactionDate").String(),
			PAON:         item.Get("propertyAddress.paon").String(),
			SAON:         item.Get("propertyAddress.saon").String(),
			Street:       item.Get("propertyAddress.street").String(),
			Town:         item.Get("propertyAddress.town").String(),
			Postcode:     item.Get("propertyAddress.postcode").String(),
			PropertyType: item.Get("propertyType.prefLabel.0._value").String(),
			EstateType:   item.Get("estateType.prefLabel.0._value").String(),
			NewBuild:     item.Get("newBuild").Bool(),
		})
		return true
	})
	out.Count = len(out.Transactions)
	return marshal(ProviderLandRegistry, out)
}
