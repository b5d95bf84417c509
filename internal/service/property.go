package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/vbonduro/propertypassport/internal/access"
	"github.com/vbonduro/propertypassport/internal/domain"
	"github.com/vbonduro/propertypassport/internal/govdata"
)

type PropertyService struct {
	*guard
}

// PropertyInput carries the editable property details.
type PropertyInput struct {
	UPRN         string                `json:"uprn"`
	TitleNumber  string                `json:"title_number"`
	AddressLine1 string                `json:"address_line1"`
	AddressLine2 string                `json:"address_line2"`
	Town         string                `json:"town"`
	Postcode     string                `json:"postcode"`
	PropertyType domain.PropertyType   `json:"property_type"`
	Tenure       domain.Tenure         `json:"tenure"`
	Bedrooms     *int64                `json:"bedrooms"`
	Latitude     *float64              `json:"latitude"`
	Longitude    *float64              `json:"longitude"`
	Status       domain.PropertyStatus `json:"status"`
}

// PropertyView is a property together with what the caller may do with it.
type PropertyView struct {
	*domain.Property
	Access access.Access `json:"-"`
	Role   string        `json:"role"`
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// apply validates in and copies it onto p, filling defaults for empty enums.
func (in PropertyInput) apply(p *domain.Property) error {
	p.AddressLine1 = strings.TrimSpace(in.AddressLine1)
	p.AddressLine2 = strings.TrimSpace(in.AddressLine2)
	p.Town = strings.TrimSpace(in.Town)
	if p.AddressLine1 == "" {
		return domain.Invalid("address_line1 is required")
	}
	if p.Town == "" {
		return domain.Invalid("town is required")
	}
	postcode, err := govdata.NormalisePostcode(in.Postcode)
	if err != nil {
		return err
	}
	p.Postcode = postcode

	uprn := optional(in.UPRN)
	if uprn != nil && (len(*uprn) > 12 || strings.Trim(*uprn, "0123456789") != "") {
		return domain.Invalid("uprn must be up to 12 digits")
	}
	p.UPRN = uprn
	p.TitleNumber = optional(in.TitleNumber)

	p.PropertyType = in.PropertyType
	if p.PropertyType == "" {
		p.PropertyType = domain.PropertyTypeOther
	}
	if !p.PropertyType.Valid() {
		return domain.Invalid("unknown property_type %q", in.PropertyType)
	}
	p.Tenure = in.Tenure
	if p.Tenure == "" {
		p.Tenure = domain.TenureUnknown
	}
	if !p.Tenure.Valid() {
		return domain.Invalid("unknown tenure %q", in.Tenure)
	}
	p.Status = in.Status
	if p.Status == "" {
		p.Status = domain.PropertyStatusDraft
	}
	if !p.Status.Valid() {
		return domain.Invalid("unknown status %q", in.Status)
	}

	if in.Bedrooms != nil && (*in.Bedrooms < 0 || *in.Bedrooms > 50) {
		return domain.Invalid("bedrooms must be between 0 and 50")
	}
	p.Bedrooms = in.Bedrooms
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return domain.Invalid("latitude and longitude must be given together")
	}
	if in.Latitude != nil && (*in.Latitude < -90 || *in.Latitude > 90) {
		return domain.Invalid("latitude must be between -90 and 90")
	}
	if in.Longitude != nil && (*in.Longitude < -180 || *in.Longitude > 180) {
		return domain.Invalid("longitude must be between -180 and 180")
	}
	p.Latitude = in.Latitude
	p.Longitude = in.Longitude
	return nil
}

// CreateProperty creates a property owned by caller.
func (s *PropertyService) CreateProperty(ctx context.Context, caller *domain.User, in PropertyInput) (*domain.Property, error) {
	if caller == nil {
		return nil, domain.ErrUnauthenticated
	}
	p := &domain.Property{CreatedBy: caller.ID}
	if err := in.apply(p); err != nil {
		return nil, err
	}

	created, err := s.properties.CreateWithOwner(ctx, p)
	if err != nil {
		return nil, err
	}
	s.logger.Info("property created", "property_id", created.ID, "user_id", caller.ID)
	s.record(ctx, created.ID, caller, domain.EventPropertyCreated, "Property created", map[string]any{
		"address": created.AddressLine1,
	})
	return created, nil
}

func (s *PropertyService) GetProperty(ctx context.Context, caller *domain.User, id uuid.UUID) (*PropertyView, error) {
	p, a, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return &PropertyView{Property: p, Access: a, Role: a.Label()}, nil
}

func (s *PropertyService) UpdateProperty(ctx context.Context, caller *domain.User, id uuid.UUID, in PropertyInput) (*domain.Property, error) {
	p, a, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, a.CanEdit()); err != nil {
		return nil, err
	}
	if err := in.apply(p); err != nil {
		return nil, err
	}
	if err := s.properties.Update(ctx, p); err != nil {
		return nil, err
	}
	s.record(ctx, p.ID, caller, domain.EventPropertyUpdated, "Property details updated", nil)
	return s.properties.GetByID(ctx, p.ID)
}

func (s *PropertyService) SetVisibility(ctx context.Context, caller *domain.User, id uuid.UUID, public bool) error {
	p, a, err := s.load(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := authorize(caller, a.CanManage()); err != nil {
		return err
	}
	if p.IsPublic == public {
		return nil
	}
	if err := s.properties.SetVisibility(ctx, p.ID, public); err != nil {
		return err
	}
	description := "Property made private"
	if public {
		description = "Property made public"
	}
	s.record(ctx, p.ID, caller, domain.EventVisibilityChanged, description, map[string]any{"is_public": public})
	return nil
}

func (s *PropertyService) DeleteProperty(ctx context.Context, caller *domain.User, id uuid.UUID) error {
	p, a, err := s.load(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := authorize(caller, a.CanManage()); err != nil {
		return err
	}
	if err := s.properties.SoftDelete(ctx, p.ID); err != nil {
		return err
	}
	s.logger.Info("property deleted", "property_id", p.ID, "user_id", caller.ID)
	s.record(ctx, p.ID, caller, domain.EventPropertyDeleted, "Property deleted", nil)
	return nil
}
