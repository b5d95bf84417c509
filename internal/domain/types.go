package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Property struct {
	ID           uuid.UUID      `json:"id"`
	UPRN         *string        `json:"uprn,omitempty"`
	TitleNumber  *string        `json:"title_number,omitempty"`
	AddressLine1 string         `json:"address_line1"`
	AddressLine2 string         `json:"address_line2"`
	Town         string         `json:"town"`
	Postcode     string         `json:"postcode"`
	PropertyType PropertyType   `json:"property_type"`
	Tenure       Tenure         `json:"tenure"`
	Bedrooms     *int64         `json:"bedrooms,omitempty"`
	Latitude     *float64       `json:"latitude,omitempty"`
	Longitude    *float64       `json:"longitude,omitempty"`
	IsPublic     bool           `json:"is_public"`
	Status       PropertyStatus `json:"status"`
	CreatedBy    uuid.UUID      `json:"created_by"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    *time.Time     `json:"deleted_at,omitempty"`
}

// Role is a stakeholder row: a user's status and/or permission on one property.
type Role struct {
	ID         uuid.UUID          `json:"id"`
	PropertyID uuid.UUID          `json:"property_id"`
	UserID     uuid.UUID          `json:"user_id"`
	Status     *StakeholderStatus `json:"status,omitempty"`
	Permission *Permission        `json:"permission,omitempty"`
	GrantedBy  uuid.UUID          `json:"granted_by"`
	ExpiresAt  *time.Time         `json:"expires_at,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
	DeletedAt  *time.Time         `json:"deleted_at,omitempty"`
}

// Active reports whether the role still grants anything at now.
func (r *Role) Active(now time.Time) bool {
	if r.DeletedAt != nil {
		return false
	}
	return r.ExpiresAt == nil || r.ExpiresAt.After(now)
}

// Stakeholder is a role joined with the user it belongs to.
type Stakeholder struct {
	*Role
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

type Document struct {
	ID           uuid.UUID    `json:"id"`
	PropertyID   uuid.UUID    `json:"property_id"`
	Title        string       `json:"title"`
	DocumentType DocumentType `json:"document_type"`
	FileName     string       `json:"file_name"`
	StorageKey   string       `json:"-"`
	MimeType     string       `json:"mime_type"`
	SizeBytes    int64        `json:"size_bytes"`
	UploadedBy   uuid.UUID    `json:"uploaded_by"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	DeletedAt    *time.Time   `json:"deleted_at,omitempty"`
}

type Media struct {
	ID         uuid.UUID  `json:"id"`
	PropertyID uuid.UUID  `json:"property_id"`
	MediaType  MediaType  `json:"media_type"`
	Caption    string     `json:"caption"`
	StorageKey string     `json:"-"`
	MimeType   string     `json:"mime_type"`
	SizeBytes  int64      `json:"size_bytes"`
	SortOrder  int64      `json:"sort_order"`
	UploadedBy uuid.UUID  `json:"uploaded_by"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

type Flag struct {
	ID          uuid.UUID  `json:"id"`
	PropertyID  uuid.UUID  `json:"property_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Severity    Severity   `json:"severity"`
	Status      FlagStatus `json:"status"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	ResolvedBy  *uuid.UUID `json:"resolved_by,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// Event is an append-only timeline entry.
type Event struct {
	ID          uuid.UUID       `json:"id"`
	PropertyID  uuid.UUID       `json:"property_id"`
	ActorID     *uuid.UUID      `json:"actor_id,omitempty"`
	EventType   EventType       `json:"event_type"`
	Description string          `json:"description"`
	Metadata    json.RawMessage `json:"metadata"`
	OccurredAt  time.Time       `json:"occurred_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Invitation struct {
	ID         uuid.UUID          `json:"id"`
	PropertyID uuid.UUID          `json:"property_id"`
	Email      string             `json:"email"`
	Status     *StakeholderStatus `json:"status,omitempty"`
	Permission *Permission        `json:"permission,omitempty"`
	TokenHash  string             `json:"-"`
	InvitedBy  uuid.UUID          `json:"invited_by"`
	ExpiresAt  time.Time          `json:"expires_at"`
	AcceptedAt *time.Time         `json:"accepted_at,omitempty"`
	AcceptedBy *uuid.UUID         `json:"accepted_by,omitempty"`
	RevokedAt  *time.Time         `json:"revoked_at,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// Now returns the current time in the precision stored by the database.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
