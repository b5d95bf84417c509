package domain

type PropertyType string

const (
	PropertyTypeDetached     PropertyType = "detached"
	PropertyTypeSemiDetached PropertyType = "semi_detached"
	PropertyTypeTerraced     PropertyType = "terraced"
	PropertyTypeFlat         PropertyType = "flat"
	PropertyTypeBungalow     PropertyType = "bungalow"
	PropertyTypeOther        PropertyType = "other"
)

func (t PropertyType) Valid() bool {
	switch t {
	case PropertyTypeDetached, PropertyTypeSemiDetached, PropertyTypeTerraced,
		PropertyTypeFlat, PropertyTypeBungalow, PropertyTypeOther:
		return true
	}
	return false
}

type Tenure string

const (
	TenureFreehold        Tenure = "freehold"
	TenureLeasehold       Tenure = "leasehold"
	TenureShareOfFreehold Tenure = "share_of_freehold"
	TenureUnknown         Tenure = "unknown"
)

func (t Tenure) Valid() bool {
	switch t {
	case TenureFreehold, TenureLeasehold, TenureShareOfFreehold, TenureUnknown:
		return true
	}
	return false
}

type PropertyStatus string

const (
	PropertyStatusDraft    PropertyStatus = "draft"
	PropertyStatusActive   PropertyStatus = "active"
	PropertyStatusArchived PropertyStatus = "archived"
)

func (s PropertyStatus) Valid() bool {
	switch s {
	case PropertyStatusDraft, PropertyStatusActive, PropertyStatusArchived:
		return true
	}
	return false
}

type StakeholderStatus string

const (
	StatusOwner  StakeholderStatus = "owner"
	StatusBuyer  StakeholderStatus = "buyer"
	StatusTenant StakeholderStatus = "tenant"
)

func (s StakeholderStatus) Valid() bool {
	switch s {
	case StatusOwner, StatusBuyer, StatusTenant:
		return true
	}
	return false
}

type Permission string

const (
	PermissionEditor Permission = "editor"
	PermissionViewer Permission = "viewer"
)

func (p Permission) Valid() bool {
	return p == PermissionEditor || p == PermissionViewer
}

type DocumentType string

const (
	DocumentTitleDeed           DocumentType = "title_deed"
	DocumentEPCCertificate      DocumentType = "epc_certificate"
	DocumentSurvey              DocumentType = "survey"
	DocumentPlanningPermission  DocumentType = "planning_permission"
	DocumentBuildingRegulations DocumentType = "building_regulations"
	DocumentWarranty            DocumentType = "warranty"
	DocumentGasSafety           DocumentType = "gas_safety"
	DocumentElectricalSafety    DocumentType = "electrical_safety"
	DocumentLease               DocumentType = "lease"
	DocumentSearches            DocumentType = "searches"
	DocumentOther               DocumentType = "other"
)

// DocumentTypes lists every accepted document type in display order.
var DocumentTypes = []DocumentType{
	DocumentTitleDeed,
	DocumentEPCCertificate,
	DocumentSurvey,
	DocumentPlanningPermission,
	DocumentBuildingRegulations,
	DocumentWarranty,
	DocumentGasSafety,
	DocumentElectricalSafety,
	DocumentLease,
	DocumentSearches,
	DocumentOther,
}

func (t DocumentType) Valid() bool {
	for _, v := range DocumentTypes {
		if t == v {
			return true
		}
	}
	return false
}

type MediaType string

const (
	MediaPhoto     MediaType = "photo"
	MediaFloorplan MediaType = "floorplan"
	MediaVideo     MediaType = "video"
)

func (t MediaType) Valid() bool {
	switch t {
	case MediaPhoto, MediaFloorplan, MediaVideo:
		return true
	}
	return false
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

type FlagStatus string

const (
	FlagOpen       FlagStatus = "open"
	FlagInProgress FlagStatus = "in_progress"
	FlagResolved   FlagStatus = "resolved"
	FlagDismissed  FlagStatus = "dismissed"
)

func (s FlagStatus) Valid() bool {
	switch s {
	case FlagOpen, FlagInProgress, FlagResolved, FlagDismissed:
		return true
	}
	return false
}

// Closed reports whether the flag no longer needs attention.
func (s FlagStatus) Closed() bool {
	return s == FlagResolved || s == FlagDismissed
}

type EventType string

const (
	EventPropertyCreated    EventType = "property_created"
	EventPropertyUpdated    EventType = "property_updated"
	EventVisibilityChanged  EventType = "visibility_changed"
	EventPropertyDeleted    EventType = "property_deleted"
	EventDocumentUploaded   EventType = "document_uploaded"
	EventDocumentDeleted    EventType = "document_deleted"
	EventMediaUploaded      EventType = "media_uploaded"
	EventMediaUpdated       EventType = "media_updated"
	EventMediaDeleted       EventType = "media_deleted"
	EventStakeholderAdded   EventType = "stakeholder_added"
	EventStakeholderUpdated EventType = "stakeholder_updated"
	EventStakeholderRemoved EventType = "stakeholder_removed"
	EventInvitationSent     EventType = "invitation_sent"
	EventInvitationAccepted EventType = "invitation_accepted"
	EventInvitationRevoked  EventType = "invitation_revoked"
	EventFlagRaised         EventType = "flag_raised"
	EventFlagUpdated        EventType = "flag_updated"
	EventFlagResolved       EventType = "flag_resolved"
	EventNote               EventType = "note"
	EventMilestone          EventType = "milestone"
)

// UserAuthored reports whether users may append events of this type directly.
func (t EventType) UserAuthored() bool {
	return t == EventNote || t == EventMilestone
}
