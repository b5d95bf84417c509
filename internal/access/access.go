// Package access decides what a caller may do with a property, given the
// caller's stakeholder roles on it.
package access

import (
	"time"

	"github.com/vbonduro/propertypassport/internal/domain"
)

// Access is the resolved view of one caller on one property. The zero value
// is an anonymous caller on a private property.
type Access struct {
	Admin       bool
	Public      bool
	Statuses    []domain.StakeholderStatus
	Permissions []domain.Permission
}

// Resolve collects the statuses and permissions user holds on p at now.
// Roles for other users or properties, soft-deleted roles and roles whose
// expiry is not after now are ignored. A nil user is anonymous.
func Resolve(user *domain.User, p *domain.Property, roles []*domain.Role, now time.Time) Access {
	var a Access
	if p != nil {
		a.Public = p.IsPublic
	}
	if user == nil {
		return a
	}
	a.Admin = user.IsAdmin

	for _, r := range roles {
		if r == nil || r.UserID != user.ID || !r.Active(now) {
			continue
		}
		if p != nil && r.PropertyID != p.ID {
			continue
		}
		if r.Status != nil {
			a.Statuses = append(a.Statuses, *r.Status)
		}
		if r.Permission != nil {
			a.Permissions = append(a.Permissions, *r.Permission)
		}
	}
	return a
}

func (a Access) hasStatus(s domain.StakeholderStatus) bool {
	for _, v := range a.Statuses {
		if v == s {
			return true
		}
	}
	return false
}

func (a Access) hasPermission(p domain.Permission) bool {
	for _, v := range a.Permissions {
		if v == p {
			return true
		}
	}
	return false
}

// HasRole reports whether any active role applies.
func (a Access) HasRole() bool {
	return len(a.Statuses) > 0 || len(a.Permissions) > 0
}

func (a Access) IsOwner() bool {
	return len(a.Statuses) > 0 && a.hasStatus(domain.StatusOwner)
}

// CanView covers the property record and its media.
func (a Access) CanView() bool {
	return a.Admin || a.Public || a.HasRole()
}

// CanViewRestricted covers documents, flags, stakeholders and the timeline,
// which stay private on public properties.
func (a Access) CanViewRestricted() bool {
	return a.Admin || a.HasRole()
}

func (a Access) CanEdit() bool {
	return a.Admin || a.IsOwner() || a.hasPermission(domain.PermissionEditor)
}

// CanManage covers stakeholders, invitations, visibility and deletion.
func (a Access) CanManage() bool {
	return a.Admin || a.IsOwner()
}

// Label is the single role shown in listings.
func (a Access) Label() string {
	switch {
	case a.IsOwner():
		return string(domain.StatusOwner)
	case a.hasPermission(domain.PermissionEditor):
		return string(domain.PermissionEditor)
	case a.hasStatus(domain.StatusBuyer):
		return string(domain.StatusBuyer)
	case a.hasStatus(domain.StatusTenant):
		return string(domain.StatusTenant)
	case a.hasPermission(domain.PermissionViewer):
		return string(domain.PermissionViewer)
	case a.Admin:
		return "admin"
	case a.Public:
		return "public"
	}
	return ""
}
