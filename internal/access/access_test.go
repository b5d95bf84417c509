package access

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/vbonduro/propertypassport/internal/domain"
)

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func role(user *domain.User, p *domain.Property, status domain.StakeholderStatus, perm domain.Permission) *domain.Role {
	r := &domain.Role{ID: uuid.New(), PropertyID: p.ID, UserID: user.ID}
	if status != "" {
		r.Status = &status
	}
	if perm != "" {
		r.Permission = &perm
	}
	return r
}

func expired(r *domain.Role) *domain.Role {
	at := now
	r.ExpiresAt = &at
	return r
}

func deleted(r *domain.Role) *domain.Role {
	at := now.Add(-time.Hour)
	r.DeletedAt = &at
	return r
}

// want lists IsOwner, CanView, CanViewRestricted, CanEdit and CanManage.
type want [5]bool

func TestResolvePredicates(t *testing.T) {
	user := &domain.User{ID: uuid.New()}
	admin := &domain.User{ID: uuid.New(), IsAdmin: true}
	stranger := &domain.User{ID: uuid.New()}
	private := &domain.Property{ID: uuid.New()}
	public := &domain.Property{ID: uuid.New(), IsPublic: true}
	elsewhere := &domain.Property{ID: uuid.New()}

	later := now.Add(time.Second)
	expiring := role(user, private, "", domain.PermissionEditor)
	expiring.ExpiresAt = &later

	tests := []struct {
		name     string
		user     *domain.User
		property *domain.Property
		roles    []*domain.Role
		want     want
		label    string
	}{
		{
			name:     "anonymous on private",
			property: private,
		},
		{
			name:     "anonymous on public",
			property: public,
			want:     want{false, true, false, false, false},
			label:    "public",
		},
		{
			name:     "owner",
			user:     user,
			property: private,
			roles:    []*domain.Role{role(user, private, domain.StatusOwner, "")},
			want:     want{true, true, true, true, true},
			label:    "owner",
		},
		{
			name:     "editor",
			user:     user,
			property: private,
			roles:    []*domain.Role{role(user, private, "", domain.PermissionEditor)},
			want:     want{false, true, true, true, false},
			label:    "editor",
		},
		{
			name:     "viewer",
			user:     user,
			property: private,
			roles:    []*domain.Role{role(user, private, "", domain.PermissionViewer)},
			want:     want{false, true, true, false, false},
			label:    "viewer",
		},
		{
			name:     "buyer with viewer permission",
			user:     user,
			property: private,
			roles:    []*domain.Role{role(user, private, domain.StatusBuyer, domain.PermissionViewer)},
			want:     want{false, true, true, false, false},
			label:    "buyer",
		},
		{
			name:     "tenant",
			user:     user,
			property: private,
			roles:    []*domain.Role{role(user, private, domain.StatusTenant, "")},
			want:     want{false, true, true, false, false},
			label:    "tenant",
		},
		{
			name:     "signed-in stranger on public",
			user:     stranger,
			property: public,
			want:     want{false, true, false, false, false},
			label:    "public",
		},
		{
			name:     "admin without role",
			user:     admin,
			property: private,
			want:     want{false, true, true, true, true},
			label:    "admin",
		},
		{
			name:     "owner expiring now",
			user:     user,
			property: private,
			roles:    []*domain.Role{expired(role(user, private, domain.StatusOwner, ""))},
		},
		{
			name:     "deleted editor",
			user:     user,
			property: private,
			roles:    []*domain.Role{deleted(role(user, private, "", domain.PermissionEditor))},
		},
		{
			name:     "future expiry still active",
			user:     user,
			property: private,
			roles:    []*domain.Role{expiring},
			want:     want{false, true, true, true, false},
			label:    "editor",
		},
		{
			name:     "role of another user",
			user:     user,
			property: private,
			roles:    []*domain.Role{role(stranger, private, domain.StatusOwner, "")},
		},
		{
			name:     "role on another property",
			user:     user,
			property: private,
			roles:    []*domain.Role{role(user, elsewhere, domain.StatusOwner, "")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Resolve(tt.user, tt.property, tt.roles, now)
			got := want{a.IsOwner(), a.CanView(), a.CanViewRestricted(), a.CanEdit(), a.CanManage()}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.label, a.Label())
		})
	}
}

func TestLabelPriority(t *testing.T) {
	a := Access{
		Statuses:    []domain.StakeholderStatus{domain.StatusTenant, domain.StatusBuyer},
		Permissions: []domain.Permission{domain.PermissionViewer},
		Admin:       true,
		Public:      true,
	}
	assert.Equal(t, "buyer", a.Label())

	a.Permissions = append(a.Permissions, domain.PermissionEditor)
	assert.Equal(t, "editor", a.Label())

	a.Statuses = append(a.Statuses, domain.StatusOwner)
	assert.Equal(t, "owner", a.Label())
}

func TestResolveNilProperty(t *testing.T) {
	user := &domain.User{ID: uuid.New()}
	a := Resolve(user, nil, nil, now)
	assert.False(t, a.CanView())
	assert.Equal(t, "", a.Label())
}
