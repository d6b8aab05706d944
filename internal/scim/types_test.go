package scim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func boolPtr(b bool) *bool { return &b }

func TestUserNormalized(t *testing.T) {
	u := User{
		ID:          "u-1",
		UserName:    "DEFAULT/ana@example.com",
		DisplayName: "Ana P.",
		Name:        Name{GivenName: "Ana", FamilyName: "Pérez"},
		Emails:      []Email{{Value: "ana@example.com", Primary: true}},
		PhoneNumbers: []PhoneNumber{
			{Value: "+54911555000", Type: "mobile"},
		},
		Active: boolPtr(true),
		Groups: []MemberRef{
			{Value: "g1", Display: "DEFAULT/suppliers"},
			{Value: "g2", Display: "DEFAULT/warehouse_staff"},
		},
		Meta: Meta{Created: "2026-01-01T00:00:00Z", LastModified: "2026-02-01T00:00:00Z"},
	}

	got := u.Normalized()

	assert.Equal(t, "u-1", got.ID)
	assert.Equal(t, "ana@example.com", got.Email)
	assert.Equal(t, "Ana", got.FirstName)
	assert.Equal(t, "Pérez", got.LastName)
	assert.Equal(t, "Ana P.", got.DisplayName)
	if assert.NotNil(t, got.Phone) {
		assert.Equal(t, "+54911555000", *got.Phone)
	}
	assert.True(t, got.Active)
	assert.Equal(t, []string{"DEFAULT/suppliers", "DEFAULT/warehouse_staff"}, got.Groups)
	assert.Equal(t, "2026-01-01T00:00:00Z", got.CreatedAt)
}

func TestUserNormalizedEmailFallsBackToUserName(t *testing.T) {
	u := User{ID: "u-2", UserName: "DEFAULT/beto@example.com"}

	got := u.Normalized()

	// Sin emails el email deriva del userName sin el namespace.
	assert.Equal(t, "beto@example.com", got.Email)
}

func TestUserNormalizedDisplayNameFallback(t *testing.T) {
	cases := []struct {
		name string
		user User
		want string
	}{
		{"nombre completo", User{Name: Name{GivenName: "Ana", FamilyName: "Pérez"}}, "Ana Pérez"},
		{"solo given", User{Name: Name{GivenName: "Ana"}}, "Ana"},
		{"solo family", User{Name: Name{FamilyName: "Pérez"}}, "Pérez"},
		{"vacío", User{}, ""},
		{"displayName gana", User{DisplayName: "A. Pérez", Name: Name{GivenName: "Ana"}}, "A. Pérez"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.user.Normalized().DisplayName)
		})
	}
}

func TestUserNormalizedActiveDefaults(t *testing.T) {
	assert.True(t, User{}.Normalized().Active, "active ausente cuenta como activo")
	assert.True(t, User{Active: boolPtr(true)}.Normalized().Active)
	assert.False(t, User{Active: boolPtr(false)}.Normalized().Active)
}

func TestUserNormalizedEmptyCollections(t *testing.T) {
	got := User{ID: "u-3", UserName: "DEFAULT/x@y.com"}.Normalized()

	assert.Nil(t, got.Phone)
	assert.NotNil(t, got.Groups, "groups serializa como [] y no como null")
	assert.Empty(t, got.Groups)
}

func TestGroupSummary(t *testing.T) {
	g := Group{
		ID:          "g-1",
		DisplayName: "DEFAULT/suppliers",
		Members: []MemberRef{
			{Value: "u-1", Display: "ana@example.com"},
			{Value: "u-2", Display: "beto@example.com"},
		},
	}

	got := g.Summary()

	assert.Equal(t, "g-1", got.ID)
	assert.Equal(t, "suppliers", got.Name, "el namespace DEFAULT/ no se expone")
	assert.Equal(t, 2, got.MemberCount)
}

func TestGroupSummaryNoPrefix(t *testing.T) {
	got := Group{ID: "g-2", DisplayName: "admins"}.Summary()

	assert.Equal(t, "admins", got.Name)
	assert.Zero(t, got.MemberCount)
}
