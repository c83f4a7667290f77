package model

import "testing"

func TestIsValidCategory(t *testing.T) {
	for _, c := range ProjectCategories {
		if !IsValidCategory(c) {
			t.Errorf("IsValidCategory(%q) = false, want true", c)
		}
	}

	invalid := []string{"", "technology", "Tech", "unknown"}
	for _, c := range invalid {
		if IsValidCategory(c) {
			t.Errorf("IsValidCategory(%q) = true, want false", c)
		}
	}
}

func TestRole_IsValid(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleInvestor, true},
		{RoleOwner, true},
		{RoleNone, false},
		{Role("admin"), false},
	}

	for _, tt := range tests {
		if got := tt.role.IsValid(); got != tt.want {
			t.Errorf("Role(%q).IsValid() = %v, want %v", tt.role, got, tt.want)
		}
	}
}

func TestProfile_Identity(t *testing.T) {
	p := &Profile{
		UID:         "uid-1",
		Email:       "a@example.com",
		DisplayName: "Alice",
		Role:        RoleInvestor,
	}

	ident := p.Identity()
	if ident.UID != "uid-1" || ident.Email != "a@example.com" || ident.DisplayName != "Alice" {
		t.Errorf("Identity() = %+v, want fields copied from profile", ident)
	}
}
