package identity

import (
	"context"
	"testing"
)

func TestPrincipalRoundTrip(t *testing.T) {
	if _, ok := PrincipalFromContext(context.Background()); ok {
		t.Fatal("expected no principal on a bare context")
	}

	ctx := WithPrincipal(context.Background(), Principal{UserID: "u-1", Role: RoleOfficer})
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		t.Fatal("expected principal")
	}
	if p.UserID != "u-1" {
		t.Fatalf("UserID = %q", p.UserID)
	}
	if !p.Role.IsStaff() {
		t.Fatalf("expected officer to be staff")
	}

	if _, ok := PrincipalFromContext(WithPrincipal(context.Background(), Principal{})); ok {
		t.Fatal("principal without user id should not be usable")
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		raw  string
		want Role
	}{
		{" ADMIN ", RoleAdmin},
		{"officer", RoleOfficer},
		{"authenticated", RoleCitizen},
		{"", RoleCitizen},
	}
	for _, tt := range tests {
		if got := ParseRole(tt.raw); got != tt.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
	if RoleCitizen.IsStaff() {
		t.Error("citizen should not be staff")
	}
}
