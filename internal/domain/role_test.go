package domain

import (
	"errors"
	"testing"
)

func TestCanPerformPolicyTable(t *testing.T) {
	tests := []struct {
		action   Action
		expected map[Role]bool
	}{
		{ActionCreateProject, map[Role]bool{
			RoleCommunityUser: false, RoleProjectDeveloper: true, RoleGovernmentAgency: true, RoleAdministrator: true, RoleResearcher: false,
		}},
		{ActionEditProject, map[Role]bool{
			RoleCommunityUser: false, RoleProjectDeveloper: true, RoleGovernmentAgency: true, RoleAdministrator: true, RoleResearcher: false,
		}},
		{ActionApproveProject, map[Role]bool{
			RoleCommunityUser: false, RoleProjectDeveloper: false, RoleGovernmentAgency: true, RoleAdministrator: true, RoleResearcher: false,
		}},
		{ActionPostComment, map[Role]bool{
			RoleCommunityUser: true, RoleProjectDeveloper: true, RoleGovernmentAgency: true, RoleAdministrator: true, RoleResearcher: true,
		}},
		{ActionUpvoteComment, map[Role]bool{
			RoleCommunityUser: true, RoleProjectDeveloper: true, RoleGovernmentAgency: true, RoleAdministrator: true, RoleResearcher: true,
		}},
		{ActionViewAnalytics, map[Role]bool{
			RoleCommunityUser: false, RoleProjectDeveloper: true, RoleGovernmentAgency: true, RoleAdministrator: true, RoleResearcher: true,
		}},
		{ActionDeleteUser, map[Role]bool{
			RoleCommunityUser: false, RoleProjectDeveloper: false, RoleGovernmentAgency: false, RoleAdministrator: true, RoleResearcher: false,
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			for _, role := range ValidRoles() {
				if got := CanPerform(role, tt.action); got != tt.expected[role] {
					t.Errorf("CanPerform(%s, %s) = %v, expected %v", role, tt.action, got, tt.expected[role])
				}
			}
		})
	}
}

func TestCanPerformIsDeterministic(t *testing.T) {
	roles := append(ValidRoles(), Role("unknown"))
	for _, role := range roles {
		for _, action := range ValidActions() {
			first := CanPerform(role, action)
			second := CanPerform(role, action)
			if first != second {
				t.Fatalf("CanPerform(%s, %s) changed between calls", role, action)
			}
		}
	}
}

func TestAuthorizeUnknownRole(t *testing.T) {
	p := Principal{ID: "u-1", Role: Role("superuser")}
	for _, action := range ValidActions() {
		err := Authorize(p, action)
		if !errors.Is(err, ErrPermissionDenied) {
			t.Fatalf("expected ErrPermissionDenied for %s, got %v", action, err)
		}
	}
}

func TestAuthorizeOwned(t *testing.T) {
	dev := Principal{ID: "dev-1", Role: RoleProjectDeveloper}
	admin := Principal{ID: "admin-1", Role: RoleAdministrator}

	if err := AuthorizeOwned(dev, ActionEditProject, "dev-1"); err != nil {
		t.Fatalf("owner should be allowed: %v", err)
	}
	if err := AuthorizeOwned(dev, ActionEditProject, "dev-2"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied for non-owner, got %v", err)
	}
	if err := AuthorizeOwned(admin, ActionEditProject, "dev-2"); err != nil {
		t.Fatalf("administrator should be allowed on any project: %v", err)
	}
}
