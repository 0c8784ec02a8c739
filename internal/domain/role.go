package domain

// Role はPrincipalの役割を表す。5種類の排他的な値のみを取る。
type Role string

const (
	RoleCommunityUser    Role = "community_user"
	RoleProjectDeveloper Role = "project_developer"
	RoleGovernmentAgency Role = "government_agency"
	RoleAdministrator    Role = "administrator"
	RoleResearcher       Role = "researcher"
)

// ValidRoles は有効なRoleの一覧を返す。
func ValidRoles() []Role {
	return []Role{
		RoleCommunityUser,
		RoleProjectDeveloper,
		RoleGovernmentAgency,
		RoleAdministrator,
		RoleResearcher,
	}
}

// IsValid はRoleが既知の値かを返す。
func (r Role) IsValid() bool {
	_, ok := capabilities[r]
	return ok
}

// Action はRoleによって許可・拒否される操作を表す。
type Action string

const (
	ActionCreateProject  Action = "createProject"
	ActionEditProject    Action = "editProject"
	ActionApproveProject Action = "approveProject"
	ActionDeleteUser     Action = "deleteUser"
	ActionPostComment    Action = "postComment"
	ActionUpvoteComment  Action = "upvoteComment"
	ActionViewAnalytics  Action = "viewAnalytics"
)

// ValidActions は既知のActionの一覧を返す。
func ValidActions() []Action {
	return []Action{
		ActionCreateProject,
		ActionEditProject,
		ActionApproveProject,
		ActionDeleteUser,
		ActionPostComment,
		ActionUpvoteComment,
		ActionViewAnalytics,
	}
}

// Scope は許可の範囲。ScopeOwn は自身が所有するプロジェクトに限定される。
type Scope int

const (
	ScopeNone Scope = iota
	ScopeOwn
	ScopeAll
)

// capabilities はRole×Actionの権限表。ここに無い組み合わせはすべて拒否。
var capabilities = map[Role]map[Action]Scope{
	RoleCommunityUser: {
		ActionPostComment:   ScopeAll,
		ActionUpvoteComment: ScopeAll,
	},
	RoleProjectDeveloper: {
		ActionCreateProject: ScopeAll,
		ActionEditProject:   ScopeOwn,
		ActionPostComment:   ScopeAll,
		ActionUpvoteComment: ScopeAll,
		ActionViewAnalytics: ScopeOwn,
	},
	RoleGovernmentAgency: {
		ActionCreateProject:  ScopeAll,
		ActionEditProject:    ScopeOwn,
		ActionApproveProject: ScopeAll,
		ActionPostComment:    ScopeAll,
		ActionUpvoteComment:  ScopeAll,
		ActionViewAnalytics:  ScopeAll,
	},
	RoleAdministrator: {
		ActionCreateProject:  ScopeAll,
		ActionEditProject:    ScopeAll,
		ActionApproveProject: ScopeAll,
		ActionDeleteUser:     ScopeAll,
		ActionPostComment:    ScopeAll,
		ActionUpvoteComment:  ScopeAll,
		ActionViewAnalytics:  ScopeAll,
	},
	RoleResearcher: {
		ActionPostComment:   ScopeAll,
		ActionUpvoteComment: ScopeAll,
		ActionViewAnalytics: ScopeAll,
	},
}

// CapabilityScope はRoleがActionを実行できる範囲を返す。
// 未知のRole・Actionは ScopeNone。
func CapabilityScope(role Role, action Action) Scope {
	return capabilities[role][action]
}

// CanPerform はRoleがActionを（少なくとも自身の所有物に対して）実行できるかを返す。
// 純粋関数であり、同じ入力には常に同じ結果を返す。
func CanPerform(role Role, action Action) bool {
	return CapabilityScope(role, action) != ScopeNone
}

// Principal はIDプロバイダが解決した認証済みの主体。セッション中は不変。
type Principal struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
}

// Authorize はPrincipalがActionを実行可能かを検査する。
// 未知のRoleは許可の既定値にフォールバックせず、常に PermissionDenied。
func Authorize(p Principal, action Action) error {
	if !p.Role.IsValid() {
		return PermissionError(action, "unknown role "+string(p.Role))
	}
	if !CanPerform(p.Role, action) {
		return PermissionError(action, "role "+string(p.Role)+" is not allowed")
	}
	return nil
}

// AuthorizeOwned は所有者限定の権限を考慮してActionの可否を検査する。
// ScopeOwn の場合は ownerID が Principal のIDと一致する必要がある。
func AuthorizeOwned(p Principal, action Action, ownerID string) error {
	if err := Authorize(p, action); err != nil {
		return err
	}
	if CapabilityScope(p.Role, action) == ScopeOwn && p.ID != ownerID {
		return PermissionError(action, "principal "+p.ID+" does not own the resource")
	}
	return nil
}
