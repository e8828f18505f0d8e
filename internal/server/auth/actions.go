package auth

import (
	"strings"

	"github.com/iudanet/chatter/internal/models"
)

// Action is a channel capability. Each action is one bit so that a role's
// permissions form a mask.
type Action uint8

const (
	ActionRead Action = 1 << iota
	ActionUpdate
	ActionDelete
	ActionManageMembers
	ActionPost
)

// rolePermissions is the complete decision table. Nothing else in the
// codebase decodes roles into permissions.
var rolePermissions = map[models.Role]Action{
	models.RoleAdmin:  ActionRead | ActionUpdate | ActionDelete | ActionManageMembers | ActionPost,
	models.RoleMember: ActionRead | ActionPost,
}

// Allows reports whether role grants every bit of action.
// Unknown roles grant nothing.
func Allows(role models.Role, action Action) bool {
	perms, ok := rolePermissions[role]
	if !ok || action == 0 {
		return false
	}
	return perms&action == action
}

var actionNames = []struct {
	name string
	bit  Action
}{
	{"read", ActionRead},
	{"update", ActionUpdate},
	{"delete", ActionDelete},
	{"manage_members", ActionManageMembers},
	{"post", ActionPost},
}

func (a Action) String() string {
	var parts []string
	for _, n := range actionNames {
		if a&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}
