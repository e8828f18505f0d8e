package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/chatter/internal/models"
	"github.com/iudanet/chatter/internal/server/storage"
)

// MembershipStore is the membership lookup the evaluator depends on.
type MembershipStore interface {
	GetMember(ctx context.Context, channelID, accountID string) (*models.Member, error)
	CountAdmins(ctx context.Context, channelID string) (int, error)
}

// Evaluator decides channel actions from membership rows. Every decision
// reads the row from the store; roles are never cached.
type Evaluator struct {
	members MembershipStore
}

// NewEvaluator creates an evaluator over members.
func NewEvaluator(members MembershipStore) *Evaluator {
	return &Evaluator{members: members}
}

// Can checks that accountID may perform action on channelID and returns the
// caller's role.
// Errors: ErrNotFound for non-members, ErrForbidden, ErrInternal.
func (e *Evaluator) Can(ctx context.Context, accountID, channelID string, action Action) (models.Role, error) {
	role, err := e.role(ctx, channelID, accountID)
	if err != nil {
		return "", err
	}
	if !Allows(role, action) {
		return role, fmt.Errorf("%w: role %s cannot %s", ErrForbidden, role, action)
	}
	return role, nil
}

// CanAddMember checks that caller may add an account with role.
func (e *Evaluator) CanAddMember(ctx context.Context, callerID, channelID string, role models.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	_, err := e.Can(ctx, callerID, channelID, ActionManageMembers)
	return err
}

// CanChangeRole checks that caller may set target's role. Demoting the
// channel's last admin is rejected with ErrLastAdmin.
func (e *Evaluator) CanChangeRole(ctx context.Context, callerID, channelID, targetID string, role models.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	if _, err := e.Can(ctx, callerID, channelID, ActionManageMembers); err != nil {
		return err
	}

	current, err := e.role(ctx, channelID, targetID)
	if err != nil {
		return err
	}
	if current == models.RoleAdmin && role != models.RoleAdmin {
		return e.requireAnotherAdmin(ctx, channelID)
	}
	return nil
}

// CanRemoveMember checks that caller may remove target from the channel.
// Leaving (caller == target) needs no privilege except that the last admin
// cannot leave; removing someone else needs ActionManageMembers.
func (e *Evaluator) CanRemoveMember(ctx context.Context, callerID, channelID, targetID string) error {
	if callerID == targetID {
		role, err := e.role(ctx, channelID, callerID)
		if err != nil {
			return err
		}
		if role == models.RoleAdmin {
			return e.requireAnotherAdmin(ctx, channelID)
		}
		return nil
	}

	if _, err := e.Can(ctx, callerID, channelID, ActionManageMembers); err != nil {
		return err
	}
	target, err := e.role(ctx, channelID, targetID)
	if err != nil {
		return err
	}
	if target == models.RoleAdmin {
		return e.requireAnotherAdmin(ctx, channelID)
	}
	return nil
}

// CanModifyMessage checks that caller may apply action (ActionUpdate or
// ActionDelete) to a message written by authorID. Only the author edits;
// the author or any holder of ActionDelete deletes.
func (e *Evaluator) CanModifyMessage(ctx context.Context, callerID, channelID, authorID string, action Action) error {
	switch action {
	case ActionUpdate:
		if _, err := e.Can(ctx, callerID, channelID, ActionPost); err != nil {
			return err
		}
		if callerID != authorID {
			return fmt.Errorf("%w: only the author can edit a message", ErrForbidden)
		}
		return nil
	case ActionDelete:
		need := ActionDelete
		if callerID == authorID {
			need = ActionPost
		}
		_, err := e.Can(ctx, callerID, channelID, need)
		return err
	default:
		return fmt.Errorf("%w: unsupported message action %s", ErrInvalidInput, action)
	}
}

func (e *Evaluator) role(ctx context.Context, channelID, accountID string) (models.Role, error) {
	member, err := e.members.GetMember(ctx, channelID, accountID)
	if err != nil {
		if errors.Is(err, storage.ErrMemberNotFound) {
			return "", fmt.Errorf("%w: no membership", ErrNotFound)
		}
		return "", internal("get member", err)
	}
	return member.Role, nil
}

func (e *Evaluator) requireAnotherAdmin(ctx context.Context, channelID string) error {
	n, err := e.members.CountAdmins(ctx, channelID)
	if err != nil {
		return internal("count admins", err)
	}
	if n <= 1 {
		return ErrLastAdmin
	}
	return nil
}
