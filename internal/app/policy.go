package app

import "bugtalk/internal/model"

// CanMutate reports whether user may change or delete a resource owned by ownerID.
func CanMutate(ownerID uint, user *model.User) bool {
	if user == nil {
		return false
	}
	return user.ID == ownerID || user.Role == model.RoleAdmin
}
