// Package policy はユーザー操作の認可判定を提供する。
//
// 各関数は呼び出し元と対象ユーザーIDのみを見る純粋な判定で、
// 許可されない場合はFORBIDDENのAPIErrorを返す。
// 対象の存在確認より先に呼ぶことで、他人のIDの存否を漏らさない。
package policy

import "github.com/hitoshi/accounts/internal/model"

func isSelf(caller *model.Principal, targetID string) bool {
	id := caller.UserID()
	return id != "" && id == targetID
}

func selfOrAdmin(caller *model.Principal, targetID, message string) error {
	if isSelf(caller, targetID) || caller.IsAdmin() {
		return nil
	}
	return model.NewForbiddenError(message)
}

// CanView は本人または管理者のみ閲覧を許可する。
func CanView(caller *model.Principal, targetID string) error {
	return selfOrAdmin(caller, targetID, "You cannot view other users")
}

// CanUpdate は本人または管理者のみ更新を許可する。
func CanUpdate(caller *model.Principal, targetID string) error {
	return selfOrAdmin(caller, targetID, "You cannot update other users")
}

// CanSoftDelete は本人または管理者のみ論理削除を許可する。
func CanSoftDelete(caller *model.Principal, targetID string) error {
	return selfOrAdmin(caller, targetID, "You cannot delete other users")
}

// CanPurge は本人または管理者のみ物理削除を許可する。
func CanPurge(caller *model.Principal, targetID string) error {
	return selfOrAdmin(caller, targetID, "You cannot permanently delete other users")
}

// CanRestore は本人のみ復元を許可する（管理者でも不可）。
func CanRestore(caller *model.Principal, targetID string) error {
	if isSelf(caller, targetID) {
		return nil
	}
	return model.NewForbiddenError("You can only restore your own account")
}

// CanListUsers は管理者のみユーザー一覧を許可する。
func CanListUsers(caller *model.Principal) error {
	if caller.IsAdmin() {
		return nil
	}
	return model.NewForbiddenError("Only admins can list users")
}

// CanListAdmins は管理者のみ管理者一覧を許可する。
func CanListAdmins(caller *model.Principal) error {
	if caller.IsAdmin() {
		return nil
	}
	return model.NewForbiddenError("Only admins can list admins")
}

// CanSetAdminStatus は管理者のみ管理者権限の変更を許可する。
func CanSetAdminStatus(caller *model.Principal) error {
	if caller.IsAdmin() {
		return nil
	}
	return model.NewForbiddenError("Only admins can change admin status")
}
