package model

// CartIdentity はカートの持ち主を表す。
// ユーザーIDかセッショントークンのどちらか一方だけを持つ。
// ゼロ値は匿名（どちらも無い）を意味する。
type CartIdentity struct {
	userID    string
	sessionID string
}

// ログイン済みユーザーのカート
func UserIdentity(userID string) CartIdentity {
	return CartIdentity{userID: userID}
}

// ゲスト（セッショントークン）のカート
func GuestIdentity(sessionID string) CartIdentity {
	return CartIdentity{sessionID: sessionID}
}

func (ci CartIdentity) UserID() (string, bool) {
	return ci.userID, ci.userID != ""
}

func (ci CartIdentity) SessionID() (string, bool) {
	return ci.sessionID, ci.userID == "" && ci.sessionID != ""
}

// どちらも無い（匿名）かどうか
func (ci CartIdentity) IsAnonymous() bool {
	return ci.userID == "" && ci.sessionID == ""
}
