package config

const (
	revokeOnLogoutVar        = "REVOKE_ON_LOGOUT"
	revokeSubjectOnReplayVar = "REVOKE_SUBJECT_ON_REPLAY"
	checkSubjectOnRefreshVar = "CHECK_SUBJECT_ON_REFRESH"
	loginRateLimitVar        = "LOGIN_RATE_LIMIT"
	loginRateBurstVar        = "LOGIN_RATE_BURST"
)

type SecurityConfig interface {
	GetRevokeOnLogout() bool
	GetRevokeSubjectOnReplay() bool
	GetCheckSubjectOnRefresh() bool
	GetLoginRateLimit() float64
	GetLoginRateBurst() int
}

type Security struct {
	src *source
}

var _ SecurityConfig = Security{}

// GetRevokeOnLogout burns the presented refresh token on logout.
func (s Security) GetRevokeOnLogout() bool {
	return s.src.getBool(revokeOnLogoutVar, true)
}

// GetRevokeSubjectOnReplay invalidates every token of a subject whose refresh
// token was replayed.
func (s Security) GetRevokeSubjectOnReplay() bool {
	return s.src.getBool(revokeSubjectOnReplayVar, true)
}

// GetCheckSubjectOnRefresh refuses rotation for subjects missing from the
// identity store.
func (s Security) GetCheckSubjectOnRefresh() bool {
	return s.src.getBool(checkSubjectOnRefreshVar, true)
}

// GetLoginRateLimit is the sustained number of login attempts per second per
// client address. Zero disables throttling.
func (s Security) GetLoginRateLimit() float64 {
	return s.src.getFloat(loginRateLimitVar, 1)
}

func (s Security) GetLoginRateBurst() int {
	return s.src.getInt(loginRateBurstVar, 5)
}
