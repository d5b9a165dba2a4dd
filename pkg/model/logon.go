package model

// LogonResult is the platform's answer to a logon attempt. Values the bot
// does not recognize are reported verbatim by their numeric code.
type LogonResult int

const (
	LogonOK LogonResult = iota
	LogonEmailCodeRequired // account protected by an emailed auth code
	LogonInvalidEmailCode  // the supplied email code was wrong
	LogonTwoFactorRequired // account protected by a mobile authenticator
	LogonTwoFactorMismatch // the supplied two-factor code was wrong
	LogonRateLimited       // too many attempts, temporary lockout
	LogonServiceUnavailable
	LogonInvalidPassword
)

func (r LogonResult) String() string {
	switch r {
	case LogonOK:
		return "ok"
	case LogonEmailCodeRequired:
		return "email_code_required"
	case LogonInvalidEmailCode:
		return "invalid_email_code"
	case LogonTwoFactorRequired:
		return "two_factor_required"
	case LogonTwoFactorMismatch:
		return "two_factor_mismatch"
	case LogonRateLimited:
		return "rate_limited"
	case LogonServiceUnavailable:
		return "service_unavailable"
	case LogonInvalidPassword:
		return "invalid_password"
	default:
		return "unknown"
	}
}
