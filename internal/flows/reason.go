package flows

import "github.com/MrEthical07/goCred/internal/stores"

// Reason explains a failed validation internally.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonNotFound        Reason = "not_found"
	ReasonSubjectMismatch Reason = "subject_mismatch"
	ReasonEmailMismatch   Reason = "email_mismatch"
	ReasonUsed            Reason = "used"
	ReasonRevoked         Reason = "revoked"
	ReasonExpired         Reason = "expired"
	ReasonUserNotFound    Reason = "user_not_found"
)

// GenericFailureMessage is the only text a presenter should see for any
// failed validation.
const GenericFailureMessage = "invalid or expired code"

// Describe renders the reason for operator logs.
func (r Reason) Describe(typ stores.Type) string {
	token := typ == stores.TypeLongLivedToken
	switch r {
	case ReasonNone:
		return ""
	case ReasonNotFound:
		switch typ {
		case stores.TypeResetCode:
			return "Invalid reset code."
		case stores.TypeVerificationChallenge:
			return "Invalid verification code."
		default:
			return "Invalid token."
		}
	case ReasonSubjectMismatch:
		return "Credential does not belong to this user."
	case ReasonEmailMismatch:
		return "Code was issued for a different email address."
	case ReasonUsed:
		return "This code has already been used."
	case ReasonRevoked:
		return "Token has been revoked."
	case ReasonExpired:
		if token {
			return "Token has expired."
		}
		return "Code has expired."
	case ReasonUserNotFound:
		return "Could not find associated user."
	default:
		return string(r)
	}
}
