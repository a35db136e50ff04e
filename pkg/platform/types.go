// Package platform speaks the storefront's session and key-redemption
// endpoints. The login/session protocol itself belongs to the remote
// service; this package only implements its call contract.
package platform

import "fmt"

// Logon result codes surfaced by the storefront.
const (
	ResultOK               = 1
	ResultInvalidPassword  = 5
	ResultGuardRequired    = 63
	ResultInvalidGuardCode = 65
)

// Detail codes accompanying a failed redemption.
const (
	DetailNone             = 0
	DetailAlreadyOwned     = 9
	DetailInvalidKey       = 14
	DetailAlreadyActivated = 15
	DetailRateLimited      = 53
)

// Credentials for the storefront account.
type Credentials struct {
	AccountName string
	Password    string
}

// RedeemResult is the parsed outcome of one key redemption request.
// Result is the top-level success code (1 = OK); Detail is the secondary
// reason code on failure; Products lists redeemed line items when present.
type RedeemResult struct {
	Result   int
	Detail   int
	Products []string
}

// OK reports whether the redemption succeeded.
func (r *RedeemResult) OK() bool { return r.Result == ResultOK }

// LogonError carries the storefront's numeric logon result code.
type LogonError struct {
	Result int
}

func (e *LogonError) Error() string {
	switch e.Result {
	case ResultGuardRequired:
		return "logon failed: guard code required"
	case ResultInvalidGuardCode:
		return "logon failed: invalid guard code"
	case ResultInvalidPassword:
		return "logon failed: invalid password"
	default:
		return fmt.Sprintf("logon failed: result code %d", e.Result)
	}
}

// GuardRequired reports whether the account demands a machine-auth code.
func (e *LogonError) GuardRequired() bool {
	return e.Result == ResultGuardRequired || e.Result == ResultInvalidGuardCode
}
