package model

// PurchaseResult is the platform's answer to a key redemption.
type PurchaseResult int

const (
	PurchaseOK PurchaseResult = iota
	PurchaseAlreadyOwned
	PurchaseInvalidKey
	PurchaseUsedKey
	PurchaseRateLimited
	PurchaseRegionLocked
)

func (r PurchaseResult) String() string {
	switch r {
	case PurchaseOK:
		return "ok"
	case PurchaseAlreadyOwned:
		return "already_owned"
	case PurchaseInvalidKey:
		return "invalid_key"
	case PurchaseUsedKey:
		return "used_key"
	case PurchaseRateLimited:
		return "rate_limited"
	case PurchaseRegionLocked:
		return "region_locked"
	default:
		return "unknown"
	}
}

// Text returns the user-facing reply for a redemption result.
func (r PurchaseResult) Text() string {
	switch r {
	case PurchaseOK:
		return "Key redeemed, the game was added to the library."
	case PurchaseAlreadyOwned:
		return "The game behind this key is already owned."
	case PurchaseInvalidKey:
		return "This key is invalid."
	case PurchaseUsedKey:
		return "This key has already been used."
	case PurchaseRateLimited:
		return "Too many redemption attempts, try again later."
	case PurchaseRegionLocked:
		return "This key is locked to another region."
	default:
		return "Redemption failed with an unknown result."
	}
}
