package auth

// Access is the scope a teacher credential carries.
type Access string

const (
	AccessAdmin   Access = "admin"
	AccessScanner Access = "scanner"
	AccessBoth    Access = "both"
	// AccessLegacy marks credentials issued before scopes existed. They keep
	// full access so old sessions survive the upgrade.
	AccessLegacy Access = "legacy"
)

// NormalizeAccess maps stored or requested values to a persisted scope:
// admin and scanner are kept, everything else becomes both.
func NormalizeAccess(v string) Access {
	switch Access(v) {
	case AccessAdmin, AccessScanner:
		return Access(v)
	default:
		return AccessBoth
	}
}

// ParseScope reads the scope claim of a credential. An absent claim is legacy.
func ParseScope(v string) Access {
	if v == "" {
		return AccessLegacy
	}
	return Access(v)
}

// CanAdmin reports whether the scope may manage children, teachers and history.
func (a Access) CanAdmin() bool {
	switch a {
	case AccessAdmin, AccessBoth, AccessLegacy:
		return true
	default:
		return false
	}
}

// CanScan reports whether the scope may look up QR codes and record departures.
func (a Access) CanScan() bool {
	switch a {
	case AccessScanner, AccessBoth, AccessLegacy:
		return true
	default:
		return false
	}
}
