package shipping

// Preference is a seller's explicit enablement of a carrier or service.
// A missing record is PreferenceUnset, which counts as enabled (opt-out).
type Preference int

const (
	PreferenceUnset Preference = iota
	PreferenceEnabled
	PreferenceDisabled
)

// PreferenceOf converts a stored boolean into a Preference.
func PreferenceOf(enabled bool) Preference {
	if enabled {
		return PreferenceEnabled
	}
	return PreferenceDisabled
}

// Effective resolves the tri-state: only an explicit PreferenceDisabled turns something off.
func Effective(p Preference) bool {
	return p != PreferenceDisabled
}

// Lookup reads key from prefs, PreferenceUnset when absent.
func Lookup(prefs map[string]Preference, key string) Preference {
	if p, ok := prefs[key]; ok {
		return p
	}
	return PreferenceUnset
}

func (p Preference) String() string {
	switch p {
	case PreferenceEnabled:
		return "enabled"
	case PreferenceDisabled:
		return "disabled"
	}
	return "unset"
}
