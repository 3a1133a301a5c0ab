package pagination

// ClampLimit resolves a requested page size: 0 means def, anything else is
// clamped into [1, max].
func ClampLimit(requested, def, max int) int {
	switch {
	case requested == 0:
		return def
	case requested < 1:
		return 1
	case requested > max:
		return max
	}
	return requested
}
