package numerator

// IsValidFormat reports whether candidate matches the grammar of f exactly.
// Empty input and unknown formats are never valid.
func IsValidFormat(candidate string, f Format) bool {
	if candidate == "" {
		return false
	}
	cfg, ok := configs[f]
	if !ok {
		return false
	}
	return cfg.pattern.MatchString(candidate)
}
