package utils

// ToStringSlice filters a decoded JSON array down to its string elements,
// dropping anything that is not a string.
func ToStringSlice(values []any) []string {
	strs := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			strs = append(strs, s)
		}
	}
	return strs
}
