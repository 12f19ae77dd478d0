package stringutil

// Contains returns true if the slice contains the string.
func Contains(slice []string, s string) bool {
	for _, e := range slice {
		if e == s {
			return true
		}
	}
	return false
}

// Unique returns the strings of the slice without duplicates, in order
// of their first occurrence.
func Unique(slice []string) []string {
	seen := map[string]bool{}
	var result []string
	for _, s := range slice {
		if seen[s] {
			continue
		}
		seen[s] = true
		result = append(result, s)
	}
	return result
}
