package utils

// ClaimStrings reads a multi-valued JSON claim. Decoded JSON arrays arrive as
// []any; non-string members are skipped. A single string is treated as a
// one-element list, as some providers collapse single-member arrays.
func ClaimStrings(claim any) []string {
	switch v := claim.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
