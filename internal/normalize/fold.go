package normalize

// FoldASCII lower-cases A-Z only. Unlike strings.ToLower it never changes
// the byte length, so offsets found in the result index the input.
func FoldASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
