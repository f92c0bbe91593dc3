package mathx

// FloorDiv divides rounding toward negative infinity. b must be positive.
func FloorDiv(a, b int) int {
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

// Mod is the remainder matching FloorDiv, always in [0, b).
func Mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
