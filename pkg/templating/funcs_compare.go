package templating

// less returns a < b. Values without an order compare false.
func less(a, b any) bool {
	c, ok := compareValues(a, b)
	return ok && c < 0
}

// lessOrEqual returns a <= b.
func lessOrEqual(a, b any) bool {
	c, ok := compareValues(a, b)
	return ok && c <= 0
}

// greater returns a > b.
func greater(a, b any) bool {
	c, ok := compareValues(a, b)
	return ok && c > 0
}

// greaterOrEqual returns a >= b.
func greaterOrEqual(a, b any) bool {
	c, ok := compareValues(a, b)
	return ok && c >= 0
}

// equal returns a == b, comparing numbers by value.
func equal(a, b any) bool {
	if c, ok := compareValues(a, b); ok {
		return c == 0
	}
	return looseEqual(a, b)
}

func notEqual(a, b any) bool {
	return !equal(a, b)
}
