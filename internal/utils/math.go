package utils

func Sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}

// Range returns size consecutive integers starting at start.
func Range(start, size int) []int {
	out := make([]int, size)
	for i := range out {
		out[i] = start + i
	}
	return out
}

func Clamp(input, min, max int) int {
	if input < min {
		return min
	}
	if input > max {
		return max
	}
	return input
}
