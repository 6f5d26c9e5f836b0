// Package selection parses numbered list choices such as "1,3-5" or "all".
package selection

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrEmpty is returned for blank input.
var ErrEmpty = errors.New("empty selection")

// Parse turns a selection expression over a list of n items into zero-based
// indices. Accepted forms are "all", a single number ("3"), a range ("1-5"),
// and comma separated combinations of both ("1,3-5"). Numbers are one-based.
// Repeated items are returned once, in the order first selected.
func Parse(input string, n int) ([]int, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return nil, ErrEmpty
	}
	if n <= 0 {
		return nil, fmt.Errorf("nothing to select from")
	}

	if input == "all" {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}

	seen := make(map[int]bool)
	var out []int
	add := func(i int) {
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}

	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("invalid selection %q", input)
		}

		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err := parseNumber(lo, n)
			if err != nil {
				return nil, err
			}
			end, err := parseNumber(hi, n)
			if err != nil {
				return nil, err
			}
			if start > end {
				return nil, fmt.Errorf("invalid range %q", part)
			}
			for i := start; i <= end; i++ {
				add(i - 1)
			}
			continue
		}

		num, err := parseNumber(part, n)
		if err != nil {
			return nil, err
		}
		add(num - 1)
	}
	return out, nil
}

func parseNumber(s string, n int) (int, error) {
	s = strings.TrimSpace(s)
	num, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if num < 1 || num > n {
		return 0, fmt.Errorf("%d is out of range 1-%d", num, n)
	}
	return num, nil
}
