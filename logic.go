package main

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
)

// drawIndex picks uniformly in [0, n). math/rand/v2 is seeded per process
// from the runtime, so draws are independent across requests.
func drawIndex(n int) int { return rand.IntN(n) }

// sameIDSet reports whether selected and correct contain the same ids,
// ignoring order and repeats in selected.
func sameIDSet(selected []int64, correct []uint) bool {
	want := make(map[int64]struct{}, len(correct))
	for _, id := range correct {
		want[int64(id)] = struct{}{}
	}
	got := make(map[int64]struct{}, len(selected))
	for _, id := range selected {
		got[id] = struct{}{}
	}
	if len(got) != len(want) {
		return false
	}
	for id := range got {
		if _, ok := want[id]; !ok {
			return false
		}
	}
	return true
}

// parseKey parses a submission map key ("12", " 12 ") as a primary key.
func parseKey(s string) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// parseInt accepts a JSON string holding an integer or a JSON number with
// no fractional part (100 and 100.0 alike).
func parseInt(raw json.RawMessage) (int64, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		return n, err == nil
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f), true
	}
	return 0, false
}

// sortedKeys orders submission keys numerically, non-numeric keys last.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, aok := parseKey(keys[i])
		b, bok := parseKey(keys[j])
		if aok != bok {
			return aok
		}
		if a != b {
			return a < b
		}
		return keys[i] < keys[j]
	})
	return keys
}
