package pypi

import (
	"regexp"
	"strconv"
	"strings"
)

// Release stage priorities (lower = earlier in the release cycle)
var stagePriority = map[string]int{
	"dev":   -4,
	"alpha": -3,
	"a":     -3,
	"beta":  -2,
	"b":     -2,
	"rc":    -1,
	"c":     -1,
	"":      0, // final release
	"post":  1,
}

// stageSuffixRegex matches suffixes like rc1, .dev3, -alpha2, .post1
var stageSuffixRegex = regexp.MustCompile(`[._-]?(dev|post|alpha|beta|rc|a|b|c)\.?(\d*)$`)

// parseVersion breaks a PyPI version string into components for comparison
// Returns: numeric parts, release stage, stage number
func parseVersion(v string) ([]int, string, int) {
	stage := ""
	stageNum := 0
	if matches := stageSuffixRegex.FindStringSubmatch(v); matches != nil {
		stage = matches[1]
		if matches[2] != "" {
			stageNum, _ = strconv.Atoi(matches[2])
		}
		v = stageSuffixRegex.ReplaceAllString(v, "")
	}

	// Parse numeric parts (1.10.0 -> [1, 10, 0])
	parts := strings.Split(v, ".")
	nums := make([]int, len(parts))
	for i, p := range parts {
		// Tolerate stray letters in a part (2a -> 2)
		numStr := strings.TrimRight(p, "abcdefghijklmnopqrstuvwxyz")
		if numStr == "" {
			nums[i] = 0
		} else {
			nums[i], _ = strconv.Atoi(numStr)
		}
	}

	return nums, stage, stageNum
}

// compareNumericParts compares two part slices, zero-filling the shorter one
func compareNumericParts(a, b []int) int {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}

	for i := 0; i < maxLen; i++ {
		var av, bv int
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}

		if av < bv {
			return -1
		}
		if av > bv {
			return 1
		}
	}
	return 0
}

// CompareVersions compares two PyPI-style version strings
// Returns: -1 if v1 < v2, 0 if v1 == v2, 1 if v1 > v2
func CompareVersions(v1, v2 string) int {
	nums1, stage1, stageNum1 := parseVersion(v1)
	nums2, stage2, stageNum2 := parseVersion(v2)

	// Compare numeric parts first
	if cmp := compareNumericParts(nums1, nums2); cmp != 0 {
		return cmp
	}

	// Compare stages (dev < alpha < beta < rc < release < post)
	priority1 := stagePriority[stage1]
	priority2 := stagePriority[stage2]
	if priority1 < priority2 {
		return -1
	}
	if priority1 > priority2 {
		return 1
	}

	// Same stage, compare stage numbers
	if stageNum1 < stageNum2 {
		return -1
	}
	if stageNum1 > stageNum2 {
		return 1
	}

	return 0
}
