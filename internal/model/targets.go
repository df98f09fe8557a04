package model

import "strings"

// BackTarget is the special leadsTo target meaning "return to the
// previously playing subject" (browser-back semantics).
const BackTarget = "back"

// FrameTargetPrefix marks a leadsTo target that opens an external URL in
// a dismissible frame instead of switching subjects.
const FrameTargetPrefix = "url:"

// FrameURL extracts the URL from a frame target. The second return value
// reports whether the target is a frame directive at all.
func FrameURL(target string) (string, bool) {
	if !isFrameTarget(target) {
		return "", false
	}
	return strings.TrimPrefix(target, FrameTargetPrefix), true
}

func isFrameTarget(target string) bool {
	return strings.HasPrefix(target, FrameTargetPrefix)
}
