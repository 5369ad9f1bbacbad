package fsutil

// SetBeforeRename swaps the pre-rename hook and returns a restore func.
func SetBeforeRename(fn func(tmpPath string) error) func() {
	prev := beforeRename
	beforeRename = fn
	return func() { beforeRename = prev }
}

// SetAfterStaleCheck swaps the stale-takeover hook and returns a restore func.
func SetAfterStaleCheck(fn func(path string)) func() {
	prev := afterStaleCheck
	afterStaleCheck = fn
	return func() { afterStaleCheck = prev }
}
