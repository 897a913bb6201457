package nufx

import (
	"os"

	"golang.org/x/sys/unix"
)

// truncateTo shrinks f to exactly size bytes, used after the in-place flush
// path rewrites a (possibly shorter) trailing region. unix.Ftruncate is
// tried first; if it fails, os.File.Truncate is tried before an error is
// reported.
func truncateTo(f *os.File, size int64) error {
	if err := unix.Ftruncate(int(f.Fd()), size); err == nil {
		return nil
	}
	if err := f.Truncate(size); err != nil {
		return newErr(KindFileWrite, err, "truncate archive to %d bytes", size)
	}
	return nil
}
