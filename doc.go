// Package nufx implements a NuFX (ShrinkIt) archive engine: reading an
// existing archive's table of contents, queuing Add/Update/Delete
// modifications against its records' threads, and flushing those
// modifications back to disk either in place or by rebuilding the archive
// into a temp file and renaming it atomically over the original.
//
// An Archive is opened with Open or created with Create, modified via
// AddRecord and the Record/ThreadMod API, and committed with Flush.
// ExtractThreadToBuffer decompresses a single thread's bytes, applying
// optional EOL and high-bit conversion.
package nufx
