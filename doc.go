// Package snapcache answers whether a data file is still referenced by any
// snapshot, so a storage garbage collector can decide what is safe to delete.
//
// Snapshots are directories below a single snapshots directory. Snapshots that
// are still being written live below a reserved child directory (".tmp" by
// default) and are inspected on every refresh. The cache relies on directory
// modification times to skip unchanged directories, so the FileSystem it reads
// from must advance the modification time of a directory whenever a direct
// child is created or removed.
//
// The cache may report a file that is no longer referenced until the next
// refresh. That is safe for garbage collection: an unreferenced file is kept a
// little longer, a referenced file is never reported as free.
package snapcache
