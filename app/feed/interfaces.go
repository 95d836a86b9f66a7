package feed

// CacheStore is the per-source key/value persistence collaborator used for
// conditional-fetch state. Read-modify-write for a single source's keys is
// assumed not to interleave; any locking is the implementation's concern.
type CacheStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}
