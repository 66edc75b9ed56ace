package snapcache

import "time"

// snapshotRecord remembers the files of one finished snapshot together with
// the modification time of its directory when it was inspected.
type snapshotRecord struct {
	modifyTime time.Time
	files      []string
}

func newSnapshotRecord(modifyTime time.Time, files []string) *snapshotRecord {
	return &snapshotRecord{
		modifyTime: modifyTime,
		files:      append([]string(nil), files...),
	}
}

// hasBeenModified reports whether the directory changed after the record was
// created. Equal times count as unchanged.
func (r *snapshotRecord) hasBeenModified(modifyTime time.Time) bool {
	return modifyTime.After(r.modifyTime)
}

func (r *snapshotRecord) addTo(files map[string]struct{}) {
	for _, name := range r.files {
		files[name] = struct{}{}
	}
}
