package dataset

import "go.uber.org/atomic"

// snapshotHolder publishes Snapshots with a single atomic pointer swap so
// readers never observe a partially built index set.
type snapshotHolder struct {
	ptr atomic.Pointer[Snapshot]
}

func newSnapshotHolder() *snapshotHolder {
	h := &snapshotHolder{}
	h.ptr.Store(&Snapshot{
		byType:      map[TitleType][]*Title{},
		byTypeGenre: map[string][]*Title{},
		byDecade:    map[int][]*Title{},
	})
	return h
}

// load returns the currently active snapshot. A query in flight during a
// refresh keeps observing the snapshot it loaded here, even after publish
// swaps in a new one.
func (h *snapshotHolder) load() *Snapshot {
	return h.ptr.Load()
}

// publish atomically swaps in snap as the active snapshot.
func (h *snapshotHolder) publish(snap *Snapshot) {
	h.ptr.Store(snap)
}
