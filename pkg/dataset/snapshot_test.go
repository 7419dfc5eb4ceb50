package dataset

import "testing"

func TestSnapshotHolder_PublishIsVisibleToLoad(t *testing.T) {
	h := newSnapshotHolder()

	empty := h.load()
	if empty.titleCount != 0 {
		t.Fatalf("expected empty initial snapshot, got titleCount=%d", empty.titleCount)
	}

	fresh := buildSnapshot([]*Title{
		{ID: "a", Type: TitleMovie, Rating: 7.0, Votes: 10, StartYear: 2000},
	})
	h.publish(fresh)

	got := h.load()
	if got.titleCount != 1 {
		t.Fatalf("expected published snapshot visible, got titleCount=%d", got.titleCount)
	}
}

func TestSnapshotHolder_InFlightLoadUnaffectedByLaterPublish(t *testing.T) {
	h := newSnapshotHolder()
	h.publish(buildSnapshot([]*Title{{ID: "a", Type: TitleMovie, StartYear: 2000}}))

	captured := h.load()

	h.publish(buildSnapshot([]*Title{
		{ID: "a", Type: TitleMovie, StartYear: 2000},
		{ID: "b", Type: TitleMovie, StartYear: 2001},
	}))

	if captured.titleCount != 1 {
		t.Fatalf("captured snapshot should be unaffected by later publish, got titleCount=%d", captured.titleCount)
	}
	if h.load().titleCount != 2 {
		t.Fatalf("expected new publish visible to fresh load, got titleCount=%d", h.load().titleCount)
	}
}
