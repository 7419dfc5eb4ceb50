package dataset

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func gzipTSV(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(body)); err != nil {
		t.Fatalf("writing gzip body: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip writer: %v", err)
	}
	return buf.Bytes()
}

func newTestDataServer(t *testing.T, ratingsTSV, basicsTSV string, fail bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ratings.tsv.gz", func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(gzipTSV(t, ratingsTSV))
	})
	mux.HandleFunc("/basics.tsv.gz", func(w http.ResponseWriter, r *http.Request) {
		w.Write(gzipTSV(t, basicsTSV))
	})
	return httptest.NewServer(mux)
}

const testRatingsTSV = "titleId\taverageRating\tnumVotes\n" +
	"tt0000001\t7.5\t2000\n"

const testBasicsTSV = "tconst\ttitleType\tprimaryTitle\toriginalTitle\tisAdult\tstartYear\tendYear\truntimeMinutes\tgenres\n" +
	"tt0000001\tmovie\tExample\tExample\t0\t1999\t\\N\t120\tDrama,Action\n"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEngine_RefreshPublishesSnapshot(t *testing.T) {
	srv := newTestDataServer(t, testRatingsTSV, testBasicsTSV, false)
	defer srv.Close()

	e := NewEngine(Options{
		RatingsURL: srv.URL + "/ratings.tsv.gz",
		BasicsURL:  srv.URL + "/basics.tsv.gz",
	}, testLogger())

	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	count, builtAt := e.Stats()
	if count != 1 {
		t.Fatalf("expected 1 title indexed, got %d", count)
	}
	if builtAt == 0 {
		t.Fatal("expected non-zero builtAt timestamp")
	}

	page := e.Query(QueryParams{Type: TitleMovie})
	if page.Total != 1 || page.Titles[0].ID != "tt0000001" {
		t.Fatalf("unexpected query result after refresh: %+v", page)
	}
}

func TestEngine_FailedRefreshLeavesPreviousDatasetActive(t *testing.T) {
	srv := newTestDataServer(t, testRatingsTSV, testBasicsTSV, false)
	defer srv.Close()

	e := NewEngine(Options{
		RatingsURL: srv.URL + "/ratings.tsv.gz",
		BasicsURL:  srv.URL + "/basics.tsv.gz",
	}, testLogger())

	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("initial Refresh: %v", err)
	}
	before, _ := e.Stats()

	failing := newTestDataServer(t, testRatingsTSV, testBasicsTSV, true)
	defer failing.Close()
	e.opts.RatingsURL = failing.URL + "/ratings.tsv.gz"
	e.opts.BasicsURL = failing.URL + "/basics.tsv.gz"

	if err := e.Refresh(context.Background()); err == nil {
		t.Fatal("expected Refresh to fail against the broken server")
	}

	after, _ := e.Stats()
	if after != before {
		t.Fatalf("expected dataset unchanged after failed refresh: before=%d after=%d", before, after)
	}
}
