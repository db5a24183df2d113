package query

import (
	"errors"
	"testing"
)

func TestPlanAllBuckets(t *testing.T) {
	q := Plan(NewRequest(AllBuckets))

	if q.URI != FilesURI {
		t.Errorf("URI = %q, want %q", q.URI, FilesURI)
	}
	if want := "media_type = 1 OR media_type = 3"; q.Selection != want {
		t.Errorf("Selection = %q, want %q", q.Selection, want)
	}
	if len(q.SelectionArgs) != 0 {
		t.Errorf("SelectionArgs = %v, want none", q.SelectionArgs)
	}
	if q.SortOrder != "_id DESC" {
		t.Errorf("SortOrder = %q, want %q", q.SortOrder, "_id DESC")
	}
}

func TestPlanSingleBucket(t *testing.T) {
	q := Plan(NewRequest("7"))

	if want := "(media_type = 1 OR media_type = 3) AND bucket_id = ?"; q.Selection != want {
		t.Errorf("Selection = %q, want %q", q.Selection, want)
	}
	if len(q.SelectionArgs) != 1 || q.SelectionArgs[0] != "7" {
		t.Errorf("SelectionArgs = %v, want [7]", q.SelectionArgs)
	}
}

func TestPlanBucketIsNeverInterpolated(t *testing.T) {
	hostile := "1' OR '1'='1"
	q := Plan(NewRequest(hostile))

	for _, s := range []string{q.Selection, q.SortOrder} {
		if contains(s, hostile) {
			t.Errorf("bucket id leaked into SQL text: %q", s)
		}
	}
	if len(q.SelectionArgs) != 1 || q.SelectionArgs[0] != hostile {
		t.Errorf("SelectionArgs = %v, want bound bucket id", q.SelectionArgs)
	}
}

func TestPlanSortOrder(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"default descending", NewRequest("0"), "_id DESC"},
		{"inverted ascending", Request{BucketID: "0", Inverted: true, Limit: -1, Offset: -1}, "_id ASC"},
		{"paginated", Request{BucketID: "0", Limit: 20, Offset: 40}, "_id DESC LIMIT 20 OFFSET 40"},
		{"paginated inverted", Request{BucketID: "0", Inverted: true, Limit: 5, Offset: 0}, "_id ASC LIMIT 5 OFFSET 0"},
		{"limit only", Request{BucketID: "0", Limit: 20, Offset: -1}, "_id DESC"},
		{"offset only", Request{BucketID: "0", Limit: -1, Offset: 3}, "_id DESC"},
		{"zero limit", Request{BucketID: "0", Limit: 0, Offset: 0}, "_id DESC LIMIT 0 OFFSET 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Plan(tt.req).SortOrder; got != tt.want {
				t.Errorf("SortOrder = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVideoLookup(t *testing.T) {
	q := VideoLookup("13")
	if q.URI != VideoURI+"/13" {
		t.Errorf("URI = %q", q.URI)
	}
	if q.Selection != "" || q.SortOrder != "" || len(q.SelectionArgs) != 0 {
		t.Errorf("point query should carry no predicate, got %+v", q)
	}
}

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri        string
		collection string
		id         string
		wantErr    bool
	}{
		{FilesURI, CollectionFiles, "", false},
		{VideoURI, CollectionVideo, "", false},
		{VideoURI + "/13", CollectionVideo, "13", false},
		{FilesURI + "/42", CollectionFiles, "42", false},
		{VideoURI + "/abc", "", "", true},
		{VideoURI + "/", "", "", true},
		{"content://media/internal/audio", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			collection, id, err := ParseURI(tt.uri)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownURI) {
					t.Errorf("ParseURI(%q) error = %v, want ErrUnknownURI", tt.uri, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseURI(%q) unexpected error: %v", tt.uri, err)
			}
			if collection != tt.collection || id != tt.id {
				t.Errorf("ParseURI(%q) = (%q, %q), want (%q, %q)", tt.uri, collection, id, tt.collection, tt.id)
			}
		})
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
