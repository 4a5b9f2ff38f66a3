package blob

import "testing"

func TestParseURI(t *testing.T) {
	cases := []struct {
		uri     string
		bucket  string
		object  string
		wantErr bool
	}{
		{"gs://papers/arxiv/2401.00001.pdf", "papers", "arxiv/2401.00001.pdf", false},
		{"gs://bucket/object", "bucket", "object", false},
		{"gs://bucket", "", "", true},
		{"gs://", "", "", true},
		{"https://example.com/x.pdf", "", "", true},
		{"", "", "", true},
	}
	for _, tc := range cases {
		bucket, object, err := parseURI(tc.uri)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseURI(%q): expected error", tc.uri)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseURI(%q): %v", tc.uri, err)
			continue
		}
		if bucket != tc.bucket || object != tc.object {
			t.Errorf("parseURI(%q) = %q, %q", tc.uri, bucket, object)
		}
	}
}
