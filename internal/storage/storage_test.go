package storage

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
)

func TestIsNoSuchKey(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"minio code", minio.ErrorResponse{Code: "NoSuchKey"}, true},
		{"wrapped", fmt.Errorf("remove: %w", minio.ErrorResponse{Code: "NotFound"}), true},
		{"status only", minio.ErrorResponse{StatusCode: http.StatusNotFound}, true},
		{"plain error", errors.New("connection refused"), false},
		{"other", minio.ErrorResponse{Code: "AccessDenied"}, false},
	}
	for _, tc := range cases {
		if got := isNoSuchKey(tc.err); got != tc.want {
			t.Errorf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestResumeObjectKey(t *testing.T) {
	a := ResumeObjectKey(3, ".PDF")
	b := ResumeObjectKey(3, ".PDF")
	if !strings.HasPrefix(a, "resumes/3/") || !strings.HasSuffix(a, ".pdf") {
		t.Fatalf("unexpected key %q", a)
	}
	if a == b {
		t.Fatalf("keys must be unique per upload")
	}
}

func TestParseBucketLookup(t *testing.T) {
	if v, err := parseBucketLookup("PATH"); err != nil || v != minio.BucketLookupPath {
		t.Fatalf("unexpected %v %v", v, err)
	}
	if _, err := parseBucketLookup("weird"); err == nil {
		t.Fatalf("expected error for unknown lookup")
	}
}
