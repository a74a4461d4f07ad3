package api

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestUserHandler_ProfileAccess(t *testing.T) {
	env := newTestEnv(t)
	admin := caller{id: env.seedUser(t, "root", nil, true), admin: true}
	alice := caller{id: env.seedUser(t, "alice", nil, false)}
	bob := caller{id: env.seedUser(t, "bob", cgpa(7.5), false)}

	alicePath := fmt.Sprintf("/v1/users/%d", alice.id)

	if w := env.do(t, http.MethodGet, alicePath, nil, anonymous); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, alicePath, nil, bob); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for other candidate got %d", w.Code)
	}

	w := env.do(t, http.MethodPatch, alicePath, map[string]any{"cgpa": 8.4, "phone": " 555-0100 "}, alice)
	if w.Code != http.StatusOK {
		t.Fatalf("update own profile: %d %s", w.Code, w.Body.String())
	}
	user := decodeBody(t, w)["user"].(map[string]any)
	if user["cgpa"] != 8.4 || user["phone"] != "555-0100" || user["has_resume"] != false {
		t.Fatalf("unexpected user %v", user)
	}

	if w := env.do(t, http.MethodPatch, alicePath, map[string]any{"cgpa": 10.5}, alice); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for cgpa above 10 got %d", w.Code)
	}

	w = env.do(t, http.MethodGet, alicePath, nil, admin)
	if w.Code != http.StatusOK {
		t.Fatalf("admin read: %d", w.Code)
	}
	if got := decodeBody(t, w)["user"].(map[string]any)["cgpa"]; got != 8.4 {
		t.Fatalf("rejected update must not change cgpa, got %v", got)
	}

	if w := env.do(t, http.MethodGet, "/v1/users/9999", nil, admin); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user got %d", w.Code)
	}
}

func (e *testEnv) upload(t *testing.T, userID uint, filename string, content []byte, who caller) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := newMultipartUpload(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v1/users/%d/resume", userID), body)
	req.Header.Set("Content-Type", contentType)
	return e.serve(req, who)
}

func TestUserHandler_ResumeUpload(t *testing.T) {
	env := newTestEnv(t)
	alice := caller{id: env.seedUser(t, "alice", cgpa(8), false)}
	linkPath := fmt.Sprintf("/v1/users/%d/resume", alice.id)

	if w := env.do(t, http.MethodGet, linkPath, nil, alice); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before upload got %d", w.Code)
	}

	w := env.upload(t, alice.id, "cv.PDF", []byte("%PDF-1.4 first"), alice)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload: %d %s", w.Code, w.Body.String())
	}
	first := decodeBody(t, w)["objectKey"].(string)
	if !strings.HasPrefix(first, fmt.Sprintf("resumes/%d/", alice.id)) || !strings.HasSuffix(first, ".pdf") {
		t.Fatalf("unexpected object key %q", first)
	}
	if !bytes.Equal(env.files.uploaded[first], []byte("%PDF-1.4 first")) {
		t.Fatalf("content not stored")
	}

	w = env.upload(t, alice.id, "cv.docx", []byte("second"), alice)
	if w.Code != http.StatusCreated {
		t.Fatalf("second upload: %d", w.Code)
	}
	second := decodeBody(t, w)["objectKey"].(string)
	if len(env.files.deleted) != 1 || env.files.deleted[0] != first {
		t.Fatalf("previous resume should be removed, deleted=%v", env.files.deleted)
	}

	w = env.do(t, http.MethodGet, linkPath, nil, alice)
	if w.Code != http.StatusOK {
		t.Fatalf("link: %d", w.Code)
	}
	if url := decodeBody(t, w)["url"].(string); !strings.HasSuffix(url, second) {
		t.Fatalf("link should point at the latest resume, got %q", url)
	}
}

func TestUserHandler_ResumeRejections(t *testing.T) {
	env := newTestEnv(t)
	alice := caller{id: env.seedUser(t, "alice", cgpa(8), false)}
	bob := caller{id: env.seedUser(t, "bob", cgpa(8), false)}

	cases := []struct {
		name     string
		filename string
		content  []byte
		who      caller
		infected bool
		want     int
	}{
		{name: "other user", filename: "cv.pdf", content: []byte("x"), who: bob, want: http.StatusForbidden},
		{name: "bad extension", filename: "cv.exe", content: []byte("x"), who: alice, want: http.StatusBadRequest},
		{name: "empty", filename: "cv.pdf", content: nil, who: alice, want: http.StatusBadRequest},
		{name: "too large", filename: "cv.pdf", content: bytes.Repeat([]byte("a"), 2048), who: alice, want: http.StatusRequestEntityTooLarge},
		{name: "infected", filename: "cv.pdf", content: []byte("EICAR"), who: alice, infected: true, want: http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env.scanner.infected = tc.infected
			w := env.upload(t, alice.id, tc.filename, tc.content, tc.who)
			if w.Code != tc.want {
				t.Fatalf("expected %d got %d %s", tc.want, w.Code, w.Body.String())
			}
		})
	}

	if len(env.files.uploaded) != 0 {
		t.Fatalf("rejected uploads must not reach storage: %v", env.files.uploaded)
	}
}

func TestUserHandler_ResumeWithoutStorage(t *testing.T) {
	env := newTestEnv(t)
	alice := caller{id: env.seedUser(t, "alice", cgpa(8), false)}

	users := NewUserHandler(nil, env.store, nil, nil, 0)
	env.router.POST("/v2/users/:id/resume", users.UploadResume)

	body, contentType := newMultipartUpload(t, "cv.pdf", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v2/users/%d/resume", alice.id), body)
	req.Header.Set("Content-Type", contentType)
	if w := env.serve(req, alice); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", w.Code)
	}
}

func TestNewClamdScanner_Disabled(t *testing.T) {
	if newClamdScanner("  ") != nil {
		t.Fatalf("blank address should disable scanning")
	}
}
