package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"jobPortal/internal/errcode"
	"jobPortal/internal/workflow"
)

func TestJobHandler_ApplyFlow(t *testing.T) {
	env := newTestEnv(t)
	admin := caller{id: env.seedUser(t, "root", nil, true), admin: true}
	alice := caller{id: env.seedUser(t, "alice", cgpa(8.0), false)}
	bob := caller{id: env.seedUser(t, "bob", cgpa(6.5), false)}
	carol := caller{id: env.seedUser(t, "carol", cgpa(7.0), false)}

	jobID := env.createJob(t, admin, sampleJobBody())
	path := fmt.Sprintf("/v1/jobs/%d/apply", jobID)

	if w := env.do(t, http.MethodPost, path, nil, alice); w.Code != http.StatusCreated {
		t.Fatalf("apply: %d %s", w.Code, w.Body.String())
	}

	w := env.do(t, http.MethodPost, path, nil, alice)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate apply got %d", w.Code)
	}
	if code := decodeBody(t, w)["code"].(float64); int(code) != errcode.AlreadyApplied {
		t.Fatalf("unexpected code %v", code)
	}

	w = env.do(t, http.MethodPost, path, nil, bob)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for ineligible candidate got %d", w.Code)
	}

	// 恰好等于门槛视为合格。
	if w := env.do(t, http.MethodPost, path, nil, carol); w.Code != http.StatusCreated {
		t.Fatalf("threshold candidate apply: %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, fmt.Sprintf("/v1/jobs/%d", jobID), nil, anonymous)
	if w.Code != http.StatusOK {
		t.Fatalf("show job: %d", w.Code)
	}
	applicants := decodeBody(t, w)["applicants"].([]any)
	if len(applicants) != 2 {
		t.Fatalf("expected 2 applicants got %v", applicants)
	}
	first := applicants[0].(map[string]any)
	second := applicants[1].(map[string]any)
	if first["username"] != "alice" || second["username"] != "carol" {
		t.Fatalf("applicants out of order: %v", applicants)
	}

	kinds := map[workflow.EventKind]int{}
	for _, e := range env.fanout.events {
		kinds[e.Kind]++
	}
	if kinds[workflow.EventJobCreated] != 1 || kinds[workflow.EventApplied] != 2 {
		t.Fatalf("unexpected events %v", kinds)
	}
}

func TestJobHandler_ApplyOnBehalf(t *testing.T) {
	env := newTestEnv(t)
	admin := caller{id: env.seedUser(t, "root", nil, true), admin: true}
	alice := caller{id: env.seedUser(t, "alice", cgpa(9), false)}
	bob := caller{id: env.seedUser(t, "bob", cgpa(9), false)}

	jobID := env.createJob(t, admin, sampleJobBody())
	path := fmt.Sprintf("/v1/jobs/%d/apply", jobID)

	if w := env.do(t, http.MethodPost, path, map[string]any{"user_id": bob.id}, alice); w.Code != http.StatusForbidden {
		t.Fatalf("candidate applying for someone else: expected 403 got %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, path, map[string]any{"user_id": bob.id}, admin); w.Code != http.StatusCreated {
		t.Fatalf("admin apply on behalf: %d %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodPost, path, nil, bob); w.Code != http.StatusConflict {
		t.Fatalf("expected bob to be recorded already, got %d", w.Code)
	}
}

func TestJobHandler_ApplyUnknownJob(t *testing.T) {
	env := newTestEnv(t)
	alice := caller{id: env.seedUser(t, "alice", cgpa(9), false)}

	w := env.do(t, http.MethodPost, "/v1/jobs/404/apply", nil, alice)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/v1/jobs/abc/apply", nil, alice); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id got %d", w.Code)
	}
}

func TestJobHandler_Assessment(t *testing.T) {
	env := newTestEnv(t)
	admin := caller{id: env.seedUser(t, "root", nil, true), admin: true}
	alice := caller{id: env.seedUser(t, "alice", cgpa(9), false)}

	jobID := env.createJob(t, admin, sampleJobBody())
	testPath := fmt.Sprintf("/v1/jobs/%d/test", jobID)

	w := env.do(t, http.MethodGet, testPath, nil, alice)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 before applying got %d", w.Code)
	}
	if code := decodeBody(t, w)["code"].(float64); int(code) != errcode.NotApplied {
		t.Fatalf("unexpected code %v", code)
	}
	if w := env.do(t, http.MethodPost, testPath, map[string]any{"answers": map[string]string{}}, alice); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 submitting before applying got %d", w.Code)
	}

	if w := env.do(t, http.MethodPost, fmt.Sprintf("/v1/jobs/%d/apply", jobID), nil, alice); w.Code != http.StatusCreated {
		t.Fatalf("apply: %d", w.Code)
	}

	w = env.do(t, http.MethodGet, testPath, nil, alice)
	if w.Code != http.StatusOK {
		t.Fatalf("get test: %d %s", w.Code, w.Body.String())
	}
	questions := decodeBody(t, w)["questions"].([]any)
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions got %v", questions)
	}
	if _, leaked := questions[0].(map[string]any)["correct_answer"]; leaked {
		t.Fatalf("answer key must not be exposed")
	}

	w = env.do(t, http.MethodPost, testPath, map[string]any{"answers": map[string]string{"0": "4", "1": "6"}}, alice)
	if w.Code != http.StatusOK {
		t.Fatalf("submit: %d %s", w.Code, w.Body.String())
	}
	result := decodeBody(t, w)
	if result["verdict"] != string(workflow.VerdictShortlisted) || result["marks_correct"].(float64) != 2 {
		t.Fatalf("unexpected result %v", result)
	}

	// 1/2 = 0.5 < 0.7
	w = env.do(t, http.MethodPost, testPath, map[string]any{"answers": map[string]string{"0": "4"}}, alice)
	result = decodeBody(t, w)
	if result["verdict"] != string(workflow.VerdictRejected) || result["marks_wrong"].(float64) != 1 {
		t.Fatalf("unexpected result %v", result)
	}

	w = env.do(t, http.MethodPost, testPath, map[string]any{"answers": map[string]string{"5": "4"}}, alice)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range answer got %d", w.Code)
	}
}

func TestJobHandler_SetStatus(t *testing.T) {
	env := newTestEnv(t)
	admin := caller{id: env.seedUser(t, "root", nil, true), admin: true}
	alice := caller{id: env.seedUser(t, "alice", cgpa(9), false)}

	jobID := env.createJob(t, admin, sampleJobBody())
	path := fmt.Sprintf("/v1/jobs/%d/status", jobID)

	w := env.do(t, http.MethodPut, path, map[string]string{"status": "archived"}, admin)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status got %d", w.Code)
	}
	if w := env.do(t, http.MethodPut, path, map[string]string{"status": "over"}, alice); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for candidate got %d", w.Code)
	}

	w = env.do(t, http.MethodPut, path, map[string]string{"status": "interview"}, admin)
	if w.Code != http.StatusOK {
		t.Fatalf("set status: %d %s", w.Code, w.Body.String())
	}

	job, err := env.store.LoadJob(context.Background(), jobID)
	if err != nil {
		t.Fatalf("load job: %v", err)
	}
	if job.Status != workflow.StatusInterview {
		t.Fatalf("expected interview got %s", job.Status)
	}

	// over -> active 也允许。
	for _, s := range []string{"over", "active"} {
		if w := env.do(t, http.MethodPut, path, map[string]string{"status": s}, admin); w.Code != http.StatusOK {
			t.Fatalf("set %s: %d", s, w.Code)
		}
	}
}

func TestJobHandler_CreateValidatesAndDegrades(t *testing.T) {
	env := newTestEnv(t)
	admin := caller{id: env.seedUser(t, "root", nil, true), admin: true}
	alice := caller{id: env.seedUser(t, "alice", cgpa(9), false)}

	if w := env.do(t, http.MethodPost, "/v1/jobs", sampleJobBody(), alice); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for candidate got %d", w.Code)
	}

	bad := sampleJobBody()
	bad["min_cgpa"] = 11.0
	if w := env.do(t, http.MethodPost, "/v1/jobs", bad, admin); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for threshold out of range got %d", w.Code)
	}

	env.fanout.err = errors.New("queue down")
	w := env.do(t, http.MethodPost, "/v1/jobs", sampleJobBody(), admin)
	if w.Code != http.StatusCreated {
		t.Fatalf("degraded create must still succeed, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["degraded"] != true || body["warning"] == "" {
		t.Fatalf("expected degraded flag, got %v", body)
	}

	page, err := env.store.ListJobs(context.Background(), 1, 10)
	if err != nil || page.Total != 1 {
		t.Fatalf("job must be committed despite fan-out failure: total=%d err=%v", page.Total, err)
	}
}

func TestJobHandler_UpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	admin := caller{id: env.seedUser(t, "root", nil, true), admin: true}
	alice := caller{id: env.seedUser(t, "alice", cgpa(9), false)}

	jobID := env.createJob(t, admin, sampleJobBody())
	if w := env.do(t, http.MethodPost, fmt.Sprintf("/v1/jobs/%d/apply", jobID), nil, alice); w.Code != http.StatusCreated {
		t.Fatalf("apply: %d", w.Code)
	}

	edit := sampleJobBody()
	edit["role"] = "Senior SDE"
	delete(edit, "questions")
	w := env.do(t, http.MethodPatch, fmt.Sprintf("/v1/jobs/%d", jobID), edit, admin)
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}

	job, _ := env.store.LoadJob(context.Background(), jobID)
	if job.Role != "Senior SDE" || len(job.Applicants) != 1 || len(job.Questions) != 2 {
		t.Fatalf("update must keep applicants and questions: %+v", job)
	}

	if w := env.do(t, http.MethodDelete, fmt.Sprintf("/v1/jobs/%d", jobID), nil, admin); w.Code != http.StatusOK {
		t.Fatalf("delete: %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, fmt.Sprintf("/v1/jobs/%d", jobID), nil, anonymous); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete got %d", w.Code)
	}
	if _, err := env.store.LoadCandidate(context.Background(), alice.id); err != nil {
		t.Fatalf("deleting a job must not touch candidates: %v", err)
	}

	last := env.fanout.events[len(env.fanout.events)-1]
	if last.Kind != workflow.EventJobDeleted || last.Job.Role != "Senior SDE" {
		t.Fatalf("unexpected last event %+v", last)
	}
}

func TestJobHandler_ListAndSearch(t *testing.T) {
	env := newTestEnv(t)
	admin := caller{id: env.seedUser(t, "root", nil, true), admin: true}

	for _, company := range []string{"Acme", "Globex", "A.C.M.E"} {
		body := sampleJobBody()
		body["company"] = company
		env.createJob(t, admin, body)
	}

	w := env.do(t, http.MethodGet, "/v1/jobs?page=2", nil, anonymous)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["total"].(float64) != 3 || body["total_pages"].(float64) != 2 || len(body["items"].([]any)) != 1 {
		t.Fatalf("unexpected page %v", body)
	}

	w = env.do(t, http.MethodGet, "/v1/jobs/search?name=A.C", nil, anonymous)
	items := decodeBody(t, w)["items"].([]any)
	if len(items) != 1 || items[0].(map[string]any)["company"] != "A.C.M.E" {
		t.Fatalf("search must match literally, got %v", items)
	}

	if w := env.do(t, http.MethodGet, "/v1/jobs/search", nil, anonymous); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without name got %d", w.Code)
	}
}
