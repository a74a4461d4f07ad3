package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"jobPortal/internal/api/middleware"
	"jobPortal/internal/database"
	"jobPortal/internal/store"
	"jobPortal/internal/workflow"
)

type fakeStorage struct {
	uploaded map[string][]byte
	deleted  []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploaded: map[string][]byte{}}
}

func (s *fakeStorage) UploadFile(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) (*minio.UploadInfo, error) {
	b, _ := io.ReadAll(reader)
	s.uploaded[objectName] = b
	return &minio.UploadInfo{}, nil
}

func (s *fakeStorage) GeneratePresignedURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return "https://example.invalid/" + objectKey, nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, objectKey string) error {
	s.deleted = append(s.deleted, objectKey)
	delete(s.uploaded, objectKey)
	return nil
}

type fakeScanner struct {
	infected bool
}

func (s fakeScanner) Scan(r io.Reader) error {
	_, _ = io.Copy(io.Discard, r)
	if s.infected {
		return errMaliciousFile
	}
	return nil
}

type fakeFanout struct {
	mu     sync.Mutex
	events []workflow.Event
	err    error
}

func (f *fakeFanout) Publish(_ context.Context, event workflow.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

type fakeBroadcaster struct {
	sent []workflow.Notification
	err  error
}

func (b *fakeBroadcaster) Broadcast(_ context.Context, n workflow.Notification) error {
	if b.err != nil {
		return b.err
	}
	b.sent = append(b.sent, n)
	return nil
}

type testEnv struct {
	db          *gorm.DB
	store       *store.Store
	fanout      *fakeFanout
	broadcaster *fakeBroadcaster
	files       *fakeStorage
	scanner     *fakeScanner
	router      *gin.Engine
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:api_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sqlite: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// testIdentity 用请求头模拟 AuthMiddleware 注入的身份。
func testIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := c.GetHeader("X-Test-User"); raw != "" {
			id, _ := strconv.ParseUint(raw, 10, 64)
			c.Set(middleware.UserIDKey, uint(id))
			c.Set(middleware.IsAdminKey, c.GetHeader("X-Test-Admin") == "1")
		}
		c.Next()
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	env := &testEnv{
		db:          db,
		store:       store.New(db),
		fanout:      &fakeFanout{},
		broadcaster: &fakeBroadcaster{},
		files:       newFakeStorage(),
		scanner:     &fakeScanner{},
	}
	service := workflow.NewService(env.store, env.fanout, nil)

	jobs := NewJobHandler(service, env.store, 2)
	notifications := NewNotificationHandler(env.store, env.broadcaster)
	users := NewUserHandler(service, env.store, env.files, env.scanner, 1024)

	r := gin.New()
	r.Use(middleware.RequestContextMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil))), testIdentity())
	r.GET("/v1/jobs", jobs.ListJobs)
	r.GET("/v1/jobs/search", jobs.SearchJobs)
	r.GET("/v1/jobs/:id", jobs.GetJob)
	r.POST("/v1/jobs", jobs.CreateJob)
	r.PATCH("/v1/jobs/:id", jobs.UpdateJob)
	r.DELETE("/v1/jobs/:id", jobs.DeleteJob)
	r.PUT("/v1/jobs/:id/status", jobs.SetStatus)
	r.POST("/v1/jobs/:id/apply", jobs.Apply)
	r.GET("/v1/jobs/:id/test", jobs.GetAssessment)
	r.POST("/v1/jobs/:id/test", jobs.SubmitAssessment)
	r.GET("/v1/notifications", notifications.ListNotifications)
	r.POST("/v1/notifications", notifications.CreateNotification)
	r.PATCH("/v1/notifications/:id", notifications.UpdateNotification)
	r.DELETE("/v1/notifications/:id", notifications.DeleteNotification)
	r.GET("/v1/users/:id", users.GetUser)
	r.PATCH("/v1/users/:id", users.UpdateUser)
	r.POST("/v1/users/:id/resume", users.UploadResume)
	r.GET("/v1/users/:id/resume", users.GetResumeLink)
	env.router = r
	return env
}

func (e *testEnv) seedUser(t *testing.T, username string, cgpa *float64, admin bool) uint {
	t.Helper()
	u := database.User{Username: username, PasswordHash: "x", CGPA: cgpa, IsAdmin: admin}
	if err := e.db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u.ID
}

type caller struct {
	id    uint
	admin bool
}

var anonymous = caller{}

func (e *testEnv) do(t *testing.T, method, path string, body any, who caller) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.serve(req, who)
}

func (e *testEnv) serve(req *http.Request, who caller) *httptest.ResponseRecorder {
	if who.id != 0 {
		req.Header.Set("X-Test-User", strconv.FormatUint(uint64(who.id), 10))
		if who.admin {
			req.Header.Set("X-Test-Admin", "1")
		}
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return out
}

func newMultipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func cgpa(v float64) *float64 { return &v }

func sampleJobBody() map[string]any {
	return map[string]any{
		"role":                "SDE",
		"company":             "Acme",
		"ctc":                 12.5,
		"location":            "Pune",
		"min_cgpa":            7.0,
		"description":         "backend",
		"number_of_positions": 2,
		"questions": []map[string]any{
			{"question": "2+2?", "options": []string{"3", "4", "5", "6"}, "correct_answer": "4"},
			{"question": "3+3?", "options": []string{"5", "6", "7", "8"}, "correct_answer": "6"},
		},
	}
}

// createJob 以管理员身份建岗并返回 ID。
func (e *testEnv) createJob(t *testing.T, admin caller, body map[string]any) uint {
	t.Helper()
	w := e.do(t, http.MethodPost, "/v1/jobs", body, admin)
	if w.Code != http.StatusCreated {
		t.Fatalf("create job: %d %s", w.Code, w.Body.String())
	}
	job := decodeBody(t, w)["job"].(map[string]any)
	return uint(job["id"].(float64))
}
