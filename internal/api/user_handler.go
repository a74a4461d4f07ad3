package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"

	"jobPortal/internal/api/middleware"
	"jobPortal/internal/storage"
	"jobPortal/internal/workflow"
)

const resumeLinkTTL = 5 * time.Minute

var resumeContentTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

type candidateLoader interface {
	LoadCandidate(ctx context.Context, id uint) (*workflow.Candidate, error)
}

// resumeStorage 是 storage.Client 的子集，便于测试替换。
type resumeStorage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
}

// virusScanner 扫描上传文件，发现威胁时返回错误。
type virusScanner interface {
	Scan(r io.Reader) error
}

type clamdScanner struct {
	addr string
}

var errMaliciousFile = errors.New("malicious file detected")

func (s clamdScanner) Scan(r io.Reader) error {
	abortChan := make(chan bool)
	defer close(abortChan)

	scanChan, err := clamd.NewClamd(s.addr).ScanStream(r, abortChan)
	if err != nil {
		return fmt.Errorf("scan stream: %w", err)
	}
	infected := false
	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			infected = true
		}
	}
	if infected {
		return errMaliciousFile
	}
	return nil
}

// newClamdScanner 返回基于 clamd 的扫描器，addr 为空时不扫描。
func newClamdScanner(addr string) virusScanner {
	if strings.TrimSpace(addr) == "" {
		return nil
	}
	return clamdScanner{addr: addr}
}

// UserHandler 处理候选人资料与简历文件。
type UserHandler struct {
	service  *workflow.Service
	users    candidateLoader
	storage  resumeStorage
	scanner  virusScanner
	maxBytes int64
}

// NewUserHandler 构造 UserHandler，storage 为空时简历接口返回 503。
func NewUserHandler(service *workflow.Service, users candidateLoader, files resumeStorage, scanner virusScanner, maxBytes int64) *UserHandler {
	if maxBytes <= 0 {
		maxBytes = 5 * 1024 * 1024
	}
	return &UserHandler{
		service:  service,
		users:    users,
		storage:  files,
		scanner:  scanner,
		maxBytes: maxBytes,
	}
}

type userResponse struct {
	ID        uint     `json:"id"`
	Username  string   `json:"username"`
	CGPA      *float64 `json:"cgpa"`
	IsAdmin   bool     `json:"is_admin"`
	Gender    string   `json:"gender"`
	DOB       string   `json:"dob"`
	Phone     string   `json:"phone"`
	HasResume bool     `json:"has_resume"`
}

func newUserResponse(c workflow.Candidate) userResponse {
	return userResponse{
		ID:        c.ID,
		Username:  c.Username,
		CGPA:      c.CGPA,
		IsAdmin:   c.IsAdmin,
		Gender:    c.Gender,
		DOB:       c.DOB,
		Phone:     c.Phone,
		HasResume: c.ResumeObjectKey != "",
	}
}

// targetUser 解析路径中的用户 ID，并校验调用者可以操作该用户。
func (h *UserHandler) targetUser(c *gin.Context) (workflow.AuthContext, uint, bool) {
	authCtx, ok := authContextFromGin(c)
	if !ok {
		AbortUnauthorized(c)
		return workflow.AuthContext{}, 0, false
	}
	userID, ok := parseIDParam(c, "id")
	if !ok {
		BadRequest(c, "invalid user id")
		return workflow.AuthContext{}, 0, false
	}
	if !workflow.CanActFor(authCtx, userID) {
		writeWorkflowError(c, workflow.ErrForbidden)
		return workflow.AuthContext{}, 0, false
	}
	return authCtx, userID, true
}

// GetUser 返回用户资料（本人或管理员）。
func (h *UserHandler) GetUser(c *gin.Context) {
	_, userID, ok := h.targetUser(c)
	if !ok {
		return
	}

	candidate, err := h.users.LoadCandidate(c.Request.Context(), userID)
	if err != nil {
		writeWorkflowError(c, workflow.Persistence("load candidate", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(*candidate)})
}

type updateUserRequest struct {
	CGPA   *float64 `json:"cgpa"`
	Gender *string  `json:"gender" binding:"omitempty,max=32"`
	DOB    *string  `json:"dob" binding:"omitempty,max=32"`
	Phone  *string  `json:"phone" binding:"omitempty,max=32"`
}

// UpdateUser 修改资料，缺省字段保持不变。
func (h *UserHandler) UpdateUser(c *gin.Context) {
	authCtx, userID, ok := h.targetUser(c)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	candidate, err := h.service.UpdateProfile(c.Request.Context(), authCtx, userID, workflow.ProfileInput{
		CGPA:   req.CGPA,
		Gender: req.Gender,
		DOB:    req.DOB,
		Phone:  req.Phone,
	})
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(*candidate)})
}

// UploadResume 扫描后上传简历文件，并替换旧文件。
func (h *UserHandler) UploadResume(c *gin.Context) {
	authCtx, userID, ok := h.targetUser(c)
	if !ok {
		return
	}
	if h.storage == nil {
		Error(c, http.StatusServiceUnavailable, "resume storage is not configured")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}
	if file.Size <= 0 {
		BadRequest(c, "empty file")
		return
	}
	if file.Size > h.maxBytes {
		Error(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	contentType, allowed := resumeContentTypes[ext]
	if !allowed {
		BadRequest(c, "unsupported file type")
		return
	}

	logger := middleware.LoggerFromContext(c).With(slog.Uint64("user_id", uint64(userID)))

	if h.scanner != nil {
		fileReader, err := file.Open()
		if err != nil {
			Internal(c, "failed to open file")
			return
		}
		err = h.scanner.Scan(fileReader)
		fileReader.Close()
		if errors.Is(err, errMaliciousFile) {
			logger.Warn("resume rejected by virus scan")
			BadRequest(c, "malicious file detected")
			return
		}
		if err != nil {
			logger.Error("scan file", slog.Any("error", err))
			Internal(c, "failed to scan file")
			return
		}
	}

	fileReader, err := file.Open()
	if err != nil {
		Internal(c, "failed to reopen file")
		return
	}
	defer fileReader.Close()

	ctx := c.Request.Context()
	objectKey := storage.ResumeObjectKey(userID, ext)
	if _, err := h.storage.UploadFile(ctx, objectKey, fileReader, file.Size, contentType); err != nil {
		logger.Error("upload resume", slog.Any("error", err))
		Internal(c, "failed to upload file")
		return
	}

	previous, err := h.service.AttachResume(ctx, authCtx, userID, objectKey)
	if err != nil {
		if delErr := h.storage.DeleteObject(context.WithoutCancel(ctx), objectKey); delErr != nil {
			logger.Error("cleanup orphan resume", slog.String("object_key", objectKey), slog.Any("error", delErr))
		}
		writeWorkflowError(c, err)
		return
	}
	if previous != "" && previous != objectKey {
		if err := h.storage.DeleteObject(context.WithoutCancel(ctx), previous); err != nil {
			logger.Warn("delete previous resume", slog.String("object_key", previous), slog.Any("error", err))
		}
	}

	logger.Info("resume uploaded", slog.String("object_key", objectKey))
	c.JSON(http.StatusCreated, gin.H{"objectKey": objectKey})
}

// GetResumeLink 返回简历的限时下载链接。
func (h *UserHandler) GetResumeLink(c *gin.Context) {
	_, userID, ok := h.targetUser(c)
	if !ok {
		return
	}
	if h.storage == nil {
		Error(c, http.StatusServiceUnavailable, "resume storage is not configured")
		return
	}

	ctx := c.Request.Context()
	candidate, err := h.users.LoadCandidate(ctx, userID)
	if err != nil {
		writeWorkflowError(c, workflow.Persistence("load candidate", err))
		return
	}
	if candidate.ResumeObjectKey == "" {
		NotFound(c, "resume not uploaded")
		return
	}

	signedURL, err := h.storage.GeneratePresignedURL(ctx, candidate.ResumeObjectKey, resumeLinkTTL)
	if err != nil {
		middleware.LoggerFromContext(c).Error("generate presigned url", slog.Any("error", err))
		Internal(c, "failed to generate download link")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}
