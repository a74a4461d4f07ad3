package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"jobPortal/internal/api/middleware"
	"jobPortal/internal/store"
	"jobPortal/internal/workflow"
)

// jobReader 是岗位只读查询，写操作全部经过 workflow.Service。
type jobReader interface {
	ListJobs(ctx context.Context, page, pageSize int) (store.JobPage, error)
	SearchJobsByCompany(ctx context.Context, name string) ([]workflow.Job, error)
	LoadJob(ctx context.Context, id uint) (*workflow.Job, error)
	ListApplicants(ctx context.Context, ids []uint) ([]store.ApplicantSummary, error)
}

// JobHandler 处理岗位浏览、管理、投递与测评。
type JobHandler struct {
	service  *workflow.Service
	reader   jobReader
	pageSize int
}

// NewJobHandler 构造 JobHandler。
func NewJobHandler(service *workflow.Service, reader jobReader, pageSize int) *JobHandler {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &JobHandler{service: service, reader: reader, pageSize: pageSize}
}

type questionPayload struct {
	Question      string    `json:"question"`
	Options       [4]string `json:"options"`
	CorrectAnswer string    `json:"correct_answer"`
}

type jobRequest struct {
	Role        string             `json:"role"`
	Company     string             `json:"company"`
	CTC         float64            `json:"ctc"`
	Location    string             `json:"location"`
	MinCGPA     float64            `json:"min_cgpa"`
	Description string             `json:"description"`
	Positions   int                `json:"number_of_positions"`
	Questions   *[]questionPayload `json:"questions"`
}

type jobResponse struct {
	ID             uint              `json:"id"`
	Role           string            `json:"role"`
	Company        string            `json:"company"`
	CTC            float64           `json:"ctc"`
	Location       string            `json:"location"`
	MinCGPA        float64           `json:"min_cgpa"`
	Status         workflow.Status   `json:"status"`
	Description    string            `json:"description"`
	Positions      int               `json:"number_of_positions"`
	ApplicantCount int               `json:"applicant_count"`
	QuestionCount  int               `json:"question_count"`
	Questions      []questionPayload `json:"questions,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

type applicantResponse struct {
	ID       uint     `json:"id"`
	Username string   `json:"username"`
	CGPA     *float64 `json:"cgpa"`
}

// toInput 将请求转换为业务输入；Questions 缺省时保持原题目不变。
func (r jobRequest) toInput() workflow.JobInput {
	in := workflow.JobInput{
		Role:        r.Role,
		Company:     r.Company,
		CTC:         r.CTC,
		Location:    r.Location,
		MinCGPA:     r.MinCGPA,
		Description: r.Description,
		Positions:   r.Positions,
	}
	if r.Questions != nil {
		in.Questions = make([]workflow.Question, 0, len(*r.Questions))
		for _, q := range *r.Questions {
			in.Questions = append(in.Questions, workflow.Question{
				Prompt:        q.Question,
				Options:       q.Options,
				CorrectAnswer: q.CorrectAnswer,
			})
		}
	}
	return in
}

func newJobResponse(job workflow.Job, withAnswerKey bool) jobResponse {
	resp := jobResponse{
		ID:             job.ID,
		Role:           job.Role,
		Company:        job.Company,
		CTC:            job.CTC,
		Location:       job.Location,
		MinCGPA:        job.MinCGPA,
		Status:         job.Status,
		Description:    job.Description,
		Positions:      job.Positions,
		ApplicantCount: len(job.Applicants),
		QuestionCount:  len(job.Questions),
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.UpdatedAt,
	}
	if withAnswerKey {
		resp.Questions = make([]questionPayload, 0, len(job.Questions))
		for _, q := range job.Questions {
			resp.Questions = append(resp.Questions, questionPayload{
				Question:      q.Prompt,
				Options:       q.Options,
				CorrectAnswer: q.CorrectAnswer,
			})
		}
	}
	return resp
}

// ListJobs 分页返回岗位列表。
func (h *JobHandler) ListJobs(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	result, err := h.reader.ListJobs(c.Request.Context(), page, h.pageSize)
	if err != nil {
		middleware.LoggerFromContext(c).Error("list jobs failed", slog.Any("error", err))
		Internal(c, "failed to list jobs")
		return
	}

	items := make([]jobResponse, 0, len(result.Jobs))
	for _, job := range result.Jobs {
		items = append(items, newJobResponse(job, false))
	}
	c.JSON(http.StatusOK, gin.H{
		"items":       items,
		"page":        result.Page,
		"page_size":   result.PageSize,
		"total":       result.Total,
		"total_pages": result.TotalPages,
	})
}

// SearchJobs 按公司名子串检索，name 中的通配符按字面匹配。
func (h *JobHandler) SearchJobs(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		BadRequest(c, "missing name")
		return
	}

	jobs, err := h.reader.SearchJobsByCompany(c.Request.Context(), name)
	if err != nil {
		middleware.LoggerFromContext(c).Error("search jobs failed", slog.Any("error", err))
		Internal(c, "failed to search jobs")
		return
	}

	items := make([]jobResponse, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, newJobResponse(job, false))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetJob 返回岗位详情与申请人列表（按投递顺序）；管理员可见题目答案。
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, ok := parseIDParam(c, "id")
	if !ok {
		BadRequest(c, "invalid job id")
		return
	}

	ctx := c.Request.Context()
	job, err := h.reader.LoadJob(ctx, jobID)
	if err != nil {
		writeWorkflowError(c, workflow.Persistence("load job", err))
		return
	}

	applicants, err := h.reader.ListApplicants(ctx, job.Applicants)
	if err != nil {
		middleware.LoggerFromContext(c).Error("list applicants failed", slog.Any("error", err))
		Internal(c, "failed to list applicants")
		return
	}

	items := make([]applicantResponse, 0, len(applicants))
	for _, a := range applicants {
		items = append(items, applicantResponse{ID: a.ID, Username: a.Username, CGPA: a.CGPA})
	}

	c.JSON(http.StatusOK, gin.H{
		"job":        newJobResponse(*job, c.GetBool(middleware.IsAdminKey)),
		"applicants": items,
	})
}

// CreateJob 新建岗位并触发通知分发。
func (h *JobHandler) CreateJob(c *gin.Context) {
	authCtx, ok := authContextFromGin(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateJob(c.Request.Context(), authCtx, req.toInput())
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusCreated, withDegraded(gin.H{"job": newJobResponse(*result.Job, true)}, result.Degraded))
}

// UpdateJob 编辑岗位字段，不影响申请人列表。
func (h *JobHandler) UpdateJob(c *gin.Context) {
	authCtx, ok := authContextFromGin(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	jobID, ok := parseIDParam(c, "id")
	if !ok {
		BadRequest(c, "invalid job id")
		return
	}

	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpdateJob(c.Request.Context(), authCtx, jobID, req.toInput())
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, withDegraded(gin.H{"job": newJobResponse(*result.Job, true)}, result.Degraded))
}

// DeleteJob 删除岗位。
func (h *JobHandler) DeleteJob(c *gin.Context) {
	authCtx, ok := authContextFromGin(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	jobID, ok := parseIDParam(c, "id")
	if !ok {
		BadRequest(c, "invalid job id")
		return
	}

	result, err := h.service.DeleteJob(c.Request.Context(), authCtx, jobID)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, withDegraded(gin.H{"deleted": result.Job.ID}, result.Degraded))
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetStatus 修改岗位阶段，未知取值直接拒绝。
func (h *JobHandler) SetStatus(c *gin.Context) {
	authCtx, ok := authContextFromGin(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	jobID, ok := parseIDParam(c, "id")
	if !ok {
		BadRequest(c, "invalid job id")
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	job, err := h.service.SetStatus(c.Request.Context(), authCtx, jobID, req.Status)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": newJobResponse(*job, false)})
}

type applyRequest struct {
	UserID uint `json:"user_id"`
}

// Apply 投递岗位；管理员可通过 user_id 代候选人投递。
func (h *JobHandler) Apply(c *gin.Context) {
	authCtx, ok := authContextFromGin(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	jobID, ok := parseIDParam(c, "id")
	if !ok {
		BadRequest(c, "invalid job id")
		return
	}

	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Apply(c.Request.Context(), authCtx, jobID, req.UserID)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusCreated, withDegraded(gin.H{
		"job":             newJobResponse(*result.Job, false),
		"applicant_count": len(result.Job.Applicants),
	}, result.Degraded))
}

// GetAssessment 返回测评题目，不含答案。
func (h *JobHandler) GetAssessment(c *gin.Context) {
	authCtx, ok := authContextFromGin(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	jobID, ok := parseIDParam(c, "id")
	if !ok {
		BadRequest(c, "invalid job id")
		return
	}

	job, sheet, err := h.service.Assessment(c.Request.Context(), authCtx, jobID)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"job_id":    job.ID,
		"role":      job.Role,
		"company":   job.Company,
		"questions": sheet,
	})
}

type submitAssessmentRequest struct {
	Answers workflow.Answers `json:"answers"`
}

// SubmitAssessment 评分并返回结果，结果不落库。
func (h *JobHandler) SubmitAssessment(c *gin.Context) {
	authCtx, ok := authContextFromGin(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	jobID, ok := parseIDParam(c, "id")
	if !ok {
		BadRequest(c, "invalid job id")
		return
	}

	var req submitAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	result, err := h.service.SubmitAssessment(c.Request.Context(), authCtx, jobID, req.Answers)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
