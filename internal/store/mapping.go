package store

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"jobPortal/internal/database"
	"jobPortal/internal/workflow"
)

func jobFromModel(m database.Job) *workflow.Job {
	job := &workflow.Job{
		ID:          m.ID,
		Role:        m.PostName,
		Company:     m.CompanyName,
		CTC:         m.CTC,
		Location:    m.Location,
		MinCGPA:     m.MinCGPA,
		Status:      workflow.Status(m.Status),
		Description: m.Description,
		Positions:   m.NumberOfPositions,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if job.Status == "" {
		job.Status = workflow.DefaultStatus
	}
	if len(m.Applications) > 0 {
		job.Applicants = make([]uint, 0, len(m.Applications))
		for _, a := range m.Applications {
			job.Applicants = append(job.Applicants, a.UserID)
		}
	}
	if len(m.Questions) > 0 {
		job.Questions = make([]workflow.Question, 0, len(m.Questions))
		for _, q := range m.Questions {
			job.Questions = append(job.Questions, workflow.Question{
				Prompt:        q.Title,
				Options:       [4]string{q.Option1, q.Option2, q.Option3, q.Option4},
				CorrectAnswer: q.CorrectAnswer,
			})
		}
	}
	return job
}

func jobToModel(job *workflow.Job) database.Job {
	questions := make(datatypes.JSONSlice[database.Question], 0, len(job.Questions))
	for _, q := range job.Questions {
		questions = append(questions, database.Question{
			Title:         q.Prompt,
			Option1:       q.Options[0],
			Option2:       q.Options[1],
			Option3:       q.Options[2],
			Option4:       q.Options[3],
			CorrectAnswer: q.CorrectAnswer,
		})
	}
	status := job.Status
	if status == "" {
		status = workflow.DefaultStatus
	}
	return database.Job{
		Model:             gorm.Model{ID: job.ID},
		PostName:          job.Role,
		CompanyName:       job.Company,
		CTC:               job.CTC,
		Location:          job.Location,
		MinCGPA:           job.MinCGPA,
		Status:            string(status),
		Description:       job.Description,
		NumberOfPositions: job.Positions,
		Questions:         questions,
	}
}

func candidateFromModel(u database.User) *workflow.Candidate {
	c := &workflow.Candidate{
		ID:              u.ID,
		Username:        u.Username,
		IsAdmin:         u.IsAdmin,
		Gender:          u.Gender,
		DOB:             u.DOB,
		Phone:           u.Phone,
		ResumeObjectKey: u.ResumeObjectKey,
	}
	if u.CGPA != nil {
		v := *u.CGPA
		c.CGPA = &v
	}
	return c
}

func notificationFromModel(m database.Notification) workflow.Notification {
	return workflow.Notification{
		ID:        m.ID,
		Title:     m.Title,
		Body:      m.Body,
		Author:    m.Author,
		CreatedAt: m.CreatedAt,
	}
}
