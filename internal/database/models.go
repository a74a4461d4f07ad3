package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User 表示系统中的账号信息（求职者或管理员）。
type User struct {
	gorm.Model
	Username           string   `gorm:"uniqueIndex;size:64"`
	PasswordHash       string   `gorm:"size:255"`
	MustChangePassword bool     `gorm:"default:false"`
	IsAdmin            bool     `gorm:"default:false"`
	CGPA               *float64 `gorm:"column:cgpa"`
	Gender             string   `gorm:"size:32"`
	DOB                string   `gorm:"column:dob;size:32"`
	Phone              string   `gorm:"size:32"`
	ResumeObjectKey    string   `gorm:"size:512"`
}

// Job 表示一条招聘岗位。测评题目以 JSON 形式内嵌在岗位中，没有独立主键。
type Job struct {
	gorm.Model
	PostName          string  `gorm:"size:128;not null"`
	CompanyName       string  `gorm:"size:255;not null;index"`
	CTC               float64 `gorm:"column:ctc;not null"`
	Location          string  `gorm:"size:255;not null"`
	MinCGPA           float64 `gorm:"column:min_cgpa;not null"`
	Status            string  `gorm:"size:16;not null;default:active;index"`
	Description       string  `gorm:"type:text"`
	NumberOfPositions int     `gorm:"not null;default:0"`
	Questions         datatypes.JSONSlice[Question]
	Applications      []JobApplication `gorm:"foreignKey:JobID"`
}

// Question 是岗位测评中的一道单选题，CorrectAnswer 存放选项原文。
type Question struct {
	Title         string `json:"title"`
	Option1       string `json:"option1"`
	Option2       string `json:"option2"`
	Option3       string `json:"option3"`
	Option4       string `json:"option4"`
	CorrectAnswer string `json:"correct_answer"`
}

// JobApplication 记录一次投递。(job_id, user_id) 唯一，ID 自增即投递顺序。
type JobApplication struct {
	ID        uint `gorm:"primaryKey"`
	JobID     uint `gorm:"not null;uniqueIndex:idx_job_applications_job_user,priority:1"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_job_applications_job_user,priority:2;index"`
	CreatedAt time.Time
}

// Notification 表示岗位变更时生成、也可由管理员维护的广播消息。
type Notification struct {
	gorm.Model
	Title  string `gorm:"size:255;not null"`
	Body   string `gorm:"type:text"`
	Author string `gorm:"size:255;not null"`
}

// Models lists every table managed by AutoMigrate.
func Models() []any {
	return []any{&User{}, &Job{}, &JobApplication{}, &Notification{}}
}
