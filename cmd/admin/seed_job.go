package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jobPortal/internal/store"
	"jobPortal/internal/workflow"
)

var seedJobFlags struct {
	role          string
	company       string
	ctc           float64
	location      string
	minCGPA       float64
	positions     int
	description   string
	questionsFile string
}

var seedJobCmd = &cobra.Command{
	Use:   "seed-job",
	Short: "以管理员身份录入一个岗位，并生成对应通知",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, logger, err := openDatabase()
		if err != nil {
			return err
		}

		questions, err := readQuestions(seedJobFlags.questionsFile)
		if err != nil {
			return err
		}

		repo := store.New(db)
		// 离线录入不经过队列，通知只落库。
		service := workflow.NewService(repo, workflow.NewNotificationFanout(repo, nil, logger), logger)

		result, err := service.CreateJob(cmd.Context(), workflow.AuthContext{IsAdmin: true}, workflow.JobInput{
			Role:        seedJobFlags.role,
			Company:     seedJobFlags.company,
			CTC:         seedJobFlags.ctc,
			Location:    seedJobFlags.location,
			MinCGPA:     seedJobFlags.minCGPA,
			Description: seedJobFlags.description,
			Positions:   seedJobFlags.positions,
			Questions:   questions,
		})
		if err != nil {
			return fmt.Errorf("create job: %w", err)
		}
		if result.Degraded != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "警告：%v\n", result.Degraded)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "已创建岗位 #%d：%s @ %s（%d 道测评题）\n",
			result.Job.ID, result.Job.Role, result.Job.Company, len(result.Job.Questions))
		return nil
	},
}

type questionFileEntry struct {
	Question      string    `json:"question"`
	Options       [4]string `json:"options"`
	CorrectAnswer string    `json:"correct_answer"`
}

func readQuestions(path string) ([]workflow.Question, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questions file: %w", err)
	}
	var entries []questionFileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode questions file: %w", err)
	}
	questions := make([]workflow.Question, 0, len(entries))
	for _, e := range entries {
		questions = append(questions, workflow.Question{
			Prompt:        e.Question,
			Options:       e.Options,
			CorrectAnswer: e.CorrectAnswer,
		})
	}
	return questions, nil
}

func init() {
	f := seedJobCmd.Flags()
	f.StringVar(&seedJobFlags.role, "role", "", "岗位名称（必填）")
	f.StringVar(&seedJobFlags.company, "company", "", "公司名称（必填）")
	f.Float64Var(&seedJobFlags.ctc, "ctc", 0, "薪酬（CTC）")
	f.StringVar(&seedJobFlags.location, "location", "", "工作地点（必填）")
	f.Float64Var(&seedJobFlags.minCGPA, "min-cgpa", 0, "最低 CGPA（0-10）")
	f.IntVar(&seedJobFlags.positions, "positions", 1, "招聘人数")
	f.StringVar(&seedJobFlags.description, "description", "", "岗位描述")
	f.StringVar(&seedJobFlags.questionsFile, "questions", "", "测评题 JSON 文件路径（可选）")
	rootCmd.AddCommand(seedJobCmd)
}
