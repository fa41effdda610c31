package model

import "time"

// CourseTree 发现阶段和下载阶段之间唯一的交换文档
type CourseTree struct {
	Timestamp time.Time `json:"timestamp"`
	BaseURL   string    `json:"base_url"`
	Username  string    `json:"username"`
	Courses   []*Course `json:"courses"`
}
