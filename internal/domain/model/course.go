package model

import "fmt"

// Course 一门课程及其章节树,每次发现流程都会完整重建
type Course struct {
	ID       *string    `json:"id"`
	Name     string     `json:"name"`
	URL      string     `json:"url"`
	Sections []*Section `json:"sections"`
}

// Section 课程中的一个章节,Index 是唯一的排序和命名依据
type Section struct {
	Index      int         `json:"index"`
	Title      *string     `json:"title"`
	Activities []*Activity `json:"activities"`
}

type Activity struct {
	Name string       `json:"name"`
	URL  string       `json:"url"`
	Type ActivityKind `json:"type"`
}

// IDOr 返回课程 ID,缺失时返回 def
func (c *Course) IDOr(def string) string {
	if c.ID == nil {
		return def
	}
	return *c.ID
}

// DisplayTitle 标题缺失或为空时返回 Section{index}
func (s *Section) DisplayTitle() string {
	if s.Title == nil || *s.Title == "" {
		return fmt.Sprintf("Section%d", s.Index)
	}
	return *s.Title
}

// TitleOr 返回原始标题,缺失时返回 def
func (s *Section) TitleOr(def string) string {
	if s.Title == nil {
		return def
	}
	return *s.Title
}

// Downloadable 返回该章节中可下载类型的活动,保持原有顺序
func (s *Section) Downloadable() []*Activity {
	out := make([]*Activity, 0, len(s.Activities))
	for _, a := range s.Activities {
		if a.Type.Downloadable() {
			out = append(out, a)
		}
	}
	return out
}

func StringPtr(s string) *string {
	return &s
}
