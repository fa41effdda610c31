package tree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/LouYuanbo1/coursecrawler/internal/domain/model"
	"github.com/spf13/afero"
)

// Store 课程树文档的读写,格式与外部同步组件共用
type Store struct {
	fs afero.Fs
}

func NewStore() *Store {
	return NewStoreWithFS(afero.NewOsFs())
}

func NewStoreWithFS(fs afero.Fs) *Store {
	return &Store{fs: fs}
}

func (s *Store) Save(path string, doc *model.CourseTree) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建输出目录失败: %w", err)
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// 课程名称保留原文,不转义
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("序列化课程树失败: %w", err)
	}
	if err := afero.WriteFile(s.fs, path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("写入课程树失败: %w", err)
	}
	return nil
}

func (s *Store) Load(path string) (*model.CourseTree, error) {
	content, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("读取课程树失败: %w", err)
	}
	var doc model.CourseTree
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("解析课程树失败: %w", err)
	}
	for _, course := range doc.Courses {
		if course.Sections == nil {
			course.Sections = []*model.Section{}
		}
	}
	return &doc, nil
}
