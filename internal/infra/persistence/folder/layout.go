package folder

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/LouYuanbo1/coursecrawler/internal/domain/model"
)

const DefaultMaxNameLength = 200

const illegalChars = `<>:"/\|?*`

// Sanitize 替换文件系统非法字符并截断到 maxLen 个字符,扩展名保留
func Sanitize(name string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxNameLength
	}
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(illegalChars, r) || unicode.IsControl(r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return "_"
	}

	runes := []rune(cleaned)
	if len(runes) <= maxLen {
		return cleaned
	}
	ext := []rune(filepath.Ext(cleaned))
	if len(ext) >= maxLen {
		return string(runes[:maxLen])
	}
	stem := runes[:len(runes)-len(ext)]
	keep := maxLen - len(ext)
	if keep > len(stem) {
		keep = len(stem)
	}
	return strings.TrimSpace(string(stem[:keep])) + string(ext)
}

// Layout 下载根目录下 课程/章节 两级目录的命名规则
type Layout struct {
	root          string
	maxNameLength int
	week          *regexp.Regexp
}

func NewLayout(root string, maxNameLength int, weekPattern string) (*Layout, error) {
	l := &Layout{
		root:          root,
		maxNameLength: maxNameLength,
	}
	if weekPattern != "" {
		re, err := regexp.Compile(weekPattern)
		if err != nil {
			return nil, fmt.Errorf("编译周次匹配规则失败: %w", err)
		}
		l.week = re
	}
	return l, nil
}

func (l *Layout) Root() string {
	return l.root
}

func (l *Layout) Sanitize(name string) string {
	return Sanitize(name, l.maxNameLength)
}

func (l *Layout) CourseDir(course *model.Course) string {
	return filepath.Join(l.root, l.Sanitize(course.Name))
}

// SectionName 标题像周次时按 Index 命名为 WeekNN,不采用标题里的数字
func (l *Layout) SectionName(section *model.Section) string {
	title := strings.TrimSpace(section.TitleOr(""))
	switch {
	case title == "":
		return fmt.Sprintf("Section%02d", section.Index)
	case l.week != nil && l.week.MatchString(title):
		return fmt.Sprintf("Week%02d", section.Index)
	default:
		return l.Sanitize(title)
	}
}

func (l *Layout) SectionDir(course *model.Course, section *model.Section) string {
	return filepath.Join(l.CourseDir(course), l.SectionName(section))
}
