package model

import (
	"encoding/json"
	"strings"
)

type ActivityKind string

const (
	KindResource   ActivityKind = "resource"
	KindAssignment ActivityKind = "assignment"
	KindForum      ActivityKind = "forum"
	KindQuiz       ActivityKind = "quiz"
	KindURL        ActivityKind = "url"
	KindFolder     ActivityKind = "folder"
	KindUnknown    ActivityKind = "unknown"
)

var kinds = map[ActivityKind]struct{}{
	KindResource:   {},
	KindAssignment: {},
	KindForum:      {},
	KindQuiz:       {},
	KindURL:        {},
	KindFolder:     {},
	KindUnknown:    {},
}

// ParseKind 不在封闭集合内的值一律视为 unknown
func ParseKind(s string) ActivityKind {
	k := ActivityKind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := kinds[k]; ok {
		return k
	}
	return KindUnknown
}

func (k ActivityKind) Downloadable() bool {
	switch k {
	case KindResource, KindURL, KindFolder:
		return true
	}
	return false
}

func (k *ActivityKind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*k = ParseKind(s)
	return nil
}

type KindRule struct {
	Marker string
	Kind   ActivityKind
}

// KindRules 有序规则表,第一条命中的规则决定活动类型
type KindRules []KindRule

// Infer 用规则表依次比对 class 列表,任何一个 class 包含 marker 即命中
func (rules KindRules) Infer(classes []string) ActivityKind {
	for _, rule := range rules {
		if rule.Marker == "" {
			continue
		}
		for _, class := range classes {
			if strings.Contains(class, rule.Marker) {
				return rule.Kind
			}
		}
	}
	return KindUnknown
}
