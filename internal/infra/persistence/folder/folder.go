package folder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Snapshot 某一时刻目录中的文件名集合
type Snapshot map[string]struct{}

// Store 下载目录的读写,浏览器写入,获取器读取并比对
type Store struct {
	fs              afero.Fs
	partialSuffixes []string
}

func NewStore(partialSuffixes []string) *Store {
	return NewStoreWithFS(afero.NewOsFs(), partialSuffixes)
}

func NewStoreWithFS(fs afero.Fs, partialSuffixes []string) *Store {
	return &Store{
		fs:              fs,
		partialSuffixes: partialSuffixes,
	}
}

func (s *Store) Ensure(dir string) error {
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("创建目录失败 %s: %w", dir, err)
	}
	return nil
}

// IsPartial 浏览器仍在写入的临时文件
func (s *Store) IsPartial(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range s.partialSuffixes {
		if strings.HasSuffix(lower, strings.ToLower(suffix)) {
			return true
		}
	}
	return false
}

func (s *Store) files(dir string) ([]os.FileInfo, error) {
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("读取目录失败 %s: %w", dir, err)
	}
	files := make([]os.FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files = append(files, e)
	}
	return files, nil
}

func (s *Store) Snapshot(dir string) (Snapshot, error) {
	files, err := s.files(dir)
	if err != nil {
		return nil, err
	}
	snap := make(Snapshot, len(files))
	for _, f := range files {
		snap[f.Name()] = struct{}{}
	}
	return snap, nil
}

// HasPrefix 目录中是否已有以 prefix 开头的完整文件
func (s *Store) HasPrefix(dir, prefix string) (bool, error) {
	files, err := s.files(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	for _, f := range files {
		if strings.HasPrefix(f.Name(), prefix) && !s.IsPartial(f.Name()) {
			return true, nil
		}
	}
	return false, nil
}

// Diff 返回 before 之后新出现的最新完整文件;
// 只有临时文件出现时 pending 为 true
func (s *Store) Diff(dir string, before Snapshot) (newest string, pending bool, err error) {
	files, err := s.files(dir)
	if err != nil {
		return "", false, err
	}
	complete := make([]os.FileInfo, 0, len(files))
	for _, f := range files {
		if _, seen := before[f.Name()]; seen {
			continue
		}
		if s.IsPartial(f.Name()) {
			pending = true
			continue
		}
		complete = append(complete, f)
	}
	if len(complete) == 0 {
		return "", pending, nil
	}
	sort.Slice(complete, func(i, j int) bool {
		ti, tj := complete[i].ModTime(), complete[j].ModTime()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return complete[i].Name() > complete[j].Name()
	})
	return filepath.Join(dir, complete[0].Name()), false, nil
}
