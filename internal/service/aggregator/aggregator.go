package aggregator

import (
	"context"
	"log/slog"

	"github.com/LouYuanbo1/coursecrawler/internal/domain/model"
	"github.com/LouYuanbo1/coursecrawler/internal/infra/persistence/folder"
)

type Acquirer interface {
	Acquire(ctx context.Context, activity *model.Activity, dir string, skipExisting bool) (model.DownloadOutcome, error)
}

// Aggregator 按 课程/章节 目录结构逐个下载活动并汇总结果
type Aggregator struct {
	acquirer Acquirer
	store    *folder.Store
	layout   *folder.Layout
	logger   *slog.Logger
}

func NewAggregator(acquirer Acquirer, store *folder.Store, layout *folder.Layout, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		acquirer: acquirer,
		store:    store,
		layout:   layout,
		logger:   logger,
	}
}

// RunCourse 下载一门课程的全部可下载活动,单个活动失败不会中断。
// error 只在会话未就绪或 ctx 取消时返回,此时 stats 为已完成部分
func (g *Aggregator) RunCourse(ctx context.Context, course *model.Course, skipExisting bool) (model.RunStats, error) {
	var stats model.RunStats
	logger := g.logger.With(slog.String("course", course.Name))

	for _, section := range course.Sections {
		activities := section.Downloadable()
		if len(activities) == 0 {
			continue
		}
		dir := g.layout.SectionDir(course, section)
		if err := g.store.Ensure(dir); err != nil {
			logger.Error("创建章节目录失败", slog.String("section", section.DisplayTitle()), slog.String("dir", dir), slog.Any("error", err))
			for range activities {
				stats.Record(model.Failed(err.Error()))
			}
			continue
		}

		for _, activity := range activities {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			outcome, err := g.acquirer.Acquire(ctx, activity, dir, skipExisting)
			if err != nil {
				return stats, err
			}
			stats.Record(outcome)
		}
	}

	logger.Info("课程下载完成",
		slog.Int("total", stats.Total),
		slog.Int("downloaded", stats.Downloaded),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed),
	)
	return stats, nil
}

func (g *Aggregator) RunAll(ctx context.Context, courses []*model.Course, skipExisting bool) (model.RunStats, error) {
	var total model.RunStats
	for _, course := range courses {
		stats, err := g.RunCourse(ctx, course, skipExisting)
		total.Add(stats)
		if err != nil {
			total.Courses = len(courses)
			return total, err
		}
	}
	total.Courses = len(courses)
	return total, nil
}
