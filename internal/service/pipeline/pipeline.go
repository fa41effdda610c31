package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LouYuanbo1/coursecrawler/internal/config"
	"github.com/LouYuanbo1/coursecrawler/internal/domain/model"
	"github.com/LouYuanbo1/coursecrawler/internal/infra/crawler/collector"
	"github.com/LouYuanbo1/coursecrawler/internal/infra/persistence/folder"
	"github.com/LouYuanbo1/coursecrawler/internal/infra/persistence/tree"
	"github.com/LouYuanbo1/coursecrawler/internal/service/acquirer"
	"github.com/LouYuanbo1/coursecrawler/internal/service/aggregator"
	"github.com/LouYuanbo1/coursecrawler/internal/service/discovery"
	"github.com/LouYuanbo1/coursecrawler/internal/service/extractor"
	"github.com/LouYuanbo1/coursecrawler/internal/service/session"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

var ErrAuthFailed = errors.New("authentication failed")

// Pipeline 登录、发现课程、解析内容、下载资源,整个流程只使用一个浏览器会话
type Pipeline struct {
	cfg     *config.Config
	launch  session.Launcher
	store   *folder.Store
	layout  *folder.Layout
	trees   *tree.Store
	fetcher collector.FileFetcher
	logger  *slog.Logger
	now     func() time.Time
}

// New launch 为 nil 时按配置启动真实浏览器,fs 为 nil 时使用本地文件系统
func New(cfg *config.Config, launch session.Launcher, fs afero.Fs, logger *slog.Logger) (*Pipeline, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = slog.Default()
	}
	layout, err := folder.NewLayout(cfg.Portal.DownloadDir, cfg.Acquire.MaxNameLength, cfg.Acquire.WeekPattern)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:    cfg,
		launch: launch,
		store:  folder.NewStoreWithFS(fs, cfg.Acquire.PartialSuffixes),
		layout: layout,
		trees:  tree.NewStoreWithFS(fs),
		logger: logger,
		now:    time.Now,
	}
	if cfg.Colly.DirectFetch {
		p.fetcher = collector.InitCollyFetcher(cfg, fs)
	}
	return p, nil
}

func (p *Pipeline) credentials() session.Credentials {
	return session.Credentials{
		Username: p.cfg.Portal.Username,
		Password: p.cfg.Portal.Password,
	}
}

// withSession 为一次运行分配 run_id,启动浏览器并登录后执行 fn
func (p *Pipeline) withSession(ctx context.Context, headless bool, stage string, fn func(ctx context.Context, ctrl *session.Controller, logger *slog.Logger) error) error {
	logger := p.logger.With(slog.String("run_id", uuid.NewString()), slog.String("stage", stage))
	ctrl := session.NewController(p.cfg, p.launch, logger)
	return ctrl.Run(ctx, headless, func(ctx context.Context, ctrl *session.Controller) error {
		ok, err := ctrl.Authenticate(ctx, p.credentials())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: user menu not found after login as %s", ErrAuthFailed, p.cfg.Portal.Username)
		}
		return fn(ctx, ctrl, logger)
	})
}

func (p *Pipeline) discover(ctx context.Context, ctrl *session.Controller, logger *slog.Logger) (*model.CourseTree, error) {
	courses, err := discovery.NewDiscoverer(p.cfg, ctrl, logger).Courses(ctx)
	if err != nil {
		return nil, err
	}
	ex := extractor.NewExtractor(p.cfg, ctrl, logger)
	for i, course := range courses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logger.Info("解析课程", slog.Int("index", i+1), slog.Int("count", len(courses)), slog.String("course", course.Name))
		if err := ex.Extract(ctx, course); err != nil {
			return nil, err
		}
	}
	return &model.CourseTree{
		Timestamp: p.now(),
		BaseURL:   p.cfg.Portal.BaseURL,
		Username:  p.cfg.Portal.Username,
		Courses:   courses,
	}, nil
}

func (p *Pipeline) acquire(ctx context.Context, ctrl *session.Controller, logger *slog.Logger, doc *model.CourseTree, skipExisting bool) (model.RunStats, error) {
	acq := acquirer.NewAcquirer(p.cfg, ctrl, p.store, p.layout, p.fetcher, logger)
	agg := aggregator.NewAggregator(acq, p.store, p.layout, logger)
	stats, err := agg.RunAll(ctx, doc.Courses, skipExisting)
	logger.Info("下载完成",
		slog.Int("courses", stats.Courses),
		slog.Int("total", stats.Total),
		slog.Int("downloaded", stats.Downloaded),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed),
	)
	return stats, err
}

// Discover 登录并构建完整的课程树
func (p *Pipeline) Discover(ctx context.Context, headless bool) (*model.CourseTree, error) {
	var doc *model.CourseTree
	err := p.withSession(ctx, headless, "discover", func(ctx context.Context, ctrl *session.Controller, logger *slog.Logger) error {
		var err error
		doc, err = p.discover(ctx, ctrl, logger)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Acquire 重新登录后按课程树下载资源
func (p *Pipeline) Acquire(ctx context.Context, doc *model.CourseTree, headless, skipExisting bool) (model.RunStats, error) {
	var stats model.RunStats
	err := p.withSession(ctx, headless, "download", func(ctx context.Context, ctrl *session.Controller, logger *slog.Logger) error {
		var err error
		stats, err = p.acquire(ctx, ctrl, logger, doc, skipExisting)
		return err
	})
	return stats, err
}

// Full 发现、保存课程树、下载,共用同一次登录
func (p *Pipeline) Full(ctx context.Context, headless bool, output string, skipExisting bool) (*model.CourseTree, model.RunStats, error) {
	var (
		doc   *model.CourseTree
		stats model.RunStats
	)
	err := p.withSession(ctx, headless, "full", func(ctx context.Context, ctrl *session.Controller, logger *slog.Logger) error {
		var err error
		doc, err = p.discover(ctx, ctrl, logger)
		if err != nil {
			return err
		}
		if err := p.trees.Save(output, doc); err != nil {
			return err
		}
		logger.Info("课程树已保存", slog.String("path", output))
		stats, err = p.acquire(ctx, ctrl, logger, doc, skipExisting)
		return err
	})
	return doc, stats, err
}

func (p *Pipeline) SaveTree(path string, doc *model.CourseTree) error {
	return p.trees.Save(path, doc)
}

func (p *Pipeline) LoadTree(path string) (*model.CourseTree, error) {
	return p.trees.Load(path)
}
