package config

import (
	"time"
)

const (
	DriverChromedp = "chromedp"
	DriverRod      = "rod"
)

type Config struct {
	Portal    PortalConfig   `json:"portal"`
	Browser   BrowserConfig  `json:"browser"`
	Colly     CollyConfig    `json:"colly"`
	Selectors SelectorConfig `json:"selectors"`
	Rules     []ActivityRule `json:"activity_rules"`
	Timing    TimingConfig   `json:"timing"`
	Acquire   AcquireConfig  `json:"acquire"`
	Log       LogConfig      `json:"log"`
}

type PortalConfig struct {
	BaseURL     string `json:"base_url"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	DownloadDir string `json:"download_dir"`

	// 个人主页路径,课程列表从这里读取
	DashboardPath string `json:"dashboard_path"`
}

type BrowserConfig struct {
	Driver             string `json:"driver"`
	Headless           bool   `json:"headless"`
	LifeTime           int    `json:"life_time"`
	UserDataDir        string `json:"user_data_dir"`
	WindowWidth        int    `json:"window_width"`
	WindowHeight       int    `json:"window_height"`
	DisableDevShmUsage bool   `json:"disable_dev_shm_usage"`
	NoSandbox          bool   `json:"no_sandbox"`
	UserAgent          string `json:"user_agent"`
	Leakless           bool   `json:"leakless"`
	Bin                string `json:"bin"`
}

type CollyConfig struct {
	UserAgent string   `json:"user_agent"`
	Timeout   Duration `json:"timeout"`

	// 当前页面本身就是文件时,带着浏览器的 cookie 直接下载
	DirectFetch bool `json:"direct_fetch"`
}

// SelectorConfig 页面结构标记,门户改版时只需修改配置
type SelectorConfig struct {
	SSOLinkText     string   `json:"sso_link_text"`
	UsernameInput   string   `json:"username_input"`
	PasswordInput   string   `json:"password_input"`
	SubmitButton    string   `json:"submit_button"`
	LoggedInMarker  string   `json:"logged_in_marker"`
	CourseLink      string   `json:"course_link"`
	Section         string   `json:"section"`
	SectionName     string   `json:"section_name"`
	Activity        string   `json:"activity"`
	ActivityLink    string   `json:"activity_link"`
	HiddenText      string   `json:"hidden_text"`
	DownloadText    string   `json:"download_text"`
	ResourceLink    string   `json:"resource_link"`
	WorkaroundLinks []string `json:"workaround_links"`
}

// ActivityRule 按顺序匹配活动容器的 class,先匹配者胜出。
// 默认规则表在 url 之后多一条 folder,使文件夹活动也能被下载
type ActivityRule struct {
	Marker string `json:"marker"`
	Kind   string `json:"kind"`
}

type TimingConfig struct {
	NavigateTimeout Duration `json:"navigate_timeout"`
	SSOProbe        Duration `json:"sso_probe"`
	SSOSettle       Duration `json:"sso_settle"`
	LoginFormWait   Duration `json:"login_form_wait"`
	LoginSettle     Duration `json:"login_settle"`
	LoginMarkerWait Duration `json:"login_marker_wait"`
	DashboardSettle Duration `json:"dashboard_settle"`
	CourseSettle    Duration `json:"course_settle"`
	ResourceSettle  Duration `json:"resource_settle"`
	ClickSettle     Duration `json:"click_settle"`
	DownloadWait    Duration `json:"download_wait"`
	DownloadTimeout Duration `json:"download_timeout"`
	PollInterval    Duration `json:"poll_interval"`
	ElementTimeout  Duration `json:"element_timeout"`
}

type AcquireConfig struct {
	FileExtensions  []string `json:"file_extensions"`
	PartialSuffixes []string `json:"partial_suffixes"`
	WeekPattern     string   `json:"week_pattern"`
	MaxNameLength   int      `json:"max_name_length"`
}

type LogConfig struct {
	Level string `json:"level"`
}

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Default 返回与门户默认页面结构匹配的配置
func Default() *Config {
	return &Config{
		Portal: PortalConfig{
			BaseURL:       "https://moodle45.nccu.edu.tw",
			DownloadDir:   "data/downloads",
			DashboardPath: "/my/",
		},
		Browser: BrowserConfig{
			Driver:             DriverChromedp,
			Headless:           true,
			LifeTime:           3600,
			WindowWidth:        1920,
			WindowHeight:       1080,
			DisableDevShmUsage: true,
			NoSandbox:          true,
			UserAgent:          "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
			Leakless:           true,
		},
		Colly: CollyConfig{
			Timeout: Duration(60 * time.Second),
		},
		Selectors: SelectorConfig{
			SSOLinkText:     "SSO 單一登入",
			UsernameInput:   "#userNameInput",
			PasswordInput:   "#passwordInput",
			SubmitButton:    "#submitButton",
			LoggedInMarker:  ".usermenu",
			CourseLink:      ".coursename a",
			Section:         "li.section.main",
			SectionName:     ".sectionname",
			Activity:        ".activity",
			ActivityLink:    "a",
			HiddenText:      ".accesshide, .sr-only",
			DownloadText:    "Download",
			ResourceLink:    "a[href*='/mod/resource/']",
			WorkaroundLinks: []string{".resourceworkaround a", ".urlworkaround a"},
		},
		Rules: []ActivityRule{
			{Marker: "resource", Kind: "resource"},
			{Marker: "assign", Kind: "assignment"},
			{Marker: "forum", Kind: "forum"},
			{Marker: "quiz", Kind: "quiz"},
			{Marker: "url", Kind: "url"},
			{Marker: "folder", Kind: "folder"},
		},
		Timing: TimingConfig{
			NavigateTimeout: Duration(30 * time.Second),
			SSOProbe:        Duration(15 * time.Second),
			SSOSettle:       Duration(2 * time.Second),
			LoginFormWait:   Duration(15 * time.Second),
			LoginSettle:     Duration(3 * time.Second),
			LoginMarkerWait: Duration(15 * time.Second),
			DashboardSettle: Duration(2 * time.Second),
			CourseSettle:    Duration(2 * time.Second),
			ResourceSettle:  Duration(1 * time.Second),
			ClickSettle:     Duration(2 * time.Second),
			DownloadWait:    Duration(10 * time.Second),
			DownloadTimeout: Duration(30 * time.Second),
			PollInterval:    Duration(500 * time.Millisecond),
			ElementTimeout:  Duration(10 * time.Second),
		},
		Acquire: AcquireConfig{
			FileExtensions:  []string{".pdf", ".ppt", ".pptx", ".doc", ".docx", ".xls", ".xlsx", ".zip", ".rar", ".7z"},
			PartialSuffixes: []string{".crdownload", ".tmp", ".part"},
			WeekPattern:     `(?i)week|週`,
			MaxNameLength:   200,
		},
		Log: LogConfig{
			Level: LogLevelInfo,
		},
	}
}
