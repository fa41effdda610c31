package model

type OutcomeStatus string

const (
	StatusDownloaded OutcomeStatus = "downloaded"
	StatusSkipped    OutcomeStatus = "skipped"
	StatusFailed     OutcomeStatus = "failed"
	// StatusIgnored 不可下载类型的活动,不计入统计
	StatusIgnored OutcomeStatus = "ignored"
)

const (
	ReasonExists    = "exists"
	ReasonAuto      = "auto"
	ReasonTimeout   = "timeout"
	ReasonNoLink    = "no download link"
	ReasonNotTarget = "not downloadable"
)

// DownloadOutcome 单个活动的下载结果
type DownloadOutcome struct {
	Status OutcomeStatus `json:"status"`
	Path   string        `json:"path,omitempty"`
	Reason string        `json:"reason,omitempty"`
}

func Downloaded(path string) DownloadOutcome {
	return DownloadOutcome{Status: StatusDownloaded, Path: path}
}

func Skipped(reason string) DownloadOutcome {
	return DownloadOutcome{Status: StatusSkipped, Reason: reason}
}

func Failed(reason string) DownloadOutcome {
	return DownloadOutcome{Status: StatusFailed, Reason: reason}
}

func Ignored() DownloadOutcome {
	return DownloadOutcome{Status: StatusIgnored, Reason: ReasonNotTarget}
}
