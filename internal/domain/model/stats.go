package model

type RunStats struct {
	Total      int `json:"total"`
	Downloaded int `json:"downloaded"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
	Courses    int `json:"courses,omitempty"`
}

// Record 累加一个结果,ignored 不计数
func (s *RunStats) Record(o DownloadOutcome) {
	switch o.Status {
	case StatusDownloaded:
		s.Downloaded++
	case StatusSkipped:
		s.Skipped++
	case StatusFailed:
		s.Failed++
	default:
		return
	}
	s.Total++
}

func (s *RunStats) Add(other RunStats) {
	s.Total += other.Total
	s.Downloaded += other.Downloaded
	s.Skipped += other.Skipped
	s.Failed += other.Failed
}
