package models

import "time"

// SystemMetrics is an aggregated runtime snapshot for the status endpoint.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	ScheduleRuns             uint64    `json:"schedule_runs"`
	SessionsScheduled        uint64    `json:"sessions_scheduled"`
	SessionsUnscheduled      uint64    `json:"sessions_unscheduled"`
	ExamRuns                 uint64    `json:"exam_runs"`
	ExamsScheduled           uint64    `json:"exams_scheduled"`
	ExamsUnscheduled         uint64    `json:"exams_unscheduled"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
