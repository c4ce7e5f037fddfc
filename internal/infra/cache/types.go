package cache

import (
	"errors"
	"time"
)

// ErrNotOpen is returned by operations on a closed database.
var ErrNotOpen = errors.New("cache: database not open")

// CacheStats contains cache statistics.
type CacheStats struct {
	SurahCount    int       `json:"surahCount"`
	CachedSurahs  int       `json:"cachedSurahs"` // chapters with at least one verse stored
	VerseCount    int       `json:"verseCount"`
	SettingCount  int       `json:"settingCount"`
	SchemaVersion string    `json:"schemaVersion"`
	LastFullBuild time.Time `json:"lastFullBuild"`
	LastUpdated   time.Time `json:"lastUpdated"`
	IsBuilding    bool      `json:"isBuilding"`
	BuildProgress int       `json:"buildProgress"` // 0-100
}

// BuildResult contains the result of a cache build operation.
type BuildResult struct {
	Success      bool          `json:"success"`
	SurahsAdded  int           `json:"surahsAdded"`
	VersesAdded  int           `json:"versesAdded"`
	FailedSurahs []int         `json:"failedSurahs,omitempty"`
	Duration     time.Duration `json:"duration"`
	Error        string        `json:"error,omitempty"`
}

// BuildProgress is reported after each chapter during a build.
type BuildProgress struct {
	Done    int    `json:"done"`
	Total   int    `json:"total"`
	Percent int    `json:"percent"`
	Surah   int    `json:"surah"`
	Phase   string `json:"phase"`
}
