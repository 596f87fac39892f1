package handler

import (
	"net/http"

	"github.com/minwoopark/alarmsense/internal/api/response"
	"github.com/minwoopark/alarmsense/internal/cache"
)

// CacheHandle is what the system endpoints need from one cache instance.
// Both generic cache instantiations satisfy it.
type CacheHandle interface {
	Stats() cache.Stats
	Clear()
}

// Caches groups the handles the system endpoints operate on.
type Caches struct {
	Analysis CacheHandle
	QA       CacheHandle
	Report   CacheHandle
}

// NewCacheStatsHandler returns an http.HandlerFunc for GET /system/cache/stats.
func NewCacheStatsHandler(caches Caches) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, cacheStatsResponse{
			Success:       true,
			AnalysisCache: caches.Analysis.Stats(),
			QACache:       caches.QA.Stats(),
			ReportCache:   caches.Report.Stats(),
		})
	}
}

// NewCacheClearHandler returns an http.HandlerFunc for POST /system/cache/clear.
// The cache_type query parameter selects which cache to empty; it defaults
// to all.
func NewCacheClearHandler(caches Caches) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cacheType := r.URL.Query().Get("cache_type")
		if cacheType == "" {
			cacheType = "all"
		}

		var cleared []string
		switch cacheType {
		case "analysis":
			caches.Analysis.Clear()
			cleared = []string{"analysis"}
		case "qa":
			caches.QA.Clear()
			cleared = []string{"qa"}
		case "report":
			caches.Report.Clear()
			cleared = []string{"report"}
		case "all":
			caches.Analysis.Clear()
			caches.QA.Clear()
			caches.Report.Clear()
			cleared = []string{"analysis", "qa", "report"}
		default:
			response.Error(w, http.StatusBadRequest,
				"cache_type must be one of analysis, qa, report, all")
			return
		}

		response.JSON(w, cacheClearResponse{Success: true, Cleared: cleared})
	}
}

type cacheStatsResponse struct {
	Success       bool        `json:"success"`
	AnalysisCache cache.Stats `json:"analysis_cache"`
	QACache       cache.Stats `json:"qa_cache"`
	ReportCache   cache.Stats `json:"report_cache"`
}

type cacheClearResponse struct {
	Success bool     `json:"success"`
	Cleared []string `json:"cleared"`
}
