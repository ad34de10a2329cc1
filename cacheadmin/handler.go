/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package cacheadmin provides an HTTP API for inspecting and managing a running cache:
// statistics, runtime configuration, entry metadata and invalidation.
package cacheadmin

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/acronis/go-cachekit/cache"
	"github.com/acronis/go-cachekit/config"
	"github.com/acronis/go-cachekit/log"
)

const maxRequestBodySize = 1 << 20

// Cache is a cache managed by the admin API. *cache.Service implements it for any value type.
type Cache interface {
	Statistics() cache.Statistics
	GetMetadata(key cache.Key) (cache.EntryMetadata, bool)
	Delete(key cache.Key) bool
	Clear() int
	InvalidateWhere(predicate cache.InvalidationPredicate) int
	PurgeExpired() int
	ConfigManager() *cache.ConfigManager
}

// HandlerOpts represents options for the admin API handler.
type HandlerOpts struct {
	// Logger is used for request and error logging. If nil, logging is disabled.
	Logger log.FieldLogger

	// MetricsGatherer is exposed at GET /metrics. If nil, the endpoint is not registered.
	MetricsGatherer prometheus.Gatherer

	// Profiling mounts net/http/pprof handlers under /debug.
	Profiling bool
}

type handler struct {
	cache Cache
}

// NewHandler returns an http.Handler serving the admin API:
//
//	GET    /stats            usage statistics
//	GET    /config           current configuration
//	PATCH  /config           partial configuration update ("null" clears maxEntries and evictionStrategy)
//	GET    /entries/{key}    entry metadata
//	DELETE /entries/{key}    remove an entry
//	DELETE /entries          remove all entries
//	POST   /invalidate       remove entries matching {"tags": [...], "keyPattern": "..."}
//	POST   /purge-expired    remove expired entries
//	GET    /metrics          Prometheus metrics
//	GET    /debug/pprof/*    profiling (if enabled)
func NewHandler(c Cache, opts HandlerOpts) http.Handler {
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	h := &handler{cache: c}

	r := chi.NewRouter()
	r.Use(requestIDAndLogging(opts.Logger), recovery)
	r.NotFound(func(rw http.ResponseWriter, r *http.Request) {
		respondError(rw, http.StatusNotFound, ErrCodeNotFound, "route not found", loggerFromContext(r.Context()))
	})
	r.MethodNotAllowed(func(rw http.ResponseWriter, r *http.Request) {
		respondError(rw, http.StatusMethodNotAllowed, ErrCodeBadRequest, "method not allowed", loggerFromContext(r.Context()))
	})

	r.Get("/stats", h.getStatistics)
	r.Route("/config", func(r chi.Router) {
		r.Get("/", h.getConfig)
		r.Patch("/", h.patchConfig)
	})
	r.Route("/entries", func(r chi.Router) {
		r.Delete("/", h.clearEntries)
		r.Get("/{key}", h.getEntry)
		r.Delete("/{key}", h.deleteEntry)
	})
	r.Post("/invalidate", h.invalidate)
	r.Post("/purge-expired", h.purgeExpired)
	if opts.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.MetricsGatherer, promhttp.HandlerOpts{}))
	}
	if opts.Profiling {
		r.Mount("/debug", chimiddleware.Profiler())
	}
	return r
}

// StatisticsResponse is a body of GET /stats response.
type StatisticsResponse struct {
	cache.Statistics
	HitRatio float64 `json:"hitRatio"`
}

// EntryResponse is a body of GET /entries/{key} response.
type EntryResponse struct {
	Key            string     `json:"key"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastAccessedAt time.Time  `json:"lastAccessedAt"`
	ExpiresAt      *time.Time `json:"expiresAt"`
	Hits           int        `json:"hits"`
	Tags           []string   `json:"tags"`
}

// InvalidateRequest is a body of POST /invalidate request.
// Entries must match all specified criteria: at least one of the tags and the key pattern.
type InvalidateRequest struct {
	Tags       []string `json:"tags"`
	KeyPattern string   `json:"keyPattern"`
}

// RemovedResponse is a body of responses of the operations that remove entries.
type RemovedResponse struct {
	Removed int `json:"removed"`
}

func (h *handler) getStatistics(rw http.ResponseWriter, r *http.Request) {
	stats := h.cache.Statistics()
	respondJSON(rw, http.StatusOK, StatisticsResponse{stats, stats.HitRatio()}, loggerFromContext(r.Context()))
}

func (h *handler) getConfig(rw http.ResponseWriter, r *http.Request) {
	respondJSON(rw, http.StatusOK, h.cache.ConfigManager().Config(), loggerFromContext(r.Context()))
}

func (h *handler) patchConfig(rw http.ResponseWriter, r *http.Request) {
	logger := loggerFromContext(r.Context())

	var patch map[string]json.RawMessage
	if err := decodeRequestBody(rw, r, &patch); err != nil {
		respondError(rw, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), logger)
		return
	}
	updates, err := configUpdatesFromPatch(patch)
	if err != nil {
		var settingErr *settingError
		if errors.As(err, &settingErr) {
			respondError(rw, http.StatusBadRequest, settingErr.code, settingErr.Error(), logger)
			return
		}
		respondError(rw, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), logger)
		return
	}

	cfg := h.cache.ConfigManager().UpdateConfig(updates...)
	logger.Info("cache configuration updated via admin API", log.Strings("settings", sortedKeys(patch)))
	respondJSON(rw, http.StatusOK, cfg, logger)
}

func (h *handler) getEntry(rw http.ResponseWriter, r *http.Request) {
	logger := loggerFromContext(r.Context())
	key, err := keyFromRequest(r)
	if err != nil {
		respondError(rw, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), logger)
		return
	}
	meta, ok := h.cache.GetMetadata(key)
	if !ok {
		respondError(rw, http.StatusNotFound, ErrCodeNotFound, fmt.Sprintf("entry %q is not found", key), logger)
		return
	}
	respondJSON(rw, http.StatusOK, newEntryResponse(meta), logger)
}

func (h *handler) deleteEntry(rw http.ResponseWriter, r *http.Request) {
	logger := loggerFromContext(r.Context())
	key, err := keyFromRequest(r)
	if err != nil {
		respondError(rw, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), logger)
		return
	}
	if !h.cache.Delete(key) {
		respondError(rw, http.StatusNotFound, ErrCodeNotFound, fmt.Sprintf("entry %q is not found", key), logger)
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

func (h *handler) clearEntries(rw http.ResponseWriter, r *http.Request) {
	respondJSON(rw, http.StatusOK, RemovedResponse{h.cache.Clear()}, loggerFromContext(r.Context()))
}

func (h *handler) invalidate(rw http.ResponseWriter, r *http.Request) {
	logger := loggerFromContext(r.Context())

	var req InvalidateRequest
	if err := decodeRequestBody(rw, r, &req); err != nil {
		respondError(rw, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), logger)
		return
	}
	var predicates []cache.InvalidationPredicate
	if len(req.Tags) != 0 {
		predicates = append(predicates, cache.HasAnyTag(req.Tags...))
	}
	if req.KeyPattern != "" {
		predicates = append(predicates, cache.KeyMatchesGlob(req.KeyPattern))
	}
	if len(predicates) == 0 {
		respondError(rw, http.StatusBadRequest, ErrCodeBadRequest, "tags or keyPattern must be specified", logger)
		return
	}
	removed := h.cache.InvalidateWhere(cache.AllOf(predicates...))
	logger.Info("cache entries invalidated via admin API",
		log.Strings("tags", req.Tags), log.String("key_pattern", req.KeyPattern), log.Int("removed", removed))
	respondJSON(rw, http.StatusOK, RemovedResponse{removed}, logger)
}

func (h *handler) purgeExpired(rw http.ResponseWriter, r *http.Request) {
	respondJSON(rw, http.StatusOK, RemovedResponse{h.cache.PurgeExpired()}, loggerFromContext(r.Context()))
}

func newEntryResponse(meta cache.EntryMetadata) EntryResponse {
	resp := EntryResponse{
		Key:            string(meta.Key),
		CreatedAt:      meta.CreatedAt,
		LastAccessedAt: meta.LastAccessedAt,
		Hits:           meta.Hits,
		Tags:           meta.Tags,
	}
	if !meta.ExpiresAt.IsZero() {
		expiresAt := meta.ExpiresAt
		resp.ExpiresAt = &expiresAt
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	return resp
}

func keyFromRequest(r *http.Request) (cache.Key, error) {
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil {
		return "", fmt.Errorf("invalid key: %w", err)
	}
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("key must not be empty")
	}
	return cache.Key(key), nil
}

func decodeRequestBody(rw http.ResponseWriter, r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(rw, r.Body, maxRequestBodySize))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

type settingError struct {
	code    string
	setting string
	err     error
}

func (e *settingError) Error() string {
	return fmt.Sprintf("%s: %v", e.setting, e.err)
}

func (e *settingError) Unwrap() error {
	return e.err
}

// configUpdatesFromPatch converts a JSON merge patch into config updates.
// A present key is applied, an absent one is preserved; null clears optional settings.
func configUpdatesFromPatch(patch map[string]json.RawMessage) ([]cache.ConfigUpdate, error) {
	isNull := func(raw json.RawMessage) bool {
		return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
	}
	invalid := func(setting string, err error) error {
		return &settingError{code: ErrCodeInvalidSetting, setting: setting, err: err}
	}
	errNull := errors.New("null is not allowed")

	updates := make([]cache.ConfigUpdate, 0, len(patch))
	for _, setting := range sortedKeys(patch) {
		raw := patch[setting]
		switch setting {
		case "enabled":
			var enabled *bool
			if err := json.Unmarshal(raw, &enabled); err != nil {
				return nil, invalid(setting, err)
			}
			if enabled == nil {
				return nil, invalid(setting, errNull)
			}
			updates = append(updates, cache.UpdateEnabled(*enabled))

		case "defaultTTL":
			if isNull(raw) {
				return nil, invalid(setting, errNull)
			}
			var ttl config.TimeDuration
			if err := json.Unmarshal(raw, &ttl); err != nil {
				return nil, invalid(setting, err)
			}
			if ttl < 0 {
				return nil, invalid(setting, errors.New("must be greater than or equal to 0 (no expiration)"))
			}
			updates = append(updates, cache.UpdateDefaultTTL(time.Duration(ttl)))

		case "namespace":
			var namespace *string
			if err := json.Unmarshal(raw, &namespace); err != nil {
				return nil, invalid(setting, err)
			}
			if namespace == nil {
				return nil, invalid(setting, errNull)
			}
			updates = append(updates, cache.UpdateNamespace(*namespace))

		case "maxEntries":
			if isNull(raw) {
				updates = append(updates, cache.ClearMaxEntries())
				continue
			}
			var maxEntries int
			if err := json.Unmarshal(raw, &maxEntries); err != nil {
				return nil, invalid(setting, err)
			}
			if maxEntries < 0 {
				return nil, invalid(setting, errors.New("must be greater than or equal to 0"))
			}
			updates = append(updates, cache.UpdateMaxEntries(maxEntries))

		case "evictionStrategy":
			if isNull(raw) {
				updates = append(updates, cache.ClearEvictionStrategy())
				continue
			}
			var name string
			if err := json.Unmarshal(raw, &name); err != nil {
				return nil, invalid(setting, err)
			}
			updates = append(updates, cache.UpdateEvictionStrategy(name))

		default:
			return nil, &settingError{code: ErrCodeUnknownSetting, setting: setting, err: errors.New("unknown setting")}
		}
	}
	return updates, nil
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
