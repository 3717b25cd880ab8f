package collection

import (
	"context"
	"sort"
	"sync"
	"time"

	"code.cloudfoundry.org/lager/v3"

	"github.com/funnelmon/funnelmon/civil"
	"github.com/funnelmon/funnelmon/db"
	"github.com/funnelmon/funnelmon/models"
)

// CachedAlertStore fronts an alert store with an in-memory day cache. The
// day-wide fallback queries hammer the same calendar day repeatedly during a
// sweep; the first miss loads the whole UTC day into a TSDCache and later
// windows inside a covered day are served from memory. Whenever the ring
// has evicted past the window start, the delegate is asked instead.
type CachedAlertStore struct {
	logger   lager.Logger
	delegate db.AlertStore
	cache    *TSDCache

	mu          sync.Mutex
	coveredDays map[string]bool
	totalPut    int
}

var _ db.AlertStore = &CachedAlertStore{}

func NewCachedAlertStore(logger lager.Logger, delegate db.AlertStore, capacity int) *CachedAlertStore {
	return &CachedAlertStore{
		logger:      logger.Session("cached-alert-store"),
		delegate:    delegate,
		cache:       NewTSDCache(capacity),
		coveredDays: map[string]bool{},
	}
}

func (s *CachedAlertStore) Close() error {
	return s.delegate.Close()
}

func (s *CachedAlertStore) RetrieveAlerts(ctx context.Context, start time.Time, end time.Time, orderType db.OrderType) ([]models.AlertEvent, error) {
	dayStart, dayEnd := civil.UTCDayBounds(start)
	if end.After(dayEnd) {
		// multi-day windows bypass the cache
		return s.delegate.RetrieveAlerts(ctx, start, end, orderType)
	}

	day := start.UTC().Format(civil.DateLayout)
	if err := s.ensureDayCovered(ctx, day, dayStart, dayEnd); err != nil {
		return nil, err
	}

	// Query's upper bound is exclusive
	cached, complete := s.cache.Query(start.UnixNano(), end.UnixNano()+1, nil)
	if !complete && !s.nothingEvicted() {
		s.logger.Debug("cache-evicted-window-start", lager.Data{"day": day})
		return s.delegate.RetrieveAlerts(ctx, start, end, orderType)
	}

	alerts := make([]models.AlertEvent, 0, len(cached))
	for _, d := range cached {
		alerts = append(alerts, *(d.(*models.AlertEvent)))
	}
	if orderType == db.DESC {
		sort.SliceStable(alerts, func(i, j int) bool {
			return alerts[i].TriggeredAt.After(alerts[j].TriggeredAt)
		})
	}
	return alerts, nil
}

func (s *CachedAlertStore) ensureDayCovered(ctx context.Context, day string, dayStart, dayEnd time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.coveredDays[day] {
		return nil
	}

	alerts, err := s.delegate.RetrieveAlerts(ctx, dayStart, dayEnd, db.ASC)
	if err != nil {
		return err
	}
	for i := range alerts {
		alert := alerts[i]
		s.cache.Put(&alert)
	}
	s.totalPut += len(alerts)
	s.coveredDays[day] = true
	s.logger.Debug("loaded-day-into-cache", lager.Data{"day": day, "alerts": len(alerts)})
	return nil
}

// nothingEvicted reports whether every alert ever loaded is still resident,
// in which case a covered day is complete even when the ring's own
// completeness check is pessimistic about the window start.
func (s *CachedAlertStore) nothingEvicted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalPut <= s.cache.Capacity()
}
