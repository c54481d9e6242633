package shield

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"shield-go/internal/model"
)

// DefaultHistoryLimit is the number of finished sessions kept in the history log.
const DefaultHistoryLimit = 50

// ProgressFunc observes a session snapshot before each pair is crawled.
type ProgressFunc func(session model.MonitoringSession)

// Scanner runs monitoring sessions: every enabled asset is checked against
// every enabled target, one pair at a time, in a fixed order.
type Scanner struct {
	vault        *FingerprintVault
	database     Database
	crawler      Crawler
	alerts       *AlertStore
	logger       Logger
	clock        Clock
	idgen        IDGenerator
	historyLimit int

	mu      sync.Mutex
	current *model.MonitoringSession
}

// NewScanner creates a Scanner. A non-positive historyLimit uses DefaultHistoryLimit.
func NewScanner(vault *FingerprintVault, database Database, crawler Crawler, alerts *AlertStore, logger Logger, clock Clock, idgen IDGenerator, historyLimit int) *Scanner {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Scanner{
		vault:        vault,
		database:     database,
		crawler:      crawler,
		alerts:       alerts,
		logger:       logger,
		clock:        clock,
		idgen:        idgen,
		historyLimit: historyLimit,
	}
}

// Current returns a snapshot of the running session, or nil when idle.
func (s *Scanner) Current() *model.MonitoringSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	snapshot := *s.current
	return &snapshot
}

// Run executes one monitoring session to a terminal state.
//
// Per-pair crawl failures are logged and counted in PairsFailed; only a
// failure to enumerate assets or targets ends the session in the error state,
// in which case the error is also returned. Cancelling ctx stops the session
// between pairs with status cancelled; partial results are kept and no error
// is returned.
func (s *Scanner) Run(ctx context.Context, onProgress ProgressFunc) (*model.MonitoringSession, error) {
	session := &model.MonitoringSession{
		ID:        s.idgen.New(),
		Status:    model.SessionIdle,
		StartedAt: s.clock.Now(),
	}
	if !s.begin(session) {
		return nil, ErrScanInProgress
	}
	defer s.end()

	s.update(session, func(m *model.MonitoringSession) { m.Status = model.SessionScanning })
	s.logger.Info("scan started", "session", session.ID)

	assets, err := s.enabledAssets()
	if err != nil {
		return s.fail(session, fmt.Errorf("reading assets: %w", err))
	}
	targets, err := s.enabledTargets()
	if err != nil {
		return s.fail(session, fmt.Errorf("reading targets: %w", err))
	}

	s.update(session, func(m *model.MonitoringSession) { m.TotalTargets = len(assets) * len(targets) })

	if session.TotalTargets == 0 {
		reason := "No protected assets are enabled for monitoring."
		if len(assets) > 0 {
			reason = "No monitoring targets are enabled."
		}
		s.finish(session, model.SessionCompleted)
		s.emit(&model.ContentAlert{
			Type:        model.AlertScanComplete,
			Severity:    model.SeverityInfo,
			Title:       "Scan complete",
			Description: reason,
		})
		s.archive(session)
		return session, nil
	}

	visited := make([]*model.ProtectedAsset, 0, len(assets))
	cancelled := false

pairs:
	for _, asset := range assets {
		assetVisited := false
		for _, target := range targets {
			if ctx.Err() != nil {
				cancelled = true
				break pairs
			}
			if !assetVisited {
				assetVisited = true
				visited = append(visited, asset)
			}

			s.update(session, func(m *model.MonitoringSession) {
				m.CurrentTarget = target.Name
				m.TargetsScanned++
				m.Progress = progress(m.TargetsScanned, m.TotalTargets)
			})
			if onProgress != nil {
				onProgress(*session)
			}

			result, err := s.crawler.Crawl(ctx, *target, *asset)
			if err != nil {
				if ctx.Err() != nil {
					cancelled = true
					break pairs
				}
				s.update(session, func(m *model.MonitoringSession) { m.PairsFailed++ })
				scanPairsTotal.WithLabelValues("failed").Inc()
				s.logger.Warn("crawl failed", "session", session.ID, "target", target.Name, "asset", asset.ID, "error", err)
				continue
			}
			if !result.Found {
				scanPairsTotal.WithLabelValues("clean").Inc()
				continue
			}

			scanPairsTotal.WithLabelValues("match").Inc()
			s.recordMatch(session, asset, target, result)
		}
	}

	s.markScanned(visited)

	status := model.SessionCompleted
	if cancelled {
		status = model.SessionCancelled
	}
	s.finish(session, status)
	s.emit(summaryAlert(session))
	s.archive(session)

	s.logger.Info("scan finished", "session", session.ID, "status", session.Status,
		"pairs", session.TargetsScanned, "matches", session.MatchesFound, "failed", session.PairsFailed)
	return session, nil
}

func (s *Scanner) begin(session *model.MonitoringSession) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		return false
	}
	s.current = session
	return true
}

func (s *Scanner) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// update mutates the running session under the lock so Current never sees a torn value.
func (s *Scanner) update(session *model.MonitoringSession, fn func(m *model.MonitoringSession)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(session)
}

func (s *Scanner) enabledAssets() ([]*model.ProtectedAsset, error) {
	all, err := s.vault.All()
	if err != nil {
		return nil, err
	}
	enabled := make([]*model.ProtectedAsset, 0, len(all))
	for _, a := range all {
		if a.MonitoringEnabled {
			enabled = append(enabled, a)
		}
	}
	return enabled, nil
}

func (s *Scanner) enabledTargets() ([]*model.MonitoringTarget, error) {
	all, err := s.database.ListTargets()
	if err != nil {
		return nil, err
	}
	enabled := make([]*model.MonitoringTarget, 0, len(all))
	for _, t := range all {
		if t.Enabled {
			enabled = append(enabled, t)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		if enabled[i].Name != enabled[j].Name {
			return enabled[i].Name < enabled[j].Name
		}
		return enabled[i].ID < enabled[j].ID
	})
	return enabled, nil
}

func (s *Scanner) recordMatch(session *model.MonitoringSession, asset *model.ProtectedAsset, target *model.MonitoringTarget, result model.CrawlResult) {
	now := s.clock.Now()
	s.update(session, func(m *model.MonitoringSession) { m.MatchesFound++ })

	updated, err := s.vault.Update(asset.ID, func(a *model.ProtectedAsset) {
		a.MatchCount++
		a.LastScanned = &now
	})
	if err != nil {
		s.logger.Error("recording match on asset", "asset", asset.ID, "error", err)
	} else {
		*asset = *updated
	}

	similarity := result.Similarity
	s.emit(&model.ContentAlert{
		Type:        model.AlertMatchFound,
		Severity:    model.SeverityCritical,
		Title:       fmt.Sprintf("Match found on %s", target.Name),
		Description: fmt.Sprintf("%s appears on %s with %d%% similarity.", asset.Filename, target.Name, similarity),
		TargetSite:  target.Name,
		MatchURL:    result.URL,
		Similarity:  &similarity,
		AssetID:     asset.ID,
	})
	s.logger.Info("match found", "session", session.ID, "target", target.Name, "asset", asset.ID,
		"similarity", similarity, "url", result.URL)
}

// markScanned stamps LastScanned on every asset the session visited.
func (s *Scanner) markScanned(assets []*model.ProtectedAsset) {
	now := s.clock.Now()
	for _, asset := range assets {
		_, err := s.vault.Update(asset.ID, func(a *model.ProtectedAsset) { a.LastScanned = &now })
		if err != nil && !errors.Is(err, ErrAssetNotFound) {
			s.logger.Error("updating last scanned", "asset", asset.ID, "error", err)
		}
	}
}

func (s *Scanner) fail(session *model.MonitoringSession, err error) (*model.MonitoringSession, error) {
	s.update(session, func(m *model.MonitoringSession) { m.Error = err.Error() })
	s.finish(session, model.SessionError)
	s.emit(&model.ContentAlert{
		Type:        model.AlertScanComplete,
		Severity:    model.SeverityWarning,
		Title:       "Scan failed",
		Description: err.Error(),
	})
	s.archive(session)
	s.logger.Error("scan failed", "session", session.ID, "error", err)
	return session, err
}

func (s *Scanner) finish(session *model.MonitoringSession, status model.SessionStatus) {
	now := s.clock.Now()
	s.update(session, func(m *model.MonitoringSession) {
		m.Status = status
		m.CompletedAt = &now
		m.CurrentTarget = ""
		if status == model.SessionCompleted {
			m.Progress = 100
		}
	})
	scanSessionsTotal.WithLabelValues(string(status)).Inc()
	scanDuration.Observe(now.Sub(session.StartedAt).Seconds())
}

func (s *Scanner) emit(alert *model.ContentAlert) {
	if err := s.alerts.Save(alert); err != nil {
		s.logger.Error("saving alert", "type", alert.Type, "error", err)
	}
}

func (s *Scanner) archive(session *model.MonitoringSession) {
	if err := s.database.AppendSession(session, s.historyLimit); err != nil {
		s.logger.Error("archiving session", "session", session.ID, "error", err)
	}
}

// progress returns round(scanned/total*100).
func progress(scanned, total int) int {
	return int(math.Round(float64(scanned) / float64(total) * 100))
}

func summaryAlert(session *model.MonitoringSession) *model.ContentAlert {
	severity := model.SeverityInfo
	if session.MatchesFound > 0 {
		severity = model.SeverityWarning
	}
	title := "Scan complete"
	if session.Status == model.SessionCancelled {
		title = "Scan cancelled"
	}
	desc := fmt.Sprintf("Checked %d of %d asset/target pairs: %d matches found, %d pairs failed.",
		session.TargetsScanned, session.TotalTargets, session.MatchesFound, session.PairsFailed)
	return &model.ContentAlert{
		Type:        model.AlertScanComplete,
		Severity:    severity,
		Title:       title,
		Description: desc,
	}
}
