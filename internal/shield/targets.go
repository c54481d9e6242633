package shield

import (
	"fmt"
	"net/url"
	"strings"

	"shield-go/internal/model"
)

// TargetSpec is the user-supplied description of a monitoring target.
type TargetSpec struct {
	Name      string
	Category  string
	RiskLevel model.RiskLevel
	URL       string
	Enabled   bool
}

func (t TargetSpec) validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("target name is required")
	}
	if t.RiskLevel != "" && !t.RiskLevel.Valid() {
		return fmt.Errorf("invalid risk level %q for target %s", t.RiskLevel, t.Name)
	}
	if t.URL != "" {
		u, err := url.Parse(t.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid url %q for target %s", t.URL, t.Name)
		}
	}
	return nil
}

// AddTarget registers a new monitoring target. Names are unique.
func (s *Service) AddTarget(spec TargetSpec) (*model.MonitoringTarget, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}

	existing, err := s.database.FindTargetByName(spec.Name)
	if err != nil {
		return nil, fmt.Errorf("checking for existing target: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("target already exists: %s", spec.Name)
	}

	target := s.newTarget(spec)
	if err := s.database.CreateTarget(target); err != nil {
		return nil, fmt.Errorf("creating target: %w", err)
	}

	s.logger.Info("target added", "target", target.Name, "id", target.ID)
	return target, nil
}

// ListTargets returns every target ordered by name.
func (s *Service) ListTargets() ([]*model.MonitoringTarget, error) {
	targets, err := s.database.ListTargets()
	if err != nil {
		return nil, fmt.Errorf("listing targets: %w", err)
	}
	return targets, nil
}

// SetTargetEnabled enables or disables a target, looked up by id or name.
func (s *Service) SetTargetEnabled(ref string, enabled bool) error {
	target, err := s.findTarget(ref)
	if err != nil {
		return err
	}
	target.Enabled = enabled
	if err := s.database.UpdateTarget(target); err != nil {
		return fmt.Errorf("updating target: %w", err)
	}
	s.logger.Info("target monitoring changed", "target", target.Name, "enabled", enabled)
	return nil
}

// RemoveTarget deletes a target, looked up by id or name.
func (s *Service) RemoveTarget(ref string) error {
	target, err := s.findTarget(ref)
	if err != nil {
		return err
	}
	if err := s.database.DeleteTarget(target.ID); err != nil {
		return fmt.Errorf("deleting target: %w", err)
	}
	s.logger.Info("target removed", "target", target.Name)
	return nil
}

// ImportTargets upserts targets by name. Existing targets get their category,
// risk level, url and enabled flag replaced. Returns the number of targets
// created and updated.
func (s *Service) ImportTargets(specs []TargetSpec) (created int, updated int, err error) {
	for _, spec := range specs {
		if err := spec.validate(); err != nil {
			return created, updated, err
		}
	}

	for _, spec := range specs {
		existing, err := s.database.FindTargetByName(spec.Name)
		if err != nil {
			return created, updated, fmt.Errorf("checking for existing target: %w", err)
		}
		if existing == nil {
			if err := s.database.CreateTarget(s.newTarget(spec)); err != nil {
				return created, updated, fmt.Errorf("creating target %s: %w", spec.Name, err)
			}
			created++
			continue
		}

		existing.Category = spec.Category
		existing.RiskLevel = riskOrDefault(spec.RiskLevel)
		existing.URL = spec.URL
		existing.Enabled = spec.Enabled
		if err := s.database.UpdateTarget(existing); err != nil {
			return created, updated, fmt.Errorf("updating target %s: %w", spec.Name, err)
		}
		updated++
	}

	s.logger.Info("targets imported", "created", created, "updated", updated)
	return created, updated, nil
}

func (s *Service) findTarget(ref string) (*model.MonitoringTarget, error) {
	target, err := s.database.FindTargetByID(ref)
	if err != nil {
		return nil, fmt.Errorf("finding target: %w", err)
	}
	if target == nil {
		target, err = s.database.FindTargetByName(ref)
		if err != nil {
			return nil, fmt.Errorf("finding target: %w", err)
		}
	}
	if target == nil {
		return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, ref)
	}
	return target, nil
}

func (s *Service) newTarget(spec TargetSpec) *model.MonitoringTarget {
	return &model.MonitoringTarget{
		ID:        s.idgen.New(),
		Name:      strings.TrimSpace(spec.Name),
		Category:  spec.Category,
		RiskLevel: riskOrDefault(spec.RiskLevel),
		URL:       spec.URL,
		Enabled:   spec.Enabled,
		CreatedAt: s.clock.Now(),
	}
}

func riskOrDefault(r model.RiskLevel) model.RiskLevel {
	if r == "" {
		return model.RiskMedium
	}
	return r
}
