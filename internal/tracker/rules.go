package tracker

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/DieselDot/Trademind/internal/models"
	"github.com/DieselDot/Trademind/internal/store"
)

// RuleInput is the editable part of a rule.
type RuleInput struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Category    models.RuleCategory `json:"category"`
}

// Rules lists the user's rules grouped by category, oldest first within a
// category.
func (s *Service) Rules(ctx context.Context, userID string, activeOnly bool) ([]models.Rule, error) {
	rules, err := s.store.GetRules(ctx, store.RuleFilter{UserID: userID, ActiveOnly: activeOnly})
	if err != nil {
		return nil, err
	}
	order := models.AllRuleCategories()
	slices.SortStableFunc(rules, func(a, b models.Rule) int {
		return cmp.Compare(slices.Index(order, a.Category), slices.Index(order, b.Category))
	})
	return rules, nil
}

// CreateRule adds an active rule.
func (s *Service) CreateRule(ctx context.Context, userID string, in RuleInput) (*models.Rule, error) {
	now := s.now()
	rule := &models.Rule{
		ID:          s.newID(),
		UserID:      userID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Category:    in.Category,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateRule(ctx, rule); err != nil {
		return nil, err
	}

	s.invalidator.InvalidateDashboard(ctx, userID)
	s.logger.Info().Str("user_id", userID).Str("rule_id", rule.ID).Str("category", string(rule.Category)).Msg("Rule created")
	return rule, nil
}

// UpdateRule replaces a rule's name, description and category.
func (s *Service) UpdateRule(ctx context.Context, userID, id string, in RuleInput) (*models.Rule, error) {
	rule, err := s.store.GetRule(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	rule.Name = strings.TrimSpace(in.Name)
	rule.Description = strings.TrimSpace(in.Description)
	rule.Category = in.Category
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return s.saveRule(ctx, rule)
}

// SetRuleActive enables or disables a rule. Inactive rules stay attached
// to past trades but cannot be marked broken on new ones.
func (s *Service) SetRuleActive(ctx context.Context, userID, id string, active bool) (*models.Rule, error) {
	rule, err := s.store.GetRule(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	rule.IsActive = active
	return s.saveRule(ctx, rule)
}

// ToggleRule flips a rule's active flag.
func (s *Service) ToggleRule(ctx context.Context, userID, id string) (*models.Rule, error) {
	rule, err := s.store.GetRule(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	rule.IsActive = !rule.IsActive
	return s.saveRule(ctx, rule)
}

func (s *Service) saveRule(ctx context.Context, rule *models.Rule) (*models.Rule, error) {
	rule.UpdatedAt = s.now()
	if err := s.store.UpdateRule(ctx, rule); err != nil {
		return nil, err
	}
	s.invalidator.InvalidateDashboard(ctx, rule.UserID)
	return rule, nil
}

// DeleteRule removes a rule.
func (s *Service) DeleteRule(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteRule(ctx, userID, id); err != nil {
		return err
	}
	s.invalidator.InvalidateDashboard(ctx, userID)
	s.logger.Info().Str("user_id", userID).Str("rule_id", id).Msg("Rule deleted")
	return nil
}
