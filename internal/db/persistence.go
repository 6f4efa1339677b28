package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/udisondev/charsheet/internal/sheet"
)

// PolicyFunc returns the bonus policy of a game system by name.
type PolicyFunc func(system string) (sheet.Policy, error)

// SheetService saves and restores whole characters through a Store.
type SheetService struct {
	store    Store
	policies PolicyFunc
}

// NewSheetService creates a new SheetService.
func NewSheetService(store Store, policies PolicyFunc) *SheetService {
	return &SheetService{store: store, policies: policies}
}

// SaveCharacter snapshots c and stores it under its name.
func (s *SheetService) SaveCharacter(ctx context.Context, system string, c *sheet.Character) error {
	sh := &Sheet{Name: c.Name(), System: system, Records: c.Snapshot()}
	if err := s.store.SaveSheet(ctx, sh); err != nil {
		return fmt.Errorf("saving character %s: %w", c.Name(), err)
	}

	slog.Info("character saved",
		"character", c.Name(),
		"system", system,
		"stats", len(c.StatNames()),
		"bonuses", len(c.BonusNames()),
		"effects", len(c.EffectNames()))
	return nil
}

// LoadCharacter restores a stored character and returns it with its system name.
func (s *SheetService) LoadCharacter(ctx context.Context, name string, opts ...sheet.Option) (*sheet.Character, string, error) {
	sh, err := s.store.LoadSheet(ctx, name)
	if err != nil {
		return nil, "", fmt.Errorf("loading character %s: %w", name, err)
	}
	policy, err := s.policies(sh.System)
	if err != nil {
		return nil, "", fmt.Errorf("loading character %s: %w", name, err)
	}
	c, err := sheet.Restore(sh.Name, policy, sh.Records, opts...)
	if err != nil {
		return nil, "", fmt.Errorf("loading character %s: %w", name, err)
	}
	return c, sh.System, nil
}
