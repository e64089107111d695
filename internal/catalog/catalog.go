// Package catalog seeds the badge and task definitions shipped with the service.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"gopkg.in/yaml.v3"

	"github.com/aimd54/reward-economy/internal/models"
	"github.com/aimd54/reward-economy/internal/repository"
	"github.com/aimd54/reward-economy/pkg/logger"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog holds badge and task definitions keyed by code.
type Catalog struct {
	Badges []BadgeDefinition `yaml:"badges"`
	Tasks  []TaskDefinition  `yaml:"tasks"`
}

// BadgeDefinition is the seed form of models.Badge.
type BadgeDefinition struct {
	Code            string  `yaml:"code"`
	Name            string  `yaml:"name"`
	Description     string  `yaml:"description"`
	Rarity          string  `yaml:"rarity"`
	Category        string  `yaml:"category"`
	Threshold       int     `yaml:"threshold"`
	MultiplierBonus float64 `yaml:"multiplier_bonus"`
	MaxSupply       *int    `yaml:"max_supply"`
}

// TaskDefinition is the seed form of models.Task.
type TaskDefinition struct {
	Code                  string `yaml:"code"`
	Title                 string `yaml:"title"`
	Description           string `yaml:"description"`
	PointsReward          int64  `yaml:"points_reward"`
	Repeatable            bool   `yaml:"repeatable"`
	RepeatIntervalMinutes int    `yaml:"repeat_interval_minutes"`
	MaxCompletions        *int   `yaml:"max_completions"`
	RequiresWallet        bool   `yaml:"requires_wallet"`
	Active                bool   `yaml:"active"`
}

// Default parses the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse decodes and validates a YAML catalog.
func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	c.fillCodes()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// CodeFor derives a definition code from a display name: "Join the
// community" becomes "join_the_community".
func CodeFor(name string) string {
	return strings.ReplaceAll(slug.Make(name), "-", "_")
}

// fillCodes gives definitions without a code one derived from their name.
func (c *Catalog) fillCodes() {
	for i := range c.Badges {
		if c.Badges[i].Code == "" {
			c.Badges[i].Code = CodeFor(c.Badges[i].Name)
		}
	}
	for i := range c.Tasks {
		if c.Tasks[i].Code == "" {
			c.Tasks[i].Code = CodeFor(c.Tasks[i].Title)
		}
	}
}

// Validate checks codes are unique and every definition is usable.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool)
	for _, b := range c.Badges {
		if b.Code == "" {
			return fmt.Errorf("badge without code")
		}
		if seen["badge:"+b.Code] {
			return fmt.Errorf("duplicate badge code %s", b.Code)
		}
		seen["badge:"+b.Code] = true

		switch b.Category {
		case models.BadgeCategoryStreak, models.BadgeCategoryBoxes, models.BadgeCategoryTasks, models.BadgeCategoryWallet:
		default:
			return fmt.Errorf("badge %s: unknown category %q", b.Code, b.Category)
		}
		if b.MultiplierBonus < 0 {
			return fmt.Errorf("badge %s: multiplier bonus cannot be negative", b.Code)
		}
	}

	for _, t := range c.Tasks {
		if t.Code == "" {
			return fmt.Errorf("task without code")
		}
		if seen["task:"+t.Code] {
			return fmt.Errorf("duplicate task code %s", t.Code)
		}
		seen["task:"+t.Code] = true

		if t.PointsReward < 0 {
			return fmt.Errorf("task %s: points reward cannot be negative", t.Code)
		}
		if t.RepeatIntervalMinutes < 0 {
			return fmt.Errorf("task %s: repeat interval cannot be negative", t.Code)
		}
	}
	return nil
}

// Badge returns the definition with the given code.
func (c *Catalog) Badge(code string) (BadgeDefinition, bool) {
	for _, b := range c.Badges {
		if b.Code == code {
			return b, true
		}
	}
	return BadgeDefinition{}, false
}

// Seed upserts every definition by code. Supply counters and earned badges
// are left untouched, so seeding is safe on every start.
func Seed(store *repository.Store, c *Catalog, log *logger.Logger) error {
	for _, def := range c.Badges {
		rarity := def.Rarity
		if rarity == "" {
			rarity = models.RarityCommon
		}
		badge := &models.Badge{
			Code:            def.Code,
			Name:            def.Name,
			Description:     def.Description,
			Rarity:          rarity,
			Category:        def.Category,
			Threshold:       def.Threshold,
			MultiplierBonus: def.MultiplierBonus,
			MaxSupply:       def.MaxSupply,
		}
		if err := store.Badges.Upsert(badge); err != nil {
			return fmt.Errorf("failed to seed badge %s: %w", def.Code, err)
		}
	}

	for _, def := range c.Tasks {
		task := &models.Task{
			Code:                  def.Code,
			Title:                 def.Title,
			Description:           def.Description,
			PointsReward:          def.PointsReward,
			Repeatable:            def.Repeatable,
			RepeatIntervalMinutes: def.RepeatIntervalMinutes,
			MaxCompletions:        def.MaxCompletions,
			RequiresWallet:        def.RequiresWallet,
			Active:                def.Active,
		}
		if err := store.Tasks.Upsert(task); err != nil {
			return fmt.Errorf("failed to seed task %s: %w", def.Code, err)
		}
	}

	log.Info().Int("badges", len(c.Badges)).Int("tasks", len(c.Tasks)).Msg("Catalog seeded")
	return nil
}
