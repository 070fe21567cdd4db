// Package protoconf holds the concrete configuration tables served by the
// hub. Each table decodes one file, builds its indices in a post-load hook,
// and exposes typed getters.
package protoconf

import (
	"errors"
	"fmt"

	"github.com/zjrosen/confhub/internal/hub"
)

// ErrNotFound is returned by getters for an absent key.
var ErrNotFound = errors.New("not found")

// Descriptors for type-directed lookup with hub.Get.
var (
	HeroConfDescriptor  = hub.Descriptor[*HeroConf]{Name: "HeroConf", New: NewHeroConf}
	ItemConfDescriptor  = hub.Descriptor[*ItemConf]{Name: "ItemConf", New: NewItemConf}
	TaskConfDescriptor  = hub.Descriptor[*TaskConf]{Name: "TaskConf", New: NewTaskConf}
	ThemeConfDescriptor = hub.Descriptor[*ThemeConf]{Name: "ThemeConf", New: NewThemeConf}
)

// RegisterAll adds every table to reg. Call it once at startup before
// building any hub.
func RegisterAll(reg *hub.Registry) error {
	err := errors.Join(
		hub.Register(reg, HeroConfDescriptor),
		hub.Register(reg, ItemConfDescriptor),
		hub.Register(reg, TaskConfDescriptor),
		hub.Register(reg, ThemeConfDescriptor),
	)
	if err != nil {
		return fmt.Errorf("registering tables: %w", err)
	}
	return nil
}

func notFound(table string, key any) error {
	return fmt.Errorf("%s: key %v: %w", table, key, ErrNotFound)
}

// ErrNullRow is returned by post-load hooks for a row decoded from null.
var ErrNullRow = errors.New("null row")

func nullRow(i int) error {
	return fmt.Errorf("row %d: %w", i, ErrNullRow)
}
