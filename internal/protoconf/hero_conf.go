package protoconf

import (
	"fmt"

	"github.com/zjrosen/confhub/internal/format"
	"github.com/zjrosen/confhub/internal/hub"
	"github.com/zjrosen/confhub/internal/load"
	"github.com/zjrosen/confhub/internal/ordered"
)

// Hero is one row of HeroConf.
type Hero struct {
	ID    int32  `json:"id" jsonschema:"minimum=1"`
	Name  string `json:"name" jsonschema:"minLength=1"`
	Class string `json:"class,omitempty" jsonschema:"enum=warrior,enum=mage,enum=rogue"`
	Level int32  `json:"level,omitempty"`
}

// HeroConfData is the HeroConf file layout.
type HeroConfData struct {
	Heroes []*Hero `json:"heroes"`
}

// HeroConf indexes heroes by ID in file order.
type HeroConf struct {
	hub.Base
	data *HeroConfData
	byID *ordered.Index[int32, *Hero]
}

// NewHeroConf returns an empty HeroConf.
func NewHeroConf() *HeroConf {
	return &HeroConf{data: &HeroConfData{}, byID: ordered.NewIndex[int32, *Hero](0)}
}

// Name implements hub.Messager.
func (x *HeroConf) Name() string { return HeroConfDescriptor.Name }

// Load implements hub.Messager.
func (x *HeroConf) Load(dir string, fmt format.Format, opts *load.MessagerOptions) error {
	return hub.Decode(&x.Base, &x.data, x.Name(), dir, fmt, opts)
}

// Message implements hub.Messager.
func (x *HeroConf) Message() any { return x.data }

// ProcessAfterLoad builds the ID index and rejects null rows and
// duplicate IDs.
func (x *HeroConf) ProcessAfterLoad() error {
	x.byID = ordered.NewIndex[int32, *Hero](len(x.data.Heroes))
	for i, h := range x.data.Heroes {
		if h == nil {
			return nullRow(i)
		}
		if x.byID.Put(h.ID, h) {
			return fmt.Errorf("duplicate hero id %d", h.ID)
		}
	}
	return nil
}

// Data returns the decoded file.
func (x *HeroConf) Data() *HeroConfData { return x.data }

// Get returns the hero with id.
func (x *HeroConf) Get(id int32) (*Hero, error) {
	h, ok := x.byID.Get(id)
	if !ok {
		return nil, notFound(x.Name(), id)
	}
	return h, nil
}

// Heroes returns every hero in file order.
func (x *HeroConf) Heroes() []*Hero { return x.byID.Values() }
