package protoconf

import (
	"fmt"

	"github.com/zjrosen/confhub/internal/format"
	"github.com/zjrosen/confhub/internal/hub"
	"github.com/zjrosen/confhub/internal/load"
	"github.com/zjrosen/confhub/internal/ordered"
)

// Item is one row of ItemConf.
type Item struct {
	ID    int32  `json:"id" jsonschema:"minimum=1"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Price int64  `json:"price,omitempty" jsonschema:"minimum=0"`
}

// ItemConfData is the ItemConf file layout.
type ItemConfData struct {
	Items []*Item `json:"items"`
}

// ItemConf indexes items by ID and groups them by type.
type ItemConf struct {
	hub.Base
	data   *ItemConfData
	byID   *ordered.Index[int32, *Item]
	byType *ordered.Group[string, *Item]
}

// NewItemConf returns an empty ItemConf.
func NewItemConf() *ItemConf {
	return &ItemConf{
		data:   &ItemConfData{},
		byID:   ordered.NewIndex[int32, *Item](0),
		byType: ordered.NewGroup[string, *Item](),
	}
}

// Name implements hub.Messager.
func (x *ItemConf) Name() string { return ItemConfDescriptor.Name }

// Load implements hub.Messager.
func (x *ItemConf) Load(dir string, fmt format.Format, opts *load.MessagerOptions) error {
	return hub.Decode(&x.Base, &x.data, x.Name(), dir, fmt, opts)
}

// Message implements hub.Messager.
func (x *ItemConf) Message() any { return x.data }

// ProcessAfterLoad builds the indices and rejects null rows and
// duplicate IDs.
func (x *ItemConf) ProcessAfterLoad() error {
	x.byID = ordered.NewIndex[int32, *Item](len(x.data.Items))
	x.byType = ordered.NewGroup[string, *Item]()
	for i, it := range x.data.Items {
		if it == nil {
			return nullRow(i)
		}
		if x.byID.Put(it.ID, it) {
			return fmt.Errorf("duplicate item id %d", it.ID)
		}
		x.byType.Add(it.Type, it)
	}
	return nil
}

// Data returns the decoded file.
func (x *ItemConf) Data() *ItemConfData { return x.data }

// Get returns the item with id.
func (x *ItemConf) Get(id int32) (*Item, error) {
	it, ok := x.byID.Get(id)
	if !ok {
		return nil, notFound(x.Name(), id)
	}
	return it, nil
}

// ByType returns the items of one type in file order.
func (x *ItemConf) ByType(typ string) []*Item { return x.byType.Get(typ) }

// Types returns the item types in first-seen order.
func (x *ItemConf) Types() []string { return x.byType.Keys() }
