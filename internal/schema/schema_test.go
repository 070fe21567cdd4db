package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/confhub/internal/hub"
	"github.com/zjrosen/confhub/internal/protoconf"
)

func TestFor_StructPayload(t *testing.T) {
	s, err := For(protoconf.NewHeroConf())
	require.NoError(t, err)
	require.Equal(t, "HeroConf", s.Title)
	require.Equal(t, "object", s.Type)

	heroes, ok := s.Properties.Get("heroes")
	require.True(t, ok)
	require.Equal(t, "array", heroes.Type)
	require.NotNil(t, heroes.Items)

	_, ok = heroes.Items.Properties.Get("name")
	require.True(t, ok)
	require.ElementsMatch(t, []string{"id", "name"}, heroes.Items.Required, "omitempty fields are optional")

	class, ok := heroes.Items.Properties.Get("class")
	require.True(t, ok)
	require.Equal(t, []any{"warrior", "mage", "rogue"}, class.Enum)
}

func TestFor_ProtoPayload(t *testing.T) {
	s, err := For(protoconf.NewThemeConf())
	require.NoError(t, err)
	require.Equal(t, "ThemeConf", s.Title)
	require.Equal(t, "object", s.Type)
	require.Contains(t, s.Description, "google.protobuf.Struct")
}

func TestAll(t *testing.T) {
	reg := hub.NewRegistry()
	require.NoError(t, protoconf.RegisterAll(reg))

	all, err := All(reg)
	require.NoError(t, err)
	require.Len(t, all, reg.Len())

	data, err := json.Marshal(all["ItemConf"])
	require.NoError(t, err)
	require.Contains(t, string(data), `"items"`)
}

func TestAll_SelectedAndUnknown(t *testing.T) {
	reg := hub.NewRegistry()
	require.NoError(t, protoconf.RegisterAll(reg))

	some, err := All(reg, "TaskConf")
	require.NoError(t, err)
	require.Len(t, some, 1)

	_, err = All(reg, "NopeConf")
	require.Error(t, err)
}
