package load

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestParseOptions_Defaults verifies the getters apply built-in defaults.
func TestParseOptions_Defaults(t *testing.T) {
	opts := ParseOptions()
	mo := opts.ParseMessagerOptionsByName("HeroConf")

	require.False(t, mo.GetIgnoreUnknownFields())
	require.NotNil(t, mo.GetReadFunc())
	require.NotNil(t, mo.GetLoadFunc())
	require.Empty(t, mo.Path)
}

// TestParseMessagerOptionsByName_Override verifies table values beat global values field by field.
func TestParseMessagerOptionsByName_Override(t *testing.T) {
	globalReads, tableReads := 0, 0
	opts := ParseOptions(
		IgnoreUnknownFields(true),
		WithReadFunc(func(string) ([]byte, error) { globalReads++; return nil, nil }),
		WithMessagerOptions("ItemConf", &MessagerOptions{
			BaseOptions: BaseOptions{
				IgnoreUnknownFields: Bool(false),
				ReadFunc:            func(string) ([]byte, error) { tableReads++; return nil, nil },
			},
		}),
	)

	item := opts.ParseMessagerOptionsByName("ItemConf")
	require.False(t, item.GetIgnoreUnknownFields())
	_, _ = item.GetReadFunc()("x")
	require.Equal(t, 1, tableReads)

	hero := opts.ParseMessagerOptionsByName("HeroConf")
	require.True(t, hero.GetIgnoreUnknownFields())
	_, _ = hero.GetReadFunc()("x")
	require.Equal(t, 1, globalReads)
}

// TestWithPath_KeepsOtherOverrides verifies WithPath only touches Path.
func TestWithPath_KeepsOtherOverrides(t *testing.T) {
	opts := ParseOptions(
		WithMessagerOptions("HeroConf", &MessagerOptions{BaseOptions: BaseOptions{IgnoreUnknownFields: Bool(true)}}),
		WithPath("HeroConf", "/data/hero.json"),
	)

	mo := opts.ParseMessagerOptionsByName("HeroConf")
	require.True(t, mo.GetIgnoreUnknownFields())
	require.Equal(t, "/data/hero.json", mo.Path)
}

// TestParseMessagerOptionsByName_DoesNotMutate verifies the merge result is independent of its inputs.
func TestParseMessagerOptionsByName_DoesNotMutate(t *testing.T) {
	override := &MessagerOptions{Path: "/a.json"}
	opts := ParseOptions(WithMessagerOptions("HeroConf", override))

	mo := opts.ParseMessagerOptionsByName("HeroConf")
	mo.Path = "/b.json"
	mo.IgnoreUnknownFields = Bool(true)

	require.Equal(t, "/a.json", override.Path)
	require.Equal(t, "/a.json", opts.ParseMessagerOptionsByName("HeroConf").Path)
	require.False(t, opts.GetIgnoreUnknownFields())
}

// TestParseMessagerOptionsByName_FallbackProperty checks the three-layer fallback for the bool knob.
func TestParseMessagerOptionsByName_FallbackProperty(t *testing.T) {
	// tri-state: 0 unset, 1 false, 2 true
	toPtr := func(v int) *bool {
		switch v {
		case 1:
			return Bool(false)
		case 2:
			return Bool(true)
		default:
			return nil
		}
	}

	rapid.Check(t, func(t *rapid.T) {
		global := rapid.IntRange(0, 2).Draw(t, "global")
		table := rapid.IntRange(0, 2).Draw(t, "table")
		hasOverride := rapid.Bool().Draw(t, "hasOverride")

		opts := &Options{BaseOptions: BaseOptions{IgnoreUnknownFields: toPtr(global)}}
		if hasOverride {
			opts.MessagerOptions = map[string]*MessagerOptions{
				"T": {BaseOptions: BaseOptions{IgnoreUnknownFields: toPtr(table)}},
			}
		}

		want := false
		switch {
		case hasOverride && table != 0:
			want = table == 2
		case global != 0:
			want = global == 2
		}

		got := opts.ParseMessagerOptionsByName("T").GetIgnoreUnknownFields()
		if got != want {
			t.Fatalf("global=%d table=%d override=%v: got %v, want %v", global, table, hasOverride, got, want)
		}
	})
}

// TestParseMessagerOptionsByName_PatchFallback verifies patch dirs and mode fall back to the global layer.
func TestParseMessagerOptionsByName_PatchFallback(t *testing.T) {
	mode := ModeOnlyMain
	opts := ParseOptions(
		PatchDirs("/patch/a", "/patch/b"),
		WithMode(ModeOnlyPatch),
		WithMessagerOptions("ItemConf", &MessagerOptions{
			BaseOptions: BaseOptions{PatchDirs: []string{"/patch/item"}, Mode: &mode},
			PatchPaths:  []string{"/hotfix/ItemConf.json"},
			Patch:       PatchReplace,
		}),
	)

	hero := opts.ParseMessagerOptionsByName("HeroConf")
	require.Equal(t, []string{"/patch/a", "/patch/b"}, hero.GetPatchDirs())
	require.Equal(t, ModeOnlyPatch, hero.GetMode())
	require.Equal(t, PatchMerge, hero.Patch)
	require.Empty(t, hero.PatchPaths)

	item := opts.ParseMessagerOptionsByName("ItemConf")
	require.Equal(t, []string{"/patch/item"}, item.GetPatchDirs())
	require.Equal(t, ModeOnlyMain, item.GetMode())
	require.Equal(t, PatchReplace, item.Patch)
	require.Equal(t, []string{"/hotfix/ItemConf.json"}, item.PatchPaths)
}

// TestWithMessagerOptions_NilRemovesOverride verifies a nil override clears the table's entry.
func TestWithMessagerOptions_NilRemovesOverride(t *testing.T) {
	opts := ParseOptions(
		WithPath("HeroConf", "/data/hero.json"),
		WithMessagerOptions("HeroConf", nil),
		WithMessagerOptions("ItemConf", nil),
	)

	require.NotContains(t, opts.MessagerOptions, "HeroConf")
	require.NotContains(t, opts.MessagerOptions, "ItemConf")
	require.Empty(t, opts.ParseMessagerOptionsByName("HeroConf").Path)
}

// TestParseModeAndPatch verifies config strings map to modes and patch types.
func TestParseModeAndPatch(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeAll, "all": ModeAll, "only_main": ModeOnlyMain, "ONLY_PATCH": ModeOnlyPatch} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := ParseMode("sometimes")
	require.Error(t, err)

	for in, want := range map[string]Patch{"": PatchMerge, "merge": PatchMerge, "Replace": PatchReplace} {
		got, err := ParsePatch(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err = ParsePatch("append")
	require.Error(t, err)
}
