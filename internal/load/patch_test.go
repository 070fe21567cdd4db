package load

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/zjrosen/confhub/internal/format"
)

type settings struct {
	Title string         `json:"title"`
	Limit int            `json:"limit"`
	Tags  []string       `json:"tags"`
	Extra map[string]int `json:"extra"`
}

const baseSettings = `{"title":"base","limit":5,"tags":["a"],"extra":{"x":1}}`

// TestLoadMessage_PatchMerge verifies a patch overrides set fields, appends lists and merges maps.
func TestLoadMessage_PatchMerge(t *testing.T) {
	dir, patchDir := t.TempDir(), t.TempDir()
	writeFile(t, dir, "Settings.json", baseSettings)
	writeFile(t, patchDir, "Settings.json", `{"limit":9,"tags":["b"],"extra":{"y":2}}`)

	var got settings
	err := LoadMessage(&got, "Settings", dir, format.JSON, &MessagerOptions{
		BaseOptions: BaseOptions{PatchDirs: []string{patchDir}},
	})
	require.NoError(t, err)
	require.Equal(t, settings{
		Title: "base",
		Limit: 9,
		Tags:  []string{"a", "b"},
		Extra: map[string]int{"x": 1, "y": 2},
	}, got)
}

// TestLoadMessage_PatchMergeInOrder verifies later patch dirs win.
func TestLoadMessage_PatchMergeInOrder(t *testing.T) {
	dir, first, second := t.TempDir(), t.TempDir(), t.TempDir()
	writeFile(t, dir, "Settings.json", baseSettings)
	writeFile(t, first, "Settings.json", `{"limit":7,"title":"first"}`)
	writeFile(t, second, "Settings.json", `{"limit":8}`)
	missing := filepath.Join(t.TempDir(), "nowhere")

	var got settings
	err := LoadMessage(&got, "Settings", dir, format.JSON, &MessagerOptions{
		BaseOptions: BaseOptions{PatchDirs: []string{first, missing, second}},
	})
	require.NoError(t, err)
	require.Equal(t, "first", got.Title)
	require.Equal(t, 8, got.Limit)
}

// TestLoadMessage_PatchMergeProto verifies protobuf payloads merge through proto.Merge.
func TestLoadMessage_PatchMergeProto(t *testing.T) {
	dir, patchDir := t.TempDir(), t.TempDir()
	writeFile(t, dir, "ThemeConf.json", `{"color":"red","size":1}`)
	writeFile(t, patchDir, "ThemeConf.json", `{"color":"blue"}`)

	got := &structpb.Struct{}
	err := LoadMessage(got, "ThemeConf", dir, format.JSON, &MessagerOptions{
		BaseOptions: BaseOptions{PatchDirs: []string{patchDir}},
	})
	require.NoError(t, err)
	require.Equal(t, "blue", got.GetFields()["color"].GetStringValue())
	require.Equal(t, float64(1), got.GetFields()["size"].GetNumberValue())
}

// TestLoadMessage_PatchReplace verifies replace loads only the last existing patch file.
func TestLoadMessage_PatchReplace(t *testing.T) {
	dir, first, second := t.TempDir(), t.TempDir(), t.TempDir()
	writeFile(t, dir, "Settings.json", baseSettings)
	writeFile(t, first, "Settings.json", `{"title":"first"}`)
	writeFile(t, second, "Settings.json", `{"limit":3}`)

	var got settings
	err := LoadMessage(&got, "Settings", dir, format.JSON, &MessagerOptions{
		BaseOptions: BaseOptions{PatchDirs: []string{first, second}},
		Patch:       PatchReplace,
	})
	require.NoError(t, err)
	require.Equal(t, settings{Limit: 3}, got)
}

// TestLoadMessage_PatchPathsBeatDirs verifies explicit patch paths replace the directory search.
func TestLoadMessage_PatchPathsBeatDirs(t *testing.T) {
	dir, patchDir, hotfix := t.TempDir(), t.TempDir(), t.TempDir()
	writeFile(t, dir, "Settings.json", baseSettings)
	writeFile(t, patchDir, "Settings.json", `{"title":"dir"}`)
	explicit := writeFile(t, hotfix, "settings-hotfix.json", `{"title":"hotfix"}`)

	var got settings
	err := LoadMessage(&got, "Settings", dir, format.JSON, &MessagerOptions{
		BaseOptions: BaseOptions{PatchDirs: []string{patchDir}},
		PatchPaths:  []string{explicit, filepath.Join(hotfix, "missing.json")},
	})
	require.NoError(t, err)
	require.Equal(t, "hotfix", got.Title)
}

// TestLoadMessage_Modes verifies only_main ignores patches and only_patch ignores the main file.
func TestLoadMessage_Modes(t *testing.T) {
	dir, patchDir := t.TempDir(), t.TempDir()
	writeFile(t, dir, "Settings.json", baseSettings)
	writeFile(t, patchDir, "Settings.json", `{"limit":9}`)

	onlyMain, onlyPatch := ModeOnlyMain, ModeOnlyPatch

	var main settings
	err := LoadMessage(&main, "Settings", dir, format.JSON, &MessagerOptions{
		BaseOptions: BaseOptions{PatchDirs: []string{patchDir}, Mode: &onlyMain},
	})
	require.NoError(t, err)
	require.Equal(t, 5, main.Limit)

	var patched settings
	err = LoadMessage(&patched, "Settings", dir, format.JSON, &MessagerOptions{
		BaseOptions: BaseOptions{PatchDirs: []string{patchDir}, Mode: &onlyPatch},
	})
	require.NoError(t, err)
	require.Equal(t, settings{Limit: 9}, patched)

	// No patch file and no main file: only_patch yields an empty payload.
	var empty settings
	err = LoadMessage(&empty, "Settings", t.TempDir(), format.JSON, &MessagerOptions{
		BaseOptions: BaseOptions{PatchDirs: []string{t.TempDir()}, Mode: &onlyPatch},
	})
	require.NoError(t, err)
	require.Equal(t, settings{}, empty)
}

// TestLoadMessage_PatchErrors verifies patch failures carry the patch file path.
func TestLoadMessage_PatchErrors(t *testing.T) {
	dir, patchDir := t.TempDir(), t.TempDir()
	writeFile(t, dir, "Settings.json", baseSettings)
	bad := writeFile(t, patchDir, "Settings.json", `{"limit":`)

	var got settings
	err := LoadMessage(&got, "Settings", dir, format.JSON, &MessagerOptions{
		BaseOptions: BaseOptions{PatchDirs: []string{patchDir}},
	})
	require.ErrorIs(t, err, ErrParse)
	var le *Error
	require.ErrorAs(t, err, &le)
	require.Equal(t, "Settings", le.Name)
	require.Equal(t, bad, le.Path)

	yaml := writeFile(t, patchDir, "Settings.yaml", "limit: 1")
	err = LoadMessage(&got, "Settings", dir, format.JSON, &MessagerOptions{PatchPaths: []string{yaml}})
	require.ErrorIs(t, err, ErrUnknownFormat)

	// A missing main file still fails a merge.
	err = LoadMessage(&got, "Settings", t.TempDir(), format.JSON, &MessagerOptions{
		BaseOptions: BaseOptions{PatchDirs: []string{patchDir}},
	})
	require.ErrorIs(t, err, ErrNotFound)
}
