package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gamecam/profile"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocation(t *testing.T) {
	reg, err := loadRegistry("")
	require.NoError(t, err)

	crysis, _ := reg.Lookup("crysis.exe")
	assert.Equal(t, "Cry3DEngine.dll+0x2008f0 3x4", location(crysis))

	hzd, _ := reg.Lookup("horizonzerodawn.exe")
	assert.Equal(t, "horizonzerodawn.exe+0x300d200 3x4", location(hzd))

	re2, _ := reg.Lookup("re2.exe")
	assert.Equal(t, "float64 x13 stride 2", location(re2))
}

func TestListProfiles(t *testing.T) {
	reg, err := loadRegistry("")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, listProfiles(&out, reg.All(), false))
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 2+reg.Len())

	assert.True(t, strings.HasPrefix(lines[0], "EXE "), lines[0])
	assert.True(t, strings.HasPrefix(lines[2], "control_dx11.exe "), lines[2])
	assert.NotContains(t, out.String(), "\x1b[")

	last := lines[len(lines)-1]
	assert.True(t, strings.HasPrefix(last, "witcher3.exe "), last)
	fields := strings.Fields(last)
	assert.Equal(t, []string{"vertical", "log_fit"}, fields[len(fields)-2:])

	out.Reset()
	require.NoError(t, listProfiles(&out, reg.All(), true))
	assert.Contains(t, out.String(), "\x1b[")
}

func TestDecodeDepth(t *testing.T) {
	reg, err := loadRegistry("")
	require.NoError(t, err)
	crysis, _ := reg.Lookup("crysis.exe")

	var out bytes.Buffer
	require.NoError(t, decodeDepth(&out, crysis, []string{"0", "0xffffff"}))
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "RAW NORMALIZED DISTANCE", strings.Join(strings.Fields(lines[0]), " "))
	assert.Equal(t, []string{"0", "0.000000", "0.2500"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"16777215", "1.000000"}, strings.Fields(lines[3])[:2])

	assert.Error(t, decodeDepth(&out, crysis, nil))
	assert.Error(t, decodeDepth(&out, crysis, []string{"far"}))
	assert.Error(t, decodeDepth(&out, profile.Profile{Executable: "x.exe"}, []string{"1"}))
}

func TestExportLoadsBack(t *testing.T) {
	reg, err := loadRegistry("")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, exportProfiles(&out, reg.All()))
	assert.True(t, strings.HasPrefix(out.String(), "profiles:\n"), out.String())

	path := filepath.Join(t.TempDir(), "profiles.yml")
	require.NoError(t, os.WriteFile(path, out.Bytes(), 0644))

	loaded, err := profile.LoadFile(path)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(reg.All(), loaded))

	// the exported file is accepted as an override set
	reg2, err := loadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, reg.Len(), reg2.Len())
}
