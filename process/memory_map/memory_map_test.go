package memory_map

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMaps = `7f0000002000-7f0000003000 rw-p 00000000 00:00 0
00400000-0040b000 r-xp 00000000 08:01 1234    /opt/game/bin/Game.exe
0040b000-0040c000 r--p 0000b000 08:01 1234    /opt/game/bin/Game.exe
7f0000000000-7f0000001000 ---p 00000000 00:00 0
7f1000000000-7f1000010000 r-xp 00000000 08:01 99  /opt/game/bin/Renderer DX12.dll
garbage line
`

func TestParseMaps(t *testing.T) {
	mm, err := ParseMaps(strings.NewReader(sampleMaps))
	require.NoError(t, err)
	require.Len(t, mm, 5)

	// sorted by address
	assert.Equal(t, uint64(0x400000), mm[0].Address)
	assert.Equal(t, uint(0xb000), mm[0].Size)
	assert.Equal(t, "r-xp", mm[0].Perms)
	assert.True(t, mm[0].Committed)
	assert.Equal(t, "/opt/game/bin/Game.exe", mm[0].Path)
	assert.Equal(t, "renderer dx12.dll", mm[4].ModuleName())

	assert.False(t, mm[2].IsScannable(), "---p must not be scannable")
	assert.True(t, mm[3].IsScannable())
}

func TestQueryRegion(t *testing.T) {
	mm := []MemoryMapItem{
		{Address: 0x1000, Size: 0x1000, Perms: "r--p", Committed: true},
		{Address: 0x4000, Size: 0x2000, Perms: "rw-p", Committed: true},
	}

	t.Run("inside mapping", func(t *testing.T) {
		got := QueryRegion(0x4800, mm, 0x10000)
		assert.Equal(t, mm[1], got)
	})

	t.Run("gap before first", func(t *testing.T) {
		got := QueryRegion(0x10, mm, 0x10000)
		assert.False(t, got.Committed)
		assert.Equal(t, uint64(0x10), got.Address)
		assert.Equal(t, uint64(0x1000), got.End())
	})

	t.Run("gap between", func(t *testing.T) {
		got := QueryRegion(0x2000, mm, 0x10000)
		assert.False(t, got.IsScannable())
		assert.Equal(t, uint64(0x4000), got.End())
	})

	t.Run("past last mapping", func(t *testing.T) {
		got := QueryRegion(0x6000, mm, 0x10000)
		assert.Equal(t, uint64(0x10000), got.End())
	})

	t.Run("at ceiling", func(t *testing.T) {
		got := QueryRegion(0x10000, mm, 0x10000)
		assert.Zero(t, got.Size)
	})
}

func TestModuleBase(t *testing.T) {
	mm, err := ParseMaps(strings.NewReader(sampleMaps))
	require.NoError(t, err)

	base, ok := ModuleBase("GAME.EXE", mm)
	require.True(t, ok)
	assert.Equal(t, uint64(0x400000), base)

	base, ok = ModuleBase(`C:\games\Renderer DX12.dll`, mm)
	require.True(t, ok)
	assert.Equal(t, uint64(0x7f1000000000), base)

	_, ok = ModuleBase("missing.dll", mm)
	assert.False(t, ok)
}

func TestFromProtect(t *testing.T) {
	tests := []struct {
		name      string
		state     uint32
		protect   uint32
		perms     string
		scannable bool
	}{
		{"readwrite", memCommit, pageReadWrite, "rw-p", true},
		{"execute read", memCommit, pageExecuteRead, "r-xp", true},
		{"noaccess", memCommit, pageNoAccess, "---p", false},
		{"guard", memCommit, pageReadWrite | pageGuard, "---p", false},
		{"reserved", 0x2000, pageReadWrite, "---p", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := FromProtect(0x1000, 0x1000, tt.state, tt.protect)
			assert.Equal(t, tt.perms, item.Perms)
			assert.Equal(t, tt.scannable, item.IsScannable())
		})
	}
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "witcher3.exe", BaseName(`C:\Games\The Witcher 3\bin\x64\Witcher3.exe`))
	assert.Equal(t, "cyberpunk2077.exe", BaseName("/home/u/.steam/Cyberpunk2077.exe"))
	assert.Equal(t, "re2.exe", BaseName("re2.exe"))
}
