package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gamecam/acquire"
	"gamecam/camera"
	"gamecam/process"
	"gamecam/process_blob"
	"gamecam/profile"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/knadh/koanf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gameExe = `C:\Games\Crysis\Bin64\crysis.exe`

var testMatrix = []float64{
	1, 0, 0, 10,
	0, 1, 0, 20,
	0, 0, 1, 30,
}

func testLogger() *logger.Logger {
	return logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "camwatch-test"))
}

func newGame(t *testing.T) (*process_blob.Space, profile.Profile) {
	t.Helper()
	s := process_blob.NewSpace()
	s.Exe = gameExe
	image := make([]byte, 0x1000)
	for i, v := range testMatrix {
		binary.LittleEndian.PutUint32(image[0x100+4*i:], math.Float32bits(float32(v)))
	}
	require.NoError(t, s.Map(0x140000000, image, "r--p", gameExe))

	p := profile.Profile{
		Executable: "crysis.exe",
		Kind:       profile.FixedOffsetSingleRead,
		Offset:     0x100,
		Shape:      profile.Shape3x4RowMajor,
	}
	return s, p
}

func decodeRecords(t *testing.T, b []byte) []Record {
	t.Helper()
	var out []Record
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		var rec Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		out = append(out, rec)
	}
	return out
}

func TestWatchWritesFrames(t *testing.T) {
	s, p := newGame(t)
	strategy, err := acquire.New(s, p)
	require.NoError(t, err)
	defer strategy.Close()

	var buf bytes.Buffer
	session := uuid.NewString()
	cfg := Config{Frames: 3}
	w := newWatcher(strategy, p.Executable, session, cfg, &buf, testLogger())

	n, err := w.run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	recs := decodeRecords(t, buf.Bytes())
	require.Len(t, recs, 3)
	want, err := camera.TransformFromRowMajor(testMatrix)
	require.NoError(t, err)
	for i, rec := range recs {
		assert.Equal(t, i, rec.Frame)
		assert.Equal(t, session, rec.Session)
		assert.Equal(t, "crysis.exe", rec.Exe)
		assert.Empty(t, rec.Error)
		require.NotNil(t, rec.Camera)
		assert.Equal(t, camera.AllGood, rec.Camera.Status)
		assert.Empty(t, cmp.Diff(want, rec.Camera.Transform))
	}
	_, err = uuid.Parse(recs[0].Session)
	assert.NoError(t, err)
}

func TestWatchRecordsErrors(t *testing.T) {
	s, p := newGame(t)
	p.Module = "cry3dengine.dll"
	strategy, err := acquire.New(s, p)
	require.NoError(t, err)
	defer strategy.Close()

	var buf bytes.Buffer
	w := newWatcher(strategy, p.Executable, "s", Config{Frames: 2}, &buf, testLogger())
	_, err = w.run(context.Background())
	require.NoError(t, err)

	recs := decodeRecords(t, buf.Bytes())
	require.Len(t, recs, 2)
	for _, rec := range recs {
		assert.Nil(t, rec.Camera)
		assert.Contains(t, rec.Error, "module not resolved")
		assert.Equal(t, acquire.Uninitialized.String(), rec.State)
	}
}

func TestWatchStopsWhenTargetExits(t *testing.T) {
	s, p := newGame(t)
	strategy, err := acquire.New(s, p)
	require.NoError(t, err)
	defer strategy.Close()

	var buf bytes.Buffer
	w := newWatcher(strategy, p.Executable, "s", Config{}, &buf, testLogger())
	checks := 0
	w.alive = func() bool {
		checks++
		return checks < 4
	}

	n, err := w.run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Len(t, decodeRecords(t, buf.Bytes()), 4)
}

func TestWatchStopsOnCancel(t *testing.T) {
	s, p := newGame(t)
	strategy, err := acquire.New(s, p)
	require.NoError(t, err)
	defer strategy.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var buf bytes.Buffer
	w := newWatcher(strategy, p.Executable, "s", Config{FPS: 100}, &buf, testLogger())
	n, err := w.run(ctx)
	require.NoError(t, err)
	assert.Greater(t, n, 0)
	assert.Less(t, n, 50)
}

func TestSelectProfile(t *testing.T) {
	reg, err := profile.NewBuiltinRegistry()
	require.NoError(t, err)

	p, err := selectProfile(reg, `D:\SteamLibrary\The Witcher 3\bin\x64\witcher3.exe`, "")
	require.NoError(t, err)
	assert.Equal(t, "witcher3.exe", p.Executable)

	p, err = selectProfile(reg, "/usr/bin/wine64-preloader", "re2.exe")
	require.NoError(t, err)
	assert.Equal(t, "re2.exe", p.Executable)

	_, err = selectProfile(reg, "/usr/bin/wine64-preloader", "")
	assert.Error(t, err)
}

func TestConfigDefaultsAndOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camwatch.yml")
	require.NoError(t, os.WriteFile(path, []byte("target: re3.exe\nfps: 60\nscan:\n  prefer_newest: true\nattach:\n  max_interval: 2s\n"), 0644))

	oldName, oldK := ConfigFileName, k
	defer func() { ConfigFileName, k = oldName, oldK }()
	ConfigFileName = path
	k = koanf.New(".")
	setupconfig()

	c := Config{}
	require.NoError(t, k.Unmarshal("", &c))
	assert.Equal(t, "re3.exe", c.Target)
	assert.Equal(t, 60.0, c.FPS)
	assert.Equal(t, "-", c.Output)
	assert.True(t, c.Scan.PreferNewest)
	assert.True(t, c.Scan.SlowFallback)
	assert.Equal(t, 2*time.Second, c.Attach.MaxInterval)
	assert.Equal(t, 250*time.Millisecond, c.Attach.InitialInterval)

	require.NoError(t, overrideFromFlags(&c, []string{"-pid", "77", "-fps", "0"}))
	assert.Equal(t, 77, c.PID)
	assert.Equal(t, 0.0, c.FPS)
	assert.Equal(t, "re3.exe", c.Target)
}

func TestStrategyOptions(t *testing.T) {
	assert.Len(t, strategyOptions(ScanConfig{}, testLogger()), 1)
	assert.Len(t, strategyOptions(ScanConfig{SlowFallback: true, PreferNewest: true, Async: true, ChunkSize: 4096}, testLogger()), 5)
}

func TestLimiter(t *testing.T) {
	assert.True(t, newLimiter(0).Allow())
	assert.True(t, newLimiter(-1).Allow())
	l := newLimiter(1)
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())
}

var _ process.Process = (*process_blob.Space)(nil)
