package vfs_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mcrawfs/pkg/capture"
	"mcrawfs/pkg/dng"
	"mcrawfs/pkg/log"
	"mcrawfs/pkg/vfs"

	"github.com/stretchr/testify/require"
)

const frameDuration = int64(33_333_333)

// writeClip writes a small capture with three 30fps frames and a
// short audio track starting 100ms late.
func writeClip(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clip.mcap")
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	w, err := capture.NewWriter(file, capture.Header{
		Width:           4,
		Height:          4,
		PixelBits:       12,
		AudioChannels:   2,
		AudioSampleRate: 48000,
		Meta:            []byte(`{"make":"ACME","model":"One","whiteLevel":4095}`),
	})
	require.NoError(t, err)

	pixels := make([]uint16, 16)
	for i := range pixels {
		pixels[i] = uint16(i * 100)
	}

	for i := 0; i < 3; i++ {
		ts := int64(i) * frameDuration
		meta := []byte(`{"width":4,"height":4,"iso":100}`)
		require.NoError(t, w.WriteFrame(ts, meta, pixels))
	}

	samples := make([]int16, 9600)
	require.NoError(t, w.WriteAudio(100_000_000, samples))

	return path
}

func mountClip(t *testing.T, path string) *vfs.FileSystem {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	logger := log.NewLogger(wg)
	logger.Start(ctx)

	fs, err := vfs.New(vfs.Config{
		Path:       path,
		DraftScale: 2,
		NewDecoder: func(p string) (vfs.Decoder, error) {
			return capture.NewDecoder(p)
		},
		Encoder: dng.NewEncoder(),
		Logger:  logger,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		fs.Close()
		cancel()
		wg.Wait()
	})
	return fs
}

func readEntry(t *testing.T, fs *vfs.FileSystem, entry vfs.Entry, options vfs.Options, pos uint64, dst []byte) (int, int) {
	t.Helper()

	type outcome struct{ n, status int }
	done := make(chan outcome, 1)

	n := fs.Read(entry, options, pos, dst, func(n, status int) {
		done <- outcome{n, status}
	})
	require.Zero(t, n)

	select {
	case out := <-done:
		return out.n, out.status
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for read callback")
		return 0, 0
	}
}

func TestEndToEnd(t *testing.T) {
	fs := mountClip(t, writeClip(t))

	require.InDelta(t, 30.0, fs.FrameRate(), 0.01)
	require.Equal(t, "clip", fs.BaseName())

	files := fs.List("")
	require.Len(t, files, 3) // audio.wav + two image entries.
	require.Equal(t, "audio.wav", files[0].Name)
	require.Equal(t, "frame-000000.dng", files[1].Name)
	require.Equal(t, "frame-000001.dng", files[2].Name)

	t.Run("audio", func(t *testing.T) {
		entry := files[0]

		full := make([]byte, entry.Size)
		n := fs.Read(entry, 0, 0, full, nil)
		require.Equal(t, int(entry.Size), n)

		// RIFF WAVE with a BW64 placeholder.
		require.Equal(t, "RIFF", string(full[0:4]))
		require.Equal(t, "WAVE", string(full[8:12]))
		require.Equal(t, "JUNK", string(full[12:16]))
	})

	t.Run("frame", func(t *testing.T) {
		entry := files[1]

		full := make([]byte, entry.Size)
		n, status := readEntry(t, fs, entry, 0, 0, full)
		require.Zero(t, status)
		require.Equal(t, int(entry.Size), n)

		// Little-endian TIFF.
		require.Equal(t, []byte{'I', 'I', 42, 0}, full[0:4])

		// Ranged reads reassemble to the same bytes.
		var joined []byte
		for pos := uint64(0); pos < entry.Size; pos += 333 {
			dst := make([]byte, 333)
			n, status := readEntry(t, fs, entry, 0, pos, dst)
			require.Zero(t, status)
			joined = append(joined, dst[:n]...)
		}
		require.Equal(t, full, joined)
	})

	t.Run("sameBytesOnRepeat", func(t *testing.T) {
		entry := files[2]

		a := make([]byte, entry.Size)
		_, status := readEntry(t, fs, entry, 0, 0, a)
		require.Zero(t, status)

		b := make([]byte, entry.Size)
		_, status = readEntry(t, fs, entry, 0, 0, b)
		require.Zero(t, status)

		require.Equal(t, a, b)
	})
}

func TestEndToEndDraft(t *testing.T) {
	fs := mountClip(t, writeClip(t))

	fullSize := uint64(0)
	if entry, exist := fs.Find("frame-000000.dng"); exist {
		fullSize = entry.Size
	}
	require.NotZero(t, fullSize)

	require.NoError(t, fs.UpdateOptions(vfs.OptionDraft, 2))

	entry, exist := fs.Find("frame-000000.dng")
	require.True(t, exist)
	require.Less(t, entry.Size, fullSize)

	dst := make([]byte, entry.Size)
	n, status := readEntry(t, fs, entry, vfs.OptionDraft, 0, dst)
	require.Zero(t, status)
	require.Equal(t, int(entry.Size), n)
}

func TestEndToEndStability(t *testing.T) {
	path := writeClip(t)

	fs1 := mountClip(t, path)
	fs2 := mountClip(t, path)

	require.Equal(t, fs1.List(""), fs2.List(""))

	audio1, _ := fs1.Find("audio.wav")
	audio2, _ := fs2.Find("audio.wav")

	buf1 := make([]byte, audio1.Size)
	buf2 := make([]byte, audio2.Size)
	fs1.Read(audio1, 0, 0, buf1, nil)
	fs2.Read(audio2, 0, 0, buf2, nil)
	require.Equal(t, buf1, buf2)
}
