// Package vfs exposes a recorded raw capture as a flat, read-only
// virtual directory: one image file per output frame plus a single
// WAVE file, all synthesized on demand.
package vfs

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"mcrawfs/pkg/audio"
	"mcrawfs/pkg/camera"
	"mcrawfs/pkg/log"
	"mcrawfs/pkg/writerseeker"

	"golang.org/x/sync/errgroup"
)

// Virtual file names.
const (
	audioFileName  = "audio.wav"
	hiddenFileName = "desktop.ini"

	framePrefix    = "frame-"
	framePadding   = 6
	frameExtension = "dng"
)

// Errors.
var (
	ErrConfig      = errors.New("invalid config")
	ErrAudioFormat = errors.New("invalid audio format")
)

// Config for a FileSystem.
type Config struct {
	// Path of the capture file.
	Path string

	Options    Options
	DraftScale int

	// HiddenEntry emits a desktop.ini entry first. Set on hosts
	// that expect one.
	HiddenEntry bool

	NewDecoder DecoderFactory
	Encoder    FrameEncoder
	Logger     log.ILogger
}

// FileSystem is a virtual directory over a single capture file.
//
// Listings, audio reads and hidden-file reads are synchronous. Image
// reads run through the renderer pipeline and deliver their result
// through a callback. The directory and audio buffer are immutable
// between UpdateOptions calls, the host must serialise UpdateOptions
// with reads.
type FileSystem struct {
	newDecoder DecoderFactory
	encoder    FrameEncoder
	logger     log.ILogger

	srcPath     string
	baseName    string
	hiddenEntry bool

	options    Options
	draftScale int

	files          []Entry
	audioFile      []byte
	typicalDNGSize uint64
	fps            float32

	renderer *renderer
}

// New builds the directory and returns the file system.
// Call Close when done.
func New(c Config) (*FileSystem, error) {
	switch {
	case c.Path == "":
		return nil, fmt.Errorf("%w: missing path", ErrConfig)
	case c.NewDecoder == nil:
		return nil, fmt.Errorf("%w: missing decoder factory", ErrConfig)
	case c.Encoder == nil:
		return nil, fmt.Errorf("%w: missing encoder", ErrConfig)
	case c.Logger == nil:
		return nil, fmt.Errorf("%w: missing logger", ErrConfig)
	case c.DraftScale < 1:
		return nil, fmt.Errorf("%w: draft scale %d", ErrConfig, c.DraftScale)
	}

	fs := &FileSystem{
		newDecoder: c.NewDecoder,
		encoder:    c.Encoder,
		logger:     c.Logger,

		srcPath:     c.Path,
		baseName:    stemOf(c.Path),
		hiddenEntry: c.HiddenEntry,

		draftScale: c.DraftScale,

		renderer: newRenderer(c.Path, c.NewDecoder, c.Encoder, c.Logger),
	}

	if err := fs.init(c.Options); err != nil {
		fs.renderer.close()
		return nil, err
	}
	return fs, nil
}

// stemOf file name without directory and extension.
func stemOf(filePath string) string {
	base := path.Base(strings.ReplaceAll(filePath, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// init synthesizes the directory: probes the typical image size,
// builds the audio file and emits the entries. Partial state is
// discarded on error.
func (fs *FileSystem) init(options Options) error {
	fs.options = options
	fs.files = nil
	fs.audioFile = nil
	fs.typicalDNGSize = 0
	fs.fps = 0

	decoder, err := fs.newDecoder(fs.srcPath)
	if err != nil {
		return fmt.Errorf("open decoder: %w", err)
	}
	defer decoder.Close()

	frames, err := decoder.Frames()
	if err != nil {
		return fmt.Errorf("list frames: %w", err)
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i] < frames[j] })

	if len(frames) == 0 {
		if fs.hiddenEntry {
			fs.files = []Entry{hiddenEntryOf()}
		}
		return nil
	}

	fs.logger.Debug().Src("vfs").Capture(fs.baseName).
		Msgf("init(options=%v)", options)

	fs.fps = CalculateFrameRate(frames)

	// The probe encode and the audio build are independent, the
	// audio side opens its own decoder.
	g := errgroup.Group{}

	var typicalSize uint64
	g.Go(func() error {
		size, err := fs.probeEncode(decoder, frames[0])
		if err != nil {
			return fmt.Errorf("probe encode: %w", err)
		}
		typicalSize = size
		return nil
	})

	var audioFile []byte
	g.Go(func() error {
		buf, err := fs.buildAudio(frames[0])
		if err != nil {
			return fmt.Errorf("build audio: %w", err)
		}
		audioFile = buf
		return nil
	})

	if err := g.Wait(); err != nil {
		fs.files = nil
		fs.audioFile = nil
		return err
	}

	fs.typicalDNGSize = typicalSize
	fs.audioFile = audioFile

	files := make([]Entry, 0, len(frames)*2)

	if fs.hiddenEntry {
		files = append(files, hiddenEntryOf())
	}

	if len(fs.audioFile) != 0 {
		files = append(files, Entry{
			Kind: EntryFile,
			Name: audioFileName,
			Size: uint64(len(fs.audioFile)),
		})
	}

	// Duplicate frames to account for dropped frames.
	lastPts := int64(0)
	for _, timestamp := range frames {
		pts := frameNumberFromTimestamp(timestamp, frames[0], fs.fps)

		for lastPts < pts {
			files = append(files, Entry{
				Kind:     EntryFile,
				Name:     constructFrameName(framePrefix, int(lastPts), framePadding, frameExtension),
				Size:     fs.typicalDNGSize,
				Frame:    timestamp,
				HasFrame: true,
			})
			lastPts++
		}
	}

	fs.files = files
	return nil
}

func hiddenEntryOf() Entry {
	return Entry{
		Kind: EntryFile,
		Name: hiddenFileName,
		Size: uint64(len(desktopIni)),
	}
}

// probeEncode encodes the first frame to learn the byte size used for
// every image entry.
func (fs *FileSystem) probeEncode(decoder Decoder, firstFrame int64) (uint64, error) {
	raw, metaRaw, err := decoder.LoadFrame(firstFrame)
	if err != nil {
		return 0, fmt.Errorf("load frame: %w", err)
	}

	containerMeta, err := camera.ParseMetadata(decoder.ContainerMetadata())
	if err != nil {
		return 0, fmt.Errorf("container metadata: %w", err)
	}
	frameMeta, err := camera.ParseFrameMetadata(metaRaw)
	if err != nil {
		return 0, fmt.Errorf("frame metadata: %w", err)
	}

	encoded, err := fs.encoder.Encode(
		raw,
		frameMeta,
		containerMeta,
		fs.fps,
		0,
		fs.options,
		scaleFromOptions(fs.options, fs.draftScale))
	if err != nil {
		return 0, err
	}
	return uint64(len(encoded)), nil
}

// buildAudio syncs the audio chunks to the first video frame and
// materialises the WAVE file. Returns nil when the capture has no
// audio.
func (fs *FileSystem) buildAudio(videoT0 int64) ([]byte, error) {
	decoder, err := fs.newDecoder(fs.srcPath)
	if err != nil {
		return nil, fmt.Errorf("open decoder: %w", err)
	}
	defer decoder.Close()

	chunks, err := decoder.LoadAudio()
	if err != nil {
		return nil, fmt.Errorf("load audio: %w", err)
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	channels := decoder.NumAudioChannels()
	sampleRate := decoder.AudioSampleRateHz()
	if channels < 1 || sampleRate < 1 {
		return nil, fmt.Errorf("%w: %d channels at %dHz",
			ErrAudioFormat, channels, sampleRate)
	}

	chunks = audio.Sync(videoT0, chunks, sampleRate, channels)

	fpsNum, fpsDen := toFraction(fs.fps)

	out := &writerseeker.WriterSeeker{}
	encoder, err := audio.NewEncoder(out, channels, sampleRate, fpsNum, fpsDen)
	if err != nil {
		return nil, fmt.Errorf("new encoder: %w", err)
	}

	for _, chunk := range chunks {
		frameCount := uint64(len(chunk.Samples) / channels)
		if err := encoder.Write(chunk.Samples, frameCount); err != nil {
			return nil, fmt.Errorf("write chunk: %w", err)
		}
	}

	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("close encoder: %w", err)
	}
	return out.Bytes(), nil
}

// List returns the directory. The filter is advisory and currently
// ignored.
func (fs *FileSystem) List(filter string) []Entry {
	out := make([]Entry, len(fs.files))
	copy(out, fs.files)
	return out
}

// Find matches the final component of filePath against the entry
// names.
func (fs *FileSystem) Find(filePath string) (Entry, bool) {
	name := path.Base(strings.ReplaceAll(filePath, "\\", "/"))
	for _, e := range fs.files {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Read dispatches a read of entry. Audio and hidden entries are
// served synchronously from memory and return the byte count. Image
// entries return 0 immediately and deliver the outcome through
// result. Unknown entries report result(0, -1).
func (fs *FileSystem) Read(
	entry Entry,
	options Options,
	pos uint64,
	dst []byte,
	result ResultFunc,
) int {
	if fs.hiddenEntry && entry.Name == hiddenFileName {
		return copyAt([]byte(desktopIni), pos, dst)
	}

	if strings.HasSuffix(entry.Name, "wav") {
		return copyAt(fs.audioFile, pos, dst)
	}

	if strings.HasSuffix(entry.Name, "dng") {
		fs.renderer.render(entry, options, fs.fps, fs.draftScale, pos, dst, result)
		return 0
	}

	result(0, -1)
	return 0
}

// copyAt copies from buf at pos into dst, clamped to the buffer.
func copyAt(buf []byte, pos uint64, dst []byte) int {
	if pos >= uint64(len(buf)) {
		return 0
	}
	return copy(dst, buf[pos:])
}

// Options current render options.
func (fs *FileSystem) Options() Options {
	return fs.options
}

// AudioSize bytes of the materialised audio file.
func (fs *FileSystem) AudioSize() uint64 {
	return uint64(len(fs.audioFile))
}

// FrameRate computed nominal frame rate.
func (fs *FileSystem) FrameRate() float32 {
	return fs.fps
}

// BaseName capture file name without extension.
func (fs *FileSystem) BaseName() string {
	return fs.baseName
}

// UpdateOptions re-runs initialisation with new render options. The
// probe size, directory and audio file are rebuilt. The host must
// invalidate cached listings and serialise this with reads.
func (fs *FileSystem) UpdateOptions(options Options, draftScale int) error {
	if draftScale < 1 {
		return fmt.Errorf("%w: draft scale %d", ErrConfig, draftScale)
	}
	fs.draftScale = draftScale

	return fs.init(options)
}

// Close waits for in-flight reads and releases the worker pools and
// decoders.
func (fs *FileSystem) Close() {
	fs.renderer.close()
}
