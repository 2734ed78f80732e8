package vfs

import (
	"fmt"
	"runtime"

	"mcrawfs/pkg/camera"
	"mcrawfs/pkg/log"

	"github.com/shirou/gopsutil/v3/cpu"
)

// Decoder operations are file-bound, a small fixed pool is enough.
const ioThreads = 4

// ResultFunc delivers the outcome of an asynchronous read. Status is
// 0 on success, non-zero on failure. May run on any processing
// worker.
type ResultFunc func(bytesRead int, status int)

// renderer generates image bytes for directory entries through a
// two-stage pipeline: the I/O pool decodes the frame, the processing
// pool encodes the image and copies out the requested range.
type renderer struct {
	srcPath    string
	newDecoder DecoderFactory
	encoder    FrameEncoder
	logger     log.ILogger

	ioPool   *workerPool
	procPool *workerPool

	// One lazily opened decoder per I/O worker, only ever touched
	// by the worker owning the slot.
	decoders []Decoder
}

func newRenderer(
	srcPath string,
	newDecoder DecoderFactory,
	encoder FrameEncoder,
	logger log.ILogger,
) *renderer {
	return &renderer{
		srcPath:    srcPath,
		newDecoder: newDecoder,
		encoder:    encoder,
		logger:     logger,

		ioPool:   newWorkerPool(ioThreads),
		procPool: newWorkerPool(processingThreads()),
		decoders: make([]Decoder, ioThreads),
	}
}

// processingThreads image encoding concurrency, one per logical CPU.
func processingThreads() int {
	count, err := cpu.Counts(true)
	if err != nil || count < 1 {
		return runtime.NumCPU()
	}
	return count
}

type decodedFrame struct {
	frameIndex    int
	containerMeta camera.Metadata
	frameMeta     camera.FrameMetadata
	raw           []byte

	err error
}

// render delivers up to len(dst) bytes from offset pos of the
// entry's image through result. Never blocks the caller. All faults
// surface as result(0, -1).
func (r *renderer) render(
	entry Entry,
	options Options,
	fps float32,
	draftScale int,
	pos uint64,
	dst []byte,
	result ResultFunc,
) {
	frameData := make(chan decodedFrame, 1)

	r.ioPool.submit(func(worker int) {
		frameData <- r.decodeFrame(worker, entry, options)
	})

	r.procPool.submit(func(int) {
		decoded := <-frameData
		if decoded.err != nil {
			r.logger.Error().Src("render").
				Msgf("failed to read frame (error: %v)", decoded.err)
			result(0, -1)
			return
		}

		encoded, err := r.encoder.Encode(
			decoded.raw,
			decoded.frameMeta,
			decoded.containerMeta,
			fps,
			decoded.frameIndex,
			options,
			scaleFromOptions(options, draftScale))
		if err != nil {
			r.logger.Error().Src("render").
				Msgf("failed to encode frame %v (error: %v)", entry.Frame, err)
			result(0, -1)
			return
		}

		if pos >= uint64(len(encoded)) {
			result(0, 0)
			return
		}
		n := copy(dst, encoded[pos:])
		result(n, 0)
	})
}

// decodeFrame stage 1, runs on an I/O worker.
func (r *renderer) decodeFrame(worker int, entry Entry, options Options) decodedFrame {
	r.logger.Debug().Src("render").
		Msgf("reading frame %v with options %v", entry.Frame, options)

	decoder := r.decoders[worker]
	if decoder == nil {
		d, err := r.newDecoder(r.srcPath)
		if err != nil {
			return decodedFrame{err: fmt.Errorf("open decoder: %w", err)}
		}
		r.decoders[worker] = d
		decoder = d
	}

	frames, err := decoder.Frames()
	if err != nil {
		return decodedFrame{err: fmt.Errorf("list frames: %w", err)}
	}

	frameIndex := -1
	for i, timestamp := range frames {
		if timestamp == entry.Frame {
			frameIndex = i
			break
		}
	}
	if frameIndex == -1 {
		return decodedFrame{err: fmt.Errorf("frame %v not found", entry.Frame)}
	}

	raw, metaRaw, err := decoder.LoadFrame(entry.Frame)
	if err != nil {
		return decodedFrame{err: fmt.Errorf("load frame: %w", err)}
	}

	containerMeta, err := camera.ParseMetadata(decoder.ContainerMetadata())
	if err != nil {
		return decodedFrame{err: fmt.Errorf("container metadata: %w", err)}
	}
	frameMeta, err := camera.ParseFrameMetadata(metaRaw)
	if err != nil {
		return decodedFrame{err: fmt.Errorf("frame metadata: %w", err)}
	}

	return decodedFrame{
		frameIndex:    frameIndex,
		containerMeta: containerMeta,
		frameMeta:     frameMeta,
		raw:           raw,
	}
}

// close waits for all submitted work to finish, then releases the
// per-worker decoders.
func (r *renderer) close() {
	r.ioPool.close()
	r.procPool.close()

	for _, decoder := range r.decoders {
		if decoder != nil {
			decoder.Close()
		}
	}
}
