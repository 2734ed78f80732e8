// Package capture reads and writes raw camera captures.
package capture

// Single-file container for raw captures.
// Requirements.
//   1. Frames must be recoverable after a truncated write.
//   2. The frame index must be buildable in one sequential scan.
//   3. Raw sensor data is stored bit-packed at the native depth.
//
//
// <name>.mcap {
//   header
//   []record
// }
//
// header {
//   magic           [4]byte "MCAP"
//   version         uint8
//   width           uint16
//   height          uint16
//   pixelBits       uint8  // 10, 12 or 16.
//   audioChannels   uint8  // 0 if the capture has no audio.
//   audioSampleRate uint32
//   metaSize        uint16
//   meta            []byte // Container metadata, JSON.
// }
//
// record { // Timestamps are nanoseconds on the capture clock.
//   kind      uint8 { frame=0, audio=1 }
//   timestamp int64
//
//   // kind=frame.
//   metaSize uint16
//   meta     []byte // Frame metadata, JSON.
//   dataSize uint32
//   data     []byte // width*height pixels, bit-packed.
//
//   // kind=audio.
//   sampleCount uint32
//   samples     []int16 // Channel-interleaved.
// }
