// Package media renders clip artifacts with ffmpeg.
//
// Encoder is the narrow surface used by the pipeline stages: ZoomPan turns a
// still image into a clip, Merge pairs narration with a clip, Concat joins
// clips with fades, and Duration probes a file through the ffprobe
// subpackage. Every failure is reported as an *EncoderError carrying the tail
// of the tool output, which matches services.ErrEncode.
package media
