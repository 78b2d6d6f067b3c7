// Package audio provides audio processing utilities.
//
// This package serves as an umbrella for audio-related sub-packages:
//
//   - pcm: L16 PCM formats and multichannel sample buffers
//   - resampler: mono sample-rate conversion
//   - render: scene segment list to multichannel buffer rendering
//   - babble: multitalker babble synthesis
package audio
