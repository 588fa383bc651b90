// Package voice exposes the speech-synthesis capability consumed by the
// reply pipeline: reply text in, audio bytes out.
package voice

import "context"

// Synthesizer converts text into audio. The second return value labels
// the audio format ("mp3", "wav", ...).
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, string, error)
}
