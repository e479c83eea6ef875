// Package speech wraps the text-to-speech provider.
//
// ElevenLabs implements Synthesizer over the REST API: narration is requested
// per line with a voice resolved by name, subscription counters feed the
// credential pool after each call, and a quota_exceeded rejection is reported
// as services.ErrCredentialExhausted so the pipeline can tell it apart from an
// ordinary synthesis failure.
package speech
