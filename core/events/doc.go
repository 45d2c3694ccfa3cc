// Package events defines the typed session event contract.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - capture.*
//   - recording.*
//   - conversation.*
//   - speech.*
//   - voice.*
//
// Semantics used across the package:
//
//   - Interim: mutable point-in-time snapshot that can be revised later.
//   - Final: finalized, append-only piece of transcript.
//   - Started/Ended: lifecycle boundaries of a stream or session.
//
// capture events
//
//   - CaptureStarted (capture.started): a recognition session became live.
//   - CaptureEnded (capture.ended): a recognition session ended, whether on
//     request or because the provider closed the stream.
//   - CaptureFailed (capture.failed): a recognition session failed.
//   - CaptureTranscriptInterim (capture.transcript_interim): mutable interim
//     transcript preview.
//   - CaptureTranscriptFinal (capture.transcript_final): finalized transcript
//     segment.
//
// recording events
//
//   - RecordingArmed (recording.armed): waiting for the start phrase.
//   - RecordingStarted (recording.started): start phrase heard, transcripts
//     now accumulate into the pending answer.
//   - RecordingStopped (recording.stopped): stop phrase heard, answer
//     extracted from the recording window.
//
// conversation events
//
//   - SessionStarted (conversation.session_started): study session started
//     against a document.
//   - SessionEnded (conversation.session_ended): study session ended.
//   - AnswerSubmitted (conversation.answer_submitted): user answer appended
//     to the history.
//   - QuestionReceived (conversation.question_received): question appended to
//     the history.
//   - RequestFailed (conversation.request_failed): question request failed,
//     history left as is.
//
// speech events
//
//   - SpeechStarted (speech.started): synthesis started for an utterance.
//   - SpeechEnded (speech.ended): playback of the utterance completed.
//   - SpeechCancelled (speech.cancelled): utterance cut off before playback
//     completed.
//
// voice events
//
//   - VoiceEnabled (voice.enabled): voice recognition switched on.
//   - VoiceDisabled (voice.disabled): voice recognition switched off, any
//     recording in progress discarded.
package events
