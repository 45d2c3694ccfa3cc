package events

const (
	// KindCaptureStarted identifies a recognition session becoming live.
	KindCaptureStarted Kind = "capture.started"
	// KindCaptureEnded identifies a recognition session ending.
	KindCaptureEnded Kind = "capture.ended"
	// KindCaptureFailed identifies a recognition session failing.
	KindCaptureFailed Kind = "capture.failed"
	// KindCaptureTranscriptInterim identifies mutable interim transcript updates.
	KindCaptureTranscriptInterim Kind = "capture.transcript_interim"
	// KindCaptureTranscriptFinal identifies finalized transcript segments.
	KindCaptureTranscriptFinal Kind = "capture.transcript_final"
)

// CaptureStarted marks a recognition session becoming live.
type CaptureStarted struct {
	Base
	CaptureID string
}

// NewCaptureStarted creates a capture started event.
func NewCaptureStarted(captureID string) CaptureStarted {
	return CaptureStarted{Base: NewBase(KindCaptureStarted), CaptureID: captureID}
}

// CaptureEnded marks a recognition session ending, whether on request or
// because the provider closed the stream.
type CaptureEnded struct {
	Base
	CaptureID string
}

// NewCaptureEnded creates a capture ended event.
func NewCaptureEnded(captureID string) CaptureEnded {
	return CaptureEnded{Base: NewBase(KindCaptureEnded), CaptureID: captureID}
}

// CaptureFailed marks a recognition session failing before or during
// streaming.
type CaptureFailed struct {
	Base
	CaptureID string
	Error     string
}

// NewCaptureFailed creates a capture failed event.
func NewCaptureFailed(captureID, err string) CaptureFailed {
	return CaptureFailed{Base: NewBase(KindCaptureFailed), CaptureID: captureID, Error: err}
}

// CaptureTranscriptInterim carries a mutable interim transcript preview. It
// may be revised or dropped entirely by a later result.
type CaptureTranscriptInterim struct {
	Base
	Transcript string
}

// NewCaptureTranscriptInterim creates an interim transcript event.
func NewCaptureTranscriptInterim(transcript string) CaptureTranscriptInterim {
	return CaptureTranscriptInterim{Base: NewBase(KindCaptureTranscriptInterim), Transcript: transcript}
}

// CaptureTranscriptFinal carries a finalized transcript segment.
type CaptureTranscriptFinal struct {
	Base
	Transcript string
}

// NewCaptureTranscriptFinal creates a finalized transcript segment event.
func NewCaptureTranscriptFinal(transcript string) CaptureTranscriptFinal {
	return CaptureTranscriptFinal{Base: NewBase(KindCaptureTranscriptFinal), Transcript: transcript}
}
