package recall

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/Ishfaq-code/Recallify/core/events"
	"github.com/Ishfaq-code/Recallify/core/speechtotext"
)

// eventRecorder accumulates emitted events for inspection.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event{}, r.events...)
}

func (r *eventRecorder) last() events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

func newTestSupervisor(stt SpeechToText, hooks supervisorHooks) (*captureSupervisor, *manualScheduler, *eventRecorder) {
	scheduler := &manualScheduler{}
	recorder := &eventRecorder{}

	supervisor := newCaptureSupervisor(newSpeechCapture(stt), hooks)
	supervisor.schedule = scheduler.schedule
	supervisor.configure(context.Background(), recorder.record)

	return supervisor, scheduler, recorder
}

func TestListenArmsAndStartsCapture(t *testing.T) {
	stt := &speechToTextClientStub{}
	supervisor, _, received := newTestSupervisor(stt, supervisorHooks{})

	supervisor.Listen()

	if supervisor.RecordingState() != RecordingArmed {
		t.Fatalf("expected armed state, got %v", supervisor.RecordingState())
	}
	if stt.streamCount() != 1 {
		t.Fatalf("expected one transcription stream, got %d", stt.streamCount())
	}

	emitted := received.all()
	if len(emitted) != 2 {
		t.Fatalf("expected armed and capture started events, got %d", len(emitted))
	}
	if _, ok := emitted[0].(events.RecordingArmed); !ok {
		t.Fatalf("expected recording armed event, got %T", emitted[0])
	}
	if _, ok := emitted[1].(events.CaptureStarted); !ok {
		t.Fatalf("expected capture started event, got %T", emitted[1])
	}

	supervisor.Listen()

	if stt.streamCount() != 1 {
		t.Fatalf("expected repeated listen to reuse the stream, got %d streams", stt.streamCount())
	}
	if len(received.all()) != 2 {
		t.Fatalf("expected repeated listen to emit nothing, got %d events", len(received.all()))
	}
}

func TestListenRespectsCanListen(t *testing.T) {
	stt := &speechToTextClientStub{}
	supervisor, _, received := newTestSupervisor(stt, supervisorHooks{
		canListen: func() bool { return false },
	})

	supervisor.Listen()

	if supervisor.RecordingState() != RecordingIdle {
		t.Fatalf("expected idle state, got %v", supervisor.RecordingState())
	}
	if stt.streamCount() != 0 {
		t.Fatalf("expected no transcription stream, got %d", stt.streamCount())
	}
	if len(received.all()) != 0 {
		t.Fatalf("expected no events, got %d", len(received.all()))
	}
}

func TestWakePhrasesCommitAnswer(t *testing.T) {
	stopped := 0
	stt := &speechToTextClientStub{stopStream: func() error { stopped++; return nil }}
	answers := []string{}
	supervisor, scheduler, received := newTestSupervisor(stt, supervisorHooks{
		onAnswer: func(answer string) { answers = append(answers, answer) },
	})

	supervisor.Listen()
	stream := stt.lastStream()

	stream.TranscriptCallback("gemini start")
	if supervisor.RecordingState() != RecordingAnswer {
		t.Fatalf("expected recording state after start phrase, got %v", supervisor.RecordingState())
	}

	stream.TranscriptCallback("the powerhouse of the cell")
	stream.TranscriptCallback("gemini stop")

	if len(answers) != 1 || answers[0] != "the powerhouse of the cell" {
		t.Fatalf("expected committed answer, got %v", answers)
	}
	if supervisor.RecordingState() != RecordingIdle {
		t.Fatalf("expected idle state after commit, got %v", supervisor.RecordingState())
	}
	if stopped != 1 {
		t.Fatalf("expected capture to pause after commit, got %d stops", stopped)
	}

	var stoppedEvent events.RecordingStopped
	found := false
	for _, event := range received.all() {
		if typedEvent, ok := event.(events.RecordingStopped); ok {
			stoppedEvent = typedEvent
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a recording stopped event")
	}
	if stoppedEvent.Transcript != "the powerhouse of the cell" {
		t.Fatalf("expected stopped event to carry the answer, got %q", stoppedEvent.Transcript)
	}

	stream.ClosedCallback()
	if len(scheduler.fires) != 0 {
		t.Fatalf("expected no restart after commit pause, got %d", len(scheduler.fires))
	}
}

func TestBothWakePhrasesInOneResult(t *testing.T) {
	stt := &speechToTextClientStub{}
	answers := []string{}
	supervisor, _, _ := newTestSupervisor(stt, supervisorHooks{
		onAnswer: func(answer string) { answers = append(answers, answer) },
	})

	supervisor.Listen()
	stream := stt.lastStream()

	stream.TranscriptCallback("gemini start the powerhouse of the cell gemini stop")

	if len(answers) != 1 || answers[0] != "the powerhouse of the cell" {
		t.Fatalf("expected answer from a single result, got %v", answers)
	}
	if supervisor.RecordingState() != RecordingIdle {
		t.Fatalf("expected idle state after commit, got %v", supervisor.RecordingState())
	}
}

func TestEmptyRecordingRearms(t *testing.T) {
	stopped := 0
	stt := &speechToTextClientStub{stopStream: func() error { stopped++; return nil }}
	answers := []string{}
	supervisor, _, received := newTestSupervisor(stt, supervisorHooks{
		onAnswer: func(answer string) { answers = append(answers, answer) },
	})

	supervisor.Listen()
	stream := stt.lastStream()

	stream.TranscriptCallback("gemini start gemini stop")

	if len(answers) != 0 {
		t.Fatalf("expected no answer from an empty recording, got %v", answers)
	}
	if supervisor.RecordingState() != RecordingArmed {
		t.Fatalf("expected to re-arm after an empty recording, got %v", supervisor.RecordingState())
	}
	if stopped != 0 {
		t.Fatalf("expected capture to keep running, got %d stops", stopped)
	}

	if last := received.last(); last == nil || last.Kind() != events.KindRecordingArmed {
		t.Fatalf("expected re-armed event last, got %v", last)
	}
}

func TestInterimPreviewIncludesAccumulatedParts(t *testing.T) {
	stt := &speechToTextClientStub{}
	supervisor, _, received := newTestSupervisor(stt, supervisorHooks{})

	supervisor.Listen()
	stream := stt.lastStream()

	stream.InterimTranscriptCallback("hello")
	stream.TranscriptCallback("gemini start the powerhouse")
	stream.InterimTranscriptCallback("of the")

	previews := []string{}
	for _, event := range received.all() {
		if typedEvent, ok := event.(events.CaptureTranscriptInterim); ok {
			previews = append(previews, typedEvent.Transcript)
		}
	}

	if len(previews) != 2 {
		t.Fatalf("expected two interim previews, got %v", previews)
	}
	if previews[0] != "hello" {
		t.Fatalf("expected plain preview before recording, got %q", previews[0])
	}
	if previews[1] != "the powerhouse of the" {
		t.Fatalf("expected preview to include accumulated answer, got %q", previews[1])
	}
}

func TestSpeechEndedResetsInterimPreview(t *testing.T) {
	stt := &speechToTextClientStub{}
	supervisor, _, received := newTestSupervisor(stt, supervisorHooks{})

	supervisor.Listen()
	stream := stt.lastStream()

	stream.InterimTranscriptCallback("what is atp")
	stream.SpeechEndedCallback()

	stream.TranscriptCallback("gemini start the powerhouse")
	stream.InterimTranscriptCallback("of the")
	stream.SpeechEndedCallback()

	collectPreviews := func() []string {
		previews := []string{}
		for _, event := range received.all() {
			if typedEvent, ok := event.(events.CaptureTranscriptInterim); ok {
				previews = append(previews, typedEvent.Transcript)
			}
		}
		return previews
	}

	previews := collectPreviews()
	if len(previews) != 4 {
		t.Fatalf("expected four interim previews, got %v", previews)
	}
	if previews[1] != "" {
		t.Fatalf("expected silence to clear the armed preview, got %q", previews[1])
	}
	if previews[3] != "the powerhouse" {
		t.Fatalf("expected silence to reset the preview to the accumulated answer, got %q", previews[3])
	}

	if err := supervisor.Stop(); err != nil {
		t.Fatalf("expected stop to succeed, got %v", err)
	}
	stream.SpeechEndedCallback()

	if len(collectPreviews()) != 4 {
		t.Fatalf("expected speech ended after stop to be orphaned, got %v", collectPreviews())
	}
}

func TestProviderCloseSchedulesRestart(t *testing.T) {
	stt := &speechToTextClientStub{}
	supervisor, scheduler, received := newTestSupervisor(stt, supervisorHooks{})

	supervisor.Listen()
	stream := stt.lastStream()

	stream.ClosedCallback()

	if len(scheduler.fires) != 1 {
		t.Fatalf("expected one scheduled restart, got %d", len(scheduler.fires))
	}
	if scheduler.delays[0] != defaultRestartDelay {
		t.Fatalf("expected restart delay %s, got %s", defaultRestartDelay, scheduler.delays[0])
	}

	scheduler.fires[0]()

	if stt.streamCount() != 2 {
		t.Fatalf("expected a fresh transcription stream, got %d", stt.streamCount())
	}
	if supervisor.RecordingState() != RecordingArmed {
		t.Fatalf("expected to stay armed across restarts, got %v", supervisor.RecordingState())
	}

	if last := received.last(); last == nil || last.Kind() != events.KindCaptureStarted {
		t.Fatalf("expected capture started after restart, got %v", last)
	}
}

func TestMidAnswerReconnectKeepsAccumulatedParts(t *testing.T) {
	stt := &speechToTextClientStub{}
	answers := []string{}
	supervisor, scheduler, received := newTestSupervisor(stt, supervisorHooks{
		onAnswer: func(answer string) { answers = append(answers, answer) },
	})

	supervisor.Listen()
	stream := stt.lastStream()

	stream.TranscriptCallback("gemini start first part")
	stream.ClosedCallback()

	if len(scheduler.fires) != 1 {
		t.Fatalf("expected a restart mid answer, got %d", len(scheduler.fires))
	}
	scheduler.fires[0]()

	if supervisor.RecordingState() != RecordingAnswer {
		t.Fatalf("expected recording to survive the reconnect, got %v", supervisor.RecordingState())
	}

	preview, ok := received.last().(events.CaptureTranscriptInterim)
	if !ok {
		t.Fatalf("expected restored preview after reconnect, got %T", received.last())
	}
	if preview.Transcript != "first part" {
		t.Fatalf("expected preview of accumulated answer, got %q", preview.Transcript)
	}

	reconnected := stt.lastStream()
	reconnected.TranscriptCallback("second part gemini stop")

	if len(answers) != 1 || answers[0] != "first part second part" {
		t.Fatalf("expected answer spanning the reconnect, got %v", answers)
	}
}

func TestStopDiscardsRecordingAndPendingRestart(t *testing.T) {
	stt := &speechToTextClientStub{}
	answers := []string{}
	supervisor, scheduler, _ := newTestSupervisor(stt, supervisorHooks{
		onAnswer: func(answer string) { answers = append(answers, answer) },
	})

	supervisor.Listen()
	stream := stt.lastStream()

	stream.TranscriptCallback("gemini start half an answer")
	stream.ClosedCallback()

	if err := supervisor.Stop(); err != nil {
		t.Fatalf("expected stop to succeed, got %v", err)
	}
	if supervisor.RecordingState() != RecordingIdle {
		t.Fatalf("expected idle state after stop, got %v", supervisor.RecordingState())
	}

	scheduler.fires[0]()
	if stt.streamCount() != 1 {
		t.Fatalf("expected cancelled restart not to reconnect, got %d streams", stt.streamCount())
	}

	stream.TranscriptCallback("half an answer gemini stop")
	if len(answers) != 0 {
		t.Fatalf("expected results after stop to be orphaned, got %v", answers)
	}
}

// TestRandomizedCaptureEventInterleavingsKeepOneLiveStream drives the
// supervisor with arbitrary orderings of commands, stream events and timer
// fires, and fails if it ever opens a stream while the previous one is still
// live. Live here means opened with no stop requested and no terminal
// callback delivered.
func TestRandomizedCaptureEventInterleavingsKeepOneLiveStream(t *testing.T) {
	utterances := []string{
		"gemini start",
		"the powerhouse of the cell",
		"gemini stop",
		"gemini start the krebs cycle gemini stop",
	}

	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 25; round++ {
		open := false
		stt := &speechToTextClientStub{}
		stt.transcribe = func(speechtotext.TranscriptionOptions) error {
			if open {
				t.Fatalf("round %d: a second stream opened while one was live", round)
			}
			open = true
			return nil
		}
		stt.stopStream = func() error {
			open = false
			return nil
		}

		supervisor, scheduler, _ := newTestSupervisor(stt, supervisorHooks{})
		supervisor.Listen()

		for step := 0; step < 300; step++ {
			switch rng.Intn(7) {
			case 0:
				supervisor.Listen()
			case 1:
				if err := supervisor.Stop(); err != nil {
					t.Fatalf("round %d: stop failed: %v", round, err)
				}
			case 2:
				stt.streamAt(rng.Intn(stt.streamCount())).InterimTranscriptCallback("gemini")
			case 3:
				index := rng.Intn(stt.streamCount())
				stt.streamAt(index).TranscriptCallback(utterances[rng.Intn(len(utterances))])
			case 4:
				index := rng.Intn(stt.streamCount())
				stt.streamAt(index).ErrorCallback(errors.New("connection reset"))
				if index == stt.streamCount()-1 {
					open = false
				}
			case 5:
				index := rng.Intn(stt.streamCount())
				stt.streamAt(index).ClosedCallback()
				if index == stt.streamCount()-1 {
					open = false
				}
			case 6:
				if len(scheduler.fires) > 0 {
					scheduler.fires[rng.Intn(len(scheduler.fires))]()
				}
			}
		}
	}
}

func TestRecoverableErrorSchedulesRetry(t *testing.T) {
	stt := &speechToTextClientStub{}
	supervisor, scheduler, received := newTestSupervisor(stt, supervisorHooks{})

	supervisor.Listen()
	stream := stt.lastStream()

	stream.ErrorCallback(errors.New("connection reset"))

	if len(scheduler.fires) != 1 {
		t.Fatalf("expected one scheduled retry, got %d", len(scheduler.fires))
	}
	if scheduler.delays[0] != defaultErrorRetryDelay {
		t.Fatalf("expected retry delay %s, got %s", defaultErrorRetryDelay, scheduler.delays[0])
	}

	failed := false
	for _, event := range received.all() {
		if _, ok := event.(events.CaptureFailed); ok {
			failed = true
		}
	}
	if !failed {
		t.Fatalf("expected a capture failed event")
	}

	scheduler.fires[0]()
	if stt.streamCount() != 2 {
		t.Fatalf("expected retry to open a fresh stream, got %d", stt.streamCount())
	}
}

func TestUnauthorizedErrorReportsFatal(t *testing.T) {
	stt := &speechToTextClientStub{}
	fatal := []error{}
	supervisor, scheduler, _ := newTestSupervisor(stt, supervisorHooks{
		onFatal: func(err error) { fatal = append(fatal, err) },
	})

	supervisor.Listen()
	stream := stt.lastStream()

	stream.ErrorCallback(fmt.Errorf("dial: %w", speechtotext.ErrUnauthorized))

	if len(fatal) != 1 {
		t.Fatalf("expected one fatal error, got %d", len(fatal))
	}
	if !errors.Is(fatal[0], speechtotext.ErrUnauthorized) {
		t.Fatalf("expected unauthorized error, got %v", fatal[0])
	}
	if len(scheduler.fires) != 0 {
		t.Fatalf("expected no retry for an unauthorized error, got %d", len(scheduler.fires))
	}
}

func TestStartFailureSchedulesRetry(t *testing.T) {
	attempts := 0
	stt := &speechToTextClientStub{transcribe: func(speechtotext.TranscriptionOptions) error {
		attempts++
		if attempts == 1 {
			return errors.New("dial failed")
		}
		return nil
	}}
	supervisor, scheduler, _ := newTestSupervisor(stt, supervisorHooks{})

	supervisor.Listen()

	if stt.streamCount() != 0 {
		t.Fatalf("expected no live stream after a failed start, got %d", stt.streamCount())
	}
	if len(scheduler.fires) != 1 {
		t.Fatalf("expected one scheduled retry, got %d", len(scheduler.fires))
	}

	scheduler.fires[0]()

	if stt.streamCount() != 1 {
		t.Fatalf("expected retry to open a stream, got %d", stt.streamCount())
	}
	if supervisor.RecordingState() != RecordingArmed {
		t.Fatalf("expected armed state after retry, got %v", supervisor.RecordingState())
	}
}

func TestUnauthorizedStartReportsFatal(t *testing.T) {
	stt := &speechToTextClientStub{transcribe: func(speechtotext.TranscriptionOptions) error {
		return speechtotext.ErrUnauthorized
	}}
	fatal := []error{}
	supervisor, scheduler, _ := newTestSupervisor(stt, supervisorHooks{
		onFatal: func(err error) { fatal = append(fatal, err) },
	})

	supervisor.Listen()

	if len(fatal) != 1 {
		t.Fatalf("expected one fatal error, got %d", len(fatal))
	}
	if len(scheduler.fires) != 0 {
		t.Fatalf("expected no retry for an unauthorized start, got %d", len(scheduler.fires))
	}
}

type speechToTextClientStub struct {
	transcribe func(opts speechtotext.TranscriptionOptions) error
	stopStream func() error

	mu      sync.Mutex
	streams []speechtotext.TranscriptionOptions
	audio   [][]byte
}

func (stub *speechToTextClientStub) Transcribe(_ context.Context, opts ...speechtotext.TranscriptionOption) error {
	options := speechtotext.TranscriptionOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	if stub.transcribe != nil {
		if err := stub.transcribe(options); err != nil {
			return err
		}
	}

	stub.mu.Lock()
	defer stub.mu.Unlock()
	stub.streams = append(stub.streams, options)
	return nil
}

func (stub *speechToTextClientStub) SendAudio(audio []byte) error {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	stub.audio = append(stub.audio, audio)
	return nil
}

func (stub *speechToTextClientStub) StopStream() error {
	if stub.stopStream != nil {
		return stub.stopStream()
	}
	return nil
}

func (stub *speechToTextClientStub) lastStream() speechtotext.TranscriptionOptions {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	return stub.streams[len(stub.streams)-1]
}

func (stub *speechToTextClientStub) streamAt(index int) speechtotext.TranscriptionOptions {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	return stub.streams[index]
}

func (stub *speechToTextClientStub) streamCount() int {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	return len(stub.streams)
}

func (stub *speechToTextClientStub) sentAudio() [][]byte {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	return append([][]byte{}, stub.audio...)
}
