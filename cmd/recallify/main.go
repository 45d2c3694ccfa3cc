// Recallify — a voice-driven active-recall study partner.
//
// Usage:
//
//	recallify [-voice] [-document <id>] [-backend <url>]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"

	recall "github.com/Ishfaq-code/Recallify/core"
	"github.com/Ishfaq-code/Recallify/core/audio/miniaudio"
	"github.com/Ishfaq-code/Recallify/core/audio/portaudio"
	"github.com/Ishfaq-code/Recallify/core/backend"
	dgstt "github.com/Ishfaq-code/Recallify/core/speechtotext/deepgram"
	dgtts "github.com/Ishfaq-code/Recallify/core/texttospeech/deepgram"
	"github.com/Ishfaq-code/Recallify/internal/display"
)

const portaudioFramesPerBuffer = 1024

func main() {
	_ = godotenv.Load()

	verbose := flag.Bool("verbose", false, "show transcripts and backend diagnostics in the scrollback")
	logFile := flag.String("log-file", ".recallify-logs/recallify.log", "file to write logs to (use \"stderr\" to log to console)")
	backendURL := flag.String("backend", "", "study backend base URL (default $RECALLIFY_BACKEND_URL, else http://localhost:8000)")
	voiceFlag := flag.Bool("voice", false, "enable voice answers and spoken questions at startup")
	voiceModel := flag.String("voice-model", "", "Deepgram voice for spoken questions (default aura-2-thalia-en)")
	startPhrase := flag.String("start-phrase", "gemini start", "spoken phrase that starts answer recording")
	stopPhrase := flag.String("stop-phrase", "gemini stop", "spoken phrase that commits the recorded answer")
	audioBackend := flag.String("audio-backend", "miniaudio", "audio device backend: miniaudio or portaudio")
	document := flag.String("document", "", "start a study session on this document id immediately")
	flag.Parse()

	// Direct logs to a file by default so the REPL stays clean.
	var logOut io.Writer = os.Stderr
	if *logFile != "" && *logFile != "stderr" {
		dir := filepath.Dir(*logFile)
		if dir != "" && dir != "." {
			os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", *logFile, err)
		} else {
			logOut = f
			defer f.Close()
		}
	}

	// Redirect Go's default log package (used by the audio and websocket
	// glue) to the same output so it doesn't spam the terminal.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	// Set up context — cancelled when the UI quits.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Wire the study backend client.
	baseURL := *backendURL
	if baseURL == "" {
		baseURL = os.Getenv("RECALLIFY_BACKEND_URL")
	}
	var clientOpts []backend.ClientOption
	if baseURL != "" {
		clientOpts = append(clientOpts, backend.WithBaseURL(baseURL))
	}
	studyBackend := backend.NewClient(clientOpts...)
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}

	sessionOpts := []recall.SessionOption{
		recall.WithQuestionService(studyBackend),
		recall.WithWakePhrases(*startPhrase, *stopPhrase),
	}

	// Build the voice stack if Deepgram credentials are available.
	voiceWired := false
	if _, ok := os.LookupEnv("DEEPGRAM_API_KEY"); !ok {
		if *voiceFlag {
			fmt.Fprintln(os.Stderr, "error: -voice requires the DEEPGRAM_API_KEY env var")
			os.Exit(1)
		}
		stdlog.Println("voice disabled: set DEEPGRAM_API_KEY to enable")
	} else {
		voice, err := dgtts.ParseVoice(*voiceModel)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

		device, err := openAudioDevice(*audioBackend)
		if err != nil {
			if *voiceFlag {
				fmt.Fprintf(os.Stderr, "error: audio device init failed: %v\n", err)
				os.Exit(1)
			}
			stdlog.Printf("voice disabled: audio device init failed: %v", err)
		} else {
			tts, err := dgtts.NewTextToSpeechClient(voice)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}

			sessionOpts = append(sessionOpts,
				recall.WithAudioInput(device),
				recall.WithAudioOutput(device),
				recall.WithSpeechToTextClient(dgstt.NewTranscriptionClient()),
				recall.WithTextToSpeechClient(tts),
			)
			voiceWired = true
			stdlog.Printf("voice ready (model=%s, audio=%s)", voice, *audioBackend)
		}
	}

	session := recall.NewSession(sessionOpts...)
	defer session.Close()

	if *voiceFlag {
		session.EnableVoice()
	}

	// Build the CLI app.
	app := &cliApp{
		backend:     studyBackend,
		backendURL:  baseURL,
		session:     session,
		verbose:     *verbose,
		voiceWired:  voiceWired,
		startPhrase: *startPhrase,
		stopPhrase:  *stopPhrase,
		startDoc:    *document,
	}
	ui := display.NewUI(app.status)
	app.ui = ui

	fmt.Println(display.RenderBanner())
	fmt.Println(display.BannerStyle.Render("  Active-recall studying: upload a PDF and get quizzed on it."))
	if voiceWired {
		fmt.Println(display.BannerStyle.Render(fmt.Sprintf("  Voice ready — /voice toggles it, then say %q and %q.", *startPhrase, *stopPhrase)))
	}
	fmt.Println(display.BannerStyle.Render("  Type /help for commands, /quit to exit."))
	fmt.Println()

	// Run app logic in a background goroutine.
	go func() {
		ui.WaitReady()
		app.run(ctx)
		ui.Quit()
	}()

	// Bubble Tea owns the terminal — blocks until quit.
	if err := ui.Run(); err != nil {
		stdlog.Printf("display: %v", err)
	}
	cancel()
}

// openAudioDevice opens a duplex device usable as both the microphone
// input and the playback output of a session.
func openAudioDevice(name string) (audioDevice, error) {
	switch name {
	case "miniaudio":
		client, err := miniaudio.NewClient()
		if err != nil {
			return nil, err
		}
		return client, nil
	case "portaudio":
		client, err := portaudio.NewClient(portaudioFramesPerBuffer)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q (want miniaudio or portaudio)", name)
	}
}

type audioDevice interface {
	recall.AudioInput
	recall.AudioOutput
}

type cliApp struct {
	backend     *backend.Client
	backendURL  string
	session     *recall.Session
	ui          *display.UI
	verbose     bool
	voiceWired  bool
	startPhrase string
	stopPhrase  string
	startDoc    string

	docs    []backend.Document // last listed, for numeric selection
	started bool               // a session start has been attempted

	mu        sync.Mutex
	hearing   string // live interim transcript shown in the status bar
	lastTyped string // suppresses the voice echo for typed answers
}

// status feeds the display's status bar. Called from the Bubble Tea
// loop on every tick.
func (a *cliApp) status() display.Status {
	a.mu.Lock()
	hearing := a.hearing
	a.mu.Unlock()

	return display.Status{
		Document:  a.session.DocumentID(),
		Active:    a.session.IsActive(),
		Voice:     a.session.IsVoiceEnabled(),
		Speaking:  a.session.IsSpeaking(),
		Thinking:  a.session.IsRequestPending(),
		Recording: a.session.RecordingState(),
		Hearing:   hearing,
	}
}

func (a *cliApp) setHearing(preview string) {
	a.mu.Lock()
	a.hearing = preview
	a.mu.Unlock()
}

func (a *cliApp) run(ctx context.Context) {
	a.checkBackend(ctx)
	a.showDocuments(ctx)
	if a.startDoc != "" {
		a.startSession(ctx, a.startDoc)
	}

	uiCh := a.ui.InputChan()
	for {
		select {
		case <-ctx.Done():
			return
		case input, ok := <-uiCh:
			if !ok {
				return
			}
			input = strings.TrimSpace(input)
			if input == "" {
				continue
			}
			a.handleInput(ctx, input)
		}
	}
}

func (a *cliApp) handleInput(ctx context.Context, input string) {
	if strings.HasPrefix(input, "/") {
		cmd, arg, _ := strings.Cut(strings.TrimPrefix(input, "/"), " ")
		arg = strings.TrimSpace(arg)

		switch strings.ToLower(cmd) {
		case "help":
			a.showHelp()
		case "docs", "documents":
			a.showDocuments(ctx)
		case "start":
			a.startSession(ctx, arg)
		case "upload":
			a.uploadDocument(ctx, arg)
		case "chunks":
			a.showChunks(ctx, arg)
		case "delete":
			a.deleteDocument(ctx, arg)
		case "voice":
			a.toggleVoice()
		case "end":
			a.endSession()
		case "quit", "exit":
			a.quit()
		default:
			a.ui.PrintHint(fmt.Sprintf("Unknown command /%s. Type /help for commands.", cmd))
		}
		return
	}

	// Bare numbers select a document when no session is running.
	if _, err := strconv.Atoi(input); err == nil && !a.session.IsActive() {
		a.startSession(ctx, input)
		return
	}

	a.submitAnswer(input)
}

// ── Session handlers ─────────────────────────────────────────────

func (a *cliApp) startOptions() []recall.StartOption {
	opts := []recall.StartOption{
		recall.WithQuestionCallback(func(question string) {
			a.ui.Println("")
			a.ui.PrintQuestion(question)
		}),
		recall.WithAnswerSubmittedCallback(a.noteAnswer),
		recall.WithInterimTranscriptCallback(a.setHearing),
		recall.WithRecordingStateCallback(func(state recall.RecordingState) {
			if state != recall.RecordingAnswer {
				a.setHearing("")
			}
		}),
		recall.WithCaptureFailedCallback(func(err error) {
			a.ui.PrintUrgent(fmt.Sprintf("Voice capture: %v", err))
		}),
		recall.WithRequestFailedCallback(func(operation string, err error) {
			a.ui.PrintUrgent(fmt.Sprintf("Error fetching %s: %v", operation, err))
			a.ui.PrintHint("Your answer is kept. Send another one, or /end.")
		}),
		recall.WithVoiceStateCallback(a.printVoiceState),
	}

	if a.verbose {
		opts = append(opts, recall.WithTranscriptCallback(func(transcript string) {
			a.ui.PrintHint("heard: " + transcript)
		}))
	}

	return opts
}

// noteAnswer echoes answers that entered the history. Typed answers
// are already on screen from the prompt echo, so only voice-committed
// ones are printed.
func (a *cliApp) noteAnswer(answer string) {
	a.mu.Lock()
	typed := a.lastTyped
	a.lastTyped = ""
	a.mu.Unlock()

	if answer != typed {
		a.ui.PrintVoice(answer)
	}
}

func (a *cliApp) startSession(ctx context.Context, arg string) {
	if arg == "" {
		a.ui.PrintHint("Usage: /start <number|document-id>")
		return
	}
	if a.session.IsActive() {
		a.ui.PrintHint("A session is already running. /end it first.")
		return
	}

	id, ok := a.resolveDocument(arg)
	if !ok {
		return
	}

	a.ui.PrintHeading("Starting a study session")
	a.started = true
	if err := a.session.Start(ctx, id, a.startOptions()...); err != nil {
		a.ui.PrintUrgent(fmt.Sprintf("Error starting session: %v", err))
		return
	}

	a.ui.Println("")
	if a.session.IsVoiceEnabled() {
		a.ui.PrintHint(fmt.Sprintf("Say %q, speak your answer, then %q to submit. Typing works too.", a.startPhrase, a.stopPhrase))
	} else {
		a.ui.PrintHint("Type your answer and press enter. /end when you are done.")
	}
}

func (a *cliApp) submitAnswer(text string) {
	if !a.session.IsActive() {
		a.ui.PrintHint("No session running. /docs to pick a document, or /help.")
		return
	}

	a.mu.Lock()
	a.lastTyped = text
	a.mu.Unlock()

	err := a.session.SubmitAnswer(text)
	switch {
	case err == nil:
	case errors.Is(err, recall.ErrRequestPending):
		a.ui.PrintHint("Still thinking about your last answer, one moment.")
	case errors.Is(err, recall.ErrSessionInactive):
		a.ui.PrintHint("No session running. /docs to pick a document.")
	default:
		a.ui.PrintUrgent(fmt.Sprintf("Error submitting answer: %v", err))
	}
}

func (a *cliApp) toggleVoice() {
	if !a.voiceWired {
		a.ui.PrintHint("Voice is unavailable: set DEEPGRAM_API_KEY and restart.")
		return
	}

	enabled := a.session.IsVoiceEnabled()
	if enabled {
		a.session.DisableVoice()
	} else {
		a.session.EnableVoice()
	}

	// Before the first session start no event callbacks are wired, so
	// the change is announced here instead.
	if !a.started {
		a.printVoiceState(!enabled)
	}
}

func (a *cliApp) printVoiceState(enabled bool) {
	if enabled {
		a.ui.PrintHint(fmt.Sprintf("Voice on. Say %q, answer, then %q to submit.", a.startPhrase, a.stopPhrase))
	} else {
		a.ui.PrintHint("Voice off. Type your answers.")
	}
}

func (a *cliApp) endSession() {
	if !a.session.IsActive() {
		a.ui.PrintHint("No session to end.")
		return
	}

	questions := 0
	for _, message := range a.session.Conversation() {
		if message.Role == recall.RoleQuestion {
			questions++
		}
	}

	a.session.EndSession()
	a.setHearing("")

	a.ui.Println("")
	a.ui.PrintHeading(fmt.Sprintf("Session ended: %d questions covered.", questions))
	a.ui.PrintHint("/docs to pick another document.")
}

func (a *cliApp) quit() {
	if a.session.IsActive() {
		a.session.EndSession()
	}
	a.ui.Quit()
}

// ── Document handlers ────────────────────────────────────────────

func (a *cliApp) checkBackend(ctx context.Context) {
	hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := a.backend.Health(hctx)
	if err != nil {
		a.ui.PrintUrgent(fmt.Sprintf("Study backend unreachable at %s: %v", a.backendURL, err))
		a.ui.PrintHint("Start the backend, then /docs to retry.")
		return
	}
	if a.verbose {
		a.ui.PrintHint("backend: " + health.Status)
	}
}

func (a *cliApp) showDocuments(ctx context.Context) {
	docs, err := a.backend.ListDocuments(ctx)
	if err != nil {
		a.ui.PrintUrgent(fmt.Sprintf("Error loading documents: %v", err))
		return
	}
	a.docs = docs

	if len(docs) == 0 {
		a.ui.PrintHint("No documents yet. /upload <path-to-pdf> to add one.")
		return
	}

	a.ui.PrintHeading("Documents:")
	a.ui.Println("")
	for i, doc := range docs {
		a.ui.PrintInfo(fmt.Sprintf("[%d] %s", i+1, doc.Filename))
		a.ui.PrintHint("    " + doc.ID)
		if doc.ContentPreview != "" {
			a.ui.PrintHint("    " + truncateStr(doc.ContentPreview, 80))
		}
	}
	a.ui.Println("")
	a.ui.PrintHint("Pick a document by number, or /start <id>.")
}

// resolveDocument turns a numeric pick from the last /docs listing
// into a document id; anything non-numeric is used as the id itself.
func (a *cliApp) resolveDocument(arg string) (string, bool) {
	idx, err := strconv.Atoi(arg)
	if err != nil {
		return arg, true
	}

	if len(a.docs) == 0 {
		a.ui.PrintHint("No document list loaded. /docs first.")
		return "", false
	}
	if idx < 1 || idx > len(a.docs) {
		a.ui.PrintHint(fmt.Sprintf("Pick a number between 1 and %d.", len(a.docs)))
		return "", false
	}
	return a.docs[idx-1].ID, true
}

func (a *cliApp) uploadDocument(ctx context.Context, path string) {
	if path == "" {
		a.ui.PrintHint("Usage: /upload <path-to-pdf>")
		return
	}

	lastQuarter := int64(-1)
	result, err := a.backend.UploadDocument(ctx, path, backend.WithProgressCallback(func(sent, total int64) {
		if total <= 0 {
			return
		}
		if quarter := sent * 4 / total; quarter > lastQuarter {
			lastQuarter = quarter
			a.ui.PrintHint(fmt.Sprintf("uploading %s: %d%%", filepath.Base(path), sent*100/total))
		}
	}))
	if err != nil {
		if errors.Is(err, backend.ErrNotPDF) {
			a.ui.PrintHint("Only PDF files can be uploaded.")
			return
		}
		if errors.Is(err, backend.ErrFileTooLarge) {
			a.ui.PrintHint("That PDF is too large to upload.")
			return
		}
		a.ui.PrintUrgent(fmt.Sprintf("Error uploading: %v", err))
		return
	}

	a.ui.PrintHeading(fmt.Sprintf("Uploaded %s: %d chunks extracted.", filepath.Base(path), len(result.Chunks)))
	a.ui.PrintHint("/docs to list documents, then pick it to start studying.")
	a.docs = nil
}

func (a *cliApp) showChunks(ctx context.Context, arg string) {
	if arg == "" {
		a.ui.PrintHint("Usage: /chunks <number|document-id>")
		return
	}

	id, ok := a.resolveDocument(arg)
	if !ok {
		return
	}

	chunks, err := a.backend.DocumentChunks(ctx, id)
	if err != nil {
		if errors.Is(err, backend.ErrDocumentNotFound) {
			a.ui.PrintHint("No such document. /docs to list them.")
			return
		}
		a.ui.PrintUrgent(fmt.Sprintf("Error fetching document: %v", err))
		return
	}

	a.ui.PrintHeading("Document " + chunks.DocumentID)
	keys := make([]string, 0, len(chunks.Metadata))
	for key := range chunks.Metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		a.ui.PrintHint(fmt.Sprintf("%s: %v", key, chunks.Metadata[key]))
	}
	a.ui.PrintInfo(truncateStr(strings.TrimSpace(chunks.Content), 400))
}

func (a *cliApp) deleteDocument(ctx context.Context, arg string) {
	if arg == "" {
		a.ui.PrintHint("Usage: /delete <number|document-id>")
		return
	}

	id, ok := a.resolveDocument(arg)
	if !ok {
		return
	}
	if a.session.IsActive() && a.session.DocumentID() == id {
		a.ui.PrintHint("That document is being studied. /end the session first.")
		return
	}

	message, err := a.backend.DeleteDocument(ctx, id)
	if err != nil {
		if errors.Is(err, backend.ErrDocumentNotFound) {
			a.ui.PrintHint("No such document.")
			return
		}
		a.ui.PrintUrgent(fmt.Sprintf("Error deleting document: %v", err))
		return
	}

	a.ui.PrintHint(message)
	a.docs = nil
}

func (a *cliApp) showHelp() {
	a.ui.PrintHeading("Commands:")
	a.ui.PrintInfo("  /docs             List uploaded documents")
	a.ui.PrintInfo("  /start <n|id>     Start a study session on a document")
	a.ui.PrintInfo("  1, 2, 3...        Shortcut for /start when no session is running")
	a.ui.PrintInfo("  /upload <path>    Upload a PDF to study")
	a.ui.PrintInfo("  /chunks <n|id>    Show what the backend stored for a document")
	a.ui.PrintInfo("  /delete <n|id>    Delete a document")
	a.ui.PrintInfo("  /voice            Toggle voice answers and spoken questions")
	a.ui.PrintInfo("  /end              End the current session")
	a.ui.PrintInfo("  /help             Show this message")
	a.ui.PrintInfo("  /quit             Exit")
	a.ui.Println("")
	a.ui.PrintHint("Anything else you type is submitted as your answer.")
	if a.voiceWired {
		a.ui.PrintHint(fmt.Sprintf("With voice on, say %q to answer aloud and %q to submit.", a.startPhrase, a.stopPhrase))
	}
}

func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
