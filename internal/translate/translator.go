package translate

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/gosubtrans/gosubtrans/internal/logging"
	"github.com/gosubtrans/gosubtrans/internal/settings"
	"github.com/gosubtrans/gosubtrans/internal/suberrors"
	"github.com/gosubtrans/gosubtrans/internal/subtitle"
)

// Client is the capability a translation provider must offer (spec.md
// §9: "unify behind a trait/interface with two operations:
// send(request) -> Response, and abort()"). Defined here rather than
// in internal/translate/provider so the provider package can depend on
// translate's Request/Response types without a cycle back; every
// concrete provider client satisfies this structurally.
type Client interface {
	Send(ctx context.Context, request *Request, temperature float64) (*Response, error)
	Abort()
	SupportsStreaming() bool
}

// Translator walks a Subtitles tree scene-by-scene, batch-by-batch,
// sending each batch to a provider Client and attaching the parsed
// result (spec.md §4.7). It is the single-threaded cooperative core
// spec.md §5 describes: network calls happen outside the
// Subtitles lock, results are applied inside an Editor scope.
type Translator struct {
	Client    Client
	Settings  settings.Settings
	Events    *Events
	Validator *Validator
	Log       *logging.Logger

	limiter *rate.Limiter

	maxRetries    int
	backoffTime   time.Duration
	stopOnError   bool
	maxContextWin int
	systemRole    string

	aborted atomic.Bool

	mu             sync.Mutex
	rollingContext []string
}

// NewTranslator builds a Translator from settings (max_retries,
// backoff_time, stop_on_error, max_context_summaries) and wires in a
// requests-per-second rate limiter (grounded on
// `adrianmusante-subtitle-tools`'s use of golang.org/x/time/rate to
// throttle its own outbound client).
func NewTranslator(client Client, s settings.Settings, log *logging.Logger) *Translator {
	if log == nil {
		log = logging.NewNop()
	}
	rps := s.GetFloatOr("requests_per_second", 0)
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	systemRole := s.GetStringOr("system_role", "system")

	return &Translator{
		Client:        client,
		Settings:      s,
		Events:        NewEvents(),
		Validator:     NewValidator(s),
		Log:           log,
		limiter:       rate.NewLimiter(limit, 1),
		maxRetries:    s.GetIntOr("max_retries", 3),
		backoffTime:   s.GetDurationOr("backoff_time", 5*time.Second),
		stopOnError:   s.GetBoolOr("stop_on_error", false),
		maxContextWin: s.GetIntOr("max_context_summaries", 10),
		systemRole:    systemRole,
	}
}

// StopTranslating sets the level-triggered abort flag observed at
// every suspension point (spec.md §4.7/§5) and cooperatively cancels
// the in-flight client request.
func (t *Translator) StopTranslating() {
	t.aborted.Store(true)
	t.Client.Abort()
}

func (t *Translator) isAborted() bool { return t.aborted.Load() }

// Translate walks subs.Scenes/Batches in order, translating every
// batch that is not already fully translated (spec.md §4.7 ordering
// guarantee: scene.number then batch.number ascending).
func (t *Translator) Translate(ctx context.Context, subs *subtitle.Subtitles) error {
	t.Events.EmitPreprocessed(subs.Scenes)

	for _, scene := range subs.Scenes {
		if t.isAborted() {
			return suberrors.NewTranslationAbortedError()
		}

		for _, batch := range scene.Batches {
			if t.isAborted() {
				return suberrors.NewTranslationAbortedError()
			}
			if batch.AllTranslated() {
				continue
			}

			if err := t.translateBatch(ctx, scene, batch); err != nil {
				if _, aborted := err.(*suberrors.TranslationAbortedError); aborted {
					return err
				}
				t.Events.EmitError(err)
				batch.Errors = append(batch.Errors, err)
				if t.stopOnError {
					return err
				}
				continue
			}
		}

		t.Events.EmitSceneTranslated(scene)
	}

	return nil
}

// translateBatch builds a prompt from the batch's originals plus
// rolling context, sends it (with retry/backoff on retryable errors),
// validates and attaches the result, then updates the rolling context
// window and emits batch_translated/batch_updated.
func (t *Translator) translateBatch(ctx context.Context, scene *subtitle.Scene, batch *subtitle.Batch) error {
	rollingContext := t.snapshotContext()
	prompt := NewPrompt(t.Settings, batch.Originals, rollingContext, scene.Summary, t.systemRole)
	batch.Prompt = prompt.UserPrompt

	translation, err := t.sendWithRetry(ctx, prompt)
	if err != nil {
		return err
	}

	batch.Translation = translation.Response
	if translation.Summary != "" {
		batch.Summary = translation.Summary
		t.pushContext(translation.Summary)
	}
	if translation.SceneSummary != "" {
		scene.Summary = translation.SceneSummary
	}

	for _, lt := range translation.Lines {
		original := batch.GetOriginal(lt.Number)
		if original == nil {
			continue
		}
		batch.AddTranslatedLine(original.AsTranslation(lt.Text))
	}

	t.Validator.ValidateBatch(batch)
	for _, verr := range t.Validator.ValidateTranslations(batch.Translated) {
		batch.Errors = append(batch.Errors, verr)
		t.Events.EmitWarning(verr.Error())
	}

	t.Events.EmitBatchTranslated(batch)
	t.Events.EmitBatchUpdated(batch)
	return nil
}

// sendWithRetry sends prompt via t.Client, retrying retryable errors
// with exponential backoff (initial backoffTime, ×2, cap 60s) up to
// maxRetries attempts; on the second attempt onward the prompt is
// amended with retry_instructions, per spec.md §4.7's "malformed XML
// that the parser can repair on second attempt" retry path.
func (t *Translator) sendWithRetry(ctx context.Context, prompt *Prompt) (*Translation, error) {
	backoff := t.backoffTime
	if backoff <= 0 {
		backoff = 5 * time.Second
	}

	attempts := t.maxRetries + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if t.isAborted() {
			return nil, suberrors.NewTranslationAbortedError()
		}
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, suberrors.NewTranslationAbortedError()
		}

		attemptPrompt := prompt
		if attempt > 0 {
			attemptPrompt = t.withRetryInstructions(prompt)
		}

		translation, err := t.sendOnce(ctx, attemptPrompt)
		if err == nil {
			return translation, nil
		}
		if !suberrors.IsRetryable(err) {
			return nil, err
		}

		lastErr = err
		t.Events.EmitWarning(err.Error())

		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return nil, suberrors.NewTranslationAbortedError()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > 60*time.Second {
				backoff = 60 * time.Second
			}
		}
	}

	return nil, suberrors.NewTranslationImpossibleError("exhausted retries translating batch", lastErr)
}

func (t *Translator) withRetryInstructions(prompt *Prompt) *Prompt {
	retryInstructions := t.Settings.GetStringOr("retry_instructions", "")
	if retryInstructions == "" || len(prompt.Messages) == 0 {
		return prompt
	}
	amended := *prompt
	amended.Messages = append([]Message(nil), prompt.Messages...)
	last := amended.Messages[len(amended.Messages)-1]
	last.Content = last.Content + "\n\n" + retryInstructions
	amended.Messages[len(amended.Messages)-1] = last
	return &amended
}

// sendOnce performs a single client Send call, parsing either the
// full buffered response (non-streaming) or the streamed buffer
// accumulated via Request.ProcessStreamingDelta.
func (t *Translator) sendOnce(ctx context.Context, prompt *Prompt) (*Translation, error) {
	temperature := t.Settings.GetFloatOr("temperature", 0)

	supportsStreaming := t.Client.SupportsStreaming() && t.Settings.GetBoolOr("supports_streaming", false)
	var request *Request
	if supportsStreaming {
		request = NewRequest(prompt, temperature, func(partial *Translation) {
			t.Events.EmitInfo("received partial translation")
		})
	} else {
		request = NewRequest(prompt, temperature, nil)
	}

	resp, err := t.Client.Send(ctx, request, temperature)
	if err != nil {
		return nil, err
	}

	text := resp.Text
	if text == "" && request.Buffer() != "" {
		text = request.Buffer()
	}

	translation := ParseFull(text)
	translation.Reasoning = resp.Reasoning
	translation.FinishReason = resp.FinishReason

	if len(translation.Lines) == 0 {
		return nil, suberrors.NewTranslationResponseError("response contained no parseable lines", nil)
	}
	return translation, nil
}

func (t *Translator) pushContext(summary string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollingContext = append(t.rollingContext, summary)
	if t.maxContextWin > 0 && len(t.rollingContext) > t.maxContextWin {
		t.rollingContext = t.rollingContext[len(t.rollingContext)-t.maxContextWin:]
	}
}

func (t *Translator) snapshotContext() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.rollingContext) == 0 {
		return ""
	}
	return strings.Join(t.rollingContext, "\n")
}
