package translate

import "github.com/gosubtrans/gosubtrans/internal/subtitle"

// Events is a fixed set of seven named signals emitted synchronously
// on the translator's calling goroutine, replacing the Python
// original's blinker.Signal publish/subscribe (spec.md §9 design note;
// the seven-signal shape is grounded verbatim on
// original_source/PySubtrans/TranslationEvents.py, resolving spec.md
// §9's "two variants exist" open question in favour of the richer
// one).
type Events struct {
	preprocessed   []func(scenes []*subtitle.Scene)
	batchTranslated []func(batch *subtitle.Batch)
	batchUpdated    []func(batch *subtitle.Batch)
	sceneTranslated []func(scene *subtitle.Scene)
	errorFns        []func(err error)
	warningFns      []func(msg string)
	infoFns         []func(msg string)
}

// NewEvents returns an empty Events registry.
func NewEvents() *Events { return &Events{} }

func (e *Events) OnPreprocessed(fn func(scenes []*subtitle.Scene)) {
	e.preprocessed = append(e.preprocessed, fn)
}
func (e *Events) OnBatchTranslated(fn func(batch *subtitle.Batch)) {
	e.batchTranslated = append(e.batchTranslated, fn)
}
func (e *Events) OnBatchUpdated(fn func(batch *subtitle.Batch)) {
	e.batchUpdated = append(e.batchUpdated, fn)
}
func (e *Events) OnSceneTranslated(fn func(scene *subtitle.Scene)) {
	e.sceneTranslated = append(e.sceneTranslated, fn)
}
func (e *Events) OnError(fn func(err error)) { e.errorFns = append(e.errorFns, fn) }
func (e *Events) OnWarning(fn func(msg string)) { e.warningFns = append(e.warningFns, fn) }
func (e *Events) OnInfo(fn func(msg string)) { e.infoFns = append(e.infoFns, fn) }

func (e *Events) EmitPreprocessed(scenes []*subtitle.Scene) {
	for _, fn := range e.preprocessed {
		fn(scenes)
	}
}
func (e *Events) EmitBatchTranslated(batch *subtitle.Batch) {
	for _, fn := range e.batchTranslated {
		fn(batch)
	}
}
func (e *Events) EmitBatchUpdated(batch *subtitle.Batch) {
	for _, fn := range e.batchUpdated {
		fn(batch)
	}
}
func (e *Events) EmitSceneTranslated(scene *subtitle.Scene) {
	for _, fn := range e.sceneTranslated {
		fn(scene)
	}
}
func (e *Events) EmitError(err error) {
	for _, fn := range e.errorFns {
		fn(err)
	}
}
func (e *Events) EmitWarning(msg string) {
	for _, fn := range e.warningFns {
		fn(msg)
	}
}
func (e *Events) EmitInfo(msg string) {
	for _, fn := range e.infoFns {
		fn(msg)
	}
}
