package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/sheetgen/internal/genealogy"
	"github.com/dgallion1/sheetgen/internal/ocr"
)

// Worker processes a single OCR job.
type Worker struct {
	recognizer ocr.Recognizer
	parser     *genealogy.Parser
	log        *slog.Logger
	timeout    time.Duration
}

func NewWorker(recognizer ocr.Recognizer, parser *genealogy.Parser, log *slog.Logger, timeout time.Duration) *Worker {
	return &Worker{
		recognizer: recognizer,
		parser:     parser,
		log:        log,
		timeout:    timeout,
	}
}

// Process recognizes the job's image and parses the text into a document.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	// Phase 1: Recognize
	job.SetStatus(StatusRecognizing, "recognizing")
	rctx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := w.recognizer.Recognize(rctx, job.Image(), job.SetProgress)
	if err != nil {
		log.Error("recognition failed", "provider", w.recognizer.Name(), "error", err)
		job.AddError(fmt.Sprintf("recognize: %s", err))
		job.SetStatus(StatusFailed, "recognizing")
		return
	}
	log.Info("recognized image", "provider", w.recognizer.Name(),
		"chars", len(text), "duration_ms", time.Since(start).Milliseconds())

	// Phase 2: Parse
	job.SetStatus(StatusParsing, "parsing")
	doc, err := w.parser.Parse(text)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	job.SetResult(text, doc)

	if doc.Empty() {
		log.Warn("no data extracted")
		job.SetStatus(StatusEmpty, "done")
		return
	}
	log.Info("parsed document", "persons", len(doc.Persons), "generation_title", doc.GenerationTitle)
	job.SetStatus(StatusCompleted, "done")
}
