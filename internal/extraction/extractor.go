package extraction

import (
	"context"

	"go.uber.org/zap"

	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/config"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/fault"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/report"
)

// Extractor runs the strategy ladder for one file: text layer, OCR, vision.
type Extractor struct {
	llm    LLMClient
	ocr    OCRClient
	mode   Mode
	model  string // PARSE_MODEL override, empty for size-based selection
	logger *zap.Logger
}

// New creates an extractor from config.
func New(cfg config.ExtractionConfig, logger *zap.Logger) *Extractor {
	return &Extractor{
		llm:    NewLLMClient(cfg.VisionKey, cfg.BaseURL, cfg.CallTimeout),
		ocr:    NewOCRClient(cfg.OCRKey, cfg.OCRBaseURL, cfg.CallTimeout),
		mode:   Mode(cfg.Mode),
		model:  cfg.Model,
		logger: logger.Named("extraction"),
	}
}

// NewWithClients wires explicit collaborators; used by tests.
func NewWithClients(llm LLMClient, ocr OCRClient, mode Mode, model string, logger *zap.Logger) *Extractor {
	return &Extractor{llm: llm, ocr: ocr, mode: mode, model: model, logger: logger}
}

// Available reports whether the model vendor is configured.
func (e *Extractor) Available() bool {
	return e.llm.Available()
}

// ParseText sends already-extracted report text to the model and repairs the
// output. It satisfies report.ParseFunc, so tri-merge slices reuse it. With
// no originating file size to tier on, it uses the high-capability model.
func (e *Extractor) ParseText(ctx context.Context, text string) (*report.RawPayload, error) {
	return e.parseAs(ctx, modelFor(e.model, 0), text)
}

// parseAs sends report text to a specific model and repairs the output.
func (e *Extractor) parseAs(ctx context.Context, model, text string) (*report.RawPayload, error) {
	out, err := e.llm.CompleteText(ctx, model, text)
	if err != nil {
		return nil, err
	}
	return RepairJSON(out, e.logger)
}

// Extract converts one PDF into a result, never returning an error: on
// exhaustion of all strategies the result is a fallback with a user-safe
// reason.
func (e *Extractor) Extract(ctx context.Context, file File) Result {
	if !e.llm.Available() {
		return Fallback("document processing is not configured")
	}

	switch e.mode {
	case ModeOCR:
		if res, ok := e.tryOCR(ctx, file); ok {
			return res
		}
		return e.tryVision(ctx, file)
	case ModeVision:
		return e.tryVision(ctx, file)
	default: // auto
		if res, ok := e.tryTextLayer(ctx, file); ok {
			return res
		}
		if res, ok := e.tryOCR(ctx, file); ok {
			return res
		}
		return e.tryVision(ctx, file)
	}
}

// tryTextLayer extracts the embedded text layer and, when it passes the
// report-likeness check, parses it. ok is false when the ladder should fall
// through to the next strategy.
func (e *Extractor) tryTextLayer(ctx context.Context, file File) (Result, bool) {
	text, err := ExtractTextLayer(file.Data)
	if err != nil || !LooksLikeCreditReport(text) {
		if err != nil {
			e.logger.Debug("text layer unavailable", zap.String("file", file.Name), zap.Error(err))
		}
		return Result{}, false
	}

	payload, err := e.parseAs(ctx, modelFor(e.model, len(file.Data)), text)
	if err != nil {
		e.logger.Warn("text-layer parse failed, falling through",
			zap.String("file", file.Name), zap.Error(err))
		return Result{}, false
	}
	return Result{OK: true, Payload: payload, Text: text, Strategy: StrategyTextLayer}, true
}

// tryOCR submits the PDF to the OCR collaborator and parses the text when
// enough characters come back.
func (e *Extractor) tryOCR(ctx context.Context, file File) (Result, bool) {
	if !e.ocr.Available() {
		return Result{}, false
	}
	text, err := e.ocr.Recognize(ctx, file.Data)
	if err != nil || len(text) < minOCRChars {
		if err != nil {
			e.logger.Warn("ocr failed, falling through", zap.String("file", file.Name), zap.Error(err))
		}
		return Result{}, false
	}

	payload, err := e.parseAs(ctx, modelFor(e.model, len(file.Data)), text)
	if err != nil {
		e.logger.Warn("ocr-text parse failed, falling through",
			zap.String("file", file.Name), zap.Error(err))
		return Result{}, false
	}
	return Result{OK: true, Payload: payload, Text: text, Strategy: StrategyOCR}, true
}

// tryVision is the last resort: the model reads the PDF directly. There is no
// further fallback, so failures become the fallback result.
func (e *Extractor) tryVision(ctx context.Context, file File) Result {
	out, err := e.llm.CompleteVision(ctx, modelFor(e.model, len(file.Data)), file.Data)
	if err != nil {
		e.logger.Error("vision extraction failed", zap.String("file", file.Name), zap.Error(err))
		return Fallback(reasonFor(err))
	}
	payload, err := RepairJSON(out, e.logger)
	if err != nil {
		return Fallback(reasonFor(err))
	}
	return Result{OK: true, Payload: payload, Strategy: StrategyVision}
}

// reasonFor maps internal failures to user-safe reasons.
func reasonFor(err error) string {
	switch fault.KindOf(err) {
	case fault.ExtractionUnconfigured:
		return "document processing is not configured"
	case fault.JSONParse, fault.NoOutput:
		return "we could not read this document; please upload a clearer copy"
	case fault.LLMRefusal:
		return "this document could not be processed as a credit report"
	default:
		return "document processing is temporarily unavailable; please try again"
	}
}
