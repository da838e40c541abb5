package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/blob"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/config"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/crm"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/dedupe"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/extraction"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/fault"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/identity"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/letters"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/logging"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/precheck"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/report"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/suggest"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/underwrite"
)

// maxParallelExtractions caps concurrent model calls per request.
const maxParallelExtractions = 3

// Pipeline stages, logged as each request advances.
const (
	stageReceived   = "received"
	stageDeduped    = "deduped"
	stagePrechecked = "prechecked"
	stageExtracted  = "extracted"
	stageMerged     = "merged"
	stageVerified   = "verified"
	stageDecided    = "decided"
	stageRendered   = "rendered"
	stageUploaded   = "uploaded"
	stageDone       = "done"
)

// Extractor converts PDFs to raw bureau payloads.
type Extractor interface {
	Available() bool
	Extract(ctx context.Context, f extraction.File) extraction.Result
	ParseText(ctx context.Context, text string) (*report.RawPayload, error)
}

// Uploader stores the generated letter set.
type Uploader interface {
	Available() bool
	UploadAll(ctx context.Context, prefix string, set []letters.Letter) blob.UploadResult
}

// Notifier pushes results to the CRM.
type Notifier interface {
	Available() bool
	Notify(ctx context.Context, contact crm.Contact, n crm.Notification) error
}

// Request is one switchboard submission after form validation.
type Request struct {
	Email             string
	Phone             string
	FirstName         string
	LastName          string
	Address           string
	DeviceID          string
	Ref               string
	BusinessAgeMonths *int
	ForceReprocess    bool
	Files             []precheck.Upload
}

// Response is the switchboard result. The transport contract is HTTP 200 for
// every settled outcome: rejections set OK=false with an error kind, degraded
// runs set OK=true with Fallback=true, dedupe hits set Deduped=true.
type Response struct {
	OK           bool                    `json:"ok"`
	Fallback     bool                    `json:"fallback,omitempty"`
	Deduped      bool                    `json:"deduped,omitempty"`
	ErrorKind    string                  `json:"errorKind,omitempty"`
	Error        string                  `json:"error,omitempty"`
	File         string                  `json:"file,omitempty"`
	RefID        string                  `json:"refId,omitempty"`
	Redirect     *dedupe.RedirectPayload `json:"redirect,omitempty"`
	Underwriting *underwrite.Result      `json:"underwriting,omitempty"`
	Suggestions  *suggest.Suggestions    `json:"suggestions,omitempty"`
	Letters      *blob.UploadResult      `json:"letters,omitempty"`
	Warnings     []string                `json:"warnings,omitempty"`
	Rejections   []report.Rejection      `json:"rejections,omitempty"`
}

// Pipeline runs a submission end to end.
type Pipeline struct {
	extractor       Extractor
	uploader        Uploader
	notifier        Notifier
	cache           *dedupe.Cache
	redirect        config.RedirectConfig
	identityEnabled bool
	logger          *zap.Logger
	now             func() time.Time
}

// NewPipeline wires the pipeline's collaborators.
func NewPipeline(extractor Extractor, uploader Uploader, notifier Notifier, cache *dedupe.Cache,
	redirect config.RedirectConfig, identityEnabled bool, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		extractor:       extractor,
		uploader:        uploader,
		notifier:        notifier,
		cache:           cache,
		redirect:        redirect,
		identityEnabled: identityEnabled,
		logger:          logger.Named("pipeline"),
		now:             time.Now,
	}
}

// Run processes one submission.
func (p *Pipeline) Run(ctx context.Context, req Request) *Response {
	started := p.now()
	log := p.logger.With(
		logging.Email("email", req.Email),
		logging.Phone("phone", req.Phone),
		zap.Int("files", len(req.Files)),
	)
	log.Info("submission received", zap.String("stage", stageReceived))

	outcome := "complete"
	defer func() {
		pipelineDuration.WithLabelValues(outcome).Observe(p.now().Sub(started).Seconds())
	}()

	// Returning applicants skip processing entirely unless they force it.
	if !req.ForceReprocess {
		if hit := p.cache.Lookup(ctx, req.Email, req.Phone, req.DeviceID, req.Ref); hit != nil {
			dedupeHits.Inc()
			outcome = "deduped"
			log.Info("returning applicant, redirecting", zap.String("stage", stageDeduped),
				zap.String("ref_id", hit.RefID))
			return &Response{OK: true, Deduped: true, RefID: hit.RefID, Redirect: hit}
		}
	}

	if ferr := precheck.Validate(req.Files); ferr != nil {
		outcome = "rejected"
		return p.reject(log, ferr)
	}
	log.Debug("precheck passed", zap.String("stage", stagePrechecked))

	results, ferr := p.extractAll(ctx, req.Files)
	if ferr != nil {
		outcome = "rejected"
		return p.reject(log, ferr)
	}
	log.Info("extraction finished", zap.String("stage", stageExtracted))

	profile, warnings, reason := p.merge(ctx, results)
	if profile == nil {
		outcome = "fallback"
		log.Warn("no bureau data recovered, degrading", zap.String("reason", reason))
		return &Response{OK: true, Fallback: true, Error: reason}
	}
	log.Info("profile merged", zap.String("stage", stageMerged),
		zap.Int("bureaus", len(profile.Records)), zap.Int("rejections", len(profile.Rejections)))

	if ferr := p.verifyIdentity(req, profile); ferr != nil {
		outcome = "rejected"
		return p.reject(log, ferr)
	}
	log.Debug("identity verified", zap.String("stage", stageVerified))

	decision := p.decide(*profile, req.BusinessAgeMonths)
	advice := p.advise(*profile, decision)
	log.Info("underwriting decided", zap.String("stage", stageDecided),
		zap.Bool("fundable", decision.Fundable), zap.String("primary", string(decision.PrimaryBureau)))

	path := letters.PathRepair
	resultType := dedupe.ResultRepair
	resultURL := p.redirect.NotFundableURL
	if decision.Fundable {
		path = letters.PathFundable
		resultType = dedupe.ResultFunding
		resultURL = p.redirect.FundableURL
	}

	refID := uuid.NewString()

	set, err := letters.Generate(path, *profile, letters.Identity{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Address:   req.Address,
	}, p.now())
	if err != nil {
		log.Error("letter generation failed", zap.Error(err))
		set = nil
	} else {
		lettersGenerated.WithLabelValues(string(path)).Add(float64(len(set)))
	}
	log.Info("letters rendered", zap.String("stage", stageRendered), zap.Int("count", len(set)))

	uploads := p.uploader.UploadAll(ctx, "letters/"+refID, set)
	log.Info("letters uploaded", zap.String("stage", stageUploaded),
		zap.Int("uploaded", uploads.UploadedCount), zap.Int("failed", uploads.FailedCount))

	payload := dedupe.RedirectPayload{
		ResultType:    resultType,
		ResultURL:     resultURL,
		Suggestions:   advice,
		LastUpload:    p.now(),
		DaysRemaining: 30,
		RefID:         refID,
		AffiliateLink: affiliateLink(resultURL, refID),
	}
	p.cache.Save(ctx, req.Email, req.Phone, req.DeviceID, payload)

	p.notify(ctx, log, req, path, refID, payload, decision, advice, set, uploads)
	log.Info("submission complete", zap.String("stage", stageDone), zap.String("ref_id", refID))

	warnings = append(warnings, profile.Warnings...)
	return &Response{
		OK:           true,
		RefID:        refID,
		Redirect:     &payload,
		Underwriting: &decision,
		Suggestions:  &advice,
		Letters:      &uploads,
		Warnings:     warnings,
		Rejections:   profile.Rejections,
	}
}

// reject turns a gate failure into the rejected response shape.
func (p *Pipeline) reject(log *zap.Logger, ferr *fault.Error) *Response {
	rejectionsTotal.WithLabelValues(string(ferr.Kind)).Inc()
	log.Info("submission rejected",
		zap.String("kind", string(ferr.Kind)), zap.String("file", ferr.File), zap.Error(ferr))
	return &Response{
		OK:        false,
		ErrorKind: string(ferr.Kind),
		Error:     ferr.Error(),
		File:      ferr.File,
	}
}

// extractAll runs extraction for every file in parallel and applies the
// tri-merge-with-multiple gate over the recovered texts.
func (p *Pipeline) extractAll(ctx context.Context, files []precheck.Upload) ([]extraction.Result, *fault.Error) {
	results := make([]extraction.Result, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelExtractions)
	for i, f := range files {
		g.Go(func() error {
			res := p.extractor.Extract(gctx, extraction.File{Name: f.Name, Data: f.Data})
			if res.OK {
				extractionStrategies.WithLabelValues(string(res.Strategy)).Inc()
			} else {
				extractionStrategies.WithLabelValues("fallback").Inc()
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	if ferr := precheck.CheckTriMergeMulti(texts, len(files)); ferr != nil {
		return nil, ferr
	}
	return results, nil
}

// merge ingests every successful extraction into the bureau slot set. A nil
// profile means nothing was recovered; reason then carries the first
// extraction failure's user-safe message.
func (p *Pipeline) merge(ctx context.Context, results []extraction.Result) (*report.Profile, []string, string) {
	slots := report.NewSlotSet()
	var warnings []string
	reason := ""
	merged := false

	for _, res := range results {
		if !res.OK {
			if reason == "" {
				reason = res.Reason
			}
			continue
		}

		records, docWarnings, err := report.IngestText(ctx, res.Text, p.memoizedParse(res))
		for _, w := range docWarnings {
			warnings = append(warnings, w)
			slots.AddWarning(w)
		}
		if err != nil {
			p.logger.Warn("ingestion failed for one document", zap.Error(err))
			continue
		}
		for _, rec := range records {
			slots.Enforce(rec)
			merged = true
		}
	}

	if !merged {
		if reason == "" {
			reason = "we could not read any bureau data from the uploaded documents"
		}
		return nil, warnings, reason
	}
	profile := slots.Profile()
	return &profile, warnings, ""
}

// memoizedParse serves the already-extracted payload for the whole-document
// text and defers to the model only for tri-merge slices. Vision results
// carry no text, so every input resolves to the cached payload.
func (p *Pipeline) memoizedParse(res extraction.Result) report.ParseFunc {
	return func(ctx context.Context, text string) (*report.RawPayload, error) {
		if text == res.Text {
			return res.Payload, nil
		}
		return p.extractor.ParseText(ctx, text)
	}
}

// verifyIdentity applies the name-match and freshness gates.
func (p *Pipeline) verifyIdentity(req Request, profile *report.Profile) *fault.Error {
	if !p.identityEnabled {
		return nil
	}

	if names := profile.AllNames(); len(names) > 0 {
		if !identity.MatchName(req.FirstName, req.LastName, names) {
			return fault.New(fault.NameMismatch,
				"the name on the report does not match the submitted name")
		}
	}

	var dates []time.Time
	for _, rec := range profile.Records {
		if t, ok := rec.ReportTime(); ok {
			dates = append(dates, t)
		}
	}
	return identity.CheckFreshness(dates, p.now())
}

// decide runs underwriting, degrading to the fallback decision if it panics.
func (p *Pipeline) decide(profile report.Profile, businessAge *int) (result underwrite.Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("underwriting panicked, using fallback",
				zap.Any("panic", r), zap.String("kind", string(fault.UnderwriteCrash)))
			result = underwrite.FallbackResult()
		}
	}()
	return underwrite.Evaluate(profile, businessAge, p.now())
}

// advise builds suggestions, degrading to the empty set if it panics.
func (p *Pipeline) advise(profile report.Profile, decision underwrite.Result) (s suggest.Suggestions) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("suggestion building panicked, using empty set",
				zap.Any("panic", r), zap.String("kind", string(fault.SuggestionCrash)))
			s = suggest.Empty()
		}
	}()
	return suggest.Build(profile, decision)
}

// notify pushes the finished result to the CRM. Failures are logged only.
func (p *Pipeline) notify(ctx context.Context, log *zap.Logger, req Request, path letters.Path,
	refID string, payload dedupe.RedirectPayload, decision underwrite.Result,
	advice suggest.Suggestions, set []letters.Letter, uploads blob.UploadResult) {

	letterURLs := make(map[string]string, len(set))
	for _, l := range set {
		if url, ok := uploads.URLs[l.Filename]; ok {
			letterURLs[l.FieldKey] = url
		}
	}

	err := p.notifier.Notify(ctx, crm.Contact{
		Email:     req.Email,
		Phone:     req.Phone,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}, crm.Notification{
		Path:          string(path),
		RefID:         refID,
		ResultURL:     payload.AffiliateLink,
		BannerFunding: decision.BannerFunding,
		TotalFunding:  decision.TotalCombinedFunding,
		LetterURLs:    letterURLs,
		EmailSummary:  advice.EmailSummary,
	})
	if err != nil {
		log.Warn("crm notification failed", zap.Error(err))
	}
}

// affiliateLink appends the result reference to the redirect target.
func affiliateLink(resultURL, refID string) string {
	if resultURL == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(resultURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%sref=%s", resultURL, sep, refID)
}
