package server

import (
	"bytes"
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/blob"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/config"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/crm"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/dedupe"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/extraction"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/fault"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/letters"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/precheck"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/report"
)

// stubExtractor hands back one canned result per filename.
type stubExtractor struct {
	results     map[string]extraction.Result
	available   bool
	calls       atomic.Int32
	sawDeadline atomic.Bool
}

func (s *stubExtractor) Available() bool { return s.available }

func (s *stubExtractor) Extract(ctx context.Context, f extraction.File) extraction.Result {
	s.calls.Add(1)
	if _, ok := ctx.Deadline(); ok {
		s.sawDeadline.Store(true)
	}
	if res, ok := s.results[f.Name]; ok {
		return res
	}
	return extraction.Fallback("no canned result")
}

func (s *stubExtractor) ParseText(_ context.Context, _ string) (*report.RawPayload, error) {
	return nil, fault.New(fault.LLMTransport, "stub has no live model")
}

// stubUploader succeeds for every letter unless down.
type stubUploader struct {
	down  bool
	calls atomic.Int32
}

func (s *stubUploader) Available() bool { return !s.down }

func (s *stubUploader) UploadAll(_ context.Context, prefix string, set []letters.Letter) blob.UploadResult {
	s.calls.Add(1)
	res := blob.UploadResult{URLs: map[string]string{}, Errors: []string{}}
	if s.down {
		for range set {
			res.Errors = append(res.Errors, "Blob storage not configured")
		}
		res.FailedCount = len(set)
		return res
	}
	for _, l := range set {
		res.URLs[l.Filename] = "https://cdn.example.com/" + prefix + "/" + l.Filename
		res.UploadedCount++
	}
	res.OK = res.UploadedCount > 0
	return res
}

// stubNotifier records the last notification.
type stubNotifier struct {
	calls  atomic.Int32
	last   crm.Notification
	failed error
}

func (s *stubNotifier) Available() bool { return true }

func (s *stubNotifier) Notify(_ context.Context, _ crm.Contact, n crm.Notification) error {
	s.calls.Add(1)
	s.last = n
	return s.failed
}

// fundableResult is a canned extraction for a clean single-bureau Experian
// report that clears every funding gate.
func fundableResult(reportDate string) extraction.Result {
	text := "Experian credit report for JOHN SAMPLE, account balance details"
	return extraction.Result{
		OK:       true,
		Strategy: extraction.StrategyTextLayer,
		Text:     text,
		Payload: &report.RawPayload{Bureaus: map[string]*report.RawBureau{
			"experian": {
				Score:       float64(760),
				Utilization: float64(10),
				Names:       []string{"JOHN SAMPLE"},
				ReportDate:  reportDate,
				Tradelines: []report.RawTradeline{{
					Creditor: "Prime Card",
					Category: "revolving",
					Status:   "open",
					Balance:  float64(1000),
					Limit:    float64(10000),
					Opened:   "2020-01",
				}},
			},
		}},
	}
}

func pdfFile(name string) precheck.Upload {
	// Content varies by name so the duplicate-content gate stays quiet.
	return precheck.Upload{
		Name:        name,
		ContentType: "application/pdf",
		Data:        bytes.Repeat([]byte(name), precheck.MinFileSize/len(name)+1),
	}
}

func validRequest(files ...precheck.Upload) Request {
	return Request{
		Email:     "john@gmail.com",
		Phone:     "5551234567",
		FirstName: "John",
		LastName:  "Sample",
		DeviceID:  "dev-1",
		Files:     files,
	}
}

func newTestPipeline(ex Extractor, up Uploader, no Notifier, store dedupe.Store, identityOn bool) (*Pipeline, *dedupe.Cache) {
	cache := dedupe.New(store, zap.NewNop())
	redirect := config.RedirectConfig{
		FundableURL:    "https://results.example.com/funded",
		NotFundableURL: "https://results.example.com/repair",
	}
	return NewPipeline(ex, up, no, cache, redirect, identityOn, zap.NewNop()), cache
}

func recentDate() string {
	return time.Now().AddDate(0, 0, -3).Format("2006-01-02")
}

func TestPipeline_FundablePath(t *testing.T) {
	ex := &stubExtractor{available: true, results: map[string]extraction.Result{
		"report.pdf": fundableResult(recentDate()),
	}}
	up := &stubUploader{}
	no := &stubNotifier{}
	p, cache := newTestPipeline(ex, up, no, dedupe.NewMemoryStore(), true)

	resp := p.Run(context.Background(), validRequest(pdfFile("report.pdf")))

	require.True(t, resp.OK)
	assert.False(t, resp.Fallback)
	assert.NotEmpty(t, resp.RefID)

	require.NotNil(t, resp.Underwriting)
	assert.True(t, resp.Underwriting.Fundable)
	assert.Equal(t, report.Experian, resp.Underwriting.PrimaryBureau)

	require.NotNil(t, resp.Redirect)
	assert.Equal(t, dedupe.ResultFunding, resp.Redirect.ResultType)
	assert.Equal(t, "https://results.example.com/funded", resp.Redirect.ResultURL)
	assert.Equal(t, "https://results.example.com/funded?ref="+resp.RefID, resp.Redirect.AffiliateLink)
	assert.Equal(t, 30, resp.Redirect.DaysRemaining)

	require.NotNil(t, resp.Letters)
	assert.Equal(t, letters.FundableLetterCount, resp.Letters.UploadedCount)

	// The result is cached for returning lookups.
	hit := cache.Lookup(context.Background(), "john@gmail.com", "5551234567", "", "")
	require.NotNil(t, hit)
	assert.Equal(t, resp.RefID, hit.RefID)

	// CRM carries the letter field keys.
	assert.Equal(t, int32(1), no.calls.Load())
	assert.Equal(t, "fundable", no.last.Path)
	assert.Contains(t, no.last.LetterURLs, "funding_letter_inquiry_ex")
}

func TestPipeline_DedupeHitShortCircuits(t *testing.T) {
	ex := &stubExtractor{available: true}
	p, cache := newTestPipeline(ex, &stubUploader{}, &stubNotifier{}, dedupe.NewMemoryStore(), true)

	cache.Save(context.Background(), "john@gmail.com", "5551234567", "dev-1", dedupe.RedirectPayload{
		ResultType: dedupe.ResultRepair,
		LastUpload: time.Now(),
		RefID:      "ref-cached",
	})

	resp := p.Run(context.Background(), validRequest(pdfFile("report.pdf")))
	require.True(t, resp.OK)
	assert.True(t, resp.Deduped)
	assert.Equal(t, "ref-cached", resp.RefID)
	assert.Equal(t, int32(0), ex.calls.Load(), "cached results skip extraction entirely")
}

func TestPipeline_SubmittedRefHitsCache(t *testing.T) {
	ex := &stubExtractor{available: true}
	p, cache := newTestPipeline(ex, &stubUploader{}, &stubNotifier{}, dedupe.NewMemoryStore(), true)

	// Cached under a different applicant; only the reference id links them.
	cache.Save(context.Background(), "other@gmail.com", "5559990000", "other-dev", dedupe.RedirectPayload{
		ResultType: dedupe.ResultFunding,
		LastUpload: time.Now(),
		RefID:      "ref-shared",
	})

	req := validRequest(pdfFile("report.pdf"))
	req.Ref = "ref-shared"
	resp := p.Run(context.Background(), req)
	require.True(t, resp.OK)
	assert.True(t, resp.Deduped)
	assert.Equal(t, "ref-shared", resp.RefID)
	assert.Equal(t, int32(0), ex.calls.Load(), "a referred visitor skips extraction")
}

func TestPipeline_ForceReprocessBypassesCache(t *testing.T) {
	ex := &stubExtractor{available: true, results: map[string]extraction.Result{
		"report.pdf": fundableResult(recentDate()),
	}}
	p, cache := newTestPipeline(ex, &stubUploader{}, &stubNotifier{}, dedupe.NewMemoryStore(), true)

	cache.Save(context.Background(), "john@gmail.com", "5551234567", "dev-1", dedupe.RedirectPayload{
		ResultType: dedupe.ResultRepair,
		LastUpload: time.Now(),
		RefID:      "ref-cached",
	})

	req := validRequest(pdfFile("report.pdf"))
	req.ForceReprocess = true
	resp := p.Run(context.Background(), req)

	require.True(t, resp.OK)
	assert.False(t, resp.Deduped)
	assert.NotEqual(t, "ref-cached", resp.RefID)
	assert.Equal(t, int32(1), ex.calls.Load())
}

func TestPipeline_PrecheckRejection(t *testing.T) {
	p, _ := newTestPipeline(&stubExtractor{available: true}, &stubUploader{}, &stubNotifier{}, nil, true)

	resp := p.Run(context.Background(), validRequest(
		pdfFile("a.pdf"), pdfFile("b.pdf"), pdfFile("c.pdf"), pdfFile("d.pdf"),
	))
	assert.False(t, resp.OK)
	assert.Equal(t, string(fault.TooManyFiles), resp.ErrorKind)
}

func TestPipeline_NameMismatchRejected(t *testing.T) {
	ex := &stubExtractor{available: true, results: map[string]extraction.Result{
		"report.pdf": fundableResult(recentDate()),
	}}
	p, _ := newTestPipeline(ex, &stubUploader{}, &stubNotifier{}, nil, true)

	req := validRequest(pdfFile("report.pdf"))
	req.FirstName = "Jane"
	req.LastName = "Doe"
	resp := p.Run(context.Background(), req)

	assert.False(t, resp.OK)
	assert.Equal(t, string(fault.NameMismatch), resp.ErrorKind)
}

func TestPipeline_IdentityGateDisabled(t *testing.T) {
	ex := &stubExtractor{available: true, results: map[string]extraction.Result{
		"report.pdf": fundableResult(recentDate()),
	}}
	p, _ := newTestPipeline(ex, &stubUploader{}, &stubNotifier{}, nil, false)

	req := validRequest(pdfFile("report.pdf"))
	req.FirstName = "Jane"
	req.LastName = "Doe"
	resp := p.Run(context.Background(), req)
	assert.True(t, resp.OK, "gate off means mismatches pass")
}

func TestPipeline_OldReportRejected(t *testing.T) {
	old := time.Now().AddDate(0, 0, -45).Format("2006-01-02")
	ex := &stubExtractor{available: true, results: map[string]extraction.Result{
		"report.pdf": fundableResult(old),
	}}
	p, _ := newTestPipeline(ex, &stubUploader{}, &stubNotifier{}, nil, true)

	resp := p.Run(context.Background(), validRequest(pdfFile("report.pdf")))
	assert.False(t, resp.OK)
	assert.Equal(t, string(fault.ReportTooOld), resp.ErrorKind)
}

func TestPipeline_AllExtractionsFailDegrades(t *testing.T) {
	ex := &stubExtractor{available: true, results: map[string]extraction.Result{
		"report.pdf": extraction.Fallback("we could not read this document; please upload a clearer copy"),
	}}
	no := &stubNotifier{}
	p, _ := newTestPipeline(ex, &stubUploader{}, no, nil, true)

	resp := p.Run(context.Background(), validRequest(pdfFile("report.pdf")))
	require.True(t, resp.OK, "degraded runs stay on the 200 contract")
	assert.True(t, resp.Fallback)
	assert.Contains(t, resp.Error, "could not read")
	assert.Nil(t, resp.Underwriting)
	assert.Equal(t, int32(0), no.calls.Load())
}

func TestPipeline_StorageDownStillCompletes(t *testing.T) {
	ex := &stubExtractor{available: true, results: map[string]extraction.Result{
		"report.pdf": fundableResult(recentDate()),
	}}
	up := &stubUploader{down: true}
	no := &stubNotifier{}
	p, _ := newTestPipeline(ex, up, no, dedupe.NewMemoryStore(), true)

	resp := p.Run(context.Background(), validRequest(pdfFile("report.pdf")))

	require.True(t, resp.OK, "storage loss degrades, it does not abort")
	require.NotNil(t, resp.Letters)
	assert.False(t, resp.Letters.OK)
	assert.Equal(t, letters.FundableLetterCount, resp.Letters.FailedCount)
	assert.Contains(t, resp.Letters.Errors[0], "not configured")

	require.NotNil(t, resp.Redirect)
	assert.Equal(t, int32(1), no.calls.Load())
	assert.Empty(t, no.last.LetterURLs, "no uploaded URLs reach the CRM")
}

func TestPipeline_TriMergeAlongsideOthersRejected(t *testing.T) {
	tri := fundableResult(recentDate())
	tri.Text = "Experian Equifax TransUnion merged report, account balance"
	ex := &stubExtractor{available: true, results: map[string]extraction.Result{
		"tri.pdf":    tri,
		"single.pdf": fundableResult(recentDate()),
	}}
	p, _ := newTestPipeline(ex, &stubUploader{}, &stubNotifier{}, nil, true)

	resp := p.Run(context.Background(), validRequest(pdfFile("tri.pdf"), pdfFile("single.pdf")))
	assert.False(t, resp.OK)
	assert.Equal(t, string(fault.TriMergeWithMultiple), resp.ErrorKind)
}

func TestPipeline_StaleSlotRejectionSurfaces(t *testing.T) {
	newer := fundableResult(recentDate())
	older := fundableResult(time.Now().AddDate(0, 0, -10).Format("2006-01-02"))
	older.Text = "Experian credit report for JOHN SAMPLE, older pull"
	ex := &stubExtractor{available: true, results: map[string]extraction.Result{
		"new.pdf": newer,
		"old.pdf": older,
	}}
	p, _ := newTestPipeline(ex, &stubUploader{}, &stubNotifier{}, nil, true)

	resp := p.Run(context.Background(), validRequest(pdfFile("new.pdf"), pdfFile("old.pdf")))
	require.True(t, resp.OK)
	require.Len(t, resp.Rejections, 1)
	assert.Equal(t, report.ReasonStaleReport, resp.Rejections[0].Reason)
	assert.Equal(t, report.Experian, resp.Rejections[0].Bureau)
}

func TestAffiliateLink(t *testing.T) {
	assert.Equal(t, "https://x.test/r?ref=abc", affiliateLink("https://x.test/r", "abc"))
	assert.Equal(t, "https://x.test/r?v=1&ref=abc", affiliateLink("https://x.test/r?v=1", "abc"))
	assert.Empty(t, affiliateLink("", "abc"))
}

func TestPipeline_RepairPathLetterCount(t *testing.T) {
	res := fundableResult(recentDate())
	res.Payload.Bureaus["experian"].Score = float64(580)
	res.Payload.Bureaus["experian"].Negatives = float64(3)
	ex := &stubExtractor{available: true, results: map[string]extraction.Result{"report.pdf": res}}
	no := &stubNotifier{}
	p, _ := newTestPipeline(ex, &stubUploader{}, no, nil, true)

	resp := p.Run(context.Background(), validRequest(pdfFile("report.pdf")))
	require.True(t, resp.OK)
	require.NotNil(t, resp.Underwriting)
	assert.False(t, resp.Underwriting.Fundable)
	assert.Equal(t, dedupe.ResultRepair, resp.Redirect.ResultType)
	assert.Equal(t, letters.RepairLetterCount, resp.Letters.UploadedCount)
	assert.Equal(t, "repair", no.last.Path)
	assert.True(t, strings.HasPrefix(resp.Redirect.ResultURL, "https://results.example.com/repair"))
}
