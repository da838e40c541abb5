package server

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/extraction"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/precheck"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/report"
)

// switchboardTimeout bounds one full pipeline run, extraction included.
const switchboardTimeout = 300 * time.Second

// handleSwitchboard runs the full pipeline for a multipart submission.
// Every settled outcome is HTTP 200; the body's ok/fallback/errorKind fields
// carry the verdict.
func (s *Server) handleSwitchboard(c echo.Context) error {
	form := applicantForm{
		Email:     strings.TrimSpace(c.FormValue("email")),
		Phone:     strings.TrimSpace(c.FormValue("phone")),
		FirstName: strings.TrimSpace(c.FormValue("firstName")),
		LastName:  strings.TrimSpace(c.FormValue("lastName")),
	}
	if err := validate.Struct(form); err != nil {
		return c.JSON(http.StatusOK, &Response{
			OK:        false,
			ErrorKind: "invalid_input",
			Error:     fieldReason(err),
		})
	}

	req := Request{
		Email:          form.Email,
		Phone:          form.Phone,
		FirstName:      form.FirstName,
		LastName:       form.LastName,
		Address:        strings.TrimSpace(c.FormValue("address")),
		DeviceID:       strings.TrimSpace(c.FormValue("deviceId")),
		Ref:            strings.TrimSpace(c.FormValue("ref")),
		ForceReprocess: c.FormValue("forceReprocess") == "true",
	}
	if v := strings.TrimSpace(c.FormValue("businessAgeMonths")); v != "" {
		months, err := strconv.Atoi(v)
		if err != nil || months < 0 {
			return c.JSON(http.StatusOK, &Response{
				OK:        false,
				ErrorKind: "invalid_input",
				Error:     "businessAgeMonths: must be a non-negative integer",
			})
		}
		req.BusinessAgeMonths = &months
	}

	uploads, err := readUploads(c)
	if err != nil {
		return c.JSON(http.StatusOK, &Response{
			OK:        false,
			ErrorKind: "invalid_input",
			Error:     "could not read uploaded files",
		})
	}
	req.Files = uploads

	ctx, cancel := context.WithTimeout(c.Request().Context(), switchboardTimeout)
	defer cancel()
	return c.JSON(http.StatusOK, s.pipeline.Run(ctx, req))
}

// parseReportResponse is the standalone extraction result.
type parseReportResponse struct {
	OK       bool                  `json:"ok"`
	Strategy extraction.Strategy   `json:"strategy,omitempty"`
	Reason   string                `json:"reason,omitempty"`
	Bureaus  []report.BureauRecord `json:"bureaus,omitempty"`
	Warnings []string              `json:"warnings,omitempty"`
}

// handleParseReport extracts and normalizes a single report without running
// underwriting. Used by partners to inspect what the parser sees.
func (s *Server) handleParseReport(c echo.Context) error {
	uploads, err := readUploads(c)
	if err != nil || len(uploads) != 1 {
		return c.JSON(http.StatusOK, &Response{
			OK:        false,
			ErrorKind: "invalid_input",
			Error:     "exactly one PDF is required",
		})
	}
	if ferr := precheck.Validate(uploads); ferr != nil {
		return c.JSON(http.StatusOK, &Response{
			OK:        false,
			ErrorKind: string(ferr.Kind),
			Error:     ferr.Error(),
			File:      ferr.File,
		})
	}

	ctx := c.Request().Context()
	u := uploads[0]
	res := s.extractor.Extract(ctx, extraction.File{Name: u.Name, Data: u.Data})
	if !res.OK {
		return c.JSON(http.StatusOK, parseReportResponse{OK: false, Reason: res.Reason})
	}

	records, warnings, err := report.IngestText(ctx, res.Text, s.pipeline.memoizedParse(res))
	if err != nil {
		return c.JSON(http.StatusOK, parseReportResponse{
			OK:       false,
			Reason:   "we could not read this document; please upload a clearer copy",
			Warnings: warnings,
		})
	}
	return c.JSON(http.StatusOK, parseReportResponse{
		OK:       true,
		Strategy: res.Strategy,
		Bureaus:  records,
		Warnings: warnings,
	})
}

// Field validator request shapes; bound from JSON or form bodies alike.
type nameRequest struct {
	FirstName string `json:"firstName" form:"firstName"`
	LastName  string `json:"lastName" form:"lastName"`
}

type emailRequest struct {
	Email string `json:"email" form:"email"`
}

type phoneRequest struct {
	Phone string `json:"phone" form:"phone"`
}

// validationResponse answers /validate-name and /validate-email: ok carries
// the verdict and error the reason, always at HTTP 200.
type validationResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// phoneResponse is the /validate-phone shape, which reports its reason as msg.
type phoneResponse struct {
	OK  bool   `json:"ok"`
	Msg string `json:"msg,omitempty"`
}

func (s *Server) handleValidateName(c echo.Context) error {
	var req nameRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusOK, validationResponse{OK: false, Error: "name is required"})
	}
	ok, reason := ValidName(strings.TrimSpace(req.FirstName))
	if ok {
		ok, reason = ValidName(strings.TrimSpace(req.LastName))
	}
	return c.JSON(http.StatusOK, validationResponse{OK: ok, Error: reason})
}

func (s *Server) handleValidateEmail(c echo.Context) error {
	var req emailRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusOK, validationResponse{OK: false, Error: "email is required"})
	}
	ok, reason := ValidEmail(req.Email)
	return c.JSON(http.StatusOK, validationResponse{OK: ok, Error: reason})
}

func (s *Server) handleValidatePhone(c echo.Context) error {
	var req phoneRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusOK, phoneResponse{OK: false, Msg: "phone is required"})
	}
	ok, reason := ValidPhone(req.Phone)
	return c.JSON(http.StatusOK, phoneResponse{OK: ok, Msg: reason})
}

// referralResponse is the referral-lookup hit shape.
type referralResponse struct {
	OK       bool `json:"ok"`
	Redirect any  `json:"redirect,omitempty"`
}

// handleReferralLookup resolves a result reference id back to its redirect
// payload, for shared result links. Unknown refs are a 404.
func (s *Server) handleReferralLookup(c echo.Context) error {
	ref := strings.TrimSpace(c.QueryParam("ref"))
	if ref != "" {
		if payload := s.cache.LookupRef(c.Request().Context(), ref); payload != nil {
			return c.JSON(http.StatusOK, referralResponse{OK: true, Redirect: payload})
		}
	}
	return c.JSON(http.StatusNotFound, referralResponse{OK: false})
}

// handleHealth reports process liveness and collaborator readiness.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":     "ok",
		"extraction": s.extractor.Available(),
		"storage":    s.uploader.Available(),
		"cache":      s.cache.Available(),
	})
}

// readUploads collects every multipart file part regardless of field name.
func readUploads(c echo.Context) ([]precheck.Upload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}

	var uploads []precheck.Upload
	for _, headers := range form.File {
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				return nil, err
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return nil, err
			}
			uploads = append(uploads, precheck.Upload{
				Name:        fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Data:        data,
			})
		}
	}
	return uploads, nil
}
