// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package convert

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/partforge/partforge/kernel"
	"github.com/partforge/partforge/lib/fault"
	"github.com/partforge/partforge/lib/metrics"
)

// Multipart form caps, independent of the file-size cap.
const (
	// maxFormMemory bounds the in-memory portion of the parsed form.
	maxFormMemory = 16 << 20

	// maxFormFields caps the number of non-file fields.
	maxFormFields = 8

	// formOverheadBytes allows for multipart framing and the small
	// numeric fields around the file itself.
	formOverheadBytes = 1 << 20
)

// successResponse is the 200 body of POST /api/convert.
type successResponse struct {
	Success  bool         `json:"success"`
	Filename string       `json:"filename"`
	Data     responseData `json:"data"`
}

type responseData struct {
	VertProperties []float64  `json:"vertProperties"`
	TriVerts       []uint32   `json:"triVerts"`
	NumProp        int        `json:"numProp"`
	Volume         float64    `json:"volume"`
	BoundingBox    kernel.Box `json:"boundingBox"`
}

// errorResponse is the 422 body. Details carries the fault message
// only; server-side diagnostic detail never leaves the process.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details"`
}

// Handler serves POST /api/convert: multipart form with a single
// "model" file and optional "deflection"/"tolerance" fields.
func Handler(pipeline *Pipeline, m *metrics.Metrics, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		output, filename, err := handleConvert(pipeline, w, r)
		if err != nil {
			code := fault.ScriptRuntimeError
			status := http.StatusInternalServerError
			message := "internal error"

			var fe *fault.Error
			if errors.As(err, &fe) {
				code = fe.Code
				status = http.StatusUnprocessableEntity
				message = fe.Message
				if fe.Detail != "" {
					logger.Warn("conversion failed", "code", code, "detail", fe.Detail)
				} else {
					logger.Warn("conversion failed", "code", code, "error", message)
				}
			} else {
				logger.Error("conversion failed", "error", err)
			}
			if m != nil {
				m.ObserveConversion(string(code), time.Since(start))
			}
			writeJSON(w, status, errorResponse{Error: string(code), Details: message})
			return
		}

		if m != nil {
			m.ObserveConversion("ok", time.Since(start))
		}
		writeJSON(w, http.StatusOK, successResponse{
			Success:  true,
			Filename: filename,
			Data: responseData{
				VertProperties: output.Mesh.VertProperties,
				TriVerts:       output.Mesh.TriVerts,
				NumProp:        output.Mesh.NumProp,
				Volume:         output.Volume,
				BoundingBox:    output.BoundingBox,
			},
		})
	}
}

func handleConvert(pipeline *Pipeline, w http.ResponseWriter, r *http.Request) (*Output, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes+formOverheadBytes)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return nil, "", fault.Errorf(fault.InvalidParameter, "parsing multipart form: %v", err)
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	if len(r.MultipartForm.Value) > maxFormFields {
		return nil, "", fault.Errorf(fault.InvalidParameter,
			"too many form fields: %d", len(r.MultipartForm.Value))
	}
	files := r.MultipartForm.File["model"]
	if len(files) != 1 {
		return nil, "", fault.Errorf(fault.InvalidParameter,
			"exactly one model file is required, got %d", len(files))
	}

	params := Params{
		Deflection: formFloat(r, "deflection"),
		Tolerance:  formFloat(r, "tolerance"),
	}

	file, err := files[0].Open()
	if err != nil {
		return nil, "", fault.Errorf(fault.InvalidParameter, "opening upload: %v", err)
	}
	defer file.Close()

	output, err := pipeline.Convert(r.Context(), files[0].Filename, file, params)
	if err != nil {
		return nil, "", err
	}
	return output, files[0].Filename, nil
}

// formFloat reads a numeric form field. Absent or unparsable values
// return zero, which Params.Clamped turns into the default.
func formFloat(r *http.Request, name string) float64 {
	raw := r.FormValue(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
