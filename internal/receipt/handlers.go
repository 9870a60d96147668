package receipt

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/budget-receipts/internal/extract"
	"github.com/zombor/budget-receipts/internal/scanning"
)

const (
	// phones produce large photos
	maxUploadSize = int64(50 << 20)
	maxTextSize   = int64(1 << 20)
)

// corsError writes a plain text error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// jsonError writes a JSON error response with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

// contentTypeFor guesses a MIME type from the file extension
func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// readUpload reads the receipt from a multipart "file" field or a JSON body
// with a data URI "image"
func readUpload(w http.ResponseWriter, r *http.Request) (filename string, data []byte, contentType string, ok bool) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if mediaType == "application/json" {
		var req struct {
			Image    string `json:"image"`
			Filename string `json:"filename"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "Invalid request body", http.StatusBadRequest)
			return "", nil, "", false
		}
		data, contentType, err := scanning.DecodeDataURI(req.Image)
		if err != nil {
			jsonError(w, "Invalid image data", http.StatusBadRequest)
			return "", nil, "", false
		}
		filename = req.Filename
		if filename == "" {
			filename = "receipt"
		}
		if contentType == "" {
			contentType = contentTypeFor(filename)
		}
		return filename, data, strings.ToLower(contentType), true
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return "", nil, "", false
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			errorMsg = "No file was selected. Please choose a file to upload."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return "", nil, "", false
	}
	defer f.Close()

	data, err = io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return "", nil, "", false
	}

	contentType = header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeFor(header.Filename)
	}
	// HEIC/HEIF types are kept so the converter can detect them
	return header.Filename, data, strings.ToLower(strings.TrimSpace(contentType)), true
}

// handleScanReceipt scans an uploaded receipt and returns the draft
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	filename, data, contentType, ok := readUpload(w, r)
	if !ok {
		return
	}

	scan, err := s.service.ScanReceipt(r.Context(), filename, data, contentType, nil)
	if err != nil {
		slog.Error("Error scanning receipt", "filename", filename, "error", err)
		if errors.Is(err, scanning.ErrOCRFailed) {
			jsonError(w, scanning.ErrOCRFailed.Error(), http.StatusUnprocessableEntity)
			return
		}
		jsonError(w, "Error scanning receipt", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, scan)
}

// handleSaveReceipt saves a reviewed draft as a transaction
func (s *Server) handleSaveReceipt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScanID  string              `json:"scan_id"`
		Receipt extract.ReceiptData `json:"receipt"`
	}

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTextSize)).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	transaction, items, err := s.service.SaveReceipt(r.Context(), req.ScanID, req.Receipt)
	switch {
	case errors.Is(err, ErrNotFound):
		jsonError(w, "Scan not found", http.StatusNotFound)
		return
	case errors.Is(err, ErrInvalidReceipt):
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		slog.Error("Error saving receipt", "scan_id", req.ScanID, "error", err)
		jsonError(w, "Error saving receipt", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"transaction": transaction,
		"items":       items,
	})
}

// handleExtractText runs the extractors over plain OCR text
func (s *Server) handleExtractText(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTextSize))
	if err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, s.service.ExtractText(string(body)))
}

// handleListTransactions returns all transactions, newest first
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := s.service.ListTransactions()
	if err != nil {
		slog.Error("Error listing transactions", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, transactions)
}

// handleGetTransaction returns a transaction with its items
func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	transaction, items, err := s.service.GetTransaction(id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Error("Error getting transaction", "id", id, "error", err)
		}
		corsError(w, "Transaction not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transaction": transaction,
		"items":       items,
	})
}

// handleGetReceiptFile returns the receipt image of a transaction
func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetReceiptFile(r.Context(), r.PathValue("id"))
	if err != nil {
		corsError(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteTransaction deletes a transaction
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			corsError(w, "Transaction not found", http.StatusNotFound)
			return
		}
		corsError(w, "Error deleting transaction", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
