package responses

import (
	"fmt"
	"log"
	"net/http"
	"os"
)

func WritePDFBytesWithFilename(w http.ResponseWriter, filename string, PDFBytes []byte) {
	WritePDFResponseHeaders(w, filename)
	_, err := w.Write(PDFBytes)
	if err != nil {
		log.Printf("[ERROR] writing PDF to response: %v", err)
	}
}

// WritePDFResponseHeaders write HTTP response headers for PDF response. i.e. headers are frozen
func WritePDFResponseHeaders(w http.ResponseWriter, filename string) {
	setPDFHeaders(w, filename)
	w.WriteHeader(http.StatusOK) // Response Header Sent & Frozen
}

func setPDFHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

// ServePDFFile streams a PDF from disk with Range and If-Modified-Since support.
// The caller closes f.
func ServePDFFile(w http.ResponseWriter, r *http.Request, filename string, f *os.File) {
	info, err := f.Stat()
	if err != nil {
		WriteSimpleErrorJSON(w, http.StatusInternalServerError, "cannot read output")
		return
	}
	setPDFHeaders(w, filename)
	http.ServeContent(w, r, filename, info.ModTime(), f)
}
