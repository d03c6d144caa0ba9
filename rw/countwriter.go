// Package rw has small io helpers.
package rw

import "io"

// CountWriter counts the bytes that reach the underlying writer
type CountWriter struct {
	io.Writer // [Embedded]
	n         int64
}

func NewCountWriter(w io.Writer) *CountWriter {
	return &CountWriter{Writer: w}
}

// Write implements io.Writer. Short writes count what was written.
func (cw *CountWriter) Write(p []byte) (int, error) {
	n, err := cw.Writer.Write(p)
	cw.n += int64(n)
	return n, err
}

// BytesWritten returns the total number of bytes written
func (cw *CountWriter) BytesWritten() int64 {
	return cw.n
}
