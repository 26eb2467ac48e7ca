package server

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"taskflow/internal/domain/errors"

	"github.com/gin-gonic/gin"
)

type gzipBody struct {
	io.Reader
	gzipReader io.Closer
	bodyCloser io.Closer
}

func (b *gzipBody) Close() error {
	var err1, err2 error
	if b.gzipReader != nil {
		err1 = b.gzipReader.Close()
	}
	if b.bodyCloser != nil {
		err2 = b.bodyCloser.Close()
	}
	if err1 != nil {
		return err1
	}
	return err2
}

// GzipRequestDecompress transparently inflates gzip-encoded request bodies
// so handlers always see plain JSON.
func GzipRequestDecompress() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		encoding := strings.ToLower(ctx.GetHeader("Content-Encoding"))
		if strings.Contains(encoding, "gzip") {
			gr, err := gzip.NewReader(ctx.Request.Body)
			if err != nil {
				ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": errors.ErrInvalidGzipRequest.Error()})
				return
			}

			ctx.Request.Body = &gzipBody{
				Reader:     gr,
				gzipReader: gr,
				bodyCloser: ctx.Request.Body,
			}

			ctx.Request.Header.Del("Content-Encoding")
			ctx.Request.Header.Del("Content-Length")
		}
		ctx.Next()
	}
}

type gzipResponseWriter struct {
	gin.ResponseWriter
	gw *gzip.Writer
}

func (w *gzipResponseWriter) Write(data []byte) (int, error) {
	n, err := w.gw.Write(data)
	if err != nil {
		return n, errors.ErrGzipCompressionFailed
	}
	return n, nil
}

func (w *gzipResponseWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *gzipResponseWriter) Flush() {
	_ = w.gw.Flush()
	w.ResponseWriter.Flush()
}

// GzipResponseCompress compresses response bodies for clients that accept
// gzip. Header writes must go through the wrapped writer before any body
// bytes, which gin's JSON renderer guarantees.
func GzipResponseCompress() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method == http.MethodHead {
			ctx.Next()
			return
		}

		acceptEnc := strings.ToLower(ctx.GetHeader("Accept-Encoding"))
		if !strings.Contains(acceptEnc, "gzip") {
			ctx.Next()
			return
		}

		ctx.Writer.Header().Set("Content-Encoding", "gzip")
		ctx.Writer.Header().Set("Vary", "Accept-Encoding")
		ctx.Writer.Header().Del("Content-Length")

		gw := gzip.NewWriter(ctx.Writer)
		wrapped := &gzipResponseWriter{ResponseWriter: ctx.Writer, gw: gw}
		ctx.Writer = wrapped

		ctx.Next()

		if err := gw.Close(); err != nil {
			_ = ctx.Error(errors.ErrGzipCompressionFailed)
		}
	}
}
