package server

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func gzipped(t *testing.T, data string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write([]byte(data))
	assert.NoError(t, err)
	assert.NoError(t, gw.Close())
	return &buf
}

func TestGzipRequestDecompress(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		body     io.Reader
		encoding string
		want     struct {
			statusCode int
			echoed     string
		}
	}{
		{
			name:     "gzip body is inflated",
			body:     gzipped(t, `{"message":"hello"}`),
			encoding: "gzip",
			want: struct {
				statusCode int
				echoed     string
			}{
				statusCode: 200,
				echoed:     `{"message":"hello"}`,
			},
		},
		{
			name:     "plain body passes through",
			body:     bytes.NewBufferString(`{"message":"hello"}`),
			encoding: "",
			want: struct {
				statusCode int
				echoed     string
			}{
				statusCode: 200,
				echoed:     `{"message":"hello"}`,
			},
		},
		{
			name:     "corrupt gzip body rejected",
			body:     bytes.NewBufferString("not gzip at all"),
			encoding: "gzip",
			want: struct {
				statusCode int
				echoed     string
			}{
				statusCode: 400,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(GzipRequestDecompress())
			router.POST("/echo", func(ctx *gin.Context) {
				data, err := io.ReadAll(ctx.Request.Body)
				assert.NoError(t, err)
				ctx.String(http.StatusOK, string(data))
			})

			req, _ := http.NewRequest("POST", "/echo", tt.body)
			if tt.encoding != "" {
				req.Header.Set("Content-Encoding", tt.encoding)
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.want.statusCode, w.Code)
			if tt.want.echoed != "" {
				assert.Equal(t, tt.want.echoed, w.Body.String())
			}
		})
	}
}

func TestGzipResponseCompress(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(GzipResponseCompress())
	router.GET("/data", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"message": "compressed payload"})
	})

	t.Run("client accepts gzip", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/data", nil)
		req.Header.Set("Accept-Encoding", "gzip")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, 200, w.Code)
		assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

		gr, err := gzip.NewReader(w.Body)
		assert.NoError(t, err)
		defer gr.Close()
		data, err := io.ReadAll(gr)
		assert.NoError(t, err)
		assert.Contains(t, string(data), "compressed payload")
	})

	t.Run("client does not accept gzip", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/data", nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, 200, w.Code)
		assert.Empty(t, w.Header().Get("Content-Encoding"))
		assert.Contains(t, w.Body.String(), "compressed payload")
	})

	t.Run("HEAD is never compressed", func(t *testing.T) {
		router := gin.New()
		router.Use(GzipResponseCompress())
		router.HEAD("/data", func(ctx *gin.Context) {
			ctx.Status(http.StatusOK)
		})

		req, _ := http.NewRequest("HEAD", "/data", nil)
		req.Header.Set("Accept-Encoding", "gzip")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, 200, w.Code)
		assert.Empty(t, w.Header().Get("Content-Encoding"))
	})
}
