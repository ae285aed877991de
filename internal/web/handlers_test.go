package web

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recordconv/internal/config"
	"recordconv/internal/core"
)

const sampleCSV = `Name,Address,Postcode,Phone,Credit Limit,Birthday
"Johnson, John",Voorstraat 32,3122gg,020 3849381,10000,01/01/1987
"Anderson, Paul",Dorpsplein 3A,4532 AA,030 3458986,109093,03/12/1965
`

const samplePRN = "Name            Address               Postcode Phone         Credit Limit Birthday\n" +
	"Johnson, John   Voorstraat 32         3122gg   020 3849381        1000000 19870101\n"

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			RequestTimeout: time.Minute,
		},
		Convert: config.ConvertConfig{
			MaxFileSize:  1 << 20,
			HistoryLimit: 50,
		},
		Rate: config.RateLimitConfig{Enabled: false},
	}
}

func newTestServer(cfg *config.Config) *Server {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(cfg, core.NewService(nil, nil, log))
}

// multipartBody builds a multipart form with one file field.
func multipartBody(t *testing.T, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	s := newTestServer(testConfig())

	req := httptest.NewRequest("GET", "/healthz", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(testConfig())

	req := httptest.NewRequest("GET", "/healthz", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
}

func TestConvertCSVToJSON(t *testing.T) {
	s := newTestServer(testConfig())

	body, contentType := multipartBody(t, "people.csv", sampleCSV)
	req := httptest.NewRequest("POST", "/api/convert?from=csv&to=json", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "2", rr.Header().Get("X-Record-Count"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "people.json")

	var parsed []map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &parsed))
	require.Len(t, parsed, 2)
	assert.Equal(t, "Johnson, John", parsed[0]["Name"])
	assert.Equal(t, "1987-01-01", parsed[0]["Birthday"])
}

func TestConvertRawBody(t *testing.T) {
	s := newTestServer(testConfig())

	req := httptest.NewRequest("POST", "/api/convert?from=csv&to=json&filename=raw.csv",
		strings.NewReader(sampleCSV))
	req.Header.Set("Content-Type", "text/csv")
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "2", rr.Header().Get("X-Record-Count"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "raw.json")
}

func TestConvertPRNToHTML(t *testing.T) {
	s := newTestServer(testConfig())

	body, contentType := multipartBody(t, "people.prn", samplePRN)
	req := httptest.NewRequest("POST", "/api/convert?from=prn&to=html", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "<td>10000.00</td>")
}

func TestConvertSemicolonDelimiter(t *testing.T) {
	s := newTestServer(testConfig())

	csv := "Name;Phone\nJane;030 1234567\n"
	body, contentType := multipartBody(t, "people.csv", csv)
	req := httptest.NewRequest("POST", "/api/convert?from=csv&to=json&delimiter=%3B", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"Phone":"0301234567"`)
}

func TestConvertUnknownFormat(t *testing.T) {
	s := newTestServer(testConfig())

	body, contentType := multipartBody(t, "people.csv", sampleCSV)
	req := httptest.NewRequest("POST", "/api/convert?from=xlsx&to=json", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "FMT001", resp.Code)
}

func TestConvertNoFile(t *testing.T) {
	s := newTestServer(testConfig())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/convert", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "FILE003", resp.Code)
}

func TestConvertInvalidDelimiter(t *testing.T) {
	s := newTestServer(testConfig())

	body, contentType := multipartBody(t, "people.csv", sampleCSV)
	req := httptest.NewRequest("POST", "/api/convert?delimiter=ab", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestJobLifecycle(t *testing.T) {
	s := newTestServer(testConfig())

	body, contentType := multipartBody(t, "people.csv", sampleCSV)
	req := httptest.NewRequest("POST", "/api/jobs?from=csv&to=json", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	var started map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &started))
	jobID := started["jobId"]
	require.NotEmpty(t, jobID)

	// Result blocks until the job completes.
	req = httptest.NewRequest("GET", "/api/jobs/"+jobID+"/result", nil)
	rr = httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "2", rr.Header().Get("X-Record-Count"))

	var parsed []map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &parsed))
	assert.Len(t, parsed, 2)

	// Progress snapshot after completion.
	req = httptest.NewRequest("GET", "/api/jobs/"+jobID+"/progress", nil)
	rr = httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var progress struct {
		Phase   string `json:"phase"`
		Records int    `json:"records"`
		Percent int    `json:"percent"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &progress))
	assert.Equal(t, "complete", progress.Phase)
	assert.Equal(t, 2, progress.Records)
	assert.Equal(t, 100, progress.Percent)
}

func TestJobFailure(t *testing.T) {
	s := newTestServer(testConfig())

	bad := "Name,Phone\n\"John,unterminated\n"
	req := httptest.NewRequest("POST", "/api/jobs?from=csv&to=json", strings.NewReader(bad))
	req.Header.Set("Content-Type", "text/csv")
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	var started map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &started))

	req = httptest.NewRequest("GET", "/api/jobs/"+started["jobId"]+"/result", nil)
	rr = httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "CSV001", resp.Code)
}

func TestJobsEmptyBody(t *testing.T) {
	s := newTestServer(testConfig())

	req := httptest.NewRequest("POST", "/api/jobs", strings.NewReader(""))
	req.Header.Set("Content-Type", "text/csv")
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "FILE002", resp.Code)
}

func TestJobNotFound(t *testing.T) {
	s := newTestServer(testConfig())

	for _, path := range []string{
		"/api/jobs/nope/progress",
		"/api/jobs/nope/result",
	} {
		req := httptest.NewRequest("GET", path, nil)
		rr := httptest.NewRecorder()
		s.Router().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code, path)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "JOB001", resp.Code, path)
	}

	req := httptest.NewRequest("POST", "/api/jobs/nope/cancel", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestFormats(t *testing.T) {
	s := newTestServer(testConfig())

	req := httptest.NewRequest("GET", "/api/formats", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string][]formatInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	inputKeys := make([]string, 0)
	for _, f := range resp["input"] {
		inputKeys = append(inputKeys, f.Key)
	}
	outputKeys := make([]string, 0)
	for _, f := range resp["output"] {
		outputKeys = append(outputKeys, f.Key)
	}

	assert.Equal(t, []string{"csv", "prn"}, inputKeys)
	assert.Equal(t, []string{"html", "json"}, outputKeys)
}

func TestHistoryWithoutDatabase(t *testing.T) {
	s := newTestServer(testConfig())

	req := httptest.NewRequest("GET", "/api/history", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Enabled bool              `json:"enabled"`
		Entries []json.RawMessage `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Enabled)
	assert.Empty(t, resp.Entries)
}

func TestConvertRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: 100,
		ConvertLimit:      2,
	}
	s := newTestServer(cfg)

	var lastCode int
	for i := 0; i < 3; i++ {
		body, contentType := multipartBody(t, "people.csv", sampleCSV)
		req := httptest.NewRequest("POST", "/api/convert", body)
		req.Header.Set("Content-Type", contentType)
		rr := httptest.NewRecorder()
		s.Router().ServeHTTP(rr, req)
		lastCode = rr.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, lastCode)
}
