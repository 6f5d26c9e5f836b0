package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordFileDownload(t *testing.T) {
	okBefore := testutil.ToFloat64(fileDownloadsTotal.WithLabelValues("success"))
	errBefore := testutil.ToFloat64(fileDownloadsTotal.WithLabelValues("error"))
	bytesBefore := testutil.ToFloat64(bytesDownloaded)

	RecordFileDownload(128, true)
	RecordFileDownload(0, false)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(fileDownloadsTotal.WithLabelValues("success")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(fileDownloadsTotal.WithLabelValues("error")))
	assert.Equal(t, bytesBefore+128, testutil.ToFloat64(bytesDownloaded))
}

func TestRecordRateLimitWait(t *testing.T) {
	waitsBefore := testutil.ToFloat64(rateLimitWaitsTotal)
	secondsBefore := testutil.ToFloat64(rateLimitWaitSeconds)

	RecordRateLimitWait(90 * time.Second)

	assert.Equal(t, waitsBefore+1, testutil.ToFloat64(rateLimitWaitsTotal))
	assert.Equal(t, secondsBefore+90, testutil.ToFloat64(rateLimitWaitSeconds))
}

func TestHandlerExposesCounters(t *testing.T) {
	RecordFolder("listed")
	RecordAPIRequest("/folders", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `docmirror_folders_total{result="listed"}`)
	assert.Contains(t, rec.Body.String(), `docmirror_api_requests_total{endpoint="/folders",status="200"}`)
}
