package viz

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestCommandRoute(t *testing.T) {
	var got string
	s := NewServer(0, time.Second, WithCommands(func(line string) (int, string) {
		got = line
		if line == "bad" {
			return -1, ""
		}
		return 0, "getMode 1"
	}))
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cmd", strings.NewReader("getMode\n")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok getMode 1\n", rec.Body.String())
	assert.Equal(t, "getMode", got)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cmd", strings.NewReader("bad")))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "error -1\n", rec.Body.String())
}

func TestMeterRoute(t *testing.T) {
	type report struct {
		Label int
		TX    []float64
	}
	s := NewServer(0, time.Second, WithMeter(func() interface{} {
		return report{Label: 7, TX: []float64{1, 2}}
	}))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/meter", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var out report
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 7, out.Label)
	assert.Equal(t, []float64{1, 2}, out.TX)
}

func TestRoutesWithoutSources(t *testing.T) {
	s := NewServer(0, time.Second)
	h := s.Handler()
	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/meter", nil),
		httptest.NewRequest(http.MethodPost, "/cmd", strings.NewReader("x")),
		httptest.NewRequest(http.MethodGet, "/", nil),
		httptest.NewRequest(http.MethodGet, "/img/a/b", nil),
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, req.URL.Path)
	}
}

func TestRenderViewedBucket(t *testing.T) {
	s := NewServer(0, time.Second)
	sp := NewSpectrumPlotter("rx0 spectrum", 48000)
	sp.Update(1, []float32{-100, -50, -20, -50})
	s.Register("rx0", sp)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/view/rx0", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/view/rx0", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rx0")

	s.renderViewed()
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/img/rx0/"+strings.ReplaceAll("rx0 spectrum", " ", "%20"), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Body.Bytes())
}

func TestFFTPlotterKeepsRecentSamples(t *testing.T) {
	f := NewFFTPlotter("stage", 8, 48000)
	f.AppendComplex([]complex64{1, 2, 3})
	f.AppendComplex([]complex64{4, 5, 6, 7, 8, 9, 10, 11, 12, 13})
	f.AppendComplex([]complex64{14})
	assert.Equal(t, []complex64{7, 8, 9, 10, 11, 12, 13, 14}, f.buf)

	img, err := f.GetImage()
	require.NoError(t, err)
	assert.NotNil(t, img)
}

func TestScopePlotterNeedsFullTrace(t *testing.T) {
	sp := NewScopePlotter("scope", 4)
	sp.Update([]float32{1, 2})
	img, err := sp.GetImage()
	require.NoError(t, err)
	assert.Nil(t, img)

	sp.Update([]float32{3, 4, 5})
	assert.Equal(t, []float32{2, 3, 4, 5}, sp.trace)
	img, err = sp.GetImage()
	require.NoError(t, err)
	assert.NotNil(t, img)
}
