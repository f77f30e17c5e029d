package viz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

type ImageContainer struct {
	name string
	data []byte
}

type Producer interface {
	Name() string
	GetImage() (*ImageContainer, error)
	AddPlotOption(opt PlotOptions)
}

// CommandFunc runs one command line and returns its status and text.
type CommandFunc func(line string) (int, string)

// MeterFunc returns the latest meter report.
type MeterFunc func() interface{}

type Server struct {
	images          map[string]map[string]*ImageContainer
	mu              sync.RWMutex
	addr            string
	srv             *http.Server
	producerBuckets map[string]map[string]Producer
	updateInterval  time.Duration
	enabled         bool
	lastViewed      map[string]time.Time
	logger          zerolog.Logger
	command         CommandFunc
	meter           MeterFunc
}

type ServerOption func(s *Server)

func WithServerLogger(logger zerolog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// WithCommands enables POST /cmd.
func WithCommands(f CommandFunc) ServerOption {
	return func(s *Server) { s.command = f }
}

// WithMeter enables GET /meter.
func WithMeter(f MeterFunc) ServerOption {
	return func(s *Server) { s.meter = f }
}

func NewServer(port int, updateInterval time.Duration, opts ...ServerOption) *Server {
	s := &Server{
		images:          make(map[string]map[string]*ImageContainer),
		producerBuckets: make(map[string]map[string]Producer),
		addr:            fmt.Sprintf(":%d", port),
		lastViewed:      make(map[string]time.Time),
		updateInterval:  updateInterval,
		enabled:         true,
		logger:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.srv = &http.Server{Addr: s.addr, Handler: s.Handler()}
	return s
}

func (s *Server) Enable(enable bool) {
	s.mu.Lock()
	s.enabled = enable
	s.mu.Unlock()
}

func (s *Server) SetUpdateInterval(interval time.Duration) {
	s.mu.Lock()
	s.updateInterval = interval
	s.mu.Unlock()
}

func (s *Server) Register(key string, p Producer) {
	s.mu.Lock()
	bucket, ok := s.producerBuckets[key]
	if !ok {
		bucket = make(map[string]Producer)
		s.producerBuckets[key] = bucket
	}
	bucket[p.Name()] = p
	s.mu.Unlock()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// renderViewed redraws every producer in buckets viewed within the last second.
func (s *Server) renderViewed() {
	s.mu.RLock()
	type job struct {
		bucket string
		p      Producer
	}
	var jobs []job
	for name, bucket := range s.producerBuckets {
		if time.Since(s.lastViewed[name]) >= time.Second {
			continue
		}
		for _, p := range bucket {
			jobs = append(jobs, job{name, p})
		}
	}
	s.mu.RUnlock()

	var wg sync.WaitGroup
	for _, j := range jobs {
		wg.Add(1)
		go func(bucket string, p Producer) {
			defer wg.Done()
			img, err := p.GetImage()
			if err != nil {
				s.logger.Warn().Err(err).Str("producer", p.Name()).Msg("render failed")
				return
			}
			if img == nil {
				return
			}
			s.mu.Lock()
			mb, ok := s.images[bucket]
			if !ok {
				mb = make(map[string]*ImageContainer)
				s.images[bucket] = mb
			}
			mb[img.name] = img
			s.mu.Unlock()
		}(j.bucket, j.p)
	}
	wg.Wait()
}

func (s *Server) Run(ctx context.Context) error {
	go func() {
		for {
			s.mu.RLock()
			interval, enabled := s.updateInterval, s.enabled
			s.mu.RUnlock()
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
				if enabled {
					s.renderViewed()
				}
			}
		}
	}()

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("viz server listening")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Handler() http.Handler {
	handler := httprouter.New()
	handler.GET("/", s.handleIndex)
	handler.GET("/view/:bucket", s.handleView)
	handler.GET("/img/:bucket/:img", s.handleImage)
	handler.GET("/meter", s.handleMeter)
	handler.POST("/cmd", s.handleCommand)
	return handler
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.producerBuckets))
	for name := range s.producerBuckets {
		keys = append(keys, name)
	}
	s.mu.RUnlock()
	if len(keys) == 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	sort.Strings(keys)
	w.Header().Set("Location", "/view/"+url.PathEscape(keys[0]))
	w.WriteHeader(http.StatusFound)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	bucket := params.ByName("bucket")

	s.mu.Lock()
	itemsForBucket, ok := s.producerBuckets[bucket]
	if ok {
		s.lastViewed[bucket] = time.Now()
	}
	buckets := make([]string, 0, len(s.producerBuckets))
	for key := range s.producerBuckets {
		buckets = append(buckets, key)
	}
	items := make([]string, 0, len(itemsForBucket))
	for key := range itemsForBucket {
		items = append(items, key)
	}
	interval := s.updateInterval
	s.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	sort.Strings(buckets)
	sort.Strings(items)

	w.Header().Add("Content-Type", "text/html")
	fmt.Fprint(w, `<html><head><title>sdrcore</title></head>`)
	fmt.Fprintf(w, `
		<script type="text/javascript">
			var toggleRefresh = true;
			function toggleOn() {
				toggleRefresh = !toggleRefresh;
			}

			function changeBucket() {
				var val = document.getElementById('bucketSelector').value;
				window.location.href = '/view/' + val;
			}
			window.onload = function() {
				for (var i = 0; i < %d; i++) {
					var img = document.getElementById('graph-' + i);
					setInterval(function(image) {
						if (toggleRefresh) {
							image.src = image.src.split("?")[0] + "?" + new Date().getTime();
						}
					}, %d, img);
				}
			}
		</script>`, len(items), interval.Milliseconds())
	fmt.Fprint(w, `<body style='background-color: black'>`)

	fmt.Fprint(w, `<select id="bucketSelector" onchange="changeBucket()">`)
	for _, name := range buckets {
		selected := ""
		if name == bucket {
			selected = " selected"
		}
		fmt.Fprintf(w, `<option value="%s"%s>%s</option>`, name, selected, name)
	}
	fmt.Fprint(w, `</select><button onclick="toggleOn()">Refresh?</button>`)

	fmt.Fprint(w, `<div style="display: flex; flex-direction: row; flex-wrap: wrap">`)
	for idx, key := range items {
		fmt.Fprintf(w, `<div><img id="graph-%d" src="/img/%s/%s?%d" /></div>`,
			idx, url.PathEscape(bucket), url.PathEscape(key), time.Now().UnixMicro())
	}
	fmt.Fprint(w, `</div></body></html>`)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	bucketName := params.ByName("bucket")
	imgName := params.ByName("img")

	s.mu.Lock()
	s.lastViewed[bucketName] = time.Now()
	img, ok := s.images[bucketName][imgName]
	s.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Add("Content-Type", "image/png")
	w.Write(img.data)
}

func (s *Server) handleMeter(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.meter == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	b, err := msgpack.Marshal(s.meter())
	if err != nil {
		s.logger.Error().Err(err).Msg("encoding meter")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Add("Content-Type", "application/msgpack")
	w.Write(b)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.command == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 4096))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	status, text := s.command(strings.TrimSpace(string(body)))
	if status != 0 {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprintf(w, "error %d\n", status)
		return
	}
	if text != "" {
		fmt.Fprintf(w, "ok %s\n", text)
		return
	}
	fmt.Fprintln(w, "ok")
}
