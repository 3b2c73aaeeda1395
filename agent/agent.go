package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/guseggert/thermagent/agent/dispatch"
	"github.com/guseggert/thermagent/agent/probe"
	"github.com/guseggert/thermagent/agent/readings"
	"github.com/guseggert/thermagent/agent/runner"
	"github.com/guseggert/thermagent/agent/session"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// StateSource selects how the logger's run state is read from the process table.
type StateSource string

const (
	// StateSourcePS runs "ps -ef".
	StateSourcePS StateSource = "ps"
	// StateSourceProcTable reads the process table natively.
	StateSourceProcTable StateSource = "proctable"
)

const staticErrorBody = "Error loading index.html"

// Agent is the HTTP agent that runs on the device next to the logger.
// It serves the browser UI and the event channel the UI drives the logger through.
type Agent struct {
	logger *zap.SugaredLogger

	listenAddr  string
	installDir  string
	dataDir     string
	binaryName  string
	sudo        string
	csvFile     string
	stateSource StateSource
	origins     []string
	runner      runner.Runner

	started       time.Time
	httpServer    *http.Server
	sessionServer *session.Server
}

type Option func(a *Agent)

func WithListenAddr(s string) Option {
	return func(a *Agent) {
		a.listenAddr = s
	}
}

// WithInstallDir sets the directory holding the logger binary and the UI assets.
func WithInstallDir(dir string) Option {
	return func(a *Agent) {
		a.installDir = dir
	}
}

// WithDataDir sets the directory log files are read from. Defaults to the install dir.
func WithDataDir(dir string) Option {
	return func(a *Agent) {
		a.dataDir = dir
	}
}

func WithBinaryName(name string) Option {
	return func(a *Agent) {
		a.binaryName = name
	}
}

// WithSudo sets the program used to run the logger with elevated privileges. Empty disables elevation.
func WithSudo(s string) Option {
	return func(a *Agent) {
		a.sudo = s
	}
}

// WithCSVFile sets the name, relative to the data dir, of the CSV file served for download.
func WithCSVFile(name string) Option {
	return func(a *Agent) {
		a.csvFile = name
	}
}

func WithStateSource(s StateSource) Option {
	return func(a *Agent) {
		a.stateSource = s
	}
}

// WithOriginPatterns allows browser pages from other hosts to open sessions, e.g. "*.local".
// Pages served by the agent itself are always allowed.
func WithOriginPatterns(patterns ...string) Option {
	return func(a *Agent) {
		a.origins = append(a.origins, patterns...)
	}
}

// WithRunner replaces the process runner, which is otherwise built from the sudo setting.
func WithRunner(r runner.Runner) Option {
	return func(a *Agent) {
		a.runner = r
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Agent) {
		a.logger = l.Sugar()
	}
}

func WithLogLevel(l zapcore.Level) Option {
	return func(a *Agent) {
		a.logger = a.logger.WithOptions(zap.IncreaseLevel(l))
	}
}

// New constructs a new agent.
func New(opts ...Option) (*Agent, error) {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	a := &Agent{
		logger:      logger.Sugar(),
		listenAddr:  "0.0.0.0:8081",
		installDir:  "/home/pi/development/therm",
		binaryName:  dispatch.DefaultBinaryName,
		sudo:        "sudo",
		csvFile:     "temperature.csv",
		stateSource: StateSourcePS,
	}
	for _, o := range opts {
		o(a)
	}
	a.logger = a.logger.Named("thermagent")
	if a.dataDir == "" {
		a.dataDir = a.installDir
	}
	if a.runner == nil {
		a.runner = &runner.Exec{Log: a.logger.Named("runner"), Sudo: a.sudo}
	}

	loggerPath := filepath.Join(a.installDir, a.binaryName)
	matcher := probe.Matcher{LoggerPath: loggerPath, Marker: dispatch.DefaultMarker}
	var prober probe.Prober
	switch a.stateSource {
	case StateSourcePS:
		prober = &probe.PS{Runner: a.runner, Matcher: matcher, Log: a.logger.Named("probe")}
	case StateSourceProcTable:
		prober = &probe.ProcTable{Matcher: matcher, Log: a.logger.Named("probe")}
	default:
		return nil, fmt.Errorf("unsupported state source %q", a.stateSource)
	}

	cfg := dispatch.DefaultConfig(a.installDir)
	cfg.LoggerPath = loggerPath
	cfg.DataDir = a.dataDir
	a.sessionServer = &session.Server{
		Log:            a.logger,
		Dispatcher:     dispatch.New(cfg, a.runner, prober, a.logger.Named("dispatcher")),
		OriginPatterns: a.origins,
	}

	router := httprouter.New()
	router.GET("/events", a.events)
	router.GET("/heartbeat", a.heartbeat)
	router.GET("/download.csv", a.downloadCSV)
	router.GET("/readings", a.readings)
	router.GET("/display", a.display)
	router.NotFound = http.HandlerFunc(a.static)
	a.httpServer = &http.Server{Handler: router}

	return a, nil
}

// Run runs the agent and returns once it has stopped.
func (a *Agent) Run() error {
	listener, err := net.Listen("tcp", a.listenAddr)
	if err != nil {
		return fmt.Errorf("listening TCP: %w", err)
	}
	a.started = time.Now()
	a.logger.Infow("serving", "Addr", listener.Addr().String(), "InstallDir", a.installDir, "DataDir", a.dataDir)

	err = a.httpServer.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *Agent) Stop() error {
	return a.httpServer.Close()
}

func (a *Agent) events(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	a.sessionServer.ServeHTTP(w, r)
}

func (a *Agent) heartbeat(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	response := struct {
		Started string
	}{
		Started: a.started.UTC().Format(time.RFC3339),
	}
	b, err := json.Marshal(response)
	if err != nil {
		a.logger.Debugf("error marshaling heartbeat response: %s", err)
	}
	w.Header().Add("Content-Type", "application/json")
	w.Write(b)
}

// static serves UI assets from the install dir. Any failure gets the same 500 response.
func (a *Agent) static(w http.ResponseWriter, r *http.Request) {
	reqFile := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if reqFile == "" {
		reqFile = "index.html"
	}
	a.logger.Debugw("serving static file", "File", reqFile)

	b, err := os.ReadFile(filepath.Join(a.installDir, filepath.FromSlash(reqFile)))
	if err != nil {
		a.logger.Debugf("error reading static file: %s", err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(staticErrorBody))
		return
	}
	if ct := mime.TypeByExtension(filepath.Ext(reqFile)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

func (a *Agent) downloadCSV(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	f, err := os.Open(filepath.Join(a.dataDir, a.csvFile))
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "no such file or directory", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.csvFile))
	_, err = io.Copy(w, f)
	if err != nil {
		a.logger.Debugf("error sending CSV response: %s", err)
	}
}

// loadReadings parses the logger CSV, answering the request itself when that fails.
func (a *Agent) loadReadings(w http.ResponseWriter) ([]readings.Reading, bool) {
	f, err := os.Open(filepath.Join(a.dataDir, a.csvFile))
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "no such file or directory", http.StatusNotFound)
			return nil, false
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	defer f.Close()

	rs, err := readings.Parse(f)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return rs, true
}

func (a *Agent) readings(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	rs, ok := a.loadReadings(w)
	if !ok {
		return
	}
	if rs == nil {
		rs = []readings.Reading{}
	}
	b, err := json.Marshal(rs)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Add("Content-Type", "application/json")
	w.Write(b)
}

func (a *Agent) display(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	rs, ok := a.loadReadings(w)
	if !ok {
		return
	}
	if len(rs) == 0 {
		http.Error(w, readings.ErrNoReadings.Error(), http.StatusNotFound)
		return
	}
	var buf bytes.Buffer
	if err := readings.Plot(&buf, rs); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, err := buf.WriteTo(w)
	if err != nil {
		a.logger.Debugf("error sending plot response: %s", err)
	}
}
