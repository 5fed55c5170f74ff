// Package monitoring turns a running patch into an HTTP server that can be
// inspected and controlled while the engine processes frames.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/littleutils/cvmod/modules/teleport"
	"github.com/littleutils/cvmod/patch"
	"github.com/littleutils/cvmod/registry"
	"github.com/littleutils/cvmod/sim"
)

// A LabelSource lists the live labels of a registry.
type LabelSource interface {
	Entries() []registry.Entry
}

// Monitor can turn a patch into a server and allows external monitoring and
// controlling of the engine.
type Monitor struct {
	engine     sim.Engine
	factory    *patch.Factory
	labels     LabelSource
	portNumber int
	logger     *slog.Logger

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{logger: slog.Default()}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.logger.Warn("monitor port not allowed, using a random port",
			"port", portNumber)

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger of the monitor.
func (m *Monitor) WithLogger(logger *slog.Logger) *Monitor {
	m.logger = logger
	return m
}

// RegisterEngine registers the engine that processes the patch.
func (m *Monitor) RegisterEngine(e sim.Engine) {
	m.engine = e
}

// RegisterFactory sets the factory used to duplicate modules.
func (m *Monitor) RegisterFactory(f *patch.Factory) {
	m.factory = f
}

// RegisterLabels sets the registry listed by /api/labels.
func (m *Monitor) RegisterLabels(l LabelSource) {
	m.labels = l
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the progress list.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the routes served by the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/now", m.now).Methods(http.MethodGet)
	api.HandleFunc("/pause", m.pauseEngine).Methods(http.MethodPost)
	api.HandleFunc("/continue", m.continueEngine).Methods(http.MethodPost)
	api.HandleFunc("/list_modules", m.listModules).Methods(http.MethodGet)
	api.HandleFunc("/module/{name}", m.listModuleDetails).
		Methods(http.MethodGet)
	api.HandleFunc("/module/{name}/param/{param}/{value}", m.setParam).
		Methods(http.MethodPost)
	api.HandleFunc("/module/{name}/duplicate", m.duplicateModule).
		Methods(http.MethodPost)
	api.HandleFunc("/labels", m.listLabels).Methods(http.MethodGet)
	api.HandleFunc("/teleport/{name}/menu", m.teleportMenu).
		Methods(http.MethodGet)
	api.HandleFunc("/teleport/{name}/select/{label}", m.teleportSelect).
		Methods(http.MethodPost)
	api.HandleFunc("/teleport/{name}/select/", m.teleportSelect).
		Methods(http.MethodPost)
	api.HandleFunc("/progress", m.listProgressBars).Methods(http.MethodGet)
	api.HandleFunc("/resource", m.listResources).Methods(http.MethodGet)
	api.HandleFunc("/profile", m.collectProfile).Methods(http.MethodGet)

	return r
}

// StartServer starts the monitor as a web server and returns the URL it
// listens on.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	m.logger.Info("monitoring patch", "url", url)

	router := m.Router()

	go func() {
		err := http.Serve(listener, router)
		if err != nil && !errors.Is(err, net.ErrClosed) {
			m.logger.Error("monitor server stopped", "err", err)
		}
	}()

	return url, nil
}

func (m *Monitor) pauseEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Pause()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) continueEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Continue()
	w.WriteHeader(http.StatusOK)
}

type nowRsp struct {
	Frame uint64  `json:"frame"`
	Now   float64 `json:"now"`
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, nowRsp{
		Frame: m.engine.CurrentFrame(),
		Now:   m.engine.CurrentTime(),
	})
}

type moduleRsp struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}

func (m *Monitor) listModules(w http.ResponseWriter, _ *http.Request) {
	modules := m.engine.Modules()

	rsp := make([]moduleRsp, 0, len(modules))
	for _, mod := range modules {
		rsp = append(rsp, moduleRsp{Name: mod.Name(), Model: mod.Model()})
	}

	writeJSON(w, rsp)
}

func (m *Monitor) listModuleDetails(w http.ResponseWriter, r *http.Request) {
	module := m.findModuleOr404(w, mux.Vars(r)["name"])
	if module == nil {
		return
	}

	buf := bytes.NewBuffer(nil)

	var err error
	m.engine.Do(func() {
		serializer := goseth.NewSerializer()
		serializer.SetRoot(module)
		serializer.SetMaxDepth(1)
		err = serializer.Serialize(buf)
	})
	dieOnErr(err)

	_, err = w.Write(buf.Bytes())
	dieOnErr(err)
}

type paramRsp struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func (m *Monitor) setParam(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	module := m.findModuleOr404(w, vars["name"])
	if module == nil {
		return
	}

	param, err := sim.FindParam(module, vars["param"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	value, err := strconv.ParseFloat(vars["value"], 64)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var applied float64
	m.engine.Do(func() {
		param.SetValue(value)
		applied = param.Value()
	})

	writeJSON(w, paramRsp{Name: param.Name(), Value: applied})
}

func (m *Monitor) duplicateModule(w http.ResponseWriter, r *http.Request) {
	if m.factory == nil {
		http.Error(w, "no factory registered", http.StatusNotImplemented)
		return
	}

	dup, err := patch.Duplicate(m.engine, m.factory, mux.Vars(r)["name"])
	if errors.Is(err, sim.ErrUnknownModule) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.logger.Info("duplicated module",
		"module", mux.Vars(r)["name"], "copy", dup.Name())
	writeJSON(w, moduleRsp{Name: dup.Name(), Model: dup.Model()})
}

func (m *Monitor) listLabels(w http.ResponseWriter, _ *http.Request) {
	if m.labels == nil {
		writeJSON(w, []registry.Entry{})
		return
	}

	writeJSON(w, m.labels.Entries())
}

func (m *Monitor) teleportMenu(w http.ResponseWriter, r *http.Request) {
	out := m.findTeleportOutOr404(w, mux.Vars(r)["name"])
	if out == nil {
		return
	}

	writeJSON(w, out.Menu())
}

type selectRsp struct {
	Label string `json:"label"`
}

func (m *Monitor) teleportSelect(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	out := m.findTeleportOutOr404(w, vars["name"])
	if out == nil {
		return
	}

	writeJSON(w, selectRsp{Label: out.Select(vars["label"])})
}

func (m *Monitor) findModuleOr404(
	w http.ResponseWriter,
	name string,
) sim.Module {
	module, ok := m.engine.Module(name)
	if !ok {
		http.Error(w, "Module not found", http.StatusNotFound)
		return nil
	}

	return module
}

func (m *Monitor) findTeleportOutOr404(
	w http.ResponseWriter,
	name string,
) *teleport.Out {
	module := m.findModuleOr404(w, name)
	if module == nil {
		return nil
	}

	out, ok := module.(*teleport.Out)
	if !ok {
		http.Error(w, name+" is not a "+teleport.OutModel,
			http.StatusBadRequest)
		return nil
	}

	return out
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
