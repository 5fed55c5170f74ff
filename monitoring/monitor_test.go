package monitoring

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/gorilla/mux"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/littleutils/cvmod/patch"
	"github.com/littleutils/cvmod/registry"
	"github.com/littleutils/cvmod/sim"
)

const monitoredPatch = `
sample_rate = 1000

module "Miniramp" "ramp" {}

module "Constant" "cv" {
  voltage = 3
}

module "TeleportIn" "send" {}
module "TeleportOut" "recv" {}

cable {
  from = "cv.out"
  to   = "send.in"
}
`

var _ = Describe("Monitor", func() {
	var (
		engine *sim.SerialEngine
		reg    *registry.Registry
		m      *Monitor
		router *mux.Router
	)

	do := func(method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		return rec
	}

	decode := func(rec *httptest.ResponseRecorder, v any) {
		Expect(json.Unmarshal(rec.Body.Bytes(), v)).To(Succeed())
	}

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		reg = registry.MakeBuilder().
			WithGenerator(registry.NewSequenceGenerator()).
			WithLogger(logger).
			Build()
		factory := patch.NewFactory(reg, logger)

		p, err := patch.Parse([]byte(monitoredPatch), "monitored.hcl")
		Expect(err).NotTo(HaveOccurred())

		engine = sim.MakeBuilder().WithSampleRate(p.SampleRate).Build()
		Expect(patch.Build(engine, factory, p)).To(Succeed())

		m = NewMonitor().WithLogger(logger)
		m.RegisterEngine(engine)
		m.RegisterFactory(factory)
		m.RegisterLabels(reg)
		router = m.Router()
	})

	It("should report the current frame", func() {
		engine.Tick()
		engine.Tick()

		rec := do(http.MethodGet, "/api/now")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var rsp nowRsp
		decode(rec, &rsp)
		Expect(rsp.Frame).To(Equal(uint64(2)))
		Expect(rsp.Now).To(BeNumerically("~", 0.002, 1e-9))
	})

	It("should pause and continue the engine", func() {
		Expect(do(http.MethodPost, "/api/pause").Code).To(Equal(http.StatusOK))
		Expect(engine.IsPaused()).To(BeTrue())

		Expect(do(http.MethodPost, "/api/continue").Code).
			To(Equal(http.StatusOK))
		Expect(engine.IsPaused()).To(BeFalse())
	})

	It("should reject the wrong method", func() {
		Expect(do(http.MethodGet, "/api/pause").Code).
			To(Equal(http.StatusMethodNotAllowed))
	})

	It("should list modules", func() {
		var rsp []moduleRsp
		decode(do(http.MethodGet, "/api/list_modules"), &rsp)

		Expect(rsp).To(Equal([]moduleRsp{
			{Name: "ramp", Model: "Miniramp"},
			{Name: "cv", Model: "Constant"},
			{Name: "send", Model: "TeleportIn"},
			{Name: "recv", Model: "TeleportOut"},
		}))
	})

	It("should dump a module", func() {
		rec := do(http.MethodGet, "/api/module/ramp")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should return 404 for unknown modules", func() {
		Expect(do(http.MethodGet, "/api/module/nope").Code).
			To(Equal(http.StatusNotFound))
	})

	It("should set params", func() {
		rec := do(http.MethodPost, "/api/module/ramp/param/duration/7.5")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var rsp paramRsp
		decode(rec, &rsp)
		Expect(rsp).To(Equal(paramRsp{Name: "duration", Value: 7.5}))

		ramp, _ := engine.Module("ramp")
		p, err := sim.FindParam(ramp, "duration")
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Value()).To(Equal(7.5))
	})

	It("should clamp params to their range", func() {
		var rsp paramRsp
		decode(do(http.MethodPost, "/api/module/cv/param/voltage/50"), &rsp)

		Expect(rsp.Value).To(Equal(10.0))
	})

	It("should reject bad param requests", func() {
		Expect(do(http.MethodPost, "/api/module/ramp/param/nope/1").Code).
			To(Equal(http.StatusNotFound))
		Expect(do(http.MethodPost, "/api/module/ramp/param/duration/x").Code).
			To(Equal(http.StatusBadRequest))
	})

	It("should duplicate modules", func() {
		rec := do(http.MethodPost, "/api/module/ramp/duplicate")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var rsp moduleRsp
		decode(rec, &rsp)
		Expect(rsp.Model).To(Equal("Miniramp"))

		_, ok := engine.Module(rsp.Name)
		Expect(ok).To(BeTrue())
	})

	It("should duplicate producers under a new label", func() {
		Expect(do(http.MethodPost, "/api/module/send/duplicate").Code).
			To(Equal(http.StatusOK))

		Expect(reg.Len()).To(Equal(2))
	})

	It("should list labels", func() {
		var rsp []registry.Entry
		decode(do(http.MethodGet, "/api/labels"), &rsp)

		Expect(rsp).To(Equal([]registry.Entry{{Label: "AAAA", Value: 0}}))
	})

	It("should show the teleport menu", func() {
		var rsp []registry.MenuItem
		decode(do(http.MethodGet, "/api/teleport/recv/menu"), &rsp)

		Expect(rsp).To(HaveLen(1))
		Expect(rsp[0].Label).To(Equal("AAAA"))
		Expect(rsp[0].Checked).To(BeTrue())
	})

	It("should select labels", func() {
		var rsp selectRsp
		decode(do(http.MethodPost, "/api/teleport/recv/select/"), &rsp)
		Expect(rsp.Label).To(BeEmpty())

		decode(do(http.MethodPost, "/api/teleport/recv/select/AAAA"), &rsp)
		Expect(rsp.Label).To(Equal("AAAA"))

		decode(do(http.MethodPost, "/api/teleport/recv/select/ZZZZ"), &rsp)
		Expect(rsp.Label).To(Equal("AAAA"))
	})

	It("should refuse menus of other modules", func() {
		Expect(do(http.MethodGet, "/api/teleport/send/menu").Code).
			To(Equal(http.StatusBadRequest))
	})

	It("should track frame progress", func() {
		bar := m.CreateProgressBar("run", 10)
		engine.AcceptHook(bar)

		for i := 0; i < 4; i++ {
			engine.Tick()
		}

		var rsp []progressRsp
		decode(do(http.MethodGet, "/api/progress"), &rsp)
		Expect(rsp).To(HaveLen(1))
		Expect(rsp[0].Name).To(Equal("run"))
		Expect(rsp[0].Total).To(Equal(uint64(10)))
		Expect(rsp[0].Finished).To(Equal(uint64(4)))

		m.CompleteProgressBar(bar)
		decode(do(http.MethodGet, "/api/progress"), &rsp)
		Expect(rsp).To(BeEmpty())
	})

	It("should report resources", func() {
		rec := do(http.MethodGet, "/api/resource")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var rsp resourceRsp
		decode(rec, &rsp)
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should fall back to a random port below 1000", func() {
		Expect(m.WithPortNumber(80).portNumber).To(Equal(0))
		Expect(m.WithPortNumber(8080).portNumber).To(Equal(8080))
	})
})
