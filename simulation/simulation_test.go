package simulation

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/littleutils/cvmod/datarecording"
	"github.com/littleutils/cvmod/patch"
	"github.com/littleutils/cvmod/registry"
	"github.com/littleutils/cvmod/sim"
	"github.com/littleutils/cvmod/tracing"
)

const testPatch = `
sample_rate = 1000

module "Clock" "clk" {
  rate = 4
}

module "Miniramp" "ramp" {}

module "Constant" "cv" {
  voltage = 2
}

module "TeleportIn" "send" {}
module "TeleportOut" "recv" {}

cable {
  from = "clk.out"
  to   = "ramp.trigger"
}

cable {
  from = "cv.out"
  to   = "send.in"
}
`

var _ = Describe("Simulation", func() {
	var (
		logger  *slog.Logger
		p       *patch.Patch
		builder Builder
		s       *Simulation
	)

	BeforeEach(func() {
		var err error

		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		p, err = patch.Parse([]byte(testPatch), "test.hcl")
		Expect(err).NotTo(HaveOccurred())

		builder = MakeBuilder().
			WithPatch(p).
			WithLogger(logger).
			WithLabelGenerator(registry.NewSequenceGenerator())
	})

	AfterEach(func() {
		if s != nil {
			s.Terminate()
			s = nil
		}
	})

	It("should build the patch", func() {
		var err error
		s, err = builder.Build()
		Expect(err).NotTo(HaveOccurred())

		Expect(s.ID()).NotTo(BeEmpty())
		Expect(s.GetEngine().SampleRate()).To(Equal(sim.SampleRate(1000)))
		Expect(s.GetEngine().Modules()).To(HaveLen(5))
		Expect(s.GetRegistry().Labels()).To(Equal([]string{"AAAA"}))
		Expect(s.GetDataRecorder()).To(BeNil())
		Expect(s.GetMonitor()).To(BeNil())

		outs := s.TeleportOuts()
		Expect(outs).To(HaveLen(1))
		Expect(outs[0].Label()).To(Equal("AAAA"))
	})

	It("should let the sample rate be overridden", func() {
		var err error
		s, err = builder.WithSampleRate(sim.Rate48000).Build()
		Expect(err).NotTo(HaveOccurred())

		Expect(s.GetEngine().SampleRate()).To(Equal(sim.Rate48000))
	})

	It("should default to 44.1 kHz without a patch", func() {
		var err error
		s, err = MakeBuilder().WithLogger(logger).Build()
		Expect(err).NotTo(HaveOccurred())

		Expect(s.GetEngine().SampleRate()).To(Equal(sim.Rate44100))
	})

	It("should run a number of frames", func() {
		var err error
		s, err = builder.Build()
		Expect(err).NotTo(HaveOccurred())

		Expect(s.Run(context.Background(), 10)).To(Succeed())

		Expect(s.GetEngine().CurrentFrame()).To(Equal(uint64(10)))
		v, ok := s.GetRegistry().Read("AAAA")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(float32(2)))
	})

	It("should stop when the context is done", func() {
		var err error
		s, err = builder.Build()
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Expect(s.Run(ctx, 0)).To(MatchError(context.Canceled))
	})

	It("should save and load states", func() {
		var err error
		s, err = builder.Build()
		Expect(err).NotTo(HaveOccurred())

		ramp, _ := s.GetEngine().Module("ramp")
		duration, _ := sim.FindParam(ramp, "duration")
		duration.SetValue(8)

		path := filepath.Join(GinkgoT().TempDir(), "state.json")
		Expect(s.SaveState(path)).To(Succeed())

		duration.SetValue(1)
		Expect(s.LoadState(path)).To(Succeed())
		Expect(duration.Value()).To(Equal(8.0))
	})

	It("should record ramp events", func() {
		output := filepath.Join(GinkgoT().TempDir(), "rec")

		var err error
		s, err = builder.
			WithRecording().
			WithOutputFileName(output).
			WithPortSampling(50, "ramp.ramp").
			Build()
		Expect(err).NotTo(HaveOccurred())
		Expect(s.OutputPath()).To(Equal(output + ".sqlite3"))

		Expect(s.Run(context.Background(), 200)).To(Succeed())
		s.Terminate()
		s = nil

		reader, err := datarecording.NewReader(output + ".sqlite3")
		Expect(err).NotTo(HaveOccurred())
		defer reader.Close()

		reader.MapTable(tracing.RampEventTable, tracing.RampEventEntry{})
		events, total, err := reader.Query(context.Background(),
			tracing.RampEventTable,
			datarecording.QueryParams{OrderBy: "Frame"})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(3))
		Expect(events[0].(*tracing.RampEventEntry).Kind).To(Equal("RampStart"))

		reader.MapTable(tracing.PortSampleTable, tracing.PortSampleEntry{})
		_, total, err = reader.Query(context.Background(),
			tracing.PortSampleTable, datarecording.QueryParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(4))
	})

	It("should reject unknown sampled ports", func() {
		_, err := builder.
			WithRecording().
			WithOutputFileName(filepath.Join(GinkgoT().TempDir(), "rec")).
			WithPortSampling(1, "ramp.nope").
			Build()

		Expect(err).To(MatchError(sim.ErrUnknownPort))
	})

	It("should refuse a monitor port without monitoring", func() {
		Expect(func() { builder.WithMonitorPort(8080).Build() }).To(Panic())
	})

	It("should start the monitor", func() {
		var err error
		s, err = builder.WithMonitoring().Build()
		Expect(err).NotTo(HaveOccurred())

		Expect(s.GetMonitor()).NotTo(BeNil())
		Expect(s.MonitorURL()).To(HavePrefix("http://localhost:"))
	})
})
