package miniramp

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/littleutils/cvmod/sim"
)

var _ = Describe("Module", func() {
	var (
		m    *Module
		args sim.ProcessArgs
	)

	port := func(name string) *sim.Port {
		p, found := m.Port(name)
		Expect(found).To(BeTrue())
		return p
	}

	param := func(name string) *sim.Param {
		p, found := m.Param(name)
		Expect(found).To(BeTrue())
		return p
	}

	step := func() {
		m.Step(args)
		args.Frame++
	}

	BeforeEach(func() {
		m = MakeBuilder().Build("ramp")
		args = sim.ProcessArgs{SampleRate: 1000, SampleTime: 1e-3}
	})

	It("should expose its model, ports and params", func() {
		Expect(m.Model()).To(Equal(Model))
		Expect(m.Ports()).To(HaveLen(7))
		Expect(m.Params()).To(HaveLen(3))
		Expect(param(ParamMode).Value()).To(Equal(1.0))
	})

	It("should compute the logarithmic default duration", func() {
		step()

		Expect(m.Duration()).To(BeNumerically("~", 0.1, 1e-9))
	})

	It("should use the knob directly in linear mode", func() {
		param(ParamMode).SetValue(0)
		param(ParamCVAmount).SetValue(0.5)
		port(InputDurationCV).SetChannels(1)
		port(InputDurationCV).SetVoltage(2, 0)

		step()

		Expect(m.Duration()).To(BeNumerically("~", 6, 1e-9))
		Expect(m.CVScale()).To(Equal(0.5))
	})

	It("should process each trigger channel independently", func() {
		trig := port(InputTrigger)
		trig.SetChannels(3)
		trig.SetVoltage(10, 1)

		step()

		gate := port(OutputGate)
		Expect(gate.Channels()).To(Equal(3))
		Expect(gate.GetVoltage(0)).To(BeZero())
		Expect(gate.GetVoltage(1)).To(Equal(float32(FullScale)))
		Expect(gate.GetVoltage(2)).To(BeZero())
		Expect(port(OutputFinish).GetVoltage(0)).To(Equal(float32(FullScale)))
	})

	It("should run mono when nothing is patched into the trigger", func() {
		step()

		Expect(port(OutputRamp).Channels()).To(Equal(1))
		Expect(port(OutputFinish).Voltage()).To(Equal(float32(FullScale)))
	})

	It("should invoke ramp hooks", func() {
		var positions []*sim.HookPos
		var events []Event
		m.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
			positions = append(positions, ctx.Pos)
			events = append(events, ctx.Item.(Event))
		}))

		trig := port(InputTrigger)
		trig.SetChannels(1)
		trig.SetVoltage(10, 0)

		for i := 0; i < 150; i++ {
			step()
		}

		Expect(positions).To(Equal([]*sim.HookPos{
			HookPosRampStart, HookPosRampEnd, HookPosEOC,
		}))
		Expect(events[0].Frame).To(Equal(uint64(0)))
		Expect(events[0].Duration).To(BeNumerically("~", 0.1, 1e-9))
		Expect(events[1].Frame).To(BeNumerically("~", 99, 1))
	})

	Context("persistence", func() {
		It("should save the finished mode", func() {
			m.SetFinishedMode(FinishedHigh)

			Expect(string(m.DataToJSON())).To(Equal(`{"rampFinishedMode":1}`))
		})

		It("should restore the finished mode", func() {
			m.DataFromJSON(json.RawMessage(`{"rampFinishedMode":1}`))

			Expect(m.FinishedMode()).To(Equal(FinishedHigh))
		})

		It("should ignore unknown modes and malformed data", func() {
			m.SetFinishedMode(FinishedHigh)

			m.DataFromJSON(json.RawMessage(`{"rampFinishedMode":7}`))
			m.DataFromJSON(json.RawMessage(`{"rampFinishedMode":-1}`))
			m.DataFromJSON(json.RawMessage(`{"rampFinishedMode":"high"}`))
			m.DataFromJSON(json.RawMessage(`{}`))
			m.DataFromJSON(json.RawMessage(`not json`))

			Expect(m.FinishedMode()).To(Equal(FinishedHigh))
		})
	})

	Context("options", func() {
		It("should accept finished mode names", func() {
			Expect(m.SetOption(OptionFinishedMode, "high")).To(Succeed())
			Expect(m.FinishedMode()).To(Equal(FinishedHigh))

			Expect(m.SetOption(OptionFinishedMode, "LOW")).To(Succeed())
			Expect(m.FinishedMode()).To(Equal(FinishedLow))
		})

		It("should reject unknown options", func() {
			Expect(m.SetOption("colour", "red")).
				To(MatchError(sim.ErrUnknownOption))
			Expect(m.SetOption(OptionFinishedMode, "middle")).
				To(MatchError(sim.ErrInvalidOption))
		})
	})
})
