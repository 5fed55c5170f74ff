package miniramp

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Channel", func() {
	const dt = 1e-3

	var (
		ch   *Channel
		high = Inputs{Trigger: 10}
		low  = Inputs{}
	)

	BeforeEach(func() {
		ch = NewChannel()
	})

	It("should be idle before any trigger", func() {
		out, ev := ch.Process(low, 1, FinishedLow, dt)

		Expect(ev.Any()).To(BeFalse())
		Expect(out).To(Equal(Outputs{Finish: FullScale}))
	})

	It("should ramp, end and pulse end of cycle once", func() {
		_, ev := ch.Process(high, 2, FinishedLow, dt)
		Expect(ev.Started).To(BeTrue())

		var rampAtOneSecond float32
		endSample := -1
		eocSamples := 0

		for i := 2; i <= 2100; i++ {
			out, ev := ch.Process(high, 2, FinishedLow, dt)

			if i == 1000 {
				rampAtOneSecond = out.Ramp
				Expect(out.Gate).To(Equal(float32(FullScale)))
				Expect(out.Finish).To(BeZero())
			}

			if ev.Ended {
				endSample = i
				Expect(out.Gate).To(BeZero())
				Expect(out.Finish).To(Equal(float32(FullScale)))
			}

			if out.EOC > 0 {
				eocSamples++
			}
		}

		Expect(rampAtOneSecond).To(BeNumerically("~", 5.0, 1e-3))
		Expect(endSample).To(BeNumerically("~", 2000, 1))
		Expect(eocSamples).To(Equal(1))
	})

	It("should keep the end of cycle pulse near 1 ms at 44.1 kHz", func() {
		const dt44 = 1.0 / 44100
		ch.Process(high, 0.01, FinishedLow, dt44)

		eocSamples := 0
		for i := 0; i < 2000; i++ {
			out, _ := ch.Process(high, 0.01, FinishedLow, dt44)
			if out.EOC > 0 {
				eocSamples++
			}
		}

		Expect(eocSamples).To(And(
			BeNumerically(">=", 44), BeNumerically("<=", 45)))
	})

	It("should give reset precedence over trigger", func() {
		out, ev := ch.Process(Inputs{Trigger: 10, Reset: 10}, 1, FinishedLow, dt)

		Expect(ev.Started).To(BeFalse())
		Expect(out.Gate).To(BeZero())
		Expect(out.Finish).To(Equal(float32(FullScale)))
	})

	It("should stop a running ramp on reset without end of cycle", func() {
		ch.Process(high, 1, FinishedLow, dt)
		ch.Process(low, 1, FinishedLow, dt)

		out, ev := ch.Process(Inputs{Reset: 10}, 1, FinishedLow, dt)

		Expect(ev.Any()).To(BeFalse())
		Expect(out.Gate).To(BeZero())
		Expect(out.EOC).To(BeZero())
		Expect(ch.Active()).To(BeFalse())
	})

	It("should hold the ramp high when finished mode is high", func() {
		out, _ := ch.Process(low, 1, FinishedHigh, dt)

		Expect(out.Ramp).To(Equal(float32(FullScale)))
	})

	It("should ignore triggers when the duration is zero", func() {
		out, ev := ch.Process(high, 0, FinishedLow, dt)

		Expect(ev.Started).To(BeFalse())
		Expect(out.Gate).To(BeZero())
	})

	It("should restart on retrigger with the new duration", func() {
		ch.Process(high, 2, FinishedLow, dt)
		for i := 0; i < 500; i++ {
			ch.Process(low, 2, FinishedLow, dt)
		}

		out, ev := ch.Process(high, 1, FinishedLow, dt)

		Expect(ev.Started).To(BeTrue())
		Expect(ev.Ended).To(BeFalse())
		Expect(out.Ramp).To(BeNumerically("~", 0.01, 1e-4))
	})

	It("should follow a duration change mid ramp", func() {
		ch.Process(high, 2, FinishedLow, dt)
		for i := 0; i < 499; i++ {
			ch.Process(high, 2, FinishedLow, dt)
		}

		out, _ := ch.Process(high, 1, FinishedLow, dt)

		Expect(out.Ramp).To(BeNumerically("~", 5.01, 1e-3))
	})

	It("should not retrigger while the trigger stays high", func() {
		ch.Process(high, 0.005, FinishedLow, dt)

		starts := 0
		for i := 0; i < 100; i++ {
			_, ev := ch.Process(high, 0.005, FinishedLow, dt)
			if ev.Started {
				starts++
			}
		}

		Expect(starts).To(BeZero())
		Expect(ch.Active()).To(BeFalse())
	})

	It("should light up instantly and decay", func() {
		ch.Process(high, 0.002, FinishedLow, dt)
		Expect(ch.Lights()[GateLight]).To(BeNumerically("~", 1, 1e-9))

		ch.Process(high, 0.002, FinishedLow, dt)
		ch.Process(high, 0.002, FinishedLow, dt)

		Expect(ch.Lights()[GateLight]).To(BeNumerically("<", 1))
		Expect(ch.Lights()[FinishLight]).To(BeNumerically("~", 1, 1e-9))
	})

	It("should end a running ramp when the duration turns NaN", func() {
		ch.Process(high, 0.01, FinishedLow, dt)

		out, ev := ch.Process(high, math.NaN(), FinishedLow, dt)

		Expect(ev.Ended).To(BeTrue())
		Expect(ch.Active()).To(BeFalse())
		Expect(out.Ramp).To(BeZero())
	})

	It("should not trigger with a NaN or negative duration", func() {
		_, ev := ch.Process(high, math.NaN(), FinishedLow, dt)
		Expect(ev.Started).To(BeFalse())

		ch.Process(low, 1, FinishedLow, dt)
		_, ev = ch.Process(high, -3, FinishedLow, dt)
		Expect(ev.Started).To(BeFalse())

		ch.Process(low, 1, FinishedLow, dt)
		_, ev = ch.Process(high, math.Inf(-1), FinishedLow, dt)
		Expect(ev.Started).To(BeFalse())
		Expect(ch.Active()).To(BeFalse())
	})

	It("should cap an infinite duration at ten seconds", func() {
		_, ev := ch.Process(high, math.Inf(1), FinishedLow, dt)
		Expect(ev.Started).To(BeTrue())

		endSample := -1
		for i := 2; i <= 10500; i++ {
			out, ev := ch.Process(high, math.Inf(1), FinishedLow, dt)
			Expect(math.IsNaN(float64(out.Ramp))).To(BeFalse())

			if ev.Ended {
				endSample = i
			}
		}

		Expect(endSample).To(BeNumerically("~", 10000, 1))
		Expect(ch.Active()).To(BeFalse())
	})
})
