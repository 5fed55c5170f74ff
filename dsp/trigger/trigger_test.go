package trigger

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SchmittTrigger", func() {
	var t *SchmittTrigger

	BeforeEach(func() {
		t = &SchmittTrigger{}
	})

	It("should map the trigger window onto [0, 1]", func() {
		Expect(Rescale(LowThreshold, LowThreshold, HighThreshold, 0, 1)).
			To(BeNumerically("~", 0, 1e-6))
		Expect(Rescale(HighThreshold, LowThreshold, HighThreshold, 0, 1)).
			To(BeNumerically("~", 1, 1e-6))
	})

	It("should fire once on a rising edge", func() {
		Expect(t.ProcessVoltage(0)).To(BeFalse())
		Expect(t.ProcessVoltage(10)).To(BeTrue())
		Expect(t.IsHigh()).To(BeTrue())
		Expect(t.ProcessVoltage(10)).To(BeFalse())
		Expect(t.ProcessVoltage(5)).To(BeFalse())
	})

	It("should not fire between the thresholds", func() {
		Expect(t.ProcessVoltage(1.5)).To(BeFalse())
		Expect(t.IsHigh()).To(BeFalse())
	})

	It("should not re-fire until the signal has gone back below the low threshold", func() {
		Expect(t.ProcessVoltage(2)).To(BeTrue())
		Expect(t.ProcessVoltage(1)).To(BeFalse())
		Expect(t.ProcessVoltage(2)).To(BeFalse())
		Expect(t.IsHigh()).To(BeTrue())

		Expect(t.ProcessVoltage(0.1)).To(BeFalse())
		Expect(t.IsHigh()).To(BeFalse())
		Expect(t.ProcessVoltage(2)).To(BeTrue())
	})

	It("should count one event per pulse in a pulse train", func() {
		count := 0
		for i := 0; i < 100; i++ {
			v := float32(0)
			if i%10 < 3 {
				v = 10
			}

			if t.ProcessVoltage(v) {
				count++
			}
		}

		Expect(count).To(Equal(10))
	})

	It("should go low on reset", func() {
		t.ProcessVoltage(10)
		t.Reset()
		Expect(t.IsHigh()).To(BeFalse())
		Expect(t.ProcessVoltage(10)).To(BeTrue())
	})
})
