package light

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Smoothed", func() {
	It("should rise instantly", func() {
		s := &Smoothed{}
		s.Set(1, 1e-3)
		Expect(s.Brightness()).To(Equal(1.0))
	})

	It("should decay towards lower targets", func() {
		s := &Smoothed{}
		s.Set(1, 1e-3)
		s.Set(0, 1e-3)

		Expect(s.Brightness()).To(BeNumerically("~", 0.97, 1e-9))
		Expect(s.Brightness()).To(BeNumerically(">", 0))
	})

	It("should not overshoot with large time steps", func() {
		s := &Smoothed{}
		s.Set(1, 1)
		s.Set(0, 1)
		Expect(s.Brightness()).To(Equal(0.0))
	})
})
