package projection_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/integrators"
	"github.com/san-kum/keplersim/internal/physics"
	"github.com/san-kum/keplersim/internal/projection"
)

var _ = Describe("Residual", func() {
	var (
		k  *physics.Kepler
		x0 dynamo.State
	)

	BeforeEach(func() {
		k = physics.NewKepler()
		x0 = k.DefaultState()
	})

	DescribeTable("vanishes at the reference state",
		func(mode projection.Mode) {
			res, err := projection.NewResidual(mode, k, x0)
			Expect(err).NotTo(HaveOccurred())
			r := make([]float64, 4)
			res(r, x0)
			Expect(r).To(Equal([]float64{0, 0, 0, 0}))
		},
		Entry("full", projection.ModeFull),
		Entry("energy", projection.ModeEnergy),
		Entry("angular", projection.ModeAngular),
	)

	It("broadcasts the energy and angular momentum defects", func() {
		r := make([]float64, 4)
		projection.FullResidual(k, x0)(r, []float64{1, 0, 0, 1})
		Expect(r[0]).To(BeNumerically("~", 0, 1e-15))
		Expect(r[1]).To(BeNumerically("~", 0, 1e-15))
		Expect(r[2]).To(BeNumerically("~", -0.2, 1e-15))
		Expect(r[3]).To(BeNumerically("~", -0.2, 1e-15))
	})

	DescribeTable("zeroes the unconstrained half for any state",
		func(x []float64) {
			r := make([]float64, 4)
			projection.EnergyResidual(k, x0)(r, x)
			Expect(r[2:]).To(Equal([]float64{0, 0}))
			Expect(r[0]).To(Equal(r[1]))

			projection.AngularResidual(k, x0)(r, x)
			Expect(r[:2]).To(Equal([]float64{0, 0}))
			Expect(r[2]).To(Equal(r[3]))
		},
		Entry("circular", []float64{1, 0, 0, 1}),
		Entry("unbound", []float64{0.5, 0.5, 3, -1}),
		Entry("retrograde", []float64{-2, 0.1, 0.1, -0.6}),
	)

	It("has no residual for mode none", func() {
		_, err := projection.NewResidual(projection.ModeNone, k, x0)
		Expect(err).To(MatchError(projection.ErrUnknownMode))
	})
})

var _ = Describe("Mode", func() {
	DescribeTable("parses names",
		func(in string, want projection.Mode) {
			got, err := projection.ParseMode(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
			Expect(got.String()).To(Equal(want.String()))
		},
		Entry("empty", "", projection.ModeNone),
		Entry("none", "none", projection.ModeNone),
		Entry("full", "Full", projection.ModeFull),
		Entry("energy", "energy", projection.ModeEnergy),
		Entry("angular", " angular ", projection.ModeAngular),
	)

	It("rejects unknown names", func() {
		_, err := projection.ParseMode("momentum")
		Expect(err).To(MatchError(projection.ErrUnknownMode))
	})

	It("cycles through every mode", func() {
		m := projection.ModeNone
		seen := map[projection.Mode]bool{}
		for i := 0; i < 4; i++ {
			seen[m] = true
			m = m.Next()
		}
		Expect(m).To(Equal(projection.ModeNone))
		Expect(seen).To(HaveLen(4))
	})
})

var _ = Describe("Manifold", func() {
	var (
		k         *physics.Kepler
		x0, noisy dynamo.State
	)

	BeforeEach(func() {
		k = physics.NewKepler()
		x0 = k.DefaultState()
		noisy = dynamo.State{0.41, 0.02, -0.03, 1.97}
	})

	It("restores both invariants", func() {
		m, err := projection.NewManifold(projection.ModeFull, k, x0)
		Expect(err).NotTo(HaveOccurred())

		y, err := m.Apply(noisy, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(k.Energy(y)).To(BeNumerically("~", -0.5, 1e-11))
		Expect(k.AngularMomentum(y)).To(BeNumerically("~", 0.8, 1e-11))
		Expect(y.Sub(noisy).Norm()).To(BeNumerically("<", 0.1))
	})

	It("restores energy alone", func() {
		m, err := projection.NewManifold(projection.ModeEnergy, k, x0)
		Expect(err).NotTo(HaveOccurred())

		y, err := m.Apply(noisy, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(k.Energy(y)).To(BeNumerically("~", -0.5, 1e-11))
	})

	It("restores angular momentum alone", func() {
		m, err := projection.NewManifold(projection.ModeAngular, k, x0)
		Expect(err).NotTo(HaveOccurred())

		y, err := m.Apply(noisy, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(k.AngularMomentum(y)).To(BeNumerically("~", 0.8, 1e-11))
	})

	It("leaves states on the manifold untouched", func() {
		m, err := projection.NewManifold(projection.ModeFull, k, x0)
		Expect(err).NotTo(HaveOccurred())

		y, err := m.Apply(x0, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(y).To(Equal(x0))
	})

	It("reports unreachable constraints", func() {
		m := projection.NewManifoldFunc(func(dst, x []float64) {
			for i := range dst {
				dst[i] = 1 + x[0]*x[0]
			}
		}, 2)

		y, err := m.Apply(dynamo.State{0, 0}, 1.5)
		Expect(err).To(MatchError(projection.ErrNotConverged))
		Expect(y).To(Equal(dynamo.State{0, 0}))
	})

	It("rejects states of the wrong size", func() {
		m, err := projection.NewManifold(projection.ModeFull, k, x0)
		Expect(err).NotTo(HaveOccurred())
		_, err = m.Apply(dynamo.State{1, 2}, 0)
		Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
	})

	It("keeps a non-conservative integrator on the invariant manifold", func() {
		m, err := projection.NewManifold(projection.ModeFull, k, x0)
		Expect(err).NotTo(HaveOccurred())

		sim := dynamo.New(k, integrators.NewEuler())
		sim.AddCallback(m)

		cfg := dynamo.DefaultConfig()
		cfg.Dt = 0.001
		cfg.Duration = 1
		res, err := sim.Run(context.Background(), x0, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Errors).To(BeEmpty())
		Expect(res.Stats.Corrected).To(Equal(1000))
		Expect(res.EnergyDrift).To(BeNumerically("<", 1e-10))
		Expect(res.AngularDrift).To(BeNumerically("<", 1e-10))
	})
})
