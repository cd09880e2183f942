package physics_test

import (
	"encoding/json"
	"math"
	"math/rand/v2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/physics"
)

var _ = Describe("Kepler", func() {
	var (
		k  *physics.Kepler
		x0 dynamo.State
	)

	BeforeEach(func() {
		k = physics.NewKepler()
		x0 = k.DefaultState()
	})

	It("evaluates the invariants of the reference orbit", func() {
		Expect(k.Energy(x0)).To(BeNumerically("~", -0.5, 1e-15))
		Expect(k.AngularMomentum(x0)).To(BeNumerically("~", 0.8, 1e-15))
		Expect(k.StateDim()).To(Equal(4))
	})

	It("agrees with the closed-form functions", func() {
		q := physics.Vec2{1, 0}
		p := physics.Vec2{0, 1}
		Expect(physics.H(q, p)).To(BeNumerically("~", -0.5, 1e-15))
		Expect(physics.L(q, p)).To(Equal(1.0))
		Expect(math.IsInf(physics.H(physics.Vec2{}, p), -1)).To(BeTrue())
	})

	It("differentiates H automatically", func() {
		x := dynamo.State{0.3, -0.7, 0.2, 1.1}
		dq, dp := k.Gradient(x)
		r := math.Hypot(x[0], x[1])
		Expect(dq[0]).To(BeNumerically("~", x[0]/(r*r*r), 1e-12))
		Expect(dq[1]).To(BeNumerically("~", x[1]/(r*r*r), 1e-12))
		Expect(dp[0]).To(BeNumerically("~", x[2], 1e-15))
		Expect(dp[1]).To(BeNumerically("~", x[3], 1e-15))
	})

	It("derives Hamilton's equations", func() {
		dx := k.Derive(x0, 0)
		Expect(dx[0]).To(BeNumerically("~", 0, 1e-15))
		Expect(dx[1]).To(BeNumerically("~", 2, 1e-15))
		Expect(dx[2]).To(BeNumerically("~", -1/(0.4*0.4), 1e-12))
		Expect(dx[3]).To(BeNumerically("~", 0, 1e-15))

		f := k.Force(x0, 0)
		v := k.Velocity(x0, 0)
		Expect(f).To(HaveLen(2))
		Expect(v[1]).To(BeNumerically("~", 2, 1e-15))
	})

	It("reports the circular frequency at the current radius", func() {
		Expect(k.Frequency(dynamo.State{4, 0, 0, 0.5})).To(BeNumerically("~", 0.125, 1e-15))
	})
})

var _ = Describe("Elements", func() {
	It("recovers the conic of the reference orbit", func() {
		el, err := physics.ElementsOf(physics.NewKepler().DefaultState())
		Expect(err).NotTo(HaveOccurred())
		Expect(el.SemiMajor).To(BeNumerically("~", 1, 1e-14))
		Expect(el.Eccentricity).To(BeNumerically("~", 0.6, 1e-14))
		Expect(el.Period).To(BeNumerically("~", 2*math.Pi, 1e-12))
		Expect(el.EccentricityVector[0]).To(BeNumerically("~", 0.6, 1e-14))
		Expect(el.EccentricityVector[1]).To(BeNumerically("~", 0, 1e-14))

		// The periapsis position lies along the eccentricity vector at a(1-e).
		rp := el.SemiMajor * (1 - el.Eccentricity) / el.Eccentricity
		Expect(rp * el.EccentricityVector[0]).To(BeNumerically("~", 0.4, 1e-13))

		data, err := json.Marshal(el)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"ecc_vector":[`))
		Expect(string(data)).NotTo(ContainSubstring(`"periapsis"`))
	})

	It("rejects unbound orbits", func() {
		_, err := physics.ElementsOf(dynamo.State{1, 0, 0, 2})
		Expect(err).To(MatchError(physics.ErrUnbound))
	})

	It("rejects radial orbits in propagation", func() {
		_, err := physics.Propagate(dynamo.State{1, 0, 0.5, 0}, 1)
		Expect(err).To(MatchError(physics.ErrDegenerate))
	})

	DescribeTable("returns to the start after one period",
		func(x0 dynamo.State) {
			el, err := physics.ElementsOf(x0)
			Expect(err).NotTo(HaveOccurred())
			x, err := physics.Propagate(x0, el.Period)
			Expect(err).NotTo(HaveOccurred())
			for i := range x0 {
				Expect(x[i]).To(BeNumerically("~", x0[i], 1e-9))
			}
		},
		Entry("periapsis", dynamo.State{0.4, 0, 0, 2}),
		Entry("circular", dynamo.State{1, 0, 0, 1}),
		Entry("retrograde", dynamo.State{0.4, 0, 0, -2}),
		Entry("mid orbit", dynamo.State{-0.3, 0.8, -0.9, -0.2}),
	)

	It("reaches apoapsis after half a period", func() {
		x, err := physics.Propagate(dynamo.State{0.4, 0, 0, 2}, math.Pi)
		Expect(err).NotTo(HaveOccurred())
		Expect(x[0]).To(BeNumerically("~", -1.6, 1e-9))
		Expect(x[1]).To(BeNumerically("~", 0, 1e-9))
		Expect(x[3]).To(BeNumerically("~", -0.5, 1e-9))
	})

	It("preserves the invariants", func() {
		x0 := dynamo.State{-0.3, 0.8, -0.9, -0.2}
		x, err := physics.Propagate(x0, 2.7)
		Expect(err).NotTo(HaveOccurred())
		Expect(physics.H(physics.Split(x))).To(BeNumerically("~", physics.H(physics.Split(x0)), 1e-10))
		Expect(physics.L(physics.Split(x))).To(BeNumerically("~", physics.L(physics.Split(x0)), 1e-10))
	})

	It("solves Kepler's equation", func() {
		ecc, err := physics.SolveKepler(1.2, 0.9)
		Expect(err).NotTo(HaveOccurred())
		Expect(ecc - 0.9*math.Sin(ecc)).To(BeNumerically("~", 1.2, 1e-12))
	})
})

var _ = Describe("Conserved quantities", func() {
	hamiltonian := func(q, p physics.Vec2) float64 {
		return (p[0]*p[0]+p[1]*p[1])/2 - 1/math.Sqrt(q[0]*q[0]+q[1]*q[1])
	}

	DescribeTable("match the closed forms",
		func(q, p physics.Vec2) {
			Expect(physics.H(q, p)).To(BeNumerically("~", hamiltonian(q, p), 1e-14))
			Expect(physics.L(q, p)).To(BeNumerically("~", q[0]*p[1]-p[0]*q[1], 1e-14))
			Expect(physics.L(p, q)).To(Equal(-physics.L(q, p)))
		},
		Entry("reference orbit", physics.Vec2{0.4, 0}, physics.Vec2{0, 2}),
		Entry("retrograde", physics.Vec2{1, 0}, physics.Vec2{0, -1}),
		Entry("unbound", physics.Vec2{1, 0}, physics.Vec2{0, 2}),
		Entry("radial infall", physics.Vec2{0, -3}, physics.Vec2{0, 0.5}),
		Entry("third quadrant", physics.Vec2{-0.7, -1.3}, physics.Vec2{0.45, -0.2}),
		Entry("at rest", physics.Vec2{2.5, 1}, physics.Vec2{}),
	)

	It("match the closed forms over random states", func() {
		rng := rand.New(rand.NewPCG(1, 2))
		for i := 0; i < 500; i++ {
			q := physics.Vec2{rng.Float64()*6 - 3, rng.Float64()*6 - 3}
			p := physics.Vec2{rng.Float64()*6 - 3, rng.Float64()*6 - 3}
			if q.Norm() < 1e-3 {
				continue
			}
			Expect(physics.H(q, p)).To(BeNumerically("~", hamiltonian(q, p), 1e-12*(1+math.Abs(hamiltonian(q, p)))))
			Expect(physics.L(p, q)).To(Equal(-physics.L(q, p)))
		}
	})
})
