package world_test

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/shape"
	"github.com/san-kum/rigidsim/internal/world"
	"go.uber.org/zap"
)

const dt = world.DefaultTimeStep

func newWorld() *world.World {
	w, err := world.New(world.DefaultConfig(), zap.NewNop())
	Expect(err).NotTo(HaveOccurred())
	return w
}

func mustShape(s *shape.Shape, err error) *shape.Shape {
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return s
}

func add(w *world.World, s *shape.Shape, pos mgl64.Vec3, opts body.Options) body.ID {
	id, err := w.AddBody(s, body.At(pos), 1, opts)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return id
}

func ground(w *world.World) body.ID {
	id, err := w.AddBody(mustShape(shape.NewBox(mgl64.Vec3{50, 0.5, 50})), body.At(mgl64.Vec3{0, -0.5, 0}), 0,
		body.Options{Static: true, Friction: 0.6})
	Expect(err).NotTo(HaveOccurred())
	return id
}

func pose(w *world.World, id body.ID) body.Pose {
	p, err := w.BodyPose(id)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return p
}

func velocity(w *world.World, id body.ID) mgl64.Vec3 {
	b, err := w.Body(id)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return b.LinearVelocity()
}

// mixedPile drops spheres, boxes, capsules and a hull onto the ground.
func mixedPile(w *world.World) {
	ground(w)
	hull := mustShape(shape.NewConvexHull([]mgl64.Vec3{
		{0.5, 0, 0}, {-0.5, 0, 0}, {0, 0.5, 0}, {0, -0.5, 0}, {0, 0, 0.5}, {0, 0, -0.5},
	}))
	shapes := []*shape.Shape{
		mustShape(shape.NewSphere(0.4)),
		mustShape(shape.NewBox(mgl64.Vec3{0.4, 0.3, 0.5})),
		mustShape(shape.NewCapsule(0.25, 0.4)),
		hull,
	}
	for i := 0; i < 12; i++ {
		pos := mgl64.Vec3{float64(i%3)*0.7 - 0.7, 1 + float64(i)*0.9, float64(i%2)*0.4 - 0.2}
		id, err := w.AddBody(shapes[i%len(shapes)], body.Pose{
			Position:    pos,
			Orientation: mgl64.QuatRotate(0.3*float64(i), mgl64.Vec3{1, 1, 0}.Normalize()),
		}, 1, body.Options{Restitution: 0.2, Friction: 0.5})
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(BeNumerically(">", 0))
	}
}

var _ = Describe("World", func() {
	Describe("a sphere dropped on the ground", func() {
		It("rebounds to about e² of the drop height", func() {
			w := newWorld()
			ground(w)
			ball := add(w, mustShape(shape.NewSphere(0.5)), mgl64.Vec3{0, 10.5, 0}, body.Options{Restitution: 0.5})

			bounced, falling := false, false
			apex := 0.0
			for i := 0; i < 600; i++ {
				w.Step(dt)
				v := velocity(w, ball)
				if !bounced {
					bounced = v[1] > 0
					continue
				}
				if v[1] < 0 {
					falling = true
					break
				}
				apex = math.Max(apex, pose(w, ball).Position[1]-0.5)
			}
			Expect(bounced).To(BeTrue())
			Expect(falling).To(BeTrue())
			Expect(apex).To(BeNumerically("~", 2.5, 0.4))
		})
	})

	Describe("an elastic head-on collision of equal spheres", func() {
		var (
			w    *world.World
			a, b body.ID
		)

		BeforeEach(func() {
			w = newWorld()
			s := mustShape(shape.NewSphere(0.5))
			opts := body.Options{Restitution: 1, IgnoreGravity: true, LinearVelocity: mgl64.Vec3{3, 0, 0}}
			a = add(w, s, mgl64.Vec3{-2, 0, 0}, opts)
			opts.LinearVelocity = mgl64.Vec3{-3, 0, 0}
			b = add(w, s, mgl64.Vec3{2, 0, 0}, opts)
			for i := 0; i < 60; i++ {
				w.Step(dt)
			}
		})

		It("swaps the velocities", func() {
			Expect(velocity(w, a)[0]).To(BeNumerically("~", -3, 1e-9))
			Expect(velocity(w, b)[0]).To(BeNumerically("~", 3, 1e-9))
		})

		It("conserves momentum and kinetic energy", func() {
			ba, _ := w.Body(a)
			bb, _ := w.Body(b)
			Expect(ba.Momentum().Add(bb.Momentum()).Len()).To(BeNumerically("<", 1e-9))
			ke := ba.KineticEnergy() + bb.KineticEnergy()
			Expect(ke).To(BeNumerically("~", 9*ba.Mass(), 1e-9))
		})
	})

	Describe("a box resting on the ground", func() {
		It("keeps penetration small and bounded", func() {
			w := newWorld()
			ground(w)
			box := add(w, mustShape(shape.NewBox(mgl64.Vec3{0.5, 0.5, 0.5})), mgl64.Vec3{0, 0.6, 0}, body.Options{Friction: 0.5})

			for i := 0; i < 600; i++ {
				w.Step(dt)
				if i > 120 {
					Expect(w.Stats().MaxPenetration).To(BeNumerically("<", 0.01))
					Expect(pose(w, box).Position[1]).To(BeNumerically("~", 0.5, 0.01))
				}
			}
		})

		It("holds a short stack upright", func() {
			w := newWorld()
			ground(w)
			s := mustShape(shape.NewBox(mgl64.Vec3{0.5, 0.5, 0.5}))
			var ids []body.ID
			for i := 0; i < 3; i++ {
				ids = append(ids, add(w, s, mgl64.Vec3{0, 0.5 + float64(i)*1.001, 0}, body.Options{Friction: 0.6}))
			}
			for i := 0; i < 300; i++ {
				w.Step(dt)
			}
			top := pose(w, ids[2]).Position
			Expect(top[1]).To(BeNumerically("~", 2.5, 0.1))
			Expect(math.Hypot(top[0], top[2])).To(BeNumerically("<", 0.05))
		})
	})

	Describe("a tumbling pile", func() {
		It("keeps every orientation a unit quaternion", func() {
			w := newWorld()
			mixedPile(w)
			for i := 0; i < 300; i++ {
				w.Step(dt)
				for _, id := range w.Bodies() {
					Expect(pose(w, id).Orientation.Len()).To(BeNumerically("~", 1, 1e-9))
				}
			}
		})

		It("never pulls bodies together", func() {
			w := newWorld()
			mixedPile(w)
			for i := 0; i < 300; i++ {
				w.Step(dt)
				for _, c := range w.Contacts() {
					for _, p := range c.Points {
						Expect(p.NormalImpulse).To(BeNumerically(">=", 0))
						Expect(p.Depth).To(BeNumerically(">=", 0))
					}
				}
			}
		})

		It("is deterministic across independent runs", func() {
			first, second := newWorld(), newWorld()
			mixedPile(first)
			mixedPile(second)
			for i := 0; i < 300; i++ {
				first.Step(dt)
				second.Step(dt)
			}
			for _, id := range first.Bodies() {
				Expect(pose(second, id)).To(Equal(pose(first, id)))
			}
		})
	})

	Describe("static bodies", func() {
		It("never move", func() {
			w := newWorld()
			floor := ground(w)
			before := pose(w, floor)
			add(w, mustShape(shape.NewBox(mgl64.Vec3{0.5, 0.5, 0.5})), mgl64.Vec3{0, 3, 0}, body.Options{})

			Expect(w.ApplyForce(floor, mgl64.Vec3{0, 1000, 0}, mgl64.Vec3{1, 0, 0})).To(Succeed())
			Expect(w.ApplyImpulse(floor, mgl64.Vec3{50, 0, 0}, mgl64.Vec3{})).To(Succeed())
			for i := 0; i < 120; i++ {
				w.Step(dt)
			}
			Expect(pose(w, floor)).To(Equal(before))
			Expect(velocity(w, floor)).To(Equal(mgl64.Vec3{}))
		})
	})

	Describe("removing a body", func() {
		It("reports unknown ids with ErrNotFound", func() {
			w := newWorld()
			id := add(w, mustShape(shape.NewSphere(1)), mgl64.Vec3{}, body.Options{})
			Expect(w.RemoveBody(id)).To(Succeed())
			Expect(w.RemoveBody(id)).To(MatchError(world.ErrNotFound))
			_, err := w.BodyPose(id)
			Expect(err).To(MatchError(world.ErrNotFound))
		})
	})
})
