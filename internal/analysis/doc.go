// Package analysis extracts physical quantities from recorded runs.
//
// Trajectories are built from frames of a live run ([FromFrames]) or from
// stored samples ([FromSamples]). On top of them:
//
//   - [Bounces]: impacts of a falling body with the measured restitution
//   - [Apexes]: heights of the flight phases between impacts
//   - [Crossings] and [Period]: level crossings, e.g. a pendulum's period
//   - [PhasePortrait]: position against velocity along one axis
//   - [Divergence]: exponential separation of two perturbed runs
//
// A rebound of a ball dropped onto inelastic ground should reproduce the
// ball's restitution:
//
//	s := analysis.Summarize(analysis.Bounces(tr, 1, 0.1), analysis.Apexes(tr, 1))
//	fmt.Println(s.MeanRestitution)
package analysis
