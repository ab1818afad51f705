package prediction

const (
	interpolationCapacity = 20
	maxExtrapolationMS    = float64(60)
)

// RemoteSample is one received snapshot of a remote player's visible
// state, timestamped by local receive wall time (spec.md §4.9).
type RemoteSample struct {
	ReceiveTimeMS float64
	X, Y          float64
	VX, VY        float64
	Facing        int
	StateFlags    int
}

// InterpolationBuffer is a fixed-capacity ring of RemoteSample used only
// for rendering remote players smoothly between snapshots; it never
// feeds back into the simulation.
type InterpolationBuffer struct {
	samples []RemoteSample
}

// NewInterpolationBuffer returns an empty ring.
func NewInterpolationBuffer() *InterpolationBuffer {
	return &InterpolationBuffer{samples: make([]RemoteSample, 0, interpolationCapacity)}
}

// Push appends a new sample, evicting the oldest once at capacity.
func (b *InterpolationBuffer) Push(s RemoteSample) {
	if len(b.samples) >= interpolationCapacity {
		b.samples = b.samples[1:]
	}
	b.samples = append(b.samples, s)
}

// Sample returns the interpolated (or extrapolated) position/facing/flags
// for renderTimeMS, per spec.md §4.9:
//   - bracketed by two snapshots: linear position interpolation, velocity/
//     facing/flags come from the newer bracket.
//   - beyond the newest snapshot: extrapolate with gravity for up to
//     MAX_EXTRAPOLATION_MS; beyond that, freeze on the newest snapshot.
func (b *InterpolationBuffer) Sample(renderTimeMS float64, gravity float64) RemoteSample {
	n := len(b.samples)
	if n == 0 {
		return RemoteSample{}
	}
	if n == 1 {
		return b.samples[0]
	}

	newest := b.samples[n-1]
	if renderTimeMS > newest.ReceiveTimeMS {
		dt := renderTimeMS - newest.ReceiveTimeMS
		if dt > maxExtrapolationMS {
			return newest
		}
		seconds := dt / 1000
		return RemoteSample{
			ReceiveTimeMS: renderTimeMS,
			X:             newest.X + newest.VX*seconds,
			Y:             newest.Y + newest.VY*seconds + 0.5*gravity*seconds*seconds,
			VX:            newest.VX,
			VY:            newest.VY + gravity*seconds,
			Facing:        newest.Facing,
			StateFlags:    newest.StateFlags,
		}
	}

	for i := 0; i < n-1; i++ {
		a, bSample := b.samples[i], b.samples[i+1]
		if a.ReceiveTimeMS <= renderTimeMS && renderTimeMS <= bSample.ReceiveTimeMS {
			span := bSample.ReceiveTimeMS - a.ReceiveTimeMS
			t := 0.0
			if span > 0 {
				t = (renderTimeMS - a.ReceiveTimeMS) / span
			}
			return RemoteSample{
				ReceiveTimeMS: renderTimeMS,
				X:             a.X + (bSample.X-a.X)*t,
				Y:             a.Y + (bSample.Y-a.Y)*t,
				VX:            bSample.VX,
				VY:            bSample.VY,
				Facing:        bSample.Facing,
				StateFlags:    bSample.StateFlags,
			}
		}
	}
	return b.samples[0]
}
