package particlefilter

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noiseless = Noise{Forward: 0, Turn: 0, Sense: 1}

func assertInDomain(t *testing.T, w *World, p Pose) {
	t.Helper()
	assert.GreaterOrEqual(t, p.X, 0.0)
	assert.Less(t, p.X, w.Size)
	assert.GreaterOrEqual(t, p.Y, 0.0)
	assert.Less(t, p.Y, w.Size)
	assert.GreaterOrEqual(t, p.Heading, 0.0)
	assert.Less(t, p.Heading, 2*math.Pi)
}

func TestNoiseValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		noise   Noise
		wantErr bool
	}{
		{"default", DefaultNoise(), false},
		{"noiseless motion", Noise{Forward: 0, Turn: 0, Sense: 0.1}, false},
		{"negative forward", Noise{Forward: -1, Turn: 0, Sense: 1}, true},
		{"negative turn", Noise{Forward: 0, Turn: -0.1, Sense: 1}, true},
		{"zero sense", Noise{Forward: 0, Turn: 0, Sense: 0}, true},
		{"NaN sense", Noise{Forward: 0, Turn: 0, Sense: math.NaN()}, true},
		{"infinite forward", Noise{Forward: math.Inf(1), Turn: 0, Sense: 1}, true},
		{"infinite turn", Noise{Forward: 0, Turn: math.Inf(1), Sense: 1}, true},
		{"infinite sense", Noise{Forward: 0, Turn: 0, Sense: math.Inf(1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.noise.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestControlValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		u       Control
		wantErr bool
	}{
		{"reference control", Control{Turn: 0.1, Forward: 5}, false},
		{"reverse", Control{Turn: -3, Forward: -2}, false},
		{"infinite forward", Control{Turn: 0, Forward: math.Inf(1)}, true},
		{"infinite turn", Control{Turn: math.Inf(-1), Forward: 5}, true},
		{"NaN forward", Control{Turn: 0, Forward: math.NaN()}, true},
		{"NaN turn", Control{Turn: math.NaN(), Forward: 5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.u.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewPose(t *testing.T) {
	t.Parallel()
	w := newTestWorld(t)

	p, err := NewPose(w, 105, -5, -math.Pi/2, DefaultNoise())
	require.NoError(t, err)
	assert.InDelta(t, 5.0, p.X, epsilon)
	assert.InDelta(t, 95.0, p.Y, epsilon)
	assert.InDelta(t, 3*math.Pi/2, p.Heading, epsilon)
	assert.Equal(t, DefaultNoise(), p.Noise)

	_, err = NewPose(w, 1, 1, 0, Noise{Sense: 0})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewPose(w, math.Inf(1), 1, 0, DefaultNoise())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRandomPose(t *testing.T) {
	t.Parallel()
	w := newTestWorld(t)

	src := rand.NewPCG(7, 7)
	for i := 0; i < 1000; i++ {
		p := RandomPose(w, DefaultNoise(), src)
		assertInDomain(t, w, p)
		assert.Equal(t, DefaultNoise(), p.Noise)
	}

	a := RandomPose(w, DefaultNoise(), rand.NewPCG(1, 2))
	b := RandomPose(w, DefaultNoise(), rand.NewPCG(1, 2))
	assert.Equal(t, a, b)
}

func TestMove_Noiseless(t *testing.T) {
	t.Parallel()
	w := newTestWorld(t)
	src := rand.NewPCG(1, 1)

	tests := []struct {
		name  string
		start Pose
		u     Control
		wantX float64
		wantY float64
		wantH float64
	}{
		{
			name:  "straight along x",
			start: Pose{X: 10, Y: 10, Heading: 0, Noise: noiseless},
			u:     Control{Turn: 0, Forward: 5},
			wantX: 15, wantY: 10, wantH: 0,
		},
		{
			name:  "turn then forward",
			start: Pose{X: 10, Y: 10, Heading: 0, Noise: noiseless},
			u:     Control{Turn: math.Pi / 2, Forward: 5},
			wantX: 10, wantY: 15, wantH: math.Pi / 2,
		},
		{
			name:  "wraps past the right edge",
			start: Pose{X: 98, Y: 50, Heading: 0, Noise: noiseless},
			u:     Control{Turn: 0, Forward: 5},
			wantX: 3, wantY: 50, wantH: 0,
		},
		{
			name:  "heading wraps past 2π",
			start: Pose{X: 50, Y: 50, Heading: 2*math.Pi - 0.1, Noise: noiseless},
			u:     Control{Turn: 0.2, Forward: 0},
			wantX: 50, wantY: 50, wantH: 0.1,
		},
		{
			name:  "negative distance moves backwards",
			start: Pose{X: 50, Y: 50, Heading: 0, Noise: noiseless},
			u:     Control{Turn: 0, Forward: -3},
			wantX: 47, wantY: 50, wantH: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.start.Move(w, tt.u, src)
			assert.InDelta(t, tt.wantX, got.X, 1e-6)
			assert.InDelta(t, tt.wantY, got.Y, 1e-6)
			assert.InDelta(t, tt.wantH, got.Heading, 1e-6)
			assertInDomain(t, w, got)
		})
	}
}

func TestMove_ReturnsNewPose(t *testing.T) {
	t.Parallel()
	w := newTestWorld(t)

	start := Pose{X: 30, Y: 40, Heading: 1, Noise: DefaultNoise()}
	before := start

	moved := start.Move(w, Control{Turn: 0.1, Forward: 5}, rand.NewPCG(3, 4))

	assert.Equal(t, before, start, "receiver must not change")
	assert.NotEqual(t, start, moved)
	assert.Equal(t, start.Noise, moved.Noise, "noise parameters carry over")
}

func TestMove_StaysInDomain(t *testing.T) {
	t.Parallel()
	w := newTestWorld(t)
	src := rand.NewPCG(11, 12)

	p := Pose{X: 1, Y: 99, Heading: 0, Noise: Noise{Forward: 20, Turn: 3, Sense: 1}}
	for i := 0; i < 2000; i++ {
		p = p.Move(w, Control{Turn: 0.7, Forward: 37}, src)
		assertInDomain(t, w, p)
	}
}

func TestMove_NoiseSpread(t *testing.T) {
	t.Parallel()
	w := newTestWorld(t)
	src := rand.NewPCG(21, 22)

	start := Pose{X: 50, Y: 50, Heading: 0, Noise: Noise{Forward: 0.5, Turn: 0, Sense: 1}}

	const n = 2000
	var sum, sumSq float64
	for i := 0; i < n; i++ {
		d := start.Move(w, Control{Forward: 10}, src).X - start.X
		sum += d
		sumSq += d * d
	}
	mean := sum / n
	std := math.Sqrt(sumSq/n - mean*mean)

	assert.InDelta(t, 10.0, mean, 0.1)
	assert.InDelta(t, 0.5, std, 0.05)
}
