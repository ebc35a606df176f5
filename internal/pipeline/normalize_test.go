package pipeline

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"asset-thumbnailer/internal/mathutil"
)

const target = TargetFraction * CanvasSize

func genBox(t *rapid.T) mathutil.Box3 {
	c := mgl64.Vec3{
		rapid.Float64Range(-1000, 1000).Draw(t, "cx"),
		rapid.Float64Range(-1000, 1000).Draw(t, "cy"),
		rapid.Float64Range(-1000, 1000).Draw(t, "cz"),
	}
	s := mgl64.Vec3{
		rapid.Float64Range(0, 1000).Draw(t, "sx"),
		rapid.Float64Range(0, 1000).Draw(t, "sy"),
		rapid.Float64Range(0.01, 1000).Draw(t, "sz"),
	}
	return mathutil.Box3{Min: c.Sub(s.Mul(0.5)), Max: c.Add(s.Mul(0.5))}
}

func TestNormalizeFitsLargestDimension(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := genBox(t)
		n, err := Normalize(raw, CanvasSize, FramingCentered)
		require.NoError(t, err)

		out := raw.Transform(n.Matrix())
		assert.InDelta(t, target, out.MaxDimension(), 1e-6)
		assert.Equal(t, raw.MaxDimension(), n.MaxDimension)
	})
}

func TestNormalizeCentersHorizontally(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := genBox(t)
		n, err := Normalize(raw, CanvasSize, FramingCentered)
		require.NoError(t, err)

		c := raw.Transform(n.Matrix()).Center()
		assert.InDelta(t, 0, c[0], 1e-6)
		assert.InDelta(t, 0, c[2], 1e-6)
		assert.InDelta(t, 0, c[1], 1e-6)
	})
}

func TestNormalizeReferenceFraming(t *testing.T) {
	raw := mathutil.Box3{Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{10, 4, 10}}
	n, err := Normalize(raw, CanvasSize, FramingReference)
	require.NoError(t, err)

	s := target / 10
	assert.InDelta(t, s, n.Scale, 1e-12)
	assert.InDelta(t, -5, n.Translation[0], 1e-12)
	assert.InDelta(t, -2*s, n.Translation[1], 1e-9)
	assert.InDelta(t, -5, n.Translation[2], 1e-12)
}

func TestNormalizeFramingsAgreeForCenteredBoxes(t *testing.T) {
	raw := mathutil.Box3{Min: mgl64.Vec3{-1, -1, -1}, Max: mgl64.Vec3{1, 1, 1}}
	a, err := Normalize(raw, CanvasSize, FramingCentered)
	require.NoError(t, err)
	b, err := Normalize(raw, CanvasSize, FramingReference)
	require.NoError(t, err)
	assert.Equal(t, a.Scale, b.Scale)
	assert.InDelta(t, 0, a.Translation.Sub(b.Translation).Len(), 1e-12)
}

func TestNormalizeRejectsDegenerateBoxes(t *testing.T) {
	cases := map[string]mathutil.Box3{
		"empty":  mathutil.EmptyBox(),
		"point":  mathutil.BoxFromPoints(mgl64.Vec3{3, 4, 5}),
		"origin": {},
		"nan":    {Min: mgl64.Vec3{math.NaN(), 0, 0}, Max: mgl64.Vec3{1, 1, 1}},
	}
	for name, box := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Normalize(box, CanvasSize, FramingCentered)
			var pe *PreconditionError
			require.True(t, errors.As(err, &pe), "got %v", err)
		})
	}
}

func TestYCorrectionZeroForUniformScale(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := genBox(t)
		n, err := Normalize(raw, CanvasSize, FramingReference)
		require.NoError(t, err)
		scaled := raw.Transform(n.Matrix())
		assert.InDelta(t, 0, YCorrection(raw, scaled, n.Scale), 1e-6)
	})
}

func TestYCorrectionHalvesHeightMismatch(t *testing.T) {
	raw := mathutil.Box3{Max: mgl64.Vec3{1, 2, 1}}
	scaled := mathutil.Box3{Max: mgl64.Vec3{10, 24, 10}}
	assert.InDelta(t, 2, YCorrection(raw, scaled, 10), 1e-12)
}

func TestPlaceCameraScalesEyeOnly(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d := rapid.Float64Range(1e-3, 1e4).Draw(t, "maxDimension")
		c := PlaceCamera(d, CanvasSize)

		assert.Equal(t, mgl64.Vec3{1.5 * d, 1.5 * d, 1.5 * d}, c.Eye)
		assert.Equal(t, mgl64.Vec3{}, c.Target)
		assert.Equal(t, -256.0, c.Left)
		assert.Equal(t, 256.0, c.Right)
		assert.Equal(t, 256.0, c.Top)
		assert.Equal(t, -256.0, c.Bottom)
		assert.Equal(t, -1000.0, c.Near)
		assert.Equal(t, 1000.0, c.Far)
	})
}

func TestPlaceCameraLinearInMaxDimension(t *testing.T) {
	a := PlaceCamera(2, CanvasSize)
	b := PlaceCamera(6, CanvasSize)
	assert.Equal(t, a.Eye.Mul(3), b.Eye)
}

func TestParseFraming(t *testing.T) {
	f, err := ParseFraming("")
	require.NoError(t, err)
	assert.Equal(t, FramingCentered, f)
	f, err = ParseFraming("reference")
	require.NoError(t, err)
	assert.Equal(t, "reference", f.String())
	_, err = ParseFraming("tight")
	assert.Error(t, err)
}
