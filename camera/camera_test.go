package camera

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTransform() Transform {
	return Transform{
		1, 0, 0, 10,
		0, 1, 0, 20,
		0, 0, 1, 30,
	}
}

func TestStatusFlags(t *testing.T) {
	t.Parallel()

	assert.True(t, AllGood.Has(PositionGood))
	assert.True(t, AllGood.Has(RotationGood))
	assert.False(t, PositionGood.Has(AllGood))
	assert.False(t, Uninitialized.Has(Uninitialized))

	tests := map[Status]string{
		Uninitialized:                   "Uninitialized",
		PositionGood:                    "PositionGood",
		RotationGood:                    "RotationGood",
		AllGood:                         "AllGood",
		PartiallyUpdated:                "PartiallyUpdated",
		PositionGood | PartiallyUpdated: "PositionGood|PartiallyUpdated",
	}
	for status, want := range tests {
		assert.Equal(t, want, status.String())
	}
}

func TestTransformAccessors(t *testing.T) {
	tr := sampleTransform()
	assert.Equal(t, [3]float64{10, 20, 30}, tr.Position())
	assert.Equal(t, [3]float64{0, 1, 0}, tr.Column(1))

	tr.SetColumn(PositionColumn, [3]float64{-1, -2, -3})
	assert.Equal(t, -2.0, tr.At(1, 3))

	_, err := TransformFromRowMajor(make([]float64, 11))
	assert.Error(t, err)

	sample := sampleTransform()
	got, err := TransformFromRowMajor(append(sample[:], 99))
	require.NoError(t, err)
	assert.Equal(t, sampleTransform(), got)
}

func TestApplyBasis(t *testing.T) {
	t.Parallel()

	assert.Equal(t, sampleTransform(), sampleTransform().Apply(Identity))

	// columns move: new col0 = -old col1, new col1 = old col2, new col2 = old col0
	basis := Basis{
		0, 0, 1, 0,
		-1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 0, 1,
	}
	tr := Transform{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
	}
	want := Transform{
		-2, 3, 1, 4,
		-6, 7, 5, 8,
		-10, 11, 9, 12,
	}
	assert.Empty(t, cmp.Diff(want, tr.Apply(basis)))
}

func TestFromPositionAndLookDir(t *testing.T) {
	tr := FromPositionAndLookDir([3]float64{1, 2, 3}, [3]float64{0, 2, 0})

	approx := cmpopts.EquateApprox(0, 1e-12)
	assert.Empty(t, cmp.Diff([3]float64{1, 2, 3}, tr.Position(), approx))
	assert.Empty(t, cmp.Diff([3]float64{0, 1, 0}, tr.Column(1), approx))
	assert.Empty(t, cmp.Diff([3]float64{1, 0, 0}, tr.Column(0), approx))
	assert.Empty(t, cmp.Diff([3]float64{0, 0, 1}, tr.Column(2), approx))

	up := tr.Column(2)
	assert.InDelta(t, 1.0, math.Sqrt(up[0]*up[0]+up[1]*up[1]+up[2]*up[2]), 1e-12)
}

func TestResultJSON(t *testing.T) {
	t.Parallel()

	t.Run("all good", func(t *testing.T) {
		r := Result{Status: AllGood, Transform: sampleTransform(), FovV: 60}
		b, err := json.Marshal(r)
		require.NoError(t, err)

		var raw map[string]interface{}
		require.NoError(t, json.Unmarshal(b, &raw))
		assert.Contains(t, raw, "extrinsic_cam2world")
		assert.Contains(t, raw, "fov_v_degrees")
		assert.NotContains(t, raw, "fov_h_degrees")
		assert.NotContains(t, raw, "extrinsic_WIP")

		var back Result
		require.NoError(t, json.Unmarshal(b, &back))
		assert.Empty(t, cmp.Diff(r, back))
	})

	t.Run("work in progress", func(t *testing.T) {
		r := Result{Status: PositionGood, Transform: sampleTransform(), FovV: -9999, FovH: 90}
		b, err := json.Marshal(r)
		require.NoError(t, err)

		var raw map[string]interface{}
		require.NoError(t, json.Unmarshal(b, &raw))
		assert.Contains(t, raw, "extrinsic_WIP")
		assert.Contains(t, raw, "fov_h_degrees")
		assert.NotContains(t, raw, "fov_v_degrees")
		assert.True(t, r.HasIntrinsics())
	})
}
