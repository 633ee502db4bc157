package modelkey_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"jan-server/services/flow-api/internal/domain/flow"
	"jan-server/services/flow-api/internal/domain/modelkey"
)

const (
	L = flow.VideoAspectLandscape
	P = flow.VideoAspectPortrait
)

func TestSelectVideoModelKey_Table(t *testing.T) {
	tests := []struct {
		name             string
		tier, aspect     string
		start, end, refs bool
		want             string
	}{
		{"refs fast", flow.TierFast, L, false, false, true, "veo_3_0_r2v_fast_ultra"},
		{"refs relaxed", flow.TierRelaxed, L, false, false, true, "veo_3_0_r2v_fast_ultra_relaxed"},
		{"refs fast portrait", flow.TierFast, P, false, false, true, "veo_3_0_r2v_fast_ultra"},

		{"start+end fast L", flow.TierFast, L, true, true, false, "veo_3_1_i2v_s_fast_ultra_fl"},
		{"start+end fast P", flow.TierFast, P, true, true, false, "veo_3_1_i2v_s_fast_portrait_ultra_fl"},
		{"start+end relaxed L", flow.TierRelaxed, L, true, true, false, "veo_3_1_i2v_s_fast_ultra_fl_relaxed"},
		{"start+end relaxed P", flow.TierRelaxed, P, true, true, false, "veo_3_1_i2v_s_fast_portrait_ultra_fl_relaxed"},
		{"start+end quality L", flow.TierQuality, L, true, true, false, "veo_3_1_i2v_s_fl"},
		{"start+end quality P", flow.TierQuality, P, true, true, false, "veo_3_1_i2v_s_portrait_fl"},

		{"start fast L", flow.TierFast, L, true, false, false, "veo_3_1_i2v_s_fast_ultra"},
		{"start fast P", flow.TierFast, P, true, false, false, "veo_3_1_i2v_s_fast_portrait"},
		{"start relaxed L", flow.TierRelaxed, L, true, false, false, "veo_3_1_i2v_s_fast_ultra_relaxed"},
		{"start relaxed P", flow.TierRelaxed, P, true, false, false, "veo_3_1_i2v_s_fast_portrait_relaxed"},
		{"start quality L", flow.TierQuality, L, true, false, false, "veo_3_1_i2v_s"},
		{"start quality P", flow.TierQuality, P, true, false, false, "veo_3_1_i2v_s_portrait"},

		{"text fast L", flow.TierFast, L, false, false, false, "veo_3_1_t2v_fast_ultra"},
		{"text fast P", flow.TierFast, P, false, false, false, "veo_3_1_t2v_fast_portrait_ultra"},
		{"text relaxed L", flow.TierRelaxed, L, false, false, false, "veo_3_1_t2v_fast_ultra_relaxed"},
		{"text relaxed P", flow.TierRelaxed, P, false, false, false, "veo_3_1_t2v_fast_portrait_ultra_relaxed"},
		{"text quality L", flow.TierQuality, L, false, false, false, "veo_3_1_t2v"},
		{"text quality P", flow.TierQuality, P, false, false, false, "veo_3_1_t2v"},

		{"end only is text", flow.TierFast, L, false, true, false, "veo_3_1_t2v_fast_ultra"},
		{"lowercase landscape reads as portrait", flow.TierFast, "landscape", false, false, false, "veo_3_1_t2v_fast_portrait_ultra"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := modelkey.SelectVideoModelKey(tt.tier, tt.aspect, tt.start, tt.end, tt.refs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectVideoModelKey_UnknownTier(t *testing.T) {
	_, err := modelkey.SelectVideoModelKey("veo-2", L, false, false, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, flow.ErrUnsupportedCombination))
}

func TestSelectVideoModelKey_TextKeysComeFromReferenceTable(t *testing.T) {
	reference := map[string]bool{
		"veo_3_1_t2v_fast_ultra":                  true,
		"veo_3_1_t2v_fast_portrait_ultra":         true,
		"veo_3_1_t2v_fast_ultra_relaxed":          true,
		"veo_3_1_t2v_fast_portrait_ultra_relaxed": true,
		"veo_3_1_t2v":                             true,
	}
	rapid.Check(t, func(rt *rapid.T) {
		tier := rapid.SampledFrom([]string{flow.TierFast, flow.TierRelaxed, flow.TierQuality}).Draw(rt, "tier")
		aspect := rapid.SampledFrom([]string{L, P}).Draw(rt, "aspect")

		key, err := modelkey.SelectVideoModelKey(tier, aspect, false, false, false)
		require.NoError(rt, err)
		assert.True(rt, reference[key], "unexpected key %q", key)
		if tier == flow.TierQuality {
			assert.Equal(rt, "veo_3_1_t2v", key)
		}
	})
}

func TestSelectVideoModelKey_QualityWithReferencesAlwaysRejected(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		aspect := rapid.OneOf(rapid.SampledFrom([]string{L, P}), rapid.String()).Draw(rt, "aspect")
		hasStart := rapid.Bool().Draw(rt, "hasStart")
		hasEnd := rapid.Bool().Draw(rt, "hasEnd")

		key, err := modelkey.SelectVideoModelKey(flow.TierQuality, aspect, hasStart, hasEnd, true)
		assert.Empty(rt, key)
		assert.True(rt, errors.Is(err, flow.ErrUnsupportedCombination), "got %v", err)
	})
}

func TestClassifyPath_Precedence(t *testing.T) {
	assert.Equal(t, modelkey.PathStartAndEnd, modelkey.ClassifyPath(true, true, true))
	assert.Equal(t, modelkey.PathStartImage, modelkey.ClassifyPath(true, false, true))
	assert.Equal(t, modelkey.PathReferenceImgs, modelkey.ClassifyPath(false, true, true))
	assert.Equal(t, modelkey.PathText, modelkey.ClassifyPath(false, true, false))
	assert.Equal(t, modelkey.PathText, modelkey.ClassifyPath(false, false, false))
}

func TestSelectForPath_KeyFollowsWinningRoles(t *testing.T) {
	tests := []struct {
		name             string
		tier             string
		start, end, refs bool
		want             string
	}{
		{"first+last+ref fast", flow.TierFast, true, true, true, "veo_3_1_i2v_s_fast_ultra_fl"},
		{"first+ref fast", flow.TierFast, true, false, true, "veo_3_1_i2v_s_fast_ultra"},
		{"first+ref quality", flow.TierQuality, true, false, true, "veo_3_1_i2v_s"},
		{"first+last+ref quality", flow.TierQuality, true, true, true, "veo_3_1_i2v_s_fl"},
		{"last+ref relaxed", flow.TierRelaxed, false, true, true, "veo_3_0_r2v_fast_ultra_relaxed"},
		{"last only", flow.TierFast, false, true, false, "veo_3_1_t2v_fast_ultra"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := modelkey.ClassifyPath(tt.start, tt.end, tt.refs)
			key, err := modelkey.SelectForPath(tt.tier, L, path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, key)
		})
	}
}

func TestSelectForPath_QualityReferencesOnlyRejected(t *testing.T) {
	_, err := modelkey.SelectForPath(flow.TierQuality, L, modelkey.ClassifyPath(false, true, true))
	assert.True(t, errors.Is(err, flow.ErrUnsupportedCombination))
}

func TestPathRoles(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		start := rapid.Bool().Draw(rt, "start")
		end := rapid.Bool().Draw(rt, "end")
		refs := rapid.Bool().Draw(rt, "refs")

		path := modelkey.ClassifyPath(start, end, refs)
		s, e, r := path.Roles()
		assert.Equal(rt, path, modelkey.ClassifyPath(s, e, r))
		assert.False(rt, s && r, "start and references never combine")
	})
}

func TestNormalizeAliases(t *testing.T) {
	assert.Equal(t, flow.TierFast, modelkey.NormalizeTier(""))
	assert.Equal(t, flow.TierRelaxed, modelkey.NormalizeTier("Relaxed"))
	assert.Equal(t, flow.TierQuality, modelkey.NormalizeTier(flow.TierQuality))
	assert.Equal(t, "turbo", modelkey.NormalizeTier("turbo"))

	assert.Equal(t, L, modelkey.NormalizeVideoAspect(""))
	assert.Equal(t, L, modelkey.NormalizeVideoAspect("16:9"))
	assert.Equal(t, P, modelkey.NormalizeVideoAspect("portrait"))
	assert.Equal(t, flow.ImageAspectSquare, modelkey.NormalizeImageAspect("1:1"))
	assert.Equal(t, flow.ImageAspectLandscape, modelkey.NormalizeImageAspect(""))
}

func TestSelectImageRequest(t *testing.T) {
	shape, inputs := modelkey.SelectImageRequest("")
	assert.Equal(t, modelkey.ImageTextToImage, shape)
	assert.NotNil(t, inputs)
	assert.Empty(t, inputs)

	shape, inputs = modelkey.SelectImageRequest("media-1")
	assert.Equal(t, modelkey.ImageImageToImage, shape)
	require.Len(t, inputs, 1)
	assert.Equal(t, "media-1", inputs[0].Name)
	assert.Equal(t, flow.ImageInputReference, inputs[0].ImageInputType)
}
