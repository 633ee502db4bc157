// Package modelkey maps generation parameters to the opaque model keys the
// upstream accepts. The upstream rejects unknown keys, so the tables here are
// exact.
package modelkey

import (
	"fmt"
	"strings"

	"jan-server/services/flow-api/internal/domain/flow"
)

// Path is the generation mode chosen from the attached image roles.
type Path string

const (
	PathText          Path = "text"
	PathStartImage    Path = "start_image"
	PathStartAndEnd   Path = "start_and_end_image"
	PathReferenceImgs Path = "reference_images"
)

// ClassifyPath applies role precedence: start+end, then start, then
// references, then text.
func ClassifyPath(hasStart, hasEnd, hasReferences bool) Path {
	switch {
	case hasStart && hasEnd:
		return PathStartAndEnd
	case hasStart:
		return PathStartImage
	case hasReferences:
		return PathReferenceImgs
	default:
		return PathText
	}
}

// Roles returns the role flags a path generates with. Roles that lost on
// precedence are dropped, so the key always matches the endpoint.
func (p Path) Roles() (hasStart, hasEnd, hasReferences bool) {
	switch p {
	case PathStartAndEnd:
		return true, true, false
	case PathStartImage:
		return true, false, false
	case PathReferenceImgs:
		return false, false, true
	default:
		return false, false, false
	}
}

// SelectForPath selects the model key for an already classified path.
func SelectForPath(tier, aspectRatio string, path Path) (string, error) {
	hasStart, hasEnd, hasReferences := path.Roles()
	return SelectVideoModelKey(tier, aspectRatio, hasStart, hasEnd, hasReferences)
}

type orientation int

const (
	landscape orientation = iota
	portrait
)

type tierKeys struct {
	landscape string
	portrait  string
}

var startAndEndKeys = map[string]tierKeys{
	flow.TierFast:    {"veo_3_1_i2v_s_fast_ultra_fl", "veo_3_1_i2v_s_fast_portrait_ultra_fl"},
	flow.TierRelaxed: {"veo_3_1_i2v_s_fast_ultra_fl_relaxed", "veo_3_1_i2v_s_fast_portrait_ultra_fl_relaxed"},
	flow.TierQuality: {"veo_3_1_i2v_s_fl", "veo_3_1_i2v_s_portrait_fl"},
}

var startKeys = map[string]tierKeys{
	flow.TierFast:    {"veo_3_1_i2v_s_fast_ultra", "veo_3_1_i2v_s_fast_portrait"},
	flow.TierRelaxed: {"veo_3_1_i2v_s_fast_ultra_relaxed", "veo_3_1_i2v_s_fast_portrait_relaxed"},
	flow.TierQuality: {"veo_3_1_i2v_s", "veo_3_1_i2v_s_portrait"},
}

var textKeys = map[string]tierKeys{
	flow.TierFast:    {"veo_3_1_t2v_fast_ultra", "veo_3_1_t2v_fast_portrait_ultra"},
	flow.TierRelaxed: {"veo_3_1_t2v_fast_ultra_relaxed", "veo_3_1_t2v_fast_portrait_ultra_relaxed"},
	flow.TierQuality: {"veo_3_1_t2v", "veo_3_1_t2v"},
}

const referenceKey = "veo_3_0_r2v_fast_ultra"

// SelectVideoModelKey returns the upstream model key for a video request.
// Orientation is landscape only when aspectRatio is exactly
// VIDEO_ASPECT_RATIO_LANDSCAPE. Reference generation has no quality variant
// and is rejected with an UnsupportedCombination error.
func SelectVideoModelKey(tier, aspectRatio string, hasStart, hasEnd, hasReferences bool) (string, error) {
	if !KnownTier(tier) {
		return "", unsupported(fmt.Sprintf("unknown model tier %q", tier))
	}
	o := portrait
	if aspectRatio == flow.VideoAspectLandscape {
		o = landscape
	}

	if hasReferences {
		switch tier {
		case flow.TierQuality:
			return "", unsupported("reference images are not available for the quality tier")
		case flow.TierRelaxed:
			return referenceKey + "_relaxed", nil
		default:
			return referenceKey, nil
		}
	}

	var table map[string]tierKeys
	switch {
	case hasStart && hasEnd:
		table = startAndEndKeys
	case hasStart:
		table = startKeys
	default:
		table = textKeys
	}
	keys := table[tier]
	if o == landscape {
		return keys.landscape, nil
	}
	return keys.portrait, nil
}

// KnownTier reports whether tier is one of the three model tiers.
func KnownTier(tier string) bool {
	switch tier {
	case flow.TierFast, flow.TierRelaxed, flow.TierQuality:
		return true
	}
	return false
}

// NormalizeTier maps the short public names to tier names. Empty means fast.
func NormalizeTier(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "fast", flow.TierFast:
		return flow.TierFast
	case "relaxed", flow.TierRelaxed:
		return flow.TierRelaxed
	case "quality", flow.TierQuality:
		return flow.TierQuality
	}
	return raw
}

// NormalizeVideoAspect accepts short aliases and the upstream enum names.
// Anything unrecognized is passed through unchanged.
func NormalizeVideoAspect(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "landscape", "16:9", strings.ToLower(flow.VideoAspectLandscape):
		return flow.VideoAspectLandscape
	case "portrait", "9:16", strings.ToLower(flow.VideoAspectPortrait):
		return flow.VideoAspectPortrait
	}
	return raw
}

// NormalizeImageAspect accepts short aliases and the upstream enum names.
func NormalizeImageAspect(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "landscape", "16:9", strings.ToLower(flow.ImageAspectLandscape):
		return flow.ImageAspectLandscape
	case "portrait", "9:16", strings.ToLower(flow.ImageAspectPortrait):
		return flow.ImageAspectPortrait
	case "square", "1:1", strings.ToLower(flow.ImageAspectSquare):
		return flow.ImageAspectSquare
	}
	return raw
}

// ImageShape is the request shape of an image generation.
type ImageShape string

const (
	ImageTextToImage  ImageShape = "text_to_image"
	ImageImageToImage ImageShape = "image_to_image"
)

// ImageInput is one entry of the upstream imageInputs array.
type ImageInput struct {
	Name           string `json:"name"`
	ImageInputType string `json:"imageInputType"`
}

// SelectImageRequest picks the image request shape from the optional
// reference media id. There is no tier or orientation matrix for images.
func SelectImageRequest(referenceID string) (ImageShape, []ImageInput) {
	if referenceID == "" {
		return ImageTextToImage, []ImageInput{}
	}
	return ImageImageToImage, []ImageInput{{Name: referenceID, ImageInputType: flow.ImageInputReference}}
}

func unsupported(msg string) error {
	return flow.NewError(flow.KindUnsupportedCombination, "select_model_key", msg)
}
