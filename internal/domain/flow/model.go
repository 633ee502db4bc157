package flow

import (
	"strings"
	"time"
)

// Video aspect ratios as the upstream names them.
const (
	VideoAspectLandscape = "VIDEO_ASPECT_RATIO_LANDSCAPE"
	VideoAspectPortrait  = "VIDEO_ASPECT_RATIO_PORTRAIT"
)

// Image aspect ratios as the upstream names them.
const (
	ImageAspectLandscape = "IMAGE_ASPECT_RATIO_LANDSCAPE"
	ImageAspectPortrait  = "IMAGE_ASPECT_RATIO_PORTRAIT"
	ImageAspectSquare    = "IMAGE_ASPECT_RATIO_SQUARE"
)

// Model tiers.
const (
	TierFast    = "veo-3_1_fast"
	TierRelaxed = "veo-3_1_relaxed"
	TierQuality = "veo-3_1_quality"
)

// Upstream generation statuses this service inspects.
const (
	StatusPending    = "MEDIA_GENERATION_STATUS_PENDING"
	StatusSuccessful = "MEDIA_GENERATION_STATUS_SUCCESSFUL"
	StatusFailed     = "MEDIA_GENERATION_STATUS_FAILED"
)

const (
	ToolPinhole            = "PINHOLE"
	ToolAssetManager       = "ASSET_MANAGER"
	ImageModelGemPix2      = "GEM_PIX_2"
	ImageUsageAsset        = "IMAGE_USAGE_TYPE_ASSET"
	ImageInputReference    = "IMAGE_INPUT_TYPE_REFERENCE"
	DefaultUserPaygateTier = "PAYGATE_TIER_ONE"
)

// Image roles a caller can attach to a video request.
type Role string

const (
	RoleFirstFrame     Role = "first_frame"
	RoleLastFrame      Role = "last_frame"
	RoleReferenceImage Role = "reference_image"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleFirstFrame, RoleLastFrame, RoleReferenceImage:
		return true
	}
	return false
}

// NormalizeStatus lowercases an upstream status and replaces underscores with spaces.
// An empty status reads as "pending".
func NormalizeStatus(status string) string {
	if status == "" {
		return "pending"
	}
	return strings.ReplaceAll(strings.ToLower(status), "_", " ")
}

// IsTerminal reports whether an upstream status will not change any more.
func IsTerminal(status string) bool {
	return status == StatusSuccessful || strings.Contains(status, "FAILED")
}

// Credentials are the two secrets every upstream call needs.
type Credentials struct {
	SessionToken string
	CSRFToken    string
}

// Credits is the account balance reported upstream.
type Credits struct {
	Credits         int    `json:"credits"`
	UserPaygateTier string `json:"user_paygate_tier"`
}

// Project is an upstream container for generations.
type Project struct {
	ID           string
	CreationTime string
}

// VideoRequest is one video generation call. Exactly which image fields are
// set decides the upstream endpoint.
type VideoRequest struct {
	ProjectID         string
	Prompt            string
	AspectRatio       string
	Seed              int
	ModelKey          string
	SceneID           string
	PaygateTier       string
	StartImageID      string
	EndImageID        string
	ReferenceImageIDs []string
}

// OperationRef identifies an upstream operation for status polling.
type OperationRef struct {
	Name    string
	SceneID string
	Status  string
}

// Operation is one upstream generation handle.
type Operation struct {
	Name              string
	SceneID           string
	Status            string
	MediaGenerationID string
	Video             *VideoMetadata
}

// VideoMetadata is the payload of a successful video operation.
type VideoMetadata struct {
	MediaGenerationID string `json:"media_generation_id"`
	FifeURL           string `json:"fife_url"`
	ServingBaseURI    string `json:"serving_base_uri"`
	Seed              int    `json:"seed"`
	Model             string `json:"model"`
	AspectRatio       string `json:"aspect_ratio"`
	Prompt            string `json:"prompt"`
}

// OperationsResult is the shape of generate and status responses.
type OperationsResult struct {
	Operations       []Operation
	RemainingCredits int
}

// ImageRequest is one image generation call.
type ImageRequest struct {
	ProjectID        string
	Prompt           string
	AspectRatio      string
	Seed             int
	ModelName        string
	ReferenceImageID string
}

// GeneratedImage is the first image of an image generation response.
type GeneratedImage struct {
	MediaGenerationID string
	FifeURL           string
	EncodedImage      string
	AspectRatio       string
	Seed              int
	ModelNameType     string
}

// DefaultProjectTitle renders the title used when a project is created implicitly.
func DefaultProjectTitle(now time.Time) string {
	return now.Format("Jan 02 - 15:04")
}
