package project

// Status is the lifecycle state of a project.
type Status string

const (
	StatusIdle                Status = "IDLE"
	StatusResearching         Status = "RESEARCHING"
	StatusWaitingTitle        Status = "WAITING_TITLE"
	StatusGeneratingStructure Status = "GENERATING_STRUCTURE"
	StatusReviewStructure     Status = "REVIEW_STRUCTURE"
	StatusWritingChapters     Status = "WRITING_CHAPTERS"
	StatusGeneratingMarketing Status = "GENERATING_MARKETING"
	StatusWaitingDetails      Status = "WAITING_DETAILS"
	StatusCompleted           Status = "COMPLETED"
	StatusFailed              Status = "FAILED"
)

// Terminal reports whether no further automatic progress is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusResearching, StatusWaitingTitle,
		StatusGeneratingStructure, StatusReviewStructure,
		StatusWritingChapters, StatusGeneratingMarketing,
		StatusWaitingDetails, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// StatusDetail is the status-specific payload carried alongside the open
// metadata envelope. Kind tags which fields are meaningful; each status
// only populates its own.
type StatusDetail struct {
	Kind string `json:"kind"`

	// Kind "writing"
	CurrentChapter int `json:"current_chapter,omitempty"`

	// Kind "completed"
	ArtifactPath string `json:"artifact_path,omitempty"`

	// Kind "failed"
	Cause string `json:"cause,omitempty"`

	// Kind "degraded_resume"
	Reason string `json:"reason,omitempty"`
}

// WritingDetail builds the detail payload for StatusWritingChapters.
func WritingDetail(chapterID int) *StatusDetail {
	return &StatusDetail{Kind: "writing", CurrentChapter: chapterID}
}

// CompletedDetail builds the detail payload for StatusCompleted.
func CompletedDetail(artifactPath string) *StatusDetail {
	return &StatusDetail{Kind: "completed", ArtifactPath: artifactPath}
}

// FailedDetail builds the detail payload for StatusFailed.
func FailedDetail(cause string) *StatusDetail {
	return &StatusDetail{Kind: "failed", Cause: cause}
}

// DegradedResumeDetail marks a project that was selected for resume but
// looks inconsistent (for example a non-idle status with an empty
// structure). Clients can surface this instead of silently proceeding.
func DegradedResumeDetail(reason string) *StatusDetail {
	return &StatusDetail{Kind: "degraded_resume", Reason: reason}
}

// Tier is the owner's entitlement tier. It gates how much long-form extra
// content (dedication, acknowledgments, about-the-author) is generated.
type Tier string

const (
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
)

// GeneratesExtras reports whether this tier receives generated extras.
// Lower tiers receive literal placeholder text instead of an error.
func (t Tier) GeneratesExtras() bool {
	return t == TierPremium
}
