package models

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// HazardType classifies a reported hazard.
type HazardType string

const (
	HazardPothole      HazardType = "pothole"
	HazardWaterlogging HazardType = "waterlogging"
	HazardOther        HazardType = "other"
	// HazardUnknown is reserved for total detection failure and is never
	// a valid report type.
	HazardUnknown HazardType = "unknown"
)

// HazardStatus is the report lifecycle state. The owner may set any of
// the three freely; no ordering is enforced.
type HazardStatus string

const (
	StatusActive        HazardStatus = "active"
	StatusInvestigating HazardStatus = "investigating"
	StatusResolved      HazardStatus = "resolved"
)

const (
	DescriptionMinLen = 10
	DescriptionMaxLen = 500
)

// Location is a value type embedded in reports and selections. Address is
// a human-readable resolution of (lat, lng); a formatted coordinate string
// when geocoding was unavailable.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

// HazardReport is a user-submitted record of a public hazard. Votes and
// comments are server-maintained aggregates.
type HazardReport struct {
	ID          string       `json:"id"`
	Type        HazardType   `json:"type"`
	Description string       `json:"description"`
	Location    Location     `json:"location"`
	ReportedBy  string       `json:"reported_by"`
	ReportedAt  string       `json:"reported_at"`
	UpdatedAt   string       `json:"updated_at,omitempty"`
	Status      HazardStatus `json:"status"`
	Votes       int          `json:"votes"`
	Comments    int          `json:"comments"`
	ImageURL    string       `json:"image_url,omitempty"`
}

// Vote is at-most-one per (hazard, user); its presence toggles the
// report's vote counter.
type Vote struct {
	ID        string `json:"id"`
	HazardID  string `json:"hazard_id"`
	UserID    string `json:"user_id"`
	CreatedAt string `json:"created_at"`
}

// Profile mirrors the profiles table row.
type Profile struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// AuthenticatedUser is the single explicit user identity passed through
// request context instead of ad-hoc untyped profile state.
type AuthenticatedUser struct {
	ID       string            `json:"id"`
	Email    string            `json:"email,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// DetectedObject is one raw class from the detection API.
type DetectedObject struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

// HazardDetectionResult is transient; produced per image, consumed to
// pre-fill a report, never persisted.
type HazardDetectionResult struct {
	Type            HazardType       `json:"type"`
	Confidence      float64          `json:"confidence"`
	DetectedObjects []DetectedObject `json:"detected_objects,omitempty"`
}

// CreateReportRequest is the body of POST /reports.
type CreateReportRequest struct {
	Type        HazardType `json:"type"`
	Description string     `json:"description"`
	Location    Location   `json:"location"`
	ImageURL    string     `json:"image_url,omitempty"`
}

// UpdateReportRequest carries a partial update; nil fields are untouched.
// Only whitelisted fields can change.
type UpdateReportRequest struct {
	Type        *HazardType   `json:"type,omitempty"`
	Description *string       `json:"description,omitempty"`
	Status      *HazardStatus `json:"status,omitempty"`
	Location    *Location     `json:"location,omitempty"`
	ImageURL    *string       `json:"image_url,omitempty"`
}

// DetectRequest is the body of POST /detect.
type DetectRequest struct {
	ImageURL    string `json:"image_url,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
	Simulate    bool   `json:"simulate,omitempty"`
}

// SelectLocationRequest is a map click forwarded for address resolution.
type SelectLocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// CurrentLocationRequest carries the client's raw device fix. Nil fields
// mean the device could not produce a position.
type CurrentLocationRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type ReportsResponse struct {
	Reports []HazardReport `json:"reports"`
}

type VoteResponse struct {
	Voted bool `json:"voted"`
	Votes int  `json:"votes"`
}

type ImageUploadResponse struct {
	ImageURL string `json:"image_url"`
}

// ViewPort is a map bounding box.
type ViewPort struct {
	LatMin float64 `json:"latmin"`
	LonMin float64 `json:"lonmin"`
	LatMax float64 `json:"latmax"`
	LonMax float64 `json:"lonmax"`
}

// Contains reports whether the point falls inside the viewport.
func (vp *ViewPort) Contains(lat, lng float64) bool {
	return lat >= vp.LatMin && lat <= vp.LatMax &&
		lng >= vp.LonMin && lng <= vp.LonMax
}

// ValidType reports whether t is one of the three reportable hazard types.
func ValidType(t HazardType) bool {
	switch t {
	case HazardPothole, HazardWaterlogging, HazardOther:
		return true
	}
	return false
}

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s HazardStatus) bool {
	switch s {
	case StatusActive, StatusInvestigating, StatusResolved:
		return true
	}
	return false
}

// Validate blocks a report submission before any store call.
func (r *CreateReportRequest) Validate() error {
	if !ValidType(r.Type) {
		return fmt.Errorf("invalid hazard type %q", r.Type)
	}
	if l := utf8.RuneCountInString(strings.TrimSpace(r.Description)); l < DescriptionMinLen || l > DescriptionMaxLen {
		return fmt.Errorf("description must be %d-%d characters, got %d",
			DescriptionMinLen, DescriptionMaxLen, l)
	}
	if err := r.Location.Validate(); err != nil {
		return err
	}
	return nil
}

// Validate checks the partial fields that are present.
func (u *UpdateReportRequest) Validate() error {
	if u.Type != nil && !ValidType(*u.Type) {
		return fmt.Errorf("invalid hazard type %q", *u.Type)
	}
	if u.Status != nil && !ValidStatus(*u.Status) {
		return fmt.Errorf("invalid status %q", *u.Status)
	}
	if u.Description != nil {
		if l := utf8.RuneCountInString(strings.TrimSpace(*u.Description)); l < DescriptionMinLen || l > DescriptionMaxLen {
			return fmt.Errorf("description must be %d-%d characters, got %d",
				DescriptionMinLen, DescriptionMaxLen, l)
		}
	}
	if u.Location != nil {
		if err := u.Location.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks coordinate bounds and the required address.
func (l *Location) Validate() error {
	if l.Lat < -90 || l.Lat > 90 {
		return fmt.Errorf("latitude %f out of range", l.Lat)
	}
	if l.Lng < -180 || l.Lng > 180 {
		return fmt.Errorf("longitude %f out of range", l.Lng)
	}
	if strings.TrimSpace(l.Address) == "" {
		return fmt.Errorf("address is required")
	}
	return nil
}
