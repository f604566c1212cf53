package domain

import (
	"strings"
	"time"
)

type (
	NotificationType string
	Priority         string
	Audience         string
)

const (
	NotificationInfo         NotificationType = "info"
	NotificationAnnouncement NotificationType = "announcement"

	PriorityMedium Priority = "medium"

	AudienceAll      Audience = "all"
	AudienceApproved Audience = "approved"
	AudiencePending  Audience = "pending"
	AudienceLocation Audience = "location"
	AudienceCrop     Audience = "crop"
)

type Notification struct {
	ID              string
	Title           string
	Message         string
	Type            NotificationType
	Priority        Priority
	Audience        Audience
	TargetLocations []string
	TargetCrops     []string
	ExpiresAt       *time.Time
	IsActive        bool
	CreatedBy       string
	CreatedAt       time.Time
}

// NotificationRead is a read receipt.
type NotificationRead struct {
	NotificationID string
	FarmerID       string
	ReadAt         time.Time
}

// RelevantTo reports whether f should see n at now. Location and crop
// targets match by case-insensitive substring; an empty target list matches
// everyone.
func (n Notification) RelevantTo(f Farmer, now time.Time) bool {
	if !n.IsActive {
		return false
	}
	if n.ExpiresAt != nil && now.After(*n.ExpiresAt) {
		return false
	}

	switch n.Audience {
	case AudienceAll:
		return true
	case AudienceApproved:
		return f.Status == StatusApproved
	case AudiencePending:
		return f.Status == StatusPending
	case AudienceLocation:
		return matchAny(n.TargetLocations, f.Location)
	case AudienceCrop:
		return matchAny(n.TargetCrops, string(f.CropType))
	}
	return false
}

func matchAny(targets []string, value string) bool {
	if len(targets) == 0 {
		return true
	}
	value = strings.ToLower(value)
	if value == "" {
		return false
	}
	for _, t := range targets {
		if strings.Contains(value, strings.ToLower(t)) {
			return true
		}
	}
	return false
}
