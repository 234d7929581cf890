package models

import (
	"time"
)

type User struct {
	ID              string    `gorm:"primarykey;type:varchar(64)" json:"id"`
	Email           string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash    string    `gorm:"type:varchar(255);not null" json:"-"`
	Name            string    `gorm:"type:varchar(255);not null;default:''" json:"name"`
	IsMegaUser      bool      `gorm:"not null;default:false" json:"isMegaUser"`
	AssistantOn     bool      `gorm:"not null;default:false" json:"assistantOn"`
	AccessRequested bool      `gorm:"not null;default:false" json:"accessRequested"`
	JoinedAt        time.Time `gorm:"autoCreateTime" json:"-"`

	// Relations
	Tasks []Task `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// Capabilities is the subset of a user exposed by the authorize endpoint.
type Capabilities struct {
	IsMegaUser      bool `json:"isMegaUser"`
	AssistantOn     bool `json:"assistantOn"`
	AccessRequested bool `json:"accessRequested"`
}

// Capabilities returns the user's capability flags.
func (u User) Capabilities() Capabilities {
	return Capabilities{
		IsMegaUser:      u.IsMegaUser,
		AssistantOn:     u.AssistantOn,
		AccessRequested: u.AccessRequested,
	}
}
