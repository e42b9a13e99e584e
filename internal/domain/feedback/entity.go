package feedback

import "time"

// Feedback is a free-form message left by a visitor, linked to an account
// when one is present and to the caller's IP otherwise. Input is sanitized
// and truncated before it is stored. Resolved is flipped by operators out of
// band.
type Feedback struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	OwnerID   *int64    `gorm:"column:owner_id;index" json:"-"`
	Email     string    `gorm:"column:email;size:200" json:"email"`
	Subject   string    `gorm:"column:subject;size:200" json:"subject"`
	Message   string    `gorm:"column:message;size:2000;not null" json:"message"`
	IPAddress string    `gorm:"column:ip_address;size:45" json:"-"`
	Resolved  bool      `gorm:"column:resolved;not null;default:false" json:"resolved"`
	CreatedAt time.Time `json:"created_at"`
}

func (Feedback) TableName() string { return "feedback_messages" }
