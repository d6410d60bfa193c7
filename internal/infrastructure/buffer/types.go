package buffer

import (
	"time"

	"github.com/google/uuid"

	"github.com/fastygo/taskbot/domain"
)

// Item is a reminder notification waiting to be redelivered.
type Item struct {
	ID           string              `json:"id"`
	Notification domain.Notification `json:"notification"`
	Retries      int                 `json:"retries"`
	Timestamp    time.Time           `json:"timestamp"`
	LastError    string              `json:"last_error,omitempty"`

	bucketKey []byte
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
}
