package catalogs

import (
	"time"

	"gorm.io/gorm"

	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/types"
)

// StateTransition is one entry of an event's append-only lifecycle history.
type StateTransition struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	EventID   uint             `gorm:"not null;index" json:"event_id"`
	From      types.EventState `gorm:"column:from_state;size:32" json:"from"`
	To        types.EventState `gorm:"column:to_state;size:32;not null" json:"to"`
	Actor     string           `gorm:"size:128;not null" json:"actor"`
	Reason    string           `gorm:"size:512" json:"reason,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// TableName implements gorm's tabler.
func (StateTransition) TableName() string { return "state_transitions" }

// BeforeUpdate rejects any update of history.
func (*StateTransition) BeforeUpdate(*gorm.DB) error {
	return errors.ErrImmutable
}

// BeforeDelete rejects any deletion of history.
func (*StateTransition) BeforeDelete(*gorm.DB) error {
	return errors.ErrImmutable
}
