package slots

import (
	"time"

	"carshop-display-backend/internal/model"
)

// Kind identifies what an Event does to the table.
type Kind int

const (
	KindAssign Kind = iota + 1
	KindRemove
	KindBulkReplace
)

func (k Kind) String() string {
	switch k {
	case KindAssign:
		return "assign"
	case KindRemove:
		return "remove"
	case KindBulkReplace:
		return "bulk_replace"
	default:
		return "unknown"
	}
}

// Event sources.
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
	SourcePoll   = "poll"
)

// Entry is one screen's state inside a bulk snapshot.
type Entry struct {
	ScreenID string
	Record   *model.SlotRecord
}

// Event is one change request against the table, addressed by screen identity.
type Event struct {
	Kind     Kind
	ScreenID string            // assign, remove
	Record   *model.SlotRecord // assign
	Snapshot []Entry           // bulk replace
	At       time.Time
	Source   string
}

// Assign builds an event putting rec on a screen.
func Assign(screenID string, rec model.SlotRecord, at time.Time, source string) Event {
	return Event{Kind: KindAssign, ScreenID: screenID, Record: &rec, At: at, Source: source}
}

// Remove builds an event clearing a screen.
func Remove(screenID string, at time.Time, source string) Event {
	return Event{Kind: KindRemove, ScreenID: screenID, At: at, Source: source}
}

// BulkReplace builds an event setting every screen at once. Screens missing from entries become empty.
func BulkReplace(entries []Entry, at time.Time, source string) Event {
	return Event{Kind: KindBulkReplace, Snapshot: entries, At: at, Source: source}
}
