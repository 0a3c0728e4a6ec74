package relation

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindVideoLike    Kind = "video-like"
	KindCommentLike  Kind = "comment-like"
	KindTweetLike    Kind = "tweet-like"
	KindSubscription Kind = "subscription"
)

var kinds = map[Kind]struct{}{
	KindVideoLike:    {},
	KindCommentLike:  {},
	KindTweetLike:    {},
	KindSubscription: {},
}

func ParseKind(s string) (Kind, bool) {
	k := Kind(s)
	_, ok := kinds[k]
	return k, ok
}

// Relation is a directed edge (actor -> target) of a given kind. Its presence
// is the whole state; there is nothing to update.
type Relation struct {
	ID        uuid.UUID `json:"id"`
	ActorID   uuid.UUID `json:"actor_id"`
	TargetID  uuid.UUID `json:"target_id"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

type State string

const (
	StateCreated State = "created"
	StateRemoved State = "removed"
)

type Event struct {
	ID       uuid.UUID `json:"id"`
	ActorID  uuid.UUID `json:"actor_id"`
	TargetID uuid.UUID `json:"target_id"`
	Kind     Kind      `json:"kind"`
	State    State     `json:"state"`
	At       time.Time `json:"at"`
}

type Page struct {
	Limit  int
	Offset int
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
