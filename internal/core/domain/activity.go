// Package domain defines the core domain models for rolegate.
package domain

// MemberKey identifies one member within one guild. It is the key of
// the activity tracker's concurrent map.
type MemberKey struct {
	GuildID uint64
	UserID  uint64
}

// ActivityRecord is the per-member activity state: how many messages
// have counted toward the role requirement, when the last one counted,
// and whether the grant decision has already been emitted.
//
// MessageCount never decreases. Once Granted is true it stays true;
// a reloaded record with Granted set must never fire a second grant.
type ActivityRecord struct {
	GuildID       uint64
	UserID        uint64
	MessageCount  uint64
	LastCountedAt int64 // seconds since the platform epoch; 0 = never counted
	Granted       bool
}

// Key returns the member key for this record.
func (r ActivityRecord) Key() MemberKey {
	return MemberKey{GuildID: r.GuildID, UserID: r.UserID}
}

// MessageEvent is one message sent by a member, as delivered by the
// gateway. No message content is carried, only identity and time.
type MessageEvent struct {
	GuildID   uint64
	UserID    uint64
	Timestamp int64 // seconds since the platform epoch, from the message ID

	// SenderHasRole is true when the gateway payload shows the sender
	// already holding the target role. Such events are dropped before
	// they reach the tracker.
	SenderHasRole bool
}

// RecordOutcome classifies what one message event did to a member's
// activity record.
type RecordOutcome int8

const (
	// OutcomeIgnored means the event arrived inside the cooldown window
	// (or its timestamp was older than the last counted one) and the
	// record was left untouched.
	OutcomeIgnored RecordOutcome = iota

	// OutcomeCounted means the message counted toward the requirement.
	OutcomeCounted

	// OutcomeGranted means the message counted and the count reached
	// the requirement, firing the member's single grant decision.
	OutcomeGranted
)

// Counted reports whether the event advanced the message count.
func (o RecordOutcome) Counted() bool {
	return o != OutcomeIgnored
}

// GrantDecision signals that a member has just become eligible and
// should be given the role. At most one decision is ever produced per
// (guild, user) across the tracker's lifetime.
type GrantDecision struct {
	GuildID uint64
	UserID  uint64
}

// SnowflakeTime converts a platform snowflake ID to seconds since the
// platform epoch. The upper 42 bits of a snowflake are a millisecond
// timestamp, so event time comes from the message ID itself rather
// than the local clock.
func SnowflakeTime(id uint64) int64 {
	return int64((id >> 22) / 1000)
}
