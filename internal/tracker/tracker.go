package tracker

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/spaolacci/murmur3"

	"github.com/yndnr/rolegate/internal/core/domain"
	"github.com/yndnr/rolegate/pkg/cmap"
)

// Defaults match the platform conventions: sixty messages, at least
// sixty seconds apart.
const (
	DefaultRequirement = 60
	DefaultCooldown    = 60
	DefaultShards      = 32
)

// Config configures the tracker.
type Config struct {
	// Requirement is the message count at which a member becomes
	// eligible for the role.
	Requirement uint64

	// Cooldown is the minimum number of seconds between two messages
	// from the same member for the second one to count. Zero disables
	// the cooldown so every message counts.
	Cooldown int64

	// Shards is the concurrent map shard count (power of 2).
	Shards int
}

// DefaultConfig returns the default tracker configuration.
func DefaultConfig() Config {
	return Config{
		Requirement: DefaultRequirement,
		Cooldown:    DefaultCooldown,
		Shards:      DefaultShards,
	}
}

// Tracker is the sole owner of per-member activity state. It turns a
// concurrent stream of message events into at most one grant decision
// per member.
type Tracker struct {
	cfg     Config
	records *cmap.Map[domain.MemberKey, domain.ActivityRecord]

	// ingesting flips to true on the first RecordMessage call and
	// never back; Load refuses to run once it is set.
	ingesting atomic.Bool
}

// New creates a tracker with the given configuration.
func New(cfg Config) *Tracker {
	if cfg.Requirement == 0 {
		cfg.Requirement = DefaultRequirement
	}
	if cfg.Cooldown < 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.Shards == 0 {
		cfg.Shards = DefaultShards
	}

	return &Tracker{
		cfg: cfg,
		records: cmap.New[domain.MemberKey, domain.ActivityRecord](
			cmap.WithShards[domain.MemberKey, domain.ActivityRecord](cfg.Shards),
			cmap.WithHasher[domain.MemberKey, domain.ActivityRecord](memberHash),
		),
	}
}

// memberHash spreads the composite (guild, user) key across shards.
func memberHash(k domain.MemberKey) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], k.GuildID)
	binary.LittleEndian.PutUint64(buf[8:16], k.UserID)
	return murmur3.Sum64(buf[:])
}

// RecordMessage feeds one message event into the tracker and reports
// what it did to the member's record.
//
// The record is created lazily on the member's first message. An event
// arriving less than the cooldown after the member's last counted
// message is ignored, as is an event with a timestamp earlier than the
// stored one (clock skew or reordering never yields negative elapsed
// time). The decision fires exactly when MessageCount first reaches
// the requirement and never again, including after a reload; only an
// OutcomeGranted return carries a valid decision.
//
// The read-modify-write runs under the shard lock for the member's
// key, so concurrent events for the same member never lose updates and
// the grant fires on exactly one call. Events for members on other
// shards proceed in parallel.
func (t *Tracker) RecordMessage(guildID, userID uint64, ts int64) (domain.GrantDecision, domain.RecordOutcome) {
	t.ingesting.Store(true)

	key := domain.MemberKey{GuildID: guildID, UserID: userID}
	outcome := domain.OutcomeIgnored

	t.records.Update(key, func(rec domain.ActivityRecord, exists bool) domain.ActivityRecord {
		if !exists {
			rec = domain.ActivityRecord{GuildID: guildID, UserID: userID}
		} else if ts-rec.LastCountedAt < t.cfg.Cooldown {
			// Cooldown not met (or clock went backwards): no mutation.
			return rec
		}

		rec.MessageCount++
		rec.LastCountedAt = ts
		outcome = domain.OutcomeCounted

		if !rec.Granted && rec.MessageCount >= t.cfg.Requirement {
			rec.Granted = true
			outcome = domain.OutcomeGranted
		}
		return rec
	})

	if outcome != domain.OutcomeGranted {
		return domain.GrantDecision{}, outcome
	}
	return domain.GrantDecision{GuildID: guildID, UserID: userID}, outcome
}

// Snapshot returns a point-in-time copy of all records for
// persistence. Shards are read one at a time, so the copy is
// consistent per record but may interleave with concurrent writers;
// the next scheduled snapshot picks up whatever this one raced with.
func (t *Tracker) Snapshot() []domain.ActivityRecord {
	out := make([]domain.ActivityRecord, 0, t.records.Count())
	t.records.Range(func(_ domain.MemberKey, rec domain.ActivityRecord) bool {
		out = append(out, rec)
		return true
	})
	return out
}

// Load replaces the entire store content with the given records. It is
// only valid before ingestion begins; once RecordMessage has run it
// fails with domain.ErrTrackerActive rather than corrupt live state.
func (t *Tracker) Load(records []domain.ActivityRecord) error {
	if t.ingesting.Load() {
		return domain.ErrTrackerActive
	}

	t.records.Clear()
	for _, rec := range records {
		t.records.Set(rec.Key(), rec)
	}
	return nil
}

// Count returns the number of tracked members.
func (t *Tracker) Count() int {
	return t.records.Count()
}
