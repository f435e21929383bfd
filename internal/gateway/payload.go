package gateway

import (
	"encoding/json"
	"strconv"

	"github.com/yndnr/rolegate/internal/core/domain"
)

// Gateway opcodes (the subset this client speaks).
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatACK   = 11
)

// intentGuildMessages subscribes to guild message events only. The
// message-content intent is deliberately absent: the bot never sees
// what anyone writes.
const intentGuildMessages = 1 << 9

// eventMessageCreate is the only dispatch type the client consumes.
const eventMessageCreate = "MESSAGE_CREATE"

// payload is the gateway wire envelope.
type payload struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d,omitempty"`
	S  int64           `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
}

type helloData struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"` // milliseconds
}

type identifyData struct {
	Token      string             `json:"token"`
	Intents    int                `json:"intents"`
	Properties identifyProperties `json:"properties"`
}

type identifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

// snowflake is a platform ID, transmitted as a decimal string.
type snowflake uint64

func (s *snowflake) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' {
		str = str[1 : len(str)-1]
	}
	if str == "" || str == "null" {
		*s = 0
		return nil
	}
	v, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return err
	}
	*s = snowflake(v)
	return nil
}

// messageCreateData is the MESSAGE_CREATE dispatch, reduced to the
// fields the tracker needs. Content is never decoded.
type messageCreateData struct {
	ID      snowflake `json:"id"`
	GuildID snowflake `json:"guild_id"`
	Author  struct {
		ID snowflake `json:"id"`
	} `json:"author"`
	Member *struct {
		Roles []snowflake `json:"roles"`
	} `json:"member"`
}

// event converts the dispatch into a domain event, marking whether the
// sender already holds roleID.
func (m *messageCreateData) event(roleID uint64) domain.MessageEvent {
	hasRole := false
	if m.Member != nil {
		for _, r := range m.Member.Roles {
			if uint64(r) == roleID {
				hasRole = true
				break
			}
		}
	}
	return domain.MessageEvent{
		GuildID:       uint64(m.GuildID),
		UserID:        uint64(m.Author.ID),
		Timestamp:     domain.SnowflakeTime(uint64(m.ID)),
		SenderHasRole: hasRole,
	}
}
