package realtime

import (
	"encoding/json"
	"fmt"
)

// message is the channel-protocol frame: every frame on the socket, in
// either direction, has this shape.
type message struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref,omitempty"`
}

const (
	eventJoin      = "phx_join"
	eventLeave     = "phx_leave"
	eventReply     = "phx_reply"
	eventError     = "phx_error"
	eventClose     = "phx_close"
	eventHeartbeat = "heartbeat"
	eventChanges   = "postgres_changes"

	topicHeartbeat = "phoenix"
)

// ChangeKind is the database operation a change event describes.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "INSERT"
	ChangeUpdate ChangeKind = "UPDATE"
	ChangeDelete ChangeKind = "DELETE"
)

// Row is a changed database row as delivered by the change feed.
type Row map[string]any

// ChangeEvent is one decoded insert/update/delete from a channel.
type ChangeEvent struct {
	Kind   ChangeKind
	Record Row
	Old    Row
}

type changePayload struct {
	Data struct {
		Type      string `json:"type"`
		Record    Row    `json:"record"`
		OldRecord Row    `json:"old_record"`
	} `json:"data"`
}

// decodeChange parses a postgres_changes payload into a ChangeEvent.
func decodeChange(payload json.RawMessage) (*ChangeEvent, error) {
	var cp changePayload
	if err := json.Unmarshal(payload, &cp); err != nil {
		return nil, fmt.Errorf("decoding change payload: %w", err)
	}

	kind := ChangeKind(cp.Data.Type)
	switch kind {
	case ChangeInsert, ChangeUpdate, ChangeDelete:
	default:
		return nil, fmt.Errorf("unknown change type %q", cp.Data.Type)
	}

	return &ChangeEvent{Kind: kind, Record: cp.Data.Record, Old: cp.Data.OldRecord}, nil
}

type joinConfig struct {
	Config struct {
		PostgresChanges []postgresChange `json:"postgres_changes"`
	} `json:"config"`
	AccessToken string `json:"access_token,omitempty"`
}

type postgresChange struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Filter string `json:"filter,omitempty"`
}

// channelTopic names the channel for a table subscription; the filter is
// part of the topic so two filters on one table get distinct channels.
func channelTopic(table, filter string) string {
	topic := "realtime:public:" + table
	if filter != "" {
		topic += ":" + filter
	}

	return topic
}

func joinPayload(table, filter, accessToken string) ([]byte, error) {
	var cfg joinConfig
	cfg.AccessToken = accessToken
	cfg.Config.PostgresChanges = []postgresChange{{
		Event:  "*",
		Schema: "public",
		Table:  table,
		Filter: filter,
	}}

	return json.Marshal(cfg)
}
