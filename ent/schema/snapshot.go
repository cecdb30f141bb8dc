package schema

import (
	"encoding/json"
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Snapshot captures the full tracker state at a point in time so it can be
// restored later.
type Snapshot struct {
	ent.Schema
}

func (Snapshot) Fields() []ent.Field {
	return []ent.Field{
		field.Int64("sequence").
			Comment("Timeline sequence number at the time of snapshot"),
		field.Time("timestamp").
			Default(time.Now).
			Comment("When the snapshot was taken"),
		field.String("label").
			Optional(),
		field.JSON("data", json.RawMessage{}).
			Comment("Full tracker state as JSON"),
	}
}

func (Snapshot) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("timestamp"),
		index.Fields("sequence"),
	}
}
