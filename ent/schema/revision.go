package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Revision is one scheduled review of a topic. It is closed exactly once,
// either completed or missed.
type Revision struct {
	ent.Schema
}

func (Revision) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("topic_id").
			Immutable().
			Comment("Owning topic; rows cascade on topic delete"),
		field.Time("scheduled_at").
			Immutable(),
		field.Time("completed_at").
			Optional().
			Nillable(),
		field.Bool("was_missed").
			Default(false),
		field.String("feedback").
			Optional().
			Comment("again, hard, good or easy when completed under the level model"),
		field.Int("confidence_before").
			Optional().
			Nillable(),
		field.Int("confidence_after").
			Optional().
			Nillable(),
	}
}

func (Revision) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("topic_id", "scheduled_at"),
	}
}
