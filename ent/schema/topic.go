package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Topic is a study topic scheduled for spaced repetition.
type Topic struct {
	ent.Schema
}

func (Topic) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("topic").
			NotEmpty(),
		field.Int("level").
			Default(0).
			Comment("Index into the interval table"),
		field.Int("review_count").
			Default(0),
		field.Int("integrity_percent").
			Default(100),
		field.Enum("decay_state").
			Values("fresh", "due", "overdue", "critical").
			Default("fresh"),
		field.Time("last_reviewed_at").
			Optional().
			Nillable(),
		field.Time("next_review_at").
			Optional().
			Nillable().
			Comment("Always derived by the scheduler"),
		field.Bool("is_mastered").
			Default(false),
		field.Enum("priority").
			Values("high", "medium", "low").
			Default("medium"),
		field.Enum("model").
			Values("level", "confidence").
			Default("level").
			Comment("Scheduling variant; fixed for the topic's lifetime"),
		field.Int("confidence_level").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

func (Topic) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("next_review_at"),
	}
}
