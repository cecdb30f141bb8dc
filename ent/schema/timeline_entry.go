package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// TimelineEntry is an append-only activity log row.
type TimelineEntry struct {
	ent.Schema
}

func (TimelineEntry) Mixin() []ent.Mixin {
	return []ent.Mixin{
		EventMixin{},
	}
}

func (TimelineEntry) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.Enum("entry_type").
			Values("problem", "study_session", "missed_revision", "planner_failure", "thought"),
		field.String("reference_id").
			Optional().
			Comment("Task or topic the entry is about; empty for journal entries"),
		field.String("title"),
		field.String("description").
			Optional(),
		field.Bool("was_avoided").
			Default(false),
	}
}

func (TimelineEntry) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("reference_id"),
		index.Fields("entry_type"),
	}
}
