package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Task is a planner task. Recovery tasks point back at the task whose skip
// spawned them through original_task_id, which is a lookup field only.
type Task struct {
	ent.Schema
}

func (Task) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("name").
			NotEmpty(),
		field.Int("time_estimate_minutes"),
		field.Int("decay_cost").
			Default(1),
		field.Bool("is_recovery").
			Default(false),
		field.String("original_task_id").
			Optional().
			Nillable(),
		field.Enum("status").
			Values("pending", "in_progress", "completed", "skipped").
			Default("pending"),
		field.String("scheduled_date").
			Comment("YYYY-MM-DD"),
		field.String("scheduled_time").
			Optional().
			Nillable().
			Comment("HH:MM"),
		field.Int("priority").
			Optional().
			Nillable().
			Comment("1 is most urgent; null sorts last"),
		field.Time("completed_at").
			Optional().
			Nillable(),
		field.Time("skipped_at").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

func (Task) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("scheduled_date"),
		index.Fields("original_task_id"),
		index.Fields("status"),
	}
}
