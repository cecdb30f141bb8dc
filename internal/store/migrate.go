package store

import (
	"context"
	"fmt"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	entschema "entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"

	"github.com/abhisek/grit/ent/schema"
)

// Table names.
const (
	tableTopics    = "topics"
	tableRevisions = "revisions"
	tableTasks     = "tasks"
	tableTimeline  = "timeline_entries"
	tableSnapshots = "snapshots"
)

// schemaTables lists every ent schema with the table it is stored in.
var schemaTables = []struct {
	name   string
	schema ent.Interface
}{
	{tableTopics, schema.Topic{}},
	{tableRevisions, schema.Revision{}},
	{tableTasks, schema.Task{}},
	{tableTimeline, schema.TimelineEntry{}},
	{tableSnapshots, schema.Snapshot{}},
}

// Tables builds the migration tables from the ent schema descriptors.
func Tables() []*entschema.Table {
	tables := make([]*entschema.Table, 0, len(schemaTables))
	byName := make(map[string]*entschema.Table, len(schemaTables))
	for _, st := range schemaTables {
		t := tableFromSchema(st.name, st.schema)
		tables = append(tables, t)
		byName[st.name] = t
	}

	// Revisions are owned by their topic.
	revisions, topics := byName[tableRevisions], byName[tableTopics]
	topicID, _ := revisions.Column("topic_id")
	revisions.AddForeignKey(&entschema.ForeignKey{
		Symbol:     "revisions_topics_revisions",
		Columns:    []*entschema.Column{topicID},
		RefTable:   topics,
		RefColumns: []*entschema.Column{topics.PrimaryKey[0]},
		OnDelete:   entschema.Cascade,
	})
	return tables
}

func tableFromSchema(name string, s ent.Interface) *entschema.Table {
	var fields []ent.Field
	var indexes []ent.Index
	for _, m := range s.Mixin() {
		fields = append(fields, m.Fields()...)
		indexes = append(indexes, m.Indexes()...)
	}
	fields = append(fields, s.Fields()...)
	indexes = append(indexes, s.Indexes()...)

	t := entschema.NewTable(name)
	hasID := false
	for _, f := range fields {
		d := f.Descriptor()
		col := columnFromDescriptor(d)
		if d.Name == "id" {
			hasID = true
			t.AddPrimary(col)
			continue
		}
		t.AddColumn(col)
	}
	if !hasID {
		t.AddPrimary(&entschema.Column{Name: "id", Type: field.TypeInt, Increment: true})
	}

	for _, idx := range indexes {
		d := idx.Descriptor()
		idxName := name
		for _, f := range d.Fields {
			idxName += "_" + f
		}
		t.AddIndex(idxName, d.Unique, d.Fields)
	}
	return t
}

func columnFromDescriptor(d *field.Descriptor) *entschema.Column {
	col := &entschema.Column{
		Name:     d.Name,
		Type:     d.Info.Type,
		Unique:   d.Unique,
		Nullable: d.Optional || d.Nillable,
		Size:     int64(d.Size),
		Comment:  d.Comment,
	}
	for _, e := range d.Enums {
		col.Enums = append(col.Enums, e.V)
	}
	switch v := d.Default.(type) {
	case string, int, int64, bool:
		col.Default = v
	}
	return col
}

// migrate creates or extends every table in append-only mode.
func migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := entschema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	return m.Create(ctx, Tables()...)
}
