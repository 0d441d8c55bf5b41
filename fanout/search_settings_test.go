package fanout

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/liquidinvestigations/hoover3-sub000/model"
	"github.com/liquidinvestigations/hoover3-sub000/schema"
)

func TestComputeSearchSettings(t *testing.T) {
	m := schema.Model{
		Name:      "Patient",
		TableName: model.MustIdentifier("patient"),
		Fields: []schema.Field{
			{Name: model.MustIdentifier("id"), Type: model.Scalar(model.KindString), PartitionKey: true, SearchStore: true, SearchIndex: true, SearchFacet: true},
			{Name: model.MustIdentifier("age"), Type: model.Scalar(model.KindInt32), SearchStore: true, SearchIndex: true},
			{Name: model.MustIdentifier("notes"), Type: model.Scalar(model.KindString)},
			{Name: model.MustIdentifier("history"), Type: model.Object(), SearchStore: true, SearchIndex: true, SearchFacet: true},
		},
	}

	settings := ComputeSearchSettings(m)

	assert.Equal(t, []string{"patient:id"}, settings.FilterableAttributes)
	assert.ElementsMatch(t, []string{"patient:id", "patient:age"}, settings.SortableAttributes)
	assert.Equal(t, []string{"patient:history"}, settings.Skipped)
}
