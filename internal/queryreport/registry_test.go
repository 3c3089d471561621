package queryreport

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDefinition() Definition {
	return Definition{
		Filters: []Filter{
			{Fieldname: "company", Label: "Company", Fieldtype: FieldLink, Options: "Company", Reqd: true},
			{Fieldname: "periodicity", Label: "Periodicity", Fieldtype: FieldSelect, Default: "Yearly"},
		},
		Columns:      []Column{{Fieldname: "account", Label: "Account", Fieldtype: FieldData, Width: 300}},
		Tree:         true,
		NameField:    "account",
		ParentField:  "parent_account",
		InitialDepth: 3,
		Extras:       map[string]any{"onload": "setup"},
	}
}

func TestExtendIntoEmptyIsValueEqual(t *testing.T) {
	shared := sampleDefinition()
	clone := Extend(Definition{}, shared)
	require.Equal(t, shared, clone)
}

func TestExtendKeepsEmptySequences(t *testing.T) {
	shared := Definition{Filters: []Filter{}, Columns: []Column{}, Extras: map[string]any{}}

	clone := Extend(Definition{}, shared)
	require.Equal(t, shared, clone)
	assert.NotNil(t, clone.Columns)
	assert.NotNil(t, clone.Filters)
	assert.NotNil(t, clone.Extras)

	copied := Clone(shared)
	assert.NotNil(t, copied.Columns)
	assert.NotNil(t, copied.Extras)
}

func TestExtendDoesNotAliasNestedSequences(t *testing.T) {
	shared := sampleDefinition()
	clone := Extend(Definition{}, shared)

	clone.Filters = append(clone.Filters, Filter{Fieldname: "project"})
	clone.Filters[0].Label = "Changed"
	clone.Columns[0].Width = 10
	clone.Extras["onload"] = "other"

	assert.Len(t, shared.Filters, 2)
	assert.Equal(t, "Company", shared.Filters[0].Label)
	assert.Equal(t, 300, shared.Columns[0].Width)
	assert.Equal(t, "setup", shared.Extras["onload"])
}

func TestExtendLaterSourcesOverwrite(t *testing.T) {
	first := Definition{NameField: "account", InitialDepth: 3, Extras: map[string]any{"a": 1, "b": 1}}
	second := Definition{InitialDepth: 5, Extras: map[string]any{"b": 2}}

	merged := Extend(Definition{}, first, second)
	assert.Equal(t, "account", merged.NameField)
	assert.Equal(t, 5, merged.InitialDepth)
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, merged.Extras)
}

func TestWithFiltersAppendsWithoutReordering(t *testing.T) {
	def := sampleDefinition()
	out := WithFilters(def, Filter{Fieldname: "branch"}, Filter{Fieldname: "region"})

	require.Len(t, out.Filters, 4)
	assert.Equal(t, []string{"company", "periodicity", "branch", "region"}, fieldnames(out.Filters))
	assert.Len(t, def.Filters, 2)
}

func TestRegistrySetOverwrites(t *testing.T) {
	reg := NewRegistry()
	reg.Set("Financial Ratios", Definition{NameField: "first"})
	reg.Set("Financial Ratios", Definition{NameField: "second"})

	assert.Equal(t, 1, reg.Len())
	def, ok := reg.Get("Financial Ratios")
	require.True(t, ok)
	assert.Equal(t, "second", def.NameField)
}

func TestRegistryGetReturnsCopy(t *testing.T) {
	reg := NewRegistry()
	reg.Set("Profit and Loss Statement", sampleDefinition())

	def, _ := reg.Get("Profit and Loss Statement")
	def.Filters = append(def.Filters, Filter{Fieldname: "branch"})

	again, _ := reg.Get("Profit and Loss Statement")
	assert.Len(t, again.Filters, 2)
}

func TestRegistryUpdateMissingReport(t *testing.T) {
	reg := NewRegistry()
	err := reg.Update("Balance Sheet", func(d Definition) Definition { return d })
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReportNotFound))
}

func TestRegistryConcurrentUpdates(t *testing.T) {
	reg := NewRegistry()
	reg.Set("Profit and Loss Statement", Definition{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = reg.Update("Profit and Loss Statement", func(d Definition) Definition {
				return WithFilters(d, Filter{Fieldname: "x"})
			})
		}()
	}
	wg.Wait()

	def, _ := reg.Get("Profit and Loss Statement")
	assert.Len(t, def.Filters, 20)
	assert.Equal(t, []string{"Profit and Loss Statement"}, reg.Names())
}

func fieldnames(filters []Filter) []string {
	out := make([]string, 0, len(filters))
	for _, f := range filters {
		out = append(out, f.Fieldname)
	}
	return out
}
