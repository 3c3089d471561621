package queryreport

// Extend merges each source into dst from left to right and returns the result.
// A key set in a later source overwrites the same key from an earlier one; zero
// values never overwrite. Filter and column sequences are copied, so the result
// never aliases a source's slices or extras map.
func Extend(dst Definition, sources ...Definition) Definition {
	out := Clone(dst)
	for _, src := range sources {
		if src.Filters != nil {
			out.Filters = cloneFilters(src.Filters)
		}
		if src.Columns != nil {
			out.Columns = cloneColumns(src.Columns)
		}
		if src.Formatter != nil {
			out.Formatter = src.Formatter
		}
		if src.Tree {
			out.Tree = true
		}
		if src.NameField != "" {
			out.NameField = src.NameField
		}
		if src.ParentField != "" {
			out.ParentField = src.ParentField
		}
		if src.InitialDepth != 0 {
			out.InitialDepth = src.InitialDepth
		}
		if src.Extras != nil && out.Extras == nil {
			out.Extras = make(map[string]any, len(src.Extras))
		}
		for key, value := range src.Extras {
			out.Extras[key] = value
		}
	}
	return out
}

// Clone returns a copy of def whose slices and extras map are independent.
func Clone(def Definition) Definition {
	out := def
	out.Filters = cloneFilters(def.Filters)
	out.Columns = cloneColumns(def.Columns)
	if def.Extras != nil {
		out.Extras = make(map[string]any, len(def.Extras))
		for key, value := range def.Extras {
			out.Extras[key] = value
		}
	}
	return out
}

// WithFilters returns a copy of def with the filters appended after the existing ones.
func WithFilters(def Definition, filters ...Filter) Definition {
	out := Clone(def)
	out.Filters = append(out.Filters, filters...)
	return out
}

func cloneFilters(filters []Filter) []Filter {
	if filters == nil {
		return nil
	}
	return append(make([]Filter, 0, len(filters)), filters...)
}

func cloneColumns(columns []Column) []Column {
	if columns == nil {
		return nil
	}
	return append(make([]Column, 0, len(columns)), columns...)
}
