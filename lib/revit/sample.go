package revit

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// SampleModelInfo returns the info of the sample office building model.
// It is also returned by clients that fall back to sample data when the plug-in is not reachable.
func SampleModelInfo() ModelInfo {
	return ModelInfo{
		Name:          "Office Building.rvt",
		Path:          `C:\Projects\Office Building.rvt`,
		Version:       "2023",
		ElementsCount: 5243,
		LastModified:  time.Now().UTC().Format(time.RFC3339),
	}
}

// sampleElement is an element of the sample model together with the ids used for filtering
type sampleElement struct {
	Element
	categoryID ID
	levelID    ID
	viewIDs    []ID
}

// SampleModel is an in-memory IRevitService with a small office building.
// It backs the mock host and the tests. It is safe for concurrent use, the data is never modified.
type SampleModel struct {
	levels     []Record
	views      []Record
	categories []Record
	families   []Record
	elements   []sampleElement
}

// NewSampleModel creates the sample model
func NewSampleModel() *SampleModel {
	m := &SampleModel{
		levels: []Record{
			{"id": "311", "name": "Level 1", "elevation": 0.0},
			{"id": "9946", "name": "Level 2", "elevation": 4000.0},
			{"id": "30842", "name": "Roof", "elevation": 8000.0},
		},
		views: []Record{
			{"id": "312", "name": "Level 1", "viewType": "FloorPlan", "levelId": "311"},
			{"id": "9947", "name": "Level 2", "viewType": "FloorPlan", "levelId": "9946"},
			{"id": "1001", "name": "{3D}", "viewType": "ThreeD"},
		},
		categories: []Record{
			{"id": "-2000011", "name": "Walls", "builtInCategory": "OST_Walls"},
			{"id": "-2000023", "name": "Doors", "builtInCategory": "OST_Doors"},
			{"id": "-2000014", "name": "Windows", "builtInCategory": "OST_Windows"},
			{"id": "-2000032", "name": "Floors", "builtInCategory": "OST_Floors"},
		},
		families: []Record{
			{"id": "2001", "name": "Basic Wall", "categoryId": "-2000011", "category": "Walls"},
			{"id": "2002", "name": "Curtain Wall", "categoryId": "-2000011", "category": "Walls"},
			{"id": "2101", "name": "Single-Flush", "categoryId": "-2000023", "category": "Doors"},
			{"id": "2201", "name": "Fixed", "categoryId": "-2000014", "category": "Windows"},
			{"id": "2301", "name": "Floor", "categoryId": "-2000032", "category": "Floors"},
		},
	}

	add := func(id, category string, categoryID ID, family, typ, name, level string, levelID ID, params map[string]any) {
		views := []ID{"1001"}
		switch levelID {
		case "311":
			views = append(views, "312")
		case "9946":
			views = append(views, "9947")
		}
		m.elements = append(m.elements, sampleElement{
			Element: Element{
				ID:         ID(id),
				Category:   category,
				Family:     family,
				Type:       typ,
				Name:       name,
				Level:      level,
				Parameters: params,
			},
			categoryID: categoryID,
			levelID:    levelID,
			viewIDs:    views,
		})
	}

	add("316110", "Walls", "-2000011", "Basic Wall", "Generic - 200mm", "Exterior Wall North", "Level 1", "311",
		map[string]any{"Length": 24000.0, "Unconnected Height": 4000.0, "Structural": false})
	add("316111", "Walls", "-2000011", "Basic Wall", "Generic - 200mm", "Exterior Wall South", "Level 1", "311",
		map[string]any{"Length": 24000.0, "Unconnected Height": 4000.0, "Structural": false})
	add("316530", "Walls", "-2000011", "Curtain Wall", "Storefront", "Entrance Facade", "Level 1", "311",
		map[string]any{"Length": 8000.0, "Unconnected Height": 3500.0})
	add("317204", "Doors", "-2000023", "Single-Flush", "0915 x 2134mm", "Main Entrance", "Level 1", "311",
		map[string]any{"Width": 915.0, "Height": 2134.0, "Fire Rating": "EI30"})
	add("317890", "Windows", "-2000014", "Fixed", "0915 x 1220mm", "Office Window", "Level 2", "9946",
		map[string]any{"Width": 915.0, "Height": 1220.0, "Sill Height": 900.0})
	add("318002", "Floors", "-2000032", "Floor", "Generic 150mm", "Level 2 Slab", "Level 2", "9946",
		map[string]any{"Area": 576.0, "Thickness": 150.0})
	add("318450", "Walls", "-2000011", "Basic Wall", "Generic - 200mm", "Parapet", "Roof", "30842",
		map[string]any{"Length": 96000.0, "Unconnected Height": 1100.0})

	return m
}

// --------------------------------------------------------------------------
// Interface Methods (docu see IRevitService)
// --------------------------------------------------------------------------

func (m *SampleModel) GetModelInfo(ctx context.Context) (ModelInfo, error) {
	return SampleModelInfo(), ctx.Err()
}

func (m *SampleModel) GetElements(ctx context.Context, args GetElementsArgs) ([]Element, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := make([]Element, 0)
	for _, e := range m.elements {
		if !args.matches(e) {
			continue
		}
		el := e.Element
		el.Parameters = maps.Clone(e.Parameters)
		result = append(result, el)
		if args.Limit > 0 && len(result) == args.Limit {
			break
		}
	}
	return result, nil
}

func (m *SampleModel) GetLevels(ctx context.Context) ([]Record, error) {
	return cloneRecords(m.levels), ctx.Err()
}

func (m *SampleModel) GetViews(ctx context.Context) ([]Record, error) {
	return cloneRecords(m.views), ctx.Err()
}

func (m *SampleModel) GetCategories(ctx context.Context) ([]Record, error) {
	return cloneRecords(m.categories), ctx.Err()
}

func (m *SampleModel) GetFamilies(ctx context.Context, args GetFamiliesArgs) ([]Record, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := make([]Record, 0, len(m.families))
	for _, f := range m.families {
		if args.CategoryID != "" && f["categoryId"] != string(args.CategoryID) {
			continue
		}
		if args.Name != "" && !containsFold(f["name"].(string), args.Name) {
			continue
		}
		result = append(result, maps.Clone(f))
	}
	return result, nil
}

func (m *SampleModel) GetElementInfo(ctx context.Context, args GetElementInfoArgs) (Record, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx := slices.IndexFunc(m.elements, func(e sampleElement) bool { return e.ID == args.ElementID })
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, args.ElementID)
	}
	e := m.elements[idx]

	info := Record{"id": string(e.ID)}
	if args.PropertyInfo() {
		info["properties"] = Record{
			"name":       e.Name,
			"category":   e.Category,
			"categoryId": string(e.categoryID),
			"family":     e.Family,
			"type":       e.Type,
			"level":      e.Level,
			"levelId":    string(e.levelID),
		}
	}
	if args.ParameterInfo() {
		info["parameters"] = maps.Clone(e.Parameters)
	}
	return info, nil
}

func (m *SampleModel) Close() error {
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// matches reports whether the element passes all filters
func (a GetElementsArgs) matches(e sampleElement) bool {
	if len(a.CategoryIDs) > 0 && !slices.Contains(a.CategoryIDs, e.categoryID) {
		return false
	}
	if len(a.LevelIDs) > 0 && !slices.Contains(a.LevelIDs, e.levelID) {
		return false
	}
	if len(a.ViewIDs) > 0 && !slices.ContainsFunc(a.ViewIDs, func(id ID) bool { return slices.Contains(e.viewIDs, id) }) {
		return false
	}
	if a.Category != "" && !strings.EqualFold(a.Category, e.Category) {
		return false
	}
	if a.Family != "" && !strings.EqualFold(a.Family, e.Family) {
		return false
	}
	if a.Type != "" && !strings.EqualFold(a.Type, e.Type) {
		return false
	}
	if a.Level != "" && !strings.EqualFold(a.Level, e.Level) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func cloneRecords(records []Record) []Record {
	result := make([]Record, len(records))
	for i, r := range records {
		result[i] = maps.Clone(r)
	}
	return result
}
