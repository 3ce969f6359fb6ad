package revit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// --------------------------------------------------------------------------
// Result Types
// --------------------------------------------------------------------------

// ModelInfo describes the model currently open in Revit
type ModelInfo struct {
	Name          string `json:"name"`
	Path          string `json:"path"`
	Version       string `json:"version"`
	ElementsCount int    `json:"elements_count"`
	LastModified  string `json:"last_modified"`
}

// Element is a single model element
type Element struct {
	ID         ID             `json:"id"`
	Category   string         `json:"category"`
	Family     string         `json:"family"`
	Type       string         `json:"type"`
	Name       string         `json:"name"`
	Level      string         `json:"level"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Record is a free-form object returned by the plug-in (levels, views, categories, ...)
type Record map[string]any

// ID is a Revit element id. Revit uses integer ids, the plug-in sends them as strings,
// both forms are accepted.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(b), 64); err != nil {
		return fmt.Errorf("invalid id %s", b)
	}
	*id = ID(b)
	return nil
}

// --------------------------------------------------------------------------
// Argument Types
// --------------------------------------------------------------------------

// GetElementsArgs are the filters of a get_elements query.
// Empty filters match everything, a zero Limit means no limit.
type GetElementsArgs struct {
	CategoryIDs []ID   `json:"categoryIds,omitempty"`
	ViewIDs     []ID   `json:"viewIds,omitempty"`
	LevelIDs    []ID   `json:"levelIds,omitempty"`
	Category    string `json:"category,omitempty"`
	Family      string `json:"family,omitempty"`
	Type        string `json:"type,omitempty"`
	Level       string `json:"level,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

// Validate checks the arguments
func (a GetElementsArgs) Validate() error {
	if a.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative", ErrInvalidArgument)
	}
	return nil
}

// GetFamiliesArgs are the filters of a get_families query
type GetFamiliesArgs struct {
	CategoryID ID     `json:"categoryId,omitempty"`
	Name       string `json:"name,omitempty"`
}

// Validate checks the arguments
func (a GetFamiliesArgs) Validate() error {
	return nil
}

// GetElementInfoArgs select an element and the details to return
type GetElementInfoArgs struct {
	ElementID            ID    `json:"elementId"`
	GetItemPropertyInfo  *bool `json:"getItemPropertyInfo,omitempty"`
	GetItemParameterInfo *bool `json:"getItemParameterInfo,omitempty"`
}

// Validate checks the arguments
func (a GetElementInfoArgs) Validate() error {
	if a.ElementID == "" {
		return fmt.Errorf("%w: elementId is required", ErrInvalidArgument)
	}
	return nil
}

// WithDefaults returns a copy where unset flags are replaced by their defaults:
// properties are included, parameters are not.
func (a GetElementInfoArgs) WithDefaults() GetElementInfoArgs {
	if a.GetItemPropertyInfo == nil {
		a.GetItemPropertyInfo = boolPtr(true)
	}
	if a.GetItemParameterInfo == nil {
		a.GetItemParameterInfo = boolPtr(false)
	}
	return a
}

// PropertyInfo reports whether the properties of the element are requested
func (a GetElementInfoArgs) PropertyInfo() bool {
	return *a.WithDefaults().GetItemPropertyInfo
}

// ParameterInfo reports whether the parameters of the element are requested
func (a GetElementInfoArgs) ParameterInfo() bool {
	return *a.WithDefaults().GetItemParameterInfo
}

func boolPtr(b bool) *bool {
	return &b
}
