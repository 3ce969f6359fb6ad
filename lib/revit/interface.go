package revit

import (
	"context"
	"errors"
)

// --------------------------------------------------------------------------
// Wire Commands
// --------------------------------------------------------------------------

// Command names understood by the Revit plug-in
const (
	CmdGetModelInfo   = "getModelInfo"
	CmdGetElements    = "get_elements"
	CmdGetLevels      = "get_levels"
	CmdGetViews       = "get_views"
	CmdGetCategories  = "get_categories"
	CmdGetFamilies    = "get_families"
	CmdGetElementInfo = "get_element_info"
)

// Commands lists all wire commands
var Commands = []string{
	CmdGetModelInfo,
	CmdGetElements,
	CmdGetLevels,
	CmdGetViews,
	CmdGetCategories,
	CmdGetFamilies,
	CmdGetElementInfo,
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrInvalidArgument is returned when the arguments of a query are not valid
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrElementNotFound is returned when an element id does not exist in the model
	ErrElementNotFound = errors.New("element not found")
	// ErrUnknownCommand is returned by hosts for a command they do not implement
	ErrUnknownCommand = errors.New("unknown command")
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IRevitService gives read access to the model currently open in Revit.
// All methods block until the plug-in answered, the context bounds the wait.
type IRevitService interface {
	// GetModelInfo returns name, path, version and size of the open model
	GetModelInfo(ctx context.Context) (ModelInfo, error)
	// GetElements returns the elements matching all given filters
	GetElements(ctx context.Context, args GetElementsArgs) ([]Element, error)
	// GetLevels returns all levels of the model
	GetLevels(ctx context.Context) ([]Record, error)
	// GetViews returns all views of the model
	GetViews(ctx context.Context) ([]Record, error)
	// GetCategories returns all categories of the model
	GetCategories(ctx context.Context) ([]Record, error)
	// GetFamilies returns the families, optionally filtered by category and name
	GetFamilies(ctx context.Context, args GetFamiliesArgs) ([]Record, error)
	// GetElementInfo returns the details of a single element
	GetElementInfo(ctx context.Context, args GetElementInfoArgs) (Record, error)
	// Close releases the connection to the plug-in
	Close() error
}
