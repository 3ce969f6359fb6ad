package query

import (
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/revit-mcp/lib/revit"
	"github.com/spf13/cobra"
	"strconv"
)

var (
	modelInfoCmd = &cobra.Command{
		Use:   "model-info",
		Short: "Prints the info of the open model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := rpcRevit.GetModelInfo(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(info)
		},
	}
	levelsCmd = &cobra.Command{
		Use:   "levels",
		Short: "Lists all levels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			levels, err := rpcRevit.GetLevels(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(levels)
		},
	}
	viewsCmd = &cobra.Command{
		Use:   "views",
		Short: "Lists all views",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			views, err := rpcRevit.GetViews(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(views)
		},
	}
	categoriesCmd = &cobra.Command{
		Use:   "categories",
		Short: "Lists all categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			categories, err := rpcRevit.GetCategories(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(categories)
		},
	}
	familiesCmd = &cobra.Command{
		Use:   "families",
		Short: "Lists the families, optionally filtered by category and name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			categoryID, _ := cmd.Flags().GetString("category-id")
			name, _ := cmd.Flags().GetString("name")
			families, err := rpcRevit.GetFamilies(cmd.Context(), revit.GetFamiliesArgs{
				CategoryID: revit.ID(categoryID),
				Name:       name,
			})
			if err != nil {
				return err
			}
			return printJSON(families)
		},
	}
	elementsCmd = &cobra.Command{
		Use:   "elements",
		Short: "Lists the elements matching the given filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			categoryIDs, _ := cmd.Flags().GetStringSlice("category-ids")
			viewIDs, _ := cmd.Flags().GetStringSlice("view-ids")
			levelIDs, _ := cmd.Flags().GetStringSlice("level-ids")
			limit, _ := cmd.Flags().GetInt("limit")
			elements, err := rpcRevit.GetElements(cmd.Context(), revit.GetElementsArgs{
				CategoryIDs: toIDs(categoryIDs),
				ViewIDs:     toIDs(viewIDs),
				LevelIDs:    toIDs(levelIDs),
				Limit:       limit,
			})
			if err != nil {
				return err
			}
			return printJSON(elements)
		},
	}
	elementInfoCmd = &cobra.Command{
		Use:   "element-info [elementId]",
		Short: "Prints the properties and parameters of an element",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			properties, _ := cmd.Flags().GetBool("properties")
			parameters, _ := cmd.Flags().GetBool("parameters")
			info, err := rpcRevit.GetElementInfo(cmd.Context(), revit.GetElementInfoArgs{
				ElementID:            revit.ID(args[0]),
				GetItemPropertyInfo:  &properties,
				GetItemParameterInfo: &parameters,
			})
			if err != nil {
				return err
			}
			return printJSON(info)
		},
	}
	callCmd = &cobra.Command{
		Use:   "call [command] [args]",
		Short: "Sends a raw command to the plug-in and prints the result",
		Long:  "Sends a raw command to the plug-in. The optional args must be a JSON object, e.g. revit-mcp query call get_element_info '{\"elementId\":\"316110\"}'",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload json.RawMessage
			if len(args) == 2 {
				payload = json.RawMessage(args[1])
				if !json.Valid(payload) {
					return fmt.Errorf("args are not valid JSON: %s", strconv.Quote(args[1]))
				}
			}
			result, err := rpcTransport.Call(cmd.Context(), args[0], payload, 0)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
)

func init() {
	familiesCmd.Flags().String("category-id", "", "Only list families of this category")
	familiesCmd.Flags().String("name", "", "Only list families whose name contains this text")

	elementsCmd.Flags().StringSlice("category-ids", nil, "Comma-separated category ids to filter by")
	elementsCmd.Flags().StringSlice("view-ids", nil, "Comma-separated view ids to filter by")
	elementsCmd.Flags().StringSlice("level-ids", nil, "Comma-separated level ids to filter by")
	elementsCmd.Flags().Int("limit", 0, "Maximum number of elements (0 for no limit)")

	elementInfoCmd.Flags().Bool("properties", true, "Include the element properties")
	elementInfoCmd.Flags().Bool("parameters", false, "Include the element parameters")
}

func toIDs(values []string) []revit.ID {
	if len(values) == 0 {
		return nil
	}
	ids := make([]revit.ID, len(values))
	for i, v := range values {
		ids[i] = revit.ID(v)
	}
	return ids
}
