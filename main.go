package main

import "github.com/ValentinKolb/revit-mcp/cmd"

func main() {
	cmd.Execute()
}
