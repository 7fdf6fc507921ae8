package assets

import (
	"embed"
	"fmt"
)

//go:embed smoke_summary.md.tmpl
var SmokeSummaryContent embed.FS

// SmokeSummaryTemplate loads the embedded job summary template as a string.
func SmokeSummaryTemplate() string {
	data, err := SmokeSummaryContent.ReadFile("smoke_summary.md.tmpl")
	if err != nil {
		// fail-safe: a summary that still carries the version and the error
		return fmt.Sprintf("## FacsimiLab smoke tests\n\n**Image version:** `{{ .Version }}`\n\n(error reading template: %v)\n", err)
	}
	return string(data)
}
