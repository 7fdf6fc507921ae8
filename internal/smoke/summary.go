package smoke

import (
	"io"
	"os"
	"text/template"

	"github.com/pkg/errors"

	"facsimilab/internal/assets"
)

var summaryTemplate = template.Must(template.New("summary").Parse(assets.SmokeSummaryTemplate()))

// WriteSummary renders the markdown job summary.
func WriteSummary(w io.Writer, version string, results []Result) error {
	data := struct {
		Version string
		Results []Result
	}{version, results}
	if err := summaryTemplate.Execute(w, data); err != nil {
		return errors.Wrap(err, "render smoke summary")
	}
	return nil
}

// AppendSummary appends the summary to path, the file CI exposes as the job
// summary. An empty path writes to fallback.
func AppendSummary(path string, fallback io.Writer, version string, results []Result) error {
	if path == "" {
		return WriteSummary(fallback, version, results)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "open job summary %s", path)
	}
	defer f.Close()
	return WriteSummary(f, version, results)
}
