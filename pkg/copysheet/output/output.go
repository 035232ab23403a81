// Package output serializes run reports.
package output

import (
	"encoding/json"

	"github.com/ukaji3/copysheet-go/pkg/copysheet/models"
)

// ToJSON serializes a report, optionally indented.
func ToJSON(report *models.Report, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(report, "", "  ")
	}
	return json.Marshal(report)
}
