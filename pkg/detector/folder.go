package detector

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/xhad/quizdeck/internal/models"
)

var dashboardMarker = globalAssignment("dashboardData", models.VariantUnknown)

// ExtractFolder reads the folder name and the URLs of its sets from a
// folder page's dashboard payload.
func ExtractFolder(html string) (*models.Folder, error) {
	captured, ok := Capture(html, dashboardMarker.Prefix, dashboardMarker.Suffix)
	if !ok {
		return nil, models.ErrSchemaNotRecognized
	}
	if !gjson.Valid(captured) {
		return nil, &models.MalformedPayloadError{Detail: "dashboard data is not valid JSON"}
	}

	folders := gjson.Get(captured, "models.folder").Array()
	if len(folders) != 1 {
		return nil, &models.MalformedPayloadError{Detail: fmt.Sprintf("expected one folder, found %d", len(folders))}
	}

	folder := &models.Folder{Name: folders[0].Get("name").String()}
	for i, set := range gjson.Get(captured, "models.set").Array() {
		u := set.Get("_webUrl").String()
		if u == "" {
			return nil, &models.MalformedPayloadError{Detail: fmt.Sprintf("set %d has no _webUrl", i)}
		}
		folder.SetURLs = append(folder.SetURLs, u)
	}
	return folder, nil
}
