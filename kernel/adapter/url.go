package adapter

import (
	"net/url"
	"strings"

	"github.com/openziti/resourcestore/kernel/model"
)

// TemplateURL builds urls from templates containing {type} and {id}.
// collection is used when no id is given; when it is empty the record
// template is used with its {id} segment removed.
func TemplateURL(record, collection string) BuildURL {
	return func(_ model.ActionType, resourceType model.ResourceType, id model.ResourceId) string {
		tmpl := record
		if id == "" {
			if collection != "" {
				tmpl = collection
			} else {
				tmpl = strings.ReplaceAll(tmpl, "/{id}", "")
				tmpl = strings.ReplaceAll(tmpl, "{id}", "")
			}
		}
		out := strings.ReplaceAll(tmpl, "{type}", url.PathEscape(string(resourceType)))
		return strings.ReplaceAll(out, "{id}", url.PathEscape(string(id)))
	}
}
