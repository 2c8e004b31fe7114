package api

import (
	"html/template"
	"net/http"
)

var pageTemplates = template.Must(template.New("layout").Parse(`
{{define "header"}}<!DOCTYPE html>
<html lang="en"><head><meta charset="utf-8"><title>{{.Title}}</title></head><body>
<h1>{{.Title}}</h1>{{end}}
{{define "footer"}}</body></html>{{end}}

{{define "multiple_delete"}}{{template "header" .}}
<p>There are {{len .Rows}} items whose paragraph content is to be deleted.</p>
<table>
<thead><tr><th>Name</th></tr></thead>
<tbody>
{{range .Rows}}<tr><td><a href="{{.URL}}">{{.Label}}</a></td></tr>
{{else}}<tr><td>There are no items to be viewed.</td></tr>
{{end}}</tbody>
</table>
<form method="post" action="{{.Action}}">
<input type="hidden" name="form_token" value="{{.FormToken}}">
<button type="submit" name="op" value="delete">Delete</button>
<button type="submit" name="op" value="cancel">Cancel</button>
</form>
{{template "footer" .}}{{end}}

{{define "type_delete"}}{{template "header" .}}
{{if .InUse}}<p>{{.Type.Label}} is used by {{.Type.Instances}} pieces of content on your site. You can not remove this paragraph type until you have removed all from the content.</p>
{{else}}<p>Are you sure you want to delete the paragraph type {{.Type.Label}}? This action cannot be undone.</p>
<form method="post" action="{{.Action}}">
<input type="hidden" name="form_token" value="{{.FormToken}}">
<button type="submit" name="op" value="delete">Delete</button>
</form>
{{end}}<p><a href="{{.CancelURL}}">Cancel</a></p>
{{template "footer" .}}{{end}}

{{define "type_collection"}}{{template "header" .}}
<table>
<thead><tr><th>Label</th><th>Machine name</th><th>Instances</th><th>Operations</th></tr></thead>
<tbody>
{{range .Types}}<tr><td>{{.Label}}</td><td>{{.ID}}</td><td>{{.Instances}}</td><td><a href="{{index $.DeleteURLs .ID}}">Delete</a></td></tr>
{{else}}<tr><td colspan="4">No paragraph types available.</td></tr>
{{end}}</tbody>
</table>
{{template "footer" .}}{{end}}
`))

func renderPage(w http.ResponseWriter, name string, data any) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return pageTemplates.ExecuteTemplate(w, name, data)
}
