package dashboard

import (
	_ "embed"
	"html/template"
)

//go:embed index.html
var indexHTML string

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))

type indexData struct {
	Title     string
	Version   string
	SessionID string
}
