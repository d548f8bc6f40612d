package transcript

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"document-chat/internal/models"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
	),
)

var page = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<h1>{{.Title}}</h1>
{{- if .Source}}
<p class="source">Document: {{.Source}}</p>
{{- end}}
{{- range $i, $t := .Turns}}
<div class="turn">
<div class="user"><strong>You:</strong> {{$t.Question}}</div>
<div class="assistant{{if $t.Err}} error{{end}}">{{$t.Answer}}</div>
</div>
{{- else}}
<p>No conversation history yet.</p>
{{- end}}
</body>
</html>
`))

type turnView struct {
	Question string
	Answer   template.HTML
	Err      bool
}

// Write renders the conversation as a standalone HTML page. Answers are
// markdown and are rendered; raw HTML inside them is dropped.
func Write(w io.Writer, title, source string, turns []models.Turn) error {
	views := make([]turnView, len(turns))
	for i, t := range turns {
		var buf bytes.Buffer
		if err := md.Convert([]byte(t.Answer), &buf); err != nil {
			return fmt.Errorf("render answer %d: %w", i+1, err)
		}
		views[i] = turnView{Question: t.Question, Answer: template.HTML(buf.String()), Err: t.Err}
	}

	return page.Execute(w, struct {
		Title  string
		Source string
		Turns  []turnView
	}{title, source, views})
}
