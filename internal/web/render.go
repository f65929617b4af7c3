package web

import (
	"embed"
	"html/template"

	"github.com/dustin/go-humanize"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/nconklindev/sheetdiff/internal/diff"
	"github.com/nconklindev/sheetdiff/internal/llm"
	"github.com/nconklindev/sheetdiff/internal/report"
	"github.com/nconklindev/sheetdiff/internal/table"
)

//go:embed templates/*.html
var templateFiles embed.FS

const (
	previewRows    = 20
	maxShownErrors = 500
)

func parseTemplates() (*template.Template, error) {
	funcs := template.FuncMap{
		"comma": func(n int) string { return humanize.Comma(int64(n)) },
	}
	return template.New("").Funcs(funcs).ParseFS(templateFiles, "templates/*.html")
}

// renderMarkdown turns assistant output into HTML. Raw HTML in the source is
// dropped and only safe links are kept.
func renderMarkdown(md string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.NoEmptyLineBeforeBlock)
	r := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.SkipHTML | html.Safelink | html.HrefTargetBlank,
	})
	return template.HTML(markdown.ToHTML([]byte(md), p, r))
}

type indexView struct {
	Error         string
	MaxUpload     string
	Assistant     bool
	SessionsInUse int
}

type messageView struct {
	User bool
	Text string
	HTML template.HTML
}

type mismatchView struct {
	Column string
	Row    int
	Source string
	Target string
}

type previewView struct {
	Name    string
	Size    string
	Headers []string
	Rows    [][]string
	More    int
}

type sessionView struct {
	ID         string
	Created    string
	Summary    []string
	Result     *diff.Result
	Counts     []report.ColumnCount
	Mismatches []mismatchView
	Hidden     int
	Messages   []messageView
	Source     previewView
	Target     previewView
	Assistant  bool
	Notice     string
}

func newSessionView(s *Session, assistant bool) sessionView {
	res := s.Subject.Result
	v := sessionView{
		ID:        s.ID,
		Created:   humanize.Time(s.CreatedAt),
		Summary:   report.Summary(res),
		Result:    res,
		Counts:    report.CountsByColumn(res),
		Source:    preview(s.SourceName, s.SourceSize, s.Subject.Source),
		Target:    preview(s.TargetName, s.TargetSize, s.Subject.Target),
		Assistant: assistant,
		Notice:    s.takeNotice(),
	}

	shown := res.Mismatches
	if len(shown) > maxShownErrors {
		v.Hidden = len(shown) - maxShownErrors
		shown = shown[:maxShownErrors]
	}
	for _, m := range shown {
		v.Mismatches = append(v.Mismatches, mismatchView{
			Column: m.Column,
			Row:    m.Row,
			Source: m.Source.String(),
			Target: m.Target.String(),
		})
	}

	for _, m := range s.Conversation.Messages() {
		mv := messageView{User: m.Role == llm.RoleUser, Text: m.Content}
		if !mv.User {
			mv.HTML = renderMarkdown(m.Content)
		}
		v.Messages = append(v.Messages, mv)
	}
	return v
}

func preview(name string, size int64, ds *table.Dataset) previewView {
	p := previewView{
		Name:    name,
		Size:    humanize.Bytes(uint64(max(size, 0))),
		Headers: ds.ColumnNames(),
	}
	n := min(ds.NumRows(), previewRows)
	p.More = ds.NumRows() - n
	for i := range n {
		row := ds.Row(i)
		cells := make([]string, len(row))
		for j, v := range row {
			if v.IsNull() {
				continue
			}
			cells[j] = v.String()
		}
		p.Rows = append(p.Rows, cells)
	}
	return p
}
