// FILE: evsink/src/internal/format/text.go
package format

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"evsink/src/internal/core"

	"github.com/lixenwraith/log"
)

const DefaultTextTemplate = `{{FmtMs .Ms}} {{printf "%-6s" .Kind}}` +
	`{{if .Level}} [{{.Level}}]{{end}}` +
	`{{if .ID}} #{{.ID}}{{end}}` +
	`{{if .Parent}} <#{{.Parent}}{{end}}` +
	`{{if .Type}} {{.Type}}{{end}}` +
	`{{if .Text}} {{.Text}}{{end}}` +
	`{{if .Fields}} {{.Fields}}{{end}}`

// Produces human-readable text lines using templates
type TextFormatter struct {
	template *template.Template
	logger   *log.Logger
}

// Creates a new text formatter; an empty tmpl selects DefaultTextTemplate
func NewTextFormatter(tmpl string, logger *log.Logger) (*TextFormatter, error) {
	if tmpl == "" {
		tmpl = DefaultTextTemplate
	}

	funcMap := template.FuncMap{
		"FmtMs":   fmtMs,
		"ToUpper": strings.ToUpper,
		"ToLower": strings.ToLower,
	}

	t, err := template.New("entry").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}

	return &TextFormatter{
		template: t,
		logger:   logger,
	}, nil
}

// Formats the entry using the template
func (f *TextFormatter) Format(entry core.Entry) ([]byte, error) {
	w := toWire(entry)

	fields := make([]string, len(entry.Fields))
	for i, field := range entry.Fields {
		fields[i] = field.String()
	}

	data := map[string]any{
		"Ms":     w.Ms,
		"Kind":   w.Kind,
		"Level":  w.Level,
		"ID":     w.ID,
		"Parent": w.Parent,
		"Type":   w.Type,
		"Text":   w.Text,
		"Fields": strings.Join(fields, " "),
	}

	var buf bytes.Buffer
	if err := f.template.Execute(&buf, data); err != nil {
		f.logger.Debug("msg", "Template execution failed, using fallback",
			"component", "text_formatter",
			"error", err)

		fallback := fmt.Sprintf("%s %s #%d %s\n", fmtMs(w.Ms), w.Kind, w.ID, w.Text)
		return []byte(fallback), nil
	}

	result := buf.Bytes()
	if len(result) == 0 || result[len(result)-1] != '\n' {
		result = append(result, '\n')
	}
	return result, nil
}

// Joins formatted lines
func (f *TextFormatter) FormatBatch(entries []core.Entry) ([]byte, error) {
	var buf bytes.Buffer
	for _, entry := range entries {
		line, err := f.Format(entry)
		if err != nil {
			return nil, err
		}
		buf.Write(line)
	}
	return buf.Bytes(), nil
}

// Returns the formatter name
func (f *TextFormatter) Name() string {
	return "text"
}

func (f *TextFormatter) ContentType() string {
	return "text/plain; charset=utf-8"
}

// fmtMs renders elapsed milliseconds as seconds with millisecond precision
func fmtMs(ms uint64) string {
	return fmt.Sprintf("%d.%03ds", ms/1000, ms%1000)
}
