package main

import (
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/engine"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/model"
)

// HTMLData 用于模板渲染的数据
type HTMLData struct {
	Date    string
	Query   model.WatchQuery
	Caption string
	Mode    model.Mode
	Report  *model.Report
}

func renderHTML(path string, q model.WatchQuery, out *engine.Outcome) error {
	t, err := template.New("report").Funcs(template.FuncMap{
		"label": func(tf model.Timeframe) string { return tf.Label() },
	}).Parse(htmlTpl)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return t.Execute(f, HTMLData{
		Date:    time.Now().Format(time.DateOnly),
		Query:   q,
		Caption: out.Stats.Caption(),
		Mode:    out.Stats.Mode,
		Report:  out.Report,
	})
}

const htmlTpl = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Watch Tower | {{ .Query.Topic }}</title>
    <style>
        :root {
            --primary-color: #2563eb;
            --bg-color: #f8fafc;
            --card-bg: #ffffff;
            --text-main: #1e293b;
            --text-secondary: #64748b;
            --border-color: #e2e8f0;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            background-color: var(--bg-color);
            color: var(--text-main);
            line-height: 1.6;
            margin: 0;
            padding: 20px;
        }
        .container { max-width: 900px; margin: 0 auto; }
        header { text-align: center; margin-bottom: 32px; }
        .meta { color: var(--text-secondary); }
        .offline { background: #fef9c3; color: #854d0e; padding: 8px 12px; border-radius: 8px; }
        .summary { background: var(--card-bg); padding: 24px; border-radius: 12px; border: 1px solid var(--border-color); margin-bottom: 32px; }
        .item { background: var(--card-bg); border-radius: 12px; padding: 20px; margin-bottom: 20px; border: 1px solid var(--border-color); }
        .item-title { font-size: 1.2rem; font-weight: 700; }
        .badge { display: inline-block; padding: 2px 10px; border-radius: 20px; font-size: 0.8rem; font-weight: bold; margin-right: 6px; }
        .impact-High { background: #fee2e2; color: #991b1b; }
        .impact-Medium { background: #ffedd5; color: #9a3412; }
        .impact-Low { background: #dcfce7; color: #166534; }
        .category { background: #e0e7ff; color: #3730a3; }
        .tags { color: var(--text-secondary); font-size: 0.85rem; }
        .timeline { border-left: 2px solid var(--border-color); padding-left: 12px; margin-top: 10px; font-size: 0.9rem; }
        a { color: var(--primary-color); text-decoration: none; }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>🛰️ {{ .Query.Topic }}</h1>
            <div class="meta">{{ .Date }} • {{ label .Query.Timeframe }} • {{ range $i, $m := .Query.Markets }}{{ if $i }}, {{ end }}{{ $m }}{{ end }}</div>
            <div class="meta">{{ .Caption }}</div>
            {{ if eq .Mode "offline" }}<p class="offline">No external sources were used. Findings come from model knowledge only.</p>{{ end }}
        </header>

        <div class="summary">{{ .Report.ExecutiveSummary }}</div>

        {{ range .Report.Items }}
        <div class="item">
            <div>
                <span class="badge impact-{{ .Impact }}">{{ .Impact }}</span>
                <span class="badge category">{{ .Category }}</span>
                {{ if .Date }}<span class="meta">{{ .Date }}</span>{{ end }}
            </div>
            <div class="item-title">{{ if .URL }}<a href="{{ .URL }}" target="_blank">{{ .Title }}</a>{{ else }}{{ .Title }}{{ end }}</div>
            {{ if .SourceName }}<div class="meta">{{ .SourceName }}</div>{{ end }}
            <p>{{ .Summary }}</p>
            {{ if .Tags }}<div class="tags">{{ range .Tags }}#{{ . }} {{ end }}</div>{{ end }}
            {{ if .Timeline }}
            <div class="timeline">
                {{ range .Timeline }}<div><b>{{ .Date }}</b> {{ .Label }} - {{ .Desc }}</div>{{ end }}
            </div>
            {{ end }}
        </div>
        {{ end }}
    </div>
</body>
</html>
`
