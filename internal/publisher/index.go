package publisher

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"
	"time"

	"article-sync/internal/article"
	"article-sync/internal/normalize"
)

const previewChars = 200

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.SiteTitle}}</title>
<style>
body{font-family:Arial,sans-serif;max-width:800px;margin:40px auto;padding:20px;}
.article{border:1px solid #ddd;padding:15px;margin:15px 0;border-radius:5px;}
.title{font-size:18px;font-weight:bold;color:#333;margin-bottom:10px;}
.meta{color:#666;font-size:14px;margin-bottom:10px;}
.content{color:#444;line-height:1.5;}
.json-link{background:#007bff;color:white;padding:10px 20px;text-decoration:none;border-radius:5px;display:inline-block;margin:20px 0;}
</style>
</head>
<body>
<h1>{{.SiteTitle}}</h1>
<p><strong>Last Updated:</strong> <time datetime="{{.Generated}}">{{.Generated}}</time></p>
<p><strong>Published Articles:</strong> <span class="count">{{len .Articles}}</span></p>
<a href="{{.JSONHref}}" class="json-link">Download {{.JSONName}}</a>
<h2>Available Articles:</h2>
{{range .Articles}}<div class="article" id="article-{{.ID}}">
<div class="title">{{.Title}}</div>
<div class="meta">{{.Author}}{{if .Date}} | {{.Date}}{{end}}{{if .Keywords}} | {{.Keywords}}{{end}}</div>
<div class="content">{{.Preview}}</div>
</div>
{{end}}</body>
</html>
`))

type indexPage struct {
	SiteTitle string
	Generated string
	JSONHref  string
	JSONName  string
	Articles  []indexEntry
}

type indexEntry struct {
	ID       string
	Title    string
	Author   string
	Date     string
	Keywords string
	Preview  string
}

// IndexOptions configures the human-readable listing.
type IndexOptions struct {
	SiteTitle     string
	DefaultAuthor string
	Accessor      article.Accessor
}

// RenderIndex builds the HTML listing for the published set. jsonPath is made
// relative to indexPath for the download link.
func RenderIndex(records []*article.Record, opts IndexOptions, indexPath, jsonPath string, generated time.Time) ([]byte, error) {
	page := indexPage{
		SiteTitle: opts.SiteTitle,
		Generated: generated.UTC().Format(article.TimestampLayout),
		JSONHref:  relativeHref(indexPath, jsonPath),
		JSONName:  filepath.Base(jsonPath),
		Articles:  make([]indexEntry, 0, len(records)),
	}
	if page.SiteTitle == "" {
		page.SiteTitle = "Articles"
	}

	for _, rec := range records {
		author, _ := article.Lookup(rec, "Author")
		if author == "" {
			author = opts.DefaultAuthor
		}
		date, _ := article.Lookup(rec, "Date")
		keywords, _ := article.Lookup(rec, "Keywords")

		page.Articles = append(page.Articles, indexEntry{
			ID:       rec.ID(),
			Title:    opts.Accessor.Title(rec),
			Author:   author,
			Date:     date,
			Keywords: keywords,
			Preview:  normalize.TruncatePreview(rec.Content(), previewChars),
		})
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("render index: %w", err)
	}
	return buf.Bytes(), nil
}

func relativeHref(indexPath, jsonPath string) string {
	rel, err := filepath.Rel(filepath.Dir(indexPath), jsonPath)
	if err != nil {
		return filepath.Base(jsonPath)
	}
	return filepath.ToSlash(rel)
}
