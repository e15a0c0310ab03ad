package console

import (
	"html/template"
	"io"
	"strconv"

	"github.com/labstack/echo/v4"
)

type renderer struct {
	t *template.Template
}

func newRenderer() *renderer {
	funcs := template.FuncMap{
		"opt": func(p *int64) string {
			if p == nil {
				return ""
			}
			return strconv.FormatInt(*p, 10)
		},
	}
	return &renderer{t: template.Must(template.New("console").Funcs(funcs).Parse(pageTemplates))}
}

func (r *renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.t.ExecuteTemplate(w, name, data)
}

const pageTemplates = `
{{define "header"}}<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{.}} - Inventory</title>
  <style>
    body { font-family: system-ui, sans-serif; margin: 2rem; color: #222; }
    nav a { margin-right: 1rem; }
    table { border-collapse: collapse; margin-top: 1rem; }
    th, td { border: 1px solid #ccc; padding: 0.3rem 0.6rem; text-align: left; }
    th a { color: inherit; }
    form.inline { display: inline; }
    .error { color: #cc0000; font-weight: bold; }
    .meta { color: #666; }
  </style>
</head>
<body>
<nav><a href="/">Home</a><a href="/brands">Brands</a><a href="/stock">Current stock</a></nav>
<h1>{{.}}</h1>
{{end}}

{{define "footer"}}</body>
</html>
{{end}}

{{define "pager"}}<p>
  {{if .PrevURL}}<a href="{{.PrevURL}}">&laquo; Previous</a>{{end}}
  <span class="meta">Page {{.State.Page}}</span>
  {{if .NextURL}}<a href="{{.NextURL}}">Next &raquo;</a>{{end}}
</p>
<form method="get" action="{{.Path}}">
  <input type="hidden" name="sortBy" value="{{.State.SortBy}}">
  <input type="search" name="search" value="{{.State.Search}}" placeholder="Search">
  <button type="submit">Search</button>
</form>
{{end}}

{{define "home"}}{{template "header" "Inventory console"}}
{{if .Message}}<p>{{.Message}}</p>{{end}}
<p class="meta">Response cache: {{.Cache}}</p>
<form method="post" action="/cache/clear"><button type="submit">Clear cache</button></form>
{{template "footer"}}{{end}}

{{define "brands"}}{{template "header" .Title}}
{{template "pager" .}}
<table>
  <tr>{{range .Fields}}<th><a href="{{index $.SortURLs .}}">{{.}}</a></th>{{end}}<th></th></tr>
  {{range .Rows}}<tr>
    <td>{{.ID}}</td><td>{{.BrandCode}}</td><td>{{.BrandName}}</td>
    <td><form class="inline" method="post" action="/brands/{{.ID}}/delete"><button type="submit">Delete</button></form></td>
  </tr>{{else}}<tr><td colspan="4">No brands</td></tr>{{end}}
</table>
<h2>Save brand</h2>
<form method="post" action="/brands">
  <input name="id" placeholder="id (update)">
  <input name="brandCode" placeholder="Brand code" required>
  <input name="brandName" placeholder="Brand name" required>
  <button type="submit">Save</button>
</form>
{{template "footer"}}{{end}}

{{define "stock"}}{{template "header" .Title}}
{{template "pager" .}}
<table>
  <tr>{{range .Fields}}<th><a href="{{index $.SortURLs .}}">{{.}}</a></th>{{end}}<th>variant</th><th>bin</th><th></th></tr>
  {{range .Rows}}<tr>
    <td>{{.ID}}</td><td>{{.ProductID}}</td><td>{{.UoMID}}</td><td>{{.Quantity}}</td><td>{{.WarehouseID}}</td>
    <td>{{opt .ProductVariantID}}</td><td>{{opt .StorageBinID}}</td>
    <td><form class="inline" method="post" action="/stock/{{.ID}}/delete"><button type="submit">Delete</button></form></td>
  </tr>{{else}}<tr><td colspan="8">No stock records</td></tr>{{end}}
</table>
<h2>Save stock record</h2>
<form method="post" action="/stock">
  <input name="id" placeholder="id (update)">
  <input name="productID" placeholder="Product ID" required>
  <input name="productVariantID" placeholder="Variant ID">
  <input name="uoMID" placeholder="UoM ID" required>
  <input name="quantity" placeholder="Quantity" required>
  <input name="warehouseID" placeholder="Warehouse ID" required>
  <input name="storageBinID" placeholder="Storage bin ID">
  <button type="submit">Save</button>
</form>
{{template "footer"}}{{end}}

{{define "error"}}{{template "header" "Error"}}
<p class="error">{{.Status}}: {{.Message}}</p>
{{template "footer"}}{{end}}
`
