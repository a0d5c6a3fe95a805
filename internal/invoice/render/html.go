package render

import (
	"bytes"
	"html/template"

	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
	"github.com/garyjia/timesheet-invoicing/internal/domain/errs"
)

var htmlLayout = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Heading}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
th, td { border-bottom: 1px solid #ccc; padding: 4px 8px; text-align: left; }
td.num, th.num { text-align: right; }
.preview { color: #b00; }
</style>
</head>
<body>
<header>
<h1{{if .V.Preview}} class="preview"{{end}}>{{.Heading}}</h1>
<p><strong>{{.V.Company}}</strong><br>{{.V.Address}}</p>
{{if .V.VatID}}<p>VAT ID: {{.V.VatID}}</p>{{end}}
<p>Date: {{.V.IssueDate}}<br>Due: {{.V.DueDate}}</p>
</header>
<table>
<thead><tr><th>Date</th><th>Description</th><th class="num">Duration</th><th class="num">Rate</th><th class="num">Amount</th></tr></thead>
<tbody>
{{range .V.Lines}}<tr><td>{{.Date}}</td><td>{{.Description}}</td><td class="num">{{.Duration}}</td><td class="num">{{.HourlyRate}}</td><td class="num">{{.Amount}}</td></tr>
{{end}}</tbody>
<tfoot>
<tr><td colspan="4">Subtotal</td><td class="num">{{.V.Subtotal}} {{.V.Currency}}</td></tr>
<tr><td colspan="4">Tax {{.V.TaxRate}}%</td><td class="num">{{.V.TaxAmount}} {{.V.Currency}}</td></tr>
<tr><td colspan="4"><strong>Total</strong></td><td class="num"><strong>{{.V.Total}} {{.V.Currency}}</strong></td></tr>
</tfoot>
</table>
{{if .V.PaymentTerms}}<p>{{.V.PaymentTerms}}</p>{{end}}
{{if .V.PaymentDetails}}<p>{{.V.PaymentDetails}}</p>{{end}}
{{if .V.Contact}}<footer>{{.V.Contact}}</footer>{{end}}
</body>
</html>
`))

// HTML renders a printable page
type HTML struct{}

func (HTML) ID() string { return "html" }

func (r HTML) Render(in Input) (*entity.Document, error) {
	if err := requireFields(r.ID(), in, "company", "address"); err != nil {
		return nil, err
	}

	v := newView(in)
	var buf bytes.Buffer
	if err := htmlLayout.Execute(&buf, struct {
		Heading string
		V       view
	}{v.heading(), v}); err != nil {
		return nil, &errs.RenderError{Renderer: r.ID(), Err: err}
	}

	return &entity.Document{
		Content:   buf.Bytes(),
		MimeType:  "text/html; charset=utf-8",
		Extension: "html",
	}, nil
}
