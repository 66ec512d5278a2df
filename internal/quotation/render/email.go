package render

import (
	"bytes"
	"html/template"
)

const quotationEmailTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Quotation {{.QuotationNumber}}</title>
  <style>
    body {
      margin: 0;
      padding: 40px;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
      color: #1a1f36;
      background: #f7f9fc;
    }
    .card {
      background: #ffffff;
      max-width: 640px;
      margin: 0 auto;
      padding: 48px;
      border-radius: 4px;
      box-shadow: 0 2px 5px rgba(0,0,0,0.04);
    }
    h1 {
      margin: 0 0 8px;
      font-size: 22px;
    }
    .number {
      color: #8792a2;
      font-weight: 600;
      margin-bottom: 32px;
    }
    .total {
      font-size: 30px;
      font-weight: 700;
      margin: 24px 0 4px;
    }
    .label {
      font-size: 11px;
      text-transform: uppercase;
      color: #8792a2;
      font-weight: 600;
      letter-spacing: 0.3px;
    }
    .row { margin-bottom: 16px; }
    .message { margin-top: 32px; line-height: 1.6; }
    .footer {
      margin-top: 40px;
      font-size: 12px;
      color: #8792a2;
    }
  </style>
</head>
<body>
  <div class="card">
    <h1>{{.CompanyName}}</h1>
    <div class="number">Quotation {{.QuotationNumber}}</div>

    <div class="row">
      <div class="label">Prepared for</div>
      <div>{{.CustomerName}}{{if .ContactPerson}} (Attn: {{.ContactPerson}}){{end}}</div>
    </div>
    <div class="row">
      <div class="label">Date of issue</div>
      <div>{{.IssueDate}}</div>
    </div>
    {{if .ValidUntil}}
    <div class="row">
      <div class="label">Valid until</div>
      <div>{{.ValidUntil}}</div>
    </div>
    {{end}}

    <div class="label">Total</div>
    <div class="total">{{.Total}}</div>

    {{if .Message}}<div class="message">{{.Message}}</div>{{end}}

    <div class="footer">The full quotation is attached as a PDF document.</div>
  </div>
</body>
</html>`

var emailTmpl = template.Must(template.New("quotation_email").Parse(quotationEmailTemplate))

// EmailData feeds the outbound quotation email. Total arrives already
// formatted from the persisted amount.
type EmailData struct {
	CompanyName     string
	QuotationNumber string
	CustomerName    string
	ContactPerson   string
	IssueDate       string
	ValidUntil      string
	Total           string
	Message         string
}

func EmailBody(data EmailData) (string, error) {
	var buf bytes.Buffer
	if err := emailTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func EmailSubject(companyName, quotationNumber string) string {
	if companyName == "" {
		return "Quotation " + quotationNumber
	}
	return "Quotation " + quotationNumber + " from " + companyName
}
