package handler

import "html/template"

const (
	msgClientAdded        = "Add client successful"
	msgClientNotAdded     = "Client not add"
	msgTransferSuccessful = "The transaction was successful"
	msgTransferRejected   = "transaction rejected"
)

var pages = template.Must(template.New("pages").Parse(`{{define "layout"}}<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
{{if .Message}}<p class="result">{{.Message}}</p>{{end}}
{{template "form" .}}
<p><a href="/registration">Registration</a> | <a href="/transaction">Money transaction</a></p>
</body>
</html>{{end}}`))

var registrationPage = template.Must(template.Must(pages.Clone()).Parse(`{{define "form"}}<form method="post" action="/registration">
<label>Name <input type="text" name="name"></label>
<label>Password <input type="password" name="password"></label>
<label>Money <input type="number" name="money" min="0"></label>
<input type="submit" value="Register">
</form>{{end}}`))

var transactionPage = template.Must(template.Must(pages.Clone()).Parse(`{{define "form"}}<form method="post" action="/transaction">
<label>Sender <input type="text" name="senderName"></label>
<label>Password <input type="password" name="senderPass"></label>
<label>Amount <input type="number" name="count" min="1"></label>
<label>Recipient <input type="text" name="nameTo"></label>
<input type="submit" value="Send">
</form>{{end}}`))

type pageData struct {
	Title   string
	Message string
}
