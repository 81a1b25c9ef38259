// Package render builds transactional email bodies. HTML and plain text are
// produced by separate templates from the same view, so a mistake in one
// channel cannot leak into the other.
package render

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"unicode"
	"unicode/utf8"

	"github.com/danielmoisemontezima/zw-storefront-service/internal/guard"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

type Content struct {
	Subject string
	HTML    string
	Text    string
}

type WelcomeView struct {
	Name string
}

type AdminOrderView struct {
	Order    model.Order
	Customer model.Customer
}

// OrderStatusView carries the operator note twice: NoteHTML must already be
// escaped by the caller, Note is the raw text for the plain-text body.
type OrderStatusView struct {
	Order       model.Order
	Name        string
	Status      string
	StatusLabel string
	Headline    string
	NoteHTML    htmltemplate.HTML
	Note        string
}

type page struct {
	Subject   string
	Store     string
	BaseURL   string
	Signature htmltemplate.HTML
	View      any
}

type Renderer struct {
	html      *htmltemplate.Template
	text      *texttemplate.Template
	store     string
	baseURL   string
	signature htmltemplate.HTML
}

// New parses the embedded templates. signatureHTML is operator supplied and
// is sanitized once here.
func New(storeName, baseURL, signatureHTML string) (*Renderer, error) {
	funcs := map[string]any{"money": Money}

	html, err := htmltemplate.New("email").Funcs(funcs).ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse html templates: %w", err)
	}
	text, err := texttemplate.New("email").Funcs(funcs).ParseFS(templateFS, "templates/*.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse text templates: %w", err)
	}

	var signature htmltemplate.HTML
	if s := strings.TrimSpace(signatureHTML); s != "" {
		signature = htmltemplate.HTML(guard.SanitizeMarkupFragment(s))
	}

	return &Renderer{
		html:      html,
		text:      text,
		store:     storeName,
		baseURL:   strings.TrimRight(baseURL, "/"),
		signature: signature,
	}, nil
}

func (r *Renderer) Welcome(v WelcomeView) (*Content, error) {
	return r.render("welcome", fmt.Sprintf("Welcome to %s!", r.store), v)
}

func (r *Renderer) AdminOrderAlert(v AdminOrderView) (*Content, error) {
	subject := fmt.Sprintf("New order #%s - %s", v.Order.OrderNumber, Money(v.Order.FinalTotal))
	return r.render("admin_order", subject, v)
}

func (r *Renderer) OrderStatus(v OrderStatusView) (*Content, error) {
	subject := fmt.Sprintf("Order #%s update: %s", v.Order.OrderNumber, v.StatusLabel)
	return r.render("order_status", subject, v)
}

func (r *Renderer) render(name, subject string, view any) (*Content, error) {
	p := page{
		Subject:   subject,
		Store:     r.store,
		BaseURL:   r.baseURL,
		Signature: r.signature,
		View:      view,
	}

	var html bytes.Buffer
	if err := r.html.ExecuteTemplate(&html, name+".html", p); err != nil {
		return nil, fmt.Errorf("render %s html: %w", name, err)
	}
	var text bytes.Buffer
	if err := r.text.ExecuteTemplate(&text, name+".txt", p); err != nil {
		return nil, fmt.Errorf("render %s text: %w", name, err)
	}

	return &Content{
		Subject: subject,
		HTML:    html.String(),
		Text:    strings.TrimSpace(text.String()) + "\n",
	}, nil
}

// Money formats a major-unit amount as dollars.
func Money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

var statusHeadlines = map[string]string{
	"pending":    "We've received your order",
	"processing": "Your order is being prepared",
	"shipped":    "Your order is on its way",
	"delivered":  "Your order has been delivered",
	"cancelled":  "Your order has been cancelled",
	"canceled":   "Your order has been cancelled",
	"refunded":   "Your order has been refunded",
}

// StatusLabel turns "out_for_delivery" into "Out for delivery".
func StatusLabel(status string) string {
	s := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(status, "_", " "), "-", " "))
	if s == "" {
		return s
	}
	s = strings.ToLower(s)
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

func StatusHeadline(status string) string {
	if h, ok := statusHeadlines[strings.ToLower(strings.TrimSpace(status))]; ok {
		return h
	}
	return "Your order status has been updated"
}
