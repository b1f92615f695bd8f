// Package render turns a warranty card into its HTML certificate.
package render

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-warranty-cards/internal/settings"
	"github.com/ariefcatur/go-warranty-cards/internal/warranty"
)

//go:embed templates/*
var templateFS embed.FS

var (
	tmpl    = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))
	cardCSS = template.CSS(mustRead("templates/card.css"))
)

func mustRead(name string) string {
	b, err := templateFS.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// Mode selects between the on-screen card and the print/PDF variant.
type Mode int

const (
	Interactive Mode = iota
	Export
)

type CompanySource interface {
	Company(ctx context.Context) (settings.Company, error)
}

type ProductImages interface {
	ProductImageURL(ctx context.Context, productID string) (string, error)
}

type Renderer struct {
	Company    CompanySource
	Images     ProductImages // optional
	SiteName   string
	SiteURL    string
	QREndpoint string
	Log        *zap.Logger
}

type cardView struct {
	CSS          template.CSS
	Card         *warranty.Card
	Company      settings.Company
	Interactive  bool
	PDFURL       string
	ProductImage string
	QRSrc        string
	SiteName     string
	SiteURL      string
}

// Card renders the certificate fragment. Cards without a product title
// render as an invalid-card notice.
func (r *Renderer) Card(ctx context.Context, c *warranty.Card, mode Mode) (string, error) {
	if c == nil || !c.Valid() {
		return r.exec("invalid", nil)
	}
	company, err := r.Company.Company(ctx)
	if err != nil {
		return "", err
	}

	v := cardView{
		CSS:         cardCSS,
		Card:        c,
		Company:     company,
		Interactive: mode == Interactive,
		PDFURL:      r.PDFURL(c.ID),
		QRSrc:       r.QRSrc(c.ProductURL),
		SiteName:    r.SiteName,
		SiteURL:     r.SiteURL,
	}
	if r.Images != nil && c.ProductID != "" {
		img, err := r.Images.ProductImageURL(ctx, c.ProductID)
		if err != nil {
			// the image is optional, render without it
			r.logger().Warn("product image", zap.String("product_id", c.ProductID), zap.Error(err))
		}
		v.ProductImage = img
	}
	return r.exec("card", v)
}

// QRSrc points the QR image at the external generator.
func (r *Renderer) QRSrc(productURL string) string {
	return r.QREndpoint + strings.ReplaceAll(url.QueryEscape(productURL), "+", "%20")
}

// PDFURL is the export link for card id.
func (r *Renderer) PDFURL(id int64) string {
	return r.SiteURL + "?export=1&card_id=" + strconv.FormatInt(id, 10)
}

// CardURL is the public page of card id.
func (r *Renderer) CardURL(id int64) string {
	return r.SiteURL + "warranty-card/" + strconv.FormatInt(id, 10)
}

// SettingsForm is the admin page for the branding settings.
func (r *Renderer) SettingsForm(fields []settings.Field, values map[string]string, saved bool) (string, error) {
	type row struct {
		settings.Field
		Value   string
		Checked bool
	}
	rows := make([]row, 0, len(fields))
	for _, f := range fields {
		v := values[f.Key]
		rows = append(rows, row{Field: f, Value: v, Checked: f.IsToggle() && v == "yes"})
	}
	return r.exec("settings", struct {
		SiteName string
		Rows     []row
		Saved    bool
	}{r.SiteName, rows, saved})
}

// Document wraps a fragment into a standalone UTF-8 document.
func (r *Renderer) Document(fragment string) (string, error) {
	return r.exec("document", struct {
		Title string
		Body  template.HTML
	}{"Warranty", template.HTML(fragment)})
}

// Page is the dedicated card page.
func (r *Renderer) Page(title, fragment string) (string, error) {
	return r.exec("page", struct {
		Title, SiteName string
		Body            template.HTML
	}{title, r.SiteName, template.HTML(fragment)})
}

// Message is a plain notice page. body, when set, is appended verbatim.
func (r *Renderer) Message(title, message, body string) (string, error) {
	return r.exec("message", struct {
		Title, SiteName, Message string
		Body                     template.HTML
	}{title, r.SiteName, message, template.HTML(body)})
}

func (r *Renderer) exec(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *Renderer) logger() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}
