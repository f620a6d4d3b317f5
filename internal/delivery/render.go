package delivery

import (
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.gohtml
var templatesFS embed.FS

const (
	alertTemplate    = "alert.gohtml"
	reminderTemplate = "reminder.gohtml"
)

type templateData struct {
	Subject  string
	Message  string
	Shop     string
	Product  *ProductContext
	Wishlist *WishlistContext
}

type renderer struct {
	templates *template.Template
}

func newRenderer() (*renderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("error parsing templates: %w", err)
	}
	return &renderer{templates: tmpl}, nil
}

// render picks the reminder layout for wishlist messages and the alert layout
// for everything else.
func (r *renderer) render(msg Message) (string, error) {
	name := alertTemplate
	if msg.Wishlist != nil {
		name = reminderTemplate
	}
	body := &strings.Builder{}
	err := r.templates.ExecuteTemplate(body, name, templateData{
		Subject:  msg.Subject,
		Message:  msg.Body,
		Shop:     msg.ShopID,
		Product:  msg.Product,
		Wishlist: msg.Wishlist,
	})
	if err != nil {
		return "", fmt.Errorf("error executing template %s: %w", name, err)
	}
	return body.String(), nil
}
