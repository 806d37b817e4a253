package notification

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/aymerick/raymond"
)

// Template ids.
const (
	TemplateWelcome            = "welcome"
	TemplateVerification       = "verification"
	TemplateResetPassword      = "resetPassword"
	TemplateOrderConfirmation  = "orderConfirmation"
	TemplateOrderStatus        = "orderStatus"
	TemplateOrderShipped       = "orderShipped"
	TemplateOrderDelivered     = "orderDelivered"
	TemplateOrderCancellation  = "orderCancellation"
	TemplateReturnStatus       = "returnStatus"
	TemplateRefundConfirmation = "refundConfirmation"
	TemplatePaymentFailed      = "paymentFailed"
)

const layoutName = "layout"

//go:embed templates/*.hbs
var templateFiles embed.FS

// Renderer renders the embedded Handlebars templates inside the shared layout.
type Renderer struct {
	layout    *raymond.Template
	templates map[string]*raymond.Template
}

// NewRenderer parses every embedded template.
func NewRenderer() (*Renderer, error) {
	entries, err := fs.ReadDir(templateFiles, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to read templates: %w", err)
	}

	r := &Renderer{templates: make(map[string]*raymond.Template, len(entries))}
	for _, e := range entries {
		source, err := templateFiles.ReadFile("templates/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", e.Name(), err)
		}
		tpl, err := raymond.Parse(string(source))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", e.Name(), err)
		}

		id := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		if id == layoutName {
			r.layout = tpl
			continue
		}
		r.templates[id] = tpl
	}
	if r.layout == nil {
		return nil, fmt.Errorf("layout template is missing")
	}
	return r, nil
}

// Has reports whether a template exists.
func (r *Renderer) Has(id string) bool {
	_, ok := r.templates[id]
	return ok
}

// Render executes template id with data and wraps it in the layout.
func (r *Renderer) Render(id, subject string, data map[string]any) (string, error) {
	tpl, ok := r.templates[id]
	if !ok {
		return "", fmt.Errorf("unknown template %q", id)
	}
	body, err := tpl.Exec(data)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", id, err)
	}
	html, err := r.layout.Exec(map[string]any{"subject": subject, "body": body})
	if err != nil {
		return "", fmt.Errorf("failed to render layout: %w", err)
	}
	return html, nil
}
