package notify

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/k3a/html2text"
	"gorm.io/datatypes"
)

const unnamedEntity = "una entidad"

var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// ComposeMessage renders a rule template against entity data. Each
// {{path}} is replaced by the value found by walking dotted keys through
// nested maps; missing values render empty. An empty template yields a
// generic message naming the entity.
func ComposeMessage(template string, data map[string]any) string {
	if strings.TrimSpace(template) == "" {
		return fmt.Sprintf("Se registró un cambio en %s.", DisplayName(data))
	}
	return placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		path := placeholderPattern.FindStringSubmatch(token)[1]
		v, ok := lookupPath(data, path)
		if !ok {
			return ""
		}
		return formatValue(v)
	})
}

// DisplayName returns the entity name from its data, or "una entidad".
func DisplayName(data map[string]any) string {
	for _, key := range []string{FieldName, "name", "titulo", "title"} {
		if s := stringField(data, key); s != "" {
			return s
		}
	}
	return unnamedEntity
}

func lookupPath(data map[string]any, path string) (any, bool) {
	var current any = data
	for _, segment := range strings.Split(path, ".") {
		var ok bool
		switch m := current.(type) {
		case map[string]any:
			current, ok = m[segment]
		case datatypes.JSONMap:
			current, ok = m[segment]
		case map[string]string:
			current, ok = m[segment]
		default:
			return nil, false
		}
		if !ok || current == nil {
			return nil, false
		}
	}
	return current, true
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// EmailHTML wraps a notification in a minimal HTML body.
func EmailHTML(title, message, entityName string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<h2>%s</h2>", html.EscapeString(title))
	fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(message))
	if entityName != "" {
		fmt.Fprintf(&b, "<p><strong>Entidad:</strong> %s</p>", html.EscapeString(entityName))
	}
	b.WriteString("</body></html>")
	return b.String()
}

// EmailText derives the plain text alternative from the HTML body.
func EmailText(htmlBody string) string {
	return html2text.HTML2Text(htmlBody)
}
