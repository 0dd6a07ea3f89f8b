package browser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
)

type locatorKind int

const (
	kindCSS locatorKind = iota
	kindXPath
)

// Locator identifies a single element on the page.
type Locator struct {
	query string
	kind  locatorKind
}

// ID locates an element by its id attribute.
func ID(id string) Locator {
	return Locator{query: "#" + id, kind: kindCSS}
}

// CSS locates the first element matching a css selector.
func CSS(selector string) Locator {
	return Locator{query: selector, kind: kindCSS}
}

// XPath locates the first element matching an xpath expression.
func XPath(expr string) Locator {
	return Locator{query: expr, kind: kindXPath}
}

// LinkText locates an anchor whose whitespace-normalized text equals text.
func LinkText(text string) Locator {
	return XPath(fmt.Sprintf("//a[normalize-space(.)=%s]", xpathLiteral(text)))
}

func (l Locator) String() string {
	return l.query
}

func (l Locator) IsZero() bool {
	return l.query == ""
}

func (l Locator) queryOption() chromedp.QueryOption {
	if l.kind == kindXPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// jsElement returns a javascript expression evaluating to the element or null.
func (l Locator) jsElement() string {
	literal, _ := json.Marshal(l.query)
	if l.kind == kindXPath {
		return fmt.Sprintf(
			"document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue",
			literal,
		)
	}
	return fmt.Sprintf("document.querySelector(%s)", literal)
}

func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = "'" + p + "'"
	}
	return "concat(" + strings.Join(quoted, `, "'", `) + ")"
}
