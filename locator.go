package storecheck

import (
	"fmt"
	"strings"
)

// Locator identifies an element by what a user sees on the page: its ARIA
// role and accessible name, its form label, its text, or, as a last resort,
// a CSS selector. Exactly one of Role, Label, Text and CSS is set.
type Locator struct {
	Role   string   `yaml:"role,omitempty"`
	Name   string   `yaml:"name,omitempty"`
	Label  string   `yaml:"label,omitempty"`
	Text   string   `yaml:"text,omitempty"`
	CSS    string   `yaml:"css,omitempty"`
	First  bool     `yaml:"first,omitempty"`
	Within *Locator `yaml:"within,omitempty"`
}

func ByRole(role, name string) Locator { return Locator{Role: role, Name: name} }

func ByLabel(label string) Locator { return Locator{Label: label} }

func ByText(text string) Locator { return Locator{Text: text} }

func ByCSS(selector string) Locator { return Locator{CSS: selector} }

// In scopes l to descendants of parent.
func (l Locator) In(parent Locator) Locator {
	p := parent
	l.Within = &p
	return l
}

// FirstMatch narrows l to its first match in document order.
func (l Locator) FirstMatch() Locator {
	l.First = true
	return l
}

// IsZero reports whether no strategy is set.
func (l Locator) IsZero() bool {
	return l.Role == "" && l.Label == "" && l.Text == "" && l.CSS == "" && l.Within == nil
}

func (l Locator) validate() error {
	set := 0
	for _, v := range []string{l.Role, l.Label, l.Text, l.CSS} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("locator %s: want exactly one of role, label, text, css", l)
	}
	if l.Name != "" && l.Role == "" {
		return fmt.Errorf("locator %s: name is only valid with role", l)
	}
	if l.Within != nil {
		return l.Within.validate()
	}
	return nil
}

func (l Locator) String() string {
	var s string
	switch {
	case l.Role != "" && l.Name != "":
		s = fmt.Sprintf("role=%s[name=%q]", l.Role, l.Name)
	case l.Role != "":
		s = "role=" + l.Role
	case l.Label != "":
		s = fmt.Sprintf("label=%q", l.Label)
	case l.Text != "":
		s = fmt.Sprintf("text=%q", l.Text)
	case l.CSS != "":
		s = "css=" + l.CSS
	default:
		s = "<empty>"
	}
	if l.First {
		s += ".first"
	}
	if l.Within != nil {
		s = l.Within.String() + " >> " + s
	}
	return s
}

// Query is a locator rendered as a selector string for engines that have no
// notion of roles or labels.
type Query struct {
	Selector string
	XPath    bool
	// First is set for CSS queries that only want the first match. XPath
	// queries carry it in the expression.
	First bool
}

// Query renders l as an XPath expression, or as CSS when l and all its
// parents are CSS locators. Mixing CSS with the other strategies inside one
// chain is rejected since neither syntax can express the other.
func (l Locator) Query() (Query, error) {
	if err := l.validate(); err != nil {
		return Query{}, err
	}
	return l.query()
}

func (l Locator) query() (Query, error) {
	q := l.own()
	if l.Within != nil {
		parent, err := l.Within.query()
		if err != nil {
			return Query{}, err
		}
		switch {
		case parent.XPath && q.XPath:
			q.Selector = parent.Selector + q.Selector
		case !parent.XPath && !q.XPath:
			q.Selector = parent.Selector + " " + q.Selector
		default:
			return Query{}, fmt.Errorf("locator %s: cannot nest css and role/label/text locators", l)
		}
	}
	if l.First {
		if q.XPath {
			q.Selector = "(" + q.Selector + ")[1]"
		} else {
			q.First = true
		}
	}
	return q, nil
}

func (l Locator) own() Query {
	switch {
	case l.CSS != "":
		return Query{Selector: l.CSS}
	case l.Text != "":
		return Query{XPath: true, Selector: fmt.Sprintf("//*[text()[contains(normalize-space(.), %s)]]", xpathLiteral(l.Text))}
	case l.Label != "":
		lit := xpathLiteral(l.Label)
		return Query{XPath: true, Selector: fmt.Sprintf(
			"//*[self::input or self::textarea or self::select][@id = //label[contains(normalize-space(.), %[1]s)]/@for or ancestor::label[contains(normalize-space(.), %[1]s)] or @aria-label = %[1]s]",
			lit)}
	default:
		sel := roleXPath(l.Role)
		if l.Name != "" {
			lit := xpathLiteral(l.Name)
			sel += fmt.Sprintf("[contains(normalize-space(.), %[1]s) or @aria-label = %[1]s or @value = %[1]s]", lit)
		}
		return Query{XPath: true, Selector: sel}
	}
}

// Enabled narrows q to elements without a disabled attribute.
func (q Query) Enabled() Query {
	if q.XPath {
		return Query{XPath: true, Selector: "(" + q.Selector + ")[not(@disabled) and not(@aria-disabled = 'true')]"}
	}
	return Query{Selector: ":is(" + q.Selector + "):not([disabled]):not([aria-disabled=true])", First: q.First}
}

func roleXPath(role string) string {
	switch role {
	case "heading":
		return "//*[self::h1 or self::h2 or self::h3 or self::h4 or self::h5 or self::h6 or @role = 'heading']"
	case "button":
		return "//*[self::button or @role = 'button' or (self::input and (@type = 'submit' or @type = 'button' or @type = 'reset'))]"
	case "link":
		return "//*[(self::a and @href) or @role = 'link']"
	case "dialog":
		return "//*[self::dialog or @role = 'dialog' or @role = 'alertdialog']"
	case "textbox":
		return "//*[self::textarea or (self::input and (not(@type) or @type = 'text' or @type = 'email' or @type = 'password' or @type = 'search' or @type = 'tel' or @type = 'url')) or @role = 'textbox']"
	case "checkbox":
		return "//*[(self::input and @type = 'checkbox') or @role = 'checkbox']"
	default:
		return fmt.Sprintf("//*[@role = %s]", xpathLiteral(role))
	}
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if p != "" {
			quoted = append(quoted, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
