// Package personalize substitutes customer data into campaign message
// templates.
//
// The template language is deliberately tiny: a closed set of {{token}}
// placeholders. Anything outside that set passes through verbatim, so a
// template author can never crash a launch with a typo'd token.
package personalize

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/xencrm/crm-server/internal/domain"
)

// inr formats amounts with Indian digit grouping (12,34,567).
var inr = message.NewPrinter(language.MustParse("en-IN"))

type placeholder struct {
	token  string
	render func(c *domain.Customer) string
}

// placeholders is the closed substitution table, applied in order. Unknown
// placeholders are not an error; they are left as-is.
var placeholders = []placeholder{
	{"{{name}}", func(c *domain.Customer) string {
		if c.Name == "" {
			return "Customer"
		}
		return c.Name
	}},
	{"{{email}}", func(c *domain.Customer) string {
		return c.Email
	}},
	{"{{total_spend}}", func(c *domain.Customer) string {
		return FormatINR(c.TotalSpend)
	}},
	{"{{total_orders}}", func(c *domain.Customer) string {
		return strconv.Itoa(c.TotalOrders)
	}},
	{"{{total_visits}}", func(c *domain.Customer) string {
		return strconv.Itoa(c.TotalVisits)
	}},
}

// Render substitutes every occurrence of each recognized placeholder with
// the customer's value. Pure function: no I/O, no mutation.
func Render(template string, c *domain.Customer) string {
	out := template
	for _, p := range placeholders {
		if strings.Contains(out, p.token) {
			out = strings.ReplaceAll(out, p.token, p.render(c))
		}
	}
	return out
}

// FormatINR renders an amount as a rupee string with locale grouping and no
// decimals, e.g. 2500 -> "₹2,500" and 1234567 -> "₹12,34,567".
func FormatINR(amount float64) string {
	return "₹" + inr.Sprint(number.Decimal(amount, number.MaxFractionDigits(0)))
}
