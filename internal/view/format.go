package view

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var inrPrinter = message.NewPrinter(language.MustParse("en-IN"))

// Rupees formats amount with Indian digit grouping, e.g. ₹12,34,567.5.
func Rupees(amount float64) string {
	return "₹" + inrPrinter.Sprint(number.Decimal(amount, number.MaxFractionDigits(2)))
}

// Price renders a pricing plan price string.
func Price(price string) string {
	switch price {
	case "Custom":
		return "Custom"
	case "0", "":
		return "Free"
	}
	amount, err := strconv.ParseFloat(price, 64)
	if err != nil {
		return price
	}
	return Rupees(amount)
}

// Percent renders a completion percentage without trailing zeros.
func Percent(value float64) string {
	return inrPrinter.Sprint(number.Decimal(value, number.MaxFractionDigits(1))) + "%"
}

const (
	colorGreen  = lipgloss.Color("2")
	colorYellow = lipgloss.Color("3")
	colorBlue   = lipgloss.Color("4")
	colorGray   = lipgloss.Color("8")
)

// StatusColor maps a filing status to its badge color.
func StatusColor(status string) lipgloss.Color {
	switch strings.ToLower(status) {
	case "processed", "filed", "completed":
		return colorGreen
	case "draft":
		return colorYellow
	case "pending":
		return colorBlue
	default:
		return colorGray
	}
}

func Badge(status string) string {
	return lipgloss.NewStyle().Foreground(StatusColor(status)).Render("[" + status + "]")
}
