package view

import (
	"reflect"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"taxclient/internal/cache"
)

const (
	LoadingText = "Loading..."
	ErrorText   = "Something went wrong. Please try again."
	IdleText    = "Sign in to see this section."
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "245"})
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	loadingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// Section describes how one resource is drawn.
type Section struct {
	Title string
	// Empty is shown for a successful but empty value.
	Empty string
	// IsEmpty overrides the default emptiness check (nil value or
	// zero-length slice or map).
	IsEmpty func(value any) bool
	Body    func(value any) string
}

// Render draws state: a placeholder while loading, a neutral message on
// error, an explicit empty state for an empty success, and the body
// otherwise. Raw error details are never shown.
func Render(state cache.State, section Section) string {
	var b strings.Builder
	if section.Title != "" {
		b.WriteString(titleStyle.Render(section.Title))
		b.WriteByte('\n')
	}
	b.WriteString(renderBody(state, section))
	return b.String()
}

func renderBody(state cache.State, section Section) string {
	switch state.Status {
	case cache.StatusIdle:
		return mutedStyle.Render(IdleText)
	case cache.StatusLoading:
		return loadingStyle.Render(LoadingText)
	case cache.StatusError:
		return errorStyle.Render(ErrorText)
	}
	isEmpty := section.IsEmpty
	if isEmpty == nil {
		isEmpty = IsEmpty
	}
	if isEmpty(state.Value) {
		empty := section.Empty
		if empty == "" {
			empty = "Nothing here yet"
		}
		return mutedStyle.Render(empty)
	}
	if section.Body == nil {
		return ""
	}
	body := section.Body(state.Value)
	if state.Fetching {
		body += "\n" + mutedStyle.Render("Refreshing...")
	}
	return body
}

func IsEmpty(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return v.IsNil()
	}
	return false
}
