package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model.
func (m Model) View() string {
	styles := m.theme.Styles()

	sections := []string{m.renderHeader(styles)}
	if banner := m.bannerText(); banner != "" {
		sections = append(sections, styles.Banner.Render(banner))
	} else if m.flash != "" {
		sections = append(sections, styles.SuccessText.Render(m.flash))
	}

	switch m.screen {
	case screenLogin:
		sections = append(sections, m.renderLogin(styles))
	case screenCreate:
		sections = append(sections, m.renderCreate(styles))
	case screenRecipes:
		sections = append(sections, m.renderRecipes(styles))
	default:
		sections = append(sections, m.renderCookbooks(styles))
	}

	sections = append(sections, styles.Footer.Render(m.help.View(m.keys)))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader(s Styles) string {
	parts := []string{s.Logo.Render("cookbook")}
	if m.snap.UserEmail != "" {
		parts = append(parts, s.MutedText.Render(m.snap.UserEmail))
	}
	switch {
	case m.snap.SessionExpired:
		parts = append(parts, s.WarningText.Render("signed out"))
	case m.snap.IsOffline():
		parts = append(parts, s.DangerText.Render("offline"))
	case !m.snap.LastUpdated.IsZero():
		parts = append(parts, s.FaintText.Render("updated "+m.snap.LastUpdated.Format(time.Kitchen)))
	}
	if m.busy {
		parts = append(parts, m.spin.View())
	}
	return s.Header.Render(strings.Join(parts, "  "))
}

// bannerText is the problem line shown under the header. Login failures are
// reported through flash instead.
func (m Model) bannerText() string {
	if m.screen == screenLogin || m.snap.LastProblem == nil {
		return ""
	}
	return describeProblem(m.snap.LastProblem)
}

func (m Model) renderLogin(s Styles) string {
	var b strings.Builder
	b.WriteString(s.AccentText.Render("Sign in"))
	b.WriteString("\n\n")
	labels := []string{"Email", "Password"}
	for i, input := range m.inputs {
		label := s.MutedText.Render(fmt.Sprintf("%-9s", labels[i]))
		b.WriteString(label + " " + input.View() + "\n")
	}
	if m.busy {
		b.WriteString("\n" + m.spin.View() + s.MutedText.Render(" signing in…"))
	}
	return s.Focused.Render(b.String())
}

func (m Model) renderCreate(s Styles) string {
	body := s.AccentText.Render("New cookbook") + "\n\n" + m.title.View()
	return s.Focused.Render(body)
}

func (m Model) renderCookbooks(s Styles) string {
	if len(m.snap.Cookbooks) == 0 {
		msg := "No cookbooks yet. Press c to create one."
		if !m.snap.HasCookbooks && m.busy {
			msg = "Loading cookbooks…"
		}
		return s.Panel.Render(s.MutedText.Render(msg))
	}
	title := s.AccentText.Render("Cookbooks")
	if m.snap.CookbookPages > 1 {
		title += s.FaintText.Render(fmt.Sprintf("  page %d of %d", m.snap.CookbookPage, m.snap.CookbookPages))
	}
	return s.Panel.Render(title + "\n" + m.books.View())
}

func (m Model) renderRecipes(s Styles) string {
	title := s.AccentText.Render(m.selected.Title)
	if m.snap.RecipesFor != m.selected.ID || len(m.snap.Recipes) == 0 {
		msg := "No recipes in this cookbook."
		if m.busy {
			msg = "Loading recipes…"
		}
		return s.Panel.Render(title + "\n" + s.MutedText.Render(msg))
	}
	return s.Panel.Render(title + "\n" + m.recipes.View())
}
