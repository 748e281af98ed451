package templater

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"mangascout/internal/domain"
	"mangascout/internal/sanitize"
)

const DefaultTemplate = "{title:<.>} - {num:3}{chapter: - <.>}"

var templatePattern = regexp.MustCompile(`{((\w+?)(:.*?)?)}`)

// Templater renders folder and archive names for a chapter.
type Templater struct {
	Title   domain.Title
	Chapter domain.ChapterRef
}

func New(title domain.Title, chapter domain.ChapterRef) *Templater {
	return &Templater{
		Title:   title,
		Chapter: chapter,
	}
}

func (t *Templater) handleNum(options string) string {
	if options == "" {
		return fmt.Sprintf("%g", t.Chapter.Number)
	}

	width, _ := strconv.Atoi(options)
	return padFloat(t.Chapter.Number, width)
}

// substitute fills <.> in options with value. An empty value drops the whole
// placeholder, so optional parts like " - <.>" disappear with it.
func substitute(options, value string) string {
	if value == "" {
		return ""
	}
	if options == "" {
		return value
	}
	return strings.ReplaceAll(options, "<.>", value)
}

// ExecTemplate expands {title}, {chapter}, {num} and {source}. The result is
// safe to use as a file name.
func (t *Templater) ExecTemplate(template string) string {
	if template == "" {
		template = DefaultTemplate
	}

	newString := template
	for _, match := range templatePattern.FindAllStringSubmatch(template, -1) {
		replace := match[0]
		options := strings.TrimPrefix(match[3], ":")

		switch match[2] {
		case "num":
			replace = t.handleNum(options)
		case "title":
			replace = substitute(options, t.Title.Title)
		case "chapter":
			replace = substitute(options, t.Chapter.Title)
		case "source":
			replace = substitute(options, t.Title.Source)
		}

		newString = strings.Replace(newString, match[0], replace, 1)
	}

	return sanitize.Filename(newString)
}

// padFloat zero-pads the integer part of num to width, keeping any decimals.
func padFloat(num float32, width int) string {
	str := strconv.FormatFloat(float64(num), 'f', -1, 32)

	intPart, decimals, hasDecimals := strings.Cut(str, ".")
	if padding := width - len(intPart); padding > 0 {
		intPart = strings.Repeat("0", padding) + intPart
	}

	if hasDecimals {
		return intPart + "." + decimals
	}
	return intPart
}
