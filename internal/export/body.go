package export

import (
	"bytes"
	"encoding/json"
	"html"
	"strings"
)

// reportBody is the shape the reporting frontend saves. Anything that does
// not parse into it is rendered as preformatted JSON so older reports still
// export.
type reportBody struct {
	Summary  string          `json:"summary"`
	Sections []reportSection `json:"sections"`
}

type reportSection struct {
	Heading string   `json:"heading"`
	Content string   `json:"content"`
	Bullets []string `json:"bullets"`
}

// BodyToHTML converts a stored report body to HTML. All text is escaped;
// the body is user data, never trusted markup.
func BodyToHTML(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var body reportBody
	if err := json.Unmarshal(raw, &body); err != nil || (body.Summary == "" && len(body.Sections) == 0) {
		return renderRawJSON(raw)
	}

	var buf bytes.Buffer
	if body.Summary != "" {
		buf.WriteString(`<p class="summary">`)
		writeParagraphText(&buf, body.Summary)
		buf.WriteString("</p>\n")
	}
	for _, s := range body.Sections {
		if s.Heading != "" {
			buf.WriteString("<h2>")
			buf.WriteString(html.EscapeString(s.Heading))
			buf.WriteString("</h2>\n")
		}
		if s.Content != "" {
			buf.WriteString("<p>")
			writeParagraphText(&buf, s.Content)
			buf.WriteString("</p>\n")
		}
		if len(s.Bullets) > 0 {
			buf.WriteString("<ul>\n")
			for _, b := range s.Bullets {
				buf.WriteString("<li>")
				buf.WriteString(html.EscapeString(b))
				buf.WriteString("</li>\n")
			}
			buf.WriteString("</ul>\n")
		}
	}
	return buf.String()
}

func writeParagraphText(buf *bytes.Buffer, text string) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if i > 0 {
			buf.WriteString("<br>")
		}
		buf.WriteString(html.EscapeString(line))
	}
}

func renderRawJSON(raw json.RawMessage) string {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return "<pre>" + html.EscapeString(string(raw)) + "</pre>\n"
	}
	return "<pre>" + html.EscapeString(pretty.String()) + "</pre>\n"
}
