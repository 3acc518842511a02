package catalog

import (
	"strings"
	"time"
)

// Entry holds the columns shared by rules and reports.
type Entry struct {
	ID           string `gorm:"primaryKey;size:255" json:"id" yaml:"id"`
	Title        string `gorm:"size:500" json:"title" yaml:"title"`
	Body         string `json:"body" yaml:"body"` // Markdown
	Overview     string `gorm:"size:2000" json:"overview" yaml:"overview"`
	Jurisdiction string `gorm:"size:100;index" json:"jurisdiction" yaml:"jurisdiction"`
	TopicKey     string `gorm:"size:100;index" json:"topic_key" yaml:"topic_key"`
	TopicLabel   string `gorm:"size:255" json:"topic_label" yaml:"topic_label"`
	SourceURL    string `gorm:"size:500" json:"source_url" yaml:"source_url"`

	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// Rule is a legal or regulatory rule.
type Rule struct {
	Entry `gorm:"embedded"`
}

// Report is a compliance report.
type Report struct {
	Entry `gorm:"embedded"`
}

// content is the text that gets embedded: the title as a heading followed by the body.
func (e *Entry) content() string {
	title := strings.TrimSpace(e.Title)
	if title == "" {
		return e.Body
	}
	return "# " + title + "\n\n" + e.Body
}

func (e *Entry) validate() error {
	if strings.TrimSpace(e.ID) == "" || strings.TrimSpace(e.Body) == "" {
		return ErrInvalidEntry
	}
	return nil
}
