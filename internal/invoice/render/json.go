package render

import (
	"encoding/json"

	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
	"github.com/garyjia/timesheet-invoicing/internal/domain/errs"
)

// JSON is the default structured document
type JSON struct{}

func (JSON) ID() string { return "json" }

func (r JSON) Render(in Input) (*entity.Document, error) {
	if err := requireFields(r.ID(), in, "company"); err != nil {
		return nil, err
	}

	content, err := json.MarshalIndent(newView(in), "", "  ")
	if err != nil {
		return nil, &errs.RenderError{Renderer: r.ID(), Err: err}
	}

	return &entity.Document{
		Content:   append(content, '\n'),
		MimeType:  "application/json",
		Extension: "json",
	}, nil
}
