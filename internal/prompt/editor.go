// Package prompt edits inferred sample data interactively before a render.
package prompt

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/goliatone/go-twigpreview/pkg/sample"
)

// Editing modes offered first.
const (
	ModeKeep = iota
	ModeFields
	ModeJSON
)

var modeOptions = []string{
	"Use inferred data",
	"Edit field by field",
	"Edit as JSON",
}

// Editor walks a sample data tree through a Driver.
type Editor struct {
	driver Driver
}

// NewEditor returns an editor. A nil driver uses the survey terminal driver.
func NewEditor(driver Driver) *Editor {
	if driver == nil {
		driver = NewSurveyDriver()
	}
	return &Editor{driver: driver}
}

// Edit returns an edited copy of data. The input is never modified.
func (e *Editor) Edit(ctx context.Context, data sample.Data) (sample.Data, error) {
	out := sample.Clone(data)
	if out == nil {
		out = sample.New()
	}

	mode, err := e.driver.Select(ctx, SelectConfig{
		Message:      "Sample data",
		Options:      modeOptions,
		DefaultIndex: ModeKeep,
	})
	if err != nil {
		return nil, err
	}

	switch mode {
	case ModeFields:
		if err := e.editObject(ctx, "", out); err != nil {
			return nil, err
		}
		return out, nil
	case ModeJSON:
		return e.editJSON(ctx, out)
	default:
		return out, nil
	}
}

func (e *Editor) editJSON(ctx context.Context, data sample.Data) (sample.Data, error) {
	current := data.JSON()
	for {
		raw, err := e.driver.TextArea(ctx, TextAreaConfig{
			Message: "Sample data (JSON object)",
			Default: current,
		})
		if err != nil {
			return nil, err
		}
		parsed, err := sample.Decode([]byte(raw))
		if err == nil {
			return parsed, nil
		}
		if err := e.driver.Info(ctx, err.Error()); err != nil {
			return nil, err
		}
		current = raw
	}
}

func (e *Editor) editObject(ctx context.Context, prefix string, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		value, err := e.editValue(ctx, path, obj[key])
		if err != nil {
			return err
		}
		obj[key] = value
	}
	return nil
}

func (e *Editor) editValue(ctx context.Context, path string, value any) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		return v, e.editObject(ctx, path, v)
	case sample.Data:
		return v, e.editObject(ctx, path, v)
	case []any:
		return e.editList(ctx, path, v)
	case bool:
		return e.driver.Confirm(ctx, ConfirmConfig{Message: path, Default: v})
	case float64, int:
		raw, err := e.driver.Input(ctx, InputConfig{
			Message:   path,
			Default:   fmt.Sprint(v),
			Validator: validateNumber,
		})
		if err != nil {
			return nil, err
		}
		return strconv.ParseFloat(raw, 64)
	case string:
		return e.driver.Input(ctx, InputConfig{Message: path, Default: v})
	default:
		return value, nil
	}
}

// editList edits each element and offers to append copies of the last one,
// so loops can be previewed with several items.
func (e *Editor) editList(ctx context.Context, path string, items []any) ([]any, error) {
	for i := range items {
		edited, err := e.editValue(ctx, fmt.Sprintf("%s[%d]", path, i), items[i])
		if err != nil {
			return nil, err
		}
		items[i] = edited
	}
	if len(items) == 0 {
		return items, nil
	}

	for {
		more, err := e.driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Add another item to %s?", path)})
		if err != nil {
			return nil, err
		}
		if !more {
			return items, nil
		}
		next := cloneItem(items[len(items)-1])
		edited, err := e.editValue(ctx, fmt.Sprintf("%s[%d]", path, len(items)), next)
		if err != nil {
			return nil, err
		}
		items = append(items, edited)
	}
}

func cloneItem(item any) any {
	switch v := item.(type) {
	case map[string]any:
		return map[string]any(sample.Clone(v))
	default:
		return v
	}
}

func validateNumber(raw string) error {
	if _, err := strconv.ParseFloat(raw, 64); err != nil {
		return fmt.Errorf("%q is not a number", raw)
	}
	return nil
}
