package prompt

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-twigpreview/pkg/sample"
)

type stubDriver struct {
	inputs    []string
	confirm   []bool
	selectIdx []int
	textAreas []string
	messages  []string
	prompts   []string

	inputPos, confirmPos, selectPos, textPos int
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	if cfg.Validator != nil {
		if err := cfg.Validator(val); err != nil {
			return "", err
		}
	}
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, _ SelectConfig) (int, error) {
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) TextArea(_ context.Context, _ TextAreaConfig) (string, error) {
	if s.textPos >= len(s.textAreas) {
		return "", errors.New("no textarea scripted")
	}
	val := s.textAreas[s.textPos]
	s.textPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.messages = append(s.messages, msg)
	return nil
}

func inferred() sample.Data {
	return sample.Data{
		"title":  "title",
		"active": true,
		"posts":  []any{map[string]any{"name": "name 1"}},
	}
}

func TestEditor_KeepReturnsCopy(t *testing.T) {
	orig := inferred()
	got, err := NewEditor(&stubDriver{selectIdx: []int{ModeKeep}}).Edit(context.Background(), orig)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if diff := cmp.Diff(orig, got); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
	got["title"] = "changed"
	if orig["title"] != "title" {
		t.Fatalf("edit must not share the input map")
	}
}

func TestEditor_FieldByField(t *testing.T) {
	driver := &stubDriver{
		selectIdx: []int{ModeFields},
		// active, posts[0] confirm-more, then more=false
		confirm: []bool{false, true, false},
		inputs:  []string{"First", "Second", "Home"},
	}

	got, err := NewEditor(driver).Edit(context.Background(), inferred())
	if err != nil {
		t.Fatalf("edit: %v", err)
	}

	want := sample.Data{
		"title":  "Home",
		"active": false,
		"posts": []any{
			map[string]any{"name": "First"},
			map[string]any{"name": "Second"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}

	wantPrompts := []string{
		"active",
		"posts[0].name",
		"Add another item to posts?",
		"posts[1].name",
		"Add another item to posts?",
		"title",
	}
	if diff := cmp.Diff(wantPrompts, driver.prompts); diff != "" {
		t.Fatalf("prompt order mismatch (-want +got):\n%s", diff)
	}
}

func TestEditor_JSONRetriesInvalidInput(t *testing.T) {
	driver := &stubDriver{
		selectIdx: []int{ModeJSON},
		textAreas: []string{`[1]`, `{"title":"From JSON"}`},
	}

	got, err := NewEditor(driver).Edit(context.Background(), inferred())
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if diff := cmp.Diff(sample.Data{"title": "From JSON"}, got); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
	if len(driver.messages) != 1 {
		t.Fatalf("expected one validation message, got %v", driver.messages)
	}
}

func TestEditor_NumbersAreValidated(t *testing.T) {
	driver := &stubDriver{selectIdx: []int{ModeFields}, inputs: []string{"abc"}}
	_, err := NewEditor(driver).Edit(context.Background(), sample.Data{"count": float64(1)})
	if err == nil {
		t.Fatalf("expected a validation error")
	}
}
