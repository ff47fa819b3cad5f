// Package cli implements the interactive flows behind the
// formbuilder-cli binary: assembling a schema field by field, saving it
// to the collection, and filling a saved form in a terminal preview.
package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-formbuilder/internal/prompt"
	"github.com/goliatone/go-formbuilder/pkg/builder"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/preview"
)

// Option configures the App.
type Option func(*App)

// WithLogger attaches a logger for flow-level diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// App drives the interactive builder loop against a prompt driver.
type App struct {
	builder *builder.Builder
	driver  prompt.Driver
	logger  zerolog.Logger
}

// New wires the app. The driver decides whether prompts hit a real
// terminal or a scripted test double.
func New(b *builder.Builder, driver prompt.Driver, options ...Option) *App {
	app := &App{
		builder: b,
		driver:  driver,
		logger:  zerolog.Nop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(app)
		}
	}
	return app
}

const (
	menuAddField   = "Add field"
	menuEditField  = "Edit field"
	menuDelete     = "Delete field"
	menuMove       = "Move field"
	menuListFields = "List fields"
	menuSave       = "Save form"
	menuQuit       = "Quit"
)

// Run loops the main builder menu until the user quits or aborts.
func (a *App) Run(ctx context.Context) error {
	for {
		choice, err := a.driver.Select(ctx, prompt.SelectConfig{
			Message: "Form builder",
			Options: []string{menuAddField, menuEditField, menuDelete, menuMove, menuListFields, menuSave, menuQuit},
		})
		if err != nil {
			return quietAbort(err)
		}

		var action error
		switch choice {
		case 0:
			action = a.addField(ctx)
		case 1:
			action = a.editExistingField(ctx)
		case 2:
			action = a.deleteField(ctx)
		case 3:
			action = a.moveField(ctx)
		case 4:
			action = a.listFields(ctx)
		case 5:
			action = a.saveForm(ctx)
		default:
			return nil
		}
		if action != nil {
			if errors.Is(action, prompt.ErrAborted) {
				return nil
			}
			return action
		}
	}
}

func (a *App) addField(ctx context.Context) error {
	palette := model.Palette()
	labels := make([]string, len(palette))
	for i, ft := range palette {
		labels[i] = string(ft)
	}
	choice, err := a.driver.Select(ctx, prompt.SelectConfig{
		Message: "Field type",
		Options: labels,
	})
	if err != nil {
		return err
	}

	if _, err := a.builder.AddField(palette[choice]); err != nil {
		return err
	}
	return a.configureField(ctx, a.builder.FieldCount()-1)
}

func (a *App) editExistingField(ctx context.Context) error {
	index, err := a.pickField(ctx, "Edit which field?")
	if err != nil {
		return err
	}
	return a.configureField(ctx, index)
}

// configureField walks every editable attribute of one field and
// commits the result, reporting validation problems instead of saving
// an inconsistent configuration.
func (a *App) configureField(ctx context.Context, index int) error {
	field, err := a.builder.Field(index)
	if err != nil {
		return err
	}

	patch := builder.FieldPatch{}

	label, err := a.driver.Input(ctx, prompt.InputConfig{
		Message: "Label",
		Default: field.Label,
	})
	if err != nil {
		return err
	}
	patch.Label = builder.String(label)

	required, err := a.driver.Confirm(ctx, prompt.ConfirmConfig{
		Message: "Required?",
		Default: field.Required,
	})
	if err != nil {
		return err
	}
	patch.Required = builder.Bool(required)

	if field.Type.RequiresOptions() {
		raw, err := a.driver.Input(ctx, prompt.InputConfig{
			Message: "Options (comma separated)",
			Default: strings.Join(field.Options, ", "),
		})
		if err != nil {
			return err
		}
		options := builder.ParseOptions(raw)
		patch.Options = &options
	}

	defaultValue, err := a.promptValue(ctx, field.Type, "Default value", fmt.Sprintf("%v", orEmpty(field.DefaultValue)))
	if err != nil {
		return err
	}
	patch.DefaultValue = builder.Value(any(defaultValue))

	rules, err := a.collectRules(ctx, field)
	if err != nil {
		return err
	}
	patch.Validations = &rules

	if err := a.collectDerived(ctx, index, field, &patch); err != nil {
		return err
	}

	messages, err := a.builder.CommitField(index, patch)
	if err != nil {
		return err
	}
	if len(messages) > 0 {
		for _, message := range messages {
			if err := a.driver.Info(ctx, "invalid: "+message); err != nil {
				return err
			}
		}
		a.logger.Debug().Int("field", index).Strs("problems", messages).Msg("field configuration rejected")
		return nil
	}
	return a.driver.Info(ctx, fmt.Sprintf("field %d updated", index))
}

var ruleChoices = []string{
	model.ValidationRequired,
	model.ValidationMinLength,
	model.ValidationMaxLength,
	model.ValidationEmail,
	model.ValidationPassword,
}

func (a *App) collectRules(ctx context.Context, field model.Field) ([]model.ValidationRule, error) {
	defaults := make([]int, 0, len(field.Validations))
	for i, kind := range ruleChoices {
		if _, ok := field.Rule(kind); ok {
			defaults = append(defaults, i)
		}
	}

	picked, err := a.driver.MultiSelect(ctx, prompt.SelectConfig{
		Message:  "Validations",
		Options:  ruleChoices,
		Defaults: defaults,
	})
	if err != nil {
		return nil, err
	}

	rules := make([]model.ValidationRule, 0, len(picked))
	for _, choice := range picked {
		switch ruleChoices[choice] {
		case model.ValidationRequired:
			rules = append(rules, model.RequiredRule())
		case model.ValidationEmail:
			rules = append(rules, model.EmailRule())
		case model.ValidationPassword:
			rules = append(rules, model.PasswordRule())
		case model.ValidationMinLength:
			length, err := a.promptLength(ctx, "Minimum length", field, model.ValidationMinLength)
			if err != nil {
				return nil, err
			}
			rules = append(rules, model.MinLengthRule(length))
		case model.ValidationMaxLength:
			length, err := a.promptLength(ctx, "Maximum length", field, model.ValidationMaxLength)
			if err != nil {
				return nil, err
			}
			rules = append(rules, model.MaxLengthRule(length))
		}
	}
	return rules, nil
}

func (a *App) promptLength(ctx context.Context, message string, field model.Field, kind string) (int, error) {
	current := ""
	if rule, ok := field.Rule(kind); ok {
		current = strconv.Itoa(rule.Value)
	}
	raw, err := a.driver.Input(ctx, prompt.InputConfig{
		Message:   message,
		Default:   current,
		Validator: validatePositiveInt,
	})
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(raw))
}

func (a *App) collectDerived(ctx context.Context, index int, field model.Field, patch *builder.FieldPatch) error {
	derived, err := a.driver.Confirm(ctx, prompt.ConfirmConfig{
		Message: "Compute this field from other fields?",
		Default: field.Derived,
		Help:    "Derived fields are read only and recompute whenever a parent changes.",
	})
	if err != nil {
		return err
	}
	patch.Derived = builder.Bool(derived)
	if !derived {
		empty := []int{}
		patch.ParentFields = &empty
		patch.Formula = builder.String("")
		return nil
	}

	schema := a.builder.CurrentForm()
	candidates := make([]string, 0, index)
	for i := 0; i < index; i++ {
		if !schema.Fields[i].Derived {
			candidates = append(candidates, fmt.Sprintf("%d: %s", i, schema.Fields[i].Label))
		}
	}
	if len(candidates) == 0 {
		return a.driver.Info(ctx, "no eligible parent fields before this one")
	}

	picked, err := a.driver.MultiSelect(ctx, prompt.SelectConfig{
		Message: "Parent fields",
		Options: candidates,
	})
	if err != nil {
		return err
	}
	parents := make([]int, 0, len(picked))
	for _, choice := range picked {
		position, _, _ := strings.Cut(candidates[choice], ":")
		parent, err := strconv.Atoi(position)
		if err != nil {
			return err
		}
		parents = append(parents, parent)
	}
	patch.ParentFields = &parents

	formula, err := a.driver.Input(ctx, prompt.InputConfig{
		Message: "Formula",
		Default: field.Formula,
		Help:    "Reference parents as parent0, parent1, ... e.g. parent0 + parent1",
	})
	if err != nil {
		return err
	}
	patch.Formula = builder.String(formula)
	return nil
}

func (a *App) deleteField(ctx context.Context) error {
	index, err := a.pickField(ctx, "Delete which field?")
	if err != nil {
		return err
	}
	confirmed, err := a.driver.Confirm(ctx, prompt.ConfirmConfig{
		Message: "Delete the field? Derived fields that depend on it lose the reference.",
	})
	if err != nil {
		return err
	}
	if !confirmed {
		return nil
	}
	if err := a.builder.DeleteField(index); err != nil {
		return err
	}
	return a.driver.Info(ctx, fmt.Sprintf("field %d deleted", index))
}

func (a *App) moveField(ctx context.Context) error {
	index, err := a.pickField(ctx, "Move which field?")
	if err != nil {
		return err
	}
	raw, err := a.driver.Input(ctx, prompt.InputConfig{
		Message:   fmt.Sprintf("New position (0-%d)", a.builder.FieldCount()-1),
		Validator: validatePositiveInt,
	})
	if err != nil {
		return err
	}
	newIndex, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	if err := a.builder.ReorderFields(index, newIndex); err != nil {
		if errors.Is(err, builder.ErrReorderBreaksDependencies) {
			return a.driver.Info(ctx, "move rejected: a computed field would end up before one of its parents")
		}
		return err
	}
	return a.driver.Info(ctx, fmt.Sprintf("field moved to position %d", newIndex))
}

func (a *App) listFields(ctx context.Context) error {
	schema := a.builder.CurrentForm()
	if len(schema.Fields) == 0 {
		return a.driver.Info(ctx, "the form is empty")
	}
	for i, field := range schema.Fields {
		line := fmt.Sprintf("%2d. [%s] %s", i, field.Type, field.Label)
		if field.Required {
			line += " *"
		}
		if field.Derived {
			line += fmt.Sprintf(" = %s", field.Formula)
		}
		if err := a.driver.Info(ctx, line); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) saveForm(ctx context.Context) error {
	name, err := a.driver.Input(ctx, prompt.InputConfig{Message: "Form name"})
	if err != nil {
		return err
	}
	saved, err := a.builder.SaveForm(name)
	if err != nil {
		if errors.Is(err, builder.ErrFormNameRequired) {
			return a.driver.Info(ctx, "save cancelled: the form needs a name")
		}
		return err
	}
	return a.driver.Info(ctx, fmt.Sprintf("saved %q (%s)", saved.Name, saved.ID))
}

func (a *App) pickField(ctx context.Context, message string) (int, error) {
	schema := a.builder.CurrentForm()
	if len(schema.Fields) == 0 {
		if err := a.driver.Info(ctx, "the form is empty"); err != nil {
			return 0, err
		}
		return 0, prompt.ErrAborted
	}
	labels := make([]string, len(schema.Fields))
	for i, field := range schema.Fields {
		labels[i] = fmt.Sprintf("%d: [%s] %s", i, field.Type, field.Label)
	}
	return a.driver.Select(ctx, prompt.SelectConfig{
		Message: message,
		Options: labels,
	})
}

// RunPreview fills a saved form interactively and reports validation
// results on submit.
func (a *App) RunPreview(ctx context.Context, formID string) error {
	schema, err := a.builder.LoadFormForPreview(formID)
	if err != nil {
		return err
	}
	session := preview.NewSession(schema)

	for {
		options := make([]string, 0, session.FieldCount()+1)
		for i, field := range schema.Fields {
			suffix := ""
			if field.Derived {
				suffix = " (computed)"
			}
			options = append(options, fmt.Sprintf("%s = %v%s", field.Label, orEmpty(session.Value(i)), suffix))
		}
		options = append(options, "Submit")

		choice, err := a.driver.Select(ctx, prompt.SelectConfig{
			Message: schema.Name,
			Options: options,
		})
		if err != nil {
			return quietAbort(err)
		}
		if choice == len(options)-1 {
			errs, ok := session.Submit()
			if ok {
				return a.driver.Info(ctx, "form submitted, all fields valid")
			}
			for index, messages := range errs {
				for _, message := range messages {
					if err := a.driver.Info(ctx, fmt.Sprintf("%s: %s", schema.Fields[index].Label, message)); err != nil {
						return err
					}
				}
			}
			continue
		}

		field := schema.Fields[choice]
		if field.Derived {
			if err := a.driver.Info(ctx, "computed fields cannot be edited"); err != nil {
				return err
			}
			continue
		}
		value, err := a.promptValue(ctx, field.Type, field.Label, fmt.Sprintf("%v", orEmpty(session.Value(choice))))
		if err != nil {
			return quietAbort(err)
		}
		if err := session.SetValue(choice, value); err != nil {
			return err
		}
	}
}

// promptValue asks for a field value, switching to the multi-line prompt
// for textarea fields.
func (a *App) promptValue(ctx context.Context, fieldType model.FieldType, message, current string) (string, error) {
	if fieldType == model.FieldTypeTextarea {
		return a.driver.TextArea(ctx, prompt.TextAreaConfig{
			Message: message,
			Default: current,
		})
	}
	return a.driver.Input(ctx, prompt.InputConfig{
		Message: message,
		Default: current,
	})
}

func validatePositiveInt(raw string) error {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("enter a whole number")
	}
	if value < 0 {
		return fmt.Errorf("enter a number >= 0")
	}
	return nil
}

func orEmpty(value any) any {
	if value == nil {
		return ""
	}
	return value
}

func quietAbort(err error) error {
	if errors.Is(err, prompt.ErrAborted) {
		return nil
	}
	return err
}
