package event

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/an-shikaSingh/campus-connect-V0/core"
)

var (
	categoryTag  = "category"
	categoryText = "must be one of: " + strings.Join(Categories, ", ")

	endDateTag  = "enddate"
	endDateText = "end date must not be before the start date"

	futureDateTag  = "futuredate"
	futureDateText = "start date must be in the future"
)

// InitValidators registers the event validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(categoryTag, categoryValidation)
	core.RegisterCustomTranslation(validate, translator, categoryTag, categoryText)

	validate.RegisterStructValidation(eventStructValidation, NewEvent{}, UpdateEvent{})
	core.RegisterCustomTranslation(validate, translator, endDateTag, endDateText)
	core.RegisterCustomTranslation(validate, translator, futureDateTag, futureDateText)
}

// cleanCategory trims c and matches it case-insensitively against Categories.
func cleanCategory(c string) string {
	c = core.CleanString(c)
	for _, cat := range Categories {
		if strings.EqualFold(cat, c) {
			return cat
		}
	}
	return c
}

// Custom Validators

func categoryValidation(fl validator.FieldLevel) bool {
	return core.ContainsString(Categories, fl.Field().String())
}

// eventStructValidation checks the event dates on NewEvent and UpdateEvent structs.
func eventStructValidation(sl validator.StructLevel) {
	switch evt := sl.Current().Interface().(type) {
	case NewEvent:
		if !evt.StartDate.IsZero() && !evt.StartDate.After(core.NowFunc()) {
			sl.ReportError(evt.StartDate, "start_date", "StartDate", futureDateTag, "")
		}
		if !evt.EndDate.IsZero() && evt.EndDate.Before(evt.StartDate) {
			sl.ReportError(evt.EndDate, "end_date", "EndDate", endDateTag, "")
		}
	case UpdateEvent:
		// an unchanged start date may already be past
		if !evt.StartDate.Equal(evt.origStartDate) && !evt.StartDate.After(core.NowFunc()) {
			sl.ReportError(evt.StartDate, "start_date", "StartDate", futureDateTag, "")
		}
		if evt.EndDate.Before(evt.StartDate) {
			sl.ReportError(evt.EndDate, "end_date", "EndDate", endDateTag, "")
		}
	}
}
