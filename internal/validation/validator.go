// =============================================================================
// Order Reconciler - Configuration Validation
// =============================================================================
//
// This module validates the loaded configuration before any run starts.
// A bad descriptor is cheaper to report at startup than as a run full of
// SourceMalformed diagnostics.
//
// VALIDATION LEVELS:
//   1. Field-level: struct tags on config.MainConfig, checked with
//      go-playground/validator (required, ranges, cell references)
//   2. Descriptor-level: every mapped target belongs to the report schema
//      and the join keys are mapped
//   3. Layout-level: pickup sources and couriers have a column letter
//
// ERROR HANDLING:
//   - Errors are collected, not returned on first failure
//   - "error" severity makes the result invalid; the CLI refuses to run
//   - "warning" severity is logged; the affected source is skipped at run time
//
// =============================================================================

package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/ginjaninja78/order-reconciler/internal/config"
	"github.com/ginjaninja78/order-reconciler/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single configuration problem.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Field is the YAML path of the offending setting,
	// e.g. "pickup.column_letters[Sellerflex]".
	Field string

	// Value is the offending value, formatted for display.
	Value string

	// Rule is the validation rule that was violated.
	Rule string

	// Message is a human-readable error message.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("[%s] %s: %s", strings.ToUpper(e.Severity), e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s (value: '%s')", strings.ToUpper(e.Severity), e.Field, e.Message, e.Value)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no errors. Warnings do not count.
	IsValid bool

	// Errors contains all problems, warnings included.
	Errors []*ValidationError

	ErrorCount   int
	WarningCount int
}

func (r *ValidationResult) add(e *ValidationError) {
	r.Errors = append(r.Errors, e)
	if e.Severity == SeverityError {
		r.ErrorCount++
		r.IsValid = false
	} else {
		r.WarningCount++
	}
}

// Warnings returns the warning-level entries.
func (r *ValidationResult) Warnings() []*ValidationError {
	var out []*ValidationError
	for _, e := range r.Errors {
		if e.Severity == SeverityWarning {
			out = append(out, e)
		}
	}
	return out
}

// Err returns nil when the result is valid, otherwise an error listing every
// error-level entry.
func (r *ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	var lines []string
	for _, e := range r.Errors {
		if e.Severity == SeverityError {
			lines = append(lines, e.Error())
		}
	}
	return fmt.Errorf("invalid configuration (%d errors):\n  %s", r.ErrorCount, strings.Join(lines, "\n  "))
}

// =============================================================================
// VALIDATOR
// =============================================================================

// newValidator builds the tag validator with the config-specific rules and
// YAML field names in error paths.
func newValidator() *validator.Validate {
	v := validator.New()

	// Registration only fails for an empty tag or nil function.
	_ = v.RegisterValidation("column_letter", isColumnLetter)
	_ = v.RegisterValidation("cell", isCellReference)
	_ = v.RegisterValidation("dated_pattern", isDatedPattern)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	return v
}

// isColumnLetter accepts spreadsheet column names such as "A" or "AB".
func isColumnLetter(fl validator.FieldLevel) bool {
	_, err := excelize.ColumnNameToNumber(fl.Field().String())
	return err == nil
}

// isCellReference accepts spreadsheet cell names such as "K1".
func isCellReference(fl validator.FieldLevel) bool {
	_, _, err := excelize.CellNameToCoordinates(fl.Field().String())
	return err == nil
}

// isDatedPattern accepts file name patterns with exactly one %s verb.
func isDatedPattern(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return strings.Count(s, "%s") == 1 && strings.Count(s, "%") == 1
}

// =============================================================================
// MAIN VALIDATION FUNCTION
// =============================================================================

// ValidateConfig checks a loaded configuration.
//
// PARAMETERS:
//   - cfg: The configuration after defaults and overrides are applied.
//
// RETURNS:
//   - A result carrying every problem found. Check IsValid or Err.
func ValidateConfig(cfg *config.MainConfig) *ValidationResult {
	result := &ValidationResult{IsValid: true}

	if cfg == nil {
		result.add(&ValidationError{Severity: SeverityError, Field: "config", Rule: "required", Message: "configuration is missing"})
		return result
	}

	validateTags(cfg, result)

	cancellation := types.CancellationSchema()
	validateDescriptor("cancellation.meesho_lookup", cfg.Cancellation.MeeshoLookup, cancellation, result,
		types.ColOrderID, types.ColStatus)
	validateDescriptor("cancellation.flipkart_pickup", cfg.Cancellation.FlipkartPickup, cancellation, result,
		types.ColOrderID, types.ColTrackingID)

	returns := types.ReturnsSchema()
	seen := make(map[string]bool)
	for i, desc := range cfg.Returns.Sources {
		field := fmt.Sprintf("returns.sources[%d]", i)
		if seen[desc.Name] {
			result.add(&ValidationError{Severity: SeverityError, Field: field + ".name", Value: desc.Name,
				Rule: "unique", Message: "duplicate source name"})
		}
		seen[desc.Name] = true
		validateDescriptor(field, desc, returns, result, types.ColReturnTID)
	}

	validatePickupLayout(cfg.Pickup, result)

	return result
}

// validateTags runs the struct tag rules.
func validateTags(cfg *config.MainConfig, result *ValidationResult) {
	err := newValidator().Struct(cfg)
	if err == nil {
		return
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		result.add(&ValidationError{Severity: SeverityError, Field: "config", Rule: "validate", Message: err.Error()})
		return
	}

	for _, fe := range fieldErrs {
		result.add(&ValidationError{
			Severity: SeverityError,
			Field:    strings.TrimPrefix(fe.Namespace(), "MainConfig."),
			Value:    fmt.Sprint(fe.Value()),
			Rule:     fe.Tag(),
			Message:  formatFieldError(fe),
		})
	}
}

// formatFieldError formats validation error messages.
func formatFieldError(fe validator.FieldError) string {
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", param)
	case "gt":
		return fmt.Sprintf("must be greater than %s", param)
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(param, " ", ", "))
	case "column_letter":
		return "must be a spreadsheet column such as A or AB"
	case "cell":
		return "must be a spreadsheet cell such as K1"
	case "dated_pattern":
		return "must contain exactly one %s for the date"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// =============================================================================
// DESCRIPTOR VALIDATORS
// =============================================================================

// validateDescriptor checks that every field a descriptor produces belongs
// to schema and that the keys are mapped.
func validateDescriptor(field string, desc config.SourceDescriptor, schema types.Schema, result *ValidationResult, keys ...string) {
	produced := make(map[string]bool)

	check := func(path, target string) {
		if target == schema.ChannelColumn {
			result.add(&ValidationError{Severity: SeverityError, Field: path, Value: target,
				Rule: "channel", Message: "the channel column is stamped per source and cannot be mapped"})
			return
		}
		if !schema.Has(target) {
			result.add(&ValidationError{Severity: SeverityError, Field: path, Value: target,
				Rule: "schema", Message: fmt.Sprintf("not a %s report column", schema.Kind)})
		}
	}

	for i, m := range desc.Columns {
		path := fmt.Sprintf("%s.columns[%d].target", field, i)
		check(path, m.Target)
		if m.Name == "" && len(m.Aliases) == 0 && m.Index == nil {
			result.add(&ValidationError{Severity: SeverityError, Field: fmt.Sprintf("%s.columns[%d]", field, i),
				Rule: "column_ref", Message: "needs a name, an alias or an index"})
		}
		produced[m.Target] = true
	}
	for target := range desc.Constants {
		check(field+".constants", target)
		produced[target] = true
	}
	for i, d := range desc.Derived {
		check(fmt.Sprintf("%s.derived[%d].target", field, i), d.Target)
		if !produced[d.From] {
			result.add(&ValidationError{Severity: SeverityError, Field: fmt.Sprintf("%s.derived[%d].from", field, i),
				Value: d.From, Rule: "derived", Message: "derives from a field the source does not produce"})
		}
		produced[d.Target] = true
	}

	for _, key := range keys {
		if !produced[key] {
			result.add(&ValidationError{Severity: SeverityError, Field: field + ".columns", Value: key,
				Rule: "key", Message: "required column is not mapped"})
		}
	}
}

// validatePickupLayout checks that every pickup source and courier bucket
// has somewhere to go in the pickup sheet.
func validatePickupLayout(p config.PickupConfig, result *ValidationResult) {
	missing := func(key string) {
		result.add(&ValidationError{Severity: SeverityWarning, Field: "pickup.column_letters", Value: key,
			Rule: "mapping", Message: "no column letter; its tracking IDs will be skipped"})
	}

	seen := make(map[string]bool)
	for i, src := range p.Sources {
		if seen[src.Name] {
			result.add(&ValidationError{Severity: SeverityError, Field: fmt.Sprintf("pickup.sources[%d].name", i),
				Value: src.Name, Rule: "unique", Message: "duplicate source name"})
		}
		seen[src.Name] = true

		if p.ColumnLetters[src.Name] == "" {
			missing(src.Name)
		}
		if (src.PivotGroup == "") != (src.PivotSum == "") {
			result.add(&ValidationError{Severity: SeverityWarning, Field: fmt.Sprintf("pickup.sources[%d]", i),
				Rule: "pivot", Message: "pivot_group and pivot_sum must be set together; no pivot will be built"})
		}
	}

	for _, courier := range p.KnownCouriers {
		if p.ColumnLetters[p.CourierPrefix+courier] == "" {
			missing(p.CourierPrefix + courier)
		}
	}
	if p.OthersBucket != "" && p.ColumnLetters[p.OthersBucket] == "" {
		missing(p.OthersBucket)
	}

	letters := make(map[string]string)
	for key, letter := range p.ColumnLetters {
		letter = strings.ToUpper(letter)
		if other, dup := letters[letter]; dup {
			a, b := other, key
			if b < a {
				a, b = b, a
			}
			result.add(&ValidationError{Severity: SeverityWarning, Field: "pickup.column_letters", Value: letter,
				Rule: "shared", Message: fmt.Sprintf("shared by %q and %q; values are appended in run order", a, b)})
			continue
		}
		letters[letter] = key
	}
}
