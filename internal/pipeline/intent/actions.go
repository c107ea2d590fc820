package intent

import "query-router/internal/models"

const (
	ActionUnknown          = "unknown"
	ActionHelp             = "help"
	ActionPartsCreateError = "parts_create_error"
)

var actionPrefixes = map[models.Module]string{
	models.ModuleContract: "contracts",
	models.ModuleParts:    "parts",
}

// ActionType derives the secondary decision from the populated identifiers:
// header fields in priority order, then date filters, then status filters.
func ActionType(module models.Module, header models.Header, filters []models.Entity) string {
	switch module {
	case models.ModuleHelp:
		return ActionHelp
	case models.ModulePartsCreateError:
		return ActionPartsCreateError
	case models.ModuleError:
		return models.ActionError
	}

	prefix, ok := actionPrefixes[module]
	if !ok {
		return ActionUnknown
	}
	for _, f := range models.HeaderFields {
		if _, ok := header.Get(f); ok {
			return prefix + "_by_" + string(f)
		}
	}
	if hasFilter(filters, models.IsDateAttribute) {
		return prefix + "_by_date"
	}
	if hasFilter(filters, func(a string) bool { return a == models.AttrStatus }) {
		return prefix + "_by_status"
	}
	return ActionUnknown
}

func hasFilter(filters []models.Entity, match func(string) bool) bool {
	for _, f := range filters {
		if match(f.Attribute) {
			return true
		}
	}
	return false
}
