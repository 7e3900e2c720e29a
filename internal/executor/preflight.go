package executor

import (
	"fmt"

	"triage/internal/models"
)

// preflight validates a BatchOperation against cached catalogs only. It
// never touches the network. A non-nil error aborts the operation with
// final_status=aborted before any remote call is made.
func preflight(op models.BatchOperation, catalog CatalogView) error {
	switch op.Kind {
	case models.OpCreateUnit:
		name, ok := trimmedNonEmpty(op.Payload.Name)
		if !ok {
			return models.ErrEmptyName
		}
		if catalog.unitNameOrAbbrevTaken(name, op.Payload.Abbreviation) {
			return models.ErrDuplicateUnitName
		}
		return nil

	case models.OpCreateFood:
		name, ok := trimmedNonEmpty(op.Payload.Name)
		if !ok {
			return models.ErrEmptyName
		}
		if catalog.foodNameTaken(name) {
			return models.ErrDuplicateFoodName
		}
		return nil

	case models.OpAddFoodAlias:
		food, found := catalog.findFood(op.TargetEntityID)
		if !found {
			return models.ErrUnknownTargetFood
		}
		alias, ok := trimmedNonEmpty(op.Payload.AliasText)
		if !ok {
			return models.ErrEmptyAlias
		}
		if aliasAlreadyAttached(food, alias) {
			return models.ErrAliasAlreadyExists
		}
		return nil

	default:
		return fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}
