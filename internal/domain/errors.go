package domain

import "errors"

// Inventory domain errors
var (
	// ErrItemNotFound is returned when an inventory item cannot be found
	ErrItemNotFound = errors.New("inventory item not found")

	// ErrDuplicateItemName is returned when two items would share a lookup name
	ErrDuplicateItemName = errors.New("an inventory item with this name already exists")

	// ErrInvalidItemName is returned when an item name is blank
	ErrInvalidItemName = errors.New("invalid item name: name is required")

	// ErrCustomUnitRequired is returned when primaryUnit is custom without a label
	ErrCustomUnitRequired = errors.New("customPrimaryUnit is required when primaryUnit is custom")

	// ErrInvalidQuantity is returned by ParseQuantity for input that is not a finite number
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrNegativeQuantity is returned when a quantity that must be positive or zero is negative
	ErrNegativeQuantity = errors.New("invalid quantity: must be zero or greater")

	// ErrInvalidOrderQuantity is returned when a production order quantity is not positive
	ErrInvalidOrderQuantity = errors.New("invalid order quantity: must be greater than zero")

	// ErrMisconfiguredSecondaryUnit flags a secondary unit with a zero conversion factor
	ErrMisconfiguredSecondaryUnit = errors.New("secondary unit configured with zero quantity per unit; consumed from primary stock only")
)

// Recipe errors
var (
	// ErrRecipeNotFound is returned when a recipe cannot be found
	ErrRecipeNotFound = errors.New("recipe not found")

	// ErrEmptyRecipe is returned when a recipe has no usable ingredients
	ErrEmptyRecipe = errors.New("invalid recipe: at least one ingredient is required")

	// ErrUnrecognizedRecipeShape is returned by the legacy adapter for unknown documents
	ErrUnrecognizedRecipeShape = errors.New("invalid recipe document: unrecognized shape")
)

// Record and cycle errors
var (
	// ErrRecordNotFound is returned when a daily record cannot be found
	ErrRecordNotFound = errors.New("daily record not found")

	// ErrRecordExists is returned when a record for the same date and item already exists
	// and overwrite was not confirmed
	ErrRecordExists = errors.New("daily record already exists for this date and item")

	// ErrInvalidDate is returned for dates that are not YYYY-MM-DD
	ErrInvalidDate = errors.New("invalid date: expected YYYY-MM-DD")

	// ErrInvalidDateRange is returned when from is after to
	ErrInvalidDateRange = errors.New("invalid date range: from must not be after to")

	// ErrRolloverSuppressed is returned when a rollover is requested during the consumption cooldown
	ErrRolloverSuppressed = errors.New("rollover suppressed while a consumption write is in progress or cooling down")

	// ErrAlreadyRolledOver is returned when the item was already rolled over for the cycle
	ErrAlreadyRolledOver = errors.New("item already rolled over for this cycle")
)
