package injector

import "errors"

var (
	// ErrRecipeExists is returned by AddRecipe/AddCtorRecipeN/BindImpl when a
	// recipe is already registered for the type.
	ErrRecipeExists = errors.New("injector: recipe already registered")

	// ErrAbstractNoRecipe is returned by Get[T] when T is an interface type
	// with no recipe bound via BindImpl.
	ErrAbstractNoRecipe = errors.New("injector: interface type has no bound implementation")

	// ErrDependencyCycle is returned when resolving T re-enters its own
	// construction, directly or transitively.
	ErrDependencyCycle = errors.New("injector: dependency cycle detected")

	// ErrNotDefaultConstructible is returned when T has no recipe and opts
	// out of zero-value default construction by implementing
	// NoDefaultConstruct.
	ErrNotDefaultConstructible = errors.New("injector: type has no recipe and opts out of default construction")

	// ErrRecipeKindMismatch is returned when a concrete type's recipe turns
	// out to be an interface-binding recipe, or vice versa, and by BindImpl
	// when Iface is not an interface or Impl does not implement it — always a
	// programming error, never a runtime condition a caller should retry.
	ErrRecipeKindMismatch = errors.New("injector: recipe kind mismatch")
)
