package injector

import "reflect"

// resolveArg implements the per-argument dispatch rule: a pointer or
// interface argument type is resolved via Get (a shared, cached instance —
// interfaces have no other way to resolve, since Create refuses them
// outright), anything else via Create (a fresh, uncached value). The
// original additionally distinguished reference from pointer arguments; Go
// has no reference type distinct from a pointer at the type-parameter
// level, so the two collapse into one rule here.
func resolveArg[A any](inj *Injector) (A, error) {
	rt := reflect.TypeOf((*A)(nil)).Elem()
	if rt.Kind() == reflect.Ptr || rt.Kind() == reflect.Interface {
		return Get[A](inj)
	}
	return Create[A](inj)
}

// AddCtorRecipe0 registers ctor as T's recipe, for constructors that take
// no dependencies.
func AddCtorRecipe0[T any](inj *Injector, ctor func() T) error {
	return AddRecipe[T](inj, func(*Injector) (T, error) {
		return ctor(), nil
	})
}

// AddCtorRecipe1 registers ctor as T's recipe, resolving its single
// argument per resolveArg's dispatch rule.
func AddCtorRecipe1[T, A1 any](inj *Injector, ctor func(A1) T) error {
	return AddRecipe[T](inj, func(in *Injector) (T, error) {
		var zero T
		a1, err := resolveArg[A1](in)
		if err != nil {
			return zero, err
		}
		return ctor(a1), nil
	})
}

// AddCtorRecipe2 registers ctor as T's recipe, resolving each argument per
// resolveArg's dispatch rule, left to right.
func AddCtorRecipe2[T, A1, A2 any](inj *Injector, ctor func(A1, A2) T) error {
	return AddRecipe[T](inj, func(in *Injector) (T, error) {
		var zero T
		a1, err := resolveArg[A1](in)
		if err != nil {
			return zero, err
		}
		a2, err := resolveArg[A2](in)
		if err != nil {
			return zero, err
		}
		return ctor(a1, a2), nil
	})
}

// AddCtorRecipe3 registers ctor as T's recipe, resolving each argument per
// resolveArg's dispatch rule, left to right.
func AddCtorRecipe3[T, A1, A2, A3 any](inj *Injector, ctor func(A1, A2, A3) T) error {
	return AddRecipe[T](inj, func(in *Injector) (T, error) {
		var zero T
		a1, err := resolveArg[A1](in)
		if err != nil {
			return zero, err
		}
		a2, err := resolveArg[A2](in)
		if err != nil {
			return zero, err
		}
		a3, err := resolveArg[A3](in)
		if err != nil {
			return zero, err
		}
		return ctor(a1, a2, a3), nil
	})
}

// AddCtorRecipe4 registers ctor as T's recipe, resolving each argument per
// resolveArg's dispatch rule, left to right.
func AddCtorRecipe4[T, A1, A2, A3, A4 any](inj *Injector, ctor func(A1, A2, A3, A4) T) error {
	return AddRecipe[T](inj, func(in *Injector) (T, error) {
		var zero T
		a1, err := resolveArg[A1](in)
		if err != nil {
			return zero, err
		}
		a2, err := resolveArg[A2](in)
		if err != nil {
			return zero, err
		}
		a3, err := resolveArg[A3](in)
		if err != nil {
			return zero, err
		}
		a4, err := resolveArg[A4](in)
		if err != nil {
			return zero, err
		}
		return ctor(a1, a2, a3, a4), nil
	})
}
